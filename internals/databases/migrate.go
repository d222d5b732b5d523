package database

import (
	"go.uber.org/zap"
	"gorm.io/gorm"

	auditModel "github.com/JBFaner/DisasterTraining-sub003/internals/features/audit/model"
	barangayModel "github.com/JBFaner/DisasterTraining-sub003/internals/features/barangays/model"
	certificateModel "github.com/JBFaner/DisasterTraining-sub003/internals/features/certificates/model"
	evaluationModel "github.com/JBFaner/DisasterTraining-sub003/internals/features/evaluations/model"
	resourceModel "github.com/JBFaner/DisasterTraining-sub003/internals/features/resources/model"
	scenarioModel "github.com/JBFaner/DisasterTraining-sub003/internals/features/scenarios/model"
	simulationModel "github.com/JBFaner/DisasterTraining-sub003/internals/features/simulations/model"
	trainingModel "github.com/JBFaner/DisasterTraining-sub003/internals/features/trainings/model"
	authModel "github.com/JBFaner/DisasterTraining-sub003/internals/features/users/auth/model"
	userModel "github.com/JBFaner/DisasterTraining-sub003/internals/features/users/users/model"
)

// Models lists every table in dependency order.
func Models() []any {
	return []any{
		&barangayModel.BarangayProfileModel{},
		&userModel.UserModel{},

		&authModel.RefreshTokenModel{},
		&authModel.TokenBlacklistModel{},
		&authModel.OTPCodeModel{},
		&authModel.LoginChallengeModel{},
		&authModel.UserSessionModel{},

		&trainingModel.TrainingModuleModel{},
		&trainingModel.TrainingLessonModel{},
		&trainingModel.LessonMaterialModel{},
		&trainingModel.LessonCompletionModel{},

		&scenarioModel.ScenarioModel{},
		&scenarioModel.ScenarioInjectModel{},
		&scenarioModel.ScenarioExpectedActionModel{},

		&simulationModel.SimulationEventModel{},
		&simulationModel.EventRegistrationModel{},
		&simulationModel.AttendanceModel{},

		&resourceModel.ResourceModel{},
		&resourceModel.ResourceEventAssignmentModel{},
		&resourceModel.ResourceMaintenanceLogModel{},

		&evaluationModel.EvaluationModel{},
		&evaluationModel.ParticipantEvaluationModel{},
		&evaluationModel.EvaluationScoreModel{},

		&certificateModel.CertificateTemplateModel{},
		&certificateModel.CertificateModel{},

		&auditModel.AuditLogModel{},
	}
}

func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return err
	}
	zap.L().Info("migration finished", zap.Int("tables", len(Models())))
	return nil
}
