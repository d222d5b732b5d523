package routes

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/JBFaner/DisasterTraining-sub003/internals/constants"
	auditRoute "github.com/JBFaner/DisasterTraining-sub003/internals/features/audit/route"
	barangayRoute "github.com/JBFaner/DisasterTraining-sub003/internals/features/barangays/route"
	certificateRoute "github.com/JBFaner/DisasterTraining-sub003/internals/features/certificates/route"
	dashboardRoute "github.com/JBFaner/DisasterTraining-sub003/internals/features/dashboard/route"
	evaluationRoute "github.com/JBFaner/DisasterTraining-sub003/internals/features/evaluations/route"
	resourceRoute "github.com/JBFaner/DisasterTraining-sub003/internals/features/resources/route"
	scenarioRoute "github.com/JBFaner/DisasterTraining-sub003/internals/features/scenarios/route"
	simulationRoute "github.com/JBFaner/DisasterTraining-sub003/internals/features/simulations/route"
	trainingRoute "github.com/JBFaner/DisasterTraining-sub003/internals/features/trainings/route"
	authRoute "github.com/JBFaner/DisasterTraining-sub003/internals/features/users/auth/route"
	userRoute "github.com/JBFaner/DisasterTraining-sub003/internals/features/users/users/route"
	authMiddleware "github.com/JBFaner/DisasterTraining-sub003/internals/middlewares/auth"
)

var startTime time.Time

func SetupRoutes(app *fiber.App, db *gorm.DB) {
	startTime = time.Now()

	BaseRoutes(app, db)

	// ===================== AUTH =====================
	zap.L().Info("mounting auth routes")
	authRoute.AuthRoutes(app, db)

	// ===================== GROUPS =====================

	// PUBLIC → JWT optional
	public := app.Group("/api/public", authMiddleware.OptionalAuthMiddleware(db))

	// USER → any signed-in account
	user := app.Group("/api/u", authMiddleware.AuthMiddleware(db))

	// ADMIN → admins and trainers; admin-only routes narrow this further
	admin := app.Group("/api/admin",
		authMiddleware.AuthMiddleware(db),
		authMiddleware.OnlyRoles(constants.RoleErrorStaff("the admin area"), constants.StaffRoles...),
	)

	// ===================== MOUNT ROUTES =====================
	zap.L().Info("mounting feature routes")

	userRoute.UserUserRoutes(user, db)
	userRoute.UserAdminRoutes(admin, db)

	barangayRoute.BarangayUserRoutes(user, db)
	barangayRoute.BarangayAdminRoutes(admin, db)

	trainingRoute.TrainingUserRoutes(user, db)
	trainingRoute.TrainingAdminRoutes(admin, db)

	scenarioRoute.ScenarioUserRoutes(user, db)
	scenarioRoute.ScenarioAdminRoutes(admin, db)

	simulationRoute.SimulationPublicRoutes(public, db)
	simulationRoute.SimulationUserRoutes(user, db)
	simulationRoute.SimulationAdminRoutes(admin, db)

	resourceRoute.ResourceAdminRoutes(admin, db)

	evaluationRoute.EvaluationUserRoutes(user, db)

	certificateRoute.CertificatePublicRoutes(public, db)
	certificateRoute.CertificateUserRoutes(user, db)
	certificateRoute.CertificateAdminRoutes(admin, db)

	auditRoute.AuditAdminRoutes(admin, db)
	dashboardRoute.DashboardAdminRoutes(admin, db)
}
