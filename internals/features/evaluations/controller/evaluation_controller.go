package controller

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	audit "github.com/JBFaner/DisasterTraining-sub003/internals/features/audit/service"
	"github.com/JBFaner/DisasterTraining-sub003/internals/features/evaluations/dto"
	"github.com/JBFaner/DisasterTraining-sub003/internals/features/evaluations/model"
	"github.com/JBFaner/DisasterTraining-sub003/internals/features/evaluations/service"
	simModel "github.com/JBFaner/DisasterTraining-sub003/internals/features/simulations/model"
	helper "github.com/JBFaner/DisasterTraining-sub003/internals/helpers"
	helperAuth "github.com/JBFaner/DisasterTraining-sub003/internals/helpers/auth"
)

const (
	entityEvaluation = "evaluation"
	entityResult     = "participant_evaluation"
)

var validate = helper.NewValidator()

type EvaluationController struct {
	DB *gorm.DB
}

func NewEvaluationController(db *gorm.DB) *EvaluationController {
	return &EvaluationController{DB: db}
}

// GET /api/u/evaluations?event_id=&status=
func (ec *EvaluationController) List(c *fiber.Ctx) error {
	q := ec.DB.WithContext(c.UserContext()).Model(&model.EvaluationModel{})
	eventID, err := helper.ParseUUIDQuery(c, "event_id")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if eventID != nil {
		q = q.Where("event_id = ?", *eventID)
	}
	if s := strings.ToLower(strings.TrimSpace(c.Query("status"))); s != "" {
		q = q.Where("status = ?", s)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return helper.DBError(err)
	}
	p := helper.ResolvePaging(c, helper.DefaultPerPage, helper.MaxPerPage)
	var rows []model.EvaluationModel
	if err := q.Order("created_at DESC").Offset(p.Offset).Limit(p.Limit).Find(&rows).Error; err != nil {
		return helper.DBError(err)
	}
	return helper.JsonList(c, "ok", rows, p.Build(total))
}

// GET /api/u/evaluations/:id
func (ec *EvaluationController) Get(c *fiber.Ctx) error {
	ev, err := ec.load(c)
	if err != nil {
		return err
	}
	var stats struct {
		Scored int64
		Passed int64
	}
	if err := ec.DB.WithContext(c.UserContext()).Model(&model.ParticipantEvaluationModel{}).
		Select("COUNT(*) AS scored, COALESCE(SUM(CASE WHEN passed THEN 1 ELSE 0 END), 0) AS passed").
		Where("evaluation_id = ?", ev.ID).
		Scan(&stats).Error; err != nil {
		return helper.DBError(err)
	}
	return helper.JsonOK(c, "ok", fiber.Map{
		"evaluation": ev,
		"scored":     stats.Scored,
		"passed":     stats.Passed,
	})
}

// POST /api/u/evaluations
func (ec *EvaluationController) Create(c *fiber.Ctx) error {
	var req dto.CreateEvaluationRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	req.Normalize()
	if err := helper.Validate(validate, &req); err != nil {
		return err
	}
	ev, err := service.Create(c.UserContext(), ec.DB, req, helperAuth.OptionalUserID(c))
	if err != nil {
		return evalError(err)
	}
	audit.Record(c, ec.DB, audit.Entry{
		Action:      audit.ActionCreate,
		EntityType:  entityEvaluation,
		EntityID:    ev.ID,
		Description: "opened evaluation " + ev.Title,
	})
	return helper.JsonCreated(c, "evaluation created", ev)
}

// PATCH /api/u/evaluations/:id
func (ec *EvaluationController) Update(c *fiber.Ctx) error {
	id, err := helper.ParseUUIDParam(c, "id")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	var req dto.UpdateEvaluationRequest
	if err := helper.BindAndValidate(c, validate, &req); err != nil {
		return err
	}
	if req.Title != nil {
		t := strings.TrimSpace(*req.Title)
		req.Title = &t
	}
	ev, err := service.Update(c.UserContext(), ec.DB, id, req)
	if err != nil {
		return evalError(err)
	}
	changes := map[string]any{}
	if req.PassingScore != nil {
		changes["passing_score"] = *req.PassingScore
	}
	if req.Criteria != nil {
		changes["criteria"] = len(ev.Criteria)
	}
	audit.Record(c, ec.DB, audit.Entry{
		Action:     audit.ActionUpdate,
		EntityType: entityEvaluation,
		EntityID:   ev.ID,
		Changes:    changes,
	})
	return helper.JsonUpdated(c, "evaluation updated", ev)
}

// DELETE /api/u/evaluations/:id removes an unfinalized evaluation and its results.
func (ec *EvaluationController) Delete(c *fiber.Ctx) error {
	ev, err := ec.load(c)
	if err != nil {
		return err
	}
	if ev.IsFinalized() {
		return evalError(service.ErrFinalized)
	}
	err = ec.DB.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
		ids := tx.Model(&model.ParticipantEvaluationModel{}).Select("id").Where("evaluation_id = ?", ev.ID)
		if err := tx.Where("participant_evaluation_id IN (?)", ids).Delete(&model.EvaluationScoreModel{}).Error; err != nil {
			return err
		}
		if err := tx.Where("evaluation_id = ?", ev.ID).Delete(&model.ParticipantEvaluationModel{}).Error; err != nil {
			return err
		}
		return tx.Delete(ev).Error
	})
	if err != nil {
		return helper.DBError(err)
	}
	audit.Record(c, ec.DB, audit.Entry{
		Action:      audit.ActionDelete,
		EntityType:  entityEvaluation,
		EntityID:    ev.ID,
		Description: "deleted evaluation " + ev.Title,
	})
	return helper.JsonDeleted(c, "evaluation deleted", fiber.Map{"id": ev.ID})
}

// POST /api/u/evaluations/:id/scores
func (ec *EvaluationController) SubmitScores(c *fiber.Ctx) error {
	id, err := helper.ParseUUIDParam(c, "id")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	var req dto.SubmitScoresRequest
	if err := helper.BindAndValidate(c, validate, &req); err != nil {
		return err
	}
	pe, err := service.SubmitScores(c.UserContext(), ec.DB, id, req, helperAuth.OptionalUserID(c), time.Now().UTC())
	if err != nil {
		return evalError(err)
	}
	audit.Record(c, ec.DB, audit.Entry{
		Action:     audit.ActionUpdate,
		EntityType: entityResult,
		EntityID:   pe.ID,
		Changes: map[string]any{
			"user_id":    pe.UserID.String(),
			"percentage": pe.Percentage,
			"passed":     pe.Passed,
		},
	})
	return helper.JsonOK(c, "scores saved", pe)
}

// PATCH /api/u/evaluations/:id/finalize
func (ec *EvaluationController) Finalize(c *fiber.Ctx) error {
	id, err := helper.ParseUUIDParam(c, "id")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	ev, err := service.Finalize(c.UserContext(), ec.DB, id, time.Now().UTC())
	if err != nil {
		return evalError(err)
	}
	audit.Record(c, ec.DB, audit.Entry{
		Action:      audit.ActionFinalize,
		EntityType:  entityEvaluation,
		EntityID:    ev.ID,
		Description: "finalized evaluation " + ev.Title,
	})
	return helper.JsonUpdated(c, "evaluation finalized", ev)
}

// GET /api/u/evaluations/:id/participants lists attendees with their result, if any.
func (ec *EvaluationController) Participants(c *fiber.Ctx) error {
	ev, err := ec.load(c)
	if err != nil {
		return err
	}
	rows := []dto.ParticipantRow{}
	if err := ec.DB.WithContext(c.UserContext()).
		Table("attendances AS a").
		Select(`a.user_id, u.full_name, a.status AS attendance_status,
			pe.id AS result_id, pe.percentage, pe.passed`).
		Joins("JOIN users u ON u.id = a.user_id").
		Joins("LEFT JOIN participant_evaluations pe ON pe.user_id = a.user_id AND pe.evaluation_id = ?", ev.ID).
		Where("a.event_id = ? AND a.status IN ?", ev.EventID,
			[]string{simModel.AttendancePresent, simModel.AttendanceLate}).
		Order("u.full_name ASC").
		Scan(&rows).Error; err != nil {
		return helper.DBError(err)
	}
	return helper.JsonOK(c, "ok", rows)
}

// GET /api/u/evaluations/:id/results?passed=
func (ec *EvaluationController) Results(c *fiber.Ctx) error {
	ev, err := ec.load(c)
	if err != nil {
		return err
	}
	q := ec.DB.WithContext(c.UserContext()).
		Table("participant_evaluations AS pe").
		Joins("JOIN users u ON u.id = pe.user_id").
		Where("pe.evaluation_id = ?", ev.ID)
	if passed := helper.ParseBoolQuery(c, "passed"); passed != nil {
		q = q.Where("pe.passed = ?", *passed)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return helper.DBError(err)
	}
	p := helper.ResolvePaging(c, helper.DefaultPerPage, helper.MaxPerPage)
	rows := []dto.ResultResponse{}
	if err := q.Select(`pe.id, pe.user_id, u.user_name, u.full_name, pe.total_score, pe.max_score,
			pe.percentage, pe.passed, pe.remarks, pe.evaluated_at`).
		Order("pe.percentage DESC, u.full_name ASC").
		Offset(p.Offset).Limit(p.Limit).
		Scan(&rows).Error; err != nil {
		return helper.DBError(err)
	}
	return helper.JsonList(c, "ok", rows, p.Build(total))
}

// GET /api/u/evaluations/:id/results/:userId with criterion scores.
func (ec *EvaluationController) Result(c *fiber.Ctx) error {
	ev, err := ec.load(c)
	if err != nil {
		return err
	}
	userID, err := helper.ParseUUIDParam(c, "userId")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	var pe model.ParticipantEvaluationModel
	if err := ec.DB.WithContext(c.UserContext()).
		Preload("Scores", func(db *gorm.DB) *gorm.DB { return db.Order("criterion ASC") }).
		Where("evaluation_id = ? AND user_id = ?", ev.ID, userID).
		Take(&pe).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return evalError(service.ErrResultNotFound)
		}
		return helper.DBError(err)
	}
	return helper.JsonOK(c, "ok", pe)
}

// GET /api/u/evaluation-results/me lists the caller's finalized results.
func (ec *EvaluationController) MyResults(c *fiber.Ctx) error {
	userID, err := helperAuth.GetUserIDFromToken(c)
	if err != nil {
		return err
	}
	rows := []dto.MyResultResponse{}
	if err := ec.DB.WithContext(c.UserContext()).
		Table("participant_evaluations AS pe").
		Select(`pe.evaluation_id, ev.title AS evaluation_title, ev.event_id, e.title AS event_title,
			pe.total_score, pe.max_score, pe.percentage, ev.passing_score, pe.passed, pe.remarks`).
		Joins("JOIN evaluations ev ON ev.id = pe.evaluation_id AND ev.deleted_at IS NULL").
		Joins("JOIN simulation_events e ON e.id = ev.event_id").
		Where("pe.user_id = ? AND ev.status = ?", userID, model.EvaluationFinalized).
		Order("ev.finalized_at DESC").
		Scan(&rows).Error; err != nil {
		return helper.DBError(err)
	}
	return helper.JsonOK(c, "ok", rows)
}

func (ec *EvaluationController) load(c *fiber.Ctx) (*model.EvaluationModel, error) {
	id, err := helper.ParseUUIDParam(c, "id")
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	var ev model.EvaluationModel
	if err := ec.DB.WithContext(c.UserContext()).First(&ev, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, evalError(service.ErrEvaluationNotFound)
		}
		return nil, helper.DBError(err)
	}
	return &ev, nil
}

func evalError(err error) error {
	switch {
	case errors.Is(err, service.ErrEvaluationNotFound), errors.Is(err, service.ErrResultNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrEventNotFound):
		return helper.NewFieldError("event_id", err.Error())
	case errors.Is(err, service.ErrInvalidCriteria):
		return helper.NewFieldError("criteria", err.Error())
	case errors.Is(err, service.ErrNotAttended):
		return helper.NewFieldError("user_id", err.Error())
	case errors.Is(err, service.ErrUnknownCriterion), errors.Is(err, service.ErrScoreOutOfRange),
		errors.Is(err, service.ErrDuplicateCriterion):
		return helper.NewFieldError("scores", err.Error())
	case errors.Is(err, service.ErrEventNotCompleted),
		errors.Is(err, service.ErrEvaluationExists),
		errors.Is(err, service.ErrFinalized),
		errors.Is(err, service.ErrCriteriaLocked):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	}
	return helper.DBError(err)
}
