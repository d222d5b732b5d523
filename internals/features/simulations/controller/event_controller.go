package controller

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	audit "github.com/JBFaner/DisasterTraining-sub003/internals/features/audit/service"
	barangayModel "github.com/JBFaner/DisasterTraining-sub003/internals/features/barangays/model"
	scenarioModel "github.com/JBFaner/DisasterTraining-sub003/internals/features/scenarios/model"
	"github.com/JBFaner/DisasterTraining-sub003/internals/features/simulations/dto"
	"github.com/JBFaner/DisasterTraining-sub003/internals/features/simulations/model"
	"github.com/JBFaner/DisasterTraining-sub003/internals/features/simulations/service"
	trainingModel "github.com/JBFaner/DisasterTraining-sub003/internals/features/trainings/model"
	helper "github.com/JBFaner/DisasterTraining-sub003/internals/helpers"
	helperAuth "github.com/JBFaner/DisasterTraining-sub003/internals/helpers/auth"
	"github.com/JBFaner/DisasterTraining-sub003/internals/helpers/dbtypes"
)

const (
	entityEvent        = "simulation_event"
	entityRegistration = "event_registration"
	entityAttendance   = "attendance"
)

var validate = helper.NewValidator()

type SimulationController struct {
	DB *gorm.DB
}

func NewSimulationController(db *gorm.DB) *SimulationController {
	return &SimulationController{DB: db}
}

var eventSort = map[string]string{
	"starts_at":  "starts_at",
	"created_at": "created_at",
	"title":      "title",
	"status":     "status",
}

// GET /simulation-events?status=&q=&from=&to=&scenario_id=&barangay_id=&upcoming=
// Drafts are hidden from non-staff callers.
func (sc *SimulationController) ListEvents(c *fiber.Ctx) error {
	q := sc.DB.WithContext(c.UserContext()).Model(&model.SimulationEventModel{})

	if !helperAuth.IsStaff(c) {
		q = q.Where("status <> ?", model.EventDraft)
	}
	if s := strings.ToLower(strings.TrimSpace(c.Query("status"))); s != "" {
		q = q.Where("status IN ?", strings.Split(s, ","))
	}
	if s := strings.ToLower(strings.TrimSpace(c.Query("q"))); s != "" {
		like := "%" + s + "%"
		q = q.Where("LOWER(title) LIKE ? OR LOWER(location) LIKE ?", like, like)
	}
	from, err := helper.ParseDateQuery(c, "from")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	to, err := helper.ParseDateQuery(c, "to")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if from != nil {
		q = q.Where("starts_at >= ?", *from)
	}
	if to != nil {
		// a bare date includes the whole day
		end := *to
		if end.Equal(end.Truncate(24 * time.Hour)) {
			end = end.Add(24 * time.Hour)
		}
		q = q.Where("starts_at < ?", end)
	}
	for _, key := range []string{"scenario_id", "barangay_id", "training_module_id"} {
		id, err := helper.ParseUUIDQuery(c, key)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if id != nil {
			q = q.Where(key+" = ?", *id)
		}
	}
	if up := helper.ParseBoolQuery(c, "upcoming"); up != nil && *up {
		q = q.Where("starts_at >= ?", time.Now().UTC())
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return helper.DBError(err)
	}
	p := helper.ResolvePaging(c, helper.DefaultPerPage, helper.MaxPerPage)
	var rows []model.SimulationEventModel
	if err := q.Order(helper.SafeOrder(c, eventSort, "starts_at", "asc")).
		Offset(p.Offset).Limit(p.Limit).Find(&rows).Error; err != nil {
		return helper.DBError(err)
	}

	counts, err := sc.registeredCounts(c, rows)
	if err != nil {
		return helper.DBError(err)
	}
	out := make([]dto.EventResponse, 0, len(rows))
	for i := range rows {
		out = append(out, dto.ToEventResponse(&rows[i], counts[rows[i].ID]))
	}
	return helper.JsonList(c, "ok", out, p.Build(total))
}

// GET /simulation-events/:id
func (sc *SimulationController) GetEvent(c *fiber.Ctx) error {
	ev, err := sc.loadEvent(c)
	if err != nil {
		return err
	}
	return helper.JsonOK(c, "ok", sc.eventResponse(c, ev))
}

// POST /api/admin/simulation-events
func (sc *SimulationController) CreateEvent(c *fiber.Ctx) error {
	var req dto.CreateEventRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	req.Normalize()
	if err := helper.Validate(validate, &req); err != nil {
		return err
	}
	if err := dto.CheckWindow(req.StartsAt, req.EndsAt, req.RegistrationDeadline); err != nil {
		return err
	}
	if err := sc.checkRefs(c, &req.ScenarioID, req.TrainingModuleID, req.BarangayID); err != nil {
		return err
	}

	ev := model.SimulationEventModel{
		Title:                req.Title,
		Description:          req.Description,
		ScenarioID:           req.ScenarioID,
		TrainingModuleID:     req.TrainingModuleID,
		BarangayID:           req.BarangayID,
		Location:             req.Location,
		StartsAt:             req.StartsAt,
		EndsAt:               req.EndsAt,
		Capacity:             req.Capacity,
		RegistrationDeadline: req.RegistrationDeadline,
		Status:               model.EventDraft,
		TargetRoles:          dbtypes.StringList(req.TargetRoles),
		CreatedBy:            helperAuth.OptionalUserID(c),
	}
	if err := sc.DB.WithContext(c.UserContext()).Create(&ev).Error; err != nil {
		return helper.DBError(err)
	}

	audit.Record(c, sc.DB, audit.Entry{
		Action:      audit.ActionCreate,
		EntityType:  entityEvent,
		EntityID:    ev.ID,
		Description: "scheduled " + ev.Title,
	})
	return helper.JsonCreated(c, "simulation event created", dto.ToEventResponse(&ev, 0))
}

// PATCH /api/admin/simulation-events/:id
func (sc *SimulationController) UpdateEvent(c *fiber.Ctx) error {
	ev, err := sc.loadEvent(c)
	if err != nil {
		return err
	}
	if ev.Status == model.EventCompleted || ev.Status == model.EventCancelled {
		return fiber.NewError(fiber.StatusConflict, service.ErrEventLocked.Error())
	}
	var req dto.UpdateEventRequest
	if err := helper.BindAndValidate(c, validate, &req); err != nil {
		return err
	}

	start, end, deadline := ev.StartsAt, ev.EndsAt, ev.RegistrationDeadline
	if req.StartsAt != nil {
		start = req.StartsAt.UTC()
	}
	if req.EndsAt != nil {
		end = req.EndsAt.UTC()
	}
	switch {
	case req.ClearDeadline:
		deadline = nil
	case req.RegistrationDeadline != nil:
		d := req.RegistrationDeadline.UTC()
		deadline = &d
	}
	if err := dto.CheckWindow(start, end, deadline); err != nil {
		return err
	}
	if err := sc.checkRefs(c, req.ScenarioID, req.TrainingModuleID, req.BarangayID); err != nil {
		return err
	}

	changes := map[string]any{}
	if req.Title != nil {
		changes["title"] = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		changes["description"] = *req.Description
	}
	if req.ScenarioID != nil {
		changes["scenario_id"] = *req.ScenarioID
	}
	if req.TrainingModuleID != nil {
		changes["training_module_id"] = *req.TrainingModuleID
	}
	if req.BarangayID != nil {
		changes["barangay_id"] = *req.BarangayID
	}
	if req.Location != nil {
		changes["location"] = strings.TrimSpace(*req.Location)
	}
	if req.StartsAt != nil {
		changes["starts_at"] = start
	}
	if req.EndsAt != nil {
		changes["ends_at"] = end
	}
	if req.ClearDeadline || req.RegistrationDeadline != nil {
		changes["registration_deadline"] = deadline
	}
	if req.TargetRoles != nil {
		changes["target_roles"] = dbtypes.StringList(dto.NormalizeRoles(*req.TargetRoles))
	}
	if req.Capacity != nil {
		if *req.Capacity > 0 {
			n, err := service.ActiveCount(sc.DB.WithContext(c.UserContext()), ev.ID, nil)
			if err != nil {
				return helper.DBError(err)
			}
			if int64(*req.Capacity) < n {
				return helper.NewFieldError("capacity", "capacity is below the current number of registrations")
			}
		}
		changes["capacity"] = *req.Capacity
	}
	if len(changes) == 0 {
		return helper.JsonOK(c, "nothing to update", sc.eventResponse(c, ev))
	}

	db := sc.DB.WithContext(c.UserContext())
	if err := db.Model(ev).Updates(changes).Error; err != nil {
		return helper.DBError(err)
	}
	if err := db.First(ev, "id = ?", ev.ID).Error; err != nil {
		return helper.DBError(err)
	}

	delete(changes, "description")
	audit.Record(c, sc.DB, audit.Entry{
		Action:     audit.ActionUpdate,
		EntityType: entityEvent,
		EntityID:   ev.ID,
		Changes:    changes,
	})
	return helper.JsonUpdated(c, "simulation event updated", sc.eventResponse(c, ev))
}

// DELETE /api/admin/simulation-events/:id is limited to drafts and cancelled events.
func (sc *SimulationController) DeleteEvent(c *fiber.Ctx) error {
	ev, err := sc.loadEvent(c)
	if err != nil {
		return err
	}
	if ev.Status != model.EventDraft && ev.Status != model.EventCancelled {
		return fiber.NewError(fiber.StatusConflict, "only draft or cancelled events can be deleted")
	}
	if err := sc.DB.WithContext(c.UserContext()).Delete(ev).Error; err != nil {
		return helper.DBError(err)
	}
	audit.Record(c, sc.DB, audit.Entry{
		Action:      audit.ActionDelete,
		EntityType:  entityEvent,
		EntityID:    ev.ID,
		Description: "deleted " + ev.Title,
	})
	return helper.JsonDeleted(c, "simulation event deleted", fiber.Map{"id": ev.ID})
}

// PATCH /api/admin/simulation-events/:id/publish
func (sc *SimulationController) PublishEvent(c *fiber.Ctx) error {
	return sc.transition(c, model.EventPublished, "")
}

// PATCH /api/admin/simulation-events/:id/start
func (sc *SimulationController) StartEvent(c *fiber.Ctx) error {
	return sc.transition(c, model.EventOngoing, "")
}

// PATCH /api/admin/simulation-events/:id/complete
func (sc *SimulationController) CompleteEvent(c *fiber.Ctx) error {
	return sc.transition(c, model.EventCompleted, "")
}

// PATCH /api/admin/simulation-events/:id/cancel notifies pending and approved registrants.
func (sc *SimulationController) CancelEvent(c *fiber.Ctx) error {
	var req dto.CancelEventRequest
	if len(c.Body()) > 0 {
		if err := helper.BindAndValidate(c, validate, &req); err != nil {
			return err
		}
	}
	return sc.transition(c, model.EventCancelled, strings.TrimSpace(req.Reason))
}

func (sc *SimulationController) transition(c *fiber.Ctx, to, reason string) error {
	ev, err := sc.loadEvent(c)
	if err != nil {
		return err
	}
	from := ev.Status
	if err := service.Transition(c.UserContext(), sc.DB, ev, to, reason, time.Now().UTC()); err != nil {
		return simError(err)
	}

	changes := map[string]any{"from": from, "to": to}
	if to == model.EventCancelled {
		changes["notified"] = service.NotifyCancelled(c.UserContext(), sc.DB, ev)
		if reason != "" {
			changes["reason"] = reason
		}
	}
	audit.Record(c, sc.DB, audit.Entry{
		Action:     audit.ActionStatus,
		EntityType: entityEvent,
		EntityID:   ev.ID,
		Changes:    changes,
	})
	return helper.JsonUpdated(c, "simulation event "+to, sc.eventResponse(c, ev))
}

/* ===============================
   helpers
=================================*/

// loadEvent reads :id; drafts are hidden from non-staff.
func (sc *SimulationController) loadEvent(c *fiber.Ctx) (*model.SimulationEventModel, error) {
	id, err := helper.ParseUUIDParam(c, "id")
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	q := sc.DB.WithContext(c.UserContext()).Where("id = ?", id)
	if !helperAuth.IsStaff(c) {
		q = q.Where("status <> ?", model.EventDraft)
	}
	var ev model.SimulationEventModel
	if err := q.Take(&ev).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fiber.NewError(fiber.StatusNotFound, service.ErrEventNotFound.Error())
		}
		return nil, helper.DBError(err)
	}
	return &ev, nil
}

func (sc *SimulationController) registeredCounts(c *fiber.Ctx, rows []model.SimulationEventModel) (map[uuid.UUID]int64, error) {
	out := map[uuid.UUID]int64{}
	if len(rows) == 0 {
		return out, nil
	}
	ids := make([]uuid.UUID, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.ID)
	}
	var counts []struct {
		EventID uuid.UUID
		N       int64
	}
	if err := sc.DB.WithContext(c.UserContext()).Model(&model.EventRegistrationModel{}).
		Select("event_id, COUNT(*) AS n").
		Where("event_id IN ? AND status IN ?", ids, model.ActiveRegistrationStatuses).
		Group("event_id").
		Scan(&counts).Error; err != nil {
		return nil, err
	}
	for _, r := range counts {
		out[r.EventID] = r.N
	}
	return out, nil
}

func (sc *SimulationController) eventResponse(c *fiber.Ctx, ev *model.SimulationEventModel) dto.EventResponse {
	n, err := service.ActiveCount(sc.DB.WithContext(c.UserContext()), ev.ID, nil)
	if err != nil {
		n = 0
	}
	return dto.ToEventResponse(ev, n)
}

// checkRefs validates optional foreign keys; archived scenarios are refused.
func (sc *SimulationController) checkRefs(c *fiber.Ctx, scenarioID, moduleID, barangayID *uuid.UUID) error {
	db := sc.DB.WithContext(c.UserContext())
	if scenarioID != nil {
		var s scenarioModel.ScenarioModel
		if err := db.Select("id", "status").First(&s, "id = ?", *scenarioID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return helper.NewFieldError("scenario_id", "scenario not found")
			}
			return helper.DBError(err)
		}
		if s.Status == scenarioModel.StatusArchived {
			return helper.NewFieldError("scenario_id", "scenario is archived")
		}
	}
	if moduleID != nil {
		var n int64
		if err := db.Model(&trainingModel.TrainingModuleModel{}).Where("id = ?", *moduleID).Count(&n).Error; err != nil {
			return helper.DBError(err)
		}
		if n == 0 {
			return helper.NewFieldError("training_module_id", "training module not found")
		}
	}
	if barangayID != nil {
		var n int64
		if err := db.Model(&barangayModel.BarangayProfileModel{}).Where("id = ?", *barangayID).Count(&n).Error; err != nil {
			return helper.DBError(err)
		}
		if n == 0 {
			return helper.NewFieldError("barangay_id", "barangay not found")
		}
	}
	return nil
}

// simError maps service errors to HTTP errors.
func simError(err error) error {
	switch {
	case errors.Is(err, service.ErrEventNotFound), errors.Is(err, service.ErrRegistrationNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrUserNotFound):
		return helper.NewFieldError("user_id", err.Error())
	case errors.Is(err, service.ErrRoleNotTargeted):
		return fiber.NewError(fiber.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrNotApproved):
		return fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, service.ErrScenarioNotPublished),
		errors.Is(err, service.ErrEventLocked),
		errors.Is(err, service.ErrRegistrationClosed),
		errors.Is(err, service.ErrEventFull),
		errors.Is(err, service.ErrAlreadyRegistered),
		errors.Is(err, service.ErrRegistrationRejected),
		errors.Is(err, service.ErrRegistrationLocked),
		errors.Is(err, service.ErrInvalidReview),
		errors.Is(err, service.ErrEventNotOngoing),
		errors.Is(err, service.ErrAttendanceClosed),
		errors.Is(err, service.ErrAlreadyCheckedIn),
		errors.Is(err, service.ErrNotCheckedIn),
		errors.Is(err, service.ErrAlreadyCheckedOut):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	}
	return helper.DBError(err)
}
