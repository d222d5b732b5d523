package controller

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	audit "github.com/JBFaner/DisasterTraining-sub003/internals/features/audit/service"
	"github.com/JBFaner/DisasterTraining-sub003/internals/features/simulations/dto"
	"github.com/JBFaner/DisasterTraining-sub003/internals/features/simulations/model"
	"github.com/JBFaner/DisasterTraining-sub003/internals/features/simulations/service"
	helper "github.com/JBFaner/DisasterTraining-sub003/internals/helpers"
	helperAuth "github.com/JBFaner/DisasterTraining-sub003/internals/helpers/auth"
)

// POST /api/u/simulation-events/:id/register
func (sc *SimulationController) Register(c *fiber.Ctx) error {
	userID, err := helperAuth.GetUserIDFromToken(c)
	if err != nil {
		return err
	}
	ev, err := sc.loadEvent(c)
	if err != nil {
		return err
	}
	var req dto.RegisterRequest
	if len(c.Body()) > 0 {
		if err := helper.BindAndValidate(c, validate, &req); err != nil {
			return err
		}
	}

	reg, err := service.Register(c.UserContext(), sc.DB, ev.ID, userID,
		service.RegisterOptions{Notes: req.Notes}, time.Now().UTC())
	if err != nil {
		return simError(err)
	}
	audit.Record(c, sc.DB, audit.Entry{
		Action:      audit.ActionCreate,
		EntityType:  entityRegistration,
		EntityID:    reg.ID,
		Description: "registered for " + ev.Title,
	})
	return helper.JsonCreated(c, "registration submitted", reg)
}

// DELETE /api/u/simulation-events/:id/register
func (sc *SimulationController) CancelRegistration(c *fiber.Ctx) error {
	userID, err := helperAuth.GetUserIDFromToken(c)
	if err != nil {
		return err
	}
	ev, err := sc.loadEvent(c)
	if err != nil {
		return err
	}
	reg, err := service.CancelOwn(c.UserContext(), sc.DB, ev.ID, userID, time.Now().UTC())
	if err != nil {
		return simError(err)
	}
	audit.Record(c, sc.DB, audit.Entry{
		Action:      audit.ActionStatus,
		EntityType:  entityRegistration,
		EntityID:    reg.ID,
		Description: "cancelled registration for " + ev.Title,
	})
	return helper.JsonUpdated(c, "registration cancelled", reg)
}

// GET /api/u/simulation-registrations/me?status=
func (sc *SimulationController) MyRegistrations(c *fiber.Ctx) error {
	userID, err := helperAuth.GetUserIDFromToken(c)
	if err != nil {
		return err
	}
	q := sc.DB.WithContext(c.UserContext()).
		Table("event_registrations AS r").
		Select(`r.id, r.event_id, r.user_id, r.status, r.registered_at, r.notes, r.reviewed_at,
			e.title AS event_title, e.starts_at AS event_starts`).
		Joins("JOIN simulation_events e ON e.id = r.event_id AND e.deleted_at IS NULL").
		Where("r.user_id = ?", userID)
	if s := strings.ToLower(strings.TrimSpace(c.Query("status"))); s != "" {
		q = q.Where("r.status = ?", s)
	}

	var rows []dto.RegistrationResponse
	if err := q.Order("e.starts_at DESC").Scan(&rows).Error; err != nil {
		return helper.DBError(err)
	}
	return helper.JsonOK(c, "ok", rows)
}

var registrationSort = map[string]string{
	"registered_at": "r.registered_at",
	"name":          "u.full_name",
	"status":        "r.status",
}

// GET /api/admin/simulation-events/:id/registrations?status=&q=
func (sc *SimulationController) ListRegistrations(c *fiber.Ctx) error {
	ev, err := sc.loadEvent(c)
	if err != nil {
		return err
	}
	q := sc.DB.WithContext(c.UserContext()).
		Table("event_registrations AS r").
		Joins("JOIN users u ON u.id = r.user_id").
		Where("r.event_id = ?", ev.ID)
	if s := strings.ToLower(strings.TrimSpace(c.Query("status"))); s != "" {
		q = q.Where("r.status = ?", s)
	}
	if s := strings.ToLower(strings.TrimSpace(c.Query("q"))); s != "" {
		like := "%" + s + "%"
		q = q.Where("LOWER(u.full_name) LIKE ? OR LOWER(u.email) LIKE ?", like, like)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return helper.DBError(err)
	}
	p := helper.ResolvePaging(c, helper.DefaultPerPage, helper.MaxPerPage)
	var rows []dto.RegistrationResponse
	if err := q.Select(`r.id, r.event_id, r.user_id, r.status, r.registered_at, r.notes, r.reviewed_at,
			u.user_name, u.full_name, u.email`).
		Order(helper.SafeOrder(c, registrationSort, "registered_at", "asc")).
		Offset(p.Offset).Limit(p.Limit).
		Scan(&rows).Error; err != nil {
		return helper.DBError(err)
	}
	return helper.JsonList(c, "ok", rows, p.Build(total))
}

// POST /api/admin/simulation-events/:id/registrations registers a user as approved.
func (sc *SimulationController) RegisterOnBehalf(c *fiber.Ctx) error {
	ev, err := sc.loadEvent(c)
	if err != nil {
		return err
	}
	var req dto.RegisterOnBehalfRequest
	if err := helper.BindAndValidate(c, validate, &req); err != nil {
		return err
	}
	reg, err := service.Register(c.UserContext(), sc.DB, ev.ID, req.UserID, service.RegisterOptions{
		ByStaff:    true,
		ReviewerID: helperAuth.OptionalUserID(c),
		Notes:      req.Notes,
	}, time.Now().UTC())
	if err != nil {
		return simError(err)
	}
	audit.Record(c, sc.DB, audit.Entry{
		Action:      audit.ActionCreate,
		EntityType:  entityRegistration,
		EntityID:    reg.ID,
		Description: "registered participant for " + ev.Title,
		Changes:     map[string]any{"user_id": req.UserID.String()},
	})
	return helper.JsonCreated(c, "participant registered", reg)
}

// PATCH /api/admin/simulation-registrations/:regId/approve
func (sc *SimulationController) ApproveRegistration(c *fiber.Ctx) error {
	return sc.review(c, true)
}

// PATCH /api/admin/simulation-registrations/:regId/reject
func (sc *SimulationController) RejectRegistration(c *fiber.Ctx) error {
	return sc.review(c, false)
}

func (sc *SimulationController) review(c *fiber.Ctx, approve bool) error {
	id, err := helper.ParseUUIDParam(c, "regId")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	var req dto.ReviewRegistrationRequest
	if len(c.Body()) > 0 {
		if err := helper.BindAndValidate(c, validate, &req); err != nil {
			return err
		}
	}
	reg, err := service.Review(c.UserContext(), sc.DB, id, approve, helperAuth.OptionalUserID(c), req.Notes, time.Now().UTC())
	if err != nil {
		return simError(err)
	}
	audit.Record(c, sc.DB, audit.Entry{
		Action:     audit.ActionStatus,
		EntityType: entityRegistration,
		EntityID:   reg.ID,
		Changes:    map[string]any{"to": reg.Status},
	})
	msg := "registration rejected"
	if reg.Status == model.RegistrationApproved {
		msg = "registration approved"
	}
	return helper.JsonUpdated(c, msg, reg)
}
