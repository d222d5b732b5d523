package controller

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	audit "github.com/JBFaner/DisasterTraining-sub003/internals/features/audit/service"
	"github.com/JBFaner/DisasterTraining-sub003/internals/features/simulations/dto"
	"github.com/JBFaner/DisasterTraining-sub003/internals/features/simulations/model"
	"github.com/JBFaner/DisasterTraining-sub003/internals/features/simulations/service"
	helper "github.com/JBFaner/DisasterTraining-sub003/internals/helpers"
	helperAuth "github.com/JBFaner/DisasterTraining-sub003/internals/helpers/auth"
)

// POST /api/u/simulation-events/:id/check-in
func (sc *SimulationController) SelfCheckIn(c *fiber.Ctx) error {
	userID, err := helperAuth.GetUserIDFromToken(c)
	if err != nil {
		return err
	}
	return sc.checkIn(c, userID, nil)
}

// POST /api/u/simulation-events/:id/check-out
func (sc *SimulationController) SelfCheckOut(c *fiber.Ctx) error {
	userID, err := helperAuth.GetUserIDFromToken(c)
	if err != nil {
		return err
	}
	return sc.checkOut(c, userID)
}

// POST /api/admin/simulation-events/:id/attendance/check-in
func (sc *SimulationController) CheckInParticipant(c *fiber.Ctx) error {
	var req dto.AttendeeRequest
	if err := helper.BindAndValidate(c, validate, &req); err != nil {
		return err
	}
	return sc.checkIn(c, req.UserID, req.Remarks)
}

// POST /api/admin/simulation-events/:id/attendance/check-out
func (sc *SimulationController) CheckOutParticipant(c *fiber.Ctx) error {
	var req dto.AttendeeRequest
	if err := helper.BindAndValidate(c, validate, &req); err != nil {
		return err
	}
	return sc.checkOut(c, req.UserID)
}

func (sc *SimulationController) checkIn(c *fiber.Ctx, userID uuid.UUID, remarks *string) error {
	ev, err := sc.loadEvent(c)
	if err != nil {
		return err
	}
	a, err := service.CheckIn(c.UserContext(), sc.DB, ev, userID, helperAuth.OptionalUserID(c), remarks, time.Now().UTC())
	if err != nil {
		return simError(err)
	}
	audit.Record(c, sc.DB, audit.Entry{
		Action:     audit.ActionCreate,
		EntityType: entityAttendance,
		EntityID:   a.ID,
		Changes:    map[string]any{"status": a.Status, "user_id": userID.String()},
	})
	return helper.JsonCreated(c, "checked in as "+a.Status, a)
}

func (sc *SimulationController) checkOut(c *fiber.Ctx, userID uuid.UUID) error {
	ev, err := sc.loadEvent(c)
	if err != nil {
		return err
	}
	a, err := service.CheckOut(c.UserContext(), sc.DB, ev, userID, time.Now().UTC())
	if err != nil {
		return simError(err)
	}
	return helper.JsonUpdated(c, "checked out", a)
}

// POST /api/admin/simulation-events/:id/attendance/bulk
func (sc *SimulationController) BulkMarkAttendance(c *fiber.Ctx) error {
	ev, err := sc.loadEvent(c)
	if err != nil {
		return err
	}
	var req dto.BulkAttendanceRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	for i := range req.Records {
		req.Records[i].Status = strings.ToLower(strings.TrimSpace(req.Records[i].Status))
	}
	if err := helper.Validate(validate, &req); err != nil {
		return err
	}

	n, err := service.BulkMark(c.UserContext(), sc.DB, ev, req.Records, helperAuth.OptionalUserID(c), time.Now().UTC())
	if err != nil {
		return simError(err)
	}
	audit.Record(c, sc.DB, audit.Entry{
		Action:      audit.ActionUpdate,
		EntityType:  entityAttendance,
		EntityID:    ev.ID,
		Description: "bulk attendance for " + ev.Title,
		Changes:     map[string]any{"records": n},
	})
	summary, err := service.Summary(c.UserContext(), sc.DB, ev.ID)
	if err != nil {
		return helper.DBError(err)
	}
	return helper.JsonUpdated(c, "attendance recorded", fiber.Map{"updated": n, "summary": summary})
}

// GET /api/admin/simulation-events/:id/attendance?status=
func (sc *SimulationController) ListAttendance(c *fiber.Ctx) error {
	ev, err := sc.loadEvent(c)
	if err != nil {
		return err
	}
	q := sc.DB.WithContext(c.UserContext()).
		Table("attendances AS a").
		Select("a.id, a.user_id, u.full_name, a.status, a.checked_in_at, a.checked_out_at, a.remarks").
		Joins("JOIN users u ON u.id = a.user_id").
		Where("a.event_id = ?", ev.ID)
	if s := strings.ToLower(strings.TrimSpace(c.Query("status"))); s != "" {
		q = q.Where("a.status = ?", s)
	}
	var rows []dto.AttendanceResponse
	if err := q.Order("u.full_name ASC").Scan(&rows).Error; err != nil {
		return helper.DBError(err)
	}
	return helper.JsonOK(c, "ok", rows)
}

// GET /api/admin/simulation-events/:id/attendance/summary
func (sc *SimulationController) AttendanceSummary(c *fiber.Ctx) error {
	ev, err := sc.loadEvent(c)
	if err != nil {
		return err
	}
	out, err := service.Summary(c.UserContext(), sc.DB, ev.ID)
	if err != nil {
		return helper.DBError(err)
	}
	return helper.JsonOK(c, "ok", out)
}

// GET /api/u/simulation-events/:id/attendance/me
func (sc *SimulationController) MyAttendance(c *fiber.Ctx) error {
	userID, err := helperAuth.GetUserIDFromToken(c)
	if err != nil {
		return err
	}
	ev, err := sc.loadEvent(c)
	if err != nil {
		return err
	}
	var a model.AttendanceModel
	if err := sc.DB.WithContext(c.UserContext()).
		Where("event_id = ? AND user_id = ?", ev.ID, userID).
		Limit(1).Find(&a).Error; err != nil {
		return helper.DBError(err)
	}
	if a.ID == uuid.Nil {
		return fiber.NewError(fiber.StatusNotFound, "no attendance recorded")
	}
	return helper.JsonOK(c, "ok", a)
}
