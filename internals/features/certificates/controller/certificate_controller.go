package controller

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	audit "github.com/JBFaner/DisasterTraining-sub003/internals/features/audit/service"
	"github.com/JBFaner/DisasterTraining-sub003/internals/features/certificates/dto"
	"github.com/JBFaner/DisasterTraining-sub003/internals/features/certificates/model"
	"github.com/JBFaner/DisasterTraining-sub003/internals/features/certificates/service"
	simModel "github.com/JBFaner/DisasterTraining-sub003/internals/features/simulations/model"
	helper "github.com/JBFaner/DisasterTraining-sub003/internals/helpers"
	helperAuth "github.com/JBFaner/DisasterTraining-sub003/internals/helpers/auth"
	"github.com/JBFaner/DisasterTraining-sub003/internals/helpers/dbtime"
)

// POST /api/admin/certificates
func (cc *CertificateController) Issue(c *fiber.Ctx) error {
	var req dto.IssueRequest
	if err := helper.BindAndValidate(c, validate, &req); err != nil {
		return err
	}
	is, err := service.Issue(c.UserContext(), cc.DB, req.EventID, req.UserID, req.TemplateID,
		helperAuth.OptionalUserID(c), time.Now().UTC())
	if err != nil {
		return certError(err)
	}
	if !is.Created {
		return helper.JsonOK(c, "certificate already issued", is.Certificate)
	}
	service.Notify(is)
	audit.Record(c, cc.DB, audit.Entry{
		Action:      audit.ActionIssue,
		EntityType:  entityCertificate,
		EntityID:    is.Certificate.ID,
		Description: "issued " + is.Certificate.Number + " to " + is.Certificate.RecipientName,
	})
	return helper.JsonCreated(c, "certificate issued", is.Certificate)
}

// POST /api/admin/certificates/bulk
func (cc *CertificateController) BulkIssue(c *fiber.Ctx) error {
	var req dto.BulkIssueRequest
	if err := helper.BindAndValidate(c, validate, &req); err != nil {
		return err
	}
	res, created, err := service.IssueForEvent(c.UserContext(), cc.DB, req.EventID, req.TemplateID,
		helperAuth.OptionalUserID(c), time.Now().UTC())
	if err != nil {
		return certError(err)
	}
	for _, is := range created {
		service.Notify(is)
	}
	audit.Record(c, cc.DB, audit.Entry{
		Action:     audit.ActionIssue,
		EntityType: "simulation_event",
		EntityID:   req.EventID,
		Changes: map[string]any{
			"issued":   len(res.Issued),
			"existing": res.Existing,
			"skipped":  len(res.Skipped),
		},
	})
	return helper.JsonOK(c, "certificates issued", res)
}

// GET /api/admin/certificates?event_id=&user_id=&q=&revoked=
func (cc *CertificateController) List(c *fiber.Ctx) error {
	q := cc.rows(c)
	for _, key := range []string{"event_id", "user_id"} {
		id, err := helper.ParseUUIDQuery(c, key)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if id != nil {
			q = q.Where("c."+key+" = ?", *id)
		}
	}
	if s := strings.TrimSpace(c.Query("q")); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		q = q.Where("LOWER(c.number) LIKE ? OR LOWER(c.recipient_name) LIKE ?", like, like)
	}
	if revoked := helper.ParseBoolQuery(c, "revoked"); revoked != nil {
		if *revoked {
			q = q.Where("c.revoked_at IS NOT NULL")
		} else {
			q = q.Where("c.revoked_at IS NULL")
		}
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return helper.DBError(err)
	}
	p := helper.ResolvePaging(c, helper.DefaultPerPage, helper.MaxPerPage)
	rows := []dto.CertificateRow{}
	if err := q.Select(certificateColumns).
		Order("c.issued_at DESC").
		Offset(p.Offset).Limit(p.Limit).
		Scan(&rows).Error; err != nil {
		return helper.DBError(err)
	}
	return helper.JsonList(c, "ok", rows, p.Build(total))
}

// GET /api/admin/certificates/:id
func (cc *CertificateController) Get(c *fiber.Ctx) error {
	cert, err := cc.load(c, nil)
	if err != nil {
		return err
	}
	return helper.JsonOK(c, "ok", cert)
}

// PATCH /api/admin/certificates/:id/revoke
func (cc *CertificateController) Revoke(c *fiber.Ctx) error {
	id, err := helper.ParseUUIDParam(c, "id")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	var req dto.RevokeRequest
	if err := helper.BindAndValidate(c, validate, &req); err != nil {
		return err
	}
	cert, err := service.Revoke(c.UserContext(), cc.DB, id, req.Reason, time.Now().UTC())
	if err != nil {
		return certError(err)
	}
	audit.Record(c, cc.DB, audit.Entry{
		Action:      audit.ActionRevoke,
		EntityType:  entityCertificate,
		EntityID:    cert.ID,
		Description: "revoked " + cert.Number,
		Changes:     map[string]any{"reason": req.Reason},
	})
	return helper.JsonUpdated(c, "certificate revoked", cert)
}

// GET /api/u/certificates/me
func (cc *CertificateController) MyCertificates(c *fiber.Ctx) error {
	userID, err := helperAuth.GetUserIDFromToken(c)
	if err != nil {
		return err
	}
	rows := []dto.CertificateRow{}
	if err := cc.rows(c).
		Select(certificateColumns).
		Where("c.user_id = ?", userID).
		Order("c.issued_at DESC").
		Scan(&rows).Error; err != nil {
		return helper.DBError(err)
	}
	return helper.JsonOK(c, "ok", rows)
}

// GET /api/u/certificates/me/:id with rendered HTML and background.
func (cc *CertificateController) MyCertificate(c *fiber.Ctx) error {
	userID, err := helperAuth.GetUserIDFromToken(c)
	if err != nil {
		return err
	}
	cert, err := cc.load(c, &userID)
	if err != nil {
		return err
	}
	var background *string
	if cert.TemplateID != nil {
		var tpl model.CertificateTemplateModel
		if err := cc.DB.WithContext(c.UserContext()).Unscoped().
			Select("background_url").First(&tpl, "id = ?", *cert.TemplateID).Error; err == nil {
			background = tpl.BackgroundURL
		}
	}
	return helper.JsonOK(c, "ok", fiber.Map{
		"certificate":    cert,
		"background_url": background,
	})
}

// GET /api/public/certificates/verify?number=&code=
func (cc *CertificateController) Verify(c *fiber.Ctx) error {
	cert, err := service.Verify(c.UserContext(), cc.DB, c.Query("number"), c.Query("code"))
	if err != nil {
		return certError(err)
	}
	var ev simModel.SimulationEventModel
	if err := cc.DB.WithContext(c.UserContext()).Select("id", "title", "starts_at").
		First(&ev, "id = ?", cert.EventID).Error; err != nil {
		return helper.DBError(err)
	}
	return helper.JsonOK(c, "ok", dto.VerifyResponse{
		Valid:         !cert.IsRevoked(),
		Number:        cert.Number,
		RecipientName: cert.RecipientName,
		EventTitle:    ev.Title,
		EventDate:     dbtime.FormatDate(dbtime.ToLocal(ev.StartsAt)),
		IssuedAt:      cert.IssuedAt,
		RevokedAt:     cert.RevokedAt,
		RevokeReason:  cert.RevokeReason,
	})
}

const certificateColumns = `c.id, c.number, c.user_id, c.recipient_name, c.event_id,
	e.title AS event_title, c.issued_at, c.revoked_at`

func (cc *CertificateController) rows(c *fiber.Ctx) *gorm.DB {
	return cc.DB.WithContext(c.UserContext()).
		Table("certificates AS c").
		Joins("JOIN simulation_events e ON e.id = c.event_id")
}

// load finds a certificate by id, restricted to owner when given.
func (cc *CertificateController) load(c *fiber.Ctx, owner *uuid.UUID) (*model.CertificateModel, error) {
	id, err := helper.ParseUUIDParam(c, "id")
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	q := cc.DB.WithContext(c.UserContext()).Where("id = ?", id)
	if owner != nil {
		q = q.Where("user_id = ?", *owner)
	}
	var cert model.CertificateModel
	if err := q.Take(&cert).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, certError(service.ErrCertificateNotFound)
		}
		return nil, helper.DBError(err)
	}
	return &cert, nil
}

func certError(err error) error {
	switch {
	case errors.Is(err, service.ErrCertificateNotFound), errors.Is(err, service.ErrTemplateNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrEventNotFound):
		return helper.NewFieldError("event_id", err.Error())
	case errors.Is(err, service.ErrUserNotFound):
		return helper.NewFieldError("user_id", err.Error())
	case errors.Is(err, service.ErrInvalidTemplate):
		return helper.NewFieldError("body", err.Error())
	case errors.Is(err, service.ErrNotAttended), errors.Is(err, service.ErrNotPassed):
		return fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, service.ErrEventNotCompleted), errors.Is(err, service.ErrAlreadyRevoked),
		errors.Is(err, service.ErrNumbersExhausted):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	}
	return helper.DBError(err)
}
