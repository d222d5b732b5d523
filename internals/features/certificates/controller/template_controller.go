package controller

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	audit "github.com/JBFaner/DisasterTraining-sub003/internals/features/audit/service"
	"github.com/JBFaner/DisasterTraining-sub003/internals/features/certificates/dto"
	"github.com/JBFaner/DisasterTraining-sub003/internals/features/certificates/model"
	"github.com/JBFaner/DisasterTraining-sub003/internals/features/certificates/service"
	helper "github.com/JBFaner/DisasterTraining-sub003/internals/helpers"
	helperAuth "github.com/JBFaner/DisasterTraining-sub003/internals/helpers/auth"
	"github.com/JBFaner/DisasterTraining-sub003/internals/helpers/storage"
)

const (
	entityTemplate    = "certificate_template"
	entityCertificate = "certificate"
)

var validate = helper.NewValidator()

type CertificateController struct {
	DB *gorm.DB
}

func NewCertificateController(db *gorm.DB) *CertificateController {
	return &CertificateController{DB: db}
}

// GET /api/admin/certificate-templates
func (cc *CertificateController) ListTemplates(c *fiber.Ctx) error {
	var rows []model.CertificateTemplateModel
	if err := cc.DB.WithContext(c.UserContext()).
		Order("is_default DESC, name ASC").
		Find(&rows).Error; err != nil {
		return helper.DBError(err)
	}
	return helper.JsonOK(c, "ok", rows)
}

// GET /api/admin/certificate-templates/:id
func (cc *CertificateController) GetTemplate(c *fiber.Ctx) error {
	tpl, err := cc.loadTemplate(c)
	if err != nil {
		return err
	}
	return helper.JsonOK(c, "ok", tpl)
}

// POST /api/admin/certificate-templates
func (cc *CertificateController) CreateTemplate(c *fiber.Ctx) error {
	var req dto.CreateTemplateRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	req.Normalize()
	if err := helper.Validate(validate, &req); err != nil {
		return err
	}
	if err := service.CheckTemplate(req.Body); err != nil {
		return certError(err)
	}

	tpl := model.CertificateTemplateModel{
		Name:      req.Name,
		Title:     req.Title,
		Body:      req.Body,
		IsDefault: req.IsDefault,
		CreatedBy: helperAuth.OptionalUserID(c),
	}
	err := cc.DB.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
		if tpl.IsDefault {
			if err := clearDefault(tx); err != nil {
				return err
			}
		}
		return tx.Create(&tpl).Error
	})
	if err != nil {
		return helper.DBError(err)
	}
	audit.Record(c, cc.DB, audit.Entry{
		Action:      audit.ActionCreate,
		EntityType:  entityTemplate,
		EntityID:    tpl.ID,
		Description: "created certificate template " + tpl.Name,
	})
	return helper.JsonCreated(c, "template created", tpl)
}

// PATCH /api/admin/certificate-templates/:id
func (cc *CertificateController) UpdateTemplate(c *fiber.Ctx) error {
	tpl, err := cc.loadTemplate(c)
	if err != nil {
		return err
	}
	var req dto.UpdateTemplateRequest
	if err := helper.BindAndValidate(c, validate, &req); err != nil {
		return err
	}

	changes := map[string]any{}
	if req.Name != nil {
		changes["name"] = strings.TrimSpace(*req.Name)
	}
	if req.Title != nil {
		changes["title"] = strings.TrimSpace(*req.Title)
	}
	if req.Body != nil {
		body := strings.TrimSpace(*req.Body)
		if body == "" {
			return helper.NewFieldError("body", "is required")
		}
		if err := service.CheckTemplate(body); err != nil {
			return certError(err)
		}
		changes["body"] = body
	}
	if req.IsDefault != nil {
		changes["is_default"] = *req.IsDefault
	}
	if len(changes) == 0 {
		return helper.JsonOK(c, "nothing to update", tpl)
	}

	err = cc.DB.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
		if req.IsDefault != nil && *req.IsDefault {
			if err := clearDefault(tx); err != nil {
				return err
			}
		}
		if err := tx.Model(tpl).Updates(changes).Error; err != nil {
			return err
		}
		return tx.First(tpl, "id = ?", tpl.ID).Error
	})
	if err != nil {
		return helper.DBError(err)
	}
	delete(changes, "body")
	audit.Record(c, cc.DB, audit.Entry{
		Action:     audit.ActionUpdate,
		EntityType: entityTemplate,
		EntityID:   tpl.ID,
		Changes:    changes,
	})
	return helper.JsonUpdated(c, "template updated", tpl)
}

// DELETE /api/admin/certificate-templates/:id
// Issued certificates keep their rendered HTML.
func (cc *CertificateController) DeleteTemplate(c *fiber.Ctx) error {
	tpl, err := cc.loadTemplate(c)
	if err != nil {
		return err
	}
	if err := cc.DB.WithContext(c.UserContext()).Delete(tpl).Error; err != nil {
		return helper.DBError(err)
	}
	audit.Record(c, cc.DB, audit.Entry{
		Action:      audit.ActionDelete,
		EntityType:  entityTemplate,
		EntityID:    tpl.ID,
		Description: "deleted certificate template " + tpl.Name,
	})
	return helper.JsonDeleted(c, "template deleted", fiber.Map{"id": tpl.ID})
}

// POST /api/admin/certificate-templates/:id/background (multipart: file)
// The image is downscaled and stored as webp.
func (cc *CertificateController) UploadBackground(c *fiber.Ctx) error {
	tpl, err := cc.loadTemplate(c)
	if err != nil {
		return err
	}
	fh, err := c.FormFile("file")
	if err != nil {
		return helper.NewFieldError("file", "is required")
	}

	ctx := c.UserContext()
	st := storage.Default()
	obj, err := storage.UploadImageAsWebP(ctx, st, "certificate-templates/"+tpl.ID.String(), fh, storage.CertificateBackgroundOptions)
	if err != nil {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return fe
		}
		zap.L().Error("background upload failed", zap.String("template_id", tpl.ID.String()), zap.Error(err))
		return fiber.NewError(fiber.StatusBadGateway, "failed to store file")
	}

	oldKey := tpl.BackgroundKey
	if err := cc.DB.WithContext(ctx).Model(tpl).Updates(map[string]any{
		"background_url": obj.URL,
		"background_key": obj.Key,
	}).Error; err != nil {
		if delErr := st.Delete(ctx, obj.Key); delErr != nil {
			zap.L().Warn("orphaned upload", zap.String("key", obj.Key), zap.Error(delErr))
		}
		return helper.DBError(err)
	}
	if oldKey != nil && *oldKey != obj.Key {
		if err := st.Delete(ctx, *oldKey); err != nil {
			zap.L().Warn("old background not removed", zap.String("key", *oldKey), zap.Error(err))
		}
	}
	tpl.BackgroundURL, tpl.BackgroundKey = &obj.URL, &obj.Key

	audit.Record(c, cc.DB, audit.Entry{
		Action:     audit.ActionUpload,
		EntityType: entityTemplate,
		EntityID:   tpl.ID,
		Changes:    map[string]any{"size": obj.Size},
	})
	return helper.JsonUpdated(c, "background uploaded", tpl)
}

// GET /api/admin/certificate-templates/:id/preview renders sample data.
func (cc *CertificateController) PreviewTemplate(c *fiber.Ctx) error {
	tpl, err := cc.loadTemplate(c)
	if err != nil {
		return err
	}
	html, err := service.Render(tpl.Body, service.SampleData)
	if err != nil {
		return certError(err)
	}
	return helper.JsonOK(c, "ok", fiber.Map{
		"title":          tpl.Title,
		"html":           html,
		"background_url": tpl.BackgroundURL,
	})
}

func (cc *CertificateController) loadTemplate(c *fiber.Ctx) (*model.CertificateTemplateModel, error) {
	id, err := helper.ParseUUIDParam(c, "id")
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	var tpl model.CertificateTemplateModel
	if err := cc.DB.WithContext(c.UserContext()).First(&tpl, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, certError(service.ErrTemplateNotFound)
		}
		return nil, helper.DBError(err)
	}
	return &tpl, nil
}

func clearDefault(tx *gorm.DB) error {
	return tx.Model(&model.CertificateTemplateModel{}).
		Where("is_default = ?", true).
		Update("is_default", false).Error
}
