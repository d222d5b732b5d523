package controller

import (
	"errors"
	"io"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	audit "github.com/JBFaner/DisasterTraining-sub003/internals/features/audit/service"
	barangayModel "github.com/JBFaner/DisasterTraining-sub003/internals/features/barangays/model"
	authHelper "github.com/JBFaner/DisasterTraining-sub003/internals/features/users/auth/helper"
	"github.com/JBFaner/DisasterTraining-sub003/internals/features/users/users/dto"
	"github.com/JBFaner/DisasterTraining-sub003/internals/features/users/users/model"
	helper "github.com/JBFaner/DisasterTraining-sub003/internals/helpers"
	helperAuth "github.com/JBFaner/DisasterTraining-sub003/internals/helpers/auth"
)

const (
	entityUser     = "user"
	maxKeyFileSize = 1 << 20
)

var validate = helper.NewValidator()

type UserController struct {
	DB *gorm.DB
}

func NewUserController(db *gorm.DB) *UserController {
	return &UserController{DB: db}
}

var userSortColumns = map[string]string{
	"created_at": "created_at",
	"user_name":  "user_name",
	"full_name":  "full_name",
	"last_login": "last_login_at",
}

// GET /api/admin/users?q=&role=&is_active=&barangay_id=
func (uc *UserController) List(c *fiber.Ctx) error {
	q := uc.DB.WithContext(c.UserContext()).Model(&model.UserModel{})

	if s := strings.ToLower(strings.TrimSpace(c.Query("q"))); s != "" {
		like := "%" + s + "%"
		q = q.Where("LOWER(user_name) LIKE ? OR LOWER(email) LIKE ? OR LOWER(full_name) LIKE ?", like, like, like)
	}
	if r := strings.ToLower(strings.TrimSpace(c.Query("role"))); r != "" {
		q = q.Where("role = ?", r)
	}
	if active := helper.ParseBoolQuery(c, "is_active"); active != nil {
		q = q.Where("is_active = ?", *active)
	}
	barangayID, err := helper.ParseUUIDQuery(c, "barangay_id")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if barangayID != nil {
		q = q.Where("barangay_id = ?", *barangayID)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return helper.DBError(err)
	}

	p := helper.ResolvePaging(c, helper.DefaultPerPage, helper.MaxPerPage)
	var rows []model.UserModel
	if err := q.Order(helper.SafeOrder(c, userSortColumns, "created_at", "desc")).
		Offset(p.Offset).Limit(p.Limit).Find(&rows).Error; err != nil {
		return helper.DBError(err)
	}
	return helper.JsonList(c, "ok", dto.ToUserResponses(rows), p.Build(total))
}

// GET /api/admin/users/:id
func (uc *UserController) Get(c *fiber.Ctx) error {
	u, err := uc.load(c)
	if err != nil {
		return err
	}
	return helper.JsonOK(c, "ok", dto.ToUserResponse(u))
}

// POST /api/admin/users
func (uc *UserController) Create(c *fiber.Ctx) error {
	var req dto.CreateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	req.Normalize()
	if err := helper.Validate(validate, &req); err != nil {
		return err
	}

	db := uc.DB.WithContext(c.UserContext())
	if err := uc.ensureUnique(db, uuid.Nil, &req.UserName, &req.Email); err != nil {
		return err
	}
	barangayID, err := resolveBarangay(db, req.BarangayID)
	if err != nil {
		return err
	}

	hash, err := authHelper.HashPassword(req.Password)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to hash password")
	}
	now := time.Now().UTC()
	u := model.UserModel{
		UserName:        req.UserName,
		Email:           req.Email,
		Password:        hash,
		FullName:        req.FullName,
		Phone:           req.Phone,
		Role:            req.Role,
		BarangayID:      barangayID,
		IsActive:        true,
		EmailVerifiedAt: &now,
	}
	if err := db.Create(&u).Error; err != nil {
		return helper.DBError(err)
	}

	audit.Record(c, uc.DB, audit.Entry{
		Action:      audit.ActionCreate,
		EntityType:  entityUser,
		EntityID:    u.ID,
		Description: "created " + u.Role + " " + u.UserName,
	})
	return helper.JsonCreated(c, "user created", dto.ToUserResponse(&u))
}

// PATCH /api/admin/users/:id
func (uc *UserController) Update(c *fiber.Ctx) error {
	u, err := uc.load(c)
	if err != nil {
		return err
	}

	var req dto.UpdateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	req.Normalize()
	if err := helper.Validate(validate, &req); err != nil {
		return err
	}

	db := uc.DB.WithContext(c.UserContext())
	if err := uc.ensureUnique(db, u.ID, req.UserName, req.Email); err != nil {
		return err
	}

	updates := map[string]any{}
	if req.UserName != nil && *req.UserName != u.UserName {
		updates["user_name"] = *req.UserName
	}
	if req.Email != nil && *req.Email != u.Email {
		updates["email"] = *req.Email
	}
	if req.FullName != nil {
		updates["full_name"] = *req.FullName
	}
	if req.Phone != nil {
		updates["phone"] = nullable(*req.Phone)
	}
	if req.Role != nil && *req.Role != u.Role {
		if self, _ := helperAuth.GetUserIDFromToken(c); self == u.ID {
			return fiber.NewError(fiber.StatusBadRequest, "you cannot change your own role")
		}
		updates["role"] = *req.Role
	}
	if req.BarangayID != nil {
		id, err := resolveBarangay(db, req.BarangayID)
		if err != nil {
			return err
		}
		updates["barangay_id"] = id
	}
	if len(updates) == 0 {
		return helper.JsonOK(c, "nothing to update", dto.ToUserResponse(u))
	}

	if err := db.Model(u).Updates(updates).Error; err != nil {
		return helper.DBError(err)
	}
	if err := db.First(u, "id = ?", u.ID).Error; err != nil {
		return helper.DBError(err)
	}

	audit.Record(c, uc.DB, audit.Entry{
		Action:     audit.ActionUpdate,
		EntityType: entityUser,
		EntityID:   u.ID,
		Changes:    updates,
	})
	return helper.JsonUpdated(c, "user updated", dto.ToUserResponse(u))
}

// PATCH /api/admin/users/:id/activate
func (uc *UserController) Activate(c *fiber.Ctx) error { return uc.setActive(c, true) }

// PATCH /api/admin/users/:id/deactivate
func (uc *UserController) Deactivate(c *fiber.Ctx) error { return uc.setActive(c, false) }

func (uc *UserController) setActive(c *fiber.Ctx, active bool) error {
	u, err := uc.load(c)
	if err != nil {
		return err
	}
	if self, _ := helperAuth.GetUserIDFromToken(c); self == u.ID && !active {
		return fiber.NewError(fiber.StatusBadRequest, "you cannot deactivate your own account")
	}
	if u.IsActive == active {
		return helper.JsonOK(c, "no change", dto.ToUserResponse(u))
	}

	ctx := c.UserContext()
	if err := uc.DB.WithContext(ctx).Model(u).Update("is_active", active).Error; err != nil {
		return helper.DBError(err)
	}
	u.IsActive = active
	if !active {
		if err := helperAuth.RevokeUserSessions(ctx, uc.DB, u.ID, helperAuth.RevokeReasonDeactivated, time.Now().UTC()); err != nil {
			zap.L().Warn("revoke sessions failed", zap.String("user_id", u.ID.String()), zap.Error(err))
		}
	}

	audit.Record(c, uc.DB, audit.Entry{
		Action:     audit.ActionStatus,
		EntityType: entityUser,
		EntityID:   u.ID,
		Changes:    map[string]any{"is_active": active},
	})
	msg := "user deactivated"
	if active {
		msg = "user activated"
	}
	return helper.JsonUpdated(c, msg, dto.ToUserResponse(u))
}

// DELETE /api/admin/users/:id
func (uc *UserController) Delete(c *fiber.Ctx) error {
	u, err := uc.load(c)
	if err != nil {
		return err
	}
	if self, _ := helperAuth.GetUserIDFromToken(c); self == u.ID {
		return fiber.NewError(fiber.StatusBadRequest, "you cannot delete your own account")
	}

	ctx := c.UserContext()
	if err := uc.DB.WithContext(ctx).Delete(u).Error; err != nil {
		return helper.DBError(err)
	}
	if err := helperAuth.RevokeUserSessions(ctx, uc.DB, u.ID, helperAuth.RevokeReasonDeactivated, time.Now().UTC()); err != nil {
		zap.L().Warn("revoke sessions failed", zap.String("user_id", u.ID.String()), zap.Error(err))
	}

	audit.Record(c, uc.DB, audit.Entry{
		Action:      audit.ActionDelete,
		EntityType:  entityUser,
		EntityID:    u.ID,
		Description: "deleted " + u.UserName,
	})
	return helper.JsonDeleted(c, "user deleted", fiber.Map{"id": u.ID})
}

// POST /api/admin/users/:id/usb-key (multipart key_file)
// Stores the SHA-256 of the file and turns the requirement on.
func (uc *UserController) EnrollUSBKey(c *fiber.Ctx) error {
	u, err := uc.load(c)
	if err != nil {
		return err
	}
	fh, err := c.FormFile("key_file")
	if err != nil {
		return helper.NewFieldError("key_file", "is required")
	}
	if fh.Size == 0 || fh.Size > maxKeyFileSize {
		return helper.NewFieldError("key_file", "must be between 1 byte and 1 MB")
	}
	f, err := fh.Open()
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "cannot read key file")
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, maxKeyFileSize))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "cannot read key file")
	}

	hash := authHelper.FileFingerprint(data)
	now := time.Now().UTC()
	if err := uc.DB.WithContext(c.UserContext()).Model(u).Updates(map[string]any{
		"usb_key_hash":        hash,
		"usb_key_required":    true,
		"usb_key_enrolled_at": now,
	}).Error; err != nil {
		return helper.DBError(err)
	}
	u.USBKeyHash, u.USBKeyRequired, u.USBKeyEnrolledAt = &hash, true, &now

	audit.Record(c, uc.DB, audit.Entry{
		Action:      audit.ActionUpload,
		EntityType:  entityUser,
		EntityID:    u.ID,
		Description: "enrolled usb key",
	})
	return helper.JsonUpdated(c, "usb key enrolled", dto.ToUserResponse(u))
}

// DELETE /api/admin/users/:id/usb-key
func (uc *UserController) RemoveUSBKey(c *fiber.Ctx) error {
	u, err := uc.load(c)
	if err != nil {
		return err
	}
	if err := uc.DB.WithContext(c.UserContext()).Model(u).Updates(map[string]any{
		"usb_key_hash":        nil,
		"usb_key_required":    false,
		"usb_key_enrolled_at": nil,
	}).Error; err != nil {
		return helper.DBError(err)
	}
	u.USBKeyHash, u.USBKeyRequired, u.USBKeyEnrolledAt = nil, false, nil

	audit.Record(c, uc.DB, audit.Entry{
		Action:      audit.ActionDelete,
		EntityType:  entityUser,
		EntityID:    u.ID,
		Description: "removed usb key",
	})
	return helper.JsonUpdated(c, "usb key removed", dto.ToUserResponse(u))
}

// GET /api/u/users/me
func (uc *UserController) GetMe(c *fiber.Ctx) error {
	u, err := uc.current(c)
	if err != nil {
		return err
	}
	return helper.JsonOK(c, "ok", dto.ToUserResponse(u))
}

// PATCH /api/u/users/me
func (uc *UserController) UpdateMe(c *fiber.Ctx) error {
	u, err := uc.current(c)
	if err != nil {
		return err
	}

	var req dto.UpdateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := helper.Validate(validate, &req); err != nil {
		return err
	}

	db := uc.DB.WithContext(c.UserContext())
	updates := map[string]any{}
	if req.FullName != nil {
		if name := strings.TrimSpace(*req.FullName); name != "" {
			updates["full_name"] = name
		}
	}
	if req.Phone != nil {
		updates["phone"] = nullable(*req.Phone)
	}
	if req.BarangayID != nil {
		id, err := resolveBarangay(db, req.BarangayID)
		if err != nil {
			return err
		}
		updates["barangay_id"] = id
	}
	if len(updates) == 0 {
		return helper.JsonOK(c, "nothing to update", dto.ToUserResponse(u))
	}

	if err := db.Model(u).Updates(updates).Error; err != nil {
		return helper.DBError(err)
	}
	if err := db.First(u, "id = ?", u.ID).Error; err != nil {
		return helper.DBError(err)
	}
	return helper.JsonUpdated(c, "profile updated", dto.ToUserResponse(u))
}

/* ===============================
   helpers
=================================*/

func (uc *UserController) load(c *fiber.Ctx) (*model.UserModel, error) {
	id, err := helper.ParseUUIDParam(c, "id")
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	var u model.UserModel
	if err := uc.DB.WithContext(c.UserContext()).First(&u, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fiber.NewError(fiber.StatusNotFound, "user not found")
		}
		return nil, helper.DBError(err)
	}
	return &u, nil
}

func (uc *UserController) current(c *fiber.Ctx) (*model.UserModel, error) {
	id, err := helperAuth.GetUserIDFromToken(c)
	if err != nil {
		return nil, err
	}
	var u model.UserModel
	if err := uc.DB.WithContext(c.UserContext()).First(&u, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fiber.NewError(fiber.StatusNotFound, "user not found")
		}
		return nil, helper.DBError(err)
	}
	return &u, nil
}

// ensureUnique checks user name and email against other live accounts.
func (uc *UserController) ensureUnique(db *gorm.DB, self uuid.UUID, userName, email *string) error {
	check := func(where string, val string, msg string) error {
		q := db.Model(&model.UserModel{}).Where(where, val)
		if self != uuid.Nil {
			q = q.Where("id <> ?", self)
		}
		var n int64
		if err := q.Count(&n).Error; err != nil {
			return helper.DBError(err)
		}
		if n > 0 {
			return fiber.NewError(fiber.StatusConflict, msg)
		}
		return nil
	}
	if userName != nil {
		if err := check("user_name = ?", *userName, "user name already taken"); err != nil {
			return err
		}
	}
	if email != nil {
		if err := check("LOWER(email) = ?", strings.ToLower(*email), "email already registered"); err != nil {
			return err
		}
	}
	return nil
}

// resolveBarangay maps "" to nil and rejects unknown ids with 422.
func resolveBarangay(db *gorm.DB, raw *string) (*uuid.UUID, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	id, err := uuid.Parse(strings.TrimSpace(*raw))
	if err != nil {
		return nil, helper.NewFieldError("barangay_id", "must be a valid uuid")
	}
	var n int64
	if err := db.Model(&barangayModel.BarangayProfileModel{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return nil, helper.DBError(err)
	}
	if n == 0 {
		return nil, helper.NewFieldError("barangay_id", "barangay not found")
	}
	return &id, nil
}

func nullable(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
