package controller_test

import (
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/JBFaner/DisasterTraining-sub003/internals/constants"
	auditModel "github.com/JBFaner/DisasterTraining-sub003/internals/features/audit/model"
	authHelper "github.com/JBFaner/DisasterTraining-sub003/internals/features/users/auth/helper"
	authModel "github.com/JBFaner/DisasterTraining-sub003/internals/features/users/auth/model"
	"github.com/JBFaner/DisasterTraining-sub003/internals/features/users/users/model"
	userRoute "github.com/JBFaner/DisasterTraining-sub003/internals/features/users/users/route"
	"github.com/JBFaner/DisasterTraining-sub003/internals/testutil"
)

func newUserApp(t *testing.T) (*gorm.DB, *fiber.App) {
	t.Helper()
	db := testutil.NewDB(t)
	app := testutil.NewApp()
	g := testutil.MountGroups(app, db)
	userRoute.UserAdminRoutes(g.Admin, db)
	userRoute.UserUserRoutes(g.User, db)
	return db, app
}

func TestCreateAndListUsers(t *testing.T) {
	db, app := newUserApp(t)
	admin := testutil.CreateUser(t, db, constants.RoleAdmin)
	tok := testutil.Login(t, db, admin)
	brgy := testutil.CreateBarangay(t, db, "Malanday")

	res := testutil.JSON(t, app, http.MethodPost, "/api/admin/users", map[string]any{
		"user_name":   "evalmaria",
		"email":       "Maria@LGU.ph",
		"full_name":   "Maria Santos",
		"password":    "Evaluate123",
		"role":        "evaluator",
		"barangay_id": brgy.ID.String(),
	}, tok)
	require.Equal(t, http.StatusCreated, res.Status, string(res.Raw))
	data := res.Data(t)
	assert.Equal(t, "maria@lgu.ph", data["email"])
	assert.Equal(t, "evaluator", data["role"])
	assert.Equal(t, true, data["email_verified"])
	assert.NotContains(t, data, "password")

	var created model.UserModel
	require.NoError(t, db.First(&created, "user_name = ?", "evalmaria").Error)
	assert.NoError(t, authHelper.CheckPasswordHash(created.Password, "Evaluate123"))

	var logs int64
	db.Model(&auditModel.AuditLogModel{}).Where("entity_id = ? AND action = ?", created.ID, "create").Count(&logs)
	assert.EqualValues(t, 1, logs)

	t.Run("duplicate email", func(t *testing.T) {
		res := testutil.JSON(t, app, http.MethodPost, "/api/admin/users", map[string]any{
			"user_name": "other01", "email": "maria@lgu.ph", "full_name": "Other",
			"password": "Evaluate123", "role": "participant",
		}, tok)
		assert.Equal(t, http.StatusConflict, res.Status)
	})

	t.Run("bad role", func(t *testing.T) {
		res := testutil.JSON(t, app, http.MethodPost, "/api/admin/users", map[string]any{
			"user_name": "other02", "email": "o2@lgu.ph", "full_name": "Other",
			"password": "Evaluate123", "role": "mayor",
		}, tok)
		assert.Equal(t, http.StatusUnprocessableEntity, res.Status)
	})

	testutil.CreateUser(t, db, constants.RoleParticipant)
	testutil.CreateUser(t, db, constants.RoleParticipant, testutil.Inactive())

	res = testutil.JSON(t, app, http.MethodGet, "/api/admin/users?role=participant", nil, tok)
	require.Equal(t, http.StatusOK, res.Status)
	assert.Len(t, res.List(t), 2)

	res = testutil.JSON(t, app, http.MethodGet, "/api/admin/users?role=participant&is_active=false", nil, tok)
	require.Equal(t, http.StatusOK, res.Status)
	assert.Len(t, res.List(t), 1)

	res = testutil.JSON(t, app, http.MethodGet, "/api/admin/users?q=SANTOS", nil, tok)
	require.Equal(t, http.StatusOK, res.Status)
	require.Len(t, res.List(t), 1)

	res = testutil.JSON(t, app, http.MethodGet, "/api/admin/users?barangay_id="+brgy.ID.String(), nil, tok)
	require.Equal(t, http.StatusOK, res.Status)
	assert.Len(t, res.List(t), 1)
}

func TestTrainerReadsButCannotWrite(t *testing.T) {
	db, app := newUserApp(t)
	trainer := testutil.CreateUser(t, db, constants.RoleTrainer)
	tok := testutil.Login(t, db, trainer)
	p := testutil.CreateUser(t, db, constants.RoleParticipant)

	res := testutil.JSON(t, app, http.MethodGet, "/api/admin/users/"+p.ID.String(), nil, tok)
	require.Equal(t, http.StatusOK, res.Status)
	assert.Equal(t, p.UserName, res.Data(t)["user_name"])

	res = testutil.JSON(t, app, http.MethodPatch, "/api/admin/users/"+p.ID.String()+"/deactivate", nil, tok)
	assert.Equal(t, http.StatusForbidden, res.Status)

	participantTok := testutil.Login(t, db, p)
	res = testutil.JSON(t, app, http.MethodGet, "/api/admin/users", nil, participantTok)
	assert.Equal(t, http.StatusForbidden, res.Status)
}

func TestUpdateUser(t *testing.T) {
	db, app := newUserApp(t)
	admin := testutil.CreateUser(t, db, constants.RoleAdmin)
	tok := testutil.Login(t, db, admin)
	p := testutil.CreateUser(t, db, constants.RoleParticipant)
	other := testutil.CreateUser(t, db, constants.RoleParticipant)

	res := testutil.JSON(t, app, http.MethodPatch, "/api/admin/users/"+p.ID.String(), map[string]any{
		"role": "trainer", "full_name": "Promoted User", "phone": "0917",
	}, tok)
	require.Equal(t, http.StatusOK, res.Status, string(res.Raw))
	assert.Equal(t, "trainer", res.Data(t)["role"])
	assert.Equal(t, "Promoted User", res.Data(t)["full_name"])
	assert.Equal(t, "0917", res.Data(t)["phone"])

	res = testutil.JSON(t, app, http.MethodPatch, "/api/admin/users/"+p.ID.String(), map[string]any{
		"email": other.Email,
	}, tok)
	assert.Equal(t, http.StatusConflict, res.Status)

	res = testutil.JSON(t, app, http.MethodPatch, "/api/admin/users/"+admin.ID.String(), map[string]any{
		"role": "participant",
	}, tok)
	assert.Equal(t, http.StatusBadRequest, res.Status)

	res = testutil.JSON(t, app, http.MethodPatch, "/api/admin/users/"+p.ID.String(), map[string]any{
		"barangay_id": "7f1d3c1e-8a8a-4c41-9a53-2b0a5d2b9a11",
	}, tok)
	assert.Equal(t, http.StatusUnprocessableEntity, res.Status)
}

func TestDeactivateRevokesSessions(t *testing.T) {
	db, app := newUserApp(t)
	admin := testutil.CreateUser(t, db, constants.RoleAdmin)
	tok := testutil.Login(t, db, admin)
	p := testutil.CreateUser(t, db, constants.RoleParticipant)
	pTok := testutil.Login(t, db, p)

	require.Equal(t, http.StatusOK, testutil.JSON(t, app, http.MethodGet, "/api/u/users/me", nil, pTok).Status)

	res := testutil.JSON(t, app, http.MethodPatch, "/api/admin/users/"+p.ID.String()+"/deactivate", nil, tok)
	require.Equal(t, http.StatusOK, res.Status, string(res.Raw))
	assert.Equal(t, false, res.Data(t)["is_active"])

	var open int64
	db.Model(&authModel.UserSessionModel{}).Where("user_id = ? AND revoked_at IS NULL", p.ID).Count(&open)
	assert.Zero(t, open)
	assert.NotEqual(t, http.StatusOK, testutil.JSON(t, app, http.MethodGet, "/api/u/users/me", nil, pTok).Status)

	res = testutil.JSON(t, app, http.MethodPatch, "/api/admin/users/"+p.ID.String()+"/activate", nil, tok)
	require.Equal(t, http.StatusOK, res.Status)
	assert.Equal(t, true, res.Data(t)["is_active"])

	res = testutil.JSON(t, app, http.MethodPatch, "/api/admin/users/"+admin.ID.String()+"/deactivate", nil, tok)
	assert.Equal(t, http.StatusBadRequest, res.Status)
}

func TestDeleteUser(t *testing.T) {
	db, app := newUserApp(t)
	admin := testutil.CreateUser(t, db, constants.RoleAdmin)
	tok := testutil.Login(t, db, admin)
	p := testutil.CreateUser(t, db, constants.RoleParticipant)

	res := testutil.JSON(t, app, http.MethodDelete, "/api/admin/users/"+p.ID.String(), nil, tok)
	require.Equal(t, http.StatusOK, res.Status)

	var n int64
	db.Model(&model.UserModel{}).Where("id = ?", p.ID).Count(&n)
	assert.Zero(t, n)
	db.Unscoped().Model(&model.UserModel{}).Where("id = ?", p.ID).Count(&n)
	assert.EqualValues(t, 1, n)

	res = testutil.JSON(t, app, http.MethodGet, "/api/admin/users/"+p.ID.String(), nil, tok)
	assert.Equal(t, http.StatusNotFound, res.Status)

	res = testutil.JSON(t, app, http.MethodDelete, "/api/admin/users/"+admin.ID.String(), nil, tok)
	assert.Equal(t, http.StatusBadRequest, res.Status)
}

func TestUSBKeyEnrollment(t *testing.T) {
	db, app := newUserApp(t)
	admin := testutil.CreateUser(t, db, constants.RoleAdmin)
	tok := testutil.Login(t, db, admin)
	p := testutil.CreateUser(t, db, constants.RoleTrainer)
	path := "/api/admin/users/" + p.ID.String() + "/usb-key"

	res := testutil.Multipart(t, app, http.MethodPost, path, nil, "", "", nil, tok)
	assert.Equal(t, http.StatusUnprocessableEntity, res.Status)

	key := []byte("lgu-drillhub-key-0001")
	res = testutil.Multipart(t, app, http.MethodPost, path, nil, "key_file", "drill.key", key, tok)
	require.Equal(t, http.StatusOK, res.Status, string(res.Raw))
	assert.Equal(t, true, res.Data(t)["usb_key_required"])
	assert.Equal(t, true, res.Data(t)["usb_key_enrolled"])

	var u model.UserModel
	require.NoError(t, db.First(&u, "id = ?", p.ID).Error)
	require.NotNil(t, u.USBKeyHash)
	assert.Equal(t, authHelper.FileFingerprint(key), *u.USBKeyHash)
	assert.NotNil(t, u.USBKeyEnrolledAt)

	res = testutil.JSON(t, app, http.MethodDelete, path, nil, tok)
	require.Equal(t, http.StatusOK, res.Status)
	require.NoError(t, db.First(&u, "id = ?", p.ID).Error)
	assert.Nil(t, u.USBKeyHash)
	assert.False(t, u.USBKeyRequired)
}

func TestOwnProfile(t *testing.T) {
	db, app := newUserApp(t)
	p := testutil.CreateUser(t, db, constants.RoleParticipant)
	tok := testutil.Login(t, db, p)
	brgy := testutil.CreateBarangay(t, db, "Nangka")

	res := testutil.JSON(t, app, http.MethodGet, "/api/u/users/me", nil, tok)
	require.Equal(t, http.StatusOK, res.Status)
	assert.Equal(t, p.Email, res.Data(t)["email"])

	res = testutil.JSON(t, app, http.MethodPatch, "/api/u/users/me", map[string]any{
		"full_name": "Ana Reyes", "barangay_id": brgy.ID.String(),
	}, tok)
	require.Equal(t, http.StatusOK, res.Status, string(res.Raw))
	assert.Equal(t, "Ana Reyes", res.Data(t)["full_name"])
	assert.Equal(t, brgy.ID.String(), res.Data(t)["barangay_id"])

	// role is not part of the profile payload
	res = testutil.JSON(t, app, http.MethodPatch, "/api/u/users/me", map[string]any{"role": "admin"}, tok)
	require.Equal(t, http.StatusOK, res.Status)
	var u model.UserModel
	require.NoError(t, db.First(&u, "id = ?", p.ID).Error)
	assert.Equal(t, constants.RoleParticipant, u.Role)
}
