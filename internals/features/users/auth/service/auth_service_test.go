package service_test

import (
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/JBFaner/DisasterTraining-sub003/internals/configs"
	"github.com/JBFaner/DisasterTraining-sub003/internals/constants"
	authHelper "github.com/JBFaner/DisasterTraining-sub003/internals/features/users/auth/helper"
	authModel "github.com/JBFaner/DisasterTraining-sub003/internals/features/users/auth/model"
	authRoute "github.com/JBFaner/DisasterTraining-sub003/internals/features/users/auth/route"
	"github.com/JBFaner/DisasterTraining-sub003/internals/features/users/auth/service"
	userModel "github.com/JBFaner/DisasterTraining-sub003/internals/features/users/users/model"
	"github.com/JBFaner/DisasterTraining-sub003/internals/testutil"
)

var reCode = regexp.MustCompile(`code is (\d{6})`)

func newAuthApp(t *testing.T) (*gorm.DB, *fiber.App) {
	t.Helper()
	db := testutil.NewDB(t)
	app := testutil.NewApp()
	authRoute.AuthRoutes(app, db)
	return db, app
}

// lastCode pulls the most recent one-time code mailed to addr.
func lastCode(t *testing.T, addr string) string {
	t.Helper()
	msgs := testutil.Mailer(t).Messages()
	for i := len(msgs) - 1; i >= 0; i-- {
		if len(msgs[i].To) > 0 && msgs[i].To[0] == addr {
			m := reCode.FindStringSubmatch(msgs[i].Text)
			require.Len(t, m, 2, "no code in mail: %s", msgs[i].Text)
			return m[1]
		}
	}
	t.Fatalf("no mail sent to %s", addr)
	return ""
}

func wrongCode(code string) string {
	if code == "000000" {
		return "111111"
	}
	return "000000"
}

func login(t *testing.T, app *fiber.App, identifier, password string) testutil.Response {
	t.Helper()
	return testutil.JSON(t, app, http.MethodPost, "/api/auth/login", map[string]string{
		"identifier": identifier, "password": password,
	}, "")
}

func TestRegisterVerifyAndLogin(t *testing.T) {
	db, app := newAuthApp(t)

	body := map[string]any{
		"user_name": "juan01",
		"email":     "Juan@Example.PH",
		"full_name": "Juan Dela Cruz",
		"password":  "Secure123",
	}
	res := testutil.JSON(t, app, http.MethodPost, "/api/auth/register", body, "")
	require.Equal(t, http.StatusCreated, res.Status, string(res.Raw))
	assert.Equal(t, "juan@example.ph", res.Data(t)["email"])
	assert.Equal(t, false, res.Data(t)["email_verified"])

	var u userModel.UserModel
	require.NoError(t, db.Where("user_name = ?", "juan01").Take(&u).Error)
	assert.Equal(t, constants.RoleParticipant, u.Role)
	assert.True(t, u.IsActive)

	res = testutil.JSON(t, app, http.MethodPost, "/api/auth/register", body, "")
	assert.Equal(t, http.StatusConflict, res.Status)

	res = login(t, app, "juan01", "Secure123")
	assert.Equal(t, http.StatusForbidden, res.Status)
	assert.Equal(t, "email not verified", res.Body["message"])

	code := lastCode(t, "juan@example.ph")
	res = testutil.JSON(t, app, http.MethodPost, "/api/auth/verify-email", map[string]string{
		"email": "juan@example.ph", "code": wrongCode(code),
	}, "")
	assert.Equal(t, http.StatusBadRequest, res.Status)

	res = testutil.JSON(t, app, http.MethodPost, "/api/auth/verify-email", map[string]string{
		"email": "juan@example.ph", "code": code,
	}, "")
	require.Equal(t, http.StatusOK, res.Status, string(res.Raw))
	assert.Equal(t, true, res.Data(t)["email_verified"])

	res = login(t, app, "JUAN@example.ph", "Secure123")
	require.Equal(t, http.StatusOK, res.Status, string(res.Raw))
	data := res.Data(t)
	assert.Equal(t, "complete", data["step"])
	assert.Equal(t, "Bearer", data["token_type"])
	assert.NotEmpty(t, data["access_token"])
	assert.NotEmpty(t, data["refresh_token"])
}

func TestRegisterValidation(t *testing.T) {
	_, app := newAuthApp(t)

	tests := []struct {
		name  string
		body  map[string]any
		field string
	}{
		{"weak password", map[string]any{"user_name": "ana01", "email": "ana@lgu.test", "full_name": "Ana", "password": "password"}, "password"},
		{"bad email", map[string]any{"user_name": "ana02", "email": "nope", "full_name": "Ana", "password": "Passw0rd1"}, "email"},
		{"bad user name", map[string]any{"user_name": "a b", "email": "ana3@lgu.test", "full_name": "Ana", "password": "Passw0rd1"}, "user_name"},
		{"unknown barangay", map[string]any{"user_name": "ana04", "email": "ana4@lgu.test", "full_name": "Ana", "password": "Passw0rd1", "barangay_id": "7d444840-9dc0-11d1-b245-5ffdce74fad2"}, "barangay_id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := testutil.JSON(t, app, http.MethodPost, "/api/auth/register", tt.body, "")
			require.Equal(t, http.StatusUnprocessableEntity, res.Status, string(res.Raw))
			errs, _ := res.Body["errors"].(map[string]any)
			assert.Contains(t, errs, tt.field)
		})
	}
}

func TestLoginRejections(t *testing.T) {
	db, app := newAuthApp(t)
	active := testutil.CreateUser(t, db, constants.RoleParticipant)
	inactive := testutil.CreateUser(t, db, constants.RoleParticipant, testutil.Inactive())

	res := login(t, app, "ghost", testutil.Password)
	assert.Equal(t, http.StatusUnauthorized, res.Status)
	unknownMsg := res.Body["message"]

	res = login(t, app, active.UserName, "Wrong-pass1")
	assert.Equal(t, http.StatusUnauthorized, res.Status)
	assert.Equal(t, unknownMsg, res.Body["message"])

	res = login(t, app, inactive.Email, testutil.Password)
	assert.Equal(t, http.StatusForbidden, res.Status)
}

func TestLoginWithOTP(t *testing.T) {
	db, app := newAuthApp(t)
	configs.Conf.AuthOTPEnabled = true
	u := testutil.CreateUser(t, db, constants.RoleTrainer)

	res := login(t, app, u.Email, testutil.Password)
	require.Equal(t, http.StatusOK, res.Status, string(res.Raw))
	data := res.Data(t)
	assert.Equal(t, "otp", data["step"])
	challenge, _ := data["challenge_token"].(string)
	require.NotEmpty(t, challenge)

	code := lastCode(t, u.Email)
	res = testutil.JSON(t, app, http.MethodPost, "/api/auth/login/verify-otp", map[string]string{
		"challenge_token": challenge, "code": wrongCode(code),
	}, "")
	assert.Equal(t, http.StatusUnauthorized, res.Status)

	res = testutil.JSON(t, app, http.MethodPost, "/api/auth/login/verify-otp", map[string]string{
		"challenge_token": challenge, "code": code,
	}, "")
	require.Equal(t, http.StatusOK, res.Status, string(res.Raw))
	access, _ := res.Data(t)["access_token"].(string)
	require.NotEmpty(t, access)

	me := testutil.JSON(t, app, http.MethodGet, "/api/auth/me", nil, access)
	require.Equal(t, http.StatusOK, me.Status, string(me.Raw))
	assert.Equal(t, u.Email, me.Data(t)["email"])

	// the challenge is spent
	res = testutil.JSON(t, app, http.MethodPost, "/api/auth/login/verify-otp", map[string]string{
		"challenge_token": challenge, "code": code,
	}, "")
	assert.Equal(t, http.StatusUnauthorized, res.Status)

	var reloaded userModel.UserModel
	require.NoError(t, db.Where("id = ?", u.ID).Take(&reloaded).Error)
	assert.NotNil(t, reloaded.LastLoginAt)
}

func TestLoginOTPAttemptsBurnTheCode(t *testing.T) {
	db, app := newAuthApp(t)
	configs.Conf.AuthOTPEnabled = true
	configs.Conf.OTPMaxAttempts = 3
	u := testutil.CreateUser(t, db, constants.RoleParticipant)

	res := login(t, app, u.UserName, testutil.Password)
	require.Equal(t, http.StatusOK, res.Status)
	challenge := res.Data(t)["challenge_token"].(string)
	code := lastCode(t, u.Email)

	var last testutil.Response
	for i := 0; i < 3; i++ {
		last = testutil.JSON(t, app, http.MethodPost, "/api/auth/login/verify-otp", map[string]string{
			"challenge_token": challenge, "code": wrongCode(code),
		}, "")
		assert.Equal(t, http.StatusUnauthorized, last.Status)
	}
	assert.Equal(t, "too many failed attempts, request a new code", last.Body["message"])

	res = testutil.JSON(t, app, http.MethodPost, "/api/auth/login/verify-otp", map[string]string{
		"challenge_token": challenge, "code": code,
	}, "")
	assert.Equal(t, http.StatusUnauthorized, res.Status)

	// a resend on the same challenge recovers
	res = testutil.JSON(t, app, http.MethodPost, "/api/auth/login/resend-otp", map[string]string{
		"challenge_token": challenge,
	}, "")
	require.Equal(t, http.StatusOK, res.Status, string(res.Raw))
	fresh := lastCode(t, u.Email)

	res = testutil.JSON(t, app, http.MethodPost, "/api/auth/login/verify-otp", map[string]string{
		"challenge_token": challenge, "code": fresh,
	}, "")
	require.Equal(t, http.StatusOK, res.Status, string(res.Raw))
	assert.Equal(t, "complete", res.Data(t)["step"])
}

func TestResendLoginOTPReplacesCode(t *testing.T) {
	db, app := newAuthApp(t)
	configs.Conf.AuthOTPEnabled = true
	u := testutil.CreateUser(t, db, constants.RoleParticipant)

	res := login(t, app, u.UserName, testutil.Password)
	require.Equal(t, http.StatusOK, res.Status)
	challenge := res.Data(t)["challenge_token"].(string)

	var first authModel.OTPCodeModel
	require.NoError(t, db.Where("user_id = ? AND consumed_at IS NULL", u.ID).Take(&first).Error)

	res = testutil.JSON(t, app, http.MethodPost, "/api/auth/login/resend-otp", map[string]string{
		"challenge_token": challenge,
	}, "")
	require.Equal(t, http.StatusOK, res.Status)

	var live int64
	require.NoError(t, db.Model(&authModel.OTPCodeModel{}).
		Where("user_id = ? AND purpose = ? AND consumed_at IS NULL", u.ID, authModel.OTPPurposeLogin).
		Count(&live).Error)
	assert.EqualValues(t, 1, live)

	var reloaded authModel.OTPCodeModel
	require.NoError(t, db.Where("id = ?", first.ID).Take(&reloaded).Error)
	assert.NotNil(t, reloaded.ConsumedAt)
}

func TestLoginWithUSBKey(t *testing.T) {
	db, app := newAuthApp(t)
	key := []byte("lgu-drill-usb-key-0001")
	u := testutil.CreateUser(t, db, constants.RoleAdmin, testutil.WithUSBKey(authHelper.FileFingerprint(key)))

	res := login(t, app, u.UserName, testutil.Password)
	require.Equal(t, http.StatusOK, res.Status, string(res.Raw))
	assert.Equal(t, "usb_key", res.Data(t)["step"])
	challenge := res.Data(t)["challenge_token"].(string)

	res = testutil.Multipart(t, app, http.MethodPost, "/api/auth/login/verify-usb-key",
		map[string]string{"challenge_token": challenge}, "key_file", "key.bin", []byte("not the key"), "")
	assert.Equal(t, http.StatusUnauthorized, res.Status)

	res = testutil.Multipart(t, app, http.MethodPost, "/api/auth/login/verify-usb-key",
		map[string]string{"challenge_token": challenge}, "", "", nil, "")
	assert.Equal(t, http.StatusUnprocessableEntity, res.Status)

	res = testutil.Multipart(t, app, http.MethodPost, "/api/auth/login/verify-usb-key",
		map[string]string{"challenge_token": challenge}, "key_file", "key.bin", key, "")
	require.Equal(t, http.StatusOK, res.Status, string(res.Raw))
	assert.Equal(t, "complete", res.Data(t)["step"])
}

func TestOTPThenUSBKey(t *testing.T) {
	db, app := newAuthApp(t)
	configs.Conf.AuthOTPEnabled = true
	key := []byte("key-material")
	u := testutil.CreateUser(t, db, constants.RoleAdmin, testutil.WithUSBKey(authHelper.FileFingerprint(key)))

	res := login(t, app, u.UserName, testutil.Password)
	require.Equal(t, http.StatusOK, res.Status)
	otpChallenge := res.Data(t)["challenge_token"].(string)

	// an OTP challenge cannot skip ahead to the key step
	res = testutil.Multipart(t, app, http.MethodPost, "/api/auth/login/verify-usb-key",
		map[string]string{"challenge_token": otpChallenge}, "key_file", "key.bin", key, "")
	assert.Equal(t, http.StatusUnauthorized, res.Status)

	res = testutil.JSON(t, app, http.MethodPost, "/api/auth/login/verify-otp", map[string]string{
		"challenge_token": otpChallenge, "code": lastCode(t, u.Email),
	}, "")
	require.Equal(t, http.StatusOK, res.Status, string(res.Raw))
	assert.Equal(t, "usb_key", res.Data(t)["step"])
	usbChallenge := res.Data(t)["challenge_token"].(string)
	assert.NotEqual(t, otpChallenge, usbChallenge)

	res = testutil.Multipart(t, app, http.MethodPost, "/api/auth/login/verify-usb-key",
		map[string]string{"challenge_token": usbChallenge}, "key_file", "key.bin", key, "")
	require.Equal(t, http.StatusOK, res.Status, string(res.Raw))
	assert.NotEmpty(t, res.Data(t)["access_token"])
}

func TestLoginSSO(t *testing.T) {
	db, app := newAuthApp(t)

	res := testutil.JSON(t, app, http.MethodPost, "/api/auth/login/sso", map[string]string{"token": "x"}, "")
	assert.Equal(t, http.StatusServiceUnavailable, res.Status)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer good-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"valid":true,"email":"Maria.Santos@lgu.gov.ph","name":"Maria Santos"}`))
	}))
	t.Cleanup(srv.Close)
	configs.Conf.CentralLoginValidateURL = srv.URL

	res = testutil.JSON(t, app, http.MethodPost, "/api/auth/login/sso", map[string]string{"token": "bad-token"}, "")
	assert.Equal(t, http.StatusUnauthorized, res.Status)

	res = testutil.JSON(t, app, http.MethodPost, "/api/auth/login/sso", map[string]string{"token": "good-token"}, "")
	require.Equal(t, http.StatusOK, res.Status, string(res.Raw))
	assert.Equal(t, "complete", res.Data(t)["step"])

	var u userModel.UserModel
	require.NoError(t, db.Where("email = ?", "maria.santos@lgu.gov.ph").Take(&u).Error)
	assert.Equal(t, "Maria Santos", u.FullName)
	assert.Equal(t, "mariasantos", u.UserName)
	assert.True(t, u.IsEmailVerified())

	// second login reuses the account
	res = testutil.JSON(t, app, http.MethodPost, "/api/auth/login/sso", map[string]string{"token": "good-token"}, "")
	require.Equal(t, http.StatusOK, res.Status)
	var n int64
	require.NoError(t, db.Model(&userModel.UserModel{}).Where("email = ?", "maria.santos@lgu.gov.ph").Count(&n).Error)
	assert.EqualValues(t, 1, n)
}

func TestLoginGoogle(t *testing.T) {
	db, app := newAuthApp(t)

	prevVerify, prevClient := service.VerifyGoogleIDToken, configs.GoogleClientID
	t.Cleanup(func() {
		service.VerifyGoogleIDToken = prevVerify
		configs.GoogleClientID = prevClient
	})
	configs.GoogleClientID = "client-id"
	service.VerifyGoogleIDToken = func(tok string) (*service.GoogleIdentity, error) {
		if tok != "google-ok" {
			return nil, assert.AnError
		}
		return &service.GoogleIdentity{Subject: "g-123", Email: "pedro@gmail.com", Name: "Pedro Reyes"}, nil
	}

	existing := testutil.CreateUser(t, db, constants.RoleParticipant, testutil.WithEmail("pedro@gmail.com"))

	res := testutil.JSON(t, app, http.MethodPost, "/api/auth/login/google", map[string]string{"id_token": "forged"}, "")
	assert.Equal(t, http.StatusUnauthorized, res.Status)

	res = testutil.JSON(t, app, http.MethodPost, "/api/auth/login/google", map[string]string{"id_token": "google-ok"}, "")
	require.Equal(t, http.StatusOK, res.Status, string(res.Raw))
	user := res.Data(t)["user"].(map[string]any)
	assert.Equal(t, existing.ID.String(), user["id"])

	var u userModel.UserModel
	require.NoError(t, db.Where("id = ?", existing.ID).Take(&u).Error)
	require.NotNil(t, u.GoogleID)
	assert.Equal(t, "g-123", *u.GoogleID)
}

func TestRefreshTokenRotation(t *testing.T) {
	db, app := newAuthApp(t)
	u := testutil.CreateUser(t, db, constants.RoleParticipant)

	res := login(t, app, u.UserName, testutil.Password)
	require.Equal(t, http.StatusOK, res.Status)
	refresh := res.Data(t)["refresh_token"].(string)

	res = testutil.JSON(t, app, http.MethodPost, "/api/auth/refresh-token", map[string]string{"refresh_token": refresh}, "")
	require.Equal(t, http.StatusOK, res.Status, string(res.Raw))
	rotated := res.Data(t)["refresh_token"].(string)
	access := res.Data(t)["access_token"].(string)
	assert.NotEqual(t, refresh, rotated)

	me := testutil.JSON(t, app, http.MethodGet, "/api/auth/me", nil, access)
	assert.Equal(t, http.StatusOK, me.Status)

	res = testutil.JSON(t, app, http.MethodPost, "/api/auth/refresh-token", map[string]string{"refresh_token": refresh}, "")
	assert.Equal(t, http.StatusUnauthorized, res.Status)

	res = testutil.JSON(t, app, http.MethodPost, "/api/auth/refresh-token", nil, "")
	assert.Equal(t, http.StatusUnauthorized, res.Status)
}

func TestLogoutRevokesEverything(t *testing.T) {
	db, app := newAuthApp(t)
	u := testutil.CreateUser(t, db, constants.RoleParticipant)

	res := login(t, app, u.UserName, testutil.Password)
	require.Equal(t, http.StatusOK, res.Status)
	access := res.Data(t)["access_token"].(string)
	refresh := res.Data(t)["refresh_token"].(string)

	res = testutil.JSON(t, app, http.MethodPost, "/api/auth/logout", nil, access)
	require.Equal(t, http.StatusOK, res.Status, string(res.Raw))

	res = testutil.JSON(t, app, http.MethodGet, "/api/auth/me", nil, access)
	assert.Equal(t, http.StatusUnauthorized, res.Status)

	res = testutil.JSON(t, app, http.MethodPost, "/api/auth/refresh-token", map[string]string{"refresh_token": refresh}, "")
	assert.Equal(t, http.StatusUnauthorized, res.Status)

	var s authModel.UserSessionModel
	require.NoError(t, db.Where("user_id = ?", u.ID).Take(&s).Error)
	require.NotNil(t, s.RevokeReason)
	assert.Equal(t, "logout", *s.RevokeReason)
}

func TestIdleSessionIsRevoked(t *testing.T) {
	db, app := newAuthApp(t)
	u := testutil.CreateUser(t, db, constants.RoleParticipant)
	access := testutil.Login(t, db, u)

	res := testutil.JSON(t, app, http.MethodGet, "/api/auth/me", nil, access)
	require.Equal(t, http.StatusOK, res.Status)

	stale := time.Now().UTC().Add(-configs.Conf.SessionIdleTimeout - time.Minute)
	require.NoError(t, db.Model(&authModel.UserSessionModel{}).Where("user_id = ?", u.ID).
		Update("last_activity_at", stale).Error)

	res = testutil.JSON(t, app, http.MethodGet, "/api/auth/me", nil, access)
	assert.Equal(t, http.StatusUnauthorized, res.Status)
	assert.Equal(t, "session expired due to inactivity", res.Body["message"])

	var s authModel.UserSessionModel
	require.NoError(t, db.Where("user_id = ?", u.ID).Take(&s).Error)
	assert.NotNil(t, s.RevokedAt)

	// bringing activity back does not revive a revoked session
	require.NoError(t, db.Model(&s).Update("last_activity_at", time.Now().UTC()).Error)
	res = testutil.JSON(t, app, http.MethodGet, "/api/auth/me", nil, access)
	assert.Equal(t, http.StatusUnauthorized, res.Status)
}

func TestActiveSessionIsTouched(t *testing.T) {
	db, app := newAuthApp(t)
	u := testutil.CreateUser(t, db, constants.RoleParticipant)
	access := testutil.Login(t, db, u)

	earlier := time.Now().UTC().Add(-10 * time.Minute)
	require.NoError(t, db.Model(&authModel.UserSessionModel{}).Where("user_id = ?", u.ID).
		Update("last_activity_at", earlier).Error)

	res := testutil.JSON(t, app, http.MethodGet, "/api/auth/me", nil, access)
	require.Equal(t, http.StatusOK, res.Status)

	var s authModel.UserSessionModel
	require.NoError(t, db.Where("user_id = ?", u.ID).Take(&s).Error)
	assert.True(t, s.LastActivityAt.After(earlier.Add(5*time.Minute)))
}

func TestForgotAndResetPassword(t *testing.T) {
	db, app := newAuthApp(t)
	u := testutil.CreateUser(t, db, constants.RoleParticipant)
	oldAccess := testutil.Login(t, db, u)

	res := testutil.JSON(t, app, http.MethodPost, "/api/auth/forgot-password", map[string]string{"email": "nobody@lgu.test"}, "")
	assert.Equal(t, http.StatusOK, res.Status)

	res = testutil.JSON(t, app, http.MethodPost, "/api/auth/forgot-password", map[string]string{"email": u.Email}, "")
	require.Equal(t, http.StatusOK, res.Status)
	code := lastCode(t, u.Email)

	res = testutil.JSON(t, app, http.MethodPost, "/api/auth/forgot-password/reset", map[string]string{
		"email": u.Email, "code": code, "new_password": "short",
	}, "")
	assert.Equal(t, http.StatusUnprocessableEntity, res.Status)

	res = testutil.JSON(t, app, http.MethodPost, "/api/auth/forgot-password/reset", map[string]string{
		"email": u.Email, "code": code, "new_password": "BrandNew123",
	}, "")
	require.Equal(t, http.StatusOK, res.Status, string(res.Raw))

	assert.Equal(t, http.StatusUnauthorized, login(t, app, u.UserName, testutil.Password).Status)
	assert.Equal(t, http.StatusOK, login(t, app, u.UserName, "BrandNew123").Status)

	res = testutil.JSON(t, app, http.MethodGet, "/api/auth/me", nil, oldAccess)
	assert.Equal(t, http.StatusUnauthorized, res.Status)
}

func TestChangePassword(t *testing.T) {
	db, app := newAuthApp(t)
	u := testutil.CreateUser(t, db, constants.RoleParticipant)
	access := testutil.Login(t, db, u)

	res := testutil.JSON(t, app, http.MethodPost, "/api/auth/change-password", map[string]string{
		"old_password": "Wrong1234", "new_password": "Another123",
	}, access)
	assert.Equal(t, http.StatusBadRequest, res.Status)

	res = testutil.JSON(t, app, http.MethodPost, "/api/auth/change-password", map[string]string{
		"old_password": testutil.Password, "new_password": "Another123",
	}, access)
	require.Equal(t, http.StatusOK, res.Status, string(res.Raw))
	assert.Equal(t, http.StatusOK, login(t, app, u.UserName, "Another123").Status)

	res = testutil.JSON(t, app, http.MethodPost, "/api/auth/change-password", map[string]string{
		"old_password": testutil.Password, "new_password": "Another123",
	}, "")
	assert.Equal(t, http.StatusUnauthorized, res.Status)
}
