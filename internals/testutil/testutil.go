// Package testutil wires an isolated sqlite database and fixtures for tests.
package testutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/JBFaner/DisasterTraining-sub003/internals/configs"
	"github.com/JBFaner/DisasterTraining-sub003/internals/constants"
	database "github.com/JBFaner/DisasterTraining-sub003/internals/databases"
	authModel "github.com/JBFaner/DisasterTraining-sub003/internals/features/users/auth/model"
	userModel "github.com/JBFaner/DisasterTraining-sub003/internals/features/users/users/model"
	helper "github.com/JBFaner/DisasterTraining-sub003/internals/helpers"
	helperAuth "github.com/JBFaner/DisasterTraining-sub003/internals/helpers/auth"
	"github.com/JBFaner/DisasterTraining-sub003/internals/helpers/mail"
	"github.com/JBFaner/DisasterTraining-sub003/internals/helpers/storage"
	authMiddleware "github.com/JBFaner/DisasterTraining-sub003/internals/middlewares/auth"
)

const (
	JWTSecret     = "test-access-secret"
	RefreshSecret = "test-refresh-secret"
	Password      = "Passw0rd!"
)

var dbSeq atomic.Int64

// NewDB opens a private in-memory database with every table migrated and
// installs test configuration, a recording mailer and memory storage.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()
	Configure(t)

	name := fmt.Sprintf("file:drill_%d_%d?mode=memory&cache=shared", time.Now().UnixNano(), dbSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(name), &gorm.Config{
		Logger:         gormLogger.Default.LogMode(gormLogger.Silent),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)
	database.TunePool(db, "sqlite")
	require.NoError(t, database.AutoMigrate(db))

	t.Cleanup(func() { database.Close(db) })
	return db
}

// Configure sets deterministic secrets and fast timings for a test.
func Configure(t *testing.T) {
	t.Helper()
	prevConf, prevAccess, prevRefresh := configs.Conf, configs.JWTSecret, configs.JWTRefreshSecret
	prevMail, prevStore := mail.Default(), storage.Default()

	c := configs.Defaults()
	c.AppEnv = "test"
	c.DBDriver = "sqlite"
	c.AuthOTPEnabled = false
	c.AppTimezone = "UTC"
	configs.Conf = c
	configs.JWTSecret = JWTSecret
	configs.JWTRefreshSecret = RefreshSecret

	mail.SetDefault(mail.NewConsoleSender())
	storage.SetDefault(storage.NewMemoryStorage())

	t.Cleanup(func() {
		configs.Conf, configs.JWTSecret, configs.JWTRefreshSecret = prevConf, prevAccess, prevRefresh
		mail.SetDefault(prevMail)
		storage.SetDefault(prevStore)
	})
}

// Mailer returns the recording sender installed by Configure.
func Mailer(t *testing.T) *mail.ConsoleSender {
	t.Helper()
	s, ok := mail.Default().(*mail.ConsoleSender)
	require.True(t, ok, "default mailer is not a console sender")
	return s
}

func NewApp() *fiber.App {
	return fiber.New(fiber.Config{ErrorHandler: helper.ErrorHandler})
}

// Groups mirrors the router groups mounted by the route package.
type Groups struct {
	Public fiber.Router
	User   fiber.Router
	Admin  fiber.Router
}

func MountGroups(app *fiber.App, db *gorm.DB) Groups {
	return Groups{
		Public: app.Group("/api/public", authMiddleware.OptionalAuthMiddleware(db)),
		User:   app.Group("/api/u", authMiddleware.AuthMiddleware(db)),
		Admin: app.Group("/api/admin",
			authMiddleware.AuthMiddleware(db),
			authMiddleware.OnlyRoles(constants.RoleErrorStaff("the admin area"), constants.StaffRoles...),
		),
	}
}

/* =========================================================
   Fixtures
========================================================= */

type UserOpt func(*userModel.UserModel)

func WithEmail(email string) UserOpt { return func(u *userModel.UserModel) { u.Email = email } }

func Inactive() UserOpt { return func(u *userModel.UserModel) { u.IsActive = false } }

func WithUSBKey(hash string) UserOpt {
	return func(u *userModel.UserModel) {
		u.USBKeyRequired = true
		u.USBKeyHash = &hash
	}
}

var userSeq atomic.Int64

// CreateUser inserts a verified, active user whose password is Password.
func CreateUser(t *testing.T, db *gorm.DB, role string, opts ...UserOpt) *userModel.UserModel {
	t.Helper()
	n := userSeq.Add(1)
	hash, err := bcrypt.GenerateFromPassword([]byte(Password), bcrypt.MinCost)
	require.NoError(t, err)
	now := time.Now().UTC()
	u := &userModel.UserModel{
		UserName:        fmt.Sprintf("%s%d", role, n),
		Email:           fmt.Sprintf("%s%d@lgu.test", role, n),
		Password:        string(hash),
		FullName:        fmt.Sprintf("Test %s %d", role, n),
		Role:            role,
		IsActive:        true,
		EmailVerifiedAt: &now,
	}
	for _, o := range opts {
		o(u)
	}
	require.NoError(t, db.Create(u).Error)
	if !u.IsActive {
		require.NoError(t, db.Model(u).Update("is_active", false).Error)
	}
	return u
}

// Login opens a session for u and returns a signed access token.
func Login(t *testing.T, db *gorm.DB, u *userModel.UserModel) string {
	t.Helper()
	now := time.Now().UTC()
	s := authModel.UserSessionModel{
		UserID:         u.ID,
		LastActivityAt: now,
		ExpiresAt:      now.Add(configs.Conf.RefreshTokenTTL),
	}
	require.NoError(t, db.Create(&s).Error)

	claims := helperAuth.NewClaims(helperAuth.TokenTypeAccess, u.ID, s.ID, now, configs.Conf.AccessTokenTTL)
	claims.Role = u.Role
	claims.UserName = u.UserName
	tok, err := helperAuth.SignToken(configs.JWTSecret, claims)
	require.NoError(t, err)
	return tok
}

/* =========================================================
   HTTP
========================================================= */

type Response struct {
	Status int
	Body   map[string]any
	Raw    []byte
}

// Data returns body["data"] as a map, failing when it is not an object.
func (r Response) Data(t *testing.T) map[string]any {
	t.Helper()
	m, ok := r.Body["data"].(map[string]any)
	require.Truef(t, ok, "data is not an object: %s", string(r.Raw))
	return m
}

func (r Response) List(t *testing.T) []any {
	t.Helper()
	l, ok := r.Body["data"].([]any)
	require.Truef(t, ok, "data is not a list: %s", string(r.Raw))
	return l
}

func Do(t *testing.T, app *fiber.App, req *http.Request) Response {
	t.Helper()
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	out := Response{Status: resp.StatusCode, Raw: raw}
	if len(raw) > 0 && strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		_ = json.Unmarshal(raw, &out.Body)
	}
	return out
}

// JSON sends body as JSON with an optional bearer token.
func JSON(t *testing.T, app *fiber.App, method, path string, body any, token string) Response {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rdr)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return Do(t, app, req)
}

// Multipart sends fields plus one file under fileField.
func Multipart(t *testing.T, app *fiber.App, method, path string, fields map[string]string, fileField, fileName string, content []byte, token string) Response {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if fileField != "" {
		fw, err := w.CreateFormFile(fileField, fileName)
		require.NoError(t, err)
		_, err = fw.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return Do(t, app, req)
}

func ID(t *testing.T, m map[string]any) uuid.UUID {
	t.Helper()
	s, _ := m["id"].(string)
	id, err := uuid.Parse(s)
	require.NoError(t, err)
	return id
}
