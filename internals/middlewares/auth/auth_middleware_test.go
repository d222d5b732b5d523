package auth_test

import (
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JBFaner/DisasterTraining-sub003/internals/constants"
	authModel "github.com/JBFaner/DisasterTraining-sub003/internals/features/users/auth/model"
	userModel "github.com/JBFaner/DisasterTraining-sub003/internals/features/users/users/model"
	helperAuth "github.com/JBFaner/DisasterTraining-sub003/internals/helpers/auth"
	authMiddleware "github.com/JBFaner/DisasterTraining-sub003/internals/middlewares/auth"
	"github.com/JBFaner/DisasterTraining-sub003/internals/testutil"
)

func whoami(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"role":      helperAuth.GetRole(c),
		"anonymous": helperAuth.OptionalUserID(c) == nil,
	})
}

func TestAuthMiddleware(t *testing.T) {
	db := testutil.NewDB(t)
	app := testutil.NewApp()
	app.Get("/me", authMiddleware.AuthMiddleware(db), whoami)

	u := testutil.CreateUser(t, db, constants.RoleTrainer)
	tok := testutil.Login(t, db, u)

	res := testutil.JSON(t, app, http.MethodGet, "/me", nil, "")
	assert.Equal(t, http.StatusUnauthorized, res.Status)

	res = testutil.JSON(t, app, http.MethodGet, "/me", nil, "not-a-jwt")
	assert.Equal(t, http.StatusUnauthorized, res.Status)

	res = testutil.JSON(t, app, http.MethodGet, "/me", nil, tok)
	require.Equal(t, http.StatusOK, res.Status, string(res.Raw))
	assert.Equal(t, constants.RoleTrainer, res.Body["role"])
	assert.Equal(t, false, res.Body["anonymous"])

	require.NoError(t, db.Model(&userModel.UserModel{}).Where("id = ?", u.ID).Update("is_active", false).Error)
	res = testutil.JSON(t, app, http.MethodGet, "/me", nil, tok)
	assert.Equal(t, http.StatusForbidden, res.Status)
}

func TestAuthMiddlewareSessionStoreDown(t *testing.T) {
	db := testutil.NewDB(t)
	app := testutil.NewApp()
	app.Get("/me", authMiddleware.AuthMiddleware(db), whoami)

	u := testutil.CreateUser(t, db, constants.RoleParticipant)
	tok := testutil.Login(t, db, u)
	require.NoError(t, db.Migrator().DropTable(&authModel.UserSessionModel{}))

	res := testutil.JSON(t, app, http.MethodGet, "/me", nil, tok)
	assert.Equal(t, http.StatusInternalServerError, res.Status, string(res.Raw))
}

func TestOptionalAuthMiddleware(t *testing.T) {
	db := testutil.NewDB(t)
	app := testutil.NewApp()
	app.Get("/me", authMiddleware.OptionalAuthMiddleware(db), whoami)

	res := testutil.JSON(t, app, http.MethodGet, "/me", nil, "")
	require.Equal(t, http.StatusOK, res.Status)
	assert.Equal(t, true, res.Body["anonymous"])

	// a bad token is ignored rather than rejected
	res = testutil.JSON(t, app, http.MethodGet, "/me", nil, "garbage")
	require.Equal(t, http.StatusOK, res.Status)
	assert.Equal(t, true, res.Body["anonymous"])

	tok := testutil.Login(t, db, testutil.CreateUser(t, db, constants.RoleParticipant))
	res = testutil.JSON(t, app, http.MethodGet, "/me", nil, tok)
	require.Equal(t, http.StatusOK, res.Status)
	assert.Equal(t, false, res.Body["anonymous"])
	assert.Equal(t, constants.RoleParticipant, res.Body["role"])
}

func TestOnlyRoles(t *testing.T) {
	app := testutil.NewApp()
	setRole := func(role string) fiber.Handler {
		return func(c *fiber.Ctx) error {
			if role != "" {
				c.Locals(helperAuth.LocRole, role)
			}
			return c.Next()
		}
	}
	guard := authMiddleware.OnlyRoles("staff only", constants.StaffRoles...)
	ok := func(c *fiber.Ctx) error { return c.SendStatus(http.StatusNoContent) }
	app.Get("/none", setRole(""), guard, ok)
	app.Get("/participant", setRole(constants.RoleParticipant), guard, ok)
	app.Get("/trainer", setRole("Trainer"), guard, ok)

	assert.Equal(t, http.StatusUnauthorized, testutil.JSON(t, app, http.MethodGet, "/none", nil, "").Status)
	res := testutil.JSON(t, app, http.MethodGet, "/participant", nil, "")
	assert.Equal(t, http.StatusForbidden, res.Status)
	assert.Equal(t, "staff only", res.Body["message"])
	assert.Equal(t, http.StatusNoContent, testutil.JSON(t, app, http.MethodGet, "/trainer", nil, "").Status)
}
