package controller_test

import (
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/JBFaner/DisasterTraining-sub003/internals/constants"
	barangayRoute "github.com/JBFaner/DisasterTraining-sub003/internals/features/barangays/route"
	"github.com/JBFaner/DisasterTraining-sub003/internals/testutil"
)

func newBarangayApp(t *testing.T) (*gorm.DB, *fiber.App) {
	t.Helper()
	db := testutil.NewDB(t)
	app := testutil.NewApp()
	g := testutil.MountGroups(app, db)
	barangayRoute.BarangayUserRoutes(g.User, db)
	barangayRoute.BarangayAdminRoutes(g.Admin, db)
	return db, app
}

func TestBarangayCRUD(t *testing.T) {
	db, app := newBarangayApp(t)
	trainer := testutil.CreateUser(t, db, constants.RoleTrainer)
	tok := testutil.Login(t, db, trainer)

	res := testutil.JSON(t, app, http.MethodPost, "/api/admin/barangays", map[string]any{
		"name":         " Tumana ",
		"municipality": "Marikina",
		"province":     "Metro Manila",
		"population":   42000,
		"households":   9000,
		"hazards":      []string{"Flood", "flood", " earthquake "},
		"latitude":     14.65,
		"longitude":    121.1,
	}, tok)
	require.Equal(t, http.StatusCreated, res.Status, string(res.Raw))
	data := res.Data(t)
	assert.Equal(t, "Tumana", data["name"])
	assert.Equal(t, []any{"flood", "earthquake"}, data["hazards"])
	id := testutil.ID(t, data).String()

	t.Run("duplicate name in municipality", func(t *testing.T) {
		res := testutil.JSON(t, app, http.MethodPost, "/api/admin/barangays", map[string]any{
			"name": "TUMANA", "municipality": "marikina",
		}, tok)
		assert.Equal(t, http.StatusConflict, res.Status)
	})

	t.Run("same name elsewhere", func(t *testing.T) {
		res := testutil.JSON(t, app, http.MethodPost, "/api/admin/barangays", map[string]any{
			"name": "Tumana", "municipality": "Pasig", "hazards": []string{"fire"},
		}, tok)
		assert.Equal(t, http.StatusCreated, res.Status)
	})

	t.Run("validation", func(t *testing.T) {
		res := testutil.JSON(t, app, http.MethodPost, "/api/admin/barangays", map[string]any{
			"name": "X", "municipality": "Pasig", "population": -1, "latitude": 120,
		}, tok)
		require.Equal(t, http.StatusUnprocessableEntity, res.Status)
		errs := res.Body["errors"].(map[string]any)
		assert.Contains(t, errs, "name")
		assert.Contains(t, errs, "population")
		assert.Contains(t, errs, "latitude")
	})

	res = testutil.JSON(t, app, http.MethodPatch, "/api/admin/barangays/"+id, map[string]any{
		"population": 43000, "hazards": []string{"typhoon"},
	}, tok)
	require.Equal(t, http.StatusOK, res.Status, string(res.Raw))
	assert.EqualValues(t, 43000, res.Data(t)["population"])
	assert.Equal(t, []any{"typhoon"}, res.Data(t)["hazards"])

	res = testutil.JSON(t, app, http.MethodPatch, "/api/admin/barangays/"+id, map[string]any{"municipality": "Pasig"}, tok)
	assert.Equal(t, http.StatusConflict, res.Status)

	participant := testutil.CreateUser(t, db, constants.RoleParticipant)
	pTok := testutil.Login(t, db, participant)

	res = testutil.JSON(t, app, http.MethodGet, "/api/u/barangays?municipality=marikina", nil, pTok)
	require.Equal(t, http.StatusOK, res.Status)
	assert.Len(t, res.List(t), 1)

	res = testutil.JSON(t, app, http.MethodGet, "/api/u/barangays?hazard=fire", nil, pTok)
	require.Equal(t, http.StatusOK, res.Status)
	assert.Len(t, res.List(t), 1)

	res = testutil.JSON(t, app, http.MethodGet, "/api/u/barangays?q=tum&per_page=1", nil, pTok)
	require.Equal(t, http.StatusOK, res.Status)
	assert.Len(t, res.List(t), 1)
	assert.EqualValues(t, 2, res.Body["pagination"].(map[string]any)["total"])

	res = testutil.JSON(t, app, http.MethodPost, "/api/admin/barangays", map[string]any{"name": "Nope", "municipality": "Pasig"}, pTok)
	assert.Equal(t, http.StatusForbidden, res.Status)

	res = testutil.JSON(t, app, http.MethodDelete, "/api/admin/barangays/"+id, nil, tok)
	require.Equal(t, http.StatusOK, res.Status)
	res = testutil.JSON(t, app, http.MethodGet, "/api/u/barangays/"+id, nil, pTok)
	assert.Equal(t, http.StatusNotFound, res.Status)
}
