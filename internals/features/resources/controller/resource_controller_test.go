package controller_test

import (
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/JBFaner/DisasterTraining-sub003/internals/constants"
	"github.com/JBFaner/DisasterTraining-sub003/internals/features/resources/model"
	resRoute "github.com/JBFaner/DisasterTraining-sub003/internals/features/resources/route"
	simModel "github.com/JBFaner/DisasterTraining-sub003/internals/features/simulations/model"
	"github.com/JBFaner/DisasterTraining-sub003/internals/testutil"
)

func newResourceApp(t *testing.T) (*gorm.DB, *fiber.App) {
	t.Helper()
	db := testutil.NewDB(t)
	app := testutil.NewApp()
	g := testutil.MountGroups(app, db)
	resRoute.ResourceAdminRoutes(g.Admin, db)
	return db, app
}

func createResource(t *testing.T, app *fiber.App, tok string, total int) string {
	t.Helper()
	res := testutil.JSON(t, app, http.MethodPost, "/api/admin/resources", map[string]any{
		"name":           "Life vest",
		"category":       "Rescue",
		"quantity_total": total,
	}, tok)
	require.Equal(t, http.StatusCreated, res.Status, string(res.Raw))
	d := res.Data(t)
	assert.Equal(t, "rescue", d["category"])
	assert.Equal(t, "pcs", d["unit"])
	assert.EqualValues(t, total, d["quantity_available"])
	return testutil.ID(t, d).String()
}

func TestAssignAndReturn(t *testing.T) {
	db, app := newResourceApp(t)
	tok := testutil.Login(t, db, testutil.CreateUser(t, db, constants.RoleTrainer))
	id := createResource(t, app, tok, 10)
	ev := testutil.CreateEvent(t, db, simModel.EventPublished)
	base := "/api/admin/resources/" + id

	res := testutil.JSON(t, app, http.MethodPost, base+"/assign", map[string]any{"event_id": ev.ID.String(), "quantity": 11}, tok)
	assert.Equal(t, http.StatusConflict, res.Status, "more than stock")

	res = testutil.JSON(t, app, http.MethodPost, base+"/assign", map[string]any{"event_id": ev.ID.String(), "quantity": 8}, tok)
	require.Equal(t, http.StatusCreated, res.Status, string(res.Raw))
	r := res.Data(t)["resource"].(map[string]any)
	assert.EqualValues(t, 2, r["quantity_available"])
	assignID := testutil.ID(t, res.Data(t)["assignment"].(map[string]any)).String()

	res = testutil.JSON(t, app, http.MethodGet, base, nil, tok)
	require.Equal(t, http.StatusOK, res.Status)
	assert.Equal(t, true, res.Data(t)["low_stock"])
	assert.Len(t, res.Data(t)["active_assignments"], 1)

	res = testutil.JSON(t, app, http.MethodPatch, base, map[string]any{"quantity_total": 5}, tok)
	assert.Equal(t, http.StatusUnprocessableEntity, res.Status, "total below assigned")
	res = testutil.JSON(t, app, http.MethodPatch, base, map[string]any{"status": "retired"}, tok)
	assert.Equal(t, http.StatusConflict, res.Status, "items still out")

	ret := "/api/admin/resource-assignments/" + assignID + "/return"
	res = testutil.JSON(t, app, http.MethodPatch, ret, map[string]any{"returned_quantity": 5, "damaged_quantity": 1}, tok)
	assert.Equal(t, http.StatusUnprocessableEntity, res.Status, "must account for every item")

	res = testutil.JSON(t, app, http.MethodPatch, ret, map[string]any{"returned_quantity": 7, "damaged_quantity": 1}, tok)
	require.Equal(t, http.StatusOK, res.Status, string(res.Raw))
	r = res.Data(t)["resource"].(map[string]any)
	assert.EqualValues(t, 9, r["quantity_total"])
	assert.EqualValues(t, 9, r["quantity_available"])
	assert.Equal(t, model.AssignmentReturned, res.Data(t)["assignment"].(map[string]any)["status"])

	res = testutil.JSON(t, app, http.MethodPatch, ret, map[string]any{"returned_quantity": 8}, tok)
	assert.Equal(t, http.StatusConflict, res.Status)

	res = testutil.JSON(t, app, http.MethodGet, "/api/admin/resource-assignments?event_id="+ev.ID.String(), nil, tok)
	require.Equal(t, http.StatusOK, res.Status)
	rows := res.List(t)
	require.Len(t, rows, 1)
	assert.Equal(t, ev.Title, rows[0].(map[string]any)["event_title"])
	assert.Equal(t, "Life vest", rows[0].(map[string]any)["resource_name"])
}

func TestAssignToClosedEvent(t *testing.T) {
	db, app := newResourceApp(t)
	tok := testutil.Login(t, db, testutil.CreateUser(t, db, constants.RoleTrainer))
	id := createResource(t, app, tok, 3)
	ev := testutil.CreateEvent(t, db, simModel.EventCompleted)

	res := testutil.JSON(t, app, http.MethodPost, "/api/admin/resources/"+id+"/assign",
		map[string]any{"event_id": ev.ID.String(), "quantity": 1}, tok)
	assert.Equal(t, http.StatusConflict, res.Status)
}

func TestMaintenanceCycle(t *testing.T) {
	db, app := newResourceApp(t)
	tok := testutil.Login(t, db, testutil.CreateUser(t, db, constants.RoleTrainer))
	id := createResource(t, app, tok, 2)
	ev := testutil.CreateEvent(t, db, simModel.EventPublished)
	base := "/api/admin/resources/" + id

	res := testutil.JSON(t, app, http.MethodPost, base+"/maintenance", map[string]any{
		"maintenance_type": "repair",
		"description":      "Replace buckles",
		"cost":             450.5,
	}, tok)
	require.Equal(t, http.StatusCreated, res.Status, string(res.Raw))
	assert.Equal(t, model.ResourceUnderMaintenance, res.Data(t)["resource"].(map[string]any)["status"])
	logID := testutil.ID(t, res.Data(t)["maintenance"].(map[string]any)).String()

	res = testutil.JSON(t, app, http.MethodPost, base+"/assign", map[string]any{"event_id": ev.ID.String(), "quantity": 1}, tok)
	assert.Equal(t, http.StatusConflict, res.Status)
	res = testutil.JSON(t, app, http.MethodPatch, base, map[string]any{"status": "available"}, tok)
	assert.Equal(t, http.StatusConflict, res.Status)

	done := "/api/admin/resource-maintenance/" + logID + "/complete"
	res = testutil.JSON(t, app, http.MethodPatch, done, nil, tok)
	require.Equal(t, http.StatusOK, res.Status, string(res.Raw))
	assert.Equal(t, model.ResourceAvailable, res.Data(t)["resource"].(map[string]any)["status"])
	assert.Equal(t, model.MaintenanceCompleted, res.Data(t)["maintenance"].(map[string]any)["status"])

	res = testutil.JSON(t, app, http.MethodPatch, done, nil, tok)
	assert.Equal(t, http.StatusConflict, res.Status)

	res = testutil.JSON(t, app, http.MethodGet, base+"/maintenance", nil, tok)
	require.Equal(t, http.StatusOK, res.Status)
	assert.Len(t, res.List(t), 1)
}

func TestDeleteResourceNeedsAdmin(t *testing.T) {
	db, app := newResourceApp(t)
	trainerTok := testutil.Login(t, db, testutil.CreateUser(t, db, constants.RoleTrainer))
	adminTok := testutil.Login(t, db, testutil.CreateUser(t, db, constants.RoleAdmin))
	id := createResource(t, app, trainerTok, 1)

	res := testutil.JSON(t, app, http.MethodDelete, "/api/admin/resources/"+id, nil, trainerTok)
	assert.Equal(t, http.StatusForbidden, res.Status)
	res = testutil.JSON(t, app, http.MethodDelete, "/api/admin/resources/"+id, nil, adminTok)
	assert.Equal(t, http.StatusOK, res.Status)
	res = testutil.JSON(t, app, http.MethodGet, "/api/admin/resources/"+id, nil, adminTok)
	assert.Equal(t, http.StatusNotFound, res.Status)
}
