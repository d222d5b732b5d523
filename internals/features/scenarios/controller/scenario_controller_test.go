package controller_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/JBFaner/DisasterTraining-sub003/internals/constants"
	"github.com/JBFaner/DisasterTraining-sub003/internals/features/scenarios/model"
	scenarioRoute "github.com/JBFaner/DisasterTraining-sub003/internals/features/scenarios/route"
	"github.com/JBFaner/DisasterTraining-sub003/internals/features/scenarios/service"
	simModel "github.com/JBFaner/DisasterTraining-sub003/internals/features/simulations/model"
	"github.com/JBFaner/DisasterTraining-sub003/internals/testutil"
)

func newScenarioApp(t *testing.T) (*gorm.DB, *fiber.App) {
	t.Helper()
	db := testutil.NewDB(t)
	app := testutil.NewApp()
	g := testutil.MountGroups(app, db)
	scenarioRoute.ScenarioUserRoutes(g.User, db)
	scenarioRoute.ScenarioAdminRoutes(g.Admin, db)
	return db, app
}

type fakeGenerator struct {
	text    string
	err     error
	prompts []string
}

func (f *fakeGenerator) Generate(_ context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	return f.text, f.err
}

func (f *fakeGenerator) Model() string { return "fake-model" }

func useGenerator(t *testing.T, g service.Generator, err error) {
	t.Helper()
	prev := service.NewGenerator
	service.NewGenerator = func(context.Context) (service.Generator, error) { return g, err }
	t.Cleanup(func() { service.NewGenerator = prev })
}

func TestScenarioLifecycle(t *testing.T) {
	db, app := newScenarioApp(t)
	trainer := testutil.CreateUser(t, db, constants.RoleTrainer)
	tok := testutil.Login(t, db, trainer)
	p := testutil.CreateUser(t, db, constants.RoleParticipant)
	pTok := testutil.Login(t, db, p)

	res := testutil.JSON(t, app, http.MethodPost, "/api/admin/scenarios", map[string]any{
		"title":       "Typhoon Signal No. 4",
		"hazard_type": "Typhoon",
		"description": "Super typhoon landfall within 12 hours.",
		"difficulty":  "advanced",
	}, tok)
	require.Equal(t, http.StatusCreated, res.Status, string(res.Raw))
	s := res.Data(t)
	assert.Equal(t, "typhoon-signal-no-4", s["slug"])
	assert.Equal(t, "draft", s["status"])
	assert.Equal(t, []any{"typhoon"}, s["hazard_tags"])
	id := testutil.ID(t, s).String()
	base := "/api/admin/scenarios/" + id

	late := testutil.JSON(t, app, http.MethodPost, base+"/injects", map[string]any{"offset_minutes": 45, "title": "Power outage"}, tok)
	require.Equal(t, http.StatusCreated, late.Status, string(late.Raw))
	early := testutil.JSON(t, app, http.MethodPost, base+"/injects", map[string]any{"offset_minutes": 0, "title": "Signal raised"}, tok)
	require.Equal(t, http.StatusCreated, early.Status)

	res = testutil.JSON(t, app, http.MethodPost, base+"/actions", map[string]any{
		"action": "Pre-emptive evacuation", "responsible_role": "BDRRMO", "weight": 3,
		"inject_id": testutil.ID(t, early.Data(t)).String(),
	}, tok)
	require.Equal(t, http.StatusCreated, res.Status, string(res.Raw))
	assert.EqualValues(t, 1, res.Data(t)["sort_order"])

	res = testutil.JSON(t, app, http.MethodGet, "/api/u/scenarios/"+id, nil, pTok)
	assert.Equal(t, http.StatusNotFound, res.Status, "drafts are hidden from participants")

	res = testutil.JSON(t, app, http.MethodPatch, base+"/publish", nil, tok)
	require.Equal(t, http.StatusOK, res.Status)
	res = testutil.JSON(t, app, http.MethodPatch, base+"/publish", nil, tok)
	assert.Equal(t, http.StatusConflict, res.Status)

	res = testutil.JSON(t, app, http.MethodGet, "/api/u/scenarios/typhoon-signal-no-4", nil, pTok)
	require.Equal(t, http.StatusOK, res.Status)
	injects := res.Data(t)["injects"].([]any)
	require.Len(t, injects, 2)
	assert.Equal(t, "Signal raised", injects[0].(map[string]any)["title"])
	assert.Len(t, res.Data(t)["expected_actions"].([]any), 1)

	// deleting the inject keeps its action
	res = testutil.JSON(t, app, http.MethodDelete, base+"/injects/"+testutil.ID(t, early.Data(t)).String(), nil, tok)
	require.Equal(t, http.StatusOK, res.Status)
	var action model.ScenarioExpectedActionModel
	require.NoError(t, db.Where("scenario_id = ?", id).Take(&action).Error)
	assert.Nil(t, action.InjectID)

	res = testutil.JSON(t, app, http.MethodPatch, base+"/archive", nil, tok)
	require.Equal(t, http.StatusOK, res.Status)
	res = testutil.JSON(t, app, http.MethodPatch, base, map[string]any{"title": "Renamed"}, tok)
	assert.Equal(t, http.StatusConflict, res.Status)
	res = testutil.JSON(t, app, http.MethodPost, base+"/injects", map[string]any{"title": "Late inject"}, tok)
	assert.Equal(t, http.StatusConflict, res.Status)

	res = testutil.JSON(t, app, http.MethodPatch, base+"/restore", nil, tok)
	require.Equal(t, http.StatusOK, res.Status)
	assert.Equal(t, "draft", res.Data(t)["status"])
}

func TestScenarioDeleteGuard(t *testing.T) {
	db, app := newScenarioApp(t)
	admin := testutil.CreateUser(t, db, constants.RoleAdmin)
	tok := testutil.Login(t, db, admin)

	ev := testutil.CreateEvent(t, db, simModel.EventPublished)
	res := testutil.JSON(t, app, http.MethodDelete, "/api/admin/scenarios/"+ev.ScenarioID.String(), nil, tok)
	assert.Equal(t, http.StatusConflict, res.Status)

	require.NoError(t, db.Model(ev).Update("status", simModel.EventCompleted).Error)
	res = testutil.JSON(t, app, http.MethodDelete, "/api/admin/scenarios/"+ev.ScenarioID.String(), nil, tok)
	require.Equal(t, http.StatusOK, res.Status, string(res.Raw))

	var n int64
	db.Model(&model.ScenarioModel{}).Where("id = ?", ev.ScenarioID).Count(&n)
	assert.Zero(t, n)
}

func TestGenerateScenario(t *testing.T) {
	db, app := newScenarioApp(t)
	trainer := testutil.CreateUser(t, db, constants.RoleTrainer)
	tok := testutil.Login(t, db, trainer)
	brgy := testutil.CreateBarangay(t, db, "Concepcion Uno")

	t.Run("not configured", func(t *testing.T) {
		useGenerator(t, nil, service.ErrGeneratorUnavailable)
		res := testutil.JSON(t, app, http.MethodPost, "/api/admin/scenarios/generate", map[string]any{"hazard_type": "flood"}, tok)
		assert.Equal(t, http.StatusServiceUnavailable, res.Status)
	})

	t.Run("upstream failure", func(t *testing.T) {
		useGenerator(t, &fakeGenerator{err: errors.New("quota")}, nil)
		res := testutil.JSON(t, app, http.MethodPost, "/api/admin/scenarios/generate", map[string]any{"hazard_type": "flood"}, tok)
		assert.Equal(t, http.StatusBadGateway, res.Status)
	})

	draft := `{"title":"Rising Marikina River","description":"Water level reaches 18 meters.",
		"duration_minutes":90,
		"injects":[{"offset_minutes":10,"title":"Second alarm"},{"offset_minutes":0,"title":"First alarm"}],
		"expected_actions":[{"action":"Open evacuation center","responsible_role":"BDRRMO","weight":2}]}`

	t.Run("preview only", func(t *testing.T) {
		gen := &fakeGenerator{text: draft}
		useGenerator(t, gen, nil)
		res := testutil.JSON(t, app, http.MethodPost, "/api/admin/scenarios/generate", map[string]any{
			"hazard_type": "Flood", "barangay_id": brgy.ID.String(), "participants": 50,
		}, tok)
		require.Equal(t, http.StatusOK, res.Status, string(res.Raw))
		assert.Equal(t, "Rising Marikina River", res.Data(t)["title"])
		require.Len(t, gen.prompts, 1)
		assert.Contains(t, gen.prompts[0], "Barangay Concepcion Uno")

		var n int64
		db.Model(&model.ScenarioModel{}).Count(&n)
		assert.Zero(t, n)
	})

	t.Run("save as draft", func(t *testing.T) {
		useGenerator(t, &fakeGenerator{text: draft}, nil)
		res := testutil.JSON(t, app, http.MethodPost, "/api/admin/scenarios/generate", map[string]any{
			"hazard_type": "flood", "save": true,
		}, tok)
		require.Equal(t, http.StatusCreated, res.Status, string(res.Raw))
		data := res.Data(t)
		assert.Equal(t, true, data["ai_generated"])
		assert.Equal(t, "draft", data["status"])
		assert.Equal(t, "fake-model", data["ai_metadata"].(map[string]any)["model"])

		var sc model.ScenarioModel
		require.NoError(t, db.Preload("Injects").Preload("ExpectedActions").
			First(&sc, "id = ?", testutil.ID(t, data)).Error)
		assert.Len(t, sc.Injects, 2)
		assert.Len(t, sc.ExpectedActions, 1)
		assert.Equal(t, "flood", sc.HazardType)
	})

	t.Run("unknown barangay", func(t *testing.T) {
		useGenerator(t, &fakeGenerator{text: draft}, nil)
		res := testutil.JSON(t, app, http.MethodPost, "/api/admin/scenarios/generate", map[string]any{
			"hazard_type": "flood", "barangay_id": "0d5b2c63-7a36-4d51-8f61-1f9a0c3f4f0e",
		}, tok)
		assert.Equal(t, http.StatusUnprocessableEntity, res.Status)
	})
}
