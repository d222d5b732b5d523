package controller_test

import (
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/JBFaner/DisasterTraining-sub003/internals/constants"
	"github.com/JBFaner/DisasterTraining-sub003/internals/features/evaluations/model"
	evalRoute "github.com/JBFaner/DisasterTraining-sub003/internals/features/evaluations/route"
	simModel "github.com/JBFaner/DisasterTraining-sub003/internals/features/simulations/model"
	"github.com/JBFaner/DisasterTraining-sub003/internals/testutil"
)

func newEvalApp(t *testing.T) (*gorm.DB, *fiber.App) {
	t.Helper()
	db := testutil.NewDB(t)
	app := testutil.NewApp()
	g := testutil.MountGroups(app, db)
	evalRoute.EvaluationUserRoutes(g.User, db)
	return db, app
}

var criteria = []map[string]any{
	{"name": "Evacuation", "weight": 3, "max_score": 10},
	{"name": "Communication", "weight": 1, "max_score": 5},
}

func TestCreateEvaluation(t *testing.T) {
	db, app := newEvalApp(t)
	tok := testutil.Login(t, db, testutil.CreateUser(t, db, constants.RoleEvaluator))
	participantTok := testutil.Login(t, db, testutil.CreateUser(t, db, constants.RoleParticipant))
	upcoming := testutil.CreateEvent(t, db, simModel.EventPublished)
	done := testutil.CreateEvent(t, db, simModel.EventCompleted)

	body := map[string]any{"event_id": done.ID.String(), "title": "Flood drill scoring", "criteria": criteria}
	res := testutil.JSON(t, app, http.MethodPost, "/api/u/evaluations", body, participantTok)
	assert.Equal(t, http.StatusForbidden, res.Status)

	body["event_id"] = upcoming.ID.String()
	res = testutil.JSON(t, app, http.MethodPost, "/api/u/evaluations", body, tok)
	assert.Equal(t, http.StatusConflict, res.Status, "event not completed")

	body["event_id"] = done.ID.String()
	body["criteria"] = []map[string]any{{"name": "Evacuation", "weight": 0, "max_score": 10}}
	res = testutil.JSON(t, app, http.MethodPost, "/api/u/evaluations", body, tok)
	assert.Equal(t, http.StatusUnprocessableEntity, res.Status)

	body["criteria"] = criteria
	res = testutil.JSON(t, app, http.MethodPost, "/api/u/evaluations", body, tok)
	require.Equal(t, http.StatusCreated, res.Status, string(res.Raw))
	assert.EqualValues(t, model.DefaultPassingScore, res.Data(t)["passing_score"])
	assert.Equal(t, model.EvaluationDraft, res.Data(t)["status"])

	res = testutil.JSON(t, app, http.MethodPost, "/api/u/evaluations", body, tok)
	assert.Equal(t, http.StatusConflict, res.Status, "one evaluation per event")
}

func TestScoringAndFinalize(t *testing.T) {
	db, app := newEvalApp(t)
	tok := testutil.Login(t, db, testutil.CreateUser(t, db, constants.RoleEvaluator))
	ev := testutil.CreateEvent(t, db, simModel.EventCompleted)
	ana := testutil.CreateUser(t, db, constants.RoleParticipant)
	ben := testutil.CreateUser(t, db, constants.RoleParticipant)
	absent := testutil.CreateUser(t, db, constants.RoleParticipant)
	testutil.CreateAttendance(t, db, ev, ana, simModel.AttendancePresent)
	testutil.CreateAttendance(t, db, ev, ben, simModel.AttendanceLate)
	testutil.CreateAttendance(t, db, ev, absent, simModel.AttendanceAbsent)

	res := testutil.JSON(t, app, http.MethodPost, "/api/u/evaluations",
		map[string]any{"event_id": ev.ID.String(), "title": "Flood drill scoring", "criteria": criteria}, tok)
	require.Equal(t, http.StatusCreated, res.Status, string(res.Raw))
	base := "/api/u/evaluations/" + testutil.ID(t, res.Data(t)).String()

	res = testutil.JSON(t, app, http.MethodPost, base+"/scores", map[string]any{
		"user_id": absent.ID.String(),
		"scores":  []map[string]any{{"criterion": "Evacuation", "score": 5}},
	}, tok)
	assert.Equal(t, http.StatusUnprocessableEntity, res.Status, "absent participants are not scored")

	res = testutil.JSON(t, app, http.MethodPost, base+"/scores", map[string]any{
		"user_id": ana.ID.String(),
		"scores":  []map[string]any{{"criterion": "Evacuation", "score": 11}},
	}, tok)
	assert.Equal(t, http.StatusUnprocessableEntity, res.Status, "over max")

	res = testutil.JSON(t, app, http.MethodPost, base+"/scores", map[string]any{
		"user_id": ana.ID.String(),
		"scores":  []map[string]any{{"criterion": "Evacuation", "score": 2}, {"criterion": "Evacuation", "score": 9}},
	}, tok)
	assert.Equal(t, http.StatusUnprocessableEntity, res.Status, "repeated criterion")

	res = testutil.JSON(t, app, http.MethodPost, base+"/scores", map[string]any{
		"user_id": ana.ID.String(),
		"scores": []map[string]any{
			{"criterion": "Evacuation", "score": 6},
			{"criterion": "Communication", "score": 3},
		},
	}, tok)
	require.Equal(t, http.StatusOK, res.Status, string(res.Raw))
	d := res.Data(t)
	assert.EqualValues(t, 9, d["total_score"])
	assert.EqualValues(t, 15, d["max_score"])
	assert.EqualValues(t, 60, d["percentage"])
	assert.Equal(t, false, d["passed"])

	// resubmitting a criterion replaces its score
	res = testutil.JSON(t, app, http.MethodPost, base+"/scores", map[string]any{
		"user_id": ana.ID.String(),
		"scores":  []map[string]any{{"criterion": "Evacuation", "score": 8}},
	}, tok)
	require.Equal(t, http.StatusOK, res.Status, string(res.Raw))
	d = res.Data(t)
	assert.EqualValues(t, 11, d["total_score"])
	assert.EqualValues(t, 75, d["percentage"])
	assert.Equal(t, true, d["passed"])
	assert.Len(t, d["scores"], 2)

	res = testutil.JSON(t, app, http.MethodPost, base+"/scores", map[string]any{
		"user_id": ben.ID.String(),
		"scores":  []map[string]any{{"criterion": "Evacuation", "score": 4}, {"criterion": "Communication", "score": 2}},
	}, tok)
	require.Equal(t, http.StatusOK, res.Status)

	res = testutil.JSON(t, app, http.MethodPatch, base, map[string]any{"criteria": criteria}, tok)
	assert.Equal(t, http.StatusConflict, res.Status, "criteria frozen once scored")

	res = testutil.JSON(t, app, http.MethodGet, base+"/participants", nil, tok)
	require.Equal(t, http.StatusOK, res.Status)
	assert.Len(t, res.List(t), 2)

	res = testutil.JSON(t, app, http.MethodGet, base+"/results?passed=true", nil, tok)
	require.Equal(t, http.StatusOK, res.Status)
	require.Len(t, res.List(t), 1)
	assert.Equal(t, ana.FullName, res.List(t)[0].(map[string]any)["full_name"])

	anaTok := testutil.Login(t, db, ana)
	res = testutil.JSON(t, app, http.MethodGet, "/api/u/evaluation-results/me", nil, anaTok)
	require.Equal(t, http.StatusOK, res.Status)
	assert.Empty(t, res.List(t), "results stay hidden until finalized")

	res = testutil.JSON(t, app, http.MethodPatch, base+"/finalize", nil, tok)
	require.Equal(t, http.StatusOK, res.Status, string(res.Raw))
	assert.Equal(t, model.EvaluationFinalized, res.Data(t)["status"])

	res = testutil.JSON(t, app, http.MethodPatch, base+"/finalize", nil, tok)
	assert.Equal(t, http.StatusConflict, res.Status)
	res = testutil.JSON(t, app, http.MethodPost, base+"/scores", map[string]any{
		"user_id": ben.ID.String(),
		"scores":  []map[string]any{{"criterion": "Evacuation", "score": 10}},
	}, tok)
	assert.Equal(t, http.StatusConflict, res.Status)
	res = testutil.JSON(t, app, http.MethodDelete, base, nil, tok)
	assert.Equal(t, http.StatusConflict, res.Status)

	res = testutil.JSON(t, app, http.MethodGet, "/api/u/evaluation-results/me", nil, anaTok)
	require.Equal(t, http.StatusOK, res.Status)
	mine := res.List(t)
	require.Len(t, mine, 1)
	assert.Equal(t, ev.Title, mine[0].(map[string]any)["event_title"])
	assert.EqualValues(t, 75, mine[0].(map[string]any)["percentage"])
}

func TestPassingScoreRegrades(t *testing.T) {
	db, app := newEvalApp(t)
	tok := testutil.Login(t, db, testutil.CreateUser(t, db, constants.RoleTrainer))
	ev := testutil.CreateEvent(t, db, simModel.EventCompleted)
	p := testutil.CreateUser(t, db, constants.RoleParticipant)
	testutil.CreateAttendance(t, db, ev, p, simModel.AttendancePresent)

	res := testutil.JSON(t, app, http.MethodPost, "/api/u/evaluations",
		map[string]any{"event_id": ev.ID.String(), "title": "Scoring", "criteria": criteria, "passing_score": 50}, tok)
	require.Equal(t, http.StatusCreated, res.Status, string(res.Raw))
	base := "/api/u/evaluations/" + testutil.ID(t, res.Data(t)).String()

	res = testutil.JSON(t, app, http.MethodPost, base+"/scores", map[string]any{
		"user_id": p.ID.String(),
		"scores":  []map[string]any{{"criterion": "Evacuation", "score": 6}, {"criterion": "Communication", "score": 3}},
	}, tok)
	require.Equal(t, http.StatusOK, res.Status)
	assert.Equal(t, true, res.Data(t)["passed"])

	res = testutil.JSON(t, app, http.MethodPatch, base, map[string]any{"passing_score": 80}, tok)
	require.Equal(t, http.StatusOK, res.Status, string(res.Raw))

	res = testutil.JSON(t, app, http.MethodGet, base+"/results/"+p.ID.String(), nil, tok)
	require.Equal(t, http.StatusOK, res.Status)
	assert.Equal(t, false, res.Data(t)["passed"])
}
