package controller_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/JBFaner/DisasterTraining-sub003/internals/constants"
	scenarioModel "github.com/JBFaner/DisasterTraining-sub003/internals/features/scenarios/model"
	"github.com/JBFaner/DisasterTraining-sub003/internals/features/simulations/model"
	simRoute "github.com/JBFaner/DisasterTraining-sub003/internals/features/simulations/route"
	"github.com/JBFaner/DisasterTraining-sub003/internals/testutil"
)

func newSimApp(t *testing.T) (*gorm.DB, *fiber.App) {
	t.Helper()
	db := testutil.NewDB(t)
	app := testutil.NewApp()
	g := testutil.MountGroups(app, db)
	simRoute.SimulationPublicRoutes(g.Public, db)
	simRoute.SimulationUserRoutes(g.User, db)
	simRoute.SimulationAdminRoutes(g.Admin, db)
	return db, app
}

func TestEventLifecycle(t *testing.T) {
	db, app := newSimApp(t)
	trainer := testutil.CreateUser(t, db, constants.RoleTrainer)
	tok := testutil.Login(t, db, trainer)
	sc := testutil.CreateScenario(t, db, scenarioModel.StatusPublished)
	start := time.Now().UTC().Add(48 * time.Hour).Truncate(time.Second)

	res := testutil.JSON(t, app, http.MethodPost, "/api/admin/simulation-events", map[string]any{
		"title":       "Earthquake drill",
		"scenario_id": sc.ID.String(),
		"starts_at":   start.Format(time.RFC3339),
		"ends_at":     start.Add(-time.Hour).Format(time.RFC3339),
	}, tok)
	assert.Equal(t, http.StatusUnprocessableEntity, res.Status)

	res = testutil.JSON(t, app, http.MethodPost, "/api/admin/simulation-events", map[string]any{
		"title":       "Earthquake drill",
		"scenario_id": sc.ID.String(),
		"location":    "Municipal gym",
		"starts_at":   start.Format(time.RFC3339),
		"ends_at":     start.Add(3 * time.Hour).Format(time.RFC3339),
		"capacity":    30,
	}, tok)
	require.Equal(t, http.StatusCreated, res.Status, string(res.Raw))
	ev := res.Data(t)
	assert.Equal(t, model.EventDraft, ev["status"])
	assert.EqualValues(t, 30, ev["spots_left"])
	base := "/api/admin/simulation-events/" + testutil.ID(t, ev).String()

	res = testutil.JSON(t, app, http.MethodGet, "/api/public/simulation-events", nil, "")
	require.Equal(t, http.StatusOK, res.Status)
	assert.Empty(t, res.List(t), "drafts stay hidden")

	res = testutil.JSON(t, app, http.MethodPatch, base+"/start", nil, tok)
	assert.Equal(t, http.StatusConflict, res.Status)

	res = testutil.JSON(t, app, http.MethodPatch, base+"/publish", nil, tok)
	require.Equal(t, http.StatusOK, res.Status, string(res.Raw))
	assert.NotNil(t, res.Data(t)["published_at"])
	res = testutil.JSON(t, app, http.MethodPatch, base+"/publish", nil, tok)
	assert.Equal(t, http.StatusConflict, res.Status)

	res = testutil.JSON(t, app, http.MethodGet, "/api/public/simulation-events", nil, "")
	require.Equal(t, http.StatusOK, res.Status)
	assert.Len(t, res.List(t), 1)

	res = testutil.JSON(t, app, http.MethodPatch, base, map[string]any{"ends_at": start.Add(-time.Minute).Format(time.RFC3339)}, tok)
	assert.Equal(t, http.StatusUnprocessableEntity, res.Status)

	for _, step := range []string{"start", "complete"} {
		res = testutil.JSON(t, app, http.MethodPatch, base+"/"+step, nil, tok)
		require.Equal(t, http.StatusOK, res.Status, step)
	}
	res = testutil.JSON(t, app, http.MethodPatch, base+"/cancel", nil, tok)
	assert.Equal(t, http.StatusConflict, res.Status)
	res = testutil.JSON(t, app, http.MethodPatch, base, map[string]any{"title": "Renamed drill"}, tok)
	assert.Equal(t, http.StatusConflict, res.Status)
	res = testutil.JSON(t, app, http.MethodDelete, base, nil, tok)
	assert.Equal(t, http.StatusConflict, res.Status)
}

func TestPublishRequiresPublishedScenario(t *testing.T) {
	db, app := newSimApp(t)
	tok := testutil.Login(t, db, testutil.CreateUser(t, db, constants.RoleAdmin))
	ev := testutil.CreateEvent(t, db, model.EventDraft)
	require.NoError(t, db.Model(&scenarioModel.ScenarioModel{}).Where("id = ?", ev.ScenarioID).
		Update("status", scenarioModel.StatusDraft).Error)

	res := testutil.JSON(t, app, http.MethodPatch, "/api/admin/simulation-events/"+ev.ID.String()+"/publish", nil, tok)
	assert.Equal(t, http.StatusConflict, res.Status)
}

func TestCancelNotifiesRegistrants(t *testing.T) {
	db, app := newSimApp(t)
	mailer := testutil.Mailer(t)
	tok := testutil.Login(t, db, testutil.CreateUser(t, db, constants.RoleTrainer))
	ev := testutil.CreateEvent(t, db, model.EventPublished)

	testutil.CreateRegistration(t, db, ev, testutil.CreateUser(t, db, constants.RoleParticipant), model.RegistrationApproved)
	testutil.CreateRegistration(t, db, ev, testutil.CreateUser(t, db, constants.RoleParticipant), model.RegistrationPending)
	testutil.CreateRegistration(t, db, ev, testutil.CreateUser(t, db, constants.RoleParticipant), model.RegistrationCancelled)

	res := testutil.JSON(t, app, http.MethodPatch, "/api/admin/simulation-events/"+ev.ID.String()+"/cancel",
		map[string]any{"reason": "Typhoon signal raised"}, tok)
	require.Equal(t, http.StatusOK, res.Status, string(res.Raw))
	assert.Equal(t, "Typhoon signal raised", res.Data(t)["cancel_reason"])

	assert.Eventually(t, func() bool { return len(mailer.Messages()) == 2 }, 2*time.Second, 20*time.Millisecond)
	for _, m := range mailer.Messages() {
		assert.Contains(t, m.Subject, "Cancelled")
	}

	res = testutil.JSON(t, app, http.MethodDelete, "/api/admin/simulation-events/"+ev.ID.String(), nil, tok)
	assert.Equal(t, http.StatusOK, res.Status)
}

func TestRegistrationFlow(t *testing.T) {
	db, app := newSimApp(t)
	staffTok := testutil.Login(t, db, testutil.CreateUser(t, db, constants.RoleTrainer))
	ana := testutil.CreateUser(t, db, constants.RoleParticipant)
	ben := testutil.CreateUser(t, db, constants.RoleParticipant)
	anaTok, benTok := testutil.Login(t, db, ana), testutil.Login(t, db, ben)
	ev := testutil.CreateEvent(t, db, model.EventPublished, testutil.WithCapacity(1))
	path := "/api/u/simulation-events/" + ev.ID.String() + "/register"

	res := testutil.JSON(t, app, http.MethodPost, path, nil, anaTok)
	require.Equal(t, http.StatusCreated, res.Status, string(res.Raw))
	assert.Equal(t, model.RegistrationPending, res.Data(t)["status"])
	anaReg := testutil.ID(t, res.Data(t))

	res = testutil.JSON(t, app, http.MethodPost, path, nil, anaTok)
	assert.Equal(t, http.StatusConflict, res.Status, "duplicate")
	res = testutil.JSON(t, app, http.MethodPost, path, nil, benTok)
	assert.Equal(t, http.StatusConflict, res.Status, "full")

	res = testutil.JSON(t, app, http.MethodDelete, path, nil, anaTok)
	require.Equal(t, http.StatusOK, res.Status)
	res = testutil.JSON(t, app, http.MethodPost, path, nil, benTok)
	require.Equal(t, http.StatusCreated, res.Status)
	benReg := testutil.ID(t, res.Data(t))

	res = testutil.JSON(t, app, http.MethodPatch, "/api/admin/simulation-registrations/"+benReg.String()+"/reject", nil, staffTok)
	require.Equal(t, http.StatusOK, res.Status)
	res = testutil.JSON(t, app, http.MethodPost, path, nil, benTok)
	assert.Equal(t, http.StatusConflict, res.Status, "rejected users cannot re-apply")

	res = testutil.JSON(t, app, http.MethodPost, path, nil, anaTok)
	require.Equal(t, http.StatusCreated, res.Status)
	assert.Equal(t, anaReg, testutil.ID(t, res.Data(t)), "cancelled row is reactivated")

	res = testutil.JSON(t, app, http.MethodPatch, "/api/admin/simulation-registrations/"+anaReg.String()+"/approve", nil, staffTok)
	require.Equal(t, http.StatusOK, res.Status)
	assert.Equal(t, model.RegistrationApproved, res.Data(t)["status"])
	res = testutil.JSON(t, app, http.MethodPatch, "/api/admin/simulation-registrations/"+anaReg.String()+"/approve", nil, staffTok)
	assert.Equal(t, http.StatusConflict, res.Status)

	res = testutil.JSON(t, app, http.MethodGet, "/api/admin/simulation-events/"+ev.ID.String()+"/registrations?status=approved", nil, staffTok)
	require.Equal(t, http.StatusOK, res.Status)
	list := res.List(t)
	require.Len(t, list, 1)
	assert.Equal(t, ana.FullName, list[0].(map[string]any)["full_name"])

	res = testutil.JSON(t, app, http.MethodGet, "/api/u/simulation-registrations/me", nil, anaTok)
	require.Equal(t, http.StatusOK, res.Status)
	assert.Len(t, res.List(t), 1)
}

func TestRegistrationWindow(t *testing.T) {
	db, app := newSimApp(t)
	staffTok := testutil.Login(t, db, testutil.CreateUser(t, db, constants.RoleAdmin))
	p := testutil.CreateUser(t, db, constants.RoleParticipant)
	pTok := testutil.Login(t, db, p)

	closed := testutil.CreateEvent(t, db, model.EventPublished, testutil.WithDeadline(time.Now().Add(-time.Hour)))
	res := testutil.JSON(t, app, http.MethodPost, "/api/u/simulation-events/"+closed.ID.String()+"/register", nil, pTok)
	assert.Equal(t, http.StatusConflict, res.Status)

	res = testutil.JSON(t, app, http.MethodPost, "/api/admin/simulation-events/"+closed.ID.String()+"/registrations",
		map[string]any{"user_id": p.ID.String()}, staffTok)
	require.Equal(t, http.StatusCreated, res.Status, string(res.Raw))
	assert.Equal(t, model.RegistrationApproved, res.Data(t)["status"])

	draft := testutil.CreateEvent(t, db, model.EventDraft)
	res = testutil.JSON(t, app, http.MethodPost, "/api/u/simulation-events/"+draft.ID.String()+"/register", nil, pTok)
	assert.Equal(t, http.StatusNotFound, res.Status)
}

func TestAttendance(t *testing.T) {
	db, app := newSimApp(t)
	staffTok := testutil.Login(t, db, testutil.CreateUser(t, db, constants.RoleTrainer))
	now := time.Now().UTC()

	lateEv := testutil.CreateEvent(t, db, model.EventOngoing, testutil.WithWindow(now.Add(-time.Hour), now.Add(time.Hour)))
	onTimeEv := testutil.CreateEvent(t, db, model.EventOngoing, testutil.WithWindow(now.Add(-5*time.Minute), now.Add(time.Hour)))

	ana := testutil.CreateUser(t, db, constants.RoleParticipant)
	anaTok := testutil.Login(t, db, ana)
	testutil.CreateRegistration(t, db, lateEv, ana, model.RegistrationApproved)
	testutil.CreateRegistration(t, db, onTimeEv, ana, model.RegistrationApproved)

	res := testutil.JSON(t, app, http.MethodPost, "/api/u/simulation-events/"+lateEv.ID.String()+"/check-in", nil, anaTok)
	require.Equal(t, http.StatusCreated, res.Status, string(res.Raw))
	assert.Equal(t, model.AttendanceLate, res.Data(t)["status"])
	res = testutil.JSON(t, app, http.MethodPost, "/api/u/simulation-events/"+lateEv.ID.String()+"/check-in", nil, anaTok)
	assert.Equal(t, http.StatusConflict, res.Status)

	res = testutil.JSON(t, app, http.MethodPost, "/api/u/simulation-events/"+onTimeEv.ID.String()+"/check-in", nil, anaTok)
	require.Equal(t, http.StatusCreated, res.Status)
	assert.Equal(t, model.AttendancePresent, res.Data(t)["status"])

	res = testutil.JSON(t, app, http.MethodPost, "/api/u/simulation-events/"+lateEv.ID.String()+"/check-out", nil, anaTok)
	require.Equal(t, http.StatusOK, res.Status)
	assert.NotNil(t, res.Data(t)["checked_out_at"])
	res = testutil.JSON(t, app, http.MethodPost, "/api/u/simulation-events/"+lateEv.ID.String()+"/check-out", nil, anaTok)
	assert.Equal(t, http.StatusConflict, res.Status)

	pending := testutil.CreateUser(t, db, constants.RoleParticipant)
	testutil.CreateRegistration(t, db, lateEv, pending, model.RegistrationPending)
	res = testutil.JSON(t, app, http.MethodPost, "/api/admin/simulation-events/"+lateEv.ID.String()+"/attendance/check-in",
		map[string]any{"user_id": pending.ID.String()}, staffTok)
	assert.Equal(t, http.StatusUnprocessableEntity, res.Status)

	ben := testutil.CreateUser(t, db, constants.RoleParticipant)
	cid := testutil.CreateUser(t, db, constants.RoleParticipant)
	testutil.CreateRegistration(t, db, lateEv, ben, model.RegistrationApproved)
	testutil.CreateRegistration(t, db, lateEv, cid, model.RegistrationApproved)
	testutil.CreateRegistration(t, db, lateEv, testutil.CreateUser(t, db, constants.RoleParticipant), model.RegistrationApproved)

	res = testutil.JSON(t, app, http.MethodPost, "/api/admin/simulation-events/"+lateEv.ID.String()+"/attendance/bulk", map[string]any{
		"records": []map[string]any{
			{"user_id": ben.ID.String(), "status": "absent"},
			{"user_id": cid.ID.String(), "status": "Excused", "remarks": "medical"},
		},
	}, staffTok)
	require.Equal(t, http.StatusOK, res.Status, string(res.Raw))

	res = testutil.JSON(t, app, http.MethodGet, "/api/admin/simulation-events/"+lateEv.ID.String()+"/attendance/summary", nil, staffTok)
	require.Equal(t, http.StatusOK, res.Status)
	s := res.Data(t)
	assert.EqualValues(t, 4, s["approved"])
	assert.EqualValues(t, 1, s["late"])
	assert.EqualValues(t, 1, s["absent"])
	assert.EqualValues(t, 1, s["excused"])
	assert.EqualValues(t, 1, s["not_recorded"])
	assert.EqualValues(t, 25, s["attendance_rate"])

	res = testutil.JSON(t, app, http.MethodPost, "/api/admin/simulation-events/"+lateEv.ID.String()+"/attendance/bulk", map[string]any{
		"records": []map[string]any{{"user_id": pending.ID.String(), "status": "present"}},
	}, staffTok)
	assert.Equal(t, http.StatusUnprocessableEntity, res.Status)

	res = testutil.JSON(t, app, http.MethodGet, "/api/admin/simulation-events/"+lateEv.ID.String()+"/attendance", nil, staffTok)
	require.Equal(t, http.StatusOK, res.Status)
	assert.Len(t, res.List(t), 3)
}
