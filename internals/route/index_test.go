package routes_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JBFaner/DisasterTraining-sub003/internals/constants"
	routes "github.com/JBFaner/DisasterTraining-sub003/internals/route"
	"github.com/JBFaner/DisasterTraining-sub003/internals/testutil"
)

func TestHealth(t *testing.T) {
	db := testutil.NewDB(t)
	app := testutil.NewApp()
	routes.SetupRoutes(app, db)

	res := testutil.JSON(t, app, http.MethodGet, "/health", nil, "")
	require.Equal(t, http.StatusOK, res.Status)
	assert.Equal(t, "ok", res.Body["status"])
	assert.Equal(t, "connected", res.Body["database"])
}

func TestRouteGroups(t *testing.T) {
	db := testutil.NewDB(t)
	app := testutil.NewApp()
	routes.SetupRoutes(app, db)

	participant := testutil.Login(t, db, testutil.CreateUser(t, db, constants.RoleParticipant))
	trainer := testutil.Login(t, db, testutil.CreateUser(t, db, constants.RoleTrainer))
	evaluator := testutil.Login(t, db, testutil.CreateUser(t, db, constants.RoleEvaluator))

	cases := []struct {
		name   string
		path   string
		token  string
		status int
	}{
		{"anonymous user area", "/api/u/scenarios", "", http.StatusUnauthorized},
		{"participant user area", "/api/u/scenarios", participant, http.StatusOK},
		{"participant admin area", "/api/admin/dashboard", participant, http.StatusForbidden},
		{"trainer admin area", "/api/admin/dashboard", trainer, http.StatusOK},
		{"trainer audit logs", "/api/admin/audit-logs", trainer, http.StatusForbidden},
		{"participant evaluations", "/api/u/evaluations", participant, http.StatusForbidden},
		{"evaluator evaluations", "/api/u/evaluations", evaluator, http.StatusOK},
		{"participant own results", "/api/u/evaluation-results/me", participant, http.StatusOK},
		{"public events", "/api/public/simulation-events", "", http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := testutil.JSON(t, app, http.MethodGet, tc.path, nil, tc.token)
			assert.Equal(t, tc.status, res.Status, string(res.Raw))
		})
	}
}
