package controller_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JBFaner/DisasterTraining-sub003/internals/constants"
	"github.com/JBFaner/DisasterTraining-sub003/internals/features/audit/model"
	auditRoute "github.com/JBFaner/DisasterTraining-sub003/internals/features/audit/route"
	"github.com/JBFaner/DisasterTraining-sub003/internals/features/audit/service"
	"github.com/JBFaner/DisasterTraining-sub003/internals/testutil"
)

func TestAuditRecordAndList(t *testing.T) {
	db := testutil.NewDB(t)
	app := testutil.NewApp()
	g := testutil.MountGroups(app, db)
	auditRoute.AuditAdminRoutes(g.Admin, db)

	entity := uuid.New()
	g.Admin.Post("/touch", func(c *fiber.Ctx) error {
		service.Record(c, db, service.Entry{
			Action:      service.ActionUpdate,
			EntityType:  "resource",
			EntityID:    entity,
			Description: "updated stock",
			Changes:     map[string]any{"quantity_total": 10},
		})
		return c.SendStatus(fiber.StatusNoContent)
	})

	admin := testutil.CreateUser(t, db, constants.RoleAdmin)
	trainer := testutil.CreateUser(t, db, constants.RoleTrainer)
	adminTok := testutil.Login(t, db, admin)
	trainerTok := testutil.Login(t, db, trainer)

	require.Equal(t, http.StatusNoContent, testutil.JSON(t, app, http.MethodPost, "/api/admin/touch", nil, adminTok).Status)
	require.Equal(t, http.StatusNoContent, testutil.JSON(t, app, http.MethodPost, "/api/admin/touch", nil, trainerTok).Status)

	var row model.AuditLogModel
	require.NoError(t, db.Where("actor_id = ?", admin.ID).Take(&row).Error)
	assert.Equal(t, "resource", row.EntityType)
	assert.Equal(t, "10", fmt.Sprint(row.Changes["quantity_total"]))

	res := testutil.JSON(t, app, http.MethodGet, "/api/admin/audit-logs", nil, trainerTok)
	assert.Equal(t, http.StatusForbidden, res.Status)

	res = testutil.JSON(t, app, http.MethodGet, "/api/admin/audit-logs?actor_id="+trainer.ID.String(), nil, adminTok)
	require.Equal(t, http.StatusOK, res.Status, string(res.Raw))
	assert.Len(t, res.List(t), 1)

	res = testutil.JSON(t, app, http.MethodGet, "/api/admin/audit-logs?entity_type=resource&action=update&per_page=1", nil, adminTok)
	require.Equal(t, http.StatusOK, res.Status)
	assert.Len(t, res.List(t), 1)
	pg := res.Body["pagination"].(map[string]any)
	assert.EqualValues(t, 2, pg["total"])
	assert.Equal(t, true, pg["has_next"])

	res = testutil.JSON(t, app, http.MethodGet, "/api/admin/audit-logs?actor_id=nope", nil, adminTok)
	assert.Equal(t, http.StatusBadRequest, res.Status)
}
