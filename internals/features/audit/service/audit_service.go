package service

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/JBFaner/DisasterTraining-sub003/internals/features/audit/model"
	helperAuth "github.com/JBFaner/DisasterTraining-sub003/internals/helpers/auth"
)

const (
	ActionCreate   = "create"
	ActionUpdate   = "update"
	ActionDelete   = "delete"
	ActionStatus   = "status_change"
	ActionAssign   = "assign"
	ActionReturn   = "return"
	ActionIssue    = "issue"
	ActionRevoke   = "revoke"
	ActionFinalize = "finalize"
	ActionUpload   = "upload"
)

type Entry struct {
	Action      string
	EntityType  string
	EntityID    uuid.UUID
	Description string
	Changes     map[string]any
}

// Record writes one audit row for the caller of c. Failures are logged
// and never fail the request.
func Record(c *fiber.Ctx, db *gorm.DB, e Entry) {
	row := model.AuditLogModel{
		ActorID:     helperAuth.OptionalUserID(c),
		Action:      e.Action,
		EntityType:  e.EntityType,
		Description: e.Description,
	}
	if e.EntityID != uuid.Nil {
		id := e.EntityID
		row.EntityID = &id
	}
	if len(e.Changes) > 0 {
		row.Changes = datatypes.JSONMap(e.Changes)
	}
	if ip := c.IP(); ip != "" {
		row.IP = &ip
	}
	if ua := c.Get(fiber.HeaderUserAgent); ua != "" {
		row.UserAgent = &ua
	}

	if err := db.WithContext(c.UserContext()).Create(&row).Error; err != nil {
		zap.L().Warn("audit record failed",
			zap.String("action", e.Action),
			zap.String("entity_type", e.EntityType),
			zap.Error(err),
		)
	}
}
