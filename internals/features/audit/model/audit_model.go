package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type AuditLogModel struct {
	ID          uuid.UUID         `gorm:"type:uuid;primaryKey;column:id" json:"id"`
	ActorID     *uuid.UUID        `gorm:"type:uuid;index;column:actor_id" json:"actor_id,omitempty"`
	Action      string            `gorm:"size:40;not null;index;column:action" json:"action"`
	EntityType  string            `gorm:"size:60;not null;index:idx_audit_entity;column:entity_type" json:"entity_type"`
	EntityID    *uuid.UUID        `gorm:"type:uuid;index:idx_audit_entity;column:entity_id" json:"entity_id,omitempty"`
	Description string            `gorm:"type:text;column:description" json:"description"`
	Changes     datatypes.JSONMap `gorm:"column:changes" json:"changes,omitempty"`
	IP          *string           `gorm:"size:64;column:ip" json:"ip,omitempty"`
	UserAgent   *string           `gorm:"column:user_agent" json:"user_agent,omitempty"`
	CreatedAt   time.Time         `gorm:"autoCreateTime;index;column:created_at" json:"created_at"`
}

func (AuditLogModel) TableName() string { return "audit_logs" }

func (m *AuditLogModel) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
