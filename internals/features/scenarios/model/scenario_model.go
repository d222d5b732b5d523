package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/JBFaner/DisasterTraining-sub003/internals/helpers/dbtypes"
)

const (
	StatusDraft     = "draft"
	StatusPublished = "published"
	StatusArchived  = "archived"
)

type ScenarioModel struct {
	ID              uuid.UUID          `gorm:"type:uuid;primaryKey;column:id" json:"id"`
	Title           string             `gorm:"size:200;not null;column:title" json:"title"`
	Slug            string             `gorm:"size:160;not null;uniqueIndex:uq_scenarios_slug,where:deleted_at IS NULL;column:slug" json:"slug"`
	HazardType      string             `gorm:"size:40;not null;index;column:hazard_type" json:"hazard_type"`
	Description     string             `gorm:"type:text;column:description" json:"description"`
	Objectives      *string            `gorm:"type:text;column:objectives" json:"objectives,omitempty"`
	Setting         *string            `gorm:"type:text;column:setting" json:"setting,omitempty"`
	Difficulty      string             `gorm:"size:20;not null;column:difficulty" json:"difficulty"`
	DurationMinutes int                `gorm:"not null;column:duration_minutes" json:"duration_minutes"`
	HazardTags      dbtypes.StringList `gorm:"column:hazard_tags" json:"hazard_tags"`
	Status          string             `gorm:"size:20;not null;index;column:status" json:"status"`

	AIGenerated bool              `gorm:"not null;column:ai_generated" json:"ai_generated"`
	AIMetadata  datatypes.JSONMap `gorm:"column:ai_metadata" json:"ai_metadata,omitempty"`

	CreatedBy *uuid.UUID `gorm:"type:uuid;column:created_by" json:"created_by,omitempty"`

	Injects         []ScenarioInjectModel         `gorm:"foreignKey:ScenarioID" json:"injects,omitempty"`
	ExpectedActions []ScenarioExpectedActionModel `gorm:"foreignKey:ScenarioID" json:"expected_actions,omitempty"`

	CreatedAt time.Time      `gorm:"autoCreateTime;column:created_at" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime;column:updated_at" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index;column:deleted_at" json:"-"`
}

func (ScenarioModel) TableName() string { return "scenarios" }

func (m *ScenarioModel) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// ScenarioInjectModel is a timed message delivered during a drill.
type ScenarioInjectModel struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey;column:id" json:"id"`
	ScenarioID       uuid.UUID `gorm:"type:uuid;not null;index;column:scenario_id" json:"scenario_id"`
	OffsetMinutes    int       `gorm:"not null;column:offset_minutes" json:"offset_minutes"`
	Title            string    `gorm:"size:200;not null;column:title" json:"title"`
	Description      string    `gorm:"type:text;column:description" json:"description"`
	ExpectedResponse *string   `gorm:"type:text;column:expected_response" json:"expected_response,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime;column:created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime;column:updated_at" json:"updated_at"`
}

func (ScenarioInjectModel) TableName() string { return "scenario_injects" }

func (m *ScenarioInjectModel) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

type ScenarioExpectedActionModel struct {
	ID              uuid.UUID  `gorm:"type:uuid;primaryKey;column:id" json:"id"`
	ScenarioID      uuid.UUID  `gorm:"type:uuid;not null;index;column:scenario_id" json:"scenario_id"`
	InjectID        *uuid.UUID `gorm:"type:uuid;index;column:inject_id" json:"inject_id,omitempty"`
	Action          string     `gorm:"type:text;not null;column:action" json:"action"`
	ResponsibleRole string     `gorm:"size:80;column:responsible_role" json:"responsible_role"`
	Weight          float64    `gorm:"not null;column:weight" json:"weight"`
	SortOrder       int        `gorm:"not null;column:sort_order" json:"sort_order"`

	CreatedAt time.Time `gorm:"autoCreateTime;column:created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime;column:updated_at" json:"updated_at"`
}

func (ScenarioExpectedActionModel) TableName() string { return "scenario_expected_actions" }

func (m *ScenarioExpectedActionModel) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
