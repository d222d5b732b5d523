package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	EvaluationDraft      = "draft"
	EvaluationInProgress = "in_progress"
	EvaluationFinalized  = "finalized"

	DefaultPassingScore = 75.0
)

// Criterion is one weighted scoring line of an evaluation.
type Criterion struct {
	Name     string  `json:"name" validate:"required,max=120"`
	Weight   float64 `json:"weight" validate:"gt=0"`
	MaxScore float64 `json:"max_score" validate:"gt=0"`
}

type EvaluationModel struct {
	ID           uuid.UUID                      `gorm:"type:uuid;primaryKey;column:id" json:"id"`
	EventID      uuid.UUID                      `gorm:"type:uuid;not null;uniqueIndex:uq_evaluations_event,where:deleted_at IS NULL;column:event_id" json:"event_id"`
	Title        string                         `gorm:"size:200;not null;column:title" json:"title"`
	Criteria     datatypes.JSONSlice[Criterion] `gorm:"column:criteria" json:"criteria"`
	PassingScore float64                        `gorm:"not null;column:passing_score" json:"passing_score"`
	Status       string                         `gorm:"size:20;not null;index;column:status" json:"status"`
	EvaluatorID  *uuid.UUID                     `gorm:"type:uuid;column:evaluator_id" json:"evaluator_id,omitempty"`
	FinalizedAt  *time.Time                     `gorm:"column:finalized_at" json:"finalized_at,omitempty"`

	CreatedAt time.Time      `gorm:"autoCreateTime;column:created_at" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime;column:updated_at" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index;column:deleted_at" json:"-"`
}

func (EvaluationModel) TableName() string { return "evaluations" }

func (m *EvaluationModel) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

func (m *EvaluationModel) IsFinalized() bool { return m.Status == EvaluationFinalized }

// FindCriterion looks a criterion up by name.
func (m *EvaluationModel) FindCriterion(name string) (Criterion, bool) {
	for _, c := range m.Criteria {
		if c.Name == name {
			return c, true
		}
	}
	return Criterion{}, false
}

type ParticipantEvaluationModel struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey;column:id" json:"id"`
	EvaluationID uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:uq_participant_evaluation;column:evaluation_id" json:"evaluation_id"`
	UserID       uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:uq_participant_evaluation;index;column:user_id" json:"user_id"`
	AttendanceID *uuid.UUID `gorm:"type:uuid;column:attendance_id" json:"attendance_id,omitempty"`
	TotalScore   float64    `gorm:"not null;column:total_score" json:"total_score"`
	MaxScore     float64    `gorm:"not null;column:max_score" json:"max_score"`
	Percentage   float64    `gorm:"not null;column:percentage" json:"percentage"`
	Passed       bool       `gorm:"not null;column:passed" json:"passed"`
	Remarks      *string    `gorm:"type:text;column:remarks" json:"remarks,omitempty"`
	EvaluatedBy  *uuid.UUID `gorm:"type:uuid;column:evaluated_by" json:"evaluated_by,omitempty"`
	EvaluatedAt  *time.Time `gorm:"column:evaluated_at" json:"evaluated_at,omitempty"`

	Scores []EvaluationScoreModel `gorm:"foreignKey:ParticipantEvaluationID" json:"scores,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime;column:created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime;column:updated_at" json:"updated_at"`
}

func (ParticipantEvaluationModel) TableName() string { return "participant_evaluations" }

func (m *ParticipantEvaluationModel) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

type EvaluationScoreModel struct {
	ID                      uuid.UUID `gorm:"type:uuid;primaryKey;column:id" json:"id"`
	ParticipantEvaluationID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uq_evaluation_score_criterion;column:participant_evaluation_id" json:"participant_evaluation_id"`
	Criterion               string    `gorm:"size:120;not null;uniqueIndex:uq_evaluation_score_criterion;column:criterion" json:"criterion"`
	Score                   float64   `gorm:"not null;column:score" json:"score"`
	MaxScore                float64   `gorm:"not null;column:max_score" json:"max_score"`
	Weight                  float64   `gorm:"not null;column:weight" json:"weight"`
	Comment                 *string   `gorm:"type:text;column:comment" json:"comment,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime;column:created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime;column:updated_at" json:"updated_at"`
}

func (EvaluationScoreModel) TableName() string { return "evaluation_scores" }

func (m *EvaluationScoreModel) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
