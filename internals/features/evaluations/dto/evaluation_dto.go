package dto

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JBFaner/DisasterTraining-sub003/internals/features/evaluations/model"
)

type CreateEvaluationRequest struct {
	EventID      uuid.UUID         `json:"event_id" validate:"required"`
	Title        string            `json:"title" validate:"required,min=3,max=200"`
	Criteria     []model.Criterion `json:"criteria" validate:"required,min=1,max=50,dive"`
	PassingScore *float64          `json:"passing_score" validate:"omitempty,gte=0,lte=100"`
}

func (r *CreateEvaluationRequest) Normalize() {
	r.Title = strings.TrimSpace(r.Title)
	r.Criteria = NormalizeCriteria(r.Criteria)
}

type UpdateEvaluationRequest struct {
	Title        *string            `json:"title" validate:"omitempty,min=3,max=200"`
	Criteria     *[]model.Criterion `json:"criteria" validate:"omitempty,min=1,max=50,dive"`
	PassingScore *float64           `json:"passing_score" validate:"omitempty,gte=0,lte=100"`
	EvaluatorID  *uuid.UUID         `json:"evaluator_id"`
}

type ScoreItem struct {
	Criterion string  `json:"criterion" validate:"required,max=120"`
	Score     float64 `json:"score"`
	Comment   *string `json:"comment" validate:"omitempty,max=2000"`
}

type SubmitScoresRequest struct {
	UserID  uuid.UUID   `json:"user_id" validate:"required"`
	Scores  []ScoreItem `json:"scores" validate:"required,min=1,max=50,dive"`
	Remarks *string     `json:"remarks" validate:"omitempty,max=2000"`
}

// ResultResponse is a participant result with user details.
type ResultResponse struct {
	ID          uuid.UUID  `json:"id"`
	UserID      uuid.UUID  `json:"user_id"`
	UserName    string     `json:"user_name"`
	FullName    string     `json:"full_name"`
	TotalScore  float64    `json:"total_score"`
	MaxScore    float64    `json:"max_score"`
	Percentage  float64    `json:"percentage"`
	Passed      bool       `json:"passed"`
	Remarks     *string    `json:"remarks,omitempty"`
	EvaluatedAt *time.Time `json:"evaluated_at,omitempty"`
}

// MyResultResponse is what a participant sees about their own result.
type MyResultResponse struct {
	EvaluationID    uuid.UUID `json:"evaluation_id"`
	EvaluationTitle string    `json:"evaluation_title"`
	EventID         uuid.UUID `json:"event_id"`
	EventTitle      string    `json:"event_title"`
	TotalScore      float64   `json:"total_score"`
	MaxScore        float64   `json:"max_score"`
	Percentage      float64   `json:"percentage"`
	PassingScore    float64   `json:"passing_score"`
	Passed          bool      `json:"passed"`
	Remarks         *string   `json:"remarks,omitempty"`
}

// ParticipantRow lists an attendee of the evaluated event and whether
// they have been scored yet.
type ParticipantRow struct {
	UserID           uuid.UUID  `json:"user_id"`
	FullName         string     `json:"full_name"`
	AttendanceStatus string     `json:"attendance_status"`
	ResultID         *uuid.UUID `json:"result_id,omitempty"`
	Percentage       *float64   `json:"percentage,omitempty"`
	Passed           *bool      `json:"passed,omitempty"`
}

// NormalizeCriteria trims criterion names.
func NormalizeCriteria(in []model.Criterion) []model.Criterion {
	out := make([]model.Criterion, len(in))
	for i, c := range in {
		c.Name = strings.TrimSpace(c.Name)
		out[i] = c
	}
	return out
}
