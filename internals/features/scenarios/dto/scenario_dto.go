package dto

import (
	"strings"

	"github.com/google/uuid"
)

type CreateScenarioRequest struct {
	Title           string   `json:"title" validate:"required,min=3,max=200"`
	HazardType      string   `json:"hazard_type" validate:"required,max=40"`
	Description     string   `json:"description" validate:"required"`
	Objectives      *string  `json:"objectives"`
	Setting         *string  `json:"setting"`
	Difficulty      string   `json:"difficulty" validate:"omitempty,oneof=beginner intermediate advanced"`
	DurationMinutes int      `json:"duration_minutes" validate:"gte=0,lte=10000"`
	HazardTags      []string `json:"hazard_tags" validate:"omitempty,dive,min=2,max=40"`
}

func (r *CreateScenarioRequest) Normalize() {
	r.Title = strings.TrimSpace(r.Title)
	r.HazardType = strings.ToLower(strings.TrimSpace(r.HazardType))
	r.Difficulty = strings.ToLower(strings.TrimSpace(r.Difficulty))
	if r.Difficulty == "" {
		r.Difficulty = "beginner"
	}
	r.HazardTags = NormalizeTags(r.HazardTags)
}

type UpdateScenarioRequest struct {
	Title           *string   `json:"title" validate:"omitempty,min=3,max=200"`
	HazardType      *string   `json:"hazard_type" validate:"omitempty,max=40"`
	Description     *string   `json:"description"`
	Objectives      *string   `json:"objectives"`
	Setting         *string   `json:"setting"`
	Difficulty      *string   `json:"difficulty" validate:"omitempty,oneof=beginner intermediate advanced"`
	DurationMinutes *int      `json:"duration_minutes" validate:"omitempty,gte=0,lte=10000"`
	HazardTags      *[]string `json:"hazard_tags"`
}

type InjectRequest struct {
	OffsetMinutes    int     `json:"offset_minutes" validate:"gte=0,lte=10000"`
	Title            string  `json:"title" validate:"required,min=2,max=200"`
	Description      string  `json:"description"`
	ExpectedResponse *string `json:"expected_response"`
}

type UpdateInjectRequest struct {
	OffsetMinutes    *int    `json:"offset_minutes" validate:"omitempty,gte=0,lte=10000"`
	Title            *string `json:"title" validate:"omitempty,min=2,max=200"`
	Description      *string `json:"description"`
	ExpectedResponse *string `json:"expected_response"`
}

type ActionRequest struct {
	InjectID        *uuid.UUID `json:"inject_id"`
	Action          string     `json:"action" validate:"required,min=2"`
	ResponsibleRole string     `json:"responsible_role" validate:"omitempty,max=80"`
	Weight          float64    `json:"weight" validate:"gte=0,lte=100"`
	SortOrder       int        `json:"sort_order" validate:"gte=0"`
}

type UpdateActionRequest struct {
	InjectID        *uuid.UUID `json:"inject_id"`
	ClearInject     bool       `json:"clear_inject"`
	Action          *string    `json:"action" validate:"omitempty,min=2"`
	ResponsibleRole *string    `json:"responsible_role" validate:"omitempty,max=80"`
	Weight          *float64   `json:"weight" validate:"omitempty,gte=0,lte=100"`
	SortOrder       *int       `json:"sort_order" validate:"omitempty,gte=0"`
}

/* ===============================
   Generation
=================================*/

type GenerateScenarioRequest struct {
	HazardType   string     `json:"hazard_type" validate:"required,max=40"`
	BarangayID   *uuid.UUID `json:"barangay_id"`
	Difficulty   string     `json:"difficulty" validate:"omitempty,oneof=beginner intermediate advanced"`
	Participants int        `json:"participants" validate:"gte=0,lte=10000"`
	Notes        string     `json:"notes" validate:"max=2000"`
	// Save stores the draft as a scenario instead of only returning it.
	Save bool `json:"save"`
}

func (r *GenerateScenarioRequest) Normalize() {
	r.HazardType = strings.ToLower(strings.TrimSpace(r.HazardType))
	r.Difficulty = strings.ToLower(strings.TrimSpace(r.Difficulty))
	if r.Difficulty == "" {
		r.Difficulty = "beginner"
	}
	r.Notes = strings.TrimSpace(r.Notes)
}

// ScenarioDraft is the JSON shape the model is asked to return.
type ScenarioDraft struct {
	Title           string        `json:"title"`
	Description     string        `json:"description"`
	Objectives      string        `json:"objectives"`
	Setting         string        `json:"setting"`
	DurationMinutes int           `json:"duration_minutes"`
	Injects         []DraftInject `json:"injects"`
	ExpectedActions []DraftAction `json:"expected_actions"`
}

type DraftInject struct {
	OffsetMinutes    int    `json:"offset_minutes"`
	Title            string `json:"title"`
	Description      string `json:"description"`
	ExpectedResponse string `json:"expected_response"`
}

type DraftAction struct {
	Action          string  `json:"action"`
	ResponsibleRole string  `json:"responsible_role"`
	Weight          float64 `json:"weight"`
}

// NormalizeTags lowercases, trims and de-duplicates tags.
func NormalizeTags(in []string) []string {
	out := make([]string, 0, len(in))
	seen := map[string]bool{}
	for _, t := range in {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
