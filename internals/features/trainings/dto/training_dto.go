package dto

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JBFaner/DisasterTraining-sub003/internals/features/trainings/model"
)

/* ===============================
   Modules
=================================*/

type CreateModuleRequest struct {
	Title           string  `json:"title" validate:"required,min=3,max=200"`
	Description     *string `json:"description"`
	Category        string  `json:"category" validate:"required,max=60"`
	Difficulty      string  `json:"difficulty" validate:"omitempty,oneof=beginner intermediate advanced"`
	DurationMinutes int     `json:"duration_minutes" validate:"gte=0,lte=10000"`
}

func (r *CreateModuleRequest) Normalize() {
	r.Title = strings.TrimSpace(r.Title)
	r.Category = strings.ToLower(strings.TrimSpace(r.Category))
	r.Difficulty = strings.ToLower(strings.TrimSpace(r.Difficulty))
	if r.Difficulty == "" {
		r.Difficulty = model.DifficultyBeginner
	}
}

type UpdateModuleRequest struct {
	Title           *string `json:"title" validate:"omitempty,min=3,max=200"`
	Description     *string `json:"description"`
	Category        *string `json:"category" validate:"omitempty,max=60"`
	Difficulty      *string `json:"difficulty" validate:"omitempty,oneof=beginner intermediate advanced"`
	DurationMinutes *int    `json:"duration_minutes" validate:"omitempty,gte=0,lte=10000"`
}

type ModuleResponse struct {
	ID              uuid.UUID  `json:"id"`
	Title           string     `json:"title"`
	Slug            string     `json:"slug"`
	Description     *string    `json:"description,omitempty"`
	Category        string     `json:"category"`
	Difficulty      string     `json:"difficulty"`
	DurationMinutes int        `json:"duration_minutes"`
	IsPublished     bool       `json:"is_published"`
	PublishedAt     *time.Time `json:"published_at,omitempty"`
	LessonCount     int        `json:"lesson_count"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`

	Lessons []LessonSummary `json:"lessons,omitempty"`
}

type LessonSummary struct {
	ID              uuid.UUID `json:"id"`
	Title           string    `json:"title"`
	SortOrder       int       `json:"sort_order"`
	DurationMinutes int       `json:"duration_minutes"`
	Completed       *bool     `json:"completed,omitempty"`
}

func ToModuleResponse(m *model.TrainingModuleModel, lessonCount int) ModuleResponse {
	return ModuleResponse{
		ID:              m.ID,
		Title:           m.Title,
		Slug:            m.Slug,
		Description:     m.Description,
		Category:        m.Category,
		Difficulty:      m.Difficulty,
		DurationMinutes: m.DurationMinutes,
		IsPublished:     m.IsPublished,
		PublishedAt:     m.PublishedAt,
		LessonCount:     lessonCount,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}

/* ===============================
   Lessons
=================================*/

type CreateLessonRequest struct {
	Title           string `json:"title" validate:"required,min=2,max=200"`
	Content         string `json:"content"`
	SortOrder       int    `json:"sort_order" validate:"gte=0"`
	DurationMinutes int    `json:"duration_minutes" validate:"gte=0,lte=1440"`
}

type UpdateLessonRequest struct {
	Title           *string `json:"title" validate:"omitempty,min=2,max=200"`
	Content         *string `json:"content"`
	SortOrder       *int    `json:"sort_order" validate:"omitempty,gte=1"`
	DurationMinutes *int    `json:"duration_minutes" validate:"omitempty,gte=0,lte=1440"`
}

type ReorderLessonsRequest struct {
	LessonIDs []uuid.UUID `json:"lesson_ids" validate:"required,min=1"`
}

type LessonDetail struct {
	ID              uuid.UUID                   `json:"id"`
	ModuleID        uuid.UUID                   `json:"module_id"`
	Title           string                      `json:"title"`
	Content         string                      `json:"content"`
	ContentHTML     string                      `json:"content_html"`
	SortOrder       int                         `json:"sort_order"`
	DurationMinutes int                         `json:"duration_minutes"`
	Materials       []model.LessonMaterialModel `json:"materials"`
	Completed       bool                        `json:"completed"`
	CompletedAt     *time.Time                  `json:"completed_at,omitempty"`
}

/* ===============================
   Progress
=================================*/

type ModuleProgress struct {
	ModuleID         uuid.UUID `json:"module_id"`
	Title            string    `json:"title,omitempty"`
	TotalLessons     int64     `json:"total_lessons"`
	CompletedLessons int64     `json:"completed_lessons"`
	Percent          float64   `json:"percent"`
}
