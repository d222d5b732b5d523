package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	DifficultyBeginner     = "beginner"
	DifficultyIntermediate = "intermediate"
	DifficultyAdvanced     = "advanced"
)

type TrainingModuleModel struct {
	ID              uuid.UUID  `gorm:"type:uuid;primaryKey;column:id" json:"id"`
	Title           string     `gorm:"size:200;not null;column:title" json:"title"`
	Slug            string     `gorm:"size:160;not null;uniqueIndex:uq_training_modules_slug,where:deleted_at IS NULL;column:slug" json:"slug"`
	Description     *string    `gorm:"column:description" json:"description,omitempty"`
	Category        string     `gorm:"size:60;not null;index;column:category" json:"category"`
	Difficulty      string     `gorm:"size:20;not null;column:difficulty" json:"difficulty"`
	DurationMinutes int        `gorm:"not null;column:duration_minutes" json:"duration_minutes"`
	IsPublished     bool       `gorm:"not null;index;column:is_published" json:"is_published"`
	PublishedAt     *time.Time `gorm:"column:published_at" json:"published_at,omitempty"`
	CreatedBy       *uuid.UUID `gorm:"type:uuid;column:created_by" json:"created_by,omitempty"`

	Lessons []TrainingLessonModel `gorm:"foreignKey:ModuleID" json:"lessons,omitempty"`

	CreatedAt time.Time      `gorm:"autoCreateTime;column:created_at" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime;column:updated_at" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index;column:deleted_at" json:"-"`
}

func (TrainingModuleModel) TableName() string { return "training_modules" }

func (m *TrainingModuleModel) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

type TrainingLessonModel struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey;column:id" json:"id"`
	ModuleID        uuid.UUID `gorm:"type:uuid;not null;index:idx_lessons_module_order;column:module_id" json:"module_id"`
	Title           string    `gorm:"size:200;not null;column:title" json:"title"`
	Content         string    `gorm:"type:text;column:content" json:"content"`
	SortOrder       int       `gorm:"not null;index:idx_lessons_module_order;column:sort_order" json:"sort_order"`
	DurationMinutes int       `gorm:"not null;column:duration_minutes" json:"duration_minutes"`

	Materials []LessonMaterialModel `gorm:"foreignKey:LessonID" json:"materials,omitempty"`

	CreatedAt time.Time      `gorm:"autoCreateTime;column:created_at" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime;column:updated_at" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index;column:deleted_at" json:"-"`
}

func (TrainingLessonModel) TableName() string { return "training_lessons" }

func (m *TrainingLessonModel) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

type LessonMaterialModel struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey;column:id" json:"id"`
	LessonID   uuid.UUID  `gorm:"type:uuid;not null;index;column:lesson_id" json:"lesson_id"`
	Title      string     `gorm:"size:200;not null;column:title" json:"title"`
	FileURL    string     `gorm:"not null;column:file_url" json:"file_url"`
	ObjectKey  string     `gorm:"not null;column:object_key" json:"-"`
	FileType   string     `gorm:"size:20;not null;column:file_type" json:"file_type"`
	FileSize   int64      `gorm:"not null;column:file_size" json:"file_size"`
	UploadedBy *uuid.UUID `gorm:"type:uuid;column:uploaded_by" json:"uploaded_by,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime;column:created_at" json:"created_at"`
}

func (LessonMaterialModel) TableName() string { return "lesson_materials" }

func (m *LessonMaterialModel) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

type LessonCompletionModel struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey;column:id" json:"id"`
	LessonID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uq_lesson_completion;column:lesson_id" json:"lesson_id"`
	UserID      uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uq_lesson_completion;index;column:user_id" json:"user_id"`
	CompletedAt time.Time `gorm:"not null;column:completed_at" json:"completed_at"`
}

func (LessonCompletionModel) TableName() string { return "lesson_completions" }

func (m *LessonCompletionModel) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
