package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Template placeholders available to Body.
type TemplateData struct {
	ParticipantName   string
	EventTitle        string
	EventDate         string
	Score             string
	CertificateNumber string
	IssuedDate        string
}

type CertificateTemplateModel struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey;column:id" json:"id"`
	Name          string     `gorm:"size:120;not null;column:name" json:"name"`
	Title         string     `gorm:"size:200;not null;column:title" json:"title"`
	Body          string     `gorm:"type:text;not null;column:body" json:"body"`
	BackgroundURL *string    `gorm:"column:background_url" json:"background_url,omitempty"`
	BackgroundKey *string    `gorm:"column:background_key" json:"-"`
	IsDefault     bool       `gorm:"not null;index;column:is_default" json:"is_default"`
	CreatedBy     *uuid.UUID `gorm:"type:uuid;column:created_by" json:"created_by,omitempty"`

	CreatedAt time.Time      `gorm:"autoCreateTime;column:created_at" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime;column:updated_at" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index;column:deleted_at" json:"-"`
}

func (CertificateTemplateModel) TableName() string { return "certificate_templates" }

func (m *CertificateTemplateModel) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

type CertificateModel struct {
	ID                      uuid.UUID  `gorm:"type:uuid;primaryKey;column:id" json:"id"`
	Number                  string     `gorm:"size:32;not null;uniqueIndex;column:number" json:"number"`
	UserID                  uuid.UUID  `gorm:"type:uuid;not null;index:idx_certificates_user_event;column:user_id" json:"user_id"`
	EventID                 uuid.UUID  `gorm:"type:uuid;not null;index:idx_certificates_user_event;column:event_id" json:"event_id"`
	TemplateID              *uuid.UUID `gorm:"type:uuid;column:template_id" json:"template_id,omitempty"`
	ParticipantEvaluationID *uuid.UUID `gorm:"type:uuid;column:participant_evaluation_id" json:"participant_evaluation_id,omitempty"`
	RecipientName           string     `gorm:"size:120;not null;column:recipient_name" json:"recipient_name"`
	RenderedHTML            string     `gorm:"type:text;column:rendered_html" json:"rendered_html,omitempty"`
	VerificationCode        string     `gorm:"size:16;not null;column:verification_code" json:"verification_code"`
	IssuedAt                time.Time  `gorm:"not null;column:issued_at" json:"issued_at"`
	IssuedBy                *uuid.UUID `gorm:"type:uuid;column:issued_by" json:"issued_by,omitempty"`
	RevokedAt               *time.Time `gorm:"column:revoked_at" json:"revoked_at,omitempty"`
	RevokeReason            *string    `gorm:"type:text;column:revoke_reason" json:"revoke_reason,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime;column:created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime;column:updated_at" json:"updated_at"`
}

func (CertificateModel) TableName() string { return "certificates" }

func (m *CertificateModel) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

func (m *CertificateModel) IsRevoked() bool { return m.RevokedAt != nil }
