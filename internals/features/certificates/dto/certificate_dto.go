package dto

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type CreateTemplateRequest struct {
	Name      string `json:"name" validate:"required,min=2,max=120"`
	Title     string `json:"title" validate:"required,min=2,max=200"`
	Body      string `json:"body" validate:"required,max=20000"`
	IsDefault bool   `json:"is_default"`
}

func (r *CreateTemplateRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Title = strings.TrimSpace(r.Title)
	r.Body = strings.TrimSpace(r.Body)
}

type UpdateTemplateRequest struct {
	Name      *string `json:"name" validate:"omitempty,min=2,max=120"`
	Title     *string `json:"title" validate:"omitempty,min=2,max=200"`
	Body      *string `json:"body" validate:"omitempty,max=20000"`
	IsDefault *bool   `json:"is_default"`
}

type IssueRequest struct {
	EventID    uuid.UUID  `json:"event_id" validate:"required"`
	UserID     uuid.UUID  `json:"user_id" validate:"required"`
	TemplateID *uuid.UUID `json:"template_id"`
}

type BulkIssueRequest struct {
	EventID    uuid.UUID  `json:"event_id" validate:"required"`
	TemplateID *uuid.UUID `json:"template_id"`
}

type RevokeRequest struct {
	Reason string `json:"reason" validate:"required,min=3,max=1000"`
}

// CertificateRow is a certificate listed with its event.
type CertificateRow struct {
	ID            uuid.UUID  `json:"id"`
	Number        string     `json:"number"`
	UserID        uuid.UUID  `json:"user_id"`
	RecipientName string     `json:"recipient_name"`
	EventID       uuid.UUID  `json:"event_id"`
	EventTitle    string     `json:"event_title"`
	IssuedAt      time.Time  `json:"issued_at"`
	RevokedAt     *time.Time `json:"revoked_at,omitempty"`
}

// VerifyResponse is the public view of a certificate.
type VerifyResponse struct {
	Valid         bool       `json:"valid"`
	Number        string     `json:"number"`
	RecipientName string     `json:"recipient_name"`
	EventTitle    string     `json:"event_title"`
	EventDate     string     `json:"event_date"`
	IssuedAt      time.Time  `json:"issued_at"`
	RevokedAt     *time.Time `json:"revoked_at,omitempty"`
	RevokeReason  *string    `json:"revoke_reason,omitempty"`
}
