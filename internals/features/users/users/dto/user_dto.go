package dto

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JBFaner/DisasterTraining-sub003/internals/features/users/users/model"
)

type CreateUserRequest struct {
	UserName   string  `json:"user_name" validate:"required,min=3,max=50,alphanum"`
	Email      string  `json:"email" validate:"required,email,max=255"`
	FullName   string  `json:"full_name" validate:"required,min=2,max=120"`
	Password   string  `json:"password" validate:"required,password"`
	Role       string  `json:"role" validate:"required,oneof=admin trainer evaluator participant"`
	Phone      *string `json:"phone" validate:"omitempty,max=30"`
	BarangayID *string `json:"barangay_id" validate:"omitempty,uuid"`
}

func (r *CreateUserRequest) Normalize() {
	r.UserName = strings.TrimSpace(r.UserName)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.FullName = strings.TrimSpace(r.FullName)
	r.Role = strings.ToLower(strings.TrimSpace(r.Role))
}

// UpdateUserRequest is a partial update; nil fields are left alone.
type UpdateUserRequest struct {
	UserName   *string `json:"user_name" validate:"omitempty,min=3,max=50,alphanum"`
	Email      *string `json:"email" validate:"omitempty,email,max=255"`
	FullName   *string `json:"full_name" validate:"omitempty,min=2,max=120"`
	Role       *string `json:"role" validate:"omitempty,oneof=admin trainer evaluator participant"`
	Phone      *string `json:"phone" validate:"omitempty,max=30"`
	BarangayID *string `json:"barangay_id" validate:"omitempty,uuid"`
}

func (r *UpdateUserRequest) Normalize() {
	trim := func(p *string) {
		if p != nil {
			*p = strings.TrimSpace(*p)
		}
	}
	trim(r.UserName)
	trim(r.FullName)
	trim(r.Phone)
	if r.Email != nil {
		*r.Email = strings.ToLower(strings.TrimSpace(*r.Email))
	}
	if r.Role != nil {
		*r.Role = strings.ToLower(strings.TrimSpace(*r.Role))
	}
}

type UpdateProfileRequest struct {
	FullName   *string `json:"full_name" validate:"omitempty,min=2,max=120"`
	Phone      *string `json:"phone" validate:"omitempty,max=30"`
	BarangayID *string `json:"barangay_id" validate:"omitempty,uuid"`
}

type UserResponse struct {
	ID               uuid.UUID  `json:"id"`
	UserName         string     `json:"user_name"`
	Email            string     `json:"email"`
	FullName         string     `json:"full_name"`
	Phone            *string    `json:"phone,omitempty"`
	Role             string     `json:"role"`
	BarangayID       *uuid.UUID `json:"barangay_id,omitempty"`
	IsActive         bool       `json:"is_active"`
	EmailVerified    bool       `json:"email_verified"`
	USBKeyRequired   bool       `json:"usb_key_required"`
	USBKeyEnrolled   bool       `json:"usb_key_enrolled"`
	USBKeyEnrolledAt *time.Time `json:"usb_key_enrolled_at,omitempty"`
	LastLoginAt      *time.Time `json:"last_login_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

func ToUserResponse(u *model.UserModel) UserResponse {
	return UserResponse{
		ID:               u.ID,
		UserName:         u.UserName,
		Email:            u.Email,
		FullName:         u.FullName,
		Phone:            u.Phone,
		Role:             u.Role,
		BarangayID:       u.BarangayID,
		IsActive:         u.IsActive,
		EmailVerified:    u.IsEmailVerified(),
		USBKeyRequired:   u.USBKeyRequired,
		USBKeyEnrolled:   u.USBKeyHash != nil && *u.USBKeyHash != "",
		USBKeyEnrolledAt: u.USBKeyEnrolledAt,
		LastLoginAt:      u.LastLoginAt,
		CreatedAt:        u.CreatedAt,
		UpdatedAt:        u.UpdatedAt,
	}
}

func ToUserResponses(rows []model.UserModel) []UserResponse {
	out := make([]UserResponse, 0, len(rows))
	for i := range rows {
		out = append(out, ToUserResponse(&rows[i]))
	}
	return out
}
