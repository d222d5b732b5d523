package dto

import (
	"strings"

	"github.com/google/uuid"

	userModel "github.com/JBFaner/DisasterTraining-sub003/internals/features/users/users/model"
)

type RegisterRequest struct {
	UserName   string  `json:"user_name" validate:"required,min=3,max=50,alphanum"`
	Email      string  `json:"email" validate:"required,email,max=255"`
	FullName   string  `json:"full_name" validate:"required,max=120"`
	Password   string  `json:"password" validate:"required,password"`
	Phone      *string `json:"phone" validate:"omitempty,max=30"`
	BarangayID *string `json:"barangay_id" validate:"omitempty,uuid"`
}

func (r *RegisterRequest) Normalize() {
	r.UserName = strings.TrimSpace(r.UserName)
	r.Email = NormalizeEmail(r.Email)
	r.FullName = strings.TrimSpace(r.FullName)
}

type LoginRequest struct {
	Identifier string `json:"identifier" validate:"required"`
	Password   string `json:"password" validate:"required"`
}

type VerifyEmailRequest struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"required,len=6,numeric"`
}

type EmailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type VerifyOTPRequest struct {
	ChallengeToken string `json:"challenge_token" validate:"required"`
	Code           string `json:"code" validate:"required,len=6,numeric"`
}

type ChallengeRequest struct {
	ChallengeToken string `json:"challenge_token" validate:"required"`
}

type SSORequest struct {
	Token string `json:"token" validate:"required"`
}

type GoogleLoginRequest struct {
	IDToken string `json:"id_token" validate:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type ResetPasswordRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Code        string `json:"code" validate:"required,len=6,numeric"`
	NewPassword string `json:"new_password" validate:"required,password"`
}

type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,password"`
}

// ChallengeResponse tells the client which login step comes next.
type ChallengeResponse struct {
	Step           string `json:"step"`
	ChallengeToken string `json:"challenge_token"`
	ExpiresIn      int64  `json:"expires_in"`
}

type TokenResponse struct {
	Step         string      `json:"step"`
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	TokenType    string      `json:"token_type"`
	ExpiresIn    int64       `json:"expires_in"`
	User         UserSummary `json:"user"`
}

type UserSummary struct {
	ID             uuid.UUID  `json:"id"`
	UserName       string     `json:"user_name"`
	Email          string     `json:"email"`
	FullName       string     `json:"full_name"`
	Role           string     `json:"role"`
	BarangayID     *uuid.UUID `json:"barangay_id,omitempty"`
	EmailVerified  bool       `json:"email_verified"`
	USBKeyRequired bool       `json:"usb_key_required"`
	USBKeyEnrolled bool       `json:"usb_key_enrolled"`
}

func ToUserSummary(u *userModel.UserModel) UserSummary {
	return UserSummary{
		ID:             u.ID,
		UserName:       u.UserName,
		Email:          u.Email,
		FullName:       u.FullName,
		Role:           u.Role,
		BarangayID:     u.BarangayID,
		EmailVerified:  u.IsEmailVerified(),
		USBKeyRequired: u.USBKeyRequired,
		USBKeyEnrolled: u.USBKeyHash != nil,
	}
}

func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// SSOValidation is the body returned by the central login validator.
type SSOValidation struct {
	Valid bool   `json:"valid"`
	Email string `json:"email"`
	Name  string `json:"name"`
}
