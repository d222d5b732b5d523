package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type RefreshTokenModel struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey;column:id" json:"id"`
	UserID    uuid.UUID  `gorm:"type:uuid;not null;index;column:user_id" json:"user_id"`
	SessionID *uuid.UUID `gorm:"type:uuid;index;column:session_id" json:"session_id,omitempty"`

	// hex HMAC of the token, never the plaintext
	TokenHash string     `gorm:"size:64;not null;uniqueIndex;column:token_hash" json:"-"`
	ExpiresAt time.Time  `gorm:"not null;column:expires_at" json:"expires_at"`
	RevokedAt *time.Time `gorm:"column:revoked_at" json:"revoked_at,omitempty"`

	UserAgent *string `gorm:"column:user_agent" json:"user_agent,omitempty"`
	IP        *string `gorm:"size:64;column:ip" json:"ip,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime;column:created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime;column:updated_at" json:"updated_at"`
}

func (RefreshTokenModel) TableName() string { return "refresh_tokens" }

func (m *RefreshTokenModel) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// TokenBlacklistModel holds hashes of access tokens revoked before expiry.
type TokenBlacklistModel struct {
	ID        uint      `gorm:"primaryKey;column:id" json:"id"`
	Token     string    `gorm:"size:64;not null;uniqueIndex;column:token" json:"-"`
	ExpiredAt time.Time `gorm:"not null;index;column:expired_at" json:"expired_at"`
	CreatedAt time.Time `gorm:"autoCreateTime;column:created_at" json:"created_at"`
}

func (TokenBlacklistModel) TableName() string { return "token_blacklist" }

/* =========================================================
   One-time codes
========================================================= */

type OTPPurpose string

const (
	OTPPurposeLogin             OTPPurpose = "login"
	OTPPurposeEmailVerification OTPPurpose = "email_verification"
	OTPPurposePasswordReset     OTPPurpose = "password_reset"
)

type OTPCodeModel struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey;column:id" json:"id"`
	UserID     uuid.UUID  `gorm:"type:uuid;not null;index:idx_otp_user_purpose;column:user_id" json:"user_id"`
	Purpose    OTPPurpose `gorm:"size:32;not null;index:idx_otp_user_purpose;column:purpose" json:"purpose"`
	CodeHash   string     `gorm:"not null;column:code_hash" json:"-"`
	ExpiresAt  time.Time  `gorm:"not null;column:expires_at" json:"expires_at"`
	Attempts   int        `gorm:"not null;column:attempts" json:"attempts"`
	ConsumedAt *time.Time `gorm:"column:consumed_at" json:"consumed_at,omitempty"`
	CreatedAt  time.Time  `gorm:"autoCreateTime;column:created_at" json:"created_at"`
}

func (OTPCodeModel) TableName() string { return "otp_codes" }

func (m *OTPCodeModel) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

/* =========================================================
   Login challenges (multi-step login)
========================================================= */

type LoginStage string

const (
	LoginStageOTP    LoginStage = "otp"
	LoginStageUSBKey LoginStage = "usb_key"
)

// LoginChallengeModel is the server side of a challenge_token. Each step
// consumes the row and, when another step follows, opens a new one.
type LoginChallengeModel struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey;column:id" json:"id"`
	UserID     uuid.UUID  `gorm:"type:uuid;not null;index;column:user_id" json:"user_id"`
	TokenHash  string     `gorm:"size:64;not null;uniqueIndex;column:token_hash" json:"-"`
	Stage      LoginStage `gorm:"size:16;not null;column:stage" json:"stage"`
	ExpiresAt  time.Time  `gorm:"not null;column:expires_at" json:"expires_at"`
	ConsumedAt *time.Time `gorm:"column:consumed_at" json:"consumed_at,omitempty"`
	CreatedAt  time.Time  `gorm:"autoCreateTime;column:created_at" json:"created_at"`
}

func (LoginChallengeModel) TableName() string { return "login_challenges" }

func (m *LoginChallengeModel) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

/* =========================================================
   Sessions (inactivity timeout)
========================================================= */

type UserSessionModel struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey;column:id" json:"id"`
	UserID         uuid.UUID  `gorm:"type:uuid;not null;index;column:user_id" json:"user_id"`
	LastActivityAt time.Time  `gorm:"not null;column:last_activity_at" json:"last_activity_at"`
	ExpiresAt      time.Time  `gorm:"not null;column:expires_at" json:"expires_at"`
	RevokedAt      *time.Time `gorm:"column:revoked_at" json:"revoked_at,omitempty"`
	RevokeReason   *string    `gorm:"size:64;column:revoke_reason" json:"revoke_reason,omitempty"`
	IP             *string    `gorm:"size:64;column:ip" json:"ip,omitempty"`
	UserAgent      *string    `gorm:"column:user_agent" json:"user_agent,omitempty"`
	CreatedAt      time.Time  `gorm:"autoCreateTime;column:created_at" json:"created_at"`
}

func (UserSessionModel) TableName() string { return "user_sessions" }

func (m *UserSessionModel) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

func (m *UserSessionModel) IsLive(now time.Time) bool {
	return m.RevokedAt == nil && now.Before(m.ExpiresAt)
}
