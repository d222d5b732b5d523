package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserModel is an account of any role. Passwords are bcrypt hashes.
type UserModel struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey;column:id" json:"id"`
	UserName   string     `gorm:"size:50;not null;uniqueIndex:uq_users_user_name,where:deleted_at IS NULL;column:user_name" json:"user_name"`
	Email      string     `gorm:"size:255;not null;uniqueIndex:uq_users_email,where:deleted_at IS NULL;column:email" json:"email"`
	Password   string     `gorm:"not null;column:password" json:"-"`
	FullName   string     `gorm:"size:120;not null;column:full_name" json:"full_name"`
	Phone      *string    `gorm:"size:30;column:phone" json:"phone,omitempty"`
	Role       string     `gorm:"size:20;not null;index;column:role" json:"role"`
	BarangayID *uuid.UUID `gorm:"type:uuid;index;column:barangay_id" json:"barangay_id,omitempty"`
	IsActive   bool       `gorm:"not null;column:is_active" json:"is_active"`

	EmailVerifiedAt *time.Time `gorm:"column:email_verified_at" json:"email_verified_at,omitempty"`

	// second factor: SHA-256 of an enrolled key file
	USBKeyRequired   bool       `gorm:"not null;column:usb_key_required" json:"usb_key_required"`
	USBKeyHash       *string    `gorm:"size:64;column:usb_key_hash" json:"-"`
	USBKeyEnrolledAt *time.Time `gorm:"column:usb_key_enrolled_at" json:"usb_key_enrolled_at,omitempty"`

	GoogleID    *string    `gorm:"size:255;column:google_id" json:"-"`
	LastLoginAt *time.Time `gorm:"column:last_login_at" json:"last_login_at,omitempty"`

	CreatedAt time.Time      `gorm:"autoCreateTime;column:created_at" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime;column:updated_at" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index;column:deleted_at" json:"-"`
}

func (UserModel) TableName() string { return "users" }

func (u *UserModel) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

func (u *UserModel) IsEmailVerified() bool { return u.EmailVerifiedAt != nil }
