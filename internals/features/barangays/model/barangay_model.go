package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/JBFaner/DisasterTraining-sub003/internals/helpers/dbtypes"
)

type BarangayProfileModel struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey;column:id" json:"id"`
	Name         string    `gorm:"size:120;not null;uniqueIndex:uq_barangay_name_municipality,where:deleted_at IS NULL;column:name" json:"name"`
	Municipality string    `gorm:"size:120;not null;uniqueIndex:uq_barangay_name_municipality,where:deleted_at IS NULL;column:municipality" json:"municipality"`
	Province     string    `gorm:"size:120;column:province" json:"province"`

	CaptainName   *string `gorm:"size:120;column:captain_name" json:"captain_name,omitempty"`
	ContactNumber *string `gorm:"size:30;column:contact_number" json:"contact_number,omitempty"`
	ContactEmail  *string `gorm:"size:255;column:contact_email" json:"contact_email,omitempty"`

	Population int `gorm:"not null;column:population" json:"population"`
	Households int `gorm:"not null;column:households" json:"households"`

	// flood, earthquake, landslide, fire, typhoon, ...
	Hazards dbtypes.StringList `gorm:"column:hazards" json:"hazards"`

	EvacuationCenter *string  `gorm:"size:255;column:evacuation_center" json:"evacuation_center,omitempty"`
	Latitude         *float64 `gorm:"column:latitude" json:"latitude,omitempty"`
	Longitude        *float64 `gorm:"column:longitude" json:"longitude,omitempty"`

	CreatedAt time.Time      `gorm:"autoCreateTime;column:created_at" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime;column:updated_at" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index;column:deleted_at" json:"-"`
}

func (BarangayProfileModel) TableName() string { return "barangay_profiles" }

func (m *BarangayProfileModel) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
