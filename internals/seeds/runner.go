package seeds

import (
	_ "embed"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"

	barangayModel "github.com/JBFaner/DisasterTraining-sub003/internals/features/barangays/model"
	resourceModel "github.com/JBFaner/DisasterTraining-sub003/internals/features/resources/model"
	authHelper "github.com/JBFaner/DisasterTraining-sub003/internals/features/users/auth/helper"
	userModel "github.com/JBFaner/DisasterTraining-sub003/internals/features/users/users/model"
	"github.com/JBFaner/DisasterTraining-sub003/internals/helpers/dbtypes"
)

//go:embed data.yaml
var defaultData []byte

type BarangaySeed struct {
	Name             string   `yaml:"name"`
	Municipality     string   `yaml:"municipality"`
	Province         string   `yaml:"province"`
	Population       int      `yaml:"population"`
	Households       int      `yaml:"households"`
	Hazards          []string `yaml:"hazards"`
	EvacuationCenter string   `yaml:"evacuation_center"`
}

type UserSeed struct {
	UserName string `yaml:"user_name"`
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
	FullName string `yaml:"full_name"`
	Role     string `yaml:"role"`
}

type ResourceSeed struct {
	Name     string `yaml:"name"`
	Category string `yaml:"category"`
	Unit     string `yaml:"unit"`
	Quantity int    `yaml:"quantity"`
	Location string `yaml:"location"`
}

type Data struct {
	Barangays []BarangaySeed `yaml:"barangays"`
	Users     []UserSeed     `yaml:"users"`
	Resources []ResourceSeed `yaml:"resources"`
}

// Result counts inserted rows; existing rows are skipped.
type Result struct {
	Barangays int
	Users     int
	Resources int
}

func Parse(raw []byte) (*Data, error) {
	var d Data
	if err := yaml.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("decode seed data: %w", err)
	}
	return &d, nil
}

// RunAllSeeds loads the bundled seed data.
func RunAllSeeds(db *gorm.DB) (Result, error) {
	d, err := Parse(defaultData)
	if err != nil {
		return Result{}, err
	}
	return Run(db, d)
}

func Run(db *gorm.DB, d *Data) (Result, error) {
	var res Result
	err := db.Transaction(func(tx *gorm.DB) error {
		var err error
		if res.Barangays, err = seedBarangays(tx, d.Barangays); err != nil {
			return err
		}
		if res.Users, err = seedUsers(tx, d.Users); err != nil {
			return err
		}
		res.Resources, err = seedResources(tx, d.Resources)
		return err
	})
	if err != nil {
		return Result{}, err
	}
	zap.L().Info("seed finished",
		zap.Int("barangays", res.Barangays),
		zap.Int("users", res.Users),
		zap.Int("resources", res.Resources),
	)
	return res, nil
}

func seedBarangays(tx *gorm.DB, rows []BarangaySeed) (int, error) {
	n := 0
	for _, s := range rows {
		var count int64
		if err := tx.Model(&barangayModel.BarangayProfileModel{}).
			Where("LOWER(name) = ? AND LOWER(municipality) = ?", strings.ToLower(s.Name), strings.ToLower(s.Municipality)).
			Count(&count).Error; err != nil {
			return n, err
		}
		if count > 0 {
			continue
		}
		b := barangayModel.BarangayProfileModel{
			Name:         s.Name,
			Municipality: s.Municipality,
			Province:     s.Province,
			Population:   s.Population,
			Households:   s.Households,
			Hazards:      dbtypes.StringList(s.Hazards),
		}
		if s.EvacuationCenter != "" {
			ec := s.EvacuationCenter
			b.EvacuationCenter = &ec
		}
		if err := tx.Create(&b).Error; err != nil {
			return n, fmt.Errorf("barangay %s: %w", s.Name, err)
		}
		n++
	}
	return n, nil
}

// seedUsers creates verified active accounts. Existing emails are left alone.
func seedUsers(tx *gorm.DB, rows []UserSeed) (int, error) {
	n := 0
	for _, s := range rows {
		email := strings.ToLower(strings.TrimSpace(s.Email))
		var count int64
		if err := tx.Model(&userModel.UserModel{}).Where("email = ?", email).Count(&count).Error; err != nil {
			return n, err
		}
		if count > 0 {
			zap.L().Info("seed user exists, skipped", zap.String("email", email))
			continue
		}
		hash, err := authHelper.HashPassword(s.Password)
		if err != nil {
			return n, fmt.Errorf("hash password for %s: %w", email, err)
		}
		now := time.Now().UTC()
		u := userModel.UserModel{
			UserName:        s.UserName,
			Email:           email,
			Password:        hash,
			FullName:        s.FullName,
			Role:            s.Role,
			IsActive:        true,
			EmailVerifiedAt: &now,
		}
		if err := tx.Create(&u).Error; err != nil {
			return n, fmt.Errorf("user %s: %w", email, err)
		}
		n++
	}
	return n, nil
}

func seedResources(tx *gorm.DB, rows []ResourceSeed) (int, error) {
	n := 0
	for _, s := range rows {
		var count int64
		if err := tx.Model(&resourceModel.ResourceModel{}).Where("name = ?", s.Name).Count(&count).Error; err != nil {
			return n, err
		}
		if count > 0 {
			continue
		}
		r := resourceModel.ResourceModel{
			Name:              s.Name,
			Category:          s.Category,
			Unit:              s.Unit,
			QuantityTotal:     s.Quantity,
			QuantityAvailable: s.Quantity,
			Status:            resourceModel.ResourceAvailable,
		}
		if s.Location != "" {
			loc := s.Location
			r.Location = &loc
		}
		if err := tx.Create(&r).Error; err != nil {
			return n, fmt.Errorf("resource %s: %w", s.Name, err)
		}
		n++
	}
	return n, nil
}
