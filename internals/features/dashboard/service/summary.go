package service

import (
	"context"
	"database/sql"
	"math"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	certModel "github.com/JBFaner/DisasterTraining-sub003/internals/features/certificates/model"
	evalModel "github.com/JBFaner/DisasterTraining-sub003/internals/features/evaluations/model"
	resourceModel "github.com/JBFaner/DisasterTraining-sub003/internals/features/resources/model"
	scenarioModel "github.com/JBFaner/DisasterTraining-sub003/internals/features/scenarios/model"
	simModel "github.com/JBFaner/DisasterTraining-sub003/internals/features/simulations/model"
	trainingModel "github.com/JBFaner/DisasterTraining-sub003/internals/features/trainings/model"
	userModel "github.com/JBFaner/DisasterTraining-sub003/internals/features/users/users/model"
)

const UpcomingLimit = 5

type UpcomingEvent struct {
	ID       uuid.UUID `json:"id"`
	Title    string    `json:"title"`
	Location string    `json:"location"`
	StartsAt time.Time `json:"starts_at"`
	Status   string    `json:"status"`
}

type LowStockResource struct {
	ID                uuid.UUID `json:"id"`
	Name              string    `json:"name"`
	Category          string    `json:"category"`
	QuantityTotal     int       `json:"quantity_total"`
	QuantityAvailable int       `json:"quantity_available"`
}

type Summary struct {
	UsersByRole        map[string]int64   `json:"users_by_role"`
	Modules            int64              `json:"training_modules"`
	PublishedModules   int64              `json:"published_modules"`
	PublishedScenarios int64              `json:"published_scenarios"`
	EventsByStatus     map[string]int64   `json:"events_by_status"`
	UpcomingEvents     []UpcomingEvent    `json:"upcoming_events"`
	LowStock           []LowStockResource `json:"low_stock_resources"`
	CertificatesIssued int64              `json:"certificates_issued"`
	AverageEvaluation  float64            `json:"average_evaluation_percentage"`
	GeneratedAt        time.Time          `json:"generated_at"`
}

type groupCount struct {
	Label string
	Total int64
}

// Build runs the summary queries concurrently.
func Build(ctx context.Context, db *gorm.DB, now time.Time) (*Summary, error) {
	s := &Summary{
		UsersByRole:    map[string]int64{},
		EventsByStatus: map[string]int64{},
		UpcomingEvents: []UpcomingEvent{},
		LowStock:       []LowStockResource{},
		GeneratedAt:    now,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var rows []groupCount
		if err := db.WithContext(ctx).Model(&userModel.UserModel{}).
			Select("role AS label, COUNT(*) AS total").
			Where("is_active = ?", true).
			Group("role").Scan(&rows).Error; err != nil {
			return err
		}
		for _, r := range rows {
			s.UsersByRole[r.Label] = r.Total
		}
		return nil
	})
	g.Go(func() error {
		return db.WithContext(ctx).Model(&trainingModel.TrainingModuleModel{}).Count(&s.Modules).Error
	})
	g.Go(func() error {
		return db.WithContext(ctx).Model(&trainingModel.TrainingModuleModel{}).
			Where("is_published = ?", true).Count(&s.PublishedModules).Error
	})
	g.Go(func() error {
		return db.WithContext(ctx).Model(&scenarioModel.ScenarioModel{}).
			Where("status = ?", scenarioModel.StatusPublished).Count(&s.PublishedScenarios).Error
	})
	g.Go(func() error {
		var rows []groupCount
		if err := db.WithContext(ctx).Model(&simModel.SimulationEventModel{}).
			Select("status AS label, COUNT(*) AS total").
			Group("status").Scan(&rows).Error; err != nil {
			return err
		}
		for _, r := range rows {
			s.EventsByStatus[r.Label] = r.Total
		}
		return nil
	})
	g.Go(func() error {
		return db.WithContext(ctx).Model(&simModel.SimulationEventModel{}).
			Select("id", "title", "location", "starts_at", "status").
			Where("status = ? AND starts_at > ?", simModel.EventPublished, now).
			Order("starts_at ASC").
			Limit(UpcomingLimit).
			Scan(&s.UpcomingEvents).Error
	})
	g.Go(func() error {
		return db.WithContext(ctx).Model(&resourceModel.ResourceModel{}).
			Select("id", "name", "category", "quantity_total", "quantity_available").
			Where("status <> ? AND quantity_total > 0 AND quantity_available * 5 <= quantity_total", resourceModel.ResourceRetired).
			Order("quantity_available ASC, name ASC").
			Scan(&s.LowStock).Error
	})
	g.Go(func() error {
		return db.WithContext(ctx).Model(&certModel.CertificateModel{}).
			Where("revoked_at IS NULL").Count(&s.CertificatesIssued).Error
	})
	g.Go(func() error {
		var avg sql.NullFloat64
		if err := db.WithContext(ctx).Model(&evalModel.ParticipantEvaluationModel{}).
			Select("AVG(participant_evaluations.percentage)").
			Joins("JOIN evaluations ON evaluations.id = participant_evaluations.evaluation_id AND evaluations.deleted_at IS NULL").
			Where("evaluations.status = ?", evalModel.EvaluationFinalized).
			Scan(&avg).Error; err != nil {
			return err
		}
		if avg.Valid {
			s.AverageEvaluation = math.Round(avg.Float64*100) / 100
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return s, nil
}
