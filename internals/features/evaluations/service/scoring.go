package service

import (
	"fmt"
	"math"
	"strings"

	"github.com/JBFaner/DisasterTraining-sub003/internals/features/evaluations/dto"
	"github.com/JBFaner/DisasterTraining-sub003/internals/features/evaluations/model"
)

// Totals is the aggregate of a participant's criterion scores.
type Totals struct {
	Total      float64
	Max        float64
	Percentage float64
	Passed     bool
}

// CalculateScores sums raw scores and derives a weighted percentage:
// sum(score/max * weight) / sum(weight) * 100, rounded to two decimals.
func CalculateScores(scores []model.EvaluationScoreModel, passing float64) Totals {
	var t Totals
	var weighted, weights float64
	for _, s := range scores {
		t.Total += s.Score
		t.Max += s.MaxScore
		if s.MaxScore > 0 && s.Weight > 0 {
			weighted += s.Score / s.MaxScore * s.Weight
			weights += s.Weight
		}
	}
	if weights > 0 {
		t.Percentage = math.Round(weighted/weights*10000) / 100
	}
	t.Passed = t.Percentage >= passing
	return t
}

// ValidateCriteria requires at least one criterion, unique names and
// positive weights and maxima.
func ValidateCriteria(criteria []model.Criterion) error {
	if len(criteria) == 0 {
		return ErrInvalidCriteria
	}
	seen := map[string]bool{}
	for _, c := range criteria {
		key := strings.ToLower(strings.TrimSpace(c.Name))
		if key == "" || seen[key] || c.Weight <= 0 || c.MaxScore <= 0 {
			return ErrInvalidCriteria
		}
		seen[key] = true
	}
	return nil
}

// CheckScores matches each item to a criterion and keeps it within 0..max.
// A criterion may appear once per submission.
func CheckScores(ev *model.EvaluationModel, items []dto.ScoreItem) ([]model.EvaluationScoreModel, error) {
	out := make([]model.EvaluationScoreModel, 0, len(items))
	seen := make(map[string]bool, len(items))
	for _, it := range items {
		c, ok := ev.FindCriterion(strings.TrimSpace(it.Criterion))
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownCriterion, it.Criterion)
		}
		if seen[c.Name] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateCriterion, c.Name)
		}
		seen[c.Name] = true
		if it.Score < 0 || it.Score > c.MaxScore {
			return nil, fmt.Errorf("%w: %s must be between 0 and %g", ErrScoreOutOfRange, c.Name, c.MaxScore)
		}
		out = append(out, model.EvaluationScoreModel{
			Criterion: c.Name,
			Score:     it.Score,
			MaxScore:  c.MaxScore,
			Weight:    c.Weight,
			Comment:   it.Comment,
		})
	}
	return out, nil
}
