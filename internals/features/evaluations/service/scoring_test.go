package service

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JBFaner/DisasterTraining-sub003/internals/features/evaluations/dto"
	"github.com/JBFaner/DisasterTraining-sub003/internals/features/evaluations/model"
)

func TestCalculateScores(t *testing.T) {
	scores := []model.EvaluationScoreModel{
		{Criterion: "Evacuation", Score: 8, MaxScore: 10, Weight: 3},
		{Criterion: "Communication", Score: 3, MaxScore: 5, Weight: 1},
	}
	got := CalculateScores(scores, 75)
	assert.Equal(t, 11.0, got.Total)
	assert.Equal(t, 15.0, got.Max)
	// (0.8*3 + 0.6*1) / 4 * 100
	assert.Equal(t, 75.0, got.Percentage)
	assert.True(t, got.Passed)

	got = CalculateScores(scores, 75.01)
	assert.False(t, got.Passed)

	got = CalculateScores([]model.EvaluationScoreModel{
		{Score: 2, MaxScore: 3, Weight: 1},
	}, 50)
	assert.Equal(t, 66.67, got.Percentage)

	got = CalculateScores(nil, 0)
	assert.Zero(t, got.Percentage)
	assert.True(t, got.Passed)
}

func TestValidateCriteria(t *testing.T) {
	ok := []model.Criterion{{Name: "Triage", Weight: 1, MaxScore: 10}}
	assert.NoError(t, ValidateCriteria(ok))

	cases := map[string][]model.Criterion{
		"empty":       nil,
		"zero weight": {{Name: "Triage", Weight: 0, MaxScore: 10}},
		"zero max":    {{Name: "Triage", Weight: 1, MaxScore: 0}},
		"blank name":  {{Name: " ", Weight: 1, MaxScore: 10}},
		"duplicate":   {{Name: "Triage", Weight: 1, MaxScore: 10}, {Name: "triage", Weight: 2, MaxScore: 5}},
	}
	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, ValidateCriteria(c), ErrInvalidCriteria)
		})
	}
}

func TestCheckScores(t *testing.T) {
	ev := &model.EvaluationModel{Criteria: []model.Criterion{
		{Name: "Triage", Weight: 2, MaxScore: 10},
	}}

	rows, err := CheckScores(ev, []dto.ScoreItem{{Criterion: " Triage ", Score: 10}})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Triage", rows[0].Criterion)
	assert.Equal(t, 2.0, rows[0].Weight)
	assert.Equal(t, 10.0, rows[0].MaxScore)

	_, err = CheckScores(ev, []dto.ScoreItem{{Criterion: "Triage", Score: 10.5}})
	assert.True(t, errors.Is(err, ErrScoreOutOfRange))
	_, err = CheckScores(ev, []dto.ScoreItem{{Criterion: "Triage", Score: -1}})
	assert.True(t, errors.Is(err, ErrScoreOutOfRange))
	_, err = CheckScores(ev, []dto.ScoreItem{{Criterion: "Radio", Score: 1}})
	assert.True(t, errors.Is(err, ErrUnknownCriterion))

	rows, err = CheckScores(ev, []dto.ScoreItem{{Criterion: "Triage", Score: 2}, {Criterion: " Triage", Score: 9}})
	assert.ErrorIs(t, err, ErrDuplicateCriterion)
	assert.Nil(t, rows)
}
