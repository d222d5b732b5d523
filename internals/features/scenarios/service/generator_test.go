package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	barangayModel "github.com/JBFaner/DisasterTraining-sub003/internals/features/barangays/model"
	"github.com/JBFaner/DisasterTraining-sub003/internals/features/scenarios/dto"
	"github.com/JBFaner/DisasterTraining-sub003/internals/features/scenarios/model"
	"github.com/JBFaner/DisasterTraining-sub003/internals/helpers/dbtypes"
)

func TestBuildPrompt(t *testing.T) {
	center := "Tumana Elementary School"
	b := &barangayModel.BarangayProfileModel{
		Name:             "Tumana",
		Municipality:     "Marikina",
		Province:         "Metro Manila",
		Population:       42000,
		Households:       9000,
		Hazards:          dbtypes.StringList{"flood", "earthquake"},
		EvacuationCenter: &center,
	}
	req := dto.GenerateScenarioRequest{HazardType: "flood", Difficulty: "advanced", Participants: 80, Notes: "night-time scenario"}

	p := BuildPrompt(req, b)
	assert.Contains(t, p, "advanced-level flood simulation drill")
	assert.Contains(t, p, "Expected participants: 80.")
	assert.Contains(t, p, "Barangay Tumana, Marikina, Metro Manila.")
	assert.Contains(t, p, "Known hazards: flood, earthquake.")
	assert.Contains(t, p, "Evacuation center: Tumana Elementary School.")
	assert.Contains(t, p, "night-time scenario")

	p = BuildPrompt(dto.GenerateScenarioRequest{HazardType: "fire", Difficulty: "beginner"}, nil)
	assert.NotContains(t, p, "Barangay")
	assert.NotContains(t, p, "participants")
}

func TestParseDraft(t *testing.T) {
	raw := "```json\n" + `{
		"title": " Midnight Flash Flood ",
		"description": "River overflows after 3 hours of rain.",
		"duration_minutes": 120,
		"injects": [{"offset_minutes": -5, "title": "PAGASA red warning"}],
		"expected_actions": [{"action": "Sound the alarm", "responsible_role": "BDRRMC", "weight": 0}]
	}` + "\n```"

	d, err := ParseDraft(raw)
	require.NoError(t, err)
	assert.Equal(t, "Midnight Flash Flood", d.Title)
	assert.Equal(t, 120, d.DurationMinutes)
	require.Len(t, d.Injects, 1)
	assert.Equal(t, 0, d.Injects[0].OffsetMinutes)
	require.Len(t, d.ExpectedActions, 1)
	assert.Equal(t, 1.0, d.ExpectedActions[0].Weight)

	_, err = ParseDraft(`{"title": ""}`)
	assert.ErrorIs(t, err, ErrEmptyDraft)

	_, err = ParseDraft("not json")
	assert.Error(t, err)
}

func TestCanChangeStatus(t *testing.T) {
	assert.True(t, CanChangeStatus(model.StatusDraft, model.StatusPublished))
	assert.True(t, CanChangeStatus(model.StatusPublished, model.StatusArchived))
	assert.True(t, CanChangeStatus(model.StatusArchived, model.StatusDraft))
	assert.False(t, CanChangeStatus(model.StatusArchived, model.StatusPublished))
	assert.False(t, CanChangeStatus(model.StatusPublished, model.StatusPublished))
	assert.False(t, CanChangeStatus(model.StatusPublished, model.StatusDraft))
}

func TestSharedGeminiReusesClient(t *testing.T) {
	ctx := context.Background()

	_, err := sharedGemini(ctx, "", "")
	assert.ErrorIs(t, err, ErrGeneratorUnavailable)

	a, err := sharedGemini(ctx, "test-key", "gemini-2.0-flash")
	require.NoError(t, err)
	b, err := sharedGemini(ctx, "test-key", "gemini-2.0-flash")
	require.NoError(t, err)
	assert.Same(t, a, b)

	c, err := sharedGemini(ctx, "test-key", "gemini-2.5-pro")
	require.NoError(t, err)
	assert.NotSame(t, a, c)
	assert.Equal(t, "gemini-2.5-pro", c.Model())
}
