package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JBFaner/DisasterTraining-sub003/internals/features/certificates/model"
)

func TestFormatNumber(t *testing.T) {
	assert.Equal(t, "LGU-2026-000042", FormatNumber(2026, 42))

	seq, ok := ParseSequence("LGU-2026-000042")
	require.True(t, ok)
	assert.Equal(t, 42, seq)

	for _, bad := range []string{"", "LGU-2026-42", "ABC-2026-000001", "LGU-2026-00000x"} {
		_, ok := ParseSequence(bad)
		assert.False(t, ok, bad)
	}
}

func TestRender(t *testing.T) {
	html, err := Render(DefaultBody, model.TemplateData{
		ParticipantName:   "Maria Santos",
		EventTitle:        "Fire drill",
		EventDate:         "May 5, 2026",
		CertificateNumber: "LGU-2026-000001",
		IssuedDate:        "May 6, 2026",
	})
	require.NoError(t, err)
	assert.Contains(t, html, "<h1>Certificate of Participation</h1>")
	assert.Contains(t, html, "<strong>Maria Santos</strong>")
	assert.Contains(t, html, "LGU-2026-000001")
	assert.NotContains(t, html, "Evaluation score")

	html, err = Render(DefaultBody, SampleData)
	require.NoError(t, err)
	assert.Contains(t, html, "Evaluation score: 92.50%")
}

func TestCheckTemplate(t *testing.T) {
	assert.NoError(t, CheckTemplate("Awarded to {{.ParticipantName}}"))
	assert.ErrorIs(t, CheckTemplate("Awarded to {{.Nickname}}"), ErrInvalidTemplate)
	assert.ErrorIs(t, CheckTemplate("Awarded to {{.ParticipantName"), ErrInvalidTemplate)
}

func TestNewVerificationCode(t *testing.T) {
	a, b := NewVerificationCode(), NewVerificationCode()
	assert.Len(t, a, 10)
	assert.NotEqual(t, a, b)
	for _, r := range a {
		assert.Contains(t, codeAlphabet, string(r))
	}
}
