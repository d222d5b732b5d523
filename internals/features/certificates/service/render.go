package service

import (
	"bytes"
	"crypto/rand"
	"fmt"
	"strconv"
	"strings"
	"text/template"

	"github.com/JBFaner/DisasterTraining-sub003/internals/features/certificates/model"
	helper "github.com/JBFaner/DisasterTraining-sub003/internals/helpers"
)

const NumberPrefix = "LGU"

// MaxSequence is the last number a year can issue; the sequence is six digits.
const MaxSequence = 999999

// DefaultBody is used when no template is chosen and none is marked default.
const DefaultBody = `# Certificate of Participation

This certifies that **{{.ParticipantName}}** took part in
**{{.EventTitle}}** held on {{.EventDate}}.
{{if .Score}}
Evaluation score: {{.Score}}
{{end}}
Certificate No. {{.CertificateNumber}}, issued {{.IssuedDate}}.`

// SampleData fills previews of a template.
var SampleData = model.TemplateData{
	ParticipantName:   "Juan Dela Cruz",
	EventTitle:        "Barangay Earthquake Drill",
	EventDate:         "March 10, 2026",
	Score:             "92.50%",
	CertificateNumber: FormatNumber(2026, 1),
	IssuedDate:        "March 12, 2026",
}

// FormatNumber builds LGU-<year>-<6 digit sequence>.
func FormatNumber(year, seq int) string {
	return fmt.Sprintf("%s-%d-%06d", NumberPrefix, year, seq)
}

// ParseSequence reads the sequence part of a certificate number.
func ParseSequence(number string) (int, bool) {
	parts := strings.Split(number, "-")
	if len(parts) != 3 || parts[0] != NumberPrefix || len(parts[2]) != 6 {
		return 0, false
	}
	for _, r := range parts[2] {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	seq, err := strconv.Atoi(parts[2])
	if err != nil {
		return 0, false
	}
	return seq, true
}

// Render executes the template body and converts the markdown to HTML.
// Unknown placeholders fail instead of rendering empty.
func Render(body string, data model.TemplateData) (string, error) {
	t, err := template.New("certificate").Option("missingkey=error").Parse(body)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidTemplate, err)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidTemplate, err)
	}
	html, err := helper.RenderMarkdown(buf.String())
	if err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return html, nil
}

// CheckTemplate renders the body against sample data.
func CheckTemplate(body string) error {
	_, err := Render(body, SampleData)
	return err
}

const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// NewVerificationCode returns a 10 character code without look-alike symbols.
func NewVerificationCode() string {
	b := make([]byte, 10)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	for i := range b {
		b[i] = codeAlphabet[int(b[i])%len(codeAlphabet)]
	}
	return string(b)
}
