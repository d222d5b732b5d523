package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/bytedance/sonic"
	"google.golang.org/genai"

	"github.com/JBFaner/DisasterTraining-sub003/internals/configs"
	barangayModel "github.com/JBFaner/DisasterTraining-sub003/internals/features/barangays/model"
	"github.com/JBFaner/DisasterTraining-sub003/internals/features/scenarios/dto"
)

var (
	ErrGeneratorUnavailable = errors.New("scenario generation is not configured")
	ErrEmptyDraft           = errors.New("model returned an empty scenario")
)

// Generator turns a prompt into model text.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Model() string
}

type GeminiGenerator struct {
	client *genai.Client
	model  string
}

func NewGeminiGenerator(ctx context.Context, apiKey, model string) (*GeminiGenerator, error) {
	if apiKey == "" {
		return nil, ErrGeneratorUnavailable
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &GeminiGenerator{client: client, model: model}, nil
}

func (g *GeminiGenerator) Model() string { return g.model }

func (g *GeminiGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	temp := float32(0.7)
	res, err := g.client.Models.GenerateContent(ctx, g.model,
		[]*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)},
		&genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(systemInstruction, genai.RoleUser),
			Temperature:       &temp,
			ResponseMIMEType:  "application/json",
		},
	)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	return res.Text(), nil
}

// NewGenerator returns the configured generator. Tests replace it.
var NewGenerator = func(ctx context.Context) (Generator, error) {
	return sharedGemini(ctx, configs.Conf.GeminiAPIKey, configs.Conf.GeminiModel)
}

var gemini struct {
	mu     sync.Mutex
	key    string
	model  string
	client *GeminiGenerator
}

// sharedGemini builds the client on first use and reuses it until the key
// or model changes. A failed build is not cached.
func sharedGemini(ctx context.Context, apiKey, model string) (*GeminiGenerator, error) {
	gemini.mu.Lock()
	defer gemini.mu.Unlock()
	if gemini.client != nil && gemini.key == apiKey && gemini.model == model {
		return gemini.client, nil
	}
	g, err := NewGeminiGenerator(ctx, apiKey, model)
	if err != nil {
		return nil, err
	}
	gemini.key, gemini.model, gemini.client = apiKey, model, g
	return g, nil
}

const systemInstruction = `You design disaster-preparedness drills for Philippine local government units.
Answer with a single JSON object and nothing else, using these keys:
title, description, objectives, setting, duration_minutes,
injects (array of {offset_minutes, title, description, expected_response}),
expected_actions (array of {action, responsible_role, weight}).
Injects are ordered by offset_minutes starting at 0. Weights are between 1 and 10.`

// BuildPrompt describes the requested drill, adding barangay context when known.
func BuildPrompt(req dto.GenerateScenarioRequest, b *barangayModel.BarangayProfileModel) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Create a %s-level %s simulation drill.\n", req.Difficulty, req.HazardType)
	if req.Participants > 0 {
		fmt.Fprintf(&sb, "Expected participants: %d.\n", req.Participants)
	}
	if b != nil {
		fmt.Fprintf(&sb, "Location: Barangay %s, %s", b.Name, b.Municipality)
		if b.Province != "" {
			fmt.Fprintf(&sb, ", %s", b.Province)
		}
		sb.WriteString(".\n")
		if b.Population > 0 {
			fmt.Fprintf(&sb, "Population %d in %d households.\n", b.Population, b.Households)
		}
		if len(b.Hazards) > 0 {
			fmt.Fprintf(&sb, "Known hazards: %s.\n", strings.Join(b.Hazards, ", "))
		}
		if b.EvacuationCenter != nil && *b.EvacuationCenter != "" {
			fmt.Fprintf(&sb, "Evacuation center: %s.\n", *b.EvacuationCenter)
		}
	}
	if req.Notes != "" {
		fmt.Fprintf(&sb, "Organizer notes: %s\n", req.Notes)
	}
	return sb.String()
}

// ParseDraft reads the model's JSON, tolerating a markdown code fence.
func ParseDraft(text string) (*dto.ScenarioDraft, error) {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	}
	var d dto.ScenarioDraft
	if err := sonic.UnmarshalString(strings.TrimSpace(text), &d); err != nil {
		return nil, fmt.Errorf("decode scenario draft: %w", err)
	}
	d.Title = strings.TrimSpace(d.Title)
	if d.Title == "" || strings.TrimSpace(d.Description) == "" {
		return nil, ErrEmptyDraft
	}
	for i := range d.Injects {
		if d.Injects[i].OffsetMinutes < 0 {
			d.Injects[i].OffsetMinutes = 0
		}
	}
	for i := range d.ExpectedActions {
		if d.ExpectedActions[i].Weight <= 0 {
			d.ExpectedActions[i].Weight = 1
		}
	}
	return &d, nil
}
