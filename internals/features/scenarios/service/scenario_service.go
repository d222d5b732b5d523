package service

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	audit "github.com/JBFaner/DisasterTraining-sub003/internals/features/audit/service"
	barangayModel "github.com/JBFaner/DisasterTraining-sub003/internals/features/barangays/model"
	"github.com/JBFaner/DisasterTraining-sub003/internals/features/scenarios/dto"
	"github.com/JBFaner/DisasterTraining-sub003/internals/features/scenarios/model"
	helper "github.com/JBFaner/DisasterTraining-sub003/internals/helpers"
	helperAuth "github.com/JBFaner/DisasterTraining-sub003/internals/helpers/auth"
	"github.com/JBFaner/DisasterTraining-sub003/internals/helpers/dbtypes"
)

const SlugMaxLen = 160

var validate = helper.NewValidator()

// statusTransitions lists allowed source states per target state.
var statusTransitions = map[string][]string{
	model.StatusPublished: {model.StatusDraft},
	model.StatusArchived:  {model.StatusDraft, model.StatusPublished},
	model.StatusDraft:     {model.StatusArchived},
}

func CanChangeStatus(from, to string) bool {
	for _, s := range statusTransitions[to] {
		if s == from {
			return true
		}
	}
	return false
}

// GenerateScenario asks the model for a drill outline. With save=true the
// outline is stored as a draft scenario and answered with 201.
func GenerateScenario(db *gorm.DB, c *fiber.Ctx) error {
	var req dto.GenerateScenarioRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	req.Normalize()
	if err := helper.Validate(validate, &req); err != nil {
		return err
	}

	ctx := c.UserContext()
	var brgy *barangayModel.BarangayProfileModel
	if req.BarangayID != nil {
		var b barangayModel.BarangayProfileModel
		if err := db.WithContext(ctx).First(&b, "id = ?", *req.BarangayID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return helper.NewFieldError("barangay_id", "barangay not found")
			}
			return helper.DBError(err)
		}
		brgy = &b
	}

	gen, err := NewGenerator(ctx)
	if err != nil {
		if errors.Is(err, ErrGeneratorUnavailable) {
			return fiber.NewError(fiber.StatusServiceUnavailable, "scenario generation is not configured")
		}
		zap.L().Error("generator init failed", zap.Error(err))
		return fiber.NewError(fiber.StatusServiceUnavailable, "scenario generation is unavailable")
	}

	prompt := BuildPrompt(req, brgy)
	text, err := gen.Generate(ctx, prompt)
	if err != nil {
		zap.L().Error("scenario generation failed", zap.String("model", gen.Model()), zap.Error(err))
		return fiber.NewError(fiber.StatusBadGateway, "scenario generation failed")
	}
	draft, err := ParseDraft(text)
	if err != nil {
		zap.L().Warn("unusable scenario draft", zap.String("model", gen.Model()), zap.Error(err))
		return fiber.NewError(fiber.StatusBadGateway, "model returned an unusable scenario")
	}

	if !req.Save {
		return helper.JsonOK(c, "scenario draft generated", draft)
	}

	sum := sha256.Sum256([]byte(prompt))
	meta := map[string]any{
		"model":        gen.Model(),
		"prompt_hash":  hex.EncodeToString(sum[:]),
		"generated_at": time.Now().UTC().Format(time.RFC3339),
		"participants": req.Participants,
	}
	if brgy != nil {
		meta["barangay_id"] = brgy.ID.String()
	}

	sc, err := SaveDraft(db.WithContext(ctx), draft, req, helperAuth.OptionalUserID(c), meta)
	if err != nil {
		return helper.DBError(err)
	}
	audit.Record(c, db, audit.Entry{
		Action:      audit.ActionCreate,
		EntityType:  "scenario",
		EntityID:    sc.ID,
		Description: "generated scenario " + sc.Title,
		Changes:     map[string]any{"ai_generated": true, "model": gen.Model()},
	})
	return helper.JsonCreated(c, "scenario draft saved", sc)
}

// SaveDraft stores a generated outline with its injects and actions.
func SaveDraft(db *gorm.DB, d *dto.ScenarioDraft, req dto.GenerateScenarioRequest, by *uuid.UUID, meta map[string]any) (*model.ScenarioModel, error) {
	var sc model.ScenarioModel
	err := db.Transaction(func(tx *gorm.DB) error {
		slug, err := helper.EnsureUniqueSlug(tx.Statement.Context, tx, "scenarios", "slug", helper.Slugify(d.Title, SlugMaxLen), nil, SlugMaxLen)
		if err != nil {
			return err
		}
		sc = model.ScenarioModel{
			Title:           d.Title,
			Slug:            slug,
			HazardType:      req.HazardType,
			Description:     d.Description,
			Objectives:      optional(d.Objectives),
			Setting:         optional(d.Setting),
			Difficulty:      req.Difficulty,
			DurationMinutes: d.DurationMinutes,
			HazardTags:      dbtypes.StringList{req.HazardType},
			Status:          model.StatusDraft,
			AIGenerated:     true,
			AIMetadata:      datatypes.JSONMap(meta),
			CreatedBy:       by,
		}
		if err := tx.Create(&sc).Error; err != nil {
			return err
		}
		for _, in := range d.Injects {
			row := model.ScenarioInjectModel{
				ScenarioID:       sc.ID,
				OffsetMinutes:    in.OffsetMinutes,
				Title:            strings.TrimSpace(in.Title),
				Description:      in.Description,
				ExpectedResponse: optional(in.ExpectedResponse),
			}
			if row.Title == "" {
				continue
			}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
			sc.Injects = append(sc.Injects, row)
		}
		for i, a := range d.ExpectedActions {
			if strings.TrimSpace(a.Action) == "" {
				continue
			}
			row := model.ScenarioExpectedActionModel{
				ScenarioID:      sc.ID,
				Action:          strings.TrimSpace(a.Action),
				ResponsibleRole: a.ResponsibleRole,
				Weight:          a.Weight,
				SortOrder:       i + 1,
			}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
			sc.ExpectedActions = append(sc.ExpectedActions, row)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &sc, nil
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
