package controller_test

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/JBFaner/DisasterTraining-sub003/internals/constants"
	certRoute "github.com/JBFaner/DisasterTraining-sub003/internals/features/certificates/route"
	evalModel "github.com/JBFaner/DisasterTraining-sub003/internals/features/evaluations/model"
	simModel "github.com/JBFaner/DisasterTraining-sub003/internals/features/simulations/model"
	userModel "github.com/JBFaner/DisasterTraining-sub003/internals/features/users/users/model"
	"github.com/JBFaner/DisasterTraining-sub003/internals/testutil"
)

func newCertApp(t *testing.T) (*gorm.DB, *fiber.App) {
	t.Helper()
	db := testutil.NewDB(t)
	app := testutil.NewApp()
	g := testutil.MountGroups(app, db)
	certRoute.CertificatePublicRoutes(g.Public, db)
	certRoute.CertificateUserRoutes(g.User, db)
	certRoute.CertificateAdminRoutes(g.Admin, db)
	return db, app
}

// finalizedResult records a finalized evaluation result for u.
func finalizedResult(t *testing.T, db *gorm.DB, ev *simModel.SimulationEventModel, u *userModel.UserModel, pct float64) {
	t.Helper()
	now := time.Now().UTC()
	var e evalModel.EvaluationModel
	err := db.Where("event_id = ?", ev.ID).Take(&e).Error
	if err != nil {
		e = evalModel.EvaluationModel{
			EventID:      ev.ID,
			Title:        "Drill scoring",
			Criteria:     []evalModel.Criterion{{Name: "Overall", Weight: 1, MaxScore: 100}},
			PassingScore: evalModel.DefaultPassingScore,
			Status:       evalModel.EvaluationFinalized,
			FinalizedAt:  &now,
		}
		require.NoError(t, db.Create(&e).Error)
	}
	require.NoError(t, db.Create(&evalModel.ParticipantEvaluationModel{
		EvaluationID: e.ID,
		UserID:       u.ID,
		TotalScore:   pct,
		MaxScore:     100,
		Percentage:   pct,
		Passed:       pct >= e.PassingScore,
	}).Error)
}

func TestIssueAndVerify(t *testing.T) {
	db, app := newCertApp(t)
	mailer := testutil.Mailer(t)
	tok := testutil.Login(t, db, testutil.CreateUser(t, db, constants.RoleTrainer))
	ev := testutil.CreateEvent(t, db, simModel.EventCompleted)
	p := testutil.CreateUser(t, db, constants.RoleParticipant)
	testutil.CreateAttendance(t, db, ev, p, simModel.AttendancePresent)
	stranger := testutil.CreateUser(t, db, constants.RoleParticipant)

	res := testutil.JSON(t, app, http.MethodPost, "/api/admin/certificates",
		map[string]any{"event_id": ev.ID.String(), "user_id": stranger.ID.String()}, tok)
	assert.Equal(t, http.StatusUnprocessableEntity, res.Status, "did not attend")

	res = testutil.JSON(t, app, http.MethodPost, "/api/admin/certificates",
		map[string]any{"event_id": ev.ID.String(), "user_id": p.ID.String()}, tok)
	require.Equal(t, http.StatusCreated, res.Status, string(res.Raw))
	cert := res.Data(t)
	number := cert["number"].(string)
	code := cert["verification_code"].(string)
	assert.Equal(t, "LGU-"+time.Now().UTC().Format("2006")+"-000001", number)
	assert.Contains(t, cert["rendered_html"], p.FullName)

	assert.Eventually(t, func() bool { return len(mailer.Messages()) == 1 }, 2*time.Second, 20*time.Millisecond)
	m, _ := mailer.Last()
	assert.Contains(t, m.Text+m.HTML, number)

	res = testutil.JSON(t, app, http.MethodPost, "/api/admin/certificates",
		map[string]any{"event_id": ev.ID.String(), "user_id": p.ID.String()}, tok)
	require.Equal(t, http.StatusOK, res.Status, "re-issue returns the live certificate")
	assert.Equal(t, number, res.Data(t)["number"])

	res = testutil.JSON(t, app, http.MethodGet, "/api/public/certificates/verify?number="+number+"&code="+strings.ToLower(code), nil, "")
	require.Equal(t, http.StatusOK, res.Status, string(res.Raw))
	assert.Equal(t, true, res.Data(t)["valid"])
	assert.Equal(t, p.FullName, res.Data(t)["recipient_name"])

	res = testutil.JSON(t, app, http.MethodGet, "/api/public/certificates/verify?number="+number+"&code=WRONGCODE0", nil, "")
	assert.Equal(t, http.StatusNotFound, res.Status)

	certID := testutil.ID(t, cert).String()
	res = testutil.JSON(t, app, http.MethodPatch, "/api/admin/certificates/"+certID+"/revoke", map[string]any{"reason": "Issued in error"}, tok)
	require.Equal(t, http.StatusOK, res.Status, string(res.Raw))
	res = testutil.JSON(t, app, http.MethodPatch, "/api/admin/certificates/"+certID+"/revoke", map[string]any{"reason": "Issued in error"}, tok)
	assert.Equal(t, http.StatusConflict, res.Status)

	res = testutil.JSON(t, app, http.MethodGet, "/api/public/certificates/verify?number="+number+"&code="+code, nil, "")
	require.Equal(t, http.StatusOK, res.Status)
	assert.Equal(t, false, res.Data(t)["valid"])
	assert.Equal(t, "Issued in error", res.Data(t)["revoke_reason"])

	res = testutil.JSON(t, app, http.MethodPost, "/api/admin/certificates",
		map[string]any{"event_id": ev.ID.String(), "user_id": p.ID.String()}, tok)
	require.Equal(t, http.StatusCreated, res.Status, "revoked certificates can be replaced")
	assert.Equal(t, "LGU-"+time.Now().UTC().Format("2006")+"-000002", res.Data(t)["number"])

	pTok := testutil.Login(t, db, p)
	res = testutil.JSON(t, app, http.MethodGet, "/api/u/certificates/me", nil, pTok)
	require.Equal(t, http.StatusOK, res.Status)
	assert.Len(t, res.List(t), 2)

	res = testutil.JSON(t, app, http.MethodGet, "/api/u/certificates/me/"+certID, nil, testutil.Login(t, db, stranger))
	assert.Equal(t, http.StatusNotFound, res.Status)
}

func TestIssueRequiresCompletedEvent(t *testing.T) {
	db, app := newCertApp(t)
	tok := testutil.Login(t, db, testutil.CreateUser(t, db, constants.RoleAdmin))
	ev := testutil.CreateEvent(t, db, simModel.EventOngoing)
	p := testutil.CreateUser(t, db, constants.RoleParticipant)
	testutil.CreateAttendance(t, db, ev, p, simModel.AttendancePresent)

	res := testutil.JSON(t, app, http.MethodPost, "/api/admin/certificates",
		map[string]any{"event_id": ev.ID.String(), "user_id": p.ID.String()}, tok)
	assert.Equal(t, http.StatusConflict, res.Status)
}

func TestBulkIssueHonoursEvaluation(t *testing.T) {
	db, app := newCertApp(t)
	tok := testutil.Login(t, db, testutil.CreateUser(t, db, constants.RoleTrainer))
	ev := testutil.CreateEvent(t, db, simModel.EventCompleted)

	passed := testutil.CreateUser(t, db, constants.RoleParticipant)
	failed := testutil.CreateUser(t, db, constants.RoleParticipant)
	unscored := testutil.CreateUser(t, db, constants.RoleParticipant)
	absent := testutil.CreateUser(t, db, constants.RoleParticipant)
	testutil.CreateAttendance(t, db, ev, passed, simModel.AttendancePresent)
	testutil.CreateAttendance(t, db, ev, failed, simModel.AttendanceLate)
	testutil.CreateAttendance(t, db, ev, unscored, simModel.AttendancePresent)
	testutil.CreateAttendance(t, db, ev, absent, simModel.AttendanceAbsent)
	finalizedResult(t, db, ev, passed, 88.5)
	finalizedResult(t, db, ev, failed, 40)

	res := testutil.JSON(t, app, http.MethodPost, "/api/admin/certificate-templates", map[string]any{
		"name":       "Standard",
		"title":      "Certificate of Completion",
		"body":       "**{{.ParticipantName}}** scored {{.Score}} in {{.EventTitle}}",
		"is_default": true,
	}, tok)
	require.Equal(t, http.StatusCreated, res.Status, string(res.Raw))

	res = testutil.JSON(t, app, http.MethodPost, "/api/admin/certificates/bulk", map[string]any{"event_id": ev.ID.String()}, tok)
	require.Equal(t, http.StatusOK, res.Status, string(res.Raw))
	d := res.Data(t)
	issued := d["issued"].([]any)
	require.Len(t, issued, 1)
	assert.Contains(t, issued[0].(map[string]any)["rendered_html"], "88.50%")
	assert.Len(t, d["skipped"], 2)

	res = testutil.JSON(t, app, http.MethodPost, "/api/admin/certificates/bulk", map[string]any{"event_id": ev.ID.String()}, tok)
	require.Equal(t, http.StatusOK, res.Status)
	assert.EqualValues(t, 1, res.Data(t)["existing"])
	assert.Empty(t, res.Data(t)["issued"])

	res = testutil.JSON(t, app, http.MethodGet, "/api/admin/certificates?event_id="+ev.ID.String(), nil, tok)
	require.Equal(t, http.StatusOK, res.Status)
	assert.Len(t, res.List(t), 1)
}

func TestTemplates(t *testing.T) {
	db, app := newCertApp(t)
	tok := testutil.Login(t, db, testutil.CreateUser(t, db, constants.RoleAdmin))

	res := testutil.JSON(t, app, http.MethodPost, "/api/admin/certificate-templates", map[string]any{
		"name": "Broken", "title": "Broken", "body": "Hello {{.Nickname}}",
	}, tok)
	assert.Equal(t, http.StatusUnprocessableEntity, res.Status)

	ids := make([]string, 0, 2)
	for _, name := range []string{"First", "Second"} {
		res = testutil.JSON(t, app, http.MethodPost, "/api/admin/certificate-templates", map[string]any{
			"name": name, "title": "Certificate", "body": "For {{.ParticipantName}}", "is_default": true,
		}, tok)
		require.Equal(t, http.StatusCreated, res.Status, string(res.Raw))
		ids = append(ids, testutil.ID(t, res.Data(t)).String())
	}
	res = testutil.JSON(t, app, http.MethodGet, "/api/admin/certificate-templates", nil, tok)
	require.Equal(t, http.StatusOK, res.Status)
	defaults := 0
	for _, row := range res.List(t) {
		if row.(map[string]any)["is_default"] == true {
			defaults++
			assert.Equal(t, "Second", row.(map[string]any)["name"])
		}
	}
	assert.Equal(t, 1, defaults)

	res = testutil.JSON(t, app, http.MethodGet, "/api/admin/certificate-templates/"+ids[0]+"/preview", nil, tok)
	require.Equal(t, http.StatusOK, res.Status)
	assert.Contains(t, res.Data(t)["html"], "Juan Dela Cruz")

	img := image.NewRGBA(image.Rect(0, 0, 40, 30))
	for x := 0; x < 40; x++ {
		for y := 0; y < 30; y++ {
			img.Set(x, y, color.RGBA{R: 20, G: 90, B: 160, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	res = testutil.Multipart(t, app, http.MethodPost, "/api/admin/certificate-templates/"+ids[0]+"/background",
		nil, "file", "seal.png", buf.Bytes(), tok)
	require.Equal(t, http.StatusOK, res.Status, string(res.Raw))
	assert.True(t, strings.HasSuffix(res.Data(t)["background_url"].(string), ".webp"))

	res = testutil.Multipart(t, app, http.MethodPost, "/api/admin/certificate-templates/"+ids[0]+"/background",
		nil, "file", "notes.txt", []byte("not an image"), tok)
	assert.Equal(t, http.StatusUnsupportedMediaType, res.Status)
}
