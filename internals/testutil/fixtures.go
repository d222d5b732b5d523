package testutil

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	barangayModel "github.com/JBFaner/DisasterTraining-sub003/internals/features/barangays/model"
	scenarioModel "github.com/JBFaner/DisasterTraining-sub003/internals/features/scenarios/model"
	simModel "github.com/JBFaner/DisasterTraining-sub003/internals/features/simulations/model"
	userModel "github.com/JBFaner/DisasterTraining-sub003/internals/features/users/users/model"
)

func CreateBarangay(t *testing.T, db *gorm.DB, name string) *barangayModel.BarangayProfileModel {
	t.Helper()
	b := &barangayModel.BarangayProfileModel{
		Name:         name,
		Municipality: "San Mateo",
		Province:     "Rizal",
		Population:   1200,
		Households:   300,
		Hazards:      []string{"flood"},
	}
	require.NoError(t, db.Create(b).Error)
	return b
}

func CreateScenario(t *testing.T, db *gorm.DB, status string) *scenarioModel.ScenarioModel {
	t.Helper()
	s := &scenarioModel.ScenarioModel{
		Title:           "Flash flood drill",
		Slug:            fmt.Sprintf("flash-flood-%s", uuid.NewString()[:8]),
		HazardType:      "flood",
		Description:     "River overflow after heavy rain.",
		Difficulty:      "beginner",
		DurationMinutes: 90,
		Status:          status,
	}
	require.NoError(t, db.Create(s).Error)
	return s
}

type EventOpt func(*simModel.SimulationEventModel)

func WithCapacity(n int) EventOpt {
	return func(e *simModel.SimulationEventModel) { e.Capacity = n }
}

func WithWindow(start, end time.Time) EventOpt {
	return func(e *simModel.SimulationEventModel) {
		e.StartsAt = start.UTC()
		e.EndsAt = end.UTC()
	}
}

func WithDeadline(d time.Time) EventOpt {
	return func(e *simModel.SimulationEventModel) {
		d = d.UTC()
		e.RegistrationDeadline = &d
	}
}

// CreateEvent inserts an event starting tomorrow for two hours unless overridden.
func CreateEvent(t *testing.T, db *gorm.DB, status string, opts ...EventOpt) *simModel.SimulationEventModel {
	t.Helper()
	sc := CreateScenario(t, db, scenarioModel.StatusPublished)
	start := time.Now().UTC().Add(24 * time.Hour).Truncate(time.Second)
	e := &simModel.SimulationEventModel{
		Title:      "Barangay flood drill",
		ScenarioID: sc.ID,
		Location:   "Covered court",
		StartsAt:   start,
		EndsAt:     start.Add(2 * time.Hour),
		Status:     status,
	}
	for _, o := range opts {
		o(e)
	}
	require.NoError(t, db.Create(e).Error)
	return e
}

func CreateRegistration(t *testing.T, db *gorm.DB, event *simModel.SimulationEventModel, u *userModel.UserModel, status string) *simModel.EventRegistrationModel {
	t.Helper()
	r := &simModel.EventRegistrationModel{
		EventID:      event.ID,
		UserID:       u.ID,
		Status:       status,
		RegisteredAt: time.Now().UTC(),
	}
	require.NoError(t, db.Create(r).Error)
	return r
}

// CreateAttendance registers u as approved and records status.
func CreateAttendance(t *testing.T, db *gorm.DB, event *simModel.SimulationEventModel, u *userModel.UserModel, status string) *simModel.AttendanceModel {
	t.Helper()
	reg := CreateRegistration(t, db, event, u, simModel.RegistrationApproved)
	now := time.Now().UTC()
	a := &simModel.AttendanceModel{
		RegistrationID: reg.ID,
		EventID:        event.ID,
		UserID:         u.ID,
		Status:         status,
	}
	if simModel.Attended(status) {
		a.CheckedInAt = &now
	}
	require.NoError(t, db.Create(a).Error)
	return a
}
