package service

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JBFaner/DisasterTraining-sub003/internals/features/certificates/model"
	"github.com/JBFaner/DisasterTraining-sub003/internals/testutil"
)

func TestNextNumber(t *testing.T) {
	db := testutil.NewDB(t)

	number, err := nextNumber(db, 2026)
	require.NoError(t, err)
	assert.Equal(t, "LGU-2026-000001", number)

	for _, n := range []string{"LGU-2026-000041", "LGU-2025-000900"} {
		require.NoError(t, db.Create(&model.CertificateModel{
			Number: n, UserID: uuid.New(), EventID: uuid.New(),
			RecipientName: "Maria Santos", VerificationCode: NewVerificationCode(), IssuedAt: time.Now(),
		}).Error)
	}
	number, err = nextNumber(db, 2026)
	require.NoError(t, err)
	assert.Equal(t, "LGU-2026-000042", number)

	t.Run("sequence used up", func(t *testing.T) {
		require.NoError(t, db.Create(&model.CertificateModel{
			Number: FormatNumber(2026, MaxSequence), UserID: uuid.New(), EventID: uuid.New(),
			RecipientName: "Juan Dela Cruz", VerificationCode: NewVerificationCode(), IssuedAt: time.Now(),
		}).Error)
		_, err := nextNumber(db, 2026)
		assert.ErrorIs(t, err, ErrNumbersExhausted)
	})
}
