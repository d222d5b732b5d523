package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/JBFaner/DisasterTraining-sub003/internals/configs"
	authRepo "github.com/JBFaner/DisasterTraining-sub003/internals/features/users/auth/repository"
	helperAuth "github.com/JBFaner/DisasterTraining-sub003/internals/helpers/auth"
)

// retention keeps spent OTPs, challenges and sessions around for a day
// before they are deleted.
const retention = 24 * time.Hour

type CleanupResult struct {
	Blacklist     int64
	OTPCodes      int64
	Challenges    int64
	RefreshTokens int64
	Sessions      int64
}

// RunCleanup deletes expired auth rows. The blacklist keeps rows for
// TOKEN_BLACKLIST_TTL_DAYS after the token expired.
func RunCleanup(ctx context.Context, db *gorm.DB, now time.Time) (CleanupResult, error) {
	var res CleanupResult
	var err error
	db = db.WithContext(ctx)

	ttlDays := configs.Conf.TokenBlacklistTTLDays
	if ttlDays < 0 {
		ttlDays = 0
	}
	if res.Blacklist, err = helperAuth.PurgeBlacklist(ctx, db, now.Add(-time.Duration(ttlDays)*24*time.Hour)); err != nil {
		return res, err
	}
	cutoff := now.Add(-retention)
	if res.OTPCodes, err = authRepo.PurgeOTPCodes(db, cutoff); err != nil {
		return res, err
	}
	if res.Challenges, err = authRepo.PurgeLoginChallenges(db, cutoff); err != nil {
		return res, err
	}
	if res.RefreshTokens, err = authRepo.PurgeRefreshTokens(db, cutoff); err != nil {
		return res, err
	}
	if res.Sessions, err = authRepo.PurgeSessions(db, cutoff); err != nil {
		return res, err
	}
	return res, nil
}

// RegisterCleanupJobs schedules RunCleanup every hour.
func RegisterCleanupJobs(c *cron.Cron, db *gorm.DB) error {
	_, err := c.AddFunc("@every 1h", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		res, err := RunCleanup(ctx, db, time.Now().UTC())
		if err != nil {
			zap.L().Error("auth cleanup failed", zap.Error(err))
			return
		}
		zap.L().Info("auth cleanup finished",
			zap.Int64("blacklist", res.Blacklist),
			zap.Int64("otp_codes", res.OTPCodes),
			zap.Int64("challenges", res.Challenges),
			zap.Int64("refresh_tokens", res.RefreshTokens),
			zap.Int64("sessions", res.Sessions),
		)
	})
	return err
}
