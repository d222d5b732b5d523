package dbtime

import (
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/JBFaner/DisasterTraining-sub003/internals/configs"
)

// LocLGU is the locals key for a per-request *time.Location override.
const LocLGU = "lgu_loc"

var (
	locOnce sync.Once
	lguLoc  *time.Location
)

// Location resolves APP_TIMEZONE once, falling back to UTC.
func Location() *time.Location {
	locOnce.Do(func() {
		name := strings.TrimSpace(configs.Conf.AppTimezone)
		if name == "" {
			lguLoc = time.UTC
			return
		}
		loc, err := time.LoadLocation(name)
		if err != nil {
			lguLoc = time.UTC
			return
		}
		lguLoc = loc
	})
	return lguLoc
}

// GetLocation prefers a location set on the request, then Location().
func GetLocation(c *fiber.Ctx) *time.Location {
	if c != nil {
		if loc, ok := c.Locals(LocLGU).(*time.Location); ok && loc != nil {
			return loc
		}
	}
	return Location()
}

// ToLocal converts a stored UTC time for display. Zero stays zero.
func ToLocal(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.In(Location())
}

func ToLocalPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := ToLocal(*t)
	return &v
}

func NowUTC() time.Time { return time.Now().UTC() }

// FormatDate renders a date the way certificates and mails print it.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return ToLocal(t).Format("January 2, 2006")
}
