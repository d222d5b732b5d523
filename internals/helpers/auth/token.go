package helper

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

// GetRawAccessToken reads "Authorization: Bearer ..." or the access_token cookie.
func GetRawAccessToken(c *fiber.Ctx) string {
	authHeader := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "bearer ") {
		return strings.TrimSpace(authHeader[7:])
	}
	return strings.TrimSpace(c.Cookies("access_token"))
}

// HashToken is the hex HMAC-SHA256 stored instead of raw tokens.
func HashToken(token, secret string) string {
	m := hmac.New(sha256.New, []byte(secret))
	_, _ = m.Write([]byte(token))
	return hex.EncodeToString(m.Sum(nil))
}

func GetRefreshTokenFromCookie(c *fiber.Ctx) string {
	return strings.TrimSpace(c.Cookies("refresh_token"))
}

// SetAuthCookies mirrors the issued tokens into http-only cookies.
func SetAuthCookies(c *fiber.Ctx, access, refresh string, accessExp, refreshExp time.Time, secure bool) {
	sameSite := fiber.CookieSameSiteLaxMode
	if secure {
		sameSite = fiber.CookieSameSiteNoneMode
	}
	c.Cookie(&fiber.Cookie{
		Name: "access_token", Value: access, Path: "/",
		HTTPOnly: true, Secure: secure, SameSite: sameSite, Expires: accessExp,
	})
	c.Cookie(&fiber.Cookie{
		Name: "refresh_token", Value: refresh, Path: "/",
		HTTPOnly: true, Secure: secure, SameSite: sameSite, Expires: refreshExp,
	})
}

func ClearAuthCookies(c *fiber.Ctx) {
	expired := time.Now().Add(-time.Hour)
	for _, name := range []string{"access_token", "refresh_token"} {
		c.Cookie(&fiber.Cookie{
			Name: name, Value: "", Path: "/", HTTPOnly: true,
			Expires: expired, MaxAge: -1,
		})
	}
}
