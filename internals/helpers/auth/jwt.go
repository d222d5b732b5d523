package helper

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// AccessClaims is the payload of access and refresh tokens.
// Refresh tokens leave Role and UserName empty.
type AccessClaims struct {
	jwt.RegisteredClaims
	Type     string `json:"typ"`
	Role     string `json:"role,omitempty"`
	UserName string `json:"user_name,omitempty"`
	SID      string `json:"sid,omitempty"`
}

var ErrTokenType = errors.New("unexpected token type")

func SignToken(secret string, claims AccessClaims) (string, error) {
	if secret == "" {
		return "", errors.New("missing signing secret")
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// NewClaims fills the registered claims for userID with a fresh jti.
func NewClaims(typ string, userID, sessionID uuid.UUID, now time.Time, ttl time.Duration) AccessClaims {
	return AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Type: typ,
		SID:  sessionID.String(),
	}
}

// ParseToken verifies signature, expiry and the expected type.
func ParseToken(raw, secret, wantType string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	if !tok.Valid {
		return nil, errors.New("invalid token")
	}
	if wantType != "" && claims.Type != wantType {
		return nil, ErrTokenType
	}
	return claims, nil
}

func (c *AccessClaims) UserID() (uuid.UUID, error) {
	return uuid.Parse(c.Subject)
}

func (c *AccessClaims) SessionID() (uuid.UUID, error) {
	return uuid.Parse(c.SID)
}
