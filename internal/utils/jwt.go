package utils // package utils issues and parses caller tokens and hashes the admin passcode

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/iliyamo/netplay-club/internal/model"
)

// CallerToken is a signed identity token together with its expiry.
type CallerToken struct {
	Token string    `json:"token"`
	Exp   time.Time `json:"expires_at"`
}

// CallerClaims carries the flat caller field set. The subject is the name.
type CallerClaims struct {
	PIN    string `json:"pin"`
	Grade  string `json:"grade,omitempty"`
	Gender string `json:"gender,omitempty"`
	Guest  bool   `json:"guest,omitempty"`
	Admin  bool   `json:"admin,omitempty"`
	jwt.RegisteredClaims
}

var ErrInvalidToken = errors.New("invalid caller token")

// NewCallerToken signs an HS256 token for the caller valid for ttl.
func NewCallerToken(secret string, caller model.Caller, ttl time.Duration) (CallerToken, error) {
	now := time.Now().UTC()
	exp := now.Add(ttl)
	claims := CallerClaims{
		PIN:    caller.PIN,
		Grade:  caller.Grade,
		Gender: caller.Gender,
		Guest:  caller.Guest,
		Admin:  caller.Admin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   caller.Name,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return CallerToken{}, err
	}
	return CallerToken{Token: signed, Exp: exp}, nil
}

// ParseCallerToken verifies raw and returns the caller it carries. Only
// HMAC signatures are accepted.
func ParseCallerToken(secret, raw string) (model.Caller, error) {
	var claims CallerClaims
	tok, err := jwt.ParseWithClaims(strings.TrimSpace(raw), &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil || !tok.Valid {
		return model.Caller{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return model.Caller{}, ErrInvalidToken
	}
	return model.Caller{
		Name:   claims.Subject,
		PIN:    claims.PIN,
		Grade:  claims.Grade,
		Gender: claims.Gender,
		Guest:  claims.Guest,
		Admin:  claims.Admin,
	}, nil
}
