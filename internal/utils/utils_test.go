package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/netplay-club/internal/model"
)

func TestCallerTokenRoundTrip(t *testing.T) {
	in := model.Caller{Name: "kim", PIN: "1234", Grade: "B", Gender: "F", Admin: true}
	tok, err := NewCallerToken("s3cret", in, time.Hour)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), tok.Exp, time.Minute)

	got, err := ParseCallerToken("s3cret", tok.Token)
	require.NoError(t, err)
	assert.Equal(t, in, got)
}

func TestParseCallerTokenRejects(t *testing.T) {
	good, err := NewCallerToken("s3cret", model.Caller{Name: "kim", PIN: "1"}, time.Hour)
	require.NoError(t, err)
	expired, err := NewCallerToken("s3cret", model.Caller{Name: "kim", PIN: "1"}, -time.Minute)
	require.NoError(t, err)
	nameless, err := NewCallerToken("s3cret", model.Caller{PIN: "1"}, time.Hour)
	require.NoError(t, err)
	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "kim"}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	for name, raw := range map[string]string{
		"wrong secret": good.Token,
		"expired":      expired.Token,
		"no subject":   nameless.Token,
		"alg none":     none,
		"garbage":      "not.a.token",
	} {
		t.Run(name, func(t *testing.T) {
			secret := "s3cret"
			if name == "wrong secret" {
				secret = "other"
			}
			_, err := ParseCallerToken(secret, raw)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestPasscode(t *testing.T) {
	hash, err := HashPasscode("open sesame", bcrypt.MinCost)
	require.NoError(t, err)
	assert.True(t, VerifyPasscode(hash, "open sesame"))
	assert.False(t, VerifyPasscode(hash, "open"))
	assert.False(t, VerifyPasscode("", "open sesame"))

	_, err = HashPasscode("", bcrypt.MinCost)
	assert.ErrorIs(t, err, ErrEmptyPasscode)
}
