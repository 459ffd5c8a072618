package utils

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

var ErrEmptyPasscode = errors.New("passcode must not be empty")

// HashPasscode returns the bcrypt hash stored in ADMIN_PASSCODE_HASH.
func HashPasscode(plain string, cost int) (string, error) {
	if plain == "" {
		return "", ErrEmptyPasscode
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyPasscode reports whether plain matches hash. An empty hash means
// admin login is disabled and never matches.
func VerifyPasscode(hash, plain string) bool {
	if hash == "" || plain == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
