package social

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// Hasher turns passwords into the opaque hash stored on the user record.
type Hasher interface {
	Hash(password string) (string, error)
	// Compare returns ErrInvalidCredentials when password does not match.
	Compare(hash, password string) error
}

// BcryptHasher is the default Hasher.
type BcryptHasher struct {
	Cost int
}

func (h BcryptHasher) Hash(password string) (string, error) {
	cost := h.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	b, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (h BcryptHasher) Compare(hash, password string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) || errors.Is(err, bcrypt.ErrHashTooShort) {
		return ErrInvalidCredentials
	}
	return err
}
