package wodstrat

import (
	"errors"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// PasswordHasher hashes and verifies account passwords with bcrypt.
type PasswordHasher struct {
	cost      int
	decoy     string
	decoyOnce sync.Once
}

// NewPasswordHasher returns a hasher for the given cost. Costs outside the
// bcrypt range fall back to DefaultPasswordCost.
func NewPasswordHasher(cost int) *PasswordHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultPasswordCost
	}
	return &PasswordHasher{cost: cost}
}

// Cost reports the bcrypt cost in use.
func (h *PasswordHasher) Cost() int {
	return h.cost
}

// Hash returns the bcrypt hash of password.
func (h *PasswordHasher) Hash(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}
	out, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	return string(out), err
}

// Verify returns ErrPasswordMismatch when password does not produce hash.
func (h *PasswordHasher) Verify(password, hash string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrPasswordMismatch
	}
	return err
}

// VerifyDecoy burns the same time as Verify against a hash that no
// password matches. Logins for unknown emails call it.
func (h *PasswordHasher) VerifyDecoy(password string) {
	h.decoyOnce.Do(func() {
		h.decoy, _ = h.Hash(uuid.NewString())
	})
	_ = h.Verify(password, h.decoy)
}
