package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// DefaultPasswordCost is the bcrypt work factor for admin passwords.
const DefaultPasswordCost = 12

// ErrPasswordMismatch is returned by Verify for a wrong password. Any other
// Verify error means the stored hash itself is unusable.
var ErrPasswordMismatch = errors.New("auth: invalid password")

// PasswordService hashes and checks admin passwords with bcrypt.
type PasswordService struct {
	cost int
}

// NewPasswordService returns a service using DefaultPasswordCost.
func NewPasswordService() *PasswordService {
	return &PasswordService{cost: DefaultPasswordCost}
}

// NewPasswordServiceWithCost lets tests in other packages use
// bcrypt.MinCost.
func NewPasswordServiceWithCost(cost int) *PasswordService {
	return &PasswordService{cost: cost}
}

// Hash returns the bcrypt hash of plaintext. Inputs over 72 bytes are
// rejected rather than silently truncated.
func (p *PasswordService) Hash(plaintext string) (string, error) {
	if len(plaintext) > 72 {
		return "", fmt.Errorf("auth: password must be 72 bytes or fewer")
	}
	if plaintext == "" {
		return "", fmt.Errorf("auth: password must not be empty")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), p.cost)
	if err != nil {
		return "", fmt.Errorf("auth: hashing password: %w", err)
	}
	return string(hashed), nil
}

// Verify reports whether plaintext matches hash.
func (p *PasswordService) Verify(hash, plaintext string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrPasswordMismatch
		}
		return fmt.Errorf("auth: comparing password hash: %w", err)
	}
	return nil
}
