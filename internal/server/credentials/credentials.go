// Package credentials hashes and checks user passwords with bcrypt.
package credentials

import (
	"fmt"
	"sync"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"golang.org/x/crypto/bcrypt"
)

const (
	DefaultCost = 10
	MaxCost     = 14

	// bcrypt ignores everything past 72 bytes; longer inputs are refused
	// by GenerateFromPassword.
	maxPasswordBytes = 72
)

// Verifier hashes new passwords and compares candidates against stored
// hashes. It holds no per-user state and is safe for concurrent use.
type Verifier struct {
	cost int

	dummyOnce sync.Once
	dummyHash []byte
}

// NewVerifier returns a Verifier using cost, which must lie in
// [bcrypt.MinCost, MaxCost].
func NewVerifier(cost int) (*Verifier, error) {
	if cost < bcrypt.MinCost || cost > MaxCost {
		return nil, fmt.Errorf("bcrypt cost %d outside [%d, %d]: %w", cost, bcrypt.MinCost, MaxCost, common.ErrConfigurationFatal)
	}
	return &Verifier{cost: cost}, nil
}

func (v *Verifier) Cost() int { return v.cost }

func (v *Verifier) Hash(plaintext string) (string, error) {
	if len(plaintext) > maxPasswordBytes {
		return "", fmt.Errorf("password longer than %d bytes: %w", maxPasswordBytes, common.ErrValidation)
	}
	h, err := bcrypt.GenerateFromPassword([]byte(plaintext), v.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(h), nil
}

// Verify reports whether plaintext matches storedHash. An empty or
// malformed hash never matches, and neither does a plaintext longer than
// bcrypt reads, since only its first 72 bytes would be compared.
func (v *Verifier) Verify(plaintext, storedHash string) bool {
	if storedHash == "" || len(plaintext) > maxPasswordBytes {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(plaintext)) == nil
}

// VerifyDummy spends the same time as a real comparison. Call it when the
// account does not exist so response time does not reveal that.
func (v *Verifier) VerifyDummy(plaintext string) {
	v.dummyOnce.Do(func() {
		// error is impossible for a fixed short input and a validated cost
		v.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("dummy-password-for-timing"), v.cost)
	})
	_ = bcrypt.CompareHashAndPassword(v.dummyHash, []byte(plaintext))
}
