package auth

import (
	"context"
	"crypto/rsa"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/keys"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

var (
	keysOnce sync.Once
	keyA     *rsa.PrivateKey
	keyB     *rsa.PrivateKey
)

func testKeys(t *testing.T) (*rsa.PrivateKey, *rsa.PrivateKey) {
	t.Helper()
	keysOnce.Do(func() {
		var err error
		if keyA, err = keys.Generate(keys.MinRSABits); err != nil {
			panic(err)
		}
		if keyB, err = keys.Generate(keys.MinRSABits); err != nil {
			panic(err)
		}
	})
	return keyA, keyB
}

func newMaterial(t *testing.T, k *rsa.PrivateKey, secret string) *keys.Material {
	t.Helper()
	m, err := keys.NewMaterial(k, []byte(secret))
	if err != nil {
		t.Fatalf("NewMaterial: %v", err)
	}
	return m
}

var (
	secretA = strings.Repeat("a", 32)
	secretB = strings.Repeat("b", 32)
	epoch   = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
)

func fixedClock(t time.Time) func() time.Time { return func() time.Time { return t } }

// fakeStore is an in-memory RecordFinder.
type fakeStore struct {
	records map[string]*models.RefreshToken
	err     error
}

func (s *fakeStore) Find(_ context.Context, id string) (*models.RefreshToken, error) {
	if s.err != nil {
		return nil, s.err
	}
	rt, ok := s.records[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return rt, nil
}

func newFakeStore(records ...*models.RefreshToken) *fakeStore {
	s := &fakeStore{records: map[string]*models.RefreshToken{}}
	for _, r := range records {
		s.records[r.ID] = r
	}
	return s
}
