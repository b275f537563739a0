package services

import (
	"context"
	"crypto/rsa"
	"database/sql"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/dbx"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/dmitrijs2005/gophauth/internal/server/credentials"
	"github.com/dmitrijs2005/gophauth/internal/server/keys"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	refreshtokensrepo "github.com/dmitrijs2005/gophauth/internal/server/repositories/refreshtokens"
	usersrepo "github.com/dmitrijs2005/gophauth/internal/server/repositories/users"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// --- helpers ---

var (
	keyOnce sync.Once
	rsaKey  *rsa.PrivateKey
)

func testMaterial(t *testing.T) *keys.Material {
	t.Helper()
	keyOnce.Do(func() {
		k, err := keys.Generate(keys.MinRSABits)
		if err != nil {
			panic(err)
		}
		rsaKey = k
	})
	m, err := keys.NewMaterial(rsaKey, []byte(strings.Repeat("r", 32)))
	if err != nil {
		t.Fatalf("NewMaterial: %v", err)
	}
	return m
}

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func newTokens(t *testing.T) Tokens {
	t.Helper()
	m := testMaterial(t)
	return Tokens{
		Issuer:     auth.NewIssuer(m),
		Verifier:   auth.NewVerifier(m),
		RefreshTTL: auth.DefaultRefreshTTL,
	}
}

type fixture struct {
	db      *sql.DB
	mock    sqlmock.Sqlmock
	users   *fakeUsersRepo
	refresh *fakeRefreshRepo
	rm      *fakeRepoManager
	tokens  Tokens
	svc     *UserService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, mock := newSQLMockDB(t)
	users := newFakeUsersRepo()
	refresh := newFakeRefreshRepo()
	rm := &fakeRepoManager{u: users, r: refresh}
	passwords, err := credentials.NewVerifier(bcrypt.MinCost)
	if err != nil {
		t.Fatalf("credentials.NewVerifier: %v", err)
	}
	tokens := newTokens(t)
	return &fixture{
		db: db, mock: mock, users: users, refresh: refresh, rm: rm, tokens: tokens,
		svc: NewUserService(db, rm, passwords, tokens, logging.Nop{}),
	}
}

// seedUser stores a user with the given plaintext password.
func (f *fixture) seedUser(t *testing.T, email, password string, role models.Role) *models.User {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	u, err := f.users.Create(context.Background(), &models.User{
		FirstName: "Ram", LastName: "Salunkhe", Email: email, PasswordHash: string(h), Role: role,
	})
	if err != nil {
		t.Fatal(err)
	}
	return u
}

// --- fakes ---

type fakeUsersRepo struct {
	mu     sync.Mutex
	byID   map[string]*models.User
	nextID int

	getErr error
}

func newFakeUsersRepo() *fakeUsersRepo {
	return &fakeUsersRepo{byID: map[string]*models.User{}}
}

func (f *fakeUsersRepo) Create(_ context.Context, u *models.User) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.byID {
		if existing.Email == u.Email {
			return nil, common.ErrAlreadyExists
		}
	}
	f.nextID++
	c := *u
	c.ID = strconv.Itoa(f.nextID)
	c.CreatedAt = time.Now()
	f.byID[c.ID] = &c
	return &c, nil
}

func (f *fakeUsersRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	for _, u := range f.byID {
		if u.Email == email {
			c := *u
			return &c, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeUsersRepo) GetByID(_ context.Context, id string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	u, ok := f.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	c := *u
	return &c, nil
}

type fakeRefreshRepo struct {
	mu      sync.Mutex
	records map[string]*models.RefreshToken

	createErr error
	findErr   error
	deleteErr error
	sweepErr  error
}

func newFakeRefreshRepo() *fakeRefreshRepo {
	return &fakeRefreshRepo{records: map[string]*models.RefreshToken{}}
}

func (f *fakeRefreshRepo) Create(_ context.Context, userID string, expiresAt time.Time) (*models.RefreshToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	rt := &models.RefreshToken{ID: uuid.NewString(), UserID: userID, ExpiresAt: expiresAt, CreatedAt: time.Now()}
	f.records[rt.ID] = rt
	return rt, nil
}

func (f *fakeRefreshRepo) Find(_ context.Context, id string) (*models.RefreshToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findErr != nil {
		return nil, f.findErr
	}
	rt, ok := f.records[id]
	if !ok || rt.Expired(time.Now()) {
		return nil, common.ErrorNotFound
	}
	c := *rt
	return &c, nil
}

func (f *fakeRefreshRepo) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.records, id)
	return nil
}

func (f *fakeRefreshRepo) DeleteByUser(_ context.Context, userID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for id, rt := range f.records {
		if rt.UserID == userID {
			delete(f.records, id)
			n++
		}
	}
	return n, nil
}

func (f *fakeRefreshRepo) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sweepErr != nil {
		return 0, f.sweepErr
	}
	var n int64
	for id, rt := range f.records {
		if rt.Expired(now) {
			delete(f.records, id)
			n++
		}
	}
	return n, nil
}

func (f *fakeRefreshRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.records)
}

type fakeRepoManager struct {
	u *fakeUsersRepo
	r *fakeRefreshRepo
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error        { return nil }
func (m *fakeRepoManager) Users(dbx.DBTX) usersrepo.Repository                 { return m.u }
func (m *fakeRepoManager) RefreshTokens(dbx.DBTX) refreshtokensrepo.Repository { return m.r }
