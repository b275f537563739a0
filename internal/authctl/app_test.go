package authctl

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/dbx"
	"github.com/dmitrijs2005/gophauth/internal/server/config"
	"github.com/dmitrijs2005/gophauth/internal/server/keys"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/users"
	"github.com/fatih/color"
	"github.com/go-jose/go-jose/v4"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

type fakeManager struct {
	migrated   bool
	migrateErr error
}

func (f *fakeManager) RunMigrations(context.Context, *sql.DB) error {
	f.migrated = true
	return f.migrateErr
}

func (f *fakeManager) Users(db dbx.DBTX) users.Repository {
	return users.NewPostgresRepository(db)
}

func (f *fakeManager) RefreshTokens(db dbx.DBTX) refreshtokens.Repository {
	return refreshtokens.NewPostgresRepository(db)
}

func newTestApp(t *testing.T) (*App, *bytes.Buffer) {
	t.Helper()
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.BcryptCost = bcrypt.MinCost
	cfg.PrivateKeyPath = filepath.Join(t.TempDir(), "certs", "private.pem")

	out := &bytes.Buffer{}
	a := NewApp(cfg)
	a.out = out
	a.readPassword = func() ([]byte, error) { return []byte("supersecret"), nil }
	a.openDB = func(context.Context, string) (*sql.DB, error) {
		return nil, errors.New("no database in this test")
	}
	return a, out
}

func withMockDB(t *testing.T, a *App) sqlmock.Sqlmock {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	a.openDB = func(context.Context, string) (*sql.DB, error) { return db, nil }
	return mock
}

func TestRun_Usage(t *testing.T) {
	a, out := newTestApp(t)

	require.NoError(t, a.Run(context.Background(), nil))
	for _, name := range []string{"keygen", "jwks", "secret", "migrate", "create-user"} {
		assert.Contains(t, out.String(), name)
	}

	err := a.Run(context.Background(), []string{"rotate-everything"})
	assert.ErrorContains(t, err, `unknown command "rotate-everything"`)
}

func TestSecret(t *testing.T) {
	a, out := newTestApp(t)

	require.NoError(t, a.Run(context.Background(), []string{"secret"}))
	s := strings.TrimSpace(out.String())
	assert.Len(t, s, 2*keys.MinRefreshSecretSz)
	_, err := hex.DecodeString(s)
	assert.NoError(t, err)

	out.Reset()
	require.NoError(t, a.Run(context.Background(), []string{"secret", "-bytes", "48"}))
	assert.Len(t, strings.TrimSpace(out.String()), 96)

	assert.Error(t, a.Run(context.Background(), []string{"secret", "-bytes", "4"}))
}

func TestKeygenThenJWKS(t *testing.T) {
	a, out := newTestApp(t)
	ctx := context.Background()
	path := a.config.PrivateKeyPath

	require.NoError(t, a.Run(ctx, []string{"keygen"}))
	assert.Contains(t, out.String(), "kid: ")

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	_, err = os.Stat(path + ".pub")
	require.NoError(t, err)

	// The loader used by the server accepts what keygen wrote.
	m, err := keys.Load(ctx, keys.FileSource{Path: path}, strings.Repeat("x", keys.MinRefreshSecretSz))
	require.NoError(t, err)

	assert.Error(t, a.Run(ctx, []string{"keygen"}), "existing key must not be overwritten")

	for _, p := range []string{path, path + ".pub"} {
		out.Reset()
		require.NoError(t, a.Run(ctx, []string{"jwks", "-key", p}))

		var set jose.JSONWebKeySet
		require.NoError(t, json.Unmarshal(out.Bytes(), &set), p)
		require.Len(t, set.Keys, 1)
		assert.Equal(t, m.KeyID(), set.Keys[0].KeyID, p)
		assert.True(t, set.Keys[0].IsPublic(), p)
	}
}

func TestJWKS_NotPEM(t *testing.T) {
	a, _ := newTestApp(t)
	p := filepath.Join(t.TempDir(), "junk.pem")
	require.NoError(t, os.WriteFile(p, []byte("not a key"), 0o600))

	assert.ErrorContains(t, a.Run(context.Background(), []string{"jwks", "-key", p}), "no PEM block")
}

func TestMigrate(t *testing.T) {
	a, out := newTestApp(t)
	mock := withMockDB(t, a)
	mock.ExpectClose()
	fm := &fakeManager{}
	a.manager = func() repomanager.RepositoryManager { return fm }

	require.NoError(t, a.Run(context.Background(), []string{"migrate"}))
	assert.True(t, fm.migrated)
	assert.Contains(t, out.String(), "Migrations applied")
	assert.NoError(t, mock.ExpectationsWereMet())

	withMockDB(t, a)
	fm.migrateErr = errors.New("boom")
	assert.ErrorContains(t, a.Run(context.Background(), []string{"migrate"}), "boom")
}

func TestCreateUser(t *testing.T) {
	a, out := newTestApp(t)
	mock := withMockDB(t, a)
	a.manager = func() repomanager.RepositoryManager { return &fakeManager{} }

	mock.ExpectQuery(`INSERT\s+INTO\s+users`).
		WithArgs("Ops", "Team", "ops@example.com", sqlmock.AnyArg(), "manager").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow("7", time.Now()))
	mock.ExpectClose()

	err := a.Run(context.Background(), []string{
		"create-user", "-email", "ops@example.com", "-role", "manager", "-first", "Ops", "-last", "Team",
	})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Created manager ops@example.com (id 7)")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateUser_Rejected(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown role", func(t *testing.T) {
		a, _ := newTestApp(t)
		err := a.Run(ctx, []string{"create-user", "-email", "x@example.com", "-role", "root"})
		assert.ErrorIs(t, err, common.ErrValidation)
	})

	t.Run("bad email", func(t *testing.T) {
		a, _ := newTestApp(t)
		err := a.Run(ctx, []string{"create-user", "-email", "nope"})
		assert.ErrorIs(t, err, common.ErrValidation)
	})

	t.Run("password mismatch", func(t *testing.T) {
		a, _ := newTestApp(t)
		calls := 0
		a.readPassword = func() ([]byte, error) {
			calls++
			return []byte(strings.Repeat("p", 8+calls)), nil
		}
		err := a.Run(ctx, []string{"create-user", "-email", "x@example.com"})
		assert.ErrorContains(t, err, "passwords do not match")
	})

	t.Run("duplicate email", func(t *testing.T) {
		a, _ := newTestApp(t)
		mock := withMockDB(t, a)
		mock.ExpectQuery(`INSERT\s+INTO\s+users`).
			WillReturnError(&pgconn.PgError{Code: "23505"})
		mock.ExpectClose()
		err := a.Run(ctx, []string{"create-user", "-email", "x@example.com"})
		assert.ErrorIs(t, err, common.ErrAlreadyExists)
		assert.ErrorContains(t, err, "x@example.com")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
