package refreshtokens

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/dbx"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/google/uuid"
)

type PostgresRepository struct {
	db    dbx.DBTX
	now   func() time.Time
	newID func() string
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db, now: time.Now, newID: uuid.NewString}
}

func (r *PostgresRepository) Create(ctx context.Context, userID string, expiresAt time.Time) (*models.RefreshToken, error) {
	query := `
		INSERT INTO refresh_tokens (id, user_id, expires_at)
		VALUES ($1, $2, $3)
		RETURNING created_at
	`
	rt := &models.RefreshToken{ID: r.newID(), UserID: userID, ExpiresAt: expiresAt}
	if err := r.db.QueryRowContext(ctx, query, rt.ID, userID, expiresAt).Scan(&rt.CreatedAt); err != nil {
		return nil, dbx.WrapStoreError("create refresh token", err)
	}
	return rt, nil
}

func (r *PostgresRepository) Find(ctx context.Context, id string) (*models.RefreshToken, error) {
	// a malformed id cannot match a uuid column; don't let the cast error
	// surface as a store failure
	if _, err := uuid.Parse(id); err != nil {
		return nil, common.ErrorNotFound
	}

	query := `
		SELECT id, user_id, expires_at, created_at
		FROM refresh_tokens
		WHERE id = $1 AND expires_at > $2
	`
	rt := &models.RefreshToken{}
	err := r.db.QueryRowContext(ctx, query, id, r.now()).Scan(&rt.ID, &rt.UserID, &rt.ExpiresAt, &rt.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, dbx.WrapStoreError("find refresh token", err)
	}
	return rt, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return nil
	}
	if _, err := r.db.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE id = $1`, id); err != nil {
		return dbx.WrapStoreError("delete refresh token", err)
	}
	return nil
}

func (r *PostgresRepository) DeleteByUser(ctx context.Context, userID string) (int64, error) {
	return r.exec(ctx, "delete refresh tokens by user", `DELETE FROM refresh_tokens WHERE user_id = $1`, userID)
}

func (r *PostgresRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	return r.exec(ctx, "delete expired refresh tokens", `DELETE FROM refresh_tokens WHERE expires_at <= $1`, now)
}

func (r *PostgresRepository) exec(ctx context.Context, op, query string, arg any) (int64, error) {
	res, err := r.db.ExecContext(ctx, query, arg)
	if err != nil {
		return 0, dbx.WrapStoreError(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, dbx.WrapStoreError(op, err)
	}
	return n, nil
}
