package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/repomanager"
)

// RotationState is how far a refresh got.
type RotationState int

const (
	RotationNone RotationState = iota
	// RotationVerified: the presented token and its record checked out.
	RotationVerified
	// RotationIssued: a new record exists and new tokens are signed.
	RotationIssued
	// RotationRotated: the old record is gone (or its delete was attempted).
	RotationRotated
	RotationComplete
)

func (s RotationState) String() string {
	switch s {
	case RotationVerified:
		return "verified"
	case RotationIssued:
		return "issued"
	case RotationRotated:
		return "rotated"
	case RotationComplete:
		return "complete"
	}
	return "none"
}

type RotationResult struct {
	State       RotationState
	User        *models.User
	Tokens      *TokenPair
	OldRecordID string
	NewRecordID string
	// Orphaned is set when the old record could not be deleted. It stays
	// usable until it expires.
	Orphaned bool
}

// Rotator exchanges a valid refresh token for a new pair. The new record is
// created before the old one is deleted, so a failure part way never leaves
// the user without a usable token.
type Rotator struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	tokens      Tokens
	log         logging.Logger
}

func NewRotator(db *sql.DB, m repomanager.RepositoryManager, t Tokens, l logging.Logger) *Rotator {
	return &Rotator{db: db, repomanager: m, tokens: t, log: l.With("module", "rotator")}
}

// Rotate returns common.ErrUnauthorized for any unusable token. The result
// is non-nil whenever a state was reached, even on error.
func (r *Rotator) Rotate(ctx context.Context, refreshToken string) (*RotationResult, error) {
	res := &RotationResult{}
	store := r.repomanager.RefreshTokens(r.db)

	claims, old, err := r.tokens.Verifier.VerifyRefreshToken(ctx, refreshToken, store)
	if err != nil {
		if errors.Is(err, common.ErrStoreInvariant) {
			r.log.Error(ctx, "refresh token integrity anomaly", "error", err)
		}
		return res, err
	}
	res.State = RotationVerified
	res.OldRecordID = old.ID

	// the role may have changed since the old token was issued
	user, err := r.repomanager.Users(r.db).GetByID(ctx, claims.Subject)
	if errors.Is(err, common.ErrorNotFound) {
		err = fmt.Errorf("refresh record %s references missing user %s: %w", old.ID, claims.Subject, common.ErrStoreInvariant)
	}
	if err != nil {
		if errors.Is(err, common.ErrStoreInvariant) {
			r.log.Error(ctx, "refresh token integrity anomaly", "error", err)
		}
		return res, err
	}
	res.User = user

	pair, record, err := r.tokens.mint(ctx, store, identityOf(user))
	if err != nil {
		return res, err
	}
	res.State = RotationIssued
	res.NewRecordID = record.ID
	res.Tokens = pair

	if err := store.Delete(ctx, old.ID); err != nil {
		res.Orphaned = true
		r.log.Warn(ctx, "old refresh record left behind", "record_id", old.ID, "user_id", user.ID, "error", err)
	}
	res.State = RotationRotated

	r.log.Debug(ctx, "refresh token rotated", "user_id", user.ID, "old", old.ID, "new", record.ID)
	res.State = RotationComplete
	return res, nil
}
