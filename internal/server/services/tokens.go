// Package services contains server-side business logic: registration,
// login, refresh token rotation, logout and the expired record janitor.
package services

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/refreshtokens"
)

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// Session is what a successful register, login or refresh hands back.
type Session struct {
	User   *models.User
	Tokens *TokenPair
}

// Tokens groups what every token-issuing operation needs.
type Tokens struct {
	Issuer     *auth.Issuer
	Verifier   *auth.Verifier
	RefreshTTL time.Duration
	Now        func() time.Time
}

func (t Tokens) now() time.Time {
	if t.Now != nil {
		return t.Now()
	}
	return time.Now()
}

// mint persists a new refresh record in store and signs both tokens for id.
func (t Tokens) mint(ctx context.Context, store refreshtokens.Repository, id auth.Identity) (*TokenPair, *models.RefreshToken, error) {
	record, err := store.Create(ctx, id.UserID, t.now().Add(t.RefreshTTL))
	if err != nil {
		return nil, nil, fmt.Errorf("persist refresh token: %w", err)
	}

	access, err := t.Issuer.IssueAccessToken(id)
	if err != nil {
		return nil, nil, err
	}
	refresh, err := t.Issuer.IssueRefreshToken(id, record)
	if err != nil {
		return nil, nil, err
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, record, nil
}

func identityOf(u *models.User) auth.Identity {
	return auth.Identity{UserID: u.ID, Role: u.Role}
}
