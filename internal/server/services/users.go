package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/dbx"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/dmitrijs2005/gophauth/internal/server/credentials"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/repomanager"
)

// ErrInvalidCredentials is returned by Login for an unknown email or a wrong
// password alike.
var ErrInvalidCredentials = fmt.Errorf("email or password does not match: %w", common.ErrUnauthorized)

// UserService provides authentication-related operations:
// - Register: create a customer and start a session
// - Login: verify credentials and start a session
// - Refresh: rotate the refresh token
// - Logout: revoke one or all of a user's refresh tokens
type UserService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	passwords   *credentials.Verifier
	tokens      Tokens
	rotator     *Rotator
	log         logging.Logger
}

func NewUserService(db *sql.DB, m repomanager.RepositoryManager, passwords *credentials.Verifier, t Tokens, l logging.Logger) *UserService {
	return &UserService{
		db:          db,
		repomanager: m,
		passwords:   passwords,
		tokens:      t,
		rotator:     NewRotator(db, m, t, l),
		log:         l.With("module", "users"),
	}
}

// Register creates a customer and its first refresh record in one
// transaction. A taken email yields common.ErrAlreadyExists.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	hash, err := s.passwords.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         models.RoleCustomer,
	}

	var pair *TokenPair
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		created, err := s.repomanager.Users(tx).Create(ctx, user)
		if err != nil {
			return err
		}
		user = created
		pair, _, err = s.tokens.mint(ctx, s.repomanager.RefreshTokens(tx), identityOf(user))
		return err
	})
	if err != nil {
		if !errors.Is(err, common.ErrAlreadyExists) {
			s.log.Error(ctx, "register failed", "error", err)
		}
		return nil, err
	}

	s.log.Info(ctx, "user registered", "user_id", user.ID)
	return &Session{User: user, Tokens: pair}, nil
}

func (s *UserService) Login(ctx context.Context, in LoginInput) (*Session, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	user, err := s.repomanager.Users(s.db).GetByEmail(ctx, in.Email)
	if errors.Is(err, common.ErrorNotFound) {
		s.passwords.VerifyDummy(in.Password)
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if !s.passwords.Verify(in.Password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	pair, _, err := s.tokens.mint(ctx, s.repomanager.RefreshTokens(s.db), identityOf(user))
	if err != nil {
		return nil, err
	}

	s.log.Info(ctx, "user logged in", "user_id", user.ID)
	return &Session{User: user, Tokens: pair}, nil
}

// Self loads the identity behind verified access claims.
func (s *UserService) Self(ctx context.Context, claims *auth.AccessClaims) (*models.User, error) {
	user, err := s.repomanager.Users(s.db).GetByID(ctx, claims.Subject)
	if errors.Is(err, common.ErrorNotFound) {
		return nil, common.ErrUnauthorized
	}
	return user, err
}

// Refresh rotates refreshToken.
func (s *UserService) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	res, err := s.rotator.Rotate(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	return &Session{User: res.User, Tokens: res.Tokens}, nil
}

// Logout revokes the refresh token presented alongside an access token. An
// unusable or foreign refresh token is ignored; logging out is always
// allowed.
func (s *UserService) Logout(ctx context.Context, claims *auth.AccessClaims, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	store := s.repomanager.RefreshTokens(s.db)

	rc, record, err := s.tokens.Verifier.VerifyRefreshToken(ctx, refreshToken, store)
	switch {
	case errors.Is(err, common.ErrUnauthorized):
		return nil
	case err != nil:
		return err
	case rc.Subject != claims.Subject:
		s.log.Warn(ctx, "logout with another user's refresh token", "user_id", claims.Subject)
		return nil
	}

	if err := store.Delete(ctx, record.ID); err != nil {
		return err
	}
	s.log.Info(ctx, "user logged out", "user_id", claims.Subject)
	return nil
}

// LogoutAll revokes every refresh token of the caller.
func (s *UserService) LogoutAll(ctx context.Context, claims *auth.AccessClaims) (int64, error) {
	n, err := s.repomanager.RefreshTokens(s.db).DeleteByUser(ctx, claims.Subject)
	if err != nil {
		return 0, err
	}
	s.log.Info(ctx, "user logged out everywhere", "user_id", claims.Subject, "revoked", n)
	return n, nil
}
