package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/keys"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/golang-jwt/jwt/v5"
)

// RecordFinder looks up refresh token records. refreshtokens.Repository
// satisfies it.
type RecordFinder interface {
	Find(ctx context.Context, id string) (*models.RefreshToken, error)
}

// Verifier checks inbound tokens. Every rejection is reported as
// common.ErrUnauthorized; the reason goes to the debug log only.
type Verifier struct {
	keys   *keys.Material
	issuer string
	now    func() time.Time
	log    logging.Logger
}

type VerifierOption func(*Verifier)

func WithExpectedIssuer(name string) VerifierOption {
	return func(v *Verifier) { v.issuer = name }
}

func WithVerifierClock(now func() time.Time) VerifierOption {
	return func(v *Verifier) { v.now = now }
}

func WithLogger(l logging.Logger) VerifierOption {
	return func(v *Verifier) { v.log = l }
}

func NewVerifier(m *keys.Material, opts ...VerifierOption) *Verifier {
	v := &Verifier{
		keys:   m,
		issuer: DefaultIssuer,
		now:    time.Now,
		log:    logging.Nop{},
	}
	for _, o := range opts {
		o(v)
	}
	return v
}

func (v *Verifier) parser(alg string) *jwt.Parser {
	return jwt.NewParser(
		jwt.WithValidMethods([]string{alg}),
		jwt.WithIssuer(v.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(v.now),
	)
}

// VerifyAccessToken validates an RS256 access token. It never touches a
// store.
func (v *Verifier) VerifyAccessToken(token string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	_, err := v.parser(accessMethod.Alg()).ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return v.keys.PublicVerificationKey(), nil
	})
	if err == nil {
		err = checkSchema(claims.Version, claims.Subject, claims.Role)
	}
	if err != nil {
		v.log.Debug(context.Background(), "access token rejected", "reason", err.Error())
		return nil, common.ErrUnauthorized
	}
	return claims, nil
}

// VerifyRefreshToken validates an HS256 refresh token and confirms its record
// still exists. The record is returned so callers can revoke it.
func (v *Verifier) VerifyRefreshToken(ctx context.Context, token string, store RecordFinder) (*RefreshClaims, *models.RefreshToken, error) {
	claims := &RefreshClaims{}
	_, err := v.parser(refreshMethod.Alg()).ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return v.keys.RefreshSecret(), nil
	})
	if err == nil {
		err = checkSchema(claims.Version, claims.Subject, claims.Role)
	}
	if err == nil && claims.ID == "" {
		err = errors.New("missing jti")
	}
	if err != nil {
		v.log.Debug(ctx, "refresh token rejected", "reason", err.Error())
		return nil, nil, common.ErrUnauthorized
	}

	record, err := store.Find(ctx, claims.ID)
	if errors.Is(err, common.ErrorNotFound) {
		v.log.Debug(ctx, "refresh token rejected", "reason", "record revoked or expired", "jti", claims.ID)
		return nil, nil, common.ErrUnauthorized
	}
	if err != nil {
		return nil, nil, err
	}

	if record.UserID != claims.Subject {
		return nil, nil, fmt.Errorf("refresh record %s owned by %s, token subject %s: %w",
			record.ID, record.UserID, claims.Subject, common.ErrStoreInvariant)
	}
	return claims, record, nil
}

func checkSchema(version int, sub string, role models.Role) error {
	switch {
	case version != ClaimsVersion:
		return fmt.Errorf("unknown claims version %d", version)
	case sub == "":
		return errors.New("missing sub")
	case !role.Valid():
		return fmt.Errorf("unknown role %q", role)
	}
	return nil
}
