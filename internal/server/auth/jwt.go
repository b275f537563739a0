// Package auth mints and checks the service's tokens.
//
// Access tokens are RS256 JWTs verified with the public key alone; refresh
// tokens are HS256 JWTs whose jti names a server-side record. The two paths
// never accept each other's algorithm.
package auth

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/keys"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/golang-jwt/jwt/v5"
)

// ClaimsVersion is bumped whenever the claim layout changes.
const ClaimsVersion = 1

const (
	DefaultIssuer     = "auth-service"
	DefaultAccessTTL  = time.Hour
	DefaultRefreshTTL = 365 * 24 * time.Hour
)

var (
	accessMethod  = jwt.SigningMethodRS256
	refreshMethod = jwt.SigningMethodHS256
)

// Identity is the verified subject tokens are issued for.
type Identity struct {
	UserID string
	Role   models.Role
}

type AccessClaims struct {
	Role    models.Role `json:"role"`
	Version int         `json:"v"`
	jwt.RegisteredClaims
}

// RefreshClaims carries the record id in the registered jti claim.
type RefreshClaims struct {
	Role    models.Role `json:"role"`
	Version int         `json:"v"`
	jwt.RegisteredClaims
}

func (c *AccessClaims) Identity() Identity  { return Identity{UserID: c.Subject, Role: c.Role} }
func (c *RefreshClaims) Identity() Identity { return Identity{UserID: c.Subject, Role: c.Role} }

type Issuer struct {
	keys      *keys.Material
	issuer    string
	accessTTL time.Duration
	now       func() time.Time
}

type IssuerOption func(*Issuer)

func WithIssuerName(name string) IssuerOption {
	return func(i *Issuer) { i.issuer = name }
}

func WithAccessTTL(d time.Duration) IssuerOption {
	return func(i *Issuer) { i.accessTTL = d }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) IssuerOption {
	return func(i *Issuer) { i.now = now }
}

func NewIssuer(m *keys.Material, opts ...IssuerOption) *Issuer {
	i := &Issuer{
		keys:      m,
		issuer:    DefaultIssuer,
		accessTTL: DefaultAccessTTL,
		now:       time.Now,
	}
	for _, o := range opts {
		o(i)
	}
	return i
}

// IssueAccessToken signs a short-lived RS256 token for id.
func (i *Issuer) IssueAccessToken(id Identity) (string, error) {
	if i.keys == nil {
		return "", fmt.Errorf("sign access token: no key material: %w", common.ErrConfigurationFatal)
	}
	now := i.now()
	claims := AccessClaims{
		Role:    id.Role,
		Version: ClaimsVersion,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID,
			Issuer:    i.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.accessTTL)),
		},
	}

	token := jwt.NewWithClaims(accessMethod, claims)
	token.Header["kid"] = i.keys.KeyID()

	s, err := token.SignedString(i.keys.PrivateSigningKey())
	if err != nil {
		return "", fmt.Errorf("sign access token: %w: %w", common.ErrConfigurationFatal, err)
	}
	return s, nil
}

// IssueRefreshToken signs an HS256 token bound to record. The token expires
// together with the record.
func (i *Issuer) IssueRefreshToken(id Identity, record *models.RefreshToken) (string, error) {
	if i.keys == nil {
		return "", fmt.Errorf("sign refresh token: no key material: %w", common.ErrConfigurationFatal)
	}
	claims := RefreshClaims{
		Role:    id.Role,
		Version: ClaimsVersion,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        record.ID,
			Subject:   id.UserID,
			Issuer:    i.issuer,
			IssuedAt:  jwt.NewNumericDate(i.now()),
			ExpiresAt: jwt.NewNumericDate(record.ExpiresAt),
		},
	}

	s, err := jwt.NewWithClaims(refreshMethod, claims).SignedString(i.keys.RefreshSecret())
	if err != nil {
		return "", fmt.Errorf("sign refresh token: %w: %w", common.ErrConfigurationFatal, err)
	}
	return s, nil
}

func (i *Issuer) AccessTTL() time.Duration { return i.accessTTL }
