// Package keys loads and holds the signing material for issued tokens: one
// RSA private key for access tokens and one symmetric secret for refresh
// tokens. Material is built once at startup and never changes afterwards.
package keys

import (
	"bytes"
	"context"
	"crypto"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/go-jose/go-jose/v4"
	"github.com/golang-jwt/jwt/v5"
)

const (
	MinRSABits         = 2048
	MinRefreshSecretSz = 32

	AccessTokenAlg = "RS256"
)

// Material is the immutable key set. Share it by pointer; its accessors
// never expose the private key or secret through formatting.
type Material struct {
	private       *rsa.PrivateKey
	refreshSecret []byte
	keyID         string
}

// NewMaterial validates and wraps already parsed key material.
func NewMaterial(private *rsa.PrivateKey, refreshSecret []byte) (*Material, error) {
	if private == nil {
		return nil, fmt.Errorf("private key is missing: %w", common.ErrConfigurationFatal)
	}
	if bits := private.N.BitLen(); bits < MinRSABits {
		return nil, fmt.Errorf("rsa key is %d bits, need at least %d: %w", bits, MinRSABits, common.ErrConfigurationFatal)
	}
	if len(refreshSecret) < MinRefreshSecretSz {
		return nil, fmt.Errorf("refresh secret is %d bytes, need at least %d: %w", len(refreshSecret), MinRefreshSecretSz, common.ErrConfigurationFatal)
	}

	kid, err := thumbprint(&private.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("key id: %w: %w", common.ErrConfigurationFatal, err)
	}

	return &Material{
		private:       private,
		refreshSecret: bytes.Clone(refreshSecret),
		keyID:         kid,
	}, nil
}

// Load reads the private key PEM from src and combines it with
// refreshSecret. Every failure wraps common.ErrConfigurationFatal.
func Load(ctx context.Context, src Source, refreshSecret string) (*Material, error) {
	if src == nil {
		return nil, fmt.Errorf("no private key source: %w", common.ErrConfigurationFatal)
	}
	raw, err := src.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("read private key from %v: %w: %w", src, common.ErrConfigurationFatal, err)
	}
	defer common.WipeByteArray(raw)

	private, err := jwt.ParseRSAPrivateKeyFromPEM(raw)
	if err != nil {
		return nil, fmt.Errorf("parse private key from %v: %w: %w", src, common.ErrConfigurationFatal, err)
	}
	return NewMaterial(private, []byte(refreshSecret))
}

func (m *Material) PrivateSigningKey() *rsa.PrivateKey { return m.private }

func (m *Material) PublicVerificationKey() *rsa.PublicKey { return &m.private.PublicKey }

// RefreshSecret returns a copy of the HMAC secret for refresh tokens.
func (m *Material) RefreshSecret() []byte { return bytes.Clone(m.refreshSecret) }

// KeyID is the RFC 7638 SHA-256 thumbprint of the public key.
func (m *Material) KeyID() string { return m.keyID }

// JWKS returns the public half only.
func (m *Material) JWKS() jose.JSONWebKeySet {
	return keySet(m.PublicVerificationKey(), m.keyID)
}

func (m *Material) JWKSJSON() ([]byte, error) {
	return json.Marshal(m.JWKS())
}

func (m *Material) String() string {
	return fmt.Sprintf("keys.Material{kid: %s, private: [redacted], refresh secret: [redacted]}", m.keyID)
}

func (m *Material) GoString() string { return m.String() }

func thumbprint(pub *rsa.PublicKey) (string, error) {
	jwk := jose.JSONWebKey{Key: pub}
	tp, err := jwk.Thumbprint(crypto.SHA256)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(tp), nil
}

// PublicKeySet builds the JWKS document for pub as the server would publish it.
func PublicKeySet(pub *rsa.PublicKey) (jose.JSONWebKeySet, error) {
	kid, err := thumbprint(pub)
	if err != nil {
		return jose.JSONWebKeySet{}, err
	}
	return keySet(pub, kid), nil
}

func keySet(pub *rsa.PublicKey, kid string) jose.JSONWebKeySet {
	return jose.JSONWebKeySet{Keys: []jose.JSONWebKey{{
		Key:       pub,
		KeyID:     kid,
		Algorithm: AccessTokenAlg,
		Use:       "sig",
	}}}
}
