// Package servicetoken issues and checks short-lived RS256 tokens for
// calls between internal services.
package servicetoken

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	DefaultTTL    = 60 * time.Second
	DefaultLeeway = 15 * time.Second
	DefaultKeyID  = "aina-internal"
)

var (
	ErrMissingToken     = errors.New("service token required")
	ErrIssuerNotAllowed = errors.New("issuer not allowed")
)

// Signer issues tokens naming the calling service as issuer and subject.
type Signer struct {
	issuer string
	kid    string
	ttl    time.Duration
	key    *rsa.PrivateKey
}

// NewSigner loads a PEM private key (PKCS#1 or PKCS#8) from path.
func NewSigner(issuer, privateKeyPath string, ttl time.Duration) (*Signer, error) {
	key, err := LoadPrivateKey(privateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("load service token key: %w", err)
	}
	return NewSignerFromKey(issuer, DefaultKeyID, key, ttl)
}

// NewSignerFromKey builds a signer around an in-memory key.
func NewSignerFromKey(issuer, kid string, key *rsa.PrivateKey, ttl time.Duration) (*Signer, error) {
	issuer = strings.TrimSpace(issuer)
	if issuer == "" {
		return nil, errors.New("service token issuer is required")
	}
	if key == nil {
		return nil, errors.New("service token key is required")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if kid == "" {
		kid = DefaultKeyID
	}
	return &Signer{issuer: issuer, kid: kid, ttl: ttl, key: key}, nil
}

// Sign returns a token valid for audience until the signer TTL elapses.
func (s *Signer) Sign(audience string) (string, error) {
	audience = strings.TrimSpace(audience)
	if audience == "" {
		return "", errors.New("service token audience is required")
	}
	now := time.Now().UTC()
	t := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.RegisteredClaims{
		Issuer:    s.issuer,
		Subject:   s.issuer,
		Audience:  jwt.ClaimStrings{audience},
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		ID:        uuid.NewString(),
	})
	t.Header["kid"] = s.kid
	return t.SignedString(s.key)
}

// Verifier accepts tokens for one audience from a set of issuers.
type Verifier struct {
	audience string
	issuers  map[string]struct{}
	keys     map[string]*rsa.PublicKey
	leeway   time.Duration
}

// NewVerifier loads a PEM public key (PKIX or certificate) from path and
// registers it under DefaultKeyID.
func NewVerifier(audience string, issuers []string, publicKeyPath string) (*Verifier, error) {
	pub, err := LoadPublicKey(publicKeyPath)
	if err != nil {
		return nil, fmt.Errorf("load service token public key: %w", err)
	}
	return NewVerifierFromKeys(audience, issuers, map[string]*rsa.PublicKey{DefaultKeyID: pub})
}

// NewVerifierFromKeys builds a verifier from kid -> key pairs.
func NewVerifierFromKeys(audience string, issuers []string, keys map[string]*rsa.PublicKey) (*Verifier, error) {
	audience = strings.TrimSpace(audience)
	if audience == "" {
		return nil, errors.New("service token audience is required")
	}
	allowed := make(map[string]struct{}, len(issuers))
	for _, iss := range issuers {
		if iss = strings.TrimSpace(iss); iss != "" {
			allowed[iss] = struct{}{}
		}
	}
	if len(allowed) == 0 {
		return nil, errors.New("at least one allowed issuer is required")
	}
	if len(keys) == 0 {
		return nil, errors.New("at least one public key is required")
	}
	return &Verifier{audience: audience, issuers: allowed, keys: keys, leeway: DefaultLeeway}, nil
}

// Verify checks signature, lifetime, audience and issuer.
func (v *Verifier) Verify(token string) (jwt.RegisteredClaims, error) {
	claims := jwt.RegisteredClaims{}
	token = strings.TrimSpace(token)
	if token == "" {
		return claims, ErrMissingToken
	}
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		pub, ok := v.keys[strings.TrimSpace(kid)]
		if !ok {
			return nil, fmt.Errorf("unknown token key %q", kid)
		}
		return pub, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithAudience(v.audience),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(v.leeway),
	)
	if err != nil {
		return claims, err
	}
	if _, ok := v.issuers[claims.Issuer]; !ok {
		return claims, fmt.Errorf("%w: %q", ErrIssuerNotAllowed, claims.Issuer)
	}
	if claims.ID == "" {
		return claims, errors.New("jti required")
	}
	return claims, nil
}

// Authorize verifies the bearer token of r and returns the calling service.
func (v *Verifier) Authorize(r *http.Request) (string, error) {
	token, ok := BearerToken(r)
	if !ok {
		return "", ErrMissingToken
	}
	claims, err := v.Verify(token)
	if err != nil {
		return "", err
	}
	return claims.Issuer, nil
}

// BearerToken extracts a bearer token from the Authorization header.
func BearerToken(r *http.Request) (string, bool) {
	token, ok := strings.CutPrefix(strings.TrimSpace(r.Header.Get("Authorization")), "Bearer ")
	token = strings.TrimSpace(token)
	return token, ok && token != ""
}

// LoadPrivateKey reads an RSA private key from a PEM file.
func LoadPrivateKey(path string) (*rsa.PrivateKey, error) {
	block, err := readPEM(path)
	if err != nil {
		return nil, err
	}
	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}
	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, err
	}
	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, errors.New("private key is not rsa")
	}
	return key, nil
}

// LoadPublicKey reads an RSA public key or certificate from a PEM file.
func LoadPublicKey(path string) (*rsa.PublicKey, error) {
	block, err := readPEM(path)
	if err != nil {
		return nil, err
	}
	var parsed any
	if block.Type == "CERTIFICATE" {
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, err
		}
		parsed = cert.PublicKey
	} else {
		parsed, err = x509.ParsePKIXPublicKey(block.Bytes)
		if err != nil {
			return nil, err
		}
	}
	pub, ok := parsed.(*rsa.PublicKey)
	if !ok {
		return nil, errors.New("public key is not rsa")
	}
	return pub, nil
}

func readPEM(path string) (*pem.Block, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("key path is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, errors.New("invalid pem")
	}
	return block, nil
}
