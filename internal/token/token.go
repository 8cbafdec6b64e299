// Package token mints and verifies the two bearer credential kinds: the
// long-session staff credential and the ephemeral per-order customer
// credential. The two issuers are configured with independent secrets so
// that compromise of one never exposes the other, and are never
// interchangeable: a token signed by one fails verification by the other.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/fx"

	"github.com/trustdrive/stagelink/internal/config"
)

// ErrInvalidToken covers every verification failure: malformed input, bad
// signature, wrong signing method or expiry. Callers present a single
// generic unauthorized response regardless of the cause.
var ErrInvalidToken = errors.New("invalid token")

// Issuer signs and verifies HMAC bearer tokens carrying a single subject.
type Issuer struct {
	secret []byte
	ttl    time.Duration
}

// NewIssuer builds an issuer for the given secret and credential lifetime.
func NewIssuer(secret string, ttl time.Duration) (*Issuer, error) {
	if secret == "" {
		return nil, errors.New("token secret is required")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("token ttl must be positive, got %s", ttl)
	}
	return &Issuer{secret: []byte(secret), ttl: ttl}, nil
}

// Sign mints a token asserting the supplied subject, valid for the issuer's
// configured lifetime.
func (i *Issuer) Sign(subject string) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
}

// Verify checks signature and expiry and returns the asserted subject.
func (i *Issuer) Verify(raw string) (string, error) {
	parsed, err := jwt.ParseWithClaims(raw, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return i.secret, nil
	})
	if err != nil || !parsed.Valid {
		return "", ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}

// TTL reports the configured credential lifetime.
func (i *Issuer) TTL() time.Duration {
	return i.ttl
}

// Issuers bundles the two independently keyed credential issuers.
type Issuers struct {
	Staff  *Issuer
	Parcel *Issuer
}

// Module provides the credential issuers to Fx.
var Module = fx.Provide(NewIssuers)

// NewIssuers wires both issuers from configuration.
func NewIssuers(cfg config.Config) (*Issuers, error) {
	staff, err := NewIssuer(cfg.Auth.StaffSecret, cfg.Auth.StaffTTL)
	if err != nil {
		return nil, fmt.Errorf("staff issuer: %w", err)
	}
	parcel, err := NewIssuer(cfg.Auth.ParcelSecret, cfg.Auth.ParcelTTL)
	if err != nil {
		return nil, fmt.Errorf("parcel issuer: %w", err)
	}
	return &Issuers{Staff: staff, Parcel: parcel}, nil
}
