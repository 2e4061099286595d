package auth

import (
	"context"
	"errors"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"backoffice/pkg/remote"
)

var (
	ErrNoCredential      = errors.New("no credential available")
	ErrCredentialExpired = errors.New("credential expired")
)

// Static is a fixed bearer token.
type Static string

func (s Static) Token(context.Context) (string, error) {
	return strings.TrimSpace(string(s)), nil
}

// EnvKeys tries each environment key in order and returns the first non-empty value.
type EnvKeys []string

func (e EnvKeys) Token(context.Context) (string, error) {
	for _, k := range e {
		if v := strings.TrimSpace(os.Getenv(k)); v != "" {
			return v, nil
		}
	}
	return "", nil
}

// File reads the token from a file on every call so rotated tokens are picked up.
// A missing file means no credential.
type File string

func (f File) Token(context.Context) (string, error) {
	if f == "" {
		return "", nil
	}
	b, err := os.ReadFile(string(f))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}

// Chain returns the first non-empty token from its sources.
type Chain []remote.TokenSource

func (c Chain) Token(ctx context.Context) (string, error) {
	for _, s := range c {
		if s == nil {
			continue
		}
		tok, err := s.Token(ctx)
		if err != nil {
			return "", err
		}
		if tok != "" {
			return tok, nil
		}
	}
	return "", nil
}

// Expiring refuses tokens that are JWTs with an exp claim in the past, so a
// stale session fails locally instead of at the store. Opaque tokens pass through.
type Expiring struct {
	Source remote.TokenSource
	Now    func() time.Time
}

func (e Expiring) Token(ctx context.Context) (string, error) {
	if e.Source == nil {
		return "", nil
	}
	tok, err := e.Source.Token(ctx)
	if err != nil || tok == "" {
		return tok, err
	}

	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tok, claims); err != nil {
		return tok, nil
	}
	now := time.Now
	if e.Now != nil {
		now = e.Now
	}
	if claims.ExpiresAt != nil && !claims.ExpiresAt.Time.After(now()) {
		return "", ErrCredentialExpired
	}
	return tok, nil
}

// Require turns "no token" into ErrNoCredential.
func Require(ctx context.Context, ts remote.TokenSource) (string, error) {
	if ts == nil {
		return "", ErrNoCredential
	}
	tok, err := ts.Token(ctx)
	if err != nil {
		return "", err
	}
	if tok == "" {
		return "", ErrNoCredential
	}
	return tok, nil
}
