package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/sathyapriyan07/metamovies-sub001/internal/domain"
)

const defaultRevocationWindow = 24 * time.Hour

type contextKey struct{}

// WithUser returns a context carrying the signed-in user.
func WithUser(ctx context.Context, user *domain.User) context.Context {
	return context.WithValue(ctx, contextKey{}, user)
}

// UserFromContext returns the signed-in user or nil.
func UserFromContext(ctx context.Context) *domain.User {
	user, _ := ctx.Value(contextKey{}).(*domain.User)
	return user
}

// Store is the session store: it resolves tokens to users and signs them out.
type Store struct {
	verifier    *Verifier
	revocations Revocations
}

func NewStore(verifier *Verifier, revocations Revocations) *Store {
	if revocations == nil {
		revocations = NewMemoryRevocations()
	}
	return &Store{verifier: verifier, revocations: revocations}
}

func (s *Store) Enabled() bool {
	return s != nil && s.verifier.Enabled()
}

// Authenticate verifies a raw token and rejects signed-out ones.
func (s *Store) Authenticate(ctx context.Context, raw string) (*domain.User, error) {
	if !s.Enabled() {
		return nil, ErrNoSecret
	}
	token, err := s.verifier.Verify(raw)
	if err != nil {
		return nil, err
	}
	revoked, err := s.revocations.IsRevoked(ctx, revocationKey(token))
	if err != nil {
		return nil, fmt.Errorf("check revocation: %w", err)
	}
	if revoked {
		return nil, ErrTokenRevoked
	}
	user := token.User
	return &user, nil
}

// CurrentUser returns the user resolved for this request, or nil.
func (s *Store) CurrentUser(ctx context.Context) *domain.User {
	return UserFromContext(ctx)
}

// SignOut revokes the token until it expires. Signing out an expired or
// already revoked token is not an error.
func (s *Store) SignOut(ctx context.Context, raw string) error {
	if !s.Enabled() {
		return ErrNoSecret
	}
	token, err := s.verifier.Verify(raw)
	if err != nil {
		if errors.Is(err, ErrTokenExpired) {
			return nil
		}
		return err
	}
	until := token.ExpiresAt
	if until.IsZero() {
		until = s.verifier.now().Add(defaultRevocationWindow)
	}
	return s.revocations.Revoke(ctx, revocationKey(token), until)
}

func revocationKey(token Token) string {
	if token.ID != "" {
		return "jti:" + token.ID
	}
	sum := sha256.Sum256([]byte(token.Raw))
	return "sha:" + hex.EncodeToString(sum[:])
}

// RequireUser returns domain.ErrUnauthenticated when no user is present.
func RequireUser(ctx context.Context) (*domain.User, error) {
	user := UserFromContext(ctx)
	if user == nil {
		return nil, domain.ErrUnauthenticated
	}
	return user, nil
}

// RequireAdmin additionally demands the admin role.
func RequireAdmin(ctx context.Context) (*domain.User, error) {
	user, err := RequireUser(ctx)
	if err != nil {
		return nil, err
	}
	if !user.IsAdmin() {
		return nil, domain.ErrForbidden
	}
	return user, nil
}
