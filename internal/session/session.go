// Package session holds the authenticated identity of the current user.
//
// The token and the user identity are persisted under independent keys of a
// store.KV backend and are always written and cleared together.
package session

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	apperrors "tradesim/internal/errors"
	"tradesim/internal/logging"
	"tradesim/internal/models"
	"tradesim/internal/store"
)

// Persistence keys.
const (
	TokenKey = "session.token"
	UserKey  = "session.user"
)

// Store is the process-wide session. Only the controller mutates it.
type Store struct {
	mu      sync.RWMutex
	kv      store.KV
	logger  zerolog.Logger
	current models.Session
}

// Open loads the persisted session from kv.
//
// A persisted user without a token is ignored. A JWT token whose exp claim
// has passed is treated as absent and removed from kv.
func Open(ctx context.Context, kv store.KV, logger zerolog.Logger) (*Store, error) {
	s := &Store{
		kv:     kv,
		logger: logger.With().Str("component", "session").Logger(),
	}

	token, ok, err := kv.Get(ctx, TokenKey)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to load session token")
	}
	if !ok || token == "" {
		return s, nil
	}

	if expired(token, time.Now()) {
		logging.LogSessionEvent(s.logger, "expired", "")
		if err := kv.DeleteAll(ctx, TokenKey, UserKey); err != nil {
			return nil, apperrors.Wrap(err, "failed to drop expired session")
		}
		return s, nil
	}

	s.current.Token = token

	raw, ok, err := kv.Get(ctx, UserKey)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to load session user")
	}
	if ok && raw != "" {
		var user models.UserIdentity
		if err := json.Unmarshal([]byte(raw), &user); err != nil {
			// keep the token; the profile is re-fetched on demand
			s.logger.Warn().Err(err).Msg("Discarding unreadable cached user")
		} else {
			s.current.User = &user
		}
	}

	logging.LogSessionEvent(s.logger, "loaded", username(s.current.User))
	return s, nil
}

// Get returns a copy of the current session.
func (s *Store) Get() models.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copySession(s.current)
}

// Token returns the current token, if any.
func (s *Store) Token() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Token, s.current.Token != ""
}

// IsAuthenticated returns true iff a token is present.
func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.IsAuthenticated()
}

// Set overwrites token and user. Both keys are written in one transaction;
// the in-memory session changes only if the write succeeds.
func (s *Store) Set(ctx context.Context, token string, user *models.UserIdentity) error {
	if token == "" {
		return apperrors.NewValidationError("token", nil, "token cannot be empty")
	}

	encoded, err := encodeUser(user)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.kv.PutAll(ctx, map[string]string{TokenKey: token, UserKey: encoded}); err != nil {
		return apperrors.Wrap(err, "failed to persist session")
	}
	s.current = copySession(models.Session{Token: token, User: user})
	logging.LogSessionEvent(s.logger, "set", username(user))
	return nil
}

// UpdateUser replaces the cached identity, keeping the token.
func (s *Store) UpdateUser(ctx context.Context, user models.UserIdentity) error {
	encoded, err := encodeUser(&user)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current.Token == "" {
		return apperrors.ErrNoSession
	}
	if err := s.kv.PutAll(ctx, map[string]string{UserKey: encoded}); err != nil {
		return apperrors.Wrap(err, "failed to persist user")
	}
	s.current.User = &user
	return nil
}

// Clear removes token and user. The in-memory session is cleared even when
// the backend write fails.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clearLocked(ctx)
}

// ClearIfToken clears the session only while it still holds token. It
// reports whether this call performed the clear. Concurrent callers holding
// the same stale token see exactly one true.
func (s *Store) ClearIfToken(ctx context.Context, token string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if token == "" || s.current.Token != token {
		return false, nil
	}
	return true, s.clearLocked(ctx)
}

func (s *Store) clearLocked(ctx context.Context) error {
	name := username(s.current.User)
	s.current = models.Session{}
	if err := s.kv.DeleteAll(ctx, TokenKey, UserKey); err != nil {
		return apperrors.Wrap(err, "failed to clear persisted session")
	}
	logging.LogSessionEvent(s.logger, "cleared", name)
	return nil
}

// expired reports whether token is a JWT whose exp is before now. Opaque
// tokens and JWTs without exp never expire client-side. The signature is
// not checked; the server remains the authority.
func expired(token string, now time.Time) bool {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	if claims.ExpiresAt == nil {
		return false
	}
	return claims.ExpiresAt.Time.Before(now)
}

func encodeUser(user *models.UserIdentity) (string, error) {
	if user == nil {
		return "", nil
	}
	data, err := json.Marshal(user)
	if err != nil {
		return "", apperrors.Wrap(err, "failed to encode user")
	}
	return string(data), nil
}

func copySession(s models.Session) models.Session {
	if s.User != nil {
		u := *s.User
		s.User = &u
	}
	return s
}

func username(u *models.UserIdentity) string {
	if u == nil {
		return ""
	}
	return u.Username
}
