package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/shwemart/storefront-client/internal/domain"
)

// Store persists the bearer token and role tag as a small key-value
// file and fans session changes out to subscribers, so independent
// components observe the same logical session change synchronously.
type Store struct {
	mu      sync.RWMutex
	path    string
	logger  *zap.Logger
	session domain.Session
	subs    map[int]func(domain.Session)
	nextSub int
}

// NewStore loads any previously persisted session from path.
func NewStore(path string, logger *zap.Logger) (*Store, error) {
	s := &Store{
		path:   path,
		logger: logger,
		subs:   make(map[int]func(domain.Session)),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return s, nil
		}
		return nil, fmt.Errorf("read session file: %w", err)
	}
	if err := json.Unmarshal(data, &s.session); err != nil {
		// A corrupt state file is treated as signed-out, not fatal.
		logger.Warn("Discarding unreadable session file", zap.String("path", path), zap.Error(err))
		s.session = domain.Session{}
	}
	return s, nil
}

// Current returns the session as of now.
func (s *Store) Current() domain.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session
}

// Token returns the current bearer token, or "" when signed out.
func (s *Store) Token() string {
	return s.Current().Token
}

// Set stores a new token and role, persists them, and notifies
// subscribers. An empty role is derived from the token's claims.
func (s *Store) Set(token string, role domain.Role) error {
	if role == "" && token != "" {
		derived, err := RoleFromToken(token)
		if err != nil {
			s.logger.Warn("Could not derive role from token", zap.Error(err))
		} else {
			role = derived
		}
	}
	return s.update(domain.Session{Token: token, Role: role})
}

// Clear signs out: removes the persisted session and notifies
// subscribers with an empty session.
func (s *Store) Clear() error {
	return s.update(domain.Session{})
}

// Subscribe registers fn to run on every session change. The returned
// function removes the subscription.
func (s *Store) Subscribe(fn func(domain.Session)) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

func (s *Store) update(next domain.Session) error {
	s.mu.Lock()
	if next == s.session {
		s.mu.Unlock()
		return nil
	}
	s.session = next

	var persistErr error
	if next.Authenticated() {
		data, err := json.Marshal(next)
		if err == nil {
			if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err == nil {
				persistErr = os.WriteFile(s.path, data, 0o600)
			} else {
				persistErr = err
			}
		} else {
			persistErr = err
		}
	} else {
		if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
			persistErr = err
		}
	}

	subs := make([]func(domain.Session), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(next)
	}

	if persistErr != nil {
		return fmt.Errorf("persist session: %w", persistErr)
	}
	return nil
}
