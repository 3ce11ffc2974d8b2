package session

import (
	"context"
	"fmt"
	"sync"

	"aircraftconsole/internal/logging"
)

// Storage is durable client-local key/value storage.
type Storage interface {
	GetItem(ctx context.Context, key string) (string, bool, error)
	SetItem(ctx context.Context, key, value string) error
	RemoveItem(ctx context.Context, key string) error
}

// Store owns the Session of one client. Save and Clear are the only mutation paths;
// subscribers are told about every change.
type Store struct {
	storage Storage

	mu      sync.Mutex
	current Session
	subs    map[int]func(Session)
	nextSub int
}

func NewStore(storage Storage) *Store {
	return &Store{storage: storage, subs: map[int]func(Session){}}
}

// Load reads the persisted token and profile. Either may be absent.
func (s *Store) Load(ctx context.Context) (Session, error) {
	var sess Session
	tok, ok, err := s.storage.GetItem(ctx, KeyAuthToken)
	if err != nil {
		return Session{}, fmt.Errorf("load %s: %w", KeyAuthToken, err)
	}
	if ok {
		sess.AuthToken = tok
	}

	raw, ok, err := s.storage.GetItem(ctx, KeyCurrentUser)
	if err != nil {
		return Session{}, fmt.Errorf("load %s: %w", KeyCurrentUser, err)
	}
	if ok && raw != "" {
		u, perr := ParseProfile([]byte(raw))
		if perr != nil {
			// An unreadable snapshot is dropped; the resolver refetches it.
			logging.From(ctx).Warn("session.profile_corrupt", "error", perr)
			if err := s.storage.RemoveItem(ctx, KeyCurrentUser); err != nil {
				return Session{}, fmt.Errorf("drop corrupt profile: %w", err)
			}
		} else {
			sess.CurrentUser = u
		}
	}

	s.mu.Lock()
	s.current = sess
	s.mu.Unlock()
	return sess, nil
}

// Save persists both fields. An empty token or nil profile removes that key.
func (s *Store) Save(ctx context.Context, sess Session) error {
	if sess.AuthToken == "" {
		if err := s.storage.RemoveItem(ctx, KeyAuthToken); err != nil {
			return fmt.Errorf("save %s: %w", KeyAuthToken, err)
		}
	} else if err := s.storage.SetItem(ctx, KeyAuthToken, sess.AuthToken); err != nil {
		return fmt.Errorf("save %s: %w", KeyAuthToken, err)
	}

	if sess.CurrentUser == nil {
		if err := s.storage.RemoveItem(ctx, KeyCurrentUser); err != nil {
			return fmt.Errorf("save %s: %w", KeyCurrentUser, err)
		}
	} else {
		b, err := sess.CurrentUser.Bytes()
		if err != nil {
			return fmt.Errorf("encode profile: %w", err)
		}
		if err := s.storage.SetItem(ctx, KeyCurrentUser, string(b)); err != nil {
			return fmt.Errorf("save %s: %w", KeyCurrentUser, err)
		}
	}

	s.publish(sess)
	return nil
}

// Clear removes both fields, used on logout and when the API rejects the token.
func (s *Store) Clear(ctx context.Context) error {
	var firstErr error
	for _, k := range []string{KeyAuthToken, KeyCurrentUser} {
		if err := s.storage.RemoveItem(ctx, k); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("clear %s: %w", k, err)
		}
	}
	s.publish(Session{})
	return firstErr
}

// Current returns the last loaded or saved session without touching storage.
func (s *Store) Current() Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Token is a shorthand used by the gateway for the Authorization header.
func (s *Store) Token() string { return s.Current().AuthToken }

// Subscribe registers fn for every Save and Clear. The returned func unregisters it.
func (s *Store) Subscribe(fn func(Session)) func() {
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

func (s *Store) publish(sess Session) {
	s.mu.Lock()
	s.current = sess
	fns := make([]func(Session), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()
	for _, fn := range fns {
		fn(sess)
	}
}
