// Package session keeps chat sessions in memory for the tablechat server.
package session

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/papercomputeco/tablechat/pkg/logger"
	"github.com/papercomputeco/tablechat/pkg/transcript"
)

// Store is an in-memory session store. Sessions handed out are deep copies;
// callers never share memory with the store.
type Store struct {
	// mu guards sessions
	mu sync.RWMutex

	// sessions maps a session ID to its state
	sessions map[string]*transcript.Session

	now func() time.Time
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithClock overrides time.Now for timestamps and cleanup.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) {
		s.now = now
	}
}

// NewStore creates an empty store.
func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		sessions: make(map[string]*transcript.Session),
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create stores a new active session bound to file.
func (s *Store) Create(_ context.Context, file *transcript.FileInfo) (transcript.Session, error) {
	now := s.now()
	sess := &transcript.Session{
		ID:        uuid.NewString(),
		CreatedAt: now,
		UpdatedAt: now,
		Status:    transcript.StatusActive,
		Messages:  []transcript.Message{},
	}
	if file != nil {
		f := *file
		sess.File = &f
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = sess

	return sess.Clone(), nil
}

// Get retrieves a session by ID.
func (s *Store) Get(_ context.Context, id string) (transcript.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return transcript.Session{}, NotFoundError{ID: id}
	}

	return sess.Clone(), nil
}

// List returns every session, oldest first.
func (s *Store) List(_ context.Context) ([]transcript.Session, error) {
	s.mu.RLock()
	out := make([]transcript.Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, sess.Clone())
	}
	s.mu.RUnlock()

	slices.SortFunc(out, func(a, b transcript.Session) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out, nil
}

// Delete removes a session and returns its final state.
func (s *Store) Delete(_ context.Context, id string) (transcript.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return transcript.Session{}, NotFoundError{ID: id}
	}

	delete(s.sessions, id)
	return *sess, nil
}

// Append adds msg to the end of a session's message list.
func (s *Store) Append(_ context.Context, id string, msg transcript.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return NotFoundError{ID: id}
	}

	sess.Messages = append(sess.Messages, msg)
	sess.UpdatedAt = s.now()
	return nil
}

// ReplaceMessage overwrites the message whose ID matches msg.ID.
func (s *Store) ReplaceMessage(_ context.Context, id string, msg transcript.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return NotFoundError{ID: id}
	}

	// The in-flight message is almost always last.
	for i := len(sess.Messages) - 1; i >= 0; i-- {
		if sess.Messages[i].ID == msg.ID {
			sess.Messages[i] = msg
			sess.UpdatedAt = s.now()
			return nil
		}
	}
	return ErrMessageNotFound
}

// Cleanup removes sessions not updated within maxAge and returns them.
func (s *Store) Cleanup(_ context.Context, maxAge time.Duration) []transcript.Session {
	cutoff := s.now().Add(-maxAge)

	s.mu.Lock()
	defer s.mu.Unlock()

	var removed []transcript.Session
	for id, sess := range s.sessions {
		if sess.UpdatedAt.Before(cutoff) {
			removed = append(removed, *sess)
			delete(s.sessions, id)
		}
	}
	return removed
}

// Janitor periodically removes idle sessions.
type Janitor struct {
	Store    *Store
	MaxAge   time.Duration
	Interval time.Duration
	Logger   *slog.Logger

	// OnRemove is called for every removed session, e.g. to delete its file.
	OnRemove func(transcript.Session)
}

// Run sweeps every Interval until ctx is done. A zero MaxAge disables cleanup.
func (j *Janitor) Run(ctx context.Context) error {
	if j.MaxAge <= 0 {
		return nil
	}

	interval := j.Interval
	if interval <= 0 {
		interval = min(j.MaxAge, time.Hour)
	}
	log := logger.OrNop(j.Logger)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			removed := j.Store.Cleanup(ctx, j.MaxAge)
			for _, sess := range removed {
				if j.OnRemove != nil {
					j.OnRemove(sess)
				}
			}
			if len(removed) > 0 {
				log.Info("removed idle sessions", "count", len(removed), "max_age", j.MaxAge)
			}
		}
	}
}
