package discovery

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/randytsao24/carefinder/internal/cache"
	"github.com/rs/zerolog/log"
)

// DefaultSessionID is used when a client does not identify itself.
const DefaultSessionID = "default"

// Searcher runs one search. *Pipeline implements it.
type Searcher interface {
	Search(ctx context.Context, text string) (*Result, error)
}

// SearcherFunc adapts a function to Searcher.
type SearcherFunc func(ctx context.Context, text string) (*Result, error)

// Search calls f.
func (f SearcherFunc) Search(ctx context.Context, text string) (*Result, error) {
	return f(ctx, text)
}

// Session owns one client's current-result slot.
//
// Starting a search cancels any search still in flight on the same session.
// Only the most recently started search may replace the slot; older ones
// return ErrSuperseded. A search for the text already in flight joins it
// instead, so the list and map views of one query share a single run.
type Session struct {
	id       string
	searcher Searcher

	mu         sync.Mutex
	generation uint64
	cancel     context.CancelFunc
	inflight   *flight
	current    *Result
}

// flight is one running search and the callers waiting on it
type flight struct {
	text   string
	done   chan struct{}
	result *Result
	err    error
}

// NewSession creates an empty session
func NewSession(id string, searcher Searcher) *Session {
	return &Session{id: id, searcher: searcher}
}

// ID returns the session identifier
func (s *Session) ID() string { return s.id }

// Search runs a search for text. A different text cancels the in-flight
// search; the same text waits for it and returns its outcome.
func (s *Session) Search(ctx context.Context, text string) (*Result, error) {
	text = strings.TrimSpace(text)

	s.mu.Lock()
	if f := s.inflight; f != nil && f.text == text {
		s.mu.Unlock()
		log.Debug().Str("session", s.id).Str("query", text).Msg("Joining in-flight search")
		select {
		case <-f.done:
			return f.result, f.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.cancel != nil {
		s.cancel()
	}
	s.generation++
	gen := s.generation
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	f := &flight{text: text, done: make(chan struct{})}
	s.inflight = f
	s.mu.Unlock()
	defer cancel()

	result, err := s.searcher.Search(ctx, text)

	s.mu.Lock()
	defer s.mu.Unlock()
	defer close(f.done)

	if gen != s.generation {
		log.Debug().Str("session", s.id).Str("query", text).Msg("Discarding superseded search")
		f.err = ErrSuperseded
		return nil, ErrSuperseded
	}
	s.cancel = nil
	s.inflight = nil
	if err != nil {
		f.err = err
		return nil, err
	}
	s.current = result
	f.result = result
	return result, nil
}

// Current returns the last completed result, or nil
func (s *Session) Current() *Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Cancel aborts the in-flight search, if any. The current result is kept.
func (s *Session) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

// SessionRegistry hands out sessions by id. Idle sessions expire after the
// registry TTL and have their in-flight search cancelled.
type SessionRegistry struct {
	searcher Searcher
	sessions *cache.Cache[*Session]
	mu       sync.Mutex
}

// NewSessionRegistry creates a registry whose sessions run searches with searcher
func NewSessionRegistry(searcher Searcher, ttl time.Duration) *SessionRegistry {
	return &SessionRegistry{
		searcher: searcher,
		sessions: cache.New[*Session](ttl, cache.WithEvictFunc(func(id string, s *Session) {
			log.Debug().Str("session", id).Msg("Session expired")
			s.Cancel()
		})),
	}
}

// Get returns the session for id, creating it if needed. An empty id maps to
// DefaultSessionID.
func (r *SessionRegistry) Get(id string) *Session {
	if id == "" {
		id = DefaultSessionID
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.sessions.Get(id); ok {
		r.sessions.Touch(id)
		return s
	}
	// an expired entry the janitor has not swept yet still owns a search
	r.sessions.Delete(id)
	s := NewSession(id, r.searcher)
	r.sessions.Set(id, s)
	return s
}

// Lookup returns an existing session without creating one
func (r *SessionRegistry) Lookup(id string) (*Session, bool) {
	if id == "" {
		id = DefaultSessionID
	}
	s, ok := r.sessions.Get(id)
	if ok {
		r.sessions.Touch(id)
	}
	return s, ok
}

// Len returns the number of tracked sessions, including expired ones not yet swept
func (r *SessionRegistry) Len() int {
	return r.sessions.Size()
}

// Close stops session expiry
func (r *SessionRegistry) Close() {
	r.sessions.Close()
}
