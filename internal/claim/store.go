package claim

import (
	"errors"
	"sync"

	"github.com/google/uuid"
)

var (
	ErrDraftNotFound = errors.New("draft not found")
	ErrStaleDraft    = errors.New("draft changed while the request was in flight")
)

// Store is the single source of truth for in-progress drafts. Each draft
// session carries a generation counter: completions of asynchronous work
// (code suggestion, submission fold-back) are applied with DispatchAt and
// discarded when the draft has been re-initialized in the meantime.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*session
}

type session struct {
	draft      Draft
	generation uint64
}

func NewStore() *Store {
	return &Store{sessions: make(map[string]*session)}
}

// Create opens a new session holding an empty draft and returns its ID.
func (s *Store) Create() (string, Draft) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.New().String()
	s.sessions[id] = &session{}
	return id, Draft{}
}

// CreateFrom opens a new session initialized from an external claim record.
// The bulk replacement happens exactly once, here.
func (s *Store) CreateFrom(rec Claim) (string, Draft) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.New().String()
	draft := DraftFromClaim(rec)
	s.sessions[id] = &session{draft: draft}
	return id, draft
}

// Get returns a snapshot of the draft and its current generation.
func (s *Store) Get(id string) (Draft, uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return Draft{}, 0, ErrDraftNotFound
	}
	return sess.draft, sess.generation, nil
}

// Dispatch applies an action to the draft. Re-initialization changes the
// draft's identity, so it bumps the generation and invalidates any responses
// still in flight for the previous draft.
func (s *Store) Dispatch(id string, action Action) (Draft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return Draft{}, ErrDraftNotFound
	}
	sess.draft = Apply(sess.draft, action)
	if _, ok := action.(InitializeFromExternal); ok {
		sess.generation++
	}
	return sess.draft, nil
}

// DispatchAt applies an action only if the draft is still at the given
// generation. Callers use it to fold async results back in; a stale result
// is reported as ErrStaleDraft and leaves the draft untouched.
func (s *Store) DispatchAt(id string, generation uint64, action Action) (Draft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return Draft{}, ErrDraftNotFound
	}
	if sess.generation != generation {
		return Draft{}, ErrStaleDraft
	}
	sess.draft = Apply(sess.draft, action)
	return sess.draft, nil
}

// Close discards a draft session.
func (s *Store) Close(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}
