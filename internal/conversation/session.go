package conversation

import (
	"sync"
	"sync/atomic"

	"github.com/spigell/mock-interviewer/internal/interview"
)

// session is the live state of one interview. busy is the single-flight
// guard held for the whole duration of a mutating operation; mu only guards
// reads and the final commit. dirty marks committed state that has not
// reached storage yet.
type session struct {
	busy atomic.Bool

	mu    sync.Mutex
	iv    *interview.Interview
	dirty bool
}

func newSession(iv *interview.Interview) *session {
	return &session{iv: iv}
}

// acquire claims the session without blocking.
func (s *session) acquire() bool {
	return s.busy.CompareAndSwap(false, true)
}

func (s *session) release() {
	s.busy.Store(false)
}

func (s *session) snapshot() *interview.Interview {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.iv.Clone()
}

func (s *session) owner() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.iv.UserID
}

func (s *session) setState(state interview.State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.iv.State = state
}

// commit applies fn under the lock and returns a snapshot of the result.
func (s *session) commit(fn func(iv *interview.Interview)) *interview.Interview {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.iv)
	s.dirty = true
	return s.iv.Clone()
}

func (s *session) markSaved() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dirty = false
}

func (s *session) unsaved() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}
