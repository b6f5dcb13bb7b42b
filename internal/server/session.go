package server

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/eykd/mcaddon-go/internal/ident"
	"github.com/eykd/mcaddon-go/internal/project"
	"github.com/eykd/mcaddon-go/internal/scriptgen"
)

// ErrSessionNotFound is returned for an unknown or expired session ID.
var ErrSessionNotFound = errors.New("session not found")

// Event is pushed to a session's websocket subscribers.
type Event struct {
	// Type is "project" for a new project state or "generation" when a script
	// generation starts or finishes.
	Type       string           `json:"type"`
	Project    *project.Project `json:"project,omitempty"`
	Generating bool             `json:"generating"`
}

const subscriberBuffer = 8

// Session owns one project being edited.
type Session struct {
	ID string

	mu           sync.Mutex
	project      *project.Project
	lastActivity time.Time
	subs         map[chan []byte]struct{}
	closed       bool

	// generation admits one outstanding script generation.
	generation scriptgen.Guard
}

func newSession(id string, p *project.Project, now time.Time) *Session {
	return &Session{
		ID:           id,
		project:      p,
		lastActivity: now,
		subs:         make(map[chan []byte]struct{}),
	}
}

// Snapshot returns a copy of the current project.
func (s *Session) Snapshot() project.Project {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.project.Snapshot()
}

// Mutate applies fn to the project under the session lock, notifies subscribers, and
// returns the resulting state.
func (s *Session) Mutate(fn func(p *project.Project)) project.Project {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.project)
	snap := s.project.Snapshot()
	s.broadcastLocked(Event{Type: "project", Project: &snap})
	return snap
}

// Subscribe registers for change events. The returned channel is closed when cancel
// is called or the session ends.
func (s *Session) Subscribe() (<-chan []byte, func()) {
	ch := make(chan []byte, subscriberBuffer)
	s.mu.Lock()
	if s.closed {
		close(ch)
		s.mu.Unlock()
		return ch, func() {}
	}
	s.subs[ch] = struct{}{}
	s.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if _, ok := s.subs[ch]; ok {
				delete(s.subs, ch)
				close(ch)
			}
		})
	}
}

func (s *Session) notifyGeneration(active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.broadcastLocked(Event{Type: "generation", Generating: active})
}

// broadcastLocked delivers ev to every subscriber. A subscriber that has fallen behind
// loses its oldest queued event rather than the newest.
func (s *Session) broadcastLocked(ev Event) {
	if len(s.subs) == 0 {
		return
	}
	msg, err := json.Marshal(ev)
	if err != nil {
		return
	}
	for ch := range s.subs {
		select {
		case ch <- msg:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- msg:
			default:
			}
		}
	}
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastActivity = now
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActivity
}

func (s *Session) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	for ch := range s.subs {
		close(ch)
		delete(s.subs, ch)
	}
}

// Manager tracks live sessions and expires idle ones.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	timeout  time.Duration
	ids      ident.Generator
	now      func() time.Time
}

// NewManager returns a Manager. Sessions idle for longer than timeout are removed by
// CleanupInactive; a zero timeout keeps them forever.
func NewManager(ids ident.Generator, timeout time.Duration) *Manager {
	if ids == nil {
		ids = ident.V4
	}
	return &Manager{
		sessions: make(map[string]*Session),
		timeout:  timeout,
		ids:      ids,
		now:      time.Now,
	}
}

// Create starts a session holding a new default project.
func (m *Manager) Create() *Session {
	s := newSession(m.ids.NewID(), project.New(m.ids), m.now())
	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	return s
}

// Get returns the session with id and marks it active.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	s.touch(m.now())
	return s, nil
}

// Destroy ends the session with id, disconnecting its subscribers.
func (m *Manager) Destroy(id string) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if ok {
		s.close()
	}
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// CleanupInactive removes sessions idle past the timeout and returns how many it
// removed. Sessions with a generation in flight are kept.
func (m *Manager) CleanupInactive() int {
	if m.timeout <= 0 {
		return 0
	}
	cutoff := m.now().Add(-m.timeout)

	m.mu.RLock()
	var expired []string
	for id, s := range m.sessions {
		if s.idleSince().Before(cutoff) && !s.generation.Busy() {
			expired = append(expired, id)
		}
	}
	m.mu.RUnlock()

	for _, id := range expired {
		m.Destroy(id)
	}
	return len(expired)
}

// Run calls CleanupInactive periodically until ctx is done.
func (m *Manager) Run(ctx context.Context) {
	if m.timeout <= 0 {
		<-ctx.Done()
		return
	}
	interval := m.timeout / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.CleanupInactive()
		}
	}
}
