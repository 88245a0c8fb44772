// Package screen runs the live complaint screens: one ListController per open
// session, registered and torn down through a single hub loop.
package screen

import (
	"context"
	"log"
	"sync"

	"complaintdesk/backend/internal/complaint"
	"complaintdesk/backend/internal/storage"
)

type activeSession struct {
	session Session
	cancel  context.CancelFunc
	done    chan struct{}
}

// ManagerService is the hub owning every open screen.
type ManagerService struct {
	RegisterCh   chan Session
	UnregisterCh chan Session

	Storage         storage.Storage
	Messages        complaint.Messages
	Notifier        complaint.Notifier
	DefaultLanguage string

	mu       sync.RWMutex
	sessions map[string]*activeSession
	finished chan Session
	stopped  chan struct{}
}

// NewManagerService creates a hub; call Run to start it.
func NewManagerService(s storage.Storage, m complaint.Messages) *ManagerService {
	return &ManagerService{
		RegisterCh:      make(chan Session),
		UnregisterCh:    make(chan Session),
		Storage:         s,
		Messages:        m,
		DefaultLanguage: "en",
		sessions:        make(map[string]*activeSession),
		finished:        make(chan Session),
		stopped:         make(chan struct{}),
	}
}

// Run processes registrations until ctx is cancelled, then tears every screen down.
func (m *ManagerService) Run(ctx context.Context) {
	defer close(m.stopped)

	for {
		select {
		case s := <-m.RegisterCh:
			m.register(ctx, s)

		case s := <-m.UnregisterCh:
			m.unregister(s)

		case s := <-m.finished:
			// The controller gave up on its own (unauthenticated, view closed).
			m.unregister(s)

		case <-ctx.Done():
			m.shutdown()
			log.Println("Screen hub stopped")
			return
		}
	}
}

// Register hands s to the hub. It returns false if the hub has stopped.
func (m *ManagerService) Register(s Session) bool {
	select {
	case m.RegisterCh <- s:
		return true
	case <-m.stopped:
		return false
	}
}

// Unregister asks the hub to close s. Safe to call after the hub has stopped.
func (m *ManagerService) Unregister(s Session) {
	select {
	case m.UnregisterCh <- s:
	case <-m.stopped:
	}
}

// Stopped is closed once Run has returned.
func (m *ManagerService) Stopped() <-chan struct{} { return m.stopped }

// HasSession reports whether a screen with this id is open.
func (m *ManagerService) HasSession(sessionID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.sessions[sessionID]
	return ok
}

// SessionCount is the number of open screens.
func (m *ManagerService) SessionCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

func (m *ManagerService) register(ctx context.Context, s Session) {
	id := s.GetSessionID()

	m.mu.RLock()
	existing, ok := m.sessions[id]
	m.mu.RUnlock()
	if ok {
		log.Printf("WARNING: screen %s registered twice, replacing the old one", id)
		m.stop(existing)
	}

	sctx, cancel := context.WithCancel(ctx)
	active := &activeSession{session: s, cancel: cancel, done: make(chan struct{})}

	m.mu.Lock()
	m.sessions[id] = active
	m.mu.Unlock()

	ctrl := complaint.NewListController(m.Storage, s.View(), m.Messages)
	ctrl.Notifier = m.Notifier
	if m.DefaultLanguage != "" {
		ctrl.DefaultLanguage = m.DefaultLanguage
	}

	s.Run()
	go func() {
		defer close(active.done)
		if err := ctrl.Run(sctx, s.GetUserID(), s.Actions()); err != nil {
			log.Printf("WARNING: screen %s for %s ended: %v", id, s.GetUserID(), err)
		}
		select {
		case m.finished <- s:
		case <-sctx.Done():
		}
	}()

	log.Printf("Screen %s opened for %s", id, s.GetUserID())
}

func (m *ManagerService) unregister(s Session) {
	id := s.GetSessionID()

	m.mu.RLock()
	active, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok || active.session != s {
		return
	}
	m.stop(active)
	log.Printf("Screen %s closed", id)
}

// stop cancels the controller, waits for it to release its subscription and
// only then closes the transport, so no render can race the close.
func (m *ManagerService) stop(a *activeSession) {
	a.cancel()
	<-a.done
	a.session.Close()

	m.mu.Lock()
	if m.sessions[a.session.GetSessionID()] == a {
		delete(m.sessions, a.session.GetSessionID())
	}
	m.mu.Unlock()
}

func (m *ManagerService) shutdown() {
	m.mu.RLock()
	all := make([]*activeSession, 0, len(m.sessions))
	for _, a := range m.sessions {
		all = append(all, a)
	}
	m.mu.RUnlock()

	for _, a := range all {
		m.stop(a)
	}
}
