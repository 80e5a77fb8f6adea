package whatsapp

import (
	"fmt"
	"sync"
)

// Manager owns the map from connection id to live session. It is the
// only place sessions are looked up; components receive it injected
// instead of reading process-wide state.
type Manager struct {
	mu       sync.RWMutex
	sessions map[uint]Session
}

func NewManager() *Manager {
	return &Manager{sessions: make(map[uint]Session)}
}

// Register adds or replaces the session for a connection.
func (m *Manager) Register(s Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID()] = s
}

// Unregister drops the session for a connection.
func (m *Manager) Unregister(whatsappID uint) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, whatsappID)
}

// Get returns the live session for a connection.
func (m *Manager) Get(whatsappID uint) (Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[whatsappID]
	if !ok {
		return nil, fmt.Errorf("no session for whatsapp %d", whatsappID)
	}
	return s, nil
}
