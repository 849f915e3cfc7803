package msgsync

import (
	"context"
	"sync"
)

// Manager holds one running engine per open conversation. Engines are
// created lazily on first access and started exactly once.
type Manager struct {
	mu      sync.Mutex
	engines map[string]*Engine
	factory func(conversationID string) *Engine
}

// NewManager builds a manager around an engine factory.
func NewManager(factory func(conversationID string) *Engine) *Manager {
	if factory == nil {
		panic("msgsync: engine factory cannot be nil")
	}
	return &Manager{
		engines: make(map[string]*Engine),
		factory: factory,
	}
}

// Open returns the engine for a conversation, creating and starting it on
// first use. ctx scopes only the initial synchronous load; the engine's
// background loops run on their own lifetime until Close.
func (m *Manager) Open(ctx context.Context, conversationID string) *Engine {
	m.mu.Lock()
	eng, ok := m.engines[conversationID]
	if !ok {
		eng = m.factory(conversationID)
		m.engines[conversationID] = eng
	}
	m.mu.Unlock()

	eng.Start(ctx)
	return eng
}

// Close tears down the engine for one conversation if it is open.
func (m *Manager) Close(conversationID string) bool {
	m.mu.Lock()
	eng, ok := m.engines[conversationID]
	if ok {
		delete(m.engines, conversationID)
	}
	m.mu.Unlock()

	if !ok {
		return false
	}
	eng.Close()
	return true
}

// CloseAll tears down every open engine. Used on shutdown.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	engines := make([]*Engine, 0, len(m.engines))
	for _, eng := range m.engines {
		engines = append(engines, eng)
	}
	m.engines = make(map[string]*Engine)
	m.mu.Unlock()

	for _, eng := range engines {
		eng.Close()
	}
}

// Len reports the number of open engines.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.engines)
}
