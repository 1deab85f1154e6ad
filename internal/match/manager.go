package match

import (
	"sync"

	"github.com/google/uuid"
)

// Manager is the registry of live matches, keyed by match ID. Matches run
// independently; the registry itself is safe for concurrent lookup.
type Manager struct {
	mu       sync.RWMutex
	matches  map[string]*Match
	byPlayer map[int64]string
}

func NewManager() *Manager {
	return &Manager{
		matches:  make(map[string]*Match),
		byPlayer: make(map[int64]string),
	}
}

func (m *Manager) Create(cfg Config) *Match {
	id := uuid.New().String()
	mt := New(id, cfg)

	m.mu.Lock()
	m.matches[id] = mt
	m.mu.Unlock()

	return mt
}

func (m *Manager) Get(id string) (*Match, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	mt, ok := m.matches[id]
	return mt, ok
}

// ByPlayer resolves the match a participant currently belongs to.
func (m *Manager) ByPlayer(playerID int64) (*Match, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byPlayer[playerID]
	if !ok {
		return nil, false
	}
	mt, ok := m.matches[id]
	return mt, ok
}

// Bind records the player → match index entry after a successful join.
func (m *Manager) Bind(playerID int64, matchID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byPlayer[playerID] = matchID
}

func (m *Manager) Unbind(playerID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.byPlayer, playerID)
}

func (m *Manager) Remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.matches, id)
	for pid, mid := range m.byPlayer {
		if mid == id {
			delete(m.byPlayer, pid)
		}
	}
}

func (m *Manager) ListByPhase(phase Phase) []*Match {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*Match
	for _, mt := range m.matches {
		if mt.Phase() == phase {
			out = append(out, mt)
		}
	}
	return out
}

func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.matches)
}
