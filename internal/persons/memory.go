package persons

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/wedding-invite/backend/internal/models"
)

// MemoryStore keeps persons in process, in creation order. Used when no database is configured.
type MemoryStore struct {
	mu     sync.RWMutex
	people []models.Guest
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) find(id string) int {
	for i := range m.people {
		if m.people[i].ID == id {
			return i
		}
	}
	return -1
}

func (m *MemoryStore) List(context.Context) ([]models.Guest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Guest, len(m.people))
	copy(out, m.people)
	return out, nil
}

func (m *MemoryStore) Get(_ context.Context, id string) (*models.Guest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	i := m.find(id)
	if i < 0 {
		return nil, ErrNotFound
	}
	g := m.people[i]
	return &g, nil
}

func (m *MemoryStore) Create(_ context.Context, p models.GuestPatch) (*models.Guest, error) {
	g := models.Guest{}
	apply(&g, p)
	g.ID = uuid.NewString()
	m.mu.Lock()
	m.people = append(m.people, g)
	m.mu.Unlock()
	return &g, nil
}

func (m *MemoryStore) Update(_ context.Context, id string, p models.GuestPatch) (*models.Guest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.find(id)
	if i < 0 {
		return nil, ErrNotFound
	}
	apply(&m.people[i], p)
	g := m.people[i]
	return &g, nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) (*models.Guest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.find(id)
	if i < 0 {
		return nil, ErrNotFound
	}
	g := m.people[i]
	m.people = append(m.people[:i], m.people[i+1:]...)
	return &g, nil
}

// apply writes the values carried by p onto g.
func apply(g *models.Guest, p models.GuestPatch) {
	var src models.Guest
	if p.Name != nil {
		src.Name = *p.Name
	}
	if p.Gift != nil {
		src.Gift = *p.Gift
	}
	if p.SongTitle != nil {
		src.SongTitle = *p.SongTitle
	}
	if p.SongArtist != nil {
		src.SongArtist = *p.SongArtist
	}
	if p.SongLink != nil {
		src.SongLink = *p.SongLink
	}
	if p.AssistWedding != nil {
		src.AssistWedding = *p.AssistWedding
	}
	if p.AssistCeremony != nil {
		src.AssistCeremony = *p.AssistCeremony
	}
	p.Apply(g, src)
}
