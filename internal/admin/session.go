// Package admin holds the operator's view of the guest roster: selection, filtering and
// invitation link generation.
package admin

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/wedding-invite/backend/internal/guestlink"
	"github.com/wedding-invite/backend/internal/models"
)

var (
	ErrEmptyName    = errors.New("guest name is empty")
	ErrUnknownGuest = errors.New("guest not in roster")
	ErrRosterBusy   = errors.New("roster kept changing during reload")
)

const maxLoadAttempts = 3

// Store is the person resource as the admin view uses it.
type Store interface {
	List(ctx context.Context) ([]models.Guest, error)
	Create(ctx context.Context, patch models.GuestPatch) (*models.Guest, error)
	Update(ctx context.Context, id string, patch models.GuestPatch) (*models.Guest, error)
	Delete(ctx context.Context, id string) error
}

// Row is a roster entry with its selection flag.
type Row struct {
	models.Guest
	Selected bool `json:"selected"`
}

// GiftRow is one line of the gifts overview.
type GiftRow struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Gift string `json:"gift"`
}

// SongRow is one line of the song suggestions overview.
type SongRow struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	SongTitle  string `json:"songTitle"`
	SongArtist string `json:"songArtist"`
	SongLink   string `json:"songLink"`
}

// Snapshot is the state the admin screen renders.
type Snapshot struct {
	Rows      []Row  `json:"rows"`
	Total     int    `json:"total"`
	Selected  int    `json:"selected"`
	Filter    string `json:"filter"`
	BaseURL   string `json:"base_url"`
	Link      string `json:"link,omitempty"`
	LinkStale bool   `json:"link_stale"`
}

// Session is one operator visit. Every roster id has exactly one selection entry.
type Session struct {
	mu        sync.RWMutex
	people    []models.Guest
	selected  map[string]bool
	filter    string
	baseURL   string
	link      string
	linkStale bool
	// rev counts local roster writes; Load discards fetches that overlap one
	rev       uint64
	store     Store
	logger    *zap.Logger
}

// NewSession creates an empty admin session. Call Load to fetch the roster.
func NewSession(store Store, baseURL string, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{
		selected: make(map[string]bool),
		baseURL:  baseURL,
		store:    store,
		logger:   logger,
	}
}

// Load fetches the whole roster, newest first (the store lists oldest first), and clears the selection.
// A fetch that overlaps a create, update or delete of this session is thrown away and repeated.
func (s *Session) Load(ctx context.Context) error {
	for attempt := 0; attempt < maxLoadAttempts; attempt++ {
		s.mu.RLock()
		rev := s.rev
		s.mu.RUnlock()

		list, err := s.store.List(ctx)
		if err != nil {
			s.logger.Warn("roster load failed", zap.Error(err))
			return fmt.Errorf("load roster: %w", err)
		}
		people := make([]models.Guest, len(list))
		for i, g := range list {
			people[len(list)-1-i] = g
		}
		selected := make(map[string]bool, len(people))
		for _, g := range people {
			selected[g.ID] = false
		}

		s.mu.Lock()
		if s.rev != rev {
			s.mu.Unlock()
			s.logger.Debug("roster changed during load, fetching again", zap.Int("attempt", attempt+1))
			continue
		}
		s.people = people
		s.selected = selected
		s.markStale()
		s.mu.Unlock()
		return nil
	}
	return ErrRosterBusy
}

// SetFilter sets the case-insensitive name filter.
func (s *Session) SetFilter(filter string) {
	s.mu.Lock()
	s.filter = filter
	s.mu.Unlock()
}

// SetBaseURL sets the address invitation links point at.
func (s *Session) SetBaseURL(baseURL string) {
	s.mu.Lock()
	s.baseURL = strings.TrimSpace(baseURL)
	s.mu.Unlock()
}

// Visible returns the rows passing the current filter.
func (s *Session) Visible() []Row {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.visible()
}

// Toggle flips the selection of id.
func (s *Session) Toggle(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.selected[id]
	if !ok {
		return ErrUnknownGuest
	}
	s.selected[id] = !v
	s.markStale()
	return nil
}

// SelectVisible sets the selection of every row passing the filter. Hidden rows keep theirs.
func (s *Session) SelectVisible(value bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.visible() {
		s.selected[r.ID] = value
	}
	s.markStale()
}

// Selected returns the selected guests in roster order.
func (s *Session) Selected() []models.Guest {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.chosen()
}

// GenerateLink builds and caches the invitation link for the current selection.
// It reports false, leaving the cache alone, when nothing is selected.
func (s *Session) GenerateLink() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	chosen := s.chosen()
	if len(chosen) == 0 {
		return "", false
	}
	minimal := make([]models.Descriptor, len(chosen))
	for i, g := range chosen {
		minimal[i] = g.Descriptor()
	}
	s.link = guestlink.Link(s.baseURL, minimal)
	s.linkStale = false
	return s.link, true
}

// Link returns the cached link and whether the selection changed since it was generated.
func (s *Session) Link() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.link, s.linkStale
}

// CreateGuest adds a guest at the top of the roster, unselected.
func (s *Session) CreateGuest(ctx context.Context, name string) (*models.Guest, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyName
	}
	g, err := s.store.Create(ctx, models.NewGuestPatch(name))
	if err != nil {
		s.logger.Warn("guest create failed", zap.Error(err))
		return nil, fmt.Errorf("create guest: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.people = append([]models.Guest{*g}, s.people...)
	s.selected[g.ID] = false
	s.rev++
	return g, nil
}

// UpdateGuest patches a guest and replaces the roster entry with the store's reply.
func (s *Session) UpdateGuest(ctx context.Context, id string, patch models.GuestPatch) (*models.Guest, error) {
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, ErrEmptyName
		}
		patch.Name = &name
	}
	if !s.has(id) {
		return nil, ErrUnknownGuest
	}
	g, err := s.store.Update(ctx, id, patch)
	if err != nil {
		s.logger.Warn("guest update failed", zap.String("guest_id", id), zap.Error(err))
		return nil, fmt.Errorf("update guest: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.people {
		if s.people[i].ID == id {
			s.people[i] = *g
			break
		}
	}
	s.rev++
	return g, nil
}

// DeleteGuest removes a guest from the store, the roster and the selection.
func (s *Session) DeleteGuest(ctx context.Context, id string) error {
	if !s.has(id) {
		return ErrUnknownGuest
	}
	if err := s.store.Delete(ctx, id); err != nil {
		s.logger.Warn("guest delete failed", zap.String("guest_id", id), zap.Error(err))
		return fmt.Errorf("delete guest: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.people[:0]
	for _, g := range s.people {
		if g.ID != id {
			kept = append(kept, g)
		}
	}
	s.people = kept
	if s.selected[id] {
		s.markStale()
	}
	delete(s.selected, id)
	s.rev++
	return nil
}

// Gifts lists every guest's gift, in roster order.
func (s *Session) Gifts() []GiftRow {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]GiftRow, len(s.people))
	for i, g := range s.people {
		out[i] = GiftRow{ID: g.ID, Name: g.Name, Gift: g.Gift}
	}
	return out
}

// Songs lists every guest's song suggestion, in roster order.
func (s *Session) Songs() []SongRow {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]SongRow, len(s.people))
	for i, g := range s.people {
		out[i] = SongRow{ID: g.ID, Name: g.Name, SongTitle: g.SongTitle, SongArtist: g.SongArtist, SongLink: g.SongLink}
	}
	return out
}

// Snapshot returns everything the admin screen shows.
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		Rows:      s.visible(),
		Total:     len(s.people),
		Selected:  len(s.chosen()),
		Filter:    s.filter,
		BaseURL:   s.baseURL,
		Link:      s.link,
		LinkStale: s.linkStale,
	}
}

func (s *Session) has(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.selected[id]
	return ok
}

// visible expects s.mu held.
func (s *Session) visible() []Row {
	needle := strings.ToLower(s.filter)
	rows := make([]Row, 0, len(s.people))
	for _, g := range s.people {
		if strings.Contains(strings.ToLower(g.Name), needle) {
			rows = append(rows, Row{Guest: g, Selected: s.selected[g.ID]})
		}
	}
	return rows
}

// chosen expects s.mu held.
func (s *Session) chosen() []models.Guest {
	var out []models.Guest
	for _, g := range s.people {
		if s.selected[g.ID] {
			out = append(out, g)
		}
	}
	return out
}

// markStale expects s.mu held.
func (s *Session) markStale() {
	if s.link != "" {
		s.linkStale = true
	}
}
