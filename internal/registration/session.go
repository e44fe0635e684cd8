// Package registration holds the guest-facing working copy of an invitation visit and its write paths.
package registration

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wedding-invite/backend/internal/guestlink"
	"github.com/wedding-invite/backend/internal/kv"
	"github.com/wedding-invite/backend/internal/models"
)

// Validation errors. None of them reaches the remote store.
var (
	ErrEmptyGift      = errors.New("gift text is empty")
	ErrNoGuest        = errors.New("no guest selected")
	ErrSongIncomplete = errors.New("song title and artist are required")
	ErrUnknownGuest   = errors.New("guest is not part of this invitation")
	ErrInvalidKind    = errors.New("attendance kind must be wedding or ceremony")
)

// GuestUpdater is the part of the person store a registration visit writes through.
type GuestUpdater interface {
	Update(ctx context.Context, id string, patch models.GuestPatch) (*models.Guest, error)
}

// SongInput is a song suggestion as typed by the guest.
type SongInput struct {
	Title  string `json:"songTitle"`
	Artist string `json:"songArtist"`
	Link   string `json:"songLink"`
}

// SongResult tells where a suggestion ended up: on a guest record or in the anonymous list.
type SongResult struct {
	Guest      *models.Guest          `json:"guest,omitempty"`
	Suggestion *models.SongSuggestion `json:"suggestion,omitempty"`
}

// Session is the working set of guests for one invitation visit.
// The set of guest ids is fixed at construction; only field values change, and only
// after the store confirms a write.
type Session struct {
	mu     sync.Mutex
	guests []models.Guest
	index  map[string]int
	store  GuestUpdater
	local  kv.Store
	logger *zap.Logger
	now    func() time.Time
}

// NewSession creates a session over guests. local holds the browser-scoped lists.
func NewSession(guests []models.Guest, store GuestUpdater, local kv.Store, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Session{
		guests: make([]models.Guest, 0, len(guests)),
		index:  make(map[string]int, len(guests)),
		store:  store,
		local:  local,
		logger: logger,
		now:    time.Now,
	}
	for _, g := range guests {
		if i, dup := s.index[g.ID]; dup {
			// id-less descriptors sharing a name collapse into the first entry
			s.logger.Debug("duplicate guest id in link", zap.String("id", g.ID), zap.Int("kept", i))
			continue
		}
		s.index[g.ID] = len(s.guests)
		s.guests = append(s.guests, g)
	}
	return s
}

// FromLink decodes the invitation query and creates a session from it. A malformed link
// gives an empty session; the reason is only logged.
func FromLink(rawQuery string, store GuestUpdater, local kv.Store, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	guests, err := guestlink.DecodeErr(rawQuery)
	if err != nil {
		logger.Debug("guest link decoded to empty list", zap.Error(err))
	}
	return NewSession(guests, store, local, logger)
}

// Guests returns a snapshot of the working set in link order.
func (s *Session) Guests() []models.Guest {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Guest, len(s.guests))
	copy(out, s.guests)
	return out
}

// Guest returns one guest by id.
func (s *Session) Guest(id string) (models.Guest, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.index[id]
	if !ok {
		return models.Guest{}, false
	}
	return s.guests[i], true
}

// Confirm sets exactly one attendance flag for id.
func (s *Session) Confirm(ctx context.Context, id string, kind models.AttendanceKind) (*models.Guest, error) {
	if !kind.Valid() {
		return nil, ErrInvalidKind
	}
	yes := true
	var patch models.GuestPatch
	if kind == models.AttendWedding {
		patch.AssistWedding = &yes
	} else {
		patch.AssistCeremony = &yes
	}
	return s.write(ctx, "confirm", id, patch)
}

// AddGift records a gift for guestID. A gift always needs a guest. Blank text is rejected,
// anything else is sent as typed.
func (s *Session) AddGift(ctx context.Context, guestID, text string) (*models.Guest, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyGift
	}
	if guestID == "" {
		return nil, ErrNoGuest
	}
	g, err := s.write(ctx, "gift", guestID, models.GuestPatch{Gift: &text})
	if err != nil {
		return nil, err
	}
	s.cacheGift(ctx, g.ID, g.Gift)
	return g, nil
}

// SaveSong stores a song on guestID, or in the anonymous list when guestID is empty.
func (s *Session) SaveSong(ctx context.Context, guestID string, in SongInput) (*SongResult, error) {
	if strings.TrimSpace(in.Title) == "" || strings.TrimSpace(in.Artist) == "" {
		return nil, ErrSongIncomplete
	}
	if guestID == "" {
		sug, err := s.addSuggestion(ctx, in)
		if err != nil {
			return nil, err
		}
		return &SongResult{Suggestion: sug}, nil
	}
	g, err := s.write(ctx, "song", guestID, models.GuestPatch{
		SongTitle:  &in.Title,
		SongArtist: &in.Artist,
		SongLink:   &in.Link,
	})
	if err != nil {
		return nil, err
	}
	return &SongResult{Guest: g}, nil
}

// Suggestions returns the anonymous suggestions kept for this browser, newest first.
func (s *Session) Suggestions(ctx context.Context) ([]models.SongSuggestion, error) {
	return s.loadSuggestions(ctx)
}

// LocalGifts returns the browser's gift cache. The remote gift field stays authoritative.
func (s *Session) LocalGifts(ctx context.Context) map[string]string {
	gifts := map[string]string{}
	if _, err := kv.GetJSON(ctx, s.local, kv.KeyGifts, &gifts); err != nil {
		s.logger.Debug("gift cache unreadable", zap.Error(err))
		return map[string]string{}
	}
	return gifts
}

// write sends patch for id and, on success, copies the patched fields from the store's reply
// into the local entry. The lock is not held across the remote call, so overlapping writes
// resolve in arrival order.
func (s *Session) write(ctx context.Context, op, id string, patch models.GuestPatch) (*models.Guest, error) {
	if id == "" {
		return nil, ErrNoGuest
	}
	if _, ok := s.Guest(id); !ok {
		return nil, ErrUnknownGuest
	}

	updated, err := s.store.Update(ctx, id, patch)
	if err != nil {
		s.logger.Warn("guest write failed", zap.String("op", op), zap.String("guest_id", id), zap.Error(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.index[id]
	patch.Apply(&s.guests[i], *updated)
	g := s.guests[i]
	return &g, nil
}

// cacheGift and addSuggestion go through kv.UpdateJSON: other sessions of the same
// browser write the same keys.
func (s *Session) cacheGift(ctx context.Context, id, gift string) {
	err := kv.UpdateJSON(ctx, s.local, kv.KeyGifts, func(gifts *map[string]string) error {
		if *gifts == nil {
			*gifts = map[string]string{}
		}
		(*gifts)[id] = gift
		return nil
	})
	if err != nil {
		s.logger.Warn("gift cache write failed", zap.String("guest_id", id), zap.Error(err))
	}
}

func (s *Session) addSuggestion(ctx context.Context, in SongInput) (*models.SongSuggestion, error) {
	sug := models.SongSuggestion{
		ID:         uuid.New().String(),
		SongTitle:  in.Title,
		SongArtist: in.Artist,
		SongLink:   in.Link,
		CreatedAt:  s.now(),
	}
	err := kv.UpdateJSON(ctx, s.local, kv.KeySuggestions, func(list *[]models.SongSuggestion) error {
		*list = append([]models.SongSuggestion{sug}, *list...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("save suggestion: %w", err)
	}
	return &sug, nil
}

// loadSuggestions treats a corrupt list as empty.
func (s *Session) loadSuggestions(ctx context.Context) ([]models.SongSuggestion, error) {
	var list []models.SongSuggestion
	raw, ok, err := s.local.Get(ctx, kv.KeySuggestions)
	if err != nil {
		return nil, fmt.Errorf("load suggestions: %w", err)
	}
	if !ok {
		return []models.SongSuggestion{}, nil
	}
	if err := json.Unmarshal(raw, &list); err != nil {
		s.logger.Debug("suggestion list unreadable, starting over", zap.Error(err))
		return []models.SongSuggestion{}, nil
	}
	if list == nil {
		list = []models.SongSuggestion{}
	}
	return list, nil
}
