package registration

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wedding-invite/backend/internal/guestlink"
	"github.com/wedding-invite/backend/internal/kv"
	"github.com/wedding-invite/backend/internal/models"
	"github.com/wedding-invite/backend/internal/personstore"
)

type updateCall struct {
	id    string
	patch models.GuestPatch
}

// fakeStore echoes patches onto its own copy of each record.
type fakeStore struct {
	mu      sync.Mutex
	records map[string]models.Guest
	calls   []updateCall
	err     error
	// normalize lets a test mimic server-side rewriting of values
	normalize func(*models.Guest)
}

func newFakeStore(guests ...models.Guest) *fakeStore {
	f := &fakeStore{records: map[string]models.Guest{}}
	for _, g := range guests {
		f.records[g.ID] = g
	}
	return f
}

func (f *fakeStore) Update(_ context.Context, id string, patch models.GuestPatch) (*models.Guest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, updateCall{id: id, patch: patch})
	if f.err != nil {
		return nil, f.err
	}
	g := f.records[id]
	g.ID = id
	src := models.Guest{}
	if patch.Name != nil {
		src.Name = *patch.Name
	}
	if patch.Gift != nil {
		src.Gift = *patch.Gift
	}
	if patch.SongTitle != nil {
		src.SongTitle = *patch.SongTitle
	}
	if patch.SongArtist != nil {
		src.SongArtist = *patch.SongArtist
	}
	if patch.SongLink != nil {
		src.SongLink = *patch.SongLink
	}
	if patch.AssistWedding != nil {
		src.AssistWedding = *patch.AssistWedding
	}
	if patch.AssistCeremony != nil {
		src.AssistCeremony = *patch.AssistCeremony
	}
	patch.Apply(&g, src)
	if f.normalize != nil {
		f.normalize(&g)
	}
	f.records[id] = g
	return &g, nil
}

func (f *fakeStore) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func sampleGuests() []models.Guest {
	return []models.Guest{
		{ID: "1", Name: "Ana"},
		{ID: "2", Name: "Pedro", AssistCeremony: true},
	}
}

func newTestSession(store *fakeStore) (*Session, *kv.Memory) {
	local := kv.NewMemory()
	return NewSession(sampleGuests(), store, local, nil), local
}

func TestFromLink(t *testing.T) {
	q := guestlink.Encode([]models.Descriptor{{ID: "1", Name: "Ana"}, {ID: "2", Name: "Pedro"}})
	s := FromLink(q, newFakeStore(), kv.NewMemory(), nil)
	guests := s.Guests()
	require.Len(t, guests, 2)
	assert.Equal(t, "Pedro", guests[1].Name)

	empty := FromLink("guests=not-json", newFakeStore(), kv.NewMemory(), nil)
	assert.Empty(t, empty.Guests())
}

func TestNewSession_DuplicateIDsCollapse(t *testing.T) {
	q := "guests=" + guestlink.EscapeComponent(`[{"name":"Ana"},{"name":"Ana","assistWedding":true}]`)
	s := FromLink(q, newFakeStore(), kv.NewMemory(), nil)
	guests := s.Guests()
	require.Len(t, guests, 1)
	assert.False(t, guests[0].AssistWedding)
}

func TestConfirm_Wedding(t *testing.T) {
	store := newFakeStore(sampleGuests()...)
	s, _ := newTestSession(store)

	g, err := s.Confirm(context.Background(), "2", models.AttendWedding)
	require.NoError(t, err)
	assert.True(t, g.AssistWedding)
	assert.True(t, g.AssistCeremony, "other flag untouched")

	require.Len(t, store.calls, 1)
	p := store.calls[0].patch
	require.NotNil(t, p.AssistWedding)
	assert.Nil(t, p.AssistCeremony)
	assert.Nil(t, p.Gift)
}

func TestConfirm_Ceremony(t *testing.T) {
	store := newFakeStore(sampleGuests()...)
	s, _ := newTestSession(store)

	g, err := s.Confirm(context.Background(), "1", models.AttendCeremony)
	require.NoError(t, err)
	assert.True(t, g.AssistCeremony)
	assert.False(t, g.AssistWedding)

	p := store.calls[0].patch
	require.NotNil(t, p.AssistCeremony)
	assert.Nil(t, p.AssistWedding)
}

func TestConfirm_Rejects(t *testing.T) {
	store := newFakeStore(sampleGuests()...)
	s, _ := newTestSession(store)

	_, err := s.Confirm(context.Background(), "1", "party")
	assert.ErrorIs(t, err, ErrInvalidKind)

	_, err = s.Confirm(context.Background(), "99", models.AttendWedding)
	assert.ErrorIs(t, err, ErrUnknownGuest)

	assert.Zero(t, store.callCount())
}

func TestConfirm_RemoteFailureLeavesState(t *testing.T) {
	store := newFakeStore(sampleGuests()...)
	store.err = &personstore.RemoteStoreError{Op: "update", Status: 500}
	s, _ := newTestSession(store)
	before := s.Guests()

	_, err := s.Confirm(context.Background(), "1", models.AttendWedding)
	var rse *personstore.RemoteStoreError
	require.True(t, errors.As(err, &rse))
	assert.Equal(t, 500, rse.Status)
	assert.Equal(t, before, s.Guests())
}

func TestAddGift_ValidationIsNoop(t *testing.T) {
	store := newFakeStore(sampleGuests()...)
	s, local := newTestSession(store)
	before := s.Guests()

	cases := []struct {
		guest, text string
		want        error
	}{
		{"", "", ErrEmptyGift},
		{"", "   ", ErrEmptyGift},
		{"", "book", ErrNoGuest},
		{"1", "\t\n", ErrEmptyGift},
	}
	for _, tc := range cases {
		_, err := s.AddGift(context.Background(), tc.guest, tc.text)
		assert.ErrorIs(t, err, tc.want)
	}

	assert.Zero(t, store.callCount())
	assert.Equal(t, before, s.Guests())
	_, ok, _ := local.Get(context.Background(), kv.KeyGifts)
	assert.False(t, ok)
}

func TestAddGift_AppliesServerValue(t *testing.T) {
	store := newFakeStore(sampleGuests()...)
	store.normalize = func(g *models.Guest) { g.Gift = strings.ToUpper(strings.TrimSpace(g.Gift)) }
	s, _ := newTestSession(store)

	g, err := s.AddGift(context.Background(), "1", "  a book ")
	require.NoError(t, err)
	assert.Equal(t, "A BOOK", g.Gift)

	require.Len(t, store.calls, 1)
	assert.Equal(t, "  a book ", *store.calls[0].patch.Gift, "sent as typed")
	assert.Nil(t, store.calls[0].patch.SongTitle)

	local, _ := s.Guest("1")
	assert.Equal(t, "A BOOK", local.Gift)
	assert.Equal(t, map[string]string{"1": "A BOOK"}, s.LocalGifts(context.Background()))
}

func TestSaveSong_Validation(t *testing.T) {
	store := newFakeStore(sampleGuests()...)
	s, _ := newTestSession(store)

	_, err := s.SaveSong(context.Background(), "1", SongInput{Title: " ", Artist: "Queen"})
	assert.ErrorIs(t, err, ErrSongIncomplete)
	_, err = s.SaveSong(context.Background(), "", SongInput{Title: "Bohemian", Artist: ""})
	assert.ErrorIs(t, err, ErrSongIncomplete)
	assert.Zero(t, store.callCount())

	list, err := s.Suggestions(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestSaveSong_AnonymousGoesToLocalList(t *testing.T) {
	store := newFakeStore(sampleGuests()...)
	s, local := newTestSession(store)
	ctx := context.Background()

	res, err := s.SaveSong(ctx, "", SongInput{Title: "Vivir mi vida", Artist: "Marc Anthony"})
	require.NoError(t, err)
	require.NotNil(t, res.Suggestion)
	assert.Nil(t, res.Guest)
	assert.Zero(t, store.callCount())

	_, err = s.SaveSong(ctx, "", SongInput{Title: "Despacito", Artist: "Luis Fonsi", Link: "https://x"})
	require.NoError(t, err)

	list, err := s.Suggestions(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Despacito", list[0].SongTitle, "newest first")
	assert.Equal(t, "Vivir mi vida", list[1].SongTitle)

	// a later visit from the same browser sees the same list
	again := NewSession(nil, store, local, nil)
	list, err = again.Suggestions(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestSaveSong_GuestSendsOnlySongFields(t *testing.T) {
	store := newFakeStore(sampleGuests()...)
	s, _ := newTestSession(store)

	res, err := s.SaveSong(context.Background(), "2", SongInput{Title: "Song", Artist: "Band"})
	require.NoError(t, err)
	require.NotNil(t, res.Guest)
	assert.Equal(t, "Song", res.Guest.SongTitle)
	assert.Equal(t, "", res.Guest.SongLink)

	require.Len(t, store.calls, 1)
	p := store.calls[0].patch
	require.NotNil(t, p.SongTitle)
	require.NotNil(t, p.SongArtist)
	require.NotNil(t, p.SongLink, "link is always sent")
	assert.Nil(t, p.Gift)
	assert.Nil(t, p.Name)
	assert.Nil(t, p.AssistWedding)
	assert.Nil(t, p.AssistCeremony)

	list, err := s.Suggestions(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestSaveSong_SendsTextAsTyped(t *testing.T) {
	store := newFakeStore(sampleGuests()...)
	s, _ := newTestSession(store)

	_, err := s.SaveSong(context.Background(), "1", SongInput{Title: " Song ", Artist: "Band  ", Link: " https://x"})
	require.NoError(t, err)
	p := store.calls[0].patch
	assert.Equal(t, " Song ", *p.SongTitle)
	assert.Equal(t, "Band  ", *p.SongArtist)
	assert.Equal(t, " https://x", *p.SongLink)
}

func TestSaveSong_SessionsOfOneBrowserKeepEverySuggestion(t *testing.T) {
	shared := kv.NewScoped(kv.NewMemory(), "visitor-1")
	ctx := context.Background()

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s := NewSession(sampleGuests(), newFakeStore(sampleGuests()...), shared, nil)
			_, err := s.SaveSong(ctx, "", SongInput{Title: fmt.Sprintf("song %d", i), Artist: "band"})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	list, err := NewSession(nil, newFakeStore(), shared, nil).Suggestions(ctx)
	require.NoError(t, err)
	assert.Len(t, list, n)
}

func TestAddGift_SessionsOfOneBrowserKeepEveryGift(t *testing.T) {
	shared := kv.NewScoped(kv.NewMemory(), "visitor-1")
	ctx := context.Background()

	var wg sync.WaitGroup
	for _, id := range []string{"1", "2"} {
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func(id string) {
				defer wg.Done()
				s := NewSession(sampleGuests(), newFakeStore(sampleGuests()...), shared, nil)
				_, err := s.AddGift(ctx, id, "gift "+id)
				assert.NoError(t, err)
			}(id)
		}
	}
	wg.Wait()

	gifts := NewSession(nil, newFakeStore(), shared, nil).LocalGifts(ctx)
	assert.Equal(t, map[string]string{"1": "gift 1", "2": "gift 2"}, gifts)
}

func TestSession_IDSetNeverChanges(t *testing.T) {
	store := newFakeStore(sampleGuests()...)
	s, _ := newTestSession(store)
	ctx := context.Background()

	_, _ = s.Confirm(ctx, "1", models.AttendWedding)
	_, _ = s.AddGift(ctx, "2", "flowers")
	_, _ = s.SaveSong(ctx, "", SongInput{Title: "a", Artist: "b"})
	_, _ = s.AddGift(ctx, "3", "nope")

	var ids []string
	for _, g := range s.Guests() {
		ids = append(ids, g.ID)
	}
	assert.Equal(t, []string{"1", "2"}, ids)
}

func TestSession_ConcurrentWrites(t *testing.T) {
	store := newFakeStore(sampleGuests()...)
	s, _ := newTestSession(store)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = s.Confirm(ctx, "1", models.AttendWedding)
		}()
		go func() {
			defer wg.Done()
			_, _ = s.AddGift(ctx, "2", "gift")
		}()
	}
	wg.Wait()

	a, _ := s.Guest("1")
	b, _ := s.Guest("2")
	assert.True(t, a.AssistWedding)
	assert.Equal(t, "gift", b.Gift)
	assert.Equal(t, 40, store.callCount())
}
