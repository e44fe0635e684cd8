package admin

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wedding-invite/backend/internal/guestlink"
	"github.com/wedding-invite/backend/internal/models"
	"github.com/wedding-invite/backend/internal/personstore"
)

// memStore keeps records oldest first, like the hosted mock API.
type memStore struct {
	mu      sync.Mutex
	people  []models.Guest
	nextID  int
	err     error
	deletes []string
	// afterList runs once the listing is taken, before List returns
	afterList func()
}

func newMemStore(people ...models.Guest) *memStore {
	return &memStore{people: people, nextID: len(people) + 1}
}

func (m *memStore) List(context.Context) ([]models.Guest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := make([]models.Guest, len(m.people))
	copy(out, m.people)
	hook := m.afterList
	m.mu.Unlock()
	if hook != nil {
		hook()
	}
	m.mu.Lock()
	return out, nil
}

func (m *memStore) Create(_ context.Context, p models.GuestPatch) (*models.Guest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	g := models.Guest{ID: strconv.Itoa(m.nextID), Name: *p.Name}
	m.nextID++
	m.people = append(m.people, g)
	return &g, nil
}

func (m *memStore) Update(_ context.Context, id string, p models.GuestPatch) (*models.Guest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	for i := range m.people {
		if m.people[i].ID == id {
			if p.Name != nil {
				m.people[i].Name = *p.Name
			}
			if p.Gift != nil {
				m.people[i].Gift = *p.Gift
			}
			g := m.people[i]
			return &g, nil
		}
	}
	return nil, &personstore.RemoteStoreError{Op: "update", Status: 404}
}

func (m *memStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.deletes = append(m.deletes, id)
	for i := range m.people {
		if m.people[i].ID == id {
			m.people = append(m.people[:i], m.people[i+1:]...)
			return nil
		}
	}
	return &personstore.RemoteStoreError{Op: "delete", Status: 404}
}

const base = "http://localhost:5173/register"

func loaded(t *testing.T, store *memStore) *Session {
	t.Helper()
	s := NewSession(store, base, nil)
	require.NoError(t, s.Load(context.Background()))
	return s
}

func anaPedro() *memStore {
	return newMemStore(
		models.Guest{ID: "1", Name: "Ana", Gift: "book"},
		models.Guest{ID: "2", Name: "Pedro", SongTitle: "Song", SongArtist: "Band"},
	)
}

func ids(rows []Row) []string {
	var out []string
	for _, r := range rows {
		out = append(out, r.ID)
	}
	return out
}

func TestLoad_NewestFirstAllUnselected(t *testing.T) {
	s := loaded(t, anaPedro())
	rows := s.Visible()
	assert.Equal(t, []string{"2", "1"}, ids(rows))
	for _, r := range rows {
		assert.False(t, r.Selected)
	}
	assert.Empty(t, s.Selected())
}

func TestLoad_Failure(t *testing.T) {
	store := anaPedro()
	store.err = &personstore.RemoteStoreError{Op: "list", Status: 503}
	s := NewSession(store, base, nil)
	err := s.Load(context.Background())
	var rse *personstore.RemoteStoreError
	assert.True(t, errors.As(err, &rse))
	assert.Empty(t, s.Visible())
}

func TestLoad_KeepsGuestCreatedDuringFetch(t *testing.T) {
	store := anaPedro()
	s := loaded(t, store)

	var created *models.Guest
	store.afterList = func() {
		store.afterList = nil
		g, err := s.CreateGuest(context.Background(), "Lucia")
		require.NoError(t, err)
		created = g
	}
	require.NoError(t, s.Load(context.Background()))

	require.NotNil(t, created)
	assert.Equal(t, []string{created.ID, "2", "1"}, ids(s.Visible()))
	assert.NoError(t, s.Toggle(created.ID))
}

func TestLoad_GivesUpWhenRosterKeepsChanging(t *testing.T) {
	store := anaPedro()
	s := loaded(t, store)

	n := 0
	store.afterList = func() {
		n++
		_, err := s.CreateGuest(context.Background(), fmt.Sprintf("guest %d", n))
		require.NoError(t, err)
	}
	assert.ErrorIs(t, s.Load(context.Background()), ErrRosterBusy)
	assert.Equal(t, maxLoadAttempts, n)
	assert.Len(t, s.Visible(), 2+maxLoadAttempts, "local creates are kept")
}

func TestFilter_CaseInsensitiveSubstring(t *testing.T) {
	store := newMemStore(
		models.Guest{ID: "1", Name: "Ana"},
		models.Guest{ID: "2", Name: "Pedro"},
		models.Guest{ID: "3", Name: "Mariana"},
	)
	s := loaded(t, store)

	s.SetFilter("ANA")
	assert.Equal(t, []string{"3", "1"}, ids(s.Visible()))

	s.SetFilter("")
	assert.Len(t, s.Visible(), 3)
}

func TestSelectVisible_OnlyTouchesFilteredRows(t *testing.T) {
	store := newMemStore(
		models.Guest{ID: "1", Name: "Ana"},
		models.Guest{ID: "2", Name: "Pedro"},
		models.Guest{ID: "3", Name: "Mariana"},
	)
	s := loaded(t, store)

	require.NoError(t, s.Toggle("2"))
	s.SetFilter("ana")
	s.SelectVisible(true)
	s.SetFilter("")

	sel := s.Selected()
	require.Len(t, sel, 3)

	s.SetFilter("mari")
	s.SelectVisible(false)
	s.SetFilter("")
	var names []string
	for _, g := range s.Selected() {
		names = append(names, g.Name)
	}
	assert.Equal(t, []string{"Pedro", "Ana"}, names)
}

func TestToggle_Unknown(t *testing.T) {
	s := loaded(t, anaPedro())
	assert.ErrorIs(t, s.Toggle("nope"), ErrUnknownGuest)
}

func TestGenerateLink_EmptySelection(t *testing.T) {
	s := loaded(t, anaPedro())
	link, ok := s.GenerateLink()
	assert.False(t, ok)
	assert.Empty(t, link)
}

func TestGenerateLink_SelectedGuestOnly(t *testing.T) {
	s := loaded(t, anaPedro())
	require.NoError(t, s.Toggle("1"))

	link, ok := s.GenerateLink()
	require.True(t, ok)

	u, err := url.Parse(link)
	require.NoError(t, err)
	assert.Equal(t, "/register", u.Path)
	got := guestlink.Decode(u.RawQuery)
	require.Len(t, got, 1)
	assert.Equal(t, models.Descriptor{ID: "1", Name: "Ana"}, got[0].Descriptor())
	assert.Empty(t, got[0].Gift, "gift never travels in the link")

	cached, stale := s.Link()
	assert.Equal(t, link, cached)
	assert.False(t, stale)
}

func TestLink_StaleAfterSelectionChange(t *testing.T) {
	s := loaded(t, anaPedro())
	require.NoError(t, s.Toggle("1"))
	first, _ := s.GenerateLink()

	require.NoError(t, s.Toggle("2"))
	cached, stale := s.Link()
	assert.Equal(t, first, cached, "not regenerated automatically")
	assert.True(t, stale)

	second, ok := s.GenerateLink()
	require.True(t, ok)
	assert.NotEqual(t, first, second)
	_, stale = s.Link()
	assert.False(t, stale)
}

func TestSetBaseURL(t *testing.T) {
	s := loaded(t, anaPedro())
	s.SetBaseURL(" https://boda.example/register ")
	require.NoError(t, s.Toggle("2"))
	link, ok := s.GenerateLink()
	require.True(t, ok)
	assert.Contains(t, link, "https://boda.example/register?guests=")
}

func TestCreateGuest(t *testing.T) {
	store := anaPedro()
	s := loaded(t, store)

	_, err := s.CreateGuest(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptyName)

	g, err := s.CreateGuest(context.Background(), "  Lucia ")
	require.NoError(t, err)
	assert.Equal(t, "Lucia", g.Name)

	rows := s.Visible()
	assert.Equal(t, []string{g.ID, "2", "1"}, ids(rows))
	assert.False(t, rows[0].Selected)
	assert.Equal(t, 3, s.Snapshot().Total)
}

func TestCreateGuest_FailureLeavesRoster(t *testing.T) {
	store := anaPedro()
	s := loaded(t, store)
	store.err = errors.New("boom")

	_, err := s.CreateGuest(context.Background(), "Lucia")
	assert.Error(t, err)
	assert.Len(t, s.Visible(), 2)
}

func TestUpdateGuest_ReplacesWithServerRecord(t *testing.T) {
	s := loaded(t, anaPedro())
	name := " Ana María "
	g, err := s.UpdateGuest(context.Background(), "1", models.GuestPatch{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Ana María", g.Name)
	assert.Equal(t, "book", g.Gift)
	assert.Equal(t, "Ana María", s.Visible()[1].Name)

	empty := " "
	_, err = s.UpdateGuest(context.Background(), "1", models.GuestPatch{Name: &empty})
	assert.ErrorIs(t, err, ErrEmptyName)

	_, err = s.UpdateGuest(context.Background(), "x", models.GuestPatch{Name: &name})
	assert.ErrorIs(t, err, ErrUnknownGuest)
}

func TestDeleteGuest_RemovesFromRosterAndSelection(t *testing.T) {
	store := anaPedro()
	s := loaded(t, store)
	require.NoError(t, s.Toggle("2"))
	_, _ = s.GenerateLink()

	require.NoError(t, s.DeleteGuest(context.Background(), "2"))

	assert.Equal(t, []string{"1"}, ids(s.Visible()))
	assert.ErrorIs(t, s.Toggle("2"), ErrUnknownGuest)
	assert.Empty(t, s.Selected())
	_, stale := s.Link()
	assert.True(t, stale)

	_, ok := s.GenerateLink()
	assert.False(t, ok, "deleted guest cannot end up in a link")

	require.NoError(t, s.Toggle("1"))
	link, ok := s.GenerateLink()
	require.True(t, ok)
	u, _ := url.Parse(link)
	got := guestlink.Decode(u.RawQuery)
	require.Len(t, got, 1)
	assert.Equal(t, "1", got[0].ID)
}

func TestDeleteGuest_FailureKeepsRow(t *testing.T) {
	store := anaPedro()
	s := loaded(t, store)
	require.NoError(t, s.Toggle("2"))
	store.err = &personstore.RemoteStoreError{Op: "delete", Status: 500}

	assert.Error(t, s.DeleteGuest(context.Background(), "2"))
	assert.Len(t, s.Visible(), 2)
	assert.Len(t, s.Selected(), 1)

	store.err = nil
	assert.ErrorIs(t, s.DeleteGuest(context.Background(), "nope"), ErrUnknownGuest)
	assert.Empty(t, store.deletes)
}

func TestOverviews(t *testing.T) {
	s := loaded(t, anaPedro())
	gifts := s.Gifts()
	require.Len(t, gifts, 2)
	assert.Equal(t, GiftRow{ID: "1", Name: "Ana", Gift: "book"}, gifts[1])

	songs := s.Songs()
	assert.Equal(t, "Song", songs[0].SongTitle)
	assert.Equal(t, "", songs[1].SongTitle)
}
