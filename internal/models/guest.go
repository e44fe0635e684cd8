package models

import (
	"time"
)

// Guest is a person record as held by the remote store.
type Guest struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Gift           string `json:"gift"`
	SongTitle      string `json:"songTitle"`
	SongArtist     string `json:"songArtist"`
	SongLink       string `json:"songLink"`
	AssistWedding  bool   `json:"assistWedding"`
	AssistCeremony bool   `json:"assistCeremony"`
}

// Descriptor is the reduced guest view embedded in an invitation link.
// Gift and song fields are left out so a shared link never carries prior entries.
type Descriptor struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	AssistWedding  bool   `json:"assistWedding"`
	AssistCeremony bool   `json:"assistCeremony"`
}

// Descriptor projects the guest to its link descriptor.
func (g Guest) Descriptor() Descriptor {
	return Descriptor{
		ID:             g.ID,
		Name:           g.Name,
		AssistWedding:  g.AssistWedding,
		AssistCeremony: g.AssistCeremony,
	}
}

// HasSong reports whether the guest suggested a song.
func (g Guest) HasSong() bool {
	return g.SongTitle != "" || g.SongArtist != "" || g.SongLink != ""
}

// GuestPatch is a partial update body. Nil fields are not sent and stay untouched.
type GuestPatch struct {
	Name           *string `json:"name,omitempty"`
	Gift           *string `json:"gift,omitempty"`
	SongTitle      *string `json:"songTitle,omitempty"`
	SongArtist     *string `json:"songArtist,omitempty"`
	SongLink       *string `json:"songLink,omitempty"`
	AssistWedding  *bool   `json:"assistWedding,omitempty"`
	AssistCeremony *bool   `json:"assistCeremony,omitempty"`
}

// Apply copies the fields set in p from src onto g. Values come from src, not from p,
// so a server response can be applied for exactly the fields a patch touched.
func (p GuestPatch) Apply(g *Guest, src Guest) {
	if p.Name != nil {
		g.Name = src.Name
	}
	if p.Gift != nil {
		g.Gift = src.Gift
	}
	if p.SongTitle != nil {
		g.SongTitle = src.SongTitle
	}
	if p.SongArtist != nil {
		g.SongArtist = src.SongArtist
	}
	if p.SongLink != nil {
		g.SongLink = src.SongLink
	}
	if p.AssistWedding != nil {
		g.AssistWedding = src.AssistWedding
	}
	if p.AssistCeremony != nil {
		g.AssistCeremony = src.AssistCeremony
	}
}

// NewGuestPatch returns the create body for a fresh guest: every field present with its zero value.
func NewGuestPatch(name string) GuestPatch {
	empty := ""
	no := false
	return GuestPatch{
		Name:           &name,
		Gift:           &empty,
		SongTitle:      &empty,
		SongArtist:     &empty,
		SongLink:       &empty,
		AssistWedding:  &no,
		AssistCeremony: &no,
	}
}

// AttendanceKind selects which attendance flag a confirmation sets.
type AttendanceKind string

const (
	AttendWedding  AttendanceKind = "wedding"
	AttendCeremony AttendanceKind = "ceremony"
)

// Valid reports whether k is a known kind.
func (k AttendanceKind) Valid() bool {
	return k == AttendWedding || k == AttendCeremony
}

// SongSuggestion is a song suggested without naming a guest.
type SongSuggestion struct {
	ID         string    `json:"id"`
	SongTitle  string    `json:"songTitle"`
	SongArtist string    `json:"songArtist"`
	SongLink   string    `json:"songLink"`
	CreatedAt  time.Time `json:"created_at"`
}
