// Package guestlink encodes invitation guest lists into a link query parameter and decodes them back.
//
// The wire format is `guests=<percent-encoded JSON array of descriptors>`, escaped the same way as
// JavaScript's encodeURIComponent so links stay interchangeable with the browser front-end.
package guestlink

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/wedding-invite/backend/internal/models"
)

const (
	// Param is the query parameter carrying the guest payload.
	Param = "guests"
	// PlaceholderName is used for descriptors without a name.
	PlaceholderName = "Invitado"
)

var (
	// ErrMissing is reported when the query has no guests parameter.
	ErrMissing = errors.New("guests parameter missing")
	// ErrNotArray is reported when the payload is valid JSON but not an array.
	ErrNotArray = errors.New("guests payload is not an array")
)

// Encode returns the query fragment for guests. Output depends only on input order and values.
func Encode(guests []models.Descriptor) string {
	if guests == nil {
		guests = []models.Descriptor{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	// Descriptor holds only strings and bools, encoding cannot fail.
	_ = enc.Encode(guests)
	payload := bytes.TrimRight(buf.Bytes(), "\n")
	return Param + "=" + EscapeComponent(string(payload))
}

// Link appends the encoded guests to baseURL.
func Link(baseURL string, guests []models.Descriptor) string {
	sep := "?"
	if strings.Contains(baseURL, "?") {
		sep = "&"
		if strings.HasSuffix(baseURL, "?") || strings.HasSuffix(baseURL, "&") {
			sep = ""
		}
	}
	return baseURL + sep + Encode(guests)
}

// Decode parses rawQuery and returns the guests it carries. It never fails: missing or
// malformed input yields an empty list.
func Decode(rawQuery string) []models.Guest {
	guests, _ := DecodeErr(rawQuery)
	return guests
}

// DecodeErr is Decode that also reports why the result degraded to empty, for diagnostics.
// The returned slice is always non-nil.
func DecodeErr(rawQuery string) ([]models.Guest, error) {
	empty := []models.Guest{}
	values, parseErr := url.ParseQuery(strings.TrimPrefix(rawQuery, "?"))
	raw := values.Get(Param)
	if raw == "" {
		if parseErr != nil {
			return empty, fmt.Errorf("parse query: %w", parseErr)
		}
		return empty, ErrMissing
	}
	// Links built by encodeURIComponent-style encoders may arrive escaped twice.
	if unescaped, err := url.PathUnescape(raw); err == nil {
		raw = unescaped
	}

	var elems []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &elems); err != nil {
		var probe any
		if json.Unmarshal([]byte(raw), &probe) == nil {
			return empty, ErrNotArray
		}
		return empty, fmt.Errorf("unmarshal guests: %w", err)
	}

	out := make([]models.Guest, 0, len(elems))
	for _, e := range elems {
		var obj map[string]any
		if err := json.Unmarshal(e, &obj); err != nil || obj == nil {
			continue
		}
		out = append(out, coerce(obj))
	}
	return out, nil
}

// coerce builds a full guest from a loosely typed descriptor object.
// A missing id falls back to the name, so two id-less guests with one name collapse into one id.
func coerce(obj map[string]any) models.Guest {
	name, ok := stringOf(obj["name"])
	if !ok {
		name = PlaceholderName
	}
	id, ok := stringOf(obj["id"])
	if !ok {
		id = name
	}
	return models.Guest{
		ID:             id,
		Name:           name,
		Gift:           stringOr(obj["gift"]),
		SongTitle:      stringOr(obj["songTitle"]),
		SongArtist:     stringOr(obj["songArtist"]),
		SongLink:       stringOr(obj["songLink"]),
		AssistWedding:  truthy(obj["assistWedding"]),
		AssistCeremony: truthy(obj["assistCeremony"]),
	}
}

func stringOf(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		return t, true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(t), true
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return "", false
		}
		return string(b), true
	}
}

func stringOr(v any) string {
	s, _ := stringOf(v)
	return s
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		return t != ""
	default:
		return true
	}
}

// EscapeComponent percent-encodes s like JavaScript's encodeURIComponent.
func EscapeComponent(s string) string {
	const hex = "0123456789ABCDEF"
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if unreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hex[c>>4])
		b.WriteByte(hex[c&15])
	}
	return b.String()
}

func unreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	switch c {
	case '-', '_', '.', '!', '~', '*', '\'', '(', ')':
		return true
	}
	return false
}
