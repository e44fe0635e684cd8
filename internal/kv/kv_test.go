package kv

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_GetSet(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	_, ok, err := m.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	buf := []byte("one")
	require.NoError(t, m.Set(ctx, "k", buf))
	buf[0] = 'X'

	v, ok, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "one", string(v))
}

func TestScoped_IsolatesVisitors(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	a := NewScoped(m, "a")
	b := NewScoped(m, "b")

	require.NoError(t, a.Set(ctx, KeyGifts, []byte(`{"1":"book"}`)))

	_, ok, err := b.Get(ctx, KeyGifts)
	require.NoError(t, err)
	assert.False(t, ok)

	v, ok, err := m.Get(ctx, "visitor:a:"+KeyGifts)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.JSONEq(t, `{"1":"book"}`, string(v))
}

func TestJSONHelpers(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	var got map[string]string
	ok, err := GetJSON(ctx, m, KeyGifts, &got)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, SetJSON(ctx, m, KeyGifts, map[string]string{"1": "book"}))
	ok, err = GetJSON(ctx, m, KeyGifts, &got)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "book", got["1"])

	require.NoError(t, m.Set(ctx, KeySuggestions, []byte("{broken")))
	var list []string
	_, err = GetJSON(ctx, m, KeySuggestions, &list)
	assert.Error(t, err)
}

func TestMemory_UpdateIsAtomic(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	scoped := NewScoped(m, "a")

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := UpdateJSON(ctx, scoped, KeySuggestions, func(n *int) error {
				*n++
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	var n int
	ok, err := GetJSON(ctx, scoped, KeySuggestions, &n)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 100, n)
}

func TestUpdateJSON_ErrorLeavesValue(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.Set(ctx, KeyGifts, []byte(`{"1":"book"}`)))

	boom := errors.New("boom")
	err := UpdateJSON(ctx, m, KeyGifts, func(g *map[string]string) error { return boom })
	assert.ErrorIs(t, err, boom)

	v, _, _ := m.Get(ctx, KeyGifts)
	assert.JSONEq(t, `{"1":"book"}`, string(v))
}

func TestUpdateJSON_CorruptValueStartsOver(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.Set(ctx, KeySuggestions, []byte("{broken")))

	require.NoError(t, UpdateJSON(ctx, m, KeySuggestions, func(l *[]string) error {
		*l = append(*l, "x")
		return nil
	}))
	var got []string
	_, err := GetJSON(ctx, m, KeySuggestions, &got)
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, got)
}
