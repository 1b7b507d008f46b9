package models

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseFilter(t *testing.T) {
	for in, want := range map[string]Filter{
		"":          FilterAll,
		"all":       FilterAll,
		"active":    FilterActive,
		"completed": FilterCompleted,
	} {
		got, err := ParseFilter(in)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}

	_, err := ParseFilter("done")
	require.Error(t, err)
}

func TestNewPage(t *testing.T) {
	p := NewPage(make([]Item, 10), 25, 1, 10)
	require.Equal(t, 3, p.Pages)
	require.False(t, p.HasPrev)
	require.True(t, p.HasNext)

	p = NewPage(make([]Item, 5), 25, 3, 10)
	require.True(t, p.HasPrev)
	require.False(t, p.HasNext)
	require.Equal(t, 3, p.LastPage())

	p = NewPage(nil, 0, 1, 10)
	require.Equal(t, 0, p.Pages)
	require.False(t, p.HasNext)
	require.Equal(t, 1, p.LastPage())
}
