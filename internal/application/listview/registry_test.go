package listview

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linkdash/internal/domain/link"
)

func TestRegistry_PutReplacesAndCloses(t *testing.T) {
	l := newFakeList(3, func(int) string { return link.StatusActive })
	r := NewRegistry()
	t.Cleanup(r.Close)

	first := mount(t, l, nil, Options{})
	second := mount(t, l, nil, Options{})
	r.Put("tok", first)
	r.Put("tok", second)

	got, ok := r.Get("tok", ResourceLinks)
	require.True(t, ok)
	assert.Same(t, second, got)
	assert.Equal(t, 1, r.Len())
	assert.ErrorIs(t, first.Toggle("link-0"), ErrClosed)
}

func TestRegistry_ScopedBySession(t *testing.T) {
	l := newFakeList(3, func(int) string { return link.StatusActive })
	r := NewRegistry()
	t.Cleanup(r.Close)

	mine := mount(t, l, nil, Options{})
	r.Put("mine", mine)
	r.Put("theirs", mount(t, l, nil, Options{}))

	_, ok := r.Get("mine", ResourceUsers)
	assert.False(t, ok)

	require.NoError(t, mine.Toggle("link-0"))
	theirs, ok := r.Get("theirs", ResourceLinks)
	require.True(t, ok)
	assert.Zero(t, theirs.Count(), "selections are per session")

	assert.Equal(t, 1, r.DropSession("mine"))
	_, ok = r.Get("mine", ResourceLinks)
	assert.False(t, ok)
	assert.Equal(t, 1, r.Len())

	assert.True(t, r.Remove("theirs", ResourceLinks))
	assert.False(t, r.Remove("theirs", ResourceLinks))
	assert.Zero(t, r.Len())
}
