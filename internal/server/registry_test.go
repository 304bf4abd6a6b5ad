package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryAssignsUniqueIDs(t *testing.T) {
	r := newRegistry()

	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		id := r.register(&Client{})
		require.NotEmpty(t, id)
		_, dup := seen[id]
		require.False(t, dup, "connection ID %q was reused", id)
		seen[id] = struct{}{}
	}
	assert.Equal(t, 100, r.count())
}

func TestRegistryUnregisterIsIdempotent(t *testing.T) {
	r := newRegistry()
	c := &Client{}
	id := r.register(c)

	removed, ok := r.unregister(id)
	require.True(t, ok)
	assert.Same(t, c, removed)

	_, ok = r.unregister(id)
	assert.False(t, ok, "second unregister must be a no-op")

	_, ok = r.unregister("never-registered")
	assert.False(t, ok, "unknown id must be a no-op")

	assert.Equal(t, 0, r.count())
}

func TestRegistrySnapshotExcludesCaller(t *testing.T) {
	r := newRegistry()
	a := &Client{}
	b := &Client{}
	idA := r.register(a)
	r.register(b)

	targets := r.snapshot(idA)
	require.Len(t, targets, 1)
	assert.Same(t, b, targets[0])

	assert.Len(t, r.snapshot(""), 2)
}

func TestRegistryGet(t *testing.T) {
	r := newRegistry()
	c := &Client{}
	id := r.register(c)

	got, ok := r.get(id)
	require.True(t, ok)
	assert.Same(t, c, got)

	_, ok = r.get("missing")
	assert.False(t, ok)
}
