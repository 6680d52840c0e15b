package kvstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryGetSet(t *testing.T) {
	ctx := context.Background()
	store := NewMedium().Attach()

	_, err := store.Get(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Set(ctx, "k", []byte("v1")))
	v, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), v)

	require.NoError(t, store.Delete(ctx, "k"))
	_, err = store.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryWriterDoesNotSeeOwnChange(t *testing.T) {
	ctx := context.Background()
	medium := NewMedium()
	a := medium.Attach()
	b := medium.Attach()

	var aFired, bFired int
	a.Watch("k", func(Change) { aFired++ })
	b.Watch("k", func(Change) { bFired++ })

	require.NoError(t, a.Set(ctx, "k", []byte("v")))

	assert.Equal(t, 0, aFired, "writer must not observe its own change")
	assert.Equal(t, 1, bFired, "other context must observe the change")
}

func TestMemoryChangeCarriesValueAndOrigin(t *testing.T) {
	ctx := context.Background()
	medium := NewMedium()
	a := medium.Attach()
	b := medium.Attach()

	var got Change
	b.Watch("k", func(ch Change) { got = ch })

	require.NoError(t, a.Set(ctx, "k", []byte("payload")))
	assert.Equal(t, "k", got.Key)
	assert.Equal(t, []byte("payload"), got.Value)
	assert.NotEmpty(t, got.Origin)

	require.NoError(t, a.Delete(ctx, "k"))
	assert.Nil(t, got.Value, "delete is signaled as a nil value")
}

func TestMemoryWatchRemove(t *testing.T) {
	ctx := context.Background()
	medium := NewMedium()
	a := medium.Attach()
	b := medium.Attach()

	fired := 0
	remove := b.Watch("k", func(Change) { fired++ })

	require.NoError(t, a.Set(ctx, "k", []byte("1")))
	remove()
	remove() // safe to call twice
	require.NoError(t, a.Set(ctx, "k", []byte("2")))

	assert.Equal(t, 1, fired)
}

func TestMemoryWatchPanicIsolated(t *testing.T) {
	ctx := context.Background()
	medium := NewMedium()
	a := medium.Attach()
	b := medium.Attach()

	fired := false
	b.Watch("k", func(Change) { panic("boom") })
	b.Watch("k", func(Change) { fired = true })

	require.NotPanics(t, func() {
		_ = a.Set(ctx, "k", []byte("v"))
	})
	assert.True(t, fired, "remaining handlers still run after a panic")
}

func TestMemoryCloseDetaches(t *testing.T) {
	ctx := context.Background()
	medium := NewMedium()
	a := medium.Attach()
	b := medium.Attach()

	fired := 0
	b.Watch("k", func(Change) { fired++ })

	require.NoError(t, b.Close())
	require.NoError(t, b.Close()) // idempotent
	require.NoError(t, a.Set(ctx, "k", []byte("v")))

	assert.Equal(t, 0, fired)
}
