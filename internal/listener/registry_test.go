package listener

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryFanOut(t *testing.T) {
	r := NewRegistry[int]()

	var got []int
	r.Add(func(v int) { got = append(got, v) })
	r.Add(func(v int) { got = append(got, v*10) })

	r.Notify(7)
	assert.ElementsMatch(t, []int{7, 70}, got)
}

func TestRegistryRemove(t *testing.T) {
	r := NewRegistry[string]()

	fired := 0
	remove := r.Add(func(string) { fired++ })
	require.Equal(t, 1, r.Len())

	r.Notify("a")
	remove()
	remove() // safe to call twice
	r.Notify("b")

	assert.Equal(t, 1, fired)
	assert.Equal(t, 0, r.Len())
}

func TestRegistryPanicDoesNotStopFanOut(t *testing.T) {
	r := NewRegistry[int]()

	fired := 0
	r.Add(func(int) { panic("listener bug") })
	r.Add(func(int) { fired++ })
	r.Add(func(int) { fired++ })

	require.NotPanics(t, func() { r.Notify(1) })
	assert.Equal(t, 2, fired)
}

func TestRegistryRemoveDuringNotify(t *testing.T) {
	r := NewRegistry[int]()

	var removeSelf func()
	fired := 0
	removeSelf = r.Add(func(int) {
		fired++
		removeSelf()
	})

	require.NotPanics(t, func() { r.Notify(1) })
	r.Notify(2)
	assert.Equal(t, 1, fired)
}

func TestRegistryClear(t *testing.T) {
	r := NewRegistry[int]()
	fired := 0
	r.Add(func(int) { fired++ })
	r.Clear()
	r.Notify(1)
	assert.Equal(t, 0, fired)
}
