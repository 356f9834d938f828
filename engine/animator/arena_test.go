package animator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArenaSwapAndPop(t *testing.T) {
	a := newArena[string]()
	require.True(t, a.add(10, "a"))
	require.True(t, a.add(20, "b"))
	require.True(t, a.add(30, "c"))
	assert.False(t, a.add(20, "dup"))
	assert.Equal(t, 3, a.len())

	removed, ok := a.remove(10)
	require.True(t, ok)
	assert.Equal(t, "a", removed)
	assert.Equal(t, []string{"c", "b"}, a.items)
	assert.Equal(t, []Entity{30, 20}, a.entities)

	for e, want := range map[Entity]string{20: "b", 30: "c"} {
		got, ok := a.get(e)
		require.True(t, ok)
		assert.Equal(t, want, got)
	}
	_, ok = a.get(10)
	assert.False(t, ok)
	_, ok = a.remove(10)
	assert.False(t, ok)

	_, ok = a.remove(20)
	require.True(t, ok)
	_, ok = a.remove(30)
	require.True(t, ok)
	assert.Zero(t, a.len())
	assert.Empty(t, a.index)
}

func TestArenaHandlesStableUnderChurn(t *testing.T) {
	a := newArena[Entity]()
	for e := Entity(0); e < 100; e++ {
		a.add(e, e)
	}
	for e := Entity(0); e < 100; e += 3 {
		a.remove(e)
	}
	for e := Entity(0); e < 100; e++ {
		v, ok := a.get(e)
		if e%3 == 0 {
			assert.False(t, ok, "entity %d", e)
			continue
		}
		require.True(t, ok, "entity %d", e)
		assert.Equal(t, e, v)
	}
	assert.Equal(t, 66, a.len())
}
