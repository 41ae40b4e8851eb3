package channel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltinsRegistered(t *testing.T) {
	for _, c := range []Channel{Params, Flow, Structure, Creator, Tree, Anchor} {
		assert.True(t, IsKnown(c), "builtin %s should be registered", c)
	}
	all := All()
	require.GreaterOrEqual(t, len(all), 6)
	assert.Equal(t, Params, all[0])
	assert.Equal(t, Flow, all[1])
}

func TestLookup(t *testing.T) {
	t.Run("known channel", func(t *testing.T) {
		c, err := Lookup("Flow")
		require.NoError(t, err)
		assert.Equal(t, Flow, c)
	})

	t.Run("unknown channel lists valid names", func(t *testing.T) {
		_, err := Lookup("Bogus")
		require.ErrorIs(t, err, ErrUnknownChannel)
		assert.ErrorContains(t, err, "Bogus")
		assert.ErrorContains(t, err, "Params")
	})
}

func TestRegister(t *testing.T) {
	custom := Register("Geometry")
	assert.True(t, IsKnown(custom))
	assert.NoError(t, Validate(custom))

	before := len(All())
	Register("Geometry")
	assert.Len(t, All(), before, "re-registering must be idempotent")
	assert.Contains(t, Names(), "Geometry")
}
