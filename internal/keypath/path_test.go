package keypath

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	testCases := []struct {
		name      string
		raw       string
		expectErr bool
		expected  Path
	}{
		{name: "single segment", raw: "name", expected: Path{"name"}},
		{name: "nested path", raw: "transform.translate.x", expected: Path{"transform", "translate", "x"}},
		{name: "underscores and digits", raw: "layer_2.mask-a", expected: Path{"layer_2", "mask-a"}},
		{name: "error - empty string", raw: "", expectErr: true},
		{name: "error - empty segment", raw: "a..b", expectErr: true},
		{name: "error - trailing dot", raw: "a.", expectErr: true},
		{name: "error - invalid characters", raw: "a.b[0]", expectErr: true},
		{name: "error - just hyphen", raw: "-", expectErr: true},
		{name: "error - just dot", raw: ".", expectErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			p, err := Parse(tc.raw)
			if tc.expectErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, tc.expected.Equal(p), "got %v", p)
		})
	}
}

func TestPath_RoundTrip(t *testing.T) {
	for _, raw := range []string{"a", "a.b.c", "transform.rotate_y"} {
		t.Run(raw, func(t *testing.T) {
			p, err := Parse(raw)
			require.NoError(t, err)
			assert.Equal(t, raw, p.String())
		})
	}
}

func TestPath_Navigation(t *testing.T) {
	p := MustParse("a.b.c")
	assert.Equal(t, "c", p.Last())
	assert.Equal(t, "a.b", p.Parent().String())
	assert.Equal(t, "a.b.c.d", p.Child("d").String())
	assert.Equal(t, "a.b.c", p.String(), "Child must not alias the receiver")
	assert.Empty(t, Path{"a"}.Parent())
	assert.Empty(t, Path(nil).Last())
}

func TestPath_Equal(t *testing.T) {
	assert.True(t, MustParse("a.b").Equal(Path{"a", "b"}))
	assert.False(t, MustParse("a.b").Equal(Path{"a", "c"}))
	assert.False(t, MustParse("a.b").Equal(Path{"a"}))
	assert.True(t, Path(nil).Equal(nil))
}

func TestMustParsePanics(t *testing.T) {
	assert.Panics(t, func() { MustParse("") })
}
