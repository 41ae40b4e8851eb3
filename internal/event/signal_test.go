package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSignalOrderedDelivery(t *testing.T) {
	var s Signal[int]
	var got []string

	s.Subscribe(func(v int) { got = append(got, "first") })
	s.Subscribe(func(v int) { got = append(got, "second") })
	s.Emit(1)

	assert.Equal(t, []string{"first", "second"}, got)
	assert.Equal(t, 2, s.Len())
}

func TestSignalUnsubscribe(t *testing.T) {
	var s Signal[string]
	calls := 0
	id := s.Subscribe(func(string) { calls++ })

	s.Emit("a")
	assert.True(t, s.Unsubscribe(id))
	assert.False(t, s.Unsubscribe(id))
	s.Emit("b")

	assert.Equal(t, 1, calls)
	assert.Zero(t, s.Len())
}

func TestSignalSubscribeDuringEmit(t *testing.T) {
	var s Signal[int]
	late := 0
	s.Subscribe(func(int) {
		s.Subscribe(func(int) { late++ })
	})

	s.Emit(1)
	assert.Zero(t, late)
	s.Emit(2)
	assert.Equal(t, 1, late)
}
