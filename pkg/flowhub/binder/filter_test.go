package binder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/flowhub/pkg/flowhub/fingerprint"
)

func fp(length int, idx ...int) *fingerprint.Fingerprint {
	f := fingerprint.New(length)
	for _, i := range idx {
		f.Touch(i)
	}
	return f
}

func TestFilter_AddSortsAndCounts(t *testing.T) {
	f := NewFilter()
	f.Add(1, fp(4, 3))
	f.Add(1, fp(4))
	f.Add(1, fp(4, 2))
	f.Add(1, fp(4, 2))

	slots := f.Slots(1)
	require.Len(t, slots, 3)
	for i := 1; i < len(slots); i++ {
		assert.Negative(t, slots[i-1].Fingerprint().Compare(slots[i].Fingerprint()))
	}
	assert.Equal(t, 2, slots[1].Refs())
}

func TestFilter_AddClones(t *testing.T) {
	f := NewFilter()
	src := fp(4, 1)
	f.Add(1, src)
	src.Touch(2)

	assert.Equal(t, "0100", f.Slots(1)[0].Fingerprint().String())
}

func TestFilter_Remove(t *testing.T) {
	f := NewFilter()
	f.Add(1, fp(4, 2))
	f.Add(1, fp(4, 2))

	assert.True(t, f.Remove(1, fp(4, 2)))
	assert.Len(t, f.Slots(1), 1)
	assert.True(t, f.Remove(1, fp(4, 2)))
	assert.Empty(t, f.Slots(1))
	assert.Equal(t, 0, f.Len())

	t.Run("miss is a no-op", func(t *testing.T) {
		f.Add(1, fp(4, 3))
		assert.False(t, f.Remove(1, fp(4, 2)))
		assert.False(t, f.Remove(7, fp(4)))
		assert.Len(t, f.Slots(1), 1)
	})
}

func TestFilter_MatchInsertionOrder(t *testing.T) {
	f := NewFilter()
	f.Add(1, fp(4, 3))
	f.Add(1, fp(4))
	f.Add(1, fp(4, 2, 3))
	f.Add(1, fp(4, 1))

	got := f.Match(1, fp(5, 2, 3, 4), nil)
	require.Len(t, got, 3)
	assert.Equal(t, "0001", got[0].Fingerprint().String())
	assert.Equal(t, "0000", got[1].Fingerprint().String())
	assert.Equal(t, "0011", got[2].Fingerprint().String())

	assert.Empty(t, f.Match(2, fp(5, 2), nil))
}

func TestFilter_MatchRespectsLength(t *testing.T) {
	f := NewFilter()
	f.Add(1, fp(6))

	assert.Empty(t, f.Match(1, fp(4), nil), "a longer template never matches a shorter event")
	assert.Len(t, f.Match(1, fp(6), nil), 1)
}

func TestFilter_RemoveThenAddGetsNewSequence(t *testing.T) {
	f := NewFilter()
	f.Add(1, fp(4))
	f.Add(1, fp(4, 2))
	f.Remove(1, fp(4))
	f.Add(1, fp(4))

	got := f.Match(1, fp(4, 2), nil)
	require.Len(t, got, 2)
	assert.Equal(t, "0010", got[0].Fingerprint().String())
	assert.Equal(t, "0000", got[1].Fingerprint().String())
}
