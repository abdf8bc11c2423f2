package supply

import (
	"math/rand/v2"
	"testing"

	"github.com/sparkplay/dominion-server-go/internal/game/cards"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRand() *rand.Rand { return rand.New(rand.NewPCG(1, 2)) }

func TestInitializeTwoPlayers(t *testing.T) {
	b := New(cards.Standard())
	require.NoError(t, b.Initialize(2, 10, 10, newRand()))

	assert.Equal(t, 8, b.Remaining(cards.Estate))
	assert.Equal(t, 8, b.Remaining(cards.Duchy))
	assert.Equal(t, 8, b.Remaining(cards.Province))
	assert.Equal(t, 60-14, b.Remaining(cards.Copper))
	assert.Equal(t, 40, b.Remaining(cards.Silver))
	assert.Equal(t, 30, b.Remaining(cards.Gold))

	// Every kingdom card fits in a ten-card kingdom, witch included.
	for _, def := range cards.Standard().Kingdom() {
		assert.Equal(t, 10, b.Remaining(def.Name), def.Name)
	}
	assert.Equal(t, 10, b.Remaining(cards.Curse))
	assert.Zero(t, b.EmptyPiles())
}

func TestInitializeFourPlayersWithSmallKingdom(t *testing.T) {
	b := New(cards.Standard())
	require.NoError(t, b.Initialize(4, 3, 7, newRand()))

	assert.Equal(t, 12, b.Remaining(cards.Province))
	assert.Equal(t, 60-28, b.Remaining(cards.Copper))

	kingdom := 0
	for _, name := range b.Names() {
		def := cards.Standard().MustLookup(name)
		if def.Kingdom {
			kingdom++
			assert.Equal(t, 7, b.Remaining(name))
		}
	}
	assert.Equal(t, 3, kingdom)

	if b.Has(cards.Witch) {
		assert.Equal(t, 30, b.Remaining(cards.Curse))
	} else {
		assert.False(t, b.Has(cards.Curse))
	}
}

func TestInitializeRejectsTooManyPlayers(t *testing.T) {
	b := New(cards.Standard())
	assert.Error(t, b.Initialize(9, 10, 10, newRand()))
	assert.Empty(t, b.Names(), "a failed setup leaves no piles behind")
	assert.Zero(t, b.Remaining(cards.Estate))
	assert.Error(t, New(cards.Standard()).Initialize(0, 10, 10, newRand()))

	require.NoError(t, b.Initialize(2, 10, 10, newRand()))
	before := b.Counts()
	assert.Error(t, b.Initialize(9, 10, 10, newRand()))
	assert.Equal(t, before, b.Counts())
}

func TestTakeEmptiesPileOnce(t *testing.T) {
	b := New(cards.Standard())
	require.NoError(t, b.Initialize(2, 10, 10, newRand()))
	b.counts[cards.Gold] = 1

	emptied, err := b.Take(cards.Gold)
	require.NoError(t, err)
	assert.True(t, emptied)
	assert.Equal(t, 0, b.Remaining(cards.Gold))
	assert.True(t, b.IsEmpty(cards.Gold))
	assert.Equal(t, 1, b.EmptyPiles())

	emptied, err = b.Take(cards.Gold)
	assert.ErrorIs(t, err, ErrExhausted)
	assert.False(t, emptied)
	assert.Equal(t, 0, b.Remaining(cards.Gold))
	assert.Equal(t, 1, b.EmptyPiles())
}

func TestTakeUnknownPile(t *testing.T) {
	b := New(cards.Standard())
	_, err := b.Take(cards.Gold)
	assert.ErrorIs(t, err, ErrUnknownPile)
}

func TestTrashAndSummary(t *testing.T) {
	b := New(cards.Standard())
	require.NoError(t, b.Initialize(2, 10, 10, newRand()))

	b.Trash(cards.Copper)
	assert.Equal(t, []string{cards.Copper}, b.Trashed())

	summary := b.Summary()
	assert.Contains(t, summary, "**province** (cost 8): 8 left")
	assert.Contains(t, summary, "**curse** (cost -): 10 left")
}

func TestCountsIsACopy(t *testing.T) {
	b := New(cards.Standard())
	require.NoError(t, b.Initialize(2, 10, 10, newRand()))

	counts := b.Counts()
	counts[cards.Gold] = 0
	assert.Equal(t, 30, b.Remaining(cards.Gold))
}
