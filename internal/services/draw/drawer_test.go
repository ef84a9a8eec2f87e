package draw

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/wagerlobby/internal/dependencies/mocks"
	"github.com/mcoot/wagerlobby/internal/dependencies/random"
	"github.com/mcoot/wagerlobby/internal/model"
)

func seats(bets ...int64) []model.Seat {
	out := make([]model.Seat, len(bets))
	for i, b := range bets {
		out[i] = model.Seat{PlayerID: model.PlayerID(string(rune('a' + i))), Bet: b}
	}
	return out
}

func TestPickEmpty(t *testing.T) {
	d := New(mocks.NewMockRandom())
	_, err := d.Pick(nil)
	assert.ErrorIs(t, err, model.ErrEmptyDraw)
}

func TestPickRejectsNonPositiveBet(t *testing.T) {
	d := New(mocks.NewMockRandom())

	_, err := d.Pick(seats(100, 0))
	assert.ErrorIs(t, err, model.ErrInvalidBet)

	_, err = d.Pick(seats(-5))
	assert.ErrorIs(t, err, model.ErrInvalidBet)
}

func TestPickCumulativeBoundaries(t *testing.T) {
	tests := []struct {
		name   string
		target int64
		want   model.PlayerID
	}{
		{name: "first ticket", target: 0, want: "a"},
		{name: "last ticket of first seat", target: 199, want: "a"},
		{name: "first ticket of second seat", target: 200, want: "b"},
		{name: "last ticket overall", target: 499, want: "b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rnd := mocks.NewMockRandom()
			rnd.QueueInt64n(tt.target)
			d := New(rnd)

			winner, err := d.Pick(seats(200, 300))
			require.NoError(t, err)
			assert.Equal(t, tt.want, winner.PlayerID)
		})
	}
}

func TestPickSingleSeat(t *testing.T) {
	d := New(random.New())
	winner, err := d.Pick(seats(10))
	require.NoError(t, err)
	assert.Equal(t, model.PlayerID("a"), winner.PlayerID)
}

func TestPickPropagatesRandomFailure(t *testing.T) {
	rnd := mocks.NewMockRandom()
	rnd.Err = assert.AnError
	d := New(rnd)

	_, err := d.Pick(seats(1, 1))
	assert.ErrorIs(t, err, assert.AnError)
}

func TestPickIsProportionalToBet(t *testing.T) {
	if testing.Short() {
		t.Skip("statistical test")
	}
	d := New(random.New())
	input := seats(200, 300)

	const rounds = 100_000
	wins := map[model.PlayerID]int{}
	for i := 0; i < rounds; i++ {
		w, err := d.Pick(input)
		require.NoError(t, err)
		wins[w.PlayerID]++
	}

	// Standard deviation is ~0.0015 at this sample size
	assert.InDelta(t, 0.4, float64(wins["a"])/rounds, 0.01)
	assert.InDelta(t, 0.6, float64(wins["b"])/rounds, 0.01)
}
