// Package draw selects a round winner with probability proportional to bet.
package draw

import (
	"fmt"
	"math"

	"github.com/mcoot/wagerlobby/internal/dependencies/random"
	"github.com/mcoot/wagerlobby/internal/model"
)

// Drawer performs bet-weighted draws
type Drawer struct {
	random random.Random
}

// New creates a Drawer backed by the given random source
func New(rnd random.Random) *Drawer {
	return &Drawer{random: rnd}
}

// Pick returns one seat with probability seat.Bet / sum(bets).
// The draw is a uniform integer in [0, total); the first seat whose
// cumulative bet exceeds it wins, and the last seat absorbs any slack.
func (d *Drawer) Pick(seats []model.Seat) (model.Seat, error) {
	if len(seats) == 0 {
		return model.Seat{}, model.ErrEmptyDraw
	}

	var total int64
	for _, s := range seats {
		if s.Bet <= 0 {
			return model.Seat{}, fmt.Errorf("%w: player %s bet %d", model.ErrInvalidBet, s.PlayerID, s.Bet)
		}
		if total > math.MaxInt64-s.Bet {
			return model.Seat{}, fmt.Errorf("%w: bet total overflows", model.ErrInvalidBet)
		}
		total += s.Bet
	}

	target, err := d.random.Int64n(total)
	if err != nil {
		return model.Seat{}, fmt.Errorf("failed to draw random ticket: %w", err)
	}

	var cumulative int64
	for _, s := range seats {
		cumulative += s.Bet
		if cumulative > target {
			return s, nil
		}
	}
	return seats[len(seats)-1], nil
}
