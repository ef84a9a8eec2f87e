package model

// TierName identifies a class of rooms
type TierName string

// Tier holds the fixed parameters for rooms of one class
type Tier struct {
	Name         TierName `yaml:"name" validate:"required"`
	MinBet       int64    `yaml:"min_bet" validate:"gt=0"`
	MaxBet       int64    `yaml:"max_bet" validate:"gtefield=MinBet"`
	Capacity     int      `yaml:"capacity" validate:"gt=0"`
	RewardHandle string   `yaml:"reward_handle" validate:"required"`
}

// BetInRange reports whether bet is within the inclusive tier bounds
func (t Tier) BetInRange(bet int64) bool {
	return bet >= t.MinBet && bet <= t.MaxBet
}

// DefaultTiers returns the standard low / mid / high tiers
func DefaultTiers() []Tier {
	return []Tier{
		{Name: "low", MinBet: 100, MaxBet: 450, Capacity: 2, RewardHandle: "reward:low"},
		{Name: "mid", MinBet: 500, MaxBet: 1500, Capacity: 2, RewardHandle: "reward:mid"},
		{Name: "high", MinBet: 2000, MaxBet: 10000, Capacity: 2, RewardHandle: "reward:high"},
	}
}
