package model

import "time"

// PlayerID uniquely identifies a player across the system
type PlayerID string

// Player represents a wagering participant
type Player struct {
	ID          PlayerID
	ChatID      int64  // id on the upstream chat platform
	DisplayName string
	Handle      string // optional @handle, empty when the platform has none
	Balance     int64  // tokens, never negative
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// PublicInfo is the subset of a player that may be shown to other players
type PublicInfo struct {
	PlayerID    PlayerID
	DisplayName string
	Handle      string
}

// Public returns the publicly visible subset of the player
func (p *Player) Public() PublicInfo {
	return PublicInfo{
		PlayerID:    p.ID,
		DisplayName: p.DisplayName,
		Handle:      p.Handle,
	}
}
