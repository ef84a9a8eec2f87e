package lobby

import (
	"context"
	"fmt"
	"strings"

	"github.com/mcoot/wagerlobby/internal/model"
	"github.com/mcoot/wagerlobby/internal/services/match"
	"github.com/mcoot/wagerlobby/internal/services/registry"
)

// RoomListing is one lobby entry together with its tier parameters
type RoomListing struct {
	model.RoomSummary
	TierParams model.Tier
}

// JoinRequest is a validated request to take a seat
type JoinRequest struct {
	PlayerID model.PlayerID
	Tier     model.TierName
	Bet      int64
}

// JoinResult describes the seat a player was given
type JoinResult struct {
	RoomID         model.RoomID
	Tier           model.TierName
	Position       int
	SeatsRemaining int
}

// Controller is the request-facing surface of the lobby
type Controller struct {
	registry *registry.Registry
	engine   *match.Engine
}

// NewController creates a new lobby Controller
func NewController(reg *registry.Registry, engine *match.Engine) *Controller {
	return &Controller{
		registry: reg,
		engine:   engine,
	}
}

// ListRooms returns every live room with its tier parameters
func (c *Controller) ListRooms() []RoomListing {
	rooms := c.registry.ListRooms()
	out := make([]RoomListing, 0, len(rooms))
	for _, r := range rooms {
		tier, err := c.registry.Tier(r.Tier)
		if err != nil {
			continue
		}
		out = append(out, RoomListing{RoomSummary: r, TierParams: tier})
	}
	return out
}

// Tiers returns the configured tiers
func (c *Controller) Tiers() []model.Tier {
	return c.registry.Tiers()
}

// DescribeRoom returns the full view of a live room
func (c *Controller) DescribeRoom(id model.RoomID) (*model.Room, error) {
	if strings.TrimSpace(string(id)) == "" {
		return nil, fmt.Errorf("%w: room id is required", model.ErrInvalidInput)
	}
	return c.registry.DescribeRoom(id)
}

// Join seats the player in the front room of the requested tier
func (c *Controller) Join(ctx context.Context, req JoinRequest) (*JoinResult, error) {
	if strings.TrimSpace(string(req.PlayerID)) == "" {
		return nil, fmt.Errorf("%w: player id is required", model.ErrInvalidInput)
	}
	if strings.TrimSpace(string(req.Tier)) == "" {
		return nil, fmt.Errorf("%w: tier is required", model.ErrInvalidInput)
	}
	if req.Bet <= 0 {
		return nil, fmt.Errorf("%w: bet must be a positive integer", model.ErrInvalidInput)
	}

	placement, err := c.engine.Admit(ctx, match.AdmitRequest{
		PlayerID: req.PlayerID,
		Tier:     req.Tier,
		Bet:      req.Bet,
	})
	if err != nil {
		return nil, err
	}
	return &JoinResult{
		RoomID:         placement.RoomID,
		Tier:           placement.Tier,
		Position:       placement.Position,
		SeatsRemaining: placement.SeatsRemaining,
	}, nil
}

// MySeat returns the room the player currently holds a seat in, if any
func (c *Controller) MySeat(playerID model.PlayerID) (*model.Room, bool) {
	return c.registry.SeatOf(playerID)
}
