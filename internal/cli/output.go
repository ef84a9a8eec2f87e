package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
}

// NewOutput creates a new Output formatter
func NewOutput(format string) *Output {
	return &Output{format: format}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintError outputs an error
func (o *Output) PrintError(err error) {
	apiErr, isAPI := AsAPIError(err)
	if o.format == "json" {
		body := map[string]string{"message": err.Error()}
		if isAPI {
			body["code"] = apiErr.Code
			body["message"] = apiErr.Message
		}
		data, _ := json.Marshal(map[string]any{"error": body})
		fmt.Fprintln(os.Stderr, string(data))
		return
	}
	fmt.Fprintf(os.Stderr, "Error: %s\n", err)
	if isAPI && apiErr.Retryable() {
		fmt.Fprintln(os.Stderr, "The lobby is busy; try again shortly.")
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case Player:
		o.printPlayer(v)
	case SessionResult:
		o.printSessionResult(v)
	case RoomList:
		o.printRoomList(v)
	case Room:
		o.printRoom(v)
	case JoinResult:
		o.printJoinResult(v)
	case SeatResult:
		o.printSeatResult(v)
	case RewardList:
		o.printRewardList(v)
	case RoundList:
		o.printRoundList(v)
	case HealthResult:
		o.printHealthResult(v)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

// Player response type (matches API)
type Player struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Handle      string `json:"handle,omitempty"`
	Balance     int64  `json:"balance"`
}

// SessionResult combines player and token
type SessionResult struct {
	Player       Player    `json:"player"`
	SessionToken string    `json:"session_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	Created      bool      `json:"created"`
}

// TierParams response type
type TierParams struct {
	Name     string `json:"name"`
	MinBet   int64  `json:"min_bet"`
	MaxBet   int64  `json:"max_bet"`
	Capacity int    `json:"capacity"`
}

// RoomListing response type
type RoomListing struct {
	ID         string     `json:"id"`
	Tier       string     `json:"tier"`
	SeatsCount int        `json:"seats_count"`
	Capacity   int        `json:"capacity"`
	Status     string     `json:"status"`
	Pot        int64      `json:"pot"`
	RoundSeq   int64      `json:"round_seq"`
	TierParams TierParams `json:"tier_params"`
}

// RoomList response type
type RoomList struct {
	Rooms []RoomListing `json:"rooms"`
}

// Seat response type
type Seat struct {
	PlayerID    string    `json:"player_id"`
	DisplayName string    `json:"display_name"`
	Handle      string    `json:"handle,omitempty"`
	Bet         int64     `json:"bet"`
	JoinedAt    time.Time `json:"joined_at"`
}

// Room response type
type Room struct {
	ID        string    `json:"id"`
	Tier      string    `json:"tier"`
	Status    string    `json:"status"`
	Capacity  int       `json:"capacity"`
	Seats     []Seat    `json:"seats"`
	Pot       int64     `json:"pot"`
	RoundSeq  int64     `json:"round_seq"`
	Winner    *Seat     `json:"winner,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// JoinResult response type
type JoinResult struct {
	RoomID         string `json:"room_id"`
	Tier           string `json:"tier"`
	Position       int    `json:"position"`
	SeatsRemaining int    `json:"seats_remaining"`
}

// SeatResult response type
type SeatResult struct {
	Seated bool  `json:"seated"`
	Room   *Room `json:"room,omitempty"`
}

// Reward response type
type Reward struct {
	RoomID       string    `json:"room_id"`
	Tier         string    `json:"tier"`
	RewardHandle string    `json:"reward_handle"`
	Bet          int64     `json:"bet"`
	Pot          int64     `json:"pot"`
	RoundSeq     int64     `json:"round_seq"`
	WonAt        time.Time `json:"won_at"`
}

// RewardList response type
type RewardList struct {
	Rewards []Reward `json:"rewards"`
}

// Round response type
type Round struct {
	RoomID    string    `json:"room_id"`
	Tier      string    `json:"tier"`
	RoundSeq  int64     `json:"round_seq"`
	Seats     []Seat    `json:"seats"`
	Winner    Seat      `json:"winner"`
	Pot       int64     `json:"pot"`
	SettledAt time.Time `json:"settled_at"`
}

// RoundList response type
type RoundList struct {
	Rounds []Round `json:"rounds"`
}

// HealthResult response type
type HealthResult struct {
	Status      string `json:"status"`
	Subscribers int    `json:"subscribers"`
}

func (o *Output) printPlayer(p Player) {
	fmt.Printf("Player: %s\n", p.DisplayName)
	fmt.Printf("  ID:      %s\n", p.ID)
	if p.Handle != "" {
		fmt.Printf("  Handle:  @%s\n", p.Handle)
	}
	fmt.Printf("  Balance: %d\n", p.Balance)
}

func (o *Output) printSessionResult(s SessionResult) {
	if s.Created {
		fmt.Println("New player created")
	}
	o.printPlayer(s.Player)
	fmt.Printf("Session expires: %s\n", s.ExpiresAt.Local().Format(time.RFC1123))
	fmt.Println("Token saved.")
}

func (o *Output) printRoomList(l RoomList) {
	if len(l.Rooms) == 0 {
		fmt.Println("No rooms")
		return
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TIER\tROOM\tSTATUS\tSEATS\tPOT\tBETS\tROUND")
	for _, r := range l.Rooms {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d/%d\t%d\t%d-%d\t%d\n",
			r.Tier, r.ID, r.Status, r.SeatsCount, r.Capacity, r.Pot,
			r.TierParams.MinBet, r.TierParams.MaxBet, r.RoundSeq)
	}
	_ = tw.Flush()
}

func (o *Output) printRoom(r Room) {
	fmt.Printf("Room %s (%s, round %d)\n", r.ID, r.Tier, r.RoundSeq)
	fmt.Printf("  Status: %s\n", r.Status)
	fmt.Printf("  Seats:  %d/%d\n", len(r.Seats), r.Capacity)
	fmt.Printf("  Pot:    %d\n", r.Pot)
	for i, s := range r.Seats {
		fmt.Printf("  %d. %s  bet %d\n", i+1, seatName(s), s.Bet)
	}
	if r.Winner != nil {
		fmt.Printf("  Winner: %s\n", seatName(*r.Winner))
	}
}

func (o *Output) printJoinResult(j JoinResult) {
	fmt.Printf("Seated in %s room %s at position %d\n", j.Tier, j.RoomID, j.Position)
	if j.SeatsRemaining == 0 {
		fmt.Println("Room is full, the draw is about to start")
	} else {
		fmt.Printf("Waiting for %d more player(s)\n", j.SeatsRemaining)
	}
}

func (o *Output) printSeatResult(s SeatResult) {
	if !s.Seated || s.Room == nil {
		fmt.Println("Not seated")
		return
	}
	o.printRoom(*s.Room)
}

func (o *Output) printRewardList(l RewardList) {
	if len(l.Rewards) == 0 {
		fmt.Println("No rewards yet")
		return
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "WON\tTIER\tROUND\tBET\tPOT\tREWARD")
	for _, r := range l.Rewards {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%s\n",
			r.WonAt.Local().Format(time.DateTime), r.Tier, r.RoundSeq, r.Bet, r.Pot, r.RewardHandle)
	}
	_ = tw.Flush()
}

func (o *Output) printRoundList(l RoundList) {
	if len(l.Rounds) == 0 {
		fmt.Println("No rounds yet")
		return
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SETTLED\tTIER\tROUND\tPLAYERS\tPOT\tWINNER")
	for _, r := range l.Rounds {
		names := make([]string, 0, len(r.Seats))
		for _, s := range r.Seats {
			names = append(names, seatName(s))
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%d\t%s\n",
			r.SettledAt.Local().Format(time.DateTime), r.Tier, r.RoundSeq,
			strings.Join(names, ", "), r.Pot, seatName(r.Winner))
	}
	_ = tw.Flush()
}

func (o *Output) printHealthResult(h HealthResult) {
	fmt.Printf("Status: %s\n", h.Status)
	fmt.Printf("Subscribers: %d\n", h.Subscribers)
}

func seatName(s Seat) string {
	if s.Handle != "" {
		return fmt.Sprintf("%s (@%s)", s.DisplayName, s.Handle)
	}
	return s.DisplayName
}
