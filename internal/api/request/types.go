package request

// SessionRequest carries the identity envelope forwarded by the chat platform
type SessionRequest struct {
	ChatID      int64  `json:"chat_id" validate:"required"`
	DisplayName string `json:"display_name" validate:"required,max=64"`
	Handle      string `json:"handle,omitempty" validate:"max=64"`
	SignedAt    int64  `json:"signed_at" validate:"required,gt=0"` // unix seconds
	Signature   string `json:"signature,omitempty" validate:"omitempty,hexadecimal"`
}

// JoinRequest is the request body for taking a seat
type JoinRequest struct {
	Tier     string `json:"tier" validate:"required,max=64"`
	PlayerID string `json:"player_id,omitempty"`
	Bet      int64  `json:"bet" validate:"required,gt=0"`
}

// HistoryQuery holds query parameters for history listings
type HistoryQuery struct {
	Limit int `validate:"gte=0,lte=100"`
}
