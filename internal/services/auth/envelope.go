package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// Envelope is the identity blob handed over by the upstream chat platform
type Envelope struct {
	ChatID      int64
	DisplayName string
	Handle      string
	SignedAt    time.Time
	Signature   string
}

// canonical returns the byte string the platform signs: one key=value
// pair per line, keys in lexical order, signed_at in unix seconds
func (e Envelope) canonical() string {
	return strings.Join([]string{
		fmt.Sprintf("chat_id=%d", e.ChatID),
		"display_name=" + e.DisplayName,
		"handle=" + e.Handle,
		fmt.Sprintf("signed_at=%d", e.SignedAt.Unix()),
	}, "\n")
}

// SignEnvelope computes the hex HMAC-SHA256 signature for an envelope
func SignEnvelope(secret string, e Envelope) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(e.canonical()))
	return hex.EncodeToString(mac.Sum(nil))
}

// verify reports whether the envelope's signature matches the secret
func (e Envelope) verify(secret string) bool {
	if secret == "" || e.Signature == "" {
		return false
	}
	expected := SignEnvelope(secret, e)
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(e.Signature)))
}
