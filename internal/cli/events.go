package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
)

func newEventsCmd() *cobra.Command {
	var (
		jsonOutput bool
		useSSE     bool
	)

	cmd := &cobra.Command{
		Use:   "events",
		Short: "Stream lobby events",
		Long: `Connect to the lobby event stream and print events as they arrive.
The WebSocket endpoint is used unless --sse is given.

Events include:
  - rooms_updated: Lobby listing changed
  - player_seated: A player took a seat
  - round_starting: A room filled and the draw is pending
  - round_finished: A winner was drawn
  - reward_issued: You won a round (only sent to the winner)
  - room_available: A fresh room opened for a tier

Press Ctrl+C to disconnect.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.Token == "" {
				return fmt.Errorf("not logged in (use 'lobbyctl session' first)")
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			if useSSE {
				return streamSSE(ctx, jsonOutput)
			}
			return streamWS(ctx, jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output events as JSON lines")
	cmd.Flags().BoolVar(&useSSE, "sse", false, "Use the SSE endpoint instead of WebSocket")

	return cmd
}

// StreamEvent is one event as received from the server
type StreamEvent struct {
	Type      string          `json:"type"`
	Seq       uint64          `json:"seq"`
	Timestamp time.Time       `json:"timestamp"`
	RoomID    string          `json:"room_id,omitempty"`
	Tier      string          `json:"tier,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

func streamWS(ctx context.Context, jsonOutput bool) error {
	u, err := url.Parse(strings.TrimSuffix(cfg.ServerURL, "/") + "/api/v1/ws")
	if err != nil {
		return fmt.Errorf("invalid server url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+cfg.Token)

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, u.String(), header)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("connection failed: unexpected status %d", resp.StatusCode)
		}
		return fmt.Errorf("connection failed: %w", err)
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		_ = conn.Close()
	}()

	if !jsonOutput {
		fmt.Println("Connected to lobby")
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				if !jsonOutput {
					fmt.Println("\nDisconnected")
				}
				return nil
			}
			return fmt.Errorf("stream error: %w", err)
		}
		printEvent(data, jsonOutput)
	}
}

func streamSSE(ctx context.Context, jsonOutput bool) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		strings.TrimSuffix(cfg.ServerURL, "/")+"/api/v1/events", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Authorization", "Bearer "+cfg.Token)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("connection failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	if !jsonOutput {
		fmt.Println("Connected to lobby")
	}

	scanner := bufio.NewScanner(resp.Body)
	var dataLines []string
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "data: "):
			dataLines = append(dataLines, strings.TrimPrefix(line, "data: "))
		case line == "":
			if len(dataLines) > 0 {
				printEvent([]byte(strings.Join(dataLines, "\n")), jsonOutput)
			}
			dataLines = nil
		}
	}

	if err := scanner.Err(); err != nil && !errors.Is(err, context.Canceled) && ctx.Err() == nil {
		return fmt.Errorf("stream error: %w", err)
	}
	if !jsonOutput {
		fmt.Println("\nDisconnected")
	}
	return nil
}

func printEvent(data []byte, jsonOutput bool) {
	if jsonOutput {
		fmt.Println(string(data))
		return
	}

	var evt StreamEvent
	if err := json.Unmarshal(data, &evt); err != nil || evt.Type == "" {
		// the SSE "connected" frame carries no event envelope
		fmt.Printf("[%s] %s\n", time.Now().Format("2006-01-02 15:04:05"), strings.ReplaceAll(string(data), "\n", " "))
		return
	}

	payload := string(evt.Payload)
	if len(payload) > 100 {
		payload = payload[:100] + "..."
	}
	where := evt.Tier
	if evt.RoomID != "" {
		where = evt.Tier + "/" + evt.RoomID
	}
	fmt.Printf("[%s] #%d %s %s %s\n", evt.Timestamp.Local().Format("2006-01-02 15:04:05"), evt.Seq, evt.Type, where, payload)
}
