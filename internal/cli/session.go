package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/mcoot/wagerlobby/internal/services/auth"
)

// bypassMarkerHeader matches the header the server reads the marker from
const bypassMarkerHeader = "X-Bypass-Marker"

func newSessionCmd() *cobra.Command {
	var (
		chatID int64
		name   string
		handle string
		secret string
		bypass string
	)

	cmd := &cobra.Command{
		Use:   "session",
		Short: "Start a session from a chat identity",
		Long: `Build an identity envelope, sign it with the platform secret (or present
a bypass marker) and exchange it for a session token. The token is saved
to the token file for later commands.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if secret == "" && bypass == "" {
				return fmt.Errorf("--secret or --bypass is required")
			}

			env := auth.Envelope{
				ChatID:      chatID,
				DisplayName: name,
				Handle:      handle,
				SignedAt:    time.Unix(time.Now().Unix(), 0),
			}
			req := map[string]any{
				"chat_id":      env.ChatID,
				"display_name": env.DisplayName,
				"signed_at":    env.SignedAt.Unix(),
			}
			if handle != "" {
				req["handle"] = handle
			}
			if secret != "" {
				req["signature"] = auth.SignEnvelope(secret, env)
			}

			var headers map[string]string
			if bypass != "" {
				headers = map[string]string{bypassMarkerHeader: bypass}
			}

			var result SessionResult
			if err := client.DoWithHeaders("POST", "/api/v1/session", headers, req, &result); err != nil {
				return err
			}

			if err := cfg.SaveToken(result.SessionToken); err != nil {
				return fmt.Errorf("failed to save token: %w", err)
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().Int64Var(&chatID, "chat-id", 0, "Chat platform user id (required)")
	cmd.Flags().StringVar(&name, "name", "", "Display name (required)")
	cmd.Flags().StringVar(&handle, "handle", "", "Chat handle")
	cmd.Flags().StringVar(&secret, "secret", os.Getenv("LOBBYCTL_PLATFORM_SECRET"), "Platform secret used to sign the envelope (env: LOBBYCTL_PLATFORM_SECRET)")
	cmd.Flags().StringVar(&bypass, "bypass", os.Getenv("LOBBYCTL_BYPASS_MARKER"), "Bypass marker (env: LOBBYCTL_BYPASS_MARKER)")
	_ = cmd.MarkFlagRequired("chat-id")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func newMeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "me",
		Short: "Show the current player and balance",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.Token == "" {
				return fmt.Errorf("not logged in (use 'lobbyctl session' first)")
			}

			var result Player
			if err := client.Get("/api/v1/players/me", &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newSeatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seat",
		Short: "Show the room you are seated in",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result SeatResult
			if err := client.Get("/api/v1/players/me/seat", &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newRewardsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rewards",
		Short: "List your reward history",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result RewardList
			if err := client.Get("/api/v1/players/me/rewards", &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}
