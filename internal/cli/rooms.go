package cli

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/spf13/cobra"
)

func newRoomsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rooms",
		Short: "Room listing commands",
	}

	cmd.AddCommand(newRoomsListCmd())
	cmd.AddCommand(newRoomsGetCmd())

	return cmd
}

func newRoomsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List live rooms with their tier limits",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result RoomList
			if err := client.Get("/api/v1/rooms", &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newRoomsGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <room-id>",
		Short: "Describe a room",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Room
			if err := client.Get("/api/v1/rooms/"+url.PathEscape(args[0]), &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newJoinCmd() *cobra.Command {
	var (
		tier  string
		bet   int64
		retry bool
	)

	cmd := &cobra.Command{
		Use:   "join",
		Short: "Take a seat in a tier's open room",
		RunE: func(cmd *cobra.Command, args []string) error {
			if bet <= 0 {
				return fmt.Errorf("--bet must be positive")
			}

			req := map[string]any{"tier": tier, "bet": bet}
			var result JoinResult
			err := client.Post("/api/v1/join", req, &result)
			if apiErr, ok := AsAPIError(err); ok && retry && apiErr.Retryable() {
				wait := apiErr.RetryAfter
				if wait <= 0 {
					wait = time.Second
				}
				fmt.Fprintf(os.Stderr, "%s, retrying in %s\n", apiErr.Message, wait)
				time.Sleep(wait)
				err = client.Post("/api/v1/join", req, &result)
			}
			if err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&tier, "tier", "", "Tier name (required)")
	cmd.Flags().Int64Var(&bet, "bet", 0, "Bet amount (required)")
	cmd.Flags().BoolVar(&retry, "retry", false, "Retry once if the room just filled")
	_ = cmd.MarkFlagRequired("tier")
	_ = cmd.MarkFlagRequired("bet")

	return cmd
}
