package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newChatCmd(cli func() *client) *cobra.Command {
	chatCmd := &cobra.Command{Use: "chat", Short: "Talk to the nutrition assistant"}

	sendCmd := &cobra.Command{
		Use:   "send MESSAGE...",
		Short: "Send a message and stream the reply",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			msg := strings.TrimSpace(strings.Join(args, " "))
			if msg == "" {
				return fmt.Errorf("message cannot be empty")
			}
			out := cmd.OutOrStdout()
			if err := cli().stream(cmd.Context(), "/api/chat", map[string]string{"message": msg}, out); err != nil {
				return err
			}
			_, err := fmt.Fprintln(out)
			return err
		},
	}

	chatCmd.AddCommand(sendCmd)
	return chatCmd
}
