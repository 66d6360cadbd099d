package main

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/spf13/cobra"
)

func newGraphCmd(cli func() *client) *cobra.Command {
	var userID string
	graphCmd := &cobra.Command{Use: "graph", Short: "Aggregated views"}
	graphCmd.PersistentFlags().StringVarP(&userID, "user", "u", "", "User ID (required)")
	_ = graphCmd.MarkPersistentFlagRequired("user")

	base := func() string { return "/api/users/" + url.PathEscape(userID) }

	var days int
	nutritionCmd := &cobra.Command{
		Use:   "nutrition",
		Short: "Daily totals and per-food calories over a window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var q map[string]string
			if days > 0 {
				q = map[string]string{"days": strconv.Itoa(days)}
			}
			data, err := cli().call(cmd.Context(), http.MethodGet, base()+"/graphs/nutrition", nil, q)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), data)
		},
	}
	nutritionCmd.Flags().IntVar(&days, "days", 0, "Window in days (server default when unset)")

	healthCmd := &cobra.Command{
		Use:   "health",
		Short: "Numeric attribute series",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := cli().call(cmd.Context(), http.MethodGet, base()+"/graphs/health", nil, nil)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), data)
		},
	}

	graphCmd.AddCommand(nutritionCmd, healthCmd)
	return graphCmd
}
