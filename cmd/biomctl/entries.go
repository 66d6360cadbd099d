package main

import (
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/spf13/cobra"
)

func newEntriesCmd(cli func() *client) *cobra.Command {
	var userID string
	entriesCmd := &cobra.Command{Use: "entries", Short: "Nutrition log operations"}
	entriesCmd.PersistentFlags().StringVarP(&userID, "user", "u", "", "User ID (required)")
	_ = entriesCmd.MarkPersistentFlagRequired("user")

	base := func() string { return "/api/users/" + url.PathEscape(userID) }

	var food, at string
	var calories, protein, carbs float64
	addCmd := &cobra.Command{
		Use:   "add",
		Short: "Log a food item",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			payload := map[string]interface{}{}
			if food != "" {
				payload["foodItem"] = food
			}
			if at != "" {
				ts, err := time.Parse(time.RFC3339, at)
				if err != nil {
					return fmt.Errorf("invalid --at %q (expected RFC3339)", at)
				}
				payload["recordedAt"] = ts
			}
			flags := cmd.Flags()
			if flags.Changed("calories") {
				payload["calories"] = calories
			}
			if flags.Changed("protein") {
				payload["protein"] = protein
			}
			if flags.Changed("carbs") {
				payload["carbs"] = carbs
			}
			data, err := cli().call(cmd.Context(), http.MethodPost, base()+"/entries", payload, nil)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), data)
		},
	}
	addCmd.Flags().StringVarP(&food, "food", "f", "", "Food item")
	addCmd.Flags().StringVar(&at, "at", "", "Time eaten, RFC3339 (defaults to now)")
	addCmd.Flags().Float64Var(&calories, "calories", 0, "Calories")
	addCmd.Flags().Float64Var(&protein, "protein", 0, "Protein grams")
	addCmd.Flags().Float64Var(&carbs, "carbs", 0, "Carbohydrate grams")

	var date string
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List entries, optionally for one date",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var q map[string]string
			if date != "" {
				q = map[string]string{"date": date}
			}
			data, err := cli().call(cmd.Context(), http.MethodGet, base()+"/entries", nil, q)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), data)
		},
	}
	listCmd.Flags().StringVarP(&date, "date", "d", "", "Date (YYYY-MM-DD)")

	var macrosDate string
	macrosCmd := &cobra.Command{
		Use:   "macros",
		Short: "Show the day's calorie and macro totals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var q map[string]string
			if macrosDate != "" {
				q = map[string]string{"date": macrosDate}
			}
			data, err := cli().call(cmd.Context(), http.MethodGet, base()+"/macros", nil, q)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), data)
		},
	}
	macrosCmd.Flags().StringVarP(&macrosDate, "date", "d", "", "Date (YYYY-MM-DD, defaults to today)")

	entriesCmd.AddCommand(addCmd, listCmd, macrosCmd)
	return entriesCmd
}
