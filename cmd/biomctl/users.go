package main

import (
	"net/http"
	"net/url"

	"github.com/spf13/cobra"
)

func newUsersCmd(cli func() *client) *cobra.Command {
	usersCmd := &cobra.Command{Use: "users", Short: "User operations"}

	var userID, name string
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			payload := map[string]string{"name": name}
			if userID != "" {
				payload["userId"] = userID
			}
			data, err := cli().call(cmd.Context(), http.MethodPost, "/api/users", payload, nil)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), data)
		},
	}
	createCmd.Flags().StringVarP(&userID, "user", "u", "", "User ID (generated when omitted)")
	createCmd.Flags().StringVarP(&name, "name", "n", "", "Display name")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := cli().call(cmd.Context(), http.MethodGet, "/api/users", nil, nil)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), data)
		},
	}

	getCmd := &cobra.Command{
		Use:   "get USER_ID",
		Short: "Get a user with current attribute values",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := cli().call(cmd.Context(), http.MethodGet, "/api/users/"+url.PathEscape(args[0]), nil, nil)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), data)
		},
	}

	usersCmd.AddCommand(createCmd, listCmd, getCmd)
	return usersCmd
}
