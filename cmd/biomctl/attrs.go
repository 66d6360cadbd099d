package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/spf13/cobra"
)

// jsonNumber reports whether s is a JSON number literal, so "72.5" is sent as
// a number while "02134" or "+44..." stay strings.
func jsonNumber(s string) (json.Number, bool) {
	dec := json.NewDecoder(bytes.NewReader([]byte(s)))
	dec.UseNumber()
	var v interface{}
	if err := dec.Decode(&v); err != nil || dec.More() {
		return "", false
	}
	n, ok := v.(json.Number)
	return n, ok && string(n) == s
}

// parseAssignments turns NAME=VALUE arguments into a request payload. Values
// that are JSON number literals are sent as numbers, everything else verbatim.
func parseAssignments(args []string) (map[string]interface{}, error) {
	out := make(map[string]interface{}, len(args))
	for _, a := range args {
		name, value, ok := strings.Cut(a, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid assignment %q (expected NAME=VALUE)", a)
		}
		if _, dup := out[name]; dup {
			return nil, fmt.Errorf("attribute %q given twice", name)
		}
		if n, ok := jsonNumber(value); ok {
			out[name] = n
			continue
		}
		out[name] = value
	}
	return out, nil
}

func newAttrsCmd(cli func() *client) *cobra.Command {
	var userID string
	attrsCmd := &cobra.Command{Use: "attrs", Short: "Health attribute operations"}
	attrsCmd.PersistentFlags().StringVarP(&userID, "user", "u", "", "User ID (required)")
	_ = attrsCmd.MarkPersistentFlagRequired("user")

	base := func() string { return "/api/users/" + url.PathEscape(userID) + "/attributes" }

	setCmd := &cobra.Command{
		Use:   "set NAME=VALUE...",
		Short: "Write one or more attributes in a single batch",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			values, err := parseAssignments(args)
			if err != nil {
				return err
			}
			data, err := cli().call(cmd.Context(), http.MethodPut, base(), map[string]interface{}{"data": values}, nil)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), data)
		},
	}

	getCmd := &cobra.Command{
		Use:   "get",
		Short: "Show current attribute values",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := cli().call(cmd.Context(), http.MethodGet, base(), nil, nil)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), data)
		},
	}

	historyCmd := &cobra.Command{
		Use:   "history NAME",
		Short: "Show every recorded value of one attribute",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := base() + "/" + url.PathEscape(args[0]) + "/history"
			data, err := cli().call(cmd.Context(), http.MethodGet, path, nil, nil)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), data)
		},
	}

	attrsCmd.AddCommand(setCmd, getCmd, historyCmd)
	return attrsCmd
}
