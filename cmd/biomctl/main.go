package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/spf13/cobra"
)

const (
	defaultAPI     = "http://localhost:3000"
	requestTimeout = 30 * time.Second
)

// client is a thin REST client for the biom service. No client timeout is
// set; plain calls are bounded by requestTimeout and chat streams by ctx.
type client struct {
	rc *resty.Client
}

func newClient(api string) *client {
	rc := resty.New().
		SetBaseURL(strings.TrimRight(api, "/")).
		SetHeader("Content-Type", "application/json")
	return &client{rc: rc}
}

type apiError struct {
	Status  int
	Message string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("http %d: %s", e.Status, e.Message)
}

// call sends one JSON request and returns the raw response body.
func (c *client) call(ctx context.Context, method, path string, body interface{}, query map[string]string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	req := c.rc.R().SetContext(ctx)
	if body != nil {
		req.SetBody(body)
	}
	if len(query) > 0 {
		req.SetQueryParams(query)
	}
	resp, err := req.Execute(method, path)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	if resp.StatusCode() >= http.StatusMultipleChoices {
		return nil, &apiError{Status: resp.StatusCode(), Message: errorMessage(resp.Body())}
	}
	return resp.Body(), nil
}

// stream posts body and copies the reply to out as it arrives.
func (c *client) stream(ctx context.Context, path string, body interface{}, out io.Writer) error {
	resp, err := c.rc.R().
		SetContext(ctx).
		SetBody(body).
		SetDoNotParseResponse(true).
		Post(path)
	if err != nil {
		return fmt.Errorf("POST %s: %w", path, err)
	}
	raw := resp.RawBody()
	defer func() { _ = raw.Close() }()
	if resp.StatusCode() != http.StatusOK {
		data, _ := io.ReadAll(raw)
		return &apiError{Status: resp.StatusCode(), Message: errorMessage(data)}
	}
	_, err = io.Copy(out, raw)
	return err
}

func errorMessage(data []byte) string {
	var e struct {
		Error    string `json:"error"`
		Message  string `json:"message"`
		Failures []struct {
			Name   string `json:"name"`
			Reason string `json:"reason"`
		} `json:"failures"`
	}
	if json.Unmarshal(data, &e) == nil {
		msg := e.Message
		if msg == "" {
			msg = e.Error
		}
		for _, f := range e.Failures {
			msg += fmt.Sprintf("\n  %s: %s", f.Name, f.Reason)
		}
		if msg != "" {
			return msg
		}
	}
	return strings.TrimSpace(string(data))
}

func printJSON(out io.Writer, data []byte) error {
	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", "  "); err != nil {
		_, err = fmt.Fprintln(out, string(data))
		return err
	}
	_, err := fmt.Fprintln(out, buf.String())
	return err
}

func newRootCmd() *cobra.Command {
	var api string
	root := &cobra.Command{
		Use:           "biomctl",
		Short:         "CLI client for the biom REST API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	def := defaultAPI
	if v := os.Getenv("BIOM_API"); v != "" {
		def = v
	}
	root.PersistentFlags().StringVarP(&api, "api", "a", def, "Biom service base URL")

	cli := func() *client { return newClient(api) }
	root.AddCommand(
		newUsersCmd(cli),
		newAttrsCmd(cli),
		newEntriesCmd(cli),
		newGraphCmd(cli),
		newChatCmd(cli),
	)
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
