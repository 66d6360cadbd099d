// Package chat relays chat prompts to an Ollama-compatible text-generation
// service and streams the reply back without buffering it.
package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"
)

// ErrUpstream marks failures of the text-generation service.
var ErrUpstream = errors.New("chat upstream error")

// UpstreamError carries a non-2xx reply from the text-generation service.
type UpstreamError struct {
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("chat upstream status %d: %s", e.Status, e.Body)
}

func (e *UpstreamError) Is(target error) bool { return target == ErrUpstream }

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string    `json:"model"`
	Messages []message `json:"messages"`
	Stream   bool      `json:"stream"`
}

// Relay talks to <baseURL>/api/chat.
type Relay struct {
	client *resty.Client
	model  string
}

// NewRelay builds a relay. No client timeout is set: a stream lives as long as
// the caller's context.
func NewRelay(baseURL, model string) *Relay {
	c := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetHeader("Content-Type", "application/json")
	return &Relay{client: c, model: model}
}

// Stream is an open upstream reply.
type Stream struct {
	body io.ReadCloser
}

// Open starts one upstream stream for message. The caller must Close it.
func (r *Relay) Open(ctx context.Context, msg string) (*Stream, error) {
	if strings.TrimSpace(msg) == "" {
		return nil, fmt.Errorf("empty message")
	}
	resp, err := r.client.R().
		SetContext(ctx).
		SetBody(&chatRequest{
			Model:    r.model,
			Messages: []message{{Role: "user", Content: msg}},
			Stream:   true,
		}).
		SetDoNotParseResponse(true).
		Post("/api/chat")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	body := resp.RawBody()
	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		defer func() { _ = body.Close() }()
		b, _ := io.ReadAll(io.LimitReader(body, 512))
		return nil, &UpstreamError{Status: resp.StatusCode(), Body: strings.TrimSpace(string(b))}
	}
	return &Stream{body: body}, nil
}

// CopyTo forwards each upstream chunk to w as it arrives, flushing after every
// write when w supports it. It returns the number of bytes forwarded.
func (s *Stream) CopyTo(w io.Writer) (int64, error) {
	flusher, _ := w.(http.Flusher)
	buf := make([]byte, 4096)
	var n int64
	for {
		read, rerr := s.body.Read(buf)
		if read > 0 {
			written, werr := w.Write(buf[:read])
			n += int64(written)
			if werr != nil {
				return n, werr
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
		if rerr == io.EOF {
			return n, nil
		}
		if rerr != nil {
			return n, fmt.Errorf("%w: %v", ErrUpstream, rerr)
		}
	}
}

func (s *Stream) Close() error { return s.body.Close() }

// HealthPing implements health.HealthPinger by listing the upstream models.
func (r *Relay) HealthPing(ctx context.Context) error {
	resp, err := r.client.R().SetContext(ctx).Get("/api/tags")
	if err != nil {
		return err
	}
	if resp.StatusCode() != http.StatusOK {
		return &UpstreamError{Status: resp.StatusCode(), Body: resp.String()}
	}
	return nil
}
