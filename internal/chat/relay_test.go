package chat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type flushRecorder struct {
	*httptest.ResponseRecorder
	flushes int
}

func (f *flushRecorder) Flush() { f.flushes++ }

func TestRelay_StreamsChunks(t *testing.T) {
	var got chatRequest
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		fl := w.(http.Flusher)
		for _, chunk := range []string{
			`{"message":{"role":"assistant","content":"Eat "},"done":false}` + "\n",
			`{"message":{"role":"assistant","content":"oats."},"done":false}` + "\n",
			`{"done":true}` + "\n",
		} {
			_, _ = w.Write([]byte(chunk))
			fl.Flush()
		}
	}))
	defer upstream.Close()

	relay := NewRelay(upstream.URL+"/", "mybiom")
	s, err := relay.Open(context.Background(), "breakfast?")
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	rec := &flushRecorder{ResponseRecorder: httptest.NewRecorder()}
	n, err := s.CopyTo(rec)
	require.NoError(t, err)
	assert.Equal(t, int64(rec.Body.Len()), n)
	assert.Contains(t, rec.Body.String(), `"content":"oats."`)
	assert.GreaterOrEqual(t, rec.flushes, 1)

	assert.Equal(t, "mybiom", got.Model)
	assert.True(t, got.Stream)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, message{Role: "user", Content: "breakfast?"}, got.Messages[0])
}

func TestRelay_UpstreamStatus(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `model "mybiom" not found`, http.StatusNotFound)
	}))
	defer upstream.Close()

	_, err := NewRelay(upstream.URL, "mybiom").Open(context.Background(), "hi")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUpstream))
	var ue *UpstreamError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, http.StatusNotFound, ue.Status)
	assert.Contains(t, ue.Body, "not found")
}

func TestRelay_Unreachable(t *testing.T) {
	upstream := httptest.NewServer(http.NotFoundHandler())
	url := upstream.URL
	upstream.Close()

	_, err := NewRelay(url, "mybiom").Open(context.Background(), "hi")
	assert.True(t, errors.Is(err, ErrUpstream))
	assert.Error(t, NewRelay(url, "mybiom").HealthPing(context.Background()))
}

func TestRelay_EmptyMessage(t *testing.T) {
	_, err := NewRelay("http://127.0.0.1:1", "m").Open(context.Background(), "  ")
	assert.Error(t, err)
}

func TestRelay_HealthPing(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/tags" {
			_, _ = w.Write([]byte(`{"models":[]}`))
			return
		}
		http.NotFound(w, r)
	}))
	defer upstream.Close()
	assert.NoError(t, NewRelay(upstream.URL, "m").HealthPing(context.Background()))
}
