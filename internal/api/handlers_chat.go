package api

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/mybiom/biom/internal/api/respond"
	"github.com/mybiom/biom/internal/api/validate"
	"github.com/mybiom/biom/internal/chat"
	"github.com/mybiom/biom/internal/metrics"
	"github.com/mybiom/biom/internal/model"
	"github.com/mybiom/biom/internal/services"
)

type ChatHandler struct {
	svc   *services.ChatService
	relay *chat.Relay
}

func NewChatHandler(svc *services.ChatService, relay *chat.Relay) *ChatHandler {
	return &ChatHandler{svc: svc, relay: relay}
}

func (h *ChatHandler) AppendMessage(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}
	var in struct {
		Message string `json:"message"`
		IsBot   bool   `json:"isBot"`
	}
	if err := decodeJSON(w, r, &in); err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}
	if err := validate.ChatMessage(in.Message); err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}
	out, err := h.svc.Append(r.Context(), &model.ChatMessage{UserID: id, Message: in.Message, IsBot: in.IsBot})
	if err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusCreated, out)
}

func (h *ChatHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}
	out, err := h.svc.List(r.Context(), id)
	if err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, out)
}

// Stream relays {"message"} to the text-generation service and streams its
// reply as text/event-stream, one upstream chunk at a time.
func (h *ChatHandler) Stream(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Message string `json:"message"`
	}
	if err := decodeJSON(w, r, &in); err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}
	if err := validate.ChatMessage(in.Message); err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}

	stream, err := h.relay.Open(r.Context(), in.Message)
	if err != nil {
		metrics.ChatStreamsTotal.WithLabelValues("upstream_error").Inc()
		log.Error().Err(err).Msg("chat upstream unavailable")
		var ue *chat.UpstreamError
		if errors.As(err, &ue) {
			respond.WriteError(w, http.StatusBadGateway, ue.Error())
			return
		}
		respond.WriteError(w, http.StatusBadGateway, "failed to connect to chat service")
		return
	}
	defer func() { _ = stream.Close() }()

	hdr := w.Header()
	hdr.Set("Content-Type", "text/event-stream")
	hdr.Set("Cache-Control", "no-cache")
	hdr.Set("Connection", "keep-alive")
	hdr.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	n, err := stream.CopyTo(w)
	if err != nil {
		metrics.ChatStreamsTotal.WithLabelValues("interrupted").Inc()
		log.Warn().Err(err).Int64("bytes", n).Msg("chat stream interrupted")
		return
	}
	metrics.ChatStreamsTotal.WithLabelValues("ok").Inc()
}
