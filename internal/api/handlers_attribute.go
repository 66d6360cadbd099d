package api

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mybiom/biom/internal/api/respond"
	"github.com/mybiom/biom/internal/api/validate"
	"github.com/mybiom/biom/internal/services"
)

type AttributeHandler struct {
	svc *services.AttributeService
}

func NewAttributeHandler(svc *services.AttributeService) *AttributeHandler {
	return &AttributeHandler{svc: svc}
}

// SetAttributes handles PUT /api/users/{userId}/attributes with body {"data": {name: value}}.
// The batch is applied all-or-nothing.
func (h *AttributeHandler) SetAttributes(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}
	var in struct {
		Data json.RawMessage `json:"data"`
	}
	if err := decodeJSON(w, r, &in); err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}
	if err := validate.IsJSONObject(in.Data); err != nil {
		respond.WriteBadRequest(w, "data "+err.Error())
		return
	}
	var values map[string]interface{}
	if err := decodeNumbers(in.Data, &values); err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}

	recs, err := h.svc.SetAttributes(r.Context(), id, values)
	if err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{"userId": id, "records": recs})
}

// SetAttribute handles PUT /api/users/{userId}/attributes/{name} with body {"value": v}.
func (h *AttributeHandler) SetAttribute(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}
	var in struct {
		Value interface{} `json:"value"`
	}
	if err := decodeJSON(w, r, &in); err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}
	rec, err := h.svc.SetAttribute(r.Context(), id, mux.Vars(r)["name"], in.Value)
	if err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, rec)
}

func (h *AttributeHandler) GetAttributes(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}
	out, err := h.svc.GetAttributes(r.Context(), id)
	if err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, out)
}

func (h *AttributeHandler) History(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}
	out, err := h.svc.History(r.Context(), id, mux.Vars(r)["name"])
	if err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, out)
}

func decodeNumbers(raw json.RawMessage, dst interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	return dec.Decode(dst)
}
