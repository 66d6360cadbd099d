package api

import (
	"net/http"

	"github.com/mybiom/biom/internal/api/respond"
	"github.com/mybiom/biom/internal/api/validate"
	"github.com/mybiom/biom/internal/services"
)

type GraphHandler struct {
	svc *services.GraphService
}

func NewGraphHandler(svc *services.GraphService) *GraphHandler { return &GraphHandler{svc: svc} }

func (h *GraphHandler) Nutrition(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}
	days, err := validate.Days(r.URL.Query().Get("days"))
	if err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}
	out, err := h.svc.ComputeNutritionGraph(r.Context(), id, days)
	if err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, out)
}

func (h *GraphHandler) Health(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}
	out, err := h.svc.ComputeHealthGraph(r.Context(), id)
	if err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, out)
}

func (h *GraphHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}
	days, err := validate.Days(r.URL.Query().Get("days"))
	if err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}
	out, err := h.svc.Dashboard(r.Context(), id, days)
	if err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, out)
}
