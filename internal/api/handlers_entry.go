package api

import (
	"net/http"
	"time"

	"github.com/mybiom/biom/internal/api/respond"
	"github.com/mybiom/biom/internal/api/validate"
	"github.com/mybiom/biom/internal/model"
	"github.com/mybiom/biom/internal/services"
)

type EntryHandler struct {
	svc *services.EntryService
}

func NewEntryHandler(svc *services.EntryService) *EntryHandler { return &EntryHandler{svc: svc} }

type entryRequest struct {
	FoodItem   *string    `json:"foodItem"`
	RecordedAt *time.Time `json:"recordedAt"`
	Calories   *float64   `json:"calories"`
	Protein    *float64   `json:"protein"`
	Carbs      *float64   `json:"carbs"`
}

func (h *EntryHandler) AppendEntry(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}
	var in entryRequest
	if err := decodeJSON(w, r, &in); err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}
	if err := validate.Entry(in.FoodItem); err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}
	e := &model.NutritionEntry{
		UserID:   id,
		FoodItem: in.FoodItem,
		Calories: in.Calories,
		Protein:  in.Protein,
		Carbs:    in.Carbs,
	}
	if in.RecordedAt != nil {
		e.RecordedAt = *in.RecordedAt
	}
	out, err := h.svc.AppendEntry(r.Context(), e)
	if err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusCreated, out)
}

// ListEntries returns every entry, or a single day's with ?date=YYYY-MM-DD.
func (h *EntryHandler) ListEntries(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}
	date := r.URL.Query().Get("date")
	if err := validate.Date(date); err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}
	var (
		out []*model.NutritionEntry
		err error
	)
	if date == "" {
		out, err = h.svc.AllEntries(r.Context(), id)
	} else {
		out, err = h.svc.EntriesForDay(r.Context(), id, date)
	}
	if err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, out)
}

// Diary returns today's entries.
func (h *EntryHandler) Diary(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}
	out, err := h.svc.EntriesForDay(r.Context(), id, "")
	if err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, out)
}

// Macros returns the day's calorie, protein and carb totals (today unless ?date= is set).
func (h *EntryHandler) Macros(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}
	date := r.URL.Query().Get("date")
	if err := validate.Date(date); err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}
	out, err := h.svc.DailyTotals(r.Context(), id, date)
	if err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, out)
}
