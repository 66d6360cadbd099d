package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mybiom/biom/internal/api/respond"
	"github.com/mybiom/biom/internal/api/validate"
	"github.com/mybiom/biom/internal/model"
	"github.com/mybiom/biom/internal/services"
)

type UserHandler struct {
	svc *services.UserService
}

func NewUserHandler(svc *services.UserService) *UserHandler { return &UserHandler{svc: svc} }

// userID reads and validates the {userId} path variable, writing a 400 on failure.
func userID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := mux.Vars(r)["userId"]
	if err := validate.UserID(id); err != nil {
		respond.WriteBadRequest(w, err.Error())
		return "", false
	}
	return id, true
}

func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var in struct {
		UserID string `json:"userId"`
		Name   string `json:"name"`
	}
	if err := decodeJSON(w, r, &in); err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}
	if err := validate.CreateUser(in.UserID, in.Name); err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}
	out, err := h.svc.CreateUser(r.Context(), &model.User{UserID: in.UserID, Name: in.Name})
	if err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusCreated, out)
}

func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.ListUsers(r.Context())
	if err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, out)
}

// GetUser returns the user with the current value of every attribute.
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}
	out, err := h.svc.GetProfile(r.Context(), id)
	if err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, out)
}
