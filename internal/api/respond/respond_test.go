package respond

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mybiom/biom/internal/model"
)

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{model.NewValidationError("x", "bad"), http.StatusBadRequest},
		{&model.BatchError{Err: model.NewValidationError("x", "bad")}, http.StatusBadRequest},
		{model.NewNotFoundError("userId", "u1"), http.StatusNotFound},
		{model.NewConflictError("userId", "u1"), http.StatusConflict},
		{model.NewStorageError("list", errors.New("down")), http.StatusServiceUnavailable},
		{&model.BatchError{Err: model.NewStorageError("apply", errors.New("x"))}, http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, StatusFor(tc.err), tc.err.Error())
	}
}

func TestWriteServiceError_Batch(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteServiceError(rr, &model.BatchError{
		Failures: []model.AttributeFailure{{Name: "mood", Reason: "value must not be null"}},
		Rejected: []string{"mood", "weight"},
		Err:      model.NewValidationError("mood", "value must not be null"),
	})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, 400, body.Code)
	assert.Equal(t, []string{"mood", "weight"}, body.Rejected)
	require.Len(t, body.Failures, 1)
	assert.Equal(t, "mood", body.Failures[0].Name)
}

func TestWriteServiceError_HidesStorageDetail(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteServiceError(rr, model.NewStorageError("apply", errors.New("password authentication failed")))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.NotContains(t, rr.Body.String(), "password")
}

func TestWriteJSON(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteJSON(rr, http.StatusCreated, map[string]string{"ok": "yes"})
	assert.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"ok":"yes"}`, rr.Body.String())
}
