package apperr_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"feedback-service/internal/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatus(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{apperr.Validation("bad rating"), http.StatusBadRequest},
		{apperr.NotFound("course not found"), http.StatusNotFound},
		{apperr.Conflict("duplicate"), http.StatusConflict},
		{apperr.Forbidden("not yours"), http.StatusForbidden},
		{apperr.InvalidState("course inactive"), http.StatusUnprocessableEntity},
		{apperr.Unauthenticated("invalid credentials"), http.StatusUnauthorized},
		{fmt.Errorf("wrapped: %w", apperr.NotFound("x")), http.StatusNotFound},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.code, apperr.Status(tc.err), tc.err.Error())
	}
}

func TestHasDependents(t *testing.T) {
	err := apperr.HasDependents("course", 3, "deactivate it")

	assert.ErrorIs(t, err, apperr.ErrConflict)
	assert.Contains(t, err.Error(), "3 feedback record(s)")

	count, ok := apperr.DependentCount(err)
	require.True(t, ok)
	assert.Equal(t, 3, count)

	_, ok = apperr.DependentCount(apperr.Conflict("other"))
	assert.False(t, ok)
}

func TestRespond(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("BusinessErrorWithDetails", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodDelete, "/api/admin/courses/1", nil)
		w := httptest.NewRecorder()

		apperr.Respond(w, req, logger, apperr.HasDependents("course", 2, "deactivate it"))

		assert.Equal(t, http.StatusConflict, w.Code)
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
		assert.Contains(t, body["error"], "2 feedback record(s)")
		details := body["details"].(map[string]interface{})
		assert.Equal(t, float64(2), details["dependentFeedback"])
	})

	t.Run("InternalErrorIsGeneric", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/feedback", nil)
		w := httptest.NewRecorder()

		apperr.Respond(w, req, logger, errors.New("pq: connection refused"))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.NotContains(t, w.Body.String(), "connection refused")
	})
}
