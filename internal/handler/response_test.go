package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/edublog/internal/apperror"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestWriteError_MapsTaxonomy(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantMsg    string
	}{
		{"validation", apperror.ValidationFailed("title", "title is required"), http.StatusBadRequest, "title is required"},
		{"unauthenticated", apperror.Unauthenticated("invalid email or password"), http.StatusUnauthorized, "invalid email or password"},
		{"forbidden", apperror.Forbidden("access denied"), http.StatusForbidden, "access denied"},
		{"not found", apperror.NotFound("post", "abc"), http.StatusNotFound, "post not found with id abc"},
		{"wrapped", fmt.Errorf("updating post: %w", apperror.Forbidden("nope")), http.StatusForbidden, "nope"},
		{"unknown error", errors.New("sql: database is locked"), http.StatusInternalServerError, msgInternal},
		{"AppError without sentinel", &apperror.AppError{Message: "leaky detail"}, http.StatusInternalServerError, msgInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			writeError(rr, quietLogger(), tt.err)

			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

			var body ErrorResponse
			require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
			assert.Equal(t, tt.wantMsg, body.Message)
		})
	}
}

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		Title string `json:"title"`
	}

	tests := []struct {
		name      string
		body      string
		wantErr   bool
		wantField string
	}{
		{"valid", `{"title":"hello"}`, false, ""},
		{"unknown fields ignored", `{"title":"hello","author":"someone-else"}`, false, ""},
		{"empty body", ``, true, ""},
		{"truncated", `{"title":`, true, ""},
		{"not json", `title=hello`, true, ""},
		{"wrong type", `{"title":42}`, true, "title"},
		{"too large", `{"title":"` + strings.Repeat("a", MaxBodyBytes) + `"}`, true, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			rr := httptest.NewRecorder()

			var dst payload
			err := decodeJSON(rr, req, &dst)

			if !tt.wantErr {
				require.NoError(t, err)
				assert.Equal(t, "hello", dst.Title)
				return
			}

			require.Error(t, err)
			assert.ErrorIs(t, err, apperror.ErrValidation)

			var appErr *apperror.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, tt.wantField, appErr.Field)
		})
	}
}
