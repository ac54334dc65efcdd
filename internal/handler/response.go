package handler

// RESPONSE HELPERS:
// These functions standardise how we read JSON requests and send JSON
// responses and errors, so every handler looks the same:
//
//	if err := decodeJSON(w, r, &in); err != nil { writeError(w, h.logger, err); return }
//	result, err := h.service.DoThing(ctx, in)
//	if err != nil { writeError(w, h.logger, err); return }
//	writeJSON(w, http.StatusOK, result)
//
// CONSISTENT ERROR FORMAT:
// Every error response from the API has the same shape:
//
//	{"message": "post not found with id abc123"}
//
// The HTTP status is the only machine-readable part; the frontend shows the
// message as-is.

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/sakif/edublog/internal/apperror"
)

// MaxBodyBytes caps every JSON request body.
const MaxBodyBytes = 1 << 20 // 1 MiB

// msgInternal is the only thing a client ever learns about a 500.
const msgInternal = "internal server error"

// ErrorResponse is the standard error format returned by all API endpoints.
type ErrorResponse struct {
	Message string `json:"message"`
}

// MessageResponse acknowledges an operation that has nothing else to return,
// e.g. {"message":"post deleted"}.
type MessageResponse struct {
	Message string `json:"message"`
}

// writeJSON sends a JSON response with the given status code.
//
// HEADER ORDER MATTERS:
// Headers and status must be set BEFORE the body is written. Once Encode
// calls w.Write(), the headers are on the wire and later changes are
// silently ignored.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are already sent; all we can do is log it.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeError maps a domain error to its HTTP status and sends it.
//
// ERROR MAPPING:
// The service layer returns apperror values; this is the one place they
// become status codes. The switch is exhaustive over the taxonomy:
//
//	ErrValidation      → 400
//	ErrUnauthenticated → 401
//	ErrForbidden       → 403
//	ErrNotFound        → 404
//	anything else      → 500, logged, generic message
//
// errors.Is walks the whole chain, so a service may wrap an AppError with
// fmt.Errorf("creating post: %w", err) and it still maps correctly.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, apperror.ErrValidation):
			status = http.StatusBadRequest
		case errors.Is(err, apperror.ErrUnauthenticated):
			status = http.StatusUnauthorized
		case errors.Is(err, apperror.ErrForbidden):
			status = http.StatusForbidden
		case errors.Is(err, apperror.ErrNotFound):
			status = http.StatusNotFound
		}

		if status != http.StatusInternalServerError {
			writeJSON(w, status, ErrorResponse{Message: appErr.Message})
			return
		}
	}

	// NEVER expose internal error details to the client: the raw message
	// might contain SQL, file paths or driver internals.
	logger.Error("unhandled error", slog.String("error", err.Error()))
	writeJSON(w, http.StatusInternalServerError, ErrorResponse{Message: msgInternal})
}

// decodeJSON reads a single JSON value from the request body into dst.
//
// The body is capped at MaxBodyBytes. An empty body, malformed JSON, a
// value of the wrong type or an oversized body all become a 400 validation
// error.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)

	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		var (
			typeErr     *json.UnmarshalTypeError
			tooLargeErr *http.MaxBytesError
		)

		switch {
		case errors.Is(err, io.EOF):
			return apperror.ValidationFailed("", "request body is required")
		case errors.As(err, &tooLargeErr):
			return apperror.ValidationFailed("", fmt.Sprintf("request body must not exceed %d bytes", tooLargeErr.Limit))
		case errors.As(err, &typeErr) && typeErr.Field != "":
			return apperror.ValidationFailed(typeErr.Field, fmt.Sprintf("%s has the wrong type", typeErr.Field))
		default:
			return apperror.ValidationFailed("", "malformed JSON body")
		}
	}

	return nil
}
