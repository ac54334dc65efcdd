package apperror

import (
	"errors"
	"fmt"
	"testing"
)

var sentinels = []error{ErrValidation, ErrUnauthenticated, ErrForbidden, ErrNotFound}

// Each constructor must wrap exactly one sentinel: a handler's status switch
// relies on no error matching two kinds.
func TestConstructors_WrapExactlyOneSentinel(t *testing.T) {
	tests := []struct {
		name      string
		err       *AppError
		want      error
		wantMsg   string
		wantField string
	}{
		{"NotFound", NotFound("post", "abc123"), ErrNotFound, "post not found with id abc123", ""},
		{"ValidationFailed", ValidationFailed("title", "title is required"), ErrValidation, "title is required", "title"},
		{"Unauthenticated", Unauthenticated("invalid email or password"), ErrUnauthenticated, "invalid email or password", ""},
		{"Forbidden", Forbidden("access denied"), ErrForbidden, "access denied", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, s := range sentinels {
				if got, want := errors.Is(tt.err, s), s == tt.want; got != want {
					t.Errorf("errors.Is(%s, %v) = %v, want %v", tt.name, s, got, want)
				}
			}
			if got := tt.err.Error(); got != tt.wantMsg {
				t.Errorf("Error() = %q, want %q", got, tt.wantMsg)
			}
			if tt.err.Field != tt.wantField {
				t.Errorf("Field = %q, want %q", tt.err.Field, tt.wantField)
			}
			if tt.err.Unwrap() != tt.want {
				t.Errorf("Unwrap() = %v, want %v", tt.err.Unwrap(), tt.want)
			}
		})
	}
}

func TestWrappedAppErrorStillClassifies(t *testing.T) {
	err := fmt.Errorf("service: %w", fmt.Errorf("creating post: %w",
		ValidationFailed("title", "title must be at most 100 characters")))

	if !errors.Is(err, ErrValidation) {
		t.Fatalf("errors.Is(err, ErrValidation) = false through two wraps")
	}

	var appErr *AppError
	if !errors.As(err, &appErr) {
		t.Fatal("errors.As() = false, want true")
	}
	if appErr.Field != "title" || appErr.Message != "title must be at most 100 characters" {
		t.Errorf("extracted %+v", appErr)
	}
}

func TestPlainErrorIsUnclassified(t *testing.T) {
	err := errors.New("sqlite: disk I/O error")

	for _, s := range sentinels {
		if errors.Is(err, s) {
			t.Errorf("plain error matched %v", s)
		}
	}
}
