package auth

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/sakif/edublog/internal/model"
)

// Messages sent with 401/403 responses. Every kind of bad token gets the
// same message so callers cannot probe why a token was rejected.
const (
	msgTokenMissing = "authentication token required"
	msgTokenInvalid = "invalid or expired token"
	msgAccessDenied = "access denied"
)

// RequireAuth is a middleware that enforces authentication on protected routes.
//
// It reads the token from the "Authorization: Bearer <token>" header,
// validates it, and stores the resulting Principal in the request context.
// If the token is missing or invalid, it returns 401 and stops the chain.
//
// The principal is taken from the token as-is; the user record is not
// re-read. TODO: consult a revocation list here once logout or forced
// sign-out is needed, so deleted or demoted users lose access before expiry.
func RequireAuth(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := bearerToken(r)
			if !ok {
				writeMessage(w, http.StatusUnauthorized, msgTokenMissing)
				return
			}

			principal, err := tokens.Validate(raw)
			if err != nil {
				writeMessage(w, http.StatusUnauthorized, msgTokenInvalid)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
		})
	}
}

// RequireRole is the role gate. It must run after RequireAuth: a request
// without a principal is answered 401, a principal whose role is not in
// roles is answered 403.
//
//	r.With(auth.RequireRole(model.RoleProfessor, model.RoleAdmin)).Post("/", h.HandleCreate)
func RequireRole(roles ...model.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := PrincipalFromContext(r.Context())
			if !ok {
				writeMessage(w, http.StatusUnauthorized, msgTokenMissing)
				return
			}
			if !principal.HasRole(roles...) {
				writeMessage(w, http.StatusForbidden, msgAccessDenied)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// bearerToken extracts the token from the Authorization header. The scheme
// is matched case-insensitively, as RFC 6750 allows.
func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}

	token = strings.TrimSpace(token)
	return token, token != ""
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"message": message})
}
