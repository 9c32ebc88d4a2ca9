package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/spendtrack/spendtrack/internal/auth"
	"github.com/spendtrack/spendtrack/internal/model"
)

// AuthConfig holds configuration for the auth middleware.
type AuthConfig struct {
	Logger   *slog.Logger
	Verifier *auth.Verifier
}

// Auth returns a middleware that authenticates requests with a bearer token.
// It verifies the token signature and expiry and injects the caller's
// identity into the request context.
func Auth(cfg AuthConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractBearerToken(r)
			if token == "" {
				cfg.Logger.Warn("authentication failed",
					slog.String("reason", "missing_token"),
					slog.String("ip", r.RemoteAddr),
					slog.String("endpoint", r.Method+" "+r.URL.Path),
					slog.String("request_id", GetRequestID(r.Context())),
				)
				writeAuthJSON(w, http.StatusUnauthorized, "Unauthorized access: No token provided")
				return
			}

			userID, err := cfg.Verifier.Verify(token)
			if err != nil {
				reason, status, message := classifyAuthError(err)
				cfg.Logger.Warn("authentication failed",
					slog.String("reason", reason),
					slog.String("ip", r.RemoteAddr),
					slog.String("endpoint", r.Method+" "+r.URL.Path),
					slog.String("request_id", GetRequestID(r.Context())),
				)
				writeAuthJSON(w, status, message)
				return
			}

			ctx := auth.ContextWithPrincipal(r.Context(), &model.Principal{UserID: userID})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// extractBearerToken pulls the token out of the Authorization header.
// A bare token without the Bearer prefix is also accepted.
func extractBearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	return strings.TrimSpace(header)
}

// classifyAuthError maps verification failures to an HTTP response.
// A missing token is 401; a present but unusable one is 403.
func classifyAuthError(err error) (reason string, status int, message string) {
	switch {
	case errors.Is(err, auth.ErrNoToken):
		return "missing_token", http.StatusUnauthorized, "Unauthorized access: No token provided"
	case errors.Is(err, auth.ErrClaimMissing):
		return "missing_claim", http.StatusForbidden, "Invalid token payload"
	default:
		return "invalid_token", http.StatusForbidden, "Invalid or expired token"
	}
}

func writeAuthJSON(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write([]byte(`{"message":"` + message + `"}`))
}
