package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/sahti/patient-portal/pkg/logger"
)

type contextKey string

const userClaimsKey contextKey = "user_claims"

// Middleware authenticates requests with a Bearer JWT and places the
// validated claims in the request context.
type Middleware struct {
	validator *TokenValidator
	logger    *logger.Logger
}

// NewMiddleware creates a new auth middleware
func NewMiddleware(validator *TokenValidator, log *logger.Logger) *Middleware {
	return &Middleware{
		validator: validator,
		logger:    log,
	}
}

// Authenticate validates the Authorization header
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			m.writeUnauthorized(w, "missing authorization header")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			m.writeUnauthorized(w, "invalid authorization header format")
			return
		}

		claims, err := m.validator.ValidateJWT(parts[1])
		if err != nil {
			m.logger.WithError(err).Warn("Token validation failed")
			m.writeUnauthorized(w, "invalid or expired token")
			return
		}

		ctx := context.WithValue(r.Context(), userClaimsKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequirePatient rejects requests whose {patientId} path variable does
// not match the authenticated user. Routes without the variable pass
// through untouched.
func (m *Middleware) RequirePatient(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		patientID, ok := mux.Vars(r)["patientId"]
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		claims, ok := ClaimsFromContext(r.Context())
		if !ok || claims.UserID != patientID {
			if ok {
				m.logger.WithFields(map[string]interface{}{
					"user_id":    claims.UserID,
					"patient_id": patientID,
				}).Warn("Cross-patient access rejected")
			}
			m.writeForbidden(w)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// ClaimsFromContext returns the authenticated claims, if any.
func ClaimsFromContext(ctx context.Context) (*UserClaims, bool) {
	claims, ok := ctx.Value(userClaimsKey).(*UserClaims)
	return claims, ok
}

func (m *Middleware) writeForbidden(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusForbidden)

	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"error":  "access to this patient's data is not allowed",
		"status": http.StatusForbidden,
	})
}

func (m *Middleware) writeUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)

	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"error":  message,
		"status": http.StatusUnauthorized,
	})
}
