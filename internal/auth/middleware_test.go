package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sahti/patient-portal/pkg/logger"
)

func setupMiddleware(t *testing.T) (*Middleware, *TokenValidator) {
	t.Helper()
	validator := NewTokenValidator(testJWTConfig())
	return NewMiddleware(validator, logger.New("auth-test", "debug")), validator
}

func TestAuthenticate_ValidToken(t *testing.T) {
	middleware, validator := setupMiddleware(t)

	token, err := validator.GenerateToken("user-1", "user@example.com")
	require.NoError(t, err)

	var gotClaims *UserClaims
	handler := middleware.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFromContext(r.Context())
		require.True(t, ok)
		gotClaims = claims
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/api/v1/patients/user-1/dashboard", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, gotClaims)
	assert.Equal(t, "user-1", gotClaims.UserID)
}

func TestAuthenticate_MissingHeader(t *testing.T) {
	middleware, _ := setupMiddleware(t)

	handler := middleware.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be reached")
	}))

	req := httptest.NewRequest("GET", "/api/v1/patients/user-1/dashboard", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "missing authorization header")
}

func TestAuthenticate_MalformedHeader(t *testing.T) {
	middleware, _ := setupMiddleware(t)

	handler := middleware.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be reached")
	}))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Token abcdef")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

// serveWithOwnershipCheck routes a request for tokenUser through the
// full Authenticate + RequirePatient chain against the given path.
func serveWithOwnershipCheck(t *testing.T, tokenUser, path string) *httptest.ResponseRecorder {
	t.Helper()
	middleware, validator := setupMiddleware(t)

	token, err := validator.GenerateToken(tokenUser, tokenUser+"@example.com")
	require.NoError(t, err)

	router := mux.NewRouter()
	router.Use(middleware.Authenticate, middleware.RequirePatient)
	router.HandleFunc("/api/v1/patients/{patientId}/dashboard", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Methods("GET")
	router.HandleFunc("/api/v1/storage/stats", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Methods("GET")

	req := httptest.NewRequest("GET", path, nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestRequirePatient_OwnData(t *testing.T) {
	rec := serveWithOwnershipCheck(t, "user-1", "/api/v1/patients/user-1/dashboard")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequirePatient_RejectsOtherPatient(t *testing.T) {
	rec := serveWithOwnershipCheck(t, "user-1", "/api/v1/patients/user-2/dashboard")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequirePatient_PassesRoutesWithoutPatientVar(t *testing.T) {
	rec := serveWithOwnershipCheck(t, "user-1", "/api/v1/storage/stats")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequirePatient_NoClaimsRejected(t *testing.T) {
	middleware, _ := setupMiddleware(t)

	handler := middleware.RequirePatient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be reached")
	}))

	req := httptest.NewRequest("GET", "/api/v1/patients/user-1/dashboard", nil)
	req = mux.SetURLVars(req, map[string]string{"patientId": "user-1"})
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAuthenticate_InvalidToken(t *testing.T) {
	middleware, _ := setupMiddleware(t)

	handler := middleware.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be reached")
	}))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer invalid.token.here")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
