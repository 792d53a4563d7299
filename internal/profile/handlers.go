package profile

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/sahti/patient-portal/pkg/types"
)

// SetupRoutes configures HTTP routes for the profile service
func (s *Service) SetupRoutes(router *mux.Router) {
	api := router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/patients/{patientId}/profile", s.getProfileHandler).Methods("GET")
	api.HandleFunc("/patients/{patientId}/profile", s.updateProfileHandler).Methods("PUT")

	s.logger.Info("Profile service routes configured")
}

// getProfileHandler returns the patient's profile
func (s *Service) getProfileHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	profile, err := s.Get(r.Context(), vars["patientId"])
	if err != nil {
		s.writeErrorResponse(w, statusForError(err), "Failed to get profile", err)
		return
	}

	s.writeJSONResponse(w, http.StatusOK, profile)
}

// updateProfileHandler applies a partial profile edit. The body is a
// JSON object keyed by profile field names.
func (s *Service) updateProfileHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	var updates map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	profile, err := s.Update(r.Context(), vars["patientId"], updates)
	if err != nil {
		s.writeErrorResponse(w, statusForError(err), "Failed to update profile", err)
		return
	}

	s.writeJSONResponse(w, http.StatusOK, profile)
}

// statusForError maps application errors to HTTP status codes
func statusForError(err error) int {
	var appErr *types.AppError
	if errors.As(err, &appErr) {
		switch appErr.Type {
		case types.ErrorTypeValidation:
			return http.StatusBadRequest
		case types.ErrorTypeNotFound:
			return http.StatusNotFound
		}
	}
	return http.StatusInternalServerError
}

// writeJSONResponse writes a JSON response
func (s *Service) writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.WithError(err).Error("Failed to encode JSON response")
	}
}

// writeErrorResponse writes an error response
func (s *Service) writeErrorResponse(w http.ResponseWriter, statusCode int, message string, err error) {
	s.logger.WithError(err).Error(message)

	response := map[string]interface{}{
		"error":  message,
		"status": statusCode,
	}
	if err != nil {
		response["details"] = err.Error()
	}

	s.writeJSONResponse(w, statusCode, response)
}
