package analysis

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/sahti/patient-portal/pkg/types"
)

// SetupRoutes configures HTTP routes for the analysis service
func (s *Service) SetupRoutes(router *mux.Router) {
	api := router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/patients/{patientId}/tests", s.analyzeUploadHandler).Methods("POST")
	api.HandleFunc("/patients/{patientId}/tests/{testId}", s.deleteTestHandler).Methods("DELETE")

	s.logger.Info("Analysis service routes configured")
}

// uploadPayload is the JSON body of an analysis request. File bytes are
// carried base64-encoded.
type uploadPayload struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
	ImageURL string `json:"image_url"`
}

// analyzeUploadHandler runs one uploaded test file through the model
func (s *Service) analyzeUploadHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	patientID := vars["patientId"]

	var payload uploadPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	data, err := base64.StdEncoding.DecodeString(payload.Data)
	if err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, "Invalid file encoding", err)
		return
	}

	test, err := s.AnalyzeUpload(r.Context(), patientID, UploadRequest{
		MimeType: payload.MimeType,
		Data:     data,
		ImageURL: payload.ImageURL,
	})
	if err != nil {
		s.writeErrorResponse(w, statusForError(err), "Analysis failed", err)
		return
	}

	s.writeJSONResponse(w, http.StatusCreated, test)
}

// deleteTestHandler removes one stored test for the patient
func (s *Service) deleteTestHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	if err := s.DeleteTest(r.Context(), vars["patientId"], vars["testId"]); err != nil {
		s.writeErrorResponse(w, statusForError(err), "Failed to delete test", err)
		return
	}

	s.writeJSONResponse(w, http.StatusOK, map[string]bool{"success": true})
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
		case types.ErrorTypeExternal:
			return http.StatusBadGateway
		case types.ErrorTypeRateLimit:
			return http.StatusTooManyRequests
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
