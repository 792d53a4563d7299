package insights

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
)

// SetupRoutes configures HTTP routes for the insights service
func (s *Service) SetupRoutes(router *mux.Router) {
	api := router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/patients/{patientId}/dashboard", s.getDashboardHandler).Methods("GET")
	api.HandleFunc("/patients/{patientId}/report", s.getReportHandler).Methods("GET")
	api.HandleFunc("/patients/{patientId}/alerts", s.getAlertsHandler).Methods("GET")

	s.logger.Info("Insights service routes configured")
}

// getDashboardHandler recomputes and returns the patient dashboard
func (s *Service) getDashboardHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	patientID := vars["patientId"]

	opts := s.parseAlertOptions(r)
	dashboard, err := s.Dashboard(r.Context(), patientID, opts)
	if err != nil {
		s.writeErrorResponse(w, http.StatusInternalServerError, "Failed to compute dashboard", err)
		return
	}

	s.writeJSONResponse(w, http.StatusOK, dashboard)
}

// getReportHandler generates the textual health report
func (s *Service) getReportHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	patientID := vars["patientId"]

	report, err := s.Report(r.Context(), patientID)
	if err != nil {
		s.writeErrorResponse(w, http.StatusInternalServerError, "Failed to generate report", err)
		return
	}

	s.writeJSONResponse(w, http.StatusOK, report)
}

// getAlertsHandler regenerates just the alert list
func (s *Service) getAlertsHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	patientID := vars["patientId"]

	opts := s.parseAlertOptions(r)
	alerts, err := s.Alerts(r.Context(), patientID, opts)
	if err != nil {
		s.writeErrorResponse(w, http.StatusInternalServerError, "Failed to compute alerts", err)
		return
	}

	s.writeJSONResponse(w, http.StatusOK, map[string]interface{}{"alerts": alerts})
}

// Helper methods

// parseAlertOptions parses dismissal state from query parameters. Each
// "dismissed" value is "<alertID>,<RFC3339 expiry>"; malformed entries
// are skipped.
func (s *Service) parseAlertOptions(r *http.Request) AlertOptions {
	opts := AlertOptions{Now: time.Now()}

	dismissed := r.URL.Query()["dismissed"]
	if len(dismissed) == 0 {
		return opts
	}

	opts.DismissedUntil = make(map[string]time.Time, len(dismissed))
	for _, entry := range dismissed {
		parts := strings.SplitN(entry, ",", 2)
		if len(parts) != 2 {
			continue
		}
		until, err := time.Parse(time.RFC3339, parts[1])
		if err != nil {
			continue
		}
		opts.DismissedUntil[parts[0]] = until
	}

	return opts
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
