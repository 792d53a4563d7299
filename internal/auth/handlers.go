package auth

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/sahti/patient-portal/pkg/types"
)

// SetupRoutes configures the password-reset HTTP routes. These are the
// only unauthenticated routes besides the health check.
func (s *ResetService) SetupRoutes(router *mux.Router) {
	api := router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/auth/password-reset/request", s.requestResetHandler).Methods("POST")
	api.HandleFunc("/auth/password-reset/verify", s.verifyCodeHandler).Methods("POST")
	api.HandleFunc("/auth/password-reset/confirm", s.confirmResetHandler).Methods("POST")

	s.logger.Info("Auth service routes configured")
}

type resetRequestPayload struct {
	Email string `json:"email"`
}

type verifyCodePayload struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

type confirmResetPayload struct {
	Email       string `json:"email"`
	Code        string `json:"code"`
	NewPassword string `json:"new_password"`
}

// requestResetHandler issues and mails a verification code
func (s *ResetService) requestResetHandler(w http.ResponseWriter, r *http.Request) {
	var payload resetRequestPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.Email == "" {
		s.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if err := s.RequestReset(r.Context(), payload.Email); err != nil {
		var appErr *types.AppError
		if errors.As(err, &appErr) && appErr.Type == types.ErrorTypeRateLimit {
			s.writeErrorResponse(w, http.StatusTooManyRequests, appErr.Message, nil)
			return
		}
		s.writeErrorResponse(w, http.StatusInternalServerError, "Failed to process reset request", err)
		return
	}

	// The response never reveals whether the address exists.
	s.writeJSONResponse(w, http.StatusOK, map[string]string{
		"message": "إذا كان البريد الإلكتروني مسجلاً، فسيصلك رمز التحقق",
	})
}

// verifyCodeHandler checks a code without consuming it
func (s *ResetService) verifyCodeHandler(w http.ResponseWriter, r *http.Request) {
	var payload verifyCodePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.Email == "" || payload.Code == "" {
		s.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if !s.CheckCode(r.Context(), payload.Email, payload.Code) {
		s.writeErrorResponse(w, http.StatusBadRequest, "رمز التحقق غير صحيح أو منتهي الصلاحية", nil)
		return
	}

	s.writeJSONResponse(w, http.StatusOK, map[string]bool{"valid": true})
}

// confirmResetHandler verifies the code and updates the password
func (s *ResetService) confirmResetHandler(w http.ResponseWriter, r *http.Request) {
	var payload confirmResetPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if payload.Email == "" || payload.Code == "" || payload.NewPassword == "" {
		s.writeErrorResponse(w, http.StatusBadRequest, "البريد الإلكتروني والكود وكلمة المرور الجديدة مطلوبة", nil)
		return
	}

	token, err := s.ConfirmReset(r.Context(), payload.Email, payload.Code, payload.NewPassword)
	if err != nil {
		var appErr *types.AppError
		if errors.As(err, &appErr) && appErr.Type == types.ErrorTypeValidation {
			s.writeErrorResponse(w, http.StatusBadRequest, appErr.Message, nil)
			return
		}
		s.writeErrorResponse(w, http.StatusInternalServerError, "Failed to update password", err)
		return
	}

	response := map[string]interface{}{
		"success": true,
		"message": "تم تحديث كلمة المرور بنجاح! يمكنك الآن تسجيل الدخول بكلمة المرور الجديدة.",
	}
	if token != "" {
		response["token"] = token
	}
	s.writeJSONResponse(w, http.StatusOK, response)
}

// writeJSONResponse writes a JSON response
func (s *ResetService) writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.WithError(err).Error("Failed to encode JSON response")
	}
}

// writeErrorResponse writes an error response
func (s *ResetService) writeErrorResponse(w http.ResponseWriter, statusCode int, message string, err error) {
	if err != nil {
		s.logger.WithError(err).Error(message)
	}

	response := map[string]interface{}{
		"error":  message,
		"status": statusCode,
	}

	s.writeJSONResponse(w, statusCode, response)
}
