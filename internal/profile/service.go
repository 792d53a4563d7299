package profile

import (
	"context"

	"github.com/sahti/patient-portal/pkg/logger"
	"github.com/sahti/patient-portal/pkg/types"
)

// Store reads and writes patient profiles.
type Store interface {
	GetByUserID(ctx context.Context, userID string) (*types.PatientProfile, error)
	Update(ctx context.Context, userID string, updates map[string]interface{}) error
}

// Service exposes the patient's own profile for viewing and editing.
type Service struct {
	store  Store
	logger *logger.Logger
}

// NewService creates a new profile service
func NewService(store Store, log *logger.Logger) *Service {
	return &Service{
		store:  store,
		logger: log,
	}
}

// Get returns the patient's profile.
func (s *Service) Get(ctx context.Context, userID string) (*types.PatientProfile, error) {
	return s.store.GetByUserID(ctx, userID)
}

// Update applies a partial edit and returns the fresh profile. Field
// whitelisting happens in the store; unknown fields are rejected there.
func (s *Service) Update(ctx context.Context, userID string, updates map[string]interface{}) (*types.PatientProfile, error) {
	if len(updates) == 0 {
		return nil, types.NewValidationError(types.ErrCodeInvalidInput, "no fields to update", nil)
	}

	if err := s.store.Update(ctx, userID, updates); err != nil {
		s.logger.WithUserID(userID).WithError(err).Error("Failed to update profile")
		return nil, err
	}

	s.logger.WithFields(map[string]interface{}{
		"user_id": userID,
		"fields":  len(updates),
	}).Info("Profile updated")

	return s.store.GetByUserID(ctx, userID)
}
