package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/sahti/patient-portal/pkg/logger"
	"github.com/sahti/patient-portal/pkg/types"
)

// ProfileRepository reads and writes patient profiles
type ProfileRepository struct {
	db     *sql.DB
	logger *logger.Logger
}

// NewProfileRepository creates a new profile repository
func NewProfileRepository(db *sql.DB, log *logger.Logger) *ProfileRepository {
	return &ProfileRepository{
		db:     db,
		logger: log,
	}
}

// GetByUserID retrieves a profile by user ID
func (r *ProfileRepository) GetByUserID(ctx context.Context, userID string) (*types.PatientProfile, error) {
	query := `
		SELECT id, email, full_name, age, gender, is_smoker, chronic_diseases,
			   current_medications, previous_medical_conditions, has_drug_allergies,
			   created_at, updated_at
		FROM profiles
		WHERE id = $1`

	profile := &types.PatientProfile{}
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&profile.ID,
		&profile.Email,
		&profile.FullName,
		&profile.Age,
		&profile.Gender,
		&profile.IsSmoker,
		&profile.ChronicDiseases,
		&profile.CurrentMedications,
		&profile.PreviousConditions,
		&profile.HasDrugAllergies,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, types.NewNotFoundError(types.ErrCodeNotFound, fmt.Sprintf("profile %s not found", userID))
	}
	if err != nil {
		r.logger.WithError(err).Error("Failed to get profile")
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	return profile, nil
}

// GetByEmail retrieves a profile by email address
func (r *ProfileRepository) GetByEmail(ctx context.Context, email string) (*types.PatientProfile, error) {
	query := `
		SELECT id, email, full_name, age, gender, is_smoker, chronic_diseases,
			   current_medications, previous_medical_conditions, has_drug_allergies,
			   created_at, updated_at
		FROM profiles
		WHERE LOWER(email) = LOWER($1)`

	profile := &types.PatientProfile{}
	err := r.db.QueryRowContext(ctx, query, email).Scan(
		&profile.ID,
		&profile.Email,
		&profile.FullName,
		&profile.Age,
		&profile.Gender,
		&profile.IsSmoker,
		&profile.ChronicDiseases,
		&profile.CurrentMedications,
		&profile.PreviousConditions,
		&profile.HasDrugAllergies,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, types.NewNotFoundError(types.ErrCodeNotFound, "البريد الإلكتروني غير مسجل في النظام")
	}
	if err != nil {
		r.logger.WithError(err).Error("Failed to get profile by email")
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	return profile, nil
}

// Update applies partial profile updates
func (r *ProfileRepository) Update(ctx context.Context, userID string, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}

	allowed := map[string]bool{
		"full_name":                   true,
		"age":                         true,
		"gender":                      true,
		"is_smoker":                   true,
		"chronic_diseases":            true,
		"current_medications":         true,
		"previous_medical_conditions": true,
		"has_drug_allergies":          true,
	}

	setClauses := make([]string, 0, len(updates)+1)
	args := make([]interface{}, 0, len(updates)+1)
	i := 1
	for column, value := range updates {
		if !allowed[column] {
			return types.NewValidationError(types.ErrCodeInvalidInput, fmt.Sprintf("field %s cannot be updated", column), nil)
		}
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", column, i))
		args = append(args, value)
		i++
	}
	setClauses = append(setClauses, "updated_at = NOW()")
	args = append(args, userID)

	query := fmt.Sprintf("UPDATE profiles SET %s WHERE id = $%d", strings.Join(setClauses, ", "), i)

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithError(err).Error("Failed to update profile")
		return fmt.Errorf("failed to update profile: %w", err)
	}

	rows, err := result.RowsAffected()
	if err == nil && rows == 0 {
		return types.NewNotFoundError(types.ErrCodeNotFound, fmt.Sprintf("profile %s not found", userID))
	}

	return nil
}
