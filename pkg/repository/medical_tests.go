package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/sahti/patient-portal/pkg/logger"
	"github.com/sahti/patient-portal/pkg/types"
)

// MedicalTestRepository reads and writes medical test records
type MedicalTestRepository struct {
	db     *sql.DB
	logger *logger.Logger
}

// NewMedicalTestRepository creates a new medical test repository
func NewMedicalTestRepository(db *sql.DB, log *logger.Logger) *MedicalTestRepository {
	return &MedicalTestRepository{
		db:     db,
		logger: log,
	}
}

// Create inserts a new medical test record
func (r *MedicalTestRepository) Create(ctx context.Context, test *types.MedicalTest) error {
	query := `
		INSERT INTO medical_tests (id, user_id, test_type, image_url, analysis_result, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.db.ExecContext(ctx, query,
		test.ID,
		test.UserID,
		test.TestType,
		test.ImageURL,
		test.AnalysisResult,
		test.CreatedAt,
	)
	if err != nil {
		r.logger.WithError(err).Error("Failed to create medical test")
		return fmt.Errorf("failed to create medical test: %w", err)
	}

	return nil
}

// ListByUserID retrieves all tests for a user, newest first
func (r *MedicalTestRepository) ListByUserID(ctx context.Context, userID string) ([]*types.MedicalTest, error) {
	query := `
		SELECT id, user_id, test_type, image_url, analysis_result, created_at
		FROM medical_tests
		WHERE user_id = $1
		ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		r.logger.WithError(err).Error("Failed to list medical tests")
		return nil, fmt.Errorf("failed to list medical tests: %w", err)
	}
	defer rows.Close()

	var tests []*types.MedicalTest
	for rows.Next() {
		test := &types.MedicalTest{}
		if err := rows.Scan(
			&test.ID,
			&test.UserID,
			&test.TestType,
			&test.ImageURL,
			&test.AnalysisResult,
			&test.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan medical test: %w", err)
		}
		tests = append(tests, test)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate medical tests: %w", err)
	}

	return tests, nil
}

// Delete removes one test owned by the user
func (r *MedicalTestRepository) Delete(ctx context.Context, userID, testID string) error {
	query := `DELETE FROM medical_tests WHERE id = $1 AND user_id = $2`

	result, err := r.db.ExecContext(ctx, query, testID, userID)
	if err != nil {
		r.logger.WithError(err).Error("Failed to delete medical test")
		return fmt.Errorf("failed to delete medical test: %w", err)
	}

	rows, err := result.RowsAffected()
	if err == nil && rows == 0 {
		return types.NewNotFoundError(types.ErrCodeNotFound, fmt.Sprintf("medical test %s not found", testID))
	}

	return nil
}

// DeleteByImageURLs removes all tests whose files were swept by the
// retention cleanup
func (r *MedicalTestRepository) DeleteByImageURLs(ctx context.Context, urls []string) (int64, error) {
	if len(urls) == 0 {
		return 0, nil
	}

	query := `DELETE FROM medical_tests WHERE image_url = ANY($1)`

	result, err := r.db.ExecContext(ctx, query, pq.Array(urls))
	if err != nil {
		r.logger.WithError(err).Error("Failed to delete medical tests by URL")
		return 0, fmt.Errorf("failed to delete medical tests: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return rows, nil
}
