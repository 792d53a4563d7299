package insights

import (
	"context"
	"fmt"

	"github.com/sahti/patient-portal/internal/analysis"
	"github.com/sahti/patient-portal/internal/extraction"
	"github.com/sahti/patient-portal/pkg/logger"
	"github.com/sahti/patient-portal/pkg/types"
)

// ProfileStore provides read access to patient profiles.
type ProfileStore interface {
	GetByUserID(ctx context.Context, userID string) (*types.PatientProfile, error)
}

// TestStore provides read access to medical test records, newest first.
type TestStore interface {
	ListByUserID(ctx context.Context, userID string) ([]*types.MedicalTest, error)
}

// PipelineRecorder counts pipeline runs by outcome.
type PipelineRecorder interface {
	RecordPipelineRun(status string)
}

// Service runs the extraction, classification, scoring and alerting
// pipelines over a fresh snapshot of the patient's data. Every call
// recomputes from scratch; nothing is cached between invocations.
type Service struct {
	profiles ProfileStore
	tests    TestStore
	metrics  PipelineRecorder
	logger   *logger.Logger
}

// NewService creates a new insights service
func NewService(profiles ProfileStore, tests TestStore, metrics PipelineRecorder, log *logger.Logger) *Service {
	return &Service{
		profiles: profiles,
		tests:    tests,
		metrics:  metrics,
		logger:   log,
	}
}

func (s *Service) recordRun(status string) {
	if s.metrics != nil {
		s.metrics.RecordPipelineRun(status)
	}
}

// Dashboard computes the derived dashboard payload for one patient.
// Upstream fetch failures are hard errors; the pipeline is never run
// over partial inputs.
func (s *Service) Dashboard(ctx context.Context, userID string, opts AlertOptions) (*types.DashboardData, error) {
	profile, tests, err := s.fetchSnapshot(ctx, userID)
	if err != nil {
		s.recordRun("error")
		return nil, err
	}

	metrics := s.collectMetrics(profile, tests)
	score := ComputeScore(profile, metrics)
	alerts := GenerateAlerts(profile, metrics, tests, opts)

	s.logger.WithFields(map[string]interface{}{
		"user_id":      userID,
		"test_count":   len(tests),
		"metric_count": len(metrics),
		"alert_count":  len(alerts),
		"health_score": score,
	}).Info("Dashboard computed")
	s.recordRun("success")

	if alerts == nil {
		alerts = []types.HealthAlert{}
	}

	return &types.DashboardData{
		HealthMetrics: metrics,
		HealthScore:   score,
		Alerts:        alerts,
	}, nil
}

// Alerts regenerates just the alert list for one patient.
func (s *Service) Alerts(ctx context.Context, userID string, opts AlertOptions) ([]types.HealthAlert, error) {
	profile, tests, err := s.fetchSnapshot(ctx, userID)
	if err != nil {
		return nil, err
	}

	metrics := s.collectMetrics(profile, tests)
	alerts := GenerateAlerts(profile, metrics, tests, opts)
	if alerts == nil {
		alerts = []types.HealthAlert{}
	}
	return alerts, nil
}

// Report builds the textual health report for one patient from the same
// snapshot the dashboard uses.
func (s *Service) Report(ctx context.Context, userID string) (*types.HealthReport, error) {
	profile, tests, err := s.fetchSnapshot(ctx, userID)
	if err != nil {
		return nil, err
	}

	metrics := s.collectMetrics(profile, tests)
	report := analysis.BuildReport(profile, metrics, tests)

	s.logger.WithUserID(userID).Info("Health report generated")
	return report, nil
}

func (s *Service) fetchSnapshot(ctx context.Context, userID string) (*types.PatientProfile, []*types.MedicalTest, error) {
	profile, err := s.profiles.GetByUserID(ctx, userID)
	if err != nil {
		s.logger.WithUserID(userID).WithError(err).Error("Failed to fetch patient profile")
		return nil, nil, fmt.Errorf("profile fetch failed: %w", err)
	}

	tests, err := s.tests.ListByUserID(ctx, userID)
	if err != nil {
		s.logger.WithUserID(userID).WithError(err).Error("Failed to fetch medical tests")
		return nil, nil, fmt.Errorf("medical test fetch failed: %w", err)
	}

	return profile, tests, nil
}

// collectMetrics runs extract and classify over every test report and
// aggregates the results in history order.
func (s *Service) collectMetrics(profile *types.PatientProfile, tests []*types.MedicalTest) []types.HealthMetric {
	metrics := []types.HealthMetric{}

	for _, test := range tests {
		if test.AnalysisResult == "" {
			continue
		}
		extracted := extraction.Extract(test.AnalysisResult)
		metrics = append(metrics, Classify(extracted, profile, test.CreatedAt)...)
	}

	return metrics
}
