package cleanup

import (
	"context"
	"math"
	"time"

	"github.com/sahti/patient-portal/pkg/config"
	"github.com/sahti/patient-portal/pkg/logger"
	"github.com/sahti/patient-portal/pkg/storage"
)

// ObjectStore is the storage surface the sweeper needs.
type ObjectStore interface {
	List(ctx context.Context) ([]storage.Object, error)
	Remove(ctx context.Context, names []string) error
	PublicURL(name string) string
	Usage(ctx context.Context) (totalBytes int64, fileCount int, err error)
}

// TestRecordDeleter removes medical test rows whose files were swept.
type TestRecordDeleter interface {
	DeleteByImageURLs(ctx context.Context, urls []string) (int64, error)
}

// Result summarizes one cleanup run.
type Result struct {
	DeletedCount   int     `json:"deleted_count"`
	FreedMB        float64 `json:"freed_mb"`
	RecordsDeleted int64   `json:"records_deleted"`
}

// Usage is the bucket's total footprint.
type Usage struct {
	UsedMB    float64 `json:"used_mb"`
	FileCount int     `json:"file_count"`
}

// Stats describes the bucket's retention backlog without deleting
// anything.
type Stats struct {
	TotalFiles    int     `json:"total_files"`
	TotalSizeMB   float64 `json:"total_size_mb"`
	OldFiles      int     `json:"old_files"`
	OldFilesMB    float64 `json:"old_files_mb"`
	WillBeDeleted bool    `json:"will_be_deleted"`
}

// Service sweeps stored test files past the retention age and removes
// the matching database rows. Runs are idempotent: a second pass over
// the same bucket finds nothing left to delete.
type Service struct {
	objects ObjectStore
	records TestRecordDeleter
	maxAge  time.Duration
	logger  *logger.Logger
}

// NewService creates a new cleanup service
func NewService(objects ObjectStore, records TestRecordDeleter, cfg config.RetentionConfig, log *logger.Logger) *Service {
	return &Service{
		objects: objects,
		records: records,
		maxAge:  time.Duration(cfg.MaxAgeDays) * 24 * time.Hour,
		logger:  log,
	}
}

// Run performs one retention sweep.
func (s *Service) Run(ctx context.Context) (*Result, error) {
	objects, err := s.objects.List(ctx)
	if err != nil {
		s.logger.WithError(err).Error("Failed to list storage objects")
		return nil, err
	}

	cutoff := time.Now().Add(-s.maxAge)

	var names []string
	var freedBytes int64
	for _, obj := range objects {
		if obj.CreatedAt.IsZero() || !obj.CreatedAt.Before(cutoff) {
			continue
		}
		names = append(names, obj.Name)
		freedBytes += obj.Metadata.Size
	}

	if len(names) == 0 {
		s.logger.Info("No files past retention age")
		return &Result{}, nil
	}

	if err := s.objects.Remove(ctx, names); err != nil {
		s.logger.WithError(err).Error("Failed to remove storage objects")
		return nil, err
	}

	urls := make([]string, 0, len(names))
	for _, name := range names {
		urls = append(urls, s.objects.PublicURL(name))
	}

	// Row deletion failures are logged but do not fail the sweep: the
	// files are already gone and the rows match nothing on the next run.
	recordsDeleted, err := s.records.DeleteByImageURLs(ctx, urls)
	if err != nil {
		s.logger.WithError(err).Error("Failed to delete medical test records")
		recordsDeleted = 0
	}

	result := &Result{
		DeletedCount:   len(names),
		FreedMB:        roundMB(freedBytes),
		RecordsDeleted: recordsDeleted,
	}

	s.logger.WithFields(map[string]interface{}{
		"deleted_count":   result.DeletedCount,
		"freed_mb":        result.FreedMB,
		"records_deleted": result.RecordsDeleted,
	}).Info("Retention sweep completed")

	return result, nil
}

// GetStats reports the current retention backlog.
func (s *Service) GetStats(ctx context.Context) (*Stats, error) {
	objects, err := s.objects.List(ctx)
	if err != nil {
		return nil, err
	}

	cutoff := time.Now().Add(-s.maxAge)
	stats := &Stats{}

	var totalBytes, oldBytes int64
	for _, obj := range objects {
		stats.TotalFiles++
		totalBytes += obj.Metadata.Size

		if !obj.CreatedAt.IsZero() && obj.CreatedAt.Before(cutoff) {
			stats.OldFiles++
			oldBytes += obj.Metadata.Size
		}
	}

	stats.TotalSizeMB = roundMB(totalBytes)
	stats.OldFilesMB = roundMB(oldBytes)
	stats.WillBeDeleted = stats.OldFiles > 0

	return stats, nil
}

// GetUsage reports the bucket's total footprint.
func (s *Service) GetUsage(ctx context.Context) (*Usage, error) {
	totalBytes, fileCount, err := s.objects.Usage(ctx)
	if err != nil {
		return nil, err
	}

	return &Usage{
		UsedMB:    roundMB(totalBytes),
		FileCount: fileCount,
	}, nil
}

func roundMB(bytes int64) float64 {
	return math.Round(float64(bytes)/(1024*1024)*100) / 100
}
