package monitoring

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// HealthStatus represents the health status of a component
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

// HealthCheck represents a single health check result
type HealthCheck struct {
	Name        string       `json:"name"`
	Status      HealthStatus `json:"status"`
	Message     string       `json:"message,omitempty"`
	LastChecked time.Time    `json:"last_checked"`
}

// HealthReport represents the overall health report
type HealthReport struct {
	Status    HealthStatus  `json:"status"`
	Timestamp time.Time     `json:"timestamp"`
	Service   string        `json:"service"`
	Checks    []HealthCheck `json:"checks"`
}

// CheckFunc probes one dependency.
type CheckFunc func(ctx context.Context) error

// HealthManager runs registered dependency checks
type HealthManager struct {
	serviceName string
	checkers    map[string]CheckFunc
	mu          sync.RWMutex
	timeout     time.Duration
}

// NewHealthManager creates a new health manager
func NewHealthManager(serviceName string) *HealthManager {
	return &HealthManager{
		serviceName: serviceName,
		checkers:    make(map[string]CheckFunc),
		timeout:     5 * time.Second,
	}
}

// RegisterChecker registers a dependency check
func (hm *HealthManager) RegisterChecker(name string, check CheckFunc) {
	hm.mu.Lock()
	defer hm.mu.Unlock()
	hm.checkers[name] = check
}

// CheckHealth runs all checks and aggregates the result
func (hm *HealthManager) CheckHealth(ctx context.Context) *HealthReport {
	hm.mu.RLock()
	checkers := make(map[string]CheckFunc, len(hm.checkers))
	for name, check := range hm.checkers {
		checkers[name] = check
	}
	timeout := hm.timeout
	hm.mu.RUnlock()

	report := &HealthReport{
		Status:    HealthStatusHealthy,
		Timestamp: time.Now(),
		Service:   hm.serviceName,
	}

	for name, check := range checkers {
		checkCtx, cancel := context.WithTimeout(ctx, timeout)
		err := check(checkCtx)
		cancel()

		result := HealthCheck{
			Name:        name,
			Status:      HealthStatusHealthy,
			LastChecked: time.Now(),
		}
		if err != nil {
			result.Status = HealthStatusUnhealthy
			result.Message = err.Error()
			report.Status = HealthStatusUnhealthy
		}
		report.Checks = append(report.Checks, result)
	}

	return report
}

// Handler returns an HTTP handler serving the health report
func (hm *HealthManager) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		report := hm.CheckHealth(r.Context())

		statusCode := http.StatusOK
		if report.Status != HealthStatusHealthy {
			statusCode = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode)
		_ = json.NewEncoder(w).Encode(report)
	})
}
