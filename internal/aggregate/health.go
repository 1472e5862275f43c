package aggregate

import (
	"context"
	"time"
)

// Health statuses.
const (
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
	StatusDegraded  = "degraded"
	StatusError     = "error"
)

// Check probes one dependency.
type Check struct {
	Name string
	Run  func(ctx context.Context) (any, error)
}

// CheckResult is the outcome of one probe.
type CheckResult struct {
	Service  string `json:"service"`
	Status   string `json:"status"`
	Response any    `json:"response,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Report summarizes all probes.
type Report struct {
	OverallStatus string                 `json:"overall_status"`
	Services      map[string]CheckResult `json:"services"`
	Error         string                 `json:"error,omitempty"`
	CheckedAt     time.Time              `json:"checked_at"`
}

// RunDegraded runs all checks concurrently. Individual failures are recorded
// per check and never fail the run; the overall status is healthy only when
// every check passed.
func RunDegraded(ctx context.Context, checks []Check, opts ...Option) Report {
	tasks := make([]Task[CheckResult], len(checks))
	for i, c := range checks {
		tasks[i] = func(ctx context.Context) (CheckResult, error) {
			resp, err := c.Run(ctx)
			if err != nil {
				return CheckResult{Service: c.Name, Status: StatusUnhealthy, Error: err.Error()}, nil
			}
			return CheckResult{Service: c.Name, Status: StatusHealthy, Response: resp}, nil
		}
	}

	report := Report{
		OverallStatus: StatusHealthy,
		Services:      make(map[string]CheckResult, len(checks)),
		CheckedAt:     time.Now().UTC(),
	}

	results, err := Run(ctx, tasks, opts...)
	if err != nil {
		report.OverallStatus = StatusError
		report.Error = err.Error()
		return report
	}

	for _, r := range results {
		report.Services[r.Service] = r
		if r.Status != StatusHealthy {
			report.OverallStatus = StatusDegraded
		}
	}

	return report
}
