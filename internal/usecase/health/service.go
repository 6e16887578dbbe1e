// Package health aggregates component health checks.
package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
	// Unhealthy indicates total failure.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	db          DBPinger
	recognition RecognitionChecker
}

// New creates a Service. recognition can be nil.
func New(db DBPinger, recognition RecognitionChecker) *Service {
	return &Service{db: db, recognition: recognition}
}

// Check runs health checks against all components.
// The database is load-bearing: its failure alone marks the service
// unhealthy. A failing recognition service only degrades the report.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)

	dbOK := true
	if err := s.db.Ping(ctx); err != nil {
		checks["database"] = CheckError
		dbOK = false
	} else {
		checks["database"] = CheckOK
	}

	recognitionOK := true
	if s.recognition != nil {
		if err := s.recognition.HealthCheck(ctx); err != nil {
			checks["recognition"] = CheckError
			recognitionOK = false
		} else {
			checks["recognition"] = CheckOK
		}
	}

	status := Healthy
	switch {
	case !dbOK:
		status = Unhealthy
	case !recognitionOK:
		status = Degraded
	}

	return Report{Status: status, Checks: checks}
}
