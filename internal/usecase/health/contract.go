package health

import "context"

// DBPinger checks database connectivity.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// RecognitionChecker checks recognition service availability.
type RecognitionChecker interface {
	HealthCheck(ctx context.Context) error
}
