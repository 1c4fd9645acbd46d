package health

import (
	"context"

	"github.com/kailas-cloud/lodrag/internal/usecase/index"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "healthy"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Report aggregates health check results and the current index size.
type Report struct {
	Status Status
	Checks map[string]CheckResult
	Index  index.Stats
}

// Service coordinates health checks.
type Service struct {
	db         DBPinger
	embedding  ProviderChecker
	completion ProviderChecker
	stats      IndexStats
}

// New creates a Service. The provider checkers and stats can be nil.
func New(db DBPinger, embedding, completion ProviderChecker, stats IndexStats) *Service {
	return &Service{db: db, embedding: embedding, completion: completion, stats: stats}
}

// Check runs health checks against all components.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)
	checks["vector_store"] = result(s.db.Ping(ctx))

	if s.embedding != nil {
		checks["embedding"] = result(s.embedding.HealthCheck(ctx))
	}
	if s.completion != nil {
		checks["completion"] = result(s.completion.HealthCheck(ctx))
	}

	status := Healthy
	for _, v := range checks {
		if v == CheckError {
			status = Degraded
			break
		}
	}

	r := Report{Status: status, Checks: checks, Index: index.Stats{PerSource: map[string]int{}}}
	if s.stats != nil && checks["vector_store"] == CheckOK {
		r.Index = s.stats.Stats(ctx)
	}
	return r
}

func result(err error) CheckResult {
	if err != nil {
		return CheckError
	}
	return CheckOK
}
