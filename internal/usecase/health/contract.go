package health

import (
	"context"

	"github.com/kailas-cloud/lodrag/internal/usecase/index"
)

// DBPinger checks vector store availability.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// ProviderChecker checks an embedding or completion provider.
type ProviderChecker interface {
	HealthCheck(ctx context.Context) error
}

// IndexStats reports point counts of the vector collection.
type IndexStats interface {
	Stats(ctx context.Context) index.Stats
}
