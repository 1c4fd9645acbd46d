package crawl

import (
	"context"

	"github.com/kailas-cloud/lodrag/internal/domain"
	domrec "github.com/kailas-cloud/lodrag/internal/domain/record"
)

// Source is a per-source crawling strategy. Open acquires whatever the source
// needs for one run (HTTP client, authenticated browser) and Close releases it.
type Source interface {
	Name() domain.Source
	Open(ctx context.Context) error
	Boards() []domrec.Board
	// ListCandidates returns the posts on one listing page, newest first.
	// An empty result ends pagination for the board.
	ListCandidates(ctx context.Context, board domrec.Board, page int) ([]domrec.Candidate, error)
	// FetchDetail extracts a post. (nil, nil) means nothing usable was found.
	FetchDetail(ctx context.Context, c domrec.Candidate) (*domrec.Record, error)
	Close() error
}

// RecordStore is the raw record persistence the crawler needs.
type RecordStore interface {
	Exists(ctx context.Context, src domain.Source, id string) (bool, error)
	Create(ctx context.Context, rec *domrec.Record) error
}
