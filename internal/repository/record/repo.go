package record

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/kailas-cloud/lodrag/internal/domain"
	domrec "github.com/kailas-cloud/lodrag/internal/domain/record"
	"github.com/kailas-cloud/lodrag/internal/repository/jsonfile"
)

// Repo persists raw records as <dataDir>/<source>/<id>.json.
type Repo struct {
	dataDir string
	logger  *zap.Logger
}

// New creates a file-backed record repository rooted at dataDir.
func New(dataDir string, logger *zap.Logger) *Repo {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Repo{dataDir: dataDir, logger: logger}
}

// Path returns the file path of a record.
func (r *Repo) Path(src domain.Source, id string) string {
	return jsonfile.Path(filepath.Join(r.dataDir, string(src)), id)
}

// Exists reports whether the record file is present.
func (r *Repo) Exists(_ context.Context, src domain.Source, id string) (bool, error) {
	ok, err := jsonfile.Exists(r.Path(src, id))
	if err != nil {
		return false, fmt.Errorf("record exists %s/%s: %w", src, id, err)
	}
	return ok, nil
}

// Create writes a new record. An existing file is left untouched and
// domain.ErrAlreadyExists is returned.
func (r *Repo) Create(_ context.Context, rec *domrec.Record) error {
	if rec.ID == "" {
		return fmt.Errorf("record id is required")
	}
	if _, err := domain.ParseSource(string(rec.Source)); err != nil {
		return err
	}

	dto := toDTO(rec)
	if err := jsonfile.Create(r.Path(rec.Source, rec.ID), &dto); err != nil {
		if errors.Is(err, jsonfile.ErrExists) {
			return fmt.Errorf("record %s/%s: %w", rec.Source, rec.ID, domain.ErrAlreadyExists)
		}
		return fmt.Errorf("create record %s/%s: %w", rec.Source, rec.ID, err)
	}
	return nil
}

// Get loads a record by source and id.
func (r *Repo) Get(_ context.Context, src domain.Source, id string) (*domrec.Record, error) {
	return r.load(r.Path(src, id))
}

// GetByPath loads a record from a path previously returned by Path.
func (r *Repo) GetByPath(_ context.Context, path string) (*domrec.Record, error) {
	return r.load(path)
}

// MarkBookmarked sets the bookmark flag, rewriting the file atomically.
// Marking an already flagged record is a no-op.
func (r *Repo) MarkBookmarked(_ context.Context, src domain.Source, id string) error {
	path := r.Path(src, id)
	var dto recordDTO
	if err := jsonfile.Read(path, &dto); err != nil {
		if errors.Is(err, jsonfile.ErrNotFound) {
			return fmt.Errorf("record %s/%s: %w", src, id, domain.ErrRecordNotFound)
		}
		return err
	}
	if dto.BookmarkCreated {
		return nil
	}
	dto.BookmarkCreated = true
	if err := jsonfile.Replace(path, &dto); err != nil {
		return fmt.Errorf("mark bookmarked %s/%s: %w", src, id, err)
	}
	return nil
}

// ListPending returns records of every source that have neither a bookmark
// nor an exclusion, ordered by source then file name. Unreadable files are
// logged and skipped.
func (r *Repo) ListPending(ctx context.Context) ([]*domrec.Record, error) {
	var out []*domrec.Record
	for _, src := range domain.Sources() {
		paths, err := jsonfile.List(filepath.Join(r.dataDir, string(src)))
		if err != nil {
			return nil, err
		}
		for _, p := range paths {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			rec, err := r.load(p)
			if err != nil {
				r.logger.Warn("Skipping unreadable record", zap.String("path", p), zap.Error(err))
				continue
			}
			if rec.Pending() {
				out = append(out, rec)
			}
		}
	}
	return out, nil
}

// Count returns the number of record files for a source.
func (r *Repo) Count(_ context.Context, src domain.Source) (int, error) {
	paths, err := jsonfile.List(filepath.Join(r.dataDir, string(src)))
	if err != nil {
		return 0, err
	}
	return len(paths), nil
}

func (r *Repo) load(path string) (*domrec.Record, error) {
	var dto recordDTO
	if err := jsonfile.Read(path, &dto); err != nil {
		if errors.Is(err, jsonfile.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", path, domain.ErrRecordNotFound)
		}
		return nil, err
	}
	return fromDTO(&dto), nil
}
