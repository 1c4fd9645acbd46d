package bookmark

import (
	"context"
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/kailas-cloud/lodrag/internal/domain"
	dombm "github.com/kailas-cloud/lodrag/internal/domain/bookmark"
	"github.com/kailas-cloud/lodrag/internal/repository/jsonfile"
)

// Repo persists bookmarks as <dir>/<bookmark_id>.json.
type Repo struct {
	dir    string
	logger *zap.Logger
}

// New creates a file-backed bookmark repository.
func New(dir string, logger *zap.Logger) *Repo {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Repo{dir: dir, logger: logger}
}

// Exists reports whether a bookmark file is present.
func (r *Repo) Exists(_ context.Context, id string) (bool, error) {
	ok, err := jsonfile.Exists(jsonfile.Path(r.dir, id))
	if err != nil {
		return false, fmt.Errorf("bookmark exists %s: %w", id, err)
	}
	return ok, nil
}

// Create writes a bookmark exclusively.
func (r *Repo) Create(_ context.Context, b *dombm.Bookmark) error {
	if b.ID == "" {
		return fmt.Errorf("bookmark id is required")
	}
	dto := toDTO(b)
	if err := jsonfile.Create(jsonfile.Path(r.dir, b.ID), &dto); err != nil {
		if errors.Is(err, jsonfile.ErrExists) {
			return fmt.Errorf("bookmark %s: %w", b.ID, domain.ErrAlreadyExists)
		}
		return fmt.Errorf("create bookmark %s: %w", b.ID, err)
	}
	return nil
}

// Get loads a bookmark by id.
func (r *Repo) Get(_ context.Context, id string) (*dombm.Bookmark, error) {
	return r.load(jsonfile.Path(r.dir, id))
}

// List returns every readable bookmark ordered by id.
func (r *Repo) List(ctx context.Context) ([]*dombm.Bookmark, error) {
	paths, err := jsonfile.List(r.dir)
	if err != nil {
		return nil, err
	}
	out := make([]*dombm.Bookmark, 0, len(paths))
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		b, err := r.load(p)
		if err != nil {
			r.logger.Warn("Skipping unreadable bookmark", zap.String("path", p), zap.Error(err))
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

// Count returns the number of bookmark files.
func (r *Repo) Count(_ context.Context) (int, error) {
	paths, err := jsonfile.List(r.dir)
	if err != nil {
		return 0, err
	}
	return len(paths), nil
}

// Delete removes a bookmark file.
func (r *Repo) Delete(_ context.Context, id string) error {
	if err := os.Remove(jsonfile.Path(r.dir, id)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("bookmark %s: %w", id, domain.ErrBookmarkNotFound)
		}
		return fmt.Errorf("delete bookmark %s: %w", id, err)
	}
	return nil
}

func (r *Repo) load(path string) (*dombm.Bookmark, error) {
	var dto bookmarkDTO
	if err := jsonfile.Read(path, &dto); err != nil {
		if errors.Is(err, jsonfile.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", path, domain.ErrBookmarkNotFound)
		}
		return nil, err
	}
	return fromDTO(&dto), nil
}
