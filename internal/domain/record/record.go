package record

import (
	"strings"
	"time"

	"github.com/kailas-cloud/lodrag/internal/domain"
)

// Image is a downloaded image belonging to a record.
type Image struct {
	Filename    string
	OriginalURL string
	LocalPath   string
	SizeBytes   int64
}

// Record is one crawled post as persisted on disk.
// (Source, ID) is unique; the file is never overwritten by a crawl.
type Record struct {
	ID              string
	Source          domain.Source
	Title           string
	Author          string
	Date            string // as shown by the source, not normalized
	Views           int
	Content         string
	Images          []Image
	URL             string
	BoardName       string
	MenuID          string
	CrawledAt       time.Time
	BookmarkCreated bool
	Excluded        bool
	ExcludedAt      *time.Time
}

// TrimmedContent returns the content without surrounding whitespace.
func (r *Record) TrimmedContent() string {
	return strings.TrimSpace(r.Content)
}

// Pending reports whether the record still needs a bookmark.
func (r *Record) Pending() bool {
	return !r.BookmarkCreated && !r.Excluded
}

// ImagePaths returns local paths of downloaded images in their original order.
func (r *Record) ImagePaths() []string {
	paths := make([]string, 0, len(r.Images))
	for _, img := range r.Images {
		if img.LocalPath != "" {
			paths = append(paths, img.LocalPath)
		}
	}
	return paths
}

// Board is one listing a source crawls. ID is empty for single-board sources.
type Board struct {
	ID   string
	Name string
}

// Candidate is a post discovered on a listing page, not yet fetched.
type Candidate struct {
	ExternalID string
	Title      string
	URL        string
	Board      Board
}
