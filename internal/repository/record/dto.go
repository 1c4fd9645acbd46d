package record

import (
	"time"

	"github.com/kailas-cloud/lodrag/internal/domain"
	domrec "github.com/kailas-cloud/lodrag/internal/domain/record"
)

type imageDTO struct {
	Filename    string `json:"filename"`
	OriginalURL string `json:"original_url"`
	LocalPath   string `json:"local_path"`
	SizeBytes   int64  `json:"size_bytes"`
}

type recordDTO struct {
	ID              string     `json:"id"`
	Source          string     `json:"source"`
	Title           string     `json:"title"`
	Author          string     `json:"author"`
	Date            string     `json:"date"`
	Views           int        `json:"views"`
	Content         string     `json:"content"`
	Images          []imageDTO `json:"images"`
	URL             string     `json:"url"`
	BoardName       string     `json:"board_name"`
	MenuID          string     `json:"menu_id,omitempty"`
	CrawledAt       time.Time  `json:"crawled_at"`
	BookmarkCreated bool       `json:"bookmark_created"`
	Excluded        bool       `json:"excluded"`
	ExcludedAt      *time.Time `json:"excluded_at,omitempty"`
}

func toDTO(r *domrec.Record) recordDTO {
	images := make([]imageDTO, 0, len(r.Images))
	for _, img := range r.Images {
		images = append(images, imageDTO(img))
	}
	return recordDTO{
		ID:              r.ID,
		Source:          string(r.Source),
		Title:           r.Title,
		Author:          r.Author,
		Date:            r.Date,
		Views:           r.Views,
		Content:         r.Content,
		Images:          images,
		URL:             r.URL,
		BoardName:       r.BoardName,
		MenuID:          r.MenuID,
		CrawledAt:       r.CrawledAt,
		BookmarkCreated: r.BookmarkCreated,
		Excluded:        r.Excluded,
		ExcludedAt:      r.ExcludedAt,
	}
}

func fromDTO(d *recordDTO) *domrec.Record {
	images := make([]domrec.Image, 0, len(d.Images))
	for _, img := range d.Images {
		images = append(images, domrec.Image(img))
	}
	return &domrec.Record{
		ID:              d.ID,
		Source:          domain.Source(d.Source),
		Title:           d.Title,
		Author:          d.Author,
		Date:            d.Date,
		Views:           d.Views,
		Content:         d.Content,
		Images:          images,
		URL:             d.URL,
		BoardName:       d.BoardName,
		MenuID:          d.MenuID,
		CrawledAt:       d.CrawledAt,
		BookmarkCreated: d.BookmarkCreated,
		Excluded:        d.Excluded,
		ExcludedAt:      d.ExcludedAt,
	}
}
