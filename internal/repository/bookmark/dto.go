package bookmark

import (
	"time"

	"github.com/kailas-cloud/lodrag/internal/domain"
	dombm "github.com/kailas-cloud/lodrag/internal/domain/bookmark"
)

type bookmarkDTO struct {
	ID                string    `json:"bookmark_id"`
	Title             string    `json:"title"`
	Summary           string    `json:"summary"`
	Keywords          []string  `json:"keywords"`
	CategoryTags      []string  `json:"category_tags"`
	ImageDescriptions []string  `json:"image_descriptions"`
	Source            string    `json:"source"`
	BoardName         string    `json:"board_name"`
	Date              string    `json:"date"`
	Views             int       `json:"views"`
	URL               string    `json:"url"`
	ContentPath       string    `json:"content_path"`
	CreatedAt         time.Time `json:"created_at"`
}

func toDTO(b *dombm.Bookmark) bookmarkDTO {
	return bookmarkDTO{
		ID:                b.ID,
		Title:             b.Title,
		Summary:           b.Summary,
		Keywords:          nonNil(b.Keywords),
		CategoryTags:      nonNil(b.CategoryTags),
		ImageDescriptions: nonNil(b.ImageDescriptions),
		Source:            string(b.Source),
		BoardName:         b.BoardName,
		Date:              b.Date,
		Views:             b.Views,
		URL:               b.URL,
		ContentPath:       b.ContentPath,
		CreatedAt:         b.CreatedAt,
	}
}

func fromDTO(d *bookmarkDTO) *dombm.Bookmark {
	return &dombm.Bookmark{
		ID:                d.ID,
		Title:             d.Title,
		Summary:           d.Summary,
		Keywords:          d.Keywords,
		CategoryTags:      d.CategoryTags,
		ImageDescriptions: d.ImageDescriptions,
		Source:            domain.Source(d.Source),
		BoardName:         d.BoardName,
		Date:              d.Date,
		Views:             d.Views,
		URL:               d.URL,
		ContentPath:       d.ContentPath,
		CreatedAt:         d.CreatedAt,
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
