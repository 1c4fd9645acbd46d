package bookmark

import (
	"time"

	"github.com/google/uuid"

	"github.com/kailas-cloud/lodrag/internal/domain"
)

// CategoryOther is the fallback tag for anything the model returns outside the fixed set.
const CategoryOther = "기타"

var categories = []string{"직업정보", "스킬", "아이템", "퀘스트", "던전", "시스템", "이벤트", CategoryOther}

// Categories returns the fixed category tag set in prompt order.
func Categories() []string {
	out := make([]string, len(categories))
	copy(out, categories)
	return out
}

// NormalizeCategories maps unknown tags to CategoryOther and drops duplicates.
func NormalizeCategories(tags []string) []string {
	known := make(map[string]struct{}, len(categories))
	for _, c := range categories {
		known[c] = struct{}{}
	}
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if _, ok := known[t]; !ok {
			t = CategoryOther
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// Bookmark is the distilled, searchable summary of one record.
type Bookmark struct {
	ID                string
	Title             string
	Summary           string
	Keywords          []string
	CategoryTags      []string
	ImageDescriptions []string
	Source            domain.Source
	BoardName         string
	Date              string
	Views             int
	URL               string
	ContentPath       string
	CreatedAt         time.Time
}

// ID builds the bookmark identifier for a record.
func ID(source domain.Source, recordID string) string {
	return string(source) + "_" + recordID
}

// PointID derives the vector point identifier from a bookmark id.
// It is a name-based UUID (v5, URL namespace) and therefore stable across processes.
func PointID(bookmarkID string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(bookmarkID)).String()
}

// Hit is a bookmark returned by vector search with its cosine similarity.
type Hit struct {
	Bookmark Bookmark
	Score    float64
}
