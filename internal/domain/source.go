package domain

import "fmt"

// Source identifies where a raw record was crawled from.
type Source string

const (
	// SourceLodNexon is the public static community board.
	SourceLodNexon Source = "lod_nexon"
	// SourceNaverCafe is the authenticated cafe with dynamically rendered pages.
	SourceNaverCafe Source = "naver_cafe"
)

// Sources lists every known source in a stable order.
func Sources() []Source {
	return []Source{SourceLodNexon, SourceNaverCafe}
}

// ParseSource validates a source name.
func ParseSource(s string) (Source, error) {
	switch Source(s) {
	case SourceLodNexon, SourceNaverCafe:
		return Source(s), nil
	default:
		return "", fmt.Errorf("%q: %w", s, ErrInvalidSource)
	}
}

func (s Source) String() string { return string(s) }
