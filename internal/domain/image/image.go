package image

import "context"

// Candidate is an image reference discovered in a post body.
// Width and Height are zero when the page does not declare them.
type Candidate struct {
	URL    string
	Width  int
	Height int
}

// Encoded is an image loaded from disk and ready to be sent to a vision model.
type Encoded struct {
	Base64   string
	MimeType string
	Filename string
}

// BrowserFetcher downloads a URL inside an authenticated browser page and
// returns it as a data: URI.
type BrowserFetcher interface {
	FetchDataURL(ctx context.Context, url string) (string, error)
}
