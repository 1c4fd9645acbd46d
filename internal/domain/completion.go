package domain

import "context"

// ImageDetail is the resolution hint passed with vision inputs.
type ImageDetail string

const (
	// ImageDetailLow asks the provider for the cheap low-resolution pass.
	ImageDetailLow ImageDetail = "low"
	// ImageDetailAuto lets the provider pick.
	ImageDetailAuto ImageDetail = "auto"
)

// InlineImage is a base64-encoded image attached to a completion request.
type InlineImage struct {
	Base64   string
	MimeType string
}

// DataURL renders the image as a data: URI.
func (i InlineImage) DataURL() string {
	return "data:" + i.MimeType + ";base64," + i.Base64
}

// CompletionRequest is a single chat completion call.
type CompletionRequest struct {
	System      string
	Prompt      string
	Images      []InlineImage
	ImageDetail ImageDetail
	JSONOutput  bool
	Temperature float32
	MaxTokens   int
}

// Completer is the chat completion contract shared by the synthesizer and the retriever.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}
