package chi

import "github.com/kailas-cloud/lodrag/internal/usecase/index"

// ErrorCode is a machine-readable error category.
type ErrorCode string

// Error codes returned in ErrorResponse.
const (
	ErrorCodeBadRequest       ErrorCode = "bad_request"
	ErrorCodeValidationFailed ErrorCode = "validation_failed"
	ErrorCodeUnauthorized     ErrorCode = "unauthorized"
	ErrorCodeForbidden        ErrorCode = "forbidden"
	ErrorCodeConflict         ErrorCode = "conflict"
	ErrorCodeUnprocessable    ErrorCode = "unprocessable"
	ErrorCodeProviderError    ErrorCode = "provider_error"
	ErrorCodeInternalError    ErrorCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

type searchRequest struct {
	Query        string `json:"query"`
	SourceFilter string `json:"source_filter,omitempty"`
}

type addRequest struct {
	Title     string `json:"title"`
	Content   string `json:"content"`
	BoardName string `json:"board_name"`
	SourceURL string `json:"source_url"`
	Source    string `json:"source"`
}

type addResponse struct {
	Success    bool   `json:"success"`
	BookmarkID string `json:"bookmark_id"`
	Indexed    bool   `json:"indexed"`
}

type crawlRequest struct {
	Source string `json:"source"`
	Pages  int    `json:"pages"`
}

type crawlResponse struct {
	Message string `json:"message"`
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
	index.Stats
}
