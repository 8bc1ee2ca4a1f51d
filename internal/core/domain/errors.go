package domain

import "net/http"

// Messages placed in a failed ProxyResponse. They are deliberately generic
// so upstream URLs and transport details never reach the browser.
const (
	ErrMessageUpstream = "Failed to fetch data from API"
	ErrMessageInternal = "Internal server error"
)

// ProxyResponse is the normalized envelope returned by the proxy gateway.
// Data is meaningful only when Success is true, Error only when it is false.
type ProxyResponse[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Status  int    `json:"status"`
}

// ErrorBody is the JSON body written for a failed proxy call.
type ErrorBody struct {
	Error string `json:"error"`
}

// FetchError is returned by the pipeline fetch client when the dashboard's
// own API answers with a non-2xx status.
type FetchError struct {
	Status     int
	StatusText string
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	return "failed to fetch pipelines: " + e.StatusText
}

// NewFetchError builds a FetchError, deriving the status text from the code
// when the response carried none.
func NewFetchError(status int, statusText string) *FetchError {
	if statusText == "" {
		statusText = http.StatusText(status)
	}
	return &FetchError{Status: status, StatusText: statusText}
}
