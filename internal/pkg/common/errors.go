package common

import (
	"errors"
	"net/http"
)

// ErrorResponse is the JSON body returned for request-level failures.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// CustomError carries an error code and HTTP status alongside the cause.
type CustomError struct {
	Code    string
	Message string
	Err     error
	Status  int
}

func (e *CustomError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *CustomError) Unwrap() error {
	return e.Err
}

// NewError creates a new CustomError.
func NewError(code string, message string, status int, err error) *CustomError {
	return &CustomError{
		Code:    code,
		Message: message,
		Status:  status,
		Err:     err,
	}
}

// Error codes surfaced by the API.
const (
	ErrCodeInvalidInput      = "INVALID_INPUT"      // 400, malformed caller request
	ErrCodeSourceUnreachable = "SOURCE_UNREACHABLE" // 502, URL fetch/parse failure
	ErrCodeAIServiceError    = "AI_SERVICE_ERROR"   // 503, generative backend failure
	ErrCodeTooManyRequests   = "TOO_MANY_REQUESTS"  // 429
	ErrCodeRequestTimeout    = "REQUEST_TIMEOUT"    // 408
	ErrCodeInternalError     = "INTERNAL_ERROR"     // 500
)

// NewInvalidInput reports a malformed caller request.
func NewInvalidInput(message string) *CustomError {
	return NewError(ErrCodeInvalidInput, message, http.StatusBadRequest, nil)
}

// NewSourceUnreachable reports a fetch failure for a URL source. The
// upstream summary is kept, a connectivity hint is appended for the caller.
func NewSourceUnreachable(url string, err error) *CustomError {
	return NewError(ErrCodeSourceUnreachable,
		"could not fetch recipe from "+url+" (check that the URL is reachable)",
		http.StatusBadGateway, err)
}

// NewAIServiceError reports a generative backend failure after the model
// fallback has been exhausted.
func NewAIServiceError(err error) *CustomError {
	return NewError(ErrCodeAIServiceError,
		"the recipe service could not generate a response, please try again",
		http.StatusServiceUnavailable, err)
}

// CodeOf extracts the error code from err, defaulting to INTERNAL_ERROR.
func CodeOf(err error) string {
	var ce *CustomError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ErrCodeInternalError
}

// StatusOf extracts the HTTP status from err, defaulting to 500.
func StatusOf(err error) int {
	var ce *CustomError
	if errors.As(err, &ce) {
		return ce.Status
	}
	return http.StatusInternalServerError
}
