package remote

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"
)

var (
	ErrMissingURL    = errors.New("remote url is required")
	ErrMissingStore  = errors.New("store id is required")
	ErrUnauthorized  = errors.New("remote unauthorized")
	ErrRateLimited   = errors.New("remote rate limited")
	ErrUnavailable   = errors.New("remote unavailable")
	ErrNotFound      = errors.New("remote record not found")
	ErrRejected      = errors.New("remote rejected the request")
	ErrUnknownDriver = errors.New("unknown remote driver")
)

type APIError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("remote api error: %s", e.Status)
	}
	return fmt.Sprintf("remote api error: %s: %s", e.Status, e.Body)
}

// IsRejected reports a confirmed refusal of the data itself. Retrying the
// same request will not succeed.
func IsRejected(err error) bool {
	return errors.Is(err, ErrRejected)
}

// IsTransient reports failures worth retrying later: transport errors,
// timeouts, throttling, server errors and credential problems.
func IsTransient(err error) bool {
	return err != nil && !IsRejected(err) && !errors.Is(err, ErrNotFound)
}

func apiErrorFromResponse(resp *resty.Response) error {
	apiErr := &APIError{
		StatusCode: resp.StatusCode(),
		Status:     resp.Status(),
		Body:       strings.TrimSpace(resp.String()),
	}

	switch code := resp.StatusCode(); {
	case code == http.StatusUnauthorized, code == http.StatusForbidden:
		return fmt.Errorf("%w: %w", ErrUnauthorized, apiErr)
	case code == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %w", ErrRateLimited, apiErr)
	case code == http.StatusNotFound:
		// a missing table or row will not appear on retry
		return fmt.Errorf("%w: %w: %w", ErrRejected, ErrNotFound, apiErr)
	case code >= http.StatusInternalServerError:
		return fmt.Errorf("%w: %w", ErrUnavailable, apiErr)
	case code >= http.StatusBadRequest:
		return fmt.Errorf("%w: %w", ErrRejected, apiErr)
	default:
		return apiErr
	}
}
