package apiclient

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// APIError is a decoded error response from the platform services.
// Field-level validation failures carry FieldErrors; everything else
// carries just the message.
type APIError struct {
	StatusCode  int
	Message     string
	FieldErrors map[string]string
}

func (e *APIError) Error() string {
	if len(e.FieldErrors) > 0 {
		parts := make([]string, 0, len(e.FieldErrors))
		for field, msg := range e.FieldErrors {
			parts = append(parts, field+": "+msg)
		}
		return fmt.Sprintf("api error (%d): %s", e.StatusCode, strings.Join(parts, "; "))
	}
	if e.Message != "" {
		return fmt.Sprintf("api error (%d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("api error (%d)", e.StatusCode)
}

// errorEnvelope matches both shapes the services emit:
//
//	{"data": {"details": {"field": "message", ...}}}
//	{"message": "something went wrong"}
type errorEnvelope struct {
	Data struct {
		Details map[string]string `json:"details"`
	} `json:"data"`
	Message string `json:"message"`
}

// decodeError turns a non-2xx response into an *APIError. The body is
// best-effort; an undecodable body still yields the status code.
func decodeError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return apiErr
	}

	var env errorEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return apiErr
	}
	if len(env.Data.Details) > 0 {
		apiErr.FieldErrors = env.Data.Details
	}
	apiErr.Message = env.Message
	return apiErr
}
