package llm

import "fmt"

// ServiceError is returned when the completion service rejects a request
// or returns no usable output. Message carries the remote-provided error
// message when one is present.
type ServiceError struct {
	StatusCode int
	Message    string
}

func (e *ServiceError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("completion service error (status %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("completion service error: %s", e.Message)
}
