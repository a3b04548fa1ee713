package upstream

import "fmt"

// HTTPError is a response the upstream actually delivered with a non-2xx
// status. It is never retried; the gateway maps it to a client-facing status.
type HTTPError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *HTTPError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("upstream returned %s: %s", e.Status, e.Body)
	}
	return fmt.Sprintf("upstream returned %s", e.Status)
}
