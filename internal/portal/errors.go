package portal

import (
	"context"
	"fmt"
)

const maxErrorBody = 512

// TransportError reports a portal request that failed. Either Err is set
// (no usable response) or StatusCode and Body describe the response.
// It is never retried by the caller; retries already happened inside the
// Session.
type TransportError struct {
	URL        string
	StatusCode int
	Body       string
	Err        error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch %s failed: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("fetch %s failed: status %d", e.URL, e.StatusCode)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Get fetches path and turns a non-2xx response into a *TransportError.
func Get(ctx context.Context, f Fetcher, path string) ([]byte, error) {
	body, status, err := f.Fetch(ctx, path)
	if err != nil {
		return nil, err
	}
	if status < 200 || status >= 300 {
		return nil, &TransportError{URL: path, StatusCode: status, Body: truncate(body)}
	}
	return body, nil
}

func truncate(body []byte) string {
	if len(body) > maxErrorBody {
		return string(body[:maxErrorBody]) + "..."
	}
	return string(body)
}
