// Package portaltest provides an in-memory portal.Fetcher for tests.
package portaltest

import (
	"context"
	"net/http"
	"sync"
)

// Page is a canned response.
type Page struct {
	Body   string
	Status int // defaults to 200
}

// Fake serves Pages keyed by the exact path passed to Fetch. Unknown
// paths get a 404. Err, when set, is returned for every request.
type Fake struct {
	Pages map[string]Page
	Err   error

	mu       sync.Mutex
	requests []string
}

// Fetch implements portal.Fetcher.
func (f *Fake) Fetch(ctx context.Context, path string) ([]byte, int, error) {
	f.mu.Lock()
	f.requests = append(f.requests, path)
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	if f.Err != nil {
		return nil, 0, f.Err
	}

	page, ok := f.Pages[path]
	if !ok {
		return []byte("not found"), http.StatusNotFound, nil
	}
	status := page.Status
	if status == 0 {
		status = http.StatusOK
	}
	return []byte(page.Body), status, nil
}

// Requests returns the paths fetched so far, in order.
func (f *Fake) Requests() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.requests))
	copy(out, f.requests)
	return out
}
