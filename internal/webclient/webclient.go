// Package webclient abstracts HTTP retrieval behind a narrow interface so
// the fetch path can be exercised in tests without network I/O.
package webclient

import (
	"context"
	"net/http"
	"time"
)

type Request struct {
	Method  string
	URL     string
	Headers http.Header
	Body    []byte
}

type Response struct {
	Request    *Request
	Headers    http.Header
	Body       []byte
	StatusCode int
	FetchedAt  time.Time
}

type WebClient interface {
	Do(ctx context.Context, req *Request) (*Response, error)

	// Get is a convenience method for simple GET requests
	Get(ctx context.Context, url string) (*Response, error)

	Close() error
}
