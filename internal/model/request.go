package model

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// MaxURLLength is the longest URL accepted at submission.
const MaxURLLength = 2048

var (
	ErrEmptyURL   = errors.New("url is required")
	ErrURLTooLong = fmt.Errorf("url exceeds %d characters", MaxURLLength)
)

// ScanRequest is the immutable input of one analysis run. It is created once
// at submission and never mutated.
type ScanRequest struct {
	URL string `json:"url"`
}

// ParseScanRequest validates a submitted URL and returns the request.
// The URL must be an absolute http or https URL of at most MaxURLLength
// characters.
func ParseScanRequest(raw string) (*ScanRequest, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrEmptyURL
	}
	if len(raw) > MaxURLLength {
		return nil, ErrURLTooLong
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("url scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return nil, errors.New("url must be absolute")
	}

	return &ScanRequest{URL: raw}, nil
}
