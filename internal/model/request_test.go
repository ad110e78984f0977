package model_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/pagepulse/pagepulse/internal/model"
)

func TestParseScanRequest_Valid(t *testing.T) {
	t.Parallel()
	for _, raw := range []string{
		"https://example.com",
		"http://example.com/path?q=1",
		"  https://example.com  ",
	} {
		req, err := model.ParseScanRequest(raw)
		if err != nil {
			t.Errorf("%q: unexpected error %v", raw, err)
			continue
		}
		if req.URL != strings.TrimSpace(raw) {
			t.Errorf("%q: url = %q", raw, req.URL)
		}
	}
}

func TestParseScanRequest_Empty(t *testing.T) {
	t.Parallel()
	for _, raw := range []string{"", "   "} {
		if _, err := model.ParseScanRequest(raw); !errors.Is(err, model.ErrEmptyURL) {
			t.Errorf("%q: err = %v, want ErrEmptyURL", raw, err)
		}
	}
}

func TestParseScanRequest_TooLong(t *testing.T) {
	t.Parallel()
	raw := "https://example.com/" + strings.Repeat("a", model.MaxURLLength)
	if _, err := model.ParseScanRequest(raw); !errors.Is(err, model.ErrURLTooLong) {
		t.Errorf("err = %v, want ErrURLTooLong", err)
	}
}

func TestParseScanRequest_BadSchemeOrHost(t *testing.T) {
	t.Parallel()
	for _, raw := range []string{
		"ftp://example.com",
		"javascript:alert(1)",
		"example.com",
		"/relative/path",
	} {
		if _, err := model.ParseScanRequest(raw); err == nil {
			t.Errorf("%q: expected an error", raw)
		}
	}
}

func TestStatus_Terminal(t *testing.T) {
	t.Parallel()
	cases := map[model.Status]bool{
		model.StatusPending:    false,
		model.StatusProcessing: false,
		model.StatusCompleted:  true,
		model.StatusFailed:     true,
	}
	for status, want := range cases {
		if got := status.Terminal(); got != want {
			t.Errorf("%s.Terminal() = %v, want %v", status, got, want)
		}
	}
}
