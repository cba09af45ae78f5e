package inference

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cognicore/opini/pkg/opini/internalerr"
)

type roundTrip func(*http.Request) (*http.Response, error)

func (rt roundTrip) RoundTrip(req *http.Request) (*http.Response, error) {
	return rt(req)
}

func respond(code int, body string) *http.Response {
	return &http.Response{
		StatusCode: code,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     make(http.Header),
	}
}

func newTestClient(t *testing.T, cfg Config, rt roundTrip) *Client {
	t.Helper()
	if cfg.Endpoint == "" {
		cfg.Endpoint = "https://inference.test/models/sentiment"
	}
	if cfg.BaseDelay == 0 {
		cfg.BaseDelay = time.Millisecond
		cfg.MaxDelay = 2 * time.Millisecond
	}
	c, err := New(cfg, &http.Client{Transport: rt}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestClassifyPicksHighestScore(t *testing.T) {
	c := newTestClient(t, Config{Token: "secret"}, func(req *http.Request) (*http.Response, error) {
		if got := req.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("Authorization = %q", got)
		}
		body, _ := io.ReadAll(req.Body)
		if !strings.Contains(string(body), `"inputs":"rakyat bahagia"`) {
			t.Errorf("unexpected payload %s", body)
		}
		return respond(200, `[[{"label":"neutral","score":0.2},{"label":"positive","score":0.7},{"label":"negative","score":0.1}]]`), nil
	})

	got, err := c.Classify(context.Background(), "rakyat bahagia")
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if got != "positive" {
		t.Fatalf("Classify = %q, want positive", got)
	}
}

func TestClassifyFlatResponseAndID2Label(t *testing.T) {
	c := newTestClient(t, Config{ID2Label: map[string]string{"0": "negative", "1": "neutral", "2": "positive"}},
		func(*http.Request) (*http.Response, error) {
			return respond(200, `[{"label":"LABEL_0","score":0.9},{"label":"LABEL_2","score":0.1}]`), nil
		})

	got, err := c.Classify(context.Background(), "x")
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if got != "negative" {
		t.Fatalf("Classify = %q, want negative", got)
	}
}

func TestRetriesOnUnavailable(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, Config{MaxRetries: 3}, func(*http.Request) (*http.Response, error) {
		if calls.Add(1) < 3 {
			return respond(503, `{"error":"Model is loading","estimated_time":1.5}`), nil
		}
		return respond(200, `[[{"label":"neutral","score":0.9}]]`), nil
	})

	got, err := c.Classify(context.Background(), "x")
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if got != "neutral" || calls.Load() != 3 {
		t.Fatalf("got %q after %d calls", got, calls.Load())
	}
}

func TestNoRetryOnClientError(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, Config{MaxRetries: 3}, func(*http.Request) (*http.Response, error) {
		calls.Add(1)
		return respond(400, `{"error":"bad input"}`), nil
	})

	_, err := c.Classify(context.Background(), "x")
	var se *StatusError
	if !errors.As(err, &se) || se.Code != 400 || se.Message != "bad input" {
		t.Fatalf("expected 400 StatusError, got %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected one call, got %d", calls.Load())
	}
}

func TestRetriesExhausted(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, Config{MaxRetries: 2}, func(*http.Request) (*http.Response, error) {
		calls.Add(1)
		return nil, errors.New("connection reset")
	})

	if _, err := c.Classify(context.Background(), "x"); err == nil {
		t.Fatal("expected error")
	}
	if calls.Load() != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls.Load())
	}
}

func TestMalformedResponse(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, Config{MaxRetries: 3}, func(*http.Request) (*http.Response, error) {
		calls.Add(1)
		return respond(200, `{"unexpected":true}`), nil
	})
	if _, err := c.Classify(context.Background(), "x"); err == nil {
		t.Fatal("expected decode error")
	}
	if calls.Load() != 1 {
		t.Fatalf("decode errors should not be retried, got %d calls", calls.Load())
	}
}

func TestEmptyResponse(t *testing.T) {
	c := newTestClient(t, Config{}, func(*http.Request) (*http.Response, error) {
		return respond(200, `[[]]`), nil
	})
	if _, err := c.Classify(context.Background(), "x"); err == nil {
		t.Fatal("expected error for empty predictions")
	}
}

func TestNewRequiresEndpoint(t *testing.T) {
	if _, err := New(Config{}, nil, nil); !errors.Is(err, internalerr.ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}
