// Package inference calls a hosted text-classification endpoint that speaks
// the Hugging Face inference API shape.
package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
	"github.com/sirupsen/logrus"

	"github.com/cognicore/opini/internal/logging"
	"github.com/cognicore/opini/pkg/opini/internalerr"
)

// Config describes the endpoint and retry behaviour.
type Config struct {
	Endpoint   string            `yaml:"endpoint"`
	Token      string            `yaml:"token"`
	Timeout    time.Duration     `yaml:"timeout"`
	MaxRetries int               `yaml:"max_retries"`
	BaseDelay  time.Duration     `yaml:"base_delay"`
	MaxDelay   time.Duration     `yaml:"max_delay"`
	ID2Label   map[string]string `yaml:"id2label"`
}

func (c Config) withDefaults() Config {
	if c.Timeout <= 0 {
		c.Timeout = 15 * time.Second
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = 200 * time.Millisecond
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = 5 * time.Second
	}
	if c.MaxDelay < c.BaseDelay {
		c.MaxDelay = c.BaseDelay
	}
	return c
}

// Client classifies one text per request.
type Client struct {
	cfg      Config
	http     *http.Client
	executor failsafe.Executor[[]Prediction]
	log      logrus.FieldLogger
}

// Prediction is one label with its score.
type Prediction struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

type request struct {
	Inputs string `json:"inputs"`
}

type apiError struct {
	Error         string  `json:"error"`
	EstimatedTime float64 `json:"estimated_time"`
}

// StatusError reports a non-2xx response.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("inference: status %d", e.Code)
	}
	return fmt.Sprintf("inference: status %d: %s", e.Code, e.Message)
}

// Retryable reports whether the status is worth retrying.
func (e *StatusError) Retryable() bool {
	switch e.Code {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// New builds a client. A nil httpClient gets one with cfg.Timeout.
func New(cfg Config, httpClient *http.Client, logger logrus.FieldLogger) (*Client, error) {
	if strings.TrimSpace(cfg.Endpoint) == "" {
		return nil, fmt.Errorf("inference: endpoint required: %w", internalerr.ErrInvalidConfig)
	}
	cfg = cfg.withDefaults()
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	c := &Client{cfg: cfg, http: httpClient, log: logging.OrDiscard(logger)}

	policy := retrypolicy.NewBuilder[[]Prediction]().
		WithBackoff(cfg.BaseDelay, cfg.MaxDelay).
		WithMaxRetries(cfg.MaxRetries).
		WithJitterFactor(0.1).
		HandleIf(func(_ []Prediction, err error) bool { return shouldRetry(err) }).
		Build()
	c.executor = failsafe.With[[]Prediction](policy)
	return c, nil
}

func shouldRetry(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Retryable()
	}
	var de *decodeError
	return !errors.As(err, &de)
}

type decodeError struct{ err error }

func (e *decodeError) Error() string { return "inference: decode response: " + e.err.Error() }
func (e *decodeError) Unwrap() error { return e.err }

// Predict returns every label the endpoint scored, highest first as sent.
func (c *Client) Predict(ctx context.Context, text string) ([]Prediction, error) {
	attempt := 0
	preds, err := c.executor.WithContext(ctx).Get(func() ([]Prediction, error) {
		attempt++
		if attempt > 1 {
			c.log.WithField("attempt", attempt).Debug("retrying inference request")
		}
		return c.send(ctx, text)
	})
	if err != nil {
		return nil, err
	}
	if len(preds) == 0 {
		return nil, errors.New("inference: empty response")
	}
	return preds, nil
}

// Classify returns the highest-scoring label, translated through ID2Label
// when the model answers with ids.
func (c *Client) Classify(ctx context.Context, text string) (string, error) {
	preds, err := c.Predict(ctx, text)
	if err != nil {
		return "", err
	}
	best := preds[0]
	for _, p := range preds[1:] {
		if p.Score > best.Score {
			best = p
		}
	}
	return c.translate(best.Label), nil
}

func (c *Client) translate(raw string) string {
	if len(c.cfg.ID2Label) == 0 {
		return raw
	}
	if v, ok := c.cfg.ID2Label[raw]; ok {
		return v
	}
	if id, ok := strings.CutPrefix(raw, "LABEL_"); ok {
		if v, ok := c.cfg.ID2Label[id]; ok {
			return v
		}
	}
	return raw
}

func (c *Client) send(ctx context.Context, text string) ([]Prediction, error) {
	body, err := json.Marshal(request{Inputs: text})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var ae apiError
		_ = json.Unmarshal(raw, &ae)
		return nil, &StatusError{Code: resp.StatusCode, Message: ae.Error}
	}
	return decodePredictions(raw)
}

// decodePredictions accepts both the nested [[...]] shape returned for a
// single input and a flat [...] list.
func decodePredictions(raw []byte) ([]Prediction, error) {
	var nested [][]Prediction
	if err := json.Unmarshal(raw, &nested); err == nil {
		if len(nested) == 0 {
			return nil, nil
		}
		return nested[0], nil
	}
	var flat []Prediction
	if err := json.Unmarshal(raw, &flat); err != nil {
		return nil, &decodeError{err: err}
	}
	return flat, nil
}
