// Package client delivers finished runs from a device to the collector.
package client

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

	"card-quiz/internal/domain"
	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"
)

// ErrExhausted is returned once every delivery attempt has failed.
var ErrExhausted = errors.New("submission attempts exhausted")

type Config struct {
	BaseURL        string
	Attempts       int
	BaseDelay      time.Duration
	AttemptTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		BaseURL:        "http://192.168.4.1:5000",
		Attempts:       3,
		BaseDelay:      time.Second,
		AttemptTimeout: 5 * time.Second,
	}
}

// Submitter posts runs to the collector's ingest endpoint.
type Submitter struct {
	cfg  Config
	http *http.Client
}

func NewSubmitter(cfg Config, httpClient *http.Client) *Submitter {
	def := DefaultConfig()
	if cfg.Attempts <= 0 {
		cfg.Attempts = def.Attempts
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = def.BaseDelay
	}
	if cfg.AttemptTimeout <= 0 {
		cfg.AttemptTimeout = def.AttemptTimeout
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Submitter{cfg: cfg, http: httpClient}
}

// Submit delivers run, retrying with doubling delays between attempts.
func (s *Submitter) Submit(ctx context.Context, run domain.SubmittedRun) error {
	body, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("encode run: %w", err)
	}

	attempt := 0
	op := func() error {
		attempt++
		return s.post(ctx, body)
	}
	notify := func(err error, wait time.Duration) {
		log.Warn().Err(err).Int("attempt", attempt).Dur("retry_in", wait).Msg("submission failed")
	}

	err = backoff.RetryNotify(op, s.policy(ctx), notify)
	if err == nil {
		log.Info().Str("name", run.Name).Int("attempts", attempt).Msg("run submitted")
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%w after %d attempts: %w", ErrExhausted, attempt, ctxErr)
	}
	return fmt.Errorf("%w after %d attempts: %w", ErrExhausted, attempt, err)
}

func (s *Submitter) policy(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.cfg.BaseDelay
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxInterval = s.cfg.BaseDelay << uint(s.cfg.Attempts)
	b.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(s.cfg.Attempts-1)), ctx)
}

func (s *Submitter) post(ctx context.Context, body []byte) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.AttemptTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.BaseURL+"/add", bytes.NewReader(body))
	if err != nil {
		return backoff.Permanent(fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		return fmt.Errorf("post run: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	// Any status other than 200 is a failed attempt, including 4xx replies.
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("collector returned %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var ack struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(raw, &ack); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if ack.Status != "ok" {
		return fmt.Errorf("collector status %q", ack.Status)
	}
	return nil
}
