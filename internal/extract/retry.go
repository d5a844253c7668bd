// Package extract runs structured extraction against a language model: it
// prompts for JSON, validates the response against a typed schema, and
// retries with escalating correction prompts until success, an explicit
// null, or the attempt budget is exhausted.
package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/guided-app/weatherd/internal/genai"
)

// Completer is the language-model completion dependency.
type Completer interface {
	Complete(ctx context.Context, req genai.Request) (string, error)
}

// Config bounds the retry loop. Zero values fall back to the defaults.
type Config struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// Retry defaults.
const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = 1000 * time.Millisecond
	DefaultMaxDelay    = 5000 * time.Millisecond
)

func (c Config) normalized() Config {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = DefaultBaseDelay
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = DefaultMaxDelay
	}
	return c
}

// Result carries a resolved extraction. Exactly one of Value or Null is
// meaningful; Null is only possible when the call allowed it. Raw holds the
// per-attempt response trace for diagnostics; it is not persisted anywhere.
type Result[T any] struct {
	Value    T
	Null     bool
	Attempts int
	Raw      []string
}

// ExhaustedError reports a retry budget spent without a valid value or null.
type ExhaustedError struct {
	Attempts   int
	LastReason string
	Raw        []string
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("extraction failed after %d attempts: %s", e.Attempts, e.LastReason)
}

// Run extracts a schema-valid value from the model. Each attempt builds its
// prompt through BuildRetryPrompt (feeding back the previous failure text),
// completes at temperature 0, and resolves immediately on a valid value or,
// when allowNull is set, on a response of exactly "null". Parse failures,
// schema failures, and transport failures all consume an attempt; between
// attempts the loop sleeps min(BaseDelay*2^(attempt-1), MaxDelay).
func Run[T any](ctx context.Context, client Completer, cfg Config, base PromptBuilder, parse func([]byte) (T, error), allowNull bool) (Result[T], error) {
	cfg = cfg.normalized()

	var res Result[T]
	var lastReason string
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		res.Attempts = attempt
		prompt := BuildRetryPrompt(base, allowNull, attempt, lastReason)

		raw, err := client.Complete(ctx, genai.Request{Prompt: prompt, Temperature: 0})
		switch {
		case err != nil:
			lastReason = err.Error()
			slog.Error("extraction completion call failed", "attempt", attempt, "error", err)
		default:
			res.Raw = append(res.Raw, raw)
			if allowNull && strings.TrimSpace(raw) == "null" {
				res.Null = true
				return res, nil
			}
			var probe any
			if perr := json.Unmarshal([]byte(raw), &probe); perr != nil {
				lastReason = perr.Error()
				slog.Error("extraction response is not valid JSON", "attempt", attempt, "error", perr, "raw", raw)
				break
			}
			value, verr := parse([]byte(raw))
			if verr == nil {
				res.Value = value
				return res, nil
			}
			lastReason = verr.Error()
			slog.Error("extraction response failed validation", "attempt", attempt, "error", verr, "raw", raw)
		}

		if attempt == cfg.MaxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return res, ctx.Err()
		case <-time.After(backoffDelay(cfg, attempt)):
		}
	}
	return res, &ExhaustedError{Attempts: res.Attempts, LastReason: lastReason, Raw: res.Raw}
}

// backoffDelay computes the sleep before the attempt following the given one.
func backoffDelay(cfg Config, attempt int) time.Duration {
	delay := cfg.BaseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= cfg.MaxDelay {
			return cfg.MaxDelay
		}
	}
	if delay > cfg.MaxDelay {
		return cfg.MaxDelay
	}
	return delay
}
