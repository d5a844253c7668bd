package extract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/guided-app/weatherd/internal/genai"
)

// scriptedCompleter returns canned responses (or errors) in call order.
type scriptedCompleter struct {
	responses []string
	errs      []error
	calls     int
	prompts   []string
}

func (s *scriptedCompleter) Complete(ctx context.Context, req genai.Request) (string, error) {
	i := s.calls
	s.calls++
	s.prompts = append(s.prompts, req.Prompt)
	if i < len(s.errs) && s.errs[i] != nil {
		return "", s.errs[i]
	}
	if i < len(s.responses) {
		return s.responses[i], nil
	}
	return "", nil
}

type payload struct {
	Name string `json:"name"`
}

func parsePayload(data []byte) (payload, error) {
	var p payload
	if err := json.Unmarshal(data, &p); err != nil {
		return p, err
	}
	if p.Name == "" {
		return p, errors.New("name: expected non-empty string")
	}
	return p, nil
}

// fastConfig keeps backoff out of test runtime.
var fastConfig = Config{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}

func TestRun_SucceedsOnThirdAttempt(t *testing.T) {
	stub := &scriptedCompleter{responses: []string{"not json", "{oops", `{"name":"ok"}`}}
	res, err := Run(context.Background(), stub, fastConfig, func() string { return "base" }, parsePayload, false)
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if res.Attempts != 3 {
		t.Errorf("expected exactly 3 attempts, got %d", res.Attempts)
	}
	if res.Value.Name != "ok" {
		t.Errorf("expected parsed value, got %+v", res.Value)
	}
	if stub.calls != 3 {
		t.Errorf("expected 3 completion calls, got %d", stub.calls)
	}
	// The second prompt must carry the first failure as feedback.
	if !strings.Contains(stub.prompts[1], "Previous response was invalid") {
		t.Errorf("retry prompt should quote the previous failure, got %q", stub.prompts[1])
	}
	if stub.prompts[0] != "base" {
		t.Errorf("first prompt must be the base prompt, got %q", stub.prompts[0])
	}
}

func TestRun_NullSentinelResolvesImmediately(t *testing.T) {
	stub := &scriptedCompleter{responses: []string{" null \n"}}
	res, err := Run(context.Background(), stub, fastConfig, func() string { return "base" }, parsePayload, true)
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if !res.Null {
		t.Error("expected null outcome")
	}
	if res.Attempts != 1 || stub.calls != 1 {
		t.Errorf("null must resolve on attempt 1 with no retries, attempts=%d calls=%d", res.Attempts, stub.calls)
	}
}

func TestRun_NullNotAllowedIsParseFailure(t *testing.T) {
	stub := &scriptedCompleter{responses: []string{"null", "null", "null"}}
	res, err := Run(context.Background(), stub, fastConfig, func() string { return "base" }, parsePayload, false)
	if err == nil {
		t.Fatal("expected failure when null is not permitted")
	}
	// "null" is valid JSON but decodes to an empty payload, so the schema
	// failure drives the retries.
	if res.Attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", res.Attempts)
	}
}

func TestRun_ExhaustionNamesLastError(t *testing.T) {
	stub := &scriptedCompleter{responses: []string{"garbage", "garbage", "garbage"}}
	_, err := Run(context.Background(), stub, fastConfig, func() string { return "base" }, parsePayload, false)
	var exhausted *ExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("expected ExhaustedError, got %v", err)
	}
	if exhausted.Attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", exhausted.Attempts)
	}
	if exhausted.LastReason == "" || !strings.Contains(err.Error(), "after 3 attempts") {
		t.Errorf("exhaustion error should summarize attempts and last reason, got %v", err)
	}
	if len(exhausted.Raw) != 3 {
		t.Errorf("expected full raw-response trace, got %d entries", len(exhausted.Raw))
	}
	if stub.calls != 3 {
		t.Errorf("expected exactly maxAttempts calls, got %d", stub.calls)
	}
}

func TestRun_TransportErrorsConsumeAttempts(t *testing.T) {
	stub := &scriptedCompleter{
		errs:      []error{fmt.Errorf("connection reset"), nil},
		responses: []string{"", `{"name":"ok"}`},
	}
	res, err := Run(context.Background(), stub, fastConfig, func() string { return "base" }, parsePayload, false)
	if err != nil {
		t.Fatalf("expected recovery after transport error, got %v", err)
	}
	if res.Attempts != 2 {
		t.Errorf("transport error must consume an attempt, got %d attempts", res.Attempts)
	}
	if !strings.Contains(stub.prompts[1], "connection reset") {
		t.Errorf("transport error text should feed the retry prompt, got %q", stub.prompts[1])
	}
}

func TestRun_ContextCancelledBetweenAttempts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	stub := &scriptedCompleter{responses: []string{"garbage"}}
	cfg := Config{MaxAttempts: 3, BaseDelay: time.Hour, MaxDelay: time.Hour}
	_, err := Run(ctx, stub, cfg, func() string { return "base" }, parsePayload, false)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context cancellation, got %v", err)
	}
	if stub.calls != 1 {
		t.Errorf("expected no further attempts after cancellation, got %d", stub.calls)
	}
}

func TestBackoffDelay_CappedExponential(t *testing.T) {
	cfg := Config{MaxAttempts: 5, BaseDelay: time.Second, MaxDelay: 5 * time.Second}
	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{1, time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{4, 5 * time.Second},
		{5, 5 * time.Second},
	}
	for _, c := range cases {
		if got := backoffDelay(cfg, c.attempt); got != c.want {
			t.Errorf("backoffDelay(attempt=%d) = %v, want %v", c.attempt, got, c.want)
		}
	}
}
