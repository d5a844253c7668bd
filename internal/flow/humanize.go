package flow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/guided-app/weatherd/internal/genai"
)

// Humanizer errors distinguish timeouts from empty model output so callers
// can phrase the failure to the user.
var (
	ErrTimeout       = errors.New("weather response generation timed out")
	ErrEmptyResponse = errors.New("weather response generation returned no text")
)

const (
	humanizeTimeout     = 30 * time.Second
	humanizeTemperature = 0.7
)

// Humanizer turns raw weather data (and an optional calendar result) into a
// conversational answer to the user's original question.
type Humanizer struct {
	Client  Conversationalist
	Timeout time.Duration
}

// Conversationalist is the free-form completion dependency of the humanizer.
type Conversationalist interface {
	Complete(ctx context.Context, req genai.Request) (string, error)
}

// Humanize answers the original query from the fetched weather data.
// calendarResult may be nil.
func (h *Humanizer) Humanize(ctx context.Context, weatherData any, originalQuery string, calendarResult any) (string, error) {
	timeout := h.Timeout
	if timeout <= 0 {
		timeout = humanizeTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	prompt := buildWeatherResponsePrompt(weatherData, originalQuery, calendarResult)
	text, err := h.Client.Complete(ctx, genai.Request{Prompt: prompt, Temperature: humanizeTemperature})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", ErrTimeout
		}
		return "", fmt.Errorf("failed to generate weather response: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}
