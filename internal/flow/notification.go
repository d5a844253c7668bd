package flow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/guided-app/weatherd/internal/extract"
	"github.com/guided-app/weatherd/internal/genai"
	"github.com/guided-app/weatherd/internal/schema"
)

// WeatherContext describes the meeting a notification is being prepared for.
type WeatherContext struct {
	MeetingLocation string
	MeetingTime     time.Time
	MeetingDuration time.Duration
	UserTimezone    string
}

func (wc WeatherContext) durationMinutes() int {
	if wc.MeetingDuration <= 0 {
		return 60
	}
	return int(wc.MeetingDuration / time.Minute)
}

const (
	notificationSummaryTimeout = 30 * time.Second
	smsBodyTimeout             = 15 * time.Second
	smsBodyTemperature         = 0.7
	smsBodyMaxTokens           = 100
)

// ResolveMeetingLocation picks the location a notification's weather query
// should target: the event's own location, then its description, then the
// fallback (the user's resolved or default location). Empty when nothing
// usable is known.
func ResolveMeetingLocation(eventLocation, eventDescription, fallback string) string {
	if loc := strings.TrimSpace(eventLocation); loc != "" {
		return loc
	}
	if desc := strings.TrimSpace(eventDescription); desc != "" {
		return desc
	}
	return strings.TrimSpace(fallback)
}

// SynthesizeNotificationQuery extracts a validated weather query targeting a
// meeting's time and place.
func SynthesizeNotificationQuery(ctx context.Context, client extract.Completer, wc WeatherContext) (schema.WeatherQuery, error) {
	base := func() string {
		return buildNotificationWeatherQueryPrompt(wc)
	}
	res, err := extract.Run(ctx, client, extract.Config{}, base, schema.ParseWeatherQuery, false)
	if err != nil {
		return schema.WeatherQuery{}, fmt.Errorf("synthesize notification weather query: %w", err)
	}
	return res.Value, nil
}

// GenerateNotificationSummary distills fetched weather data into actionable
// pre-meeting advice with a severity rating.
func GenerateNotificationSummary(ctx context.Context, client extract.Completer, wc WeatherContext, weatherData any) (schema.NotificationResult, error) {
	ctx, cancel := context.WithTimeout(ctx, notificationSummaryTimeout)
	defer cancel()

	base := func() string {
		return buildNotificationSummaryPrompt(wc, weatherData)
	}
	res, err := extract.Run(ctx, client, extract.Config{}, base, schema.ParseNotificationResult, false)
	if err != nil {
		return schema.NotificationResult{}, fmt.Errorf("generate notification summary: %w", err)
	}
	return res.Value, nil
}

// GenerateSMSBody phrases a notification summary as a single short SMS.
// meetingTime should already be formatted in the recipient's timezone.
func GenerateSMSBody(ctx context.Context, client Conversationalist, meetingTitle, meetingTime string, res schema.NotificationResult) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, smsBodyTimeout)
	defer cancel()

	prompt := buildSMSMessagePrompt(meetingTitle, meetingTime, res)
	text, err := client.Complete(ctx, genai.Request{
		Prompt:      prompt,
		Temperature: smsBodyTemperature,
		MaxTokens:   smsBodyMaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("generate sms body: %w", err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}
