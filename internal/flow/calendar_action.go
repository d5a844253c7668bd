package flow

import (
	"context"
	"fmt"
	"time"

	"github.com/guided-app/weatherd/internal/extract"
	"github.com/guided-app/weatherd/internal/schema"
)

// SynthesizeCalendarAction decides whether the user's request implies a
// calendar action and, if so, extracts it. Returns (nil, nil) when the model
// answers null, i.e. the request is weather-only. weatherInfo is optional
// context for event creation (a short conditions summary, may be empty).
func SynthesizeCalendarAction(ctx context.Context, client extract.Completer, userQuery, weatherInfo string, now time.Time) (*schema.CalendarAction, error) {
	base := func() string {
		return buildCalendarActionPrompt(userQuery, weatherInfo, now)
	}
	res, err := extract.Run(ctx, client, extract.Config{}, base, schema.ParseCalendarAction, true)
	if err != nil {
		return nil, fmt.Errorf("synthesize calendar action: %w", err)
	}
	if res.Null {
		return nil, nil
	}
	action := res.Value
	return &action, nil
}
