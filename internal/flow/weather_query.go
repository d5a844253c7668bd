// Package flow composes the language-model pipelines of the assistant:
// turning user queries into validated weather and calendar requests and
// turning raw data back into conversational text.
package flow

import (
	"context"
	"fmt"

	"github.com/guided-app/weatherd/internal/extract"
	"github.com/guided-app/weatherd/internal/schema"
)

// SynthesizeWeatherQuery converts a natural-language request into a validated
// WeatherAPI query. today is the user-local date ("YYYY-MM-DD") used to
// resolve relative dates, locationName is the fallback location when the user
// names none.
func SynthesizeWeatherQuery(ctx context.Context, client extract.Completer, userQuery, today, locationName string) (schema.WeatherQuery, error) {
	base := func() string {
		return buildWeatherQueryPrompt(userQuery, today, locationName)
	}
	res, err := extract.Run(ctx, client, extract.Config{}, base, schema.ParseWeatherQuery, false)
	if err != nil {
		return schema.WeatherQuery{}, fmt.Errorf("synthesize weather query: %w", err)
	}
	return res.Value, nil
}
