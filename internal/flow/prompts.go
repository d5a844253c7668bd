package flow

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/guided-app/weatherd/internal/schema"
)

func buildWeatherQueryPrompt(userQuery, today, locationName string) string {
	return fmt.Sprintf(`You are a weather assistant.

Your task is to convert a user's natural language weather request into a JSON object compatible with the WeatherAPI `+"`forecast.json`"+` endpoint.

📅 Today's date is: %s

📘 JSON schema:
{
  "q": "string",            // required: location (city name or coordinates)
  "days": number,           // 1–14
  "dt": "YYYY-MM-DD",       // optional: resolved from relative dates like "tomorrow"
  "hour": number,           // optional: 0–23
  "alerts": "yes" | "no",   // optional
  "aqi": "yes" | "no",      // optional
  "lang": "en"              // required: inferred from user query
}

⚠️ Rules:
- If no location is given by the user, use "%s"
- If the user uses relative dates like "tomorrow", resolve them based on: %s
- Always include: "alerts": "yes", "aqi": "yes"
- Use "days": 1 unless user asks for multiple days
- Infer "lang" from the user query

Respond ONLY with the JSON object. No extra text.

User query: "%s"`, today, locationName, today, userQuery)
}

func buildCalendarActionPrompt(userQuery, weatherInfo string, now time.Time) string {
	if weatherInfo == "" {
		weatherInfo = "None"
	}
	nowISO := now.Format(time.RFC3339)
	today := now.Format("2006-01-02")
	tomorrow := now.AddDate(0, 0, 1).Format("2006-01-02")
	return fmt.Sprintf(`You are a calendar assistant. Analyze the user's request and determine if they want a calendar action.

AVAILABLE ACTIONS:

1. CREATE - Create a new event
   Structure: {
     "action": "create",
     "event": {
       "summary": string (required),
       "start": { "dateTime": string (ISO 8601, required), "timeZone": string (required) },
       "end": { "dateTime": string (ISO 8601, required), "timeZone": string (required) },
       "description": string (optional),
       "location": string (optional),
       "attendees": [{ "email": string }] (optional),
       "reminders": { "useDefault": boolean } (optional)
     }
   }

2. FIND - Retrieve matching events
   Structure: {
     "action": "find",
     "query": {
       "timeMin": string (ISO 8601, optional),
       "timeMax": string (ISO 8601, optional),
       "searchTerm": string (optional),
       "maxResults": number (default: 10, optional),
       "orderBy": "startTime" (optional)
     }
   }

3. GET - Retrieve a single event by ID
   Structure: {
     "action": "get",
     "eventId": string (required)
   }

CURRENT TIME CONTEXT:
- Now: %s
- Today: %s
- Tomorrow: %s
Always resolve relative times against these concrete values. Never emit symbolic dates like "tomorrow" in the JSON.

RULES:
- ONLY respond with a JSON object if the user wants a calendar action
- If no calendar action is needed, respond with null
- Use the weather info as context when creating events
- For time ranges, use ISO 8601 format (e.g., "2024-07-12T00:00:00Z")
- Default timeZone is "UTC" unless specified

EXAMPLES:
- "Add rain forecast to my calendar" → {"action":"create", ...} with weather context
- "Show my events for tomorrow" → {"action":"find","query":{"timeMin":"%sT00:00:00Z","timeMax":"%sT23:59:59Z"}}
- "What's my next meeting" → {"action":"find","query":{"timeMin":"%s","maxResults":1,"orderBy":"startTime"}}
- "Get event with ID abc123" → {"action":"get","eventId":"abc123"}
- "What's the weather?" → null (no calendar action)

User query: "%s"
Weather info: "%s"`, nowISO, today, tomorrow, tomorrow, tomorrow, nowISO, userQuery, weatherInfo)
}

func buildWeatherResponsePrompt(weatherData any, originalQuery string, calendarResult any) string {
	weatherJSON := marshalForPrompt(weatherData)

	var calendarSection string
	if calendarResult != nil {
		calendarSection = fmt.Sprintf(`

📆 Calendar Result:
%s

- If a calendar action was performed, confirm it naturally as part of your answer`, marshalForPrompt(calendarResult))
	}

	return fmt.Sprintf(`You are a helpful weather assistant. Your task is to analyze weather data and provide a clear, conversational response to the user's original query.

📊 Weather Data:
%s

🎯 Original User Query: "%s"%s

📝 Instructions:
- Provide a natural, conversational response that directly answers the user's question
- Include relevant weather details like temperature, conditions, precipitation chance, etc.
- If the user asked about specific times or dates, focus on those periods
- If there are weather alerts, mention them prominently
- Use appropriate units (Celsius/Fahrenheit based on the data)
- Be helpful and informative, but keep it conversational
- If the data doesn't contain what the user asked for, explain what information is available instead

Respond in a friendly, helpful tone as if you're talking to a friend about the weather.`, weatherJSON, originalQuery, calendarSection)
}

func buildNotificationWeatherQueryPrompt(wc WeatherContext) string {
	return fmt.Sprintf(`You are a weather assistant helping to get weather data for a meeting notification.

Meeting Details:
- Location: %s
- Time: %s
- Timezone: %s
- Duration: %d minutes

Generate a WeatherAPI query that will get the most relevant weather data for this meeting.
Focus on:
- Weather conditions during the meeting time
- Any weather alerts or warnings
- Temperature and precipitation for the meeting duration
- Wind conditions if relevant

Respond ONLY with a JSON object in this structure. No extra text.
{
  "q": "location string",
  "days": number of days to forecast,
  "dt": "YYYY-MM-DD" (the meeting date),
  "hour": the meeting hour if relevant,
  "alerts": "yes",
  "aqi": "yes"
}`, wc.MeetingLocation, wc.MeetingTime.Format(time.RFC3339), wc.UserTimezone, wc.durationMinutes())
}

func buildNotificationSummaryPrompt(wc WeatherContext, weatherData any) string {
	return fmt.Sprintf(`You are creating a weather notification for an SMS message that will be sent 1 hour before a meeting.

Meeting Details:
- Location: %s
- Time: %s
- Duration: %d minutes
- User Timezone: %s

Weather Data:
%s

Your task is to provide actionable weather advice for this meeting. Consider:
1. The weather conditions at the meeting time and location
2. How the weather might affect travel to the meeting
3. What the person should bring or prepare for
4. Any weather-related considerations for the meeting itself

Provide a concise, actionable message that would be helpful to receive 1 hour before the meeting. Keep it under 160 characters for SMS compatibility.

Respond with a JSON object in this exact format:
{
  "weatherSummary": "Brief weather summary for the meeting time and location",
  "actionableAdvice": "Specific advice on what to bring or prepare for",
  "severity": "low|medium|high",
  "relevantAlerts": ["Any weather alerts or warnings"]
}

The severity should be:
- "low" for minor weather concerns
- "medium" for moderate weather issues
- "high" for significant weather problems

Respond ONLY with the JSON object. No extra text.`,
		wc.MeetingLocation, wc.MeetingTime.Format(time.RFC1123), wc.durationMinutes(), wc.UserTimezone, marshalForPrompt(weatherData))
}

func buildSMSMessagePrompt(meetingTitle, meetingTime string, res schema.NotificationResult) string {
	alerts := "None"
	if len(res.RelevantAlerts) > 0 {
		alerts = strings.Join(res.RelevantAlerts, ", ")
	}
	return fmt.Sprintf(`You are creating a weather notification SMS message for a meeting. The message should be:

- Short (1-2 sentences maximum)
- Actionable (tell them what to bring: umbrella, hat, sunscreen, etc.)
- Go straight to the point
- Mention any extreme weather (huge rain, hardcore heat, storms) with clear warnings
- Have a friendly, helpful tone

Meeting Details:
- Title: %s
- Time: %s

Weather Information:
- Summary: %s
- Actionable Advice: %s
- Severity: %s
- Alerts: %s

Generate a single, concise SMS message that combines this information. Keep it under 160 characters and make it immediately useful to someone heading to a meeting.`,
		meetingTitle, meetingTime, res.WeatherSummary, res.ActionableAdvice, res.Severity, alerts)
}

func marshalForPrompt(v any) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("%+v", v)
	}
	return string(data)
}
