package extract

import "fmt"

// PromptBuilder returns the base prompt for one extraction target.
type PromptBuilder func() string

// retryPrefixes are prepended to the base prompt on retries, in order of
// escalating severity. The last entry repeats for any further attempts.
// Quoting the previous failure alongside the directive measurably improves
// strict-JSON compliance on models that drift under repetition.
var retryPrefixes = []string{
	"⚠️ CRITICAL: You must respond with ONLY valid JSON%s. No explanations, no markdown formatting, no code blocks.",
	"🚨 URGENT: Return ONLY a valid JSON object%s. Do not include any text before or after the JSON.",
	"💥 FINAL WARNING: Your response must be pure JSON only%s. No ```json``` blocks, no explanations, no extra text.",
}

// BuildRetryPrompt returns the prompt to send for the given 1-based attempt.
// Attempt 1 is the base prompt verbatim. Later attempts are prefixed with an
// escalating directive and, when previousError is non-empty, a quote of the
// failure that invalidated the previous response.
func BuildRetryPrompt(base PromptBuilder, allowNull bool, attempt int, previousError string) string {
	basePrompt := base()
	if attempt <= 1 {
		return basePrompt
	}

	nullText := ""
	if allowNull {
		nullText = " or 'null'"
	}
	idx := attempt - 2
	if idx >= len(retryPrefixes) {
		idx = len(retryPrefixes) - 1
	}
	prompt := fmt.Sprintf(retryPrefixes[idx], nullText) + "\n\n"
	if previousError != "" {
		prompt += fmt.Sprintf("Previous response was invalid: %q\n\n", previousError)
	}
	return prompt + basePrompt
}
