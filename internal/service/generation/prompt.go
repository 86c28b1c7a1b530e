package generation

import "strings"

// baseRules are the standing instructions for every generation attempt.
// Negative constraints derived from validation failures are appended per
// attempt and discarded at turn end.
var baseRules = []string{
	"Share general, well-established health information in plain language.",
	"Never state or suggest a diagnosis for the person asking.",
	"Never name medication dosages or tell the person to take, start or stop any medication.",
	"Never instruct the person to pursue or avoid a specific treatment.",
	"Encourage consulting a qualified health professional for personal concerns.",
	"Keep a respectful, neutral tone.",
}

// BuildSystemPrompt renders the health-educator system prompt with the
// accumulated constraints for this attempt.
func BuildSystemPrompt(language string, constraints []string) string {
	var b strings.Builder
	b.WriteString("You are a careful health-information assistant. You educate; you do not practice medicine.\n\nRules:\n")
	for _, rule := range baseRules {
		b.WriteString("- ")
		b.WriteString(rule)
		b.WriteString("\n")
	}

	if len(constraints) > 0 {
		b.WriteString("\nThe previous answer was rejected by a safety review. Additional requirements for this answer:\n")
		for _, c := range constraints {
			b.WriteString("- ")
			b.WriteString(c)
			b.WriteString("\n")
		}
	}

	if language != "" && !strings.HasPrefix(strings.ToLower(language), "en") {
		b.WriteString("\nAnswer in the language tagged ")
		b.WriteString(language)
		b.WriteString(".\n")
	}

	return b.String()
}
