package knowledge

import (
	"fmt"
	"strings"
)

// FallbackResponse builds the pre-validated safe educational answer used
// when generation attempts are exhausted. Topic-specific when the store
// knows the topic, topic-agnostic otherwise. Returns the text and the
// sources backing it.
func FallbackResponse(store Store, topic, language string) (string, []string) {
	if topic != "" {
		facts := store.Lookup(topic, language)
		if len(facts) > 0 {
			var b strings.Builder
			fmt.Fprintf(&b, "Here is some general information about %s:\n", topic)
			sources := make([]string, 0, len(facts))
			for _, f := range facts {
				b.WriteString("- ")
				b.WriteString(f.Statement)
				b.WriteString("\n")
				sources = append(sources, f.Source)
			}
			b.WriteString("\nFor guidance about your own situation, please talk to a qualified health professional.")
			return b.String(), sources
		}
	}

	return "I can share general health information, but I was not able to put together a reliable answer to this question. " +
		"A qualified health professional is the right person to ask about your specific situation.", nil
}
