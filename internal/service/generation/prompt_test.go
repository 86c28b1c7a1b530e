package generation

import (
	"strings"
	"testing"
)

func TestBuildSystemPromptBaseRules(t *testing.T) {
	prompt := BuildSystemPrompt("en", nil)

	for _, want := range []string{"diagnosis", "dosages", "health professional"} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("prompt missing %q:\n%s", want, prompt)
		}
	}
	if strings.Contains(prompt, "safety review") {
		t.Fatal("no rejection preamble without constraints")
	}
	if strings.Contains(prompt, "Answer in the language") {
		t.Fatal("English needs no language directive")
	}
}

func TestBuildSystemPromptConstraints(t *testing.T) {
	constraints := []string{
		"Do not state or imply a diagnosis; present general educational information and advise consulting a professional.",
		"Use shorter sentences and plainer words.",
	}
	prompt := BuildSystemPrompt("en", constraints)

	if !strings.Contains(prompt, "rejected by a safety review") {
		t.Fatalf("constraint preamble missing:\n%s", prompt)
	}
	for _, c := range constraints {
		if !strings.Contains(prompt, c) {
			t.Fatalf("constraint %q missing:\n%s", c, prompt)
		}
	}
}

func TestBuildSystemPromptLanguageDirective(t *testing.T) {
	prompt := BuildSystemPrompt("es", nil)
	if !strings.Contains(prompt, "Answer in the language tagged es") {
		t.Fatalf("language directive missing:\n%s", prompt)
	}

	// Regioned English counts as English.
	if p := BuildSystemPrompt("en-GB", nil); strings.Contains(p, "Answer in the language") {
		t.Fatal("en-GB should not get a language directive")
	}
}
