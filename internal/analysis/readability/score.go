package readability

import (
	"strings"
	"unicode"
)

// GradeLevel estimates the US school grade needed to read the text, using
// the Flesch-Kincaid grade formula over heuristic syllable counts. Pure and
// deterministic; returns 0 for empty input.
func GradeLevel(text string) float64 {
	words := fields(text)
	if len(words) == 0 {
		return 0
	}

	sentences := countSentences(text)
	if sentences == 0 {
		sentences = 1
	}

	syllables := 0
	for _, w := range words {
		syllables += countSyllables(w)
	}

	wordCount := float64(len(words))
	grade := 0.39*(wordCount/float64(sentences)) + 11.8*(float64(syllables)/wordCount) - 15.59
	if grade < 0 {
		return 0
	}
	return grade
}

func fields(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r) && r != '\''
	})
}

func countSentences(text string) int {
	count := 0
	for _, r := range text {
		switch r {
		case '.', '!', '?':
			count++
		}
	}
	return count
}

// countSyllables approximates syllables as runs of vowels, with the common
// silent-e adjustment. Good enough for a grade-level gate; exact phonetics
// is not the point.
func countSyllables(word string) int {
	word = strings.ToLower(word)
	const vowels = "aeiouy"

	count := 0
	prevVowel := false
	for _, r := range word {
		isVowel := strings.ContainsRune(vowels, r)
		if isVowel && !prevVowel {
			count++
		}
		prevVowel = isVowel
	}

	if strings.HasSuffix(word, "e") && !strings.HasSuffix(word, "le") && count > 1 {
		count--
	}
	if count == 0 {
		count = 1
	}
	return count
}
