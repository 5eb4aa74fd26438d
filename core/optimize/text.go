package optimize

import (
	"math"
	"strings"
	"unicode"
)

// splitSentences splits text on sentence-ending punctuation, dropping empty
// fragments
func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	for _, r := range text {
		current.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			sentence := strings.TrimSpace(current.String())
			if sentence != "" && sentence != "." && sentence != "!" && sentence != "?" {
				sentences = append(sentences, sentence)
			}
			current.Reset()
		}
	}
	if sentence := strings.TrimSpace(current.String()); sentence != "" {
		sentences = append(sentences, sentence)
	}

	return sentences
}

// splitParagraphs splits text on blank lines, dropping empty paragraphs
func splitParagraphs(text string) []string {
	var paragraphs []string
	for _, block := range strings.Split(text, "\n\n") {
		if paragraph := strings.TrimSpace(block); paragraph != "" {
			paragraphs = append(paragraphs, paragraph)
		}
	}
	return paragraphs
}

func countWords(text string) int {
	return len(strings.Fields(text))
}

// countSyllables estimates the syllables of a word by counting vowel groups,
// with a silent-e correction. An estimate, not a dictionary lookup.
func countSyllables(word string) int {
	word = strings.ToLower(strings.TrimFunc(word, func(r rune) bool {
		return !unicode.IsLetter(r)
	}))
	if word == "" {
		return 0
	}

	isVowel := func(r rune) bool {
		return strings.ContainsRune("aeiouy", r)
	}

	count := 0
	previousVowel := false
	for _, r := range word {
		vowel := isVowel(r)
		if vowel && !previousVowel {
			count++
		}
		previousVowel = vowel
	}

	if strings.HasSuffix(word, "e") && !strings.HasSuffix(word, "le") &&
		!strings.HasSuffix(word, "ee") && count > 1 {
		count--
	}
	if count == 0 {
		count = 1
	}

	return count
}

// fleschKincaidGrade computes the Flesch-Kincaid grade level of a text;
// 0 for empty text
func fleschKincaidGrade(text string) float64 {
	sentences := splitSentences(text)
	words := strings.Fields(text)
	if len(sentences) == 0 || len(words) == 0 {
		return 0
	}

	syllables := 0
	for _, word := range words {
		syllables += countSyllables(word)
	}

	grade := 0.39*(float64(len(words))/float64(len(sentences))) +
		11.8*(float64(syllables)/float64(len(words))) - 15.59
	if grade < 0 {
		grade = 0
	}
	return grade
}

// sentenceLengthStats returns the mean and standard deviation of sentence
// word counts
func sentenceLengthStats(sentences []string) (mean, stddev float64) {
	if len(sentences) == 0 {
		return 0, 0
	}

	lengths := make([]float64, len(sentences))
	total := 0.0
	for i, sentence := range sentences {
		lengths[i] = float64(countWords(sentence))
		total += lengths[i]
	}
	mean = total / float64(len(sentences))

	variance := 0.0
	for _, length := range lengths {
		variance += (length - mean) * (length - mean)
	}
	variance /= float64(len(sentences))

	return mean, math.Sqrt(variance)
}

// wordTokens splits text into lowercased word tokens
func wordTokens(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

// countOccurrences counts whole-word, case-insensitive occurrences of a
// phrase in a text, including overlapping multi-word matches
func countOccurrences(text, phrase string) int {
	words := wordTokens(text)
	phraseWords := wordTokens(phrase)
	if len(phraseWords) == 0 {
		return 0
	}

	count := 0
	for i := 0; i+len(phraseWords) <= len(words); i++ {
		match := true
		for j, phraseWord := range phraseWords {
			if words[i+j] != phraseWord {
				match = false
				break
			}
		}
		if match {
			count++
		}
	}
	return count
}

// hasHeaders reports whether the text contains markdown or HTML headers
func hasHeaders(text string) bool {
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") || strings.HasPrefix(strings.ToLower(trimmed), "<h") {
			return true
		}
	}
	return false
}

// hasListMarkers reports whether the text contains markdown or HTML lists
func hasListMarkers(text string) bool {
	lowered := strings.ToLower(text)
	if strings.Contains(lowered, "<ul") || strings.Contains(lowered, "<ol") {
		return true
	}
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "- ") || strings.HasPrefix(trimmed, "* ") ||
			strings.HasPrefix(trimmed, "1. ") {
			return true
		}
	}
	return false
}
