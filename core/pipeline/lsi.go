package pipeline

import (
	"context"
	"sort"
	"strings"
	"unicode"

	"github.com/siherrmann/mesher/helper"
)

// LSIKeyword is a term semantically related to a target keyword
type LSIKeyword struct {
	Term       string  `json:"term"`
	Similarity float64 `json:"similarity"`
}

// LSIKeywords finds terms semantically related to the target keyword by
// embedding similarity over the corpus vocabulary, instead of exact
// co-occurrence. Terms equal to the keyword itself are excluded. Returns up
// to topN keywords ordered by descending similarity.
func LSIKeywords(ctx context.Context, embedder EmbedFunc, keyword string, corpus []string, topN int) ([]LSIKeyword, error) {
	if topN <= 0 || strings.TrimSpace(keyword) == "" {
		return nil, nil
	}

	vocabulary := buildVocabulary(corpus)
	if len(vocabulary) == 0 {
		return nil, nil
	}

	keywordEmbedding, err := embedder(strings.ToLower(keyword))
	if err != nil {
		return nil, helper.NewError("embed keyword", err)
	}

	lowerKeyword := strings.ToLower(keyword)
	var results []LSIKeyword
	for _, term := range vocabulary {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if term == lowerKeyword {
			continue
		}

		termEmbedding, err := embedder(term)
		if err != nil {
			return nil, helper.NewError("embed term", err)
		}

		similarity := float64(cosineSimilarity(keywordEmbedding, termEmbedding))
		results = append(results, LSIKeyword{Term: term, Similarity: similarity})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})

	if len(results) > topN {
		results = results[:topN]
	}

	return results, nil
}

// stopwords excluded from the LSI vocabulary
var stopwords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true, "but": true,
	"is": true, "are": true, "was": true, "were": true, "be": true, "been": true,
	"to": true, "of": true, "in": true, "on": true, "at": true, "for": true,
	"with": true, "by": true, "from": true, "as": true, "it": true, "its": true,
	"this": true, "that": true, "these": true, "those": true, "you": true,
	"your": true, "we": true, "our": true, "they": true, "their": true,
	"he": true, "she": true, "his": true, "her": true, "not": true, "no": true,
	"can": true, "will": true, "would": true, "should": true, "could": true,
	"have": true, "has": true, "had": true, "do": true, "does": true, "did": true,
	"if": true, "then": true, "than": true, "so": true, "all": true, "more": true,
	"most": true, "some": true, "such": true, "into": true, "about": true,
	"also": true, "there": true, "when": true, "what": true, "which": true,
	"who": true, "how": true, "why": true, "where": true, "up": true, "out": true,
}

// buildVocabulary extracts the unique, lowercased, stopword-filtered terms
// of a corpus, keeping their first-seen order
func buildVocabulary(corpus []string) []string {
	seen := make(map[string]bool)
	var vocabulary []string

	for _, text := range corpus {
		for _, word := range ContentWords(text) {
			if seen[word] {
				continue
			}
			seen[word] = true
			vocabulary = append(vocabulary, word)
		}
	}

	return vocabulary
}

// ContentWords returns the lowercased word tokens of a text with stopwords
// and words shorter than 3 characters removed
func ContentWords(text string) []string {
	var words []string
	for _, word := range Tokenize(text) {
		if len(word) < 3 || stopwords[word] {
			continue
		}
		words = append(words, word)
	}
	return words
}

// Tokenize splits text into lowercased word tokens, dropping punctuation
func Tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}
