package optimize

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/siherrmann/mesher/core/pipeline"
	"github.com/siherrmann/mesher/core/similarity"
	"github.com/siherrmann/mesher/helper"
	"github.com/siherrmann/mesher/model"
)

// minSentencesForVariance guards the sentence-length variance check against
// texts too short to judge
const minSentencesForVariance = 5

// lowSentenceVariance is the standard deviation below which sentence lengths
// count as monotonous
const lowSentenceVariance = 3.0

// exampleMarkers indicate the text illustrates its points
var exampleMarkers = []string{"for example", "for instance", "such as", "e g", "to illustrate"}

// ctaPhrases indicate a call to action
var ctaPhrases = []string{"learn more", "sign up", "get started", "contact us", "subscribe", "download", "try it", "read more"}

// lensInput bundles the arguments every lens receives
type lensInput struct {
	item        *model.ContentItem
	keywords    []string
	goals       []string
	competitors []string
}

// newSuggestion creates a suggestion with a fresh id
func newSuggestion(category model.SuggestionCategory, priority model.Priority, description, implementation string, impact map[string]float64, confidence float64, evidence model.Metadata) *model.OptimizationSuggestion {
	return &model.OptimizationSuggestion{
		SuggestionID:   uuid.New().String(),
		Category:       category,
		Priority:       priority,
		Description:    description,
		Implementation: implementation,
		ExpectedImpact: impact,
		Confidence:     confidence,
		Evidence:       evidence,
	}
}

// analyzeReadability checks grade level against the target, sentence length
// variance and overlong sentences
func (e *Engine) analyzeReadability(ctx context.Context, input *lensInput) ([]*model.OptimizationSuggestion, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	content := input.item.Content
	sentences := splitSentences(content)
	if len(sentences) == 0 {
		return nil, nil
	}

	var suggestions []*model.OptimizationSuggestion

	grade := fleschKincaidGrade(content)
	if grade > e.config.TargetGradeLevel+2 {
		priority := model.PriorityMedium
		if grade > e.config.TargetGradeLevel+5 {
			priority = model.PriorityHigh
		}
		suggestions = append(suggestions, newSuggestion(
			model.CategoryReadability, priority,
			fmt.Sprintf("Content reads at grade level %.1f, above the target of %.1f", grade, e.config.TargetGradeLevel),
			"Shorten sentences and prefer simpler words to lower the reading level",
			map[string]float64{"readability": 0.7, "engagement": 0.3},
			0.8,
			model.Metadata{"grade_level": grade, "target_grade_level": e.config.TargetGradeLevel},
		))
	}

	overlong := 0
	for _, sentence := range sentences {
		if countWords(sentence) > e.config.MaxSentenceWords {
			overlong++
		}
	}
	if overlong > 0 {
		suggestions = append(suggestions, newSuggestion(
			model.CategoryReadability, model.PriorityMedium,
			fmt.Sprintf("%d sentences exceed %d words", overlong, e.config.MaxSentenceWords),
			"Break long sentences into shorter ones",
			map[string]float64{"readability": 0.6},
			0.9,
			model.Metadata{"overlong_sentences": overlong},
		))
	}

	if len(sentences) >= minSentencesForVariance {
		if _, stddev := sentenceLengthStats(sentences); stddev < lowSentenceVariance {
			suggestions = append(suggestions, newSuggestion(
				model.CategoryReadability, model.PriorityLow,
				"Sentence lengths are monotonous",
				"Mix short and long sentences to improve flow",
				map[string]float64{"readability": 0.3, "engagement": 0.2},
				0.6,
				model.Metadata{"sentence_length_stddev": stddev},
			))
		}
	}

	return suggestions, nil
}

// analyzeStructure checks header usage, paragraph length and list usage
func (e *Engine) analyzeStructure(ctx context.Context, input *lensInput) ([]*model.OptimizationSuggestion, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	content := input.item.Content
	wordCount := countWords(content)
	var suggestions []*model.OptimizationSuggestion

	if wordCount > e.config.MinWordsForHeaders && !hasHeaders(content) {
		suggestions = append(suggestions, newSuggestion(
			model.CategoryStructure, model.PriorityMedium,
			fmt.Sprintf("Content of %d words has no headers", wordCount),
			"Add section headers to break up the content",
			map[string]float64{"structure": 0.7, "readability": 0.3},
			0.9,
			model.Metadata{"word_count": wordCount},
		))
	}

	longParagraphs := 0
	for _, paragraph := range splitParagraphs(content) {
		if countWords(paragraph) > e.config.MaxParagraphWords {
			longParagraphs++
		}
	}
	if longParagraphs > 0 {
		suggestions = append(suggestions, newSuggestion(
			model.CategoryStructure, model.PriorityMedium,
			fmt.Sprintf("%d paragraphs exceed %d words", longParagraphs, e.config.MaxParagraphWords),
			"Split long paragraphs into smaller ones",
			map[string]float64{"structure": 0.5, "readability": 0.4},
			0.8,
			model.Metadata{"long_paragraphs": longParagraphs},
		))
	}

	if wordCount > e.config.MinWordsForLists && !hasListMarkers(content) {
		suggestions = append(suggestions, newSuggestion(
			model.CategoryStructure, model.PriorityLow,
			"Long content contains no lists",
			"Convert enumerations into bullet or numbered lists",
			map[string]float64{"structure": 0.4, "engagement": 0.2},
			0.7,
			model.Metadata{"word_count": wordCount},
		))
	}

	return suggestions, nil
}

// analyzeKeywords checks target keyword presence and density, including
// stuffing detection at density above twice the target. Missing and
// underused keywords carry the content's semantically related terms as
// evidence, so the suggestion points at wording to build on.
func (e *Engine) analyzeKeywords(ctx context.Context, input *lensInput) ([]*model.OptimizationSuggestion, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	content := input.item.Content
	wordCount := countWords(content)
	if wordCount == 0 {
		return nil, nil
	}

	var suggestions []*model.OptimizationSuggestion
	for _, keyword := range input.keywords {
		occurrences := countOccurrences(content, keyword)
		if occurrences == 0 {
			implementation := fmt.Sprintf("Work %q naturally into the title, headers and body", keyword)
			evidence := model.Metadata{"keyword": keyword, "occurrences": 0}
			if related := e.relatedTerms(ctx, keyword, content); len(related) > 0 {
				implementation = fmt.Sprintf("Work %q naturally into the title, headers and body, building on related terms like %s",
					keyword, strings.Join(related, ", "))
				evidence["related_terms"] = related
			}
			suggestions = append(suggestions, newSuggestion(
				model.CategoryKeywords, model.PriorityHigh,
				fmt.Sprintf("Target keyword %q does not appear in the content", keyword),
				implementation,
				map[string]float64{"keywords": 0.8, "visibility": 0.6},
				0.95,
				evidence,
			))
			continue
		}

		density := 100 * float64(occurrences) / float64(wordCount)
		switch {
		case density > 2*e.config.TargetKeywordDensity:
			suggestions = append(suggestions, newSuggestion(
				model.CategoryKeywords, model.PriorityHigh,
				fmt.Sprintf("Keyword %q density %.1f%% suggests stuffing", keyword, density),
				fmt.Sprintf("Reduce repetitions of %q and use synonyms", keyword),
				map[string]float64{"keywords": 0.7, "readability": 0.3},
				0.85,
				model.Metadata{"keyword": keyword, "density": density},
			))
		case density < e.config.TargetKeywordDensity/2:
			evidence := model.Metadata{"keyword": keyword, "density": density}
			if related := e.relatedTerms(ctx, keyword, content); len(related) > 0 {
				evidence["related_terms"] = related
			}
			suggestions = append(suggestions, newSuggestion(
				model.CategoryKeywords, model.PriorityMedium,
				fmt.Sprintf("Keyword %q density %.1f%% is below the target of %.1f%%", keyword, density, e.config.TargetKeywordDensity),
				fmt.Sprintf("Mention %q a few more times where it fits naturally", keyword),
				map[string]float64{"keywords": 0.5},
				0.7,
				evidence,
			))
		}
	}

	return suggestions, nil
}

// relatedTerms finds terms of the content semantically close to the keyword.
// Embedding failures degrade to no related terms so the textual keyword
// checks still run.
func (e *Engine) relatedTerms(ctx context.Context, keyword, content string) []string {
	related, err := pipeline.LSIKeywords(ctx, e.embedder, keyword, []string{content}, e.config.RelatedKeywordCount)
	if err != nil {
		if ctx.Err() == nil {
			e.log.Warn("Related keyword lookup failed",
				slog.String("keyword", keyword),
				slog.String("error", err.Error()))
		}
		return nil
	}

	terms := make([]string, 0, len(related))
	for _, relatedKeyword := range related {
		terms = append(terms, relatedKeyword.Term)
	}
	return terms
}

// analyzeEngagement checks questions, example markers, calls to action and
// the emotional tone of the content. Classifier failures degrade to a
// neutral tone score instead of failing the lens.
func (e *Engine) analyzeEngagement(ctx context.Context, input *lensInput) ([]*model.OptimizationSuggestion, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	content := input.item.Content
	wordCount := countWords(content)
	var suggestions []*model.OptimizationSuggestion

	if wordCount > e.config.MinWordsForQuestions && !strings.Contains(content, "?") {
		suggestions = append(suggestions, newSuggestion(
			model.CategoryEngagement, model.PriorityLow,
			"Content asks no questions",
			"Add questions to draw readers in",
			map[string]float64{"engagement": 0.4},
			0.6,
			model.Metadata{"word_count": wordCount},
		))
	}

	hasExamples := false
	for _, marker := range exampleMarkers {
		if countOccurrences(content, marker) > 0 {
			hasExamples = true
			break
		}
	}
	if !hasExamples && wordCount > e.config.MinWordsForQuestions {
		suggestions = append(suggestions, newSuggestion(
			model.CategoryEngagement, model.PriorityMedium,
			"Content contains no examples",
			"Illustrate abstract points with concrete examples",
			map[string]float64{"engagement": 0.5, "readability": 0.2},
			0.7,
			nil,
		))
	}

	hasCTA := false
	for _, phrase := range ctaPhrases {
		if countOccurrences(content, phrase) > 0 {
			hasCTA = true
			break
		}
	}
	if !hasCTA {
		suggestions = append(suggestions, newSuggestion(
			model.CategoryEngagement, model.PriorityMedium,
			"Content has no call to action",
			"Close with a clear call to action",
			map[string]float64{"engagement": 0.6, "conversion": 0.5},
			0.8,
			nil,
		))
	}

	tone := e.emotionalTone(content)
	if tone < e.config.LowToneThreshold {
		suggestions = append(suggestions, newSuggestion(
			model.CategoryEngagement, model.PriorityLow,
			fmt.Sprintf("Emotional tone score %.2f is low", tone),
			"Use more positive, energetic language",
			map[string]float64{"engagement": 0.4},
			0.5,
			model.Metadata{"tone_score": tone},
		))
	}

	return suggestions, nil
}

// emotionalTone scores the content's tone via the classifier, degrading to
// the neutral score when the classifier is missing or fails
func (e *Engine) emotionalTone(content string) float64 {
	if e.classifier == nil {
		return e.config.NeutralTone
	}

	score, err := e.classifier(content)
	if err != nil {
		e.log.Warn("Tone classification failed, using neutral score", slog.String("error", err.Error()))
		return e.config.NeutralTone
	}
	return score
}

// analyzeCoherence embeds consecutive paragraphs and flags weak transitions
// and low overall coherence
func (e *Engine) analyzeCoherence(ctx context.Context, input *lensInput) ([]*model.OptimizationSuggestion, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	paragraphs := splitParagraphs(input.item.Content)
	if len(paragraphs) < 2 {
		return nil, nil
	}

	embeddings := make([][]float32, len(paragraphs))
	for i, paragraph := range paragraphs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		embedding, err := e.embedder(paragraph)
		if err != nil {
			return nil, helper.NewError("embed paragraph", err)
		}
		embeddings[i] = embedding
	}

	var suggestions []*model.OptimizationSuggestion
	weakTransitions := 0
	total := 0.0
	for i := 1; i < len(embeddings); i++ {
		matrix := e.similarity.PairwiseSimilarities([][]float32{embeddings[i-1], embeddings[i]},
			similarity.Config{Metric: similarity.MetricCosine})
		transition := matrix[0][1]
		total += transition
		if transition < e.config.WeakTransitionThreshold {
			weakTransitions++
		}
	}
	average := total / float64(len(embeddings)-1)

	if weakTransitions > 0 {
		suggestions = append(suggestions, newSuggestion(
			model.CategoryCoherence, model.PriorityMedium,
			fmt.Sprintf("%d paragraph transitions are semantically weak", weakTransitions),
			"Add transition sentences connecting adjacent paragraphs",
			map[string]float64{"coherence": 0.6, "readability": 0.3},
			0.75,
			model.Metadata{"weak_transitions": weakTransitions},
		))
	}

	if average < e.config.LowCoherenceThreshold {
		suggestions = append(suggestions, newSuggestion(
			model.CategoryCoherence, model.PriorityHigh,
			fmt.Sprintf("Overall semantic coherence %.2f is low", average),
			"Restructure the content around a single clear theme",
			map[string]float64{"coherence": 0.8},
			0.7,
			model.Metadata{"average_coherence": average},
		))
	}

	return suggestions, nil
}

// analyzeCompetitive compares the content against competitor samples; only
// runs when competitor text is supplied
func (e *Engine) analyzeCompetitive(ctx context.Context, input *lensInput) ([]*model.OptimizationSuggestion, error) {
	if len(input.competitors) == 0 {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	contentEmbedding, err := e.embedder(input.item.Content)
	if err != nil {
		return nil, helper.NewError("embed content", err)
	}

	var suggestions []*model.OptimizationSuggestion
	totalSimilarity := 0.0
	totalWords := 0
	for _, competitor := range input.competitors {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		competitorEmbedding, err := e.embedder(competitor)
		if err != nil {
			return nil, helper.NewError("embed competitor content", err)
		}
		matrix := e.similarity.PairwiseSimilarities([][]float32{contentEmbedding, competitorEmbedding},
			similarity.Config{Metric: similarity.MetricCosine})
		totalSimilarity += matrix[0][1]
		totalWords += countWords(competitor)
	}
	averageSimilarity := totalSimilarity / float64(len(input.competitors))
	averageWords := float64(totalWords) / float64(len(input.competitors))

	if averageSimilarity > e.config.CompetitorSimilarityCeiling {
		suggestions = append(suggestions, newSuggestion(
			model.CategoryCompetitive, model.PriorityHigh,
			fmt.Sprintf("Content is %.0f%% similar to competitor content", 100*averageSimilarity),
			"Differentiate with unique angles, data or examples",
			map[string]float64{"differentiation": 0.8, "visibility": 0.4},
			0.8,
			model.Metadata{"competitor_similarity": averageSimilarity},
		))
	}

	wordCount := countWords(input.item.Content)
	if averageWords > 0 && float64(wordCount) < 0.7*averageWords {
		suggestions = append(suggestions, newSuggestion(
			model.CategoryCompetitive, model.PriorityMedium,
			fmt.Sprintf("Content is %d words, competitors average %.0f", wordCount, averageWords),
			"Expand the content to match competitor depth",
			map[string]float64{"depth": 0.6, "visibility": 0.4},
			0.7,
			model.Metadata{"word_count": wordCount, "competitor_average_words": averageWords},
		))
	}

	return suggestions, nil
}
