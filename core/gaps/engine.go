package gaps

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/google/uuid"
	"github.com/siherrmann/mesher/core/pipeline"
	"github.com/siherrmann/mesher/core/similarity"
	"github.com/siherrmann/mesher/helper"
	"github.com/siherrmann/mesher/model"
)

// criticalSeverity marks gaps as critical in reports and bounds the
// immediate action-plan bucket
const criticalSeverity = 0.8

// shortTermSeverity bounds the short-term action-plan bucket
const shortTermSeverity = 0.6

// Engine detects semantic gaps in a content corpus: missing or weakly
// covered topics, isolated content, sparse regions and competitor
// advantages. The engine is stateless across calls; all state lives in the
// arguments and the returned gaps.
type Engine struct {
	similarity *similarity.Engine
	embedder   pipeline.EmbedFunc
	config     model.GapConfig
	log        *slog.Logger
}

// NewEngine creates a gap analysis engine
func NewEngine(similarityEngine *similarity.Engine, embedder pipeline.EmbedFunc, config model.GapConfig, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		similarity: similarityEngine,
		embedder:   embedder,
		config:     config,
		log:        logger,
	}
}

// AnalyzeGaps runs the full gap analysis: topic modeling, coverage analysis
// against reference topics, density analysis and optional competitive
// analysis. Density analysis is skipped entirely with fewer than 2 items;
// topic modeling failures propagate since every later phase depends on the
// topics.
func (e *Engine) AnalyzeGaps(ctx context.Context, items []*model.ContentItem, embeddings [][]float32, referenceTopics []string, competitors []string) ([]*model.SemanticGap, error) {
	if len(items) != len(embeddings) {
		return nil, helper.NewError("analyze gaps",
			fmt.Errorf("got %d embeddings for %d items", len(embeddings), len(items)))
	}

	texts := make([]string, len(items))
	for i, item := range items {
		texts[i] = item.Title + "\n" + item.Content
	}

	topics, err := ModelTopics(e.similarity, TopicMethod(e.config.TopicMethod), texts, embeddings, e.config.TopicCount)
	if err != nil {
		return nil, helper.NewError("topic modeling", err)
	}

	var gaps []*model.SemanticGap

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	coverageGaps, err := e.analyzeCoverage(topics, referenceTopics)
	if err != nil {
		return nil, err
	}
	gaps = append(gaps, coverageGaps...)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(items) >= 2 {
		densityGaps, err := e.analyzeDensity(items, embeddings)
		if err != nil {
			return nil, err
		}
		gaps = append(gaps, densityGaps...)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(competitors) > 0 {
		competitiveGaps, err := e.analyzeCompetitive(items, embeddings, competitors)
		if err != nil {
			return nil, err
		}
		gaps = append(gaps, competitiveGaps...)
	}

	e.log.Info("Analyzed semantic gaps",
		slog.Int("topics", len(topics)),
		slog.Int("gaps", len(gaps)))

	return gaps, nil
}

// analyzeCoverage compares reference topics against discovered topic
// summaries and flags weakly coherent or tiny topics
func (e *Engine) analyzeCoverage(topics []*Topic, referenceTopics []string) ([]*model.SemanticGap, error) {
	var gaps []*model.SemanticGap

	if len(referenceTopics) > 0 {
		summaryEmbeddings := make([][]float32, len(topics))
		for i, topic := range topics {
			embedding, err := e.embedder(topic.Summary())
			if err != nil {
				return nil, helper.NewError("embed topic summary", err)
			}
			summaryEmbeddings[i] = embedding
		}

		for _, referenceTopic := range referenceTopics {
			referenceEmbedding, err := e.embedder(referenceTopic)
			if err != nil {
				return nil, helper.NewError("embed reference topic", err)
			}

			best := bestSimilarity(e.similarity, referenceEmbedding, summaryEmbeddings)
			if best < e.config.CoverageThreshold {
				gaps = append(gaps, &model.SemanticGap{
					GapID:          uuid.New().String(),
					GapType:        model.GapTypeMissingTopic,
					Description:    fmt.Sprintf("Reference topic %q is not covered by the content", referenceTopic),
					Severity:       1 - best,
					AffectedTopics: []string{referenceTopic},
					Recommendations: []string{
						fmt.Sprintf("Create content covering %q", referenceTopic),
					},
					Evidence: model.Metadata{"best_coverage": best},
				})
			}
		}
	}

	for _, topic := range topics {
		if topic.Coherence >= e.config.CoherenceThreshold && topic.Size >= e.config.MinTopicSize {
			continue
		}
		gaps = append(gaps, &model.SemanticGap{
			GapID:          uuid.New().String(),
			GapType:        model.GapTypeWeakCoverage,
			Description:    fmt.Sprintf("Topic %d (%s) has weak coverage", topic.ID, topic.Summary()),
			Severity:       e.config.WeakCoverageSeverity,
			AffectedTopics: topic.Words,
			Recommendations: []string{
				fmt.Sprintf("Strengthen content around: %s", topic.Summary()),
			},
			Evidence: model.Metadata{
				"coherence":  topic.Coherence,
				"topic_size": topic.Size,
			},
		})
	}

	return gaps, nil
}

// analyzeDensity flags isolated content items and sparse similarity regions
func (e *Engine) analyzeDensity(items []*model.ContentItem, embeddings [][]float32) ([]*model.SemanticGap, error) {
	var gaps []*model.SemanticGap

	matrix := e.similarity.PairwiseSimilarities(embeddings, similarity.Config{Metric: similarity.MetricCosine})
	for i, item := range items {
		best := 0.0
		for j := range items {
			if i == j {
				continue
			}
			if matrix[i][j] > best {
				best = matrix[i][j]
			}
		}
		if best < e.config.IslandSimilarityCeiling {
			gaps = append(gaps, &model.SemanticGap{
				GapID:          uuid.New().String(),
				GapType:        model.GapTypeContentIsland,
				Description:    fmt.Sprintf("Content %q is semantically isolated from the rest of the corpus", item.Title),
				Severity:       e.config.IslandSeverity,
				AffectedTopics: []string{item.Title},
				Recommendations: []string{
					fmt.Sprintf("Create related content linking %q to the corpus", item.Title),
				},
				Evidence: model.Metadata{"best_similarity": best, "content_id": item.ID},
			})
		}
	}

	_, info, err := e.similarity.ClusterEmbeddings(embeddings, 0, similarity.ClusterConfig{
		Algorithm: similarity.AlgorithmDBSCAN,
		Threshold: e.config.ClusterThreshold,
		MinPoints: 2,
	})
	if err != nil {
		return nil, helper.NewError("cluster corpus", err)
	}
	for _, cluster := range info {
		if cluster.Size >= e.config.SparseClusterSize {
			continue
		}
		gaps = append(gaps, &model.SemanticGap{
			GapID:       uuid.New().String(),
			GapType:     model.GapTypeSparseRegion,
			Description: fmt.Sprintf("Semantic region %d contains only %d items", cluster.ID, cluster.Size),
			Severity:    e.config.SparseRegionSeverity,
			Recommendations: []string{
				"Expand thin topic areas with additional content",
			},
			Evidence: model.Metadata{"cluster_id": cluster.ID, "cluster_size": cluster.Size},
		})
	}

	return gaps, nil
}

// analyzeCompetitive finds competitor content without a good match in the
// own corpus
func (e *Engine) analyzeCompetitive(items []*model.ContentItem, embeddings [][]float32, competitors []string) ([]*model.SemanticGap, error) {
	var gaps []*model.SemanticGap

	for i, competitor := range competitors {
		competitorEmbedding, err := e.embedder(competitor)
		if err != nil {
			return nil, helper.NewError("embed competitor content", err)
		}

		best := bestSimilarity(e.similarity, competitorEmbedding, embeddings)
		if best < e.config.CoverageThreshold {
			gaps = append(gaps, &model.SemanticGap{
				GapID:       uuid.New().String(),
				GapType:     model.GapTypeCompetitorAdvantage,
				Description: fmt.Sprintf("Competitor covers content %d with no good match in the corpus", i+1),
				Severity:    1 - best,
				Recommendations: []string{
					"Create content matching the competitor's coverage",
				},
				Evidence: model.Metadata{"best_match": best, "competitor_index": i},
			})
		}
	}

	return gaps, nil
}

// bestSimilarity returns the maximum cosine similarity between a query and a
// set of embeddings, 0 when the set is empty
func bestSimilarity(engine *similarity.Engine, query []float32, embeddings [][]float32) float64 {
	best := 0.0
	for _, embedding := range embeddings {
		matrix := engine.PairwiseSimilarities([][]float32{query, embedding},
			similarity.Config{Metric: similarity.MetricCosine})
		if matrix[0][1] > best {
			best = matrix[0][1]
		}
	}
	return best
}

// PrioritizeGaps annotates every gap with priority = severity × type weight
// and stably sorts descending by it. Nil weights fall back to the defaults.
// The call is idempotent: repeated calls yield the same order and scores.
func (e *Engine) PrioritizeGaps(gaps []*model.SemanticGap, weights map[model.GapType]float64) []*model.SemanticGap {
	if weights == nil {
		weights = e.config.TypeWeights
	}
	if weights == nil {
		weights = model.DefaultGapTypeWeights()
	}

	for _, gap := range gaps {
		weight, ok := weights[gap.GapType]
		if !ok {
			weight = 0.5
		}
		gap.PriorityScore = gap.Severity * weight
	}

	sort.SliceStable(gaps, func(i, j int) bool {
		return gaps[i].PriorityScore > gaps[j].PriorityScore
	})

	return gaps
}

// Report aggregates gaps into counts by type, a critical count and an action
// plan bucketed by severity with deduplicated recommendations per bucket
func (e *Engine) Report(gaps []*model.SemanticGap) *model.GapReport {
	report := &model.GapReport{
		TotalGaps:    len(gaps),
		CountsByType: make(map[model.GapType]int),
	}

	seen := map[string]map[string]bool{
		"immediate":  {},
		"short_term": {},
		"long_term":  {},
	}

	for _, gap := range gaps {
		report.CountsByType[gap.GapType]++
		if gap.Severity > criticalSeverity {
			report.CriticalCount++
		}

		for _, recommendation := range gap.Recommendations {
			switch {
			case gap.Severity > criticalSeverity:
				if !seen["immediate"][recommendation] {
					seen["immediate"][recommendation] = true
					report.ActionPlan.Immediate = append(report.ActionPlan.Immediate, recommendation)
				}
			case gap.Severity > shortTermSeverity:
				if !seen["short_term"][recommendation] {
					seen["short_term"][recommendation] = true
					report.ActionPlan.ShortTerm = append(report.ActionPlan.ShortTerm, recommendation)
				}
			default:
				if !seen["long_term"][recommendation] {
					seen["long_term"][recommendation] = true
					report.ActionPlan.LongTerm = append(report.ActionPlan.LongTerm, recommendation)
				}
			}
		}
	}

	return report
}
