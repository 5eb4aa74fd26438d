package optimize

import (
	"context"
	"log/slog"
	"sort"

	"github.com/siherrmann/mesher/core/pipeline"
	"github.com/siherrmann/mesher/core/similarity"
	"github.com/siherrmann/mesher/model"
	"golang.org/x/sync/errgroup"
)

// priorityWeights map priority labels to their ranking weight
var priorityWeights = map[model.Priority]float64{
	model.PriorityHigh:   3,
	model.PriorityMedium: 2,
	model.PriorityLow:    1,
}

// Engine produces per-document optimization suggestions across independent
// analytic lenses. The engine is stateless across calls.
type Engine struct {
	similarity *similarity.Engine
	embedder   pipeline.EmbedFunc
	classifier pipeline.ClassifyFunc
	config     model.OptimizeConfig
	log        *slog.Logger
}

// NewEngine creates an optimization engine. The classifier may be nil; the
// engagement lens then scores tone as neutral.
func NewEngine(similarityEngine *similarity.Engine, embedder pipeline.EmbedFunc, classifier pipeline.ClassifyFunc, config model.OptimizeConfig, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		similarity: similarityEngine,
		embedder:   embedder,
		classifier: classifier,
		config:     config,
		log:        logger,
	}
}

// lens pairs a lens name with its analysis function
type lens struct {
	name string
	run  func(context.Context, *lensInput) ([]*model.OptimizationSuggestion, error)
}

// GenerateOptimizations runs all analysis lenses concurrently over one
// content item and merges their suggestions in lens declaration order, not
// completion order. A failing lens does not abort the others; its failure is
// recorded in the returned metadata under "failed_lenses". Context
// cancellation aborts the whole run.
func (e *Engine) GenerateOptimizations(ctx context.Context, item *model.ContentItem, keywords []string, goals []string, competitors []string) ([]*model.OptimizationSuggestion, model.Metadata, error) {
	input := &lensInput{
		item:        item,
		keywords:    keywords,
		goals:       goals,
		competitors: competitors,
	}

	lenses := []lens{
		{"readability", e.analyzeReadability},
		{"structure", e.analyzeStructure},
		{"keywords", e.analyzeKeywords},
		{"engagement", e.analyzeEngagement},
		{"semantic_coherence", e.analyzeCoherence},
		{"competitive", e.analyzeCompetitive},
	}

	results := make([][]*model.OptimizationSuggestion, len(lenses))
	failures := make([]error, len(lenses))

	group, groupCtx := errgroup.WithContext(ctx)
	concurrency := e.config.LensConcurrency
	if concurrency < 1 {
		concurrency = len(lenses)
	}
	group.SetLimit(concurrency)

	for i, l := range lenses {
		group.Go(func() error {
			suggestions, err := l.run(groupCtx, input)
			if err != nil {
				// Context errors abort the run, lens errors only fail the lens
				if groupCtx.Err() != nil {
					return err
				}
				failures[i] = err
				return nil
			}
			results[i] = suggestions
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, nil, err
	}

	var suggestions []*model.OptimizationSuggestion
	for _, lensSuggestions := range results {
		suggestions = append(suggestions, lensSuggestions...)
	}

	metadata := model.Metadata{}
	failedLenses := map[string]string{}
	for i, err := range failures {
		if err == nil {
			continue
		}
		failedLenses[lenses[i].name] = err.Error()
		e.log.Warn("Optimization lens failed",
			slog.String("lens", lenses[i].name),
			slog.String("error", err.Error()))
	}
	if len(failedLenses) > 0 {
		metadata["failed_lenses"] = failedLenses
	}

	e.log.Info("Generated optimizations",
		slog.String("content_id", item.ID),
		slog.Int("suggestions", len(suggestions)),
		slog.Int("failed_lenses", len(failedLenses)))

	return suggestions, metadata, nil
}

// Prioritize annotates every suggestion with its priority score and stably
// sorts descending by it. The score combines the priority label (40%), the
// mean expected impact (40%) and the confidence (20%).
func (e *Engine) Prioritize(suggestions []*model.OptimizationSuggestion) []*model.OptimizationSuggestion {
	for _, suggestion := range suggestions {
		impact := 0.0
		if len(suggestion.ExpectedImpact) > 0 {
			for _, value := range suggestion.ExpectedImpact {
				impact += value
			}
			impact /= float64(len(suggestion.ExpectedImpact))
		}
		suggestion.PriorityScore = 0.4*priorityWeights[suggestion.Priority] +
			0.4*impact + 0.2*suggestion.Confidence
	}

	sort.SliceStable(suggestions, func(i, j int) bool {
		return suggestions[i].PriorityScore > suggestions[j].PriorityScore
	})

	return suggestions
}

// Report aggregates suggestions into counts by category, a normalized
// expected impact per metric and an implementation plan bucketed strictly by
// priority label
func (e *Engine) Report(suggestions []*model.OptimizationSuggestion) *model.OptimizationReport {
	report := &model.OptimizationReport{
		TotalSuggestions: len(suggestions),
		CountsByCategory: make(map[model.SuggestionCategory]int),
	}
	if len(suggestions) == 0 {
		return report
	}

	impact := make(map[string]float64)
	for _, suggestion := range suggestions {
		report.CountsByCategory[suggestion.Category]++

		for metric, value := range suggestion.ExpectedImpact {
			impact[metric] += value
		}

		switch suggestion.Priority {
		case model.PriorityHigh:
			report.Plan.Immediate = append(report.Plan.Immediate, suggestion.Description)
		case model.PriorityMedium:
			report.Plan.ShortTerm = append(report.Plan.ShortTerm, suggestion.Description)
		default:
			report.Plan.LongTerm = append(report.Plan.LongTerm, suggestion.Description)
		}
	}

	// Normalize summed impact to [0,1] per metric
	maxImpact := 0.0
	for _, value := range impact {
		if value > maxImpact {
			maxImpact = value
		}
	}
	if maxImpact > 0 {
		for metric, value := range impact {
			impact[metric] = value / maxImpact
		}
	}
	report.ExpectedImpact = impact

	return report
}
