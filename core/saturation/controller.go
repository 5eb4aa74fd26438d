// Package saturation orchestrates a full semantic saturation analysis run:
// embedding generation, mesh construction, gap analysis, per-item
// optimization and result aggregation. Stages run sequentially; each stage
// waits for the previous one to finish before starting.
package saturation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	cache "github.com/patrickmn/go-cache"
	"github.com/siherrmann/mesher/core/gaps"
	"github.com/siherrmann/mesher/core/mesh"
	"github.com/siherrmann/mesher/core/optimize"
	"github.com/siherrmann/mesher/core/pipeline"
	"github.com/siherrmann/mesher/core/similarity"
	"github.com/siherrmann/mesher/database"
	"github.com/siherrmann/mesher/helper"
	"github.com/siherrmann/mesher/model"
)

// Controller runs analysis requests end to end. Results are cached in
// memory and, when handlers are configured, persisted to the database.
// The store handlers are optional; a nil handler disables persistence for
// that concern.
type Controller struct {
	pipeline *pipeline.Pipeline
	results  *cache.Cache
	store    database.ResultsDBHandlerFunctions
	contents database.ContentsDBHandlerFunctions
	log      *slog.Logger
}

// NewController creates an analysis controller. The pipeline is required;
// resultCache, store and contents are optional (a nil resultCache gets an
// in-memory cache with the default analysis TTL).
func NewController(proc *pipeline.Pipeline, resultCache *cache.Cache, store database.ResultsDBHandlerFunctions, contents database.ContentsDBHandlerFunctions, logger *slog.Logger) (*Controller, error) {
	if proc == nil {
		return nil, helper.NewError("pipeline validation", fmt.Errorf("pipeline is nil"))
	}
	if logger == nil {
		logger = slog.Default()
	}
	if resultCache == nil {
		ttl := model.DefaultAnalysisConfig().CacheTTL
		resultCache = cache.New(ttl, ttl)
	}

	return &Controller{
		pipeline: proc,
		results:  resultCache,
		store:    store,
		contents: contents,
		log:      logger,
	}, nil
}

// RunAnalysis executes one full analysis run for the request. Stages run in
// order: embedding generation, mesh construction, gap analysis, per-item
// optimization, visualization data, metrics. The finished result is cached
// and persisted best-effort; store failures are logged and never fail the
// run. Context cancellation aborts the run between and inside stages.
func (c *Controller) RunAnalysis(ctx context.Context, request *model.AnalysisRequest) (*model.AnalysisResult, error) {
	if request == nil {
		return nil, helper.NewError("request validation", fmt.Errorf("request is nil"))
	}

	requestID := request.RequestID
	if requestID == "" {
		requestID = uuid.New().String()
	}

	config := model.DefaultAnalysisConfig()
	if request.Config != nil {
		config = *request.Config
	}

	started := time.Now()
	items := request.ContentItems

	c.log.Info("Starting analysis run",
		slog.String("request_id", requestID),
		slog.Int("items", len(items)))

	// Stage 1: embeddings
	embeddings, err := c.embedItems(ctx, items, config.EmbedConcurrency)
	if err != nil {
		return nil, helper.NewError("generate embeddings", err)
	}

	// Stage 2: mesh construction. Engine and mesh are request-scoped so
	// concurrent runs never share index state.
	engine := similarity.NewEngine()
	contentMesh := mesh.NewMesh(engine, "mesh-"+requestID, c.log)

	nodes := make([]*model.ContentNode, 0, len(items))
	for i, item := range items {
		nodes = append(nodes, model.NewContentNode(item, embeddings[i]))
	}
	err = contentMesh.BuildMesh(nodes, config.Mesh)
	if err != nil {
		return nil, helper.NewError("build mesh", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Stage 3: gap analysis
	var semanticGaps []*model.SemanticGap
	gapEngine := gaps.NewEngine(engine, c.pipeline.Embedder, config.Gap, c.log)
	if len(items) > 0 {
		semanticGaps, err = gapEngine.AnalyzeGaps(ctx, items, embeddings, request.ReferenceTopics, request.CompetitorContent)
		if err != nil {
			return nil, helper.NewError("analyze gaps", err)
		}
		semanticGaps = gapEngine.PrioritizeGaps(semanticGaps, nil)
	}

	// Stage 4: optimizations for the first MaxOptimizedItems items
	suggestions, lensFailures, err := c.optimizeItems(ctx, engine, request, config)
	if err != nil {
		return nil, helper.NewError("generate optimizations", err)
	}

	// Stage 5: visualization data
	visualizations := buildVisualizations(engine, contentMesh, semanticGaps, c.log)

	// Stage 6: aggregate metrics
	statistics := contentMesh.Statistics()
	metrics := buildMetrics(statistics, semanticGaps, suggestions)
	if len(lensFailures) > 0 {
		metrics["lens_failures"] = lensFailures
	}

	result := &model.AnalysisResult{
		RequestID:      requestID,
		Timestamp:      time.Now().UTC(),
		ContentMesh:    contentMesh.Snapshot(),
		SemanticGaps:   semanticGaps,
		Suggestions:    suggestions,
		Visualizations: visualizations,
		Metrics:        metrics,
		ProcessingTime: time.Since(started).Seconds(),
	}

	c.results.Set(requestID, result, config.CacheTTL)
	c.persistResult(result, nodes)

	c.log.Info("Finished analysis run",
		slog.String("request_id", requestID),
		slog.Int("gaps", len(semanticGaps)),
		slog.Int("suggestions", len(suggestions)),
		slog.Float64("processing_time", result.ProcessingTime))

	return result, nil
}

// GetAnalysisResult returns a previously computed result, checking the
// cache first and falling back to the durable store. Returns (nil, nil)
// when no result exists for the request id.
func (c *Controller) GetAnalysisResult(ctx context.Context, requestID string) (*model.AnalysisResult, error) {
	if cached, found := c.results.Get(requestID); found {
		if result, ok := cached.(*model.AnalysisResult); ok {
			return result, nil
		}
	}

	if c.store == nil {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result, err := c.store.SelectResult(requestID)
	if err != nil {
		return nil, helper.NewError("select result", err)
	}
	if result != nil {
		c.results.Set(requestID, result, cache.DefaultExpiration)
	}

	return result, nil
}

// embedItems generates one document embedding per content item by batching
// the pipeline's document embedder with bounded concurrency. Any embedding
// failure aborts the whole stage.
func (c *Controller) embedItems(ctx context.Context, items []*model.ContentItem, concurrency int) ([][]float32, error) {
	texts := make([]string, len(items))
	for i, item := range items {
		texts[i] = item.Title + "\n\n" + item.Content
	}

	embedDocument := func(text string) ([]float32, error) {
		embedding, _, err := c.pipeline.EmbedDocument(ctx, text)
		return embedding, err
	}

	return pipeline.EmbedBatch(ctx, embedDocument, texts, concurrency)
}

// optimizeItems runs the optimization engine over the first
// MaxOptimizedItems items, keeping at most MaxSuggestionsPerItem
// prioritized suggestions per item. Per-lens failures are collected per
// item and surfaced in the run metrics.
func (c *Controller) optimizeItems(ctx context.Context, engine *similarity.Engine, request *model.AnalysisRequest, config model.AnalysisConfig) ([]*model.OptimizationSuggestion, map[string]interface{}, error) {
	optimizeEngine := optimize.NewEngine(engine, c.pipeline.Embedder, c.pipeline.Classifier, config.Optimize, c.log)

	itemCount := len(request.ContentItems)
	if itemCount > config.MaxOptimizedItems {
		itemCount = config.MaxOptimizedItems
	}

	var suggestions []*model.OptimizationSuggestion
	lensFailures := map[string]interface{}{}
	for _, item := range request.ContentItems[:itemCount] {
		itemSuggestions, metadata, err := optimizeEngine.GenerateOptimizations(ctx, item, request.TargetKeywords, request.OptimizationGoals, request.CompetitorContent)
		if err != nil {
			return nil, nil, fmt.Errorf("optimizing item %s: %w", item.ID, err)
		}
		if failed, ok := metadata["failed_lenses"]; ok {
			lensFailures[item.ID] = failed
		}

		itemSuggestions = optimizeEngine.Prioritize(itemSuggestions)
		if len(itemSuggestions) > config.MaxSuggestionsPerItem {
			itemSuggestions = itemSuggestions[:config.MaxSuggestionsPerItem]
		}
		suggestions = append(suggestions, itemSuggestions...)
	}

	if len(lensFailures) == 0 {
		lensFailures = nil
	}
	return suggestions, lensFailures, nil
}

// persistResult writes the result document and the mesh nodes to the
// configured stores. Both writes are best-effort: failures are logged at
// warn level and never fail the run.
func (c *Controller) persistResult(result *model.AnalysisResult, nodes []*model.ContentNode) {
	if c.store != nil {
		err := c.store.InsertResult(result)
		if err != nil {
			c.log.Warn("Failed to persist analysis result",
				slog.String("request_id", result.RequestID),
				slog.String("error", err.Error()))
		}
	}

	if c.contents != nil {
		for _, node := range nodes {
			err := c.contents.UpsertContent(result.RequestID, node)
			if err != nil {
				c.log.Warn("Failed to persist content node",
					slog.String("request_id", result.RequestID),
					slog.String("node_id", node.ID),
					slog.String("error", err.Error()))
				break
			}
		}
	}
}

// buildMetrics aggregates run-level metrics from the mesh statistics, the
// detected gaps and the generated suggestions.
func buildMetrics(statistics *model.MeshStatistics, semanticGaps []*model.SemanticGap, suggestions []*model.OptimizationSuggestion) model.Metadata {
	return model.Metadata{
		"node_count":           statistics.NodeCount,
		"edge_count":           statistics.EdgeCount,
		"density":              statistics.Density,
		"average_degree":       statistics.AverageDegree,
		"connected_components": statistics.ConnectedComponents,
		"community_count":      statistics.CommunityCount,
		"gap_count":            len(semanticGaps),
		"suggestion_count":     len(suggestions),
		"average_gap_severity": averageGapSeverity(semanticGaps),
		"health_score":         HealthScore(statistics, semanticGaps, suggestions),
	}
}

// HealthScore condenses a run into one score in [0,1]:
// 0.3 × connectivity (share of nodes in the largest component)
// + 0.3 × (1 - average gap severity)
// + 0.2 × min(2 × density, 1)
// + 0.2 × (1 - share of high-priority suggestions).
// An empty mesh scores 0.
func HealthScore(statistics *model.MeshStatistics, semanticGaps []*model.SemanticGap, suggestions []*model.OptimizationSuggestion) float64 {
	if statistics == nil || statistics.NodeCount == 0 {
		return 0
	}

	connectivity := float64(statistics.LargestComponent) / float64(statistics.NodeCount)

	densityScore := 2 * statistics.Density
	if densityScore > 1 {
		densityScore = 1
	}

	highPriorityRatio := 0.0
	if len(suggestions) > 0 {
		high := 0
		for _, suggestion := range suggestions {
			if suggestion.Priority == model.PriorityHigh {
				high++
			}
		}
		highPriorityRatio = float64(high) / float64(len(suggestions))
	}

	return 0.3*connectivity +
		0.3*(1-averageGapSeverity(semanticGaps)) +
		0.2*densityScore +
		0.2*(1-highPriorityRatio)
}

func averageGapSeverity(semanticGaps []*model.SemanticGap) float64 {
	if len(semanticGaps) == 0 {
		return 0
	}
	total := 0.0
	for _, gap := range semanticGaps {
		total += gap.Severity
	}
	return total / float64(len(semanticGaps))
}
