package mesher

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	cache "github.com/patrickmn/go-cache"
	"github.com/siherrmann/mesher/core/pipeline"
	"github.com/siherrmann/mesher/core/saturation"
	"github.com/siherrmann/mesher/database"
	"github.com/siherrmann/mesher/helper"
	"github.com/siherrmann/mesher/model"
	loadSql "github.com/siherrmann/mesher/sql"
)

// Mesher provides a unified interface to content mesh analysis: it owns the
// database handlers, the processing pipeline and the saturation controller
type Mesher struct {
	DB         *helper.Database
	Contents   *database.ContentsDBHandler
	Results    *database.ResultsDBHandler
	Pipeline   *pipeline.Pipeline // Optional processing pipeline
	Controller *saturation.Controller
	// Shared TTL cache for analysis results and embeddings
	cache *cache.Cache
	// Logging
	log *slog.Logger
}

// NewMesher creates a new Mesher instance with all handlers initialized.
// A pipeline must be set afterwards (SetPipeline or UseDefaultPipeline)
// before content can be analyzed.
func NewMesher(config *helper.DatabaseConfiguration, embeddingDim int) (*Mesher, error) {
	// Logger
	opts := helper.PrettyHandlerOptions{
		SlogOpts: slog.HandlerOptions{
			Level: slog.LevelInfo,
		},
	}
	logger := slog.New(helper.NewPrettyHandler(os.Stdout, opts))

	// Initialize database
	db := helper.NewDatabase("mesher", config, logger)
	err := loadSql.Init(db.Instance)
	if err != nil {
		return nil, helper.NewError("initialize database extensions", err)
	}

	// force=false to not reload if functions already exist
	contents, err := database.NewContentsDBHandler(db, embeddingDim, false)
	if err != nil {
		return nil, helper.NewError("create contents handler", err)
	}

	results, err := database.NewResultsDBHandler(db, false)
	if err != nil {
		return nil, helper.NewError("create results handler", err)
	}

	ttl := model.DefaultAnalysisConfig().CacheTTL
	return &Mesher{
		DB:       db,
		Contents: contents,
		Results:  results,
		cache:    cache.New(ttl, ttl),
		log:      logger,
	}, nil
}

// Close closes the database connection
func (m *Mesher) Close() error {
	if m.DB != nil && m.DB.Instance != nil {
		return m.DB.Instance.Close()
	}
	return nil
}

// SetPipeline sets the processing pipeline and wires the analysis
// controller to it
func (m *Mesher) SetPipeline(proc *pipeline.Pipeline) error {
	controller, err := saturation.NewController(proc, m.cache, m.Results, m.Contents, m.log)
	if err != nil {
		return helper.NewError("create controller", err)
	}

	m.Pipeline = proc
	m.Controller = controller
	return nil
}

// UseDefaultPipeline sets up the default semantic chunking, embedding and
// tone classification pipeline. This uses DefaultChunker with 500 char max
// chunks and 0.7 similarity threshold, and DefaultEmbedder with the
// all-MiniLM-L6-v2 model (384 dimensions) behind a content-hash cache.
// A classifier failure only disables tone analysis.
func (m *Mesher) UseDefaultPipeline() error {
	chunker := pipeline.DefaultChunker(500, 0.7)
	embedder, err := pipeline.DefaultEmbedder()
	if err != nil {
		return helper.NewError("create default embedder", err)
	}
	embedder = pipeline.CachingEmbedder(embedder, m.cache, model.DefaultAnalysisConfig().CacheTTL)

	proc := pipeline.NewPipeline(chunker, embedder)

	classifier, err := pipeline.DefaultClassifier()
	if err != nil {
		m.log.Warn("Failed to create default classifier, tone analysis disabled",
			slog.String("error", err.Error()))
	} else {
		proc.SetClassifier(classifier)
	}

	return m.SetPipeline(proc)
}

// AnalyzeContent runs a full analysis over the request's content items:
// embeddings, mesh construction, gap analysis, optimization suggestions,
// visualization data and metrics. The result is cached and persisted.
func (m *Mesher) AnalyzeContent(ctx context.Context, request *model.AnalysisRequest) (*model.AnalysisResult, error) {
	if m.Controller == nil {
		return nil, helper.NewError("analyze content", fmt.Errorf("pipeline not set, use SetPipeline() first"))
	}
	return m.Controller.RunAnalysis(ctx, request)
}

// GetAnalysisResult retrieves a previously computed analysis result,
// checking the cache before the database. Returns (nil, nil) when no
// result exists for the request id.
func (m *Mesher) GetAnalysisResult(ctx context.Context, requestID string) (*model.AnalysisResult, error) {
	if m.Controller != nil {
		return m.Controller.GetAnalysisResult(ctx, requestID)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return m.Results.SelectResult(requestID)
}

// SimilarContent embeds the query and returns the stored content nodes most
// similar to it, with their similarity scores attached
func (m *Mesher) SimilarContent(ctx context.Context, query string, limit int, threshold float64) ([]*model.ContentNode, error) {
	if m.Pipeline == nil || m.Pipeline.Embedder == nil {
		return nil, helper.NewError("similar content", fmt.Errorf("pipeline with embedder not set, use SetPipeline() first"))
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	embedding, err := m.Pipeline.Embedder(query)
	if err != nil {
		return nil, helper.NewError("generate embedding", err)
	}

	return m.Contents.SelectContentsBySimilarity(embedding, limit, threshold)
}

// ChangeIndexType changes the vector index type between HNSW and IVFFlat
func (m *Mesher) ChangeIndexType(ctx context.Context, indexType string, params map[string]interface{}) error {
	return m.Contents.ChangeIndexType(ctx, indexType, params)
}
