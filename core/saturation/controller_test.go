package saturation

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/siherrmann/mesher/core/pipeline"
	"github.com/siherrmann/mesher/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// topicAxes are marker words the test embedder projects onto, so texts
// about the same theme get similar vectors
var topicAxes = []string{"coffee", "espresso", "quantum", "physics"}

func testEmbedder() pipeline.EmbedFunc {
	return func(text string) ([]float32, error) {
		embedding := make([]float32, len(topicAxes)+1)
		for _, word := range pipeline.Tokenize(text) {
			for i, axis := range topicAxes {
				if word == axis {
					embedding[i]++
				}
			}
		}
		embedding[len(topicAxes)] = 0.1 // No zero vectors
		return embedding, nil
	}
}

// testPipeline builds a pipeline with a whole-text chunker and the
// deterministic axis embedder, so document embeddings are predictable.
func testPipeline() *pipeline.Pipeline {
	chunker := func(text string) ([]model.TextChunk, error) {
		return []model.TextChunk{{Text: text, StartPos: 0, EndPos: len(text)}}, nil
	}
	return pipeline.NewPipeline(chunker, testEmbedder())
}

func testRequest() *model.AnalysisRequest {
	config := model.DefaultAnalysisConfig()
	return &model.AnalysisRequest{
		RequestID: "request-test",
		ContentItems: []*model.ContentItem{
			{ID: "a", Title: "Coffee brewing", Content: "coffee brewing methods and coffee roasting with espresso machines"},
			{ID: "b", Title: "Espresso extraction", Content: "espresso extraction and coffee grind size for espresso shots"},
			{ID: "c", Title: "Quantum entanglement", Content: "quantum physics and quantum entanglement experiments"},
			{ID: "d", Title: "Quantum computing", Content: "physics of quantum computing and quantum error correction"},
		},
		TargetKeywords: []string{"coffee"},
		Config:         &config,
	}
}

// fakeResultsStore implements database.ResultsDBHandlerFunctions in memory.
type fakeResultsStore struct {
	results   map[string]*model.AnalysisResult
	insertErr error
	selects   int
}

func newFakeResultsStore() *fakeResultsStore {
	return &fakeResultsStore{results: map[string]*model.AnalysisResult{}}
}

func (s *fakeResultsStore) InsertResult(result *model.AnalysisResult) error {
	if s.insertErr != nil {
		return s.insertErr
	}
	s.results[result.RequestID] = result
	return nil
}

func (s *fakeResultsStore) SelectResult(requestID string) (*model.AnalysisResult, error) {
	s.selects++
	return s.results[requestID], nil
}

func (s *fakeResultsStore) SelectRecentResults(limit int) ([]*model.AnalysisResult, error) {
	return nil, nil
}

func (s *fakeResultsStore) DeleteResult(requestID string) (int, error) {
	if _, ok := s.results[requestID]; !ok {
		return 0, nil
	}
	delete(s.results, requestID)
	return 1, nil
}

func (s *fakeResultsStore) CountResults() (int64, error) {
	return int64(len(s.results)), nil
}

// fakeContentsStore implements database.ContentsDBHandlerFunctions in memory.
type fakeContentsStore struct {
	upserts   []string
	upsertErr error
}

func (s *fakeContentsStore) UpsertContent(requestID string, node *model.ContentNode) error {
	if s.upsertErr != nil {
		return s.upsertErr
	}
	s.upserts = append(s.upserts, node.ID)
	return nil
}

func (s *fakeContentsStore) SelectContent(requestID string, nodeID string) (*model.ContentNode, error) {
	return nil, nil
}

func (s *fakeContentsStore) SelectContentsByRequest(requestID string) ([]*model.ContentNode, error) {
	return nil, nil
}

func (s *fakeContentsStore) SelectContentsBySimilarity(embedding []float32, limit int, threshold float64) ([]*model.ContentNode, error) {
	return nil, nil
}

func (s *fakeContentsStore) DeleteContentsByRequest(requestID string) (int, error) {
	return 0, nil
}

func (s *fakeContentsStore) CountContents() (int64, error) {
	return 0, nil
}

func TestNewController(t *testing.T) {
	t.Run("Valid call NewController", func(t *testing.T) {
		controller, err := NewController(testPipeline(), nil, nil, nil, nil)
		assert.NoError(t, err, "Expected NewController to not return an error")
		require.NotNil(t, controller, "Expected NewController to return a non-nil instance")
		assert.NotNil(t, controller.results, "Expected a default result cache")
	})

	t.Run("Invalid call NewController with nil pipeline", func(t *testing.T) {
		_, err := NewController(nil, nil, nil, nil, nil)
		assert.Error(t, err, "Expected error when creating Controller with nil pipeline")
		assert.Contains(t, err.Error(), "pipeline is nil", "Expected specific error message for nil pipeline")
	})
}

func TestRunAnalysis(t *testing.T) {
	t.Run("Full run over a small corpus", func(t *testing.T) {
		controller, err := NewController(testPipeline(), nil, nil, nil, nil)
		require.NoError(t, err)

		result, err := controller.RunAnalysis(context.Background(), testRequest())
		assert.NoError(t, err, "Expected RunAnalysis to not return an error")
		require.NotNil(t, result, "Expected RunAnalysis to return a result")

		assert.Equal(t, "request-test", result.RequestID, "Expected the request id to be preserved")
		require.NotNil(t, result.ContentMesh, "Expected a mesh snapshot")
		assert.Len(t, result.ContentMesh.Nodes, 4, "Expected one node per content item")
		assert.Greater(t, len(result.ContentMesh.Edges), 0, "Expected edges between same-theme items")

		require.NotNil(t, result.Metrics, "Expected run metrics")
		assert.Equal(t, 4, result.Metrics["node_count"], "Expected node count in metrics")
		healthScore, ok := result.Metrics["health_score"].(float64)
		require.True(t, ok, "Expected a health score in metrics")
		assert.GreaterOrEqual(t, healthScore, 0.0, "Expected health score in [0,1]")
		assert.LessOrEqual(t, healthScore, 1.0, "Expected health score in [0,1]")
		assert.Greater(t, result.ProcessingTime, 0.0, "Expected a positive processing time")

		assert.Contains(t, result.Visualizations, "node_positions", "Expected projected node positions")

		for _, gap := range result.SemanticGaps {
			assert.Greater(t, gap.PriorityScore, 0.0, "Expected gaps to be prioritized")
		}
	})

	t.Run("Generated request id when none is given", func(t *testing.T) {
		controller, err := NewController(testPipeline(), nil, nil, nil, nil)
		require.NoError(t, err)

		request := testRequest()
		request.RequestID = ""
		result, err := controller.RunAnalysis(context.Background(), request)
		require.NoError(t, err)
		assert.NotEmpty(t, result.RequestID, "Expected a generated request id")
	})

	t.Run("Result is cached and retrievable", func(t *testing.T) {
		controller, err := NewController(testPipeline(), nil, nil, nil, nil)
		require.NoError(t, err)

		result, err := controller.RunAnalysis(context.Background(), testRequest())
		require.NoError(t, err)

		cached, err := controller.GetAnalysisResult(context.Background(), result.RequestID)
		assert.NoError(t, err, "Expected GetAnalysisResult to not return an error")
		assert.Same(t, result, cached, "Expected the cached result instance")
	})

	t.Run("Result and nodes are persisted", func(t *testing.T) {
		resultsStore := newFakeResultsStore()
		contentsStore := &fakeContentsStore{}
		controller, err := NewController(testPipeline(), nil, resultsStore, contentsStore, nil)
		require.NoError(t, err)

		result, err := controller.RunAnalysis(context.Background(), testRequest())
		require.NoError(t, err)

		assert.Contains(t, resultsStore.results, result.RequestID, "Expected the result to be stored")
		assert.ElementsMatch(t, []string{"a", "b", "c", "d"}, contentsStore.upserts, "Expected all nodes to be stored")
	})

	t.Run("Store failures do not fail the run", func(t *testing.T) {
		resultsStore := newFakeResultsStore()
		resultsStore.insertErr = fmt.Errorf("connection refused")
		contentsStore := &fakeContentsStore{upsertErr: fmt.Errorf("connection refused")}
		controller, err := NewController(testPipeline(), nil, resultsStore, contentsStore, nil)
		require.NoError(t, err)

		result, err := controller.RunAnalysis(context.Background(), testRequest())
		assert.NoError(t, err, "Expected store failures to be best-effort")
		require.NotNil(t, result, "Expected a result despite store failures")
	})

	t.Run("Empty item list yields an empty result", func(t *testing.T) {
		controller, err := NewController(testPipeline(), nil, nil, nil, nil)
		require.NoError(t, err)

		result, err := controller.RunAnalysis(context.Background(), &model.AnalysisRequest{RequestID: "request-empty"})
		assert.NoError(t, err, "Expected an empty request to not return an error")
		require.NotNil(t, result, "Expected a result for an empty request")
		assert.Empty(t, result.ContentMesh.Nodes, "Expected no nodes")
		assert.Empty(t, result.SemanticGaps, "Expected no gaps")
		assert.Empty(t, result.Suggestions, "Expected no suggestions")
		assert.Equal(t, 0.0, result.Metrics["health_score"], "Expected health score 0 for an empty mesh")
	})

	t.Run("Nil request returns an error", func(t *testing.T) {
		controller, err := NewController(testPipeline(), nil, nil, nil, nil)
		require.NoError(t, err)

		_, err = controller.RunAnalysis(context.Background(), nil)
		assert.Error(t, err, "Expected error for nil request")
	})

	t.Run("Canceled context aborts the run", func(t *testing.T) {
		controller, err := NewController(testPipeline(), nil, nil, nil, nil)
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err = controller.RunAnalysis(ctx, testRequest())
		assert.Error(t, err, "Expected error for canceled context")
		assert.ErrorIs(t, err, context.Canceled, "Expected the cancellation to surface")
	})

	t.Run("Embedding failure aborts the run", func(t *testing.T) {
		chunker := func(text string) ([]model.TextChunk, error) {
			return []model.TextChunk{{Text: text, StartPos: 0, EndPos: len(text)}}, nil
		}
		embedder := func(text string) ([]float32, error) {
			return nil, fmt.Errorf("model not loaded")
		}
		controller, err := NewController(pipeline.NewPipeline(chunker, embedder), nil, nil, nil, nil)
		require.NoError(t, err)

		_, err = controller.RunAnalysis(context.Background(), testRequest())
		assert.Error(t, err, "Expected embedding failures to abort the run")
		assert.Contains(t, err.Error(), "model not loaded", "Expected the embedding error to surface")
	})

	t.Run("Embeddings keep item order under concurrency", func(t *testing.T) {
		controller, err := NewController(testPipeline(), nil, nil, nil, nil)
		require.NoError(t, err)
		items := testRequest().ContentItems

		embeddings, err := controller.embedItems(context.Background(), items, 3)

		require.NoError(t, err)
		require.Len(t, embeddings, len(items))
		for i, item := range items {
			expected, _, err := controller.pipeline.EmbedDocument(context.Background(), item.Title+"\n\n"+item.Content)
			require.NoError(t, err)
			assert.Equal(t, expected, embeddings[i], "Expected the embedding at the item's position")
		}
	})

	t.Run("Suggestions are capped per item", func(t *testing.T) {
		controller, err := NewController(testPipeline(), nil, nil, nil, nil)
		require.NoError(t, err)

		request := testRequest()
		config := model.DefaultAnalysisConfig()
		config.MaxOptimizedItems = 1
		config.MaxSuggestionsPerItem = 1
		request.Config = &config
		// Missing keyword guarantees at least one suggestion per item.
		request.TargetKeywords = []string{"blockchain"}

		result, err := controller.RunAnalysis(context.Background(), request)
		require.NoError(t, err)
		assert.Len(t, result.Suggestions, 1, "Expected the per-item suggestion cap to apply")
	})
}

func TestGetAnalysisResult(t *testing.T) {
	t.Run("Unknown request id returns nil without error", func(t *testing.T) {
		controller, err := NewController(testPipeline(), nil, nil, nil, nil)
		require.NoError(t, err)

		result, err := controller.GetAnalysisResult(context.Background(), "request-unknown")
		assert.NoError(t, err, "Expected no error for unknown request id")
		assert.Nil(t, result, "Expected nil result for unknown request id")
	})

	t.Run("Store fallback on cache miss", func(t *testing.T) {
		resultsStore := newFakeResultsStore()
		stored := &model.AnalysisResult{RequestID: "request-stored", Timestamp: time.Now()}
		require.NoError(t, resultsStore.InsertResult(stored))

		controller, err := NewController(testPipeline(), nil, resultsStore, nil, nil)
		require.NoError(t, err)

		result, err := controller.GetAnalysisResult(context.Background(), "request-stored")
		assert.NoError(t, err, "Expected GetAnalysisResult to not return an error")
		require.NotNil(t, result, "Expected the stored result")
		assert.Equal(t, "request-stored", result.RequestID, "Expected the stored request id")

		// Second lookup is served from the cache.
		_, err = controller.GetAnalysisResult(context.Background(), "request-stored")
		assert.NoError(t, err)
		assert.Equal(t, 1, resultsStore.selects, "Expected the second lookup to hit the cache")
	})
}

func TestHealthScore(t *testing.T) {
	t.Run("Empty mesh scores zero", func(t *testing.T) {
		assert.Equal(t, 0.0, HealthScore(nil, nil, nil), "Expected nil statistics to score 0")
		assert.Equal(t, 0.0, HealthScore(&model.MeshStatistics{}, nil, nil), "Expected an empty mesh to score 0")
	})

	t.Run("Fully connected dense mesh without findings scores one", func(t *testing.T) {
		statistics := &model.MeshStatistics{
			NodeCount:        3,
			LargestComponent: 3,
			Density:          1.0,
		}
		assert.Equal(t, 1.0, HealthScore(statistics, nil, nil), "Expected a perfect mesh to score 1")
	})

	t.Run("Score follows the component weights", func(t *testing.T) {
		statistics := &model.MeshStatistics{
			NodeCount:        4,
			LargestComponent: 2,  // connectivity 0.5
			Density:          0.2, // density score 0.4
		}
		semanticGaps := []*model.SemanticGap{
			{Severity: 0.6},
			{Severity: 0.8},
		}
		suggestions := []*model.OptimizationSuggestion{
			{Priority: model.PriorityHigh},
			{Priority: model.PriorityLow},
		}

		// 0.3*0.5 + 0.3*(1-0.7) + 0.2*0.4 + 0.2*(1-0.5)
		assert.InDelta(t, 0.42, HealthScore(statistics, semanticGaps, suggestions), 1e-9, "Expected the weighted component sum")
	})
}
