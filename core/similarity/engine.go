package similarity

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/siherrmann/mesher/helper"
	"github.com/siherrmann/mesher/model"
)

// Metric names the similarity metric of an index or computation
type Metric string

const (
	MetricCosine    Metric = "cosine"
	MetricEuclidean Metric = "euclidean"
)

// Config holds the parameters of an index or pairwise computation
type Config struct {
	Metric    Metric  `json:"metric"`
	Threshold float64 `json:"threshold"`
}

// DefaultConfig returns a sensible default configuration
func DefaultConfig() Config {
	return Config{
		Metric:    MetricCosine,
		Threshold: 0.5,
	}
}

// SearchResult is one nearest-neighbor match from an index
type SearchResult struct {
	Index    int            `json:"index"`
	Score    float64        `json:"score"`
	Metadata model.Metadata `json:"metadata,omitempty"`
}

// index is one named in-memory vector index. Vectors are stored
// L2-normalized when the metric is cosine, so search is a plain dot product.
type index struct {
	vectors  [][]float32
	config   Config
	metadata []model.Metadata
}

// Engine provides vector similarity search, clustering and dimensionality
// reduction over in-memory indexes. Indexes are held in memory only; an
// engine restart loses them. One engine must not be shared across concurrent
// analysis runs without request-scoped index names.
type Engine struct {
	mu      sync.RWMutex
	indexes map[string]*index
}

// NewEngine creates a new similarity engine with no indexes
func NewEngine() *Engine {
	return &Engine{
		indexes: make(map[string]*index),
	}
}

// BuildIndex builds an exact nearest-neighbor index over the embeddings
// under the given name. Rebuilding with the same name replaces the prior
// index. An empty embedding list produces a zero-size index, not an error;
// callers must guard against searching it. Metadata entries are attached to
// search results by position and may be nil.
func (e *Engine) BuildIndex(embeddings [][]float32, name string, config Config, metadata []model.Metadata) error {
	if name == "" {
		return helper.NewError("build index", fmt.Errorf("index name must not be empty"))
	}

	vectors := make([][]float32, len(embeddings))
	for i, embedding := range embeddings {
		if config.Metric == MetricCosine {
			vectors[i] = normalize(embedding)
		} else {
			vectors[i] = embedding
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.indexes[name] = &index{
		vectors:  vectors,
		config:   config,
		metadata: metadata,
	}

	return nil
}

// DropIndex removes a named index. Dropping an unknown name is a no-op.
func (e *Engine) DropIndex(name string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.indexes, name)
}

// IndexSize returns the number of vectors in a named index
func (e *Engine) IndexSize(name string) (int, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	idx, ok := e.indexes[name]
	if !ok {
		return 0, helper.NewError("index size", fmt.Errorf("unknown index: %s", name))
	}
	return len(idx.vectors), nil
}

// Search returns up to k results from the named index ordered by descending
// similarity. k is clamped to the index size. An unknown index name is a
// configuration error.
func (e *Engine) Search(query []float32, name string, k int) ([]SearchResult, error) {
	e.mu.RLock()
	idx, ok := e.indexes[name]
	e.mu.RUnlock()
	if !ok {
		return nil, helper.NewError("search", fmt.Errorf("unknown index: %s", name))
	}

	if k <= 0 || k > len(idx.vectors) {
		k = len(idx.vectors)
	}

	queryVector := query
	if idx.config.Metric == MetricCosine {
		queryVector = normalize(query)
	}

	results := make([]SearchResult, 0, len(idx.vectors))
	for i, vector := range idx.vectors {
		score := similarityScore(queryVector, vector, idx.config.Metric)

		var metadata model.Metadata
		if i < len(idx.metadata) {
			metadata = idx.metadata[i]
		}

		results = append(results, SearchResult{
			Index:    i,
			Score:    score,
			Metadata: metadata,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	return results[:k], nil
}

// PairwiseSimilarities returns the dense NxN similarity matrix of the
// embeddings. Cosine similarity is the normalized dot product; euclidean
// similarity is 1/(1+distance), a monotonic but non-probabilistic transform,
// so absolute thresholds tuned for cosine do not transfer to it.
func (e *Engine) PairwiseSimilarities(embeddings [][]float32, config Config) [][]float64 {
	n := len(embeddings)
	matrix := make([][]float64, n)
	for i := range matrix {
		matrix[i] = make([]float64, n)
	}

	vectors := embeddings
	if config.Metric == MetricCosine {
		vectors = make([][]float32, n)
		for i, embedding := range embeddings {
			vectors[i] = normalize(embedding)
		}
	}

	for i := 0; i < n; i++ {
		matrix[i][i] = 1.0
		for j := i + 1; j < n; j++ {
			score := similarityScore(vectors[i], vectors[j], config.Metric)
			matrix[i][j] = score
			matrix[j][i] = score
		}
	}

	return matrix
}

// similarityScore computes the similarity of two vectors under the metric.
// Cosine vectors must already be normalized.
func similarityScore(a, b []float32, metric Metric) float64 {
	switch metric {
	case MetricEuclidean:
		return 1.0 / (1.0 + euclideanDistance(a, b))
	default:
		return dotProduct(a, b)
	}
}

// normalize returns the L2-normalized copy of a vector. Zero vectors are
// returned unchanged.
func normalize(vector []float32) []float32 {
	var norm float64
	for _, v := range vector {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		return vector
	}

	norm = math.Sqrt(norm)
	normalized := make([]float32, len(vector))
	for i, v := range vector {
		normalized[i] = float32(float64(v) / norm)
	}
	return normalized
}

// dotProduct computes the dot product of two vectors. Mismatched
// dimensionality only multiplies the overlapping prefix; upstream vector
// sources are expected to produce fixed-length vectors.
func dotProduct(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}

	var sum float64
	for i := 0; i < n; i++ {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

// euclideanDistance computes the L2 distance of two vectors
func euclideanDistance(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}

	var sum float64
	for i := 0; i < n; i++ {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}
