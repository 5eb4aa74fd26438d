package similarity

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/siherrmann/mesher/helper"
)

// ReductionMethod names a dimensionality reduction method
type ReductionMethod string

const (
	MethodPCA  ReductionMethod = "pca"
	MethodTSNE ReductionMethod = "tsne"
	// MethodUMAP falls back to PCA; there is no UMAP implementation here
	// and the projection is only used for visualization.
	MethodUMAP ReductionMethod = "umap"
)

// ReduceDimensions projects embeddings down to nComponents dimensions for
// visualization. PCA preserves variance, t-SNE preserves local
// neighborhoods; neither carries any further semantic guarantee. The method
// "umap" falls back to PCA.
func (e *Engine) ReduceDimensions(embeddings [][]float32, nComponents int, method ReductionMethod) ([][]float64, error) {
	if len(embeddings) == 0 {
		return [][]float64{}, nil
	}
	if nComponents <= 0 {
		return nil, helper.NewError("reduce dimensions", fmt.Errorf("component count must be positive"))
	}
	if nComponents > len(embeddings[0]) {
		nComponents = len(embeddings[0])
	}

	switch method {
	case MethodPCA, MethodUMAP, "":
		return pca(embeddings, nComponents), nil
	case MethodTSNE:
		return tsne(embeddings, nComponents), nil
	default:
		return nil, helper.NewError("reduce dimensions", fmt.Errorf("unknown reduction method: %s", method))
	}
}

// pca projects onto the top principal components, found by power iteration
// with deflation on the covariance matrix
func pca(embeddings [][]float32, nComponents int) [][]float64 {
	n := len(embeddings)
	dimension := len(embeddings[0])

	// Center the data
	mean := make([]float64, dimension)
	for _, embedding := range embeddings {
		for j, v := range embedding {
			mean[j] += float64(v)
		}
	}
	for j := range mean {
		mean[j] /= float64(n)
	}

	centered := make([][]float64, n)
	for i, embedding := range embeddings {
		centered[i] = make([]float64, dimension)
		for j, v := range embedding {
			centered[i][j] = float64(v) - mean[j]
		}
	}

	components := make([][]float64, 0, nComponents)
	rng := rand.New(rand.NewSource(42))

	for c := 0; c < nComponents; c++ {
		component := powerIteration(centered, rng)
		if component == nil {
			break // Remaining variance is zero
		}
		components = append(components, component)

		// Deflate: remove the found component from the data
		for i := range centered {
			projection := vectorDot(centered[i], component)
			for j := range centered[i] {
				centered[i][j] -= projection * component[j]
			}
		}
	}

	// Project the original centered data (reconstructed from deflation order)
	projected := make([][]float64, n)
	for i, embedding := range embeddings {
		row := make([]float64, dimension)
		for j, v := range embedding {
			row[j] = float64(v) - mean[j]
		}

		projected[i] = make([]float64, nComponents)
		for c, component := range components {
			projected[i][c] = vectorDot(row, component)
		}
	}

	return projected
}

// powerIteration finds the dominant direction of the centered data.
// Returns nil when the data has no remaining variance.
func powerIteration(centered [][]float64, rng *rand.Rand) []float64 {
	dimension := len(centered[0])

	vector := make([]float64, dimension)
	for j := range vector {
		vector[j] = rng.NormFloat64()
	}
	normalizeFloat64(vector)

	for iteration := 0; iteration < 100; iteration++ {
		// next = X^T X v without materializing the covariance matrix
		next := make([]float64, dimension)
		for _, row := range centered {
			projection := vectorDot(row, vector)
			for j, v := range row {
				next[j] += projection * v
			}
		}

		norm := normalizeFloat64(next)
		if norm < 1e-12 {
			return nil
		}

		delta := 0.0
		for j := range vector {
			delta += math.Abs(next[j] - vector[j])
		}
		vector = next
		if delta < 1e-9 {
			break
		}
	}

	return vector
}

// tsne runs a compact exact-gradient t-SNE. Pairwise affinities use a fixed
// Gaussian bandwidth per point from the median distance instead of a
// perplexity binary search, which is enough for the moderate corpus sizes
// this projection serves.
func tsne(embeddings [][]float32, nComponents int) [][]float64 {
	n := len(embeddings)
	if n == 1 {
		return [][]float64{make([]float64, nComponents)}
	}

	// High-dimensional affinities
	distances := make([][]float64, n)
	for i := range distances {
		distances[i] = make([]float64, n)
		for j := range distances[i] {
			if i != j {
				d := euclideanDistance(embeddings[i], embeddings[j])
				distances[i][j] = d * d
			}
		}
	}

	p := make([][]float64, n)
	for i := range p {
		sigma := medianPositive(distances[i])
		if sigma < 1e-12 {
			sigma = 1
		}

		p[i] = make([]float64, n)
		var sum float64
		for j := range p[i] {
			if i != j {
				p[i][j] = math.Exp(-distances[i][j] / (2 * sigma))
				sum += p[i][j]
			}
		}
		if sum > 0 {
			for j := range p[i] {
				p[i][j] /= sum
			}
		}
	}

	// Symmetrize
	joint := make([][]float64, n)
	for i := range joint {
		joint[i] = make([]float64, n)
		for j := range joint[i] {
			joint[i][j] = (p[i][j] + p[j][i]) / (2 * float64(n))
		}
	}

	// Initialize the embedding from a small PCA projection
	result := pca(embeddings, nComponents)

	const (
		iterations   = 300
		learningRate = 100.0
	)

	for iteration := 0; iteration < iterations; iteration++ {
		// Low-dimensional affinities (Student-t kernel)
		q := make([][]float64, n)
		var qSum float64
		for i := range q {
			q[i] = make([]float64, n)
			for j := range q[i] {
				if i != j {
					var d float64
					for c := 0; c < nComponents; c++ {
						diff := result[i][c] - result[j][c]
						d += diff * diff
					}
					q[i][j] = 1.0 / (1.0 + d)
					qSum += q[i][j]
				}
			}
		}

		// Gradient step
		for i := 0; i < n; i++ {
			gradient := make([]float64, nComponents)
			for j := 0; j < n; j++ {
				if i == j {
					continue
				}
				factor := (joint[i][j] - q[i][j]/qSum) * q[i][j]
				for c := 0; c < nComponents; c++ {
					gradient[c] += 4 * factor * (result[i][c] - result[j][c])
				}
			}
			for c := 0; c < nComponents; c++ {
				result[i][c] -= learningRate * gradient[c]
			}
		}
	}

	return result
}

// medianPositive returns the median of the positive values of a slice
func medianPositive(values []float64) float64 {
	var positive []float64
	for _, v := range values {
		if v > 0 {
			positive = append(positive, v)
		}
	}
	if len(positive) == 0 {
		return 0
	}

	sort.Float64s(positive)
	return positive[len(positive)/2]
}

// vectorDot computes the dot product of two float64 vectors
func vectorDot(a, b []float64) float64 {
	var sum float64
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

// normalizeFloat64 normalizes a vector in place and returns its prior norm
func normalizeFloat64(vector []float64) float64 {
	var norm float64
	for _, v := range vector {
		norm += v * v
	}
	norm = math.Sqrt(norm)
	if norm > 0 {
		for i := range vector {
			vector[i] /= norm
		}
	}
	return norm
}
