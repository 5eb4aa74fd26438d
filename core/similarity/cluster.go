package similarity

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/siherrmann/mesher/helper"
)

// ClusterAlgorithm names a supported clustering algorithm
type ClusterAlgorithm string

const (
	AlgorithmKMeans       ClusterAlgorithm = "kmeans"
	AlgorithmDBSCAN       ClusterAlgorithm = "dbscan"
	AlgorithmHierarchical ClusterAlgorithm = "hierarchical"
)

// maxAutoClusters caps the cluster count estimated by the elbow heuristic
const maxAutoClusters = 10

// ClusterConfig holds clustering parameters
type ClusterConfig struct {
	Algorithm ClusterAlgorithm `json:"algorithm"`
	// Threshold is a similarity threshold; DBSCAN uses eps = 1 - Threshold
	// and hierarchical clustering stops merging above that distance.
	Threshold     float64 `json:"threshold"`
	MinPoints     int     `json:"min_points"`
	MaxIterations int     `json:"max_iterations"`
	Seed          int64   `json:"seed"`
}

// DefaultClusterConfig returns a sensible default configuration
func DefaultClusterConfig() ClusterConfig {
	return ClusterConfig{
		Algorithm:     AlgorithmKMeans,
		Threshold:     0.5,
		MinPoints:     2,
		MaxIterations: 100,
		Seed:          42,
	}
}

// ClusterInfo summarizes one produced cluster
type ClusterInfo struct {
	ID       int       `json:"id"`
	Size     int       `json:"size"`
	Centroid []float32 `json:"centroid,omitempty"`
}

// ClusterEmbeddings partitions embeddings into clusters. For k-means a
// nClusters of 0 auto-estimates the cluster count with an elbow heuristic on
// inertia, capped at 10. DBSCAN ignores nClusters and labels noise points
// -1. Hierarchical clustering uses average linkage. Returns per-embedding
// labels and per-cluster info (noise has no info entry).
func (e *Engine) ClusterEmbeddings(embeddings [][]float32, nClusters int, config ClusterConfig) ([]int, []ClusterInfo, error) {
	if len(embeddings) == 0 {
		return []int{}, []ClusterInfo{}, nil
	}

	var labels []int
	switch config.Algorithm {
	case AlgorithmKMeans, "":
		if nClusters <= 0 {
			nClusters = estimateClusterCount(embeddings, config)
		}
		if nClusters > len(embeddings) {
			nClusters = len(embeddings)
		}
		labels = kMeans(embeddings, nClusters, config)
	case AlgorithmDBSCAN:
		labels = dbscan(embeddings, 1.0-config.Threshold, config.MinPoints)
	case AlgorithmHierarchical:
		labels = hierarchical(embeddings, nClusters, 1.0-config.Threshold)
	default:
		return nil, nil, helper.NewError("cluster embeddings", fmt.Errorf("unknown clustering algorithm: %s", config.Algorithm))
	}

	return labels, clusterInfos(embeddings, labels), nil
}

// clusterInfos aggregates sizes and centroids per non-noise label
func clusterInfos(embeddings [][]float32, labels []int) []ClusterInfo {
	if len(embeddings) == 0 {
		return []ClusterInfo{}
	}

	dimension := len(embeddings[0])
	sums := make(map[int][]float64)
	counts := make(map[int]int)
	var order []int

	for i, label := range labels {
		if label < 0 {
			continue // Noise
		}
		if _, ok := sums[label]; !ok {
			sums[label] = make([]float64, dimension)
			order = append(order, label)
		}
		for j, v := range embeddings[i] {
			sums[label][j] += float64(v)
		}
		counts[label]++
	}

	infos := make([]ClusterInfo, 0, len(order))
	for _, label := range order {
		centroid := make([]float32, dimension)
		for j := range centroid {
			centroid[j] = float32(sums[label][j] / float64(counts[label]))
		}
		infos = append(infos, ClusterInfo{
			ID:       label,
			Size:     counts[label],
			Centroid: centroid,
		})
	}

	return infos
}

// kMeans runs Lloyd's algorithm with seeded random initialization
func kMeans(embeddings [][]float32, k int, config ClusterConfig) []int {
	n := len(embeddings)
	labels := make([]int, n)
	if k <= 1 {
		return labels
	}

	maxIterations := config.MaxIterations
	if maxIterations <= 0 {
		maxIterations = 100
	}

	// Initialize centroids from distinct random points
	rng := rand.New(rand.NewSource(config.Seed))
	permutation := rng.Perm(n)
	centroids := make([][]float64, k)
	for i := 0; i < k; i++ {
		centroids[i] = toFloat64(embeddings[permutation[i]])
	}

	dimension := len(embeddings[0])
	for iteration := 0; iteration < maxIterations; iteration++ {
		changed := false

		// Assignment step
		for i, embedding := range embeddings {
			best := labels[i]
			bestDistance := math.Inf(1)
			for c, centroid := range centroids {
				distance := squaredDistance(embedding, centroid)
				if distance < bestDistance {
					bestDistance = distance
					best = c
				}
			}
			if best != labels[i] {
				labels[i] = best
				changed = true
			}
		}

		if !changed && iteration > 0 {
			break
		}

		// Update step
		sums := make([][]float64, k)
		counts := make([]int, k)
		for c := range sums {
			sums[c] = make([]float64, dimension)
		}
		for i, embedding := range embeddings {
			for j, v := range embedding {
				sums[labels[i]][j] += float64(v)
			}
			counts[labels[i]]++
		}
		for c := range centroids {
			if counts[c] == 0 {
				continue // Empty cluster keeps its centroid
			}
			for j := range centroids[c] {
				centroids[c][j] = sums[c][j] / float64(counts[c])
			}
		}
	}

	return labels
}

// estimateClusterCount picks a cluster count via an elbow heuristic on
// k-means inertia: the smallest k whose relative improvement drops below 10%
func estimateClusterCount(embeddings [][]float32, config ClusterConfig) int {
	maxK := maxAutoClusters
	if maxK > len(embeddings) {
		maxK = len(embeddings)
	}
	if maxK <= 1 {
		return 1
	}

	previous := inertia(embeddings, kMeans(embeddings, 1, config))
	for k := 2; k <= maxK; k++ {
		current := inertia(embeddings, kMeans(embeddings, k, config))
		if previous <= 0 {
			return k - 1
		}
		if (previous-current)/previous < 0.1 {
			return k - 1
		}
		previous = current
	}

	return maxK
}

// inertia computes the within-cluster sum of squared distances to centroids
func inertia(embeddings [][]float32, labels []int) float64 {
	infos := clusterInfos(embeddings, labels)
	centroids := make(map[int][]float64, len(infos))
	for _, info := range infos {
		centroids[info.ID] = toFloat64(info.Centroid)
	}

	var total float64
	for i, label := range labels {
		if centroid, ok := centroids[label]; ok {
			total += squaredDistance(embeddings[i], centroid)
		}
	}
	return total
}

// dbscan runs density-based clustering in cosine-distance space.
// eps is a distance (1 - similarity); points in no dense region get the
// noise label -1.
func dbscan(embeddings [][]float32, eps float64, minPoints int) []int {
	n := len(embeddings)
	if minPoints < 1 {
		minPoints = 1
	}

	normalized := make([][]float32, n)
	for i, embedding := range embeddings {
		normalized[i] = normalize(embedding)
	}

	neighborsOf := func(i int) []int {
		var neighbors []int
		for j := 0; j < n; j++ {
			if j == i {
				continue
			}
			if 1.0-dotProduct(normalized[i], normalized[j]) <= eps {
				neighbors = append(neighbors, j)
			}
		}
		return neighbors
	}

	const unvisited = -2
	labels := make([]int, n)
	for i := range labels {
		labels[i] = unvisited
	}

	cluster := 0
	for i := 0; i < n; i++ {
		if labels[i] != unvisited {
			continue
		}

		neighbors := neighborsOf(i)
		if len(neighbors)+1 < minPoints {
			labels[i] = -1 // Noise, may be claimed by a later cluster
			continue
		}

		labels[i] = cluster
		queue := append([]int{}, neighbors...)
		for len(queue) > 0 {
			j := queue[0]
			queue = queue[1:]

			if labels[j] == -1 {
				labels[j] = cluster // Border point
			}
			if labels[j] != unvisited {
				continue
			}
			labels[j] = cluster

			jNeighbors := neighborsOf(j)
			if len(jNeighbors)+1 >= minPoints {
				queue = append(queue, jNeighbors...)
			}
		}

		cluster++
	}

	return labels
}

// hierarchical runs agglomerative clustering with average linkage in
// cosine-distance space. Merging stops when nClusters remain, or when the
// closest pair is farther than maxDistance if nClusters is not positive.
func hierarchical(embeddings [][]float32, nClusters int, maxDistance float64) []int {
	n := len(embeddings)
	labels := make([]int, n)
	if n == 0 {
		return labels
	}

	normalized := make([][]float32, n)
	for i, embedding := range embeddings {
		normalized[i] = normalize(embedding)
	}

	// Each point starts as its own cluster
	clusters := make([][]int, n)
	for i := range clusters {
		clusters[i] = []int{i}
	}

	averageDistance := func(a, b []int) float64 {
		var sum float64
		for _, i := range a {
			for _, j := range b {
				sum += 1.0 - dotProduct(normalized[i], normalized[j])
			}
		}
		return sum / float64(len(a)*len(b))
	}

	for len(clusters) > 1 {
		if nClusters > 0 && len(clusters) <= nClusters {
			break
		}

		bestA, bestB := -1, -1
		bestDistance := math.Inf(1)
		for a := 0; a < len(clusters); a++ {
			for b := a + 1; b < len(clusters); b++ {
				distance := averageDistance(clusters[a], clusters[b])
				if distance < bestDistance {
					bestDistance = distance
					bestA, bestB = a, b
				}
			}
		}

		if nClusters <= 0 && bestDistance > maxDistance {
			break
		}

		clusters[bestA] = append(clusters[bestA], clusters[bestB]...)
		clusters = append(clusters[:bestB], clusters[bestB+1:]...)
	}

	for label, members := range clusters {
		for _, i := range members {
			labels[i] = label
		}
	}

	return labels
}

// toFloat64 widens a float32 vector
func toFloat64(vector []float32) []float64 {
	result := make([]float64, len(vector))
	for i, v := range vector {
		result[i] = float64(v)
	}
	return result
}

// squaredDistance computes the squared L2 distance between a float32 vector
// and a float64 centroid
func squaredDistance(a []float32, b []float64) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - b[i]
		sum += d * d
	}
	return sum
}
