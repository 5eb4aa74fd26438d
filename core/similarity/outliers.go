package similarity

import (
	"math"
	"math/rand"
	"sort"
)

// isolationTreeCount is the size of the forest used for outlier flagging
const isolationTreeCount = 100

// FindOutliers flags outlier embeddings in the style of an isolation
// forest: points that random axis-parallel splits isolate in few steps score
// high, and the top contamination fraction is flagged. Contamination is
// clamped to [0,0.5]. Returns a boolean mask over the input.
func (e *Engine) FindOutliers(embeddings [][]float32, contamination float64) []bool {
	n := len(embeddings)
	mask := make([]bool, n)
	if n < 2 {
		return mask
	}

	if contamination < 0 {
		contamination = 0
	}
	if contamination > 0.5 {
		contamination = 0.5
	}

	outlierCount := int(math.Round(contamination * float64(n)))
	if outlierCount == 0 {
		return mask
	}

	rng := rand.New(rand.NewSource(42))
	sampleSize := n
	if sampleSize > 256 {
		sampleSize = 256
	}
	maxDepth := int(math.Ceil(math.Log2(float64(sampleSize))))

	depthSums := make([]float64, n)
	for tree := 0; tree < isolationTreeCount; tree++ {
		sample := rng.Perm(n)[:sampleSize]
		root := buildIsolationTree(embeddings, sample, 0, maxDepth, rng)
		for i, embedding := range embeddings {
			depthSums[i] += pathLength(root, embedding, 0)
		}
	}

	// Lower average depth means easier isolation, so rank ascending
	type scored struct {
		index int
		depth float64
	}
	ranked := make([]scored, n)
	for i := range ranked {
		ranked[i] = scored{index: i, depth: depthSums[i] / isolationTreeCount}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].depth < ranked[j].depth
	})

	for i := 0; i < outlierCount; i++ {
		mask[ranked[i].index] = true
	}

	return mask
}

// isolationNode is one node of a random isolation tree
type isolationNode struct {
	splitDim   int
	splitValue float32
	left       *isolationNode
	right      *isolationNode
	size       int
}

// buildIsolationTree recursively partitions the sampled points with random
// axis-parallel splits
func buildIsolationTree(embeddings [][]float32, indices []int, depth, maxDepth int, rng *rand.Rand) *isolationNode {
	if len(indices) <= 1 || depth >= maxDepth {
		return &isolationNode{size: len(indices)}
	}

	dimension := len(embeddings[indices[0]])
	splitDim := rng.Intn(dimension)

	minValue, maxValue := embeddings[indices[0]][splitDim], embeddings[indices[0]][splitDim]
	for _, i := range indices[1:] {
		v := embeddings[i][splitDim]
		if v < minValue {
			minValue = v
		}
		if v > maxValue {
			maxValue = v
		}
	}
	if minValue == maxValue {
		return &isolationNode{size: len(indices)}
	}

	splitValue := minValue + rng.Float32()*(maxValue-minValue)

	var left, right []int
	for _, i := range indices {
		if embeddings[i][splitDim] < splitValue {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	return &isolationNode{
		splitDim:   splitDim,
		splitValue: splitValue,
		left:       buildIsolationTree(embeddings, left, depth+1, maxDepth, rng),
		right:      buildIsolationTree(embeddings, right, depth+1, maxDepth, rng),
		size:       len(indices),
	}
}

// pathLength follows a point down the tree, adding the standard average
// path-length correction at external nodes
func pathLength(node *isolationNode, embedding []float32, depth int) float64 {
	if node.left == nil && node.right == nil {
		return float64(depth) + averagePathLength(node.size)
	}

	if embedding[node.splitDim] < node.splitValue {
		return pathLength(node.left, embedding, depth+1)
	}
	return pathLength(node.right, embedding, depth+1)
}

// averagePathLength is the expected path length of an unsuccessful BST
// search over n points
func averagePathLength(n int) float64 {
	if n <= 1 {
		return 0
	}
	harmonic := math.Log(float64(n-1)) + 0.5772156649
	return 2*harmonic - 2*float64(n-1)/float64(n)
}
