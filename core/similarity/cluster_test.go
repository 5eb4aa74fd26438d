package similarity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// twoBlobs returns two well-separated groups of vectors
func twoBlobs() [][]float32 {
	return [][]float32{
		{1, 0, 0}, {0.95, 0.05, 0}, {0.9, 0.1, 0},
		{0, 0, 1}, {0, 0.05, 0.95}, {0.1, 0, 0.9},
	}
}

func TestClusterEmbeddingsKMeans(t *testing.T) {
	t.Run("Separates two blobs with k=2", func(t *testing.T) {
		engine := NewEngine()

		labels, infos, err := engine.ClusterEmbeddings(twoBlobs(), 2, DefaultClusterConfig())

		require.NoError(t, err)
		require.Len(t, labels, 6)
		require.Len(t, infos, 2)

		assert.Equal(t, labels[0], labels[1], "First blob should share a label")
		assert.Equal(t, labels[0], labels[2], "First blob should share a label")
		assert.Equal(t, labels[3], labels[4], "Second blob should share a label")
		assert.NotEqual(t, labels[0], labels[3], "Blobs should have distinct labels")

		for _, info := range infos {
			assert.Equal(t, 3, info.Size)
			assert.Len(t, info.Centroid, 3)
		}
	})

	t.Run("Auto cluster count is capped at 10", func(t *testing.T) {
		engine := NewEngine()

		labels, infos, err := engine.ClusterEmbeddings(twoBlobs(), 0, DefaultClusterConfig())

		require.NoError(t, err)
		require.Len(t, labels, 6)
		assert.LessOrEqual(t, len(infos), 10)
		assert.GreaterOrEqual(t, len(infos), 1)
	})

	t.Run("Empty input yields empty results", func(t *testing.T) {
		engine := NewEngine()

		labels, infos, err := engine.ClusterEmbeddings(nil, 2, DefaultClusterConfig())

		require.NoError(t, err)
		assert.Empty(t, labels)
		assert.Empty(t, infos)
	})

	t.Run("Cluster count clamped to embedding count", func(t *testing.T) {
		engine := NewEngine()

		labels, _, err := engine.ClusterEmbeddings(twoBlobs()[:2], 10, DefaultClusterConfig())

		require.NoError(t, err)
		assert.Len(t, labels, 2)
	})
}

func TestClusterEmbeddingsDBSCAN(t *testing.T) {
	t.Run("Noise gets label -1 and labels stay bounded", func(t *testing.T) {
		engine := NewEngine()
		config := DefaultClusterConfig()
		config.Algorithm = AlgorithmDBSCAN
		config.Threshold = 0.9 // eps = 0.1, tight neighborhoods

		// Two tight pairs plus one far-away point
		embeddings := [][]float32{
			{1, 0, 0}, {0.99, 0.01, 0},
			{0, 0, 1}, {0, 0.01, 0.99},
			{0.5, 0.7, 0.5},
		}

		labels, _, err := engine.ClusterEmbeddings(embeddings, 0, config)

		require.NoError(t, err)
		require.Len(t, labels, 5)

		distinct := make(map[int]bool)
		for _, label := range labels {
			assert.GreaterOrEqual(t, label, -1, "Labels below -1 must not appear")
			if label >= 0 {
				distinct[label] = true
			}
		}
		assert.LessOrEqual(t, len(distinct), len(embeddings), "Never more labels than points")
		assert.Equal(t, -1, labels[4], "Isolated point should be noise")
	})

	t.Run("Uniform dense input yields one cluster", func(t *testing.T) {
		engine := NewEngine()
		config := DefaultClusterConfig()
		config.Algorithm = AlgorithmDBSCAN
		config.Threshold = 0.5

		embeddings := [][]float32{{1, 0}, {0.99, 0.01}, {0.98, 0.02}}

		labels, infos, err := engine.ClusterEmbeddings(embeddings, 0, config)

		require.NoError(t, err)
		assert.Equal(t, []int{0, 0, 0}, labels)
		require.Len(t, infos, 1)
		assert.Equal(t, 3, infos[0].Size)
	})
}

func TestClusterEmbeddingsHierarchical(t *testing.T) {
	t.Run("Average linkage separates two blobs", func(t *testing.T) {
		engine := NewEngine()
		config := DefaultClusterConfig()
		config.Algorithm = AlgorithmHierarchical

		labels, infos, err := engine.ClusterEmbeddings(twoBlobs(), 2, config)

		require.NoError(t, err)
		require.Len(t, labels, 6)
		assert.Len(t, infos, 2)
		assert.Equal(t, labels[0], labels[1])
		assert.NotEqual(t, labels[0], labels[3])
	})
}

func TestClusterEmbeddingsErrors(t *testing.T) {
	t.Run("Unknown algorithm is a configuration error", func(t *testing.T) {
		engine := NewEngine()
		config := DefaultClusterConfig()
		config.Algorithm = "spectral"

		_, _, err := engine.ClusterEmbeddings(twoBlobs(), 2, config)

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "unknown clustering algorithm")
	})
}

func TestFindOutliers(t *testing.T) {
	t.Run("Flags the isolated point", func(t *testing.T) {
		engine := NewEngine()

		// A tight cluster and one distant point
		embeddings := [][]float32{
			{1, 1}, {1.01, 1}, {1, 1.01}, {0.99, 1}, {1, 0.99},
			{10, 10},
		}

		mask := engine.FindOutliers(embeddings, 0.2)

		require.Len(t, mask, 6)
		assert.True(t, mask[5], "The distant point should be flagged")

		flagged := 0
		for _, isOutlier := range mask {
			if isOutlier {
				flagged++
			}
		}
		assert.Equal(t, 1, flagged, "Contamination 0.2 over 6 points flags 1")
	})

	t.Run("Zero contamination flags nothing", func(t *testing.T) {
		engine := NewEngine()

		mask := engine.FindOutliers(twoBlobs(), 0)

		for _, isOutlier := range mask {
			assert.False(t, isOutlier)
		}
	})

	t.Run("Too few points flags nothing", func(t *testing.T) {
		engine := NewEngine()

		mask := engine.FindOutliers([][]float32{{1, 2}}, 0.5)

		require.Len(t, mask, 1)
		assert.False(t, mask[0])
	})
}

func TestReduceDimensions(t *testing.T) {
	t.Run("PCA projects to requested dimensionality", func(t *testing.T) {
		engine := NewEngine()

		projected, err := engine.ReduceDimensions(twoBlobs(), 2, MethodPCA)

		require.NoError(t, err)
		require.Len(t, projected, 6)
		for _, row := range projected {
			assert.Len(t, row, 2)
		}
	})

	t.Run("PCA separates distinct blobs on the first component", func(t *testing.T) {
		engine := NewEngine()

		projected, err := engine.ReduceDimensions(twoBlobs(), 1, MethodPCA)

		require.NoError(t, err)

		// The two blobs should land on opposite sides of the first component
		sameSide := (projected[0][0] > 0) == (projected[3][0] > 0)
		assert.False(t, sameSide, "Separated blobs should project to opposite signs")
	})

	t.Run("TSNE projects to requested dimensionality", func(t *testing.T) {
		engine := NewEngine()

		projected, err := engine.ReduceDimensions(twoBlobs(), 2, MethodTSNE)

		require.NoError(t, err)
		require.Len(t, projected, 6)
		for _, row := range projected {
			assert.Len(t, row, 2)
		}
	})

	t.Run("UMAP falls back to PCA", func(t *testing.T) {
		engine := NewEngine()

		viaUMAP, err := engine.ReduceDimensions(twoBlobs(), 2, MethodUMAP)
		require.NoError(t, err)

		viaPCA, err := engine.ReduceDimensions(twoBlobs(), 2, MethodPCA)
		require.NoError(t, err)

		assert.Equal(t, viaPCA, viaUMAP, "UMAP should fall back to the PCA projection")
	})

	t.Run("Empty input yields empty projection", func(t *testing.T) {
		engine := NewEngine()

		projected, err := engine.ReduceDimensions(nil, 2, MethodPCA)

		require.NoError(t, err)
		assert.Empty(t, projected)
	})

	t.Run("Error with non-positive component count", func(t *testing.T) {
		engine := NewEngine()

		_, err := engine.ReduceDimensions(twoBlobs(), 0, MethodPCA)

		assert.Error(t, err)
	})

	t.Run("Error with unknown method", func(t *testing.T) {
		engine := NewEngine()

		_, err := engine.ReduceDimensions(twoBlobs(), 2, "isomap")

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "unknown reduction method")
	})
}
