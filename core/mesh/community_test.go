package mesh

import (
	"fmt"
	"testing"

	"github.com/siherrmann/mesher/core/similarity"
	"github.com/siherrmann/mesher/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// cliqueMesh builds a mesh of tight cliques connected by weak bridges, a
// structure where modularity optimization keeps improving over more than
// one aggregation level.
func cliqueMesh(t *testing.T, cliques []string, cliqueSize int, bridges [][2]string) *Mesh {
	t.Helper()
	mesh := NewMesh(similarity.NewEngine(), "test", nil)

	for _, clique := range cliques {
		for i := 0; i < cliqueSize; i++ {
			mesh.AddNode(&model.ContentNode{ID: fmt.Sprintf("%s%d", clique, i), Community: -1})
		}
		for i := 0; i < cliqueSize; i++ {
			for j := i + 1; j < cliqueSize; j++ {
				result := mesh.AddEdge(&model.ContentEdge{
					SourceID: fmt.Sprintf("%s%d", clique, i),
					TargetID: fmt.Sprintf("%s%d", clique, j),
					Weight:   1.0,
				})
				require.Equal(t, EdgeAdded, result)
			}
		}
	}

	for _, bridge := range bridges {
		result := mesh.AddEdge(&model.ContentEdge{
			SourceID: bridge[0] + "0",
			TargetID: bridge[1] + "0",
			Weight:   0.1,
		})
		require.Equal(t, EdgeAdded, result)
	}

	return mesh
}

func TestDetectCommunities(t *testing.T) {
	t.Run("Weakly bridged cliques stay separate communities", func(t *testing.T) {
		mesh := cliqueMesh(t, []string{"a", "b", "c", "d"}, 4,
			[][2]string{{"a", "b"}, {"c", "d"}})

		mesh.detectCommunities(2)

		communities := mesh.Communities()
		require.Len(t, communities, 4, "Expected one community per clique")
		for _, community := range communities {
			assert.Equal(t, 4, community.Size, "Expected every clique to stay whole")
			prefix := community.Members[0][:1]
			for _, member := range community.Members {
				assert.Equal(t, prefix, member[:1], "Expected all members from the same clique")
			}
		}
	})

	t.Run("Densely bridged cliques merge over aggregation levels", func(t *testing.T) {
		// Two pairs of triangles with strong bridges merge pairwise once
		// the first level's communities are collapsed and moved again.
		mesh := NewMesh(similarity.NewEngine(), "test", nil)
		for _, clique := range []string{"a", "b", "c", "d"} {
			for i := 0; i < 3; i++ {
				mesh.AddNode(&model.ContentNode{ID: fmt.Sprintf("%s%d", clique, i), Community: -1})
			}
			for i := 0; i < 3; i++ {
				for j := i + 1; j < 3; j++ {
					mesh.AddEdge(&model.ContentEdge{
						SourceID: fmt.Sprintf("%s%d", clique, i),
						TargetID: fmt.Sprintf("%s%d", clique, j),
						Weight:   1.0,
					})
				}
			}
		}
		for _, bridge := range [][2]string{{"a", "b"}, {"c", "d"}} {
			for i := 0; i < 3; i++ {
				mesh.AddEdge(&model.ContentEdge{
					SourceID: fmt.Sprintf("%s%d", bridge[0], i),
					TargetID: fmt.Sprintf("%s%d", bridge[1], i),
					Weight:   0.9,
				})
			}
		}

		mesh.detectCommunities(2)

		communities := mesh.Communities()
		require.NotEmpty(t, communities, "Expected communities on a connected mesh")
		assert.LessOrEqual(t, len(communities), 2, "Expected the strongly bridged triangle pairs to merge")
		for _, id := range mesh.NodeIDs() {
			assert.GreaterOrEqual(t, mesh.Node(id).Community, 0, "Expected every node assigned with min size 2")
		}
	})

	t.Run("Default minimum size keeps whole cliques", func(t *testing.T) {
		mesh := cliqueMesh(t, []string{"a", "b", "c", "d"}, 4,
			[][2]string{{"a", "b"}, {"c", "d"}})

		mesh.detectCommunities(model.DefaultMeshConfig().MinCommunitySize)

		assert.Len(t, mesh.Communities(), 4, "Expected the default minimum size to keep all four cliques")
	})
}

func TestLouvain(t *testing.T) {
	t.Run("Multi-level aggregation keeps labels in range", func(t *testing.T) {
		mesh := cliqueMesh(t, []string{"a", "b", "c", "d"}, 4,
			[][2]string{{"a", "b"}, {"c", "d"}})

		assignment := louvain(mesh.adjacency)

		require.Len(t, assignment, 16, "Expected a community per node")
		distinct := map[int]bool{}
		for id, community := range assignment {
			assert.GreaterOrEqual(t, community, 0, "Expected dense non-negative labels")
			assert.Less(t, community, 16, "Expected labels bounded by the node count")
			distinct[community] = true
			// Nodes of one clique share their community
			assert.Equal(t, assignment[id[:1]+"0"], community, "Expected clique members to share a community")
		}
		assert.Equal(t, 4, len(distinct), "Expected one community per clique")
	})

	t.Run("Empty adjacency yields no assignments", func(t *testing.T) {
		assignment := louvain(map[string]map[string]float64{})
		assert.Empty(t, assignment)
	})
}
