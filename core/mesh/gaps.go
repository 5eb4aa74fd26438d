package mesh

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/siherrmann/mesher/core/graph"
	"github.com/siherrmann/mesher/core/similarity"
	"github.com/siherrmann/mesher/model"
)

// weakCommunityDensity is the internal density below which a community
// counts as weakly connected
const weakCommunityDensity = 0.3

// ComponentBridge marks two disconnected components whose average
// embeddings are similar; bridging content between them is a gap candidate
type ComponentBridge struct {
	ComponentA []string `json:"component_a"`
	ComponentB []string `json:"component_b"`
	Similarity float64  `json:"similarity"`
}

// WeakCommunity marks a community with low internal edge density
type WeakCommunity struct {
	CommunityID int      `json:"community_id"`
	Members     []string `json:"members"`
	Density     float64  `json:"density"`
}

// ContentGaps holds the three structural gap signals of a mesh. These are
// heuristics, not guarantees; a node can appear in several categories at
// once.
type ContentGaps struct {
	DisconnectedComponents []ComponentBridge `json:"disconnected_components"`
	LowConnectivity        []string          `json:"low_connectivity"`
	WeakCommunities        []WeakCommunity   `json:"weak_communities"`
}

// FindContentGaps detects structural gaps: pairs of disconnected components
// with centroid similarity at or above the threshold (candidates for
// bridging content), nodes with degree below 2 (low connectivity), and
// communities with internal density below 0.3 (weak communities).
func (m *Mesh) FindContentGaps(threshold float64) *ContentGaps {
	gaps := &ContentGaps{}
	if len(m.nodes) == 0 {
		return gaps
	}

	// (a) Disconnected components with similar centroids
	components := graph.ConnectedComponents(m)
	centroids := make([][]float32, len(components))
	for i, component := range components {
		centroids[i] = m.componentCentroid(component)
	}

	for i := 0; i < len(components); i++ {
		for j := i + 1; j < len(components); j++ {
			if centroids[i] == nil || centroids[j] == nil {
				continue
			}
			matrix := m.engine.PairwiseSimilarities([][]float32{centroids[i], centroids[j]},
				similarity.Config{Metric: similarity.MetricCosine})
			if matrix[0][1] >= threshold {
				gaps.DisconnectedComponents = append(gaps.DisconnectedComponents, ComponentBridge{
					ComponentA: components[i],
					ComponentB: components[j],
					Similarity: matrix[0][1],
				})
			}
		}
	}

	// (b) Low connectivity nodes
	for _, id := range m.order {
		if m.Degree(id) < 2 {
			gaps.LowConnectivity = append(gaps.LowConnectivity, id)
		}
	}

	// (c) Weak communities
	for _, community := range m.communities {
		density := m.communityDensity(community)
		if density < weakCommunityDensity {
			gaps.WeakCommunities = append(gaps.WeakCommunities, WeakCommunity{
				CommunityID: community.ID,
				Members:     community.Members,
				Density:     density,
			})
		}
	}

	m.log.Info("Found content gaps",
		slog.Int("disconnected_components", len(gaps.DisconnectedComponents)),
		slog.Int("low_connectivity", len(gaps.LowConnectivity)),
		slog.Int("weak_communities", len(gaps.WeakCommunities)))

	return gaps
}

// componentCentroid returns the average embedding of a component's nodes,
// or nil when no member has an embedding
func (m *Mesh) componentCentroid(component []string) []float32 {
	var centroid []float32
	count := 0
	for _, id := range component {
		embedding := m.nodes[id].Embedding
		if len(embedding) == 0 {
			continue
		}
		if centroid == nil {
			centroid = make([]float32, len(embedding))
		}
		for j, v := range embedding {
			centroid[j] += v
		}
		count++
	}
	if count == 0 {
		return nil
	}
	for j := range centroid {
		centroid[j] /= float32(count)
	}
	return centroid
}

// communityDensity computes internal density: actual intra-community edges
// over the maximum possible
func (m *Mesh) communityDensity(community *model.Community) float64 {
	if community.Size < 2 {
		return 0
	}

	inCommunity := make(map[string]bool, community.Size)
	for _, id := range community.Members {
		inCommunity[id] = true
	}

	intraEdges := 0
	for _, id := range community.Members {
		for neighborID := range m.adjacency[id] {
			if inCommunity[neighborID] {
				intraEdges++
			}
		}
	}
	intraEdges /= 2

	maxEdges := community.Size * (community.Size - 1) / 2
	return float64(intraEdges) / float64(maxEdges)
}

// OptimizeResult reports the edge changes of an OptimizeMesh call
type OptimizeResult struct {
	EdgesRemoved int `json:"edges_removed"`
	EdgesAdded   int `json:"edges_added"`
}

// OptimizeMesh mutates the graph in place: edges below half the similarity
// threshold are pruned, then nodes left with degree below 2 are greedily
// reconnected to their top-3 most similar unconnected neighbors at or above
// the threshold.
func (m *Mesh) OptimizeMesh(config model.MeshConfig) *OptimizeResult {
	result := &OptimizeResult{}
	pruneBelow := config.SimilarityThreshold / 2

	// Prune weak edges
	for _, edge := range m.Edges() {
		if edge.Weight < pruneBelow {
			m.RemoveEdge(edge.SourceID, edge.TargetID)
			result.EdgesRemoved++
		}
	}

	// Reconnect weakly connected nodes
	for _, sourceID := range m.order {
		if m.Degree(sourceID) >= 2 {
			continue
		}

		source := m.nodes[sourceID]
		if len(source.Embedding) == 0 {
			continue
		}

		var candidates []neighborCandidate
		for _, targetID := range m.order {
			if targetID == sourceID {
				continue
			}
			if _, connected := m.adjacency[sourceID][targetID]; connected {
				continue
			}
			target := m.nodes[targetID]
			if len(target.Embedding) == 0 {
				continue
			}

			matrix := m.engine.PairwiseSimilarities([][]float32{source.Embedding, target.Embedding},
				similarity.Config{Metric: similarity.MetricCosine})
			if matrix[0][1] >= config.SimilarityThreshold {
				candidates = append(candidates, neighborCandidate{targetID: targetID, weight: matrix[0][1]})
			}
		}

		sort.SliceStable(candidates, func(i, j int) bool {
			return candidates[i].weight > candidates[j].weight
		})
		if len(candidates) > 3 {
			candidates = candidates[:3]
		}

		for _, candidate := range candidates {
			added := m.AddEdge(&model.ContentEdge{
				SourceID: sourceID,
				TargetID: candidate.targetID,
				Weight:   candidate.weight,
				EdgeType: model.EdgeTypeSemantic,
			})
			if added == EdgeAdded {
				result.EdgesAdded++
			}
		}
	}

	m.log.Info("Optimized mesh", slog.String("changes", fmt.Sprintf("+%d/-%d edges", result.EdgesAdded, result.EdgesRemoved)))

	return result
}
