package mesh

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/siherrmann/mesher/core/graph"
	"github.com/siherrmann/mesher/core/similarity"
	"github.com/siherrmann/mesher/helper"
	"github.com/siherrmann/mesher/model"
)

// EdgeAddResult reports what AddEdge did, so callers can distinguish
// "nothing to do" from a silently ignored mistake
type EdgeAddResult string

const (
	EdgeAdded                  EdgeAddResult = "added"
	EdgeReplacedExisting       EdgeAddResult = "replaced_existing"
	EdgeSkippedMissingEndpoint EdgeAddResult = "skipped_missing_endpoint"
	EdgeSkippedSelfLoop        EdgeAddResult = "skipped_self_loop"
)

// Mesh is a weighted undirected similarity graph over content nodes.
// Nodes accumulate across BuildMesh calls on the same instance; callers must
// create a fresh Mesh per analysis run to get a clean graph. A Mesh is not
// safe for concurrent mutation.
type Mesh struct {
	engine    *similarity.Engine
	indexName string
	nodes     map[string]*model.ContentNode
	order     []string // Node ids in insertion order
	adjacency map[string]map[string]float64
	edgeTypes map[string]map[string]model.EdgeType

	communities []*model.Community

	log *slog.Logger
}

// NewMesh creates an empty mesh. The index name scopes the similarity index
// of this mesh and must be unique per analysis request when the engine is
// shared.
func NewMesh(engine *similarity.Engine, indexName string, logger *slog.Logger) *Mesh {
	if logger == nil {
		logger = slog.Default()
	}
	return &Mesh{
		engine:    engine,
		indexName: indexName,
		nodes:     make(map[string]*model.ContentNode),
		adjacency: make(map[string]map[string]float64),
		edgeTypes: make(map[string]map[string]model.EdgeType),
		log:       logger,
	}
}

// NodeCount returns the number of nodes in the mesh
func (m *Mesh) NodeCount() int {
	return len(m.nodes)
}

// EdgeCount returns the number of undirected edges in the mesh
func (m *Mesh) EdgeCount() int {
	total := 0
	for _, neighbors := range m.adjacency {
		total += len(neighbors)
	}
	return total / 2
}

// Node returns a node by id, or nil when unknown
func (m *Mesh) Node(id string) *model.ContentNode {
	return m.nodes[id]
}

// NodeIDs returns all node ids in insertion order.
// Implements graph.Adjacency together with Neighbors.
func (m *Mesh) NodeIDs() []string {
	ids := make([]string, len(m.order))
	copy(ids, m.order)
	return ids
}

// Neighbors returns the neighbor weights of a node.
// The returned map is the live adjacency and must not be mutated.
func (m *Mesh) Neighbors(id string) map[string]float64 {
	return m.adjacency[id]
}

// Degree returns the number of neighbors of a node
func (m *Mesh) Degree(id string) int {
	return len(m.adjacency[id])
}

// AddNode adds a node to the mesh. Adding an id again replaces the node but
// keeps its edges.
func (m *Mesh) AddNode(node *model.ContentNode) {
	if _, exists := m.nodes[node.ID]; !exists {
		m.order = append(m.order, node.ID)
		m.adjacency[node.ID] = make(map[string]float64)
		m.edgeTypes[node.ID] = make(map[string]model.EdgeType)
	}
	m.nodes[node.ID] = node
}

// AddEdge adds an undirected edge. Edges with a missing endpoint or
// self-loops are skipped, never an error; the result says which.
func (m *Mesh) AddEdge(edge *model.ContentEdge) EdgeAddResult {
	if edge.SourceID == edge.TargetID {
		return EdgeSkippedSelfLoop
	}
	if _, ok := m.nodes[edge.SourceID]; !ok {
		return EdgeSkippedMissingEndpoint
	}
	if _, ok := m.nodes[edge.TargetID]; !ok {
		return EdgeSkippedMissingEndpoint
	}

	result := EdgeAdded
	if _, exists := m.adjacency[edge.SourceID][edge.TargetID]; exists {
		result = EdgeReplacedExisting
	}

	m.adjacency[edge.SourceID][edge.TargetID] = edge.Weight
	m.adjacency[edge.TargetID][edge.SourceID] = edge.Weight
	m.edgeTypes[edge.SourceID][edge.TargetID] = edge.EdgeType
	m.edgeTypes[edge.TargetID][edge.SourceID] = edge.EdgeType

	return result
}

// RemoveEdge removes an undirected edge if present
func (m *Mesh) RemoveEdge(sourceID, targetID string) {
	delete(m.adjacency[sourceID], targetID)
	delete(m.adjacency[targetID], sourceID)
	delete(m.edgeTypes[sourceID], targetID)
	delete(m.edgeTypes[targetID], sourceID)
}

// Edges returns every undirected edge once, ordered by source then target id
func (m *Mesh) Edges() []*model.ContentEdge {
	var edges []*model.ContentEdge
	for _, sourceID := range m.order {
		for targetID, weight := range m.adjacency[sourceID] {
			if sourceID < targetID {
				edges = append(edges, &model.ContentEdge{
					SourceID: sourceID,
					TargetID: targetID,
					Weight:   weight,
					EdgeType: m.edgeTypes[sourceID][targetID],
				})
			}
		}
	}

	sort.Slice(edges, func(i, j int) bool {
		if edges[i].SourceID != edges[j].SourceID {
			return edges[i].SourceID < edges[j].SourceID
		}
		return edges[i].TargetID < edges[j].TargetID
	})

	return edges
}

// Communities returns the communities detected by the last BuildMesh
func (m *Mesh) Communities() []*model.Community {
	return m.communities
}

// BuildMesh adds all nodes, indexes their embeddings and derives edges from
// pairwise similarity: per node, neighbors with similarity at or above the
// threshold are kept in descending order, truncated to MaxEdgesPerNode.
//
// The exact path computes the full pairwise matrix, which is O(N^2) per
// build and acceptable only for moderate corpus sizes. With
// config.ApproximateNeighbors the per-node candidates come from index
// search at k = MaxEdgesPerNode * OverfetchFactor instead, trading edge
// exactness for scalability.
//
// An empty node list yields an empty graph; all downstream calls then
// return empty results instead of errors.
func (m *Mesh) BuildMesh(nodes []*model.ContentNode, config model.MeshConfig) error {
	for _, node := range nodes {
		m.AddNode(node)
	}
	if len(m.nodes) == 0 {
		return nil
	}

	embeddings := make([][]float32, 0, len(m.order))
	for _, id := range m.order {
		embeddings = append(embeddings, m.nodes[id].Embedding)
	}

	err := m.engine.BuildIndex(embeddings, m.indexName, similarity.Config{
		Metric:    similarity.MetricCosine,
		Threshold: config.SimilarityThreshold,
	}, nil)
	if err != nil {
		return helper.NewError("build similarity index", err)
	}

	if config.ApproximateNeighbors {
		err = m.buildEdgesApproximate(embeddings, config)
	} else {
		m.buildEdgesExact(embeddings, config)
	}
	if err != nil {
		return err
	}

	m.log.Info("Built mesh edges",
		slog.Int("nodes", m.NodeCount()),
		slog.Int("edges", m.EdgeCount()),
		slog.Bool("approximate", config.ApproximateNeighbors))

	if config.UseCommunityDetection {
		m.detectCommunities(config.MinCommunitySize)
	}

	if config.UsePageRank {
		ranks, err := m.pageRank(nil)
		if err != nil {
			return helper.NewError("compute pagerank", err)
		}
		for id, rank := range ranks {
			m.nodes[id].PageRank = rank
		}
	}

	return nil
}

// neighborCandidate is one potential edge during mesh construction
type neighborCandidate struct {
	targetID string
	weight   float64
}

// buildEdgesExact derives edges from the dense pairwise similarity matrix
func (m *Mesh) buildEdgesExact(embeddings [][]float32, config model.MeshConfig) {
	matrix := m.engine.PairwiseSimilarities(embeddings, similarity.Config{Metric: similarity.MetricCosine})

	for i, sourceID := range m.order {
		var candidates []neighborCandidate
		for j, targetID := range m.order {
			if i == j {
				continue
			}
			if matrix[i][j] >= config.SimilarityThreshold {
				candidates = append(candidates, neighborCandidate{targetID: targetID, weight: matrix[i][j]})
			}
		}

		m.addCandidateEdges(sourceID, candidates, config.MaxEdgesPerNode)
	}
}

// buildEdgesApproximate derives edges from per-node index searches
func (m *Mesh) buildEdgesApproximate(embeddings [][]float32, config model.MeshConfig) error {
	overfetch := config.OverfetchFactor
	if overfetch < 1 {
		overfetch = 1
	}
	k := config.MaxEdgesPerNode*overfetch + 1 // +1 to cover the node itself

	for i, sourceID := range m.order {
		results, err := m.engine.Search(embeddings[i], m.indexName, k)
		if err != nil {
			return helper.NewError("search similarity index", err)
		}

		var candidates []neighborCandidate
		for _, result := range results {
			if result.Index == i {
				continue
			}
			if result.Score >= config.SimilarityThreshold {
				candidates = append(candidates, neighborCandidate{
					targetID: m.order[result.Index],
					weight:   result.Score,
				})
			}
		}

		m.addCandidateEdges(sourceID, candidates, config.MaxEdgesPerNode)
	}

	return nil
}

// addCandidateEdges sorts candidates by descending weight, truncates to the
// per-node cap and adds the surviving edges
func (m *Mesh) addCandidateEdges(sourceID string, candidates []neighborCandidate, maxEdges int) {
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].weight > candidates[j].weight
	})
	if maxEdges > 0 && len(candidates) > maxEdges {
		candidates = candidates[:maxEdges]
	}

	for _, candidate := range candidates {
		m.AddEdge(&model.ContentEdge{
			SourceID: sourceID,
			TargetID: candidate.targetID,
			Weight:   candidate.weight,
			EdgeType: model.EdgeTypeSemantic,
		})
	}
}

// Recommendation is one related-content suggestion for a node
type Recommendation struct {
	Node  *model.ContentNode `json:"node"`
	Score float64            `json:"score"`
}

// NodeRecommendations returns up to n related nodes for a node, ranked by
// personalized PageRank seeded at it. When PageRank cannot converge (e.g.
// an isolated seed), the ranking falls back to raw neighbor edge weights.
func (m *Mesh) NodeRecommendations(nodeID string, n int) ([]Recommendation, error) {
	if _, ok := m.nodes[nodeID]; !ok {
		return nil, helper.NewError("node recommendations", fmt.Errorf("unknown node: %s", nodeID))
	}

	scores, err := m.pageRank(&nodeID)
	if err != nil {
		m.log.Warn("Personalized pagerank did not converge, falling back to neighbor weights",
			slog.String("node_id", nodeID))
		scores = m.adjacency[nodeID]
	}

	var recommendations []Recommendation
	for id, score := range scores {
		if id == nodeID || score <= 0 {
			continue
		}
		recommendations = append(recommendations, Recommendation{
			Node:  m.nodes[id],
			Score: score,
		})
	}

	sort.SliceStable(recommendations, func(i, j int) bool {
		return recommendations[i].Score > recommendations[j].Score
	})
	if n > 0 && len(recommendations) > n {
		recommendations = recommendations[:n]
	}

	return recommendations, nil
}

// ShortestPath returns the node id path between source and target where
// stronger similarity makes traversal cheaper (edge cost 1/(weight+0.1)).
// Returns nil when the nodes are disconnected.
func (m *Mesh) ShortestPath(sourceID, targetID string) []string {
	if _, ok := m.nodes[sourceID]; !ok {
		return nil
	}
	if _, ok := m.nodes[targetID]; !ok {
		return nil
	}

	path, _, found := graph.ShortestPath(m, sourceID, targetID, func(weight float64) float64 {
		return 1.0 / (weight + 0.1)
	})
	if !found {
		return nil
	}
	return path
}

// Statistics summarizes the mesh structure. Diameter and radius are only
// set when the graph is connected; on disconnected graphs they are omitted
// rather than raising an error.
func (m *Mesh) Statistics() *model.MeshStatistics {
	stats := &model.MeshStatistics{
		NodeCount: m.NodeCount(),
		EdgeCount: m.EdgeCount(),
	}
	if stats.NodeCount == 0 {
		return stats
	}

	n := float64(stats.NodeCount)
	if stats.NodeCount > 1 {
		stats.Density = 2 * float64(stats.EdgeCount) / (n * (n - 1))
	}
	stats.AverageDegree = 2 * float64(stats.EdgeCount) / n

	// Degree centrality = degree / (n-1)
	if stats.NodeCount > 1 {
		var centralitySum float64
		for _, id := range m.order {
			centralitySum += float64(m.Degree(id)) / (n - 1)
		}
		stats.AverageDegreeCentrality = centralitySum / n
	}

	components := graph.ConnectedComponents(m)
	stats.ConnectedComponents = len(components)
	for _, component := range components {
		if len(component) > stats.LargestComponent {
			stats.LargestComponent = len(component)
		}
	}

	if len(m.communities) > 0 {
		stats.CommunityCount = len(m.communities)
		smallest := m.communities[0].Size
		largest := 0
		total := 0
		for _, community := range m.communities {
			if community.Size > largest {
				largest = community.Size
			}
			if community.Size < smallest {
				smallest = community.Size
			}
			total += community.Size
		}
		stats.LargestCommunity = largest
		stats.SmallestCommunity = smallest
		stats.AverageCommunitySize = float64(total) / float64(len(m.communities))
	}

	// Diameter and radius require a connected graph
	if stats.ConnectedComponents == 1 && stats.NodeCount > 1 {
		diameter := 0
		radius := -1
		for _, id := range m.order {
			eccentricity := graph.Eccentricity(m, id)
			if eccentricity > diameter {
				diameter = eccentricity
			}
			if radius < 0 || eccentricity < radius {
				radius = eccentricity
			}
		}
		stats.Diameter = &diameter
		stats.Radius = &radius
	}

	return stats
}

// Snapshot serializes the mesh for storage in an analysis result
func (m *Mesh) Snapshot() *model.MeshSnapshot {
	nodes := make([]*model.ContentNode, 0, len(m.order))
	for _, id := range m.order {
		nodes = append(nodes, m.nodes[id])
	}

	return &model.MeshSnapshot{
		Nodes:       nodes,
		Edges:       m.Edges(),
		Communities: m.communities,
		Statistics:  m.Statistics(),
	}
}
