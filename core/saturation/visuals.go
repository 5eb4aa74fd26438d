package saturation

import (
	"log/slog"

	"github.com/siherrmann/mesher/core/mesh"
	"github.com/siherrmann/mesher/core/similarity"
	"github.com/siherrmann/mesher/model"
)

// buildVisualizations computes render-ready data series for the run:
// 2D node positions (PCA projection of the embeddings), a gap severity
// series and a community size histogram. It produces data only; rendering
// is left to the caller. A failed projection is logged and skipped, the
// remaining series are still produced.
func buildVisualizations(engine *similarity.Engine, contentMesh *mesh.Mesh, semanticGaps []*model.SemanticGap, logger *slog.Logger) model.Metadata {
	visualizations := model.Metadata{}

	if positions := nodePositions(engine, contentMesh, logger); len(positions) > 0 {
		visualizations["node_positions"] = positions
	}
	if severities := gapSeverities(semanticGaps); len(severities) > 0 {
		visualizations["gap_severities"] = severities
	}
	if sizes := communitySizes(contentMesh); len(sizes) > 0 {
		visualizations["community_sizes"] = sizes
	}

	return visualizations
}

// nodePositions projects the node embeddings to 2D via PCA. Nodes without
// an embedding are left out of the projection.
func nodePositions(engine *similarity.Engine, contentMesh *mesh.Mesh, logger *slog.Logger) []model.Metadata {
	var nodes []*model.ContentNode
	var embeddings [][]float32
	for _, id := range contentMesh.NodeIDs() {
		node := contentMesh.Node(id)
		if len(node.Embedding) == 0 {
			continue
		}
		nodes = append(nodes, node)
		embeddings = append(embeddings, node.Embedding)
	}
	if len(nodes) == 0 {
		return nil
	}

	coordinates, err := engine.ReduceDimensions(embeddings, 2, similarity.MethodPCA)
	if err != nil {
		logger.Warn("Failed to project node positions", slog.String("error", err.Error()))
		return nil
	}

	positions := make([]model.Metadata, 0, len(nodes))
	for i, node := range nodes {
		// One-dimensional embeddings project to a line.
		y := 0.0
		if len(coordinates[i]) > 1 {
			y = coordinates[i][1]
		}
		positions = append(positions, model.Metadata{
			"id":        node.ID,
			"x":         coordinates[i][0],
			"y":         y,
			"community": node.Community,
			"page_rank": node.PageRank,
		})
	}
	return positions
}

func gapSeverities(semanticGaps []*model.SemanticGap) []model.Metadata {
	severities := make([]model.Metadata, 0, len(semanticGaps))
	for _, gap := range semanticGaps {
		severities = append(severities, model.Metadata{
			"gap_id":   gap.GapID,
			"gap_type": string(gap.GapType),
			"severity": gap.Severity,
		})
	}
	return severities
}

func communitySizes(contentMesh *mesh.Mesh) []model.Metadata {
	communities := contentMesh.Communities()
	sizes := make([]model.Metadata, 0, len(communities))
	for _, community := range communities {
		sizes = append(sizes, model.Metadata{
			"community": community.ID,
			"size":      len(community.Members),
		})
	}
	return sizes
}
