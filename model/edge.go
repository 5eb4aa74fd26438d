package model

// EdgeType represents the type of relationship between mesh nodes
type EdgeType string

const (
	EdgeTypeSemantic EdgeType = "semantic_similarity"
	EdgeTypeCustom   EdgeType = "custom"
)

// ContentEdge represents an undirected weighted edge in the content mesh.
// Weight is the similarity score in [0,1]. Edges are derived purely from
// similarity and recomputed on every mesh build; the edge set is fully
// determined by the current node set and config and is never persisted
// independently.
type ContentEdge struct {
	SourceID string   `json:"source_id"`
	TargetID string   `json:"target_id"`
	Weight   float64  `json:"weight"`
	EdgeType EdgeType `json:"edge_type"`
}

// Community represents a cluster of mesh nodes with dense internal
// connectivity, produced by modularity-based partitioning. After filtering,
// every community has size >= the configured minimum; communities partition
// but do not necessarily cover the node set.
type Community struct {
	ID      int      `json:"id"`
	Members []string `json:"members"`
	Size    int      `json:"size"`
}
