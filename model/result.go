package model

import "time"

// MeshStatistics summarizes the structure of a content mesh.
// Diameter and Radius are only set when the graph is connected.
type MeshStatistics struct {
	NodeCount               int     `json:"node_count"`
	EdgeCount               int     `json:"edge_count"`
	Density                 float64 `json:"density"`
	AverageDegree           float64 `json:"average_degree"`
	ConnectedComponents     int     `json:"connected_components"`
	LargestComponent        int     `json:"largest_component"`
	CommunityCount          int     `json:"community_count"`
	LargestCommunity        int     `json:"largest_community,omitempty"`
	SmallestCommunity       int     `json:"smallest_community,omitempty"`
	AverageCommunitySize    float64 `json:"average_community_size,omitempty"`
	AverageDegreeCentrality float64 `json:"average_degree_centrality"`
	Diameter                *int    `json:"diameter,omitempty"`
	Radius                  *int    `json:"radius,omitempty"`
}

// MeshSnapshot is the serialized form of a content mesh stored in an
// analysis result
type MeshSnapshot struct {
	Nodes       []*ContentNode  `json:"nodes"`
	Edges       []*ContentEdge  `json:"edges"`
	Communities []*Community    `json:"communities,omitempty"`
	Statistics  *MeshStatistics `json:"statistics"`
}

// AnalysisRequest is the input to one analysis run
type AnalysisRequest struct {
	RequestID         string          `json:"request_id,omitempty"`
	ContentItems      []*ContentItem  `json:"content_items"`
	TargetKeywords    []string        `json:"target_keywords,omitempty"`
	ReferenceTopics   []string        `json:"reference_topics,omitempty"`
	CompetitorContent []string        `json:"competitor_content,omitempty"`
	OptimizationGoals []string        `json:"optimization_goals,omitempty"`
	Config            *AnalysisConfig `json:"config,omitempty"`
}

// AnalysisResult aggregates one full analysis run. Results are created once
// per request, cached and persisted, and never updated; new runs create new
// results keyed by request id.
type AnalysisResult struct {
	RequestID      string                    `json:"request_id"`
	Timestamp      time.Time                 `json:"timestamp"`
	ContentMesh    *MeshSnapshot             `json:"content_mesh"`
	SemanticGaps   []*SemanticGap            `json:"semantic_gaps"`
	Suggestions    []*OptimizationSuggestion `json:"optimization_suggestions"`
	Visualizations Metadata                  `json:"visualizations,omitempty"`
	Metrics        Metadata                  `json:"metrics"`
	ProcessingTime float64                   `json:"processing_time"`
}
