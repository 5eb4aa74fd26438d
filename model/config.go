package model

import "time"

// MeshConfig represents configuration for building the content mesh
type MeshConfig struct {
	// Edge construction parameters
	SimilarityThreshold float64 `json:"similarity_threshold"` // Minimum similarity for an edge
	MaxEdgesPerNode     int     `json:"max_edges_per_node"`

	// Community detection and centrality
	MinCommunitySize      int  `json:"min_community_size"`
	UseCommunityDetection bool `json:"use_community_detection"`
	UsePageRank           bool `json:"use_page_rank"`

	// Neighbor search. Exact pairwise similarity is O(N^2) per build; for
	// large corpora ApproximateNeighbors switches to per-node index search
	// at k = MaxEdgesPerNode * OverfetchFactor, trading exactness for speed.
	ApproximateNeighbors bool `json:"approximate_neighbors"`
	OverfetchFactor      int  `json:"overfetch_factor"`
}

// DefaultMeshConfig returns a sensible default configuration
func DefaultMeshConfig() MeshConfig {
	return MeshConfig{
		SimilarityThreshold:   0.5,
		MaxEdgesPerNode:       10,
		MinCommunitySize:      3,
		UseCommunityDetection: true,
		UsePageRank:           true,
		ApproximateNeighbors:  false,
		OverfetchFactor:       3,
	}
}

// GapConfig represents configuration for gap analysis.
// Severities and type weights are explicit here so rankings are tunable and
// testable instead of living as literals in the analysis code.
type GapConfig struct {
	// Topic modeling
	TopicMethod string `json:"topic_method"` // "lda", "nmf" or "embedding"
	TopicCount  int    `json:"topic_count"`

	// Coverage analysis
	CoverageThreshold float64 `json:"coverage_threshold"`
	// CoherenceThreshold applies to the internal co-occurrence coherence
	// proxy, not a standard coherence metric; the default was chosen against
	// that proxy and does not transfer to other coherence implementations.
	CoherenceThreshold float64 `json:"coherence_threshold"`
	MinTopicSize       int     `json:"min_topic_size"`

	// Density analysis
	IslandSimilarityCeiling float64 `json:"island_similarity_ceiling"` // Best similarity below this marks an island
	ClusterThreshold        float64 `json:"cluster_threshold"`         // DBSCAN eps = 1 - threshold
	SparseClusterSize       int     `json:"sparse_cluster_size"`

	// Severities per gap type
	WeakCoverageSeverity float64 `json:"weak_coverage_severity"`
	IslandSeverity       float64 `json:"island_severity"`
	SparseRegionSeverity float64 `json:"sparse_region_severity"`

	// Type weights used by prioritization
	TypeWeights map[GapType]float64 `json:"type_weights,omitempty"`
}

// DefaultGapTypeWeights returns the default priority weight per gap type
func DefaultGapTypeWeights() map[GapType]float64 {
	return map[GapType]float64{
		GapTypeMissingTopic:        1.0,
		GapTypeCompetitorAdvantage: 0.9,
		GapTypeWeakCoverage:        0.8,
		GapTypeContentIsland:       0.7,
		GapTypeSparseRegion:        0.6,
	}
}

// DefaultGapConfig returns a sensible default configuration
func DefaultGapConfig() GapConfig {
	return GapConfig{
		TopicMethod:             "embedding",
		TopicCount:              5,
		CoverageThreshold:       0.6,
		CoherenceThreshold:      0.3,
		MinTopicSize:            2,
		IslandSimilarityCeiling: 0.5,
		ClusterThreshold:        0.5,
		SparseClusterSize:       3,
		WeakCoverageSeverity:    0.7,
		IslandSeverity:          0.8,
		SparseRegionSeverity:    0.6,
		TypeWeights:             DefaultGapTypeWeights(),
	}
}

// OptimizeConfig represents configuration for the optimization lenses
type OptimizeConfig struct {
	// Readability
	TargetGradeLevel float64 `json:"target_grade_level"`
	MaxSentenceWords int     `json:"max_sentence_words"`

	// Structure
	MinWordsForHeaders int `json:"min_words_for_headers"`
	MaxParagraphWords  int `json:"max_paragraph_words"`
	MinWordsForLists   int `json:"min_words_for_lists"`

	// Keywords; density values are percentages of total words.
	// RelatedKeywordCount bounds the semantically related terms surfaced
	// as evidence on keyword suggestions.
	TargetKeywordDensity float64 `json:"target_keyword_density"`
	RelatedKeywordCount  int     `json:"related_keyword_count"`

	// Engagement
	MinWordsForQuestions int     `json:"min_words_for_questions"`
	LowToneThreshold     float64 `json:"low_tone_threshold"`
	NeutralTone          float64 `json:"neutral_tone"`

	// Semantic coherence
	WeakTransitionThreshold float64 `json:"weak_transition_threshold"`
	LowCoherenceThreshold   float64 `json:"low_coherence_threshold"`

	// Competitive
	CompetitorSimilarityCeiling float64 `json:"competitor_similarity_ceiling"`

	// Concurrency bound for the analysis lenses of one item
	LensConcurrency int `json:"lens_concurrency"`
}

// DefaultOptimizeConfig returns a sensible default configuration
func DefaultOptimizeConfig() OptimizeConfig {
	return OptimizeConfig{
		TargetGradeLevel:            10.0,
		MaxSentenceWords:            30,
		MinWordsForHeaders:          300,
		MaxParagraphWords:           150,
		MinWordsForLists:            400,
		TargetKeywordDensity:        1.5,
		RelatedKeywordCount:         5,
		MinWordsForQuestions:        200,
		LowToneThreshold:            0.4,
		NeutralTone:                 0.5,
		WeakTransitionThreshold:     0.5,
		LowCoherenceThreshold:       0.6,
		CompetitorSimilarityCeiling: 0.8,
		LensConcurrency:             6,
	}
}

// AnalysisConfig bundles the configuration of one full analysis run
type AnalysisConfig struct {
	Mesh     MeshConfig     `json:"mesh"`
	Gap      GapConfig      `json:"gap"`
	Optimize OptimizeConfig `json:"optimize"`

	// Cost control: only the first MaxOptimizedItems items are optimized,
	// keeping at most MaxSuggestionsPerItem suggestions each
	MaxOptimizedItems     int `json:"max_optimized_items"`
	MaxSuggestionsPerItem int `json:"max_suggestions_per_item"`

	// Concurrency bound for embedding generation
	EmbedConcurrency int `json:"embed_concurrency"`

	// TTL for the result cache and the embedding cache
	CacheTTL time.Duration `json:"cache_ttl"`
}

// DefaultAnalysisConfig returns a sensible default configuration
func DefaultAnalysisConfig() AnalysisConfig {
	return AnalysisConfig{
		Mesh:                  DefaultMeshConfig(),
		Gap:                   DefaultGapConfig(),
		Optimize:              DefaultOptimizeConfig(),
		MaxOptimizedItems:     5,
		MaxSuggestionsPerItem: 10,
		EmbedConcurrency:      4,
		CacheTTL:              24 * time.Hour,
	}
}
