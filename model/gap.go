package model

// GapType classifies a detected semantic deficiency
type GapType string

const (
	GapTypeMissingTopic        GapType = "missing_topic"
	GapTypeWeakCoverage        GapType = "weak_coverage"
	GapTypeContentIsland       GapType = "content_island"
	GapTypeSparseRegion        GapType = "sparse_region"
	GapTypeCompetitorAdvantage GapType = "competitor_advantage"
)

// SemanticGap represents a detected deficiency in topical coverage,
// connectivity or competitive positioning. Gaps are created per analysis run
// and are immutable except for the PriorityScore annotation attached by
// prioritization.
type SemanticGap struct {
	GapID           string   `json:"gap_id"`
	GapType         GapType  `json:"gap_type"`
	Description     string   `json:"description"`
	Severity        float64  `json:"severity"`
	AffectedTopics  []string `json:"affected_topics,omitempty"`
	Recommendations []string `json:"recommendations,omitempty"`
	Evidence        Metadata `json:"evidence,omitempty"`
	PriorityScore   float64  `json:"priority_score"`
}

// GapActionPlan buckets gap recommendations by urgency
type GapActionPlan struct {
	Immediate []string `json:"immediate,omitempty"`
	ShortTerm []string `json:"short_term,omitempty"`
	LongTerm  []string `json:"long_term,omitempty"`
}

// GapReport aggregates the gaps of one analysis run
type GapReport struct {
	TotalGaps     int             `json:"total_gaps"`
	CountsByType  map[GapType]int `json:"counts_by_type"`
	CriticalCount int             `json:"critical_count"`
	ActionPlan    GapActionPlan   `json:"action_plan"`
}
