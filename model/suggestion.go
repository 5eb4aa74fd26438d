package model

// Priority labels an optimization suggestion's urgency
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// SuggestionCategory names the analysis lens that produced a suggestion
type SuggestionCategory string

const (
	CategoryReadability SuggestionCategory = "readability"
	CategoryStructure   SuggestionCategory = "structure"
	CategoryKeywords    SuggestionCategory = "keywords"
	CategoryEngagement  SuggestionCategory = "engagement"
	CategoryCoherence   SuggestionCategory = "semantic_coherence"
	CategoryCompetitive SuggestionCategory = "competitive"
)

// OptimizationSuggestion represents one actionable recommendation for a
// content item. One analysis run produces a flat list; ranking annotates
// PriorityScore but never changes a suggestion's identity.
type OptimizationSuggestion struct {
	SuggestionID   string             `json:"suggestion_id"`
	Category       SuggestionCategory `json:"category"`
	Priority       Priority           `json:"priority"`
	Description    string             `json:"description"`
	Implementation string             `json:"implementation"`
	ExpectedImpact map[string]float64 `json:"expected_impact,omitempty"`
	Confidence     float64            `json:"confidence"`
	Evidence       Metadata           `json:"evidence,omitempty"`
	PriorityScore  float64            `json:"priority_score"`
}

// OptimizationPlan buckets suggestions into implementation phases strictly
// by priority label
type OptimizationPlan struct {
	Immediate []string `json:"immediate,omitempty"`
	ShortTerm []string `json:"short_term,omitempty"`
	LongTerm  []string `json:"long_term,omitempty"`
}

// OptimizationReport aggregates the suggestions of one analysis run
type OptimizationReport struct {
	TotalSuggestions int                        `json:"total_suggestions"`
	CountsByCategory map[SuggestionCategory]int `json:"counts_by_category"`
	ExpectedImpact   map[string]float64         `json:"expected_impact,omitempty"`
	Plan             OptimizationPlan           `json:"plan"`
}
