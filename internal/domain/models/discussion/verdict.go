package discussion

// ConsensusLevel grades how firmly the personas agree.
type ConsensusLevel string

const (
	ConsensusStrong ConsensusLevel = "strong"
	ConsensusMedium ConsensusLevel = "medium"
	ConsensusWeak   ConsensusLevel = "weak"
	ConsensusNone   ConsensusLevel = "none"
)

// RecommendedAction is the detector's instruction to the orchestrator.
// It is the sole decision variable for the synthesis gate.
type RecommendedAction string

const (
	ActionContinue  RecommendedAction = "continue"
	ActionConsensus RecommendedAction = "consensus"
	ActionExtend    RecommendedAction = "extend"
)

// DiscussionQuality grades the depth of the dialogue so far.
type DiscussionQuality string

const (
	QualitySuperficial DiscussionQuality = "superficial"
	QualityAdequate    DiscussionQuality = "adequate"
	QualityThorough    DiscussionQuality = "thorough"
	QualityExcellent   DiscussionQuality = "excellent"
)

// QuestionCoverage grades how much of the original question the
// discussion actually addressed.
type QuestionCoverage string

const (
	CoverageComplete QuestionCoverage = "complete"
	CoveragePartial  QuestionCoverage = "partial"
	CoverageMinimal  QuestionCoverage = "minimal"
	CoverageOffTopic QuestionCoverage = "off-topic"
)

// SolutionCompleteness grades whether the discussion produced a usable answer.
type SolutionCompleteness string

const (
	CompletenessComplete   SolutionCompleteness = "complete"
	CompletenessIncomplete SolutionCompleteness = "incomplete"
	CompletenessUnclear    SolutionCompleteness = "unclear"
)

// ConsensusVerdict is the consensus detector's structured output for one round.
// Created once per round, never mutated after normalization.
//
// Normalized invariant: HasConsensus == true iff RecommendedAction == "consensus".
type ConsensusVerdict struct {
	HasConsensus         bool                 `json:"hasConsensus"`
	Confidence           float64              `json:"confidence"` // 0-100
	ConsensusLevel       ConsensusLevel       `json:"consensusLevel"`
	Reason               string               `json:"reason"`
	RecommendedAction    RecommendedAction    `json:"recommendedAction"`
	KeyPoints            []string             `json:"keyPoints"`
	RemainingIssues      []string             `json:"remainingIssues"`
	Suggestions          []string             `json:"suggestions"`
	DiscussionQuality    DiscussionQuality    `json:"discussionQuality"`
	QuestionMatchScore   float64              `json:"questionMatchScore"` // 0-100
	QuestionCoverage     QuestionCoverage     `json:"questionCoverage"`
	UnaddressedAspects   []string             `json:"unaddressedAspects"`
	SolutionCompleteness SolutionCompleteness `json:"solutionCompleteness"`

	// Fallback marks verdicts produced by the deterministic cue-phrase
	// path after a judge failure.
	Fallback bool `json:"fallback,omitempty"`
}
