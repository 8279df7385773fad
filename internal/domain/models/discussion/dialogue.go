package discussion

// QualityTrend labels the direction of dialogue quality across rounds.
type QualityTrend string

const (
	TrendImproving QualityTrend = "improving"
	TrendStable    QualityTrend = "stable"
	TrendDeclining QualityTrend = "declining"
)

// DialogueState is a per-round snapshot consumed by the adaptive manager.
// States are appended to a bounded rolling history scoped to one session.
type DialogueState struct {
	Round             int          `json:"round"`
	Topic             string       `json:"topic"`
	Complexity        float64      `json:"complexity"`         // 0-1
	ConsensusProgress float64      `json:"consensus_progress"` // 0-1
	EngagementA       float64      `json:"engagement_a"`       // 0-1
	EngagementB       float64      `json:"engagement_b"`       // 0-1
	QualityTrend      QualityTrend `json:"quality_trend"`
}

// Speaker is the adaptive manager's routing target for the next turn.
type Speaker string

const (
	SpeakerPersonaA  Speaker = "persona_a"
	SpeakerPersonaB  Speaker = "persona_b"
	SpeakerModerator Speaker = "moderator"
)

// PromptAdjustment steers how the next round's prompts are phrased.
type PromptAdjustment string

const (
	AdjustDeeper   PromptAdjustment = "deeper"
	AdjustBroader  PromptAdjustment = "broader"
	AdjustRefocus  PromptAdjustment = "refocus"
	AdjustConclude PromptAdjustment = "conclude"
)

// Strategy is the adaptive manager's decision for the next round.
type Strategy struct {
	NextSpeaker      Speaker          `json:"next_speaker"`
	PromptAdjustment PromptAdjustment `json:"prompt_adjustment"`
	TimeAllocation   float64          `json:"time_allocation"`
	QualityThreshold float64          `json:"quality_threshold"`
}
