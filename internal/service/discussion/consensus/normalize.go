package consensus

import (
	"github.com/ct-jyjntc/ai-discussion/internal/config"
	"github.com/ct-jyjntc/ai-discussion/internal/domain/models/discussion"
)

// Normalize enforces the verdict invariants on a parsed judge verdict.
// It is idempotent: Normalize(Normalize(v, r), r) == Normalize(v, r).
//
// The judge model is untrusted. Early rounds, weak confidence, shallow
// discussion, or an answer that does not actually cover the question
// all veto a claimed consensus, whatever the JSON said.
func Normalize(v *discussion.ConsensusVerdict, round int) *discussion.ConsensusVerdict {
	out := *v

	out.Confidence = clamp(out.Confidence, 0, 100)
	out.QuestionMatchScore = clamp(out.QuestionMatchScore, 0, 100)

	if !validLevel(out.ConsensusLevel) {
		out.ConsensusLevel = discussion.ConsensusNone
	}
	if !validQuality(out.DiscussionQuality) {
		out.DiscussionQuality = discussion.QualityAdequate
	}
	if !validCoverage(out.QuestionCoverage) {
		out.QuestionCoverage = discussion.CoveragePartial
	}
	if !validCompleteness(out.SolutionCompleteness) {
		out.SolutionCompleteness = discussion.CompletenessIncomplete
	}
	if !validAction(out.RecommendedAction) {
		if out.HasConsensus {
			out.RecommendedAction = discussion.ActionConsensus
		} else {
			out.RecommendedAction = discussion.ActionContinue
		}
	}

	// Question-match gate: strong agreement about the wrong thing, or
	// about an incomplete answer, is not consensus.
	if out.QuestionMatchScore < 70 ||
		out.QuestionCoverage != discussion.CoverageComplete ||
		out.SolutionCompleteness != discussion.CompletenessComplete {
		out.HasConsensus = false
		if out.Confidence > 60 {
			out.Confidence = 60
		}
		if out.RecommendedAction == discussion.ActionConsensus {
			out.RecommendedAction = discussion.ActionContinue
		}
	}

	// Early rounds and weak confidence are untrusted.
	if round <= config.MinRoundsBeforeConsensus || out.Confidence < config.ConsensusConfidenceFloor {
		out.HasConsensus = false
		if out.RecommendedAction == discussion.ActionConsensus {
			out.RecommendedAction = discussion.ActionContinue
		}
	}

	// A superficial discussion has not earned a conclusion yet.
	if out.DiscussionQuality == discussion.QualitySuperficial && round <= 4 {
		out.HasConsensus = false
		if out.RecommendedAction == discussion.ActionConsensus {
			out.RecommendedAction = discussion.ActionContinue
		}
	}

	// The action drives the state machine, so hasConsensus follows it.
	out.HasConsensus = out.RecommendedAction == discussion.ActionConsensus

	return &out
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func validLevel(l discussion.ConsensusLevel) bool {
	switch l {
	case discussion.ConsensusStrong, discussion.ConsensusMedium,
		discussion.ConsensusWeak, discussion.ConsensusNone:
		return true
	}
	return false
}

func validQuality(q discussion.DiscussionQuality) bool {
	switch q {
	case discussion.QualitySuperficial, discussion.QualityAdequate,
		discussion.QualityThorough, discussion.QualityExcellent:
		return true
	}
	return false
}

func validCoverage(c discussion.QuestionCoverage) bool {
	switch c {
	case discussion.CoverageComplete, discussion.CoveragePartial,
		discussion.CoverageMinimal, discussion.CoverageOffTopic:
		return true
	}
	return false
}

func validCompleteness(c discussion.SolutionCompleteness) bool {
	switch c {
	case discussion.CompletenessComplete, discussion.CompletenessIncomplete,
		discussion.CompletenessUnclear:
		return true
	}
	return false
}

func validAction(a discussion.RecommendedAction) bool {
	switch a {
	case discussion.ActionContinue, discussion.ActionConsensus, discussion.ActionExtend:
		return true
	}
	return false
}
