package consensus

import (
	"testing"

	"github.com/ct-jyjntc/ai-discussion/internal/domain/models/discussion"
)

func TestFallbackNeverClaimsConsensus(t *testing.T) {
	exchanges := [][]string{
		{"I completely agree with everything you said.", "We've reached consensus, no disagreement at all."},
		{"I agree with your point.", "I concur, largely agree on the approach."},
		{"I disagree with that framing.", "On the contrary, the tradeoffs differ."},
		{},
		{""},
	}

	for i, exchange := range exchanges {
		for round := 1; round <= 6; round++ {
			v := Fallback(exchange, round, 4)
			if v.HasConsensus {
				t.Errorf("exchange %d round %d: fallback claimed consensus", i, round)
			}
			if v.RecommendedAction == discussion.ActionConsensus {
				t.Errorf("exchange %d round %d: fallback recommended consensus", i, round)
			}
			if v.Confidence < 25 || v.Confidence > 30 {
				t.Errorf("exchange %d round %d: confidence %v outside [25,30]", i, round, v.Confidence)
			}
			if v.QuestionCoverage != discussion.CoveragePartial {
				t.Errorf("coverage = %q, want partial", v.QuestionCoverage)
			}
			if v.SolutionCompleteness != discussion.CompletenessUnclear {
				t.Errorf("completeness = %q, want unclear", v.SolutionCompleteness)
			}
			if !v.Fallback {
				t.Error("verdict not marked as fallback")
			}
		}
	}
}

func TestFallbackTiers(t *testing.T) {
	strong := Fallback([]string{"We've reached consensus and I completely agree."}, 2, 4)
	if strong.ConsensusLevel != discussion.ConsensusMedium {
		t.Errorf("strong cues → level %q, want medium", strong.ConsensusLevel)
	}

	medium := Fallback([]string{"I agree with the main thrust."}, 2, 4)
	if medium.ConsensusLevel != discussion.ConsensusWeak {
		t.Errorf("medium cues → level %q, want weak", medium.ConsensusLevel)
	}

	disagree := Fallback([]string{"I agree on one point but I disagree overall."}, 2, 4)
	if disagree.ConsensusLevel != discussion.ConsensusNone {
		t.Errorf("disagreement should dominate, got level %q", disagree.ConsensusLevel)
	}

	neutral := Fallback([]string{"The performance characteristics vary."}, 2, 4)
	if neutral.ConsensusLevel != discussion.ConsensusNone {
		t.Errorf("no signal → level %q, want none", neutral.ConsensusLevel)
	}
}

func TestFallbackExtendsPastCeiling(t *testing.T) {
	below := Fallback([]string{"nothing conclusive"}, 3, 4)
	if below.RecommendedAction != discussion.ActionContinue {
		t.Errorf("round below ceiling → %q, want continue", below.RecommendedAction)
	}

	at := Fallback([]string{"nothing conclusive"}, 4, 4)
	if at.RecommendedAction != discussion.ActionExtend {
		t.Errorf("round at ceiling → %q, want extend", at.RecommendedAction)
	}
}
