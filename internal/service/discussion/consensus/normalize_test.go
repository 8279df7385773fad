package consensus

import (
	"reflect"
	"testing"

	"github.com/ct-jyjntc/ai-discussion/internal/config"
	"github.com/ct-jyjntc/ai-discussion/internal/domain/models/discussion"
)

func trustedVerdict() *discussion.ConsensusVerdict {
	return &discussion.ConsensusVerdict{
		HasConsensus:         true,
		Confidence:           90,
		ConsensusLevel:       discussion.ConsensusStrong,
		Reason:               "complete agreement on a complete answer",
		RecommendedAction:    discussion.ActionConsensus,
		DiscussionQuality:    discussion.QualityThorough,
		QuestionMatchScore:   95,
		QuestionCoverage:     discussion.CoverageComplete,
		SolutionCompleteness: discussion.CompletenessComplete,
	}
}

func TestNormalizePassesTrustedVerdict(t *testing.T) {
	v := Normalize(trustedVerdict(), 4)

	if !v.HasConsensus || v.RecommendedAction != discussion.ActionConsensus {
		t.Errorf("trusted verdict was demoted: %+v", v)
	}
	if v.Confidence != 90 {
		t.Errorf("confidence altered: %v", v.Confidence)
	}
}

func TestNormalizeClampsRanges(t *testing.T) {
	v := trustedVerdict()
	v.Confidence = 150
	v.QuestionMatchScore = -10

	got := Normalize(v, 4)
	if got.Confidence != 100 {
		t.Errorf("Confidence = %v, want 100", got.Confidence)
	}
	if got.QuestionMatchScore != 0 {
		t.Errorf("QuestionMatchScore = %v, want 0", got.QuestionMatchScore)
	}
}

func TestNormalizeDefaultsInvalidCategories(t *testing.T) {
	v := trustedVerdict()
	v.ConsensusLevel = "overwhelming"
	v.DiscussionQuality = ""
	v.QuestionCoverage = "total"
	v.SolutionCompleteness = "done"

	got := Normalize(v, 4)
	if got.ConsensusLevel != discussion.ConsensusNone {
		t.Errorf("ConsensusLevel = %q, want none", got.ConsensusLevel)
	}
	if got.DiscussionQuality != discussion.QualityAdequate {
		t.Errorf("DiscussionQuality = %q, want adequate", got.DiscussionQuality)
	}
	if got.QuestionCoverage != discussion.CoveragePartial {
		t.Errorf("QuestionCoverage = %q, want partial", got.QuestionCoverage)
	}
	if got.SolutionCompleteness != discussion.CompletenessIncomplete {
		t.Errorf("SolutionCompleteness = %q, want incomplete", got.SolutionCompleteness)
	}
}

func TestNormalizeQuestionMatchGate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*discussion.ConsensusVerdict)
	}{
		{
			name:   "low match score",
			mutate: func(v *discussion.ConsensusVerdict) { v.QuestionMatchScore = 50 },
		},
		{
			name:   "partial coverage",
			mutate: func(v *discussion.ConsensusVerdict) { v.QuestionCoverage = discussion.CoveragePartial },
		},
		{
			name:   "minimal coverage",
			mutate: func(v *discussion.ConsensusVerdict) { v.QuestionCoverage = discussion.CoverageMinimal },
		},
		{
			name:   "off-topic coverage",
			mutate: func(v *discussion.ConsensusVerdict) { v.QuestionCoverage = discussion.CoverageOffTopic },
		},
		{
			name:   "incomplete solution",
			mutate: func(v *discussion.ConsensusVerdict) { v.SolutionCompleteness = discussion.CompletenessIncomplete },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := trustedVerdict()
			tt.mutate(v)

			got := Normalize(v, 4)
			if got.HasConsensus {
				t.Error("gated verdict kept hasConsensus=true")
			}
			if got.Confidence > 60 {
				t.Errorf("Confidence = %v, want capped at 60", got.Confidence)
			}
			if got.RecommendedAction != discussion.ActionContinue {
				t.Errorf("RecommendedAction = %q, want continue", got.RecommendedAction)
			}
		})
	}
}

func TestNormalizeEarlyRoundsAreUntrusted(t *testing.T) {
	for round := 1; round <= config.MinRoundsBeforeConsensus; round++ {
		got := Normalize(trustedVerdict(), round)
		if got.HasConsensus || got.RecommendedAction == discussion.ActionConsensus {
			t.Errorf("round %d: consensus accepted too early: %+v", round, got)
		}
	}

	got := Normalize(trustedVerdict(), config.MinRoundsBeforeConsensus+1)
	if !got.HasConsensus {
		t.Errorf("round %d: trusted verdict rejected: %+v", config.MinRoundsBeforeConsensus+1, got)
	}
}

func TestNormalizeLowConfidenceForcesContinuation(t *testing.T) {
	v := trustedVerdict()
	v.Confidence = config.ConsensusConfidenceFloor - 1

	got := Normalize(v, 5)
	if got.HasConsensus || got.RecommendedAction != discussion.ActionContinue {
		t.Errorf("low-confidence consensus accepted: %+v", got)
	}

	v = trustedVerdict()
	v.Confidence = config.ConsensusConfidenceFloor
	if got := Normalize(v, 5); !got.HasConsensus {
		t.Errorf("floor-confidence verdict rejected: %+v", got)
	}
}

func TestNormalizeSuperficialQualityForcesContinuation(t *testing.T) {
	v := trustedVerdict()
	v.DiscussionQuality = discussion.QualitySuperficial

	got := Normalize(v, 4)
	if got.HasConsensus {
		t.Errorf("superficial discussion accepted at round 4: %+v", got)
	}

	// Past round 4 the superficial gate no longer applies.
	got = Normalize(v, 5)
	if !got.HasConsensus {
		t.Errorf("superficial gate applied past its round window: %+v", got)
	}
}

func TestNormalizeAlignsFlagWithAction(t *testing.T) {
	// The judge contradicting itself: flag false, action consensus.
	v := trustedVerdict()
	v.HasConsensus = false

	got := Normalize(v, 4)
	if !got.HasConsensus {
		t.Error("recommendedAction=consensus should set hasConsensus=true")
	}

	// And the reverse: flag true, action continue.
	v = trustedVerdict()
	v.RecommendedAction = discussion.ActionContinue

	got = Normalize(v, 4)
	if got.HasConsensus {
		t.Error("recommendedAction=continue should set hasConsensus=false")
	}
}

func TestNormalizePreservesFallbackExtend(t *testing.T) {
	v := Fallback([]string{"we need more time"}, 5, 4)

	got := Normalize(v, 5)
	if got.RecommendedAction != discussion.ActionExtend {
		t.Errorf("fallback extend was rewritten to %q", got.RecommendedAction)
	}
	if got.HasConsensus {
		t.Error("fallback verdict gained consensus through normalization")
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	cases := []*discussion.ConsensusVerdict{
		trustedVerdict(),
		{HasConsensus: true, Confidence: 300, Reason: "x", RecommendedAction: "finish"},
		Fallback([]string{"i agree with you"}, 2, 4),
		{Confidence: 55, Reason: "y", QuestionMatchScore: 80},
	}

	for i, v := range cases {
		for _, round := range []int{1, 4, 6} {
			once := Normalize(v, round)
			twice := Normalize(once, round)
			if !reflect.DeepEqual(once, twice) {
				t.Errorf("case %d round %d: Normalize not idempotent:\nonce:  %+v\ntwice: %+v",
					i, round, once, twice)
			}
		}
	}
}
