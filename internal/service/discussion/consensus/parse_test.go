package consensus

import (
	"errors"
	"testing"

	"github.com/ct-jyjntc/ai-discussion/internal/domain"
	"github.com/ct-jyjntc/ai-discussion/internal/domain/models/discussion"
)

func TestParseVerdictFromNoisyResponse(t *testing.T) {
	raw := "Sure, here is my assessment:\n```json\n" +
		`{"hasConsensus": true, "confidence": 85, "reason": "both agree",
		  "consensusLevel": "strong", "recommendedAction": "consensus",
		  "keyPoints": ["closures explained"], "questionMatchScore": 90,
		  "questionCoverage": "complete", "solutionCompleteness": "complete",
		  "discussionQuality": "thorough"}` +
		"\n```\nLet me know if you need more."

	v, err := ParseVerdict(raw)
	if err != nil {
		t.Fatalf("ParseVerdict: %v", err)
	}
	if !v.HasConsensus || v.Confidence != 85 || v.Reason != "both agree" {
		t.Errorf("core fields wrong: %+v", v)
	}
	if v.RecommendedAction != discussion.ActionConsensus {
		t.Errorf("RecommendedAction = %q", v.RecommendedAction)
	}
	if len(v.KeyPoints) != 1 || v.KeyPoints[0] != "closures explained" {
		t.Errorf("KeyPoints = %v", v.KeyPoints)
	}
	if v.QuestionMatchScore != 90 || v.QuestionCoverage != discussion.CoverageComplete {
		t.Errorf("question gate fields wrong: %+v", v)
	}
}

func TestParseVerdictLegacyActionKey(t *testing.T) {
	raw := `{"hasConsensus": false, "confidence": 40, "reason": "still apart", "recommendAction": "extend"}`

	v, err := ParseVerdict(raw)
	if err != nil {
		t.Fatalf("ParseVerdict: %v", err)
	}
	if v.RecommendedAction != discussion.ActionExtend {
		t.Errorf("legacy recommendAction not honored: %q", v.RecommendedAction)
	}
}

func TestParseVerdictFailures(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "no braces", raw: "the speakers seem to agree"},
		{name: "empty", raw: ""},
		{name: "invalid JSON between braces", raw: "{not json}"},
		{name: "missing confidence", raw: `{"hasConsensus": true, "reason": "x"}`},
		{name: "mistyped hasConsensus", raw: `{"hasConsensus": "yes", "confidence": 80, "reason": "x"}`},
		{name: "mistyped reason", raw: `{"hasConsensus": true, "confidence": 80, "reason": 12}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseVerdict(tt.raw)
			if err == nil {
				t.Fatal("expected parse error")
			}
			var parseErr *domain.JudgeParseError
			if !errors.As(err, &parseErr) {
				t.Errorf("error type = %T, want JudgeParseError", err)
			}
		})
	}
}
