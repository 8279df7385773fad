package consensus

import (
	"strings"

	"github.com/tidwall/gjson"

	"github.com/ct-jyjntc/ai-discussion/internal/domain"
	"github.com/ct-jyjntc/ai-discussion/internal/domain/models/discussion"
)

// ParseVerdict extracts a verdict from the judge model's raw response.
// Models wrap JSON in prose and code fences, so the parser slices from
// the first '{' to the last '}' and validates only that substring.
// Returns a JudgeParseError when the contract is not met.
func ParseVerdict(raw string) (*discussion.ConsensusVerdict, error) {
	cleaned := strings.TrimSpace(raw)
	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start == -1 || end == -1 || end < start {
		return nil, &domain.JudgeParseError{Raw: raw}
	}

	jsonStr := cleaned[start : end+1]
	if !gjson.Valid(jsonStr) {
		return nil, &domain.JudgeParseError{Raw: raw}
	}
	doc := gjson.Parse(jsonStr)

	hasConsensus := doc.Get("hasConsensus")
	confidence := doc.Get("confidence")
	reason := doc.Get("reason")
	if !hasConsensus.IsBool() ||
		confidence.Type != gjson.Number ||
		reason.Type != gjson.String {
		return nil, &domain.JudgeParseError{Raw: raw}
	}

	v := &discussion.ConsensusVerdict{
		HasConsensus:         hasConsensus.Bool(),
		Confidence:           confidence.Float(),
		ConsensusLevel:       discussion.ConsensusLevel(doc.Get("consensusLevel").String()),
		Reason:               reason.String(),
		RecommendedAction:    recommendedAction(doc),
		KeyPoints:            stringList(doc.Get("keyPoints")),
		RemainingIssues:      stringList(doc.Get("remainingIssues")),
		Suggestions:          stringList(doc.Get("suggestions")),
		DiscussionQuality:    discussion.DiscussionQuality(doc.Get("discussionQuality").String()),
		QuestionMatchScore:   doc.Get("questionMatchScore").Float(),
		QuestionCoverage:     discussion.QuestionCoverage(doc.Get("questionCoverage").String()),
		UnaddressedAspects:   stringList(doc.Get("unaddressedAspects")),
		SolutionCompleteness: discussion.SolutionCompleteness(doc.Get("solutionCompleteness").String()),
	}
	return v, nil
}

// recommendedAction reads both the current key and the legacy
// "recommendAction" spelling some judge prompts still produce.
func recommendedAction(doc gjson.Result) discussion.RecommendedAction {
	if action := doc.Get("recommendedAction"); action.Exists() {
		return discussion.RecommendedAction(action.String())
	}
	return discussion.RecommendedAction(doc.Get("recommendAction").String())
}

func stringList(result gjson.Result) []string {
	if !result.IsArray() {
		return nil
	}
	var out []string
	result.ForEach(func(_, value gjson.Result) bool {
		if s := value.String(); s != "" {
			out = append(out, s)
		}
		return true
	})
	return out
}
