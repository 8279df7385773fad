package consensus

import (
	"fmt"
	"strings"

	"github.com/ct-jyjntc/ai-discussion/internal/domain/models/discussion"
)

// Cue phrase tiers for the deterministic fallback. Scanned against the
// most recent exchange only; older rounds carry too much noise.
var (
	strongConsensusCues = []string{
		"we've reached consensus", "we have reached consensus",
		"we are in full agreement", "i completely agree",
		"i fully agree", "our views are aligned", "no disagreement",
		"we agree on everything",
	}

	mediumConsensusCues = []string{
		"i agree", "i concur", "that's a fair point",
		"we're on the same page", "good point, agreed",
		"i think we agree", "largely agree",
	}

	disagreementCues = []string{
		"i disagree", "i don't agree", "on the contrary",
		"that's not right", "i see it differently",
		"i'm not convinced", "however, i think",
	}

	problemSolvedCues = []string{
		"this solves the problem", "the question is answered",
		"fully addressed", "that completes the answer",
		"problem solved",
	}

	problemUnsolvedCues = []string{
		"still unresolved", "remains open", "not yet addressed",
		"we haven't covered", "more to discuss", "unanswered",
	}
)

// Fallback produces a conservative verdict from cue-phrase scanning of
// the latest exchange. It never fails; absence of any signal yields a
// no-consensus verdict whose action depends only on the round number.
func Fallback(latestExchange []string, round, maxRounds int) *discussion.ConsensusVerdict {
	text := strings.ToLower(strings.Join(latestExchange, "\n"))

	strong := countCues(text, strongConsensusCues)
	medium := countCues(text, mediumConsensusCues)
	disagree := countCues(text, disagreementCues)
	solved := countCues(text, problemSolvedCues)
	unsolved := countCues(text, problemUnsolvedCues)

	v := &discussion.ConsensusVerdict{
		HasConsensus:         false,
		Confidence:           25,
		ConsensusLevel:       discussion.ConsensusNone,
		RecommendedAction:    discussion.ActionContinue,
		DiscussionQuality:    discussion.QualityAdequate,
		QuestionMatchScore:   40,
		QuestionCoverage:     discussion.CoveragePartial,
		SolutionCompleteness: discussion.CompletenessUnclear,
		Fallback:             true,
	}

	switch {
	case disagree > 0:
		v.ConsensusLevel = discussion.ConsensusNone
		v.Reason = "fallback detection: explicit disagreement in the latest exchange"
		v.RemainingIssues = []string{"speakers still voice open disagreement"}
	case strong > 0 && unsolved == 0:
		v.ConsensusLevel = discussion.ConsensusMedium
		v.Confidence = 30
		v.Reason = "fallback detection: strong agreement phrasing in the latest exchange"
	case medium > 0 && unsolved == 0:
		v.ConsensusLevel = discussion.ConsensusWeak
		v.Confidence = 28
		v.Reason = "fallback detection: partial agreement phrasing in the latest exchange"
	default:
		v.Reason = "fallback detection: no clear consensus signal in the latest exchange"
	}

	if solved > 0 && disagree == 0 {
		v.KeyPoints = append(v.KeyPoints, "speakers describe the problem as solved")
	}
	if unsolved > 0 {
		v.RemainingIssues = append(v.RemainingIssues, "speakers flag unresolved aspects")
	}

	if round >= maxRounds {
		v.RecommendedAction = discussion.ActionExtend
		v.Reason = fmt.Sprintf("%s; round %d reached the ceiling", v.Reason, round)
	}

	v.Suggestions = append(v.Suggestions, "verify the judge model configuration")
	return v
}

func countCues(text string, cues []string) int {
	n := 0
	for _, cue := range cues {
		if strings.Contains(text, cue) {
			n++
		}
	}
	return n
}
