// Package prompts builds system and user prompts for the discussion
// personas. Prompts are targeted: the user's question is classified
// first, and the guidance embedded in each system prompt follows from
// that classification plus the adaptive strategy for the round.
package prompts

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ct-jyjntc/ai-discussion/internal/config"
	"github.com/ct-jyjntc/ai-discussion/internal/domain/models/discussion"
)

// QuestionType classifies the kind of answer a question demands.
type QuestionType string

const (
	TypeTechnical       QuestionType = "technical"
	TypeConceptual      QuestionType = "conceptual"
	TypePractical       QuestionType = "practical"
	TypeComparative     QuestionType = "comparative"
	TypeTroubleshooting QuestionType = "troubleshooting"
)

// QuestionAnalysis drives targeted prompt construction.
type QuestionAnalysis struct {
	Type         QuestionType
	Specificity  string // high | medium | low
	OutputType   string // step-by-step | explanation | comparison | solution | recommendation
	KeyElements  []string
	Requirements []string
}

var techElementPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(react|vue|angular|next\.js|svelte)\b`),
	regexp.MustCompile(`(?i)\b(python|javascript|typescript|java|rust|golang|go)\b`),
	regexp.MustCompile(`(?i)\b(api|rest|graphql|grpc|websocket)\b`),
	regexp.MustCompile(`(?i)\b(mysql|postgresql|postgres|mongodb|redis|sqlite)\b`),
	regexp.MustCompile(`(?i)\b(docker|kubernetes|terraform)\b`),
	regexp.MustCompile(`(?i)\b(performance|optimization|caching|latency|memory)\b`),
}

// AnalyzeQuestion classifies the question so persona prompts can demand
// the right kind of answer.
func AnalyzeQuestion(question string) QuestionAnalysis {
	lower := strings.ToLower(question)

	qType := TypeConceptual
	switch {
	case containsAny(lower, "how do i", "how to", "how can", "implement", "set up", "setup"):
		qType = TypePractical
	case containsAny(lower, "what is", "why does", "why is", "explain", "principle"):
		qType = TypeConceptual
	case containsAny(lower, " vs ", "versus", "compare", "difference between"):
		qType = TypeComparative
	case containsAny(lower, "error", "not working", "fails", "broken", "debug"):
		qType = TypeTroubleshooting
	case containsAny(lower, "code", "algorithm", "api", "function"):
		qType = TypeTechnical
	}

	specificity := "medium"
	if containsAny(lower, "specific", "concrete", "detailed", "step", "example", "code", "config") {
		specificity = "high"
	} else if containsAny(lower, "roughly", "in general", "simple", "concept", "overview") {
		specificity = "low"
	}

	output := "explanation"
	switch {
	case qType == TypePractical || strings.Contains(lower, "step"):
		output = "step-by-step"
	case qType == TypeComparative:
		output = "comparison"
	case qType == TypeTroubleshooting:
		output = "solution"
	case containsAny(lower, "recommend", "suggest", "should i"):
		output = "recommendation"
	}

	return QuestionAnalysis{
		Type:         qType,
		Specificity:  specificity,
		OutputType:   output,
		KeyElements:  extractKeyElements(question),
		Requirements: requirementsFor(qType),
	}
}

func extractKeyElements(question string) []string {
	seen := make(map[string]struct{})
	var elements []string
	for _, pattern := range techElementPatterns {
		for _, m := range pattern.FindAllString(question, -1) {
			key := strings.ToLower(m)
			if _, dup := seen[key]; !dup {
				seen[key] = struct{}{}
				elements = append(elements, m)
			}
		}
	}
	return elements
}

func requirementsFor(t QuestionType) []string {
	switch t {
	case TypeTechnical:
		return []string{"provide concrete code examples", "explain the underlying mechanism", "state best practices"}
	case TypePractical:
		return []string{"give numbered steps", "include hands-on instructions", "call out common mistakes"}
	case TypeComparative:
		return []string{"compare options dimension by dimension", "list pros and cons", "end with a recommendation"}
	case TypeTroubleshooting:
		return []string{"diagnose the likely cause", "give a fix", "note how to prevent recurrence"}
	default:
		return []string{"explain the concept clearly", "use an analogy or example", "describe where it applies"}
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// PersonaSystem builds the system prompt for a debating persona.
// counterpart is the other persona's display name.
func PersonaSystem(profile config.PersonaProfile, counterpart string, round int, analysis QuestionAnalysis, adjustment discussion.PromptAdjustment) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "You are %s, discussing a user's question with %s to converge on the best possible answer.\n", profile.Name, counterpart)
	if len(profile.Personality) > 0 {
		fmt.Fprintf(&sb, "Your style: %s.\n", strings.Join(profile.Personality, ", "))
	}

	sb.WriteString("\nQuestion profile:\n")
	fmt.Fprintf(&sb, "- type: %s\n- specificity demanded: %s\n- expected output: %s\n",
		analysis.Type, analysis.Specificity, analysis.OutputType)
	if len(analysis.KeyElements) > 0 {
		fmt.Fprintf(&sb, "- key elements: %s\n", strings.Join(analysis.KeyElements, ", "))
	}
	for _, req := range analysis.Requirements {
		fmt.Fprintf(&sb, "- requirement: %s\n", req)
	}

	sb.WriteString("\nRules:\n")
	fmt.Fprintf(&sb, "- this is round %d; read %s's latest statement carefully before replying\n", round, counterpart)
	sb.WriteString("- address the original question directly; agreement without a complete answer is worthless\n")
	sb.WriteString("- state agreement or disagreement explicitly, then justify it\n")

	switch adjustment {
	case discussion.AdjustDeeper:
		sb.WriteString("- go deeper on the current line of reasoning; add specifics, examples, or code\n")
	case discussion.AdjustBroader:
		sb.WriteString("- widen the discussion; raise an angle or alternative not yet considered\n")
	case discussion.AdjustRefocus:
		sb.WriteString("- the discussion has drifted; steer it back to the original question\n")
	case discussion.AdjustConclude:
		sb.WriteString("- wrap up; state your final position and what remains open, if anything\n")
	}

	return sb.String()
}

// PersonaUser builds the user prompt for a persona turn: the question,
// what was said so far this session, and the counterpart's latest turn.
func PersonaUser(question string, transcript *discussion.Transcript, round int, counterpartLatest string) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Original question: %q\n\n", question)

	if round > 1 {
		sb.WriteString("Discussion so far:\n")
		for _, turn := range transcript.Turns {
			if turn.Role == discussion.RolePersonaA || turn.Role == discussion.RolePersonaB {
				fmt.Fprintf(&sb, "[round %d, %s]: %s\n\n", turn.Round, turn.Role, turn.Content)
			}
		}
	}

	if counterpartLatest != "" {
		fmt.Fprintf(&sb, "Latest statement to respond to:\n%s\n\n", counterpartLatest)
		fmt.Fprintf(&sb, "This is round %d. Respond to the statement above and push the discussion toward a complete answer.", round)
	} else {
		fmt.Fprintf(&sb, "This is round %d. Open the discussion with your best answer to the question.", round)
	}

	return sb.String()
}

// SynthesisSystem builds the system prompt for the final synthesis turn.
func SynthesisSystem(profile config.PersonaProfile, nameA, nameB string) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "You are %s. Based on the complete discussion between %s and %s, produce the final answer to the user's question.\n", profile.Name, nameA, nameB)
	if len(profile.Personality) > 0 {
		fmt.Fprintf(&sb, "Your style: %s.\n", strings.Join(profile.Personality, ", "))
	}
	sb.WriteString("\nRules:\n")
	sb.WriteString("- answer the original question directly and completely\n")
	sb.WriteString("- merge the points both speakers agreed on; resolve or flag what they did not\n")
	sb.WriteString("- keep code examples and concrete steps from the discussion when they help the answer\n")
	sb.WriteString("- do not describe the discussion itself; deliver the answer\n")

	return sb.String()
}

// SynthesisUser builds the user prompt carrying the full transcript.
func SynthesisUser(question string, transcript *discussion.Transcript, verdict *discussion.ConsensusVerdict) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Original question: %q\n\n", question)
	sb.WriteString("Full discussion:\n")
	for _, turn := range transcript.Turns {
		if turn.Role == discussion.RolePersonaA || turn.Role == discussion.RolePersonaB {
			fmt.Fprintf(&sb, "[round %d, %s]: %s\n\n", turn.Round, turn.Role, turn.Content)
		}
	}

	if verdict != nil {
		if len(verdict.KeyPoints) > 0 {
			fmt.Fprintf(&sb, "Key points identified: %s\n", strings.Join(verdict.KeyPoints, "; "))
		}
		if len(verdict.RemainingIssues) > 0 {
			fmt.Fprintf(&sb, "Open issues to address or flag: %s\n", strings.Join(verdict.RemainingIssues, "; "))
		}
	}

	sb.WriteString("\nWrite the final answer now.")
	return sb.String()
}
