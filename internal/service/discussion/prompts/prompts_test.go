package prompts

import (
	"strings"
	"testing"

	"github.com/ct-jyjntc/ai-discussion/internal/config"
	"github.com/ct-jyjntc/ai-discussion/internal/domain/models/discussion"
)

func TestAnalyzeQuestion(t *testing.T) {
	tests := []struct {
		name        string
		question    string
		wantType    QuestionType
		wantOutput  string
		wantElement string
	}{
		{
			name:        "practical question",
			question:    "How do I set up connection pooling for PostgreSQL?",
			wantType:    TypePractical,
			wantOutput:  "step-by-step",
			wantElement: "PostgreSQL",
		},
		{
			name:       "conceptual question",
			question:   "What is a closure in JavaScript?",
			wantType:   TypeConceptual,
			wantOutput: "explanation",
		},
		{
			name:       "comparative question",
			question:   "REST vs GraphQL, which should we pick?",
			wantType:   TypeComparative,
			wantOutput: "comparison",
		},
		{
			name:       "troubleshooting question",
			question:   "My Docker build fails with a permission error, how do I debug it?",
			wantType:   TypePractical, // "how do i" matches first
			wantOutput: "step-by-step",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AnalyzeQuestion(tt.question)
			if got.Type != tt.wantType {
				t.Errorf("Type = %q, want %q", got.Type, tt.wantType)
			}
			if got.OutputType != tt.wantOutput {
				t.Errorf("OutputType = %q, want %q", got.OutputType, tt.wantOutput)
			}
			if tt.wantElement != "" {
				found := false
				for _, e := range got.KeyElements {
					if strings.EqualFold(e, tt.wantElement) {
						found = true
					}
				}
				if !found {
					t.Errorf("KeyElements = %v, want to include %q", got.KeyElements, tt.wantElement)
				}
			}
			if len(got.Requirements) == 0 {
				t.Error("Requirements empty")
			}
		})
	}
}

func TestAnalyzeQuestionSpecificity(t *testing.T) {
	high := AnalyzeQuestion("I need concrete code examples for memory optimization")
	if high.Specificity != "high" {
		t.Errorf("Specificity = %q, want high", high.Specificity)
	}

	low := AnalyzeQuestion("Give me an overview of event loops")
	if low.Specificity != "low" {
		t.Errorf("Specificity = %q, want low", low.Specificity)
	}
}

func TestPersonaSystemEmbedsStrategy(t *testing.T) {
	profile := config.PersonaProfile{Name: "Analyst", Personality: []string{"analytical", "direct"}}
	analysis := AnalyzeQuestion("How do I optimize API latency?")

	got := PersonaSystem(profile, "Critic", 2, analysis, discussion.AdjustRefocus)

	for _, want := range []string{"Analyst", "Critic", "round 2", "drifted", "analytical"} {
		if !strings.Contains(got, want) {
			t.Errorf("system prompt missing %q:\n%s", want, got)
		}
	}
}

func TestPersonaUserFirstTurn(t *testing.T) {
	tr := &discussion.Transcript{Question: "q"}

	got := PersonaUser("What is sharding?", tr, 1, "")
	if !strings.Contains(got, "Open the discussion") {
		t.Errorf("first-turn prompt should ask to open the discussion:\n%s", got)
	}
	if strings.Contains(got, "Discussion so far") {
		t.Error("first-turn prompt should not include prior discussion")
	}
}

func TestPersonaUserLaterRound(t *testing.T) {
	tr := &discussion.Transcript{
		Question: "What is sharding?",
		Turns: []discussion.Turn{
			{Role: discussion.RoleUser, Content: "What is sharding?"},
			{Role: discussion.RolePersonaA, Content: "Splitting data across nodes.", Round: 1},
			{Role: discussion.RolePersonaB, Content: "Agreed, usually by key.", Round: 1},
		},
		CurrentRound: 1,
	}

	got := PersonaUser("What is sharding?", tr, 2, "Agreed, usually by key.")
	if !strings.Contains(got, "Discussion so far") {
		t.Error("later rounds should include the transcript")
	}
	if !strings.Contains(got, "Latest statement to respond to") {
		t.Error("later rounds should quote the counterpart's latest turn")
	}
}

func TestSynthesisPromptsCarryVerdict(t *testing.T) {
	profile := config.PersonaProfile{Name: "Synthesizer"}
	tr := &discussion.Transcript{
		Question: "q",
		Turns: []discussion.Turn{
			{Role: discussion.RolePersonaA, Content: "point one", Round: 1},
			{Role: discussion.RolePersonaB, Content: "point two", Round: 1},
		},
	}
	verdict := &discussion.ConsensusVerdict{
		KeyPoints:       []string{"sharding by key"},
		RemainingIssues: []string{"rebalancing cost"},
	}

	system := SynthesisSystem(profile, "Analyst", "Critic")
	if !strings.Contains(system, "Analyst") || !strings.Contains(system, "Critic") {
		t.Errorf("synthesis system prompt missing persona names:\n%s", system)
	}

	user := SynthesisUser("q", tr, verdict)
	if !strings.Contains(user, "sharding by key") {
		t.Error("synthesis user prompt missing key points")
	}
	if !strings.Contains(user, "rebalancing cost") {
		t.Error("synthesis user prompt missing remaining issues")
	}
}
