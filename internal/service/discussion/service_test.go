package discussion

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/ct-jyjntc/ai-discussion/internal/config"
	"github.com/ct-jyjntc/ai-discussion/internal/domain"
	model "github.com/ct-jyjntc/ai-discussion/internal/domain/models/discussion"
	domainllm "github.com/ct-jyjntc/ai-discussion/internal/domain/services/llm"
	"github.com/ct-jyjntc/ai-discussion/internal/service/discussion/consensus"
)

// scriptedClient serves both the personas and the judge, routed by
// model name. Persona calls are counted across the whole session
// (synthesis included) so tests can block or fail a specific call.
type scriptedClient struct {
	mu           sync.Mutex
	judgeJSON    []string
	judgeCalls   int
	personaCalls int

	blockOn int           // persona call index that waits for ctx cancellation
	failOn  int           // persona call index that returns a permanent error
	started chan struct{} // closed when the blocking call begins
	gate    chan struct{} // first persona call waits for this before proceeding
}

func (c *scriptedClient) Invoke(ctx context.Context, req *domainllm.InvokeRequest) (string, error) {
	if req.Model == "judge-model" {
		c.mu.Lock()
		i := c.judgeCalls
		c.judgeCalls++
		c.mu.Unlock()
		if i >= len(c.judgeJSON) {
			i = len(c.judgeJSON) - 1
		}
		return c.judgeJSON[i], nil
	}
	return c.InvokeStreaming(ctx, req, func(string) {})
}

func (c *scriptedClient) InvokeStreaming(ctx context.Context, req *domainllm.InvokeRequest, onChunk domainllm.ChunkHandler) (string, error) {
	c.mu.Lock()
	c.personaCalls++
	n := c.personaCalls
	c.mu.Unlock()

	if n == 1 && c.gate != nil {
		<-c.gate
	}
	if n == c.failOn {
		return "", &domain.ModelError{Provider: "fake", StatusCode: 400, Message: "bad request"}
	}
	if n == c.blockOn {
		close(c.started)
		<-ctx.Done()
		return "", ctx.Err()
	}

	content := fmt.Sprintf("response %d from %s for round %d", n, req.Persona, req.Round)
	onChunk(content)
	return content, nil
}

func (c *scriptedClient) Name() string              { return "scripted" }
func (c *scriptedClient) SupportsModel(string) bool { return true }

type singleResolver struct {
	client domainllm.ModelClient
}

func (r *singleResolver) ClientFor(string) (domainllm.ModelClient, error) {
	return r.client, nil
}

const (
	judgeContinue = `{"hasConsensus": false, "confidence": 40, "reason": "still diverging"}`
	judgeSettled  = `{
		"hasConsensus": true, "confidence": 92, "reason": "complete answer confirmed",
		"recommendedAction": "consensus", "consensusLevel": "strong",
		"questionMatchScore": 95, "questionCoverage": "complete",
		"solutionCompleteness": "complete", "discussionQuality": "thorough"
	}`
)

func newTestService(t *testing.T, client *scriptedClient, maxRounds int) *Service {
	t.Helper()

	cfg := &config.Config{
		PersonaA:  config.PersonaConfig{Name: "Analyst", Model: "persona-model", MaxTokens: 512},
		PersonaB:  config.PersonaConfig{Name: "Critic", Model: "persona-model", MaxTokens: 512},
		Judge:     config.PersonaConfig{Name: "Judge", Model: "judge-model", MaxTokens: 512},
		Synthesis: config.PersonaConfig{Name: "Synthesizer", Model: "synth-model", MaxTokens: 512},
		MaxRounds: maxRounds,
	}
	resolver := &singleResolver{client: client}
	detector := consensus.NewDetector(resolver, cfg.Judge, nil, maxRounds, nil)
	return NewService(cfg, config.DefaultProfiles(cfg), resolver, detector, nil, nil, nil)
}

func waitTerminal(t *testing.T, svc *Service, id string) model.Transcript {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		tr, err := svc.GetTranscript(id)
		if err != nil {
			t.Fatalf("GetTranscript: %v", err)
		}
		if tr.State.Terminal() {
			return tr
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("session did not reach a terminal state")
	return model.Transcript{}
}

func personaTurns(tr model.Transcript) []model.Turn {
	var turns []model.Turn
	for _, turn := range tr.Turns {
		if turn.Role == model.RolePersonaA || turn.Role == model.RolePersonaB {
			turns = append(turns, turn)
		}
	}
	return turns
}

func TestRunLoopStopsAtRoundCap(t *testing.T) {
	client := &scriptedClient{judgeJSON: []string{judgeContinue}}
	svc := newTestService(t, client, 2)

	id, err := svc.StartSession("How should we shard the metrics store?")
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	tr := waitTerminal(t, svc, id)

	if tr.State != model.StateComplete {
		t.Fatalf("State = %q, want complete", tr.State)
	}
	if got := len(personaTurns(tr)); got != 4 {
		t.Errorf("persona turns = %d, want 4 (2 rounds)", got)
	}
	if tr.CurrentRound != 2 {
		t.Errorf("CurrentRound = %d, want 2", tr.CurrentRound)
	}

	last := tr.Turns[len(tr.Turns)-1]
	if last.Role != model.RoleSynthesis {
		t.Errorf("last turn role = %q, want synthesis", last.Role)
	}
	if last.Verdict == nil {
		t.Error("synthesis turn carries no verdict")
	}
	if tr.FinalVerdict == nil {
		t.Error("FinalVerdict not set on completed session")
	}
}

func TestConsensusActionEndsEarly(t *testing.T) {
	client := &scriptedClient{judgeJSON: []string{judgeSettled}}
	svc := newTestService(t, client, 6)

	id, err := svc.StartSession("What is a closure in JavaScript?")
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	tr := waitTerminal(t, svc, id)

	if tr.State != model.StateComplete {
		t.Fatalf("State = %q, want complete", tr.State)
	}
	// Early rounds veto the judge's consensus call regardless of its
	// confidence, so the session settles at round 4, not round 1.
	if tr.CurrentRound != 4 {
		t.Errorf("CurrentRound = %d, want 4", tr.CurrentRound)
	}
	if got := len(personaTurns(tr)); got != 8 {
		t.Errorf("persona turns = %d, want 8", got)
	}
	if tr.FinalVerdict == nil || !tr.FinalVerdict.HasConsensus {
		t.Errorf("FinalVerdict = %+v, want accepted consensus", tr.FinalVerdict)
	}
}

func TestCancelMidRoundRemovesInFlightTurn(t *testing.T) {
	client := &scriptedClient{
		judgeJSON: []string{judgeContinue},
		blockOn:   2, // persona B, round 1
		started:   make(chan struct{}),
	}
	svc := newTestService(t, client, 4)

	id, err := svc.StartSession("Should we keep the monolith?")
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}

	select {
	case <-client.started:
	case <-time.After(2 * time.Second):
		t.Fatal("persona B turn never started")
	}
	if err := svc.Cancel(id); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	tr := waitTerminal(t, svc, id)

	if tr.State != model.StateCancelled {
		t.Fatalf("State = %q, want cancelled", tr.State)
	}
	turns := personaTurns(tr)
	if len(turns) != 1 || turns[0].Role != model.RolePersonaA {
		t.Fatalf("persona turns after cancel = %+v, want only persona A's", turns)
	}
	if turns[0].Status != model.TurnStatusComplete {
		t.Errorf("surviving turn status = %q, want complete", turns[0].Status)
	}
	if tr.IsProcessing {
		t.Error("cancelled session still marked processing")
	}
}

func TestPersonaFailureSettlesFailed(t *testing.T) {
	client := &scriptedClient{
		judgeJSON: []string{judgeContinue},
		failOn:    2, // persona B, round 1
	}
	svc := newTestService(t, client, 4)

	id, err := svc.StartSession("Why does the cache thrash?")
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	tr := waitTerminal(t, svc, id)

	if tr.State != model.StateFailed {
		t.Fatalf("State = %q, want failed", tr.State)
	}
	turns := personaTurns(tr)
	if len(turns) != 2 {
		t.Fatalf("persona turns = %d, want 2 (A complete, B errored)", len(turns))
	}
	if turns[1].Status != model.TurnStatusError {
		t.Errorf("persona B status = %q, want error", turns[1].Status)
	}
	for _, turn := range tr.Turns {
		if turn.Role == model.RoleSynthesis {
			t.Error("failed session must not contain a synthesis turn")
		}
	}
}

func TestStartSessionRejectsInvalidQuestion(t *testing.T) {
	svc := newTestService(t, &scriptedClient{judgeJSON: []string{judgeContinue}}, 2)

	if _, err := svc.StartSession(""); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("empty question: err = %v, want validation error", err)
	}

	long := make([]byte, config.MaxQuestionLength+1)
	for i := range long {
		long[i] = 'q'
	}
	if _, err := svc.StartSession(string(long)); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("oversized question: err = %v, want validation error", err)
	}
}

func TestSubscribeStreamsSessionEvents(t *testing.T) {
	gate := make(chan struct{})
	client := &scriptedClient{judgeJSON: []string{judgeContinue}, gate: gate}
	svc := newTestService(t, client, 1)

	id, err := svc.StartSession("Pick a serialization format.")
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	ch, unsub, err := svc.Subscribe(id)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer unsub()
	close(gate)

	seen := map[EventType]bool{}
	deadline := time.After(2 * time.Second)
	for !seen[EventSessionDone] {
		select {
		case ev, ok := <-ch:
			if !ok {
				t.Fatalf("event channel closed before session_done, saw %v", seen)
			}
			if ev.SessionID != id {
				t.Errorf("event session id = %q, want %q", ev.SessionID, id)
			}
			seen[ev.Type] = true
		case <-deadline:
			t.Fatalf("timed out waiting for session_done, saw %v", seen)
		}
	}

	for _, want := range []EventType{EventTurnCompleted, EventVerdict, EventStateChanged} {
		if !seen[want] {
			t.Errorf("never received %q event", want)
		}
	}
}

func TestGetTranscriptUnknownSession(t *testing.T) {
	svc := newTestService(t, &scriptedClient{judgeJSON: []string{judgeContinue}}, 2)

	if _, err := svc.GetTranscript("nope"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("err = %v, want not found", err)
	}
}
