// Package discussion implements the round orchestrator: the state
// machine that drives two model personas turn-by-turn, runs consensus
// detection after each round, and synthesizes a final answer.
package discussion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/ct-jyjntc/ai-discussion/internal/cache"
	"github.com/ct-jyjntc/ai-discussion/internal/config"
	"github.com/ct-jyjntc/ai-discussion/internal/domain"
	model "github.com/ct-jyjntc/ai-discussion/internal/domain/models/discussion"
	discussionRepo "github.com/ct-jyjntc/ai-discussion/internal/domain/repositories/discussion"
	domainllm "github.com/ct-jyjntc/ai-discussion/internal/domain/services/llm"
	"github.com/ct-jyjntc/ai-discussion/internal/service/discussion/adaptive"
	"github.com/ct-jyjntc/ai-discussion/internal/service/discussion/analysis"
	"github.com/ct-jyjntc/ai-discussion/internal/service/discussion/consensus"
	"github.com/ct-jyjntc/ai-discussion/internal/service/discussion/prompts"
)

// archiveTimeout bounds the best-effort persistence write after a
// session settles.
const archiveTimeout = 10 * time.Second

// Resolver maps a model identifier to a client.
type Resolver interface {
	ClientFor(model string) (domainllm.ModelClient, error)
}

// Service orchestrates discussion sessions. Each StartSession spawns
// one goroutine that owns that session's transcript for its lifetime.
type Service struct {
	cfg      *config.Config
	profiles config.PersonaProfiles
	registry Resolver
	detector *consensus.Detector
	cache    *cache.Cache
	repo     discussionRepo.SessionRepository // nil disables archiving
	logger   *slog.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewService(
	cfg *config.Config,
	profiles config.PersonaProfiles,
	registry Resolver,
	detector *consensus.Detector,
	responseCache *cache.Cache,
	repo discussionRepo.SessionRepository,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		cfg:      cfg,
		profiles: profiles,
		registry: registry,
		detector: detector,
		cache:    responseCache,
		repo:     repo,
		logger:   logger,
		sessions: make(map[string]*Session),
	}
}

// StartSession validates the question, registers a new session and
// launches its orchestrator goroutine. Returns the session id.
func (s *Service) StartSession(question string) (string, error) {
	if err := validation.Validate(question,
		validation.Required,
		validation.Length(1, config.MaxQuestionLength),
	); err != nil {
		return "", &domain.ValidationError{Message: "invalid question: " + err.Error()}
	}

	ctx, cancel := context.WithCancel(context.Background())
	sess := newSession(question, cancel)
	sess.appendUserTurn(question)

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()

	go s.run(ctx, sess)

	s.logger.Info("discussion session started", "session_id", sess.ID)
	return sess.ID, nil
}

// GetTranscript returns a point-in-time copy of a session's transcript,
// readable mid-flight.
func (s *Service) GetTranscript(sessionID string) (model.Transcript, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return model.Transcript{}, err
	}
	return sess.Transcript(), nil
}

// Cancel aborts a running session. Cancelling a settled session is a no-op.
func (s *Service) Cancel(sessionID string) error {
	sess, err := s.session(sessionID)
	if err != nil {
		return err
	}
	sess.Cancel()
	return nil
}

// Subscribe attaches an event stream to a session.
func (s *Service) Subscribe(sessionID string) (<-chan Event, func(), error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, nil, err
	}
	ch, unsub := sess.Subscribe()
	return ch, unsub, nil
}

// ListTranscripts snapshots every in-memory session.
func (s *Service) ListTranscripts() []model.Transcript {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Transcript, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, sess.Transcript())
	}
	return out
}

func (s *Service) session(id string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, &domain.NotFoundError{Message: "session " + id + " not found"}
	}
	return sess, nil
}

// run is the orchestrator loop: an explicit bounded iteration over
// rounds, never recursion, so the round cap is structural.
func (s *Service) run(ctx context.Context, sess *Session) {
	defer sess.closeSubscribers()

	question := sess.Transcript().Question
	qAnalysis := prompts.AnalyzeQuestion(question)
	manager := adaptive.NewManager()
	maxRounds := s.cfg.MaxRounds

	strategy := model.Strategy{
		NextSpeaker:      model.SpeakerPersonaA,
		PromptAdjustment: model.AdjustDeeper,
		TimeAllocation:   1.0,
		QualityThreshold: 0.75,
	}

	var verdict *model.ConsensusVerdict

	for round := 1; round <= maxRounds; round++ {
		sess.setState(model.StateRunningRound, round)

		aContent, err := s.personaTurn(ctx, sess, model.RolePersonaA, round, qAnalysis, strategy.PromptAdjustment)
		if err != nil {
			s.settleFailure(ctx, sess, err)
			return
		}

		bContent, err := s.personaTurn(ctx, sess, model.RolePersonaB, round, qAnalysis, strategy.PromptAdjustment)
		if err != nil {
			s.settleFailure(ctx, sess, err)
			return
		}

		sess.setState(model.StateDetectingConsensus, round)
		snapshot := sess.Transcript()
		verdict = s.detector.Detect(ctx, question, &snapshot, round)
		sess.publish(Event{Type: EventVerdict, Round: round, Verdict: verdict})

		if err := ctx.Err(); err != nil {
			s.settleFailure(ctx, sess, err)
			return
		}

		state := model.DialogueState{
			Round:             round,
			Topic:             question,
			Complexity:        analysis.Complexity(question),
			ConsensusProgress: verdict.Confidence / 100,
			EngagementA:       analysis.EngagementLevel([]string{aContent}),
			EngagementB:       analysis.EngagementLevel([]string{bContent}),
		}
		strategy = manager.Decide(state, question, []string{aContent, bContent}, verdict)

		// The authoritative synthesis gate: the recommended action, or
		// the hard round cap. hasConsensus alone never decides.
		if verdict.RecommendedAction == model.ActionConsensus || round >= maxRounds {
			break
		}
	}

	if err := s.synthesize(ctx, sess, question, verdict); err != nil {
		s.settleFailure(ctx, sess, err)
		return
	}

	sess.setState(model.StateComplete, 0)
	sess.publish(Event{Type: EventSessionDone, State: model.StateComplete})
	s.archive(sess)
	s.logger.Info("discussion session complete",
		"session_id", sess.ID, "rounds", sess.Transcript().CurrentRound)
}

// personaTurn runs one persona invocation: cache check, streaming model
// call, in-place turn mutation, freeze on completion.
func (s *Service) personaTurn(ctx context.Context, sess *Session, role model.Role, round int, qAnalysis prompts.QuestionAnalysis, adjustment model.PromptAdjustment) (string, error) {
	personaCfg, profile, counterpart := s.personaFor(role)

	snapshot := sess.Transcript()
	counterpartLatest := latestContentOf(&snapshot, counterpartRole(role))

	systemPrompt := prompts.PersonaSystem(profile, counterpart, round, qAnalysis, adjustment)
	userPrompt := prompts.PersonaUser(snapshot.Question, &snapshot, round, counterpartLatest)

	turnID := sess.appendTurn(role, round, personaCfg.Model)

	var key string
	if s.cache != nil {
		key = cache.Key(systemPrompt, userPrompt, personaCfg.Model, string(role), round)
		if cached, ok := s.cache.Get(key); ok {
			sess.appendDelta(turnID, cached)
			sess.completeTurn(turnID, cached, nil)
			return cached, nil
		}
	}

	client, err := s.registry.ClientFor(personaCfg.Model)
	if err != nil {
		sess.failTurn(turnID, err.Error())
		return "", err
	}

	content, err := client.InvokeStreaming(ctx, &domainllm.InvokeRequest{
		Model:        personaCfg.Model,
		SystemPrompt: systemPrompt,
		UserPrompt:   userPrompt,
		MaxTokens:    personaCfg.MaxTokens,
		Persona:      string(role),
		Round:        round,
	}, func(chunk string) {
		sess.appendDelta(turnID, chunk)
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			// No partial turn survives a cancellation.
			sess.removeTurn(turnID)
		} else {
			sess.failTurn(turnID, fmt.Sprintf("%s turn failed: %v", role, err))
		}
		return "", err
	}

	sess.completeTurn(turnID, content, nil)
	if s.cache != nil {
		s.cache.Set(key, content)
	}
	return content, nil
}

// synthesize produces the terminal synthesis turn tagged with the
// triggering verdict.
func (s *Service) synthesize(ctx context.Context, sess *Session, question string, verdict *model.ConsensusVerdict) error {
	sess.setState(model.StateSynthesizing, 0)

	snapshot := sess.Transcript()
	systemPrompt := prompts.SynthesisSystem(s.profiles.Synthesis, s.profiles.PersonaA.Name, s.profiles.PersonaB.Name)
	userPrompt := prompts.SynthesisUser(question, &snapshot, verdict)

	turnID := sess.appendTurn(model.RoleSynthesis, 0, s.cfg.Synthesis.Model)

	client, err := s.registry.ClientFor(s.cfg.Synthesis.Model)
	if err != nil {
		sess.failTurn(turnID, err.Error())
		return err
	}

	content, err := client.InvokeStreaming(ctx, &domainllm.InvokeRequest{
		Model:        s.cfg.Synthesis.Model,
		SystemPrompt: systemPrompt,
		UserPrompt:   userPrompt,
		MaxTokens:    s.cfg.Synthesis.MaxTokens,
		Persona:      string(model.RoleSynthesis),
	}, func(chunk string) {
		sess.appendDelta(turnID, chunk)
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			sess.removeTurn(turnID)
		} else {
			sess.failTurn(turnID, fmt.Sprintf("synthesis failed: %v", err))
		}
		return err
	}

	sess.completeTurn(turnID, content, verdict)
	sess.setFinalVerdict(verdict)
	return nil
}

// settleFailure drives the machine to its terminal failure state:
// Cancelled for cancellations, Failed for everything else.
func (s *Service) settleFailure(ctx context.Context, sess *Session, err error) {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
		sess.setState(model.StateCancelled, 0)
		sess.publish(Event{Type: EventSessionDone, State: model.StateCancelled})
		s.logger.Info("discussion session cancelled", "session_id", sess.ID)
	} else {
		sess.setState(model.StateFailed, 0)
		sess.publish(Event{Type: EventSessionError, State: model.StateFailed, Error: err.Error()})
		s.logger.Error("discussion session failed", "session_id", sess.ID, "error", err)
	}
	s.archive(sess)
}

// archive persists the settled transcript when a repository is
// configured. Failures are logged, never propagated: persistence is
// best-effort and the in-memory transcript remains authoritative.
func (s *Service) archive(sess *Session) {
	if s.repo == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), archiveTimeout)
	defer cancel()

	transcript := sess.Transcript()
	if err := s.repo.ArchiveSession(ctx, &transcript); err != nil {
		s.logger.Warn("session archive failed", "session_id", sess.ID, "error", err)
	}
}

func (s *Service) personaFor(role model.Role) (config.PersonaConfig, config.PersonaProfile, string) {
	if role == model.RolePersonaA {
		return s.cfg.PersonaA, s.profiles.PersonaA, s.profiles.PersonaB.Name
	}
	return s.cfg.PersonaB, s.profiles.PersonaB, s.profiles.PersonaA.Name
}

func counterpartRole(role model.Role) model.Role {
	if role == model.RolePersonaA {
		return model.RolePersonaB
	}
	return model.RolePersonaA
}

func latestContentOf(t *model.Transcript, role model.Role) string {
	for i := len(t.Turns) - 1; i >= 0; i-- {
		if t.Turns[i].Role == role && t.Turns[i].Status == model.TurnStatusComplete {
			return t.Turns[i].Content
		}
	}
	return ""
}
