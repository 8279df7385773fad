// Package consensus decides whether a two-persona discussion has
// converged on an answer. The primary path asks a judge model for a
// structured verdict; a deterministic cue-phrase fallback covers every
// failure of that path.
package consensus

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ct-jyjntc/ai-discussion/internal/cache"
	"github.com/ct-jyjntc/ai-discussion/internal/config"
	"github.com/ct-jyjntc/ai-discussion/internal/domain/models/discussion"
	domainllm "github.com/ct-jyjntc/ai-discussion/internal/domain/services/llm"
	"github.com/ct-jyjntc/ai-discussion/internal/service/discussion/analysis"
)

const judgeSystemPrompt = `You are a strict consensus judge for a two-speaker technical discussion.
Evaluate whether the speakers have genuinely converged on a complete answer to the user's original question.
Agreement alone is not consensus: the agreed answer must actually cover the question and be complete.

Respond with a single JSON object and nothing else, in exactly this shape:
{
  "hasConsensus": boolean,
  "confidence": number (0-100),
  "consensusLevel": "strong" | "medium" | "weak" | "none",
  "reason": string,
  "recommendedAction": "continue" | "consensus" | "extend",
  "keyPoints": [string],
  "remainingIssues": [string],
  "suggestions": [string],
  "discussionQuality": "superficial" | "adequate" | "thorough" | "excellent",
  "questionMatchScore": number (0-100),
  "questionCoverage": "complete" | "partial" | "minimal" | "off-topic",
  "unaddressedAspects": [string],
  "solutionCompleteness": "complete" | "incomplete" | "unclear"
}`

// Detector produces one ConsensusVerdict per completed round.
type Detector struct {
	registry  Resolver
	judge     config.PersonaConfig
	cache     *cache.Cache
	maxRounds int
	logger    *slog.Logger
}

// Resolver maps a model identifier to a client. Satisfied by the llm
// service registry.
type Resolver interface {
	ClientFor(model string) (domainllm.ModelClient, error)
}

func NewDetector(registry Resolver, judge config.PersonaConfig, responseCache *cache.Cache, maxRounds int, logger *slog.Logger) *Detector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Detector{
		registry:  registry,
		judge:     judge,
		cache:     responseCache,
		maxRounds: maxRounds,
		logger:    logger,
	}
}

// Detect returns a fully normalized verdict for the given round. It
// never returns an error: any judge failure degrades to the fallback
// detector.
func (d *Detector) Detect(ctx context.Context, question string, transcript *discussion.Transcript, round int) *discussion.ConsensusVerdict {
	latest := latestExchangeTexts(transcript)

	raw, err := d.askJudge(ctx, question, transcript, round)
	if err != nil {
		d.logger.Warn("judge call failed, using fallback detector",
			"round", round, "error", err)
		return Fallback(latest, round, d.maxRounds)
	}

	parsed, err := ParseVerdict(raw)
	if err != nil {
		d.logger.Warn("judge response unparseable, using fallback detector",
			"round", round, "error", err)
		return Fallback(latest, round, d.maxRounds)
	}

	return Normalize(parsed, round)
}

func (d *Detector) askJudge(ctx context.Context, question string, transcript *discussion.Transcript, round int) (string, error) {
	client, err := d.registry.ClientFor(d.judge.Model)
	if err != nil {
		return "", err
	}

	userPrompt := d.buildJudgePrompt(question, transcript, round)

	var key string
	if d.cache != nil {
		key = cache.Key(judgeSystemPrompt, userPrompt, d.judge.Model, "judge", round)
		if cached, ok := d.cache.Get(key); ok {
			return cached, nil
		}
	}

	raw, err := client.Invoke(ctx, &domainllm.InvokeRequest{
		Model:        d.judge.Model,
		SystemPrompt: judgeSystemPrompt,
		UserPrompt:   userPrompt,
		MaxTokens:    d.judge.MaxTokens,
		Persona:      "judge",
		Round:        round,
	})
	if err != nil {
		return "", err
	}

	if d.cache != nil {
		d.cache.Set(key, raw)
	}
	return raw, nil
}

// buildJudgePrompt embeds the question and a structural summary of the
// transcript: the most recent two rounds verbatim, earlier rounds
// compressed to their concluding statements.
func (d *Detector) buildJudgePrompt(question string, transcript *discussion.Transcript, round int) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Original question: %q\n\n", question)
	fmt.Fprintf(&sb, "The discussion has run %d round(s).\n\n", round)

	if earlier := summarizeEarlierRounds(transcript, round); earlier != "" {
		sb.WriteString("Summary of earlier rounds:\n")
		sb.WriteString(earlier)
		sb.WriteString("\n")
	}

	sb.WriteString("Most recent rounds, verbatim:\n")
	for r := max(1, round-1); r <= round; r++ {
		for _, turn := range transcript.TurnsForRound(r) {
			fmt.Fprintf(&sb, "[round %d, %s]: %s\n\n", r, turn.Role, turn.Content)
		}
	}

	fmt.Fprintf(&sb, "Current round: %d of %d.\n", round, d.maxRounds)
	sb.WriteString("Focus on the latest statements from both speakers. ")
	sb.WriteString("Only report consensus when both explicitly agree, no disagreement remains, ")
	sb.WriteString("and the agreed answer completely resolves the original question.")

	return sb.String()
}

func summarizeEarlierRounds(transcript *discussion.Transcript, round int) string {
	var sb strings.Builder
	for r := 1; r < round-1; r++ {
		for _, turn := range transcript.TurnsForRound(r) {
			if conclusion := analysis.ExtractConclusion(turn.Content); conclusion != "" {
				fmt.Fprintf(&sb, "- round %d, %s: %s\n", r, turn.Role, conclusion)
			}
		}
	}
	return sb.String()
}

func latestExchangeTexts(transcript *discussion.Transcript) []string {
	turns := transcript.LatestExchange(2)
	texts := make([]string, 0, len(turns))
	for _, t := range turns {
		texts = append(texts, t.Content)
	}
	return texts
}
