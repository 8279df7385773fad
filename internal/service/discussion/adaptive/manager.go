// Package adaptive chooses how the next discussion round should run:
// who speaks, how the prompt is steered, and how much quality/time to
// demand. Decisions come from a fixed rule order over analysis scores,
// then get adjusted against a rolling history of recent rounds.
package adaptive

import (
	"sync"

	"github.com/ct-jyjntc/ai-discussion/internal/domain/models/discussion"
	"github.com/ct-jyjntc/ai-discussion/internal/service/discussion/analysis"
)

const (
	historyCap          = 10
	performanceBaseline = 0.7
)

// Manager holds per-session adaptive state. One Manager per discussion
// session; not shared across sessions.
type Manager struct {
	mu          sync.Mutex
	history     []discussion.DialogueState
	lastSpeaker discussion.Speaker
}

func NewManager() *Manager {
	return &Manager{
		lastSpeaker: discussion.SpeakerPersonaB, // round 1 starts with A
	}
}

// Decide picks the strategy for the next round. First matching rule
// wins: conclude on high confidence, refocus on drift, deepen on poor
// quality, broaden on stalled convergence, else continue deeper in
// normal alternation.
func (m *Manager) Decide(state discussion.DialogueState, question string, responses []string, verdict *discussion.ConsensusVerdict) discussion.Strategy {
	m.mu.Lock()
	defer m.mu.Unlock()

	drift := analysis.TopicDrift(responses)
	quality := analysis.QualityScore(question, responses)
	convergence := m.convergenceRate()

	confidence := 0.0
	if verdict != nil {
		confidence = verdict.Confidence / 100
	}

	var strategy discussion.Strategy
	switch {
	case confidence > 0.85:
		strategy = discussion.Strategy{
			NextSpeaker:      discussion.SpeakerModerator,
			PromptAdjustment: discussion.AdjustConclude,
			TimeAllocation:   0.5,
			QualityThreshold: 0.9,
		}
	case drift > 0.6:
		strategy = discussion.Strategy{
			NextSpeaker:      discussion.SpeakerModerator,
			PromptAdjustment: discussion.AdjustRefocus,
			TimeAllocation:   1.0,
			QualityThreshold: 0.8,
		}
	case quality < 0.6:
		strategy = discussion.Strategy{
			NextSpeaker:      m.bestPerformer(),
			PromptAdjustment: discussion.AdjustDeeper,
			TimeAllocation:   1.5,
			QualityThreshold: 0.75,
		}
	case convergence < 0.3:
		strategy = discussion.Strategy{
			NextSpeaker:      m.otherSpeaker(),
			PromptAdjustment: discussion.AdjustBroader,
			TimeAllocation:   1.2,
			QualityThreshold: 0.7,
		}
	default:
		strategy = discussion.Strategy{
			NextSpeaker:      m.otherSpeaker(),
			PromptAdjustment: discussion.AdjustDeeper,
			TimeAllocation:   1.0,
			QualityThreshold: 0.75,
		}
	}

	strategy = m.adapt(strategy)
	m.appendHistory(state, quality)

	if strategy.NextSpeaker == discussion.SpeakerPersonaA || strategy.NextSpeaker == discussion.SpeakerPersonaB {
		m.lastSpeaker = strategy.NextSpeaker
	}
	return strategy
}

// adapt tightens or relaxes the base strategy against recent progress.
func (m *Manager) adapt(strategy discussion.Strategy) discussion.Strategy {
	if len(m.history) < 3 {
		return strategy
	}

	recent := m.recentProgress()
	if recent < performanceBaseline {
		strategy.QualityThreshold = min(0.9, strategy.QualityThreshold+0.1)
		strategy.TimeAllocation *= 1.2
	} else if recent > performanceBaseline+0.2 {
		strategy.TimeAllocation *= 0.9
		strategy.QualityThreshold = max(0.6, strategy.QualityThreshold-0.05)
	}
	return strategy
}

// convergenceRate derives a trend from consensus progress over the
// last three recorded rounds. With little history it returns a neutral
// 0.5 so the broaden rule does not fire prematurely.
func (m *Manager) convergenceRate() float64 {
	if len(m.history) < 2 {
		return 0.5
	}

	recent := m.history
	if len(recent) > 3 {
		recent = recent[len(recent)-3:]
	}

	var total float64
	for i := 1; i < len(recent); i++ {
		total += recent[i].ConsensusProgress - recent[i-1].ConsensusProgress
	}
	avg := total / float64(len(recent)-1)

	rate := 0.5 + avg
	if rate < 0 {
		return 0
	}
	if rate > 1 {
		return 1
	}
	return rate
}

// bestPerformer routes to whichever persona showed higher engagement
// over recent rounds.
func (m *Manager) bestPerformer() discussion.Speaker {
	if len(m.history) < 2 {
		return discussion.SpeakerPersonaA
	}

	recent := m.history
	if len(recent) > 3 {
		recent = recent[len(recent)-3:]
	}

	var a, b float64
	for _, h := range recent {
		a += h.EngagementA
		b += h.EngagementB
	}
	if a >= b {
		return discussion.SpeakerPersonaA
	}
	return discussion.SpeakerPersonaB
}

func (m *Manager) otherSpeaker() discussion.Speaker {
	if m.lastSpeaker == discussion.SpeakerPersonaA {
		return discussion.SpeakerPersonaB
	}
	return discussion.SpeakerPersonaA
}

func (m *Manager) appendHistory(state discussion.DialogueState, quality float64) {
	state.QualityTrend = m.qualityTrend(quality)
	m.history = append(m.history, state)
	if len(m.history) > historyCap {
		m.history = m.history[len(m.history)-historyCap:]
	}
}

func (m *Manager) qualityTrend(current float64) discussion.QualityTrend {
	if len(m.history) < 2 {
		return discussion.TrendStable
	}

	recent := m.history[len(m.history)-2:]
	avg := (recent[0].ConsensusProgress + recent[1].ConsensusProgress) / 2

	const threshold = 0.05
	switch {
	case current > avg+threshold:
		return discussion.TrendImproving
	case current < avg-threshold:
		return discussion.TrendDeclining
	default:
		return discussion.TrendStable
	}
}

func (m *Manager) recentProgress() float64 {
	recent := m.history
	if len(recent) > 3 {
		recent = recent[len(recent)-3:]
	}
	var total float64
	for _, h := range recent {
		total += h.ConsensusProgress
	}
	return total / float64(len(recent))
}

// HistoryLen reports the number of retained round snapshots.
func (m *Manager) HistoryLen() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.history)
}
