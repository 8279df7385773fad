package discussion

import (
	"time"
)

// SessionState is the orchestrator's state machine position.
type SessionState string

const (
	StateIdle               SessionState = "idle"
	StateRunningRound       SessionState = "running_round"
	StateDetectingConsensus SessionState = "detecting_consensus"
	StateSynthesizing       SessionState = "synthesizing"
	StateComplete           SessionState = "complete"
	StateFailed             SessionState = "failed"
	StateCancelled          SessionState = "cancelled"
)

// Terminal reports whether no further transitions are possible from s.
func (s SessionState) Terminal() bool {
	return s == StateComplete || s == StateFailed || s == StateCancelled
}

// Transcript is the ordered record of one discussion session.
//
// Invariants: exactly one user turn, always first; persona_a and persona_b
// turns alternate in pairs per round; at most one terminal synthesis turn.
type Transcript struct {
	SessionID    string            `json:"session_id"`
	Question     string            `json:"question"`
	Turns        []Turn            `json:"turns"`
	CurrentRound int               `json:"current_round"`
	State        SessionState      `json:"state"`
	IsComplete   bool              `json:"is_complete"`
	IsProcessing bool              `json:"is_processing"`
	FinalVerdict *ConsensusVerdict `json:"final_verdict,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// TurnsForRound returns the persona turns recorded for the given round,
// in append order (persona A before persona B).
func (t *Transcript) TurnsForRound(round int) []Turn {
	var turns []Turn
	for _, turn := range t.Turns {
		if turn.Round == round && (turn.Role == RolePersonaA || turn.Role == RolePersonaB) {
			turns = append(turns, turn)
		}
	}
	return turns
}

// LatestExchange returns the contents of the most recent persona turns,
// newest round last. n is the number of rounds to include.
func (t *Transcript) LatestExchange(n int) []Turn {
	if t.CurrentRound == 0 {
		return nil
	}
	var turns []Turn
	for round := t.CurrentRound - n + 1; round <= t.CurrentRound; round++ {
		if round < 1 {
			continue
		}
		turns = append(turns, t.TurnsForRound(round)...)
	}
	return turns
}
