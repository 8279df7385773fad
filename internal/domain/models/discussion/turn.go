package discussion

import (
	"time"
)

// Role identifies who produced a turn.
type Role string

const (
	RoleUser      Role = "user"
	RolePersonaA  Role = "persona_a"
	RolePersonaB  Role = "persona_b"
	RoleSynthesis Role = "synthesis"
)

// TurnStatus tracks the lifecycle of a turn.
// A turn is created "pending", mutated in place while content streams in,
// then frozen at "complete" (or "error").
type TurnStatus string

const (
	TurnStatusPending   TurnStatus = "pending"
	TurnStatusStreaming TurnStatus = "streaming"
	TurnStatusComplete  TurnStatus = "complete"
	TurnStatusError     TurnStatus = "error"
)

// Turn represents a single utterance in a discussion.
type Turn struct {
	ID          string     `json:"id" db:"id"`
	SessionID   string     `json:"session_id" db:"session_id"`
	Role        Role       `json:"role" db:"role"`
	Content     string     `json:"content" db:"content"`
	Status      TurnStatus `json:"status" db:"status"`
	Round       int        `json:"round,omitempty" db:"round"` // 0 for user and synthesis turns
	Error       *string    `json:"error,omitempty" db:"error"`
	Model       *string    `json:"model,omitempty" db:"model"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty" db:"completed_at"`

	// Verdict is only set on the terminal synthesis turn: the consensus
	// verdict that triggered synthesis.
	Verdict *ConsensusVerdict `json:"verdict,omitempty"`
}
