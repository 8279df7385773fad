package discussion

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	model "github.com/ct-jyjntc/ai-discussion/internal/domain/models/discussion"
)

// EventType labels session events delivered to SSE subscribers.
type EventType string

const (
	EventTurnStarted   EventType = "turn_started"
	EventTurnDelta     EventType = "turn_delta"
	EventTurnCompleted EventType = "turn_completed"
	EventVerdict       EventType = "verdict"
	EventStateChanged  EventType = "state_changed"
	EventSessionDone   EventType = "session_done"
	EventSessionError  EventType = "session_error"
)

// Event is one observable step of a running discussion.
type Event struct {
	Type      EventType                `json:"type"`
	SessionID string                   `json:"sessionId"`
	Round     int                      `json:"round,omitempty"`
	Role      model.Role               `json:"role,omitempty"`
	Delta     string                   `json:"delta,omitempty"`
	Turn      *model.Turn              `json:"turn,omitempty"`
	Verdict   *model.ConsensusVerdict  `json:"verdict,omitempty"`
	State     model.SessionState       `json:"state,omitempty"`
	Error     string                   `json:"error,omitempty"`
}

// Session owns one discussion's transcript and fans events out to
// subscribers. The transcript is mutated only by the orchestrator
// goroutine; readers get copies.
type Session struct {
	ID string

	mu         sync.RWMutex
	transcript model.Transcript
	cancel     context.CancelFunc

	subMu   sync.Mutex
	subs    map[int]chan Event
	nextSub int
}

func newSession(question string, cancel context.CancelFunc) *Session {
	id := uuid.NewString()
	now := time.Now()
	return &Session{
		ID:     id,
		cancel: cancel,
		transcript: model.Transcript{
			SessionID:    id,
			Question:     question,
			State:        model.StateIdle,
			IsProcessing: true,
			CreatedAt:    now,
			UpdatedAt:    now,
		},
		subs: make(map[int]chan Event),
	}
}

// Transcript returns a copy safe for callers to read while the
// discussion is still running.
func (s *Session) Transcript() model.Transcript {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := s.transcript
	out.Turns = make([]model.Turn, len(s.transcript.Turns))
	copy(out.Turns, s.transcript.Turns)
	return out
}

// Cancel aborts any in-flight model call. The orchestrator goroutine
// observes the cancellation and settles the terminal state.
func (s *Session) Cancel() {
	s.cancel()
}

// Subscribe registers an event channel. The returned function
// unsubscribes and closes the channel.
func (s *Session) Subscribe() (<-chan Event, func()) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	id := s.nextSub
	s.nextSub++
	ch := make(chan Event, 32)
	s.subs[id] = ch

	return ch, func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		if existing, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(existing)
		}
	}
}

// publish delivers an event to all subscribers without blocking the
// orchestrator; slow subscribers drop events rather than stall turns.
func (s *Session) publish(event Event) {
	event.SessionID = s.ID

	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- event:
		default:
		}
	}
}

func (s *Session) closeSubscribers() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
}

func (s *Session) setState(state model.SessionState, round int) {
	s.mu.Lock()
	s.transcript.State = state
	if round > 0 {
		s.transcript.CurrentRound = round
	}
	if state.Terminal() {
		s.transcript.IsProcessing = false
		s.transcript.IsComplete = state == model.StateComplete
	}
	s.transcript.UpdatedAt = time.Now()
	s.mu.Unlock()

	s.publish(Event{Type: EventStateChanged, State: state, Round: round})
}

// appendTurn adds a new pending turn and returns its id.
func (s *Session) appendTurn(role model.Role, round int, modelName string) string {
	turn := model.Turn{
		ID:        uuid.NewString(),
		SessionID: s.ID,
		Role:      role,
		Status:    model.TurnStatusPending,
		Round:     round,
		CreatedAt: time.Now(),
	}
	if modelName != "" {
		turn.Model = &modelName
	}

	s.mu.Lock()
	s.transcript.Turns = append(s.transcript.Turns, turn)
	s.transcript.UpdatedAt = time.Now()
	s.mu.Unlock()

	s.publish(Event{Type: EventTurnStarted, Round: round, Role: role, Turn: &turn})
	return turn.ID
}

// appendDelta mutates a streaming turn in place as chunks arrive.
func (s *Session) appendDelta(turnID, chunk string) {
	s.mu.Lock()
	var round int
	var role model.Role
	for i := range s.transcript.Turns {
		if s.transcript.Turns[i].ID == turnID {
			s.transcript.Turns[i].Content += chunk
			s.transcript.Turns[i].Status = model.TurnStatusStreaming
			round = s.transcript.Turns[i].Round
			role = s.transcript.Turns[i].Role
			break
		}
	}
	s.mu.Unlock()

	s.publish(Event{Type: EventTurnDelta, Round: round, Role: role, Delta: chunk})
}

// completeTurn freezes a turn with its final content.
func (s *Session) completeTurn(turnID, content string, verdict *model.ConsensusVerdict) {
	now := time.Now()

	s.mu.Lock()
	var done *model.Turn
	for i := range s.transcript.Turns {
		if s.transcript.Turns[i].ID == turnID {
			s.transcript.Turns[i].Content = content
			s.transcript.Turns[i].Status = model.TurnStatusComplete
			s.transcript.Turns[i].CompletedAt = &now
			s.transcript.Turns[i].Verdict = verdict
			copied := s.transcript.Turns[i]
			done = &copied
			break
		}
	}
	s.transcript.UpdatedAt = now
	s.mu.Unlock()

	if done != nil {
		s.publish(Event{Type: EventTurnCompleted, Round: done.Round, Role: done.Role, Turn: done})
	}
}

// failTurn marks a turn as errored with a human-readable message.
func (s *Session) failTurn(turnID, message string) {
	now := time.Now()

	s.mu.Lock()
	for i := range s.transcript.Turns {
		if s.transcript.Turns[i].ID == turnID {
			s.transcript.Turns[i].Status = model.TurnStatusError
			s.transcript.Turns[i].Error = &message
			s.transcript.Turns[i].CompletedAt = &now
			break
		}
	}
	s.transcript.UpdatedAt = now
	s.mu.Unlock()
}

// removeTurn drops an in-flight turn, used when cancellation interrupts
// a model call so no partial turn survives.
func (s *Session) removeTurn(turnID string) {
	s.mu.Lock()
	for i := range s.transcript.Turns {
		if s.transcript.Turns[i].ID == turnID {
			s.transcript.Turns = append(s.transcript.Turns[:i], s.transcript.Turns[i+1:]...)
			break
		}
	}
	s.transcript.UpdatedAt = time.Now()
	s.mu.Unlock()
}

func (s *Session) setFinalVerdict(v *model.ConsensusVerdict) {
	s.mu.Lock()
	s.transcript.FinalVerdict = v
	s.mu.Unlock()
}

func (s *Session) appendUserTurn(question string) {
	now := time.Now()

	s.mu.Lock()
	s.transcript.Turns = append(s.transcript.Turns, model.Turn{
		ID:          uuid.NewString(),
		SessionID:   s.ID,
		Role:        model.RoleUser,
		Content:     question,
		Status:      model.TurnStatusComplete,
		CreatedAt:   now,
		CompletedAt: &now,
	})
	s.transcript.UpdatedAt = now
	s.mu.Unlock()
}
