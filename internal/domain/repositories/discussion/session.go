package discussion

import (
	"context"

	"github.com/ct-jyjntc/ai-discussion/internal/domain/models/discussion"
)

// SessionRepository defines the interface for archived session data access
type SessionRepository interface {
	// ArchiveSession persists a settled transcript and its turns.
	// Archiving the same session id again replaces the stored copy.
	ArchiveSession(ctx context.Context, transcript *discussion.Transcript) error

	// GetSession retrieves an archived transcript by session ID
	// Returns domain.ErrNotFound if not found
	GetSession(ctx context.Context, sessionID string) (*discussion.Transcript, error)

	// ListSessions retrieves archived session summaries, newest first
	// Returns empty slice if none found
	ListSessions(ctx context.Context, limit int) ([]discussion.Transcript, error)
}
