// Package discussion persists settled discussion transcripts. The
// in-memory session store stays authoritative while a session runs;
// this repository only sees terminal snapshots.
package discussion

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ct-jyjntc/ai-discussion/internal/domain"
	model "github.com/ct-jyjntc/ai-discussion/internal/domain/models/discussion"
	"github.com/ct-jyjntc/ai-discussion/internal/domain/repositories"
	discussionRepo "github.com/ct-jyjntc/ai-discussion/internal/domain/repositories/discussion"
	"github.com/ct-jyjntc/ai-discussion/internal/repository/postgres"
)

const defaultListLimit = 50

// PostgresSessionRepository implements SessionRepository using PostgreSQL
type PostgresSessionRepository struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
	logger *slog.Logger
}

// NewSessionRepository creates a new PostgresSessionRepository
func NewSessionRepository(config *postgres.RepositoryConfig) discussionRepo.SessionRepository {
	return &PostgresSessionRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

// ArchiveSession upserts the session row and replaces its turns in a
// single transaction, so re-archiving after a retry never duplicates.
func (r *PostgresSessionRepository) ArchiveSession(ctx context.Context, transcript *model.Transcript) error {
	verdictJSON, err := marshalVerdict(transcript.FinalVerdict)
	if err != nil {
		return fmt.Errorf("encode final verdict: %w", err)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin archive transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := fmt.Sprintf(`
		INSERT INTO %s (id, question, state, current_round, is_complete, final_verdict, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			state = EXCLUDED.state,
			current_round = EXCLUDED.current_round,
			is_complete = EXCLUDED.is_complete,
			final_verdict = EXCLUDED.final_verdict,
			updated_at = EXCLUDED.updated_at
	`, r.tables.Sessions)

	_, err = tx.Exec(ctx, query,
		transcript.SessionID,
		transcript.Question,
		transcript.State,
		transcript.CurrentRound,
		transcript.IsComplete,
		verdictJSON,
		transcript.CreatedAt,
		transcript.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("archive session: %w", err)
	}

	deleteQuery := fmt.Sprintf(`DELETE FROM %s WHERE session_id = $1`, r.tables.Turns)
	if _, err := tx.Exec(ctx, deleteQuery, transcript.SessionID); err != nil {
		return fmt.Errorf("clear archived turns: %w", err)
	}

	for i := range transcript.Turns {
		if err := r.insertTurn(ctx, tx, &transcript.Turns[i]); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit archive transaction: %w", err)
	}
	return nil
}

func (r *PostgresSessionRepository) insertTurn(ctx context.Context, db repositories.DBTX, turn *model.Turn) error {
	verdictJSON, err := marshalVerdict(turn.Verdict)
	if err != nil {
		return fmt.Errorf("encode turn verdict: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, session_id, role, content, status, round, error, model, verdict, created_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, r.tables.Turns)

	_, err = db.Exec(ctx, query,
		turn.ID,
		turn.SessionID,
		turn.Role,
		turn.Content,
		turn.Status,
		turn.Round,
		turn.Error,
		turn.Model,
		verdictJSON,
		turn.CreatedAt,
		turn.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("archive turn %s: %w", turn.ID, err)
	}
	return nil
}

// GetSession retrieves an archived transcript with its turns
func (r *PostgresSessionRepository) GetSession(ctx context.Context, sessionID string) (*model.Transcript, error) {
	query := fmt.Sprintf(`
		SELECT id, question, state, current_round, is_complete, final_verdict, created_at, updated_at
		FROM %s
		WHERE id = $1
	`, r.tables.Sessions)

	transcript, err := scanSession(r.pool.QueryRow(ctx, query, sessionID))
	if err != nil {
		if postgres.IsPgNoRowsError(err) {
			return nil, fmt.Errorf("session %s: %w", sessionID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get session: %w", err)
	}

	turns, err := r.queryTurns(ctx, r.pool, sessionID)
	if err != nil {
		return nil, err
	}
	transcript.Turns = turns
	return transcript, nil
}

// ListSessions retrieves archived session summaries without turns,
// newest first
func (r *PostgresSessionRepository) ListSessions(ctx context.Context, limit int) ([]model.Transcript, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	query := fmt.Sprintf(`
		SELECT id, question, state, current_round, is_complete, final_verdict, created_at, updated_at
		FROM %s
		ORDER BY created_at DESC
		LIMIT $1
	`, r.tables.Sessions)

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	sessions := []model.Transcript{}
	for rows.Next() {
		transcript, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, *transcript)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}

func (r *PostgresSessionRepository) queryTurns(ctx context.Context, db repositories.DBTX, sessionID string) ([]model.Turn, error) {
	query := fmt.Sprintf(`
		SELECT id, session_id, role, content, status, round, error, model, verdict, created_at, completed_at
		FROM %s
		WHERE session_id = $1
		ORDER BY created_at ASC
	`, r.tables.Turns)

	rows, err := db.Query(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list turns: %w", err)
	}
	defer rows.Close()

	var turns []model.Turn
	for rows.Next() {
		var turn model.Turn
		var verdictJSON []byte
		err := rows.Scan(
			&turn.ID,
			&turn.SessionID,
			&turn.Role,
			&turn.Content,
			&turn.Status,
			&turn.Round,
			&turn.Error,
			&turn.Model,
			&verdictJSON,
			&turn.CreatedAt,
			&turn.CompletedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		if turn.Verdict, err = unmarshalVerdict(verdictJSON); err != nil {
			return nil, fmt.Errorf("decode turn verdict: %w", err)
		}
		turns = append(turns, turn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list turns: %w", err)
	}
	return turns, nil
}

func scanSession(row pgx.Row) (*model.Transcript, error) {
	var transcript model.Transcript
	var verdictJSON []byte
	err := row.Scan(
		&transcript.SessionID,
		&transcript.Question,
		&transcript.State,
		&transcript.CurrentRound,
		&transcript.IsComplete,
		&verdictJSON,
		&transcript.CreatedAt,
		&transcript.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if transcript.FinalVerdict, err = unmarshalVerdict(verdictJSON); err != nil {
		return nil, err
	}
	return &transcript, nil
}

func marshalVerdict(v *model.ConsensusVerdict) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}

func unmarshalVerdict(data []byte) (*model.ConsensusVerdict, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var v model.ConsensusVerdict
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return &v, nil
}
