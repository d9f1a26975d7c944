package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// SQLiteEventRepository implements EventRepository for SQLite.
type SQLiteEventRepository struct {
	db *sql.DB
}

func NewSQLiteEventRepository(db *sql.DB) *SQLiteEventRepository {
	return &SQLiteEventRepository{db: db}
}

func (r *SQLiteEventRepository) Append(ctx context.Context, event GameEvent) error {
	payload := event.Payload
	if payload == nil {
		payload = map[string]interface{}{}
	}
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	query := `
		INSERT INTO events (id, room_id, seq, timestamp, event_type, actor_id, puzzle, outcome, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = r.db.ExecContext(ctx, query,
		event.ID, event.RoomID, event.Seq, event.Timestamp.UTC(), event.EventType, event.ActorID,
		event.Puzzle, event.Outcome, string(payloadBytes),
	)
	if err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}
	return nil
}

const eventColumns = `id, room_id, seq, timestamp, event_type, actor_id, puzzle, outcome, payload`

func (r *SQLiteEventRepository) getMany(ctx context.Context, query string, args ...interface{}) ([]GameEvent, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []GameEvent
	for rows.Next() {
		var e GameEvent
		var payloadStr string
		err := rows.Scan(
			&e.ID, &e.RoomID, &e.Seq, &e.Timestamp, &e.EventType, &e.ActorID,
			&e.Puzzle, &e.Outcome, &payloadStr,
		)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(payloadStr), &e.Payload); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func (r *SQLiteEventRepository) GetByRoomID(ctx context.Context, roomID string) ([]GameEvent, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE room_id = ? ORDER BY seq ASC`
	return r.getMany(ctx, query, roomID)
}

func (r *SQLiteEventRepository) GetByPuzzle(ctx context.Context, roomID, puzzle string) ([]GameEvent, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE room_id = ? AND puzzle = ? ORDER BY seq ASC`
	return r.getMany(ctx, query, roomID, puzzle)
}

func (r *SQLiteEventRepository) GetByEventType(ctx context.Context, roomID string, eventType string) ([]GameEvent, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE room_id = ? AND event_type = ? ORDER BY seq ASC`
	return r.getMany(ctx, query, roomID, eventType)
}

func (r *SQLiteEventRepository) GetSince(ctx context.Context, roomID string, seq int64) ([]GameEvent, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE room_id = ? AND seq > ? ORDER BY seq ASC`
	return r.getMany(ctx, query, roomID, seq)
}

func (r *SQLiteEventRepository) MaxSeq(ctx context.Context, roomID string) (int64, error) {
	var seq sql.NullInt64
	err := r.db.QueryRowContext(ctx, `SELECT MAX(seq) FROM events WHERE room_id = ?`, roomID).Scan(&seq)
	if err != nil {
		return 0, err
	}
	return seq.Int64, nil
}

// ---------------------------------------------------------
// SQLiteProgressRepository
// ---------------------------------------------------------

type SQLiteProgressRepository struct {
	db *sql.DB
}

func NewSQLiteProgressRepository(db *sql.DB) *SQLiteProgressRepository {
	return &SQLiteProgressRepository{db: db}
}

const upsertProgress = `
	INSERT INTO puzzle_progress (room_id, puzzle, solved, attempts, failures, best_solve_ms, solved_at, last_updated)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(room_id, puzzle) DO UPDATE SET
		solved=excluded.solved,
		attempts=excluded.attempts,
		failures=excluded.failures,
		best_solve_ms=excluded.best_solve_ms,
		solved_at=excluded.solved_at,
		last_updated=excluded.last_updated
`

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func upsert(ctx context.Context, db execer, p PuzzleProgress) error {
	var solvedAt interface{}
	if p.SolvedAt != nil {
		solvedAt = p.SolvedAt.UTC()
	}
	_, err := db.ExecContext(ctx, upsertProgress,
		p.RoomID, p.Puzzle, p.Solved, p.Attempts, p.Failures, p.BestSolveMs, solvedAt, time.Now().UTC(),
	)
	return err
}

func (r *SQLiteProgressRepository) Upsert(ctx context.Context, progress PuzzleProgress) error {
	return upsert(ctx, r.db, progress)
}

const progressColumns = `room_id, puzzle, solved, attempts, failures, best_solve_ms, solved_at, last_updated`

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanProgress(s scanner) (PuzzleProgress, error) {
	var p PuzzleProgress
	var solvedAt sql.NullTime
	err := s.Scan(&p.RoomID, &p.Puzzle, &p.Solved, &p.Attempts, &p.Failures, &p.BestSolveMs, &solvedAt, &p.LastUpdated)
	if solvedAt.Valid {
		t := solvedAt.Time
		p.SolvedAt = &t
	}
	return p, err
}

func (r *SQLiteProgressRepository) Get(ctx context.Context, roomID, puzzle string) (*PuzzleProgress, error) {
	query := `SELECT ` + progressColumns + ` FROM puzzle_progress WHERE room_id = ? AND puzzle = ?`
	p, err := scanProgress(r.db.QueryRowContext(ctx, query, roomID, puzzle))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func (r *SQLiteProgressRepository) GetByRoomID(ctx context.Context, roomID string) ([]PuzzleProgress, error) {
	query := `SELECT ` + progressColumns + ` FROM puzzle_progress WHERE room_id = ? ORDER BY puzzle ASC`
	rows, err := r.db.QueryContext(ctx, query, roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PuzzleProgress
	for rows.Next() {
		p, err := scanProgress(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *SQLiteProgressRepository) RebuildFromEvents(ctx context.Context, roomID string, events []GameEvent) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM puzzle_progress WHERE room_id = ?`, roomID); err != nil {
		return err
	}
	for _, p := range Project(roomID, events) {
		if err := upsert(ctx, tx, p); err != nil {
			return fmt.Errorf("rebuild %s: %w", p.Puzzle, err)
		}
	}
	return tx.Commit()
}
