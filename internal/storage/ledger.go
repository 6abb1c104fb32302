package storage

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Card status values
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// Run is one planner invocation
type Run struct {
	ID         string
	THDM       string
	Mode       string
	Method     string
	Era        string
	Output     string
	StartedAt  time.Time
	FinishedAt *time.Time
}

// Card is a combined datacard the planner tried to produce
type Card struct {
	RunID     string
	Level     string
	Path      string
	MassPoint string
	Channels  int
	Status    string // 'ok' | 'failed'
	Error     string
	CreatedAt time.Time
}

// Skip records a mass point left out of one combination level
type Skip struct {
	RunID     string
	Level     string
	MassPoint string
	Reason    string
	CreatedAt time.Time
}

// Ledger records what every run produced, skipped and failed
type Ledger struct {
	db *DB
}

// NewLedger creates a ledger on top of db
func NewLedger(db *DB) *Ledger {
	return &Ledger{db: db}
}

// StartRun inserts a new run and returns its ID
func (l *Ledger) StartRun(run *Run) (string, error) {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}

	_, err := l.db.Exec(`
		INSERT INTO runs (run_id, thdm, mode, method, era, output, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		run.ID,
		run.THDM,
		run.Mode,
		run.Method,
		run.Era,
		run.Output,
		run.StartedAt.Format(time.RFC3339),
	)
	if err != nil {
		return "", fmt.Errorf("failed to start run: %w", err)
	}
	return run.ID, nil
}

// FinishRun stamps the run as finished
func (l *Ledger) FinishRun(runID string) error {
	result, err := l.db.Exec(`UPDATE runs SET finished_at = ? WHERE run_id = ?`,
		time.Now().Format(time.RFC3339), runID)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("run not found: %s", runID)
	}
	return nil
}

// RecordCard inserts a card row
func (l *Ledger) RecordCard(card *Card) error {
	if card.CreatedAt.IsZero() {
		card.CreatedAt = time.Now()
	}

	var errText *string
	if card.Error != "" {
		errText = &card.Error
	}

	_, err := l.db.Exec(`
		INSERT INTO cards (run_id, level, path, mass_point, channels, status, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		card.RunID,
		card.Level,
		card.Path,
		card.MassPoint,
		card.Channels,
		card.Status,
		errText,
		card.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to record card: %w", err)
	}
	return nil
}

// RecordSkip inserts a skip row
func (l *Ledger) RecordSkip(skip *Skip) error {
	if skip.CreatedAt.IsZero() {
		skip.CreatedAt = time.Now()
	}

	_, err := l.db.Exec(`
		INSERT INTO skips (run_id, level, mass_point, reason, created_at)
		VALUES (?, ?, ?, ?, ?)
	`,
		skip.RunID,
		skip.Level,
		skip.MassPoint,
		skip.Reason,
		skip.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to record skip: %w", err)
	}
	return nil
}

// ListCards returns the cards of a run in insertion order
func (l *Ledger) ListCards(runID string) ([]*Card, error) {
	rows, err := l.db.Query(`
		SELECT run_id, level, path, mass_point, channels, status, error, created_at
		FROM cards
		WHERE run_id = ?
		ORDER BY id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list cards: %w", err)
	}
	defer rows.Close()

	var cards []*Card
	for rows.Next() {
		var card Card
		var errText sql.NullString
		var createdAt string

		if err := rows.Scan(
			&card.RunID,
			&card.Level,
			&card.Path,
			&card.MassPoint,
			&card.Channels,
			&card.Status,
			&errText,
			&createdAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan card: %w", err)
		}

		card.Error = errText.String
		card.CreatedAt, err = time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, fmt.Errorf("invalid created_at format: %w", err)
		}
		cards = append(cards, &card)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cards: %w", err)
	}
	return cards, nil
}

// ListSkips returns the skips of a run in insertion order
func (l *Ledger) ListSkips(runID string) ([]*Skip, error) {
	rows, err := l.db.Query(`
		SELECT run_id, level, mass_point, reason, created_at
		FROM skips
		WHERE run_id = ?
		ORDER BY id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list skips: %w", err)
	}
	defer rows.Close()

	var skips []*Skip
	for rows.Next() {
		var skip Skip
		var createdAt string

		if err := rows.Scan(&skip.RunID, &skip.Level, &skip.MassPoint, &skip.Reason, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan skip: %w", err)
		}
		skip.CreatedAt, err = time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, fmt.Errorf("invalid created_at format: %w", err)
		}
		skips = append(skips, &skip)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating skips: %w", err)
	}
	return skips, nil
}

// LatestRun returns the most recently started run, or nil if there is none
func (l *Ledger) LatestRun() (*Run, error) {
	var run Run
	var startedAt string
	var finishedAt sql.NullString

	err := l.db.QueryRow(`
		SELECT run_id, thdm, mode, method, era, output, started_at, finished_at
		FROM runs
		ORDER BY started_at DESC, rowid DESC
		LIMIT 1
	`).Scan(
		&run.ID,
		&run.THDM,
		&run.Mode,
		&run.Method,
		&run.Era,
		&run.Output,
		&startedAt,
		&finishedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest run: %w", err)
	}

	run.StartedAt, err = time.Parse(time.RFC3339, startedAt)
	if err != nil {
		return nil, fmt.Errorf("invalid started_at format: %w", err)
	}
	if finishedAt.Valid {
		t, err := time.Parse(time.RFC3339, finishedAt.String)
		if err != nil {
			return nil, fmt.Errorf("invalid finished_at format: %w", err)
		}
		run.FinishedAt = &t
	}

	return &run, nil
}
