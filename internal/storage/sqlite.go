package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/faaa888/Memoire-Analyse-Impact-M-A/internal/classifier"
	_ "github.com/mattn/go-sqlite3"
)

// Storage handles all database operations
type Storage struct {
	db *sql.DB
}

// NewStorage creates a new Storage instance, opening/creating the DB and initializing schema
func NewStorage(dbPath string) (*Storage, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_synchronous=NORMAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	storage := &Storage{db: db}

	// Initialize schema
	if err := storage.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return storage, nil
}

// initSchema creates tables and indices if they don't exist
func (s *Storage) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		run_id TEXT PRIMARY KEY,
		started_at TIMESTAMP NOT NULL,
		finished_at TIMESTAMP,
		processed INTEGER DEFAULT 0,
		termination_reason TEXT DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS verdicts (
		company_key TEXT PRIMARY KEY,
		position INTEGER NOT NULL,
		company_name TEXT NOT NULL,
		original_website TEXT NOT NULL,
		final_url TEXT DEFAULT '',
		redirected INTEGER DEFAULT 0,
		domain_changed INTEGER DEFAULT 0,
		indicators TEXT DEFAULT '[]',
		status TEXT NOT NULL,
		confidence REAL DEFAULT 0,
		notes TEXT DEFAULT '',
		acquirer_name TEXT DEFAULT '',
		announcement_link TEXT DEFAULT '',
		run_id TEXT,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (run_id) REFERENCES runs(run_id)
	);

	CREATE INDEX IF NOT EXISTS idx_verdicts_status ON verdicts(status);
	CREATE INDEX IF NOT EXISTS idx_verdicts_position ON verdicts(position);
	`

	_, err := s.db.Exec(schema)
	return err
}

// CreateRun records the start of a run
func (s *Storage) CreateRun(runID string, startedAt time.Time) error {
	_, err := s.db.Exec(`INSERT INTO runs (run_id, started_at) VALUES (?, ?)`, runID, startedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}
	return nil
}

// FinishRun stamps a run with its end time and outcome
func (s *Storage) FinishRun(runID string, finishedAt time.Time, processed int, reason string) error {
	res, err := s.db.Exec(`
		UPDATE runs SET finished_at = ?, processed = ?, termination_reason = ?
		WHERE run_id = ?
	`, finishedAt.UTC(), processed, reason, runID)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("run %s not found", runID)
	}
	return nil
}

// GetRun retrieves a run by id, returns nil if not found
func (s *Storage) GetRun(runID string) (*Run, error) {
	var (
		run      Run
		finished sql.NullTime
	)
	err := s.db.QueryRow(`
		SELECT run_id, started_at, finished_at, processed, termination_reason
		FROM runs
		WHERE run_id = ?
	`, runID).Scan(&run.RunID, &run.StartedAt, &finished, &run.Processed, &run.TerminationReason)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	if finished.Valid {
		run.FinishedAt = &finished.Time
	}

	return &run, nil
}

// UpsertVerdicts writes a batch of verdicts in one transaction. A later
// verdict for the same company replaces the earlier one.
func (s *Storage) UpsertVerdicts(runID string, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO verdicts (
			company_key, position, company_name, original_website, final_url,
			redirected, domain_changed, indicators, status, confidence,
			notes, acquirer_name, announcement_link, run_id, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(company_key) DO UPDATE SET
			position = EXCLUDED.position,
			company_name = EXCLUDED.company_name,
			original_website = EXCLUDED.original_website,
			final_url = EXCLUDED.final_url,
			redirected = EXCLUDED.redirected,
			domain_changed = EXCLUDED.domain_changed,
			indicators = EXCLUDED.indicators,
			status = EXCLUDED.status,
			confidence = EXCLUDED.confidence,
			notes = EXCLUDED.notes,
			acquirer_name = EXCLUDED.acquirer_name,
			announcement_link = EXCLUDED.announcement_link,
			run_id = EXCLUDED.run_id,
			updated_at = CURRENT_TIMESTAMP
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare verdict upsert: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		v := e.Verdict
		indicators, err := json.Marshal(nonNil(v.Indicators))
		if err != nil {
			return fmt.Errorf("failed to encode indicators for %s: %w", e.Key, err)
		}
		_, err = stmt.Exec(
			e.Key, e.Position, v.CompanyName, v.OriginalWebsite, v.FinalURL,
			v.Redirected, v.DomainChanged, string(indicators), string(v.Status), v.Confidence,
			v.Notes, v.AcquirerName, v.AnnouncementLink, runID,
		)
		if err != nil {
			return fmt.Errorf("failed to upsert verdict for %s: %w", e.Key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit verdicts: %w", err)
	}
	return nil
}

// StoredKeys returns the keys of every company with a verdict
func (s *Storage) StoredKeys() (map[string]bool, error) {
	rows, err := s.db.Query(`SELECT company_key FROM verdicts`)
	if err != nil {
		return nil, fmt.Errorf("failed to load verdict keys: %w", err)
	}
	defer rows.Close()

	keys := make(map[string]bool)
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("failed to scan verdict key: %w", err)
		}
		keys[key] = true
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating verdict keys: %w", err)
	}

	return keys, nil
}

// LoadEntries returns every stored verdict in input order
func (s *Storage) LoadEntries() ([]Entry, error) {
	rows, err := s.db.Query(`
		SELECT company_key, position, company_name, original_website, final_url,
			redirected, domain_changed, indicators, status, confidence,
			notes, acquirer_name, announcement_link
		FROM verdicts
		ORDER BY position ASC, updated_at ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to load verdicts: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan verdict: %w", err)
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating verdicts: %w", err)
	}

	return entries, nil
}

// LoadVerdicts returns every stored verdict in input order
func (s *Storage) LoadVerdicts() ([]classifier.Verdict, error) {
	entries, err := s.LoadEntries()
	if err != nil {
		return nil, err
	}
	verdicts := make([]classifier.Verdict, 0, len(entries))
	for _, e := range entries {
		verdicts = append(verdicts, e.Verdict)
	}
	return verdicts, nil
}

// DeleteVerdicts removes all stored verdicts before a fresh run
func (s *Storage) DeleteVerdicts() error {
	if _, err := s.db.Exec(`DELETE FROM verdicts`); err != nil {
		return fmt.Errorf("failed to delete verdicts: %w", err)
	}
	return nil
}

// Close closes the database connection
func (s *Storage) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (Entry, error) {
	var (
		e          Entry
		v          classifier.Verdict
		status     string
		indicators string
	)
	err := row.Scan(
		&e.Key, &e.Position, &v.CompanyName, &v.OriginalWebsite, &v.FinalURL,
		&v.Redirected, &v.DomainChanged, &indicators, &status, &v.Confidence,
		&v.Notes, &v.AcquirerName, &v.AnnouncementLink,
	)
	if err != nil {
		return Entry{}, err
	}

	v.Status = classifier.Status(status)
	if err := json.Unmarshal([]byte(indicators), &v.Indicators); err != nil {
		return Entry{}, fmt.Errorf("failed to decode indicators for %s: %w", e.Key, err)
	}
	if len(v.Indicators) == 0 {
		v.Indicators = nil
	}
	e.Verdict = v
	return e, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
