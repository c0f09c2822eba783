package store

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/dchernopolskiy/Flare-sub001/internal/model"
)

// SQLiteStore is the durable persistence layer: the authoritative job
// snapshot, per-source first-seen tracking, board configs, and the
// starred/applied id sets.
type SQLiteStore struct {
	db *sql.DB
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS jobs (
		id                 TEXT PRIMARY KEY,
		title              TEXT NOT NULL,
		location           TEXT,
		url                TEXT,
		description        TEXT,
		work_site          TEXT,
		source             TEXT NOT NULL,
		company            TEXT,
		department         TEXT,
		posted_at          INTEGER,
		original_posted_at INTEGER,
		first_seen         INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS tracked_jobs (
		source     TEXT NOT NULL,
		job_id     TEXT NOT NULL,
		first_seen INTEGER NOT NULL,
		PRIMARY KEY (source, job_id)
	)`,
	`CREATE TABLE IF NOT EXISTS boards (
		url               TEXT PRIMARY KEY,
		name              TEXT NOT NULL,
		source            TEXT NOT NULL,
		enabled           INTEGER NOT NULL,
		last_fetched      INTEGER,
		detected_ats_type TEXT,
		detected_ats_url  TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS starred_jobs (job_id TEXT PRIMARY KEY)`,
	`CREATE TABLE IF NOT EXISTS applied_jobs (job_id TEXT PRIMARY KEY)`,
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and ensures
// all tables exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// Verify the connection is alive.
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging sqlite db: %w", err)
	}

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("creating schema: %w", err)
		}
	}

	return &SQLiteStore{db: db}, nil
}

// LoadJobs returns the persisted job snapshot.
func (s *SQLiteStore) LoadJobs() ([]model.Job, error) {
	rows, err := s.db.Query(`SELECT id, title, location, url, description, work_site,
		source, company, department, posted_at, original_posted_at, first_seen FROM jobs`)
	if err != nil {
		return nil, fmt.Errorf("loading jobs: %w", err)
	}
	defer rows.Close()

	var jobs []model.Job
	for rows.Next() {
		var j model.Job
		var source string
		var postedAt, originalAt sql.NullInt64
		var firstSeen int64
		if err := rows.Scan(&j.ID, &j.Title, &j.Location, &j.URL, &j.Description, &j.WorkSite,
			&source, &j.Company, &j.Department, &postedAt, &originalAt, &firstSeen); err != nil {
			return nil, fmt.Errorf("scanning job row: %w", err)
		}
		j.Source = model.Source(source)
		j.PostedAt = fromUnix(postedAt)
		j.OriginalPostedAt = fromUnix(originalAt)
		j.FirstSeen = time.Unix(firstSeen, 0).UTC()
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

// SaveJobs replaces the persisted snapshot with jobs.
func (s *SQLiteStore) SaveJobs(jobs []model.Job) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("saving jobs: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM jobs"); err != nil {
		return fmt.Errorf("clearing jobs: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO jobs (id, title, location, url, description, work_site,
		source, company, department, posted_at, original_posted_at, first_seen)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing job insert: %w", err)
	}
	defer stmt.Close()

	for _, j := range jobs {
		_, err := stmt.Exec(j.ID, j.Title, j.Location, j.URL, j.Description, j.WorkSite,
			string(j.Source), j.Company, j.Department, toUnix(j.PostedAt), toUnix(j.OriginalPostedAt),
			j.FirstSeen.Unix())
		if err != nil {
			return fmt.Errorf("inserting job %s: %w", j.ID, err)
		}
	}

	return tx.Commit()
}

// LoadTracking returns first-seen timestamps per job id for one source.
func (s *SQLiteStore) LoadTracking(source string) (map[string]time.Time, error) {
	rows, err := s.db.Query("SELECT job_id, first_seen FROM tracked_jobs WHERE source = ?", source)
	if err != nil {
		return nil, fmt.Errorf("loading tracking for %s: %w", source, err)
	}
	defer rows.Close()

	tracking := make(map[string]time.Time)
	for rows.Next() {
		var id string
		var firstSeen int64
		if err := rows.Scan(&id, &firstSeen); err != nil {
			return nil, fmt.Errorf("scanning tracking row: %w", err)
		}
		tracking[id] = time.Unix(firstSeen, 0).UTC()
	}
	return tracking, rows.Err()
}

// SaveTracking upserts first-seen entries for jobs, preserving existing
// timestamps, then prunes entries older than retention.
func (s *SQLiteStore) SaveTracking(jobs []model.Job, source string, now time.Time, retention time.Duration) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("saving tracking for %s: %w", source, err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare("INSERT OR IGNORE INTO tracked_jobs (source, job_id, first_seen) VALUES (?, ?, ?)")
	if err != nil {
		return fmt.Errorf("preparing tracking insert: %w", err)
	}
	defer stmt.Close()

	for _, j := range jobs {
		firstSeen := j.FirstSeen
		if firstSeen.IsZero() {
			firstSeen = now
		}
		if _, err := stmt.Exec(source, j.ID, firstSeen.Unix()); err != nil {
			return fmt.Errorf("tracking job %s: %w", j.ID, err)
		}
	}

	cutoff := now.Add(-retention).Unix()
	if _, err := tx.Exec("DELETE FROM tracked_jobs WHERE source = ? AND first_seen < ?", source, cutoff); err != nil {
		return fmt.Errorf("pruning tracking for %s: %w", source, err)
	}

	return tx.Commit()
}

// ClearTracking drops all entries for one source.
func (s *SQLiteStore) ClearTracking(source string) error {
	if _, err := s.db.Exec("DELETE FROM tracked_jobs WHERE source = ?", source); err != nil {
		return fmt.Errorf("clearing tracking for %s: %w", source, err)
	}
	return nil
}

// LoadBoards returns all persisted board configs.
func (s *SQLiteStore) LoadBoards() ([]model.Board, error) {
	rows, err := s.db.Query(`SELECT url, name, source, enabled, last_fetched,
		detected_ats_type, detected_ats_url FROM boards`)
	if err != nil {
		return nil, fmt.Errorf("loading boards: %w", err)
	}
	defer rows.Close()

	var boards []model.Board
	for rows.Next() {
		var b model.Board
		var source, detectedType string
		var enabled int
		var lastFetched sql.NullInt64
		if err := rows.Scan(&b.URL, &b.Name, &source, &enabled, &lastFetched, &detectedType, &b.DetectedATSURL); err != nil {
			return nil, fmt.Errorf("scanning board row: %w", err)
		}
		b.Source = model.Source(source)
		b.Enabled = enabled != 0
		b.LastFetched = fromUnix(lastFetched)
		if detectedType != "" {
			b.DetectedATSType = model.Source(detectedType)
		}
		boards = append(boards, b)
	}
	return boards, rows.Err()
}

// SaveBoards replaces the persisted board list.
func (s *SQLiteStore) SaveBoards(boards []model.Board) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("saving boards: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM boards"); err != nil {
		return fmt.Errorf("clearing boards: %w", err)
	}

	for _, b := range boards {
		enabled := 0
		if b.Enabled {
			enabled = 1
		}
		_, err := tx.Exec(`INSERT INTO boards (url, name, source, enabled, last_fetched,
			detected_ats_type, detected_ats_url) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			b.URL, b.Name, string(b.Source), enabled, toUnix(b.LastFetched),
			string(b.DetectedATSType), b.DetectedATSURL)
		if err != nil {
			return fmt.Errorf("inserting board %s: %w", b.URL, err)
		}
	}

	return tx.Commit()
}

// LoadStarred returns the starred job id set.
func (s *SQLiteStore) LoadStarred() (map[string]bool, error) {
	return s.loadIDSet("starred_jobs")
}

// SaveStarred replaces the starred job id set.
func (s *SQLiteStore) SaveStarred(ids map[string]bool) error {
	return s.saveIDSet("starred_jobs", ids)
}

// LoadApplied returns the applied job id set.
func (s *SQLiteStore) LoadApplied() (map[string]bool, error) {
	return s.loadIDSet("applied_jobs")
}

// SaveApplied replaces the applied job id set.
func (s *SQLiteStore) SaveApplied(ids map[string]bool) error {
	return s.saveIDSet("applied_jobs", ids)
}

func (s *SQLiteStore) loadIDSet(table string) (map[string]bool, error) {
	rows, err := s.db.Query("SELECT job_id FROM " + table)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", table, err)
	}
	defer rows.Close()

	ids := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning %s row: %w", table, err)
		}
		ids[id] = true
	}
	return ids, rows.Err()
}

func (s *SQLiteStore) saveIDSet(table string, ids map[string]bool) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("saving %s: %w", table, err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM " + table); err != nil {
		return fmt.Errorf("clearing %s: %w", table, err)
	}
	for id, ok := range ids {
		if !ok {
			continue
		}
		if _, err := tx.Exec("INSERT INTO "+table+" (job_id) VALUES (?)", id); err != nil {
			return fmt.Errorf("inserting into %s: %w", table, err)
		}
	}
	return tx.Commit()
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func toUnix(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Unix()
}

func fromUnix(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.Unix(v.Int64, 0).UTC()
	return &t
}
