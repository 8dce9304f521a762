// Package ledger records render runs in a SQLite database: one row per run
// with its outcome and a roaring bitmap of completed job indexes, plus one
// row per job with its leaf path and status. The ledger is what makes a
// cancelled run's partial output safe to inspect and finish later.
package ledger

import (
	"bytes"
	"database/sql"
	"fmt"
	"time"

	"github.com/RoaringBitmap/roaring"
	_ "modernc.org/sqlite"

	"github.com/spritemill/spritemill/internal/walk"
)

// Run outcomes.
const (
	OutcomeRunning   = "running"
	OutcomeCompleted = "completed"
	OutcomeCancelled = "cancelled"
	OutcomeFailed    = "failed"
)

// Ledger wraps the run database.
type Ledger struct {
	db *sql.DB
}

// Open opens (or creates) a ledger database at the given path.
func Open(path string) (*Ledger, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open ledger %s: %w", path, err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set journal mode: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		started INTEGER NOT NULL,
		finished INTEGER,
		settings TEXT,
		outcome TEXT NOT NULL DEFAULT 'running',
		completed BLOB
	);
	CREATE TABLE IF NOT EXISTS jobs (
		run_id INTEGER NOT NULL,
		idx INTEGER NOT NULL,
		path TEXT NOT NULL,
		tuple TEXT NOT NULL,
		status TEXT NOT NULL,
		PRIMARY KEY (run_id, idx)
	) WITHOUT ROWID;
	`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create ledger schema: %w", err)
	}
	return &Ledger{db: db}, nil
}

// Close closes the underlying database.
func (l *Ledger) Close() error { return l.db.Close() }

// Run is an open run record accumulating job rows in a batched transaction.
type Run struct {
	l         *Ledger
	ID        int64
	tx        *sql.Tx
	stmt      *sql.Stmt
	completed *roaring.Bitmap
	count     int
	batchSize int
}

// BeginRun inserts a new run row and opens the job batch.
func (l *Ledger) BeginRun(settings string) (*Run, error) {
	res, err := l.db.Exec(
		"INSERT INTO runs (started, settings, outcome) VALUES (?, ?, ?)",
		time.Now().UnixNano(), settings, OutcomeRunning,
	)
	if err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	r := &Run{l: l, ID: id, completed: roaring.New(), batchSize: 256}
	if err := r.beginTx(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Run) beginTx() error {
	tx, err := r.l.db.Begin()
	if err != nil {
		return err
	}
	stmt, err := tx.Prepare("INSERT OR REPLACE INTO jobs (run_id, idx, path, tuple, status) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	r.tx, r.stmt = tx, stmt
	return nil
}

func (r *Run) commitTx() error {
	if r.stmt != nil {
		_ = r.stmt.Close()
	}
	return r.tx.Commit()
}

// RecordJob writes one job row. Jobs with a completed status are added to
// the run's completed bitmap.
func (r *Run) RecordJob(job *walk.Job, status string) error {
	if _, err := r.stmt.Exec(r.ID, job.Index, job.RelPath, job.Tuple(), status); err != nil {
		return fmt.Errorf("record job %d: %w", job.Index, err)
	}
	if status == OutcomeCompleted {
		r.completed.Add(uint32(job.Index))
	}
	r.count++
	if r.count >= r.batchSize {
		if err := r.commitTx(); err != nil {
			return err
		}
		r.count = 0
		return r.beginTx()
	}
	return nil
}

// Completed returns the bitmap of job indexes recorded as completed so far.
func (r *Run) Completed() *roaring.Bitmap { return r.completed }

// Finish commits outstanding job rows and stamps the run with its outcome
// and the serialized completed bitmap.
func (r *Run) Finish(outcome string) error {
	if err := r.commitTx(); err != nil {
		return fmt.Errorf("commit jobs: %w", err)
	}
	var buf bytes.Buffer
	if _, err := r.completed.WriteTo(&buf); err != nil {
		return fmt.Errorf("serialize completed bitmap: %w", err)
	}
	_, err := r.l.db.Exec(
		"UPDATE runs SET finished = ?, outcome = ?, completed = ? WHERE id = ?",
		time.Now().UnixNano(), outcome, buf.Bytes(), r.ID,
	)
	if err != nil {
		return fmt.Errorf("finish run %d: %w", r.ID, err)
	}
	return nil
}

// RunInfo is a finished run's summary.
type RunInfo struct {
	ID        int64
	Outcome   string
	Settings  string
	Completed *roaring.Bitmap
}

// LastRun returns the most recent run, or sql.ErrNoRows when the ledger is
// empty.
func (l *Ledger) LastRun() (*RunInfo, error) {
	row := l.db.QueryRow("SELECT id, outcome, settings, completed FROM runs ORDER BY id DESC LIMIT 1")
	info := &RunInfo{Completed: roaring.New()}
	var blob []byte
	if err := row.Scan(&info.ID, &info.Outcome, &info.Settings, &blob); err != nil {
		return nil, err
	}
	if len(blob) > 0 {
		if _, err := info.Completed.ReadFrom(bytes.NewReader(blob)); err != nil {
			return nil, fmt.Errorf("parse completed bitmap: %w", err)
		}
	}
	return info, nil
}

// JobRecord is one persisted job row.
type JobRecord struct {
	Index  int
	Path   string
	Tuple  string
	Status string
}

// Jobs returns a run's job rows in plan order.
func (l *Ledger) Jobs(runID int64) ([]JobRecord, error) {
	rows, err := l.db.Query("SELECT idx, path, tuple, status FROM jobs WHERE run_id = ? ORDER BY idx", runID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []JobRecord
	for rows.Next() {
		var rec JobRecord
		if err := rows.Scan(&rec.Index, &rec.Path, &rec.Tuple, &rec.Status); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
