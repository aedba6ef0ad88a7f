// Package profstore persists profiler runs in SQLite so method activity can
// be compared across sessions.
package profstore

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/chazu/garnet/vm"
	"github.com/google/uuid"
	"github.com/tliron/commonlog"
	_ "modernc.org/sqlite"
)

var log = commonlog.GetLogger("garnet.profstore")

// ErrRunNotFound indicates the requested run doesn't exist.
var ErrRunNotFound = errors.New("run not found")

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id       TEXT PRIMARY KEY,
	program  TEXT NOT NULL,
	started  INTEGER NOT NULL,
	elapsed  INTEGER NOT NULL,
	error    TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS method_stats (
	run_id   TEXT NOT NULL,
	method   TEXT NOT NULL,
	calls    INTEGER NOT NULL,
	blocks   INTEGER NOT NULL,
	returns  INTEGER NOT NULL,
	breaks   INTEGER NOT NULL,
	raises   INTEGER NOT NULL,
	hot      INTEGER NOT NULL,
	PRIMARY KEY (run_id, method)
);
CREATE INDEX IF NOT EXISTS runs_program ON runs(program, started);
`

// Run is one profiled program execution.
type Run struct {
	ID      uuid.UUID
	Program string
	Started time.Time
	Elapsed time.Duration
	Error   string // FormatError of the failure, "" on success
	Stats   []vm.MethodStat
}

// Store handles SQLite storage for profiler runs.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// Open opens or creates the database at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating tables: %w", err)
	}
	log.Debugf("opened profile store %s", path)
	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Capture builds a Run from a finished VM session.
func Capture(machine *vm.VM, program string, started time.Time, runErr error) Run {
	run := Run{
		ID:      machine.ID,
		Program: program,
		Started: started,
		Elapsed: time.Since(started),
		Stats:   machine.Profiler().Snapshot(),
	}
	if runErr != nil {
		run.Error = vm.FormatError(runErr)
	}
	return run
}

// Save persists a run and its method stats, replacing any earlier run with
// the same ID. Stats sharing a label, as a redefined method's do, are
// summed.
func (s *Store) Save(run Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("saving run: %w", err)
	}
	defer tx.Rollback()

	id := run.ID.String()
	if err := deleteRun(tx, id); err != nil {
		return fmt.Errorf("saving run: %w", err)
	}
	_, err = tx.Exec(
		"INSERT INTO runs (id, program, started, elapsed, error) VALUES (?, ?, ?, ?, ?)",
		id, run.Program, run.Started.UnixNano(), int64(run.Elapsed), run.Error,
	)
	if err != nil {
		return fmt.Errorf("saving run: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO method_stats
		(run_id, method, calls, blocks, returns, breaks, raises, hot)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (run_id, method) DO UPDATE SET
			calls = calls + excluded.calls,
			blocks = blocks + excluded.blocks,
			returns = returns + excluded.returns,
			breaks = breaks + excluded.breaks,
			raises = raises + excluded.raises,
			hot = MAX(hot, excluded.hot)`)
	if err != nil {
		return fmt.Errorf("saving method stats: %w", err)
	}
	defer stmt.Close()
	for _, st := range run.Stats {
		if _, err := stmt.Exec(id, st.Method, int64(st.Calls), int64(st.Blocks),
			int64(st.Returns), int64(st.Breaks), int64(st.Raises), st.Hot); err != nil {
			return fmt.Errorf("saving stats for %s: %w", st.Method, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("saving run: %w", err)
	}
	log.Infof("saved run %s of %s (%d methods)", id, run.Program, len(run.Stats))
	return nil
}

// Load retrieves a run with its stats, busiest method first.
func (s *Store) Load(id uuid.UUID) (*Run, error) {
	var (
		run     Run
		started int64
		elapsed int64
	)
	err := s.db.QueryRow(
		"SELECT program, started, elapsed, error FROM runs WHERE id = ?", id.String(),
	).Scan(&run.Program, &started, &elapsed, &run.Error)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRunNotFound
		}
		return nil, fmt.Errorf("querying run: %w", err)
	}
	run.ID = id
	run.Started = time.Unix(0, started)
	run.Elapsed = time.Duration(elapsed)

	rows, err := s.db.Query(`SELECT method, calls, blocks, returns, breaks, raises, hot
		FROM method_stats WHERE run_id = ? ORDER BY calls DESC, method`, id.String())
	if err != nil {
		return nil, fmt.Errorf("querying method stats: %w", err)
	}
	run.Stats, err = scanStats(rows)
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// Runs lists the runs of program, newest first, without their stats. An
// empty program lists every run.
func (s *Store) Runs(program string) ([]Run, error) {
	query := "SELECT id, program, started, elapsed, error FROM runs"
	var args []any
	if program != "" {
		query += " WHERE program = ?"
		args = append(args, program)
	}
	query += " ORDER BY started DESC"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var (
			run              Run
			id               string
			started, elapsed int64
		)
		if err := rows.Scan(&id, &run.Program, &started, &elapsed, &run.Error); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		if run.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("run id %q: %w", id, err)
		}
		run.Started = time.Unix(0, started)
		run.Elapsed = time.Duration(elapsed)
		out = append(out, run)
	}
	return out, rows.Err()
}

// Hottest sums method stats across every stored run and returns the n
// most called methods. A method is hot if it was hot in any run.
func (s *Store) Hottest(n int) ([]vm.MethodStat, error) {
	rows, err := s.db.Query(`SELECT method, SUM(calls), SUM(blocks), SUM(returns),
		SUM(breaks), SUM(raises), MAX(hot)
		FROM method_stats GROUP BY method ORDER BY SUM(calls) DESC, method LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("querying hottest methods: %w", err)
	}
	return scanStats(rows)
}

// Delete removes a run and its stats.
func (s *Store) Delete(id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("deleting run: %w", err)
	}
	defer tx.Rollback()
	var n int
	if err := tx.QueryRow("SELECT COUNT(*) FROM runs WHERE id = ?", id.String()).Scan(&n); err != nil {
		return fmt.Errorf("deleting run: %w", err)
	}
	if n == 0 {
		return ErrRunNotFound
	}
	if err := deleteRun(tx, id.String()); err != nil {
		return fmt.Errorf("deleting run: %w", err)
	}
	return tx.Commit()
}

func deleteRun(tx *sql.Tx, id string) error {
	if _, err := tx.Exec("DELETE FROM method_stats WHERE run_id = ?", id); err != nil {
		return err
	}
	_, err := tx.Exec("DELETE FROM runs WHERE id = ?", id)
	return err
}

func scanStats(rows *sql.Rows) ([]vm.MethodStat, error) {
	defer rows.Close()
	var out []vm.MethodStat
	for rows.Next() {
		var (
			st                                     vm.MethodStat
			calls, blocks, returns, breaks, raises int64
		)
		if err := rows.Scan(&st.Method, &calls, &blocks, &returns, &breaks, &raises, &st.Hot); err != nil {
			return nil, fmt.Errorf("scanning method stats: %w", err)
		}
		st.Calls = uint64(calls)
		st.Blocks = uint64(blocks)
		st.Returns = uint64(returns)
		st.Breaks = uint64(breaks)
		st.Raises = uint64(raises)
		out = append(out, st)
	}
	return out, rows.Err()
}
