package state

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS solve_runs (
	solve_id      TEXT PRIMARY KEY,
	parent_id     TEXT,
	inputs_json   TEXT NOT NULL,
	outputs_json  TEXT NOT NULL,
	known_json    TEXT NOT NULL,
	passes        INTEGER NOT NULL,
	converged     INTEGER NOT NULL,
	created_at    TEXT NOT NULL,
	FOREIGN KEY (parent_id) REFERENCES solve_runs(solve_id)
);

CREATE TABLE IF NOT EXISTS deduction_log (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	solve_id      TEXT NOT NULL,
	pass          INTEGER NOT NULL,
	rule_id       INTEGER NOT NULL,
	rule_name     TEXT NOT NULL,
	field         TEXT NOT NULL,
	value         REAL NOT NULL,
	created_at    TEXT NOT NULL,
	FOREIGN KEY (solve_id) REFERENCES solve_runs(solve_id)
);
`

// TimeLayout is the fixed-width timestamp format stored in created_at columns,
// so that text ordering matches time ordering.
const TimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// #endregion schema

// #region store-struct
// Store journals solve runs in SQLite.
type Store struct {
	db *sql.DB
}

// #endregion store-struct

// #region constructor
// NewStore opens a SQLite database and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// #endregion constructor

// #region close
// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// #endregion close

// #region db-accessor
// DB returns the underlying *sql.DB for use by other packages (e.g. logging).
func (s *Store) DB() *sql.DB {
	return s.db
}

// #endregion db-accessor

// #region save-run
// SaveRun inserts a run. An empty SolveID gets a fresh UUID and a zero CreatedAt
// gets the current time; the stored record is returned.
func (s *Store) SaveRun(rec RunRecord) (RunRecord, error) {
	if rec.SolveID == "" {
		rec.SolveID = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	inJSON, err := json.Marshal(nonNilMap(rec.Inputs))
	if err != nil {
		return RunRecord{}, fmt.Errorf("marshal inputs: %w", err)
	}
	outJSON, err := json.Marshal(nonNilMap(rec.Outputs))
	if err != nil {
		return RunRecord{}, fmt.Errorf("marshal outputs: %w", err)
	}
	known := rec.Known
	if known == nil {
		known = []string{}
	}
	knownJSON, err := json.Marshal(known)
	if err != nil {
		return RunRecord{}, fmt.Errorf("marshal known: %w", err)
	}

	var parentPtr interface{}
	if rec.ParentID != "" {
		parentPtr = rec.ParentID
	}

	_, err = s.db.Exec(
		`INSERT INTO solve_runs (solve_id, parent_id, inputs_json, outputs_json, known_json, passes, converged, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.SolveID, parentPtr, string(inJSON), string(outJSON), string(knownJSON),
		rec.Passes, boolToInt(rec.Converged), rec.CreatedAt.UTC().Format(TimeLayout),
	)
	if err != nil {
		return RunRecord{}, fmt.Errorf("insert run: %w", err)
	}
	return rec, nil
}

// #endregion save-run

// #region get-run
// GetRun retrieves a run by ID.
func (s *Store) GetRun(id string) (RunRecord, error) {
	row := s.db.QueryRow(
		`SELECT solve_id, parent_id, inputs_json, outputs_json, known_json, passes, converged, created_at
		 FROM solve_runs WHERE solve_id = ?`, id,
	)
	rec, err := scanRun(row)
	if err != nil {
		return RunRecord{}, fmt.Errorf("get run %s: %w", id, err)
	}
	return rec, nil
}

// LatestRun returns the most recently created run.
func (s *Store) LatestRun() (RunRecord, error) {
	row := s.db.QueryRow(
		`SELECT solve_id, parent_id, inputs_json, outputs_json, known_json, passes, converged, created_at
		 FROM solve_runs ORDER BY created_at DESC LIMIT 1`,
	)
	rec, err := scanRun(row)
	if err != nil {
		return RunRecord{}, fmt.Errorf("latest run: %w", err)
	}
	return rec, nil
}

// #endregion get-run

// #region list-runs
// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(limit int) ([]RunRecord, error) {
	rows, err := s.db.Query(
		`SELECT solve_id, parent_id, inputs_json, outputs_json, known_json, passes, converged, created_at
		 FROM solve_runs ORDER BY created_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var records []RunRecord
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// #endregion list-runs

// #region scan
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(r rowScanner) (RunRecord, error) {
	var rec RunRecord
	var parentID sql.NullString
	var inJSON, outJSON, knownJSON, createdStr string
	var converged int

	if err := r.Scan(&rec.SolveID, &parentID, &inJSON, &outJSON, &knownJSON, &rec.Passes, &converged, &createdStr); err != nil {
		return RunRecord{}, fmt.Errorf("scan run: %w", err)
	}
	if parentID.Valid {
		rec.ParentID = parentID.String
	}
	if err := json.Unmarshal([]byte(inJSON), &rec.Inputs); err != nil {
		return RunRecord{}, fmt.Errorf("unmarshal inputs: %w", err)
	}
	if err := json.Unmarshal([]byte(outJSON), &rec.Outputs); err != nil {
		return RunRecord{}, fmt.Errorf("unmarshal outputs: %w", err)
	}
	if err := json.Unmarshal([]byte(knownJSON), &rec.Known); err != nil {
		return RunRecord{}, fmt.Errorf("unmarshal known: %w", err)
	}
	rec.Converged = converged != 0
	rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
	return rec, nil
}

// #endregion scan

// #region helpers
func nonNilMap(m map[string]float64) map[string]float64 {
	if m == nil {
		return map[string]float64{}
	}
	return m
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// #endregion helpers

// #region record-helpers
// InputsFromQuantities converts a set to the journal's name-keyed external form.
func InputsFromQuantities(q Quantities) map[string]float64 {
	out := make(map[string]float64, q.Len())
	for f, v := range q.External() {
		out[f.String()] = v
	}
	return out
}

// QuantitiesFromRecord rebuilds a validated set from a journaled name-keyed map.
func QuantitiesFromRecord(m map[string]float64, opts ...Option) (Quantities, error) {
	in, err := ParseFields(m)
	if err != nil {
		return Quantities{}, err
	}
	return FromMap(in, opts...), nil
}

// #endregion record-helpers
