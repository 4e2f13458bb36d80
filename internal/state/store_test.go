package state

import (
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	_ "modernc.org/sqlite"
)

func tempDB(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := NewStore(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleRun() RunRecord {
	return RunRecord{
		Inputs:    map[string]float64{"gravity": 9.8, "d": 50, "theta": 45, "time": 10},
		Outputs:   map[string]float64{"gravity": 9.8, "d": 50, "theta": 45, "time": 10, "vi": 7.0710678, "yi": 0},
		Known:     []string{"gravity", "yi", "vi", "d", "theta", "time"},
		Passes:    2,
		Converged: true,
	}
}

func TestSaveAndGetRun(t *testing.T) {
	s := tempDB(t)

	saved, err := s.SaveRun(sampleRun())
	if err != nil {
		t.Fatalf("SaveRun: %v", err)
	}
	if saved.SolveID == "" {
		t.Fatal("expected generated solve ID")
	}
	if saved.CreatedAt.IsZero() {
		t.Fatal("expected CreatedAt to be set")
	}

	got, err := s.GetRun(saved.SolveID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if got.SolveID != saved.SolveID {
		t.Fatalf("expected %s, got %s", saved.SolveID, got.SolveID)
	}
	if got.ParentID != "" {
		t.Fatalf("expected empty parent, got %s", got.ParentID)
	}
	if got.Inputs["d"] != 50 {
		t.Fatalf("expected d=50, got %f", got.Inputs["d"])
	}
	if got.Outputs["vi"] != 7.0710678 {
		t.Fatalf("expected vi=7.0710678, got %f", got.Outputs["vi"])
	}
	if len(got.Known) != 6 {
		t.Fatalf("expected 6 known fields, got %d", len(got.Known))
	}
	if got.Passes != 2 || !got.Converged {
		t.Fatalf("unexpected passes/converged: %d/%v", got.Passes, got.Converged)
	}
}

func TestSaveRunWithParent(t *testing.T) {
	s := tempDB(t)

	parent, err := s.SaveRun(sampleRun())
	if err != nil {
		t.Fatalf("SaveRun parent: %v", err)
	}

	child := sampleRun()
	child.ParentID = parent.SolveID
	child.CreatedAt = parent.CreatedAt.Add(time.Second)
	child, err = s.SaveRun(child)
	if err != nil {
		t.Fatalf("SaveRun child: %v", err)
	}

	got, err := s.GetRun(child.SolveID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if got.ParentID != parent.SolveID {
		t.Fatalf("expected parent %s, got %s", parent.SolveID, got.ParentID)
	}

	latest, err := s.LatestRun()
	if err != nil {
		t.Fatalf("LatestRun: %v", err)
	}
	if latest.SolveID != child.SolveID {
		t.Fatalf("expected latest %s, got %s", child.SolveID, latest.SolveID)
	}
}

func TestSaveRunNilMaps(t *testing.T) {
	s := tempDB(t)

	saved, err := s.SaveRun(RunRecord{})
	if err != nil {
		t.Fatalf("SaveRun: %v", err)
	}
	got, err := s.GetRun(saved.SolveID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if len(got.Inputs) != 0 || len(got.Outputs) != 0 || len(got.Known) != 0 {
		t.Fatalf("expected empty record, got %+v", got)
	}
}

func TestListRuns(t *testing.T) {
	s := tempDB(t)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		rec := sampleRun()
		rec.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		if _, err := s.SaveRun(rec); err != nil {
			t.Fatalf("SaveRun %d: %v", i, err)
		}
	}

	runs, err := s.ListRuns(10)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("expected 3 runs, got %d", len(runs))
	}
	if !runs[0].CreatedAt.After(runs[2].CreatedAt) {
		t.Fatal("expected newest first")
	}

	limited, err := s.ListRuns(2)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(limited) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(limited))
	}
}

func TestGetRunNotFound(t *testing.T) {
	s := tempDB(t)

	if _, err := s.GetRun("nonexistent-id"); err == nil {
		t.Fatal("expected error for nonexistent run")
	}
}

func TestLatestRunEmpty(t *testing.T) {
	s := tempDB(t)

	if _, err := s.LatestRun(); err == nil {
		t.Fatal("expected error on empty journal")
	}
}

func TestNewStoreInvalidPath(t *testing.T) {
	_, err := NewStore(filepath.Join(string(os.PathSeparator), "nonexistent", "deep", "path", "test.db"))
	if err == nil {
		t.Fatal("expected error for invalid path")
	}
}

func TestNewStore_CorruptDB(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "corrupt.db")
	os.WriteFile(dbPath, []byte("not a sqlite database"), 0644)

	if _, err := NewStore(dbPath); err == nil {
		t.Fatal("expected error for corrupted DB file")
	}
}

func TestDBAccessor(t *testing.T) {
	s := tempDB(t)
	if s.DB() == nil {
		t.Fatal("expected non-nil *sql.DB")
	}
}

// corruptDB opens an in-memory SQLite with the full schema so tests can drop
// tables or insert bad rows.
func corruptDB(t *testing.T) (*Store, *sql.DB) {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open in-memory db: %v", err)
	}
	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("create schema: %v", err)
	}
	s := &Store{db: db}
	t.Cleanup(func() { db.Close() })
	return s, db
}

func TestSaveRun_InsertFails(t *testing.T) {
	s, db := corruptDB(t)
	db.Exec("DROP TABLE deduction_log")
	db.Exec("DROP TABLE solve_runs")

	if _, err := s.SaveRun(sampleRun()); err == nil {
		t.Fatal("expected error when solve_runs table is missing")
	}
}

func TestGetRun_BadInputsJSON(t *testing.T) {
	s, db := corruptDB(t)
	now := time.Now().UTC().Format(time.RFC3339Nano)
	db.Exec(
		`INSERT INTO solve_runs (solve_id, parent_id, inputs_json, outputs_json, known_json, passes, converged, created_at)
		 VALUES (?, NULL, ?, '{}', '[]', 1, 1, ?)`, "bad-json", "not-json", now,
	)

	if _, err := s.GetRun("bad-json"); err == nil {
		t.Fatal("expected unmarshal error for bad inputs JSON")
	}
}

func TestListRuns_BadKnownJSON(t *testing.T) {
	s, db := corruptDB(t)
	now := time.Now().UTC().Format(time.RFC3339Nano)
	db.Exec(
		`INSERT INTO solve_runs (solve_id, parent_id, inputs_json, outputs_json, known_json, passes, converged, created_at)
		 VALUES (?, NULL, '{}', '{}', ?, 1, 1, ?)`, "bad-list", "%%%bad-json", now,
	)

	if _, err := s.ListRuns(10); err == nil {
		t.Fatal("expected unmarshal error for bad known JSON in ListRuns")
	}
}

func TestRecordRoundTripThroughQuantities(t *testing.T) {
	q := New(
		[]float64{9.8, 0, 0, 0, 0, 50, 45, 10},
		[]bool{true, false, false, false, false, true, true, true},
	)
	in := InputsFromQuantities(q)
	if len(in) != 4 {
		t.Fatalf("expected 4 inputs, got %d", len(in))
	}
	if d := in["theta"] - 45; d > 1e-9 || d < -1e-9 {
		t.Fatalf("expected theta in degrees, got %f", in["theta"])
	}

	back, err := QuantitiesFromRecord(in)
	if err != nil {
		t.Fatalf("QuantitiesFromRecord: %v", err)
	}
	if back.Len() != 4 {
		t.Fatalf("expected 4 known fields, got %d", back.Len())
	}

	if _, err := QuantitiesFromRecord(map[string]float64{"mass": 1}); err == nil {
		t.Fatal("expected error for unknown quantity name")
	}
}

func TestQuantitiesFromRecord_RejectsAliases(t *testing.T) {
	_, err := QuantitiesFromRecord(map[string]float64{"g": 9.8, "gravity": 1})
	if !errors.Is(err, ErrDuplicateField) {
		t.Fatalf("expected ErrDuplicateField, got %v", err)
	}
	if !strings.Contains(err.Error(), "gravity") {
		t.Fatalf("expected error to name gravity, got %v", err)
	}
}
