package record

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Store persists recorded trajectories in SQLite.
type Store struct {
	db *sql.DB
}

// RunInfo summarises one stored run.
type RunInfo struct {
	ID             string    `json:"id"`
	Model          string    `json:"model"`
	Dim            int       `json:"dim"`
	Subcommunities int       `json:"subcommunities"`
	Frames         int       `json:"frames"`
	CreatedAt      time.Time `json:"created_at"`
}

// Open opens (creating if necessary) a store at the given path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set pragmas: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return store, nil
}

// migrate creates the schema if it doesn't exist.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		model TEXT NOT NULL DEFAULT '',
		dim INTEGER NOT NULL,
		subcommunities INTEGER NOT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS frames (
		run_id TEXT NOT NULL,
		frame INTEGER NOT NULL,
		t REAL NOT NULL,
		data TEXT NOT NULL,
		PRIMARY KEY (run_id, frame),
		FOREIGN KEY (run_id) REFERENCES runs(id)
	);

	CREATE INDEX IF NOT EXISTS idx_frames_run ON frames(run_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveRun writes a trajectory and its metadata in one transaction.
func (s *Store) SaveRun(tr *Trajectory, model string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		"INSERT INTO runs (id, model, dim, subcommunities) VALUES (?, ?, ?, ?)",
		tr.RunID, model, tr.Dim, tr.Subcommunities,
	)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", tr.RunID, err)
	}

	stmt, err := tx.Prepare("INSERT INTO frames (run_id, frame, t, data) VALUES (?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("prepare frames: %w", err)
	}
	defer stmt.Close()

	for i, t := range tr.Times {
		blob, err := json.Marshal(tr.Frame(i))
		if err != nil {
			return fmt.Errorf("encode frame %d: %w", i, err)
		}
		if _, err := stmt.Exec(tr.RunID, i, t, string(blob)); err != nil {
			return fmt.Errorf("insert frame %d: %w", i, err)
		}
	}

	return tx.Commit()
}

// LoadRun reads a trajectory back by run ID.
func (s *Store) LoadRun(id string) (*Trajectory, error) {
	var dim, subs int
	err := s.db.QueryRow("SELECT dim, subcommunities FROM runs WHERE id = ?", id).Scan(&dim, &subs)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("load run %s: %w", id, err)
	}

	tr := NewTrajectory(dim, subs)
	tr.RunID = id

	rows, err := s.db.Query("SELECT t, data FROM frames WHERE run_id = ? ORDER BY frame", id)
	if err != nil {
		return nil, fmt.Errorf("load frames for %s: %w", id, err)
	}
	defer rows.Close()

	for rows.Next() {
		var t float64
		var blob string
		if err := rows.Scan(&t, &blob); err != nil {
			return nil, fmt.Errorf("scan frame: %w", err)
		}
		var frame [][]float64
		if err := json.Unmarshal([]byte(blob), &frame); err != nil {
			return nil, fmt.Errorf("decode frame: %w", err)
		}
		if err := tr.Append(t, frame); err != nil {
			return nil, fmt.Errorf("append frame: %w", err)
		}
	}
	return tr, rows.Err()
}

// ListRuns returns metadata for every stored run, newest first.
func (s *Store) ListRuns() ([]RunInfo, error) {
	rows, err := s.db.Query(`
		SELECT r.id, r.model, r.dim, r.subcommunities, r.created_at,
		       (SELECT COUNT(*) FROM frames f WHERE f.run_id = r.id)
		FROM runs r ORDER BY r.created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var infos []RunInfo
	for rows.Next() {
		var info RunInfo
		if err := rows.Scan(&info.ID, &info.Model, &info.Dim, &info.Subcommunities, &info.CreatedAt, &info.Frames); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		infos = append(infos, info)
	}
	return infos, rows.Err()
}
