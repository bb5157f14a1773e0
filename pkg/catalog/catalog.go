// Package catalog records generated samples in a SQLite database so class
// balance can be inspected after a run.
package catalog

import (
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"github.com/dentalai/dentalsynth/pkg/dataset"
)

// ClassCount is the number of annotations of one class in one split.
type ClassCount struct {
	Split string `json:"split"`
	Class string `json:"class"`
	Count int    `json:"count"`
}

// Catalog wraps the SQLite connection with thread-safe access.
type Catalog struct {
	db *sql.DB
	mu sync.RWMutex
}

// Open creates or opens the catalog at dbPath.
func Open(dbPath string) (*Catalog, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	c := &Catalog{db: db}
	if err := c.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return c, nil
}

func (c *Catalog) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS samples (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE,
		split TEXT NOT NULL,
		idx INTEGER NOT NULL,
		image_path TEXT NOT NULL,
		label_path TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS annotations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		sample_id INTEGER NOT NULL,
		class_index INTEGER NOT NULL,
		class_name TEXT NOT NULL,
		cx REAL NOT NULL,
		cy REAL NOT NULL,
		w REAL NOT NULL,
		h REAL NOT NULL,
		FOREIGN KEY (sample_id) REFERENCES samples(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_samples_split ON samples(split);
	CREATE INDEX IF NOT EXISTS idx_annotations_sample_id ON annotations(sample_id);
	CREATE INDEX IF NOT EXISTS idx_annotations_class ON annotations(class_name);
	`
	_, err := c.db.Exec(schema)
	return err
}

// Record stores a sample and its annotations, replacing an earlier sample of the same name.
func (c *Catalog) Record(s dataset.Sample) error {
	if len(s.Classes) != len(s.Annotations) {
		return fmt.Errorf("sample has %d classes but %d annotations", len(s.Classes), len(s.Annotations))
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	tx, err := c.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	name := dataset.SampleName(s.Split, s.Index)
	if _, err := tx.Exec(`
		DELETE FROM annotations WHERE sample_id IN (SELECT id FROM samples WHERE name = ?)
	`, name); err != nil {
		return fmt.Errorf("failed to clear annotations: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM samples WHERE name = ?`, name); err != nil {
		return fmt.Errorf("failed to clear sample: %w", err)
	}

	result, err := tx.Exec(`
		INSERT INTO samples (name, split, idx, image_path, label_path)
		VALUES (?, ?, ?, ?, ?)
	`, name, s.Split, s.Index, s.ImagePath, s.LabelPath)
	if err != nil {
		return fmt.Errorf("failed to insert sample: %w", err)
	}
	sampleID, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	for i, a := range s.Annotations {
		_, err := tx.Exec(`
			INSERT INTO annotations (sample_id, class_index, class_name, cx, cy, w, h)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, sampleID, a.Class, s.Classes[i].String(), a.Box.CX, a.Box.CY, a.Box.W, a.Box.H)
		if err != nil {
			return fmt.Errorf("failed to insert annotation: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Prune removes samples whose index is at or beyond the count written for
// their split, so a rerun with fewer samples leaves no leftovers. It returns
// the number of samples removed.
func (c *Catalog) Prune(counts map[string]int) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	tx, err := c.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var removed int64
	for split, n := range counts {
		if _, err := tx.Exec(`
			DELETE FROM annotations WHERE sample_id IN (SELECT id FROM samples WHERE split = ? AND idx >= ?)
		`, split, n); err != nil {
			return 0, fmt.Errorf("failed to prune annotations: %w", err)
		}
		result, err := tx.Exec(`DELETE FROM samples WHERE split = ? AND idx >= ?`, split, n)
		if err != nil {
			return 0, fmt.Errorf("failed to prune samples: %w", err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("failed to count pruned samples: %w", err)
		}
		removed += affected
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return removed, nil
}

// SampleCounts returns the number of samples per split.
func (c *Catalog) SampleCounts() (map[string]int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	rows, err := c.db.Query(`SELECT split, COUNT(*) FROM samples GROUP BY split`)
	if err != nil {
		return nil, fmt.Errorf("failed to count samples: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var split string
		var n int
		if err := rows.Scan(&split, &n); err != nil {
			return nil, fmt.Errorf("failed to scan count: %w", err)
		}
		counts[split] = n
	}
	return counts, rows.Err()
}

// ClassDistribution returns annotation counts per split and class, ordered by
// split and then by class index.
func (c *Catalog) ClassDistribution() ([]ClassCount, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	rows, err := c.db.Query(`
		SELECT s.split, a.class_name, COUNT(*)
		FROM annotations a
		JOIN samples s ON s.id = a.sample_id
		GROUP BY s.split, a.class_index, a.class_name
		ORDER BY s.split DESC, a.class_index
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query class distribution: %w", err)
	}
	defer rows.Close()

	var out []ClassCount
	for rows.Next() {
		var cc ClassCount
		if err := rows.Scan(&cc.Split, &cc.Class, &cc.Count); err != nil {
			return nil, fmt.Errorf("failed to scan class count: %w", err)
		}
		out = append(out, cc)
	}
	return out, rows.Err()
}

// Close closes the database connection.
func (c *Catalog) Close() error {
	return c.db.Close()
}
