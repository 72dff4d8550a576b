package playbook

import (
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/XiaoConstantine/ace-go/pkg/errors"
)

// SQLiteStore persists snapshots in a SQLite database. Section membership
// order is kept through an explicit position column.
type SQLiteStore struct {
	db *sql.DB
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS bullets (
	id         TEXT PRIMARY KEY,
	section    TEXT NOT NULL,
	content    TEXT NOT NULL,
	helpful    INTEGER NOT NULL DEFAULT 0,
	harmful    INTEGER NOT NULL DEFAULT 0,
	neutral    INTEGER NOT NULL DEFAULT 0,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL,
	position   INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_bullets_section ON bullets(section, position);

CREATE TABLE IF NOT EXISTS meta (
	key   TEXT PRIMARY KEY,
	value INTEGER NOT NULL
);
`

// NewSQLiteStore opens (creating if needed) a snapshot database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.WithFields(
			errors.Wrap(err, errors.StorageFailed, "failed to open snapshot database"),
			errors.Fields{"path": path})
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, errors.StorageFailed, "failed to create snapshot schema")
	}

	return &SQLiteStore{db: db}, nil
}

// Load reads the snapshot, or returns nil when nothing has been saved yet.
func (s *SQLiteStore) Load() (*Snapshot, error) {
	var nextID int
	err := s.db.QueryRow(`SELECT value FROM meta WHERE key = 'next_id'`).Scan(&nextID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.StorageFailed, "failed to read snapshot meta")
	}

	rows, err := s.db.Query(`
		SELECT id, section, content, helpful, harmful, neutral, created_at, updated_at
		FROM bullets ORDER BY section, position`)
	if err != nil {
		return nil, errors.Wrap(err, errors.StorageFailed, "failed to read bullets")
	}
	defer rows.Close()

	snap := &Snapshot{
		Bullets:  make(map[string]Bullet),
		Sections: make(map[string][]string),
		NextID:   nextID,
	}

	for rows.Next() {
		var b Bullet
		var createdAt, updatedAt string
		if err := rows.Scan(&b.ID, &b.Section, &b.Content, &b.Helpful, &b.Harmful, &b.Neutral, &createdAt, &updatedAt); err != nil {
			return nil, errors.Wrap(err, errors.StorageFailed, "failed to scan bullet")
		}
		if b.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return nil, errors.Wrap(err, errors.StorageFailed, "failed to parse bullet timestamp")
		}
		if b.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
			return nil, errors.Wrap(err, errors.StorageFailed, "failed to parse bullet timestamp")
		}

		snap.Bullets[b.ID] = b
		snap.Sections[b.Section] = append(snap.Sections[b.Section], b.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.StorageFailed, "failed to iterate bullets")
	}

	return snap, nil
}

// Save replaces the persisted snapshot in one transaction.
func (s *SQLiteStore) Save(snap Snapshot) error {
	tx, err := s.db.Begin()
	if err != nil {
		return errors.Wrap(err, errors.StorageFailed, "failed to begin snapshot transaction")
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM bullets`); err != nil {
		return errors.Wrap(err, errors.StorageFailed, "failed to clear bullets")
	}

	stmt, err := tx.Prepare(`
		INSERT INTO bullets (id, section, content, helpful, harmful, neutral, created_at, updated_at, position)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return errors.Wrap(err, errors.StorageFailed, "failed to prepare bullet insert")
	}
	defer stmt.Close()

	for section, ids := range snap.Sections {
		for pos, id := range ids {
			b, ok := snap.Bullets[id]
			if !ok {
				continue
			}
			_, err := stmt.Exec(b.ID, section, b.Content, b.Helpful, b.Harmful, b.Neutral,
				b.CreatedAt.Format(time.RFC3339Nano), b.UpdatedAt.Format(time.RFC3339Nano), pos)
			if err != nil {
				return errors.WithFields(
					errors.Wrap(err, errors.StorageFailed, "failed to insert bullet"),
					errors.Fields{"id": b.ID})
			}
		}
	}

	if _, err := tx.Exec(`INSERT INTO meta (key, value) VALUES ('next_id', ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, snap.NextID); err != nil {
		return errors.Wrap(err, errors.StorageFailed, "failed to write snapshot meta")
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, errors.StorageFailed, "failed to commit snapshot")
	}
	return nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
