package db

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// MemoryPath keeps the catalog in process memory
const MemoryPath = ":memory:"

// Kind of room activity kept in the catalog
type ActivityKind string

const (
	ActivityJoin   ActivityKind = "join"
	ActivityLeave  ActivityKind = "leave"
	ActivityStroke ActivityKind = "stroke"
	ActivityUndo   ActivityKind = "undo"
	ActivityRedo   ActivityKind = "redo"
	ActivityClear  ActivityKind = "clear"
	ActivityReap   ActivityKind = "reap"
)

// Database is the room catalog: which rooms exist, their names, and counters
// of what happened in them. Drawings themselves are never stored here.
type Database struct {
	db *sql.DB
}

type Room struct {
	ID        string
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func New(dbPath string) (*Database, error) {
	if dbPath != MemoryPath {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	if dbPath == MemoryPath {
		// every pooled connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
	} else if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}

	if err := createTables(db); err != nil {
		db.Close()
		return nil, err
	}

	log.Printf("Room catalog initialized at %s", dbPath)
	return &Database{db: db}, nil
}

func createTables(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS rooms (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS room_activity (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		room_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		session_id TEXT NOT NULL DEFAULT '',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (room_id) REFERENCES rooms(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_room_activity_room_kind ON room_activity(room_id, kind);
	`

	_, err := db.Exec(schema)
	return err
}

func (d *Database) Close() error {
	return d.db.Close()
}

// Room operations

func (d *Database) CreateRoom(id, name string) error {
	_, err := d.db.Exec(
		"INSERT OR IGNORE INTO rooms (id, name) VALUES (?, ?)",
		id, name,
	)
	return err
}

func (d *Database) GetRoom(id string) (*Room, error) {
	row := d.db.QueryRow(
		"SELECT id, name, created_at, updated_at FROM rooms WHERE id = ?",
		id,
	)

	var room Room
	err := row.Scan(&room.ID, &room.Name, &room.CreatedAt, &room.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &room, nil
}

func (d *Database) ListRooms(limit, offset int) ([]Room, error) {
	rows, err := d.db.Query(
		"SELECT id, name, created_at, updated_at FROM rooms ORDER BY updated_at DESC, id ASC LIMIT ? OFFSET ?",
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rooms []Room
	for rows.Next() {
		var room Room
		if err := rows.Scan(&room.ID, &room.Name, &room.CreatedAt, &room.UpdatedAt); err != nil {
			return nil, err
		}
		rooms = append(rooms, room)
	}
	return rooms, rows.Err()
}

func (d *Database) UpdateRoomTimestamp(id string) error {
	_, err := d.db.Exec(
		"UPDATE rooms SET updated_at = CURRENT_TIMESTAMP WHERE id = ?",
		id,
	)
	return err
}

func (d *Database) DeleteRoom(id string) error {
	tx, err := d.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM room_activity WHERE room_id = ?", id); err != nil {
		return err
	}
	if _, err := tx.Exec("DELETE FROM rooms WHERE id = ?", id); err != nil {
		return err
	}
	return tx.Commit()
}

// Activity operations

// RecordActivity appends one event for the room, creating the catalog entry
// on first sight.
func (d *Database) RecordActivity(roomID string, kind ActivityKind, sessionID string) error {
	if err := d.CreateRoom(roomID, ""); err != nil {
		return fmt.Errorf("record %s: %w", kind, err)
	}

	_, err := d.db.Exec(
		"INSERT INTO room_activity (room_id, kind, session_id) VALUES (?, ?, ?)",
		roomID, string(kind), sessionID,
	)
	if err != nil {
		return fmt.Errorf("record %s: %w", kind, err)
	}

	return d.UpdateRoomTimestamp(roomID)
}

// ActivityCounts returns how many events of each kind the room has seen.
func (d *Database) ActivityCounts(roomID string) (map[ActivityKind]int, error) {
	rows, err := d.db.Query(
		"SELECT kind, COUNT(*) FROM room_activity WHERE room_id = ? GROUP BY kind",
		roomID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[ActivityKind]int)
	for rows.Next() {
		var kind string
		var n int
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, err
		}
		counts[ActivityKind(kind)] = n
	}
	return counts, rows.Err()
}

// Stats

func (d *Database) GetStats() (map[string]interface{}, error) {
	stats := make(map[string]interface{})

	var roomCount int
	if err := d.db.QueryRow("SELECT COUNT(*) FROM rooms").Scan(&roomCount); err != nil {
		return nil, err
	}
	stats["room_count"] = roomCount

	var activityCount int
	if err := d.db.QueryRow("SELECT COUNT(*) FROM room_activity").Scan(&activityCount); err != nil {
		return nil, err
	}
	stats["activity_count"] = activityCount

	var strokeCount int
	if err := d.db.QueryRow(
		"SELECT COUNT(*) FROM room_activity WHERE kind = ?", string(ActivityStroke),
	).Scan(&strokeCount); err != nil {
		return nil, err
	}
	stats["strokes_committed"] = strokeCount

	return stats, nil
}
