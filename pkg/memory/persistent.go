package memory

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	// Drivers registered for the Driver field below. SQLite is the local/dev
	// default; Postgres is wired for production deployments, matching the
	// teacher's go.mod (mattn/go-sqlite3, lib/pq) rather than introducing a
	// new dependency.
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/orchestr8/taskflow/internal/errs"
)

// Driver selects the SQL backend for the persistent memory log.
type Driver string

const (
	DriverSQLite   Driver = "sqlite3"
	DriverPostgres Driver = "postgres"
)

// PersistentStore is Tier 3: an append-only durable message log keyed by
// message hash, guaranteeing idempotent inserts, indexed lookup by task_id,
// agent_id, and reverse-chronological range, and survival across restarts.
//
// Schema (per the external interface contract):
//
//	(hash PRIMARY KEY, role, content, timestamp, agent_id?, task_id?, metadata JSON)
//	indexes on task_id, agent_id, timestamp DESC
type PersistentStore struct {
	db     *sql.DB
	driver Driver
}

// Open opens (and migrates) the persistent memory log at dsn using driver.
func Open(driver Driver, dsn string) (*PersistentStore, error) {
	db, err := sql.Open(string(driver), dsn)
	if err != nil {
		return nil, errs.New("memory.PersistentStore", "Open", errs.KindMemoryIO, "failed to open database", err)
	}
	if err := db.Ping(); err != nil {
		return nil, errs.New("memory.PersistentStore", "Open", errs.KindMemoryIO, "failed to connect to database", err)
	}

	store := &PersistentStore{db: db, driver: driver}
	if err := store.migrate(); err != nil {
		return nil, err
	}
	return store, nil
}

func (p *PersistentStore) migrate() error {
	schema := `
CREATE TABLE IF NOT EXISTS messages (
	hash       TEXT PRIMARY KEY,
	role       TEXT NOT NULL,
	content    TEXT NOT NULL,
	timestamp  TIMESTAMP NOT NULL,
	agent_id   TEXT,
	task_id    TEXT,
	metadata   TEXT
);
CREATE INDEX IF NOT EXISTS idx_messages_task_id ON messages(task_id);
CREATE INDEX IF NOT EXISTS idx_messages_agent_id ON messages(agent_id);
CREATE INDEX IF NOT EXISTS idx_messages_timestamp ON messages(timestamp DESC);
`
	if _, err := p.db.Exec(schema); err != nil {
		return errs.New("memory.PersistentStore", "migrate", errs.KindMemoryIO, "failed to create schema", err)
	}
	return nil
}

// Insert appends msg to the log. A duplicate hash is a no-op (idempotent).
func (p *PersistentStore) Insert(msg Message) error {
	metaJSON, err := json.Marshal(msg.Metadata)
	if err != nil {
		return errs.New("memory.PersistentStore", "Insert", errs.KindMemoryIO, "failed to marshal metadata", err)
	}

	query := p.insertQuery()
	_, err = p.db.Exec(query,
		msg.Hash(), string(msg.Role), msg.Content, msg.Timestamp,
		nullable(msg.AgentID), nullable(msg.TaskID), string(metaJSON))
	if err != nil {
		return errs.New("memory.PersistentStore", "Insert", errs.KindMemoryIO, "failed to insert message", err)
	}
	return nil
}

func (p *PersistentStore) insertQuery() string {
	switch p.driver {
	case DriverPostgres:
		return `INSERT INTO messages (hash, role, content, timestamp, agent_id, task_id, metadata)
			VALUES ($1, $2, $3, $4, $5, $6, $7) ON CONFLICT (hash) DO NOTHING`
	default:
		return `INSERT OR IGNORE INTO messages (hash, role, content, timestamp, agent_id, task_id, metadata)
			VALUES (?, ?, ?, ?, ?, ?, ?)`
	}
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// ByTaskID returns all messages recorded for taskID, oldest first.
func (p *PersistentStore) ByTaskID(taskID string) ([]Message, error) {
	return p.queryWhere("task_id = "+p.placeholder(1), taskID)
}

// ByAgentID returns all messages recorded for agentID, oldest first.
func (p *PersistentStore) ByAgentID(agentID string) ([]Message, error) {
	return p.queryWhere("agent_id = "+p.placeholder(1), agentID)
}

// Recent returns the limit most recent messages, newest first.
func (p *PersistentStore) Recent(limit int) ([]Message, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := p.db.Query(`SELECT role, content, timestamp, agent_id, task_id, metadata
		FROM messages ORDER BY timestamp DESC LIMIT `+p.placeholder(1), limit)
	if err != nil {
		return nil, errs.New("memory.PersistentStore", "Recent", errs.KindMemoryIO, "query failed", err)
	}
	defer rows.Close()
	return scanMessages(rows)
}

func (p *PersistentStore) placeholder(n int) string {
	if p.driver == DriverPostgres {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

func (p *PersistentStore) queryWhere(where string, arg string) ([]Message, error) {
	rows, err := p.db.Query(`SELECT role, content, timestamp, agent_id, task_id, metadata
		FROM messages WHERE `+where+` ORDER BY timestamp ASC`, arg)
	if err != nil {
		return nil, errs.New("memory.PersistentStore", "queryWhere", errs.KindMemoryIO, "query failed", err)
	}
	defer rows.Close()
	return scanMessages(rows)
}

func scanMessages(rows *sql.Rows) ([]Message, error) {
	var out []Message
	for rows.Next() {
		var (
			role, content, metaJSON string
			timestamp               time.Time
			agentID, taskID         sql.NullString
		)
		if err := rows.Scan(&role, &content, &timestamp, &agentID, &taskID, &metaJSON); err != nil {
			return nil, errs.New("memory.PersistentStore", "scanMessages", errs.KindMemoryIO, "scan failed", err)
		}
		var meta map[string]string
		_ = json.Unmarshal([]byte(metaJSON), &meta)
		out = append(out, Message{
			Role:      Role(role),
			Content:   content,
			Timestamp: timestamp,
			AgentID:   agentID.String,
			TaskID:    taskID.String,
			Metadata:  meta,
		})
	}
	return out, rows.Err()
}

// Close closes the underlying database handle.
func (p *PersistentStore) Close() error {
	return p.db.Close()
}
