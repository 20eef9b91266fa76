package history

import (
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
	_ "modernc.org/sqlite"             // registers the "sqlite" driver
)

// Dialect holds the driver name and SQL text for one backend.
type Dialect struct {
	Name   string
	Driver string

	tableExists string
	schema      []string
	insert      string
	latest      string
}

// SQLite stores history in a SQLite database file.
var SQLite = Dialect{
	Name:        "sqlite",
	Driver:      "sqlite",
	tableExists: `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'history'`,
	schema:      []string{`
		CREATE TABLE IF NOT EXISTS history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			ref TEXT NOT NULL DEFAULT '',
			keyword TEXT NOT NULL DEFAULT '',
			answer TEXT NOT NULL DEFAULT '',
			refSerialize TEXT NOT NULL DEFAULT '',
			phone TEXT NOT NULL,
			options TEXT NOT NULL DEFAULT '{}',
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_history_phone ON history (phone, id)`,
	},
	insert: `
		INSERT INTO history (ref, keyword, answer, refSerialize, phone, options, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		RETURNING id`,
	latest: `
		SELECT id, ref, keyword, answer, refSerialize, phone, options, created_at
		FROM history
		WHERE phone = ?
		ORDER BY id DESC
		LIMIT 1`,
}

// Postgres stores history in a PostgreSQL database.
var Postgres = Dialect{
	Name:        "postgres",
	Driver:      "pgx",
	tableExists: `SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = current_schema() AND table_name = 'history'`,
	schema:      []string{`
		CREATE TABLE IF NOT EXISTS history (
			id BIGSERIAL PRIMARY KEY,
			ref TEXT NOT NULL DEFAULT '',
			keyword TEXT NOT NULL DEFAULT '',
			answer TEXT NOT NULL DEFAULT '',
			refSerialize TEXT NOT NULL DEFAULT '',
			phone TEXT NOT NULL,
			options TEXT NOT NULL DEFAULT '{}',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_history_phone ON history (phone, id)`,
	},
	insert: `
		INSERT INTO history (ref, keyword, answer, refSerialize, phone, options, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
	latest: `
		SELECT id, ref, keyword, answer, refSerialize, phone, options, created_at
		FROM history
		WHERE phone = $1
		ORDER BY id DESC
		LIMIT 1`,
}

// DialectFor returns the dialect registered under name.
func DialectFor(name string) (Dialect, error) {
	switch strings.ToLower(name) {
	case "", "sqlite", "sqlite3":
		return SQLite, nil
	case "postgres", "postgresql", "pgx":
		return Postgres, nil
	default:
		return Dialect{}, fmt.Errorf("unsupported history dialect %q", name)
	}
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05.999999999 -0700 MST",
}

// parseTime normalizes the created_at column, which drivers hand back either
// as time.Time or as text depending on the declared column type.
func parseTime(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t.UTC(), nil
	case string:
		return parseTimeString(t)
	case []byte:
		return parseTimeString(string(t))
	case nil:
		return time.Time{}, fmt.Errorf("created_at is null")
	default:
		return time.Time{}, fmt.Errorf("unexpected created_at type %T", v)
	}
}

func parseTimeString(s string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable created_at %q", s)
}
