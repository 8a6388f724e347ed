package database

import (
	"database/sql"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"

	"github.com/noah-isme/alumnos-api/pkg/config"
)

// sqliteDriverName is go-sqlite3 with lower() replaced by a Unicode-aware version.
// The built-in only folds ASCII, which breaks case-insensitive search on accented names.
const sqliteDriverName = "sqlite3_unicode"

func init() {
	sql.Register(sqliteDriverName, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			return conn.RegisterFunc("lower", unicodeLower, true)
		},
	})
}

func unicodeLower(v interface{}) interface{} {
	switch s := v.(type) {
	case string:
		return strings.ToLower(s)
	case []byte:
		if s == nil {
			return nil
		}
		return strings.ToLower(string(s))
	default:
		return v
	}
}

// NewSQLite opens an embedded SQLite database at path (":memory:" is allowed).
// The handle reports the "sqlite3" driver name so bind vars and migrations resolve as usual.
func NewSQLite(path string) (*sqlx.DB, error) {
	raw, err := sql.Open(sqliteDriverName, path)
	if err != nil {
		return nil, err
	}
	db := sqlx.NewDb(raw, config.DriverSQLite)

	// SQLite serialises writers; a single connection also keeps ":memory:" databases alive.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}
