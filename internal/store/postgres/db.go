package postgres

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq" // PostgreSQL driver
)

// DB wraps the database connection.
type DB struct {
	*sql.DB
}

// NewDB opens a connection using a lib/pq connection string, e.g.
// "host=localhost port=5432 user=postgres dbname=portfolio sslmode=disable".
func NewDB(connectionString string) (*DB, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &DB{DB: db}, nil
}

func (db *DB) Close() error {
	return db.DB.Close()
}
