package storepostgres

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

var (
	ErrInsertFailed = fmt.Errorf("insert failed")
	ErrUpdateFailed = fmt.Errorf("update failed")
	ErrSelectFailed = fmt.Errorf("select failed")
	ErrScanFailed   = fmt.Errorf("scan failed")
)

// Config holds the self hosted database connection setup.
type Config struct {
	ConnStr      string `yaml:"conn_str"`      // connection string without the database name
	DatabaseName string `yaml:"database_name"` // database name
}

// DataBase provides direct database access to user and transaction rows.
// It implements the same store behaviour as the REST store client and is
// used for self hosted deployments.
type DataBase struct {
	inner *sql.DB
}

// Connect creates a new connection to the database.
func Connect(_ context.Context, cfg Config) (*DataBase, error) {
	db, err := sql.Open("postgres", fmt.Sprintf("%s/%s?sslmode=disable", cfg.ConnStr, cfg.DatabaseName))
	if err != nil {
		return nil, err
	}

	return &DataBase{inner: db}, nil
}

// Disconnect closes the connection to the database.
func (db DataBase) Disconnect(_ context.Context) error {
	return db.inner.Close()
}

// Ping checks if the connection to the database is still alive.
func (db DataBase) Ping(ctx context.Context) error {
	return db.inner.PingContext(ctx)
}
