// Package repository persists normalized invoices in PostgreSQL or SQLite.
package repository

import (
	"fmt"

	"github.com/huandu/go-sqlbuilder"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"invoicescan/internal/config"
)

// NewDB opens a connection pool for the configured driver.
func NewDB(cfg *config.DBConfig) (*sqlx.DB, error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		db, err := sqlx.Connect("sqlite", cfg.DSN())
		if err != nil {
			return nil, fmt.Errorf("connecting to sqlite: %w", err)
		}
		// SQLite has a single writer; one connection avoids SQLITE_BUSY between pool members.
		db.SetMaxOpenConns(1)
		return db, nil
	default:
		db, err := sqlx.Connect("pgx", cfg.DSN())
		if err != nil {
			return nil, fmt.Errorf("connecting to postgres: %w", err)
		}
		db.SetMaxOpenConns(cfg.MaxOpen)
		db.SetMaxIdleConns(cfg.MaxIdle)
		return db, nil
	}
}

// Flavor returns the SQL dialect used to build statements for driver.
func Flavor(driver string) sqlbuilder.Flavor {
	if driver == config.DriverSQLite {
		return sqlbuilder.SQLite
	}
	return sqlbuilder.PostgreSQL
}
