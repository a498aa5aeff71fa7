package db

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

type Options struct {
	Driver       string // postgres or sqlite
	DSN          string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
}

// Open connects to the configured database without pinging it.
func Open(opts Options) (*bun.DB, error) {
	switch opts.Driver {
	case "postgres":
		sqldb, err := sql.Open("postgres", opts.DSN)
		if err != nil {
			return nil, err
		}
		if opts.MaxOpenConns > 0 {
			sqldb.SetMaxOpenConns(opts.MaxOpenConns)
		}
		if opts.MaxIdleConns > 0 {
			sqldb.SetMaxIdleConns(opts.MaxIdleConns)
		}
		if opts.MaxLifetime > 0 {
			sqldb.SetConnMaxLifetime(opts.MaxLifetime)
		}
		return bun.NewDB(sqldb, pgdialect.New()), nil
	case "sqlite":
		sqldb, err := sql.Open(sqliteshim.ShimName, opts.DSN)
		if err != nil {
			return nil, err
		}
		// SQLite has a single writer; one connection also keeps a
		// :memory: database alive for the life of the process.
		sqldb.SetMaxOpenConns(1)
		return bun.NewDB(sqldb, sqlitedialect.New()), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", opts.Driver)
	}
}
