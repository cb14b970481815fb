package repository

import (
	"database/sql"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"github.com/uptrace/bun/extra/bundebug"
)

// OpenOption configures OpenSQLite
type OpenOption func(*openOptions)

type openOptions struct {
	debug   bool
	verbose bool
}

// WithQueryDebug logs failed queries, or every query with verbose.
func WithQueryDebug(verbose bool) OpenOption {
	return func(o *openOptions) {
		o.debug = true
		o.verbose = verbose
	}
}

// OpenSQLite opens dsn through sqliteshim, with foreign keys enforced.
func OpenSQLite(dsn string, opts ...OpenOption) (*bun.DB, error) {
	o := &openOptions{}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}

	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "open sqlite")
	}
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	if o.debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(o.verbose)))
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON;"); err != nil {
		db.Close()
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "enable foreign keys")
	}
	return db, nil
}
