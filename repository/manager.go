package repository

import (
	"context"
	"database/sql"
	"errors"
	"log"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
)

// Manager groups the repositories sharing one database.
type Manager struct {
	db          *bun.DB
	credentials *Credentials
	weddings    *Weddings
}

func NewRepositoryManager(db *bun.DB) *Manager {
	return &Manager{
		db:          db,
		credentials: NewCredentials(db),
		weddings:    NewWeddings(db),
	}
}

func (m *Manager) Validate() error {
	if m.db == nil {
		return errors.New("repository db should be initialized")
	}

	if m.credentials == nil {
		return errors.New("repository credentials should be initialized")
	}

	if m.weddings == nil {
		return errors.New("repository weddings should be initialized")
	}

	return nil
}

func (m *Manager) MustValidate() {
	if err := m.Validate(); err != nil {
		log.Panic(err)
	}
}

// RunInTx runs f with repositories bound to a single transaction.
func (m *Manager) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, creds *Credentials, weddings *Weddings) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return m.db.RunInTx(ctx, opts, func(ctx context.Context, tx bun.Tx) error {
			return f(ctx, NewCredentials(tx), NewWeddings(tx))
		})
	}
}

func (m *Manager) Credentials() *Credentials {
	return m.credentials
}

func (m *Manager) Weddings() *Weddings {
	return m.weddings
}

// Migrate applies every pending migration embedded in this package.
func (m *Manager) Migrate(ctx context.Context) (*migrate.MigrationGroup, error) {
	return Migrate(ctx, m.db)
}

// Migrate applies every pending migration embedded in this package.
func Migrate(ctx context.Context, db *bun.DB) (*migrate.MigrationGroup, error) {
	migrations := migrate.NewMigrations()
	if err := migrations.Discover(GetMigrationsFS()); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "discover migrations")
	}

	migrator := migrate.NewMigrator(db, migrations)
	if err := migrator.Init(ctx); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "init migrations")
	}

	group, err := migrator.Migrate(ctx)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "run migrations")
	}
	return group, nil
}
