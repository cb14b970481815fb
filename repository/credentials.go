package repository

import (
	"context"
	"database/sql"
	"errors"

	goerrors "github.com/goliatone/go-errors"
	repobun "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"

	auth "github.com/goliatone/go-wedding-auth"
)

// ErrLegacyAccount is returned when a legacy account is written to the
// store. Legacy identities only come from auth.LegacyCredentials.
var ErrLegacyAccount = goerrors.New("legacy accounts cannot be stored", goerrors.CategoryBadInput).
	WithTextCode("LEGACY_ACCOUNT")

// Credentials implements auth.CredentialStore using Bun.
type Credentials struct {
	accounts repobun.Repository[*AccountModel]
	db       bun.IDB
}

var _ auth.CredentialStore = (*Credentials)(nil)

// NewCredentials creates a new repository.
func NewCredentials(db bun.IDB) *Credentials {
	return &Credentials{
		accounts: repobun.NewRepository[*AccountModel](db, accountHandlers()),
		db:       db,
	}
}

// accounts are keyed by username, so the UUID handlers are inert.
func accountHandlers() repobun.ModelHandlers[*AccountModel] {
	return repobun.ModelHandlers[*AccountModel]{
		NewRecord:     func() *AccountModel { return &AccountModel{} },
		GetID:         func(*AccountModel) uuid.UUID { return uuid.Nil },
		SetID:         func(*AccountModel, uuid.UUID) {},
		GetIdentifier: func() string { return "username" },
	}
}

// FindByUsername loads the account and the weddings it holds a role on.
// Rows typed legacy are reported as not found.
func (r *Credentials) FindByUsername(ctx context.Context, username string) (*auth.AccountRecord, error) {
	model, err := r.accounts.Get(ctx, repobun.SelectBy("username", "=", username))
	if err != nil {
		if repobun.IsRecordNotFound(err) {
			return nil, auth.ErrAccountNotFound
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "select account")
	}
	if model.UserType == auth.UserTypeLegacy || model.UserType == "" {
		return nil, auth.ErrAccountNotFound
	}

	var weddingIDs []string
	err = r.db.NewSelect().
		Model((*WeddingRoleModel)(nil)).
		Column("wedding_id").
		Where("username = ?", username).
		OrderExpr("created_at ASC, wedding_id ASC").
		Scan(ctx, &weddingIDs)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "select wedding roles")
	}

	return &auth.AccountRecord{
		Username:         model.Username,
		PasswordHash:     model.PasswordHash,
		IsMaster:         model.IsMaster,
		UserType:         model.UserType,
		AdminUserType:    model.AdminUserType,
		WeddingIDs:       weddingIDs,
		PrimaryWeddingID: model.PrimaryWeddingID,
	}, nil
}

// VerifyPassword compares plaintext with the stored bcrypt hash.
func (r *Credentials) VerifyPassword(record *auth.AccountRecord, plaintext string) bool {
	if record == nil {
		return false
	}
	return auth.PasswordMatches(plaintext, record.PasswordHash)
}

// Create hashes password and inserts the account. Wedding IDs on the
// record become roles: staff for staff accounts, owner for the primary
// wedding and co-owner for the rest. An empty user type is stored as
// wedding; legacy accounts are rejected with ErrLegacyAccount.
func (r *Credentials) Create(ctx context.Context, record auth.AccountRecord, password string) error {
	if record.UserType == "" {
		record.UserType = auth.UserTypeWedding
	}
	if record.UserType == auth.UserTypeLegacy {
		return ErrLegacyAccount
	}
	if _, err := record.Claims().Identity(); err != nil {
		return err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}

	model := &AccountModel{
		Username:         record.Username,
		PasswordHash:     hash,
		IsMaster:         record.IsMaster,
		UserType:         record.UserType,
		AdminUserType:    record.AdminUserType,
		PrimaryWeddingID: record.PrimaryWeddingID,
	}

	return runInTx(ctx, r.db, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(model).Exec(ctx); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "insert account")
		}

		for _, weddingID := range record.Claims().WeddingIDs {
			role := RoleCoOwner
			switch {
			case record.AdminUserType == auth.AdminUserTypeStaff:
				role = RoleStaff
			case weddingID == record.PrimaryWeddingID:
				role = RoleOwner
			}
			if err := grant(ctx, tx, record.Username, weddingID, role); err != nil {
				return err
			}
		}
		return nil
	})
}

// Grant gives username a role on weddingID. Granting again replaces the role.
func (r *Credentials) Grant(ctx context.Context, username, weddingID string, role WeddingRole) error {
	return grant(ctx, r.db, username, weddingID, role)
}

// Revoke removes any role username holds on weddingID.
func (r *Credentials) Revoke(ctx context.Context, username, weddingID string) error {
	_, err := r.db.NewDelete().
		Model((*WeddingRoleModel)(nil)).
		Where("username = ? AND wedding_id = ?", username, weddingID).
		Exec(ctx)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "delete wedding role")
	}
	return nil
}

func grant(ctx context.Context, db bun.IDB, username, weddingID string, role WeddingRole) error {
	_, err := db.NewInsert().
		Model(&WeddingRoleModel{Username: username, WeddingID: weddingID, Role: role}).
		On("CONFLICT (username, wedding_id) DO UPDATE").
		Set("role = EXCLUDED.role").
		Exec(ctx)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "insert wedding role")
	}
	return nil
}

func runInTx(ctx context.Context, db bun.IDB, f func(ctx context.Context, tx bun.Tx) error) error {
	if tx, ok := db.(bun.Tx); ok {
		return f(ctx, tx)
	}
	return db.RunInTx(ctx, nil, f)
}
