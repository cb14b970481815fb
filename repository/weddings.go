package repository

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	repobun "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"

	auth "github.com/goliatone/go-wedding-auth"
)

// Weddings implements auth.WeddingStore using Bun.
type Weddings struct {
	repobun.Repository[*WeddingModel]
	db bun.IDB
}

var _ auth.WeddingStore = (*Weddings)(nil)

// NewWeddings creates a new repository.
func NewWeddings(db bun.IDB) *Weddings {
	return &Weddings{
		Repository: repobun.NewRepository[*WeddingModel](db, weddingHandlers()),
		db:         db,
	}
}

func weddingHandlers() repobun.ModelHandlers[*WeddingModel] {
	return repobun.ModelHandlers[*WeddingModel]{
		NewRecord: func() *WeddingModel { return &WeddingModel{} },
		GetID: func(m *WeddingModel) uuid.UUID {
			if m == nil {
				return uuid.Nil
			}
			id, _ := uuid.Parse(m.ID)
			return id
		},
		SetID: func(m *WeddingModel, id uuid.UUID) {
			if m != nil {
				m.ID = id.String()
			}
		},
		GetIdentifier: func() string { return "slug" },
	}
}

// GetByID returns auth.ErrWeddingNotFound for unknown IDs.
func (r *Weddings) GetByID(ctx context.Context, weddingID string) (*auth.Wedding, error) {
	model, err := r.Repository.GetByID(ctx, weddingID)
	if err != nil {
		return nil, weddingError(err, "select wedding")
	}
	return model.toWedding(), nil
}

// GetBySlug looks a wedding up by its public slug.
func (r *Weddings) GetBySlug(ctx context.Context, slug string) (*auth.Wedding, error) {
	model, err := r.Repository.Get(ctx, repobun.SelectBy("slug", "=", slug))
	if err != nil {
		return nil, weddingError(err, "select wedding by slug")
	}
	return model.toWedding(), nil
}

// Create inserts a wedding. An empty status is stored as draft.
func (r *Weddings) Create(ctx context.Context, wedding *auth.Wedding) error {
	if wedding == nil || wedding.ID == "" {
		return goerrors.New("wedding id is required", goerrors.CategoryBadInput)
	}
	if _, err := r.db.NewInsert().Model(fromWedding(wedding)).Exec(ctx); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "insert wedding")
	}
	return nil
}

// SetStatus moves a wedding through its lifecycle.
func (r *Weddings) SetStatus(ctx context.Context, weddingID string, status auth.WeddingStatus) error {
	_, err := r.Repository.Update(ctx,
		&WeddingModel{ID: weddingID, Status: status, UpdatedAt: time.Now().UTC()},
		repobun.UpdateColumns("status", "updated_at"),
	)
	if err != nil {
		return weddingError(err, "update wedding status")
	}
	return nil
}

// Archive freezes the wedding for every identity below super.
func (r *Weddings) Archive(ctx context.Context, weddingID string) error {
	return r.SetStatus(ctx, weddingID, auth.WeddingArchived)
}

func weddingError(err error, message string) error {
	if repobun.IsRecordNotFound(err) {
		return auth.ErrWeddingNotFound
	}
	return goerrors.Wrap(err, goerrors.CategoryInternal, message)
}
