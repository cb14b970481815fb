package repository

import (
	"time"

	"github.com/uptrace/bun"

	auth "github.com/goliatone/go-wedding-auth"
)

// WeddingRole is the relation between an account and a wedding.
type WeddingRole string

const (
	RoleOwner   WeddingRole = "owner"
	RoleCoOwner WeddingRole = "co-owner"
	RoleStaff   WeddingRole = "staff"
)

// AccountModel is the Bun model for login capable accounts.
type AccountModel struct {
	bun.BaseModel `bun:"table:accounts"`

	Username         string             `bun:"username,pk"`
	PasswordHash     string             `bun:"password_hash,notnull"`
	IsMaster         bool               `bun:"is_master,notnull"`
	UserType         auth.UserType      `bun:"user_type,notnull"`
	AdminUserType    auth.AdminUserType `bun:"admin_user_type,notnull"`
	PrimaryWeddingID string             `bun:"primary_wedding_id,notnull"`
	CreatedAt        time.Time          `bun:"created_at,nullzero,default:current_timestamp"`
	UpdatedAt        time.Time          `bun:"updated_at,nullzero,default:current_timestamp"`
}

// WeddingRoleModel is the Bun model for wedding_roles.
type WeddingRoleModel struct {
	bun.BaseModel `bun:"table:wedding_roles"`

	Username  string      `bun:"username,pk"`
	WeddingID string      `bun:"wedding_id,pk"`
	Role      WeddingRole `bun:"role,notnull"`
	CreatedAt time.Time   `bun:"created_at,nullzero,default:current_timestamp"`
}

// WeddingModel is the Bun model for weddings.
type WeddingModel struct {
	bun.BaseModel `bun:"table:weddings"`

	ID               string             `bun:"id,pk"`
	Slug             string             `bun:"slug,notnull"`
	Status           auth.WeddingStatus `bun:"status,notnull"`
	OwnerUsername    string             `bun:"owner_username,notnull"`
	CoOwnerUsernames []string           `bun:"co_owner_usernames,type:jsonb,notnull"`
	CreatedAt        time.Time          `bun:"created_at,nullzero,default:current_timestamp"`
	UpdatedAt        time.Time          `bun:"updated_at,nullzero,default:current_timestamp"`
}

func (m *WeddingModel) toWedding() *auth.Wedding {
	return &auth.Wedding{
		ID:               m.ID,
		Slug:             m.Slug,
		Status:           m.Status,
		OwnerUsername:    m.OwnerUsername,
		CoOwnerUsernames: append([]string(nil), m.CoOwnerUsernames...),
	}
}

func fromWedding(w *auth.Wedding) *WeddingModel {
	coOwners := append([]string{}, w.CoOwnerUsernames...)
	status := w.Status
	if status == "" {
		status = auth.WeddingDraft
	}
	return &WeddingModel{
		ID:               w.ID,
		Slug:             w.Slug,
		Status:           status,
		OwnerUsername:    w.OwnerUsername,
		CoOwnerUsernames: coOwners,
	}
}
