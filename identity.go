package auth

import (
	"fmt"
	"slices"

	goerrors "github.com/goliatone/go-errors"
)

// IdentityClaims is the flat claim set embedded in access and refresh tokens.
type IdentityClaims struct {
	Username         string        `json:"username"`
	IsMaster         bool          `json:"isMaster"`
	UserType         UserType      `json:"userType"`
	AdminUserType    AdminUserType `json:"adminUserType,omitempty"`
	WeddingIDs       []string      `json:"weddingIds,omitempty"`
	PrimaryWeddingID string        `json:"primaryWeddingId,omitempty"`
}

// Identity is a verified principal. The set of variants is closed:
// SuperIdentity, StaffIdentity, OwnerIdentity and LegacyIdentity.
type Identity interface {
	Username() string
	Claims() IdentityClaims
	isIdentity()
}

// IdentityVisitor has one method per Identity variant. Decision code
// dispatches through Visit so a new variant fails to compile until every
// visitor handles it.
type IdentityVisitor[T any] interface {
	VisitSuper(SuperIdentity) T
	VisitStaff(StaffIdentity) T
	VisitOwner(OwnerIdentity) T
	VisitLegacy(LegacyIdentity) T
}

// Visit dispatches id to the matching visitor method.
func Visit[T any](id Identity, v IdentityVisitor[T]) T {
	switch x := id.(type) {
	case SuperIdentity:
		return v.VisitSuper(x)
	case *SuperIdentity:
		return v.VisitSuper(*x)
	case StaffIdentity:
		return v.VisitStaff(x)
	case *StaffIdentity:
		return v.VisitStaff(*x)
	case OwnerIdentity:
		return v.VisitOwner(x)
	case *OwnerIdentity:
		return v.VisitOwner(*x)
	case LegacyIdentity:
		return v.VisitLegacy(x)
	case *LegacyIdentity:
		return v.VisitLegacy(*x)
	}
	panic(fmt.Sprintf("auth: unhandled identity variant %T", id))
}

// SuperIdentity is a fleet-wide administrator. Master accounts resolve
// to this variant as well.
type SuperIdentity struct {
	claims IdentityClaims
}

func (s SuperIdentity) Username() string       { return s.claims.Username }
func (s SuperIdentity) Claims() IdentityClaims { return s.claims.clone() }
func (s SuperIdentity) IsMaster() bool         { return s.claims.IsMaster }
func (SuperIdentity) isIdentity()              {}

// StaffIdentity operates a fixed set of weddings.
type StaffIdentity struct {
	claims IdentityClaims
}

func (s StaffIdentity) Username() string       { return s.claims.Username }
func (s StaffIdentity) Claims() IdentityClaims { return s.claims.clone() }
func (s StaffIdentity) WeddingIDs() []string   { return slices.Clone(s.claims.WeddingIDs) }
func (s StaffIdentity) CanAccess(weddingID string) bool {
	return slices.Contains(s.claims.WeddingIDs, weddingID)
}
func (StaffIdentity) isIdentity() {}

// OwnerIdentity is an owner or co-owner of one or more weddings.
type OwnerIdentity struct {
	claims IdentityClaims
}

func (o OwnerIdentity) Username() string       { return o.claims.Username }
func (o OwnerIdentity) Claims() IdentityClaims { return o.claims.clone() }
func (o OwnerIdentity) WeddingIDs() []string   { return slices.Clone(o.claims.WeddingIDs) }
func (o OwnerIdentity) PrimaryWeddingID() string {
	return o.claims.PrimaryWeddingID
}
func (o OwnerIdentity) CanAccess(weddingID string) bool {
	return slices.Contains(o.claims.WeddingIDs, weddingID)
}
func (OwnerIdentity) isIdentity() {}

// LegacyIdentity belongs to a single-tenant deployment. It is implicitly
// scoped to the one deployment-wide wedding; WeddingIDs is ignored.
type LegacyIdentity struct {
	claims IdentityClaims
}

func (l LegacyIdentity) Username() string       { return l.claims.Username }
func (l LegacyIdentity) Claims() IdentityClaims { return l.claims.clone() }
func (LegacyIdentity) isIdentity()              {}

// Identity resolves the claim set into its variant.
//
// Resolution order: master or super, legacy (including tokens without a
// user type), staff, wedding owner.
func (c IdentityClaims) Identity() (Identity, error) {
	if c.Username == "" {
		return nil, goerrors.Wrap(ErrInvalidClaims, goerrors.CategoryBadInput, "missing username")
	}
	if !c.UserType.IsValid() {
		return nil, goerrors.Wrap(ErrInvalidClaims, goerrors.CategoryBadInput, fmt.Sprintf("unknown user type %q", c.UserType))
	}
	if !c.AdminUserType.IsValid() {
		return nil, goerrors.Wrap(ErrInvalidClaims, goerrors.CategoryBadInput, fmt.Sprintf("unknown admin user type %q", c.AdminUserType))
	}

	c = c.clone()
	c.WeddingIDs = normalizeWeddingIDs(c.WeddingIDs)

	switch {
	case c.IsMaster || c.UserType == UserTypeSuper:
		return SuperIdentity{claims: c}, nil
	case c.UserType == UserTypeLegacy || c.UserType == "":
		return LegacyIdentity{claims: c}, nil
	case c.AdminUserType == AdminUserTypeStaff:
		return StaffIdentity{claims: c}, nil
	default:
		return OwnerIdentity{claims: c}, nil
	}
}

// MustIdentity is like Identity but panics on invalid claims. Meant for
// tests and static fixtures.
func (c IdentityClaims) MustIdentity() Identity {
	id, err := c.Identity()
	if err != nil {
		panic(err)
	}
	return id
}

func (c IdentityClaims) clone() IdentityClaims {
	c.WeddingIDs = slices.Clone(c.WeddingIDs)
	return c
}

// normalizeWeddingIDs drops empty and duplicate IDs while keeping the
// order of first appearance.
func normalizeWeddingIDs(ids []string) []string {
	if len(ids) == 0 {
		return nil
	}
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
