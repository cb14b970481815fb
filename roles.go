package auth

// UserType is the tenancy class of an account.
type UserType string

const (
	// UserTypeSuper manages the whole fleet of weddings
	UserTypeSuper UserType = "super"
	// UserTypeWedding is scoped to an explicit set of weddings
	UserTypeWedding UserType = "wedding"
	// UserTypeLegacy predates multi-wedding support
	UserTypeLegacy UserType = "legacy"
)

// AdminUserType refines a wedding scoped account.
type AdminUserType string

const (
	// AdminUserTypeStaff is an operator working across several weddings
	AdminUserTypeStaff AdminUserType = "staff"
	// AdminUserTypeClient is the couple (owner or co-owner)
	AdminUserTypeClient AdminUserType = "client"
)

// IsValid checks if the user type is one of the predefined values.
// The empty value is accepted and read as legacy.
func (t UserType) IsValid() bool {
	switch t {
	case UserTypeSuper, UserTypeWedding, UserTypeLegacy, "":
		return true
	default:
		return false
	}
}

// IsValid checks if the admin user type is one of the predefined values.
func (t AdminUserType) IsValid() bool {
	switch t {
	case AdminUserTypeStaff, AdminUserTypeClient, "":
		return true
	default:
		return false
	}
}

// ParseUserType safely parses a string into a UserType
func ParseUserType(s string) (UserType, bool) {
	t := UserType(s)
	return t, t.IsValid()
}

// ParseAdminUserType safely parses a string into an AdminUserType
func ParseAdminUserType(s string) (AdminUserType, bool) {
	t := AdminUserType(s)
	return t, t.IsValid()
}

// Rank orders identity kinds from least to most privileged.
type Rank int

const (
	RankOwner Rank = iota
	RankLegacy
	RankStaff
	RankSuper
)

type rankVisitor struct{}

func (rankVisitor) VisitSuper(SuperIdentity) Rank   { return RankSuper }
func (rankVisitor) VisitStaff(StaffIdentity) Rank   { return RankStaff }
func (rankVisitor) VisitOwner(OwnerIdentity) Rank   { return RankOwner }
func (rankVisitor) VisitLegacy(LegacyIdentity) Rank { return RankLegacy }

// RankOf returns the rank of the given identity.
func RankOf(id Identity) Rank {
	if id == nil {
		return RankOwner
	}
	return Visit[Rank](id, rankVisitor{})
}

// IsAtLeast checks if the identity meets the minimum rank.
func IsAtLeast(id Identity, min Rank) bool {
	if id == nil {
		return false
	}
	return RankOf(id) >= min
}
