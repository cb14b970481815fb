package auth

// WeddingStatus is the lifecycle state of a wedding site.
type WeddingStatus string

const (
	WeddingDraft    WeddingStatus = "draft"
	WeddingActive   WeddingStatus = "active"
	WeddingArchived WeddingStatus = "archived"
)

// Wedding is the subset of the wedding entity the authorizer reads.
// It is never mutated here.
type Wedding struct {
	ID               string        `json:"weddingId"`
	Slug             string        `json:"slug"`
	Status           WeddingStatus `json:"status"`
	OwnerUsername    string        `json:"ownerUsername"`
	CoOwnerUsernames []string      `json:"coOwnerUsernames,omitempty"`
}

// IsArchived reports whether the wedding is frozen.
func (w *Wedding) IsArchived() bool {
	return w != nil && w.Status == WeddingArchived
}

// IsOwnedBy reports whether username is the owner or a co-owner.
func (w *Wedding) IsOwnedBy(username string) bool {
	if w == nil || username == "" {
		return false
	}
	if w.OwnerUsername == username {
		return true
	}
	for _, u := range w.CoOwnerUsernames {
		if u == username {
			return true
		}
	}
	return false
}
