package session

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	auth "github.com/goliatone/go-wedding-auth"
)

// Storage keys. These are stable across releases, clients written against
// older builds read the same set.
const (
	KeyAccessToken      = "accessToken"
	KeyRefreshToken     = "refreshToken"
	KeyTokenExpiry      = "tokenExpiry"
	KeyUsername         = "username"
	KeyIsMaster         = "isMaster"
	KeyUserType         = "userType"
	KeyWeddingIDs       = "weddingIds"
	KeyPrimaryWeddingID = "primaryWeddingId"
	KeyAdminUserType    = "adminUserType"
)

// Keys lists every key a Storage may hold.
var Keys = []string{
	KeyAccessToken,
	KeyRefreshToken,
	KeyTokenExpiry,
	KeyUsername,
	KeyIsMaster,
	KeyUserType,
	KeyWeddingIDs,
	KeyPrimaryWeddingID,
	KeyAdminUserType,
}

// ErrNoRecord is returned by ParseRecord when storage holds no access token.
var ErrNoRecord = errors.New("session: no stored tokens")

// Storage is durable client storage for one session record.
//
// Save replaces the whole set of keys in one step: after Save returns,
// a Load never observes keys from the previous record. Clear removes
// every key. Load returns an empty map when nothing is stored.
type Storage interface {
	Load(ctx context.Context) (map[string]string, error)
	Save(ctx context.Context, values map[string]string) error
	Clear(ctx context.Context) error
}

// Record is the decoded form of what a Storage holds.
type Record struct {
	AccessToken      string
	RefreshToken     string
	Expiry           time.Time
	Username         string
	IsMaster         bool
	UserType         auth.UserType
	WeddingIDs       []string
	PrimaryWeddingID string
	AdminUserType    auth.AdminUserType
}

// Values encodes the record. Optional fields are left out when empty.
// Wedding IDs are stored as a JSON array.
func (r Record) Values() map[string]string {
	values := map[string]string{
		KeyAccessToken:  r.AccessToken,
		KeyRefreshToken: r.RefreshToken,
		KeyTokenExpiry:  strconv.FormatInt(r.Expiry.Unix(), 10),
		KeyUsername:     r.Username,
		KeyIsMaster:     strconv.FormatBool(r.IsMaster),
		KeyUserType:     string(r.UserType),
	}
	if len(r.WeddingIDs) > 0 {
		ids, _ := json.Marshal(r.WeddingIDs)
		values[KeyWeddingIDs] = string(ids)
	}
	if r.PrimaryWeddingID != "" {
		values[KeyPrimaryWeddingID] = r.PrimaryWeddingID
	}
	if r.AdminUserType != "" {
		values[KeyAdminUserType] = string(r.AdminUserType)
	}
	return values
}

// Claims returns the identity claims denormalized into the record.
func (r Record) Claims() auth.IdentityClaims {
	return auth.IdentityClaims{
		Username:         r.Username,
		IsMaster:         r.IsMaster,
		UserType:         r.UserType,
		AdminUserType:    r.AdminUserType,
		WeddingIDs:       append([]string(nil), r.WeddingIDs...),
		PrimaryWeddingID: r.PrimaryWeddingID,
	}
}

// ParseRecord decodes stored values. It returns ErrNoRecord when there
// is no access token.
func ParseRecord(values map[string]string) (Record, error) {
	if values[KeyAccessToken] == "" {
		return Record{}, ErrNoRecord
	}

	r := Record{
		AccessToken:      values[KeyAccessToken],
		RefreshToken:     values[KeyRefreshToken],
		Username:         values[KeyUsername],
		UserType:         auth.UserType(values[KeyUserType]),
		PrimaryWeddingID: values[KeyPrimaryWeddingID],
		AdminUserType:    auth.AdminUserType(values[KeyAdminUserType]),
	}

	if raw := values[KeyTokenExpiry]; raw != "" {
		sec, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return Record{}, errors.New("session: invalid " + KeyTokenExpiry)
		}
		r.Expiry = time.Unix(sec, 0)
	}

	if raw := values[KeyIsMaster]; raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return Record{}, errors.New("session: invalid " + KeyIsMaster)
		}
		r.IsMaster = b
	}

	if raw := strings.TrimSpace(values[KeyWeddingIDs]); raw != "" {
		ids, err := parseWeddingIDs(raw)
		if err != nil {
			return Record{}, errors.New("session: invalid " + KeyWeddingIDs)
		}
		r.WeddingIDs = ids
	}

	return r, nil
}

// parseWeddingIDs reads a JSON array, or the comma separated form written
// by older releases.
func parseWeddingIDs(raw string) ([]string, error) {
	var ids []string
	if strings.HasPrefix(raw, "[") {
		if err := json.Unmarshal([]byte(raw), &ids); err != nil {
			return nil, err
		}
	} else {
		ids = strings.Split(raw, ",")
	}

	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			out = append(out, id)
		}
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}

// MemoryStorage keeps the record in process memory.
type MemoryStorage struct {
	mu     sync.RWMutex
	values map[string]string
}

var _ Storage = (*MemoryStorage)(nil)

// NewMemoryStorage returns an empty MemoryStorage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{values: map[string]string{}}
}

func (s *MemoryStorage) Load(context.Context) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyValues(s.values), nil
}

func (s *MemoryStorage) Save(_ context.Context, values map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values = copyValues(values)
	return nil
}

func (s *MemoryStorage) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values = map[string]string{}
	return nil
}

func copyValues(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
