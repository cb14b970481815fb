package repository

import (
	"context"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auth "github.com/goliatone/go-wedding-auth"
)

func setupManager(t *testing.T) *Manager {
	t.Helper()
	auth.PasswordHashCost = 4

	db, err := OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	m := NewRepositoryManager(db)
	m.MustValidate()

	_, err = m.Migrate(context.Background())
	require.NoError(t, err)
	return m
}

func seedWeddings(t *testing.T, m *Manager, weddings ...*auth.Wedding) {
	t.Helper()
	for _, w := range weddings {
		require.NoError(t, m.Weddings().Create(context.Background(), w))
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	m := setupManager(t)

	group, err := m.Migrate(context.Background())
	require.NoError(t, err)
	assert.True(t, group.IsZero())
}

func TestCredentials_FindByUsername(t *testing.T) {
	m := setupManager(t)
	ctx := context.Background()
	seedWeddings(t, m,
		&auth.Wedding{ID: "w1", Slug: "ana-and-bob", Status: auth.WeddingActive, OwnerUsername: "ana"},
		&auth.Wedding{ID: "w2", Slug: "cy-and-di"},
	)

	require.NoError(t, m.Credentials().Create(ctx, auth.AccountRecord{
		Username:         "ana",
		UserType:         auth.UserTypeWedding,
		AdminUserType:    auth.AdminUserTypeClient,
		WeddingIDs:       []string{"w1", "w2"},
		PrimaryWeddingID: "w1",
	}, "correct horse"))

	rec, err := m.Credentials().FindByUsername(ctx, "ana")
	require.NoError(t, err)
	assert.Equal(t, "ana", rec.Username)
	assert.Equal(t, auth.UserTypeWedding, rec.UserType)
	assert.ElementsMatch(t, []string{"w1", "w2"}, rec.WeddingIDs)
	assert.Equal(t, "w1", rec.PrimaryWeddingID)

	assert.True(t, m.Credentials().VerifyPassword(rec, "correct horse"))
	assert.False(t, m.Credentials().VerifyPassword(rec, "wrong"))
	assert.False(t, m.Credentials().VerifyPassword(nil, "correct horse"))

	_, err = m.Credentials().FindByUsername(ctx, "nobody")
	assert.ErrorIs(t, err, auth.ErrAccountNotFound)
}

func TestCredentials_GrantAndRevoke(t *testing.T) {
	m := setupManager(t)
	ctx := context.Background()
	seedWeddings(t, m, &auth.Wedding{ID: "w1", Slug: "one"}, &auth.Wedding{ID: "w2", Slug: "two"})

	require.NoError(t, m.Credentials().Create(ctx, auth.AccountRecord{
		Username:      "sam",
		UserType:      auth.UserTypeWedding,
		AdminUserType: auth.AdminUserTypeStaff,
		WeddingIDs:    []string{"w1"},
	}, "pw"))

	require.NoError(t, m.Credentials().Grant(ctx, "sam", "w2", RoleStaff))
	require.NoError(t, m.Credentials().Grant(ctx, "sam", "w2", RoleStaff))

	rec, err := m.Credentials().FindByUsername(ctx, "sam")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"w1", "w2"}, rec.WeddingIDs)

	require.NoError(t, m.Credentials().Revoke(ctx, "sam", "w1"))
	rec, err = m.Credentials().FindByUsername(ctx, "sam")
	require.NoError(t, err)
	assert.Equal(t, []string{"w2"}, rec.WeddingIDs)
}

func TestCredentials_CreateRollsBack(t *testing.T) {
	m := setupManager(t)
	ctx := context.Background()

	err := m.Credentials().Create(ctx, auth.AccountRecord{
		Username:   "ghost",
		UserType:   auth.UserTypeWedding,
		WeddingIDs: []string{"does-not-exist"},
	}, "pw")
	require.Error(t, err)

	_, err = m.Credentials().FindByUsername(ctx, "ghost")
	assert.ErrorIs(t, err, auth.ErrAccountNotFound)
}

func TestCredentials_CreateRejects(t *testing.T) {
	m := setupManager(t)
	ctx := context.Background()

	assert.ErrorIs(t, m.Credentials().Create(ctx, auth.AccountRecord{Username: "x"}, ""), auth.ErrNoEmptyString)
	assert.ErrorIs(t, m.Credentials().Create(ctx, auth.AccountRecord{Username: "x", UserType: "root"}, "pw"), auth.ErrInvalidClaims)

	err := m.Credentials().Create(ctx, auth.AccountRecord{Username: "old", UserType: auth.UserTypeLegacy}, "pw")
	assert.ErrorIs(t, err, ErrLegacyAccount)
	assert.True(t, goerrors.IsCategory(err, goerrors.CategoryBadInput))
	assert.Equal(t, auth.CodeBadRequest, auth.CodeFromError(err))

	_, err = m.Credentials().FindByUsername(ctx, "old")
	assert.ErrorIs(t, err, auth.ErrAccountNotFound)
}

func TestCredentials_EmptyUserTypeStoredAsWedding(t *testing.T) {
	m := setupManager(t)
	ctx := context.Background()
	seedWeddings(t, m,
		&auth.Wedding{ID: "w1", Slug: "one", Status: auth.WeddingActive},
		&auth.Wedding{ID: "w9", Slug: "nine", Status: auth.WeddingActive},
	)

	require.NoError(t, m.Credentials().Create(ctx, auth.AccountRecord{
		Username:         "old",
		WeddingIDs:       []string{"w1"},
		PrimaryWeddingID: "w1",
	}, "pw"))

	rec, err := m.Credentials().FindByUsername(ctx, "old")
	require.NoError(t, err)
	assert.Equal(t, auth.UserTypeWedding, rec.UserType)

	tokens := auth.NewTokenService([]byte("repository-test-signing-key-0123456789"))
	res, err := auth.NewAuthenticator(m.Credentials(), tokens).Login(ctx, "old", "pw")
	require.NoError(t, err)
	assert.IsType(t, auth.OwnerIdentity{}, res.Identity)

	authorizer := auth.NewAuthorizer(tokens)
	w9, err := m.Weddings().GetByID(ctx, "w9")
	require.NoError(t, err)
	assert.Equal(t, auth.CodeAccessDenied, authorizer.AuthorizeForWedding(res.Identity, w9).Code)
}

func TestCredentials_StoredLegacyRowCannotLogIn(t *testing.T) {
	m := setupManager(t)
	ctx := context.Background()
	seedWeddings(t, m, &auth.Wedding{ID: "w9", Slug: "nine", Status: auth.WeddingActive})

	hash, err := auth.HashPassword("pw")
	require.NoError(t, err)
	_, err = m.db.NewInsert().Model(&AccountModel{
		Username:     "old",
		PasswordHash: hash,
		UserType:     auth.UserTypeLegacy,
	}).Exec(ctx)
	require.NoError(t, err)

	tokens := auth.NewTokenService([]byte("repository-test-signing-key-0123456789"))
	_, err = auth.NewAuthenticator(m.Credentials(), tokens).Login(ctx, "old", "pw")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)

	legacy := auth.IdentityClaims{Username: "old", UserType: auth.UserTypeLegacy}.MustIdentity()
	w9, err := m.Weddings().GetByID(ctx, "w9")
	require.NoError(t, err)
	assert.Equal(t, auth.CodeAccessDenied, auth.NewAuthorizer(tokens).AuthorizeForWedding(legacy, w9).Code)
}

func TestWeddings_GetByIDAndArchive(t *testing.T) {
	m := setupManager(t)
	ctx := context.Background()
	seedWeddings(t, m, &auth.Wedding{
		ID:               "w1",
		Slug:             "ana-and-bob",
		Status:           auth.WeddingActive,
		OwnerUsername:    "ana",
		CoOwnerUsernames: []string{"bob"},
	})

	w, err := m.Weddings().GetByID(ctx, "w1")
	require.NoError(t, err)
	assert.Equal(t, auth.WeddingActive, w.Status)
	assert.True(t, w.IsOwnedBy("bob"))

	require.NoError(t, m.Weddings().Archive(ctx, "w1"))
	w, err = m.Weddings().GetByID(ctx, "w1")
	require.NoError(t, err)
	assert.True(t, w.IsArchived())

	_, err = m.Weddings().GetByID(ctx, "w9")
	assert.ErrorIs(t, err, auth.ErrWeddingNotFound)
	assert.ErrorIs(t, m.Weddings().Archive(ctx, "w9"), auth.ErrWeddingNotFound)
}

func TestWeddings_GetBySlugAndSetStatus(t *testing.T) {
	m := setupManager(t)
	ctx := context.Background()
	seedWeddings(t, m, &auth.Wedding{ID: "w1", Slug: "ana-and-bob"})

	w, err := m.Weddings().GetBySlug(ctx, "ana-and-bob")
	require.NoError(t, err)
	assert.Equal(t, "w1", w.ID)
	assert.Equal(t, auth.WeddingDraft, w.Status)

	require.NoError(t, m.Weddings().SetStatus(ctx, "w1", auth.WeddingActive))
	w, err = m.Weddings().GetByID(ctx, "w1")
	require.NoError(t, err)
	assert.Equal(t, auth.WeddingActive, w.Status)
	assert.Equal(t, "ana-and-bob", w.Slug)

	_, err = m.Weddings().GetBySlug(ctx, "nobody")
	assert.ErrorIs(t, err, auth.ErrWeddingNotFound)

	err = m.Weddings().Create(ctx, &auth.Wedding{Slug: "no-id"})
	assert.True(t, goerrors.IsCategory(err, goerrors.CategoryBadInput))
}

func TestManager_RunInTx(t *testing.T) {
	m := setupManager(t)
	ctx := context.Background()

	err := m.RunInTx(ctx, nil, func(ctx context.Context, creds *Credentials, weddings *Weddings) error {
		if err := weddings.Create(ctx, &auth.Wedding{ID: "w1", Slug: "one"}); err != nil {
			return err
		}
		return creds.Create(ctx, auth.AccountRecord{
			Username:         "ana",
			UserType:         auth.UserTypeWedding,
			WeddingIDs:       []string{"w1"},
			PrimaryWeddingID: "w1",
		}, "pw")
	})
	require.NoError(t, err)

	rec, err := m.Credentials().FindByUsername(ctx, "ana")
	require.NoError(t, err)
	assert.Equal(t, []string{"w1"}, rec.WeddingIDs)
}

func TestRepositories_FeedAuthorizer(t *testing.T) {
	m := setupManager(t)
	ctx := context.Background()
	seedWeddings(t, m,
		&auth.Wedding{ID: "w1", Slug: "one", Status: auth.WeddingActive},
		&auth.Wedding{ID: "w2", Slug: "two", Status: auth.WeddingArchived},
	)
	require.NoError(t, m.Credentials().Create(ctx, auth.AccountRecord{
		Username:         "ana",
		UserType:         auth.UserTypeWedding,
		WeddingIDs:       []string{"w1", "w2"},
		PrimaryWeddingID: "w1",
	}, "pw"))

	tokens := auth.NewTokenService([]byte("repository-test-signing-key-0123456789"))
	auther := auth.NewAuthenticator(m.Credentials(), tokens)
	authorizer := auth.NewAuthorizer(tokens)

	res, err := auther.Login(ctx, "ana", "pw")
	require.NoError(t, err)

	d := authorizer.Authenticate(res.Pair.AccessToken)
	require.True(t, d.Authenticated)

	w1, err := m.Weddings().GetByID(ctx, "w1")
	require.NoError(t, err)
	assert.True(t, authorizer.AuthorizeForWedding(d.User, w1).Authenticated)

	w2, err := m.Weddings().GetByID(ctx, "w2")
	require.NoError(t, err)
	assert.Equal(t, auth.CodeArchived, authorizer.AuthorizeForWedding(d.User, w2).Code)
}
