package devserver

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	repo, err := OpenRepository(context.Background(), "file:"+name+"?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestUsers_RegisterAndLookup(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	user, err := repo.Users().Register(ctx, &User{
		Username:     "ada",
		Email:        "  Ada@Example.com ",
		PasswordHash: "hash",
	})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, user.ID)
	assert.Equal(t, "ada@example.com", user.Email)
	assert.False(t, user.CreatedAt.IsZero())

	byEmail, err := repo.GetUserByEmail(ctx, "ADA@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byEmail.ID)

	byID, err := repo.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "ada", byID.Username)

	byName, err := repo.Users().GetByIdentifier(ctx, "ADA")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byName.ID)
}

func TestUsers_RegisterConflicts(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	_, err := repo.CreateUser(ctx, &User{Username: "ada", Email: "ada@example.com", PasswordHash: "hash"})
	require.NoError(t, err)

	_, err = repo.CreateUser(ctx, &User{Username: "other", Email: "ADA@example.com", PasswordHash: "hash"})
	assert.True(t, errors.Is(err, ErrIdentityConflicts))

	_, err = repo.CreateUser(ctx, &User{Username: "Ada", Email: "new@example.com", PasswordHash: "hash"})
	assert.True(t, errors.Is(err, ErrIdentityConflicts))
}

func TestUsers_NotFound(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	_, err := repo.GetUserByEmail(ctx, "missing@example.com")
	assert.True(t, errors.Is(err, ErrUserNotFound))

	_, err = repo.GetUserByID(ctx, uuid.New())
	assert.True(t, errors.Is(err, ErrUserNotFound))

	_, err = repo.Users().GetByIdentifier(ctx, "")
	assert.True(t, isNotFound(err))
}

func TestUsers_SaveAndTrackLogin(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	now := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	repo.users.(*users).now = func() time.Time { return now }

	user, err := repo.CreateUser(ctx, &User{Username: "ada", Email: "ada@example.com", PasswordHash: "hash"})
	require.NoError(t, err)

	user.FullName = "Ada Lovelace"
	_, err = repo.UpdateUser(ctx, user)
	require.NoError(t, err)

	require.NoError(t, repo.TrackLogin(ctx, user))

	stored, err := repo.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", stored.FullName)
	assert.Equal(t, "hash", stored.PasswordHash)
	require.NotNil(t, stored.LoggedInAt)
	assert.True(t, now.Equal(*stored.LoggedInAt))
}
