package devserver

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	scribe "github.com/goliatone/go-scribe"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenIssuer_RoundTrip(t *testing.T) {
	issuer := NewTokenIssuer([]byte("0123456789abcdef"), 30*time.Minute, "tests")
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	issuer.now = func() time.Time { return now }

	id := uuid.New()
	token, err := issuer.Generate(&User{ID: id, Username: "ada", Email: "a@b.com", FullName: "Ada"})
	require.NoError(t, err)

	claims, err := issuer.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, id.String(), claims.UserID)
	assert.Equal(t, "a@b.com", claims.Subject)
	assert.Equal(t, "tests", claims.Issuer)
	assert.True(t, now.Add(30*time.Minute).Equal(claims.Expires()))
	assert.NotEmpty(t, claims.ID)
}

func TestTokenIssuer_Rejects(t *testing.T) {
	issuer := NewTokenIssuer([]byte("0123456789abcdef"), time.Hour, "tests")
	user := &User{ID: uuid.New(), Email: "a@b.com"}

	t.Run("expired", func(t *testing.T) {
		old := NewTokenIssuer([]byte("0123456789abcdef"), time.Hour, "tests")
		old.now = func() time.Time { return time.Now().Add(-3 * time.Hour) }
		token, err := old.Generate(user)
		require.NoError(t, err)

		_, err = issuer.Validate(token)
		require.Error(t, err)
		assert.True(t, scribe.IsExpiredCredential(err))
	})

	t.Run("wrong key", func(t *testing.T) {
		other := NewTokenIssuer([]byte("another-signing-key"), time.Hour, "tests")
		token, err := other.Generate(user)
		require.NoError(t, err)

		_, err = issuer.Validate(token)
		require.Error(t, err)
		assert.True(t, scribe.IsMalformedCredential(err))
	})

	t.Run("wrong issuer", func(t *testing.T) {
		other := NewTokenIssuer([]byte("0123456789abcdef"), time.Hour, "elsewhere")
		token, err := other.Generate(user)
		require.NoError(t, err)

		_, err = issuer.Validate(token)
		assert.True(t, scribe.IsMalformedCredential(err))
	})

	t.Run("missing exp", func(t *testing.T) {
		token, err := issuer.Sign(&scribe.CredentialClaims{
			RegisteredClaims: jwt.RegisteredClaims{Issuer: "tests", Subject: "x"},
			UserID:           uuid.NewString(),
		})
		require.NoError(t, err)

		_, err = issuer.Validate(token)
		assert.True(t, scribe.IsMalformedCredential(err))
	})
}
