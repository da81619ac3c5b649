package devserver

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
	scribe "github.com/goliatone/go-scribe"
	"github.com/google/uuid"
)

// TokenIssuer signs and validates HS256 bearer tokens
type TokenIssuer struct {
	signingKey []byte
	ttl        time.Duration
	issuer     string
	now        func() time.Time
}

// NewTokenIssuer creates a new TokenIssuer instance
func NewTokenIssuer(signingKey []byte, ttl time.Duration, issuer string) *TokenIssuer {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &TokenIssuer{
		signingKey: signingKey,
		ttl:        ttl,
		issuer:     issuer,
		now:        time.Now,
	}
}

// Generate creates a token for user
func (ti *TokenIssuer) Generate(user *User) (string, error) {
	now := ti.now()
	claims := &scribe.CredentialClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    ti.issuer,
			Subject:   user.Email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ti.ttl)),
		},
		UserID:       user.ID.String(),
		Username:     user.Username,
		Email:        user.Email,
		FullName:     user.FullName,
		ProfilePhoto: user.ProfilePhoto,
	}
	return ti.Sign(claims)
}

// Sign signs arbitrary claims using the configured signing key.
func (ti *TokenIssuer) Sign(claims *scribe.CredentialClaims) (string, error) {
	if claims == nil {
		return "", errors.New("claims must not be nil", errors.CategoryInternal)
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(ti.signingKey)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to sign JWT")
	}
	return signed, nil
}

// Validate parses and validates a token string
func (ti *TokenIssuer) Validate(token string) (*scribe.CredentialClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(ti.now),
		jwt.WithExpirationRequired(),
	}
	if ti.issuer != "" {
		opts = append(opts, jwt.WithIssuer(ti.issuer))
	}

	claims := &scribe.CredentialClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return ti.signingKey, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, scribe.ErrExpiredCredential
		}
		return nil, errors.Wrap(err, errors.CategoryAuth, "invalid token").
			WithTextCode(scribe.TextCodeCredentialMalformed)
	}
	return claims, nil
}
