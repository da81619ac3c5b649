package scribe

import (
	"fmt"
	"time"
)

// Session is the in-memory view of a decoded credential. It is derived on
// demand and never persisted.
type Session struct {
	Subject      string         `json:"sub,omitempty"`
	UserID       string         `json:"user_id,omitempty"`
	Username     string         `json:"username,omitempty"`
	Email        string         `json:"email,omitempty"`
	FullName     string         `json:"full_name,omitempty"`
	ProfilePhoto string         `json:"profile_photo,omitempty"`
	Issuer       string         `json:"issuer,omitempty"`
	IssuedAt     time.Time      `json:"issued_at,omitempty"`
	ExpiresAt    time.Time      `json:"expires_at"`
	Extra        map[string]any `json:"extra,omitempty"`
}

func (s *Session) GetUserID() string {
	if s.UserID != "" {
		return s.UserID
	}
	return s.Subject
}

// DisplayName picks the friendliest identity field available
func (s *Session) DisplayName() string {
	switch {
	case s.FullName != "":
		return s.FullName
	case s.Username != "":
		return s.Username
	case s.Email != "":
		return s.Email
	default:
		return s.Subject
	}
}

// TTL returns the time left before expiry, never negative
func (s *Session) TTL(now time.Time) time.Duration {
	if s == nil {
		return 0
	}
	d := s.ExpiresAt.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

func (s Session) String() string {
	return fmt.Sprintf(
		"sub=%s user=%s email=%s exp=%s",
		s.Subject,
		s.Username,
		s.Email,
		s.ExpiresAt.Format(time.RFC1123),
	)
}

// IsExpired reports whether the session expiry instant is before now. A nil
// session is treated as expired.
func IsExpired(s *Session, now time.Time) bool {
	if s == nil {
		return true
	}
	return s.ExpiresAt.Before(now)
}

// CheckFreshness returns ErrExpiredCredential for expired sessions.
func CheckFreshness(s *Session, now time.Time) error {
	if IsExpired(s, now) {
		meta := map[string]any{"now": now.UTC().Format(time.RFC3339)}
		if s != nil {
			meta["expires_at"] = s.ExpiresAt.UTC().Format(time.RFC3339)
		}
		return newError(ErrExpiredCredential, "", nil, meta)
	}
	return nil
}

func sessionFromClaims(claims *CredentialClaims, extra map[string]any) *Session {
	return &Session{
		Subject:      claims.RegisteredClaims.Subject,
		UserID:       claims.Identity(),
		Username:     claims.Username,
		Email:        claims.Email,
		FullName:     claims.FullName,
		ProfilePhoto: claims.ProfilePhoto,
		Issuer:       claims.RegisteredClaims.Issuer,
		IssuedAt:     claims.Issued(),
		ExpiresAt:    claims.Expires(),
		Extra:        extra,
	}
}
