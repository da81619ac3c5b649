package scribe

import (
	"fmt"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
)

// Decoder turns bearer tokens into sessions. It only reports structural
// failures; expiry is checked separately with IsExpired.
type Decoder struct {
	keyFunc jwt.Keyfunc
	methods []string
	logger  Logger
}

// NewDecoder returns a decoder that reads the token payload without
// verifying the signature, the same trust level a browser client has.
func NewDecoder() *Decoder {
	return &Decoder{logger: defLogger{}}
}

// WithLogger sets the decoder logger
func (d *Decoder) WithLogger(logger Logger) *Decoder {
	d.logger = normalizeLogger(logger)
	return d
}

// WithSigningKey enables HMAC signature verification.
func (d *Decoder) WithSigningKey(key []byte) *Decoder {
	if len(key) == 0 {
		return d
	}
	d.methods = []string{
		jwt.SigningMethodHS256.Alg(),
		jwt.SigningMethodHS384.Alg(),
		jwt.SigningMethodHS512.Alg(),
	}
	d.keyFunc = func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return key, nil
	}
	return d
}

// WithKeyfunc enables signature verification with a custom key lookup.
func (d *Decoder) WithKeyfunc(kf jwt.Keyfunc) *Decoder {
	d.keyFunc = kf
	d.methods = nil
	return d
}

// WithGivenKeys verifies tokens against a fixed set of keys indexed by kid.
func (d *Decoder) WithGivenKeys(keys map[string]keyfunc.GivenKey) *Decoder {
	if len(keys) == 0 {
		return d
	}
	return d.WithKeyfunc(keyfunc.NewGiven(keys).Keyfunc)
}

// Verifies reports whether signatures are checked
func (d *Decoder) Verifies() bool {
	return d.keyFunc != nil
}

// Decode parses token into a Session. Any structural problem, including
// a missing expiry or a bad signature when verification is enabled, is an
// ErrMalformedCredential.
func (d *Decoder) Decode(token string) (*Session, error) {
	if token == "" {
		return nil, newError(ErrMalformedCredential, "", nil, map[string]any{"reason": "empty token"})
	}

	claims := &CredentialClaims{}
	raw := jwt.MapClaims{}

	if d.keyFunc != nil {
		opts := []jwt.ParserOption{jwt.WithoutClaimsValidation()}
		if len(d.methods) > 0 {
			opts = append(opts, jwt.WithValidMethods(d.methods))
		}
		parser := jwt.NewParser(opts...)
		if _, err := parser.ParseWithClaims(token, claims, d.keyFunc); err != nil {
			d.logger.Debug("Decoder signature verification failed", "error", err)
			return nil, newError(ErrMalformedCredential, "", err, map[string]any{"reason": "verification failed"})
		}
	} else {
		parser := jwt.NewParser()
		if _, _, err := parser.ParseUnverified(token, claims); err != nil {
			d.logger.Debug("Decoder could not parse token", "error", err)
			return nil, newError(ErrMalformedCredential, "", err, map[string]any{"reason": "parse failed"})
		}
	}

	if claims.ExpiresAt == nil {
		return nil, newError(ErrMalformedCredential, "", nil, map[string]any{"reason": "missing exp claim"})
	}

	if _, _, err := jwt.NewParser().ParseUnverified(token, raw); err != nil {
		return nil, newError(ErrMalformedCredential, "", err, map[string]any{"reason": "parse failed"})
	}

	return sessionFromClaims(claims, extraClaims(raw)), nil
}

// DecodeFresh decodes token and rejects it when it is expired at now.
func (d *Decoder) DecodeFresh(token string, now time.Time) (*Session, error) {
	session, err := d.Decode(token)
	if err != nil {
		return nil, err
	}
	if err := CheckFreshness(session, now); err != nil {
		return nil, err
	}
	return session, nil
}

func extraClaims(raw jwt.MapClaims) map[string]any {
	var extra map[string]any
	for k, v := range raw {
		if _, ok := registeredClaimKeys[k]; ok {
			continue
		}
		if extra == nil {
			extra = make(map[string]any)
		}
		extra[k] = v
	}
	return extra
}

// JWKSKeyfunc fetches a JSON Web Key Set and keeps it refreshed in the
// background. Call the returned stop function to end the refresh loop.
func JWKSKeyfunc(url string, logger Logger) (jwt.Keyfunc, func(), error) {
	logger = normalizeLogger(logger)
	jwks, err := keyfunc.Get(url, keyfunc.Options{
		RefreshInterval:   time.Hour,
		RefreshRateLimit:  5 * time.Minute,
		RefreshTimeout:    10 * time.Second,
		RefreshUnknownKID: true,
		RefreshErrorHandler: func(err error) {
			logger.Error("JWKS refresh failed", "url", url, "error", err)
		},
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get JWKS from %s: %w", url, err)
	}
	return jwks.Keyfunc, jwks.EndBackground, nil
}

// WithJWKS verifies tokens against the key set published at url. The
// returned function stops the background refresh.
func (d *Decoder) WithJWKS(url string) (*Decoder, func(), error) {
	kf, stop, err := JWKSKeyfunc(url, d.logger)
	if err != nil {
		return d, func() {}, err
	}
	return d.WithKeyfunc(kf), stop, nil
}
