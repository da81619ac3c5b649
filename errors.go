package scribe

import (
	"net/http"

	"github.com/goliatone/go-errors"
)

const (
	TextCodeCredentialMalformed    = "CREDENTIAL_MALFORMED"
	TextCodeCredentialExpired      = "CREDENTIAL_EXPIRED"
	TextCodeCredentialMissing      = "CREDENTIAL_MISSING"
	TextCodeAuthenticationRejected = "AUTHENTICATION_REJECTED"
	TextCodeNetworkFailure         = "NETWORK_FAILURE"
	TextCodeRequestFailed          = "REQUEST_FAILED"
	TextCodeStoreUnavailable       = "TOKEN_STORE_UNAVAILABLE"
)

// ErrMalformedCredential is returned when a token can not be decoded into a session
var ErrMalformedCredential = errors.New("malformed credential", errors.CategoryAuth).
	WithTextCode(TextCodeCredentialMalformed).
	WithCode(errors.CodeUnauthorized)

// ErrExpiredCredential is returned when a decoded session is past its expiry
var ErrExpiredCredential = errors.New("credential expired", errors.CategoryAuth).
	WithTextCode(TextCodeCredentialExpired).
	WithCode(errors.CodeUnauthorized)

// ErrNoCredential is returned when an operation needs a stored credential and there is none
var ErrNoCredential = errors.New("no credential stored", errors.CategoryAuth).
	WithTextCode(TextCodeCredentialMissing).
	WithCode(errors.CodeUnauthorized)

// ErrAuthenticationRejected is returned for 401 responses and failed login/register calls
var ErrAuthenticationRejected = errors.New("authentication rejected", errors.CategoryAuth).
	WithTextCode(TextCodeAuthenticationRejected).
	WithCode(errors.CodeUnauthorized)

// ErrNetworkFailure is returned when the transport fails before a response is read
var ErrNetworkFailure = errors.New("network failure", errors.CategoryOperation).
	WithTextCode(TextCodeNetworkFailure).
	WithCode(http.StatusServiceUnavailable)

// ErrRequestFailed is returned for any non 401 error status
var ErrRequestFailed = errors.New("request failed", errors.CategoryOperation).
	WithTextCode(TextCodeRequestFailed).
	WithCode(errors.CodeInternal)

// ErrStoreUnavailable is returned when the token store can not be read or written
var ErrStoreUnavailable = errors.New("token store unavailable", errors.CategoryInternal).
	WithTextCode(TextCodeStoreUnavailable).
	WithCode(errors.CodeInternal)

// GenericErrorMessage is shown for failures that carry no usable message
const GenericErrorMessage = "Something went wrong. Please try again."

// newError clones base and attaches message, source and metadata.
func newError(base *errors.Error, message string, source error, meta map[string]any) *errors.Error {
	clone := base.Clone()
	if clone == nil {
		clone = base
	}
	if message != "" {
		clone.Message = message
	}
	if source != nil {
		clone.Source = source
	}
	if len(meta) > 0 {
		clone.WithMetadata(meta)
	}
	return clone
}

func hasTextCode(err error, code string) bool {
	if err == nil {
		return false
	}
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		return false
	}
	return richErr.TextCode == code
}

// IsMalformedCredential will check for decode failures
func IsMalformedCredential(err error) bool {
	return hasTextCode(err, TextCodeCredentialMalformed)
}

// IsExpiredCredential will check for expired credentials
func IsExpiredCredential(err error) bool {
	return hasTextCode(err, TextCodeCredentialExpired)
}

// IsNoCredential will check for missing credentials
func IsNoCredential(err error) bool {
	return hasTextCode(err, TextCodeCredentialMissing)
}

// IsAuthenticationRejected will check for server side rejections
func IsAuthenticationRejected(err error) bool {
	return hasTextCode(err, TextCodeAuthenticationRejected)
}

// IsNetworkFailure will check for transport errors
func IsNetworkFailure(err error) bool {
	return hasTextCode(err, TextCodeNetworkFailure)
}

// IsRequestFailed will check for non auth error statuses
func IsRequestFailed(err error) bool {
	return hasTextCode(err, TextCodeRequestFailed)
}

// StatusCode returns the HTTP status attached to err, or 0.
func StatusCode(err error) int {
	var richErr *errors.Error
	if !errors.As(err, &richErr) || richErr.Metadata == nil {
		return 0
	}
	if status, ok := richErr.Metadata["status"].(int); ok {
		return status
	}
	return 0
}

// UserMessage returns the single human readable string for err. Server
// provided messages win, everything else collapses to fallback.
func UserMessage(err error, fallback string) string {
	if err == nil {
		return ""
	}
	if fallback == "" {
		fallback = GenericErrorMessage
	}

	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		return fallback
	}

	if richErr.Metadata != nil {
		if msg, ok := richErr.Metadata["server_message"].(string); ok && msg != "" {
			return msg
		}
	}

	switch richErr.TextCode {
	case TextCodeAuthenticationRejected, TextCodeCredentialMissing:
		if richErr.Message != "" && richErr.Message != ErrAuthenticationRejected.Message {
			return richErr.Message
		}
	}
	return fallback
}

// WrapStoreError marks err as a token store failure for operation op.
func WrapStoreError(op string, err error) error {
	if err == nil {
		return nil
	}
	return newError(ErrStoreUnavailable, "", err, map[string]any{"operation": op})
}

// IsStoreUnavailable will check for token store failures
func IsStoreUnavailable(err error) bool {
	return hasTextCode(err, TextCodeStoreUnavailable)
}
