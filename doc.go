// Package scribe is the client side session layer for the transcript
// service API.
//
// Token store:
//   - TokenStore persists the single bearer credential under a fixed key.
//     MemoryStore ships in this package; file, redis and sqlite backed stores
//     live in the store subpackage. Stores never validate what they hold.
//
// Session decoding:
//   - Decoder turns a token into a Session. Structural problems surface as
//     ErrMalformedCredential. Expiry is not a decode error, use IsExpired or
//     Decoder.DecodeFresh.
//
// HTTP client:
//   - Client prefixes requests with the configured base URL and adds the
//     stored credential as a bearer token. A 401 response clears the store,
//     notifies every UnauthorizedHandler and is still returned to the caller
//     as ErrAuthenticationRejected.
//
// Lifecycle:
//   - Manager owns the Loading, Unauthenticated and Authenticated states.
//     Restore runs once at startup. Login and Register persist the issued
//     token before the session becomes visible. Logout is local only.
//   - ActivitySink receives lifecycle events best-effort.
//
// Resource clients for transcripts, audio and user profiles are in the
// transcript, audio and users subpackages.
package scribe
