package scribe

import (
	"context"
	"sync"
	"time"
)

const (
	PathLogin    = "/api/auth/login"
	PathRegister = "/api/auth/register"
	PathRefresh  = "/api/auth/refresh"

	LoginFailedMessage    = "Login failed. Please check your credentials."
	RegisterFailedMessage = "Registration failed. Please try again."
	RefreshFailedMessage  = "Your session could not be refreshed. Please sign in again."
)

// State is the lifecycle state of a Manager
type State int

const (
	StateLoading State = iota
	StateUnauthenticated
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateUnauthenticated:
		return "unauthenticated"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// LoginRequest is the payload sent to the login endpoint
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterRequest is the payload sent to the register endpoint
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name,omitempty"`
}

// TokenResponse is returned by the login, register and refresh endpoints
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type,omitempty"`
}

// Snapshot is a consistent view of the manager state
type Snapshot struct {
	State   State
	Session *Session
	Error   string
}

// Authenticated reports whether the snapshot holds a session
func (s Snapshot) Authenticated() bool {
	return s.State == StateAuthenticated && s.Session != nil
}

// Listener is notified after every state change
type Listener func(Snapshot)

// Manager owns the {Loading, Unauthenticated, Authenticated} session state
// machine. The in-memory session is always derived from the credential in
// the token store: whenever one is dropped, so is the other.
//
// Login and Register calls are not serialized. When they overlap, the
// response that resolves last wins.
type Manager struct {
	client  *Client
	store   TokenStore
	decoder *Decoder
	logger  Logger
	sink    ActivitySink
	now     func() time.Time

	mu        sync.Mutex
	state     State
	session   *Session
	lastErr   string
	closed    bool
	ready     chan struct{}
	readyOnce sync.Once
	listeners map[int]Listener
	nextID    int
}

// NewManager returns a manager in the Loading state. It installs itself as
// the client's CredentialClearer so that a 401 response drops the stored
// credential and the session under the same lock.
func NewManager(client *Client, decoder *Decoder) *Manager {
	if decoder == nil {
		decoder = NewDecoder()
	}

	m := &Manager{
		client:    client,
		store:     client.Store(),
		decoder:   decoder,
		logger:    defLogger{},
		sink:      noopActivitySink{},
		now:       time.Now,
		state:     StateLoading,
		ready:     make(chan struct{}),
		listeners: map[int]Listener{},
	}

	client.WithCredentialClearer(m.handleUnauthorized)

	return m
}

// WithLogger sets the manager logger
func (m *Manager) WithLogger(logger Logger) *Manager {
	m.logger = normalizeLogger(logger)
	return m
}

// WithActivitySink configures an ActivitySink for lifecycle events.
func (m *Manager) WithActivitySink(sink ActivitySink) *Manager {
	m.sink = normalizeActivitySink(sink)
	return m
}

// WithClock overrides the time source used for expiry checks
func (m *Manager) WithClock(now func() time.Time) *Manager {
	if now != nil {
		m.now = now
	}
	return m
}

// Client returns the HTTP client the manager authenticates
func (m *Manager) Client() *Client {
	return m.client
}

// Ready is closed once the manager leaves the Loading state
func (m *Manager) Ready() <-chan struct{} {
	return m.ready
}

// Snapshot returns the current state without side effects
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

// State returns the current lifecycle state
func (m *Manager) State() State {
	return m.Snapshot().State
}

// Subscribe registers l for state changes. The returned function removes it.
func (m *Manager) Subscribe(l Listener) func() {
	if l == nil {
		return func() {}
	}
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.listeners[id] = l
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.listeners, id)
		m.mu.Unlock()
	}
}

// Close detaches the manager from its owner. Results of operations that
// resolve afterwards are still returned to their callers but no longer
// change state.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.listeners = map[int]Listener{}
}

// Restore rebuilds the session from the token store. Malformed and expired
// credentials are cleared silently. The state leaves Loading only once the
// whole check is done. The store is read and the state set under the same
// lock that Login uses, so a concurrent sign in is never overwritten.
func (m *Manager) Restore(ctx context.Context) (*Session, error) {
	var (
		session *Session
		event   ActivityEventType
		meta    map[string]any
		out     error
	)

	m.mu.Lock()
	token, ok, err := m.store.Load(ctx)
	switch {
	case err != nil:
		m.logger.Error("Restore could not read token store", "error", err)
		event = ActivityEventRestoreDiscarded
		meta = map[string]any{"reason": "store unavailable"}
		out = newError(ErrStoreUnavailable, "", err, nil)
	case !ok || token == "":
	default:
		session, err = m.decoder.DecodeFresh(token, m.now())
		if err != nil {
			session = nil
			reason := "malformed"
			if IsExpiredCredential(err) {
				reason = "expired"
			}
			m.logger.Info("Restore discarded stored credential", "reason", reason)
			event = ActivityEventRestoreDiscarded
			meta = map[string]any{"reason": reason}

			if !m.closed {
				if clearErr := m.store.Clear(ctx); clearErr != nil {
					m.logger.Error("Restore could not clear token store", "error", clearErr)
				}
			}
		} else {
			event = ActivityEventRestored
		}
	}

	if m.closed {
		m.mu.Unlock()
		return session, out
	}

	from := m.state
	to := StateUnauthenticated
	if session != nil {
		to = StateAuthenticated
	}
	m.setLocked(to, session, "")
	snap, listeners := m.snapshotLocked(), m.listenersLocked()
	m.mu.Unlock()

	if event != "" {
		userID := ""
		if session != nil {
			userID = session.GetUserID()
		}
		m.emit(ctx, event, userID, from, to, meta)
	}
	notify(snap, listeners)
	return session, out
}

// Login exchanges credentials for a bearer token. On failure the state is
// left as it was and the returned error carries a human readable message.
func (m *Manager) Login(ctx context.Context, req LoginRequest) (*Session, error) {
	return m.authenticate(ctx, PathLogin, req, LoginFailedMessage, ActivityEventLoginSuccess, ActivityEventLoginFailure)
}

// Register creates an account and signs in with the returned token.
func (m *Manager) Register(ctx context.Context, req RegisterRequest) (*Session, error) {
	return m.authenticate(ctx, PathRegister, req, RegisterFailedMessage, ActivityEventRegisterSuccess, ActivityEventRegisterFailure)
}

// Refresh asks the backend to reissue the current credential.
func (m *Manager) Refresh(ctx context.Context) (*Session, error) {
	if _, ok, err := m.store.Load(ctx); err != nil {
		return nil, newError(ErrStoreUnavailable, "", err, nil)
	} else if !ok {
		return nil, newError(ErrNoCredential, RefreshFailedMessage, nil, nil)
	}
	return m.authenticate(ctx, PathRefresh, nil, RefreshFailedMessage, ActivityEventRefreshSuccess, ActivityEventRefreshFailure)
}

// Logout clears the stored credential locally. It never calls the backend
// and is safe to call repeatedly.
func (m *Manager) Logout(ctx context.Context) error {
	m.mu.Lock()
	err := m.store.Clear(ctx)
	if m.closed {
		m.mu.Unlock()
		return err
	}
	from := m.state
	userID := ""
	if m.session != nil {
		userID = m.session.GetUserID()
	}
	m.setLocked(StateUnauthenticated, nil, "")
	snap, listeners := m.snapshotLocked(), m.listenersLocked()
	m.mu.Unlock()

	if err != nil {
		m.logger.Error("Logout could not clear token store", "error", err)
		err = newError(ErrStoreUnavailable, "", err, nil)
	}

	m.emit(ctx, ActivityEventLogout, userID, from, StateUnauthenticated, nil)
	notify(snap, listeners)
	return err
}

// Session returns the active session. A session found to be expired is
// dropped together with the stored credential.
func (m *Manager) Session(ctx context.Context) (*Session, bool) {
	m.mu.Lock()
	if m.state != StateAuthenticated || m.session == nil {
		m.mu.Unlock()
		return nil, false
	}

	if !IsExpired(m.session, m.now()) {
		s := m.session
		m.mu.Unlock()
		return s, true
	}

	if m.closed {
		m.mu.Unlock()
		return nil, false
	}

	userID := m.session.GetUserID()
	if err := m.store.Clear(ctx); err != nil {
		m.logger.Error("Session could not clear expired credential", "error", err)
	}
	m.setLocked(StateUnauthenticated, nil, "")
	snap, listeners := m.snapshotLocked(), m.listenersLocked()
	m.mu.Unlock()

	m.logger.Info("Session expired", "user_id", userID)
	m.emit(ctx, ActivityEventExpired, userID, StateAuthenticated, StateUnauthenticated, nil)
	notify(snap, listeners)
	return nil, false
}

// IsAuthenticated reports whether a non expired session is active
func (m *Manager) IsAuthenticated(ctx context.Context) bool {
	_, ok := m.Session(ctx)
	return ok
}

func (m *Manager) authenticate(
	ctx context.Context,
	path string,
	payload any,
	fallback string,
	successEvent, failureEvent ActivityEventType,
) (*Session, error) {
	var res TokenResponse
	if err := m.client.Post(ctx, path, payload, &res); err != nil {
		return nil, m.fail(ctx, failureEvent, err, fallback)
	}

	if res.AccessToken == "" {
		err := newError(ErrAuthenticationRejected, fallback, nil, map[string]any{
			"reason": "missing access token",
			"path":   path,
		})
		return nil, m.fail(ctx, failureEvent, err, fallback)
	}

	session, err := m.decoder.DecodeFresh(res.AccessToken, m.now())
	if err != nil {
		m.logger.Error("Issued credential rejected", "path", path, "error", err)
		return nil, m.fail(ctx, failureEvent, err, fallback)
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		m.logger.Debug("Manager closed, discarding credential", "path", path)
		return session, nil
	}
	if err := m.store.Save(ctx, res.AccessToken); err != nil {
		m.mu.Unlock()
		m.logger.Error("Unable to persist credential", "error", err)
		return nil, m.fail(ctx, failureEvent, newError(ErrStoreUnavailable, "", err, nil), fallback)
	}
	from := m.state
	m.setLocked(StateAuthenticated, session, "")
	snap, listeners := m.snapshotLocked(), m.listenersLocked()
	m.mu.Unlock()

	m.logger.Debug("Credential stored", "path", path, "token", maskToken(res.AccessToken))
	m.emit(ctx, successEvent, session.GetUserID(), from, StateAuthenticated, nil)
	notify(snap, listeners)
	return session, nil
}

// fail records a failed authentication attempt. Server rejections become
// ErrAuthenticationRejected with the extracted message; transport errors
// are returned as is.
func (m *Manager) fail(ctx context.Context, event ActivityEventType, err error, fallback string) error {
	message := UserMessage(err, fallback)

	out := err
	if IsRequestFailed(err) || IsAuthenticationRejected(err) {
		out = newError(ErrAuthenticationRejected, message, err, map[string]any{
			"status": StatusCode(err),
		})
	}

	m.mu.Lock()
	var snap Snapshot
	var listeners []Listener
	from := m.state
	if !m.closed {
		m.lastErr = message
		snap, listeners = m.snapshotLocked(), m.listenersLocked()
	}
	m.mu.Unlock()

	m.logger.Warn("Authentication failed", "event", string(event), "message", message, "error", err)
	m.emit(ctx, event, "", from, from, map[string]any{"message": message})
	notify(snap, listeners)
	return out
}

// handleUnauthorized clears the store and drops the session in one
// critical section. A sign in that resolves concurrently either lands
// before, and is cleared with the session, or after, and is kept.
func (m *Manager) handleUnauthorized(ctx context.Context, evt UnauthorizedEvent) error {
	m.mu.Lock()
	err := m.store.Clear(ctx)
	if m.closed {
		m.mu.Unlock()
		return err
	}
	from := m.state
	userID := ""
	if m.session != nil {
		userID = m.session.GetUserID()
	}
	m.setLocked(StateUnauthenticated, nil, m.lastErr)
	snap, listeners := m.snapshotLocked(), m.listenersLocked()
	m.mu.Unlock()

	m.emit(ctx, ActivityEventUnauthorized, userID, from, StateUnauthenticated, map[string]any{
		"method":     evt.Method,
		"path":       evt.Path,
		"request_id": evt.RequestID,
	})
	notify(snap, listeners)
	return err
}

func (m *Manager) setLocked(state State, session *Session, errMsg string) {
	m.state = state
	m.session = session
	m.lastErr = errMsg
	if state != StateLoading {
		m.readyOnce.Do(func() { close(m.ready) })
	}
}

func (m *Manager) snapshotLocked() Snapshot {
	return Snapshot{
		State:   m.state,
		Session: m.session,
		Error:   m.lastErr,
	}
}

func (m *Manager) listenersLocked() []Listener {
	out := make([]Listener, 0, len(m.listeners))
	for _, l := range m.listeners {
		out = append(out, l)
	}
	return out
}

func (m *Manager) emit(ctx context.Context, eventType ActivityEventType, userID string, from, to State, meta map[string]any) {
	event := ActivityEvent{
		EventType:  eventType,
		UserID:     userID,
		FromState:  from,
		ToState:    to,
		Metadata:   meta,
		OccurredAt: m.now().UTC(),
	}
	if err := m.sink.Record(ctx, event); err != nil {
		m.logger.Error("Activity sink error", "event", string(eventType), "error", err)
	}
}

func notify(snap Snapshot, listeners []Listener) {
	for _, l := range listeners {
		l(snap)
	}
}
