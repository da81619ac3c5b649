package scribe_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	scribe "github.com/goliatone/go-scribe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T, baseURL string, store scribe.TokenStore) *scribe.Client {
	t.Helper()
	opts := scribe.DefaultOptions()
	opts.BaseURL = baseURL
	c, err := scribe.NewClient(opts, store)
	require.NoError(t, err)
	return c.WithLogger(scribe.NopLogger())
}

func TestNewClient_InvalidBaseURL(t *testing.T) {
	for _, raw := range []string{"", "localhost:8000", "://bad"} {
		opts := scribe.DefaultOptions()
		opts.BaseURL = raw
		_, err := scribe.NewClient(opts, nil)
		assert.Error(t, err, raw)
	}
}

func TestClient_AttachesBearerToken(t *testing.T) {
	var got http.Header
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		gotPath = r.URL.RequestURI()
		w.Write([]byte(`{"ok": true}`))
	}))
	defer srv.Close()

	store := scribe.NewMemoryStore()
	require.NoError(t, store.Save(context.Background(), "T1"))

	c := newClient(t, srv.URL+"/", store)

	var out struct {
		OK bool `json:"ok"`
	}
	require.NoError(t, c.Get(context.Background(), "/api/transcript/list", url.Values{"skip": {"0"}, "limit": {"10"}}, &out))

	assert.True(t, out.OK)
	assert.Equal(t, "/api/transcript/list?limit=10&skip=0", gotPath)
	assert.Equal(t, "Bearer T1", got.Get("Authorization"))
	assert.Equal(t, "application/json", got.Get("Accept"))
	assert.Equal(t, scribe.DefaultUserAgent, got.Get("User-Agent"))
	assert.NotEmpty(t, got.Get("X-Request-ID"))
	assert.Empty(t, got.Get("Content-Type"), "no body, no content type")
}

func TestClient_NoTokenNoHeader(t *testing.T) {
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"email":"a@b.com","password":"secret1"}`, string(body))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
	}))
	defer srv.Close()

	c := newClient(t, srv.URL, nil)
	require.NoError(t, c.Post(context.Background(), "/api/auth/login", scribe.LoginRequest{Email: "a@b.com", Password: "secret1"}, nil))
	assert.Empty(t, auth)
}

func TestClient_StoreLoadFailureSendsUnauthenticated(t *testing.T) {
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
	}))
	defer srv.Close()

	store := new(MockStore)
	store.On("Load", mock.Anything).Return("", false, errors.New("disk gone"))

	c := newClient(t, srv.URL, store)
	require.NoError(t, c.Get(context.Background(), "/health", nil, nil))
	assert.Empty(t, auth)
	store.AssertExpectations(t)
}

func TestClient_UnauthorizedClearsStoreBeforeReturning(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"detail": "Could not validate credentials"}`))
	}))
	defer srv.Close()

	store := scribe.NewMemoryStore()
	require.NoError(t, store.Save(context.Background(), "T1"))
	c := newClient(t, srv.URL, store)

	var mu sync.Mutex
	order := []string{}
	c.OnUnauthorized(func(ctx context.Context, evt scribe.UnauthorizedEvent) {
		_, ok, _ := store.Load(ctx)
		assert.False(t, ok, "store is cleared before handlers run")
		assert.Equal(t, "/login", evt.LoginRoute)
		assert.Equal(t, "/api/transcript/1", evt.Path)
		assert.Equal(t, http.MethodGet, evt.Method)
		assert.Equal(t, "Could not validate credentials", evt.Message)
		assert.NotEmpty(t, evt.RequestID)
		mu.Lock()
		order = append(order, "first")
		mu.Unlock()
	})
	c.OnUnauthorized(func(ctx context.Context, evt scribe.UnauthorizedEvent) {
		mu.Lock()
		order = append(order, "second")
		mu.Unlock()
	})
	c.OnUnauthorized(nil)

	res, err := c.Do(context.Background(), &scribe.Request{Method: http.MethodGet, Path: "/api/transcript/1"})
	require.Error(t, err)

	mu.Lock()
	assert.Equal(t, []string{"first", "second"}, order, "handlers run in order before the caller sees the error")
	mu.Unlock()

	assert.True(t, scribe.IsAuthenticationRejected(err))
	assert.Equal(t, http.StatusUnauthorized, scribe.StatusCode(err))
	assert.Equal(t, "Could not validate credentials", scribe.UserMessage(err, ""))
	require.NotNil(t, res)
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)

	_, ok, _ := store.Load(context.Background())
	assert.False(t, ok)
}

func TestClient_ErrorStatuses(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantMessage string
	}{
		{
			name:        "detail string",
			status:      http.StatusNotFound,
			body:        `{"detail": "Transcript not found"}`,
			wantMessage: "Transcript not found",
		},
		{
			name:        "detail list",
			status:      http.StatusUnprocessableEntity,
			body:        `{"detail": [{"loc": ["body", "email"], "msg": "field required"}, {"msg": "value is not a valid url"}]}`,
			wantMessage: "field required. value is not a valid url",
		},
		{
			name:        "no body",
			status:      http.StatusInternalServerError,
			body:        ``,
			wantMessage: scribe.GenericErrorMessage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			store := scribe.NewMemoryStore()
			require.NoError(t, store.Save(context.Background(), "T1"))
			c := newClient(t, srv.URL, store)

			called := false
			c.OnUnauthorized(func(context.Context, scribe.UnauthorizedEvent) { called = true })

			err := c.Get(context.Background(), "/anything", nil, nil)
			require.Error(t, err)
			assert.True(t, scribe.IsRequestFailed(err))
			assert.Equal(t, tt.status, scribe.StatusCode(err))
			assert.Equal(t, tt.wantMessage, scribe.UserMessage(err, ""))
			assert.False(t, called)

			_, ok, _ := store.Load(context.Background())
			assert.True(t, ok, "only 401 clears the store")
		})
	}
}

func TestClient_NetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	base := srv.URL
	srv.Close()

	c := newClient(t, base, nil)
	err := c.Get(context.Background(), "/api/auth/me", nil, nil)
	require.Error(t, err)
	assert.True(t, scribe.IsNetworkFailure(err))
	assert.Equal(t, "fallback", scribe.UserMessage(err, "fallback"))
}

func TestClient_Download(t *testing.T) {
	payload := bytes.Repeat([]byte{0x01, 0x02}, 512)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/octet-stream", r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "audio/mpeg")
		w.Write(payload)
	}))
	defer srv.Close()

	c := newClient(t, srv.URL, nil)
	var buf bytes.Buffer
	n, err := c.Download(context.Background(), "/api/download/audio/1", nil, &buf)
	require.NoError(t, err)
	assert.Equal(t, int64(len(payload)), n)
	assert.Equal(t, payload, buf.Bytes())
}

// signalWriter closes first on its first write
type signalWriter struct {
	bytes.Buffer
	first chan struct{}
	once  sync.Once
}

func (w *signalWriter) Write(p []byte) (int, error) {
	w.once.Do(func() { close(w.first) })
	return w.Buffer.Write(p)
}

func TestClient_DownloadStreams(t *testing.T) {
	out := &signalWriter{first: make(chan struct{})}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Write([]byte("head-"))
		w.(http.Flusher).Flush()

		select {
		case <-out.first:
		case <-time.After(5 * time.Second):
			t.Error("first chunk never reached the writer before the body ended")
		}
		w.Write([]byte("tail"))
	}))
	defer srv.Close()

	c := newClient(t, srv.URL, nil)
	n, err := c.Download(context.Background(), "/api/download/audio/1", nil, out)
	require.NoError(t, err)
	assert.Equal(t, int64(len("head-tail")), n)
	assert.Equal(t, "head-tail", out.String())
}

func TestClient_DownloadErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"detail": "Audio file not found"}`))
	}))
	defer srv.Close()

	c := newClient(t, srv.URL, nil)
	var buf bytes.Buffer
	n, err := c.Download(context.Background(), "/api/download/audio/9", nil, &buf)
	require.Error(t, err)
	assert.Zero(t, n)
	assert.Zero(t, buf.Len(), "error bodies are not written to w")
	assert.True(t, scribe.IsRequestFailed(err))
	assert.Equal(t, http.StatusNotFound, scribe.StatusCode(err))
	assert.Equal(t, "Audio file not found", scribe.UserMessage(err, "fallback"))
}

func TestClient_DecodeFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>oops</html>`))
	}))
	defer srv.Close()

	c := newClient(t, srv.URL, nil)
	var out map[string]any
	err := c.Get(context.Background(), "/", nil, &out)
	require.Error(t, err)
	assert.True(t, scribe.IsRequestFailed(err))
}

type doerFunc func(*http.Request) (*http.Response, error)

func (f doerFunc) Do(r *http.Request) (*http.Response, error) { return f(r) }

func TestClient_WithHTTPClient(t *testing.T) {
	c := newClient(t, "http://api.example.com/base", nil)
	c.WithHTTPClient(doerFunc(func(r *http.Request) (*http.Response, error) {
		assert.Equal(t, "http://api.example.com/base/api/audio/voices", r.URL.String())
		return &http.Response{
			StatusCode: http.StatusOK,
			Header:     http.Header{"Content-Type": {"application/json"}},
			Body:       io.NopCloser(strings.NewReader(`[{"id":"default","name":"Default"}]`)),
		}, nil
	}))

	var voices []map[string]string
	require.NoError(t, c.Get(context.Background(), "api/audio/voices", nil, &voices))
	assert.Equal(t, "Default", voices[0]["name"])
	assert.Equal(t, "http://api.example.com/base", c.BaseURL())
}
