package scribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/goliatone/go-print"
	"github.com/google/uuid"
)

const (
	HeaderAuthorization = "Authorization"
	HeaderRequestID     = "X-Request-ID"
	HeaderContentType   = "Content-Type"
	HeaderAccept        = "Accept"
	HeaderUserAgent     = "User-Agent"

	authScheme      = "Bearer"
	mimeJSON        = "application/json"
	mimeOctetStream = "application/octet-stream"
)

// Doer is the subset of *http.Client used by Client
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Request describes a call against the API base URL
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   any
	Accept string
}

// Response is a fully read API response
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	RequestID  string
}

// DecodeJSON unmarshals the response body into out
func (r *Response) DecodeJSON(out any) error {
	if out == nil || len(bytes.TrimSpace(r.Body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(r.Body, out); err != nil {
		return newError(ErrRequestFailed, "unable to decode response", err, map[string]any{
			"status":     r.StatusCode,
			"request_id": r.RequestID,
		})
	}
	return nil
}

// Client wraps outbound API requests. It injects the stored bearer token
// and reacts to authentication failures by clearing the store and
// notifying the registered UnauthorizedHandlers.
type Client struct {
	baseURL    *url.URL
	httpClient Doer
	store      TokenStore
	logger     Logger
	loginRoute string
	userAgent  string
	debug      bool

	mu       sync.RWMutex
	handlers []UnauthorizedHandler
	clearer  CredentialClearer
}

// NewClient returns a client for the API at cfg.GetBaseURL
func NewClient(cfg Config, store TokenStore) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.GetBaseURL(), "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid base url %q: %w", cfg.GetBaseURL(), err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid base url %q: missing scheme or host", cfg.GetBaseURL())
	}

	if store == nil {
		store = NewMemoryStore()
	}

	loginRoute := cfg.GetLoginRoute()
	if loginRoute == "" {
		loginRoute = DefaultLoginRoute
	}

	userAgent := cfg.GetUserAgent()
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	return &Client{
		baseURL:    base,
		httpClient: http.DefaultClient,
		store:      store,
		logger:     defLogger{},
		loginRoute: loginRoute,
		userAgent:  userAgent,
		debug:      cfg.GetDebug(),
	}, nil
}

// WithHTTPClient sets the transport used for requests
func (c *Client) WithHTTPClient(doer Doer) *Client {
	if doer != nil {
		c.httpClient = doer
	}
	return c
}

// WithLogger sets the client logger
func (c *Client) WithLogger(logger Logger) *Client {
	c.logger = normalizeLogger(logger)
	return c
}

// Store returns the token store backing the client
func (c *Client) Store() TokenStore {
	return c.store
}

// BaseURL returns the API base URL
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// OnUnauthorized registers a handler invoked, in registration order, after
// a 401 response cleared the token store.
func (c *Client) OnUnauthorized(handler UnauthorizedHandler) {
	if handler == nil {
		return
	}
	c.mu.Lock()
	c.handlers = append(c.handlers, handler)
	c.mu.Unlock()
}

// WithCredentialClearer replaces the store clear run on 401 responses.
// Only one clearer is kept; a nil fn restores the default.
func (c *Client) WithCredentialClearer(fn CredentialClearer) *Client {
	c.mu.Lock()
	c.clearer = fn
	c.mu.Unlock()
	return c
}

// Get issues a GET request and decodes the JSON response into out
func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) error {
	return c.doJSON(ctx, &Request{Method: http.MethodGet, Path: path, Query: query}, out)
}

// Post issues a POST request with a JSON body
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.doJSON(ctx, &Request{Method: http.MethodPost, Path: path, Body: body}, out)
}

// Put issues a PUT request with a JSON body
func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.doJSON(ctx, &Request{Method: http.MethodPut, Path: path, Body: body}, out)
}

// Delete issues a DELETE request
func (c *Client) Delete(ctx context.Context, path string, out any) error {
	return c.doJSON(ctx, &Request{Method: http.MethodDelete, Path: path}, out)
}

// Download copies a binary response body into w as it arrives and returns
// the number of bytes written. Error statuses are read in full and reported
// like Do does.
func (c *Client) Download(ctx context.Context, path string, query url.Values, w io.Writer) (int64, error) {
	req := &Request{
		Method: http.MethodGet,
		Path:   path,
		Query:  query,
		Accept: mimeOctetStream,
	}

	httpRes, meta, err := c.send(ctx, req)
	if err != nil {
		return 0, err
	}
	defer httpRes.Body.Close()

	if httpRes.StatusCode >= http.StatusBadRequest {
		res, err := c.readResponse(req, httpRes, meta)
		if err != nil {
			return 0, err
		}
		return 0, c.statusError(ctx, req, res, meta)
	}

	n, err := io.Copy(w, httpRes.Body)
	if err != nil {
		c.logger.Error("Download interrupted", "path", req.Path, "written", n, "error", err)
		return n, newError(ErrNetworkFailure, "download interrupted", err, meta)
	}
	return n, nil
}

func (c *Client) doJSON(ctx context.Context, req *Request, out any) error {
	res, err := c.Do(ctx, req)
	if err != nil {
		return err
	}
	return res.DecodeJSON(out)
}

// Do executes req. Error statuses are returned as errors together with the
// fully read Response.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	httpRes, meta, err := c.send(ctx, req)
	if err != nil {
		return nil, err
	}
	defer httpRes.Body.Close()

	res, err := c.readResponse(req, httpRes, meta)
	if err != nil {
		return nil, err
	}

	if c.debug && strings.HasPrefix(httpRes.Header.Get(HeaderContentType), mimeJSON) {
		var payload any
		if json.Unmarshal(res.Body, &payload) == nil {
			c.logger.Debug("Response payload", "status", res.StatusCode, "path", req.Path, "body", print.MaybePrettyJSON(payload))
		}
	}

	if res.StatusCode < http.StatusBadRequest {
		return res, nil
	}
	return res, c.statusError(ctx, req, res, meta)
}

// send issues req and returns the open response. The caller closes the body.
func (c *Client) send(ctx context.Context, req *Request) (*http.Response, map[string]any, error) {
	httpReq, requestID, err := c.newRequest(ctx, req)
	if err != nil {
		return nil, nil, err
	}

	meta := map[string]any{
		"method":     req.Method,
		"path":       req.Path,
		"request_id": requestID,
	}

	httpRes, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.Error("Request transport error", "method", req.Method, "path", req.Path, "error", err)
		return nil, nil, newError(ErrNetworkFailure, "", err, meta)
	}
	return httpRes, meta, nil
}

func (c *Client) readResponse(req *Request, httpRes *http.Response, meta map[string]any) (*Response, error) {
	body, err := io.ReadAll(httpRes.Body)
	if err != nil {
		c.logger.Error("Request read body error", "method", req.Method, "path", req.Path, "error", err)
		return nil, newError(ErrNetworkFailure, "unable to read response", err, meta)
	}

	requestID, _ := meta["request_id"].(string)
	return &Response{
		StatusCode: httpRes.StatusCode,
		Header:     httpRes.Header,
		Body:       body,
		RequestID:  requestID,
	}, nil
}

// statusError maps an error status to ErrAuthenticationRejected or
// ErrRequestFailed. A 401 clears the credential first.
func (c *Client) statusError(ctx context.Context, req *Request, res *Response, meta map[string]any) error {
	meta["status"] = res.StatusCode
	message, ok := ExtractMessage(res.Body)
	if ok {
		meta["server_message"] = message
	}

	if res.StatusCode == http.StatusUnauthorized {
		c.handleUnauthorized(ctx, req, res, message)
		return newError(ErrAuthenticationRejected, message, nil, meta)
	}

	c.logger.Warn("Request failed", "method", req.Method, "path", req.Path, "status", res.StatusCode, "message", message)
	return newError(ErrRequestFailed, message, nil, meta).WithCode(res.StatusCode)
}

func (c *Client) newRequest(ctx context.Context, req *Request) (*http.Request, string, error) {
	if req == nil {
		return nil, "", newError(ErrRequestFailed, "nil request", nil, nil)
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	target := c.resolve(req.Path, req.Query)

	var body io.Reader
	if req.Body != nil {
		raw, err := json.Marshal(req.Body)
		if err != nil {
			return nil, "", newError(ErrRequestFailed, "unable to encode request body", err, map[string]any{
				"method": method,
				"path":   req.Path,
			})
		}
		body = bytes.NewReader(raw)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, "", newError(ErrRequestFailed, "unable to build request", err, map[string]any{
			"method": method,
			"path":   req.Path,
		})
	}

	requestID := uuid.NewString()
	httpReq.Header.Set(HeaderRequestID, requestID)
	httpReq.Header.Set(HeaderUserAgent, c.userAgent)
	if req.Body != nil {
		httpReq.Header.Set(HeaderContentType, mimeJSON)
	}
	accept := req.Accept
	if accept == "" {
		accept = mimeJSON
	}
	httpReq.Header.Set(HeaderAccept, accept)

	token, ok, err := c.store.Load(ctx)
	if err != nil {
		c.logger.Warn("Token store load failed, sending unauthenticated", "error", err)
	} else if ok && token != "" {
		httpReq.Header.Set(HeaderAuthorization, authScheme+" "+token)
	}

	return httpReq, requestID, nil
}

func (c *Client) resolve(path string, query url.Values) string {
	u := *c.baseURL
	u.Path = strings.TrimRight(c.baseURL.Path, "/") + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

func (c *Client) handleUnauthorized(ctx context.Context, req *Request, res *Response, message string) {
	evt := UnauthorizedEvent{
		Method:     req.Method,
		Path:       req.Path,
		StatusCode: res.StatusCode,
		RequestID:  res.RequestID,
		LoginRoute: c.loginRoute,
		Message:    message,
	}

	c.mu.RLock()
	clearFn := c.clearer
	handlers := make([]UnauthorizedHandler, len(c.handlers))
	copy(handlers, c.handlers)
	c.mu.RUnlock()

	if clearFn == nil {
		clearFn = func(ctx context.Context, _ UnauthorizedEvent) error {
			return c.store.Clear(ctx)
		}
	}

	if err := clearFn(ctx, evt); err != nil {
		c.logger.Error("Unable to clear token store after 401", "error", err)
	}

	c.logger.Info(
		"Authentication failure, redirecting to login",
		"method", req.Method,
		"path", req.Path,
		"request_id", res.RequestID,
		"login_route", c.loginRoute,
	)

	for _, h := range handlers {
		h(ctx, evt)
	}
}
