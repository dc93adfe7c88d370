package aci

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/julienschmidt/httprouter"
)

// recordedRequest captures what a fake controller endpoint saw.
type recordedRequest struct {
	Method  string
	RawPath string
	Query   url.Values
	Header  http.Header
	Body    []byte
}

// fakeController is an in-process controller endpoint. The knobs select
// per-endpoint behavior: which attributes login and refresh hand out,
// which status codes to return, and whether a handler should hang until
// the client gives up (simulating an unresponsive controller).
type fakeController struct {
	srv       *httptest.Server
	closeOnce sync.Once

	mu        sync.Mutex
	logins    int
	refreshes int
	requests  []recordedRequest

	loginStatus   int
	refreshStatus int
	dataStatus    int
	hangLogin     bool
	hangRefresh   bool
	hangData      bool
	loginAttrs    map[string]string
	refreshAttrs  map[string]string
	result        string
}

// newFakeController starts a fake endpoint. opts run before the server
// starts; use configure for changes made while the server is running.
func newFakeController(t *testing.T, opts ...func(*fakeController)) *fakeController {
	f := &fakeController{
		loginStatus:   http.StatusOK,
		refreshStatus: http.StatusOK,
		dataStatus:    http.StatusOK,
		loginAttrs:    map[string]string{"token": "tok-1", "refreshTimeoutSeconds": "600"},
		refreshAttrs:  map[string]string{"token": "tok-2", "refreshTimeoutSeconds": "600"},
		result:        `{"imdata":[]}`,
	}
	for _, opt := range opts {
		opt(f)
	}

	router := httprouter.New()
	router.POST("/api/aaaLogin.json", f.handleLogin)
	router.POST("/api/aaaRefresh.json", f.handleRefresh)
	router.GET("/api/class/:class", f.handleData)
	router.GET("/api/mo/*dn", f.handleData)
	router.POST("/api/mo/*dn", f.handleData)
	router.DELETE("/api/mo/*dn", f.handleData)

	f.srv = httptest.NewServer(router)
	t.Cleanup(f.Close)
	return f
}

func (f *fakeController) Close() {
	f.closeOnce.Do(f.srv.Close)
}

// configure mutates the fake's knobs in sync with its handlers.
func (f *fakeController) configure(fn func(*fakeController)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

func (f *fakeController) url(t *testing.T) *url.URL {
	u, err := url.Parse(f.srv.URL)
	if err != nil {
		t.Fatalf("parse fake controller URL: %v", err)
	}
	return u
}

func (f *fakeController) counts() (logins, refreshes int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.logins, f.refreshes
}

func (f *fakeController) lastRequest(t *testing.T) recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.requests) == 0 {
		t.Fatal("fake controller saw no data requests")
	}
	return f.requests[len(f.requests)-1]
}

func (f *fakeController) handleLogin(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	f.mu.Lock()
	f.logins++
	hang, status, attrs := f.hangLogin, f.loginStatus, f.loginAttrs
	f.mu.Unlock()
	f.serveAuth(w, r, hang, status, attrs)
}

func (f *fakeController) handleRefresh(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	f.mu.Lock()
	f.refreshes++
	hang, status, attrs := f.hangRefresh, f.refreshStatus, f.refreshAttrs
	f.mu.Unlock()
	f.serveAuth(w, r, hang, status, attrs)
}

func (f *fakeController) serveAuth(w http.ResponseWriter, r *http.Request, hang bool, status int, attrs map[string]string) {
	if hang {
		hangUntilGone(r)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if status != http.StatusOK {
		w.WriteHeader(status)
		_, _ = io.WriteString(w, `{"imdata":[{"error":{"attributes":{"text":"denied"}}}]}`)
		return
	}
	resp := map[string]any{
		"imdata": []any{
			map[string]any{"aaaLogin": map[string]any{"attributes": attrs}},
		},
	}
	data, _ := jsonAPI.Marshal(resp)
	_, _ = w.Write(data)
}

func (f *fakeController) handleData(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	body, _ := io.ReadAll(r.Body)

	f.mu.Lock()
	f.requests = append(f.requests, recordedRequest{
		Method:  r.Method,
		RawPath: r.URL.EscapedPath(),
		Query:   r.URL.Query(),
		Header:  r.Header.Clone(),
		Body:    body,
	})
	hang, status, result := f.hangData, f.dataStatus, f.result
	f.mu.Unlock()

	if hang {
		hangUntilGone(r)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if status != http.StatusOK {
		w.WriteHeader(status)
		_, _ = io.WriteString(w, `{"imdata":[{"error":{"attributes":{"text":"boom"}}}]}`)
		return
	}
	_, _ = io.WriteString(w, result)
}

// hangUntilGone blocks until the client abandons the request.
func hangUntilGone(r *http.Request) {
	select {
	case <-r.Context().Done():
	case <-time.After(10 * time.Second):
	}
}

func newTestClient(t *testing.T) *http.Client {
	transport := &http.Transport{}
	t.Cleanup(transport.CloseIdleConnections)
	return &http.Client{Transport: transport}
}

func testAuthenticator() PasswordAuthenticator {
	return PasswordAuthenticator{Username: "admin", Password: "hunter2"}
}

func newTestConnection(t *testing.T, f *fakeController) *Connection {
	conn, err := NewConnection(context.Background(), ConnectionConfig{
		BaseURI:       f.url(t),
		Authenticator: testAuthenticator(),
		HTTPClient:    newTestClient(t),
		Timeout:       2 * time.Second,
	})
	if err != nil {
		t.Fatalf("connect to fake controller: %v", err)
	}
	return conn
}
