package aci

import (
	"context"
	"crypto/tls"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

// DefaultTimeout bounds each request when the configuration does not
// specify a timeout.
const DefaultTimeout = 30 * time.Second

// loginRefreshDivisor sets when ShouldRefreshLogin fires: once 1/2 of the
// session's refresh timeout has elapsed.
const loginRefreshDivisor = 2

// ConnectionConfig configures a Connection.
type ConnectionConfig struct {
	// BaseURI is the controller's base URI, e.g. https://apic1.example.com/.
	BaseURI *url.URL

	// Authenticator establishes and refreshes the session.
	Authenticator Authenticator

	// HTTPClient performs the requests. If nil, a client requiring TLS
	// 1.2 or newer is used. The client must be safe for concurrent use.
	HTTPClient *http.Client

	// Timeout bounds each request. Default is DefaultTimeout.
	Timeout time.Duration

	// Log is the logger. If nil, nothing is logged.
	Log *zerolog.Logger
}

// sessionState pairs a session with the time it was obtained. It is
// replaced as a whole so that readers observe either the old or the new
// session, never a partial update.
type sessionState struct {
	sess       Session
	obtainedAt time.Time
}

// Connection is a connection to a single controller endpoint. All
// operations are safe for concurrent use.
type Connection struct {
	baseURI *url.URL
	client  *http.Client
	auth    Authenticator
	timeout time.Duration
	log     zerolog.Logger

	state atomic.Pointer[sessionState]
	now   func() time.Time
}

func defaultHTTPClient() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{MinVersion: tls.VersionTLS12},
		},
	}
}

// NewConnection creates a connection to a single controller endpoint and
// performs the initial login. On login failure the error is returned and
// no connection is yielded.
func NewConnection(ctx context.Context, cfg ConnectionConfig) (*Connection, error) {
	if cfg.BaseURI == nil {
		return nil, errors.Mark(errors.New("no base URI specified"), ErrInvalidURI)
	}
	if cfg.Authenticator == nil {
		return nil, errors.New("no authenticator specified")
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = defaultHTTPClient()
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	log := zerolog.Nop()
	if cfg.Log != nil {
		log = *cfg.Log
	}

	c := &Connection{
		baseURI: cfg.BaseURI,
		client:  cfg.HTTPClient,
		auth:    cfg.Authenticator,
		timeout: cfg.Timeout,
		log:     log,
		now:     time.Now,
	}
	if err := c.Login(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// BaseURI returns the base URI of the endpoint this connection talks to.
func (c *Connection) BaseURI() *url.URL {
	return c.baseURI
}

// AuthPerformed reports whether authentication with the controller has
// succeeded at least once.
func (c *Connection) AuthPerformed() bool {
	return c.state.Load() != nil
}

// Login authenticates with the controller, replacing any current session
// with a new one.
func (c *Connection) Login(ctx context.Context) error {
	c.log.Debug().Stringer("endpoint", c.baseURI).Msg("logging in")
	sess, err := c.auth.Login(ctx, c.client, c.baseURI, c.timeout)
	if err != nil {
		return err
	}
	c.state.Store(&sessionState{sess: sess, obtainedAt: c.now()})
	return nil
}

// Refresh extends the current authentication session. When the
// authenticator reports ErrInvalidCredentials the session has been
// invalidated server-side and the caller is expected to Login again.
func (c *Connection) Refresh(ctx context.Context) error {
	st := c.state.Load()
	if st == nil {
		return c.Login(ctx)
	}
	c.log.Debug().Stringer("endpoint", c.baseURI).Msg("refreshing session")
	sess, err := c.auth.Refresh(ctx, c.client, c.baseURI, c.timeout, st.sess)
	if err != nil {
		return err
	}
	c.state.Store(&sessionState{sess: sess, obtainedAt: c.now()})
	return nil
}

// ShouldRefreshLogin reports whether enough of the session's refresh
// timeout has elapsed that the session should be refreshed before the
// next operation.
func (c *Connection) ShouldRefreshLogin() bool {
	st := c.state.Load()
	if st == nil {
		return false
	}
	return c.now().Sub(st.obtainedAt) >= st.sess.RefreshTimeout/loginRefreshDivisor
}

// requestHeaders returns the headers carried by every non-auth request:
// the session material plus the JSON accept header.
func (c *Connection) requestHeaders() http.Header {
	st := c.state.Load()
	if st == nil {
		return http.Header{"Accept": []string{"application/json"}}
	}
	h := st.sess.Headers()
	h.Set("Accept", "application/json")
	return h
}

// apiURL builds an endpoint URL from the base URI and the given path
// segments. Each segment is percent-escaped, so a DN containing slashes
// rides as a single segment; the ".json" suffix is appended to the last
// one.
func (c *Connection) apiURL(query url.Values, segments ...string) (*url.URL, error) {
	u := *c.baseURI
	escaped := strings.TrimSuffix(u.EscapedPath(), "/")
	for i, seg := range segments {
		esc := url.PathEscape(seg)
		if i == len(segments)-1 {
			esc += ".json"
		}
		escaped += "/" + esc
	}

	unescaped, err := url.PathUnescape(escaped)
	if err != nil {
		return nil, markWrap(ErrInvalidURI, err)
	}
	u.Path = unescaped
	u.RawPath = escaped
	if query != nil {
		u.RawQuery = query.Encode()
	}
	return &u, nil
}

// GetInstances returns the instances of the given class.
func (c *Connection) GetInstances(ctx context.Context, className string, settings QuerySettings) ([]*Object, error) {
	uri, err := c.apiURL(settings.Values(), "api", "class", className)
	if err != nil {
		return nil, err
	}
	data, err := performJSONRequest(ctx, c.log, c.client, uri, http.MethodGet, c.requestHeaders(), nil, c.timeout)
	if err != nil {
		return nil, err
	}
	return DecodeList(data)
}

// GetObjects returns the managed object with the given Distinguished
// Name (or some of its children or descendants, depending on the query
// settings).
func (c *Connection) GetObjects(ctx context.Context, dn string, settings QuerySettings) ([]*Object, error) {
	uri, err := c.apiURL(settings.Values(), "api", "mo", dn)
	if err != nil {
		return nil, err
	}
	data, err := performJSONRequest(ctx, c.log, c.client, uri, http.MethodGet, c.requestHeaders(), nil, c.timeout)
	if err != nil {
		return nil, err
	}
	return DecodeList(data)
}

// PostObject creates or modifies the supplied managed object in the
// fabric and returns the objects in the controller's response.
func (c *Connection) PostObject(ctx context.Context, obj *Object) ([]*Object, error) {
	dn := obj.DN()
	if dn == "" {
		return nil, errors.Mark(errors.New("managed object has no dn"), ErrInvalidObject)
	}
	uri, err := c.apiURL(nil, "api", "mo", dn)
	if err != nil {
		return nil, err
	}
	data, err := performJSONRequest(ctx, c.log, c.client, uri, http.MethodPost, c.requestHeaders(), obj, c.timeout)
	if err != nil {
		return nil, err
	}
	return DecodeList(data)
}

// DeleteObject deletes the object with the given Distinguished Name from
// the fabric.
func (c *Connection) DeleteObject(ctx context.Context, dn string) error {
	uri, err := c.apiURL(nil, "api", "mo", dn)
	if err != nil {
		return err
	}
	_, err = performJSONRequest(ctx, c.log, c.client, uri, http.MethodDelete, c.requestHeaders(), nil, c.timeout)
	return err
}
