package aci

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

// defaultRefreshTimeout is assumed when the controller does not report a
// usable refresh timeout.
const defaultRefreshTimeout = 600 * time.Second

// Session is the material issued by the controller at login: the cookie
// authorising subsequent requests, an optional challenge token used for
// stronger security, and the duration after which the session must be
// refreshed. A Session is replaced as a whole by login and refresh,
// never updated in place.
type Session struct {
	Cookie         string
	Challenge      string
	RefreshTimeout time.Duration
}

// Headers returns the session material as headers that authorise a
// request to the controller.
func (s Session) Headers() http.Header {
	h := http.Header{}
	h.Set("Cookie", "APIC-cookie="+s.Cookie)
	if s.Challenge != "" {
		h.Set("APIC-challenge", s.Challenge)
	}
	return h
}

// Authenticator is the capability to establish and refresh a session with
// a controller endpoint. Implementations vary (username/password today,
// certificate or SSO conceivable); a Connection consumes the capability
// without knowing the mechanism.
type Authenticator interface {
	// Login establishes a new session against the endpoint at baseURI.
	Login(ctx context.Context, client *http.Client, baseURI *url.URL, timeout time.Duration) (Session, error)

	// Refresh extends the given session. Implementations carry forward
	// values from current that the controller does not reissue.
	Refresh(ctx context.Context, client *http.Client, baseURI *url.URL, timeout time.Duration, current Session) (Session, error)
}

// PasswordAuthenticator logs into the controller using a username and a
// password.
type PasswordAuthenticator struct {
	Username string
	Password string
}

var _ Authenticator = PasswordAuthenticator{}

// aaaUser is the request body of the aaaLogin and aaaRefresh operations.
type aaaUser struct {
	AAAUser struct {
		Attributes struct {
			Name string `json:"name"`
			Pwd  string `json:"pwd"`
		} `json:"attributes"`
	} `json:"aaaUser"`
}

func (a PasswordAuthenticator) requestBody() aaaUser {
	var body aaaUser
	body.AAAUser.Attributes.Name = a.Username
	body.AAAUser.Attributes.Pwd = a.Password
	return body
}

// Login implements Authenticator.
func (a PasswordAuthenticator) Login(ctx context.Context, client *http.Client, baseURI *url.URL, timeout time.Duration) (Session, error) {
	data, err := a.authRequest(ctx, client, baseURI, "api/aaaLogin.json?gui-token-request=yes", timeout)
	if err != nil {
		return Session{}, err
	}

	attribs, ok := loginAttributes(data)
	if !ok {
		return Session{}, &MissingSessionTokenError{Body: data}
	}
	token, ok := attribs["token"]
	if !ok {
		return Session{}, &MissingSessionTokenError{Body: data}
	}
	return Session{
		Cookie:         token,
		Challenge:      attribs["urlToken"],
		RefreshTimeout: parseRefreshTimeout(attribs["refreshTimeoutSeconds"]),
	}, nil
}

// Refresh implements Authenticator. Token values that the controller
// returns empty or omits keep their current values.
func (a PasswordAuthenticator) Refresh(ctx context.Context, client *http.Client, baseURI *url.URL, timeout time.Duration, current Session) (Session, error) {
	data, err := a.authRequest(ctx, client, baseURI, "api/aaaRefresh.json", timeout)
	if err != nil {
		return Session{}, err
	}

	attribs, ok := loginAttributes(data)
	if !ok {
		return Session{}, &MissingSessionTokenError{Body: data}
	}
	sess := current
	if token := attribs["token"]; token != "" {
		sess.Cookie = token
	}
	if urlToken := attribs["urlToken"]; urlToken != "" {
		sess.Challenge = urlToken
	}
	sess.RefreshTimeout = parseRefreshTimeout(attribs["refreshTimeoutSeconds"])
	return sess, nil
}

// authRequest performs one authentication POST, translating a 403 into
// ErrInvalidCredentials.
func (a PasswordAuthenticator) authRequest(ctx context.Context, client *http.Client, baseURI *url.URL, ref string, timeout time.Duration) ([]byte, error) {
	uri, err := baseURI.Parse(ref)
	if err != nil {
		return nil, markWrap(ErrInvalidURI, err)
	}

	data, err := performJSONRequest(ctx, zerolog.Nop(), client, uri, http.MethodPost, nil, a.requestBody(), timeout)
	if err != nil {
		var respErr *ResponseError
		if errors.As(err, &respErr) && respErr.StatusCode == http.StatusForbidden {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	return data, nil
}

// loginAttributes extracts imdata[0].aaaLogin.attributes from an
// authentication response. ok is false when the response does not have
// that shape.
func loginAttributes(data []byte) (map[string]string, bool) {
	var resp struct {
		Imdata []map[string]struct {
			Attributes map[string]string `json:"attributes"`
		} `json:"imdata"`
	}
	if err := jsonAPI.Unmarshal(data, &resp); err != nil {
		return nil, false
	}
	if len(resp.Imdata) == 0 {
		return nil, false
	}
	entry, ok := resp.Imdata[0]["aaaLogin"]
	if !ok || entry.Attributes == nil {
		return nil, false
	}
	return entry.Attributes, true
}

// parseRefreshTimeout interprets the controller's refreshTimeoutSeconds
// attribute, falling back to the default when it is absent or
// unparseable.
func parseRefreshTimeout(value string) time.Duration {
	secs, err := strconv.ParseUint(value, 10, 32)
	if err != nil {
		return defaultRefreshTimeout
	}
	return time.Duration(secs) * time.Second
}
