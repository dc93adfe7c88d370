package aci

import (
	"context"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

// MultiConnectionConfig configures a MultiConnection.
type MultiConnectionConfig struct {
	// BaseURIs are the base URIs of the cluster's endpoints, tried in
	// order.
	BaseURIs []*url.URL

	// Authenticator establishes and refreshes sessions on every
	// endpoint.
	Authenticator Authenticator

	// HTTPClient performs the requests. If nil, a client requiring TLS
	// 1.2 or newer is used.
	HTTPClient *http.Client

	// Timeout bounds each request. Default is DefaultTimeout.
	Timeout time.Duration

	// Log is the logger. If nil, nothing is logged.
	Log *zerolog.Logger
}

// remedy is what a failed shared-phase attempt asks the exclusive phase
// to do.
type remedy int

const (
	remedyNone remedy = iota
	remedyRefresh
	remedyIncrement
)

// MultiConnection is a controller connection that fails over between the
// redundant endpoints of a cluster. Exactly one endpoint connection is
// live at a time; operations run against it under a shared lock, and
// only a failing request promotes to exclusive access to refresh the
// session or move to the next endpoint. All operations are safe for
// concurrent use.
type MultiConnection struct {
	uris    []*url.URL
	auth    Authenticator
	client  *http.Client
	timeout time.Duration
	log     zerolog.Logger

	// mu guards index and conn. index is always a valid position in
	// uris, and conn was constructed against uris[index].
	mu    sync.RWMutex
	index int
	conn  *Connection
}

// NewMultiConnection creates a multi-endpoint connection, attempting an
// initial login on each endpoint in order. The first endpoint that
// accepts a login becomes the active one. If every endpoint fails, the
// last error is returned; an empty endpoint list yields
// ErrNoEndpointSpecified.
func NewMultiConnection(ctx context.Context, cfg MultiConnectionConfig) (*MultiConnection, error) {
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

	err := error(ErrNoEndpointSpecified)
	for i, uri := range cfg.BaseURIs {
		log.Info().Stringer("endpoint", uri).Msg("initial attempt to use controller")
		conn, connErr := NewConnection(ctx, ConnectionConfig{
			BaseURI:       uri,
			Authenticator: cfg.Authenticator,
			HTTPClient:    cfg.HTTPClient,
			Timeout:       cfg.Timeout,
			Log:           &log,
		})
		if connErr != nil {
			err = connErr
			continue
		}
		return &MultiConnection{
			uris:    cfg.BaseURIs,
			auth:    cfg.Authenticator,
			client:  cfg.HTTPClient,
			timeout: cfg.Timeout,
			log:     log,
			index:   i,
			conn:    conn,
		}, nil
	}
	return nil, err
}

// roundRobin runs op against the active connection, refreshing the
// session or failing over to the next endpoint as needed.
//
// The shared-read phase lets any number of operations proceed against
// the active connection; only an operation that times out (or finds the
// session due for refresh) promotes to the exclusive phase, so a single
// failure never triggers a thundering herd of reconnects. The shared
// lock is never held across the promotion. Iteration terminates because
// each exclusive pass either returns, retries after a successful remedy,
// or advances the endpoint index until it wraps around to where the
// operation started, at which point ErrTimeout is returned.
func roundRobin[T any](ctx context.Context, mc *MultiConnection, op func(context.Context, *Connection) (T, error)) (T, error) {
	var zero T
	startIndex := -1
	for {
		result, rem, err := func() (T, remedy, error) {
			mc.mu.RLock()
			defer mc.mu.RUnlock()
			if startIndex < 0 {
				startIndex = mc.index
			}
			if mc.conn.ShouldRefreshLogin() {
				return zero, remedyRefresh, nil
			}
			res, opErr := op(ctx, mc.conn)
			switch {
			case opErr == nil:
				return res, remedyNone, nil
			case errors.Is(opErr, ErrTimeout):
				return zero, remedyIncrement, nil
			default:
				return zero, remedyNone, opErr
			}
		}()
		if err != nil {
			return zero, err
		}
		if rem == remedyNone {
			return result, nil
		}

		if err := mc.applyRemedy(ctx, rem, startIndex); err != nil {
			return zero, err
		}
	}
}

// applyRemedy runs the exclusive phase: refresh the current session, or
// replace the active connection with one to the next endpoint. A nil
// return means the caller should retry its operation.
func (mc *MultiConnection) applyRemedy(ctx context.Context, rem remedy, startIndex int) error {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	if rem == remedyRefresh {
		if !mc.conn.ShouldRefreshLogin() {
			// another operation refreshed while we waited for the lock
			return nil
		}
		err := mc.conn.Refresh(ctx)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, ErrTimeout):
			rem = remedyIncrement
		default:
			return err
		}
	}

	// index of the live connection, restored when no replacement is made
	connIndex := mc.index
	for {
		mc.log.Warn().Stringer("endpoint", mc.uris[mc.index]).Msg("controller is unresponsive")

		mc.index = (mc.index + 1) % len(mc.uris)
		if mc.index == startIndex {
			// we have tried them all
			mc.index = connIndex
			return ErrTimeout
		}

		next := mc.uris[mc.index]
		mc.log.Info().Stringer("endpoint", next).Msg("switching controller")

		conn, err := NewConnection(ctx, ConnectionConfig{
			BaseURI:       next,
			Authenticator: mc.auth,
			HTTPClient:    mc.client,
			Timeout:       mc.timeout,
			Log:           &mc.log,
		})
		switch {
		case err == nil:
			mc.conn = conn
			return nil
		case errors.Is(err, ErrTimeout):
			// next endpoint
		default:
			mc.index = connIndex
			return err
		}
	}
}

// GetInstances returns the instances of the given class.
func (mc *MultiConnection) GetInstances(ctx context.Context, className string, settings QuerySettings) ([]*Object, error) {
	return roundRobin(ctx, mc, func(ctx context.Context, conn *Connection) ([]*Object, error) {
		return conn.GetInstances(ctx, className, settings)
	})
}

// GetObjects returns the managed object with the given Distinguished
// Name (or some of its children or descendants, depending on the query
// settings).
func (mc *MultiConnection) GetObjects(ctx context.Context, dn string, settings QuerySettings) ([]*Object, error) {
	return roundRobin(ctx, mc, func(ctx context.Context, conn *Connection) ([]*Object, error) {
		return conn.GetObjects(ctx, dn, settings)
	})
}

// PostObject creates or modifies the supplied managed object in the
// fabric.
func (mc *MultiConnection) PostObject(ctx context.Context, obj *Object) ([]*Object, error) {
	return roundRobin(ctx, mc, func(ctx context.Context, conn *Connection) ([]*Object, error) {
		return conn.PostObject(ctx, obj)
	})
}

// DeleteObject deletes the object with the given Distinguished Name from
// the fabric.
func (mc *MultiConnection) DeleteObject(ctx context.Context, dn string) error {
	_, err := roundRobin(ctx, mc, func(ctx context.Context, conn *Connection) (struct{}, error) {
		return struct{}{}, conn.DeleteObject(ctx, dn)
	})
	return err
}
