package aci

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"time"
	"unicode/utf8"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

// performJSONRequest performs a single JSON request against a
// controller-like server and returns the validated response body.
//
// This is the low-level primitive beneath Connection and
// PasswordAuthenticator; it is not exported.
//
// When body is non-nil it is serialised as JSON and sent with a matching
// Content-Type header. The whole exchange is bounded by timeout; on
// expiry the in-flight I/O is cancelled and ErrTimeout is returned.
// Cancellation of ctx itself is reported as the context's error. A non-OK
// status yields a *ResponseError carrying the response. On success the
// body is checked to be valid UTF-8 and valid JSON.
func performJSONRequest(
	ctx context.Context,
	log zerolog.Logger,
	client *http.Client,
	uri *url.URL,
	method string,
	headers http.Header,
	body any,
	timeout time.Duration,
) ([]byte, error) {
	log.Debug().Str("method", method).Stringer("url", uri).Msg("performing request")

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var reqBody io.Reader
	if body != nil {
		data, err := jsonAPI.Marshal(body)
		if err != nil {
			return nil, markWrap(ErrAssemblingRequest, err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, uri.String(), reqBody)
	if err != nil {
		return nil, markWrap(ErrAssemblingRequest, err)
	}
	for key, values := range headers {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, normalizeTransportErr(ctx, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, &ResponseError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       respBody,
		}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, normalizeTransportErr(ctx, err)
	}
	if !utf8.Valid(data) {
		return nil, ErrInvalidUTF8
	}
	var doc any
	if err := jsonAPI.Unmarshal(data, &doc); err != nil {
		return nil, markWrap(ErrInvalidJSON, err)
	}
	return data, nil
}

// normalizeTransportErr maps transport failures into the error taxonomy.
// Deadline expiry becomes ErrTimeout so that the failover core can
// recognise it; caller cancellation is passed through.
func normalizeTransportErr(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout
	}
	if ctxErr := ctx.Err(); errors.Is(ctxErr, context.Canceled) {
		return ctxErr
	}
	return markWrap(ErrObtainingResponse, err)
}
