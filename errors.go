package aci

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// Errors reported when talking to a fabric controller. The set is closed:
// every public operation fails with one of these kinds, possibly wrapped
// with additional context. The exceptions are cancellation of the
// caller's context, which is reported as the context's own error, and a
// connection configuration without an Authenticator.
var (
	// ErrInvalidURI marks errors constructing a request URI.
	ErrInvalidURI = errors.New("invalid URI")

	// ErrInvalidCredentials is returned when the controller rejects the
	// supplied credentials during login or refresh.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrAssemblingRequest marks errors building the HTTP request.
	ErrAssemblingRequest = errors.New("error assembling request")

	// ErrObtainingResponse marks errors obtaining the HTTP response.
	ErrObtainingResponse = errors.New("error obtaining response")

	// ErrInvalidUTF8 is returned when a response body is not valid UTF-8.
	ErrInvalidUTF8 = errors.New("server returned response that was not valid UTF-8")

	// ErrInvalidJSON marks responses that are not valid JSON.
	ErrInvalidJSON = errors.New("server returned response that was not valid JSON")

	// ErrTimeout is returned when an operation took too long to complete.
	// The multi-endpoint connection fails over to the next endpoint when
	// it observes this error.
	ErrTimeout = errors.New("request timed out")

	// ErrNoEndpointSpecified is returned when a multi-endpoint connection
	// is constructed with an empty endpoint list.
	ErrNoEndpointSpecified = errors.New("no controller endpoint specified")
)

// ErrInvalidObject marks responses that are valid JSON but do not have
// the shape of a managed object or envelope; the specific failure is one
// of the sentinels below. A document that is not valid JSON, or whose
// attribute values are not strings, is reported as ErrInvalidJSON and
// does not carry this mark. PostObject also marks an object without a DN
// with it.
var ErrInvalidObject = errors.New("server returned an invalid managed object")

var (
	// ErrNoImdata is returned when a response lacks the top-level
	// "imdata" element.
	ErrNoImdata = errors.Mark(errors.New(`missing top-level "imdata" element`), ErrInvalidObject)

	// ErrNotAnObject is returned when a managed object's JSON value is
	// not an object.
	ErrNotAnObject = errors.Mark(errors.New("JSON value is not an object"), ErrInvalidObject)

	// ErrMultipleEntries is returned when a managed object's JSON object
	// does not have exactly one entry.
	ErrMultipleEntries = errors.Mark(errors.New("JSON object has multiple entries"), ErrInvalidObject)

	// ErrMissingAttributes is returned when a managed object's JSON
	// object is missing its "attributes" value.
	ErrMissingAttributes = errors.Mark(errors.New("JSON object is missing the attributes object"), ErrInvalidObject)
)

// ResponseError is returned when the controller answers with a non-OK
// HTTP status. It carries the full response body for caller inspection.
type ResponseError struct {
	StatusCode int
	Status     string
	Body       []byte
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("server returned negative response %s", e.Status)
}

// MissingSessionTokenError is returned when the expected token value is
// missing from the controller's response during authentication.
type MissingSessionTokenError struct {
	Body []byte
}

func (e *MissingSessionTokenError) Error() string {
	return fmt.Sprintf("missing session token in response %s", e.Body)
}

// markWrap attaches sentinel to err so that errors.Is(result, sentinel)
// holds, keeping err's own message and cause chain intact.
func markWrap(sentinel, err error) error {
	return errors.Mark(errors.Wrap(err, sentinel.Error()), sentinel)
}
