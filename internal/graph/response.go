package graph

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"net/http"
	"strings"
)

// OData annotation and envelope keys.
const (
	odataNextLink  = "@odata.nextLink"  //nolint:gosec // G101: annotation key, not a credential
	odataDeltaLink = "@odata.deltaLink" //nolint:gosec // G101: annotation key, not a credential
	odataCount     = "@odata.count"
	collectionKey  = "value"
	errorKey       = "error"
	errorDescKey   = "error_description"
)

// Response is one decoded HTTP exchange with the Graph API. It is immutable:
// every accessor derives its result from the body decoded at construction.
type Response struct {
	request *http.Request
	raw     string
	body    map[string]any
	status  int
	header  http.Header
}

// NewResponse decodes body and returns the Response. A body that is not a
// JSON object (malformed, empty, an array) decodes to the empty map; the
// raw string is always kept verbatim.
func NewResponse(req *http.Request, body string, status int, header http.Header) *Response {
	h := header.Clone()
	if h == nil {
		h = http.Header{}
	}

	return &Response{
		request: req,
		raw:     body,
		body:    decodeBody(body),
		status:  status,
		header:  h,
	}
}

// decodeBody parses raw as a single JSON object. Numbers are kept as
// json.Number so large IDs and sizes survive unchanged.
func decodeBody(raw string) map[string]any {
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()

	var m map[string]any
	if err := dec.Decode(&m); err != nil || m == nil {
		return map[string]any{}
	}

	// Trailing data after the object means the body was not one JSON value.
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return map[string]any{}
	}

	return m
}

// Body returns a shallow copy of the decoded body.
func (r *Response) Body() map[string]any {
	return maps.Clone(r.body)
}

// RawBody returns the body exactly as received.
func (r *Response) RawBody() string { return r.raw }

// Status returns the HTTP status code.
func (r *Response) Status() int { return r.status }

// Headers returns a copy of the response headers.
func (r *Response) Headers() http.Header { return r.header.Clone() }

// Request returns the request that produced this response. May be nil for
// responses built outside Client.
func (r *Response) Request() *http.Request { return r.request }

// NextLink returns @odata.nextLink. Absence means the collection is exhausted.
func (r *Response) NextLink() (string, bool) {
	return r.stringField(odataNextLink)
}

// DeltaLink returns @odata.deltaLink. Absence means more pages remain and
// NextLink must be followed instead.
func (r *Response) DeltaLink() (string, bool) {
	return r.stringField(odataDeltaLink)
}

// Count returns @odata.count, or 0 when the field is absent or not numeric.
func (r *Response) Count() int64 {
	n, ok := toInt64(r.body[odataCount])
	if !ok {
		return 0
	}

	return n
}

// ErrorObject returns the embedded error object, or nil when the body has
// no "error" key.
func (r *Response) ErrorObject() *ErrorBody {
	v, ok := r.body[errorKey]
	if !ok || v == nil {
		return nil
	}

	switch e := v.(type) {
	case map[string]any:
		code, _ := e["code"].(string)
		msg, _ := e["message"].(string)

		return &ErrorBody{Code: code, Message: msg, Raw: e}
	case string:
		desc, _ := r.body[errorDescKey].(string)

		return &ErrorBody{Code: e, Message: desc}
	default:
		return &ErrorBody{Code: fmt.Sprint(e)}
	}
}

func (r *Response) stringField(key string) (string, bool) {
	s, ok := r.body[key].(string)
	return s, ok
}

// Constructor builds a T from one decoded JSON value. Collection elements are
// passed as decoded (objects as map[string]any, scalars as string, bool or
// json.Number); a non-collection body is passed as map[string]any.
type Constructor[T any] func(elem any) (T, error)

// Objects is the result of Decode: either the elements of a "value"
// collection or exactly one object built from the whole body.
type Objects[T any] struct {
	Items        []T
	IsCollection bool
}

// Single returns the object of a non-collection response.
func (o Objects[T]) Single() (T, bool) {
	if o.IsCollection || len(o.Items) != 1 {
		var zero T
		return zero, false
	}

	return o.Items[0], true
}

// Decode applies construct to the response. When the body carries a "value"
// array every element is constructed (paged collections); otherwise a single
// object is constructed from the whole body (single entities).
func Decode[T any](r *Response, construct Constructor[T]) (Objects[T], error) {
	if values, ok := r.body[collectionKey].([]any); ok {
		items := make([]T, 0, len(values))

		for i, v := range values {
			item, err := construct(v)
			if err != nil {
				return Objects[T]{}, fmt.Errorf("graph: constructing collection element %d: %w", i, err)
			}

			items = append(items, item)
		}

		return Objects[T]{Items: items, IsCollection: true}, nil
	}

	item, err := construct(r.Body())
	if err != nil {
		return Objects[T]{}, fmt.Errorf("graph: constructing object: %w", err)
	}

	return Objects[T]{Items: []T{item}}, nil
}

// JSONConstructor returns a Constructor that re-encodes each value and
// unmarshals it into T using T's json tags.
func JSONConstructor[T any]() Constructor[T] {
	return func(elem any) (T, error) {
		var out T

		data, err := json.Marshal(elem)
		if err != nil {
			return out, fmt.Errorf("encoding value: %w", err)
		}

		if err := json.Unmarshal(data, &out); err != nil {
			return out, fmt.Errorf("decoding value into %T: %w", out, err)
		}

		return out, nil
	}
}

// toInt64 converts a decoded JSON number (json.Number or float64) to int64.
func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, true
		}

		f, err := n.Float64()
		if err != nil {
			return 0, false
		}

		return int64(f), true
	case float64:
		return int64(n), true
	case int64:
		return n, true
	case int:
		return int64(n), true
	default:
		return 0, false
	}
}
