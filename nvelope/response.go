package nvelope

import (
	"net/http"
	"reflect"
)

// Response is the value produced by every dispatch.  An Entity of nil
// means there is no body to encode.
type Response struct {
	Status int
	Header http.Header
	Entity interface{}
}

// NoContent builds a 204 response with no entity.
func NoContent() *Response {
	return &Response{Status: http.StatusNoContent}
}

// OK builds a 200 response that carries entity.
func OK(entity interface{}) *Response {
	return &Response{Status: http.StatusOK, Entity: entity}
}

// NewResponse builds a response with an arbitrary status.
func NewResponse(status int, entity interface{}) *Response {
	return &Response{Status: status, Entity: entity}
}

// WithHeader adds a header value to the response.  It returns the
// same response so that calls can be chained.
func (r *Response) WithHeader(key, value string) *Response {
	if r.Header == nil {
		r.Header = make(http.Header)
	}
	r.Header.Add(key, value)
	return r
}

// GenericEntity is an entity together with an explicit type.  Handlers
// that return GenericEntity are treated like handlers that return
// interface{}: the value is wrapped in an OK response unless it is
// already a *Response.
type GenericEntity struct {
	Value interface{}
	Type  reflect.Type
}

// NewGenericEntity pairs v with t.  If t is nil, the dynamic type
// of v is used.
func NewGenericEntity(v interface{}, t reflect.Type) GenericEntity {
	if t == nil && v != nil {
		t = reflect.TypeOf(v)
	}
	return GenericEntity{Value: v, Type: t}
}

// Entity builds a GenericEntity whose type is the static type T rather
// than the dynamic type of v.  This matters when T is an interface.
func Entity[T any](v T) GenericEntity {
	return GenericEntity{Value: v, Type: reflect.TypeFor[T]()}
}

// unwrapEntity returns the value that should actually be encoded.
func unwrapEntity(entity interface{}) interface{} {
	switch ge := entity.(type) {
	case GenericEntity:
		return ge.Value
	case *GenericEntity:
		if ge == nil {
			return nil
		}
		return ge.Value
	default:
		return entity
	}
}
