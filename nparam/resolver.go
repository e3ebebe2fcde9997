package nparam

import (
	"context"
	"net/http"
	"net/url"
	"reflect"

	"github.com/muir/ndispatch"
	"github.com/muir/ndispatch/nvelope"
	"github.com/muir/reflectutils"
	"github.com/pkg/errors"
)

// Resolver is a ndispatch.ValueProviderFactory that gets parameter
// values from HTTP requests.  For each parameter type it tries, in
// order: providers added with WithProvider or Provide, constants added
// with WithValue, the built-in request types, and finally structs
// whose fields are tagged with the resolver's tag.
type Resolver struct {
	tag                string
	decoders           map[string]Decoder
	defaultContentType string
	providers          map[reflect.Type]ndispatch.ValueProvider
	constants          map[reflect.Type]reflect.Value
	log                nvelope.BasicLogger
}

var _ ndispatch.ValueProviderFactory = &Resolver{}

// ResolverOpt are functional arguments for NewResolver
type ResolverOpt func(*Resolver)

// WithTag overrides the tag used to find fields to fill.
// The default is "nparam".
func WithTag(tag string) ResolverOpt {
	return func(res *Resolver) {
		res.tag = tag
	}
}

// WithDecoder maps a content type (eg "application/json") to a
// decoder for "model" fields and "content=" tag options.
func WithDecoder(contentType string, decoder Decoder) ResolverOpt {
	return func(res *Resolver) {
		res.decoders[contentType] = decoder
	}
}

// WithDefaultContentType specifies which decoder to use for "model"
// fields when the request has no Content-Type.  The default is
// "application/json".
func WithDefaultContentType(contentType string) ResolverOpt {
	return func(res *Resolver) {
		res.defaultContentType = contentType
	}
}

// WithValue makes v available to every handler with a parameter of
// exactly v's type.
func WithValue(v interface{}) ResolverOpt {
	return func(res *Resolver) {
		rv := reflect.ValueOf(v)
		if !rv.IsValid() {
			return
		}
		res.constants[rv.Type()] = rv
	}
}

// WithProvider registers a ValueProvider for parameters of type t.
func WithProvider(t reflect.Type, vp ndispatch.ValueProvider) ResolverOpt {
	return func(res *Resolver) {
		res.providers[t] = vp
	}
}

// Provide registers a function that produces values of type T from
// requests.
//
//	nparam.Provide(func(r *http.Request) (User, error) {
//		return lookupUser(r.Header.Get("Authorization"))
//	})
func Provide[T any](fn func(r *http.Request) (T, error)) ResolverOpt {
	t := reflect.TypeFor[T]()
	return WithProvider(t, ndispatch.ValueProviderFunc(func(r *http.Request) (reflect.Value, error) {
		v, err := fn(r)
		if err != nil {
			return reflect.Value{}, err
		}
		rv := reflect.New(t).Elem()
		rv.Set(reflect.ValueOf(&v).Elem())
		return rv, nil
	}))
}

// WithLogger sets a logger to explain, at Debug level, why a
// parameter could not be resolved.
func WithLogger(log nvelope.BasicLogger) ResolverOpt {
	return func(res *Resolver) {
		res.log = log
	}
}

func NewResolver(opts ...ResolverOpt) *Resolver {
	res := &Resolver{
		tag:                "nparam",
		decoders:           make(map[string]Decoder),
		defaultContentType: "application/json",
		providers:          make(map[reflect.Type]ndispatch.ValueProvider),
		constants:          make(map[reflect.Type]reflect.Value),
		log:                nvelope.NoLogger(),
	}
	for ct, d := range defaultDecoders {
		res.decoders[ct] = d
	}
	for _, opt := range opts {
		opt(res)
	}
	return res
}

// CreateValueProviders implements ndispatch.ValueProviderFactory.
// Variadic handlers get nil: there is no way to know how many values
// to provide.
func (res *Resolver) CreateValueProviders(inv *ndispatch.Invocable) []ndispatch.ValueProvider {
	if inv.IsVariadic() {
		res.log.Debug("variadic handlers cannot be resolved", map[string]interface{}{
			"handler": inv.Name(),
		})
		return nil
	}
	providers := make([]ndispatch.ValueProvider, inv.NumIn())
	for i := range providers {
		t := inv.In(i)
		vp, err := res.Resolve(t)
		if err != nil {
			res.log.Debug("cannot resolve parameter", map[string]interface{}{
				"handler": inv.Name(),
				"index":   i,
				"type":    reflectutils.TypeName(t),
				"error":   err.Error(),
			})
			continue
		}
		providers[i] = vp
	}
	return providers
}

// ErrUnresolvable is returned by Resolve for types that no provider,
// value, built-in, or tagged struct covers.
var ErrUnresolvable = errors.New("no way to provide type")

// Resolve returns the ValueProvider used for parameters of type t.
func (res *Resolver) Resolve(t reflect.Type) (ndispatch.ValueProvider, error) {
	if vp, ok := res.providers[t]; ok {
		return vp, nil
	}
	if v, ok := res.constants[t]; ok {
		return ndispatch.ValueProviderFunc(func(*http.Request) (reflect.Value, error) {
			return v, nil
		}), nil
	}
	if vp, ok := builtins[t]; ok {
		return vp, nil
	}
	sd, err := res.newStructDecoder(t)
	if err != nil {
		return nil, err
	}
	if sd != nil {
		return sd, nil
	}
	return nil, errors.Wrap(ErrUnresolvable, reflectutils.TypeName(t))
}

var builtins = map[reflect.Type]ndispatch.ValueProvider{
	reflect.TypeFor[context.Context](): ndispatch.ValueProviderFunc(func(r *http.Request) (reflect.Value, error) {
		return reflect.ValueOf(r.Context()), nil
	}),
	reflect.TypeFor[*http.Request](): ndispatch.ValueProviderFunc(func(r *http.Request) (reflect.Value, error) {
		return reflect.ValueOf(r), nil
	}),
	reflect.TypeFor[http.Header](): ndispatch.ValueProviderFunc(func(r *http.Request) (reflect.Value, error) {
		return reflect.ValueOf(r.Header), nil
	}),
	reflect.TypeFor[url.Values](): ndispatch.ValueProviderFunc(func(r *http.Request) (reflect.Value, error) {
		return reflect.ValueOf(r.URL.Query()), nil
	}),
	reflect.TypeFor[*url.URL](): ndispatch.ValueProviderFunc(func(r *http.Request) (reflect.Value, error) {
		return reflect.ValueOf(r.URL), nil
	}),
	reflect.TypeFor[Body](): ndispatch.ValueProviderFunc(func(r *http.Request) (reflect.Value, error) {
		body, err := readBody(r)
		if err != nil {
			return reflect.Value{}, errors.Wrap(nvelope.BadRequest(err), "read body")
		}
		return reflect.ValueOf(body), nil
	}),
}
