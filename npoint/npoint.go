package npoint

import (
	"net/http"
	"reflect"
	"sync"

	"github.com/muir/ndispatch"
	"github.com/pkg/errors"
)

// Service allows a group of related endpoints to be started
// together. This form of service represents an already-started
// service that binds its endpoints using a simple binder like
// http.ServeMux.HandleFunc().
type Service struct {
	Name string
	*endpoints
}

// ServiceRegistration allows a group of related endpoints to be
// started together. This form of service represents a pre-registered
// service that binds its endpoints using a simple binder like
// http.ServeMux.HandleFunc().  None of the endpoints associated with
// this service will be bound until Start() is called.
type ServiceRegistration struct {
	Name    string
	started *Service
	*endpoints
}

// EndpointBinder is the signature of the binding function
// used to start a ServiceRegistration.
type EndpointBinder func(pattern string, fn func(http.ResponseWriter, *http.Request))

// EndpointRegistration is one handler that has been accepted by a
// service.  Its Dispatcher was built at registration time.
type EndpointRegistration struct {
	pattern    string
	dispatcher *ndispatch.Dispatcher
	target     interface{}
	finalFunc  http.HandlerFunc
	bound      bool
}

// Pattern is the pattern given to the EndpointBinder
func (ep *EndpointRegistration) Pattern() string { return ep.pattern }

// Dispatcher is how requests to this endpoint are handled
func (ep *EndpointRegistration) Dispatcher() *ndispatch.Dispatcher { return ep.dispatcher }

// Rejection records a handler that could not be dispatched and
// so was never bound.
type Rejection struct {
	Pattern string
	Handler string
	Err     error
}

// endpoints is shared by ServiceRegistration and the Service that
// Start returns.
type endpoints struct {
	name     string
	provider *ndispatch.Provider
	opts     options
	lock     sync.Mutex
	byPat    map[string]*EndpointRegistration
	order    []*EndpointRegistration
	rejected []Rejection
	binder   EndpointBinder
}

// PreregisterService creates a service that must be Start()ed later.
//
// Handlers registered with the service get their parameters from
// provider.  Dispatchers are built when a handler is registered but
// nothing is bound until Start.
//
// The name of the service is used for log messages and is otherwise
// ignored.
func PreregisterService(name string, provider *ndispatch.Provider, opts ...ServiceOpt) *ServiceRegistration {
	if provider == nil {
		panic("npoint: nil Provider")
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &ServiceRegistration{
		Name: name,
		endpoints: &endpoints{
			name:     name,
			provider: provider,
			opts:     o,
			byPat:    make(map[string]*EndpointRegistration),
		},
	}
}

// RegisterService creates a service and starts it immediately.
func RegisterService(name string, binder EndpointBinder, provider *ndispatch.Provider, opts ...ServiceOpt) *Service {
	sr := PreregisterService(name, provider, opts...)
	return sr.Start(binder)
}

// Start binds all endpoints pre-registered with this service, in the
// order they were registered.  Start() may only be called once.
func (s *ServiceRegistration) Start(binder EndpointBinder) *Service {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.started != nil {
		panic("duplicate call to Start()")
	}
	if binder == nil {
		panic("npoint: nil EndpointBinder")
	}
	s.binder = binder
	for _, ep := range s.order {
		ep.start(binder)
	}
	svc := &Service{
		Name:      s.Name,
		endpoints: s.endpoints,
	}
	s.started = svc
	return svc
}

func (ep *EndpointRegistration) start(binder EndpointBinder) {
	if ep.bound {
		return
	}
	ep.bound = true
	binder(ep.pattern, ep.finalFunc)
}

// RegisterEndpoint registers a method of resource.  The method is
// looked up on the dynamic type of resource, so for pointer-receiver
// methods resource must be a pointer.
//
// If the method cannot be dispatched, the registration is rejected:
// it is logged at Warn, remembered in Rejected(), never bound, and
// the error is returned.  Other endpoints are unaffected.
//
// If the service has already been started, the endpoint is bound
// immediately.
func (e *endpoints) RegisterEndpoint(pattern string, resource interface{}, method string) (*EndpointRegistration, error) {
	if resource == nil {
		return nil, errors.Errorf("%s %s: nil resource", e.name, pattern)
	}
	inv, err := ndispatch.MethodInvocable(reflect.TypeOf(resource), method)
	if err != nil {
		return nil, e.reject(pattern, method, err)
	}
	return e.register(pattern, inv, resource)
}

// RegisterFunc registers a plain function.  Otherwise it behaves
// like RegisterEndpoint.
func (e *endpoints) RegisterFunc(pattern string, name string, fn interface{}) (*EndpointRegistration, error) {
	inv, err := ndispatch.FuncInvocable(name, fn)
	if err != nil {
		return nil, e.reject(pattern, name, err)
	}
	return e.register(pattern, inv, nil)
}

// RegisterInvocable registers an already-described handler.  The
// target is the receiver passed to Dispatch and must be nil for
// Invocables without a receiver.
func (e *endpoints) RegisterInvocable(pattern string, inv *ndispatch.Invocable, target interface{}) (*EndpointRegistration, error) {
	if inv == nil {
		return nil, errors.Errorf("%s %s: nil Invocable", e.name, pattern)
	}
	return e.register(pattern, inv, target)
}

func (e *endpoints) register(pattern string, inv *ndispatch.Invocable, target interface{}) (*EndpointRegistration, error) {
	e.lock.Lock()
	defer e.lock.Unlock()
	if e.byPat[pattern] != nil {
		return nil, errors.Errorf("%s: endpoint pattern %s already registered", e.name, pattern)
	}
	d, err := e.provider.Bind(inv, e.opts.handler)
	if err != nil {
		return nil, e.rejectLocked(pattern, inv.Name(), err)
	}
	ep := &EndpointRegistration{
		pattern:    pattern,
		dispatcher: d,
		target:     target,
	}
	ep.finalFunc = e.opts.wrap(ep.serve(e.opts, e.name))
	e.byPat[pattern] = ep
	e.order = append(e.order, ep)
	if e.binder != nil {
		ep.start(e.binder)
	}
	return ep, nil
}

func (e *endpoints) reject(pattern string, handler string, err error) error {
	e.lock.Lock()
	defer e.lock.Unlock()
	return e.rejectLocked(pattern, handler, err)
}

func (e *endpoints) rejectLocked(pattern string, handler string, err error) error {
	e.opts.log.Warn("Cannot dispatch handler, endpoint not bound", map[string]interface{}{
		"service": e.name,
		"pattern": pattern,
		"handler": handler,
		"error":   ndispatch.DetailedError(err),
	})
	e.rejected = append(e.rejected, Rejection{
		Pattern: pattern,
		Handler: handler,
		Err:     err,
	})
	return errors.Wrapf(err, "%s %s", e.name, pattern)
}

// Rejected returns the registrations that could not be dispatched.
func (e *endpoints) Rejected() []Rejection {
	e.lock.Lock()
	defer e.lock.Unlock()
	return append([]Rejection(nil), e.rejected...)
}

// Endpoints returns the accepted registrations in the order they
// were registered.
func (e *endpoints) Endpoints() []*EndpointRegistration {
	e.lock.Lock()
	defer e.lock.Unlock()
	return append([]*EndpointRegistration(nil), e.order...)
}

// CreateEndpoint generates a http.HandlerFunc for one handler.  This
// bypasses Service and ServiceRegistration.  Unlike the service
// methods, a handler that cannot be dispatched is an error and nothing
// is logged.
func CreateEndpoint(provider *ndispatch.Provider, inv *ndispatch.Invocable, target interface{}, opts ...ServiceOpt) (http.HandlerFunc, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	d, err := provider.Bind(inv, o.handler)
	if err != nil {
		return nil, err
	}
	ep := &EndpointRegistration{
		dispatcher: d,
		target:     target,
	}
	return o.wrap(ep.serve(o, "createEndpoint")), nil
}
