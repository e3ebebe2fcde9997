package ndispatch

import (
	"github.com/pkg/errors"
)

// Provider creates Dispatchers.  It is the registration-time half of
// ndispatch: all the checking and selection happen here, once per
// handler, so that Dispatch has nothing left to decide.
type Provider struct {
	factory ValueProviderFactory
	handler InvocationHandler
}

// ProviderOpt are functional arguments for NewProvider
type ProviderOpt func(*Provider)

// WithDefaultInvocationHandler sets the InvocationHandler used when
// Create or Bind are given a nil one.  The default is DirectInvoker.
func WithDefaultInvocationHandler(h InvocationHandler) ProviderOpt {
	return func(p *Provider) {
		p.handler = h
	}
}

// NewProvider returns a Provider that gets parameter values from
// factory.
func NewProvider(factory ValueProviderFactory, opts ...ProviderOpt) *Provider {
	if factory == nil {
		panic("ndispatch: nil ValueProviderFactory")
	}
	p := &Provider{
		factory: factory,
		handler: DirectInvoker,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Create returns a Dispatcher for inv, or nil if inv cannot be
// dispatched because some of its parameters cannot be provided.
// Callers should treat nil as "this handler cannot be exposed".
// Use Bind to find out why.
func (p *Provider) Create(inv *Invocable, h InvocationHandler) *Dispatcher {
	d, _ := p.Bind(inv, h)
	return d
}

// Bind is Create with an explanation.  When the Dispatcher is nil,
// the error is ErrNoValueProviders, ErrProviderCount (both wrapped),
// or a *MissingDependencyError.
func (p *Provider) Bind(inv *Invocable, h InvocationHandler) (*Dispatcher, error) {
	if inv == nil {
		return nil, errors.New("nil Invocable")
	}
	providers := p.factory.CreateValueProviders(inv)
	if providers == nil {
		return nil, errors.Wrapf(ErrNoValueProviders, "cannot dispatch %s", inv.name)
	}
	var missing []MissingParameter
	for i, vp := range providers {
		if vp == nil {
			t := emptyInterfaceType
			if i < len(inv.in) {
				t = inv.in[i]
			}
			missing = append(missing, MissingParameter{Index: i, Type: t})
		}
	}
	if len(missing) != 0 {
		return nil, &MissingDependencyError{
			Handler: inv.name,
			Missing: missing,
		}
	}
	if len(providers) != len(inv.in) {
		return nil, errors.Wrapf(ErrProviderCount, "cannot dispatch %s: %d providers for %d parameters",
			inv.name, len(providers), len(inv.in))
	}
	if h == nil {
		h = p.handler
	}
	kind, passedOver := classify(inv)
	d := &Dispatcher{
		invocable:  inv,
		handler:    h,
		providers:  append([]ValueProvider(nil), providers...),
		kind:       kind,
		passedOver: passedOver,
	}
	if kind == TypedResult {
		d.entityType = inv.returnType
	}
	return d, nil
}
