package npoint

import (
	"net/http"

	"github.com/muir/ndispatch"
	"github.com/muir/ndispatch/nvelope"
	"golang.org/x/time/rate"
)

// ServiceOpt are functional arguments for PreregisterService,
// RegisterService, and CreateEndpoint
type ServiceOpt func(*options)

type options struct {
	encoder         nvelope.Encoder
	log             nvelope.BasicLogger
	handler         ndispatch.InvocationHandler
	middleware      []Middleware
	limiter         *rate.Limiter
	requestIDHeader string
}

func defaultOptions() options {
	return options{
		encoder:         nvelope.EncodeJSON,
		log:             nvelope.NoLogger(),
		requestIDHeader: "X-Request-Id",
	}
}

// WithEncoder sets how responses and errors are written.  The
// default is nvelope.EncodeJSON.
func WithEncoder(encoder nvelope.Encoder) ServiceOpt {
	return func(o *options) {
		o.encoder = encoder
	}
}

// WithLogger sets the logger for rejected registrations, failed
// requests, and per-request Debug lines.
func WithLogger(log nvelope.BasicLogger) ServiceOpt {
	return func(o *options) {
		o.log = log
	}
}

// WithInvocationHandler overrides the Provider's default
// InvocationHandler for the endpoints of this service.
func WithInvocationHandler(h ndispatch.InvocationHandler) ServiceOpt {
	return func(o *options) {
		o.handler = h
	}
}

// WithMiddleware adds standard wrapping middleware around every
// endpoint.  The first middleware given is the outermost.
func WithMiddleware(m ...Middleware) ServiceOpt {
	return func(o *options) {
		o.middleware = append(o.middleware, m...)
	}
}

// WithRateLimit shares a token bucket between all the endpoints of
// the service.  Requests that arrive when the bucket is empty are
// answered with 429 Too Many Requests.
func WithRateLimit(limit rate.Limit, burst int) ServiceOpt {
	return func(o *options) {
		o.limiter = rate.NewLimiter(limit, burst)
	}
}

// WithRequestIDHeader sets the header used to receive and echo
// request ids.  The default is X-Request-Id.
func WithRequestIDHeader(name string) ServiceOpt {
	return func(o *options) {
		o.requestIDHeader = http.CanonicalHeaderKey(name)
	}
}

func (o options) wrap(h http.HandlerFunc) http.HandlerFunc {
	m := o.middleware
	if o.limiter != nil {
		m = append(m[:len(m):len(m)], rateLimit(o.limiter, o.encoder, o.log))
	}
	return combineMiddleware(m)(h)
}
