package npoint

import (
	"net/http"

	"github.com/muir/ndispatch/nvelope"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"
)

// Middleware is the usual wrapping pattern for http handlers.  Any
// middleware written for net/http can be used with WithMiddleware.
type Middleware func(http.HandlerFunc) http.HandlerFunc

// ErrRateLimited is sent, with status 429, to requests refused by
// WithRateLimit.
var ErrRateLimited = errors.New("rate limit exceeded")

func combineMiddleware(m []Middleware) Middleware {
	switch len(m) {
	case 0:
		return func(h http.HandlerFunc) http.HandlerFunc {
			return h
		}
	case 1:
		return m[0]
	default:
		combined := m[len(m)-1]
		for i := len(m) - 2; i >= 0; i-- {
			f := m[i]
			c := combined
			combined = func(h http.HandlerFunc) http.HandlerFunc {
				return f(c(h))
			}
		}
		return combined
	}
}

func rateLimit(limiter *rate.Limiter, encoder nvelope.Encoder, log nvelope.BasicLogger) Middleware {
	return func(h http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				encoder(w, r, log, nil, nvelope.ReturnCode(ErrRateLimited, http.StatusTooManyRequests))
				return
			}
			h(w, r)
		}
	}
}
