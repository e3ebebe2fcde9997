package npoint

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/muir/ndispatch/nvelope"
)

type requestIDKey struct{}

// RequestID returns the id of the request being served, or "" when
// ctx is not from a request served by npoint.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// serve is the request-time half of an endpoint.  Output goes to a
// DeferredWriter so that a panic after the encoder has started
// writing can still become a clean 500.
func (ep *EndpointRegistration) serve(o options, service string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		id := r.Header.Get(o.requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		r = r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id))

		dw := nvelope.NewDeferredWriter(w)
		dw.Header().Set(o.requestIDHeader, id)
		dw.PreserveHeader()

		err := nvelope.Capture(o.log, func() error {
			resp, err := ep.dispatcher.Dispatch(ep.target, r)
			o.encoder(dw, r, o.log, resp, err)
			return nil
		})
		if err != nil {
			_ = dw.Reset()
			dw.WriteHeader(http.StatusInternalServerError)
			_, _ = dw.Write([]byte(http.StatusText(http.StatusInternalServerError)))
		}
		status := dw.Status()
		if status == 0 {
			status = http.StatusOK
		}
		if err := dw.Flush(); err != nil {
			o.log.Warn("Cannot write response", map[string]interface{}{
				"error":      err.Error(),
				"method":     r.Method,
				"uri":        r.URL.String(),
				"request-id": id,
			})
		}
		o.log.Debug("Request served", map[string]interface{}{
			"service":    service,
			"pattern":    ep.pattern,
			"method":     r.Method,
			"uri":        r.URL.String(),
			"status":     status,
			"duration":   time.Since(start).String(),
			"request-id": id,
		})
	}
}
