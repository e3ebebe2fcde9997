// Stuff

/*

Package npoint exposes handlers as HTTP endpoints using the dispatch
selection of ndispatch.

Services

A service is a group of endpoints that share a Provider, an encoder,
a logger, and middleware.  RegisterService binds endpoints as they are
registered.  PreregisterService collects registrations so that they
can be made next to the code that implements them, even across
packages, and binds them all when Start is called.

	svc := npoint.PreregisterService("items",
		ndispatch.NewProvider(nparam.NewResolver()),
		npoint.WithLogger(log))

	svc.RegisterEndpoint("GET /items/{id}", items, "Get")
	svc.RegisterEndpoint("DELETE /items/{id}", items, "Delete")

	mux := http.NewServeMux()
	svc.Start(mux.HandleFunc)

Rejection

Every handler is checked when it is registered.  A handler whose
parameters cannot all be provided is rejected: the problem is logged
at Warn level, the registration shows up in Rejected(), and it is
never bound.  The rest of the service is unaffected.

Requests

Each request is given a request id (taken from the X-Request-Id
header if present) which is echoed in the response and available
from RequestID.  The response is buffered in a nvelope.DeferredWriter
until the encoder has finished so that a panic can still be answered
with a 500.  Every request is logged at Debug level.

*/
package npoint
