/*

Package nvelope is the response envelope used by ndispatch and npoint.

Every dispatched handler produces a *Response: a status, optional
headers, and an optional entity.  Handlers may build one themselves
with NoContent, OK, or NewResponse, or they may return a plain value and
let ndispatch wrap it.

GenericEntity marks a value that carries its own type information.  It
is passed through to the encoder as an entity and unwrapped there.

The response encoders (EncodeJSON, EncodeXML, EncodeYAML, or your own
from MakeResponseEncoder) turn a *Response or an error into bytes on an
http.ResponseWriter.  Errors are sent with the HTTP status code found by
GetReturnCode.

NotFound, Forbidden, Unauthorized, and BadRequest provide easy ways to
annotate an error return to cause a specific HTTP error code to be sent.

DeferredWriter allows output to be buffered and then abandoned.

SetErrorOnPanic makes it easy to turn panics into error returns.

*/
package nvelope
