// Obligatory // comment

/*

Package ndispatch decides, once per handler, how that handler will be
called and how its return value becomes an HTTP response.

Two phases

At registration time a Provider looks at a handler (an Invocable) and
builds a Dispatcher.  It asks a ValueProviderFactory for one
ValueProvider per parameter.  If any parameter cannot be provided the
handler cannot be dispatched: Create returns nil and Bind returns an
error that says which parameters are missing.

At request time Dispatcher.Dispatch asks every ValueProvider for a
fresh value, calls the handler through an InvocationHandler, and
converts what the handler returned into a *nvelope.Response.

Kinds

The conversion is picked from the declared return type alone, checking
in this order:

	*nvelope.Response         ResponseResult  returned as-is
	nothing (or just error)   VoidResult      204 No Content
	interface{}, GenericEntity ObjectResult   a *nvelope.Response passes
	                                          through, nil is 204, anything
	                                          else is 200 with the value
	anything else             TypedResult     nil is 204, anything else is
	                                          200 with the value

For example, given

	type Items struct{ db *sql.DB }

	func (it *Items) Get(id ItemID) (*Item, error)
	func (it *Items) Delete(id ItemID) error
	func (it *Items) Search(q Query) (interface{}, error)
	func (it *Items) Create(body NewItem) (*nvelope.Response, error)

Get is a TypedResult, Delete a VoidResult, Search an ObjectResult, and
Create a ResponseResult.

Handlers may return a trailing error.  A non-nil error, or a panic,
becomes a *ProcessingError and is returned by Dispatch without a
response.  Nothing in this package logs or retries.

Dispatchers are immutable and safe for concurrent use.

Package nparam provides a ValueProviderFactory for HTTP requests and
package npoint registers Dispatchers as HTTP endpoints.

*/
package ndispatch
