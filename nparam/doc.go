/*
Package nparam supplies handler parameters from HTTP requests.

A Resolver is a ndispatch.ValueProviderFactory.  Parameters can be
request parts (context.Context, *http.Request, http.Header, url.Values,
*url.URL, Body), values registered with WithValue or Provide, or structs
whose fields say where their values come from:

	type GetItemRequest struct {
		ID      int      `nparam:"path,name=id"`
		Fields  []string `nparam:"query,name=fields,explode=false"`
		Trace   string   `nparam:"header,name=X-Trace"`
		Session string   `nparam:"cookie,name=session"`
	}

	type CreateItemRequest struct {
		Item  Item   `nparam:"model"`
		Owner string `nparam:"json,name=item.owner.name"`
	}

Path values come from http.Request.PathValue so patterns must be
registered with a net/http ServeMux.  "model" fields are decoded
according to the request's Content-Type.  "json" fields are picked
out of a JSON body with a gjson path.  Any field can also be given
"content=application/json" (or another registered type) to decode its
raw string.

Decoding failures are returned as nvelope.BadRequest errors.  Types
that cannot be resolved, including structs with bad tags, leave a nil
ValueProvider so ndispatch refuses to dispatch the handler.
*/
package nparam
