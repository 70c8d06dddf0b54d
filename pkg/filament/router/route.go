package router

import (
	"github.com/yourusername/filament/pkg/filament/http1"
	"github.com/yourusername/filament/pkg/filament/mime"
	"github.com/yourusername/filament/pkg/filament/websocket"
)

// Endpoint is the terminal callable of a matched route. Endpoints must be
// safe for concurrent invocation; one endpoint value serves every
// connection.
type Endpoint func(*http1.RequestContext) (*http1.Response, error)

// RequestFilter runs before an endpoint (either pre-routing or per-route).
// Returning a non-nil response short-circuits the chain; returning an error
// aborts the request.
type RequestFilter func(*http1.RequestContext) (*http1.Response, error)

// ResponseFilter may rewrite the response after the endpoint ran.
type ResponseFilter func(*http1.RequestContext, *http1.Response) (*http1.Response, error)

// WebSocketEndpoint receives the upgraded session halves. It runs on the
// connection's thread; when it returns, the session is closed.
type WebSocketEndpoint func(*http1.RequestContext, *websocket.Receiver, *websocket.Sender)

// Route binds a pattern (plus optional method and media-type constraints)
// to an endpoint. Built via the App methods; immutable after Build.
type Route struct {
	pattern  *Pattern
	raw      string
	method   *http1.Method
	consumes []mime.MediaType
	produces []mime.MediaType
	filters  []RequestFilter
	endpoint Endpoint
	cors     *CORS

	err error // first configuration error, surfaced at Build
}

// Consumes restricts the request Content-Type; requests outside the set
// are answered 415.
func (r *Route) Consumes(types ...mime.MediaType) *Route {
	r.consumes = append(r.consumes, types...)
	return r
}

// Produces declares the media types the endpoint can emit; requests whose
// Accept admits none of them are answered 406.
func (r *Route) Produces(types ...mime.MediaType) *Route {
	r.produces = append(r.produces, types...)
	return r
}

// Filter appends a per-route request filter.
func (r *Route) Filter(f RequestFilter) *Route {
	r.filters = append(r.filters, f)
	return r
}

// WithCORS sets the CORS config for this route only.
func (r *Route) WithCORS(c *CORS) *Route {
	r.cors = c
	return r
}

// Endpoint sets the terminal handler.
func (r *Route) Endpoint(e Endpoint) *Route {
	r.endpoint = e
	return r
}

// Pattern returns the pattern string as registered.
func (r *Route) Pattern() string { return r.raw }

// sameConstraints reports whether two routes are duplicates: equal pattern,
// method, consumes and produces.
func (r *Route) sameConstraints(o *Route) bool {
	if r.raw != o.raw {
		return false
	}
	if (r.method == nil) != (o.method == nil) {
		return false
	}
	if r.method != nil && *r.method != *o.method {
		return false
	}
	return sameTypeSet(r.consumes, o.consumes) && sameTypeSet(r.produces, o.produces)
}

func sameTypeSet(a, b []mime.MediaType) bool {
	if len(a) != len(b) {
		return false
	}
	for _, t := range a {
		found := false
		for _, u := range b {
			if t == u {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// WebSocketRoute binds a pattern to a websocket endpoint. It only matches
// upgrade requests.
type WebSocketRoute struct {
	pattern  *Pattern
	raw      string
	endpoint WebSocketEndpoint
}

// Pattern returns the pattern string as registered.
func (r *WebSocketRoute) Pattern() string { return r.raw }

// Handler returns the registered endpoint.
func (r *WebSocketRoute) Handler() WebSocketEndpoint { return r.endpoint }
