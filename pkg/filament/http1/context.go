package http1

import (
	"github.com/yourusername/filament/pkg/filament"
)

// RequestContext is the per-request value handed to filters and endpoints:
// the parsed head, the optional body, the peer address, the path parameters
// captured by the router, and a free-form extension map.
//
// One context exists per request and is passed by pointer; it is never
// shared across requests or retained by the core after the response is
// flushed.
type RequestContext struct {
	id   filament.ID
	head *RequestHead
	body *BodyReader
	peer string

	params       map[string]string
	values       map[string]any
	routePattern string
}

// NewRequestContext builds a context. body may be nil.
func NewRequestContext(head *RequestHead, body *BodyReader, peer string) *RequestContext {
	return &RequestContext{
		id:   filament.NextID(),
		head: head,
		body: body,
		peer: peer,
	}
}

// ID returns the process-unique request id.
func (c *RequestContext) ID() filament.ID { return c.id }

// Head returns the request head.
func (c *RequestContext) Head() *RequestHead { return c.head }

// Body returns the body reader, or nil when the request has none.
func (c *RequestContext) Body() *BodyReader { return c.body }

// Peer returns the remote address of the connection.
func (c *RequestContext) Peer() string { return c.peer }

// Param returns a captured path parameter.
func (c *RequestContext) Param(name string) (string, bool) {
	v, ok := c.params[name]
	return v, ok
}

// SetParam stores a path parameter; the router calls this on match.
func (c *RequestContext) SetParam(name, value string) {
	if c.params == nil {
		c.params = make(map[string]string, 4)
	}
	c.params[name] = value
}

// Params returns the parameter map (nil when no parameters were captured).
func (c *RequestContext) Params() map[string]string { return c.params }

// Value returns an application extension value.
func (c *RequestContext) Value(key string) (any, bool) {
	v, ok := c.values[key]
	return v, ok
}

// SetValue stores an application extension value. Filters use this to pass
// state to endpoints.
func (c *RequestContext) SetValue(key string, value any) {
	if c.values == nil {
		c.values = make(map[string]any, 4)
	}
	c.values[key] = value
}

// RoutePattern returns the pattern of the matched route ("" before routing).
func (c *RequestContext) RoutePattern() string { return c.routePattern }

// SetRoutePattern records the matched pattern; the router calls this.
func (c *RequestContext) SetRoutePattern(p string) { c.routePattern = p }
