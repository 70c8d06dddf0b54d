package router

import (
	"fmt"

	"github.com/yourusername/filament/pkg/filament/http1"
	"github.com/yourusername/filament/pkg/filament/mime"
	"github.com/yourusername/filament/pkg/filament/websocket"
)

// Router is the immutable routing table of a built server. It is shared
// read-only across every connection; no locking is needed after Build.
type Router struct {
	apps []*App
}

// Build validates and freezes the sub-apps. Two routes in one app with
// equal pattern, method, consumes and produces are rejected as duplicates.
func Build(apps ...*App) (*Router, error) {
	if len(apps) == 0 {
		apps = []*App{NewApp("*")}
	}
	for _, app := range apps {
		for i, r := range app.routes {
			if r.err != nil {
				return nil, r.err
			}
			if r.endpoint == nil {
				return nil, fmt.Errorf("router: route %q has no endpoint", r.raw)
			}
			for _, prev := range app.routes[:i] {
				if r.sameConstraints(prev) {
					return nil, fmt.Errorf("router: duplicate route %q in host %q", r.raw, app.host)
				}
			}
		}
		for _, r := range app.wsRoutes {
			if r.pattern == nil {
				return nil, fmt.Errorf("router: invalid websocket pattern %q", r.raw)
			}
			if r.endpoint == nil {
				return nil, fmt.Errorf("router: websocket route %q has no endpoint", r.raw)
			}
		}
	}
	return &Router{apps: apps}, nil
}

// SelectApp picks the sub-app for a Host header value: the matching glob
// with the longest literal prefix wins, first registered breaking ties.
func (r *Router) SelectApp(host string) *App {
	var best *App
	bestLen := -1
	for _, app := range r.apps {
		if !globMatch(app.host, host) {
			continue
		}
		if l := literalPrefixLen(app.host); l > bestLen {
			best, bestLen = app, l
		}
	}
	return best
}

// Match is the outcome of route selection.
type Match struct {
	// Route is the matched HTTP route (nil for websocket or preflight).
	Route *Route
	// WebSocket is the matched websocket route.
	WebSocket *WebSocketRoute
	// Preflight is a synthesized CORS preflight response.
	Preflight *http1.Response
	// ContentType is the negotiated response media type when the route
	// declares produces.
	ContentType *mime.MediaType
	// FailStatus is non-zero when nothing matched: 404, 405, 415 or 406.
	FailStatus int
}

// SelectRoute routes a request within the app. Path parameters of the
// winning route are committed to the context.
func (a *App) SelectRoute(ctx *http1.RequestContext) Match {
	head := ctx.Head()

	// Upgrade requests try the websocket table first.
	if websocket.IsUpgrade(head) {
		for _, r := range a.wsRoutes {
			if r.pattern.Match(head.Path(), ctx.SetParam) {
				ctx.SetRoutePattern(r.raw)
				return Match{WebSocket: r}
			}
		}
	}

	// CORS preflight is synthesized from the first route whose pattern
	// matches and whose config is enabled.
	if head.Method() == http1.MethodOptions {
		if _, hasReqMethod := head.Header("Access-Control-Request-Method"); hasReqMethod {
			for _, r := range a.routes {
				if r.cors != nil && r.pattern.Match(head.Path(), nil) {
					return Match{Preflight: r.cors.preflight(ctx)}
				}
			}
		}
	}

	// Failure specificity: a route that matched the pattern but failed a
	// later check reports the later status.
	const (
		failPattern = iota
		failMethod
		failConsumes
		failProduces
	)
	failRank := -1
	fail := http1.StatusNotFound

	for _, r := range a.routes {
		if !r.pattern.Match(head.Path(), nil) {
			continue
		}
		if r.method != nil && *r.method != head.Method() {
			if failRank < failMethod {
				failRank, fail = failMethod, http1.StatusMethodNotAllowed
			}
			continue
		}
		if len(r.consumes) > 0 {
			ct, ok := head.ContentType()
			if !ok || !typeInSet(ct, r.consumes) {
				if failRank < failConsumes {
					failRank, fail = failConsumes, http1.StatusUnsupportedMedia
				}
				continue
			}
		}
		var negotiated *mime.MediaType
		if len(r.produces) > 0 {
			best, ok := mime.BestMatch(head.Accept(), r.produces)
			if !ok {
				if failRank < failProduces {
					failRank, fail = failProduces, http1.StatusNotAcceptable
				}
				continue
			}
			negotiated = &best
		}

		// Winner: commit captures. First registered wins ties, so this is
		// the first route reaching here.
		r.pattern.Match(head.Path(), ctx.SetParam)
		ctx.SetRoutePattern(r.raw)
		return Match{Route: r, ContentType: negotiated}
	}

	return Match{FailStatus: fail}
}

func typeInSet(t mime.MediaType, set []mime.MediaType) bool {
	for _, s := range set {
		if s.Includes(t) {
			return true
		}
	}
	return false
}

// RunPreRouting executes the app's pre-routing filters in order. A non-nil
// response short-circuits.
func (a *App) RunPreRouting(ctx *http1.RequestContext) (*http1.Response, error) {
	for _, f := range a.preRouting {
		resp, err := f(ctx)
		if err != nil || resp != nil {
			return resp, err
		}
	}
	return nil, nil
}

// RunRouteFilters executes the matched route's filters in order.
func (m Match) RunRouteFilters(ctx *http1.RequestContext) (*http1.Response, error) {
	if m.Route == nil {
		return nil, nil
	}
	for _, f := range m.Route.filters {
		resp, err := f(ctx)
		if err != nil || resp != nil {
			return resp, err
		}
	}
	return nil, nil
}

// RunEndpoint executes the endpoint and applies CORS decoration plus the
// negotiated Content-Type when the endpoint did not set one.
func (m Match) RunEndpoint(ctx *http1.RequestContext) (*http1.Response, error) {
	resp, err := m.Route.endpoint(ctx)
	if err != nil || resp == nil {
		return resp, err
	}
	if m.ContentType != nil && resp.Body.Kind() != http1.BodyEmpty {
		if _, has := resp.Header("Content-Type"); !has {
			resp.WithContentType(*m.ContentType)
		}
	}
	if m.Route.cors != nil {
		m.Route.cors.decorate(ctx, resp)
	}
	return resp, nil
}

// RunResponseFilters executes the app's response filters in order; each may
// replace the response.
func (a *App) RunResponseFilters(ctx *http1.RequestContext, resp *http1.Response) (*http1.Response, error) {
	for _, f := range a.responseFilters {
		next, err := f(ctx, resp)
		if err != nil {
			return resp, err
		}
		if next != nil {
			resp = next
		}
	}
	return resp, nil
}
