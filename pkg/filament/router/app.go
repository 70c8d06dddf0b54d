package router

import (
	"github.com/yourusername/filament/pkg/filament/http1"
)

// App is a host-scoped bundle of routes, filters and CORS config: requests
// whose Host header matches the app's host glob are routed inside it.
//
// Apps are mutable while routes are being registered and frozen by Build.
type App struct {
	host            string
	routes          []*Route
	wsRoutes        []*WebSocketRoute
	cors            *CORS
	preRouting      []RequestFilter
	responseFilters []ResponseFilter
}

// NewApp creates a sub-app for the given host glob. "*" serves any host.
func NewApp(host string) *App {
	if host == "" {
		host = "*"
	}
	return &App{host: host}
}

// Host returns the host glob.
func (a *App) Host() string { return a.host }

// Route registers a route matching any method. Returns the Route for
// chained configuration; set the handler with Endpoint.
func (a *App) Route(pattern string) *Route {
	r := &Route{raw: pattern}
	r.pattern, r.err = CompilePattern(pattern)
	if a.cors != nil {
		r.cors = a.cors
	}
	a.routes = append(a.routes, r)
	return r
}

func (a *App) methodRoute(m http1.Method, pattern string) *Route {
	r := a.Route(pattern)
	r.method = &m
	return r
}

// Get registers a GET route.
func (a *App) Get(pattern string) *Route { return a.methodRoute(http1.MethodGet, pattern) }

// Post registers a POST route.
func (a *App) Post(pattern string) *Route { return a.methodRoute(http1.MethodPost, pattern) }

// Put registers a PUT route.
func (a *App) Put(pattern string) *Route { return a.methodRoute(http1.MethodPut, pattern) }

// Delete registers a DELETE route.
func (a *App) Delete(pattern string) *Route { return a.methodRoute(http1.MethodDelete, pattern) }

// Options registers an OPTIONS route.
func (a *App) Options(pattern string) *Route { return a.methodRoute(http1.MethodOptions, pattern) }

// Method registers a route for an arbitrary method token.
func (a *App) Method(m http1.Method, pattern string) *Route { return a.methodRoute(m, pattern) }

// WebSocket registers a websocket route. It matches only upgrade requests.
func (a *App) WebSocket(pattern string, endpoint WebSocketEndpoint) *App {
	r := &WebSocketRoute{raw: pattern, endpoint: endpoint}
	r.pattern, _ = CompilePattern(pattern)
	a.wsRoutes = append(a.wsRoutes, r)
	return a
}

// PreRoutingFilter appends a filter that runs before route selection and
// may mutate the head or short-circuit with a response.
func (a *App) PreRoutingFilter(f RequestFilter) *App {
	a.preRouting = append(a.preRouting, f)
	return a
}

// ResponseFilter appends a filter that runs after the endpoint and may
// rewrite the response.
func (a *App) ResponseFilter(f ResponseFilter) *App {
	a.responseFilters = append(a.responseFilters, f)
	return a
}

// WithCORS sets the app-wide CORS config. It applies to existing and
// future routes that have no route-level config of their own.
func (a *App) WithCORS(c *CORS) *App {
	prev := a.cors
	a.cors = c
	for _, r := range a.routes {
		if r.cors == nil || r.cors == prev {
			r.cors = c
		}
	}
	return a
}
