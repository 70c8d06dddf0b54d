package router

import (
	"bufio"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/filament/pkg/filament/http1"
	"github.com/yourusername/filament/pkg/filament/mime"
)

func ctxFor(t *testing.T, raw string) *http1.RequestContext {
	t.Helper()
	head, err := http1.ReadHead(bufio.NewReader(strings.NewReader(raw)), 0, nil)
	require.NoError(t, err)
	return http1.NewRequestContext(head, nil, "test:0")
}

func okEndpoint(*http1.RequestContext) (*http1.Response, error) {
	return http1.OK(http1.BodyFromString("ok")), nil
}

func TestSelectRouteInsertionOrder(t *testing.T) {
	app := NewApp("*")
	app.Get("/a/{p}").Endpoint(func(*http1.RequestContext) (*http1.Response, error) {
		return http1.OK(http1.BodyFromString("first")), nil
	})
	app.Get("/a/b").Endpoint(okEndpoint)
	_, err := Build(app)
	require.NoError(t, err)

	ctx := ctxFor(t, "GET /a/b HTTP/1.1\r\n\r\n")
	m := app.SelectRoute(ctx)
	require.NotNil(t, m.Route)
	assert.Equal(t, "/a/{p}", m.Route.Pattern())

	p, _ := ctx.Param("p")
	assert.Equal(t, "b", p)
	assert.Equal(t, "/a/{p}", ctx.RoutePattern())
}

func TestSelectRouteFailures(t *testing.T) {
	app := NewApp("*")
	app.Get("/json").
		Consumes(mime.ApplicationJSON).
		Produces(mime.ApplicationJSON).
		Endpoint(okEndpoint)
	_, err := Build(app)
	require.NoError(t, err)

	// No pattern matches at all.
	m := app.SelectRoute(ctxFor(t, "GET /missing HTTP/1.1\r\n\r\n"))
	assert.Equal(t, http1.StatusNotFound, m.FailStatus)

	// Pattern matched, method did not.
	m = app.SelectRoute(ctxFor(t, "POST /json HTTP/1.1\r\nContent-Type: application/json\r\n\r\n"))
	assert.Equal(t, http1.StatusMethodNotAllowed, m.FailStatus)

	// Method matched, Content-Type outside consumes.
	m = app.SelectRoute(ctxFor(t, "GET /json HTTP/1.1\r\nContent-Type: text/plain\r\n\r\n"))
	assert.Equal(t, http1.StatusUnsupportedMedia, m.FailStatus)

	// Accept admits none of produces.
	m = app.SelectRoute(ctxFor(t, "GET /json HTTP/1.1\r\nContent-Type: application/json\r\nAccept: text/html\r\n\r\n"))
	assert.Equal(t, http1.StatusNotAcceptable, m.FailStatus)
}

func TestNegotiatedContentType(t *testing.T) {
	app := NewApp("*")
	app.Get("/data").
		Produces(mime.TextPlain, mime.ApplicationJSON).
		Endpoint(okEndpoint)
	_, err := Build(app)
	require.NoError(t, err)

	ctx := ctxFor(t, "GET /data HTTP/1.1\r\nAccept: application/json;q=0.9, text/plain;q=0.2\r\n\r\n")
	m := app.SelectRoute(ctx)
	require.NotNil(t, m.Route)
	require.NotNil(t, m.ContentType)
	assert.Equal(t, mime.ApplicationJSON, *m.ContentType)

	resp, err := m.RunEndpoint(ctx)
	require.NoError(t, err)
	ct, _ := resp.Header("Content-Type")
	assert.Equal(t, "application/json", ct)
}

func TestDuplicateRoutesRejected(t *testing.T) {
	app := NewApp("*")
	app.Get("/dup").Endpoint(okEndpoint)
	app.Get("/dup").Endpoint(okEndpoint)
	_, err := Build(app)
	assert.Error(t, err)

	// Same pattern with a different method is not a duplicate.
	app = NewApp("*")
	app.Get("/dup").Endpoint(okEndpoint)
	app.Post("/dup").Endpoint(okEndpoint)
	_, err = Build(app)
	assert.NoError(t, err)

	// Different produces sets are distinct routes too.
	app = NewApp("*")
	app.Get("/dup").Produces(mime.TextPlain).Endpoint(okEndpoint)
	app.Get("/dup").Produces(mime.ApplicationJSON).Endpoint(okEndpoint)
	_, err = Build(app)
	assert.NoError(t, err)
}

func TestMissingEndpointRejected(t *testing.T) {
	app := NewApp("*")
	app.Get("/nothing")
	_, err := Build(app)
	assert.Error(t, err)
}

func TestSelectAppByHost(t *testing.T) {
	anyHost := NewApp("*")
	anyHost.Get("/").Endpoint(okEndpoint)
	api := NewApp("api.example.com")
	api.Get("/").Endpoint(okEndpoint)
	wildcard := NewApp("*.example.com")
	wildcard.Get("/").Endpoint(okEndpoint)

	r, err := Build(anyHost, api, wildcard)
	require.NoError(t, err)

	// Longest literal prefix wins.
	assert.Same(t, api, r.SelectApp("api.example.com"))
	assert.Same(t, anyHost, r.SelectApp("other.org"))
	// "*" and "*.example.com" both have an empty literal prefix; the tie
	// goes to the app registered first.
	assert.Same(t, anyHost, r.SelectApp("www.example.com"))
}

func TestPreRoutingShortCircuit(t *testing.T) {
	app := NewApp("*")
	app.Get("/x").Endpoint(okEndpoint)
	app.PreRoutingFilter(func(ctx *http1.RequestContext) (*http1.Response, error) {
		if ctx.Head().Path() == "/blocked" {
			return http1.StatusResponse(http1.StatusForbidden), nil
		}
		return nil, nil
	})
	_, err := Build(app)
	require.NoError(t, err)

	resp, err := app.RunPreRouting(ctxFor(t, "GET /blocked HTTP/1.1\r\n\r\n"))
	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http1.StatusForbidden, resp.Status)

	resp, err = app.RunPreRouting(ctxFor(t, "GET /x HTTP/1.1\r\n\r\n"))
	require.NoError(t, err)
	assert.Nil(t, resp)
}

func TestCORSPreflight(t *testing.T) {
	app := NewApp("*")
	app.Get("/api").WithCORS(WildcardCORS()).Endpoint(okEndpoint)
	_, err := Build(app)
	require.NoError(t, err)

	ctx := ctxFor(t, "OPTIONS /api HTTP/1.1\r\nOrigin: https://app.example\r\nAccess-Control-Request-Method: GET\r\n\r\n")
	m := app.SelectRoute(ctx)
	require.NotNil(t, m.Preflight)
	origin, _ := m.Preflight.Header("Access-Control-Allow-Origin")
	assert.Equal(t, "*", origin)
	methods, _ := m.Preflight.Header("Access-Control-Allow-Methods")
	assert.Contains(t, methods, "GET")
}

func TestCORSDecoratesSimpleResponse(t *testing.T) {
	app := NewApp("*")
	app.Get("/api").WithCORS(WildcardCORS()).Endpoint(okEndpoint)
	_, err := Build(app)
	require.NoError(t, err)

	ctx := ctxFor(t, "GET /api HTTP/1.1\r\nOrigin: https://app.example\r\n\r\n")
	m := app.SelectRoute(ctx)
	require.NotNil(t, m.Route)
	resp, err := m.RunEndpoint(ctx)
	require.NoError(t, err)
	origin, _ := resp.Header("Access-Control-Allow-Origin")
	assert.Equal(t, "*", origin)
}
