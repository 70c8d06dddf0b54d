package router

import (
	"strconv"
	"strings"
	"time"

	"github.com/yourusername/filament/pkg/filament/http1"
)

// CORS is the cross-origin configuration of a sub-app or a single route.
// When set, OPTIONS preflight requests matching the route are answered by
// the router instead of being delivered to handlers.
type CORS struct {
	AllowedOrigins []string // "*" allows any origin
	AllowedMethods []http1.Method
	AllowedHeaders []string
	MaxAge         time.Duration
}

// WildcardCORS allows every origin, method and header.
func WildcardCORS() *CORS {
	return &CORS{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []http1.Method{
			http1.MethodGet, http1.MethodHead, http1.MethodPost, http1.MethodPut,
			http1.MethodDelete, http1.MethodOptions, http1.MethodPatch,
		},
		AllowedHeaders: []string{"*"},
	}
}

// allowsOrigin checks an Origin header value against the config.
func (c *CORS) allowsOrigin(origin string) bool {
	for _, o := range c.AllowedOrigins {
		if o == "*" || strings.EqualFold(o, origin) {
			return true
		}
	}
	return false
}

// preflight synthesizes the response for an OPTIONS preflight request.
func (c *CORS) preflight(ctx *http1.RequestContext) *http1.Response {
	origin, _ := ctx.Head().Header("Origin")
	resp := http1.NoContent()
	if origin == "" || !c.allowsOrigin(origin) {
		return http1.StatusResponse(http1.StatusForbidden)
	}

	allowOrigin := origin
	if len(c.AllowedOrigins) == 1 && c.AllowedOrigins[0] == "*" {
		allowOrigin = "*"
	}
	_ = resp.SetHeader("Access-Control-Allow-Origin", allowOrigin)

	if len(c.AllowedMethods) > 0 {
		names := make([]string, len(c.AllowedMethods))
		for i, m := range c.AllowedMethods {
			names[i] = string(m)
		}
		_ = resp.SetHeader("Access-Control-Allow-Methods", strings.Join(names, ", "))
	}
	if len(c.AllowedHeaders) > 0 {
		_ = resp.SetHeader("Access-Control-Allow-Headers", strings.Join(c.AllowedHeaders, ", "))
	}
	if c.MaxAge > 0 {
		_ = resp.SetHeader("Access-Control-Max-Age", strconv.FormatInt(int64(c.MaxAge/time.Second), 10))
	}
	return resp
}

// decorate adds the simple-request CORS headers to a normal response.
func (c *CORS) decorate(ctx *http1.RequestContext, resp *http1.Response) {
	origin, ok := ctx.Head().Header("Origin")
	if !ok || !c.allowsOrigin(origin) {
		return
	}
	allowOrigin := origin
	if len(c.AllowedOrigins) == 1 && c.AllowedOrigins[0] == "*" {
		allowOrigin = "*"
	}
	if _, exists := resp.Header("Access-Control-Allow-Origin"); !exists {
		_ = resp.SetHeader("Access-Control-Allow-Origin", allowOrigin)
	}
}
