package http1

import (
	"strconv"
	"strings"
	"time"
)

// Cookie is a name/value pair from a request's Cookie header.
type Cookie struct {
	Name  string
	Value string
}

// Cookies parses the request's Cookie header. Malformed pairs are skipped.
func (h *RequestHead) Cookies() []Cookie {
	raw, ok := h.headers.Get("Cookie")
	if !ok {
		return nil
	}
	var out []Cookie
	for _, part := range strings.Split(raw, ";") {
		k, v, found := strings.Cut(part, "=")
		if !found {
			continue
		}
		out = append(out, Cookie{Name: strings.TrimSpace(k), Value: strings.TrimSpace(v)})
	}
	return out
}

// Cookie returns the named request cookie.
func (h *RequestHead) Cookie(name string) (Cookie, bool) {
	for _, c := range h.Cookies() {
		if c.Name == name {
			return c, true
		}
	}
	return Cookie{}, false
}

// SameSite values for SetCookie.
type SameSite string

const (
	SameSiteStrict SameSite = "Strict"
	SameSiteLax    SameSite = "Lax"
	SameSiteNone   SameSite = "None"
)

// SetCookie describes a Set-Cookie response header. Attributes are emitted
// in a fixed alphabetical order so outputs are stable.
type SetCookie struct {
	Name     string
	Value    string
	Domain   string
	HttpOnly bool
	MaxAge   time.Duration // zero means absent
	Path     string
	SameSite SameSite
	Secure   bool
}

// NewSetCookie creates a cookie with just name and value.
func NewSetCookie(name, value string) SetCookie {
	return SetCookie{Name: name, Value: value}
}

// WithPath sets the Path attribute.
func (c SetCookie) WithPath(p string) SetCookie { c.Path = p; return c }

// WithDomain sets the Domain attribute.
func (c SetCookie) WithDomain(d string) SetCookie { c.Domain = d; return c }

// WithMaxAge sets the Max-Age attribute (rounded down to whole seconds).
func (c SetCookie) WithMaxAge(d time.Duration) SetCookie { c.MaxAge = d; return c }

// WithSecure sets the Secure attribute.
func (c SetCookie) WithSecure(on bool) SetCookie { c.Secure = on; return c }

// WithHttpOnly sets the HttpOnly attribute.
func (c SetCookie) WithHttpOnly(on bool) SetCookie { c.HttpOnly = on; return c }

// WithSameSite sets the SameSite attribute.
func (c SetCookie) WithSameSite(s SameSite) SetCookie { c.SameSite = s; return c }

// String renders the header value.
func (c SetCookie) String() string {
	var b strings.Builder
	b.WriteString(c.Name)
	b.WriteByte('=')
	b.WriteString(c.Value)
	if c.Domain != "" {
		b.WriteString("; Domain=")
		b.WriteString(c.Domain)
	}
	if c.HttpOnly {
		b.WriteString("; HttpOnly")
	}
	if c.MaxAge > 0 {
		b.WriteString("; Max-Age=")
		b.WriteString(strconv.FormatInt(int64(c.MaxAge/time.Second), 10))
	}
	if c.Path != "" {
		b.WriteString("; Path=")
		b.WriteString(c.Path)
	}
	if c.SameSite != "" {
		b.WriteString("; SameSite=")
		b.WriteString(string(c.SameSite))
	}
	if c.Secure {
		b.WriteString("; Secure")
	}
	return b.String()
}
