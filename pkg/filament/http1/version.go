package http1

// Version is an HTTP/1.x protocol version.
type Version int8

const (
	// Http09 has no headers and no status line; responses are raw body
	// bytes. Trigger one with `echo -ne 'GET /path\r\n' | nc host 8080`.
	Http09 Version = iota
	// Http10 has headers and bodies but closes after each exchange unless
	// the client asks for keep-alive.
	Http10
	// Http11 is the full feature set: persistent connections, chunked
	// transfer encoding.
	Http11
)

// String returns the printable name ("HTTP/0.9" for 0.9, unlike the wire
// form which is empty).
func (v Version) String() string {
	switch v {
	case Http09:
		return "HTTP/0.9"
	case Http10:
		return "HTTP/1.0"
	default:
		return "HTTP/1.1"
	}
}

// Net returns the bytes of the version as they appear on the status line.
// HTTP/0.9 has no version token.
func (v Version) Net() string {
	switch v {
	case Http09:
		return ""
	case Http10:
		return "HTTP/1.0"
	default:
		return "HTTP/1.1"
	}
}

// parseVersion maps the status-line version token. The empty token is
// HTTP/0.9, which carries no version on the wire.
func parseVersion(s string) (Version, bool) {
	switch s {
	case "":
		return Http09, true
	case "HTTP/1.0":
		return Http10, true
	case "HTTP/1.1":
		return Http11, true
	default:
		return 0, false
	}
}
