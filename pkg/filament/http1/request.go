package http1

import (
	"bufio"
	"io"
	"net/url"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/yourusername/filament/pkg/filament/mime"
	"github.com/yourusername/filament/pkg/filament/monitor"
)

// DefaultMaxHeadBytes bounds the request head (status line plus headers)
// when the builder does not override it.
const DefaultMaxHeadBytes = 8 * 1024

// RequestHead is the parsed request line and headers of one request.
//
// Content-Length and Transfer-Encoding are immutable after parsing; the
// body reader depends on them, so mutation attempts surface a UserError.
type RequestHead struct {
	method     Method
	version    Version
	statusLine string // raw status line, CRLF stripped
	path       string // percent-decoded
	query      string // raw query string
	accept     []mime.Accept
	headers    Header

	contentLength int64 // -1 when absent
	chunked       bool
}

// ReadHead reads and parses one request head from br. maxHead bounds the
// total head size (0 means DefaultMaxHeadBytes); crossing it fails with
// StatusLineTooLong for the first line and HeadTooLarge afterwards. mon may
// be nil.
func ReadHead(br *bufio.Reader, maxHead int, mon *monitor.Monitor) (*RequestHead, error) {
	if maxHead <= 0 {
		maxHead = DefaultMaxHeadBytes
	}

	line, err := readHeadLine(br, maxHead)
	if err != nil {
		return nil, err
	}
	if len(line) == 0 {
		return nil, parseErr(EofBeforeAnyBytes, "")
	}

	if err := checkStatusLineBytes(line); err != nil {
		return nil, err
	}

	raw, ok := strings.CutSuffix(string(line), "\r\n")
	if !ok {
		return nil, parseErr(StatusLineNoCRLF, raw)
	}

	head := &RequestHead{statusLine: raw, contentLength: -1}

	fields := strings.Split(raw, " ")
	switch {
	case len(fields) < 2:
		return nil, parseErr(StatusLineNoWhitespace, raw)
	case len(fields) > 3:
		return nil, parseErr(StatusLineTooManyFields, raw)
	}

	head.method = Method(fields[0])

	versionToken := ""
	if len(fields) == 3 {
		versionToken = fields[2]
	}
	head.version, ok = parseVersion(versionToken)
	if !ok {
		return nil, parseErr(UnsupportedVersion, versionToken)
	}

	target := fields[1]
	rawPath := target
	if q := strings.IndexByte(target, '?'); q >= 0 {
		rawPath = target[:q]
		head.query = target[q+1:]
	}

	head.path, err = url.PathUnescape(rawPath)
	if err != nil {
		return nil, parseErr(PathInvalidPercentEncoding, rawPath)
	}
	if !utf8.ValidString(head.path) {
		return nil, parseErr(PathNotUtf8, rawPath)
	}

	if head.version == Http09 {
		// No headers, GET only, and the implicit accept of the era.
		if head.method != MethodGet {
			return nil, parseErr(MethodNotAllowedByVersion, string(head.method))
		}
		head.accept = []mime.Accept{{Range: mime.TextHTML, Q: mime.QMax}}
		return head, nil
	}

	budget := maxHead - len(line)
	if err := readHeaders(br, head, budget); err != nil {
		return nil, err
	}

	acceptHeader, hasAccept := head.headers.Get("Accept")
	if !hasAccept {
		head.accept = []mime.Accept{mime.DefaultAccept()}
	} else if head.accept = mime.ParseAccept(acceptHeader); head.accept == nil {
		mon.Emit(monitor.LevelWarn, monitor.KindRequestParsed,
			"request to '"+head.path+"' has invalid Accept header '"+acceptHeader+"', assuming */*")
		head.accept = []mime.Accept{mime.DefaultAccept()}
	}

	if head.contentLength >= 0 && head.chunked {
		return nil, parseErr(ConflictingBodyFraming, "Content-Length with Transfer-Encoding: chunked")
	}

	return head, nil
}

// readHeadLine reads one line including the trailing LF, bounded by limit.
// Returns an empty slice when the peer disconnected before any byte.
func readHeadLine(br *bufio.Reader, limit int) ([]byte, error) {
	var line []byte
	for {
		b, err := br.ReadByte()
		if err == io.EOF {
			return line, nil
		}
		if err != nil {
			return nil, err
		}
		line = append(line, b)
		if b == '\n' {
			return line, nil
		}
		if len(line) > limit {
			return nil, parseErr(StatusLineTooLong, "")
		}
	}
}

func readHeaders(br *bufio.Reader, head *RequestHead, budget int) error {
	for {
		line, err := readHeadLine(br, budget)
		if err != nil {
			if pe, ok := AsParseError(err); ok && pe.Mode == StatusLineTooLong {
				return parseErr(HeadTooLarge, "")
			}
			return err
		}
		budget -= len(line)
		if budget < 0 {
			return parseErr(HeadTooLarge, "")
		}

		for _, b := range line {
			if b >= 0x80 {
				return parseErr(HeaderNotAscii, "")
			}
		}

		s, ok := strings.CutSuffix(string(line), "\r\n")
		if !ok {
			return parseErr(HeaderNoCRLF, string(line))
		}
		if s == "" {
			return nil // end of headers
		}

		colon := strings.IndexByte(s, ':')
		if colon < 0 {
			return parseErr(HeaderValueMissing, s)
		}
		name := strings.TrimSpace(s[:colon])
		value := strings.TrimSpace(s[colon+1:])
		if name == "" {
			return parseErr(HeaderNameEmpty, s)
		}
		if value == "" {
			return parseErr(HeaderValueEmpty, name)
		}

		if err := head.recordSpecial(name, value); err != nil {
			return err
		}
		head.headers.addRaw(name, value)
	}
}

// recordSpecial latches the body-framing headers at parse time. These stay
// immutable afterwards.
func (h *RequestHead) recordSpecial(name, value string) error {
	switch {
	case strings.EqualFold(name, "Content-Length"):
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil || n < 0 {
			return parseErr(InvalidContentLength, value)
		}
		if h.contentLength >= 0 && h.contentLength != n {
			return parseErr(InvalidContentLength, "conflicting duplicates")
		}
		h.contentLength = n
	case strings.EqualFold(name, "Transfer-Encoding"):
		if strings.EqualFold(strings.TrimSpace(value), "chunked") {
			h.chunked = true
		}
	}
	return nil
}

// checkStatusLineBytes validates the raw status line against the RFC 3986
// reserved and unreserved sets plus space and the line terminator. Anything
// else fails the parse before the line is interpreted.
func checkStatusLineBytes(line []byte) error {
	for _, b := range line {
		switch {
		case b >= 'a' && b <= 'z', b >= 'A' && b <= 'Z', b >= '0' && b <= '9':
		case b == '!' || b == '#' || b == '$' || b == '&' || b == '\'' ||
			b == '(' || b == ')' || b == '*' || b == '+' || b == ',' ||
			b == '/' || b == ':' || b == ';' || b == '=' || b == '?' ||
			b == '@' || b == '[' || b == ']':
		case b == '-' || b == '.' || b == '_' || b == '~':
		case b == '%' || b == ' ' || b == '\r' || b == '\n':
		default:
			return parseErr(StatusLineInvalidBytes, "")
		}
	}
	return nil
}

// InvalidContentLength is not part of the canonical failure-mode list but
// is produced for a malformed or self-contradicting Content-Length.
const InvalidContentLength FailureMode = "InvalidContentLength"

// Accessors and mutators.

// Method returns the request method.
func (h *RequestHead) Method() Method { return h.method }

// SetMethod changes the method; pre-routing filters use this.
func (h *RequestHead) SetMethod(m Method) { h.method = m }

// Version returns the negotiated HTTP version.
func (h *RequestHead) Version() Version { return h.version }

// RawStatusLine returns the status line as received, CRLF stripped.
func (h *RequestHead) RawStatusLine() string { return h.statusLine }

// Path returns the percent-decoded request path.
func (h *RequestHead) Path() string { return h.path }

// SetPath rewrites the path the request routes to.
func (h *RequestHead) SetPath(p string) { h.path = p }

// RawQuery returns the query string as received.
func (h *RequestHead) RawQuery() string { return h.query }

// Accept returns the parsed Accept list in order of appearance.
func (h *RequestHead) Accept() []mime.Accept { return h.accept }

// SetAccept replaces the accept list and the Accept header together.
func (h *RequestHead) SetAccept(list []mime.Accept) {
	h.accept = list
	h.headers.setRaw("Accept", mime.AcceptHeaderValue(list))
}

// ContentLength returns the declared body length, or -1 when absent.
func (h *RequestHead) ContentLength() int64 { return h.contentLength }

// IsChunked reports whether the request body uses chunked transfer coding.
func (h *RequestHead) IsChunked() bool { return h.chunked }

// ContentType returns the parsed Content-Type, if present and parseable.
func (h *RequestHead) ContentType() (mime.MediaType, bool) {
	v, ok := h.headers.Get("Content-Type")
	if !ok {
		return mime.MediaType{}, false
	}
	return mime.Parse(v)
}

// Host returns the Host header, or "".
func (h *RequestHead) Host() string {
	v, _ := h.headers.Get("Host")
	return v
}

// Header returns the first value for name.
func (h *RequestHead) Header(name string) (string, bool) {
	return h.headers.Get(name)
}

// HeaderValues returns all values for name.
func (h *RequestHead) HeaderValues(name string) []string {
	return h.headers.GetAll(name)
}

// Headers exposes the underlying map for read-only iteration.
func (h *RequestHead) Headers() *Header { return &h.headers }

// SetHeader sets a header. The framing headers are immutable; Accept is
// revalidated and kept in sync with the parsed list.
func (h *RequestHead) SetHeader(name, value string) error {
	switch {
	case strings.EqualFold(name, "Content-Length"),
		strings.EqualFold(name, "Transfer-Encoding"):
		return userErr("http1: " + name + " is immutable after parsing")
	case strings.EqualFold(name, "Accept"):
		list := mime.ParseAccept(value)
		if list == nil {
			return userErr("http1: illegal Accept header value " + value)
		}
		h.accept = list
		h.headers.setRaw("Accept", value)
		return nil
	default:
		return h.headers.Set(name, value)
	}
}

// AddHeader appends a header value, with the same guards as SetHeader.
func (h *RequestHead) AddHeader(name, value string) error {
	switch {
	case strings.EqualFold(name, "Content-Length"),
		strings.EqualFold(name, "Transfer-Encoding"):
		return userErr("http1: " + name + " is immutable after parsing")
	case strings.EqualFold(name, "Accept"):
		if h.headers.Has("Accept") {
			return userErr("http1: multiple Accept header values set")
		}
		return h.SetHeader(name, value)
	default:
		return h.headers.Add(name, value)
	}
}

// RemoveHeader removes a header. Removing Accept resets it to */*; the
// framing headers cannot be removed.
func (h *RequestHead) RemoveHeader(name string) error {
	switch {
	case strings.EqualFold(name, "Content-Length"),
		strings.EqualFold(name, "Transfer-Encoding"):
		return userErr("http1: " + name + " is immutable after parsing")
	case strings.EqualFold(name, "Accept"):
		h.accept = []mime.Accept{mime.DefaultAccept()}
		h.headers.setRaw("Accept", "*/*")
		return nil
	default:
		h.headers.Del(name)
		return nil
	}
}

// HasBody reports whether the head declares a request body.
func (h *RequestHead) HasBody() bool {
	return h.chunked || h.contentLength > 0
}

// WantsKeepAlive applies the keep-alive defaults: HTTP/1.1 stays open
// unless the client sends Connection: close, HTTP/1.0 closes unless it
// sends Connection: keep-alive, HTTP/0.9 always closes.
func (h *RequestHead) WantsKeepAlive() bool {
	conn, _ := h.headers.Get("Connection")
	switch h.version {
	case Http11:
		return !strings.EqualFold(conn, "close")
	case Http10:
		return strings.EqualFold(conn, "keep-alive")
	default:
		return false
	}
}

// WriteTo serializes the head back to wire form, preserving header order
// and casing. Round-trips bytes that parsed cleanly.
func (h *RequestHead) WriteTo(w io.Writer) error {
	if _, err := io.WriteString(w, h.statusLine); err != nil {
		return err
	}
	if _, err := io.WriteString(w, "\r\n"); err != nil {
		return err
	}
	if h.version == Http09 {
		return nil
	}
	var werr error
	h.headers.Visit(func(name, value string) bool {
		if _, werr = io.WriteString(w, name+": "+value+"\r\n"); werr != nil {
			return false
		}
		return true
	})
	if werr != nil {
		return werr
	}
	_, err := io.WriteString(w, "\r\n")
	return err
}
