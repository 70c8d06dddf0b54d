package http1

import (
	"io"
	"strings"

	"github.com/yourusername/filament/pkg/filament/mime"
)

// BodyKind selects the response body variant; the variant determines the
// framing headers the serializer emits.
type BodyKind int8

const (
	// BodyEmpty has no payload; Content-Length: 0 is emitted.
	BodyEmpty BodyKind = iota
	// BodyFixed is a byte slice of known length.
	BodyFixed
	// BodyStream is a reader with a known length.
	BodyStream
	// BodyStreamChunked is a reader of unknown length, sent chunked on
	// HTTP/1.1 and fully buffered on HTTP/1.0.
	BodyStreamChunked
)

// ResponseBody is the payload of a response.
type ResponseBody struct {
	kind   BodyKind
	fixed  []byte
	stream io.Reader
	length int64
}

// EmptyBody is the no-payload body.
func EmptyBody() ResponseBody { return ResponseBody{kind: BodyEmpty} }

// BodyFromBytes wraps a byte slice. The slice is owned by the response from
// here on.
func BodyFromBytes(b []byte) ResponseBody {
	if len(b) == 0 {
		return EmptyBody()
	}
	return ResponseBody{kind: BodyFixed, fixed: b, length: int64(len(b))}
}

// BodyFromString wraps a string.
func BodyFromString(s string) ResponseBody { return BodyFromBytes([]byte(s)) }

// BodyFromReader wraps a reader with a known length.
func BodyFromReader(r io.Reader, length int64) ResponseBody {
	if length == 0 {
		return EmptyBody()
	}
	return ResponseBody{kind: BodyStream, stream: r, length: length}
}

// BodyFromReaderChunked wraps a reader of unknown length.
func BodyFromReaderChunked(r io.Reader) ResponseBody {
	return ResponseBody{kind: BodyStreamChunked, stream: r}
}

// Kind returns the body variant.
func (b ResponseBody) Kind() BodyKind { return b.kind }

// Length returns the known length, or -1 for chunked streams.
func (b ResponseBody) Length() int64 {
	if b.kind == BodyStreamChunked {
		return -1
	}
	return b.length
}

// Response is a status code, ordered headers and a body.
type Response struct {
	Status  int
	headers Header
	Body    ResponseBody
}

// NewResponse creates an empty response with the given status.
func NewResponse(status int) *Response {
	return &Response{Status: status, Body: EmptyBody()}
}

// OK creates a 200 response with the given body.
func OK(body ResponseBody) *Response {
	return &Response{Status: StatusOK, Body: body}
}

// OKWithType creates a 200 response with a body and its Content-Type.
func OKWithType(body ResponseBody, mt mime.MediaType) *Response {
	r := OK(body)
	r.headers.setRaw("Content-Type", mt.String())
	return r
}

// NoContent creates an empty 204 response.
func NoContent() *Response {
	return &Response{Status: StatusNoContent, Body: EmptyBody()}
}

// StatusResponse creates an empty response for a status code; the driver
// uses it to synthesize error responses.
func StatusResponse(status int) *Response {
	return &Response{Status: status, Body: EmptyBody()}
}

// RedirectResponse creates a 301 to the given location.
func RedirectResponse(location string) *Response {
	r := StatusResponse(StatusMovedPermanently)
	r.headers.setRaw("Location", location)
	return r
}

// WithBody replaces the body.
func (r *Response) WithBody(body ResponseBody) *Response {
	r.Body = body
	return r
}

// WithHeader adds a header line. The framing headers are owned by the
// serializer, driven by the body variant; trying to set them by hand is a
// user error.
func (r *Response) WithHeader(name, value string) *Response {
	if err := r.SetHeader(name, value); err != nil {
		panic(err)
	}
	return r
}

// SetHeader is WithHeader returning the error instead of panicking.
func (r *Response) SetHeader(name, value string) error {
	if strings.EqualFold(name, "Content-Length") || strings.EqualFold(name, "Transfer-Encoding") {
		return userErr("http1: " + name + " is derived from the response body and cannot be set")
	}
	return r.headers.Add(name, value)
}

// WithContentType sets the Content-Type header.
func (r *Response) WithContentType(mt mime.MediaType) *Response {
	r.headers.setRaw("Content-Type", mt.String())
	return r
}

// WithCookie appends a Set-Cookie header.
func (r *Response) WithCookie(c SetCookie) *Response {
	r.headers.addRaw("Set-Cookie", c.String())
	return r
}

// Header returns the first value for name.
func (r *Response) Header(name string) (string, bool) {
	return r.headers.Get(name)
}

// HeaderValues returns all values for name.
func (r *Response) HeaderValues(name string) []string {
	return r.headers.GetAll(name)
}

// Headers exposes the header map.
func (r *Response) Headers() *Header { return &r.headers }

// Common status codes.
const (
	StatusSwitchingProtocols = 101
	StatusOK                 = 200
	StatusNoContent          = 204
	StatusMovedPermanently   = 301
	StatusFound              = 302
	StatusBadRequest         = 400
	StatusForbidden          = 403
	StatusNotFound           = 404
	StatusMethodNotAllowed   = 405
	StatusNotAcceptable      = 406
	StatusRequestTimeout     = 408
	StatusPayloadTooLarge    = 413
	StatusURITooLong         = 414
	StatusUnsupportedMedia   = 415
	StatusInternalError      = 500
	StatusVersionUnsupported = 505
)

// StatusText returns the reason phrase for the codes the core emits.
// Unknown codes get an empty phrase, which is legal on the wire.
func StatusText(status int) string {
	switch status {
	case 100:
		return "Continue"
	case StatusSwitchingProtocols:
		return "Switching Protocols"
	case StatusOK:
		return "OK"
	case 201:
		return "Created"
	case 202:
		return "Accepted"
	case StatusNoContent:
		return "No Content"
	case StatusMovedPermanently:
		return "Moved Permanently"
	case StatusFound:
		return "Found"
	case 304:
		return "Not Modified"
	case StatusBadRequest:
		return "Bad Request"
	case 401:
		return "Unauthorized"
	case StatusForbidden:
		return "Forbidden"
	case StatusNotFound:
		return "Not Found"
	case StatusMethodNotAllowed:
		return "Method Not Allowed"
	case StatusNotAcceptable:
		return "Not Acceptable"
	case StatusRequestTimeout:
		return "Request Timeout"
	case 409:
		return "Conflict"
	case 410:
		return "Gone"
	case StatusPayloadTooLarge:
		return "Payload Too Large"
	case StatusURITooLong:
		return "URI Too Long"
	case StatusUnsupportedMedia:
		return "Unsupported Media Type"
	case 429:
		return "Too Many Requests"
	case StatusInternalError:
		return "Internal Server Error"
	case 501:
		return "Not Implemented"
	case 502:
		return "Bad Gateway"
	case 503:
		return "Service Unavailable"
	case StatusVersionUnsupported:
		return "HTTP Version Not Supported"
	default:
		return ""
	}
}
