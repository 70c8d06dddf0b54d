package http1

import (
	"io"
	"strconv"

	"github.com/valyala/bytebufferpool"

	"github.com/yourusername/filament/pkg/filament"
)

// Write serializes the response for the given negotiated version.
//
// Framing precedence:
//  1. empty body            -> Content-Length: 0
//  2. known length          -> Content-Length: n
//  3. unknown length        -> Transfer-Encoding: chunked on HTTP/1.1;
//     on HTTP/1.0 the body is buffered fully and sent with Content-Length.
//
// HTTP/0.9 responses are the body bytes alone: no status line, no headers.
// Connection: Close is emitted on HTTP/1.1 when keepAlive is false;
// HTTP/1.0 closes by default, so the header is not written there.
func (r *Response) Write(w io.Writer, version Version, keepAlive bool) error {
	if version == Http09 {
		return r.writeBodyRaw(w)
	}

	// Status line. Unknown codes carry no reason phrase.
	line := version.Net() + " " + strconv.Itoa(r.Status)
	if text := StatusText(r.Status); text != "" {
		line += " " + text
	}
	if _, err := io.WriteString(w, line+"\r\n"); err != nil {
		return err
	}

	// Application headers, insertion order, repeated lines for multi-values.
	var werr error
	r.headers.Visit(func(name, value string) bool {
		_, werr = io.WriteString(w, name+": "+value+"\r\n")
		return werr == nil
	})
	if werr != nil {
		return werr
	}

	if !keepAlive && version == Http11 {
		if _, err := io.WriteString(w, "Connection: Close\r\n"); err != nil {
			return err
		}
	}

	body := r.Body
	chunked := body.kind == BodyStreamChunked && version == Http11

	if body.kind == BodyStreamChunked && version != Http11 {
		// Chunked framing does not exist before 1.1; buffer the stream to
		// learn its length.
		buf := bytebufferpool.Get()
		defer bytebufferpool.Put(buf)
		if _, err := io.Copy(buf, body.stream); err != nil {
			return err
		}
		body = BodyFromBytes(append([]byte(nil), buf.B...))
	}

	if chunked {
		if _, err := io.WriteString(w, "Transfer-Encoding: chunked\r\n\r\n"); err != nil {
			return err
		}
		return writeChunks(w, body.stream)
	}

	length := int64(0)
	if body.kind != BodyEmpty {
		length = body.length
	}
	if _, err := io.WriteString(w, "Content-Length: "+strconv.FormatInt(length, 10)+"\r\n\r\n"); err != nil {
		return err
	}

	switch body.kind {
	case BodyEmpty:
		return nil
	case BodyFixed:
		_, err := w.Write(body.fixed)
		return err
	default:
		_, err := io.CopyN(w, body.stream, body.length)
		return err
	}
}

// writeBodyRaw emits only the payload bytes (HTTP/0.9).
func (r *Response) writeBodyRaw(w io.Writer) error {
	switch r.Body.kind {
	case BodyEmpty:
		return nil
	case BodyFixed:
		_, err := w.Write(r.Body.fixed)
		return err
	default:
		_, err := io.Copy(w, r.Body.stream)
		return err
	}
}

// writeChunks emits the chunked transfer coding: lowercase hex size, CRLF,
// data, CRLF, terminated by the zero chunk.
func writeChunks(w io.Writer, r io.Reader) error {
	bp := filament.DefaultBufferPool.Get(8 * 1024)
	defer filament.DefaultBufferPool.Put(bp)
	buf := *bp
	for {
		n, err := r.Read(buf)
		if n > 0 {
			if _, werr := io.WriteString(w, strconv.FormatInt(int64(n), 16)+"\r\n"); werr != nil {
				return werr
			}
			if _, werr := w.Write(buf[:n]); werr != nil {
				return werr
			}
			if _, werr := io.WriteString(w, "\r\n"); werr != nil {
				return werr
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
	}
	_, err := io.WriteString(w, "0\r\n\r\n")
	return err
}
