// Package filters provides ready-made filters and endpoints an application
// can drop into its routes: response compression, static content, and
// redirects.
package filters

import (
	"bytes"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/gzip"

	"github.com/yourusername/filament/pkg/filament/http1"
	"github.com/yourusername/filament/pkg/filament/router"
)

// CompressionThreshold is the smallest fixed body worth compressing;
// tinier payloads grow instead of shrinking.
const CompressionThreshold = 256

// Compression returns a response filter that negotiates Accept-Encoding
// and recodes fixed response bodies with brotli or gzip, in that order of
// preference. Streamed bodies and already-encoded responses pass through
// untouched.
func Compression() router.ResponseFilter {
	return func(ctx *http1.RequestContext, resp *http1.Response) (*http1.Response, error) {
		if resp.Body.Kind() != http1.BodyFixed || resp.Body.Length() < CompressionThreshold {
			return resp, nil
		}
		if _, already := resp.Header("Content-Encoding"); already {
			return resp, nil
		}

		accepted, _ := ctx.Head().Header("Accept-Encoding")
		encoding := pickEncoding(accepted)
		if encoding == "" {
			return resp, nil
		}

		var body bytes.Buffer
		raw := drainFixed(resp)
		switch encoding {
		case "br":
			bw := brotli.NewWriter(&body)
			if _, err := bw.Write(raw); err != nil {
				return resp, nil
			}
			if err := bw.Close(); err != nil {
				return resp, nil
			}
		case "gzip":
			gw := gzip.NewWriter(&body)
			if _, err := gw.Write(raw); err != nil {
				return resp, nil
			}
			if err := gw.Close(); err != nil {
				return resp, nil
			}
		}

		if body.Len() >= len(raw) {
			return resp, nil // compression did not help
		}

		resp.WithBody(http1.BodyFromBytes(body.Bytes()))
		_ = resp.SetHeader("Content-Encoding", encoding)
		_ = resp.SetHeader("Vary", "Accept-Encoding")
		return resp, nil
	}
}

// pickEncoding returns "br" when the client's Accept-Encoding list names it
// anywhere, otherwise "gzip" when named, otherwise "". Token order and
// q-values are not consulted.
func pickEncoding(accepted string) string {
	hasBr, hasGzip := false, false
	for _, part := range strings.Split(accepted, ",") {
		token := strings.TrimSpace(part)
		if i := strings.IndexByte(token, ';'); i >= 0 {
			token = token[:i]
		}
		switch strings.ToLower(token) {
		case "br":
			hasBr = true
		case "gzip":
			hasGzip = true
		}
	}
	if hasBr {
		return "br"
	}
	if hasGzip {
		return "gzip"
	}
	return ""
}

// drainFixed extracts the fixed body bytes. Only called for BodyFixed.
func drainFixed(resp *http1.Response) []byte {
	var buf bytes.Buffer
	// The fixed variant serializes as-is regardless of version flags, so a
	// raw HTTP/0.9 write yields exactly the payload.
	_ = resp.Write(&buf, http1.Http09, false)
	return buf.Bytes()
}
