// Package mime models media types and Accept negotiation for the router.
//
// Only the parts of RFC 9110 the server negotiates with are modeled: a
// type/subtype pair, wildcards, and the q weight. Parameters other than q
// are not retained.
package mime

import "strings"

// MediaType is a type/subtype pair. Either part may be "*".
type MediaType struct {
	Type    string
	Subtype string
}

// Common media types.
var (
	All             = MediaType{"*", "*"}
	TextHTML        = MediaType{"text", "html"}
	TextPlain       = MediaType{"text", "plain"}
	TextCSS         = MediaType{"text", "css"}
	TextJavaScript  = MediaType{"text", "javascript"}
	ApplicationJSON = MediaType{"application", "json"}
	ApplicationXML  = MediaType{"application", "xml"}
	OctetStream     = MediaType{"application", "octet-stream"}
	ImagePNG        = MediaType{"image", "png"}
	ImageJPEG       = MediaType{"image", "jpeg"}
	ImageGIF        = MediaType{"image", "gif"}
	ImageSVG        = MediaType{"image", "svg+xml"}
	ImageICO        = MediaType{"image", "vnd.microsoft.icon"}
	ImageWebP       = MediaType{"image", "webp"}
)

// String renders "type/subtype".
func (m MediaType) String() string {
	return m.Type + "/" + m.Subtype
}

// IsWildcard reports whether either part is "*".
func (m MediaType) IsWildcard() bool {
	return m.Type == "*" || m.Subtype == "*"
}

// Includes reports whether m, treated as a pattern, covers other.
// "*/*" covers everything, "text/*" covers every text subtype.
func (m MediaType) Includes(other MediaType) bool {
	if m.Type != "*" && !strings.EqualFold(m.Type, other.Type) {
		return false
	}
	if m.Subtype != "*" && !strings.EqualFold(m.Subtype, other.Subtype) {
		return false
	}
	return true
}

// Parse parses a media type like "text/html" or "text/html; charset=utf-8".
// Parameters are dropped. Returns the zero MediaType and false on garbage.
func Parse(s string) (MediaType, bool) {
	if i := strings.IndexByte(s, ';'); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimSpace(s)
	slash := strings.IndexByte(s, '/')
	if slash <= 0 || slash == len(s)-1 {
		return MediaType{}, false
	}
	typ := strings.TrimSpace(s[:slash])
	sub := strings.TrimSpace(s[slash+1:])
	if typ == "" || sub == "" || strings.ContainsAny(typ+sub, " \t/") {
		return MediaType{}, false
	}
	// "*/subtype" is not a thing; only "*/*" and "type/*" are legal shapes,
	// plus concrete pairs.
	if typ == "*" && sub != "*" {
		return MediaType{}, false
	}
	return MediaType{Type: strings.ToLower(typ), Subtype: strings.ToLower(sub)}, true
}

// FromExtension maps a file extension (no leading dot) to a media type for
// the static-content handlers. Unknown extensions map to octet-stream.
func FromExtension(ext string) MediaType {
	switch strings.ToLower(ext) {
	case "html", "htm":
		return TextHTML
	case "txt":
		return TextPlain
	case "css":
		return TextCSS
	case "js", "mjs":
		return TextJavaScript
	case "json":
		return ApplicationJSON
	case "xml":
		return ApplicationXML
	case "png":
		return ImagePNG
	case "jpg", "jpeg":
		return ImageJPEG
	case "gif":
		return ImageGIF
	case "svg":
		return ImageSVG
	case "ico":
		return ImageICO
	case "webp":
		return ImageWebP
	default:
		return OctetStream
	}
}
