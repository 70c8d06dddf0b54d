package http1

import (
	"strings"

	"golang.org/x/net/http/httpguts"
)

// Header is an ordered multimap of header fields.
//
// Insertion order is preserved and emitted verbatim, and a name keeps the
// casing of its first occurrence, so a parsed head serializes back to the
// bytes it came from. Name comparison is ASCII-case-insensitive per RFC
// 9110.
type Header struct {
	entries []HeaderEntry
}

// HeaderEntry is a single name/value line.
type HeaderEntry struct {
	Name  string
	Value string
}

// Get returns the first value for name, or "" and false.
func (h *Header) Get(name string) (string, bool) {
	for i := range h.entries {
		if strings.EqualFold(h.entries[i].Name, name) {
			return h.entries[i].Value, true
		}
	}
	return "", false
}

// GetAll returns every value for name in insertion order.
func (h *Header) GetAll(name string) []string {
	var out []string
	for i := range h.entries {
		if strings.EqualFold(h.entries[i].Name, name) {
			out = append(out, h.entries[i].Value)
		}
	}
	return out
}

// Has reports whether at least one value exists for name.
func (h *Header) Has(name string) bool {
	_, ok := h.Get(name)
	return ok
}

// Add appends a value for name, validating both. A name that already exists
// keeps its original casing; the new line is appended at the end.
func (h *Header) Add(name, value string) error {
	if err := checkField(name, value); err != nil {
		return err
	}
	h.addRaw(name, value)
	return nil
}

// Set replaces every value of name with the single given value. The entry
// keeps the position (and casing) of the first occurrence; later duplicates
// are removed.
func (h *Header) Set(name, value string) error {
	if err := checkField(name, value); err != nil {
		return err
	}
	h.setRaw(name, value)
	return nil
}

// Del removes every value for name.
func (h *Header) Del(name string) {
	out := h.entries[:0]
	for i := range h.entries {
		if !strings.EqualFold(h.entries[i].Name, name) {
			out = append(out, h.entries[i])
		}
	}
	h.entries = out
}

// Len returns the number of header lines.
func (h *Header) Len() int { return len(h.entries) }

// Visit calls fn for each line in insertion order until fn returns false.
func (h *Header) Visit(fn func(name, value string) bool) {
	for i := range h.entries {
		if !fn(h.entries[i].Name, h.entries[i].Value) {
			return
		}
	}
}

// Entries returns a copy of the lines in insertion order.
func (h *Header) Entries() []HeaderEntry {
	return append([]HeaderEntry(nil), h.entries...)
}

// Clone returns a deep copy.
func (h *Header) Clone() Header {
	return Header{entries: h.Entries()}
}

// addRaw and setRaw skip validation; the parser uses them for lines it has
// already validated byte-by-byte.
func (h *Header) addRaw(name, value string) {
	h.entries = append(h.entries, HeaderEntry{Name: name, Value: value})
}

func (h *Header) setRaw(name, value string) {
	replaced := false
	out := h.entries[:0]
	for i := range h.entries {
		if strings.EqualFold(h.entries[i].Name, name) {
			if replaced {
				continue
			}
			out = append(out, HeaderEntry{Name: h.entries[i].Name, Value: value})
			replaced = true
			continue
		}
		out = append(out, h.entries[i])
	}
	h.entries = out
	if !replaced {
		h.entries = append(h.entries, HeaderEntry{Name: name, Value: value})
	}
}

// checkField enforces RFC 9110 field shape on user-supplied headers: a
// token name, a non-empty value, no CR/LF anywhere.
func checkField(name, value string) error {
	if name == "" {
		return parseErr(HeaderNameEmpty, "")
	}
	if !httpguts.ValidHeaderFieldName(name) {
		return userErr("http1: invalid header name " + name)
	}
	if value == "" {
		return parseErr(HeaderValueEmpty, name)
	}
	if !httpguts.ValidHeaderFieldValue(value) {
		return userErr("http1: invalid value for header " + name)
	}
	return nil
}
