package mime

import (
	"strconv"
	"strings"
)

// QValue is an Accept weight in thousandths, 0..1000. Integer storage keeps
// comparisons exact; "0.8" is 800.
type QValue int16

// QMax is the default weight when a media range carries no q parameter.
const QMax QValue = 1000

// Float renders the weight as its RFC form ("1", "0.8", "0.05").
func (q QValue) Float() string {
	if q >= QMax {
		return "1"
	}
	s := strconv.FormatFloat(float64(q)/1000, 'f', -1, 64)
	return s
}

// ParseQValue parses a q parameter value. Accepts "1", "1.0", "0.87" etc.
// Returns false on anything outside [0,1] or with more than three decimals.
func ParseQValue(s string) (QValue, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	dot := strings.IndexByte(s, '.')
	whole := s
	frac := ""
	if dot >= 0 {
		whole = s[:dot]
		frac = s[dot+1:]
	}
	if len(frac) > 3 {
		return 0, false
	}
	w, err := strconv.Atoi(whole)
	if err != nil || w < 0 || w > 1 {
		return 0, false
	}
	q := QValue(w * 1000)
	if frac != "" {
		for len(frac) < 3 {
			frac += "0"
		}
		f, err := strconv.Atoi(frac)
		if err != nil || f < 0 {
			return 0, false
		}
		q += QValue(f)
	}
	if q > QMax {
		return 0, false
	}
	return q, true
}

// Accept is one element of an Accept header: a media range and its weight.
type Accept struct {
	Range MediaType
	Q     QValue
}

// DefaultAccept is "*/*;q=1", the fallback for requests without a usable
// Accept header.
func DefaultAccept() Accept {
	return Accept{Range: All, Q: QMax}
}

// ParseAccept parses an Accept header into its ordered element list.
// Order of appearance is preserved; the caller decides precedence by weight.
// Returns nil if any element is unparseable, so the caller can fall back to
// */* with a warning rather than serving off a half-understood header.
func ParseAccept(header string) []Accept {
	parts := strings.Split(header, ",")
	out := make([]Accept, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			return nil
		}
		q := QMax
		if semi := strings.IndexByte(part, ';'); semi >= 0 {
			params := part[semi+1:]
			part = part[:semi]
			for _, p := range strings.Split(params, ";") {
				p = strings.TrimSpace(p)
				if v, found := strings.CutPrefix(p, "q="); found {
					var ok bool
					if q, ok = ParseQValue(v); !ok {
						return nil
					}
				}
				// other parameters are tolerated and dropped
			}
		}
		mt, ok := Parse(part)
		if !ok {
			return nil
		}
		out = append(out, Accept{Range: mt, Q: q})
	}
	return out
}

// AcceptHeaderValue renders an element list back into header form, in order.
func AcceptHeaderValue(list []Accept) string {
	var b strings.Builder
	for i, a := range list {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(a.Range.String())
		if a.Q < QMax {
			b.WriteString(";q=")
			b.WriteString(a.Q.Float())
		}
	}
	return b.String()
}

// BestMatch picks the response media type for a route that produces the
// given types, against the request's Accept list. The winner is the produced
// type with the highest q among acceptable ones; ties break toward the
// earlier entry in produces (route declaration order). ok is false when
// nothing intersects.
func BestMatch(accept []Accept, produces []MediaType) (MediaType, bool) {
	bestQ := QValue(-1)
	var best MediaType
	for _, p := range produces {
		q := acceptableQ(accept, p)
		if q > bestQ {
			bestQ = q
			best = p
		}
	}
	if bestQ <= 0 {
		return MediaType{}, false
	}
	return best, true
}

// acceptableQ returns the weight the Accept list assigns to mt, taking the
// most specific matching range. Zero means not acceptable.
func acceptableQ(accept []Accept, mt MediaType) QValue {
	bestSpec := -1
	var q QValue
	for _, a := range accept {
		if !a.Range.Includes(mt) {
			continue
		}
		spec := 0
		if a.Range.Type != "*" {
			spec++
		}
		if a.Range.Subtype != "*" {
			spec++
		}
		if spec > bestSpec {
			bestSpec = spec
			q = a.Q
		}
	}
	if bestSpec < 0 {
		return 0
	}
	return q
}
