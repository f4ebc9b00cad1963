package jsonops

import (
	"strings"

	"github.com/tidwall/gjson"
)

// isWordDelimiter reports whether c ends a word: anything outside
// [A-Za-z0-9]. Byte-wise on purpose; not locale dependent.
func isWordDelimiter(c byte) bool {
	return !((c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9'))
}

func asciiLower(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		b.WriteByte(c)
	}
	return b.String()
}

// containsWholeWord reports whether term occurs in text as a whole word,
// case-insensitively. Positions 0 and len(text) count as implicit
// delimiters.
func containsWholeWord(text, term string) bool {
	if len(term) > len(text) {
		return false
	}
	lt := asciiLower(text)
	lterm := asciiLower(term)

	for from := 0; ; {
		i := strings.Index(lt[from:], lterm)
		if i < 0 {
			return false
		}
		pos := from + i
		end := pos + len(term)
		leftOK := pos == 0 || isWordDelimiter(text[pos-1])
		rightOK := end == len(text) || isWordDelimiter(text[end])
		if leftOK && rightOK {
			return true
		}
		from = pos + 1
	}
}

// resultContainsWord walks a JSON value recursively; every string node is
// tested for a whole-word occurrence of term.
func resultContainsWord(res gjson.Result, term string) bool {
	switch {
	case res.Type == gjson.String:
		return containsWholeWord(res.String(), term)
	case res.IsObject(), res.IsArray():
		found := false
		res.ForEach(func(_, child gjson.Result) bool {
			if resultContainsWord(child, term) {
				found = true
				return false
			}
			return true
		})
		return found
	default:
		return false
	}
}

// Search traverses doc for whole-word, case-insensitive occurrences of term.
// For an array root each top-level element is tested as a unit and matching
// elements accumulate into the result array, bounded by max (<= 0 means
// unbounded). A non-array root is tested as a whole and wrapped in a
// single-element array on match. The boolean reports whether anything
// matched.
func Search(doc, term string, max int) (string, bool) {
	parsed := gjson.Parse(doc)

	var raws []string
	if parsed.IsArray() {
		parsed.ForEach(func(_, item gjson.Result) bool {
			if max > 0 && len(raws) >= max {
				return false
			}
			if resultContainsWord(item, term) {
				raws = append(raws, item.Raw)
			}
			return true
		})
	} else if resultContainsWord(parsed, term) {
		raws = append(raws, parsed.Raw)
	}

	if len(raws) == 0 {
		return "", false
	}
	return "[" + strings.Join(raws, ",") + "]", true
}
