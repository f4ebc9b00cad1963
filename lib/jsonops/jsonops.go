// Package jsonops implements the JSON query and mutation operators. Every
// operation works on the raw document text via gjson/sjson, so object key
// insertion order survives any round trip — a contract of the protocol.
package jsonops

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
	"github.com/tidwall/sjson"
)

var (
	// ErrNotArray is returned when a WHERE clause or APPEND targets a
	// document whose root is not an array.
	ErrNotArray = errors.New("operation requires a JSON array")

	// ErrBadElement is returned by Append for element values that are
	// neither objects nor arrays.
	ErrBadElement = errors.New("append value must be a JSON object or array")
)

// Canonicalize validates raw and returns its compact serialization with key
// order preserved. The error carries the underlying parse failure.
func Canonicalize(raw string) (string, error) {
	if err := json.Unmarshal([]byte(raw), new(interface{})); err != nil {
		return "", err
	}
	return string(pretty.Ugly([]byte(raw))), nil
}

// Valid reports whether raw parses as a JSON document.
func Valid(raw string) bool {
	return gjson.Valid(raw)
}

// Pretty returns the two-space-indented dump used for multi-line replies.
func Pretty(raw string) string {
	opts := &pretty.Options{Indent: "  "}
	return strings.TrimRight(string(pretty.PrettyOptions([]byte(raw), opts)), "\n")
}

// --------------------------------------------------------------------------
// Path form
// --------------------------------------------------------------------------

// cleanPath strips the leading "$." / "$[" marker the way the reply object
// names its members: "$.a.b" -> "a.b", "$[0]" -> "[0]".
func cleanPath(path string) string {
	if strings.HasPrefix(path, "$.") {
		return path[2:]
	}
	if strings.HasPrefix(path, "$[") {
		return path[1:]
	}
	return path
}

// toQueryPath converts a protocol path into gjson syntax: dots separate
// object keys, "[n]" selects array indices. "$" alone addresses the root.
func toQueryPath(path string) string {
	p := cleanPath(path)
	if p == "" || p == "$" {
		return "@this"
	}
	var b strings.Builder
	for _, c := range p {
		switch c {
		case '[':
			b.WriteByte('.')
		case ']':
		default:
			b.WriteRune(c)
		}
	}
	return strings.Trim(b.String(), ".")
}

// escapeResultKey makes a literal member name safe for use as an sjson path.
func escapeResultKey(key string) string {
	var b strings.Builder
	for _, c := range key {
		switch c {
		case '.', '*', '?', '\\', '|', ':':
			b.WriteByte('\\')
		}
		b.WriteRune(c)
	}
	return b.String()
}

// GetPaths resolves each requested path against doc and returns a single
// object mapping the cleaned path names to the resolved values. Missing
// paths map to null — indistinguishable from an explicit null in the
// document, which mirrors the protocol's documented ambiguity.
func GetPaths(doc string, paths []string) string {
	out := "{}"
	for _, path := range paths {
		member := escapeResultKey(cleanPath(path))
		res := gjson.Get(doc, toQueryPath(path))
		raw := "null"
		if res.Exists() {
			raw = res.Raw
		}
		out, _ = sjson.SetRaw(out, member, raw)
	}
	return out
}

// --------------------------------------------------------------------------
// WHERE forms
// --------------------------------------------------------------------------

// parseWhereValue parses the filter value as JSON if possible, otherwise as
// a bare string. Returns the comparable Go value.
func parseWhereValue(value string) interface{} {
	var v interface{}
	if err := json.Unmarshal([]byte(value), &v); err != nil {
		return value
	}
	return v
}

func fieldEquals(item gjson.Result, field string, want interface{}) bool {
	if !item.IsObject() {
		return false
	}
	got := item.Get(escapeResultKey(field))
	if !got.Exists() {
		return false
	}
	return reflect.DeepEqual(got.Value(), want)
}

// FilterWhere returns the array elements of doc that are objects with field
// equal to value, as a raw JSON array, plus the match count.
func FilterWhere(doc, field, value string) (string, int, error) {
	parsed := gjson.Parse(doc)
	if !parsed.IsArray() {
		return "", 0, ErrNotArray
	}
	want := parseWhereValue(value)

	var raws []string
	parsed.ForEach(func(_, item gjson.Result) bool {
		if fieldEquals(item, field, want) {
			raws = append(raws, item.Raw)
		}
		return true
	})
	return "[" + strings.Join(raws, ",") + "]", len(raws), nil
}

// toRawValue renders an assignment value: valid JSON passes through
// verbatim, everything else becomes a JSON string.
func toRawValue(value string) string {
	if json.Valid([]byte(value)) {
		return value
	}
	quoted, _ := json.Marshal(value)
	return string(quoted)
}

// UpdateWhere assigns the given (field, value) pairs on every matching array
// element and returns the new document plus the number of elements mutated.
func UpdateWhere(doc, field, value string, sets [][2]string) (string, int, error) {
	parsed := gjson.Parse(doc)
	if !parsed.IsArray() {
		return "", 0, ErrNotArray
	}
	want := parseWhereValue(value)

	updated := 0
	idx := 0
	var matches []int
	parsed.ForEach(func(_, item gjson.Result) bool {
		if fieldEquals(item, field, want) {
			matches = append(matches, idx)
		}
		idx++
		return true
	})

	for _, i := range matches {
		for _, kv := range sets {
			path := strconv.Itoa(i) + "." + escapeResultKey(kv[0])
			next, err := sjson.SetRaw(doc, path, toRawValue(kv[1]))
			if err != nil {
				return "", 0, fmt.Errorf("assign %q: %w", kv[0], err)
			}
			doc = next
		}
		updated++
	}
	return doc, updated, nil
}

// DeleteWhere removes every matching array element and returns the new
// document plus the number removed.
func DeleteWhere(doc, field, value string) (string, int, error) {
	parsed := gjson.Parse(doc)
	if !parsed.IsArray() {
		return "", 0, ErrNotArray
	}
	want := parseWhereValue(value)

	idx := 0
	var matches []int
	parsed.ForEach(func(_, item gjson.Result) bool {
		if fieldEquals(item, field, want) {
			matches = append(matches, idx)
		}
		idx++
		return true
	})

	// Delete back to front so earlier indices stay valid.
	for i := len(matches) - 1; i >= 0; i-- {
		next, err := sjson.Delete(doc, strconv.Itoa(matches[i]))
		if err != nil {
			return "", 0, err
		}
		doc = next
	}
	return doc, len(matches), nil
}

// --------------------------------------------------------------------------
// APPEND
// --------------------------------------------------------------------------

// Append pushes elem onto the array document: an object value appends one
// element, an array value extends with all of its elements. Returns the new
// document and the resulting array length.
func Append(doc, elem string) (string, int, error) {
	parsed := gjson.Parse(doc)
	if !parsed.IsArray() {
		return "", 0, ErrNotArray
	}
	if err := json.Unmarshal([]byte(elem), new(interface{})); err != nil {
		return "", 0, fmt.Errorf("invalid JSON for append: %w", err)
	}

	el := gjson.Parse(elem)
	switch {
	case el.IsObject():
		next, err := sjson.SetRaw(doc, "-1", el.Raw)
		if err != nil {
			return "", 0, err
		}
		doc = next
	case el.IsArray():
		var ferr error
		el.ForEach(func(_, item gjson.Result) bool {
			next, err := sjson.SetRaw(doc, "-1", item.Raw)
			if err != nil {
				ferr = err
				return false
			}
			doc = next
			return true
		})
		if ferr != nil {
			return "", 0, ferr
		}
	default:
		return "", 0, ErrBadElement
	}

	length := int(gjson.Get(doc, "#").Int())
	return doc, length, nil
}
