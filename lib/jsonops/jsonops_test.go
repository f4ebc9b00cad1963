package jsonops

import (
	"strings"
	"testing"
)

func TestCanonicalizePreservesKeyOrder(t *testing.T) {
	doc := `{"name": "Ada", "age": 36, "tags": ["math", "code"]}`
	got, err := Canonicalize(doc)
	if err != nil {
		t.Fatalf("Canonicalize: %v", err)
	}
	want := `{"name":"Ada","age":36,"tags":["math","code"]}`
	if got != want {
		t.Fatalf("Canonicalize = %s; want %s", got, want)
	}
}

func TestCanonicalizeRejectsMalformed(t *testing.T) {
	for _, doc := range []string{`{`, `{"a":}`, `hello`, ``} {
		if _, err := Canonicalize(doc); err == nil {
			t.Fatalf("Canonicalize(%q) accepted malformed input", doc)
		}
	}
}

func TestGetPathsSingle(t *testing.T) {
	doc := `{"name":"Ada","age":36}`
	got := GetPaths(doc, []string{"$.name"})
	if got != `{"name":"Ada"}` {
		t.Fatalf("GetPaths = %s", got)
	}
}

func TestGetPathsOrderFollowsRequest(t *testing.T) {
	doc := `{"name":"Ada","age":36}`
	got := GetPaths(doc, []string{"$.age", "$.name"})
	if got != `{"age":36,"name":"Ada"}` {
		t.Fatalf("GetPaths = %s", got)
	}
}

func TestGetPathsMissingBecomesNull(t *testing.T) {
	doc := `{"name":"Ada"}`
	got := GetPaths(doc, []string{"$.name", "$.height"})
	if got != `{"name":"Ada","height":null}` {
		t.Fatalf("GetPaths = %s", got)
	}
}

func TestGetPathsNested(t *testing.T) {
	doc := `{"user":{"name":"Ada","langs":["go","c"]}}`
	got := GetPaths(doc, []string{"$.user.langs[1]"})
	if got != `{"user.langs[1]":"c"}` {
		t.Fatalf("GetPaths = %s", got)
	}
}

func TestGetPathsArrayRoot(t *testing.T) {
	doc := `[{"id":1},{"id":2}]`
	got := GetPaths(doc, []string{"$[1].id"})
	if got != `{"[1].id":2}` {
		t.Fatalf("GetPaths = %s", got)
	}
}

func TestFilterWhere(t *testing.T) {
	doc := `[{"id":1,"t":"a"},{"id":2,"t":"b"},{"id":1,"t":"c"},3]`

	got, count, err := FilterWhere(doc, "id", "1")
	if err != nil {
		t.Fatalf("FilterWhere: %v", err)
	}
	if count != 2 {
		t.Fatalf("count = %d; want 2", count)
	}
	if got != `[{"id":1,"t":"a"},{"id":1,"t":"c"}]` {
		t.Fatalf("matches = %s", got)
	}
}

func TestFilterWhereStringValue(t *testing.T) {
	doc := `[{"t":"Cat"},{"t":"dog"}]`
	// "Cat" is not valid JSON, so the filter value is a bare string.
	_, count, err := FilterWhere(doc, "t", "Cat")
	if err != nil || count != 1 {
		t.Fatalf("count = %d, err = %v; want 1, nil", count, err)
	}
}

func TestFilterWhereNonArray(t *testing.T) {
	if _, _, err := FilterWhere(`{"a":1}`, "a", "1"); err != ErrNotArray {
		t.Fatalf("err = %v; want ErrNotArray", err)
	}
}

func TestUpdateWhere(t *testing.T) {
	doc := `[{"id":1,"t":"Cat nap"},{"id":2,"t":"dogma"}]`

	next, count, err := UpdateWhere(doc, "id", "1", [][2]string{{"t", "Cat"}})
	if err != nil {
		t.Fatalf("UpdateWhere: %v", err)
	}
	if count != 1 {
		t.Fatalf("count = %d; want 1", count)
	}
	if next != `[{"id":1,"t":"Cat"},{"id":2,"t":"dogma"}]` {
		t.Fatalf("doc = %s", next)
	}
}

func TestUpdateWhereAddsFields(t *testing.T) {
	doc := `[{"id":1},{"id":2}]`
	next, count, err := UpdateWhere(doc, "id", "2", [][2]string{{"seen", "true"}, {"n", "3"}})
	if err != nil || count != 1 {
		t.Fatalf("count = %d, err = %v", count, err)
	}
	if next != `[{"id":1},{"id":2,"seen":true,"n":3}]` {
		t.Fatalf("doc = %s", next)
	}
}

func TestUpdateWhereNoMatch(t *testing.T) {
	doc := `[{"id":1}]`
	next, count, err := UpdateWhere(doc, "id", "9", [][2]string{{"t", "x"}})
	if err != nil || count != 0 {
		t.Fatalf("count = %d, err = %v", count, err)
	}
	if next != doc {
		t.Fatalf("doc mutated without matches: %s", next)
	}
}

func TestDeleteWhere(t *testing.T) {
	doc := `[{"id":1},{"id":2},{"id":1},{"id":3}]`
	next, count, err := DeleteWhere(doc, "id", "1")
	if err != nil {
		t.Fatalf("DeleteWhere: %v", err)
	}
	if count != 2 {
		t.Fatalf("count = %d; want 2", count)
	}
	if next != `[{"id":2},{"id":3}]` {
		t.Fatalf("doc = %s", next)
	}
}

func TestAppendObject(t *testing.T) {
	doc := `[{"id":1}]`
	next, length, err := Append(doc, `{"id":2}`)
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if length != 2 {
		t.Fatalf("length = %d; want 2", length)
	}
	if next != `[{"id":1},{"id":2}]` {
		t.Fatalf("doc = %s", next)
	}
}

func TestAppendArrayExtends(t *testing.T) {
	doc := `[{"id":1}]`
	next, length, err := Append(doc, `[{"id":2},{"id":3}]`)
	if err != nil || length != 3 {
		t.Fatalf("length = %d, err = %v; want 3, nil", length, err)
	}
	if next != `[{"id":1},{"id":2},{"id":3}]` {
		t.Fatalf("doc = %s", next)
	}
}

func TestAppendRejectsScalars(t *testing.T) {
	if _, _, err := Append(`[]`, `42`); err != ErrBadElement {
		t.Fatalf("err = %v; want ErrBadElement", err)
	}
}

func TestAppendRejectsNonArrayDoc(t *testing.T) {
	if _, _, err := Append(`{"a":1}`, `{"b":2}`); err != ErrNotArray {
		t.Fatalf("err = %v; want ErrNotArray", err)
	}
}

func TestAppendRejectsMalformedElement(t *testing.T) {
	if _, _, err := Append(`[]`, `{broken`); err == nil {
		t.Fatal("malformed element accepted")
	}
}

func TestPrettyIsMultiLineAndOrdered(t *testing.T) {
	out := Pretty(`{"name":"Ada","age":36}`)
	if !strings.Contains(out, "\n") {
		t.Fatalf("Pretty produced a single line: %q", out)
	}
	if strings.Index(out, "name") > strings.Index(out, "age") {
		t.Fatalf("Pretty reordered keys: %q", out)
	}
}
