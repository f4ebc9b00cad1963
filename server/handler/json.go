package handler

import (
	"errors"
	"strconv"
	"strings"

	"github.com/Akshat-Diwedi/nuke-kv/lib/jsonops"
)

var errNotJSONDocument = errors.New("stored value is not a valid JSON document")

// JSONSet handles `JSON.SET key '<json>' [EX seconds]`: the value must parse
// as JSON and is stored in its canonical serialization (key order kept),
// after which it behaves exactly like SET.
func (c *Commands) JSONSet(args []string) Result {
	if len(args) != 2 && len(args) != 4 {
		return badRequest(`-ERR wrong number of arguments for 'JSON.SET'. Expected: JSON.SET <key> '<value>' [EX <seconds>]`)
	}
	canonical, err := jsonops.Canonicalize(args[1])
	if err != nil {
		return badRequest("-ERR invalid JSON: " + err.Error())
	}

	setArgs := []string{args[0], canonical}
	if len(args) == 4 {
		setArgs = append(setArgs, args[2], args[3])
	}
	return c.Set(setArgs)
}

// JSONGet handles the three read forms: whole document, path list, and
// `WHERE field value` array filtering.
func (c *Commands) JSONGet(args []string) Result {
	if len(args) == 0 {
		return badRequest("-ERR wrong number of arguments")
	}
	key := args[0]
	doc, found := c.store.Peek(key)
	if !found {
		return notFound("(nil)")
	}
	if !jsonops.Valid(doc) {
		return internal("-ERR not a valid JSON document")
	}

	whereAt := indexOf(args, "WHERE")
	var reply string
	switch {
	case whereAt >= 0:
		if len(args)-whereAt != 3 {
			return badRequest("-ERR syntax: ... WHERE <field> <value>")
		}
		matches, count, err := jsonops.FilterWhere(doc, args[whereAt+1], args[whereAt+2])
		if err != nil {
			return badRequest("-ERR `WHERE` clause can only be used on JSON arrays.")
		}
		if count == 0 {
			return notFound("[]")
		}
		reply = jsonops.Pretty(matches)
	case len(args) > 1:
		reply = jsonops.Pretty(jsonops.GetPaths(doc, args[1:]))
	default:
		reply = jsonops.Pretty(doc)
	}

	c.store.Touch(key)
	return ok(reply)
}

// JSONUpdate handles `JSON.UPDATE key WHERE field value SET f1 v1 [f2 v2 …]`
// and replies with the number of array elements mutated.
func (c *Commands) JSONUpdate(args []string) Result {
	if len(args) < 4 {
		return badRequest("-ERR invalid syntax for JSON.UPDATE")
	}
	whereAt := indexOf(args, "WHERE")
	setAt := indexOf(args, "SET")
	if whereAt < 0 || setAt < 0 || setAt-whereAt != 3 {
		return badRequest("-ERR syntax error. Expected: ... WHERE <field> <value> SET ...")
	}
	setArgs := args[setAt+1:]
	if len(setArgs) < 2 || len(setArgs)%2 != 0 {
		return badRequest("-ERR syntax error. Expected: ... SET <field1> <value1> ...")
	}
	var sets [][2]string
	for i := 0; i < len(setArgs); i += 2 {
		sets = append(sets, [2]string{setArgs[i], setArgs[i+1]})
	}

	var updated int
	found, err := c.store.Transform(args[0], func(doc string) (string, bool, error) {
		if !jsonops.Valid(doc) {
			return "", false, errNotJSONDocument
		}
		next, count, err := jsonops.UpdateWhere(doc, args[whereAt+1], args[whereAt+2], sets)
		if err != nil {
			return "", false, err
		}
		updated = count
		return next, count > 0, nil
	})
	if !found {
		return notFound("(nil)")
	}
	if res, handled := jsonWriteError(err); handled {
		return res
	}
	return ok(":" + strconv.Itoa(updated))
}

// JSONDel handles `JSON.DEL key [WHERE field value]`: the bare form deletes
// the key outright, the WHERE form removes matching array elements.
func (c *Commands) JSONDel(args []string) Result {
	if len(args) == 0 {
		return badRequest("-ERR wrong number of arguments")
	}
	if len(args) == 1 {
		return c.Del(args)
	}
	if len(args) != 4 || args[1] != "WHERE" {
		return badRequest("-ERR syntax: JSON.DEL <key> [WHERE <field> <value>]")
	}

	var deleted int
	found, err := c.store.Transform(args[0], func(doc string) (string, bool, error) {
		if !jsonops.Valid(doc) {
			return "", false, errNotJSONDocument
		}
		next, count, err := jsonops.DeleteWhere(doc, args[2], args[3])
		if err != nil {
			return "", false, err
		}
		deleted = count
		return next, count > 0, nil
	})
	if !found {
		return notFound("(nil)")
	}
	if res, handled := jsonWriteError(err); handled {
		return res
	}
	return ok(":" + strconv.Itoa(deleted))
}

// JSONAppend handles `JSON.APPEND key '<json>'` against an array document:
// an object pushes one element, an array extends. Replies with the new
// length.
func (c *Commands) JSONAppend(args []string) Result {
	if len(args) != 2 {
		return badRequest("-ERR wrong number of arguments. Syntax: JSON.APPEND <key> '<json_to_append>'")
	}

	var length int
	found, err := c.store.Transform(args[0], func(doc string) (string, bool, error) {
		if !jsonops.Valid(doc) {
			return "", false, errNotJSONDocument
		}
		next, newLen, err := jsonops.Append(doc, args[1])
		if err != nil {
			return "", false, err
		}
		length = newLen
		return next, true, nil
	})
	if !found {
		return notFound("(nil)")
	}
	switch {
	case errors.Is(err, errNotJSONDocument):
		return internal("-ERR value at key is not a valid JSON document")
	case errors.Is(err, jsonops.ErrNotArray):
		return badRequest("-ERR APPEND requires the value at key to be a JSON array")
	case errors.Is(err, jsonops.ErrBadElement):
		return badRequest("-ERR append value must be a JSON object or array")
	case err != nil:
		return badRequest("-ERR " + err.Error())
	}
	return ok(":" + strconv.Itoa(length))
}

// JSONSearch handles `JSON.SEARCH key term [MAX n]`: recursive whole-word,
// case-insensitive search. Matching elements accumulate into a JSON array.
func (c *Commands) JSONSearch(args []string) Result {
	if len(args) != 2 && len(args) != 4 {
		return badRequest(`-ERR syntax: JSON.SEARCH <key> "<term>" [MAX <count>]`)
	}
	key, term := args[0], args[1]
	if term == "" {
		return badRequest("-ERR search term cannot be empty")
	}

	max := 0 // unbounded
	if len(args) == 4 {
		if !strings.EqualFold(args[2], "MAX") {
			return badRequest("-ERR expected MAX keyword after term")
		}
		count, err := strconv.ParseInt(args[3], 10, 64)
		if err != nil {
			return badRequest("-ERR invalid number for MAX count")
		}
		if count <= 0 {
			return badRequest("-ERR MAX count must be a positive integer")
		}
		max = int(count)
	}

	doc, found := c.store.Peek(key)
	if !found {
		return notFound("(nil)")
	}
	if !jsonops.Valid(doc) {
		return internal("-ERR not a valid JSON document")
	}

	matches, any := jsonops.Search(doc, term, max)
	if !any {
		return notFound("(nil)")
	}
	c.store.Touch(key)
	return ok(jsonops.Pretty(matches))
}

// jsonWriteError maps the Transform errors shared by UPDATE and DEL onto
// replies. The boolean reports whether err was non-nil.
func jsonWriteError(err error) (Result, bool) {
	switch {
	case err == nil:
		return Result{}, false
	case errors.Is(err, errNotJSONDocument):
		return internal("-ERR not a valid JSON document"), true
	case errors.Is(err, jsonops.ErrNotArray):
		return badRequest("-ERR `WHERE` clause can only be used on JSON arrays."), true
	default:
		return badRequest("-ERR " + err.Error()), true
	}
}

func indexOf(args []string, token string) int {
	for i, a := range args {
		if a == token {
			return i
		}
	}
	return -1
}
