package handler

import (
	"strconv"
	"strings"

	"github.com/Akshat-Diwedi/nuke-kv/lib/engine"
)

// Set handles `SET key "value" [EX seconds]`. A plain SET clears any prior
// expiry; the EX form arms an absolute deadline. The EX keyword is matched
// case-insensitively; any other third token is a client error.
func (c *Commands) Set(args []string) Result {
	if len(args) != 2 && len(args) != 4 {
		return badRequest(`-ERR wrong number of arguments for 'SET'. Expected: SET <key> "<value>" [EX <seconds>]`)
	}
	if len(args) == 2 {
		c.store.Set(args[0], args[1], 0, false)
		return ok("+OK")
	}

	if !strings.EqualFold(args[2], "EX") {
		return badRequest("-ERR syntax error, expected EX")
	}
	secs, err := strconv.ParseInt(args[3], 10, 64)
	if err != nil {
		return badRequest("-ERR value is not an integer")
	}
	c.store.Set(args[0], args[1], secs, true)
	return ok("+OK")
}

// Get handles `GET key`. Expired-but-unswept keys are still returned; that
// is a protocol contract, not an oversight.
func (c *Commands) Get(args []string) Result {
	if len(args) != 1 {
		return badRequest("-ERR wrong number of arguments")
	}
	value, found := c.store.Get(args[0])
	if !found {
		return notFound("(nil)")
	}
	return ok(value)
}

// Update handles `UPDATE key "value"`: like SET but fails on absent keys and
// never alters expiry.
func (c *Commands) Update(args []string) Result {
	if len(args) != 2 {
		return badRequest(`-ERR wrong number of arguments for 'UPDATE'. Expected: UPDATE <key> "<value>"`)
	}
	if !c.store.Update(args[0], args[1]) {
		return notFound("(nil)")
	}
	return ok("+OK")
}

// Del handles `DEL key [key2 ...]` and replies with the count actually
// removed; zero is not an error.
func (c *Commands) Del(args []string) Result {
	if len(args) == 0 {
		return badRequest("-ERR wrong number of arguments")
	}
	deleted := c.store.Delete(args...)
	return ok(":" + strconv.Itoa(deleted))
}

// incrDecr handles INCR and DECR with an optional amount (default 1). A
// missing key counts from zero.
func (c *Commands) incrDecr(args []string, negate bool) Result {
	if len(args) == 0 || len(args) > 2 {
		return badRequest("-ERR wrong number of arguments")
	}
	amount := int64(1)
	if len(args) == 2 {
		parsed, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return badRequest("-ERR not an integer")
		}
		amount = parsed
	}
	if negate {
		amount = -amount
	}

	next, err := c.store.IncrBy(args[0], amount)
	if err == engine.ErrNotNumeric {
		return badRequest("-ERR value is not an integer")
	}
	return ok(":" + strconv.FormatInt(next, 10))
}

// TTL handles `TTL key`: remaining whole seconds, `:-1` for a key without
// expiry, `(nil)` for an absent or already expired key.
func (c *Commands) TTL(args []string) Result {
	if len(args) != 1 {
		return badRequest("-ERR wrong number of arguments")
	}
	remaining, state := c.store.TTL(args[0])
	switch state {
	case engine.TTLMissing, engine.TTLExpired:
		return notFound("(nil)")
	case engine.TTLNone:
		return ok(":-1")
	default:
		return ok(":" + strconv.FormatInt(remaining, 10))
	}
}

// Expire handles `EXPIRE key seconds` on an existing key; seconds <= 0
// removes any expiry.
func (c *Commands) Expire(args []string) Result {
	if len(args) != 2 {
		return badRequest("-ERR wrong number of arguments")
	}
	secs, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		return badRequest("-ERR invalid TTL value")
	}
	if !c.store.SetExpiry(args[0], secs) {
		return notFound("(nil)")
	}
	return ok("+OK")
}
