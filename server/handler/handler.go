// Package handler implements the per-verb command semantics. Each handler
// takes the tokenized arguments and returns a status code plus the reply
// text that goes back on the wire.
package handler

import (
	"github.com/Akshat-Diwedi/nuke-kv/lib/engine"
	"github.com/Akshat-Diwedi/nuke-kv/server/common"
)

// Status codes carried alongside replies. On the wire they collapse into the
// reply sigil; in-process callers (tests, the pool) can branch on them.
const (
	StatusOK         = 200
	StatusBadRequest = 400
	StatusNotFound   = 404
	StatusInternal   = 500
)

// Result is a handler's outcome: a status classification and the
// sigil-prefixed reply text.
type Result struct {
	Code int
	Text string
}

func ok(text string) Result         { return Result{StatusOK, text} }
func badRequest(text string) Result { return Result{StatusBadRequest, text} }
func notFound(text string) Result   { return Result{StatusNotFound, text} }
func internal(text string) Result   { return Result{StatusInternal, text} }

// Func is the signature every verb handler implements.
type Func func(args []string) Result

// Commands bundles the store with the runtime knobs the operational verbs
// need (worker count for STATS, the debug toggle for DEBUG).
type Commands struct {
	store    *engine.Store
	cfg      common.ServerConfig
	workers  int
	setDebug func(bool)
}

// New creates the command set. workers is the resolved worker count;
// setDebug flips the server's debug mode (may be nil).
func New(store *engine.Store, cfg common.ServerConfig, workers int, setDebug func(bool)) *Commands {
	if setDebug == nil {
		setDebug = func(bool) {}
	}
	return &Commands{store: store, cfg: cfg, workers: workers, setDebug: setDebug}
}

// Table returns the static verb dispatch table. PING and QUIT are absent on
// purpose: sessions short-circuit them without a queue round trip.
func (c *Commands) Table() map[string]Func {
	return map[string]Func{
		"SET":         c.Set,
		"GET":         c.Get,
		"UPDATE":      c.Update,
		"DEL":         c.Del,
		"INCR":        func(args []string) Result { return c.incrDecr(args, false) },
		"DECR":        func(args []string) Result { return c.incrDecr(args, true) },
		"TTL":         c.TTL,
		"EXPIRE":      c.Expire,
		"JSON.SET":    c.JSONSet,
		"JSON.GET":    c.JSONGet,
		"JSON.UPDATE": c.JSONUpdate,
		"JSON.DEL":    c.JSONDel,
		"JSON.APPEND": c.JSONAppend,
		"JSON.SEARCH": c.JSONSearch,
		"STATS":       c.Stats,
		"BATCH":       c.Batch,
		"DEBUG":       c.Debug,
		"STRESS":      c.Stress,
		"CLRDB":       c.ClearDB,
		"SIMILAR":     c.Similar,
	}
}
