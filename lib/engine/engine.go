// Package engine implements the NukeKV store: a keyed map with per-key
// expiry, an LRU recency list and incremental memory accounting, all living
// behind one reader/writer lock.
package engine

import (
	"errors"
	"math"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/simplelru"
	"github.com/puzpuzpuz/xsync/v3"
)

// The recency list is bounded by bytes, not by entry count. The count cap
// handed to simplelru is therefore effectively infinite; eviction is driven
// by enforceMemoryLimit alone.
const lruCapacity = math.MaxInt32

var (
	// ErrNotNumeric is returned when INCR/DECR hits a value that does not
	// parse as a signed 64-bit integer.
	ErrNotNumeric = errors.New("value is not an integer")
)

// Logger is the minimal logging interface the engine needs. The server
// injects its leveled logger here.
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// nopLogger is used when no logger is configured (e.g. scratch stores).
type nopLogger struct{}

func (nopLogger) Debugf(string, ...interface{}) {}
func (nopLogger) Infof(string, ...interface{})  {}
func (nopLogger) Errorf(string, ...interface{}) {}

// Options configures a Store during initialization.
type Options struct {
	MaxMemoryBytes     uint64 // 0 = unlimited
	CachingEnabled     bool
	PersistenceEnabled bool
	DBFilename         string
	BatchSize          int32 // 0 = flush every mutation inline
	Logger             Logger
}

// DefaultOptions returns the default Store options: persistence on, caching
// on, no memory ceiling, batch size 1.
func DefaultOptions() *Options {
	return &Options{
		CachingEnabled:     true,
		PersistenceEnabled: true,
		DBFilename:         "nukekv.db",
		BatchSize:          1,
	}
}

// Store is the store aggregate. All four structures (data map, ttl map,
// recency list and its internal index) plus the memory estimate are guarded
// by mu; the dirty counter and batch size are atomically readable scalars.
type Store struct {
	mu   sync.RWMutex
	data map[string]string
	ttl  map[string]int64 // absolute deadlines, epoch milliseconds
	lru  *simplelru.LRU[string, struct{}]

	memUsed  *xsync.Counter
	dirtyOps *xsync.Counter

	maxMemory   uint64
	caching     bool
	persistence bool
	dbFilename  string
	batchSize   atomic.Int32

	logger Logger

	managerStop chan struct{}
	managerWG   sync.WaitGroup
	managerOnce sync.Once
}

// New creates a Store with the specified options (nil = defaults).
//
// Thread-safety: not safe for concurrent use; call once during startup.
func New(opts *Options) *Store {
	if opts == nil {
		opts = DefaultOptions()
	}
	logger := opts.Logger
	if logger == nil {
		logger = nopLogger{}
	}

	lru, _ := simplelru.NewLRU[string, struct{}](lruCapacity, nil)

	s := &Store{
		data:        make(map[string]string),
		ttl:         make(map[string]int64),
		lru:         lru,
		memUsed:     xsync.NewCounter(),
		dirtyOps:    xsync.NewCounter(),
		maxMemory:   opts.MaxMemoryBytes,
		caching:     opts.CachingEnabled,
		persistence: opts.PersistenceEnabled,
		dbFilename:  opts.DBFilename,
		logger:      logger,
		managerStop: make(chan struct{}),
	}
	s.batchSize.Store(opts.BatchSize)
	return s
}

// --------------------------------------------------------------------------
// Internal helpers (callers hold the exclusive lock)
// --------------------------------------------------------------------------

func entrySize(key, value string) int64 {
	return int64(len(key) + len(value))
}

// touch moves key to the head of the recency list. No-op when caching is
// disabled or no memory ceiling is configured, and for absent keys the list
// is never consulted by eviction anyway.
func (s *Store) touch(key string) {
	if !s.caching || s.maxMemory == 0 {
		return
	}
	s.lru.Add(key, struct{}{})
}

// enforceMemoryLimit evicts tail keys until the estimate fits the ceiling or
// the recency list is drained. Values are never partially trimmed.
func (s *Store) enforceMemoryLimit() {
	if !s.caching || s.maxMemory == 0 {
		return
	}
	for uint64(s.memUsed.Value()) > s.maxMemory && s.lru.Len() > 0 {
		victim, _, ok := s.lru.RemoveOldest()
		if !ok {
			return
		}
		s.memUsed.Add(-entrySize(victim, s.data[victim]))
		delete(s.data, victim)
		delete(s.ttl, victim)
		s.logger.Debugf("[CACHE] evicted key %q to stay within memory limits", victim)
	}
}

// commitWrite records n mutations and performs the inline flush when the
// batch size is zero.
func (s *Store) commitWrite(n int64) {
	s.dirtyOps.Add(n)
	if s.batchSize.Load() == 0 {
		s.flushLocked(s.dbFilename)
	}
}

// --------------------------------------------------------------------------
// Write Operations
// --------------------------------------------------------------------------

// Set inserts or overwrites a key. A plain Set (hasExpiry false) clears any
// prior expiry; with hasExpiry the deadline becomes now + expireSecs.
func (s *Store) Set(key, value string, expireSecs int64, hasExpiry bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var oldSize int64
	if old, ok := s.data[key]; ok {
		oldSize = entrySize(key, old)
	}
	s.data[key] = value
	s.memUsed.Add(entrySize(key, value) - oldSize)
	s.touch(key)

	if hasExpiry {
		s.ttl[key] = time.Now().UnixMilli() + expireSecs*1000
	} else {
		delete(s.ttl, key)
	}

	s.commitWrite(1)
	s.enforceMemoryLimit()
}

// Update overwrites the value of an existing key without altering its
// expiry. It reports whether the key was present.
func (s *Store) Update(key, value string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.data[key]
	if !ok {
		return false
	}
	s.data[key] = value
	s.memUsed.Add(entrySize(key, value) - entrySize(key, old))
	s.touch(key)

	s.commitWrite(1)
	s.enforceMemoryLimit()
	return true
}

// Delete removes the given keys and returns how many were actually present.
func (s *Store) Delete(keys ...string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	deleted := 0
	for _, key := range keys {
		value, ok := s.data[key]
		if !ok {
			continue
		}
		s.memUsed.Add(-entrySize(key, value))
		delete(s.data, key)
		delete(s.ttl, key)
		if s.caching {
			s.lru.Remove(key)
		}
		deleted++
	}
	if deleted > 0 {
		s.commitWrite(int64(deleted))
	}
	return deleted
}

// IncrBy adjusts the integer value stored at key by delta. A missing key is
// treated as zero; a non-numeric value yields ErrNotNumeric.
func (s *Store) IncrBy(key string, delta int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var current int64
	var oldSize int64
	if old, ok := s.data[key]; ok {
		parsed, err := strconv.ParseInt(old, 10, 64)
		if err != nil {
			return 0, ErrNotNumeric
		}
		current = parsed
		oldSize = entrySize(key, old)
	}

	next := current + delta
	value := strconv.FormatInt(next, 10)
	s.data[key] = value
	s.memUsed.Add(entrySize(key, value) - oldSize)
	s.touch(key)

	s.commitWrite(1)
	s.enforceMemoryLimit()
	return next, nil
}

// SetExpiry sets or removes the expiry of an existing key: secs > 0 arms an
// absolute deadline of now + secs, secs <= 0 clears any expiry. It reports
// whether the key was present.
func (s *Store) SetExpiry(key string, secs int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data[key]; !ok {
		return false
	}
	if secs <= 0 {
		delete(s.ttl, key)
	} else {
		s.ttl[key] = time.Now().UnixMilli() + secs*1000
	}
	s.commitWrite(1)
	return true
}

// Transform applies an exclusive read-modify-write to key. fn receives the
// current value and returns the replacement plus whether anything changed;
// an unchanged result leaves the recency list and dirty counter untouched.
// The boolean return reports key presence; fn errors pass through verbatim.
func (s *Store) Transform(key string, fn func(current string) (next string, changed bool, err error)) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.data[key]
	if !ok {
		return false, nil
	}
	next, changed, err := fn(current)
	if err != nil {
		return true, err
	}
	if !changed {
		return true, nil
	}

	s.data[key] = next
	s.memUsed.Add(entrySize(key, next) - entrySize(key, current))
	s.touch(key)

	s.commitWrite(1)
	s.enforceMemoryLimit()
	return true, nil
}

// Clear drops every entry and resets the memory estimate. Returns the number
// of keys removed.
func (s *Store) Clear() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cleared := len(s.data)
	s.data = make(map[string]string)
	s.ttl = make(map[string]int64)
	s.lru.Purge()
	s.memUsed.Reset()

	s.commitWrite(1)
	return cleared
}

// --------------------------------------------------------------------------
// Read Operations
// --------------------------------------------------------------------------

// Get returns the value for key. The read happens under the shared lock;
// the recency touch re-acquires the exclusive lock afterwards, so a key
// evicted in between reads as absent.
//
// Expired-but-unswept keys remain visible here; strict freshness goes
// through TTL first.
func (s *Store) Get(key string) (string, bool) {
	s.mu.RLock()
	value, ok := s.data[key]
	s.mu.RUnlock()
	if !ok {
		return "", false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[key]; !ok {
		return "", false
	}
	s.touch(key)
	return value, true
}

// Peek returns the value for key under the shared lock without touching the
// recency list. JSON read operators use it so only successful replies touch.
func (s *Store) Peek(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.data[key]
	return value, ok
}

// Touch moves key to the head of the recency list if it is still present.
func (s *Store) Touch(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[key]; ok {
		s.touch(key)
	}
}

// TTLState classifies the result of a TTL lookup.
type TTLState int

const (
	TTLMissing  TTLState = iota // key absent (or expired, see TTLExpired)
	TTLExpired                  // key present but deadline already passed
	TTLNone                     // key present, no expiry
	TTLRemaining
)

// TTL returns the remaining whole seconds for key and a state classifier.
func (s *Store) TTL(key string) (int64, TTLState) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.data[key]; !ok {
		return 0, TTLMissing
	}
	deadline, ok := s.ttl[key]
	if !ok {
		return 0, TTLNone
	}
	now := time.Now().UnixMilli()
	if now > deadline {
		return 0, TTLExpired
	}
	return (deadline - now) / 1000, TTLRemaining
}

// PrefixCount counts keys starting with prefix. Pure read, no touch.
func (s *Store) PrefixCount(prefix string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for key := range s.data {
		if strings.HasPrefix(key, prefix) {
			count++
		}
	}
	return count
}

// --------------------------------------------------------------------------
// Introspection
// --------------------------------------------------------------------------

// Stats is a point-in-time snapshot of the store counters.
type Stats struct {
	Keys       int
	TTLKeys    int
	MemoryUsed uint64
	DirtyOps   int64
	BatchSize  int32
	MaxMemory  uint64
	Caching    bool
}

// StatsSnapshot returns the current counters under the shared lock.
func (s *Store) StatsSnapshot() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Stats{
		Keys:       len(s.data),
		TTLKeys:    len(s.ttl),
		MemoryUsed: uint64(s.memUsed.Value()),
		DirtyOps:   s.dirtyOps.Value(),
		BatchSize:  s.batchSize.Load(),
		MaxMemory:  s.maxMemory,
		Caching:    s.caching,
	}
}

// MemoryUsed returns the running key+value byte estimate.
func (s *Store) MemoryUsed() uint64 {
	return uint64(s.memUsed.Value())
}

// DirtyOps returns the number of mutations since the last primary flush.
func (s *Store) DirtyOps() int64 {
	return s.dirtyOps.Value()
}

// BatchSize returns the current flush batch size.
func (s *Store) BatchSize() int32 {
	return s.batchSize.Load()
}

// SetBatchSize updates the flush batch size (0 = flush every mutation).
func (s *Store) SetBatchSize(n int32) {
	s.batchSize.Store(n)
}

// LRULen returns the number of entries in the recency list.
func (s *Store) LRULen() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lru.Len()
}
