package engine

import (
	"math/rand"
	"strconv"
	"testing"
	"time"
)

// newTestStore returns an in-memory store: caching on, persistence off.
func newTestStore(maxMemory uint64) *Store {
	return New(&Options{
		MaxMemoryBytes:     maxMemory,
		CachingEnabled:     true,
		PersistenceEnabled: false,
		DBFilename:         "test.db",
		BatchSize:          1,
	})
}

func TestSetGet(t *testing.T) {
	s := newTestStore(0)

	s.Set("foo", "bar", 0, false)
	got, ok := s.Get("foo")
	if !ok || got != "bar" {
		t.Fatalf("Get(foo) = %q, %v; want bar, true", got, ok)
	}

	s.Set("foo", "baz", 0, false)
	got, _ = s.Get("foo")
	if got != "baz" {
		t.Fatalf("Get(foo) after overwrite = %q; want baz", got)
	}

	if _, ok := s.Get("missing"); ok {
		t.Fatal("Get(missing) reported a value")
	}
}

func TestSetClearsExpiry(t *testing.T) {
	s := newTestStore(0)

	s.Set("k", "v", 100, true)
	if _, state := s.TTL("k"); state != TTLRemaining {
		t.Fatalf("TTL state = %v; want TTLRemaining", state)
	}

	// A plain SET removes the prior expiry.
	s.Set("k", "v2", 0, false)
	if _, state := s.TTL("k"); state != TTLNone {
		t.Fatalf("TTL state after plain SET = %v; want TTLNone", state)
	}
}

func TestUpdate(t *testing.T) {
	s := newTestStore(0)

	if s.Update("nope", "v") {
		t.Fatal("Update on missing key reported success")
	}

	s.Set("k", "v", 100, true)
	if !s.Update("k", "v2") {
		t.Fatal("Update on existing key failed")
	}
	got, _ := s.Get("k")
	if got != "v2" {
		t.Fatalf("value after Update = %q; want v2", got)
	}
	// Update must not alter the expiry.
	if _, state := s.TTL("k"); state != TTLRemaining {
		t.Fatal("Update dropped the expiry")
	}
}

func TestDelete(t *testing.T) {
	s := newTestStore(0)

	s.Set("a", "1", 0, false)
	s.Set("b", "2", 0, false)
	s.Set("c", "3", 0, false)

	if n := s.Delete("a", "b", "missing"); n != 2 {
		t.Fatalf("Delete = %d; want 2", n)
	}
	if _, ok := s.Get("a"); ok {
		t.Fatal("deleted key a still readable")
	}
	if n := s.Delete("c"); n != 1 {
		t.Fatalf("Delete(c) = %d; want 1", n)
	}
	if n := s.Delete("c"); n != 0 {
		t.Fatalf("Delete(c) again = %d; want 0", n)
	}
}

func TestIncrBy(t *testing.T) {
	s := newTestStore(0)

	// Missing key counts from zero.
	for i := int64(1); i <= 5; i++ {
		got, err := s.IncrBy("n", 1)
		if err != nil || got != i {
			t.Fatalf("IncrBy #%d = %d, %v; want %d, nil", i, got, err, i)
		}
	}

	got, err := s.IncrBy("n", -20)
	if err != nil || got != -15 {
		t.Fatalf("IncrBy(-20) = %d, %v; want -15, nil", got, err)
	}

	s.Set("text", "hello", 0, false)
	if _, err := s.IncrBy("text", 1); err != ErrNotNumeric {
		t.Fatalf("IncrBy on non-numeric = %v; want ErrNotNumeric", err)
	}
}

func TestTTLStates(t *testing.T) {
	s := newTestStore(0)

	if _, state := s.TTL("missing"); state != TTLMissing {
		t.Fatalf("state = %v; want TTLMissing", state)
	}

	s.Set("plain", "v", 0, false)
	if _, state := s.TTL("plain"); state != TTLNone {
		t.Fatalf("state = %v; want TTLNone", state)
	}

	s.Set("soon", "v", 100, true)
	remaining, state := s.TTL("soon")
	if state != TTLRemaining {
		t.Fatalf("state = %v; want TTLRemaining", state)
	}
	if remaining < 99 || remaining > 100 {
		t.Fatalf("remaining = %d; want within [99, 100]", remaining)
	}

	// Force the deadline into the past: data stays visible to Get until the
	// sweep, but TTL already reports the key gone.
	s.mu.Lock()
	s.ttl["soon"] = time.Now().UnixMilli() - 10
	s.mu.Unlock()

	if _, state := s.TTL("soon"); state != TTLExpired {
		t.Fatalf("state = %v; want TTLExpired", state)
	}
	if _, ok := s.Get("soon"); !ok {
		t.Fatal("expired-but-unswept key must remain visible to Get")
	}
}

func TestSetExpiry(t *testing.T) {
	s := newTestStore(0)

	if s.SetExpiry("missing", 10) {
		t.Fatal("SetExpiry on missing key reported success")
	}

	s.Set("k", "v", 0, false)
	if !s.SetExpiry("k", 50) {
		t.Fatal("SetExpiry failed on existing key")
	}
	if _, state := s.TTL("k"); state != TTLRemaining {
		t.Fatal("expiry not armed")
	}

	// Zero or negative seconds removes the expiry.
	s.SetExpiry("k", 0)
	if _, state := s.TTL("k"); state != TTLNone {
		t.Fatal("SetExpiry(0) did not clear the expiry")
	}
}

func TestSweepExpired(t *testing.T) {
	s := newTestStore(0)

	s.Set("stays", "v", 1000, true)
	s.Set("goes", "v", 1, true)
	s.Set("forever", "v", 0, false)

	now := time.Now().UnixMilli()
	if n := s.SweepExpired(now); n != 0 {
		t.Fatalf("sweep before deadline removed %d keys", n)
	}

	if n := s.SweepExpired(now + 2000); n != 1 {
		t.Fatalf("sweep = %d; want 1", n)
	}
	if _, ok := s.Get("goes"); ok {
		t.Fatal("swept key still readable")
	}
	if _, ok := s.Get("stays"); !ok {
		t.Fatal("sweep removed a live key")
	}
	if _, ok := s.Get("forever"); !ok {
		t.Fatal("sweep removed a key without expiry")
	}

	// Invariant: swept keys are gone from all structures.
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.ttl["goes"]; ok {
		t.Fatal("swept key still in ttl map")
	}
	if s.lru.Contains("goes") {
		t.Fatal("swept key still in recency list")
	}
}

func TestClear(t *testing.T) {
	s := newTestStore(0)

	s.Set("a", "1", 0, false)
	s.Set("b", "2", 10, true)

	if n := s.Clear(); n != 2 {
		t.Fatalf("Clear = %d; want 2", n)
	}
	if s.MemoryUsed() != 0 {
		t.Fatalf("memory after Clear = %d; want 0", s.MemoryUsed())
	}
	if _, ok := s.Get("a"); ok {
		t.Fatal("cleared key still readable")
	}
}

func TestPrefixCount(t *testing.T) {
	s := newTestStore(0)

	s.Set("user:1", "a", 0, false)
	s.Set("user:2", "b", 0, false)
	s.Set("item:1", "c", 0, false)

	if n := s.PrefixCount("user:"); n != 2 {
		t.Fatalf("PrefixCount(user:) = %d; want 2", n)
	}
	if n := s.PrefixCount("none"); n != 0 {
		t.Fatalf("PrefixCount(none) = %d; want 0", n)
	}
}

func TestLRUEviction(t *testing.T) {
	// Limit fits two of the three 8-byte entries (key 2 + value 6).
	s := newTestStore(16)

	s.Set("k1", "aaaaaa", 0, false)
	s.Set("k2", "bbbbbb", 0, false)

	// Touch k1 so k2 becomes the tail.
	if _, ok := s.Get("k1"); !ok {
		t.Fatal("k1 missing before eviction")
	}

	s.Set("k3", "cccccc", 0, false)

	if _, ok := s.Get("k2"); ok {
		t.Fatal("tail key k2 survived eviction")
	}
	if _, ok := s.Get("k1"); !ok {
		t.Fatal("recently used key k1 was evicted")
	}
	if _, ok := s.Get("k3"); !ok {
		t.Fatal("just-written key k3 was evicted")
	}
	if s.MemoryUsed() > 16 {
		t.Fatalf("memory %d exceeds limit after eviction", s.MemoryUsed())
	}

	// Evicted key must be gone from every structure.
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.ttl["k2"]; ok {
		t.Fatal("evicted key still in ttl map")
	}
	if s.lru.Contains("k2") {
		t.Fatal("evicted key still in recency list")
	}
}

// TestMemoryAccounting drives random mutations and checks after each one
// that the incremental estimate matches a full recount and that the memory
// limit holds.
func TestMemoryAccounting(t *testing.T) {
	const limit = 256
	s := newTestStore(limit)
	rng := rand.New(rand.NewSource(42))

	recount := func() uint64 {
		s.mu.RLock()
		defer s.mu.RUnlock()
		var total uint64
		for k, v := range s.data {
			total += uint64(len(k) + len(v))
		}
		return total
	}

	randKey := func() string { return "key:" + strconv.Itoa(rng.Intn(20)) }
	randValue := func() string {
		n := rng.Intn(24)
		b := make([]byte, n)
		for i := range b {
			b[i] = byte('a' + rng.Intn(26))
		}
		return string(b)
	}

	for i := 0; i < 2000; i++ {
		switch rng.Intn(6) {
		case 0, 1:
			s.Set(randKey(), randValue(), 0, false)
		case 2:
			s.Set(randKey(), randValue(), 30, true)
		case 3:
			s.Update(randKey(), randValue())
		case 4:
			s.Delete(randKey())
		case 5:
			s.IncrBy("ctr:"+strconv.Itoa(rng.Intn(4)), int64(rng.Intn(100)-50))
		}

		if got, want := s.MemoryUsed(), recount(); got != want {
			t.Fatalf("op %d: estimate %d != recount %d", i, got, want)
		}
		if used, lruLen := s.MemoryUsed(), s.LRULen(); used > limit && lruLen > 1 {
			t.Fatalf("op %d: estimate %d over limit with %d LRU entries", i, used, lruLen)
		}
	}
}

func TestTransform(t *testing.T) {
	s := newTestStore(0)

	found, err := s.Transform("missing", func(string) (string, bool, error) {
		t.Fatal("fn called for a missing key")
		return "", false, nil
	})
	if found || err != nil {
		t.Fatalf("Transform(missing) = %v, %v; want false, nil", found, err)
	}

	s.Set("k", "old", 0, false)
	dirtyBefore := s.DirtyOps()

	// Unchanged result leaves the dirty counter alone.
	found, err = s.Transform("k", func(cur string) (string, bool, error) {
		return cur, false, nil
	})
	if !found || err != nil {
		t.Fatalf("Transform unchanged = %v, %v", found, err)
	}
	if s.DirtyOps() != dirtyBefore {
		t.Fatal("unchanged Transform marked the store dirty")
	}

	found, err = s.Transform("k", func(cur string) (string, bool, error) {
		return cur + "-new", true, nil
	})
	if !found || err != nil {
		t.Fatalf("Transform = %v, %v", found, err)
	}
	got, _ := s.Get("k")
	if got != "old-new" {
		t.Fatalf("value after Transform = %q", got)
	}
	if s.DirtyOps() != dirtyBefore+1 {
		t.Fatal("Transform did not mark the store dirty")
	}
}

func TestBackgroundManagerSweeps(t *testing.T) {
	s := newTestStore(0)
	s.StartManager()
	defer s.StopManager()

	s.Set("short", "v", 1, true)

	deadline := time.Now().Add(4 * time.Second)
	for time.Now().Before(deadline) {
		if _, ok := s.Get("short"); !ok {
			return // swept
		}
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatal("background manager did not sweep the expired key")
}
