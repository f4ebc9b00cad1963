package handler

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/VictoriaMetrics/metrics"

	"github.com/Akshat-Diwedi/nuke-kv/lib/engine"
	"github.com/Akshat-Diwedi/nuke-kv/server/common"
)

// Counter names shared with the server package; GetOrCreateCounter hands
// back the same instance everywhere.
const (
	MetricCommandsTotal    = "nukekv_commands_total"
	MetricConnectionsTotal = "nukekv_connections_total"
)

// Stats handles `STATS`: a multi-line report of configuration and counters.
func (c *Commands) Stats(args []string) Result {
	if len(args) != 0 {
		return badRequest("-ERR wrong number of arguments")
	}
	snap := c.store.StatsSnapshot()

	var sb strings.Builder
	sb.WriteString("Version: NukeKV v2.5-stable\n")
	sb.WriteString("Protocol: Nuke-Wire (framed TCP)\n")
	fmt.Fprintf(&sb, "Debug Mode: %s\n", onOff(c.cfg.Debug))
	fmt.Fprintf(&sb, "Worker Threads: %d\n", c.workers)
	fmt.Fprintf(&sb, "Commands Processed: %d\n", metrics.GetOrCreateCounter(MetricCommandsTotal).Get())
	fmt.Fprintf(&sb, "Connections Accepted: %d\n", metrics.GetOrCreateCounter(MetricConnectionsTotal).Get())
	sb.WriteString("-------------------------\n")
	fmt.Fprintf(&sb, "Persistence Disk: %s\n", enabled(c.cfg.PersistenceEnabled))
	if c.cfg.PersistenceEnabled {
		fmt.Fprintf(&sb, "  - Batch Size: %d\n", snap.BatchSize)
		fmt.Fprintf(&sb, "  - Unsaved Ops: %d\n", snap.DirtyOps)
		fmt.Fprintf(&sb, "  - Disk Size: %s\n", diskSize(c.cfg.DBFilename))
	}
	sb.WriteString("-------------------------\n")
	fmt.Fprintf(&sb, "Caching: %s\n", enabled(snap.Caching))
	if snap.Caching {
		limit := "Unlimited"
		if snap.MaxMemory > 0 {
			limit = common.FormatBytes(snap.MaxMemory)
		}
		fmt.Fprintf(&sb, "  - Memory Limit: %s\n", limit)
		fmt.Fprintf(&sb, "  - Memory Used: %s\n", common.FormatBytes(snap.MemoryUsed))
	}
	sb.WriteString("-------------------------\n")
	fmt.Fprintf(&sb, "Total Keys: %d\n", snap.Keys)
	fmt.Fprintf(&sb, "Keys with TTL: %d\n", snap.TTLKeys)
	sb.WriteString("-------------------------")
	return ok(sb.String())
}

// Batch handles `BATCH n`: sets the flush batch size; 0 flushes every
// mutation inline.
func (c *Commands) Batch(args []string) Result {
	if len(args) != 1 {
		return badRequest("-ERR BATCH requires one argument")
	}
	size, err := strconv.ParseInt(args[0], 10, 32)
	if err != nil {
		return badRequest("-ERR value is not an integer")
	}
	if size < 0 {
		return badRequest("-ERR batch size cannot be negative")
	}
	c.store.SetBatchSize(int32(size))
	return ok("+OK")
}

// Debug handles `DEBUG true|false`, toggling the reply-timing suffix and
// verbose logging.
func (c *Commands) Debug(args []string) Result {
	if len(args) != 1 {
		return badRequest("-ERR DEBUG requires one argument")
	}
	switch strings.ToLower(args[0]) {
	case "true":
		c.cfg.Debug = true
		c.setDebug(true)
		return ok("+OK Debug mode enabled.")
	case "false":
		c.cfg.Debug = false
		c.setDebug(false)
		return ok("+OK Debug mode disabled.")
	default:
		return badRequest("-ERR Invalid argument. Use 'true' or 'false'.")
	}
}

// stressDBFilename is the scratch snapshot target; flushing it never resets
// the primary dirty counter because it belongs to the scratch store.
const stressDBFilename = "stress-test.db"

// Stress handles `STRESS n`: a SET/UPDATE/GET/DEL benchmark over n scratch
// keys. The scratch store is separate from the live data and its snapshot
// file is removed afterwards.
func (c *Commands) Stress(args []string) Result {
	if len(args) != 1 {
		return badRequest("-ERR STRESS requires one argument")
	}
	count, err := strconv.Atoi(args[0])
	if err != nil {
		return badRequest("-ERR invalid number")
	}
	if count <= 0 {
		return badRequest("-ERR count must be positive")
	}

	scratch := engine.New(&engine.Options{
		PersistenceEnabled: c.cfg.PersistenceEnabled,
		DBFilename:         stressDBFilename,
		BatchSize:          int32(count) + 1, // no inline flushing mid-run
	})
	keys := make([]string, count)
	for i := range keys {
		keys[i] = "stress:" + strconv.Itoa(i)
	}

	overallStart := time.Now()
	var sb strings.Builder
	fmt.Fprintf(&sb, "Stress Test running for %d ops ...\n", count)
	sb.WriteString("-------------------------------------------")

	phase := func(name string, op func(i int)) {
		start := time.Now()
		for i := 0; i < count; i++ {
			op(i)
		}
		elapsed := time.Since(start)
		fmt.Fprintf(&sb, "\n%-8s%12.2f ops/sec (%s total)",
			name+":", float64(count)/elapsed.Seconds(), common.FormatDuration(elapsed))
	}

	phase("SET", func(i int) { scratch.Set(keys[i], "svalue", 0, false) })
	phase("UPDATE", func(i int) { scratch.Update(keys[i], "nvalue") })
	phase("GET", func(i int) { scratch.Get(keys[i]) })
	phase("DEL", func(i int) { scratch.Delete(keys[i]) })

	if c.cfg.PersistenceEnabled {
		if err := scratch.SaveToFile(stressDBFilename); err == nil {
			os.Remove(stressDBFilename)
		}
	}

	fmt.Fprintf(&sb, "\n-------------------------------------------\nTotal Stress Test Time: %s",
		common.FormatDuration(time.Since(overallStart)))
	return ok(sb.String())
}

// ClearDB handles `CLRDB`, dropping every key.
func (c *Commands) ClearDB(args []string) Result {
	if len(args) != 0 {
		return badRequest("-ERR wrong number of arguments")
	}
	cleared := c.store.Clear()
	return ok("+OK " + strconv.Itoa(cleared) + " keys cleared.")
}

// Similar handles `SIMILAR prefix`: counts keys with the given prefix.
func (c *Commands) Similar(args []string) Result {
	if len(args) != 1 {
		return badRequest("-ERR wrong number of arguments, expected: SIMILAR <prefix>")
	}
	if args[0] == "" {
		return badRequest("-ERR prefix cannot be empty")
	}
	return ok(":" + strconv.Itoa(c.store.PrefixCount(args[0])))
}

func enabled(b bool) string {
	if b {
		return "Enabled"
	}
	return "Disabled"
}

func onOff(b bool) string {
	if b {
		return "ON"
	}
	return "OFF"
}

func diskSize(filename string) string {
	info, err := os.Stat(filename)
	if err != nil {
		return "N/A"
	}
	return common.FormatBytes(uint64(info.Size()))
}
