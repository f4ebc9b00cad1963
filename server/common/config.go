package common

import (
	"fmt"
	"strconv"
	"strings"
)

// Defaults for the server configuration. Flags and environment variables
// override them at startup.
const (
	DefaultPort        = 8080
	DefaultDBFile      = "nukekv.db"
	DefaultBatchSize   = 1
	DefaultWorkerCount = 0 // 0 = max(1, NumCPU-1)
	DefaultMaxRAMGB    = 0 // 0 = unlimited

	// MaxPayloadSize is the hard cap on a single wire frame. Declared
	// lengths above it close the connection without a reply.
	MaxPayloadSize = 1 * 1024 * 1024 * 1024 // 1 GiB
)

// --------------------------------------------------------------------------
// Server configuration struct
// --------------------------------------------------------------------------

// ServerConfig holds all configuration parameters for a NukeKV server.
type ServerConfig struct {
	// Networking
	Port int

	// Persistence
	PersistenceEnabled bool
	DBFilename         string
	BatchSize          int

	// Engine
	CachingEnabled bool
	MaxRAMGB       uint64
	WorkerCount    int

	// Diagnostics
	Debug    bool
	LogLevel string
}

// MaxMemoryBytes returns the configured memory ceiling in bytes (0 = unlimited).
func (c *ServerConfig) MaxMemoryBytes() uint64 {
	return c.MaxRAMGB * 1024 * 1024 * 1024
}

// String returns a formatted string representation of the configuration
func (c *ServerConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	addSection("Server")
	addField("Port", strconv.Itoa(c.Port))
	addField("Worker Threads", workerCountString(c.WorkerCount))
	addField("Max Payload", FormatBytes(MaxPayloadSize))

	addSection("Persistence")
	addField("Enabled", strconv.FormatBool(c.PersistenceEnabled))
	if c.PersistenceEnabled {
		addField("Database File", c.DBFilename)
		addField("Batch Size", strconv.Itoa(c.BatchSize))
	}

	addSection("Caching")
	addField("Enabled", strconv.FormatBool(c.CachingEnabled))
	if c.CachingEnabled {
		limit := "Unlimited"
		if c.MaxRAMGB > 0 {
			limit = FormatBytes(c.MaxMemoryBytes())
		}
		addField("Memory Limit", limit)
	}

	addSection("Logging")
	addField("Log Level", c.LogLevel)
	addField("Debug Mode", strconv.FormatBool(c.Debug))

	return sb.String()
}

func workerCountString(n int) string {
	if n <= 0 {
		return "auto"
	}
	return strconv.Itoa(n)
}
