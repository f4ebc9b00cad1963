// Package server ties the engine, the worker pool and the framed TCP
// protocol together into the NukeKV network server.
package server

import (
	"errors"
	"fmt"
	"net"
	"runtime"
	"sync/atomic"

	"github.com/VictoriaMetrics/metrics"

	"github.com/Akshat-Diwedi/nuke-kv/lib/engine"
	"github.com/Akshat-Diwedi/nuke-kv/server/common"
	"github.com/Akshat-Diwedi/nuke-kv/server/handler"
)

const banner = `
 __    __  __    __  __    __  ________       __    __  __     __
/  \  /  |/  |  /  |/  |  /  |/        |     /  |  /  |/  |   /  |
$$  \ $$ |$$ |  $$ |$$ | /$$/ $$$$$$$$/      $$ | /$$/ $$ |   $$ |
$$$  \$$ |$$ |  $$ |$$ |/$$/  $$ |__  ______ $$ |/$$/  $$ |   $$ |
$$$$  $$ |$$ |  $$ |$$  $$<   $$    |/      |$$  $$<   $$  \ /$$/
$$ $$ $$ |$$ |  $$ |$$$$$  \  $$$$$/ $$$$$$/ $$$$$  \   $$  /$$/
$$ |$$$$ |$$ \__$$ |$$ |$$  \ $$ |_____      $$ |$$  \   $$ $$/
$$ | $$$ |$$    $$/ $$ | $$  |$$       |     $$ | $$  |   $$$/
$$/   $$/  $$$$$$/  $$/   $$/ $$$$$$$$/      $$/   $$/     $/
`

// Server is the NukeKV TCP server.
type Server struct {
	config   common.ServerConfig
	store    *engine.Store
	pool     *pool
	workers  int
	debug    atomic.Bool
	logger   common.ILogger
	listener net.Listener

	// quiet suppresses the startup banner and public-IP probe (tests).
	quiet bool
}

// New builds a server from the given configuration: engine, command set and
// worker pool are wired but nothing runs until Serve.
func New(config common.ServerConfig) *Server {
	s := &Server{
		config:  config,
		workers: resolveWorkerCount(config.WorkerCount),
		logger:  common.GetLogger("server"),
	}
	s.debug.Store(config.Debug)

	s.store = engine.New(&engine.Options{
		MaxMemoryBytes:     config.MaxMemoryBytes(),
		CachingEnabled:     config.CachingEnabled,
		PersistenceEnabled: config.PersistenceEnabled,
		DBFilename:         config.DBFilename,
		BatchSize:          int32(config.BatchSize),
		Logger:             common.GetLogger("engine"),
	})

	commands := handler.New(s.store, config, s.workers, s.setDebug)
	s.pool = newPool(commands.Table(), common.GetLogger("handler"))
	return s
}

// Store exposes the underlying engine (used by tests and embedders).
func (s *Server) Store() *engine.Store {
	return s.store
}

// Addr returns the listener address once Serve has bound it.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// setDebug flips the runtime debug mode: reply timing suffixes plus verbose
// logging on every component logger.
func (s *Server) setDebug(on bool) {
	s.debug.Store(on)
	level := common.LevelInfo
	if on {
		level = common.LevelDebug
	}
	for _, name := range []string{"engine", "server", "handler", "persistence"} {
		common.GetLogger(name).SetLevel(level)
	}
}

// Serve loads the snapshot, starts the background manager and the worker
// pool, prints the banner and accepts connections until Shutdown is called.
func (s *Server) Serve() error {
	s.store.LoadFromFile()
	s.store.StartManager()
	s.pool.start(s.workers)

	listener, err := net.Listen("tcp4", fmt.Sprintf(":%d", s.config.Port))
	if err != nil {
		return fmt.Errorf("failed to bind port %d: %w", s.config.Port, err)
	}
	s.listener = listener

	if !s.quiet {
		s.printBanner()
	}

	for {
		conn, err := listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				break
			}
			s.logger.Errorf("accept error: %v", err)
			continue
		}
		metrics.GetOrCreateCounter(handler.MetricConnectionsTotal).Inc()
		go s.handleClient(conn)
	}

	return nil
}

// Shutdown closes the listener, drains the worker pool and stops the engine
// (final snapshot included). Safe to call once Serve is running.
func (s *Server) Shutdown() {
	if s.listener != nil {
		s.listener.Close()
	}
	s.pool.stop()
	s.store.Close()
	s.logger.Infof("server shut down gracefully")
}

func (s *Server) printBanner() {
	fmt.Print(banner)
	fmt.Printf("NukeKV v2.5-stable : Protocol: Nuke-Wire (framed TCP)\n")
	fmt.Println("=================================================================")
	fmt.Println("Server is ready to accept connections!")
	fmt.Printf("  - Listening on: 0.0.0.0:%d\n", s.config.Port)
	fmt.Printf("  - Workers: %d, Batching: %d\n", s.workers, s.store.BatchSize())

	if ip := PublicIP(); ip != "" {
		fmt.Printf("  - Connect Publicly: %s:%d\n", ip, s.config.Port)
	} else {
		fmt.Println("  - Public IP: (Could not determine, check internet connection)")
	}
	fmt.Println("=================================================================")
	fmt.Println("Press Ctrl+C to shut down.")
}

// resolveWorkerCount applies the worker-count default: a configured count
// wins, otherwise one worker per CPU minus one for the runtime, at least one.
func resolveWorkerCount(configured int) int {
	if configured > 0 {
		return configured
	}
	if n := runtime.NumCPU() - 1; n > 1 {
		return n
	}
	return 1
}
