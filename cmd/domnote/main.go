// Command domnote runs the loopback annotation server: the overlay posts
// user feedback over HTTP, the agent reads it back over MCP stdio or the
// Go API, and a port file lets unrelated processes find the instance.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	_ "modernc.org/sqlite"

	"github.com/hazyhaar/domnote/events"
	"github.com/hazyhaar/domnote/server"
)

const version = "1.0.0"

func main() {
	cfg, err := loadConfig(os.Getenv("DOMNOTE_CONFIG"))
	if err != nil {
		slog.Error("config", "error", err)
		os.Exit(1)
	}

	// Logging.
	var lvl slog.Level
	switch env("LOG_LEVEL", cfg.LogLevel) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	// MCP stdio owns stdout; diagnostics go to stderr.
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)

	// Signal context.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	srvCfg := server.Config{
		Host:         env("DOMNOTE_HOST", cfg.Host),
		Port:         envInt("PORT", cfg.Port),
		Capacity:     envInt("DOMNOTE_CAPACITY", cfg.Capacity),
		Persist:      env("DOMNOTE_PERSIST", "") == "1" || cfg.Persist,
		PersistPath:  env("DOMNOTE_PERSIST_PATH", cfg.PersistPath),
		PersistQuiet: cfg.PersistQuiet,
		PortFilePath: env("DOMNOTE_PORT_FILE", cfg.PortFile),
		Logger:       logger,
	}

	// Optional event log.
	if eventsDB := env("DOMNOTE_EVENTS_DB", cfg.EventsDB); eventsDB != "" {
		db, err := events.Open(eventsDB)
		if err != nil {
			slog.Error("events db", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		eventLogger, err := events.NewLogger(db, events.WithLogger(logger))
		if err != nil {
			slog.Error("events init", "error", err)
			os.Exit(1)
		}
		srvCfg.Events = eventLogger
	}

	srv, err := server.New(srvCfg)
	if err != nil {
		slog.Error("server", "error", err)
		os.Exit(1)
	}

	// Optional rod screenshot capture against a running Chrome.
	if browserURL := env("DOMNOTE_BROWSER_URL", cfg.BrowserURL); browserURL != "" {
		capt, err := newCapturer(browserURL, logger)
		if err != nil {
			slog.Warn("screenshot capture unavailable", "error", err)
		} else {
			defer capt.Close()
			srv.RegisterScreenshotFunc(capt.Capture)
		}
	}

	port, err := srv.Start()
	if err != nil {
		slog.Error("start", "error", err)
		os.Exit(1)
	}
	slog.Info("domnote ready", "port", port,
		"overlay", "http://127.0.0.1:"+strconv.Itoa(port)+"/overlay.js")

	// Optional MCP stdio transport for the agent side.
	if env("MCP_TRANSPORT", cfg.MCPTransport) == "stdio" {
		mcpSrv := mcp.NewServer(&mcp.Implementation{
			Name:    "domnote",
			Version: version,
		}, nil)
		srv.RegisterMCP(mcpSrv)
		go func() {
			if err := mcpSrv.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
				slog.Error("mcp stdio", "error", err)
			}
			cancel()
		}()
	}

	<-ctx.Done()

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer stopCancel()
	if err := srv.Stop(stopCtx); err != nil {
		slog.Error("stop", "error", err)
		os.Exit(1)
	}
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
