package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/charmbracelet/log"

	"github.com/krupesh-app/clawmemory-openclaw/internal/admin"
	"github.com/krupesh-app/clawmemory-openclaw/internal/api"
	"github.com/krupesh-app/clawmemory-openclaw/internal/config"
	"github.com/krupesh-app/clawmemory-openclaw/internal/memoryd"
	"github.com/krupesh-app/clawmemory-openclaw/internal/plugin"
	"github.com/krupesh-app/clawmemory-openclaw/pkg/host"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	sub := os.Args[1]
	switch sub {
	case "recall", "store":
		if err := runPluginCommand(sub, os.Args[2:]); err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
	case "admin":
		if err := runAdmin(os.Args[2:]); err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
	case "serve-dev":
		if err := runServeDev(os.Args[2:]); err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
	case "init":
		if err := runInit(os.Args[2:]); err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
	case "version", "--version", "-v":
		fmt.Println("clawmemory v0.1.0")
	default:
		usage()
		os.Exit(2)
	}
}

// cliHost is the minimal host.Host the CLI provides. Hooks and tools are
// accepted but only commands are dispatched; the real lifecycle lives in
// the OpenClaw process.
type cliHost struct {
	commands map[string]host.CommandFunc
}

func newCLIHost() *cliHost {
	return &cliHost{commands: map[string]host.CommandFunc{}}
}

func (h *cliHost) RegisterHook(host.Hook, host.HookFunc)              {}
func (h *cliHost) RegisterTool(host.ToolDefinition, host.ToolHandler) {}
func (h *cliHost) RegisterCommand(name string, fn host.CommandFunc) {
	h.commands[name] = fn
}

// runPluginCommand routes recall/store through the plugin's registered
// CLI commands, the same path the host would take.
func runPluginCommand(sub string, args []string) error {
	cfg, err := config.Load(config.DefaultPath())
	if err != nil {
		return err
	}
	logger := newLogger(cfg.LogLevel)

	h := newCLIHost()
	client := api.New(cfg, logger)
	if _, err := plugin.Register(h, cfg, client, logger); err != nil {
		return err
	}

	fn, ok := h.commands[sub]
	if !ok {
		return fmt.Errorf("command %q not registered", sub)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	return fn(ctx, args)
}

func runAdmin(args []string) error {
	fs := flag.NewFlagSet("admin", flag.ContinueOnError)
	configPath := fs.String("config", config.DefaultPath(), "Path to config file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger := newLogger(cfg.LogLevel)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	return admin.Run(ctx, api.New(cfg, logger))
}

func runServeDev(args []string) error {
	fs := flag.NewFlagSet("serve-dev", flag.ContinueOnError)
	addr := fs.String("addr", "127.0.0.1:8787", "Listen address")
	dbPath := fs.String("db", filepath.Join(config.ExpandPath("~/.clawmemory"), "devserver.db"), "SQLite database path")
	keep := fs.Int("retention-keep", 1000, "Memories kept per agent")
	interval := fs.Duration("retention-interval", 5*time.Minute, "Retention check interval")
	logLevel := fs.String("log-level", "info", "Log level")
	if err := fs.Parse(args); err != nil {
		return err
	}

	logger := newLogger(*logLevel)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	st, err := memoryd.OpenStore(ctx, config.ExpandPath(*dbPath), logger)
	if err != nil {
		return err
	}
	defer st.Close()

	go memoryd.StartRetention(ctx, logger, *interval, *keep, st)

	srv := &http.Server{
		Addr:    *addr,
		Handler: memoryd.NewServer(st, logger).Handler(),
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
		defer stop()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("starting clawmemory dev server", "addr", *addr, "db", *dbPath)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func runInit(args []string) error {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	apiKey := fs.String("api-key", "", "ClawMemory API key (cm_...)")
	agentID := fs.String("agent-id", "", "Agent identifier for memory isolation")
	baseURL := fs.String("base-url", config.DefaultBaseURL, "Service base URL")
	path := fs.String("path", config.DefaultPath(), "Config file destination")
	force := fs.Bool("force", false, "Overwrite an existing config file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg := config.Default()
	cfg.APIKey = *apiKey
	cfg.AgentID = *agentID
	cfg.BaseURL = *baseURL
	if err := cfg.Validate(); err != nil {
		return err
	}

	dest := config.ExpandPath(*path)
	if _, err := os.Stat(dest); err == nil && !*force {
		return fmt.Errorf("config already exists at %s (use --force to overwrite)", dest)
	}
	if err := cfg.Save(dest); err != nil {
		return err
	}
	fmt.Printf("Wrote config to %s\n", dest)
	return nil
}

func newLogger(level string) *log.Logger {
	logger := log.NewWithOptions(os.Stderr, log.Options{Prefix: "clawmemory"})
	switch level {
	case "debug":
		logger.SetLevel(log.DebugLevel)
	case "warn":
		logger.SetLevel(log.WarnLevel)
	case "error":
		logger.SetLevel(log.ErrorLevel)
	default:
		logger.SetLevel(log.InfoLevel)
	}
	return logger
}

func usage() {
	fmt.Print(`clawmemory

Usage:
  clawmemory recall <query> [--limit N]
  clawmemory store <content> [--type T]
  clawmemory admin [--config path]
  clawmemory serve-dev [--addr host:port] [--db path]
  clawmemory init --api-key cm_... [--agent-id id] [--force]
  clawmemory version
`)
}
