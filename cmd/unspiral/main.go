// Unspiral is the insight service behind the Unspiral voice-journaling
// app. It exposes an HTTP API for conversational insight turns — the
// model answers questions about a user's items, habits, mood, and
// worries by calling analytical tools against the user-data warehouse —
// plus a CLI for one-shot questions.
//
// Usage:
//
//	unspiral serve           Start the API server
//	unspiral ask <question>  Ask a single question (for testing)
//	unspiral version         Print version and build information
//	unspiral -o json version Output version information as JSON
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/unspiral/unspiral/internal/agent"
	"github.com/unspiral/unspiral/internal/api"
	"github.com/unspiral/unspiral/internal/buildinfo"
	"github.com/unspiral/unspiral/internal/config"
	"github.com/unspiral/unspiral/internal/llm"
	"github.com/unspiral/unspiral/internal/store"
	"github.com/unspiral/unspiral/internal/thread"
	"github.com/unspiral/unspiral/internal/tools"
)

// main is intentionally minimal. It constructs the OS-level environment
// (context, stdio, argv) and delegates immediately to [run], keeping
// os.Exit, os.Stdout, and os.Args out of the application logic so the
// full lifecycle can be driven from tests.
func main() {
	ctx := context.Background()

	if err := run(ctx, os.Stdout, os.Stderr, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
}

// run is the real entry point. Arguments are parsed by hand: the flag
// package relies on package-level globals, which makes it impossible to
// call run() concurrently from tests, and the argument surface here is
// small.
func run(ctx context.Context, stdout io.Writer, stderr io.Writer, args []string) error {
	var configPath string
	var outputFmt string // "text" (default) or "json"
	var command string
	var cmdArgs []string

	for i := 0; i < len(args); i++ {
		switch {
		case args[i] == "-config" && i+1 < len(args):
			configPath = args[i+1]
			i++
		case strings.HasPrefix(args[i], "-config="):
			configPath = strings.TrimPrefix(args[i], "-config=")
		case (args[i] == "-o" || args[i] == "--output") && i+1 < len(args):
			outputFmt = args[i+1]
			i++
		case strings.HasPrefix(args[i], "-o="):
			outputFmt = strings.TrimPrefix(args[i], "-o=")
		case strings.HasPrefix(args[i], "--output="):
			outputFmt = strings.TrimPrefix(args[i], "--output=")
		case args[i] == "-h" || args[i] == "-help" || args[i] == "--help":
			return printUsage(stdout)
		case !strings.HasPrefix(args[i], "-") && command == "":
			command = args[i]
		default:
			if command != "" {
				cmdArgs = append(cmdArgs, args[i])
			} else {
				return fmt.Errorf("unknown flag: %s", args[i])
			}
		}
	}

	if outputFmt == "" {
		outputFmt = "text"
	}
	if outputFmt != "text" && outputFmt != "json" {
		return fmt.Errorf("unknown output format: %q (expected text or json)", outputFmt)
	}

	switch command {
	case "serve":
		return runServe(ctx, stdout, configPath)
	case "ask":
		if len(cmdArgs) == 0 {
			return fmt.Errorf("usage: unspiral ask <question>")
		}
		return runAsk(ctx, stdout, configPath, cmdArgs)
	case "version":
		return runVersion(stdout, outputFmt)
	case "":
		return printUsage(stdout)
	default:
		return fmt.Errorf("unknown command: %s", command)
	}
}

// runVersion prints build metadata in the requested output format.
func runVersion(w io.Writer, outputFmt string) error {
	info := buildinfo.Info()
	if outputFmt == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	}
	fmt.Fprintln(w, buildinfo.String())
	for _, k := range []string{"version", "git_commit", "git_branch", "build_time", "go_version", "os", "arch"} {
		if v, ok := info[k]; ok {
			fmt.Fprintf(w, "  %-12s %s\n", k+":", v)
		}
	}
	return nil
}

func printUsage(w io.Writer) error {
	fmt.Fprintln(w, "Unspiral - insight service for the Unspiral journaling app")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage: unspiral [flags] <command> [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  serve        Start the API server")
	fmt.Fprintln(w, "  ask          Ask a single question (for testing)")
	fmt.Fprintln(w, "  version      Show version information")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprintln(w, "  -config <path>    Path to config file (default: auto-discover)")
	fmt.Fprintln(w, "  -o, --output fmt  Output format: text (default) or json")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Config search order:")
	fmt.Fprintln(w, "  ./config.yaml, ~/.config/unspiral/config.yaml, /etc/unspiral/config.yaml")
	return nil
}

// buildLoop wires the full agent stack from configuration. The returned
// cleanup closes both stores.
func buildLoop(cfg *config.Config, logger *slog.Logger) (*agent.Loop, *thread.Store, func(), error) {
	st, err := store.Open(cfg.Database.URL, cfg.Database.MaxOpenConns)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open user database: %w", err)
	}

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		st.Close()
		return nil, nil, nil, fmt.Errorf("create data directory %s: %w", cfg.DataDir, err)
	}
	threadPath := cfg.DataDir + "/threads.db"
	threads, err := thread.Open(threadPath)
	if err != nil {
		st.Close()
		return nil, nil, nil, fmt.Errorf("open thread database %s: %w", threadPath, err)
	}

	client := llm.NewAnthropicClient(cfg.Anthropic.APIKey, cfg.Anthropic.MaxTokens, logger)
	runner := tools.NewRunner(cfg.Agent.ToolTimeout(), logger)
	loop := agent.NewLoop(logger, client, runner, st, threads, cfg.Anthropic.Model, cfg.Agent.MaxToolRounds)

	cleanup := func() {
		threads.Close()
		st.Close()
	}
	return loop, threads, cleanup, nil
}

// runAsk boots a minimal stack and processes a single question for the
// user named in UNSPIRAL_USER_ID (default "cli-test"), printing the
// response to stdout.
func runAsk(ctx context.Context, stdout io.Writer, configPath string, args []string) error {
	logger := newLogger(stdout, slog.LevelWarn, "text")
	question := strings.Join(args, " ")

	cfg, _, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	loop, _, cleanup, err := buildLoop(cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	userID := os.Getenv("UNSPIRAL_USER_ID")
	if userID == "" {
		userID = "cli-test"
	}

	result, err := loop.Run(ctx, &agent.Request{UserID: userID, Message: question})
	if err != nil {
		return fmt.Errorf("ask: %w", err)
	}

	fmt.Fprintln(stdout, result.Response)
	return nil
}

// runServe is the primary operating mode: load config, open databases,
// wire the agent loop, and serve HTTP until SIGINT/SIGTERM.
func runServe(ctx context.Context, stdout io.Writer, configPath string) error {
	logger := newLogger(stdout, slog.LevelInfo, "text")
	logger.Info("starting Unspiral",
		"version", buildinfo.Version,
		"commit", buildinfo.GitCommit,
		"built", buildinfo.BuildTime,
	)

	cfg, cfgPath, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// Reconfigure the logger now that the desired level and format are
	// known. The initial Info-level text logger covers only the banner.
	level, _ := config.ParseLogLevel(cfg.LogLevel)
	logger = newLogger(stdout, level, cfg.LogFormat)

	logger.Info("config loaded",
		"path", cfgPath,
		"port", cfg.Listen.Port,
		"model", cfg.Anthropic.Model,
		"max_tool_rounds", cfg.Agent.MaxToolRounds,
	)

	loop, threads, cleanup, err := buildLoop(cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	listen := fmt.Sprintf("%s:%d", cfg.Listen.Address, cfg.Listen.Port)
	server := api.NewServer(listen, loop, threads, cfg.CORS.AllowedOrigins, logger)

	// SIGINT/SIGTERM cancellation flows through the same ctx used by all
	// components.
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := server.Start(ctx); err != nil {
		if ctx.Err() == nil {
			return fmt.Errorf("server failed: %w", err)
		}
	}

	logger.Info("Unspiral stopped")
	return nil
}

// newLogger creates a structured logger writing to w at the given level
// and format. Format must be "text" or "json"; any other value defaults
// to text.
func newLogger(w io.Writer, level slog.Level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: config.ReplaceLogLevelNames,
	}
	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// loadConfig locates and parses the YAML configuration file. If explicit
// is non-empty, that exact path is used (and must exist); otherwise
// [config.FindConfig] searches the default locations.
func loadConfig(explicit string) (*config.Config, string, error) {
	cfgPath, err := config.FindConfig(explicit)
	if err != nil {
		return nil, "", err
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, cfgPath, fmt.Errorf("load config %s: %w", cfgPath, err)
	}

	return cfg, cfgPath, nil
}
