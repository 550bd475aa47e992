package main

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"golang.org/x/term"

	"github.com/ironsheep/sep-tools-mcp/internal/colorconfig"
	"github.com/ironsheep/sep-tools-mcp/internal/logging"
	"github.com/ironsheep/sep-tools-mcp/internal/sep"
	"github.com/ironsheep/sep-tools-mcp/internal/server"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Handle --version and -v flags
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version", "-v", "version":
			fmt.Printf("sep-tools-mcp %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			return
		case "--help", "-h", "help":
			fmt.Println("sep-tools-mcp - MCP server for layered colour separations")
			fmt.Println()
			fmt.Println("Usage: sep-mcp [options]")
			fmt.Println()
			fmt.Println("Options:")
			fmt.Println("  --version, -v    Print version information")
			fmt.Println("  --help, -h       Print this help message")
			fmt.Println()
			fmt.Println("Environment variables:")
			fmt.Println("  SEP_MCP_LOG_LEVEL=debug          Enable debug logging")
			fmt.Println("  SEP_MCP_COLOURS=<file>           Colour registry (default colours.json)")
			fmt.Println("  SEP_MCP_WORKERS=<n>              Cache worker count (default: CPUs)")
			fmt.Println("  SEP_MCP_WHITE_INK=<mode>         none, subtractive or multiplicative")
			fmt.Println()
			fmt.Println("This server communicates via MCP protocol over stdin/stdout.")
			fmt.Println("Configure it in your MCP client (e.g., Claude Desktop).")
			return
		}
	}

	// Stdout is for MCP protocol
	logger := logging.New(os.Getenv("SEP_MCP_LOG_LEVEL"))
	logger.Debug("starting", slog.String("version", Version), slog.String("built", BuildTime), slog.String("commit", GitCommit))

	if term.IsTerminal(int(os.Stdin.Fd())) {
		fmt.Fprintln(os.Stderr, "sep-mcp speaks JSON-RPC on stdin; run it from an MCP client or pipe requests in.")
	}

	opts, err := options(logger)
	if err != nil {
		logger.Error("invalid configuration", slog.Any("error", err))
		os.Exit(2)
	}

	server.Version = Version
	if err := server.New(opts).Run(); err != nil {
		logger.Error("server error", slog.Any("error", err))
		os.Exit(1)
	}
}

// options reads the SEP_MCP_* environment.
func options(logger *slog.Logger) (server.Options, error) {
	opts := server.Options{Logger: logger}

	reg, warnings := colorconfig.Load(os.Getenv("SEP_MCP_COLOURS"), logger)
	opts.Registry = reg
	logger.Debug("colour registry loaded",
		slog.Int("colours", len(reg.Colors())),
		slog.Bool("default", reg.IsDefault()),
		slog.Int("warnings", len(warnings)))

	if v := os.Getenv("SEP_MCP_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return opts, fmt.Errorf("SEP_MCP_WORKERS=%q: want a positive integer", v)
		}
		opts.Workers = n
	}

	mode, err := sep.ParseWhiteInkMode(os.Getenv("SEP_MCP_WHITE_INK"))
	if err != nil {
		return opts, fmt.Errorf("SEP_MCP_WHITE_INK: %w", err)
	}
	opts.WhiteInk = mode
	return opts, nil
}
