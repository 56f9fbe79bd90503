// Package cmd routes CLI subcommands and owns process-level concerns:
// logging setup, environment checks, and signal handling.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/nelfi/navigator/internal/log"
)

// Version information (injected at build time via ldflags).
var (
	AppVersion = "1.0.0"
	BuildTime  = "unknown"
	GitCommit  = "unknown"
)

// Execute is the entry point called from main. It routes the first
// argument to a subcommand; version and help work even when the
// configuration is invalid.
func Execute() error {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "version", "--version", "-v":
			return printVersionInfo()
		case "help", "--help", "-h":
			printHelp()
			return nil
		case "serve":
			return runServe()
		case "index":
			return runIndex()
		default:
			printHelp()
			return fmt.Errorf("unknown command %q", os.Args[1])
		}
	}

	// Default behavior is serve, matching how the service is deployed.
	return runServe()
}

// initLogger builds the process logger. DEBUG in the environment (any
// value) enables debug level; logs go to stderr.
func initLogger() log.Logger {
	cfg := log.Config{Level: slog.LevelInfo}
	if os.Getenv("DEBUG") != "" {
		cfg.Level = slog.LevelDebug
	}
	return log.NewWithWriter(os.Stderr, cfg)
}

// checkRequiredEnv verifies GEMINI_API_KEY is present before any model
// call can fail confusingly at request time.
func checkRequiredEnv() error {
	if os.Getenv("GEMINI_API_KEY") == "" {
		fmt.Fprintln(os.Stderr, "Error: GEMINI_API_KEY environment variable not set")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "The assistant requires a Gemini API key to function.")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "To set your API key:")
		fmt.Fprintln(os.Stderr, "  export GEMINI_API_KEY=your-api-key")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Get your API key at: https://ai.google.dev/")

		return fmt.Errorf("GEMINI_API_KEY not set")
	}
	return nil
}

func printVersionInfo() error {
	fmt.Printf("nelfi v%s\n", AppVersion)
	fmt.Printf("Build: %s\n", BuildTime)
	fmt.Printf("Commit: %s\n", GitCommit)
	return nil
}

func printHelp() {
	fmt.Println("nelfi - NELFUND student loan assistant")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  nelfi serve [addr]   Start the HTTP API server (default)")
	fmt.Println("  nelfi index          Build the document index and exit")
	fmt.Println("  nelfi version        Show version information")
	fmt.Println("  nelfi help           Show this help")
	fmt.Println()
	fmt.Println("Serve options:")
	fmt.Println("  nelfi serve :8000           Listen on all interfaces, port 8000")
	fmt.Println("  nelfi serve --addr :8000    Same, flag form")
	fmt.Println()
	fmt.Println("Environment Variables:")
	fmt.Println("  GEMINI_API_KEY     Required: Gemini API key")
	fmt.Println("  DATABASE_URL       Optional: overrides Postgres settings")
	fmt.Println("  DEBUG              Optional: enable debug logging")
}
