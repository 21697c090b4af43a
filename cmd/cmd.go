// Package cmd provides CLI commands for the aftercare assistant.
//
// Commands:
//   - serve: HTTP API server for patient conversations
//   - ask: one-shot question against the knowledge base
//   - ingest: load documents into the knowledge base
//
// Signal handling and graceful shutdown are implemented
// for all commands via context cancellation.
package cmd

import (
	"fmt"
	"log/slog"
	"os"
)

// Execute is the main entry point for the aftercare CLI.
func Execute() error {
	// Initialize logger once at entry point
	level := slog.LevelInfo
	if os.Getenv("DEBUG") != "" {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	if len(os.Args) < 2 {
		runHelp()
		return nil
	}

	switch os.Args[1] {
	case "serve":
		return runServe()
	case "ask":
		return runAsk()
	case "ingest":
		return runIngest()
	case "version", "--version", "-v":
		runVersion()
		return nil
	case "help", "--help", "-h":
		runHelp()
		return nil
	default:
		return fmt.Errorf("unknown command: %s", os.Args[1])
	}
}

// runHelp displays the help message.
func runHelp() {
	fmt.Println("Aftercare - post-discharge patient care assistant")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  aftercare serve [addr]    Start HTTP API server (default: 127.0.0.1:3400)")
	fmt.Println("  aftercare ask <question>  Ask a one-shot clinical question")
	fmt.Println("  aftercare ingest <files>  Ingest documents into the knowledge base")
	fmt.Println("  aftercare --version       Show version information")
	fmt.Println("  aftercare --help          Show this help")
	fmt.Println()
	fmt.Println("Environment Variables:")
	fmt.Println("  GEMINI_API_KEY     Required: Gemini API key")
	fmt.Println("  DEBUG              Optional: Enable debug logging")
}
