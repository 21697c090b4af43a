package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/charmbracelet/glamour"

	"github.com/oakhealth/aftercare/internal/app"
	"github.com/oakhealth/aftercare/internal/config"
	"github.com/oakhealth/aftercare/internal/retrieval"
)

// runAsk answers a single question from the knowledge base and exits.
func runAsk() error {
	question := strings.TrimSpace(strings.Join(os.Args[2:], " "))
	if question == "" {
		return fmt.Errorf("usage: aftercare ask <question>")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err = cfg.Validate(); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := slog.Default()
	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			logger.Warn("shutdown error", "error", closeErr)
		}
	}()

	answer, err := a.Orchestrator.AnswerQuery(ctx, question)
	if err != nil {
		return fmt.Errorf("answering question: %w", err)
	}

	fmt.Println(renderMarkdown(answer.Text))

	if len(answer.Citations) > 0 {
		fmt.Println()
		fmt.Println("Sources:")
		for _, c := range answer.Citations {
			fmt.Println("  " + formatCitation(c))
		}
	}
	if answer.UsedWebSearch {
		fmt.Println()
		fmt.Println("Web search was used to supplement the knowledge base.")
	}

	return nil
}

// renderMarkdown converts Markdown to styled terminal output.
// Returns the original text if rendering fails.
func renderMarkdown(markdown string) string {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		return markdown
	}

	rendered, err := r.Render(markdown)
	if err != nil {
		return markdown
	}

	// Trim trailing newlines added by glamour
	return strings.TrimSuffix(rendered, "\n")
}

// formatCitation renders one citation as a single line.
func formatCitation(c retrieval.Snippet) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%d] %s", c.CitationID, c.Preview)
	if c.Source == retrieval.SourceWeb {
		if url := c.Metadata["url"]; url != "" {
			fmt.Fprintf(&b, " (%s)", url)
		}
	} else if c.HasRelevance {
		fmt.Fprintf(&b, " (relevance %.2f)", c.Relevance)
	}
	return b.String()
}
