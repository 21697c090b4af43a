package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/oakhealth/aftercare/internal/app"
	"github.com/oakhealth/aftercare/internal/config"
	"github.com/oakhealth/aftercare/internal/knowledge"
)

// runIngest chunks the given files and adds them to the knowledge base.
func runIngest() error {
	files := os.Args[2:]
	if len(files) == 0 {
		return fmt.Errorf("usage: aftercare ingest <file> [file...]")
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

	total := 0
	for _, file := range files {
		n, err := ingestFile(ctx, a.Knowledge, file, cfg.ChunkSize, cfg.ChunkOverlap)
		if err != nil {
			return fmt.Errorf("ingesting %s: %w", file, err)
		}
		logger.Info("ingested file", "file", file, "chunks", n)
		total += n
	}

	fmt.Printf("Ingested %d chunk(s) from %d file(s)\n", total, len(files))
	return nil
}

// ingestFile splits one file into chunks and stores each as a document.
// Returns the number of chunks stored.
func ingestFile(ctx context.Context, store *knowledge.Store, path string, size, overlap int) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("reading file: %w", err)
	}

	chunks := knowledge.SplitText(string(data), size, overlap)
	source := filepath.Base(path)
	now := time.Now()

	for i, chunk := range chunks {
		doc := knowledge.Document{
			ID:      uuid.NewString(),
			Content: chunk,
			Metadata: map[string]string{
				"source": source,
				"chunk":  strconv.Itoa(i),
			},
			CreateAt: now,
		}
		if err := store.Add(ctx, doc); err != nil {
			return i, fmt.Errorf("storing chunk %d: %w", i, err)
		}
	}

	return len(chunks), nil
}
