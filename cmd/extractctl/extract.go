package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/vish4lsharma/extractor/internal/core/extraction_engine"
	"github.com/vish4lsharma/extractor/internal/core/extractors"
	"github.com/vish4lsharma/extractor/internal/core/taskstore"
	"github.com/vish4lsharma/extractor/internal/models"
)

var (
	extractWorkers int
	extractLayout  bool
	extractJSON    bool
	extractTimeout time.Duration
	ocrLanguages   []string
)

var extractCmd = &cobra.Command{
	Use:   "extract [files...]",
	Short: "Extract the given documents and print the results",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runExtract,
}

func init() {
	extractCmd.Flags().IntVarP(&extractWorkers, "workers", "w", runtime.NumCPU(), "number of concurrent extractions")
	extractCmd.Flags().BoolVar(&extractLayout, "layout", false, "preserve OCR block layout for images")
	extractCmd.Flags().BoolVar(&extractJSON, "json", false, "print results as JSON")
	extractCmd.Flags().DurationVar(&extractTimeout, "timeout", 5*time.Minute, "per-document extraction timeout")
	extractCmd.Flags().StringSliceVar(&ocrLanguages, "ocr-lang", []string{"eng"}, "tesseract languages")
	rootCmd.AddCommand(extractCmd)
}

// fileResult pairs an input path with its terminal task.
type fileResult struct {
	Path string       `json:"path"`
	Task *models.Task `json:"task,omitempty"`
	Err  string       `json:"error,omitempty"`
}

func runExtract(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	log := newLogger()

	store := taskstore.New()
	registry := extractors.NewRegistry(
		extractors.NewPDFExtractor(log),
		extractors.NewImageExtractor(extractors.NewTesseractEngine(ocrLanguages)),
		extractors.NewSpreadsheetExtractor(),
	)
	engine := extraction_engine.NewEngine(store, registry, extraction_engine.EngineConfig{
		QueueSize:      len(args),
		ExtractTimeout: extractTimeout,
	}, log)
	engine.Start(ctx, extractWorkers)
	defer engine.Close()

	bar := progressbar.NewOptions(len(args),
		progressbar.OptionSetWriter(cmd.ErrOrStderr()),
		progressbar.OptionSetDescription("extracting"),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetVisibility(!extractJSON),
	)

	results := make([]fileResult, len(args))
	var barMu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for i, path := range args {
		results[i].Path = path
		id, err := engine.Submit(gctx, path, filepath.Base(path), extraction_engine.WithLayout(extractLayout))
		if err != nil {
			results[i].Err = err.Error()
			barMu.Lock()
			_ = bar.Add(1)
			barMu.Unlock()
			continue
		}
		g.Go(func() error {
			task, err := engine.Await(gctx, id, 20*time.Millisecond)
			barMu.Lock()
			_ = bar.Add(1)
			barMu.Unlock()
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			results[i].Task = task
			if task.Status == models.StatusFailed {
				results[i].Err = task.Error
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	_ = bar.Finish()

	if extractJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(results); err != nil {
			return err
		}
	} else {
		printResults(cmd.OutOrStdout(), results)
	}

	failed := 0
	for _, r := range results {
		if r.Err != "" {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d documents failed", failed, len(results))
	}
	return nil
}

func printResults(w io.Writer, results []fileResult) {
	for _, r := range results {
		fmt.Fprintf(w, "==> %s\n", r.Path)
		if r.Err != "" {
			fmt.Fprintf(w, "error: %s\n\n", r.Err)
			continue
		}
		res := r.Task.Result
		fmt.Fprintf(w, "kind: %s, pages: %d\n\n%s\n\n", r.Task.Kind, res.PageCount, res.Content)
	}
}
