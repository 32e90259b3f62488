package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/sitechat/internal/config"
	"github.com/ziadkadry99/sitechat/internal/crawler"
	"github.com/ziadkadry99/sitechat/internal/progress"
	"github.com/ziadkadry99/sitechat/internal/trainer"
)

var trainCmd = &cobra.Command{
	Use:   "train [url...]",
	Short: "Crawl a website and index its content",
	Long: `Crawls the given website, extracts and chunks its content, generates
embeddings, and indexes everything into the namespace's vector store.
With multiple URLs only those exact pages are fetched, without link
following. With --file, a local text or markdown file is ingested
instead of crawling.`,
	RunE: runTrain,
}

func init() {
	trainCmd.Flags().String("namespace", "", "namespace to train (defaults to config)")
	trainCmd.Flags().Bool("reset", false, "drop all existing content in the namespace first")
	trainCmd.Flags().Int("depth", 0, "max crawl depth (overrides config)")
	trainCmd.Flags().Int("pages", 0, "max pages to crawl (overrides config)")
	trainCmd.Flags().String("file", "", "ingest a local text or markdown file instead of crawling")
	trainCmd.Flags().String("title", "", "title for --file content")
	rootCmd.AddCommand(trainCmd)
}

func runTrain(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	namespace, _ := cmd.Flags().GetString("namespace")
	if namespace == "" {
		namespace = cfg.Namespace
	}
	reset, _ := cmd.Flags().GetBool("reset")
	file, _ := cmd.Flags().GetString("file")

	if depth, _ := cmd.Flags().GetInt("depth"); depth > 0 {
		cfg.Crawl.MaxDepth = depth
	}
	if pages, _ := cmd.Flags().GetInt("pages"); pages > 0 {
		cfg.Crawl.MaxPages = pages
	}

	if file == "" && len(args) == 0 {
		return fmt.Errorf("provide a URL to crawl or --file to ingest")
	}
	for _, arg := range args {
		if err := config.ValidateURL(arg); err != nil {
			return fmt.Errorf("invalid URL %q: %w", arg, err)
		}
	}

	embedder, err := createEmbedderFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("creating embedder: %w", err)
	}

	if cfg.DataDir != "" {
		if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
			return fmt.Errorf("creating data directory: %w", err)
		}
	}
	store := openStore(ctx, cfg, embedder)

	database, err := openDatabase(cfg)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer database.Close()

	pipeline := trainer.NewPipeline(crawler.New(), embedder, store, trainer.NewJobStore(database), cfg)

	reporter := progress.NewReporter()
	pipeline.SetProgressFunc(reporter.Report)
	defer reporter.Finish()

	opts := trainer.Options{Reset: reset}
	start := time.Now()

	var result *trainer.Result
	switch {
	case file != "":
		title, _ := cmd.Flags().GetString("title")
		result, err = trainFromFile(ctx, pipeline, namespace, file, title, opts)
	case len(args) == 1:
		result, err = pipeline.TrainFromURL(ctx, namespace, args[0], opts)
	default:
		result, err = pipeline.TrainFromURLs(ctx, namespace, args, opts)
	}
	if err != nil {
		return err
	}

	printTrainResult(namespace, result, time.Since(start))
	return nil
}

func trainFromFile(ctx context.Context, pipeline *trainer.Pipeline, namespace, path, title string, opts trainer.Options) (*trainer.Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if title == "" {
		title = path
	}
	src := trainer.ContentSource{
		Title:    title,
		Content:  string(data),
		Markdown: isMarkdownFile(path),
	}
	return pipeline.TrainFromContent(ctx, namespace, src, opts)
}

func isMarkdownFile(path string) bool {
	for _, ext := range []string{".md", ".markdown", ".mdown"} {
		if len(path) > len(ext) && path[len(path)-len(ext):] == ext {
			return true
		}
	}
	return false
}

func printTrainResult(namespace string, result *trainer.Result, elapsed time.Duration) {
	fmt.Printf("\nTrained namespace %q in %s\n", namespace, elapsed.Round(time.Second))
	fmt.Printf("  Documents: %d\n", result.DocumentsProcessed)
	fmt.Printf("  Chunks:    %d\n", result.ChunksCreated)
	fmt.Printf("  Embedded:  %d\n", result.EmbeddingsGenerated)
	if len(result.Errors) > 0 {
		fmt.Printf("  Errors:    %d\n", len(result.Errors))
		if verbose {
			for _, e := range result.Errors {
				fmt.Fprintf(os.Stderr, "    - %v\n", e)
			}
		}
	}
}
