package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/kolavi/blog-pipeline/internal/db"
	"github.com/kolavi/blog-pipeline/internal/jobs"
	"github.com/kolavi/blog-pipeline/internal/llm"
	"github.com/kolavi/blog-pipeline/internal/metrics"
	"github.com/kolavi/blog-pipeline/internal/observability"
	"github.com/kolavi/blog-pipeline/internal/pipeline"
	"github.com/kolavi/blog-pipeline/internal/search"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Run the full article generation pipeline end-to-end",
	Long: `Runs every stage back to back without review pauses: SERP research -> competitor fetching -> brief synthesis -> drafting -> validation. Competitor URLs are selected automatically from the search results.

Configuration can be loaded from a JSON file using --config. Command-line arguments override config file values.`,
	RunE: runGenerateCmd,
}

var (
	genConfigPath  string
	genKeywords    string
	genPASF        []string
	genIntents     []string
	genPreset      string
	genCustomWords int
	genJobID       string
	genOut         string
	genAPIKey      string
	genDatabaseURL string
	genSiteURL     string
	genUseBrowser  bool
	genVerbose     bool
)

func init() {
	generateCmd.Flags().StringVar(&genConfigPath, "config", "", "Path to config.json file (values can be overridden by other flags)")

	generateCmd.Flags().StringVarP(&genKeywords, "keywords", "k", "", "Comma-separated keywords; the first is the primary keyword (required)")
	generateCmd.Flags().StringSliceVar(&genPASF, "pasf", nil, "People-also-search-for phrases (max 5)")
	generateCmd.Flags().StringSliceVar(&genIntents, "intents", nil, "Search intents: informational, navigational, commercial, transactional")
	generateCmd.Flags().StringVar(&genPreset, "preset", "", "Word count preset: auto, concise, standard, in_depth, custom")
	generateCmd.Flags().IntVar(&genCustomWords, "custom-words", 0, "Word count target when --preset=custom (500-6000)")
	generateCmd.Flags().StringVar(&genJobID, "job-id", "", "Job id to use (optional, defaults to a random UUID)")
	generateCmd.Flags().StringVarP(&genOut, "out", "o", "", "Path to write the final article HTML (defaults to stdout)")
	generateCmd.Flags().StringVar(&genSiteURL, "site-url", "", "Base URL used in generated schema markup")
	generateCmd.Flags().BoolVar(&genUseBrowser, "use-browser", false, "Use headless browser for SPA competitor sites (requires Chrome)")
	generateCmd.Flags().BoolVarP(&genVerbose, "verbose", "v", false, "Print detailed debug information")

	// API key can be passed as a flag, or read from env var GEMINI_API_KEY
	generateCmd.Flags().StringVar(&genAPIKey, "api-key", "", "Gemini API Key (optional, defaults to GEMINI_API_KEY env var)")

	// Database URL for job persistence; without it the run is in-memory only
	generateCmd.Flags().StringVar(&genDatabaseURL, "db-url", "", "PostgreSQL connection URL (optional, defaults to DATABASE_URL env var)")

	_ = generateCmd.MarkFlagRequired("keywords")

	rootCmd.AddCommand(generateCmd)
}

func runGenerateCmd(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()

	cfg, err := loadCLIConfig(genConfigPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("api-key") {
		cfg.APIKey = genAPIKey
	}
	if cmd.Flags().Changed("db-url") {
		cfg.DatabaseURL = genDatabaseURL
	}
	if cmd.Flags().Changed("site-url") {
		cfg.SiteURL = genSiteURL
	}
	if cmd.Flags().Changed("use-browser") {
		cfg.UseBrowser = genUseBrowser
	}
	if cmd.Flags().Changed("verbose") {
		cfg.Verbose = genVerbose
	}

	if cfg.APIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY environment variable or --api-key flag is required")
	}
	if cfg.SearchAPIKey == "" || cfg.SearchEngineID == "" {
		return fmt.Errorf("SEARCH_API_KEY and SEARCH_ENGINE_ID environment variables are required")
	}

	input, err := pipeline.ParseGenerateInput(pipeline.GenerateInput{
		Keywords:            genKeywords,
		PeopleAlsoSearchFor: genPASF,
		Intents:             genIntents,
		WordCountPreset:     genPreset,
		CustomWordCount:     genCustomWords,
	})
	if err != nil {
		return err
	}

	var store jobs.Store
	if cfg.DatabaseURL != "" {
		database, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer database.Close()
		if err := database.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("failed to ensure schema: %w", err)
		}
		store = db.NewJobStore(database)
	} else {
		store = jobs.NewMemoryStore()
	}

	llmClient, err := llm.NewClient(ctx, llm.DefaultConfig(), cfg.APIKey)
	if err != nil {
		return fmt.Errorf("failed to create LLM client: %w", err)
	}
	defer llmClient.Close()

	searchClient, err := search.NewGoogleClient(ctx, cfg.SearchAPIKey, cfg.SearchEngineID)
	if err != nil {
		return fmt.Errorf("failed to create search client: %w", err)
	}

	fetcher := pipeline.NewArticleFetcher()
	fetcher.UseBrowser = cfg.UseBrowser

	level := zerolog.WarnLevel
	if cfg.Verbose {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()

	runner := pipeline.NewRunner(store, llmClient, searchClient, fetcher, metrics.NewRecorder(logger), logger, pipelineConfigFrom(cfg))

	jobID := genJobID
	if jobID == "" {
		jobID = uuid.New().String()
	}

	printer := observability.NewPrinter(os.Stderr)
	progress := printProgress
	if cfg.Verbose {
		progress = func(event pipeline.ProgressEvent) {
			printProgress(event)
			if event.Status != pipeline.StatusCompleted {
				return
			}
			switch content := event.Content.(type) {
			case *jobs.SerpChunk:
				printer.PrintSerpResults(content.Results)
			case *jobs.AnalysisChunk:
				printer.PrintBrief(content)
			}
		}
	}

	result, err := runner.RunOneShot(ctx, jobID, input, progress)
	if err != nil {
		return err
	}

	if cfg.Verbose {
		printer.PrintDraftSummary(&jobs.DraftChunk{
			Content:   result.Article.Content,
			Title:     result.Article.Title,
			Slug:      result.Article.Slug,
			WordCount: result.Article.WordCount,
		})
		printer.PrintValidationReport(result.Postprocess)
	}

	return writeResult(result, genOut, os.Stdout, os.Stderr)
}

// printProgress echoes stage progress to stderr so the article HTML on
// stdout stays clean.
func printProgress(event pipeline.ProgressEvent) {
	fmt.Fprintf(os.Stderr, "[%s] %s: %s\n", event.Stage, event.Status, event.Message)
}

// writeResult writes the final article HTML to outPath (or stdout when
// empty) and a run summary to the status writer.
func writeResult(result *pipeline.OneShotResult, outPath string, stdout, status io.Writer) error {
	content := result.Postprocess.FinalContent

	if outPath != "" {
		if err := os.WriteFile(outPath, []byte(content), 0644); err != nil {
			return fmt.Errorf("failed to write article to %s: %w", outPath, err)
		}
		fmt.Fprintf(status, "Article written to %s\n", outPath)
	} else {
		fmt.Fprintln(stdout, content)
	}

	fmt.Fprintf(status, "Job:         %s\n", result.JobID)
	fmt.Fprintf(status, "Title:       %s\n", result.Article.Title)
	fmt.Fprintf(status, "Slug:        %s\n", result.Article.Slug)
	fmt.Fprintf(status, "Words:       %d\n", result.Article.WordCount)
	fmt.Fprintf(status, "Audit score: %d (publishable: %t)\n", result.Postprocess.AuditResult.Score, result.Postprocess.AuditResult.Publishable)
	fmt.Fprintf(status, "Fact check:  verified=%t\n", result.Postprocess.FactCheck.Verified)
	if len(result.OutlineDrift) > 0 {
		fmt.Fprintf(status, "Outline drift: %s\n", strings.Join(result.OutlineDrift, "; "))
	}
	return nil
}
