package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kolavi/blog-pipeline/internal/config"
	"github.com/kolavi/blog-pipeline/internal/pipeline"
	"github.com/kolavi/blog-pipeline/internal/server"
)

var (
	serveConfigPath string
	servePort       int
	serveUseBrowser bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long: `Start an HTTP server that exposes REST endpoints for running the article pipeline stage by stage, with SSE progress streaming on the long-running stages.

Configuration can be loaded from a JSON file using --config. Command-line arguments and environment variables override config file values.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveConfigPath, "config", "", "Path to config.json file (values can be overridden by other flags)")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (default 8080)")
	serveCmd.Flags().BoolVar(&serveUseBrowser, "use-browser", false, "Use headless browser for SPA competitor sites (requires Chrome)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadCLIConfig(serveConfigPath)
	if err != nil {
		return err
	}

	if cmd.Flags().Changed("port") {
		cfg.Port = servePort
	}
	if cmd.Flags().Changed("use-browser") {
		cfg.UseBrowser = serveUseBrowser
	}
	cfg = cfg.MergeWithDefaults(config.Config{Port: 8080})

	if cfg.APIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY environment variable is required")
	}
	if cfg.SearchAPIKey == "" || cfg.SearchEngineID == "" {
		return fmt.Errorf("SEARCH_API_KEY and SEARCH_ENGINE_ID environment variables are required")
	}
	if cfg.AdminPasswordHash == "" {
		return fmt.Errorf("ADMIN_PASSWORD_HASH environment variable is required (generate one with cmd/tools/hash_password)")
	}

	srv, err := server.New(server.Config{
		Port:              cfg.Port,
		DatabaseURL:       cfg.DatabaseURL,
		GeminiAPIKey:      cfg.APIKey,
		SearchAPIKey:      cfg.SearchAPIKey,
		SearchEngineID:    cfg.SearchEngineID,
		AdminPasswordHash: cfg.AdminPasswordHash,
		Pipeline:          pipelineConfigFrom(cfg),
		UseBrowser:        cfg.UseBrowser,
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	return srv.Start()
}

// loadCLIConfig loads the optional config file and layers environment
// variables over its empty fields.
func loadCLIConfig(path string) (config.Config, error) {
	var cfg config.Config
	if path != "" {
		loaded, err := config.LoadConfig(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to load config: %w", err)
		}
		if err := loaded.Validate(); err != nil {
			return cfg, err
		}
		cfg = *loaded
	}

	cfg = cfg.MergeWithDefaults(config.Config{
		APIKey:            os.Getenv("GEMINI_API_KEY"),
		SearchAPIKey:      os.Getenv("SEARCH_API_KEY"),
		SearchEngineID:    os.Getenv("SEARCH_ENGINE_ID"),
		AdminPasswordHash: os.Getenv("ADMIN_PASSWORD_HASH"),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		SiteURL:           os.Getenv("SITE_URL"),
	})
	return cfg, nil
}

// pipelineConfigFrom maps the CLI configuration onto pipeline settings.
// Zero thresholds fall back to the pipeline defaults.
func pipelineConfigFrom(cfg config.Config) pipeline.Config {
	pc := pipeline.DefaultPipelineConfig()
	if cfg.SiteURL != "" {
		pc.SiteURL = cfg.SiteURL
	}
	if cfg.PublishScoreCutoff > 0 {
		pc.PublishScoreCutoff = cfg.PublishScoreCutoff
	}
	if cfg.FAQAnswerMaxChars > 0 {
		pc.FAQAnswerMaxChars = cfg.FAQAnswerMaxChars
	}
	if cfg.MaxHallucinations > 0 {
		pc.MaxHallucinations = cfg.MaxHallucinations
	}
	return pc
}
