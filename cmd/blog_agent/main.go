// Package main provides the entry point for the blog pipeline HTTP API server and CLI.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "blog_agent",
	Short: "SEO blog article generation pipeline",
	Long:  "blog_agent researches top-ranking competitors, synthesizes a content brief, drafts an SEO-optimized article and validates it, either as a REST API or as a one-shot CLI run.",
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
