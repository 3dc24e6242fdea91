package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

var configPath string

var rootCmd = &cobra.Command{
	Use:   "bloghub",
	Short: "BlogHub - a small blog with category, search and author listings",
	Long: `BlogHub serves published posts filtered by category, free-text query or
author, together with an admin API for posts, categories, tags and authors.

Configuration is read from an optional TOML file and BLOGHUB_* environment
variables, which take precedence over the file.`,
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE:  runServe,
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Clear the store and load demo data",
	Long: `Clears the configured store and loads fixtures into it.

Without flags the built-in demo data set is loaded. --fixtures loads a YAML or
TOML fixture file instead; --markdown replaces the fixture posts with the
markdown files found in a directory.

Example:
  bloghub seed --fixtures fixtures.toml --markdown ./posts`,
	RunE: runSeed,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintln(cmd.OutOrStdout(), version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", os.Getenv(envPrefix+"CONFIG"), "Path to a TOML config file")

	seedCmd.Flags().String("fixtures", "", "YAML or TOML fixture file (default: built-in demo data)")
	seedCmd.Flags().String("markdown", "", "Directory of markdown posts with YAML or TOML frontmatter")

	rootCmd.AddCommand(serveCmd, seedCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
