package main

import (
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

var (
	serverURL  string
	jsonOutput bool
)

var rootCmd = &cobra.Command{
	Use:   "fetcharr",
	Short: "CLI client for the fetcharr request broker",
	Long: `fetcharr - CLI client for the fetcharr request broker

Submit and moderate media requests, and inspect the background
jobs that keep them in sync with the download backends.

Run 'fetcharrd' to start the server daemon.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8686", "Server URL")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	rootCmd.Version = version
	rootCmd.SetVersionTemplate("fetcharr {{.Version}}\n")
}
