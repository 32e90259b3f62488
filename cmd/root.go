package cmd

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/sitechat/internal/config"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "sitechat",
	Short: "Turn any website into an AI chatbot",
	Long: `Sitechat crawls a website, chunks and embeds its content into a
semantic vector index, and answers questions about it through a
retrieval-augmented chat engine. It ships with a CLI, an HTTP API
with streaming WebSocket chat, and MCP integration for AI agents.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// API keys are commonly kept in a local .env file.
		_ = godotenv.Load()
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", config.DefaultPath, "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

func exitOnError(err error) {
	if err != nil {
		os.Stderr.WriteString("Error: " + err.Error() + "\n")
		os.Exit(1)
	}
}
