package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/sitechat/internal/engine"
	mcpserver "github.com/ziadkadry99/sitechat/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server for AI agent integration",
	Long: `Starts a Model Context Protocol (MCP) server on stdio, exposing
website question-answering and content search tools for AI agents.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		embedder, err := createEmbedderFromConfig(cfg)
		if err != nil {
			return fmt.Errorf("creating embedder: %w", err)
		}
		store := openStore(ctx, cfg, embedder)

		provider, err := createLLMProviderFromConfig(cfg)
		if err != nil {
			return fmt.Errorf("creating LLM provider: %w", err)
		}

		eng := engine.New(store, provider, cfg, nil)

		// Stdout carries the protocol; everything else goes to stderr.
		mcpserver.Version = Version
		fmt.Fprintf(os.Stderr, "sitechat MCP server started on stdio (namespaces=%d)\n", len(store.Namespaces()))

		srv := mcpserver.NewServer(eng, store)
		return srv.Serve()
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
