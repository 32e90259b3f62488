package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/sitechat/internal/engine"
)

var queryCmd = &cobra.Command{
	Use:   "query [question]",
	Short: "Ask a one-shot question about the indexed website",
	Long: `Retrieves the most relevant indexed content for the question and
generates a grounded answer with source URLs.`,
	Args: cobra.ExactArgs(1),
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().String("namespace", "", "namespace to query (defaults to config)")
	queryCmd.Flags().Int("top-k", 0, "number of chunks to retrieve (overrides config)")
	queryCmd.Flags().Bool("no-cache", false, "bypass the response cache")
	queryCmd.Flags().Bool("json", false, "output the response as JSON")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	question := args[0]

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	namespace, _ := cmd.Flags().GetString("namespace")
	if namespace == "" {
		namespace = cfg.Namespace
	}
	topK, _ := cmd.Flags().GetInt("top-k")
	noCache, _ := cmd.Flags().GetBool("no-cache")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	embedder, err := createEmbedderFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("creating embedder: %w", err)
	}
	store := openStore(ctx, cfg, embedder)

	if store.Count(namespace) == 0 {
		fmt.Printf("Namespace %q is empty. Run `sitechat train` first.\n", namespace)
		return nil
	}

	provider, err := createLLMProviderFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("creating LLM provider: %w", err)
	}

	eng := engine.New(store, provider, cfg, nil)
	resp, err := eng.Query(ctx, namespace, question, engine.QueryOptions{
		TopK:    topK,
		NoCache: noCache,
	})
	if err != nil {
		return err
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}

	fmt.Println(resp.Answer)
	if len(resp.Sources) > 0 {
		fmt.Println("\nSources:")
		for _, src := range resp.Sources {
			if src.Title != "" {
				fmt.Printf("  - %s (%s)\n", src.Title, src.URL)
			} else {
				fmt.Printf("  - %s\n", src.URL)
			}
		}
	}
	return nil
}
