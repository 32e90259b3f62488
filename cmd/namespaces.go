package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var namespacesCmd = &cobra.Command{
	Use:   "namespaces",
	Short: "List indexed namespaces and their sizes",
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

		namespaces := store.Namespaces()
		if len(namespaces) == 0 {
			fmt.Println("No namespaces indexed yet. Run `sitechat train` first.")
			return nil
		}
		for _, ns := range namespaces {
			fmt.Printf("%s\t%d chunks\n", ns, store.Count(ns))
		}
		return nil
	},
}

var namespacesDeleteCmd = &cobra.Command{
	Use:   "delete [name]",
	Short: "Delete a namespace and all of its indexed content",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		name := args[0]

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		embedder, err := createEmbedderFromConfig(cfg)
		if err != nil {
			return fmt.Errorf("creating embedder: %w", err)
		}
		store := openStore(ctx, cfg, embedder)

		count := store.Count(name)
		if err := store.DeleteNamespace(ctx, name); err != nil {
			return fmt.Errorf("deleting namespace: %w", err)
		}
		if cfg.DataDir != "" {
			if err := store.Persist(ctx, cfg.DataDir); err != nil {
				return fmt.Errorf("persisting index: %w", err)
			}
		}

		fmt.Printf("Deleted namespace %q (%d chunks)\n", name, count)
		return nil
	},
}

func init() {
	namespacesCmd.AddCommand(namespacesDeleteCmd)
	rootCmd.AddCommand(namespacesCmd)
}
