package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/sitechat/internal/engine"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat interactively with the indexed website",
	Long: `Starts an interactive chat session. Answers stream to the terminal
as they are generated, and the conversation history carries across
turns. Type "exit" or press Ctrl-D to quit.`,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().String("namespace", "", "namespace to chat with (defaults to config)")
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	namespace, _ := cmd.Flags().GetString("namespace")
	if namespace == "" {
		namespace = cfg.Namespace
	}

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
	sess := eng.CreateSession(namespace)

	fmt.Printf("Chatting with %q (%d chunks indexed). Type \"exit\" to quit.\n\n", namespace, store.Count(namespace))

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if input == "exit" || input == "quit" {
			break
		}

		reply, err := eng.StreamMessage(ctx, sess.ID, input, func(delta string) {
			fmt.Print(delta)
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "\nError: %v\n", err)
			continue
		}

		fmt.Println()
		if verbose && len(reply.Sources) > 0 {
			printChatSources(reply.Sources)
		}
		fmt.Println()
	}
	return scanner.Err()
}

func printChatSources(sources []engine.Source) {
	fmt.Println("\nSources:")
	for _, src := range sources {
		fmt.Printf("  - %s\n", src.URL)
	}
}
