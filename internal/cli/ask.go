package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"catalograg/internal/domain"
	"catalograg/internal/usecase"
)

var (
	askText    string
	askSources bool
)

var askCmd = &cobra.Command{
	Use:   "ask",
	Short: "Ask a single question about the catalog",
	Long: `Retrieve the products nearest to the question and let the language model
answer from them.

Examples:
  catalograg ask -q "Which moisturizer suits oily skin?"
  catalograg ask -q "cleanser under 20" --sources`,
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)
	askCmd.Flags().StringVarP(&askText, "query", "q", "", "question (required)")
	askCmd.Flags().BoolVar(&askSources, "sources", false, "list the retrieved products after the answer")
	askCmd.MarkFlagRequired("query")
}

func runAsk(cmd *cobra.Command, args []string) error {
	chat, closeStore, err := newChatUseCase(cmd)
	if err != nil {
		return err
	}
	defer closeStore()

	reply, err := chat.Ask(cmd.Context(), domain.NewConversation(), askText)
	if err != nil {
		return err
	}

	fmt.Println(reply.Turn.Answer)
	if askSources && len(reply.Sources) > 0 {
		fmt.Println("\nSources:")
		for i, r := range reply.Sources {
			fmt.Printf("  %d. %s (%s)\n", i+1, r.Metadata.String(domain.MetaName), r.Metadata.String(domain.MetaBrand))
		}
	}
	return nil
}

// newChatUseCase wires the store, embedder and generator for chat commands.
func newChatUseCase(cmd *cobra.Command) (*usecase.ChatUseCase, func(), error) {
	cfg := GetConfig()

	st, err := openStore(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open index: %w", err)
	}

	ctx := cmd.Context()
	embedder, embedErr := newEmbedder(ctx, cfg)
	retriever := usecase.NewRetriever(st, embedder, log).WithEmbedderError(embedErr)
	chat := usecase.NewChatUseCase(retriever, newGenerator(ctx, cfg), cfg.Store.Collection,
		cfg.Retrieve.TopK, cfg.Generation.HistoryTurns, log)

	return chat, func() { st.Close() }, nil
}
