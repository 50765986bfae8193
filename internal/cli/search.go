package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"catalograg/internal/domain"
	"catalograg/internal/usecase"
)

var (
	searchText string
	searchMode string
	searchTopK int
	searchJSON bool
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search an indexed collection",
	Long: `Search the collection semantically (nearest embeddings) or lexically
(verbatim, case-sensitive substring match ordered by rank).

Examples:
  catalograg search -q "gentle cleanser for sensitive skin"
  catalograg search -q "Serum" --mode lexical --top-k 10 --json`,
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().StringVarP(&searchText, "query", "q", "", "search query (required)")
	searchCmd.Flags().StringVarP(&searchMode, "mode", "m", "", "semantic or lexical (default from config)")
	searchCmd.Flags().IntVarP(&searchTopK, "top-k", "k", 0, "number of results (default from config)")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output as JSON")
	searchCmd.MarkFlagRequired("query")
}

func runSearch(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	st, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("failed to open index: %w", err)
	}
	defer st.Close()

	mode := cfg.Retrieve.Mode
	if searchMode != "" {
		mode = searchMode
	}
	topK := cfg.Retrieve.TopK
	if searchTopK > 0 {
		topK = searchTopK
	}

	var retriever *usecase.Retriever
	if mode == usecase.ModeLexical {
		retriever = usecase.NewRetriever(st, nil, log)
	} else {
		embedder, embedErr := newEmbedder(cmd.Context(), cfg)
		retriever = usecase.NewRetriever(st, embedder, log).WithEmbedderError(embedErr)
	}

	outcome := retriever.Search(cmd.Context(), mode, searchText, cfg.Store.Collection, topK)

	if searchJSON {
		output, _ := json.MarshalIndent(outcome, "", "  ")
		fmt.Println(string(output))
		if !outcome.OK {
			return errors.New(outcome.Message)
		}
		return nil
	}

	if !outcome.OK {
		return errors.New(outcome.Message)
	}
	if len(outcome.Results) == 0 {
		fmt.Println("No results found.")
		return nil
	}

	fmt.Printf("Found %d results for: %s\n\n", len(outcome.Results), searchText)
	for i, r := range outcome.Results {
		printResult(i+1, r)
	}
	return nil
}

func printResult(n int, r domain.QueryResult) {
	header := fmt.Sprintf("--- [%d] %s (%s)", n, r.Metadata.String(domain.MetaName), r.Metadata.String(domain.MetaBrand))
	if r.Distance != nil {
		header += fmt.Sprintf(" distance: %.4f", *r.Distance)
	} else {
		header += fmt.Sprintf(" rank: %g", r.Metadata.Number(domain.MetaRank))
	}
	fmt.Println(header + " ---")

	text := r.Document
	if len(text) > 500 {
		text = text[:500] + "..."
	}
	fmt.Println(text)
}
