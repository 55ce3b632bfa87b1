package handlers

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wagomu-no-sunaba/etude-rag2/internal/core"
	"github.com/wagomu-no-sunaba/etude-rag2/internal/search"
)

// NewSearchCmd creates the search command for querying the reference corpus
// directly, without running the full generation pipeline.
func NewSearchCmd(cfgFile *string) *cobra.Command {
	var (
		articleType string
		topK        int
	)

	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Run a hybrid vector+trigram search against the reference corpus",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd.Context(), *cfgFile, args[0], articleType, topK)
		},
	}

	cmd.Flags().StringVar(&articleType, "type", "", "article category to search (ANNOUNCEMENT, EVENT_REPORT, INTERVIEW or CULTURE); the store always filters by category")
	cmd.Flags().IntVar(&topK, "top-k", search.DefaultParams.FinalK, "number of passages to return")

	return cmd
}

func runSearch(ctx context.Context, cfgFile, query, articleType string, topK int) error {
	d, err := bootstrap(ctx, cfgFile)
	if err != nil {
		return err
	}
	defer d.Close()

	params := search.DefaultParams
	if topK > 0 {
		params.FinalK = topK
	}

	category := core.ArticleType(articleType)
	if !category.Valid() {
		category = ""
	}

	passages, err := d.searcher.Search(ctx, query, category, params)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if len(passages) == 0 {
		fmt.Println("no matching passages found")
		return nil
	}

	for i, p := range passages {
		fmt.Printf("%d. [%s] (%s, %s)\n", i+1, p.ID, p.Category, p.Source)
		fmt.Printf("   %s\n", truncate(p.Body, 200))
	}
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
