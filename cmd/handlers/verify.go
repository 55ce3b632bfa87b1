package handlers

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/wagomu-no-sunaba/etude-rag2/internal/core"
)

// NewVerifyCmd creates the verify command for running the quality stage
// (style consistency + hallucination tagging) over an already-written
// draft, independent of a full generation run.
func NewVerifyCmd(cfgFile *string) *cobra.Command {
	var (
		articleType string
		file        string
	)

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Run style-consistency and hallucination checks over draft text",
		Long: `Read draft text (from --file, or stdin if omitted) and run the same
quality checks the pipeline applies after content generation, printing the
resulting consistency score, verification confidence, and any inserted
unverified-claim tags.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(cmd.Context(), *cfgFile, file, articleType)
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "path to draft text (default: stdin)")
	cmd.Flags().StringVar(&articleType, "type", "", "article category, for rulebook lookup")

	return cmd
}

func runVerify(ctx context.Context, cfgFile, file, articleType string) error {
	d, err := bootstrap(ctx, cfgFile)
	if err != nil {
		return err
	}
	defer d.Close()

	var text []byte
	if file != "" {
		text, err = os.ReadFile(file)
	} else {
		text, err = io.ReadAll(os.Stdin)
	}
	if err != nil {
		return fmt.Errorf("failed to read draft text: %w", err)
	}

	category := core.ArticleType(articleType)
	rulebook := ""
	if category.Valid() {
		rulebook, err = d.styleRetr.RetrieveProfile(ctx, category)
		if err != nil {
			return fmt.Errorf("failed to load style rulebook: %w", err)
		}
	}
	draft := core.Draft{Lead: string(text), Category: category}
	d.verifier.Run(ctx, &draft, rulebook, nil)

	fmt.Printf("consistency_score: %.2f\n", draft.ConsistencyScore)
	fmt.Printf("verification_confidence: %.2f\n", draft.VerificationConfidence)
	fmt.Printf("tag_count: %d\n", draft.TagCount)
	fmt.Println()
	fmt.Println(draft.Lead)
	return nil
}
