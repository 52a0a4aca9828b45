package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/nickcecere/vecmem/internal/memory"
	"github.com/nickcecere/vecmem/internal/ui"
)

var (
	recallResults int
	recallRaw     bool
	recallScores  bool
)

// recallCmd retrieves the passages most relevant to a query.
var recallCmd = &cobra.Command{
	Use:   "recall <query>",
	Short: "Recall the most relevant saved content",
	Long: `Recall passages from memory that are semantically close to the query,
even when the exact words differ.

Examples:
  # Top three passages
  vecmem recall "how do we rotate credentials"

  # More results, as plain text
  vecmem recall "release checklist" -k 8 --raw`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRecall,
}

func init() {
	recallCmd.Flags().IntVarP(&recallResults, "results", "k", memory.DefaultRecallK, "number of passages to return")
	recallCmd.Flags().BoolVar(&recallRaw, "raw", false, "print plain text instead of rendered markdown")
	recallCmd.Flags().BoolVar(&recallScores, "scores", false, "list similarity scores before the passages")
}

func runRecall(cmd *cobra.Command, args []string) error {
	query := strings.Join(args, " ")
	out := cmd.OutOrStdout()

	log.Debug("Recalling", "query", query, "k", recallResults)

	ctx, cancel := signalContext()
	defer cancel()

	st, err := openMemory()
	if err != nil {
		return err
	}
	defer st.Close()

	results, err := st.Recall(ctx, query, recallResults)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("recall failed: %w", err)
	}

	if recallScores && len(results) > 0 {
		for _, r := range results {
			fmt.Fprintf(out, "%s %s %s\n",
				ui.Highlight.Render(fmt.Sprintf("[%d]", r.Rank)),
				ui.FilePath.Render(r.SourceFile),
				ui.FormatScore(r.Score),
			)
		}
		fmt.Fprintln(out)
	}

	text := memory.FormatRecall(results)
	if recallRaw || len(results) == 0 {
		fmt.Fprintln(out, text)
		return nil
	}

	fmt.Fprint(out, ui.RenderMarkdown(text))
	return nil
}
