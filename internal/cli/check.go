package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/nickcecere/vecmem/internal/config"
	"github.com/nickcecere/vecmem/internal/embeddings"
	"github.com/nickcecere/vecmem/internal/index"
	"github.com/nickcecere/vecmem/internal/loader"
	"github.com/nickcecere/vecmem/internal/ui"
)

// checkCmd verifies the embedder and the index before the server is used.
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify the embedder and index are reachable",
	Long: `Run connectivity checks:

  1. the embedding service produces a vector
  2. the vector index opens with those dimensions and can be counted
  3. pdftotext is installed (PDF support only; reported as a warning)

Exits non-zero when a required check fails.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		failed := runChecks(ctx, cmd.OutOrStdout(), config.Get())
		if failed > 0 {
			return fmt.Errorf("%d check(s) failed", failed)
		}
		return nil
	},
}

// runChecks prints one line per check and returns how many required checks failed.
func runChecks(ctx context.Context, w io.Writer, cfg *config.Config) int {
	fmt.Fprintln(w, ui.Header.Render("Connection Checks"))
	fmt.Fprintln(w)

	failed := 0
	report := func(ok bool, name, detail string) {
		if !ok {
			failed++
		}
		fmt.Fprintf(w, "%s %-10s %s\n", ui.Status(ok), name, detail)
	}

	svc, err := embeddings.NewService(cfg)
	if err != nil {
		report(false, "embedder", err.Error())
		report(false, "index", "skipped: no embedder")
		return failed
	}

	dims, err := embeddings.Probe(ctx, svc)
	if err != nil {
		report(false, "embedder", fmt.Sprintf("%s/%s: %v", svc.Provider(), svc.ModelName(), err))
		report(false, "index", "skipped: embedding dimensions unknown")
		return failed
	}
	report(true, "embedder", fmt.Sprintf("%s/%s (%d dimensions)", svc.Provider(), svc.ModelName(), dims))

	idx, err := index.Open(cfg.Index.URL, cfg.Index.Name, dims)
	if err != nil {
		report(false, "index", err.Error())
	} else {
		n, err := idx.Count(ctx)
		info := idx.Info()
		if err != nil {
			report(false, "index", err.Error())
		} else {
			report(true, "index", fmt.Sprintf("%s %s (%d entries)", info.Backend, info.Namespace, n))
		}
		idx.Close()
	}

	if err := loader.CheckPDFTool(cfg.Ingest.PDFToText); err != nil {
		fmt.Fprintf(w, "%s %-10s %s\n", ui.Warning.Render("WARN"), "pdftotext", "not found, PDF files cannot be saved")
	} else {
		fmt.Fprintf(w, "%s %-10s %s\n", ui.Status(true), "pdftotext", "available")
	}

	return failed
}
