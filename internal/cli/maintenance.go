package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/nickcecere/vecmem/internal/memory"
	"github.com/nickcecere/vecmem/internal/ui"
)

var (
	forgetConfirm string
	wipeConfirm   string
	wipeDrop      bool
)

// listCmd lists every remembered file.
var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List remembered files",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		st, err := openMemory()
		if err != nil {
			return err
		}
		defer st.Close()

		sources, err := st.ListSources(ctx)
		if err != nil {
			return fmt.Errorf("failed to list memories: %w", err)
		}
		printSources(cmd.OutOrStdout(), sources)
		return nil
	},
}

// findCmd lists remembered files whose path contains a substring.
var findCmd = &cobra.Command{
	Use:   "find <text>",
	Short: "Find remembered files by path",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		st, err := openMemory()
		if err != nil {
			return err
		}
		defer st.Close()

		sources, err := st.FindSources(ctx, args[0])
		if err != nil {
			return fmt.Errorf("failed to search memories: %w", err)
		}
		if len(sources) == 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "No stored files match %q.\n", args[0])
			return nil
		}
		printSources(cmd.OutOrStdout(), sources)
		return nil
	},
}

// forgetCmd removes one file from memory.
var forgetCmd = &cobra.Command{
	Use:   "forget <path>",
	Short: "Forget one file",
	Long: `Remove every chunk stored for a file.

The operation only runs with --confirm DELETE.

Examples:
  vecmem forget notes.md --confirm DELETE`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		st, err := openMemory()
		if err != nil {
			return err
		}
		defer st.Close()

		res, err := st.DeleteSource(ctx, args[0], forgetConfirm)
		if err != nil {
			return fmt.Errorf("failed to forget file: %w", err)
		}
		printDelete(cmd.OutOrStdout(), res)
		return res.Err()
	},
}

// wipeCmd removes everything, or drops and recreates the index.
var wipeCmd = &cobra.Command{
	Use:   "wipe",
	Short: "Forget everything",
	Long: `Remove every entry from the memory index.

Requires --confirm "DELETE ALL". With --drop the index itself is dropped and
recreated empty, which requires --confirm "DROP INDEX".

Examples:
  vecmem wipe --confirm "DELETE ALL"
  vecmem wipe --drop --confirm "DROP INDEX"`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		st, err := openMemory()
		if err != nil {
			return err
		}
		defer st.Close()

		var res *memory.DeleteResult
		if wipeDrop {
			res, err = st.DropIndex(ctx, wipeConfirm)
		} else {
			res, err = st.DeleteAll(ctx, wipeConfirm)
		}
		if err != nil {
			return fmt.Errorf("failed to wipe memory: %w", err)
		}
		printDelete(cmd.OutOrStdout(), res)
		return res.Err()
	},
}

func init() {
	forgetCmd.Flags().StringVar(&forgetConfirm, "confirm", "", `must be "DELETE"`)
	wipeCmd.Flags().StringVar(&wipeConfirm, "confirm", "", `must be "DELETE ALL", or "DROP INDEX" with --drop`)
	wipeCmd.Flags().BoolVar(&wipeDrop, "drop", false, "drop and recreate the index")
}

func printSources(w io.Writer, sources []memory.SourceSummary) {
	if len(sources) == 0 {
		fmt.Fprintln(w, "Memory is empty.")
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Run 'vecmem save <path>' to remember something.")
		return
	}

	total := 0
	for _, s := range sources {
		fmt.Fprint(w, ui.FormatSource(s.SourceFile, s.Chunks))
		if s.Legacy > 0 {
			fmt.Fprint(w, " "+ui.Warning.Render(fmt.Sprintf("[%d legacy]", s.Legacy)))
		}
		fmt.Fprintln(w)
		total += s.Chunks
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, ui.Dim.Render(fmt.Sprintf("Total: %d file(s), %d chunk(s)", len(sources), total)))
}

func printDelete(w io.Writer, res *memory.DeleteResult) {
	text := memory.FormatDelete(res)
	if !res.Confirmed {
		fmt.Fprintln(w, ui.Warning.Render(text))
		return
	}
	fmt.Fprintln(w, ui.Success.Render(text))
}
