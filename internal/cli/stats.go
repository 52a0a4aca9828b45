package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nickcecere/vecmem/internal/config"
	"github.com/nickcecere/vecmem/internal/ui"
)

// statsCmd shows what is stored and which index and model are in use.
var statsCmd = &cobra.Command{
	Use:     "stats",
	Aliases: []string{"status"},
	Short:   "Show memory statistics",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		st, err := openMemory()
		if err != nil {
			return err
		}
		defer st.Close()

		stats, err := st.Stats(ctx)
		if err != nil {
			return fmt.Errorf("failed to read stats: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, ui.Header.Render("Memory Status"))
		fmt.Fprintln(out)

		fmt.Fprintf(out, "%s %s\n", ui.Highlight.Render("Index:"), ui.Bold.Render(stats.Namespace))
		fmt.Fprintf(out, "  %s %s\n", ui.Dim.Render("Backend:"), stats.Backend)
		if stats.Location != "" {
			fmt.Fprintf(out, "  %s %s\n", ui.Dim.Render("Location:"), stats.Location)
		}
		fmt.Fprintf(out, "  %s %s (%s)\n", ui.Dim.Render("Model:"), stats.Model, stats.Provider)
		fmt.Fprintf(out, "  %s %d\n", ui.Dim.Render("Dimensions:"), stats.Dimensions)
		fmt.Fprintf(out, "  %s %d files, %d chunks\n", ui.Dim.Render("Stored:"), stats.Sources, stats.Entries)
		if stats.LegacyEntries > 0 {
			fmt.Fprintf(out, "  %s %s\n", ui.Dim.Render("Legacy:"),
				ui.Warning.Render(fmt.Sprintf("%d chunks use the JSON metadata encoding", stats.LegacyEntries)))
		}

		fmt.Fprintln(out)
		fmt.Fprintln(out, ui.Dim.Render("Configuration:"))
		if path := config.ConfigFilePath(); path != "" {
			fmt.Fprintf(out, "  Config file: %s\n", path)
		}
		fmt.Fprintf(out, "  Index URL: %s\n", config.Get().Index.URL)
		return nil
	},
}
