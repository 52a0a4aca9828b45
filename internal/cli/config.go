package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nickcecere/vecmem/internal/config"
	"github.com/nickcecere/vecmem/internal/ui"
)

var (
	configShowPath bool
	configInit     bool
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or manage configuration",
	Long: `Display current configuration settings and config file locations.

Examples:
  # Show current configuration
  vecmem config

  # Show config file paths
  vecmem config --path

  # Write a starter config to ~/.config/vecmem/config.yaml
  vecmem config --init`,
	Args: cobra.NoArgs,
	RunE: runConfig,
}

func init() {
	configCmd.Flags().BoolVar(&configShowPath, "path", false, "show config file paths")
	configCmd.Flags().BoolVar(&configInit, "init", false, "write the current configuration to the global config file")
}

func runConfig(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	cfg := config.Get()

	if configInit {
		path := config.GlobalConfigPath()
		if cfgFile != "" {
			path = cfgFile
		}
		if err := config.WriteFile(cfg, path); err != nil {
			return err
		}
		fmt.Fprintf(out, "%s %s\n", ui.Success.Render("Wrote"), path)
		return nil
	}

	if configShowPath {
		fmt.Fprintln(out, ui.SectionTitle.Render("Configuration Paths"))
		fmt.Fprintln(out)
		fmt.Fprintf(out, "Global config: %s\n", config.GlobalConfigPath())
		fmt.Fprintf(out, "Local config:  .vecmemrc.yaml (searched from cwd upward)\n")
		fmt.Fprintf(out, "Active config: %s\n", config.ConfigFilePath())
		fmt.Fprintf(out, "Index URL:     %s\n", cfg.Index.URL)
		return nil
	}

	fmt.Fprintln(out, ui.SectionTitle.Render("Current Configuration"))
	fmt.Fprintln(out)

	fmt.Fprintln(out, ui.Bold.Render("Index:"))
	fmt.Fprintf(out, "  URL: %s\n", cfg.Index.URL)
	fmt.Fprintf(out, "  Name: %s\n", cfg.Index.Name)
	fmt.Fprintln(out)

	fmt.Fprintln(out, ui.Bold.Render("Embeddings:"))
	fmt.Fprintf(out, "  Provider: %s\n", cfg.Embeddings.Provider)
	fmt.Fprintf(out, "  Ollama URL: %s\n", cfg.Embeddings.Ollama.URL)
	fmt.Fprintf(out, "  Ollama Model: %s\n", cfg.Embeddings.Ollama.Model)
	fmt.Fprintf(out, "  OpenAI Model: %s\n", cfg.Embeddings.OpenAI.Model)
	if cfg.Embeddings.OpenAI.BaseURL != "" {
		fmt.Fprintf(out, "  OpenAI Base URL: %s\n", cfg.Embeddings.OpenAI.BaseURL)
	}
	fmt.Fprintf(out, "  Cache Size: %d\n", cfg.Embeddings.CacheSize)
	fmt.Fprintln(out)

	fmt.Fprintln(out, ui.Bold.Render("Ingest:"))
	fmt.Fprintf(out, "  Batch Size: %d\n", cfg.Ingest.BatchSize)
	fmt.Fprintf(out, "  Workers: %d\n", cfg.Ingest.Workers)
	fmt.Fprintf(out, "  Max File Size: %d bytes\n", cfg.Ingest.MaxFileSize)
	fmt.Fprintf(out, "  pdftotext: %s\n", cfg.Ingest.PDFToText)
	fmt.Fprintln(out)

	fmt.Fprintln(out, ui.Bold.Render("Server:"))
	fmt.Fprintf(out, "  Warm: %t\n", cfg.Server.Warm)
	fmt.Fprintf(out, "  Init Timeout: %s\n", cfg.Server.InitTimeout)
	fmt.Fprintf(out, "  Watch Debounce: %s\n", cfg.Watch.Debounce)
	fmt.Fprintln(out)

	fmt.Fprintln(out, ui.Bold.Render("Ignore Patterns:"))
	fmt.Fprintf(out, "  %d patterns configured\n", len(cfg.Ignore))

	return nil
}
