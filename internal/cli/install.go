package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/nickcecere/vecmem/internal/install"
)

// installCmd registers the MCP server with an AI agent.
var installCmd = &cobra.Command{
	Use:   "install <agent>",
	Short: "Register the memory server with an AI agent",
	Long: `Register vecmem as an MCP server with an AI coding agent.

Supported agents: ` + strings.Join(install.AgentIDs(), ", ") + `

Examples:
  vecmem install claude-code
  vecmem install opencode`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: install.AgentIDs(),
	RunE: func(cmd *cobra.Command, args []string) error {
		return install.Install(args[0], install.DefaultEnv(cmd.OutOrStdout()))
	},
}

// uninstallCmd removes the MCP server from an AI agent.
var uninstallCmd = &cobra.Command{
	Use:       "uninstall <agent>",
	Short:     "Remove the memory server from an AI agent",
	Args:      cobra.ExactArgs(1),
	ValidArgs: install.AgentIDs(),
	RunE: func(cmd *cobra.Command, args []string) error {
		return install.Uninstall(args[0], install.DefaultEnv(cmd.OutOrStdout()))
	},
}
