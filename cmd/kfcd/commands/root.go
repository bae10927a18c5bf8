// Package commands implements the kfcd CLI: configuration management and a
// daemon entrypoint that stands up the conversation-control engine's
// persistence and background schedulers. Wiring an actual chat platform
// (unread queue, outbound sender, stream registry, LLM client) is left to
// the embedding host; kfcd's serve command runs the scheduling substrate on
// its own so an operator can confirm configuration and storage before
// integrating a host.
package commands

import (
	"github.com/spf13/cobra"
)

// NewRootCmd builds the kfcd root command.
func NewRootCmd(version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "kfcd",
		Short:   "Conversation-control engine daemon",
		Version: version,
	}

	cmd.PersistentFlags().String("config", "", "path to kfc.yaml (auto-discovered if omitted)")
	cmd.PersistentFlags().Bool("verbose", false, "enable debug logging")

	cmd.AddCommand(
		newConfigCmd(),
		newServeCmd(),
	)

	return cmd
}
