package cli

import (
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root playhead command.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "playhead",
		Short: "Session replay playback from the terminal",
		Long: `Playhead replays recorded browser sessions with full playback control.
Seek, change speed, skip idle stretches, and serve a live dashboard.`,
		SilenceUsage: true,
	}

	root.AddCommand(
		newPlayCmd(),
		newServeCmd(),
		newInspectCmd(),
		newGenerateCmd(),
	)

	return root
}
