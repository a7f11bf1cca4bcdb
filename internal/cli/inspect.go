package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/playhead-dev/playhead/internal/session"
)

func newInspectCmd() *cobra.Command {
	var (
		file          string
		idleThreshold time.Duration
		outputJSON    bool
	)

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Summarize a session file",
		Long: `Prints a summary of a recorded session: duration, event counts per
kind, and the idle stretches that --skip-inactive would fast-forward.`,
		Example: `  playhead inspect --file session.json
  playhead inspect --file session.json --idle-threshold 5s --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" {
				return fmt.Errorf("--file is required")
			}

			sess, err := session.LoadFile(file)
			if err != nil {
				return err
			}

			gaps := sess.IdleGaps(idleThreshold)

			if outputJSON {
				out := map[string]interface{}{
					"id":              sess.ID(),
					"started_at":      sess.StartedAt(),
					"duration_ms":     sess.DurationMs(),
					"raw_duration_ms": sess.RawDurationMs(),
					"events":          sess.Len(),
					"counts":          sess.CountByKind(),
					"idle_gaps":       gaps,
				}
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(out)
			}

			fmt.Printf("Session %s\n", sess.ID())
			fmt.Printf("  Started:  %s\n", sess.StartedAt().Format(time.RFC3339))
			fmt.Printf("  Duration: %s\n", formatMs(sess.DurationMs()))
			if clip := sess.Clip(); clip != nil {
				fmt.Printf("  Clip:     %s - %s (of %s raw)\n",
					formatMs(clip.StartMs), formatMs(clip.EndMs), formatMs(sess.RawDurationMs()))
			}
			fmt.Printf("  Events:   %d\n", sess.Len())
			for kind, n := range sess.CountByKind() {
				fmt.Printf("    %-14s %d\n", kind, n)
			}

			if len(gaps) == 0 {
				fmt.Printf("  No idle stretches over %s\n", idleThreshold)
				return nil
			}
			var idleMs int64
			for _, g := range gaps {
				idleMs += g.DurationMs
			}
			fmt.Printf("  Idle stretches over %s: %d (%s total)\n", idleThreshold, len(gaps), formatMs(idleMs))
			for _, g := range gaps {
				fmt.Printf("    %s - %s (%s)\n", formatMs(g.FromMs), formatMs(g.ToMs), formatMs(g.DurationMs))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "path to session JSON file (required)")
	cmd.Flags().DurationVar(&idleThreshold, "idle-threshold", 10*time.Second, "smallest gap reported as idle")
	cmd.Flags().BoolVar(&outputJSON, "json", false, "output summary as JSON")

	return cmd
}
