package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/playhead-dev/playhead/internal/clock"
	"github.com/playhead-dev/playhead/internal/engine"
	"github.com/playhead-dev/playhead/internal/frame"
	"github.com/playhead-dev/playhead/internal/highlight"
	"github.com/playhead-dev/playhead/internal/player"
	"github.com/playhead-dev/playhead/internal/session"
)

func newPlayCmd() *cobra.Command {
	var (
		file         string
		speed        float64
		skipInactive bool
		startAt      time.Duration
		clipStart    time.Duration
		clipEnd      time.Duration
		quiet        bool
	)
	opts := defaultPlaybackOptions()

	cmd := &cobra.Command{
		Use:   "play",
		Short: "Play a recorded session in the terminal",
		Long: `Plays a session file from start to finish, printing playback progress.

Speed scales how fast recorded time passes. With --skip-inactive, stretches
with no recorded activity are crossed at an accelerated rate. A clip window
restricts playback to a sub-range of the recording.`,
		Example: `  playhead play --file session.json
  playhead play --file session.json --speed 8 --skip-inactive
  playhead play --file session.json --clip-start 10s --clip-end 1m
  playhead play --file session.json --start-at 30s --analytics stderr`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" {
				return fmt.Errorf("--file is required")
			}

			cfg, err := opts.loadConfig(cmd)
			if err != nil {
				return err
			}

			sess, err := session.LoadFile(file)
			if err != nil {
				return err
			}
			if clipEnd > 0 {
				sess, err = session.New(sess.ID(), sess.Events(), &session.ClipWindow{
					StartMs: clipStart.Milliseconds(),
					EndMs:   clipEnd.Milliseconds(),
				})
				if err != nil {
					return fmt.Errorf("applying clip window: %w", err)
				}
			}

			clk := clock.NewRealClock()
			store, closePrefs, err := opts.buildPrefs()
			if err != nil {
				return err
			}
			defer closePrefs()
			sink, closeSink, err := opts.buildAnalytics(clk)
			if err != nil {
				return err
			}
			defer closeSink()

			p, err := player.New(player.Options{
				Factory:       engine.Factory(engineOptions(cfg, clk)),
				Prefs:         store,
				Analytics:     sink,
				Highlights:    highlight.NewController(),
				Clock:         clk,
				OrgID:         opts.orgID,
				UserID:        opts.userID,
				InitialTimeMs: startAt.Milliseconds(),
			})
			if err != nil {
				return err
			}
			defer p.Close()

			if err := p.LoadSession(sess); err != nil {
				return err
			}
			if err := p.Mount(player.StaticSurface("terminal")); err != nil {
				return err
			}
			if cmd.Flags().Changed("speed") {
				p.SetSpeed(speed)
			}
			if cmd.Flags().Changed("skip-inactive") {
				p.ToggleSkipInactive(skipInactive)
			}

			if !quiet {
				fmt.Printf("Playing %s (%s, %d events)\n", sess.ID(), formatMs(sess.DurationMs()), sess.Len())
			}

			finished := make(chan struct{}, 1)
			cancelSub := p.Subscribe(func(st player.State) {
				if !quiet {
					printProgress(st)
				}
				if st.IsFinished {
					select {
					case finished <- struct{}{}:
					default:
					}
				}
			})
			defer cancelSub()

			stop := p.Attach(frame.NewIntervalScheduler(clk, cfg.Playback.FrameInterval))
			defer stop()
			p.TogglePlayPause(true, "cli")

			ctx, stopSig := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stopSig()

			select {
			case <-finished:
				if !quiet {
					fmt.Printf("\nFinished at %s\n", formatMs(p.State().CurrentTimeMs))
				}
			case <-ctx.Done():
				if !quiet {
					fmt.Printf("\nInterrupted at %s\n", formatMs(p.State().CurrentTimeMs))
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "path to session JSON file (required)")
	cmd.Flags().Float64Var(&speed, "speed", 1, "playback speed multiplier")
	cmd.Flags().BoolVar(&skipInactive, "skip-inactive", false, "fast-forward through idle stretches")
	cmd.Flags().DurationVar(&startAt, "start-at", 0, "seek here once before playback starts")
	cmd.Flags().DurationVar(&clipStart, "clip-start", 0, "clip window start offset")
	cmd.Flags().DurationVar(&clipEnd, "clip-end", 0, "clip window end offset (0 = no clip)")
	cmd.Flags().BoolVar(&quiet, "quiet", false, "suppress progress output")
	opts.addFlags(cmd)

	return cmd
}

func printProgress(st player.State) {
	marker := "||"
	if st.IsPlaying {
		marker = "|>"
	}
	if st.IsFinished {
		marker = "[]"
	}
	line := fmt.Sprintf("\r  %s %s / %s  %gx", marker, formatMs(st.CurrentTimeMs), formatMs(st.DurationMs), st.Speed)
	if st.FastForwardSpeed > 0 {
		line += fmt.Sprintf("  >> %.0fx", st.FastForwardSpeed)
	}
	if st.IsBuffering {
		line += "  buffering"
	}
	// Pad so shorter lines fully overwrite longer ones.
	fmt.Printf("%-60s", line)
}

func formatMs(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	m := ms / 60000
	s := (ms % 60000) / 1000
	frac := ms % 1000
	return fmt.Sprintf("%d:%02d.%03d", m, s, frac)
}
