package cli

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/playhead-dev/playhead/internal/config"
	"github.com/playhead-dev/playhead/internal/session"
)

func newGenerateCmd() *cobra.Command {
	var (
		output   string
		count    int
		duration time.Duration
		pattern  string
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate sample session files and config",
		Long: `Generates sample data for testing and experimentation.

Use "generate session" to create a synthetic session JSON file.
Use "generate config" to create an example config JSON file.`,
	}

	sessionCmd := &cobra.Command{
		Use:   "session",
		Short: "Generate a synthetic session JSON file",
		Long: `Creates a synthetic session with configurable parameters.

Patterns:
  browse    Evenly paced activity across the whole recording
  burst     Short bursts of rapid activity with quiet periods
  idle      Activity clusters separated by long idle stretches`,
		Example: `  playhead generate session --output session.json --events 200
  playhead generate session --output idle.json --pattern idle --duration 5m`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if output == "" {
				output = "session.json"
			}

			sess, err := generateSession(count, duration, pattern)
			if err != nil {
				return err
			}
			if err := sess.ExportFile(output); err != nil {
				return err
			}

			fmt.Printf("Generated session %s to %s\n", sess.ID(), output)
			fmt.Printf("  Events:   %d\n", sess.Len())
			fmt.Printf("  Duration: %s\n", formatMs(sess.DurationMs()))
			fmt.Printf("  Pattern:  %s\n", pattern)
			return nil
		},
	}

	sessionCmd.Flags().StringVar(&output, "output", "session.json", "output file path")
	sessionCmd.Flags().IntVar(&count, "events", 200, "number of events to generate")
	sessionCmd.Flags().DurationVar(&duration, "duration", 2*time.Minute, "time span of the generated session")
	sessionCmd.Flags().StringVar(&pattern, "pattern", "browse", "activity pattern (browse, burst, idle)")

	configCmd := &cobra.Command{
		Use:     "config",
		Short:   "Generate an example config JSON file",
		Example: `  playhead generate config --output playhead.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if output == "" {
				output = "playhead.json"
			}
			if err := config.WriteExample(output); err != nil {
				return err
			}
			fmt.Printf("Generated example config at %s\n", output)
			return nil
		},
	}

	configCmd.Flags().StringVar(&output, "output", "playhead.json", "output file path")

	cmd.AddCommand(sessionCmd, configCmd)
	return cmd
}

var eventKinds = []session.EventKind{
	session.KindDOMMutation,
	session.KindDOMMutation,
	session.KindInput,
	session.KindNetwork,
	session.KindVideoFrame,
}

func generateSession(count int, duration time.Duration, pattern string) (*session.Session, error) {
	if count < 2 {
		return nil, fmt.Errorf("at least 2 events are required, got %d", count)
	}
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	start := time.Now().Add(-duration).Truncate(time.Second)

	var events []session.Event
	switch pattern {
	case "burst":
		events = generateBursts(rng, start, count, duration)
	case "idle":
		events = generateIdle(rng, start, count, duration)
	case "browse":
		events = generateBrowse(rng, start, count, duration)
	default:
		return nil, fmt.Errorf("unknown pattern %q", pattern)
	}

	// Pin the first and last events so the duration matches exactly.
	events[0] = session.Event{Timestamp: start, Kind: session.KindDOMMutation}
	events[len(events)-1] = session.Event{Timestamp: start.Add(duration), Kind: session.KindDOMMutation}

	return session.New(uuid.NewString(), events, nil)
}

func generateBrowse(rng *rand.Rand, start time.Time, count int, dur time.Duration) []session.Event {
	interval := dur / time.Duration(count)
	events := make([]session.Event, count)
	for i := range events {
		jitter := time.Duration(rng.Int63n(int64(interval)))
		events[i] = session.Event{
			Timestamp: start.Add(time.Duration(i)*interval + jitter/2),
			Kind:      eventKinds[rng.Intn(len(eventKinds))],
		}
	}
	return events
}

func generateBursts(rng *rand.Rand, start time.Time, count int, dur time.Duration) []session.Event {
	events := make([]session.Event, 0, count)
	numBursts := 4
	burstSize := count / numBursts
	burstGap := dur / time.Duration(numBursts)

	for b := 0; b < numBursts; b++ {
		burstStart := start.Add(time.Duration(b) * burstGap)
		for i := 0; i < burstSize; i++ {
			// Events within a burst land close together.
			offset := time.Duration(rng.Intn(2000)) * time.Millisecond
			events = append(events, session.Event{
				Timestamp: burstStart.Add(offset),
				Kind:      eventKinds[rng.Intn(len(eventKinds))],
			})
		}
	}

	// Fill remaining.
	for len(events) < count {
		events = append(events, session.Event{
			Timestamp: start.Add(time.Duration(rng.Int63n(int64(dur)))),
			Kind:      eventKinds[rng.Intn(len(eventKinds))],
		})
	}
	return events
}

func generateIdle(rng *rand.Rand, start time.Time, count int, dur time.Duration) []session.Event {
	// Three activity clusters in the first tenth of each third; the rest of
	// each third is dead air that idle-skip can fast-forward.
	events := make([]session.Event, 0, count)
	numClusters := 3
	clusterSpan := dur / time.Duration(numClusters)
	clusterActive := clusterSpan / 10
	perCluster := count / numClusters

	for c := 0; c < numClusters; c++ {
		clusterStart := start.Add(time.Duration(c) * clusterSpan)
		for i := 0; i < perCluster; i++ {
			offset := time.Duration(rng.Int63n(int64(clusterActive)))
			events = append(events, session.Event{
				Timestamp: clusterStart.Add(offset),
				Kind:      eventKinds[rng.Intn(len(eventKinds))],
			})
		}
	}

	for len(events) < count {
		events = append(events, session.Event{
			Timestamp: start.Add(time.Duration(rng.Int63n(int64(clusterActive)))),
			Kind:      eventKinds[rng.Intn(len(eventKinds))],
		})
	}
	return events
}
