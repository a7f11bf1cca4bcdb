package cli

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/playhead-dev/playhead/internal/clock"
	"github.com/playhead-dev/playhead/internal/engine"
	"github.com/playhead-dev/playhead/internal/frame"
	"github.com/playhead-dev/playhead/internal/highlight"
	"github.com/playhead-dev/playhead/internal/player"
	"github.com/playhead-dev/playhead/internal/server"
	"github.com/playhead-dev/playhead/internal/session"
)

func newServeCmd() *cobra.Command {
	var (
		file  string
		addr  string
		watch bool
	)
	opts := defaultPlaybackOptions()

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a session with a live dashboard and control API",
		Long: `Loads a session file and serves it over HTTP.

Endpoints:
  GET  /                   Live dashboard
  GET  /health             Health check
  GET  /api/state          Current playback state
  GET  /api/session        Session summary
  POST /api/play           Start playback
  POST /api/pause          Pause playback
  POST /api/seek           Seek to a time
  POST /api/speed          Change playback speed
  POST /api/skip           Toggle idle skipping
  POST /api/restart        Restart from the beginning
  GET  /api/highlights     List highlights
  WS   /ws                 Live playback state feed`,
		Example: `  playhead serve --file session.json
  playhead serve --file session.json --addr :9090 --watch
  playhead serve --file session.json --prefs file --prefs-path prefs.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" {
				return fmt.Errorf("--file is required")
			}

			cfg, err := opts.loadConfig(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("addr") {
				cfg.Server.Addr = addr
			}

			sess, err := session.LoadFile(file)
			if err != nil {
				return err
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

			hl := highlight.NewController()
			p, err := player.New(player.Options{
				Factory:    engine.Factory(engineOptions(cfg, clk)),
				Prefs:      store,
				Analytics:  sink,
				Highlights: hl,
				Clock:      clk,
				OrgID:      opts.orgID,
				UserID:     opts.userID,
			})
			if err != nil {
				return err
			}
			defer p.Close()

			surface := player.StaticSurface("dashboard")
			if err := p.LoadSession(sess); err != nil {
				return err
			}
			if err := p.Mount(surface); err != nil {
				return err
			}

			hub := server.NewHub()
			cancelSub := p.Subscribe(hub.Broadcast)
			defer cancelSub()

			stop := p.Attach(frame.NewIntervalScheduler(clk, cfg.Playback.FrameInterval))
			defer stop()

			srv := server.New(cfg.Server.Addr, p, hl, hub, clk)

			log.Printf("Dashboard: http://localhost%s/", cfg.Server.Addr)
			log.Printf("API:       http://localhost%s/api/state", cfg.Server.Addr)

			// Graceful shutdown on SIGINT/SIGTERM.
			ctx, stopSig := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stopSig()

			if watch {
				stopWatch, err := watchSessionFile(ctx, file, p, surface)
				if err != nil {
					return err
				}
				defer stopWatch()
			}

			errCh := make(chan error, 1)
			go func() {
				errCh <- srv.Start()
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
				log.Println("shutting down...")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				return srv.Shutdown(shutdownCtx)
			}
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "path to session JSON file (required)")
	cmd.Flags().StringVar(&addr, "addr", ":8080", "address to listen on")
	cmd.Flags().BoolVar(&watch, "watch", false, "reload the session when the file changes")
	opts.addFlags(cmd)

	return cmd
}

// watchSessionFile reloads the player whenever the session file is rewritten.
// The parent directory is watched because editors and atomic writers replace
// the file rather than modifying it in place.
func watchSessionFile(ctx context.Context, file string, p *player.Player, surface player.Surface) (func() error, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}

	abs, err := filepath.Abs(file)
	if err != nil {
		watcher.Close()
		return nil, err
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watching %s: %w", filepath.Dir(abs), err)
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != abs {
					continue
				}
				if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
					continue
				}
				sess, err := session.LoadFile(abs)
				if err != nil {
					log.Printf("reload error: %v", err)
					continue
				}
				if err := p.LoadSession(sess); err != nil {
					log.Printf("reload error: %v", err)
					continue
				}
				if err := p.Mount(surface); err != nil {
					log.Printf("remount error: %v", err)
					continue
				}
				log.Printf("reloaded %s (%d events)", sess.ID(), sess.Len())
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Printf("watch error: %v", err)
			}
		}
	}()

	return watcher.Close, nil
}
