package cli

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/playhead-dev/playhead/internal/analytics"
	"github.com/playhead-dev/playhead/internal/clock"
	"github.com/playhead-dev/playhead/internal/config"
	"github.com/playhead-dev/playhead/internal/engine"
	"github.com/playhead-dev/playhead/internal/prefs"
)

// analyticsThrottleWindow dedupes repeated toggle events from the CLI.
const analyticsThrottleWindow = time.Second

// playbackOptions carries the flags shared by play and serve: config file,
// preference backend, and analytics sink selection.
type playbackOptions struct {
	configPath string

	prefsBackend  string
	prefsPath     string
	redisHost     string
	redisPort     int
	redisPassword string
	redisDB       int
	prefsScope    string

	analyticsBackend string
	analyticsPath    string
	orgID            string
	userID           string
}

func defaultPlaybackOptions() playbackOptions {
	return playbackOptions{
		prefsBackend:     config.PrefsMemory,
		redisHost:        "localhost",
		redisPort:        6379,
		analyticsBackend: config.AnalyticsNone,
	}
}

func (o *playbackOptions) addFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.configPath, "config", "", "path to config JSON file")
	cmd.Flags().StringVar(&o.prefsBackend, "prefs", config.PrefsMemory, "preference backend (memory, file, redis)")
	cmd.Flags().StringVar(&o.prefsPath, "prefs-path", "", "preference file path (file backend)")
	cmd.Flags().StringVar(&o.redisHost, "redis-host", "localhost", "redis host (or host:port)")
	cmd.Flags().IntVar(&o.redisPort, "redis-port", 6379, "redis port")
	cmd.Flags().StringVar(&o.redisPassword, "redis-password", "", "redis password")
	cmd.Flags().IntVar(&o.redisDB, "redis-db", 0, "redis database index")
	cmd.Flags().StringVar(&o.prefsScope, "prefs-scope", "", "preference scope, typically a user id")
	cmd.Flags().StringVar(&o.analyticsBackend, "analytics", config.AnalyticsNone, "analytics sink (none, stderr, sqlite)")
	cmd.Flags().StringVar(&o.analyticsPath, "analytics-path", "", "analytics database path (sqlite backend)")
	cmd.Flags().StringVar(&o.orgID, "org", "", "organization id attached to analytics events")
	cmd.Flags().StringVar(&o.userID, "user", "", "user id attached to analytics events")
}

// loadConfig builds the effective config, then backfills option fields from
// it for every flag the user did not set explicitly.
func (o *playbackOptions) loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return cfg, err
	}

	if !cmd.Flags().Changed("prefs") {
		o.prefsBackend = cfg.Prefs.Backend
	}
	if !cmd.Flags().Changed("prefs-path") {
		o.prefsPath = cfg.Prefs.Path
	}
	if !cmd.Flags().Changed("redis-host") && cfg.Prefs.Redis.Host != "" {
		o.redisHost = cfg.Prefs.Redis.Host
	}
	if !cmd.Flags().Changed("redis-port") && cfg.Prefs.Redis.Port != 0 {
		o.redisPort = cfg.Prefs.Redis.Port
	}
	if !cmd.Flags().Changed("redis-password") {
		o.redisPassword = cfg.Prefs.Redis.Password
	}
	if !cmd.Flags().Changed("redis-db") {
		o.redisDB = cfg.Prefs.Redis.DB
	}
	if !cmd.Flags().Changed("prefs-scope") {
		o.prefsScope = cfg.Prefs.Redis.Scope
	}
	if !cmd.Flags().Changed("analytics") {
		o.analyticsBackend = cfg.Analytics.Backend
	}
	if !cmd.Flags().Changed("analytics-path") {
		o.analyticsPath = cfg.Analytics.Path
	}
	if !cmd.Flags().Changed("org") {
		o.orgID = cfg.Analytics.OrgID
	}
	if !cmd.Flags().Changed("user") {
		o.userID = cfg.Analytics.UserID
	}

	return cfg, nil
}

// buildPrefs constructs the selected preference store.
func (o *playbackOptions) buildPrefs() (prefs.Store, func(), error) {
	switch o.prefsBackend {
	case config.PrefsMemory:
		return prefs.NewMemoryStore(), func() {}, nil
	case config.PrefsFile:
		if o.prefsPath == "" {
			return nil, nil, fmt.Errorf("--prefs-path is required for the file backend")
		}
		st, err := prefs.NewFileStore(o.prefsPath)
		if err != nil {
			return nil, nil, err
		}
		return st, func() {}, nil
	case config.PrefsRedis:
		host, port, err := splitRedisHostPort(o.redisHost, o.redisPort)
		if err != nil {
			return nil, nil, err
		}
		st, err := prefs.NewRedisStore(&prefs.RedisConfig{
			Host:     host,
			Port:     port,
			Password: o.redisPassword,
			DB:       o.redisDB,
			Scope:    o.prefsScope,
		})
		if err != nil {
			return nil, nil, err
		}
		return st, func() { st.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown prefs backend %q", o.prefsBackend)
	}
}

// buildAnalytics constructs the selected analytics sink, throttled so rapid
// repeated toggles collapse into one event.
func (o *playbackOptions) buildAnalytics(clk clock.Clock) (analytics.Sink, func(), error) {
	switch o.analyticsBackend {
	case config.AnalyticsNone:
		return analytics.NopSink{}, func() {}, nil
	case config.AnalyticsStderr:
		sink := analytics.NewWriterSink(os.Stderr, clk)
		return analytics.NewThrottle(sink, clk, analyticsThrottleWindow), func() {}, nil
	case config.AnalyticsSQLite:
		if o.analyticsPath == "" {
			return nil, nil, fmt.Errorf("--analytics-path is required for the sqlite backend")
		}
		sink, err := analytics.OpenSQLite(o.analyticsPath, clk)
		if err != nil {
			return nil, nil, err
		}
		return analytics.NewThrottle(sink, clk, analyticsThrottleWindow), func() { sink.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown analytics backend %q", o.analyticsBackend)
	}
}

// splitRedisHostPort accepts either a bare host or host:port; a port inside
// the host value takes precedence over the separate port flag.
func splitRedisHostPort(host string, port int) (string, int, error) {
	if strings.Contains(host, ":") {
		h, p, err := net.SplitHostPort(host)
		if err != nil {
			return "", 0, fmt.Errorf("invalid --redis-host value %q: %w", host, err)
		}
		n, err := strconv.Atoi(p)
		if err != nil {
			return "", 0, fmt.Errorf("invalid redis port in --redis-host %q: %w", host, err)
		}
		host = h
		port = n
	}

	if host == "" {
		return "", 0, fmt.Errorf("redis host cannot be empty")
	}
	if port <= 0 {
		return "", 0, fmt.Errorf("redis port must be positive, got %d", port)
	}

	return host, port, nil
}

// engineOptions maps playback tuning from config onto the engine.
func engineOptions(cfg config.Config, clk clock.Clock) engine.Options {
	return engine.Options{
		Clock:         clk,
		IdleThreshold: cfg.Playback.IdleThreshold,
		MaxSkipSpeed:  cfg.Playback.MaxSkipSpeed,
	}
}
