package main

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"netvis/internal/config"
)

var (
	version = "1.0.0"
	cfgFile string
)

// flagBinding maps a CLI flag onto a configuration key.
type flagBinding struct {
	flag string
	key  string
}

var bindings = []flagBinding{
	{"log-level", "logging.level"},
	{"log-file", "logging.file"},
	{"model", "engine.model"},
	{"schema-version", "engine.schema_version"},
	{"frame-speed", "engine.frame_speed"},
	{"ticks-per-step", "engine.ticks_per_step"},
	{"width", "display.width"},
	{"height", "display.height"},
	{"fps", "display.fps"},
	{"live-selection", "render.live_selection"},
	{"history", "history.capacity"},
	{"pcap-out", "history.pcap_file"},
	{"mirror", "history.mirror_addr"},
	{"stats-export", "stats.export_file"},
	{"metrics", "metrics.enabled"},
	{"metrics-addr", "metrics.addr"},
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "netvis",
		Short: "netvis - Visualize a network simulation from its memory records",
		Long: `A Go tool that drives a network simulation engine, decodes its memory-resident
node, link, frame and packet records every frame, and renders them with a
clickable memory inspector.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	// Configuration file
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Configuration file path (default: config.yaml)")

	// CLI overrides
	pf := rootCmd.PersistentFlags()
	pf.String("log-level", "", "Log level (debug|info|warn|error)")
	pf.String("log-file", "", "Write logs to this file instead of the console")
	pf.String("model", "", "Engine model (graph|packet)")
	pf.Int("schema-version", 0, "Record schema version")
	pf.Float64("frame-speed", 0, "Frame progress per tick, in (0, 1]")
	pf.Int("ticks-per-step", 0, "Engine ticks per display frame")
	pf.Int("width", 0, "Canvas width")
	pf.Int("height", 0, "Canvas height")
	pf.Int("fps", 0, "Display frames per second")
	pf.Bool("live-selection", false, "Refresh the selected entity's bytes every frame")
	pf.Int("history", 0, "Packet history capacity")

	rootCmd.AddCommand(newViewCmd(), newRunCmd(), newListenCmd(), newSnapshotCmd(), newInspectCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig merges defaults, the config file and changed CLI flags, then
// sets up logging and validates the result.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	v := viper.New()
	config.SetDefaults(v)

	// Load config file
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		if cfgFile != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is OK if using CLI flags
		log.Debug("No config file found, using defaults and CLI flags")
	}

	// Bind CLI flags (override config file values)
	bindViperFlags(v, cmd)

	cfg, err := config.LoadWithViper(v)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	setupLogging(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func bindViperFlags(v *viper.Viper, cmd *cobra.Command) {
	flags := cmd.Flags()
	for _, b := range bindings {
		f := flags.Lookup(b.flag)
		if f == nil || !flags.Changed(b.flag) {
			continue
		}
		v.Set(b.key, f.Value.String())
	}
}

func setupLogging(cfg *config.Config) {
	level, err := log.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05.000",
	})

	if cfg.Logging.File != "" {
		f, err := os.OpenFile(cfg.Logging.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			log.WithError(err).Warn("Failed to open log file, using console only")
		} else {
			log.SetOutput(f)
		}
	}
}

func printBanner(cfg *config.Config) {
	fmt.Printf("netvis v%s\n", version)
	fmt.Println("==============================")
	fmt.Print(cfg.Summary())
	fmt.Println()
}
