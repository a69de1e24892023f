package cmd

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/aweris/flashcache"
)

var rootCmd = &cobra.Command{
	Use:           "flashcache",
	Short:         "Flashcard generation with a bounded result cache",
	Long:          "CLI for generating flashcards from documents and managing the cache of generated results.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logger().Error(err.Error())
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "config file (default: ~/.config/flashcache/config.yaml)")
	flags.String("db", "", "cache database (default: ~/.local/share/flashcache/cache.db)")
	flags.String("artifact-dir", "", "directory for generated results (default: next to the database)")
	flags.Int("limit", flashcache.DefaultLimit, "maximum number of cached results")
	flags.Int("compress", 0, "zstd level for new results, 1 (fastest) to 3 (best); 0 disables")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")

	viper.BindPFlag("db", flags.Lookup("db"))
	viper.BindPFlag("artifact_dir", flags.Lookup("artifact-dir"))
	viper.BindPFlag("limit", flags.Lookup("limit"))
	viper.BindPFlag("compress", flags.Lookup("compress"))
	viper.BindPFlag("log_level", flags.Lookup("log-level"))
}

func initConfig() {
	if cfg := rootCmd.PersistentFlags().Lookup("config").Value.String(); cfg != "" {
		viper.SetConfigFile(cfg)
	} else {
		viper.AddConfigPath(configDir())
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("FLASHCACHE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	viper.BindEnv("openai.api_key", "FLASHCACHE_OPENAI_API_KEY", "OPENAI_API_KEY")

	viper.SetDefault("db", filepath.Join(dataDir(), "cache.db"))
	viper.SetDefault("openai.base_url", "https://api.openai.com/v1")
	viper.SetDefault("openai.model", "gpt-4o-mini")
	viper.SetDefault("concurrency", 4)

	viper.ReadInConfig()
}

func configDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "flashcache")
	}
	if home, err := homedir.Dir(); err == nil {
		return filepath.Join(home, ".config", "flashcache")
	}
	return ".flashcache"
}

func dataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "flashcache")
	}
	if home, err := homedir.Dir(); err == nil {
		return filepath.Join(home, ".local", "share", "flashcache")
	}
	return ".flashcache"
}

func logger() *slog.Logger {
	level, err := log.ParseLevel(viper.GetString("log_level"))
	if err != nil {
		level = log.InfoLevel
	}
	return slog.New(log.NewWithOptions(os.Stderr, log.Options{
		Level:           level,
		ReportTimestamp: level == log.DebugLevel,
	}))
}

func openCache() (flashcache.Cache, error) {
	opts := []flashcache.OpenOption{
		flashcache.WithLimit(viper.GetInt("limit")),
		flashcache.WithArtifactDir(viper.GetString("artifact_dir")),
		flashcache.WithLogger(logger()),
	}
	if level := viper.GetInt("compress"); level > 0 {
		opts = append(opts, flashcache.WithCompression(level))
	}
	return flashcache.Open(viper.GetString("db"), opts...)
}

// closeCache is deferred by every command so a failed Close is reported
// when the command itself succeeded.
func closeCache(c flashcache.Cache, err *error) {
	if cerr := c.Close(); cerr != nil && *err == nil {
		*err = cerr
	}
}
