package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bountylab/reviewd/internal/output"
	"github.com/bountylab/reviewd/internal/queue"
	"github.com/bountylab/reviewd/internal/store"
)

// Package-level shared dependencies, initialized in cobra.OnInitialize.
var (
	ui         *output.UI
	dataStore  store.Store
	dispatcher queue.Dispatcher

	verbose bool

	buildVersion string
	buildCommit  string
	buildDate    string
)

var rootCmd = &cobra.Command{
	Use:   "reviewd",
	Short: "AI review pipeline for bounty submissions",
	Long: `reviewd scores bounty submissions with AI code review.
It fetches submitted repositories or pull requests, chunks large
codebases, generates structured reviews, and maps scores to outcome
labels. Reviews run inline from the CLI or asynchronously through a
queue-backed worker.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	DisableAutoGenTag: true,
}

// Execute is the main entry point called from main.go.
func Execute(version, commit, date string) {
	buildVersion = version
	buildCommit = commit
	buildDate = date

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig, initDeps)

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().String("config", "", "Config file (default ~/.config/reviewd/config.yaml)")
}

func initConfig() {
	// If --config is explicitly set, use that file
	if cfgFile, _ := rootCmd.PersistentFlags().GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: cannot find home directory: %v\n", err)
			os.Exit(1)
		}

		configDir := filepath.Join(home, ".config", "reviewd")
		viper.AddConfigPath(configDir)
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("REVIEWD")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	home, _ := os.UserHomeDir()
	defaultConfigDir := filepath.Join(home, ".config", "reviewd")

	viper.SetDefault("db_path", filepath.Join(defaultConfigDir, "reviewd.db"))
	viper.SetDefault("port", 8080)

	viper.SetDefault("review.model", "gpt-4o-mini")
	viper.SetDefault("review.max_chunk_tokens", 12000)

	viper.SetDefault("worker.concurrency", 8)
	viper.SetDefault("worker.rate_per_second", 10)

	viper.SetDefault("queue.use_relay", false)
	viper.SetDefault("queue.redis_url", "")
	viper.SetDefault("queue.relay_url", "")
	viper.SetDefault("queue.relay_token", "")

	viper.SetDefault("github.token", "")
	viper.SetDefault("github.api_url", "")

	viper.SetDefault("providers.anthropic_api_key", "")
	viper.SetDefault("providers.gemini_api_key", "")
	viper.SetDefault("providers.openai_api_key", "")
	viper.SetDefault("providers.openrouter_api_key", "")

	// Read config file if it exists (optional)
	_ = viper.ReadInConfig()
}

func initDeps() {
	ui = output.New()
	ui.Verbose = verbose

	// Store and dispatcher are initialized lazily so config/version
	// commands run without a database or queue backend.
}

// getStore returns the shared store, initializing it on first call.
func getStore() (store.Store, error) {
	if dataStore != nil {
		return dataStore, nil
	}

	dbPath := viper.GetString("db_path")
	s, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := s.Migrate(rootCmd.Context()); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	dataStore = s
	return dataStore, nil
}

// getDispatcher returns the shared queue backend, selecting it once
// from configuration.
func getDispatcher() (queue.Dispatcher, error) {
	if dispatcher != nil {
		return dispatcher, nil
	}

	d, err := queue.New(queue.FromViper())
	if err != nil {
		return nil, err
	}
	dispatcher = d
	return dispatcher, nil
}

// getBroker returns the Redis backend, which worker commands require.
func getBroker() (*queue.RedisQueue, error) {
	d, err := getDispatcher()
	if err != nil {
		return nil, err
	}
	broker, ok := d.(*queue.RedisQueue)
	if !ok {
		return nil, fmt.Errorf("worker requires the Redis queue backend (set queue.redis_url and disable queue.use_relay)")
	}
	return broker, nil
}
