package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dt-pm-tools/issue-kb/internal/config"
	"github.com/dt-pm-tools/issue-kb/internal/llm"
	"github.com/dt-pm-tools/issue-kb/internal/logging"
	"github.com/dt-pm-tools/issue-kb/internal/refine"
)

var (
	cfgFile   string
	logLevel  string
	appConfig config.Config
	logger    = zap.NewNop()
	version   = "0.1.0"
)

var rootCmd = &cobra.Command{
	Use:   "issuekb",
	Short: "Build a question and answer knowledge base from GitHub issues",
	Long: `Fetches a repository's issues and comments, derives question/answer pairs and
discussion threads from them, optionally refines the pairs with a language model,
and exports everything as JSON and Markdown.`,
	Version:      version,
	SilenceUsage: true,
}

// Execute runs the root command. Interrupts cancel the running command.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	_ = logging.Sync(logger)
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.issue-kb.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error (overrides config)")
}

// loadConfig loads .env, the config file and env overrides, validates them
// and sets up logging. Commands that do work call this first.
func loadConfig() error {
	if err := config.LoadDotEnv(".env"); err != nil {
		return err
	}
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w\nRun 'issuekb config' or edit %s", err, configPath())
	}

	l, err := logging.New(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if err != nil {
		return err
	}
	appConfig = cfg
	logger = l
	return nil
}

func configPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	return config.DefaultPath()
}

func llmConfig(cfg config.Config) llm.Config {
	provider := func(p config.Provider) llm.ProviderConfig {
		return llm.ProviderConfig{APIKey: p.APIKey, BaseURL: p.BaseURL}
	}
	return llm.Config{
		OpenAI:            provider(cfg.Providers.OpenAI),
		Anthropic:         provider(cfg.Providers.Anthropic),
		Volcengine:        provider(cfg.Providers.Volcengine),
		Ollama:            provider(cfg.Providers.Ollama),
		Timeout:           cfg.Refine.Timeout,
		RequestsPerMinute: cfg.Refine.RequestsPerMinute,
	}
}

func refineConfig(cfg config.Config) refine.Config {
	return refine.Config{
		Model:       cfg.Model,
		BatchSize:   cfg.Refine.BatchSize,
		MaxWorkers:  cfg.Refine.MaxWorkers,
		BatchPause:  cfg.Refine.BatchPause,
		Temperature: cfg.Refine.Temperature,
		MaxTokens:   cfg.Refine.MaxTokens,
	}
}

func filterOptions(cfg config.Config) refine.FilterOptions {
	return refine.FilterOptions{
		MinConfidence:        cfg.Filter.MinConfidence,
		ExcludeNeedsMoreInfo: cfg.Filter.ExcludeNeedsMoreInfo,
	}
}

// keyLookup reports provider keys from the config, falling back to the
// process environment.
func keyLookup(cfg config.Config) func(string) (string, bool) {
	keys := map[string]string{
		"OPENAI_API_KEY":     cfg.Providers.OpenAI.APIKey,
		"ANTHROPIC_API_KEY":  cfg.Providers.Anthropic.APIKey,
		"VOLCENGINE_API_KEY": cfg.Providers.Volcengine.APIKey,
	}
	return func(name string) (string, bool) {
		if v := keys[name]; v != "" {
			return v, true
		}
		return os.LookupEnv(name)
	}
}
