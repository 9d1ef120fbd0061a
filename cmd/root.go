package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/timvw/plan-judge/internal/config"
	"github.com/timvw/plan-judge/internal/evaluator"
	telem "github.com/timvw/plan-judge/internal/otel"
)

var (
	// Global flags. Non-empty values override the config file and env.
	flagConfig    string
	flagProvider  string
	flagModel     string
	flagBaseURL   string
	flagAPIKey    string
	flagMaxTokens int64
	flagVerbose   bool
)

var rootCmd = &cobra.Command{
	Use:   "plan-judge",
	Short: "Score and rank accessibility remediation plans against an audit",
	Long: `plan-judge evaluates candidate remediation plans for one accessibility
audit report.

Every plan is scored on weighted criteria (strategic prioritization,
technical specificity, comprehensiveness, long-term vision) by an LLM or by
hand-pasted answers, the plans are ranked by weighted composite score and the
best treatment of each criterion is merged into a champion plan.

Configuration is loaded from .plan-judge.yaml, ~/.config/plan-judge/config.yaml
and environment variables (PLAN_JUDGE_*, DEFAULT_MODEL, <CRITERION>_WEIGHT).`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (default: .plan-judge.yaml or ~/.config/plan-judge/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&flagProvider, "provider", "", "LLM provider: anthropic, openai, gemini (default: inferred from model)")
	rootCmd.PersistentFlags().StringVar(&flagModel, "model", "", "LLM model name (default: claude-sonnet-4-5)")
	rootCmd.PersistentFlags().StringVar(&flagBaseURL, "base-url", "", "override LLM API base URL")
	rootCmd.PersistentFlags().StringVar(&flagAPIKey, "api-key", "", "override LLM API key")
	rootCmd.PersistentFlags().Int64Var(&flagMaxTokens, "max-tokens", 0, "max completion tokens (default: 2048; increase for reasoning models)")
	rootCmd.PersistentFlags().BoolVar(&flagVerbose, "verbose", false, "debug logging")
}

// loadConfig resolves defaults, file, env and finally command-line flags.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	if flagModel != "" {
		cfg.Model = flagModel
		if flagProvider == "" {
			cfg.Provider = config.InferProvider(flagModel)
		}
	}
	if flagProvider != "" {
		cfg.Provider = flagProvider
	}
	if flagBaseURL != "" {
		cfg.BaseURL = flagBaseURL
	}
	if flagAPIKey != "" {
		cfg.APIKey = flagAPIKey
	}
	if flagMaxTokens > 0 {
		cfg.MaxTokens = flagMaxTokens
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// newLogger logs to stderr so that reports on stdout stay parseable.
func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if flagVerbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// initTelemetry starts OTEL export when an endpoint is configured. The
// returned metrics may be nil; all recorders accept that.
func initTelemetry(ctx context.Context, cfg *config.Config, log *slog.Logger) (*telem.Metrics, func()) {
	telem.Version = Version
	tel, err := telem.Init(ctx, telem.Config{
		Endpoint: cfg.OTELEndpoint,
		Headers:  cfg.OTELHeaders,
		Provider: cfg.Provider,
		Model:    cfg.Model,
		Mode:     cfg.Mode,
	})
	if err != nil {
		log.Warn("otel init failed", "error", err)
		return nil, func() {}
	}
	if tel.Enabled() {
		log.Debug("otel export enabled", "endpoint", cfg.OTELEndpoint)
	}
	return tel.Metrics, func() { tel.Shutdown(context.Background()) }
}

// buildEvaluator returns the configured evaluator, wrapped in the score
// cache when a cache TTL is set. The cleanup func releases backend clients.
func buildEvaluator(ctx context.Context, cfg *config.Config, metrics *telem.Metrics) (evaluator.Evaluator, func(), error) {
	noop := func() {}

	if cfg.Mode == config.ModeManual {
		return evaluator.NewManualEvaluator(cfg.PromptDir, cfg.ResponseDir), noop, nil
	}

	if cfg.APIKey == "" {
		return nil, noop, fmt.Errorf("no API key found for provider %s. Set PLAN_JUDGE_API_KEY or the provider's key variable (ANTHROPIC_API_KEY, OPENAI_API_KEY, AZURE_OPENAI_API_KEY, GEMINI_API_KEY)", cfg.Provider)
	}

	var (
		backend evaluator.Backend
		cleanup = noop
	)
	extraHeaders := map[string]string{}
	// Azure AI Foundry needs "api-key" in addition to the SDK's own header.
	if config.IsAzureEndpoint(cfg.BaseURL) {
		extraHeaders["api-key"] = cfg.APIKey
	}

	switch cfg.Provider {
	case "anthropic":
		backend = evaluator.NewAnthropicBackend(evaluator.AnthropicConfig{
			BaseURL:      cfg.BaseURL,
			APIKey:       cfg.APIKey,
			Model:        cfg.Model,
			MaxTokens:    cfg.MaxTokens,
			Temperature:  cfg.TemperatureValue(),
			ExtraHeaders: extraHeaders,
		})
	case "openai":
		backend = evaluator.NewOpenAIBackend(evaluator.OpenAIConfig{
			BaseURL:      cfg.BaseURL,
			APIKey:       cfg.APIKey,
			Model:        cfg.Model,
			MaxTokens:    cfg.MaxTokens,
			Temperature:  cfg.TemperatureValue(),
			ExtraHeaders: extraHeaders,
		})
	case "gemini":
		g, err := evaluator.NewGeminiBackend(ctx, evaluator.GeminiConfig{
			Endpoint:    cfg.BaseURL,
			APIKey:      cfg.APIKey,
			Model:       cfg.Model,
			MaxTokens:   cfg.MaxTokens,
			Temperature: cfg.TemperatureValue(),
		})
		if err != nil {
			return nil, noop, err
		}
		backend = g
		cleanup = func() { _ = g.Close() }
	default:
		return nil, noop, fmt.Errorf("unknown provider %q (supported: anthropic, openai, gemini)", cfg.Provider)
	}

	var ev evaluator.Evaluator = evaluator.NewLLMEvaluator(backend)
	if cfg.CacheTTLDuration > 0 {
		cache := evaluator.NewScoreCache(cfg.CacheTTLDuration, cfg.CacheDir)
		cache.Metrics = metrics
		ev = evaluator.NewCachingEvaluator(ev, cache, metrics)
	}
	return ev, cleanup, nil
}
