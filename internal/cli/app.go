package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/wordrules/internal/cache"
	"github.com/ppiankov/wordrules/internal/llm"
	"github.com/ppiankov/wordrules/internal/metrics"
	"github.com/ppiankov/wordrules/internal/model"
	"github.com/ppiankov/wordrules/internal/pipeline"
	"github.com/ppiankov/wordrules/internal/rules"
	"github.com/ppiankov/wordrules/internal/store"
)

// app holds the components every command needs
type app struct {
	cfg     *model.Config
	logger  *slog.Logger
	catalog *rules.Catalog
	store   store.Store
	metrics *metrics.Metrics
	reg     *prometheus.Registry
}

func newApp(cfg *model.Config) (*app, error) {
	logger := slog.Default()

	catalog := rules.Load(rules.SourcesFromConfig(cfg.Rules), logger)
	if missing := catalog.Missing(); len(missing) > 0 {
		logger.Warn("rule catalog incomplete", "loaded", catalog.Len(), "missing", len(missing))
	}

	st, err := store.Open(cfg.Store, logger)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	reg := prometheus.NewRegistry()
	return &app{
		cfg:     cfg,
		logger:  logger,
		catalog: catalog,
		store:   st,
		metrics: metrics.New(reg),
		reg:     reg,
	}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.logger.Warn("close store", "error", err)
	}
}

// validator wires the oracle stack; throttle may be nil
func (a *app) validator(noCache bool, throttle pipeline.Throttle) (*pipeline.Validator, error) {
	llmCfg := llm.ConfigFromModel(a.cfg.LLM)
	if err := checkCredentials(llmCfg); err != nil {
		return nil, err
	}

	provider, err := llm.NewProvider(llmCfg)
	if err != nil {
		return nil, fmt.Errorf("create oracle provider: %w", err)
	}

	oracleOpts := []llm.OracleOption{llm.WithModel(llmCfg.Model), llm.WithLogger(a.logger)}
	if a.cfg.Cache.Enabled && !noCache {
		oracleOpts = append(oracleOpts, llm.WithCache(cache.Open(a.cfg.Cache), a.cfg.Cache.DiskTTL))
	}

	opts := []pipeline.Option{pipeline.WithLogger(a.logger), pipeline.WithMetrics(a.metrics)}
	if throttle != nil {
		opts = append(opts, pipeline.WithThrottle(throttle))
	}

	return pipeline.NewValidator(a.catalog, llm.NewOracle(provider, oracleOpts...), a.store, opts...), nil
}

func checkCredentials(cfg llm.Config) error {
	if cfg.APIKey != "" {
		return nil
	}
	if env, ok := providerEnv[llm.CanonicalName(cfg.Provider)]; ok {
		return fmt.Errorf("%s environment variable not set", env)
	}
	return nil
}

// addOracleFlags registers provider flags bound to the llm config section
func addOracleFlags(cmd *cobra.Command) {
	cmd.Flags().String("provider", "", "oracle provider (openai, anthropic, ollama, gemini)")
	cmd.Flags().String("model", "", "oracle model name")
	cmd.Flags().Int("llm-timeout", 0, "per-request oracle timeout in seconds (0 = none)")
	cmd.Flags().Bool("no-cache", false, "bypass the oracle reply cache")
	cmd.Flags().String("http-proxy", "", "HTTP proxy URL (overrides HTTP_PROXY env var)")
	cmd.Flags().String("https-proxy", "", "HTTPS proxy URL (overrides HTTPS_PROXY env var)")
}

// bindOracleFlags binds the flags of the running command; called from RunE so
// sibling commands do not overwrite each other's bindings.
func bindOracleFlags(cmd *cobra.Command) {
	for flag, key := range map[string]string{
		"provider":    "llm.provider",
		"model":       "llm.model",
		"llm-timeout": "llm.timeout",
		"http-proxy":  "llm.http_proxy",
		"https-proxy": "llm.https_proxy",
	} {
		if f := cmd.Flags().Lookup(flag); f != nil && f.Changed {
			_ = viper.BindPFlag(key, f)
		}
	}
}

func printBanner(title string) {
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  %s\n", title)
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
}

func isWordExists(err error) bool {
	return errors.Is(err, pipeline.ErrWordExists)
}
