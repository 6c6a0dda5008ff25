package cli

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/wordrules/internal/llm"
	"github.com/ppiankov/wordrules/internal/model"
)

// version is set at build time with -ldflags "-X .../internal/cli.version=..."
var version = "v0.1.0"

var (
	cfgFile string
	verbose bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "wordrules",
	Short: "Wordrules - judge words against a 150-rule catalog with an LLM oracle",
	Long: `Wordrules asks a language model to answer 150 yes/no rules about a word,
parses the freeform reply into a dense verdict record, stores it, and builds
a word x rule table for review and export.

Rules come in three categories of 50: context (1-50), property (51-100)
and wording (101-150). Unanswered rules are stored as false with a
"no answer received" reason, so every record always carries 150 verdicts.`,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		slog.SetDefault(newLogger(cfg.Log.Format, verbose))
		return nil
	},
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Display the version number of wordrules.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("wordrules %s\n", version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.wordrules/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (debug logging)")

	_ = viper.BindPFlag("output.verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in config file and ENV variables
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}

		viper.AddConfigPath(home + "/.wordrules")
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	// WORDRULES_LLM_MODEL overrides llm.model
	viper.SetEnvPrefix("WORDRULES")
	viper.SetEnvKeyReplacer(newEnvReplacer())
	viper.AutomaticEnv()

	setDefaults(model.DefaultConfig())

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

func newEnvReplacer() *strings.Replacer {
	return strings.NewReplacer(".", "_")
}

// setDefaults registers every key of cfg with viper so env overrides apply to Unmarshal
func setDefaults(cfg *model.Config) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return
	}
	var tree map[string]any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return
	}
	var walk func(prefix string, node map[string]any)
	walk = func(prefix string, node map[string]any) {
		for k, v := range node {
			key := k
			if prefix != "" {
				key = prefix + "." + k
			}
			if child, ok := v.(map[string]any); ok {
				walk(key, child)
				continue
			}
			viper.SetDefault(key, v)
		}
	}
	walk("", tree)

	// omitempty keys never reach the tree but must still accept env overrides
	for _, key := range []string{"llm.api_key", "llm.base_url", "llm.http_proxy", "llm.https_proxy", "llm.no_proxy"} {
		viper.SetDefault(key, "")
	}
}

// loadConfig resolves flags > env > config file > defaults
func loadConfig() (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	applyProviderEnv(&cfg.LLM)

	// The default model names an OpenAI model; other providers fall back to their own default
	if llm.CanonicalName(cfg.LLM.Provider) != "openai" && cfg.LLM.Model == model.DefaultConfig().LLM.Model {
		cfg.LLM.Model = ""
	}
	return cfg, nil
}

// providerEnv names the conventional credential variable of each provider
var providerEnv = map[string]string{
	"openai":    "OPENAI_API_KEY",
	"anthropic": "ANTHROPIC_API_KEY",
	"gemini":    "GEMINI_API_KEY",
}

// applyProviderEnv fills credentials from the providers' conventional variables
func applyProviderEnv(llmCfg *model.LLMConfig) {
	name := llm.CanonicalName(llmCfg.Provider)
	if env, ok := providerEnv[name]; ok && llmCfg.APIKey == "" {
		llmCfg.APIKey = os.Getenv(env)
	}
	if name == "ollama" && llmCfg.BaseURL == "" {
		llmCfg.BaseURL = os.Getenv("OLLAMA_BASE_URL")
	}
}

func newLogger(format string, debug bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if debug {
		opts.Level = slog.LevelDebug
	}
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
