package cli

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/wordrules/internal/model"
)

func resetViper(t *testing.T) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
}

func TestLoadConfig_Defaults(t *testing.T) {
	resetViper(t)
	t.Setenv("OPENAI_API_KEY", "sk-test")
	setDefaults(model.DefaultConfig())

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.LLM.Provider != "openai" || cfg.LLM.Model != "gpt-4.1" {
		t.Errorf("unexpected llm defaults: %+v", cfg.LLM)
	}
	if cfg.LLM.APIKey != "sk-test" {
		t.Errorf("expected OPENAI_API_KEY fallback, got %q", cfg.LLM.APIKey)
	}
	if cfg.Cache.DiskTTL != 7*24*time.Hour {
		t.Errorf("duration default lost: %v", cfg.Cache.DiskTTL)
	}
	if cfg.Server.Addr != ":5000" {
		t.Errorf("unexpected server addr %q", cfg.Server.Addr)
	}
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	resetViper(t)
	t.Setenv("WORDRULES_LLM_PROVIDER", "anthropic")
	t.Setenv("WORDRULES_STORE_BACKEND", "bolt")
	t.Setenv("WORDRULES_LLM_API_KEY", "sk-ant-direct")
	viper.SetEnvPrefix("WORDRULES")
	viper.SetEnvKeyReplacer(newEnvReplacer())
	viper.AutomaticEnv()
	setDefaults(model.DefaultConfig())

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.LLM.Provider != "anthropic" || cfg.Store.Backend != "bolt" {
		t.Errorf("env overrides not applied: %+v %+v", cfg.LLM, cfg.Store)
	}
	if cfg.LLM.APIKey != "sk-ant-direct" {
		t.Errorf("expected api key from env, got %q", cfg.LLM.APIKey)
	}
	if cfg.LLM.Model != "" {
		t.Errorf("OpenAI default model should be cleared for anthropic, got %q", cfg.LLM.Model)
	}
}

func TestWriteDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	if err := writeDefaultConfig(path); err != nil {
		t.Fatalf("writeDefaultConfig: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var cfg model.Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		t.Fatalf("written config is not valid YAML: %v", err)
	}
	if cfg.Rules.ContextFile != "context_rules.json" {
		t.Errorf("unexpected rules section: %+v", cfg.Rules)
	}

	if err := writeDefaultConfig(path); err == nil {
		t.Error("expected error when config already exists")
	}
}

func TestMaskSecret(t *testing.T) {
	tests := map[string]string{
		"":                    "",
		"short":               "****",
		"sk-1234567890abcdef": "sk-1****cdef",
	}
	for in, want := range tests {
		if got := maskSecret(in); got != want {
			t.Errorf("maskSecret(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestApplyProviderEnv(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "g-key")
	t.Setenv("OLLAMA_BASE_URL", "http://ollama:11434")

	gemini := model.LLMConfig{Provider: "gemini"}
	applyProviderEnv(&gemini)
	if gemini.APIKey != "g-key" {
		t.Errorf("gemini key = %q", gemini.APIKey)
	}

	ollama := model.LLMConfig{Provider: "ollama"}
	applyProviderEnv(&ollama)
	if ollama.BaseURL != "http://ollama:11434" {
		t.Errorf("ollama base url = %q", ollama.BaseURL)
	}

	explicit := model.LLMConfig{Provider: "gemini", APIKey: "from-config"}
	applyProviderEnv(&explicit)
	if explicit.APIKey != "from-config" {
		t.Error("configured key must win over env")
	}
}
