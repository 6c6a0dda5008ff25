package llm

import (
	"fmt"
	"sort"
	"strings"
)

type constructor func(Config) (Provider, error)

var constructors = map[string]constructor{
	"openai":    func(c Config) (Provider, error) { return NewOpenAIProvider(c) },
	"anthropic": func(c Config) (Provider, error) { return NewAnthropicProvider(c) },
	"ollama":    func(c Config) (Provider, error) { return NewOllamaProvider(c) },
	"gemini":    func(c Config) (Provider, error) { return NewGeminiProvider(c) },
}

var aliases = map[string]string{
	"":       "openai",
	"claude": "anthropic",
	"google": "gemini",
}

// CanonicalName maps a configured provider name, alias or empty, to the name
// the provider reports. Unknown names come back lower-cased and unchanged.
func CanonicalName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if canonical, ok := aliases[name]; ok {
		return canonical
	}
	return name
}

// Names lists the supported providers
func Names() []string {
	names := make([]string, 0, len(constructors))
	for name := range constructors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewProvider creates the oracle provider named by config.Provider
func NewProvider(config Config) (Provider, error) {
	newFn, ok := constructors[CanonicalName(config.Provider)]
	if !ok {
		return nil, fmt.Errorf("unknown oracle provider %q (supported: %s)",
			config.Provider, strings.Join(Names(), ", "))
	}
	return newFn(config)
}
