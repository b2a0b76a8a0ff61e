// Package bootstrap wires optional infrastructure from configuration: the
// language capability provider and the background janitor.
package bootstrap

import (
	"strings"

	openai "github.com/sashabaranov/go-openai"

	appconfig "github.com/wolfman30/clinic-concierge/internal/config"
	"github.com/wolfman30/clinic-concierge/internal/nlu"
	"github.com/wolfman30/clinic-concierge/pkg/logging"
)

// BuildCapabilities wires the language-understanding provider. With an OpenAI
// key configured the model is primary and the deterministic rules are the
// fallback; without one the rules run alone.
func BuildCapabilities(cfg *appconfig.Config, logger *logging.Logger) nlu.Capabilities {
	if logger == nil {
		logger = logging.Default()
	}
	deterministic := nlu.NewDeterministic()

	if cfg == nil || strings.TrimSpace(cfg.OpenAIAPIKey) == "" {
		logger.Info("no OpenAI key configured, using deterministic language rules")
		return deterministic
	}

	clientCfg := openai.DefaultConfig(cfg.OpenAIAPIKey)
	if cfg.OpenAITimeout > 0 {
		clientCfg.HTTPClient.Timeout = cfg.OpenAITimeout
	}
	client := nlu.NewOpenAIClient(openai.NewClientWithConfig(clientCfg), nlu.OpenAIConfig{
		Model: cfg.OpenAIModel,
	})

	logger.Info("OpenAI language capabilities enabled", "model", cfg.OpenAIModel)
	return nlu.WithFallback(client, deterministic, logger)
}
