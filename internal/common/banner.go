package common

import (
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/banner"
)

// PrintBanner displays the application banner and logs the resolved runtime settings
func PrintBanner(config *Config, logger arbor.ILogger) {
	banner.Print("Placefinder", GetVersion())

	logger.Info().
		Str("version", GetFullVersion()).
		Str("environment", config.Environment).
		Str("catalog_driver", config.Catalog.Driver).
		Str("index_dir", config.Index.Dir).
		Str("embedding_provider", config.Embedding.Provider).
		Str("llm_provider", string(config.LLM.DefaultProvider)).
		Msg("Placefinder starting")
}
