package config

import "fmt"

// Validate checks the configuration for invalid values.
// Called by Load after unmarshalling so bad config fails at startup
// rather than on first use.
func (c *Config) Validate() error {
	if len(c.Providers) == 0 {
		return fmt.Errorf("%w: priority_order is empty", ErrInvalidProvider)
	}
	for _, p := range c.Providers {
		switch p {
		case ProviderGemini, ProviderOpenAI, ProviderOllama:
		default:
			return fmt.Errorf("%w: %q (supported: gemini, openai, ollama)", ErrInvalidProvider, p)
		}
	}

	if c.DefaultIntentThreshold < 0 || c.DefaultIntentThreshold > 1 {
		return fmt.Errorf("%w: %g (must be in [0,1])", ErrInvalidThreshold, c.DefaultIntentThreshold)
	}
	if c.DefaultKKnowledge <= 0 {
		return fmt.Errorf("%w: default_k_knowledge=%d", ErrInvalidTopK, c.DefaultKKnowledge)
	}
	if c.DefaultKIntent <= 0 {
		return fmt.Errorf("%w: default_k_intent=%d", ErrInvalidTopK, c.DefaultKIntent)
	}

	if c.PromotionMinRating < 0 || c.PromotionMinRating > 5 {
		return fmt.Errorf("%w: promotion_min_rating=%d", ErrInvalidRating, c.PromotionMinRating)
	}
	if c.FrequentMinCount < 1 {
		return fmt.Errorf("frequent_min_count must be at least 1, got %d", c.FrequentMinCount)
	}

	if c.PostgresHost == "" {
		return ErrInvalidPostgresHost
	}
	if c.PostgresPort < 1 || c.PostgresPort > 65535 {
		return fmt.Errorf("%w: %d", ErrInvalidPostgresPort, c.PostgresPort)
	}
	if c.PostgresDBName == "" {
		return ErrInvalidPostgresDBName
	}

	return nil
}
