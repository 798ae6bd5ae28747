package config

import (
	"fmt"
	"os"
)

// Validate checks configuration values shared by every command.
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("configuration is nil")
	}

	switch c.Provider {
	case ProviderGemini, ProviderOpenAI, ProviderOllama:
	default:
		return fmt.Errorf("%w: %q (expected gemini, openai, or ollama)", ErrInvalidProvider, c.Provider)
	}

	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("%w: %g (expected 0.0-2.0)", ErrInvalidTemperature, c.Temperature)
	}

	if c.MaxTokens <= 0 || c.MaxTokens > 128000 {
		return fmt.Errorf("%w: %d (expected 1-128000)", ErrInvalidMaxTokens, c.MaxTokens)
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

// ValidateServe checks everything Validate does plus the provider
// credentials serving requires. A missing credential is fatal: the
// process must not start serving without it.
func (c *Config) ValidateServe() error {
	if err := c.Validate(); err != nil {
		return err
	}

	switch c.Provider {
	case ProviderGemini:
		if os.Getenv("GEMINI_API_KEY") == "" {
			return fmt.Errorf("%w: GEMINI_API_KEY not set", ErrMissingAPIKey)
		}
	case ProviderOpenAI:
		if os.Getenv("OPENAI_API_KEY") == "" {
			return fmt.Errorf("%w: OPENAI_API_KEY not set", ErrMissingAPIKey)
		}
	case ProviderOllama:
		// Local server, no credential required.
	}

	return nil
}
