package bootstrap

import (
	"errors"
	"fmt"
	"log"

	"github.com/go-authgate/appgrant/internal/config"
)

// minTokenSecretLen is the shortest HS256 key accepted when not running on defaults
const minTokenSecretLen = 32

// defaultTokenSecret mirrors the placeholder in config.Load
const defaultTokenSecret = "your-256-bit-secret-change-in-production" //nolint:gosec // G101: placeholder

// validateAllConfiguration validates all configuration settings
func validateAllConfiguration(cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := validateTokenSecret(cfg); err != nil {
		return fmt.Errorf("invalid token configuration: %w", err)
	}
	if err := validateObjectStoreConfig(cfg); err != nil {
		return fmt.Errorf("invalid object store configuration: %w", err)
	}
	return nil
}

// validateTokenSecret rejects short keys and warns about the placeholder
func validateTokenSecret(cfg *config.Config) error {
	if cfg.TokenSecret == defaultTokenSecret {
		log.Println("WARNING: TOKEN_SECRET is the built-in default; set it before production use")
		return nil
	}
	if len(cfg.TokenSecret) < minTokenSecretLen {
		return fmt.Errorf("TOKEN_SECRET must be at least %d bytes", minTokenSecretLen)
	}
	return nil
}

// validateObjectStoreConfig checks that required config is present for the selected auth mode
func validateObjectStoreConfig(cfg *config.Config) error {
	if cfg.ObjectStoreMode != config.ObjectStoreModeHTTP {
		return nil
	}
	switch cfg.ObjectStoreAuthMode {
	case "", "none":
	case "simple", "hmac":
		if cfg.ObjectStoreAuthSecret == "" {
			return errors.New("OBJECT_STORE_AUTH_SECRET is required when OBJECT_STORE_AUTH_MODE is set")
		}
	default:
		return fmt.Errorf(
			"invalid OBJECT_STORE_AUTH_MODE: %s (must be: none, simple, hmac)",
			cfg.ObjectStoreAuthMode,
		)
	}
	return nil
}
