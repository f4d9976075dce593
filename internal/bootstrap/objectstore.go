package bootstrap

import (
	"fmt"
	"log"

	"github.com/go-authgate/appgrant/internal/config"
	"github.com/go-authgate/appgrant/internal/core"
	"github.com/go-authgate/appgrant/internal/objectstore"
)

// initializeObjectStore selects the logo object store for the configured mode
func initializeObjectStore(cfg *config.Config, m core.Recorder) (core.ObjectStore, error) {
	switch cfg.ObjectStoreMode {
	case config.ObjectStoreModeHTTP:
		s, err := objectstore.NewHTTPStore(
			cfg.ObjectStoreAPIURL,
			cfg.ObjectStorePublicURL,
			objectstore.ClientOptions{
				AuthMode:           cfg.ObjectStoreAuthMode,
				AuthSecret:         cfg.ObjectStoreAuthSecret,
				AuthHeader:         cfg.ObjectStoreAuthHeader,
				Timeout:            cfg.ObjectStoreTimeout,
				InsecureSkipVerify: cfg.ObjectStoreInsecureSkipVerify,
				MaxRetries:         cfg.ObjectStoreMaxRetries,
				RetryDelay:         cfg.ObjectStoreRetryDelay,
				MaxRetryDelay:      cfg.ObjectStoreMaxRetryDelay,
			},
			m,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize http object store: %w", err)
		}
		log.Printf("Object store: http (api=%s, auth=%s, retries=%d)",
			cfg.ObjectStoreAPIURL, cfg.ObjectStoreAuthMode, cfg.ObjectStoreMaxRetries)
		if cfg.ObjectStoreInsecureSkipVerify {
			log.Println("WARNING: object store TLS verification is disabled")
		}
		return s, nil

	default: // memory
		log.Println("Object store: memory (logos are not persisted)")
		return objectstore.NewMemoryStore(cfg.ObjectStorePublicURL), nil
	}
}
