package bootstrap

import (
	"context"
	"fmt"
	"log"

	"github.com/go-authgate/appgrant/internal/config"
	"github.com/go-authgate/appgrant/internal/core"
	"github.com/go-authgate/appgrant/internal/models"
	"github.com/go-authgate/appgrant/internal/services"
	"github.com/go-authgate/appgrant/internal/store"
	"github.com/go-authgate/appgrant/internal/token"
)

// initializeServices creates all business logic services. The scope catalog is
// loaded before anything that resolves scopes is handed out.
func initializeServices(
	ctx context.Context,
	cfg *config.Config,
	db *store.Store,
	objects core.ObjectStore,
	appCache core.Cache[models.App],
	codec *token.Codec,
	limiter services.SecretLimiter,
	auditService *services.AuditService,
	prometheusMetrics core.Recorder,
) (*services.ScopeCatalog, *services.AppService, *services.FrequencyService, *services.BindingService, error) {
	catalog := services.NewScopeCatalog(db)
	if err := catalog.Init(ctx, cfg.RequiredScopes, cfg.SeedScopes); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("failed to initialize scope catalog: %w", err)
	}
	log.Printf("Scope catalog ready (%d required scopes)", len(cfg.RequiredScopes))

	appService := services.NewAppService(
		db,
		cfg,
		catalog,
		objects,
		appCache,
		auditService,
		prometheusMetrics,
	)
	frequencyService := services.NewFrequencyService(db, cfg, auditService, prometheusMetrics)
	bindingService := services.NewBindingService(
		db,
		cfg,
		appService,
		frequencyService,
		codec,
		limiter,
		auditService,
		prometheusMetrics,
	)

	return catalog, appService, frequencyService, bindingService, nil
}
