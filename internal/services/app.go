package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-authgate/appgrant/internal/config"
	"github.com/go-authgate/appgrant/internal/core"
	"github.com/go-authgate/appgrant/internal/models"
	"github.com/go-authgate/appgrant/internal/store"
	"github.com/go-authgate/appgrant/internal/util"
)

// Relation is how a viewer relates to an app when it is rendered.
type Relation int

const (
	// RelationUser is any account other than the owner
	RelationUser Relation = iota
	// RelationOwner is the owning account; only it may see the secret
	RelationOwner
)

func (r Relation) String() string {
	if r == RelationOwner {
		return "owner"
	}
	return "user"
}

// logoVariant is the suffix of the rendered logo object
const logoVariant = "-small"

type CreateAppRequest struct {
	Name        string
	Description string
	RedirectURI string
	ScopeIDs    []uint
	OwnerID     string
}

type ModifyAppRequest struct {
	Name        string
	Description string
	RedirectURI string
	ScopeIDs    []uint
}

// AppView is the client-facing form of an app.
type AppView struct {
	ID          string      `json:"app_id"`
	Name        string      `json:"app_name"`
	Description string      `json:"app_desc"`
	RedirectURI string      `json:"redirect_uri"`
	Logo        *string     `json:"logo"`
	Scopes      []ScopeView `json:"scopes"`
	OwnerID     string      `json:"owner_id"`
	Secret      string      `json:"app_secret,omitempty"`
}

// AppService owns the app registry: registration, owner edits, logo handling
// and secret checks.
type AppService struct {
	store         *store.Store
	catalog       *ScopeCatalog
	objects       core.ObjectStore
	appCache      core.Cache[models.App]
	appCacheTTL   time.Duration
	idMaxAttempts int
	auditService  *AuditService
	metrics       core.Recorder
	now           func() time.Time
}

func NewAppService(
	s *store.Store,
	cfg *config.Config,
	catalog *ScopeCatalog,
	objects core.ObjectStore,
	appCache core.Cache[models.App],
	auditService *AuditService,
	m core.Recorder,
) *AppService {
	attempts := cfg.AppIDMaxAttempts
	if attempts <= 0 {
		attempts = 32
	}
	return &AppService{
		store:         s,
		catalog:       catalog,
		objects:       objects,
		appCache:      appCache,
		appCacheTTL:   cfg.AppCacheTTL,
		idMaxAttempts: attempts,
		auditService:  auditService,
		metrics:       m,
		now:           now,
	}
}

func appCacheKey(id string) string {
	return "app:" + id
}

// Create registers an app owned by req.OwnerID. The id is drawn at random and
// inserted atomically; a primary key clash draws again.
func (s *AppService) Create(ctx context.Context, req CreateAppRequest) (*models.App, error) {
	name := strings.TrimSpace(req.Name)
	description := strings.TrimSpace(req.Description)
	redirectURI := strings.TrimSpace(req.RedirectURI)

	if err := validateAppFields(name, description, redirectURI); err != nil {
		return nil, err
	}
	if req.OwnerID == "" {
		return nil, fmt.Errorf("%w: owner is required", ErrInvalidAppField)
	}

	taken, err := s.store.AppNameTaken(ctx, name, "")
	if err != nil {
		s.metrics.RecordAppCreated(false)
		return nil, fmt.Errorf("%w: %v", ErrCreateApp, err)
	}
	if taken {
		return nil, ErrDuplicateAppName
	}

	secret, err := util.CryptoRandomString(models.AppSecretLen)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCreateApp, err)
	}
	scopes := s.catalog.Grant(ctx, req.ScopeIDs)
	createdAt := s.now()

	for attempt := 1; attempt <= s.idMaxAttempts; attempt++ {
		id, err := util.CryptoRandomString(models.AppIDLen)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCreateApp, err)
		}

		app := &models.App{
			ID:              id,
			Name:            name,
			Secret:          secret,
			RedirectURI:     redirectURI,
			Description:     description,
			OwnerID:         req.OwnerID,
			Scopes:          scopes,
			FieldChangeTime: createdAt,
		}

		err = s.store.CreateApp(ctx, app)
		if err == nil {
			s.metrics.RecordAppCreated(true)
			s.auditService.Log(ctx, AuditLogEntry{
				EventType:    models.EventAppCreated,
				Severity:     models.SeverityInfo,
				ActorUserID:  req.OwnerID,
				ResourceType: models.ResourceApp,
				ResourceID:   app.ID,
				ResourceName: app.Name,
				Action:       "App registered",
				Details: models.AuditDetails{
					"scope_ids": app.ScopeIDs(),
					"attempts":  attempt,
				},
				Success: true,
			})
			return app, nil
		}

		if !store.IsDuplicate(err) {
			s.metrics.RecordAppCreated(false)
			return nil, fmt.Errorf("%w: %v", ErrCreateApp, err)
		}

		// The name may have been taken concurrently; otherwise the id clashed
		taken, terr := s.store.AppNameTaken(ctx, name, "")
		if terr != nil {
			s.metrics.RecordAppCreated(false)
			return nil, fmt.Errorf("%w: %v", ErrCreateApp, terr)
		}
		if taken {
			return nil, ErrDuplicateAppName
		}

		s.metrics.RecordIDCollision("app")
		log.Printf("[App] Generated app id collided (attempt %d/%d), drawing again",
			attempt, s.idMaxAttempts)
	}

	s.metrics.RecordAppCreated(false)
	return nil, ErrIDSpaceExhausted
}

// Modify replaces the app's editable fields and its whole scope set.
func (s *AppService) Modify(
	ctx context.Context,
	app *models.App,
	actorID string,
	req ModifyAppRequest,
) (*models.App, error) {
	if !app.BelongsTo(actorID) {
		return nil, ErrNotOwner
	}

	name := strings.TrimSpace(req.Name)
	description := strings.TrimSpace(req.Description)
	redirectURI := strings.TrimSpace(req.RedirectURI)
	if err := validateAppFields(name, description, redirectURI); err != nil {
		return nil, err
	}

	taken, err := s.store.AppNameTaken(ctx, name, app.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModifyApp, err)
	}
	if taken {
		return nil, ErrDuplicateAppName
	}

	updated := *app
	updated.Name = name
	updated.Description = description
	updated.RedirectURI = redirectURI
	updated.FieldChangeTime = s.now()
	scopes := s.catalog.Grant(ctx, req.ScopeIDs)

	if err := s.store.UpdateApp(ctx, &updated, scopes); err != nil {
		switch {
		case store.IsNotFound(err):
			return nil, ErrAppNotFound
		case store.IsDuplicate(err):
			return nil, ErrDuplicateAppName
		default:
			return nil, fmt.Errorf("%w: %v", ErrModifyApp, err)
		}
	}
	s.invalidate(ctx, app.ID)

	s.auditService.Log(ctx, AuditLogEntry{
		EventType:    models.EventAppUpdated,
		Severity:     models.SeverityInfo,
		ActorUserID:  actorID,
		ResourceType: models.ResourceApp,
		ResourceID:   app.ID,
		ResourceName: updated.Name,
		Action:       "App modified",
		Details: models.AuditDetails{
			"previous_name": app.Name,
			"scope_ids":     updated.ScopeIDs(),
		},
		Success: true,
	})

	return &updated, nil
}

// Delete removes the app. The logo object goes first; if it cannot be removed
// the app is kept so the asset is never orphaned.
func (s *AppService) Delete(ctx context.Context, app *models.App, actorID string) error {
	if !app.BelongsTo(actorID) {
		return ErrNotOwner
	}

	if app.Logo != nil && *app.Logo != "" {
		if err := s.deleteObject(ctx, *app.Logo); err != nil {
			s.metrics.RecordAppDeleted(false)
			return err
		}
	}

	if err := s.store.DeleteApp(ctx, app.ID); err != nil {
		s.metrics.RecordAppDeleted(false)
		if store.IsNotFound(err) {
			return ErrAppNotFound
		}
		return fmt.Errorf("%w: %v", ErrDeleteApp, err)
	}
	s.invalidate(ctx, app.ID)
	s.metrics.RecordAppDeleted(true)

	s.auditService.Log(ctx, AuditLogEntry{
		EventType:    models.EventAppDeleted,
		Severity:     models.SeverityWarning,
		ActorUserID:  actorID,
		ResourceType: models.ResourceApp,
		ResourceID:   app.ID,
		ResourceName: app.Name,
		Action:       "App deleted",
		Success:      true,
	})
	return nil
}

// ModifyLogo points the app at a new logo object, deleting the previous one first.
func (s *AppService) ModifyLogo(ctx context.Context, app *models.App, key string) error {
	key = strings.TrimSpace(key)
	if key == "" || len(key) > models.AppLogoMaxLen {
		return fmt.Errorf("%w: logo key must be 1-%d bytes", ErrInvalidAppField, models.AppLogoMaxLen)
	}

	previous := ""
	if app.Logo != nil && *app.Logo != "" && *app.Logo != key {
		if err := s.deleteObject(ctx, *app.Logo); err != nil {
			return err
		}
		previous = *app.Logo
	}

	if err := s.store.UpdateAppLogo(ctx, app.ID, &key); err != nil {
		if previous != "" {
			log.Printf("[App] Logo object %q deleted but app %s still references it: %v",
				previous, app.ID, err)
		}
		if store.IsNotFound(err) {
			return ErrAppNotFound
		}
		return fmt.Errorf("%w: %v", ErrModifyApp, err)
	}
	app.Logo = &key
	s.invalidate(ctx, app.ID)

	s.auditService.Log(ctx, AuditLogEntry{
		EventType:    models.EventAppLogoChanged,
		Severity:     models.SeverityInfo,
		ActorUserID:  app.OwnerID,
		ResourceType: models.ResourceApp,
		ResourceID:   app.ID,
		ResourceName: app.Name,
		Action:       "App logo changed",
		Details:      models.AuditDetails{"logo": key},
		Success:      true,
	})
	return nil
}

func (s *AppService) deleteObject(ctx context.Context, key string) error {
	if err := s.objects.Delete(ctx, key); err != nil {
		log.Printf("[App] Failed to delete logo object %q: %v", key, err)
		return fmt.Errorf("%w: %v", ErrLogoDelete, err)
	}
	return nil
}

// Authenticate reports whether secret is the app's secret, in constant time.
func (s *AppService) Authenticate(app *models.App, secret string) bool {
	if app == nil {
		return false
	}
	return util.ConstantTimeEqual(app.Secret, secret)
}

// RelationFor derives how viewerID relates to app.
func (s *AppService) RelationFor(app *models.App, viewerID string) Relation {
	if app.BelongsTo(viewerID) {
		return RelationOwner
	}
	return RelationUser
}

// Render builds the client-facing view. The secret is included only for the owner.
func (s *AppService) Render(app *models.App, relation Relation) AppView {
	scopes := make([]ScopeView, 0, len(app.Scopes))
	for _, scope := range app.Scopes {
		scopes = append(scopes, NewScopeView(scope))
	}

	view := AppView{
		ID:          app.ID,
		Name:        app.Name,
		Description: app.Description,
		RedirectURI: app.RedirectURI,
		Scopes:      scopes,
		OwnerID:     app.OwnerID,
	}
	if app.Logo != nil && *app.Logo != "" {
		logoURL := s.objects.URL(*app.Logo + logoVariant)
		view.Logo = &logoURL
	}
	if relation == RelationOwner {
		view.Secret = app.Secret
	}
	return view
}

// Get looks up an app by id through the app cache.
func (s *AppService) Get(ctx context.Context, id string) (*models.App, error) {
	app, err := s.appCache.GetWithFetch(
		ctx,
		appCacheKey(id),
		s.appCacheTTL,
		func(ctx context.Context, _ string) (models.App, error) {
			app, err := s.store.GetAppByID(ctx, id)
			if err != nil {
				return models.App{}, err
			}
			return *app, nil
		},
	)
	if err != nil {
		if store.IsNotFound(err) {
			return nil, ErrAppNotFound
		}
		return nil, fmt.Errorf("failed to load app: %w", err)
	}
	return &app, nil
}

func (s *AppService) GetByName(ctx context.Context, name string) (*models.App, error) {
	app, err := s.store.GetAppByName(ctx, name)
	if err != nil {
		if store.IsNotFound(err) {
			return nil, ErrAppNotFound
		}
		return nil, fmt.Errorf("failed to load app: %w", err)
	}
	return app, nil
}

func (s *AppService) ListByOwner(ctx context.Context, ownerID string) ([]models.App, error) {
	return s.store.ListAppsByOwner(ctx, ownerID)
}

func (s *AppService) invalidate(ctx context.Context, id string) {
	if err := s.appCache.Delete(ctx, appCacheKey(id)); err != nil {
		log.Printf("[App] Failed to invalidate cache for app %s: %v", id, err)
	}
}

func validateAppFields(name, description, redirectURI string) error {
	if n := utf8.RuneCountInString(name); n < models.AppNameMinLen || n > models.AppNameMaxLen {
		return fmt.Errorf("%w: name must be %d-%d characters",
			ErrInvalidAppField, models.AppNameMinLen, models.AppNameMaxLen)
	}
	if utf8.RuneCountInString(description) > models.AppDescriptionMaxLen {
		return fmt.Errorf("%w: description must be at most %d characters",
			ErrInvalidAppField, models.AppDescriptionMaxLen)
	}
	if len(redirectURI) > models.AppRedirectURIMaxLen {
		return fmt.Errorf("%w: redirect uri must be at most %d bytes",
			ErrInvalidAppField, models.AppRedirectURIMaxLen)
	}
	if !util.IsAbsoluteHTTPURL(redirectURI) {
		return fmt.Errorf("%w: redirect uri must be an absolute http(s) url", ErrInvalidAppField)
	}
	return nil
}
