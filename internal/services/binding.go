package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/go-authgate/appgrant/internal/config"
	"github.com/go-authgate/appgrant/internal/core"
	"github.com/go-authgate/appgrant/internal/models"
	"github.com/go-authgate/appgrant/internal/store"
	"github.com/go-authgate/appgrant/internal/token"
	"github.com/go-authgate/appgrant/internal/util"
)

// Bind and secret-auth outcomes reported to metrics
const (
	resultSuccess     = "success"
	resultError       = "error"
	resultBadSecret   = "bad_secret"
	resultUnbound     = "unbound"
	resultRateLimited = "rate_limited"
)

// SecretLimiter caps secret attempts per relation handle.
type SecretLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// BindResult is the outcome of a successful bind.
type BindResult struct {
	Code    string
	Claims  *token.Claims
	UserApp *models.UserApp
}

// UserAppView is the client-facing form of a relation.
type UserAppView struct {
	UserAppID string         `json:"user_app_id"`
	Bind      bool           `json:"bind"`
	User      map[string]any `json:"user,omitempty"`
	App       AppView        `json:"app"`
}

// BindingService drives the per (user, app) relation: bind, unbind, and the
// server-side exchange of a relation handle for the user identity.
type BindingService struct {
	store            *store.Store
	apps             *AppService
	frequency        *FrequencyService
	codec            *token.Codec
	limiter          SecretLimiter
	authCodeTTL      time.Duration
	loginTokenTTL    time.Duration
	handleMaxAttempt int
	auditService     *AuditService
	metrics          core.Recorder
	now              func() time.Time
}

func NewBindingService(
	s *store.Store,
	cfg *config.Config,
	apps *AppService,
	frequency *FrequencyService,
	codec *token.Codec,
	limiter SecretLimiter,
	auditService *AuditService,
	m core.Recorder,
) *BindingService {
	attempts := cfg.AppIDMaxAttempts
	if attempts <= 0 {
		attempts = 32
	}
	return &BindingService{
		store:            s,
		apps:             apps,
		frequency:        frequency,
		codec:            codec,
		limiter:          limiter,
		authCodeTTL:      cfg.AuthCodeExpiration,
		loginTokenTTL:    cfg.LoginTokenExpiration,
		handleMaxAttempt: attempts,
		auditService:     auditService,
		metrics:          m,
		now:              now,
	}
}

// DoBind binds the user to the app, creating the relation on first use, and
// issues an AUTH_CODE carrying the relation handle.
func (s *BindingService) DoBind(ctx context.Context, userID, appID string) (*BindResult, error) {
	start := time.Now()
	result, err := s.doBind(ctx, userID, appID)
	if err != nil {
		s.metrics.RecordBind(resultError, time.Since(start))
		return nil, err
	}
	s.metrics.RecordBind(resultSuccess, time.Since(start))
	return result, nil
}

func (s *BindingService) doBind(ctx context.Context, userID, appID string) (*BindResult, error) {
	app, err := s.apps.Get(ctx, appID)
	if err != nil {
		return nil, err
	}
	if _, err := s.getUser(ctx, userID); err != nil {
		return nil, err
	}

	boundAt := s.now()
	ua, err := s.ensureUserApp(ctx, userID, app.ID, boundAt)
	if err != nil {
		return nil, err
	}

	issued, err := s.codec.Issue(token.AuthCode{UserAppID: ua.UserAppID}, s.authCodeTTL)
	if err != nil {
		return nil, err
	}

	// Recording the jti supersedes any earlier code for this relation
	ua, err = s.store.BindUserApp(ctx, ua.ID, boundAt, issued.Claims.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBindUserApp, err)
	}
	s.metrics.RecordTokenIssued(string(token.KindAuthCode))

	s.auditService.Log(ctx, AuditLogEntry{
		EventType:    models.EventUserAppBound,
		Severity:     models.SeverityInfo,
		ActorUserID:  userID,
		ResourceType: models.ResourceUserApp,
		ResourceID:   ua.UserAppID,
		ResourceName: app.Name,
		Action:       "User bound app and auth code issued",
		Details: models.AuditDetails{
			"app_id":     app.ID,
			"token_id":   issued.Claims.ID,
			"expires_at": issued.Claims.ExpiresAt,
		},
		Success: true,
	})

	return &BindResult{Code: issued.Token, Claims: issued.Claims, UserApp: ua}, nil
}

// ensureUserApp returns the relation for the pair, inserting it if absent.
// The unique index on the pair and on the handle are the authority: a clash
// means either a concurrent bind won the insert or the handle was taken.
func (s *BindingService) ensureUserApp(
	ctx context.Context,
	userID, appID string,
	at time.Time,
) (*models.UserApp, error) {
	ua, err := s.store.GetUserApp(ctx, userID, appID)
	if err == nil {
		return ua, nil
	}
	if !store.IsNotFound(err) {
		return nil, fmt.Errorf("%w: %v", ErrBindUserApp, err)
	}

	for attempt := 1; attempt <= s.handleMaxAttempt; attempt++ {
		handle, err := util.CryptoRandomString(models.UserAppIDLen)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBindUserApp, err)
		}

		ua := &models.UserApp{
			UserID:           userID,
			AppID:            appID,
			UserAppID:        handle,
			LastAuthCodeTime: at,
			ScoreUpdateTime:  at,
		}
		err = s.store.CreateUserApp(ctx, ua)
		if err == nil {
			return ua, nil
		}
		if !store.IsDuplicate(err) {
			return nil, fmt.Errorf("%w: %v", ErrBindUserApp, err)
		}

		existing, gerr := s.store.GetUserApp(ctx, userID, appID)
		if gerr == nil {
			return existing, nil
		}
		if !store.IsNotFound(gerr) {
			return nil, fmt.Errorf("%w: %v", ErrBindUserApp, gerr)
		}

		s.metrics.RecordIDCollision("user_app")
		log.Printf("[Binding] Generated relation handle collided (attempt %d/%d), drawing again",
			attempt, s.handleMaxAttempt)
	}
	return nil, ErrIDSpaceExhausted
}

// Unbind revokes the user's grant. The relation row and its handle are kept.
func (s *BindingService) Unbind(ctx context.Context, userID, appID string) error {
	ua, err := s.store.GetUserApp(ctx, userID, appID)
	if err != nil {
		if store.IsNotFound(err) {
			return ErrUserAppNotFound
		}
		return fmt.Errorf("%w: %v", ErrBindUserApp, err)
	}

	if err := s.store.SetUserAppBind(ctx, ua.ID, false); err != nil {
		if store.IsNotFound(err) {
			return ErrUserAppNotFound
		}
		return fmt.Errorf("%w: %v", ErrBindUserApp, err)
	}

	s.auditService.Log(ctx, AuditLogEntry{
		EventType:    models.EventUserAppUnbound,
		Severity:     models.SeverityInfo,
		ActorUserID:  userID,
		ResourceType: models.ResourceUserApp,
		ResourceID:   ua.UserAppID,
		Action:       "User unbound app",
		Details:      models.AuditDetails{"app_id": appID},
		Success:      true,
	})
	return nil
}

// CheckBind reports whether the pair is currently bound. A missing relation is
// reported as not bound.
func (s *BindingService) CheckBind(ctx context.Context, userID, appID string) bool {
	ua, err := s.store.GetUserApp(ctx, userID, appID)
	if err != nil {
		if !store.IsNotFound(err) {
			log.Printf("[Binding] CheckBind failed for app=%s: %v", appID, err)
		}
		return false
	}
	return ua.Bind
}

// LookupByHandle resolves a relation from its external handle.
func (s *BindingService) LookupByHandle(
	ctx context.Context,
	handle string,
	requireBound bool,
) (*models.UserApp, error) {
	ua, err := s.store.GetUserAppByHandle(ctx, handle)
	if err != nil {
		if store.IsNotFound(err) {
			return nil, ErrUserAppNotFound
		}
		return nil, fmt.Errorf("failed to load relation: %w", err)
	}
	if requireBound && !ua.Bind {
		return nil, ErrAppUnbound
	}
	return ua, nil
}

// AuthorizeBySecret exchanges a relation handle and the app secret for the
// user identity. Unknown handles and wrong secrets fail identically.
func (s *BindingService) AuthorizeBySecret(
	ctx context.Context,
	handle, secret string,
) (*models.User, error) {
	ua, err := s.authorize(ctx, handle, secret)
	if err != nil {
		return nil, err
	}
	s.recordUse(ctx, ua)
	return ua.User, nil
}

func (s *BindingService) authorize(
	ctx context.Context,
	handle, secret string,
) (*models.UserApp, error) {
	allowed, err := s.limiter.Allow(ctx, "secret:"+handle)
	if err != nil {
		// Limiter outage does not block authorization
		log.Printf("[Binding] Secret rate limiter unavailable: %v", err)
		allowed = true
	}
	if !allowed {
		s.metrics.RecordSecretAuth(resultRateLimited)
		s.auditService.Log(ctx, AuditLogEntry{
			EventType:    models.EventSecretRateLimited,
			Severity:     models.SeverityWarning,
			ResourceType: models.ResourceUserApp,
			ResourceID:   handle,
			Action:       "Secret attempts rate limited",
			Success:      false,
		})
		return nil, ErrTooManyAttempts
	}

	ua, err := s.store.GetUserAppByHandle(ctx, handle)
	if err != nil && !store.IsNotFound(err) {
		s.metrics.RecordSecretAuth(resultError)
		return nil, fmt.Errorf("failed to load relation: %w", err)
	}

	var app *models.App
	if ua != nil {
		if ua.App == nil || ua.User == nil {
			log.Printf("[Binding] Relation %d loaded without app or user", ua.ID)
			s.metrics.RecordSecretAuth(resultError)
			return nil, ErrUnexpectedShape
		}
		app = ua.App
	}

	// An unknown handle still pays for a comparison
	if app == nil {
		s.apps.Authenticate(&models.App{Secret: unknownHandleSecret}, secret)
	}
	if app == nil || !s.apps.Authenticate(app, secret) {
		s.metrics.RecordSecretAuth(resultBadSecret)
		s.auditService.Log(ctx, AuditLogEntry{
			EventType:    models.EventSecretAuthFailure,
			Severity:     models.SeverityWarning,
			ResourceType: models.ResourceUserApp,
			ResourceID:   handle,
			Action:       "App secret rejected",
			Success:      false,
		})
		return nil, ErrBadSecret
	}

	if !ua.Bind {
		s.metrics.RecordSecretAuth(resultUnbound)
		return nil, ErrAppUnbound
	}

	s.metrics.RecordSecretAuth(resultSuccess)
	return ua, nil
}

// recordUse counts a successful authorization toward the relation's score.
func (s *BindingService) recordUse(ctx context.Context, ua *models.UserApp) {
	if s.frequency == nil {
		return
	}
	if err := s.frequency.Bump(ctx, ua); err != nil {
		log.Printf("[Binding] Failed to bump frequency for relation %d: %v", ua.ID, err)
	}
}

// unknownHandleSecret is compared against for handles that do not resolve
const unknownHandleSecret = "00000000000000000000000000000000"

// ExchangeAuthCode verifies an AUTH_CODE and then authorizes its handle with
// secret. Each code is accepted once, and only while it is the relation's
// latest issuance.
func (s *BindingService) ExchangeAuthCode(
	ctx context.Context,
	code, secret string,
) (*models.User, error) {
	payload, claims, err := s.codec.VerifyAuthCode(code)
	if err != nil {
		s.metrics.RecordTokenVerified(string(token.KindAuthCode), verifyResult(err))
		return nil, err
	}
	s.metrics.RecordTokenVerified(string(token.KindAuthCode), resultSuccess)

	ua, err := s.authorize(ctx, payload.UserAppID, secret)
	if err != nil {
		return nil, err
	}

	consumed, err := s.store.ConsumeAuthCode(ctx, ua.ID, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to consume auth code: %w", err)
	}
	if !consumed {
		s.auditService.Log(ctx, AuditLogEntry{
			EventType:    models.EventAuthCodeRejected,
			Severity:     models.SeverityWarning,
			ActorUserID:  ua.UserID,
			ResourceType: models.ResourceUserApp,
			ResourceID:   ua.UserAppID,
			Action:       "Used or superseded auth code rejected",
			Details:      models.AuditDetails{"token_id": claims.ID},
			Success:      false,
		})
		return nil, ErrStaleAuthCode
	}
	s.recordUse(ctx, ua)

	s.auditService.Log(ctx, AuditLogEntry{
		EventType:    models.EventAuthCodeExchanged,
		Severity:     models.SeverityInfo,
		ActorUserID:  ua.UserID,
		ResourceType: models.ResourceUserApp,
		ResourceID:   ua.UserAppID,
		ResourceName: ua.App.Name,
		Action:       "Auth code exchanged for user identity",
		Details:      models.AuditDetails{"token_id": claims.ID},
		Success:      true,
	})
	return ua.User, nil
}

func verifyResult(err error) string {
	switch {
	case errors.Is(err, token.ErrExpiredToken):
		return "expired"
	case errors.Is(err, token.ErrKindMismatch):
		return "kind_mismatch"
	default:
		return "invalid"
	}
}

// ListBoundApps returns the user's bound relations with their apps.
func (s *BindingService) ListBoundApps(ctx context.Context, userID string) ([]models.UserApp, error) {
	return s.store.ListBoundUserApps(ctx, userID)
}

// RenderUserApp builds the client-facing view of a relation as seen by its user.
func (s *BindingService) RenderUserApp(ua *models.UserApp) UserAppView {
	view := UserAppView{
		UserAppID: ua.UserAppID,
		Bind:      ua.Bind,
	}
	if ua.User != nil {
		view.User = ua.User.Render()
	}
	if ua.App != nil {
		view.App = s.apps.Render(ua.App, RelationUser)
	}
	return view
}

// IssueLoginToken signs a LOGIN_TOKEN for an existing user.
func (s *BindingService) IssueLoginToken(ctx context.Context, userID string) (*token.Issued, error) {
	if _, err := s.getUser(ctx, userID); err != nil {
		return nil, err
	}
	issued, err := s.codec.Issue(token.LoginToken{UserID: userID}, s.loginTokenTTL)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordTokenIssued(string(token.KindLoginToken))
	return issued, nil
}

// VerifyLoginToken returns the user a LOGIN_TOKEN was issued to.
func (s *BindingService) VerifyLoginToken(ctx context.Context, tokenString string) (*models.User, error) {
	payload, _, err := s.codec.VerifyLoginToken(tokenString)
	if err != nil {
		s.metrics.RecordTokenVerified(string(token.KindLoginToken), verifyResult(err))
		return nil, err
	}
	s.metrics.RecordTokenVerified(string(token.KindLoginToken), resultSuccess)
	return s.getUser(ctx, payload.UserID)
}

func (s *BindingService) getUser(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		if store.IsNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return user, nil
}
