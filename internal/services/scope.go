package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/go-authgate/appgrant/internal/models"
	"github.com/go-authgate/appgrant/internal/store"
)

// ScopeView is the client-facing form of a scope.
type ScopeView struct {
	ID          uint   `json:"sid"`
	Name        string `json:"name"`
	Description string `json:"desc"`
	Always      *bool  `json:"always"`
}

// NewScopeView renders scope.
func NewScopeView(scope models.Scope) ScopeView {
	return ScopeView{
		ID:          scope.ID,
		Name:        scope.Name,
		Description: scope.Description,
		Always:      scope.Always,
	}
}

// ScopeCatalog serves the permission units apps may request.
// The required scope set is loaded once by Init and read-only afterwards.
type ScopeCatalog struct {
	store *store.Store

	mu       sync.RWMutex
	required map[string]models.Scope
	ready    bool
}

func NewScopeCatalog(s *store.Store) *ScopeCatalog {
	return &ScopeCatalog{store: s}
}

// Init loads the required scopes by name. Missing ones are created when seed is
// true; otherwise Init fails with ErrRequiredScopeMissing. Later calls are no-ops.
func (c *ScopeCatalog) Init(ctx context.Context, required []string, seed bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ready {
		return nil
	}

	loaded := make(map[string]models.Scope, len(required))
	for _, name := range required {
		scope, err := c.store.GetScopeByName(ctx, name)
		switch {
		case err == nil:
			loaded[name] = *scope
			continue
		case !store.IsNotFound(err):
			return fmt.Errorf("failed to load scope %q: %w", name, err)
		case !seed:
			return fmt.Errorf("%w: %s", ErrRequiredScopeMissing, name)
		}

		scope, err = c.create(ctx, name, name, nil)
		if errors.Is(err, ErrDuplicateScope) {
			// Seeded concurrently by another instance
			scope, err = c.store.GetScopeByName(ctx, name)
		}
		if err != nil {
			return fmt.Errorf("failed to seed scope %q: %w", name, err)
		}
		log.Printf("Seeded required scope %q (id=%d)", name, scope.ID)
		loaded[name] = *scope
	}

	c.required = loaded
	c.ready = true
	log.Printf("Scope catalog initialized with %d required scopes", len(loaded))
	return nil
}

// Required returns a required scope loaded by Init.
func (c *ScopeCatalog) Required(name string) (models.Scope, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.ready {
		return models.Scope{}, ErrCatalogNotInitialized
	}
	scope, ok := c.required[name]
	if !ok {
		return models.Scope{}, fmt.Errorf("%w: %s", ErrScopeNotFound, name)
	}
	return scope, nil
}

// Resolve returns the grantable scopes found among ids, in id order. Unknown
// and never-grantable ids are omitted and storage failures yield an empty
// result; it never errors.
func (c *ScopeCatalog) Resolve(ctx context.Context, ids []uint) []models.Scope {
	found, err := c.store.GetScopesByIDs(ctx, ids)
	if err != nil {
		log.Printf("[Scope] Resolve failed for %d ids: %v", len(ids), err)
		return []models.Scope{}
	}

	scopes := make([]models.Scope, 0, len(found))
	seen := make(map[uint]bool, len(found))
	for _, id := range ids {
		scope, ok := found[id]
		if !ok || seen[id] || !scope.IsGrantable() {
			continue
		}
		seen[id] = true
		scopes = append(scopes, *scope)
	}
	return scopes
}

// Grant is the scope set assigned to an app that requested ids: the resolved
// request followed by every always-granted scope it did not name.
func (c *ScopeCatalog) Grant(ctx context.Context, ids []uint) []models.Scope {
	scopes := c.Resolve(ctx, ids)

	always, err := c.store.ListAlwaysScopes(ctx)
	if err != nil {
		log.Printf("[Scope] Failed to load always-granted scopes: %v", err)
		return scopes
	}

	seen := make(map[uint]bool, len(scopes))
	for _, scope := range scopes {
		seen[scope.ID] = true
	}
	for _, scope := range always {
		if !seen[scope.ID] {
			scopes = append(scopes, scope)
		}
	}
	return scopes
}

func (c *ScopeCatalog) ListAll(ctx context.Context) ([]models.Scope, error) {
	return c.store.ListScopes(ctx)
}

func (c *ScopeCatalog) Get(ctx context.Context, id uint) (*models.Scope, error) {
	scope, err := c.store.GetScopeByID(ctx, id)
	if err != nil {
		if store.IsNotFound(err) {
			return nil, ErrScopeNotFound
		}
		return nil, err
	}
	return scope, nil
}

func (c *ScopeCatalog) GetByName(ctx context.Context, name string) (*models.Scope, error) {
	scope, err := c.store.GetScopeByName(ctx, name)
	if err != nil {
		if store.IsNotFound(err) {
			return nil, ErrScopeNotFound
		}
		return nil, err
	}
	return scope, nil
}

// Create adds a scope to the catalog.
func (c *ScopeCatalog) Create(
	ctx context.Context,
	name, description string,
	always *bool,
) (*models.Scope, error) {
	return c.create(ctx, name, description, always)
}

func (c *ScopeCatalog) create(
	ctx context.Context,
	name, description string,
	always *bool,
) (*models.Scope, error) {
	name = strings.TrimSpace(name)
	description = strings.TrimSpace(description)
	if err := validateScope(name, description); err != nil {
		return nil, err
	}

	scope := &models.Scope{
		Name:        name,
		Description: description,
		Always:      always,
	}
	if err := c.store.CreateScope(ctx, scope); err != nil {
		if store.IsDuplicate(err) {
			return nil, ErrDuplicateScope
		}
		return nil, err
	}
	return scope, nil
}

func validateScope(name, description string) error {
	if name == "" || utf8.RuneCountInString(name) > models.ScopeNameMaxLen {
		return fmt.Errorf("%w: name must be 1-%d characters", ErrInvalidScope, models.ScopeNameMaxLen)
	}
	if utf8.RuneCountInString(description) > models.ScopeDescriptionMaxLen {
		return fmt.Errorf(
			"%w: description must be at most %d characters",
			ErrInvalidScope,
			models.ScopeDescriptionMaxLen,
		)
	}
	return nil
}
