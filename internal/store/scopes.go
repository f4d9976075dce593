package store

import (
	"context"

	"github.com/go-authgate/appgrant/internal/models"
)

// Scope operations

func (s *Store) CreateScope(ctx context.Context, scope *models.Scope) error {
	return s.db.WithContext(ctx).Create(scope).Error
}

func (s *Store) GetScopeByID(ctx context.Context, id uint) (*models.Scope, error) {
	var scope models.Scope
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&scope).Error; err != nil {
		return nil, err
	}
	return &scope, nil
}

func (s *Store) GetScopeByName(ctx context.Context, name string) (*models.Scope, error) {
	var scope models.Scope
	if err := s.db.WithContext(ctx).Where("name = ?", name).First(&scope).Error; err != nil {
		return nil, err
	}
	return &scope, nil
}

// ListScopes returns every scope ordered by id.
func (s *Store) ListScopes(ctx context.Context) ([]models.Scope, error) {
	var scopes []models.Scope
	if err := s.db.WithContext(ctx).Order("id ASC").Find(&scopes).Error; err != nil {
		return nil, err
	}
	return scopes, nil
}

// ListAlwaysScopes returns the always-granted scopes ordered by id.
func (s *Store) ListAlwaysScopes(ctx context.Context) ([]models.Scope, error) {
	var scopes []models.Scope
	if err := s.db.WithContext(ctx).
		Where("always = ?", true).
		Order("id ASC").
		Find(&scopes).Error; err != nil {
		return nil, err
	}
	return scopes, nil
}

// GetScopesByIDs returns the scopes whose ids are in ids, keyed by id.
// Unknown ids are simply absent from the result.
func (s *Store) GetScopesByIDs(ctx context.Context, ids []uint) (map[uint]*models.Scope, error) {
	if len(ids) == 0 {
		return make(map[uint]*models.Scope), nil
	}

	var scopes []models.Scope
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&scopes).Error; err != nil {
		return nil, err
	}

	scopeMap := make(map[uint]*models.Scope, len(scopes))
	for i := range scopes {
		scopeMap[scopes[i].ID] = &scopes[i]
	}
	return scopeMap, nil
}
