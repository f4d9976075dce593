package store

import (
	"context"
	"time"

	"github.com/go-authgate/appgrant/internal/models"

	"gorm.io/gorm"
)

// UserApp operations

// CreateUserApp inserts a relation row. A second row for the same user and app,
// or a handle clash, surfaces as ErrDuplicatedKey.
func (s *Store) CreateUserApp(ctx context.Context, ua *models.UserApp) error {
	return s.db.WithContext(ctx).Omit("User", "App").Create(ua).Error
}

// GetUserApp looks up the relation row for a user and app pair.
func (s *Store) GetUserApp(ctx context.Context, userID, appID string) (*models.UserApp, error) {
	var ua models.UserApp
	if err := s.db.WithContext(ctx).
		Where("user_id = ? AND app_id = ?", userID, appID).
		First(&ua).Error; err != nil {
		return nil, err
	}
	return &ua, nil
}

// GetUserAppByHandle looks up a relation by its external handle, with user and app loaded.
func (s *Store) GetUserAppByHandle(ctx context.Context, handle string) (*models.UserApp, error) {
	var ua models.UserApp
	if err := s.db.WithContext(ctx).
		Preload("User").
		Preload("App").
		Where("user_app_id = ?", handle).
		First(&ua).Error; err != nil {
		return nil, err
	}
	return &ua, nil
}

// BindUserApp marks the relation bound, records codeID as its only live auth
// code and advances LastAuthCodeTime to at, never moving it backwards. The row
// is re-read so the caller sees the stored values.
func (s *Store) BindUserApp(
	ctx context.Context,
	id uint,
	at time.Time,
	codeID string,
) (*models.UserApp, error) {
	var ua models.UserApp
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.UserApp{}).
			Where("id = ?", id).
			Updates(map[string]any{
				"bind":              true,
				"last_auth_code_id": codeID,
				"updated_at":        time.Now(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrRecordNotFound
		}

		if err := tx.Model(&models.UserApp{}).
			Where("id = ? AND last_auth_code_time < ?", id, at).
			Update("last_auth_code_time", at).Error; err != nil {
			return err
		}

		return tx.Where("id = ?", id).First(&ua).Error
	})
	if err != nil {
		return nil, err
	}
	return &ua, nil
}

// ConsumeAuthCode clears the relation's outstanding auth code if it is still
// codeID. It reports false when the code was already used or superseded.
func (s *Store) ConsumeAuthCode(ctx context.Context, id uint, codeID string) (bool, error) {
	if codeID == "" {
		return false, nil
	}
	res := s.db.WithContext(ctx).Model(&models.UserApp{}).
		Where("id = ? AND last_auth_code_id = ?", id, codeID).
		Update("last_auth_code_id", "")
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// SetUserAppBind updates only the bind flag; the row itself is retained.
func (s *Store) SetUserAppBind(ctx context.Context, id uint, bind bool) error {
	res := s.db.WithContext(ctx).Model(&models.UserApp{}).
		Where("id = ?", id).
		Updates(map[string]any{"bind": bind, "updated_at": time.Now()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

// UpdateUserAppScore writes a new score only if ScoreUpdateTime still equals
// expected. It reports false when another writer got there first.
func (s *Store) UpdateUserAppScore(
	ctx context.Context,
	id uint,
	expected time.Time,
	score float64,
	at time.Time,
) (bool, error) {
	res := s.db.WithContext(ctx).Model(&models.UserApp{}).
		Where("id = ? AND score_update_time = ?", id, expected).
		Updates(map[string]any{
			"frequent_score":    score,
			"score_update_time": at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// ListUserAppsAfter returns up to limit relation rows with an id greater than afterID,
// in id order. Used to walk the whole table in batches.
func (s *Store) ListUserAppsAfter(
	ctx context.Context,
	afterID uint,
	limit int,
) ([]models.UserApp, error) {
	var uas []models.UserApp
	if err := s.db.WithContext(ctx).
		Where("id > ?", afterID).
		Order("id ASC").
		Limit(limit).
		Find(&uas).Error; err != nil {
		return nil, err
	}
	return uas, nil
}

// ListBoundUserApps returns the user's bound relations with their apps, in creation order.
func (s *Store) ListBoundUserApps(ctx context.Context, userID string) ([]models.UserApp, error) {
	var uas []models.UserApp
	if err := s.db.WithContext(ctx).
		Preload("App").
		Preload("App.Scopes", func(db *gorm.DB) *gorm.DB { return db.Order("scopes.id ASC") }).
		Where("user_id = ? AND bind = ?", userID, true).
		Order("id ASC").
		Find(&uas).Error; err != nil {
		return nil, err
	}
	return uas, nil
}

// CountUserApps returns the number of relation rows for an app.
func (s *Store) CountUserApps(ctx context.Context, appID string) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.UserApp{}).
		Where("app_id = ?", appID).
		Count(&count).Error
	return count, err
}
