package store

import (
	"context"
	"time"

	"github.com/go-authgate/appgrant/internal/models"

	"gorm.io/gorm"
)

// App operations

// CreateApp inserts the app row and its scope join rows in one transaction.
// A clash on the primary key or the name surfaces as ErrDuplicatedKey.
func (s *Store) CreateApp(ctx context.Context, app *models.App) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Scopes already exist; only the join rows are written
		return tx.Omit("Scopes.*").Create(app).Error
	})
}

func (s *Store) GetAppByID(ctx context.Context, id string) (*models.App, error) {
	var app models.App
	if err := s.db.WithContext(ctx).
		Preload("Scopes", func(db *gorm.DB) *gorm.DB { return db.Order("scopes.id ASC") }).
		Where("id = ?", id).
		First(&app).Error; err != nil {
		return nil, err
	}
	return &app, nil
}

func (s *Store) GetAppByName(ctx context.Context, name string) (*models.App, error) {
	var app models.App
	if err := s.db.WithContext(ctx).
		Preload("Scopes", func(db *gorm.DB) *gorm.DB { return db.Order("scopes.id ASC") }).
		Where("name = ?", name).
		First(&app).Error; err != nil {
		return nil, err
	}
	return &app, nil
}

// AppNameTaken reports whether another app (not excludeID) already uses name.
func (s *Store) AppNameTaken(ctx context.Context, name, excludeID string) (bool, error) {
	var count int64
	q := s.db.WithContext(ctx).Model(&models.App{}).Where("name = ?", name)
	if excludeID != "" {
		q = q.Where("id <> ?", excludeID)
	}
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// ListAppsByOwner returns the apps owned by ownerID, oldest first.
func (s *Store) ListAppsByOwner(ctx context.Context, ownerID string) ([]models.App, error) {
	var apps []models.App
	if err := s.db.WithContext(ctx).
		Preload("Scopes", func(db *gorm.DB) *gorm.DB { return db.Order("scopes.id ASC") }).
		Where("owner_id = ?", ownerID).
		Order("created_at ASC").
		Find(&apps).Error; err != nil {
		return nil, err
	}
	return apps, nil
}

// UpdateApp writes the mutable fields and replaces the scope set in one transaction.
func (s *Store) UpdateApp(ctx context.Context, app *models.App, scopes []models.Scope) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.App{}).
			Where("id = ?", app.ID).
			Updates(map[string]any{
				"name":              app.Name,
				"description":       app.Description,
				"redirect_uri":      app.RedirectURI,
				"field_change_time": app.FieldChangeTime,
				"updated_at":        time.Now(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrRecordNotFound
		}

		assoc := tx.Model(&models.App{ID: app.ID}).Association("Scopes")
		if len(scopes) == 0 {
			if err := assoc.Clear(); err != nil {
				return err
			}
		} else if err := assoc.Replace(scopes); err != nil {
			return err
		}
		app.Scopes = scopes
		return nil
	})
}

// UpdateAppLogo sets (or clears, when logo is nil) the logo key.
func (s *Store) UpdateAppLogo(ctx context.Context, appID string, logo *string) error {
	res := s.db.WithContext(ctx).Model(&models.App{}).
		Where("id = ?", appID).
		Updates(map[string]any{"logo": logo, "updated_at": time.Now()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

// DeleteApp removes the app, its scope join rows and every relation row in one transaction.
func (s *Store) DeleteApp(ctx context.Context, appID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("app_id = ?", appID).Delete(&models.UserApp{}).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.App{ID: appID}).Association("Scopes").Clear(); err != nil {
			return err
		}
		res := tx.Delete(&models.App{}, "id = ?", appID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrRecordNotFound
		}
		return nil
	})
}
