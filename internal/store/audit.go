package store

import (
	"context"
	"time"

	"github.com/go-authgate/appgrant/internal/models"

	"gorm.io/gorm"
)

// Audit log operations

func (s *Store) CreateAuditLog(ctx context.Context, entry *models.AuditLog) error {
	return s.db.WithContext(ctx).Create(entry).Error
}

// CreateAuditLogBatch inserts logs in chunks of 100.
func (s *Store) CreateAuditLogBatch(ctx context.Context, logs []*models.AuditLog) error {
	if len(logs) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).CreateInBatches(logs, 100).Error
}

// DeleteOldAuditLogs removes entries created before cutoff and returns how many went.
func (s *Store) DeleteOldAuditLogs(ctx context.Context, cutoff time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&models.AuditLog{})
	return res.RowsAffected, res.Error
}

// GetAuditLogsPaginated returns one page of audit logs, newest first.
func (s *Store) GetAuditLogsPaginated(
	ctx context.Context,
	params PaginationParams,
	filters AuditLogFilters,
) ([]models.AuditLog, PaginationResult, error) {
	query := applyAuditFilters(s.db.WithContext(ctx).Model(&models.AuditLog{}), filters).
		Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, PaginationResult{}, err
	}

	var logs []models.AuditLog
	offset := (params.Page - 1) * params.PageSize
	if err := query.Order("created_at DESC").
		Offset(offset).
		Limit(params.PageSize).
		Find(&logs).Error; err != nil {
		return nil, PaginationResult{}, err
	}

	return logs, CalculatePagination(total, params.Page, params.PageSize), nil
}

func applyAuditFilters(query *gorm.DB, f AuditLogFilters) *gorm.DB {
	if f.EventType != "" {
		query = query.Where("event_type = ?", f.EventType)
	}
	if f.ActorUserID != "" {
		query = query.Where("actor_user_id = ?", f.ActorUserID)
	}
	if f.ResourceType != "" {
		query = query.Where("resource_type = ?", f.ResourceType)
	}
	if f.ResourceID != "" {
		query = query.Where("resource_id = ?", f.ResourceID)
	}
	if f.Severity != "" {
		query = query.Where("severity = ?", f.Severity)
	}
	if f.Success != nil {
		query = query.Where("success = ?", *f.Success)
	}
	if !f.StartTime.IsZero() {
		query = query.Where("created_at >= ?", f.StartTime)
	}
	if !f.EndTime.IsZero() {
		query = query.Where("created_at <= ?", f.EndTime)
	}
	if f.Search != "" {
		like := "%" + f.Search + "%"
		query = query.Where("action LIKE ? OR resource_name LIKE ?", like, like)
	}
	return query
}
