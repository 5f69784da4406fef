package notifications

import (
	"context"

	"gorm.io/gorm"

	"github.com/propnest/propnest-client/pkg/db"
	"github.com/propnest/propnest-client/pkg/db/models"
	pkgerrors "github.com/propnest/propnest-client/pkg/errors"
)

const cacheBatchSize = 100

// Cache persists the last known collection per user so a restart can show
// something before the first fetch lands. The in-memory Store stays authoritative.
type Cache struct {
	db *db.Client
}

// NewCache binds the cache to an open database.
func NewCache(client *db.Client) (*Cache, error) {
	if client == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "cache database required")
	}
	return &Cache{db: client}, nil
}

// Models lists the tables the cache needs migrated.
func Models() []any {
	return []any{&models.CachedNotification{}}
}

// SaveSnapshot replaces the cached collection for userID with items.
func (c *Cache) SaveSnapshot(ctx context.Context, userID int64, items []Record) error {
	if userID <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	rows := make([]models.CachedNotification, 0, len(items))
	for i, rec := range items {
		rows = append(rows, toRow(userID, i, rec))
	}
	err := c.db.WithTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).Delete(&models.CachedNotification{}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.CreateInBatches(rows, cacheBatchSize).Error
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save notification snapshot")
	}
	return nil
}

// LoadSnapshot returns the cached collection for userID in stored order.
func (c *Cache) LoadSnapshot(ctx context.Context, userID int64) ([]Record, error) {
	if userID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	var rows []models.CachedNotification
	if err := c.db.DB().WithContext(ctx).
		Where("user_id = ?", userID).
		Order("position ASC").
		Find(&rows).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load notification snapshot")
	}
	out := make([]Record, 0, len(rows))
	for _, row := range rows {
		out = append(out, fromRow(row))
	}
	return out, nil
}

// Forget drops the cached collection for userID.
func (c *Cache) Forget(ctx context.Context, userID int64) error {
	if err := c.db.DB().WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&models.CachedNotification{}).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "forget notification snapshot")
	}
	return nil
}

func toRow(userID int64, position int, rec Record) models.CachedNotification {
	row := models.CachedNotification{
		UserID:         userID,
		Position:       position,
		NotificationID: rec.ID,
		Type:           rec.Type,
		Title:          rec.Title,
		Message:        rec.Message,
		IsRead:         rec.IsRead,
		PropertyID:     rec.PropertyID,
		CreatedAt:      rec.CreatedAt.UTC(),
	}
	if !rec.ReceivedAt.IsZero() {
		received := rec.ReceivedAt.UTC()
		row.ReceivedAt = &received
	}
	return row
}

func fromRow(row models.CachedNotification) Record {
	rec := Record{
		ID:         row.NotificationID,
		Type:       row.Type,
		Title:      row.Title,
		Message:    row.Message,
		IsRead:     row.IsRead,
		PropertyID: row.PropertyID,
		CreatedAt:  row.CreatedAt.UTC(),
	}
	if row.ReceivedAt != nil {
		rec.ReceivedAt = row.ReceivedAt.UTC()
	}
	return rec
}
