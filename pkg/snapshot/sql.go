package snapshot

import (
	"context"
	"errors"

	"github.com/angelmondragon/packfinderz-storefront/pkg/db/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SQLBackend stores snapshots in the cart_snapshots table (Postgres or SQLite).
type SQLBackend struct {
	db *gorm.DB
}

func NewSQLBackend(db *gorm.DB) *SQLBackend {
	return &SQLBackend{db: db}
}

func (s *SQLBackend) Get(ctx context.Context, scope, key string) (string, error) {
	var row models.CartSnapshot
	err := s.db.WithContext(ctx).
		Where("scope = ? AND snapshot_key = ?", scope, key).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return row.Payload, nil
}

func (s *SQLBackend) Put(ctx context.Context, scope, key, payload string) error {
	row := models.CartSnapshot{Scope: scope, Key: key, Payload: payload}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "scope"}, {Name: "snapshot_key"}},
			DoUpdates: clause.AssignmentColumns([]string{"payload", "updated_at"}),
		}).
		Create(&row).Error
}

func (s *SQLBackend) Delete(ctx context.Context, scope, key string) error {
	return s.db.WithContext(ctx).
		Where("scope = ? AND snapshot_key = ?", scope, key).
		Delete(&models.CartSnapshot{}).Error
}

func (s *SQLBackend) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
