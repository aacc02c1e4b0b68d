package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"marketpulse/models"
)

// SnapshotStore persists point-in-time market snapshots together with
// their per-sector performance rows.
type SnapshotStore struct {
	db *gorm.DB
}

// NewSnapshotStore creates a snapshot store backed by db.
func NewSnapshotStore(db *gorm.DB) *SnapshotStore {
	return &SnapshotStore{db: db}
}

// Create inserts the snapshot header and all its sector rows in one
// transaction. If any insert fails nothing is written. On success the
// generated snapshot ID is returned and stamped onto snap.
func (s *SnapshotStore) Create(ctx context.Context, snap *models.MarketSnapshot) (uint, error) {
	sectors := snap.Sectors

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Insert the header alone so the sector rows are created
		// explicitly below, inside the same transaction.
		snap.Sectors = nil
		if err := tx.Create(snap).Error; err != nil {
			return fmt.Errorf("insert snapshot header: %w", err)
		}
		if len(sectors) == 0 {
			return nil
		}
		for i := range sectors {
			sectors[i].SnapshotID = snap.ID
		}
		if err := tx.Create(&sectors).Error; err != nil {
			return fmt.Errorf("insert %d sector rows: %w", len(sectors), err)
		}
		return nil
	})

	snap.Sectors = sectors
	if err != nil {
		snap.ID = 0
		return 0, fmt.Errorf("create snapshot: %w", err)
	}
	return snap.ID, nil
}

// GetLatest returns the most recent snapshot with its sector rows, or
// (nil, nil) when no snapshot has been taken yet.
func (s *SnapshotStore) GetLatest(ctx context.Context) (*models.MarketSnapshot, error) {
	var snap models.MarketSnapshot
	err := s.db.WithContext(ctx).
		Preload("Sectors").
		Order("timestamp DESC").
		First(&snap).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetch latest snapshot: %w", err)
	}
	return &snap, nil
}

// GetRecent returns up to count snapshot headers, newest first. Sector
// rows are not loaded.
func (s *SnapshotStore) GetRecent(ctx context.Context, count int) ([]models.MarketSnapshot, error) {
	if count < 1 {
		count = 10
	}
	var snaps []models.MarketSnapshot
	err := s.db.WithContext(ctx).
		Order("timestamp DESC").
		Limit(count).
		Find(&snaps).Error
	if err != nil {
		return nil, fmt.Errorf("fetch recent snapshots: %w", err)
	}
	return snaps, nil
}
