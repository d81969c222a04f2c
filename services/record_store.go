package services

import (
	"context"
	"fmt"

	"github.com/zhangshuo1991/ai-food/models"

	"gorm.io/gorm"
)

// RecordStore is the durable side of the ledger. The in-memory collection
// mirrors it: every mutation hits the store before it is acknowledged, so
// memory never holds a record the store does not.
type RecordStore interface {
	ListAll(ctx context.Context) ([]models.MealRecord, error)
	Insert(ctx context.Context, rec *models.MealRecord) error
	Delete(ctx context.Context, id string) error
}

type GormRecordStore struct {
	db *gorm.DB
}

func NewGormRecordStore(db *gorm.DB) *GormRecordStore {
	return &GormRecordStore{db: db}
}

// ListAll returns every persisted record in arbitrary physical order;
// the ledger establishes the canonical order itself.
func (s *GormRecordStore) ListAll(ctx context.Context) ([]models.MealRecord, error) {
	var recs []models.MealRecord
	if err := s.db.WithContext(ctx).Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return recs, nil
}

func (s *GormRecordStore) Insert(ctx context.Context, rec *models.MealRecord) error {
	if err := s.db.WithContext(ctx).Create(rec).Error; err != nil {
		return fmt.Errorf("%w: insert %s: %v", ErrPersistFailed, rec.ID, err)
	}
	return nil
}

// Delete removes a record row. Deleting an id the store does not have is
// not an error.
func (s *GormRecordStore) Delete(ctx context.Context, id string) error {
	if err := s.db.WithContext(ctx).Delete(&models.MealRecord{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("%w: delete %s: %v", ErrPersistFailed, id, err)
	}
	return nil
}

// unavailableStore stands in when the database cannot be opened at startup:
// the ledger starts empty and every later mutation surfaces the original
// failure instead of pretending to persist.
type unavailableStore struct {
	err error
}

func NewUnavailableStore(err error) RecordStore {
	return unavailableStore{err: err}
}

func (s unavailableStore) ListAll(context.Context) ([]models.MealRecord, error) {
	return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, s.err)
}

func (s unavailableStore) Insert(context.Context, *models.MealRecord) error {
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, s.err)
}

func (s unavailableStore) Delete(context.Context, string) error {
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, s.err)
}
