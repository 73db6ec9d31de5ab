package database

import (
	"context"
	"errors"
	"fmt"

	"voice-campaign/internal/models"
	pm "voice-campaign/pkg/models"

	"gorm.io/gorm"
)

var ErrNotFound = errors.New("record not found")

// CallStore persists call results. It is the session result sink.
type CallStore struct {
	db *gorm.DB
}

func NewCallStore(db *gorm.DB) *CallStore {
	return &CallStore{db: db}
}

// Save writes the record with its turns and marks the matching lead as called.
func (s *CallStore) Save(ctx context.Context, result pm.CallResult) error {
	rec := models.NewCallRecord(result)
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&rec).Error; err != nil {
			return fmt.Errorf("save call %s: %w", result.SessionID, err)
		}
		updates := map[string]interface{}{
			"status":       models.LeadCalled,
			"last_outcome": string(result.Outcome),
		}
		if result.Interested {
			updates["interested"] = true
		}
		return tx.Model(&models.Lead{}).
			Where("phone = ?", result.Contact.Phone).
			Updates(updates).Error
	})
}

// CallFilter narrows List.
type CallFilter struct {
	Outcome string
	Phone   string
	Limit   int
	Offset  int
}

// List returns records newest first, without turns.
func (s *CallStore) List(ctx context.Context, f CallFilter) ([]models.CallRecord, int64, error) {
	q := s.db.WithContext(ctx).Model(&models.CallRecord{})
	if f.Outcome != "" {
		q = q.Where("outcome = ?", f.Outcome)
	}
	if f.Phone != "" {
		q = q.Where("phone = ?", f.Phone)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	limit := f.Limit
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	var records []models.CallRecord
	err := q.Order("id DESC").Limit(limit).Offset(f.Offset).Find(&records).Error
	return records, total, err
}

// Get returns one record with its turns in order.
func (s *CallStore) Get(ctx context.Context, id uint) (*models.CallRecord, error) {
	var rec models.CallRecord
	err := s.db.WithContext(ctx).
		Preload("Turns", func(db *gorm.DB) *gorm.DB { return db.Order("seq ASC") }).
		First(&rec, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// OutcomeCounts totals records per outcome.
func (s *CallStore) OutcomeCounts(ctx context.Context) (map[string]int64, error) {
	var rows []struct {
		Outcome string
		Count   int64
	}
	err := s.db.WithContext(ctx).Model(&models.CallRecord{}).
		Select("outcome, count(*) as count").
		Group("outcome").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, r := range rows {
		out[r.Outcome] = r.Count
	}
	return out, nil
}
