package database

import (
	"context"
	"errors"

	"voice-campaign/internal/models"
	pm "voice-campaign/pkg/models"

	"gorm.io/gorm"
)

type LeadStore struct {
	db *gorm.DB
}

func NewLeadStore(db *gorm.DB) *LeadStore {
	return &LeadStore{db: db}
}

// Import upserts contacts by phone. Existing leads keep their call status.
// It returns how many new leads were created.
func (s *LeadStore) Import(ctx context.Context, contacts []pm.Contact) (int, error) {
	created := 0
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, c := range contacts {
			var existing models.Lead
			err := tx.Where("phone = ?", c.Phone).First(&existing).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				lead := models.LeadFromContact(c)
				if err := tx.Create(&lead).Error; err != nil {
					return err
				}
				created++
				continue
			}
			if err != nil {
				return err
			}
			fresh := models.LeadFromContact(c)
			err = tx.Model(&existing).Updates(map[string]interface{}{
				"external_id":        fresh.ExternalID,
				"full_name":          fresh.FullName,
				"address":            fresh.Address,
				"postal_code":        fresh.PostalCode,
				"email":              fresh.Email,
				"masked_iban_suffix": fresh.MaskedIBANSuffix,
				"masked_id_suffix":   fresh.MaskedIDSuffix,
			}).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
	return created, err
}

// List returns leads in insertion order, optionally filtered by status.
func (s *LeadStore) List(ctx context.Context, status string) ([]models.Lead, error) {
	q := s.db.WithContext(ctx).Order("id ASC")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var leads []models.Lead
	err := q.Find(&leads).Error
	return leads, err
}

// Pending returns the contacts still to be called, in insertion order.
func (s *LeadStore) Pending(ctx context.Context) ([]pm.Contact, error) {
	leads, err := s.List(ctx, models.LeadPending)
	if err != nil {
		return nil, err
	}
	out := make([]pm.Contact, 0, len(leads))
	for _, l := range leads {
		out = append(out, l.Contact())
	}
	return out, nil
}

// Reset puts every lead back to pending.
func (s *LeadStore) Reset(ctx context.Context) error {
	return s.db.WithContext(ctx).Model(&models.Lead{}).
		Where("1 = 1").
		Update("status", models.LeadPending).Error
}

func (s *LeadStore) Delete(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&models.Lead{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
