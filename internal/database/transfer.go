package database

import (
	"fmt"

	"voice-campaign/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const copyBatch = 200

// TableCount is the number of rows copied for one table.
type TableCount struct {
	Table string
	Rows  int
}

// CopyAll copies every table from src into dst, parents before children.
// Primary keys are preserved so turns keep pointing at their call.
func CopyAll(src, dst *gorm.DB) ([]TableCount, error) {
	steps := []struct {
		table string
		copy  func(src, dst *gorm.DB) (int, error)
	}{
		{"leads", copyTable[models.Lead]},
		{"call_records", copyTable[models.CallRecord]},
		{"call_turns", copyTable[models.CallTurn]},
		{"system_settings", copyTable[models.SystemSetting]},
	}

	var out []TableCount
	for _, s := range steps {
		n, err := s.copy(src, dst)
		if err != nil {
			return out, fmt.Errorf("copy %s: %w", s.table, err)
		}
		out = append(out, TableCount{Table: s.table, Rows: n})
	}
	return out, nil
}

func copyTable[T any](src, dst *gorm.DB) (int, error) {
	var rows []T
	if err := src.Find(&rows).Error; err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}
	err := dst.Transaction(func(tx *gorm.DB) error {
		return tx.Omit(clause.Associations).CreateInBatches(&rows, copyBatch).Error
	})
	return len(rows), err
}

// SequenceTables are the tables with a serial id column.
func SequenceTables() []string {
	return []string{"leads", "call_records", "call_turns", "system_settings"}
}

// SyncSequences moves every postgres id sequence past the current max id.
// Needed after CopyAll, which inserts explicit ids.
func SyncSequences(db *gorm.DB) map[string]error {
	errs := make(map[string]error)
	for _, table := range SequenceTables() {
		query := "SELECT setval(pg_get_serial_sequence('" + table + "', 'id'), coalesce(max(id), 0) + 1, false) FROM " + table
		errs[table] = db.Exec(query).Error
	}
	return errs
}
