package order

import (
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/plastware/storefront/internal/models"
)

// nextOrderNumber produces PW-<yyyymmdd>-<seq>, unique by construction: the
// per-day counter row is bumped with an atomic upsert inside the placement
// transaction, so two concurrent checkouts can never observe the same
// sequence value.
func nextOrderNumber(tx *gorm.DB, now time.Time) (string, error) {
	day := now.UTC().Format("20060102")

	if err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "day"}},
		DoUpdates: clause.Assignments(map[string]any{"seq": gorm.Expr("seq + 1")}),
	}).Create(&models.OrderCounter{Day: day, Seq: 1}).Error; err != nil {
		return "", fmt.Errorf("order counter: %w", err)
	}

	var counter models.OrderCounter
	if err := tx.Where("day = ?", day).First(&counter).Error; err != nil {
		return "", fmt.Errorf("order counter read: %w", err)
	}

	return formatOrderNumber(day, counter.Seq), nil
}

// formatOrderNumber pads the sequence to three digits and widens naturally
// past 999 (PW-20260831-1000). Uniqueness comes from the counter, not the
// width.
func formatOrderNumber(day string, seq int64) string {
	return fmt.Sprintf("PW-%s-%03d", day, seq)
}
