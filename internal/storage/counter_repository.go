package storage

import (
	"context"
	"fmt"

	"tg-sanctions/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CounterRepository reserves ids from the counters table.
type CounterRepository struct {
	db *gorm.DB
}

func NewCounterRepository(db *gorm.DB) *CounterRepository {
	return &CounterRepository{db: db}
}

// ReserveNext increments the named counter and returns the new value.
// The first reservation of a counter returns 1.
func (r *CounterRepository) ReserveNext(ctx context.Context, name string) (int64, error) {
	var counter models.Counter
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		seed := models.Counter{Name: name, Next: 1}
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoUpdates: clause.Assignments(map[string]interface{}{"next": gorm.Expr("next + 1")}),
		}).Create(&seed).Error
		if err != nil {
			return err
		}
		return tx.Where("name = ?", name).Take(&counter).Error
	})
	if err != nil {
		return 0, fmt.Errorf("reserve %s id: %w", name, err)
	}
	return counter.Next, nil
}
