package storage

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"time"

	"tg-sanctions/internal/models"
	"tg-sanctions/internal/sanction"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// IDReserver hands out strictly increasing ids per named counter.
type IDReserver interface {
	ReserveNext(ctx context.Context, name string) (int64, error)
}

// ActionRepository persists sanctions and the member state derived from them.
type ActionRepository struct {
	db      *gorm.DB
	ids     IDReserver
	counter string
}

func NewActionRepository(db *gorm.DB, ids IDReserver, counter string) *ActionRepository {
	return &ActionRepository{db: db, ids: ids, counter: counter}
}

func (r *ActionRepository) reserve(ctx context.Context) (int64, error) {
	id, err := r.ids.ReserveNext(ctx, r.counter)
	if err != nil {
		return 0, fmt.Errorf("reserve action id: %w", err)
	}
	return id, nil
}

// Insert stores rec under a freshly reserved id without superseding anything.
func (r *ActionRepository) Insert(ctx context.Context, rec models.ActionRecord) (int64, error) {
	id, err := r.reserve(ctx)
	if err != nil {
		return 0, err
	}
	rec.ID = id
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return 0, fmt.Errorf("insert action %d: %w", id, err)
	}
	return id, nil
}

// Supersede resolves every unresolved record of the (target, kind) pair.
func (r *ActionRepository) Supersede(ctx context.Context, targetID int64, kind string) (int64, error) {
	return supersede(r.db.WithContext(ctx), targetID, kind)
}

func supersede(tx *gorm.DB, targetID int64, kind string) (int64, error) {
	result := tx.Model(&models.ActionRecord{}).
		Where("target_id = ? AND kind = ? AND resolved = ?", targetID, kind, false).
		Update("resolved", true)
	if result.Error != nil {
		return 0, fmt.Errorf("supersede %s for %d: %w", kind, targetID, result.Error)
	}
	return result.RowsAffected, nil
}

// Record reserves an id, then supersedes the pair and inserts rec in one
// transaction. Mute and unmute also update the member's muted flag.
// A reserved id is burned if the transaction fails.
func (r *ActionRepository) Record(ctx context.Context, rec models.ActionRecord) (int64, error) {
	id, err := r.reserve(ctx)
	if err != nil {
		return 0, err
	}
	rec.ID = id

	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := supersede(tx, rec.TargetID, rec.Kind); err != nil {
			return err
		}
		if err := tx.Create(&rec).Error; err != nil {
			return fmt.Errorf("insert action %d: %w", id, err)
		}
		switch rec.Kind {
		case sanction.Mute.String():
			return setMuted(tx, rec.TargetID, true)
		case sanction.Unmute.String():
			return setMuted(tx, rec.TargetID, false)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// FindExpired returns unresolved records whose expiry is at or before now,
// oldest expiry first.
func (r *ActionRepository) FindExpired(ctx context.Context, now time.Time) ([]models.ActionRecord, error) {
	var records []models.ActionRecord
	err := r.db.WithContext(ctx).
		Where("resolved = ? AND expires_at IS NOT NULL AND expires_at <= ?", false, now.UTC()).
		Order("expires_at ASC").Order("id ASC").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("find expired actions: %w", err)
	}
	return records, nil
}

// FindActive returns the newest unresolved record of the pair, or nil.
func (r *ActionRepository) FindActive(ctx context.Context, targetID int64, kind string) (*models.ActionRecord, error) {
	var rec models.ActionRecord
	err := r.db.WithContext(ctx).
		Where("target_id = ? AND kind = ? AND resolved = ?", targetID, kind, false).
		Order("created_at DESC").Order("id DESC").
		Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find active %s for %d: %w", kind, targetID, err)
	}
	return &rec, nil
}

// MarkResolved flags a time-bound record as reversed. Already resolved
// records are left alone.
func (r *ActionRepository) MarkResolved(ctx context.Context, id int64) error {
	err := r.db.WithContext(ctx).Model(&models.ActionRecord{}).
		Where("id = ? AND resolved = ?", id, false).
		Update("resolved", true).Error
	if err != nil {
		return fmt.Errorf("mark action %d resolved: %w", id, err)
	}
	return nil
}

// History streams a target's records, most recent first. Each range runs the
// query again. The cursor holds a connection until the loop ends, so callers
// must not issue other queries from inside the loop.
func (r *ActionRepository) History(ctx context.Context, targetID int64) iter.Seq2[models.ActionRecord, error] {
	return func(yield func(models.ActionRecord, error) bool) {
		rows, err := r.db.WithContext(ctx).Model(&models.ActionRecord{}).
			Where("target_id = ?", targetID).
			Order("created_at DESC").Order("id DESC").
			Rows()
		if err != nil {
			yield(models.ActionRecord{}, fmt.Errorf("query history for %d: %w", targetID, err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			var rec models.ActionRecord
			if err := r.db.ScanRows(rows, &rec); err != nil {
				yield(models.ActionRecord{}, fmt.Errorf("scan history row: %w", err))
				return
			}
			if !yield(rec, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(models.ActionRecord{}, fmt.Errorf("iterate history for %d: %w", targetID, err))
		}
	}
}

func (r *ActionRepository) CountHistory(ctx context.Context, targetID int64) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.ActionRecord{}).
		Where("target_id = ?", targetID).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("count history for %d: %w", targetID, err)
	}
	return n, nil
}

// DeleteMany removes the given records. Unknown ids are skipped and not counted.
func (r *ActionRepository) DeleteMany(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).Where("id IN ?", ids).Delete(&models.ActionRecord{})
	if result.Error != nil {
		return 0, fmt.Errorf("delete actions: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func (r *ActionRepository) SetMuted(ctx context.Context, userID int64, muted bool) error {
	return setMuted(r.db.WithContext(ctx), userID, muted)
}

func setMuted(tx *gorm.DB, userID int64, muted bool) error {
	state := models.MemberState{UserID: userID, Muted: muted, UpdatedAt: time.Now().UTC()}
	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"muted", "updated_at"}),
	}).Create(&state).Error
	if err != nil {
		return fmt.Errorf("set muted=%v for %d: %w", muted, userID, err)
	}
	return nil
}

// IsMuted reports the member's stored mute flag. Unknown members are not muted.
func (r *ActionRepository) IsMuted(ctx context.Context, userID int64) (bool, error) {
	var state models.MemberState
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Take(&state).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load member state %d: %w", userID, err)
	}
	return state.Muted, nil
}
