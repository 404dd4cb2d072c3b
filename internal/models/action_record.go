package models

import "time"

// ActionRecord is the persisted form of a sanction.
// ExpiresAt and Resolved are either both set or both nil.
type ActionRecord struct {
	ID        int64      `gorm:"primaryKey;autoIncrement:false"`
	TargetID  int64      `gorm:"index:idx_actions_target_kind;not null"`
	ActorID   int64      `gorm:"not null"`
	Kind      string     `gorm:"index:idx_actions_target_kind;size:16;not null"`
	Reason    *string    `gorm:"type:text"`
	CreatedAt time.Time  `gorm:"index;not null"`
	ExpiresAt *time.Time `gorm:"index"`
	Resolved  *bool      `gorm:"index:idx_actions_target_kind"`
}

func (ActionRecord) TableName() string {
	return "actions"
}

// Counter backs atomic id reservation.
type Counter struct {
	Name string `gorm:"primaryKey;size:64"`
	Next int64  `gorm:"not null;default:0"`
}

func (Counter) TableName() string {
	return "counters"
}

// MemberState tracks whether a member currently carries the mute,
// regardless of whether that mute has an expiry.
type MemberState struct {
	UserID    int64 `gorm:"primaryKey;autoIncrement:false"`
	Muted     bool  `gorm:"not null"`
	UpdatedAt time.Time
}

func (MemberState) TableName() string {
	return "member_states"
}

// AllTables lists every model managed by migrations, in creation order.
func AllTables() []interface{} {
	return []interface{}{&ActionRecord{}, &Counter{}, &MemberState{}}
}
