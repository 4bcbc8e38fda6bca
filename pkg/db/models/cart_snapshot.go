package models

import "time"

// CartSnapshot stores the serialized line list of one device cart under a fixed key.
type CartSnapshot struct {
	Scope     string    `gorm:"column:scope;primaryKey;size:128"`
	Key       string    `gorm:"column:snapshot_key;primaryKey;size:64"`
	Payload   string    `gorm:"column:payload;type:text;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName implements gorm's tabler.
func (CartSnapshot) TableName() string {
	return "cart_snapshots"
}
