package models

import "time"

// AutoSaveEntry is the database row backing one auto-save record.
type AutoSaveEntry struct {
	Key       string    `gorm:"primaryKey;size:191" json:"key"`
	Data      []byte    `gorm:"type:bytea;not null" json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (AutoSaveEntry) TableName() string {
	return "autosave_entries"
}
