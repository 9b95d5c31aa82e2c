package models

import "time"

// SessionTokenKey is the single key under which the bearer token is persisted
const SessionTokenKey = "token"

// SessionEntry is a persisted key/value slot of client session state.
type SessionEntry struct {
	Key       string    `gorm:"primaryKey;size:64" json:"key"`
	Value     string    `gorm:"type:text;not null" json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (SessionEntry) TableName() string {
	return "session_entries"
}
