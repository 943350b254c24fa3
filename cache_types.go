package crudboot

import "time"

// CacheEntry is a cached response body stored in cache_entries.
type CacheEntry struct {
	Key       string `gorm:"primaryKey;size:64" json:"key"`
	Data      []byte `json:"data"`
	ExpiresAt int64  `gorm:"index" json:"expires_at"`
	CreatedAt int64  `json:"created_at"`
}

func (CacheEntry) TableName() string {
	return "cache_entries"
}

// CacheTag links a tag to a cache entry so that all entries of a tag can be
// dropped at once. ID is "<tag>:<key>".
type CacheTag struct {
	ID        string `gorm:"primaryKey;size:255" json:"id"`
	Tag       string `gorm:"index;size:128" json:"tag"`
	CacheKey  string `gorm:"index;size:64" json:"cache_key"`
	ExpiresAt int64  `json:"expires_at"`
}

func (CacheTag) TableName() string {
	return "cache_tags"
}

func (e *CacheEntry) IsExpired(now time.Time) bool {
	return now.Unix() > e.ExpiresAt
}
