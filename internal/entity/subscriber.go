package entity

import "time"

const DefaultThreshold = LevelSpike

// Subscriber 订阅广播告警的聊天/频道, 取消订阅时只置 Active=false
type Subscriber struct {
	Id        int64      `gorm:"primaryKey;autoIncrement"`
	ChannelId string     `gorm:"uniqueIndex;size:128"`
	Threshold SpikeLevel `gorm:"size:16;default:spike"`
	Active    bool       `gorm:"index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// WatchlistEntry 无论全局阈值如何都需要通知的 collection
type WatchlistEntry struct {
	Id           int64  `gorm:"primaryKey;autoIncrement"`
	ChannelId    string `gorm:"uniqueIndex:watch_idx;size:128"`
	CollectionId string `gorm:"uniqueIndex:watch_idx;index;size:128"`
	CreatedAt    time.Time
}

func (WatchlistEntry) TableName() string {
	return "watchlist_entries"
}
