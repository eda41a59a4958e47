// internal/models/campaign.go
package models

import (
	"time"
)

// Campaign attaches an ad to a video. Views and TotalWatchTime are cached
// reductions over the ad_views fact log: only TrackView moves them, always
// by SQL arithmetic, and they can be rebuilt from the log at any time.
// Multiple campaign rows may exist per video; the most recently created one
// is the live campaign on the read side.
type Campaign struct {
	BaseModel
	VideoID         uint   `json:"video_id" gorm:"not null;index"`
	AdCID           string `json:"ad_cid" gorm:"column:ad_cid;size:255;not null"`
	AdTitle         string `json:"ad_title" gorm:"size:255"`
	Budget          int64  `json:"budget" gorm:"not null"`
	RewardPerSecond int64  `json:"reward_per_second" gorm:"not null"`
	Advertiser      string `json:"advertiser" gorm:"size:80;index"`
	TxHash          string `json:"tx_hash" gorm:"size:80"`
	Views           int64  `json:"views" gorm:"default:0"`
	TotalWatchTime  int64  `json:"total_watch_time" gorm:"default:0"`

	AdURL string `json:"ad_url,omitempty" gorm:"-"`
}

// AdView is an append-only fact row: one reward-earning watch event.
// VideoID is a denormalized copy of the campaign's video id and must always
// match it; RewardEarned is derived (duration * rate at record time), never
// settable by callers.
type AdView struct {
	ID            uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	CampaignID    uint      `json:"campaign_id" gorm:"not null;index"`
	VideoID       uint      `json:"video_id" gorm:"not null;index"`
	Viewer        string    `json:"viewer" gorm:"size:80"`
	WatchDuration int64     `json:"watch_duration" gorm:"not null"`
	RewardEarned  int64     `json:"reward_earned" gorm:"not null"`
	ViewedAt      time.Time `json:"viewed_at" gorm:"autoCreateTime"`
}
