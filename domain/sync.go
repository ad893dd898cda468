package domain

import (
	"time"

	"gorm.io/datatypes"
)

type PrizeStockChange struct {
	PrizeID     uint64 `json:"prize_id"`
	PrizeName   string `json:"prize_name"`
	StockBefore int    `json:"stock_before"`
	StockAfter  int    `json:"stock_after"`
}

// SyncResult describes one leveling pass of an event's counters.
type SyncResult struct {
	EventID      uint64 `json:"event_id"`
	Success      bool   `json:"success"`
	ErrorMessage string `json:"error_message,omitempty"`

	EventRemainSynced bool `json:"event_remain_synced"`
	EventRemainBefore int  `json:"event_remain_before"`
	EventRemainAfter  int  `json:"event_remain_after"`

	PrizeStockChanges []PrizeStockChange `json:"prize_stock_changes"`
}

// Changed reports whether the pass wrote anything to the durable store.
func (r SyncResult) Changed() bool {
	return r.EventRemainSynced || len(r.PrizeStockChanges) > 0
}

const (
	SyncTriggerManual    = "manual"
	SyncTriggerEmergency = "emergency"
	SyncTriggerScheduled = "scheduled"
)

// SyncAudit is written whenever a leveling pass changed durable values.
type SyncAudit struct {
	ID                uint64         `gorm:"primaryKey;autoIncrement" json:"id"`
	LotteryEventID    uint64         `gorm:"column:lottery_event_id;index" json:"lottery_event_id"`
	Trigger           string         `gorm:"column:trigger;type:text" json:"trigger"`
	EventRemainBefore int            `gorm:"column:event_remain_before" json:"event_remain_before"`
	EventRemainAfter  int            `gorm:"column:event_remain_after" json:"event_remain_after"`
	Changes           datatypes.JSON `gorm:"column:changes;type:jsonb" json:"changes"`
	CreatedTime       time.Time      `gorm:"column:created_time;autoCreateTime" json:"created_time"`
}

func (SyncAudit) TableName() string {
	return "lottery_sync_audit"
}
