package domain

import "time"

type PrizeInfo struct {
	PrizeID   uint64 `json:"prize_id"`
	PrizeName string `json:"prize_name"`
	Rate      Rate   `json:"rate"`
	Stock     int64  `json:"stock"`
}

type LotteryStatus struct {
	EventID      uint64      `json:"event_id"`
	EventName    string      `json:"event_name"`
	IsActive     bool        `json:"is_active"`
	RemainAmount int64       `json:"remain_amount"`
	TotalRate    Rate        `json:"total_rate"`
	Prizes       []PrizeInfo `json:"prizes"`
}

type LotteryEventSummary struct {
	ID            uint64    `json:"id"`
	Name          string    `json:"name"`
	RemainAmount  int64     `json:"remain_amount"`
	IsActive      bool      `json:"is_active"`
	SettingAmount int       `json:"setting_amount"`
	CreatedTime   time.Time `json:"created_time"`
	UpdatedTime   time.Time `json:"updated_time"`
}
