package domain

import "time"

// CREATE TABLE public.win_record (
//     id                   BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
//     draw_id              UUID NOT NULL,
//     lottery_event_id     BIGINT NOT NULL,
//     uid                  BIGINT NOT NULL,
//     draw_prize_id        BIGINT NOT NULL,
//     remain_prize_amount  INTEGER NOT NULL,
//     created_time         TIMESTAMPTZ DEFAULT NOW()
// );

// WinRecord is immutable once inserted.
type WinRecord struct {
	ID                uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	DrawID            string    `gorm:"column:draw_id;type:uuid" json:"draw_id"`
	LotteryEventID    uint64    `gorm:"column:lottery_event_id" json:"lottery_event_id"`
	UID               uint64    `gorm:"column:uid;index" json:"uid"`
	DrawPrizeID       uint64    `gorm:"column:draw_prize_id" json:"draw_prize_id"`
	RemainPrizeAmount int       `gorm:"column:remain_prize_amount" json:"remain_prize_amount"`
	CreatedTime       time.Time `gorm:"column:created_time;autoCreateTime" json:"created_time"`
}

func (WinRecord) TableName() string {
	return "win_record"
}

// WinRecordView is a win record joined with event and prize names.
type WinRecordView struct {
	ID                uint64    `json:"id"`
	LotteryEventID    uint64    `json:"lottery_event_id"`
	EventName         string    `json:"event_name"`
	UID               uint64    `json:"uid"`
	DrawPrizeID       uint64    `json:"draw_prize_id"`
	PrizeName         string    `json:"prize_name"`
	RemainPrizeAmount int       `json:"remain_prize_amount"`
	CreatedTime       time.Time `json:"created_time"`
}

// WinTask is handed from a draw to the outcome recorder.
type WinTask struct {
	DrawID    string
	EventID   uint64
	UserID    uint64
	PrizeName string
}
