package domain

import "time"

// CREATE TABLE public.lottery_event (
//     id              BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
//     name            TEXT NOT NULL,
//     is_active       BOOLEAN DEFAULT FALSE,
//     setting_amount  INTEGER NOT NULL DEFAULT 0,
//     remain_amount   INTEGER NOT NULL DEFAULT 0 CHECK (remain_amount >= 0),
//     created_time    TIMESTAMPTZ DEFAULT NOW(),
//     updated_time    TIMESTAMPTZ DEFAULT NOW()
// );

type LotteryEvent struct {
	ID            uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	Name          string    `gorm:"column:name;type:text" json:"name"`
	IsActive      bool      `gorm:"column:is_active;default:false" json:"is_active"`
	SettingAmount int       `gorm:"column:setting_amount" json:"setting_amount"`
	RemainAmount  int       `gorm:"column:remain_amount" json:"remain_amount"`
	CreatedTime   time.Time `gorm:"column:created_time;autoCreateTime" json:"created_time"`
	UpdatedTime   time.Time `gorm:"column:updated_time;autoUpdateTime" json:"updated_time"`
}

func (LotteryEvent) TableName() string {
	return "lottery_event"
}

// CREATE TABLE public.user_lottery_quota (
//     id                BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
//     uid               BIGINT NOT NULL,
//     lottery_event_id  BIGINT NOT NULL REFERENCES lottery_event(id),
//     draw_quota        INTEGER NOT NULL DEFAULT 0 CHECK (draw_quota >= 0),
//     created_time      TIMESTAMPTZ DEFAULT NOW(),
//     updated_time      TIMESTAMPTZ DEFAULT NOW(),
//     UNIQUE (uid, lottery_event_id)
// );

type UserLotteryQuota struct {
	ID             uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	UID            uint64    `gorm:"column:uid;uniqueIndex:idx_quota_user_event" json:"uid"`
	LotteryEventID uint64    `gorm:"column:lottery_event_id;uniqueIndex:idx_quota_user_event" json:"lottery_event_id"`
	DrawQuota      int       `gorm:"column:draw_quota" json:"draw_quota"`
	CreatedTime    time.Time `gorm:"column:created_time;autoCreateTime" json:"created_time"`
	UpdatedTime    time.Time `gorm:"column:updated_time;autoUpdateTime" json:"updated_time"`
}

func (UserLotteryQuota) TableName() string {
	return "user_lottery_quota"
}
