package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// CREATE TABLE public.lottery_prize (
//     id                BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
//     lottery_event_id  BIGINT NOT NULL REFERENCES lottery_event(id),
//     name              TEXT NOT NULL,
//     rate              NUMERIC(3,2) NOT NULL DEFAULT 0,
//     amount            INTEGER NOT NULL DEFAULT 0 CHECK (amount >= 0),
//     created_time      TIMESTAMPTZ DEFAULT NOW(),
//     updated_time      TIMESTAMPTZ DEFAULT NOW(),
//     UNIQUE (lottery_event_id, name)
// );

type LotteryPrize struct {
	ID             uint64          `gorm:"primaryKey;autoIncrement" json:"id"`
	LotteryEventID uint64          `gorm:"column:lottery_event_id;uniqueIndex:idx_prize_event_name" json:"lottery_event_id"`
	Name           string          `gorm:"column:name;type:text;uniqueIndex:idx_prize_event_name" json:"name"`
	Rate           decimal.Decimal `gorm:"column:rate;type:numeric(3,2)" json:"rate"`
	Amount         int             `gorm:"column:amount" json:"amount"`
	CreatedTime    time.Time       `gorm:"column:created_time;autoCreateTime" json:"created_time"`
	UpdatedTime    time.Time       `gorm:"column:updated_time;autoUpdateTime" json:"updated_time"`
}

func (LotteryPrize) TableName() string {
	return "lottery_prize"
}

// Miss is the draw result when no prize is won. No prize may carry this name.
const Miss = "Miss"

// ValidatePrizeName rejects names a draw result could not tell apart from
// a miss.
func ValidatePrizeName(name string) error {
	if name == Miss {
		return NewDomainError(fmt.Errorf("%w: %s", ErrReservedPrizeName, name))
	}
	return nil
}

// PrizeRate is one entry of an event's rate map, kept in insertion order.
type PrizeRate struct {
	Name string
	Rate Rate
}

// CacheEntry is one field of a counter-store hash map.
type CacheEntry struct {
	Field string
	Value string
}
