package ledger

import "fmt"

// Counter store key templates. All keys of one event share the prefix
// "lottery:{event_id}:".
const (
	eventKeyPrefix = "lottery:%d:"
	eventRemainKey = "lottery:%d:remainAmount"
	userChanceKey  = "lottery:%d:user:%d:chance"
	prizeStockKey  = "lottery:%d:prize:%s:stock"
	prizeRateKey   = "lottery:%d:prize:rate"
	eventActiveKey = "lottery:%d:isActive"
	eventLockKey   = "lottery:%d:lock"
)

func EventKeyPrefix(eventID uint64) string { return fmt.Sprintf(eventKeyPrefix, eventID) }

func EventRemainKey(eventID uint64) string { return fmt.Sprintf(eventRemainKey, eventID) }

func UserChanceKey(eventID, userID uint64) string {
	return fmt.Sprintf(userChanceKey, eventID, userID)
}

func PrizeStockKey(eventID uint64, prizeName string) string {
	return fmt.Sprintf(prizeStockKey, eventID, prizeName)
}

func PrizeRateKey(eventID uint64) string { return fmt.Sprintf(prizeRateKey, eventID) }

func EventActiveKey(eventID uint64) string { return fmt.Sprintf(eventActiveKey, eventID) }

func EventLockKey(eventID uint64) string { return fmt.Sprintf(eventLockKey, eventID) }
