package entity

type RateBucket struct {
	Tokens       float64 `json:"tokens"`
	LastRefillMs int64   `json:"lastRefillMs"`
}

// QuotaRecord is the single durable record of the daily quota enforcer.
// Date is a UTC calendar day; a record dated with another day is stale and
// must be replaced with a fresh one before any evaluation.
type QuotaRecord struct {
	Date        string           `json:"date"`
	GlobalCount int64            `json:"globalCount"`
	UserCounts  map[string]int64 `json:"userCounts"`
	Sessions    map[string]bool  `json:"sessions"`
}

func NewQuotaRecord(date string) *QuotaRecord {
	return &QuotaRecord{
		Date:       date,
		UserCounts: make(map[string]int64),
		Sessions:   make(map[string]bool),
	}
}
