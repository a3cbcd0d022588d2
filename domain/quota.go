package domain

import (
	"github.com/pkg/errors"
)

const (
	QuotaDenyBadRequest     = "bad_request"
	QuotaDenyInvalidPlan    = "invalid_plan"
	QuotaDenyGlobalCeiling  = "global_ceiling"
	QuotaDenyGlobalThrottle = "global_throttle"
	QuotaDenyUserQuota      = "user_quota_exceeded"
)

var ErrUnknownPlan = errors.New("unknown plan")

type QuotaConsumeRequest struct {
	UserId      string `json:"user_id"`
	Plan        string `json:"plan"`
	Cost        int64  `json:"cost"`
	SessionHash string `json:"session_hash"`
}

type QuotaConsumeResponse struct {
	Allowed         bool   `json:"allowed"`
	Reason          string `json:"reason,omitempty"`
	RemainingUser   int64  `json:"remaining_user"`
	RemainingGlobal int64  `json:"remaining_global"`
	ResetAt         string `json:"reset_at"`
}

type QuotaStatusRequest struct {
	UserId string `json:"user_id"`
	Plan   string `json:"plan"`
}

type QuotaStatusResponse struct {
	Date          string `json:"date"`
	UserCount     int64  `json:"user_count"`
	UserLimit     int64  `json:"user_limit"`
	RemainingUser int64  `json:"remaining_user"`
	GlobalCount   int64  `json:"global_count"`
	GlobalPercent int64  `json:"global_percent"`
	ResetAt       string `json:"reset_at"`
}

type UserUsage struct {
	UserId string `json:"user_id"`
	Count  int64  `json:"count"`
}

type QuotaSummaryResponse struct {
	TopUsers         []UserUsage `json:"top_users"`
	DistinctSessions int         `json:"distinct_sessions"`
}
