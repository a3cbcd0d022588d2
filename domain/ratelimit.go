package domain

type RatePlan struct {
	LimitPerMinute int64 `json:"limitPerMinute" valid:"required~Required"`
	Burst          int64 `json:"burst" valid:"required~Required"`
}

type RateLimitRequest struct {
	Key   string    `json:"key" valid:"required~Required"`
	Plan  *RatePlan `json:"plan" valid:"required~Required"`
	Cost  int64     `json:"cost"`
	NowMs int64     `json:"nowMs"`
}

type RateLimitResponse struct {
	Allowed   bool  `json:"allowed"`
	Remaining int64 `json:"remaining"`
	Limit     int64 `json:"limit"`
	ResetMs   int64 `json:"resetMs"`
}
