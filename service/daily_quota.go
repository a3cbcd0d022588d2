package service

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/pkg/errors"
	"github.com/txix-open/isp-kit/json"
	"isp-admission-service/conf"
	"isp-admission-service/domain"
	"isp-admission-service/entity"
)

const (
	quotaActorKey   = "daily_quota"
	summaryCacheKey = "daily_quota:summary"

	maxTrackedSessions = 10000
	topUsersCount      = 10

	dateLayout = "2006-01-02"
)

type DailyQuotaRepo interface {
	Get(ctx context.Context) (*entity.QuotaRecord, error)
	Upsert(ctx context.Context, record entity.QuotaRecord) error
}

type SummaryCache interface {
	Get(key string) ([]byte, bool)
	Set(key string, data []byte, lifeTime time.Duration)
}

// DailyQuota protects the shared daily request budget via two layers: a
// per-user cap sized by plan and a plan-tiered global threshold below one
// absolute hard ceiling. All calls funnel through the single worker owning
// quotaActorKey, which is what makes the counters exact under concurrency.
type DailyQuota struct {
	seq              Sequencer
	repo             DailyQuotaRepo
	cache            SummaryCache
	cacheTtl         time.Duration
	dailyLimits      map[string]int64
	globalThresholds map[string]int64
	hardCeiling      int64
	now              func() time.Time
}

func NewDailyQuota(seq Sequencer, repo DailyQuotaRepo, cache SummaryCache, config conf.Quota) DailyQuota {
	dailyLimits := make(map[string]int64)
	globalThresholds := make(map[string]int64)
	for _, plan := range config.GetPlans() {
		dailyLimits[plan.Name] = plan.RequestsPerDay
		globalThresholds[plan.Name] = plan.GlobalThresholdPerDay
	}
	return DailyQuota{
		seq:              seq,
		repo:             repo,
		cache:            cache,
		cacheTtl:         time.Duration(config.GetSummaryCacheInSec()) * time.Second,
		dailyLimits:      dailyLimits,
		globalThresholds: globalThresholds,
		hardCeiling:      config.GetHardCeiling(),
		now:              time.Now,
	}
}

func (s DailyQuota) Consume(ctx context.Context, req domain.QuotaConsumeRequest) (*domain.QuotaConsumeResponse, error) {
	if req.UserId == "" || req.Plan == "" {
		return s.reject(domain.QuotaDenyBadRequest), nil
	}
	dailyLimit, ok := s.dailyLimits[req.Plan]
	if !ok {
		return s.reject(domain.QuotaDenyInvalidPlan), nil
	}
	threshold := s.globalThresholds[req.Plan]

	cost := req.Cost
	if cost < 1 {
		cost = 1
	}

	var resp *domain.QuotaConsumeResponse
	err := s.seq.Do(ctx, quotaActorKey, func(ctx context.Context) error {
		record, err := s.load(ctx)
		if err != nil {
			return err
		}

		if req.SessionHash != "" && !record.Sessions[req.SessionHash] &&
			len(record.Sessions) < maxTrackedSessions {
			record.Sessions[req.SessionHash] = true
		}

		userCount := record.UserCounts[req.UserId]
		result := &domain.QuotaConsumeResponse{
			ResetAt: s.nextMidnight().Format(time.RFC3339),
		}
		// first match wins, the most systemic problem surfaces first
		switch {
		case record.GlobalCount+cost > s.hardCeiling:
			result.Reason = domain.QuotaDenyGlobalCeiling
			result.RemainingUser = clampZero(dailyLimit - userCount)
			result.RemainingGlobal = clampZero(s.hardCeiling - record.GlobalCount)
		case record.GlobalCount+cost > threshold:
			result.Reason = domain.QuotaDenyGlobalThrottle
			result.RemainingUser = clampZero(dailyLimit - userCount)
			result.RemainingGlobal = clampZero(threshold - record.GlobalCount)
		case userCount+cost > dailyLimit:
			result.Reason = domain.QuotaDenyUserQuota
			result.RemainingUser = clampZero(dailyLimit - userCount)
			result.RemainingGlobal = clampZero(threshold - record.GlobalCount)
		default:
			result.Allowed = true
			record.GlobalCount += cost
			record.UserCounts[req.UserId] = userCount + cost
			result.RemainingUser = clampZero(dailyLimit - record.UserCounts[req.UserId])
			result.RemainingGlobal = clampZero(threshold - record.GlobalCount)
		}

		// rollover and session tracking must survive even a denied call
		err = s.repo.Upsert(ctx, *record)
		if err != nil {
			return errors.WithMessage(err, "upsert quota record")
		}

		resp = result
		return nil
	})
	if err != nil {
		return nil, errors.WithMessage(err, "consume daily quota")
	}

	return resp, nil
}

func (s DailyQuota) Status(ctx context.Context, req domain.QuotaStatusRequest) (*domain.QuotaStatusResponse, error) {
	plan := req.Plan
	if plan == "" {
		plan = conf.PlanFree
	}
	dailyLimit, ok := s.dailyLimits[plan]
	if !ok {
		return nil, domain.ErrUnknownPlan
	}

	var resp *domain.QuotaStatusResponse
	err := s.seq.Do(ctx, quotaActorKey, func(ctx context.Context) error {
		record, err := s.load(ctx)
		if err != nil {
			return err
		}

		userCount := record.UserCounts[req.UserId]
		percent := math.Round(float64(record.GlobalCount) / float64(s.hardCeiling) * 100)
		resp = &domain.QuotaStatusResponse{
			Date:          record.Date,
			UserCount:     userCount,
			UserLimit:     dailyLimit,
			RemainingUser: clampZero(dailyLimit - userCount),
			GlobalCount:   record.GlobalCount,
			GlobalPercent: int64(percent),
			ResetAt:       s.nextMidnight().Format(time.RFC3339),
		}
		return nil
	})
	if err != nil {
		return nil, errors.WithMessage(err, "read daily quota")
	}

	return resp, nil
}

func (s DailyQuota) Summary(ctx context.Context) (*domain.QuotaSummaryResponse, error) {
	if data, ok := s.cache.Get(summaryCacheKey); ok {
		resp := domain.QuotaSummaryResponse{}
		err := json.Unmarshal(data, &resp)
		if err == nil {
			return &resp, nil
		}
	}

	var resp *domain.QuotaSummaryResponse
	err := s.seq.Do(ctx, quotaActorKey, func(ctx context.Context) error {
		record, err := s.load(ctx)
		if err != nil {
			return err
		}

		resp = &domain.QuotaSummaryResponse{
			TopUsers:         topUsers(record.UserCounts, topUsersCount),
			DistinctSessions: len(record.Sessions),
		}
		return nil
	})
	if err != nil {
		return nil, errors.WithMessage(err, "read daily quota")
	}

	data, err := json.Marshal(resp)
	if err != nil {
		return nil, errors.WithMessage(err, "json marshal summary")
	}
	s.cache.Set(summaryCacheKey, data, s.cacheTtl)

	return resp, nil
}

// load compares the stored date with the current UTC day on every call.
// A record from another day is replaced with a fresh one, there is no
// scheduled reset.
func (s DailyQuota) load(ctx context.Context) (*entity.QuotaRecord, error) {
	today := s.now().UTC().Format(dateLayout)

	record, err := s.repo.Get(ctx)
	if err != nil {
		return nil, errors.WithMessage(err, "get quota record")
	}
	if record == nil || record.Date != today {
		return entity.NewQuotaRecord(today), nil
	}

	if record.UserCounts == nil {
		record.UserCounts = make(map[string]int64)
	}
	if record.Sessions == nil {
		record.Sessions = make(map[string]bool)
	}
	return record, nil
}

func (s DailyQuota) reject(reason string) *domain.QuotaConsumeResponse {
	return &domain.QuotaConsumeResponse{
		Allowed: false,
		Reason:  reason,
		ResetAt: s.nextMidnight().Format(time.RFC3339),
	}
}

func (s DailyQuota) nextMidnight() time.Time {
	now := s.now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
}

func topUsers(counts map[string]int64, limit int) []domain.UserUsage {
	all := make([]domain.UserUsage, 0, len(counts))
	for userId, count := range counts {
		all = append(all, domain.UserUsage{UserId: userId, Count: count})
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].Count != all[j].Count {
			return all[i].Count > all[j].Count
		}
		return all[i].UserId < all[j].UserId
	})
	if len(all) > limit {
		all = all[:limit]
	}
	return all
}

func clampZero(value int64) int64 {
	if value < 0 {
		return 0
	}
	return value
}
