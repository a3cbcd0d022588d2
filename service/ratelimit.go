package service

import (
	"context"
	"math"
	"time"

	"github.com/pkg/errors"
	"isp-admission-service/domain"
	"isp-admission-service/entity"
)

const msInMinute = 60000

type Sequencer interface {
	Do(ctx context.Context, key string, fn func(ctx context.Context) error) error
}

type RateBucketRepo interface {
	Get(ctx context.Context, key string) (*entity.RateBucket, error)
	Upsert(ctx context.Context, key string, bucket entity.RateBucket) error
}

// RateLimit enforces a per-minute throughput cap with burst allowance,
// independently per key. The bucket refills lazily on access, there is no
// background timer. The limiter is plan-agnostic: limit parameters arrive on
// every call and are trusted, binding a key to a plan is the caller's job.
type RateLimit struct {
	seq  Sequencer
	repo RateBucketRepo
	now  func() time.Time
}

func NewRateLimit(seq Sequencer, repo RateBucketRepo) RateLimit {
	return RateLimit{
		seq:  seq,
		repo: repo,
		now:  time.Now,
	}
}

func (s RateLimit) Consume(ctx context.Context, req domain.RateLimitRequest) (*domain.RateLimitResponse, error) {
	var resp *domain.RateLimitResponse
	err := s.seq.Do(ctx, req.Key, func(ctx context.Context) error {
		result, err := s.consume(ctx, req)
		if err != nil {
			return err
		}
		resp = result
		return nil
	})
	if err != nil {
		return nil, errors.WithMessage(err, "consume rate bucket")
	}

	return resp, nil
}

// consume runs on the single worker owning req.Key, so the read-modify-write
// of the bucket record is race-free without locks.
func (s RateLimit) consume(ctx context.Context, req domain.RateLimitRequest) (*domain.RateLimitResponse, error) {
	nowMs := req.NowMs
	if nowMs <= 0 {
		nowMs = s.now().UnixMilli()
	}
	cost := req.Cost
	if cost < 1 {
		cost = 1
	}
	burst := float64(req.Plan.Burst)

	bucket, err := s.repo.Get(ctx, req.Key)
	if err != nil {
		return nil, errors.WithMessage(err, "get rate bucket")
	}
	if bucket == nil {
		bucket = &entity.RateBucket{Tokens: burst, LastRefillMs: nowMs}
	}

	refillPerMs := float64(req.Plan.LimitPerMinute) / msInMinute
	elapsed := nowMs - bucket.LastRefillMs
	if elapsed < 0 {
		elapsed = 0
	}
	tokens := bucket.Tokens + float64(elapsed)*refillPerMs
	if tokens > burst {
		tokens = burst
	}

	allowed := tokens >= float64(cost)
	if allowed {
		tokens -= float64(cost)
	}

	resetMs := int64(0)
	if tokens < 1 && refillPerMs > 0 {
		resetMs = nowMs + int64(math.Ceil((1-tokens)/refillPerMs))
	}

	bucket.Tokens = tokens
	bucket.LastRefillMs = nowMs
	err = s.repo.Upsert(ctx, req.Key, *bucket)
	if err != nil {
		return nil, errors.WithMessage(err, "upsert rate bucket")
	}

	return &domain.RateLimitResponse{
		Allowed:   allowed,
		Remaining: int64(math.Floor(math.Max(0, tokens))),
		Limit:     req.Plan.LimitPerMinute,
		ResetMs:   resetMs,
	}, nil
}
