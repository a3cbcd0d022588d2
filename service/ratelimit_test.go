package service_test

import (
	"context"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"isp-admission-service/actor"
	"isp-admission-service/domain"
	"isp-admission-service/entity"
	"isp-admission-service/service"
)

type rateBucketRepoStub struct {
	mx      sync.Mutex
	buckets map[string]entity.RateBucket
	err     error
}

func newRateBucketRepoStub() *rateBucketRepoStub {
	return &rateBucketRepoStub{
		buckets: make(map[string]entity.RateBucket),
	}
}

func (s *rateBucketRepoStub) Get(ctx context.Context, key string) (*entity.RateBucket, error) {
	s.mx.Lock()
	defer s.mx.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	bucket, ok := s.buckets[key]
	if !ok {
		return nil, nil
	}
	return &bucket, nil
}

func (s *rateBucketRepoStub) Upsert(ctx context.Context, key string, bucket entity.RateBucket) error {
	s.mx.Lock()
	defer s.mx.Unlock()
	if s.err != nil {
		return s.err
	}
	s.buckets[key] = bucket
	return nil
}

func newRateLimit(t *testing.T) (service.RateLimit, *rateBucketRepoStub) {
	pool := actor.NewPool(4)
	t.Cleanup(func() {
		_ = pool.Close()
	})
	repo := newRateBucketRepoStub()
	return service.NewRateLimit(pool, repo), repo
}

func consumeReq(key string, nowMs int64) domain.RateLimitRequest {
	return domain.RateLimitRequest{
		Key:   key,
		Plan:  &domain.RatePlan{LimitPerMinute: 60, Burst: 10},
		NowMs: nowMs,
	}
}

func TestBurstThenDeny(t *testing.T) {
	t.Parallel()
	require := require.New(t)
	limiter, _ := newRateLimit(t)
	ctx := context.Background()

	t0 := int64(1000000)
	for i := 0; i < 10; i++ {
		resp, err := limiter.Consume(ctx, consumeReq("app-1", t0))
		require.NoError(err)
		require.True(resp.Allowed)
		require.EqualValues(9-i, resp.Remaining)
		require.EqualValues(60, resp.Limit)
	}

	resp, err := limiter.Consume(ctx, consumeReq("app-1", t0))
	require.NoError(err)
	require.False(resp.Allowed)
	require.EqualValues(0, resp.Remaining)
	// one token per second at 60/min
	require.EqualValues(t0+1000, resp.ResetMs)
}

func TestRefillAfterOneSecond(t *testing.T) {
	t.Parallel()
	require := require.New(t)
	limiter, _ := newRateLimit(t)
	ctx := context.Background()

	t0 := int64(1000000)
	for i := 0; i < 10; i++ {
		_, err := limiter.Consume(ctx, consumeReq("app-1", t0))
		require.NoError(err)
	}

	resp, err := limiter.Consume(ctx, consumeReq("app-1", t0+1000))
	require.NoError(err)
	require.True(resp.Allowed)
	require.EqualValues(0, resp.Remaining)
}

func TestIdleBucketCappedAtBurst(t *testing.T) {
	t.Parallel()
	require := require.New(t)
	limiter, _ := newRateLimit(t)
	ctx := context.Background()

	t0 := int64(1000000)
	_, err := limiter.Consume(ctx, consumeReq("app-1", t0))
	require.NoError(err)

	// one hour idle must yield exactly burst tokens, not 3600
	resp, err := limiter.Consume(ctx, consumeReq("app-1", t0+3600*1000))
	require.NoError(err)
	require.True(resp.Allowed)
	require.EqualValues(9, resp.Remaining)
}

func TestFirstCallInitializesFullBucket(t *testing.T) {
	t.Parallel()
	require := require.New(t)
	limiter, repo := newRateLimit(t)
	ctx := context.Background()

	resp, err := limiter.Consume(ctx, consumeReq("app-1", 5000))
	require.NoError(err)
	require.True(resp.Allowed)
	require.EqualValues(9, resp.Remaining)
	require.EqualValues(0, resp.ResetMs)

	bucket, err := repo.Get(ctx, "app-1")
	require.NoError(err)
	require.NotNil(bucket)
	require.EqualValues(5000, bucket.LastRefillMs)
}

func TestCostFlooredToOne(t *testing.T) {
	t.Parallel()
	require := require.New(t)
	limiter, _ := newRateLimit(t)
	ctx := context.Background()

	req := consumeReq("app-1", 1000)
	req.Cost = 0
	resp, err := limiter.Consume(ctx, req)
	require.NoError(err)
	require.True(resp.Allowed)
	require.EqualValues(9, resp.Remaining)
}

func TestCostAboveOne(t *testing.T) {
	t.Parallel()
	require := require.New(t)
	limiter, _ := newRateLimit(t)
	ctx := context.Background()

	req := consumeReq("app-1", 1000)
	req.Cost = 7
	resp, err := limiter.Consume(ctx, req)
	require.NoError(err)
	require.True(resp.Allowed)
	require.EqualValues(3, resp.Remaining)

	req.Cost = 7
	resp, err = limiter.Consume(ctx, req)
	require.NoError(err)
	require.False(resp.Allowed)
	require.EqualValues(3, resp.Remaining)
}

func TestClockGoingBackwardsIsIgnored(t *testing.T) {
	t.Parallel()
	require := require.New(t)
	limiter, _ := newRateLimit(t)
	ctx := context.Background()

	_, err := limiter.Consume(ctx, consumeReq("app-1", 10000))
	require.NoError(err)

	resp, err := limiter.Consume(ctx, consumeReq("app-1", 5000))
	require.NoError(err)
	require.True(resp.Allowed)
	require.EqualValues(8, resp.Remaining)
}

func TestStorageErrorFailsClosed(t *testing.T) {
	t.Parallel()
	require := require.New(t)
	limiter, repo := newRateLimit(t)
	repo.err = errors.New("redis is down")
	ctx := context.Background()

	resp, err := limiter.Consume(ctx, consumeReq("app-1", 1000))
	require.Error(err)
	require.Nil(resp)
}
