package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/txix-open/isp-kit/json"
	"isp-admission-service/entity"
)

// an expired bucket reloads as full, so the ttl only bounds storage growth
const bucketTtl = 24 * time.Hour

type RateBucket struct {
	cli redis.UniversalClient
}

func NewRateBucket(cli redis.UniversalClient) RateBucket {
	return RateBucket{
		cli: cli,
	}
}

func (r RateBucket) Get(ctx context.Context, key string) (*entity.RateBucket, error) {
	data, err := r.cli.Get(ctx, r.key(key)).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return nil, nil
	case err != nil:
		return nil, errors.WithMessage(err, "redis get")
	}

	bucket := entity.RateBucket{}
	err = json.Unmarshal(data, &bucket)
	if err != nil {
		return nil, errors.WithMessage(err, "json unmarshal rate bucket")
	}

	return &bucket, nil
}

func (r RateBucket) Upsert(ctx context.Context, key string, bucket entity.RateBucket) error {
	data, err := json.Marshal(bucket)
	if err != nil {
		return errors.WithMessage(err, "json marshal rate bucket")
	}

	err = r.cli.Set(ctx, r.key(key), data, bucketTtl).Err()
	if err != nil {
		return errors.WithMessage(err, "redis set")
	}

	return nil
}

func (r RateBucket) key(key string) string {
	return fmt.Sprintf("rate_bucket:%s", key)
}
