package repository

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/txix-open/isp-kit/json"
	"isp-admission-service/entity"
)

const (
	quotaRecordKey = "daily_quota:state"

	// lazy rollover makes the stored date authoritative, the ttl is hygiene only
	quotaRecordTtl = 48 * time.Hour
)

type DailyQuota struct {
	cli redis.UniversalClient
}

func NewDailyQuota(cli redis.UniversalClient) DailyQuota {
	return DailyQuota{
		cli: cli,
	}
}

func (r DailyQuota) Get(ctx context.Context) (*entity.QuotaRecord, error) {
	data, err := r.cli.Get(ctx, quotaRecordKey).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return nil, nil
	case err != nil:
		return nil, errors.WithMessage(err, "redis get")
	}

	record := entity.QuotaRecord{}
	err = json.Unmarshal(data, &record)
	if err != nil {
		return nil, errors.WithMessage(err, "json unmarshal quota record")
	}

	return &record, nil
}

func (r DailyQuota) Upsert(ctx context.Context, record entity.QuotaRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return errors.WithMessage(err, "json marshal quota record")
	}

	err = r.cli.Set(ctx, quotaRecordKey, data, quotaRecordTtl).Err()
	if err != nil {
		return errors.WithMessage(err, "redis set")
	}

	return nil
}
