package tests

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/txix-open/isp-kit/test"
)

type Redis struct {
	address string
	redis.UniversalClient
}

func NewRedis(test *test.Test) Redis {
	redisHost := test.Config().Optional().String("REDIS_HOST", "localhost")
	redisPort := test.Config().Optional().String("REDIS_PORT", "6379")
	addr := fmt.Sprintf("%s:%s", redisHost, redisPort)
	cli := redis.NewClient(&redis.Options{Addr: addr})
	return Redis{UniversalClient: cli, address: addr}
}

func (r Redis) Address() string {
	return r.address
}

func (r Redis) CleanDb(ctx context.Context) error {
	_, err := r.Pipelined(ctx, func(p redis.Pipeliner) error {
		p.FlushDB(ctx)
		return nil
	})
	return err
}
