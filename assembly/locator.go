package assembly

import (
	"github.com/redis/go-redis/v9"
	"isp-admission-service/actor"
	"isp-admission-service/cache"
	"isp-admission-service/conf"
	"isp-admission-service/controller"
	"isp-admission-service/repository"
	"isp-admission-service/routes"
	"isp-admission-service/service"

	"github.com/txix-open/isp-kit/grpc"
	"github.com/txix-open/isp-kit/grpc/endpoint"
	"github.com/txix-open/isp-kit/log"
)

type Locator struct {
	logger log.Logger
	pool   *actor.Pool
}

func NewLocator(logger log.Logger, pool *actor.Pool) Locator {
	return Locator{
		logger: logger,
		pool:   pool,
	}
}

func (l Locator) Handler(config conf.Remote, redisCli redis.UniversalClient) *grpc.Mux {
	rateBucketRepo := repository.NewRateBucket(redisCli)
	rateLimitService := service.NewRateLimit(l.pool, rateBucketRepo)

	dailyQuotaRepo := repository.NewDailyQuota(redisCli)
	summaryCache := cache.New()
	dailyQuotaService := service.NewDailyQuota(l.pool, dailyQuotaRepo, summaryCache, config.Quota)

	wrapper := endpoint.DefaultWrapper(l.logger)
	return routes.Handler(wrapper, routes.Controllers{
		RateLimit:  controller.NewRateLimit(rateLimitService),
		DailyQuota: controller.NewDailyQuota(dailyQuotaService),
	})
}
