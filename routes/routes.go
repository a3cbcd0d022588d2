package routes

import (
	"github.com/txix-open/isp-kit/cluster"
	"github.com/txix-open/isp-kit/grpc"
	"github.com/txix-open/isp-kit/grpc/endpoint"
	"isp-admission-service/controller"
)

type Controllers struct {
	RateLimit  controller.RateLimit
	DailyQuota controller.DailyQuota
}

func EndpointDescriptors() []cluster.EndpointDescriptor {
	return endpointDescriptors(Controllers{})
}

func Handler(wrapper endpoint.Wrapper, c Controllers) *grpc.Mux {
	muxer := grpc.NewMux()
	for _, descriptor := range endpointDescriptors(c) {
		muxer.Handle(descriptor.Path, wrapper.Endpoint(descriptor.Handler))
	}
	return muxer
}

// all endpoints are inner: only trusted gateways may call the admission layer,
// the rate limiter in particular trusts caller-supplied plan parameters
func endpointDescriptors(c Controllers) []cluster.EndpointDescriptor {
	return []cluster.EndpointDescriptor{
		{
			Path:    "admission/rate_limit/consume",
			Inner:   true,
			Handler: c.RateLimit.Consume,
		},
		{
			Path:    "admission/daily_quota/consume",
			Inner:   true,
			Handler: c.DailyQuota.Consume,
		},
		{
			Path:    "admission/daily_quota/status",
			Inner:   true,
			Handler: c.DailyQuota.Status,
		},
		{
			Path:    "admission/daily_quota/summary",
			Inner:   true,
			Handler: c.DailyQuota.Summary,
		},
	}
}
