package controller

import (
	"context"

	"github.com/pkg/errors"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"isp-admission-service/domain"
)

type RateLimitService interface {
	Consume(ctx context.Context, req domain.RateLimitRequest) (*domain.RateLimitResponse, error)
}

type RateLimit struct {
	service RateLimitService
}

func NewRateLimit(service RateLimitService) RateLimit {
	return RateLimit{
		service: service,
	}
}

func (c RateLimit) Consume(ctx context.Context, req domain.RateLimitRequest) (*domain.RateLimitResponse, error) {
	// malformed requests are rejected before any state is touched
	if req.Key == "" {
		return nil, status.Error(codes.InvalidArgument, "key is required")
	}
	if req.Plan == nil {
		return nil, status.Error(codes.InvalidArgument, "plan is required")
	}

	resp, err := c.service.Consume(ctx, req)
	if err != nil {
		return nil, errors.WithMessage(err, "rate limit service")
	}

	return resp, nil
}
