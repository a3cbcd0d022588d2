package controller

import (
	"context"

	"github.com/pkg/errors"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"isp-admission-service/domain"
)

type DailyQuotaService interface {
	Consume(ctx context.Context, req domain.QuotaConsumeRequest) (*domain.QuotaConsumeResponse, error)
	Status(ctx context.Context, req domain.QuotaStatusRequest) (*domain.QuotaStatusResponse, error)
	Summary(ctx context.Context) (*domain.QuotaSummaryResponse, error)
}

type DailyQuota struct {
	service DailyQuotaService
}

func NewDailyQuota(service DailyQuotaService) DailyQuota {
	return DailyQuota{
		service: service,
	}
}

// Consume never maps quota exhaustion to a transport error: a breached
// threshold is a well-typed negative decision, malformed input included.
func (c DailyQuota) Consume(ctx context.Context, req domain.QuotaConsumeRequest) (*domain.QuotaConsumeResponse, error) {
	resp, err := c.service.Consume(ctx, req)
	if err != nil {
		return nil, errors.WithMessage(err, "daily quota service")
	}

	return resp, nil
}

func (c DailyQuota) Status(ctx context.Context, req domain.QuotaStatusRequest) (*domain.QuotaStatusResponse, error) {
	resp, err := c.service.Status(ctx, req)
	switch {
	case errors.Is(err, domain.ErrUnknownPlan):
		return nil, status.Error(codes.InvalidArgument, "unknown plan")
	case err != nil:
		return nil, errors.WithMessage(err, "daily quota service")
	}

	return resp, nil
}

func (c DailyQuota) Summary(ctx context.Context) (*domain.QuotaSummaryResponse, error) {
	resp, err := c.service.Summary(ctx)
	if err != nil {
		return nil, errors.WithMessage(err, "daily quota service")
	}

	return resp, nil
}
