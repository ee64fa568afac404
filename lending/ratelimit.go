package lending

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/time/rate"

	"github.com/michaelpento.lv/dustvault/types"
)

// RateLimitedPool throttles calls to a remote pool client.
type RateLimitedPool struct {
	inner   Pool
	limiter *rate.Limiter
}

func NewRateLimitedPool(inner Pool, requestsPerSecond float64, burst int) *RateLimitedPool {
	return &RateLimitedPool{
		inner:   inner,
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), burst),
	}
}

func (p *RateLimitedPool) Submit(ctx context.Context, from, spender, to common.Address, requests []types.LendingRequest) error {
	if err := p.limiter.Wait(ctx); err != nil {
		return err
	}
	return p.inner.Submit(ctx, from, spender, to, requests)
}

func (p *RateLimitedPool) FlashLoan(ctx context.Context, from, spender, to common.Address, requests []types.LendingRequest) error {
	if err := p.limiter.Wait(ctx); err != nil {
		return err
	}
	return p.inner.FlashLoan(ctx, from, spender, to, requests)
}

func (p *RateLimitedPool) GetUserPosition(ctx context.Context, account common.Address) (*types.UserPosition, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return p.inner.GetUserPosition(ctx, account)
}

func (p *RateLimitedPool) GetPoolStatus(ctx context.Context) (types.PoolStatus, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return 0, err
	}
	return p.inner.GetPoolStatus(ctx)
}
