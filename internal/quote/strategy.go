package quote

import (
	"context"

	"pricewatch/internal/metrics"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PriceFetcher fetches a single id. It returns ErrPriceMissing when the
// provider answered without a price for id.
type PriceFetcher interface {
	FetchPrice(ctx context.Context, id string) (decimal.Decimal, error)
}

// BatchFetcher fetches many ids in one request. Ids without a quote are absent.
type BatchFetcher interface {
	FetchPrices(ctx context.Context, ids []string) (map[string]decimal.Decimal, error)
}

// Sequential requests one id at a time, throttled and retried through the
// retrier. One failing id never aborts the others.
type Sequential struct {
	provider string
	fetcher  PriceFetcher
	retry    *retrier
	log      *zap.Logger
}

func NewSequential(provider string, fetcher PriceFetcher, r *retrier, log *zap.Logger) *Sequential {
	return &Sequential{
		provider: provider,
		fetcher:  fetcher,
		retry:    r,
		log:      log.With(zap.String("component", "sequential"), zap.String("provider", provider)),
	}
}

func (s *Sequential) GetPrices(ctx context.Context, ids []string) (Result, error) {
	result := make(Result, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	for i, id := range ids {
		if ctx.Err() != nil {
			s.log.Warn("cycle interrupted", zap.Int("remaining", len(ids)-i), zap.Error(ctx.Err()))
			break
		}

		var price decimal.Decimal
		err := s.retry.do(ctx, id, func(ctx context.Context) error {
			p, err := s.fetcher.FetchPrice(ctx, id)
			if err != nil {
				return err
			}
			price = p
			return nil
		})
		if err != nil {
			s.log.Warn("giving up on id for this cycle", zap.String("id", id), zap.Error(err))
			continue
		}
		result[id] = price
	}

	if len(result) == 0 {
		return nil, ErrTotalFailure
	}
	return result, nil
}

// Batch asks for every id in a single request. A failed request fails the
// whole cycle; an id missing from a good response fails only that id.
type Batch struct {
	provider string
	fetcher  BatchFetcher
	log      *zap.Logger
}

func NewBatch(provider string, fetcher BatchFetcher, log *zap.Logger) *Batch {
	return &Batch{
		provider: provider,
		fetcher:  fetcher,
		log:      log.With(zap.String("component", "batch"), zap.String("provider", provider)),
	}
}

func (b *Batch) GetPrices(ctx context.Context, ids []string) (Result, error) {
	result := make(Result, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	prices, err := b.fetcher.FetchPrices(ctx, ids)
	metrics.RecordQuote(b.provider, outcomeOf(err))
	if err != nil {
		b.log.Warn("batch quote request failed", zap.Int("ids", len(ids)), zap.Error(err))
		return nil, ErrTotalFailure
	}

	for _, id := range ids {
		if p, ok := prices[id]; ok {
			result[id] = p
		} else {
			b.log.Debug("id missing from batch response", zap.String("id", id))
		}
	}
	return result, nil
}
