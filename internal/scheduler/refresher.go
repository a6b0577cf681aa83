package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"agile-live/internal/analysis"
	"agile-live/internal/data"
	"agile-live/internal/metrics"
	"agile-live/internal/model"
	"agile-live/internal/pipeline"
)

// Publisher receives every successful analysis.
type Publisher interface {
	Name() string
	Publish(ctx context.Context, res *pipeline.Result) error
}

// Batch is an immutable set of records from one fetch.
type Batch struct {
	Records   []model.PriceRecord
	FetchedAt time.Time
}

// Refresher fetches records, keeps the latest non-empty batch and fans each
// analysis out to publishers.
type Refresher struct {
	Source     data.Source
	Tariff     model.Tariff
	Engine     *pipeline.Engine
	Metrics    *metrics.Metrics
	Publishers []Publisher
	Timeout    time.Duration
	Now        func() time.Time

	latest atomic.Pointer[Batch]
}

func (r *Refresher) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

// Latest returns the last non-empty batch, or nil before the first one.
func (r *Refresher) Latest() *Batch {
	return r.latest.Load()
}

// Store replaces the latest batch. Empty batches are ignored so a failed fetch
// keeps serving the previous prices.
func (r *Refresher) Store(records []model.PriceRecord, at time.Time) bool {
	if len(records) == 0 {
		return false
	}
	r.latest.Store(&Batch{Records: records, FetchedAt: at})
	return true
}

// Analyze runs the engine over the latest batch as seen at now.
func (r *Refresher) Analyze(now time.Time) (*pipeline.Result, error) {
	b := r.Latest()
	if b == nil {
		return nil, analysis.ErrNoData
	}
	return r.Engine.Run(b.Records, now)
}

// Refresh fetches, analyses and publishes once. Fetch failures are logged and
// the previous batch stays in place.
func (r *Refresher) Refresh(ctx context.Context) (*pipeline.Result, error) {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	start := time.Now()
	records := data.FetchOrEmpty(ctx, r.Source, r.Tariff)
	r.Metrics.FetchDone(time.Since(start))

	now := r.now()
	if !r.Store(records, now) {
		zap.L().Warn("[Refresh] No new records, keeping previous batch", zap.String("tariff", r.Tariff.Code()))
	}

	res, err := r.Analyze(now)
	if err != nil {
		r.Metrics.RefreshFailed(errors.Is(err, analysis.ErrNoData))
		zap.L().Error("[Refresh] Analysis failed", zap.Error(err))
		return nil, err
	}
	r.Metrics.ObserveResult(res)

	zap.L().Info("[Refresh] Analysis complete",
		zap.Int("slots", len(res.Day)),
		zap.Bool("fallback", res.Fallback),
		zap.Float64("min", res.Stats.Min),
		zap.Float64("max", res.Stats.Max),
		zap.Int("peak_start", res.Peak.StartIndex),
		zap.Int("peak_end", res.Peak.EndIndex),
		zap.Time("next_refresh", res.NextRefresh))

	r.publish(ctx, res)
	return res, nil
}

func (r *Refresher) publish(ctx context.Context, res *pipeline.Result) {
	for _, p := range r.Publishers {
		if err := p.Publish(ctx, res); err != nil {
			r.Metrics.PublishFailed(p.Name())
			zap.L().Warn("[Refresh] Publish failed", zap.String("sink", p.Name()), zap.Error(err))
		}
	}
}
