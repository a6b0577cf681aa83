package pipeline

import (
	"fmt"
	"time"

	"agile-live/internal/analysis"
	"agile-live/internal/chart"
	"agile-live/internal/model"
)

// Options configures one analysis pass.
type Options struct {
	// SlotDuration is the expected slot length; it sets the fallback slice size
	// and the chart's x-axis granularity.
	SlotDuration time.Duration
	// Location decides which calendar day "today" is and how clock times read.
	Location *time.Location
	// FallbackSlots overrides the number of records used when nothing falls on
	// today. Zero means one day's worth of slots.
	FallbackSlots int
	// RefreshBuffer is added to the next slot boundary for NextRefresh.
	RefreshBuffer time.Duration

	Canvas chart.Canvas
	Chart  chart.Options
}

func DefaultOptions() Options {
	return Options{
		SlotDuration:  30 * time.Minute,
		RefreshBuffer: 5 * time.Second,
		Canvas:        chart.DefaultCanvas(),
		Chart:         chart.DefaultOptions(),
	}
}

type Engine struct {
	opts Options
}

func New(opts Options) (*Engine, error) {
	if opts.SlotDuration == 0 {
		opts.SlotDuration = 30 * time.Minute
	}
	total, err := chart.TotalSlots(opts.SlotDuration)
	if err != nil {
		return nil, err
	}
	if opts.FallbackSlots <= 0 {
		opts.FallbackSlots = total
	}
	if opts.Canvas == (chart.Canvas{}) {
		opts.Canvas = chart.DefaultCanvas()
	}
	if err := opts.Canvas.Validate(); err != nil {
		return nil, err
	}
	opts.Chart.SlotDuration = opts.SlotDuration
	opts.Chart.Location = opts.Location
	return &Engine{opts: opts}, nil
}

func (e *Engine) Options() Options { return e.opts }

// WithCanvas returns a copy of the engine drawing onto a different canvas.
func (e *Engine) WithCanvas(c chart.Canvas) (*Engine, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	opts := e.opts
	opts.Canvas = c
	return &Engine{opts: opts}, nil
}

// Run executes one analysis pass over records as seen at now. The input slice
// is not modified and nothing is retained between calls.
func (e *Engine) Run(records []model.PriceRecord, now time.Time) (*Result, error) {
	sel, err := analysis.SelectDay(records, now, e.opts.Location, e.opts.FallbackSlots)
	if err != nil {
		return nil, err
	}

	slots := analysis.ResolveSlots(records, now)

	stats, err := analysis.ComputeStatistics(sel.Series)
	if err != nil {
		return nil, fmt.Errorf("statistics: %w", err)
	}
	peak, err := analysis.DetectPeakWindow(sel.Series, stats)
	if err != nil {
		return nil, fmt.Errorf("peak window: %w", err)
	}
	geom, err := chart.LayoutChart(sel.Series, stats, peak, e.opts.Canvas, e.opts.Chart)
	if err != nil {
		return nil, fmt.Errorf("layout: %w", err)
	}

	refreshAt := now
	if e.opts.Location != nil {
		refreshAt = now.In(e.opts.Location)
	}

	return &Result{
		Now:         now,
		Location:    e.opts.Location,
		Day:         sel.Series,
		Fallback:    sel.Fallback,
		Current:     slots.Current,
		Next:        slots.Next,
		Stats:       stats,
		Peak:        peak,
		PeakStart:   sel.Series[peak.StartIndex].ValidFrom,
		PeakEnd:     sel.Series[peak.EndIndex].ValidTo,
		Geometry:    geom,
		NextRefresh: analysis.NextRefresh(refreshAt, e.opts.SlotDuration, e.opts.RefreshBuffer),
	}, nil
}
