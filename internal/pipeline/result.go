package pipeline

import (
	"time"

	"agile-live/internal/analysis"
	"agile-live/internal/chart"
	"agile-live/internal/format"
	"agile-live/internal/model"
)

// Result is everything one pass produced. It is owned by the caller and never
// mutated by the engine afterwards.
type Result struct {
	Now      time.Time
	Location *time.Location

	Day      []model.PriceRecord
	Fallback bool

	Current *model.PriceRecord
	Next    *model.PriceRecord

	Stats     analysis.Statistics
	Peak      analysis.PeakWindow
	PeakStart time.Time
	PeakEnd   time.Time

	Geometry chart.Geometry

	NextRefresh time.Time
}

// SlotView is a display-ready slot.
type SlotView struct {
	ValidFrom time.Time   `json:"valid_from"`
	ValidTo   time.Time   `json:"valid_to"`
	Price     float64     `json:"price"`
	Display   string      `json:"display"`
	Tier      format.Tier `json:"tier"`
}

// StatView is one of the min/max/avg rows.
type StatView struct {
	Price   float64     `json:"price"`
	Display string      `json:"display"`
	Tier    format.Tier `json:"tier"`
	At      string      `json:"at,omitempty"`
}

type PeakView struct {
	StartIndex int    `json:"start_index"`
	EndIndex   int    `json:"end_index"`
	Distinct   bool   `json:"distinct"`
	Start      string `json:"start"`
	End        string `json:"end"`
}

// Snapshot is the JSON summary pushed to subscribers and served by the API.
type Snapshot struct {
	GeneratedAt time.Time `json:"generated_at"`
	Fallback    bool      `json:"fallback"`
	Slots       int       `json:"slots"`

	Current *SlotView `json:"current"`
	Next    *SlotView `json:"next"`

	Low     StatView `json:"low"`
	High    StatView `json:"high"`
	Average StatView `json:"average"`

	Peak        PeakView  `json:"peak"`
	NextRefresh time.Time `json:"next_refresh"`
}

func slotView(r *model.PriceRecord) *SlotView {
	if r == nil {
		return nil
	}
	return &SlotView{
		ValidFrom: r.ValidFrom,
		ValidTo:   r.ValidTo,
		Price:     r.ValueIncVAT,
		Display:   format.FormatPrice(r.ValueIncVAT),
		Tier:      format.PriceTier(r.ValueIncVAT),
	}
}

func statView(v float64, at string) StatView {
	return StatView{Price: v, Display: format.CompactPrice(v), Tier: format.PriceTier(v), At: at}
}

func (r *Result) Snapshot() Snapshot {
	return Snapshot{
		GeneratedAt: r.Now,
		Fallback:    r.Fallback,
		Slots:       len(r.Day),
		Current:     slotView(r.Current),
		Next:        slotView(r.Next),
		Low:         statView(r.Stats.Min, format.FormatClock(r.Stats.MinSlot.ValidFrom, r.Location)),
		High:        statView(r.Stats.Max, format.FormatClock(r.Stats.MaxSlot.ValidFrom, r.Location)),
		Average:     statView(r.Stats.Avg, "Today"),
		Peak: PeakView{
			StartIndex: r.Peak.StartIndex,
			EndIndex:   r.Peak.EndIndex,
			Distinct:   !r.Peak.Degenerate(),
			Start:      format.FormatClock(r.PeakStart, r.Location),
			End:        format.FormatClock(r.PeakEnd, r.Location),
		},
		NextRefresh: r.NextRefresh,
	}
}
