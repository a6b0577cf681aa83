package chart

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"

	"agile-live/internal/analysis"
	"agile-live/internal/format"
	"agile-live/internal/model"
)

// Options tunes the layout. Zero values fall back to DefaultOptions.
type Options struct {
	// SlotDuration sets the x-axis granularity; 24h must divide evenly by it.
	SlotDuration time.Duration
	// Location is used for time-of-day and clock labels. Nil keeps each
	// record's own location.
	Location *time.Location

	DashLength float64
	GapLength  float64
	// ZeroLineMinGap is how far (px) the zero line must sit from the bottom axis
	// before it is emitted.
	ZeroLineMinGap float64
	// LabelShift moves peak time labels left of their marker.
	LabelShift float64
	// EndLabelInset positions the peak end label when its marker is clamped.
	EndLabelInset float64
	// AxisEndLabelInset positions the last-slot clock label.
	AxisEndLabelInset float64
}

func DefaultOptions() Options {
	return Options{
		SlotDuration:      30 * time.Minute,
		DashLength:        5,
		GapLength:         3,
		ZeroLineMinGap:    2,
		LabelShift:        20,
		EndLabelInset:     30,
		AxisEndLabelInset: 50,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.SlotDuration == 0 {
		o.SlotDuration = d.SlotDuration
	}
	if o.DashLength <= 0 {
		o.DashLength = d.DashLength
	}
	if o.GapLength <= 0 {
		o.GapLength = d.GapLength
	}
	if o.ZeroLineMinGap == 0 {
		o.ZeroLineMinGap = d.ZeroLineMinGap
	}
	if o.LabelShift == 0 {
		o.LabelShift = d.LabelShift
	}
	if o.EndLabelInset == 0 {
		o.EndLabelInset = d.EndLabelInset
	}
	if o.AxisEndLabelInset == 0 {
		o.AxisEndLabelInset = d.AxisEndLabelInset
	}
	return o
}

// TotalSlots is the number of slots in a day for the given slot duration.
func TotalSlots(slot time.Duration) (int, error) {
	if slot < time.Minute || slot%time.Minute != 0 {
		return 0, fmt.Errorf("slot duration %s must be a whole number of minutes", slot)
	}
	mins := int(slot / time.Minute)
	if 1440%mins != 0 {
		return 0, fmt.Errorf("slot duration %s does not divide a day", slot)
	}
	n := 1440 / mins
	if n < 2 {
		return 0, fmt.Errorf("slot duration %s leaves fewer than two slots", slot)
	}
	return n, nil
}

type layout struct {
	canvas      Canvas
	opts        Options
	slotMinutes int
	total       int
	yMin, yMax  float64
	yRange      float64
}

func (l *layout) local(t time.Time) time.Time {
	if l.opts.Location != nil {
		return t.In(l.opts.Location)
	}
	return t
}

// slotOf is the slot index of t's wall-clock time of day.
func (l *layout) slotOf(t time.Time) int {
	t = l.local(t)
	return (t.Hour()*60 + t.Minute()) / l.slotMinutes
}

func (l *layout) x(slot int) float64 {
	return l.canvas.Padding.Left + float64(slot)/float64(l.total-1)*l.canvas.PlotWidth()
}

func (l *layout) y(value float64) float64 {
	return l.canvas.Padding.Top + (1-(value-l.yMin)/l.yRange)*l.canvas.PlotHeight()
}

func (l *layout) clampX(x float64) float64 {
	return math.Max(0, math.Min(x, l.canvas.Width))
}

func (l *layout) dashes(x float64) []Segment {
	var out []Segment
	top, bottom := l.canvas.Padding.Top, l.canvas.Bottom()
	for y := top; y < bottom; y += l.opts.DashLength + l.opts.GapLength {
		out = append(out, Segment{From: Point{X: x, Y: y}, To: Point{X: x, Y: math.Min(y+l.opts.DashLength, bottom)}})
	}
	return out
}

func (l *layout) hline(y float64) Segment {
	return Segment{From: Point{X: l.canvas.Padding.Left, Y: y}, To: Point{X: l.canvas.Right(), Y: y}}
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// LayoutChart maps series into canvas pixel space.
//
// The y-domain is [min(0, stats.Min), stats.Max]. The x position of a record
// comes from its time of day, not its index, so missing or extra slots do not
// stretch the axis. Peak markers and labels are omitted for a degenerate
// window.
func LayoutChart(series []model.PriceRecord, stats analysis.Statistics, peak analysis.PeakWindow, canvas Canvas, opts Options) (Geometry, error) {
	if len(series) == 0 {
		return Geometry{}, analysis.ErrEmptySeries
	}
	if err := canvas.Validate(); err != nil {
		return Geometry{}, err
	}
	if peak.StartIndex < 0 || peak.EndIndex >= len(series) || peak.StartIndex > peak.EndIndex {
		return Geometry{}, fmt.Errorf("peak window %d..%d out of range for %d slots", peak.StartIndex, peak.EndIndex, len(series))
	}
	opts = opts.withDefaults()
	total, err := TotalSlots(opts.SlotDuration)
	if err != nil {
		return Geometry{}, err
	}

	l := &layout{
		canvas:      canvas,
		opts:        opts,
		slotMinutes: int(opts.SlotDuration / time.Minute),
		total:       total,
		yMin:        math.Min(0, stats.Min),
		yMax:        stats.Max,
	}
	g := Geometry{Canvas: canvas, TotalSlots: total, YMin: l.yMin, YMax: l.yMax}
	l.yRange = l.yMax - l.yMin
	if l.yRange == 0 {
		l.yRange = 1
		g.DegenerateRange = true
	}

	left, top := canvas.Padding.Left, canvas.Padding.Top
	right, bottom := canvas.Right(), canvas.Bottom()
	g.Axes = []Segment{
		{From: Point{X: left, Y: top}, To: Point{X: left, Y: bottom}},
		{From: Point{X: left, Y: bottom}, To: Point{X: right, Y: bottom}},
	}

	order := make([]int, len(series))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return series[order[a]].ValidFrom.Before(series[order[b]].ValidFrom)
	})
	g.Points = make([]Point, 0, len(series))
	for _, i := range order {
		slot := l.slotOf(series[i].ValidFrom)
		if slot >= total {
			slot = total - 1
		}
		g.Points = append(g.Points, Point{X: l.x(slot), Y: l.y(series[i].ValueIncVAT)})
	}

	if l.yMin < 0 && l.yMax > 0 {
		y0 := l.y(0)
		if math.Abs(y0-bottom) > opts.ZeroLineMinGap {
			zero := l.hline(y0)
			g.ZeroLine = &zero
		}
	}

	avgY := l.y(stats.Avg)
	g.AvgLine = l.hline(avgY)

	g.Labels = append(g.Labels,
		Label{Role: LabelMax, Text: strconv.Itoa(format.RoundHalfUp(l.yMax)), X: 0, Y: top - 10},
		Label{Role: LabelMin, Text: strconv.Itoa(format.RoundHalfUp(l.yMin)), X: 0, Y: bottom - 10},
	)
	avgLabelY := math.Max(top, math.Min(avgY-18, bottom-40))
	g.Labels = append(g.Labels,
		Label{Role: LabelAvgCaption, Text: "Avg:", X: 0, Y: avgLabelY},
		Label{Role: LabelAvgValue, Text: strconv.FormatFloat(stats.Avg, 'f', 2, 64), X: 0, Y: avgLabelY + 18},
	)

	xLabelY := bottom + 5
	lastSlot := time.Duration(total-1) * opts.SlotDuration
	g.Labels = append(g.Labels,
		Label{Role: LabelAxisStart, Text: "00:00", X: left, Y: xLabelY},
		Label{Role: LabelAxisEnd, Text: fmt.Sprintf("%02d:%02d", int(lastSlot.Hours()), int(lastSlot.Minutes())%60), X: l.clampX(right - opts.AxisEndLabelInset), Y: xLabelY},
	)

	if !peak.Degenerate() {
		g.PeakMarkers, g.Labels = l.peak(series, peak, g.Labels, xLabelY)
	}
	return g, nil
}

// peak lays out the two dashed markers: one at the first peak slot's start and
// one at the slot boundary after the last peak slot.
func (l *layout) peak(series []model.PriceRecord, peak analysis.PeakWindow, labels []Label, labelY float64) ([]Marker, []Label) {
	startT := series[peak.StartIndex].ValidFrom
	endT := series[peak.EndIndex].ValidTo

	startX := l.x(l.slotOf(startT))

	endSlot := l.slotOf(endT)
	if !sameDate(l.local(endT), l.local(startT)) && l.local(endT).After(l.local(startT)) {
		// Ends on a later day (usually midnight): that is the final boundary, not slot 0.
		endSlot = l.total
	}
	end := Marker{Role: MarkerPeakEnd, Time: endT}
	if endSlot >= l.total {
		end.X = l.canvas.Right()
		end.Clamped = true
	} else {
		end.X = l.x(endSlot)
	}
	end.Dashes = l.dashes(end.X)

	start := Marker{Role: MarkerPeakStart, X: startX, Time: startT, Dashes: l.dashes(startX)}

	endLabelX := end.X - l.opts.LabelShift
	if end.X >= l.canvas.Right() {
		endLabelX = l.canvas.Right() - l.opts.EndLabelInset
	}
	labels = append(labels,
		Label{Role: LabelPeakStart, Text: format.FormatClock(startT, l.opts.Location), X: l.clampX(startX - l.opts.LabelShift), Y: labelY},
		Label{Role: LabelPeakEnd, Text: format.FormatClock(endT, l.opts.Location), X: l.clampX(endLabelX), Y: labelY},
	)
	return []Marker{start, end}, labels
}
