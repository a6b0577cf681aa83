package chart

import (
	"errors"
	"math"
	"reflect"
	"testing"
	"time"

	"agile-live/internal/analysis"
	"agile-live/internal/model"
)

var day = time.Date(2024, 11, 5, 0, 0, 0, 0, time.UTC)

func halfHourly(start time.Time, values ...float64) []model.PriceRecord {
	out := make([]model.PriceRecord, len(values))
	for i, v := range values {
		from := start.Add(time.Duration(i) * 30 * time.Minute)
		out[i] = model.PriceRecord{ValidFrom: from, ValidTo: from.Add(30 * time.Minute), ValueIncVAT: v}
	}
	return out
}

func flat(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func analyse(t *testing.T, series []model.PriceRecord) (analysis.Statistics, analysis.PeakWindow) {
	t.Helper()
	s, err := analysis.ComputeStatistics(series)
	if err != nil {
		t.Fatal(err)
	}
	w, err := analysis.DetectPeakWindow(series, s)
	if err != nil {
		t.Fatal(err)
	}
	return s, w
}

func layoutOf(t *testing.T, series []model.PriceRecord) Geometry {
	t.Helper()
	s, w := analyse(t, series)
	g, err := LayoutChart(series, s, w, DefaultCanvas(), DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	return g
}

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func slotX(slot int) float64 { return 60 + float64(slot)/47*520 }

func TestLayoutPlateau(t *testing.T) {
	values := flat(48, 10)
	values[36], values[37], values[38], values[39] = 30, 32, 31, 30
	g := layoutOf(t, halfHourly(day, values...))

	if g.YMin != 0 || g.YMax != 32 || g.DegenerateRange {
		t.Fatalf("y-domain = [%v, %v] degenerate=%v", g.YMin, g.YMax, g.DegenerateRange)
	}
	if len(g.Points) != 48 {
		t.Fatalf("points = %d", len(g.Points))
	}
	if !near(g.Points[0].X, 60) || !near(g.Points[47].X, 580) {
		t.Fatalf("first/last x = %v/%v", g.Points[0].X, g.Points[47].X)
	}
	if !near(g.Points[37].Y, 20) {
		t.Fatalf("max should sit on the top edge, y = %v", g.Points[37].Y)
	}
	if !near(g.Points[0].Y, 20+(1-10.0/32)*250) {
		t.Fatalf("baseline y = %v", g.Points[0].Y)
	}
	if g.ZeroLine != nil {
		t.Fatal("no zero line expected for an all-positive series")
	}

	if len(g.PeakMarkers) != 2 {
		t.Fatalf("markers = %d, want 2", len(g.PeakMarkers))
	}
	if !near(g.PeakMarkers[0].X, slotX(36)) || !near(g.PeakMarkers[1].X, slotX(40)) {
		t.Fatalf("marker x = %v, %v", g.PeakMarkers[0].X, g.PeakMarkers[1].X)
	}
	if g.PeakMarkers[1].Clamped {
		t.Fatal("end marker should not be clamped")
	}

	start, _ := g.Label(LabelPeakStart)
	end, _ := g.Label(LabelPeakEnd)
	if start.Text != "18:00" || end.Text != "20:00" {
		t.Fatalf("peak labels = %q, %q", start.Text, end.Text)
	}
	if !near(start.X, slotX(36)-20) || !near(end.X, slotX(40)-20) {
		t.Fatalf("peak label x = %v, %v", start.X, end.X)
	}
	if l, _ := g.Label(LabelMax); l.Text != "32" {
		t.Fatalf("max label = %q", l.Text)
	}
	if l, _ := g.Label(LabelMin); l.Text != "0" {
		t.Fatalf("min label = %q", l.Text)
	}
	if l, _ := g.Label(LabelAxisEnd); l.Text != "23:30" || l.X != 530 {
		t.Fatalf("axis end label = %+v", l)
	}
}

func TestLayoutDashes(t *testing.T) {
	values := flat(48, 10)
	values[20], values[21] = 40, 40
	g := layoutOf(t, halfHourly(day, values...))
	d := g.PeakMarkers[0].Dashes
	// 250px plot, 8px stride
	if len(d) != 32 {
		t.Fatalf("dashes = %d, want 32", len(d))
	}
	if d[0].From.Y != 20 || d[0].To.Y != 25 || d[1].From.Y != 28 {
		t.Fatalf("dash pattern = %+v %+v", d[0], d[1])
	}
	if last := d[len(d)-1]; last.To.Y != 270 {
		t.Fatalf("last dash must stop at the bottom edge, got %+v", last)
	}
}

func TestLayoutPeakRunsToMidnight(t *testing.T) {
	values := flat(48, 10)
	values[45], values[46], values[47] = 35, 40, 38
	g := layoutOf(t, halfHourly(day, values...))

	end := g.PeakMarkers[1]
	if !end.Clamped || end.X != 580 {
		t.Fatalf("end marker = %+v, want clamped to 580", end)
	}
	l, _ := g.Label(LabelPeakEnd)
	if l.Text != "00:00" || l.X != 550 {
		t.Fatalf("end label = %+v", l)
	}
}

func TestLayoutDegenerateWindowHasNoPeakMarkers(t *testing.T) {
	g := layoutOf(t, halfHourly(day, flat(48, 15)...))
	if len(g.PeakMarkers) != 0 {
		t.Fatalf("markers = %+v", g.PeakMarkers)
	}
	if _, ok := g.Label(LabelPeakStart); ok {
		t.Fatal("unexpected peak label")
	}
	if g.DegenerateRange {
		t.Fatal("flat positive series still has a [0, max] range")
	}
}

func TestLayoutZeroRange(t *testing.T) {
	g := layoutOf(t, halfHourly(day, flat(48, 0)...))
	if !g.DegenerateRange {
		t.Fatal("expected nominal range substitution")
	}
	for _, p := range g.Points {
		if math.IsNaN(p.Y) || math.IsInf(p.Y, 0) {
			t.Fatalf("non-finite y %v", p.Y)
		}
	}
}

func TestLayoutZeroLine(t *testing.T) {
	values := flat(48, 10)
	values[3] = -5
	values[30] = 20
	g := layoutOf(t, halfHourly(day, values...))
	if g.YMin != -5 {
		t.Fatalf("yMin = %v", g.YMin)
	}
	if g.ZeroLine == nil {
		t.Fatal("expected zero line")
	}
	if !near(g.ZeroLine.From.Y, 220) || g.ZeroLine.From.X != 60 || g.ZeroLine.To.X != 580 {
		t.Fatalf("zero line = %+v", g.ZeroLine)
	}
	if l, _ := g.Label(LabelMin); l.Text != "-5" {
		t.Fatalf("min label = %q", l.Text)
	}
}

func TestLayoutZeroLineTooCloseToAxis(t *testing.T) {
	values := flat(48, 50)
	values[0] = -0.1
	values[10] = 100
	g := layoutOf(t, halfHourly(day, values...))
	if g.ZeroLine != nil {
		t.Fatalf("zero line within 2px of the axis should be dropped, got %+v", g.ZeroLine)
	}
}

func TestLayoutUsesTimeOfDayNotIndex(t *testing.T) {
	full := halfHourly(day, flat(48, 10)...)
	full[20].ValueIncVAT = 30
	sparse := []model.PriceRecord{full[4], full[20], full[30]}
	g := layoutOf(t, sparse)
	for i, slot := range []int{4, 20, 30} {
		if !near(g.Points[i].X, slotX(slot)) {
			t.Fatalf("point %d x = %v, want slot %d", i, g.Points[i].X, slot)
		}
	}
}

func TestLayoutPointsChronological(t *testing.T) {
	s := halfHourly(day, 1, 2, 3, 4)
	rev := []model.PriceRecord{s[3], s[2], s[1], s[0]}
	stats, _ := analysis.ComputeStatistics(rev)
	g, err := LayoutChart(rev, stats, analysis.PeakWindow{StartIndex: 0, EndIndex: 0}, DefaultCanvas(), Options{})
	if err != nil {
		t.Fatal(err)
	}
	for i := 1; i < len(g.Points); i++ {
		if g.Points[i].X <= g.Points[i-1].X {
			t.Fatalf("points out of order: %+v", g.Points)
		}
	}
}

func TestLayoutPointsWithinPlot(t *testing.T) {
	values := []float64{-12, 3, 44, 17.5, 0, -0.5, 61, 22, 9, 9, 9, 30}
	series := halfHourly(day.Add(7*time.Hour+10*time.Minute), values...)
	series = append(series, halfHourly(day.Add(23*time.Hour+30*time.Minute), 5)...)
	g := layoutOf(t, series)
	c := DefaultCanvas()
	for _, p := range g.Points {
		if p.X < c.Padding.Left || p.X > c.Right() || p.Y < c.Padding.Top || p.Y > c.Bottom() {
			t.Fatalf("point %+v outside plot area", p)
		}
	}
}

func TestLayoutIdempotent(t *testing.T) {
	values := flat(48, 10)
	values[36], values[37] = 30, 32
	series := halfHourly(day, values...)
	a := layoutOf(t, series)
	b := layoutOf(t, series)
	if !reflect.DeepEqual(a, b) {
		t.Fatal("layout is not deterministic")
	}
}

func TestLayoutHourlySlots(t *testing.T) {
	var series []model.PriceRecord
	for i := 0; i < 24; i++ {
		from := day.Add(time.Duration(i) * time.Hour)
		series = append(series, model.PriceRecord{ValidFrom: from, ValidTo: from.Add(time.Hour), ValueIncVAT: float64(i)})
	}
	s, w := analyse(t, series)
	g, err := LayoutChart(series, s, w, DefaultCanvas(), Options{SlotDuration: time.Hour})
	if err != nil {
		t.Fatal(err)
	}
	if g.TotalSlots != 24 || !near(g.Points[23].X, 580) {
		t.Fatalf("total=%d last x=%v", g.TotalSlots, g.Points[23].X)
	}
	if l, _ := g.Label(LabelAxisEnd); l.Text != "23:00" {
		t.Fatalf("axis end = %q", l.Text)
	}
}

func TestLayoutLocalTime(t *testing.T) {
	london, err := time.LoadLocation("Europe/London")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	summer := time.Date(2024, 6, 1, 0, 0, 0, 0, london).UTC()
	series := halfHourly(summer, flat(48, 10)...)
	series[36].ValueIncVAT = 40
	series[37].ValueIncVAT = 40
	s, w := analyse(t, series)
	g, err := LayoutChart(series, s, w, DefaultCanvas(), Options{Location: london})
	if err != nil {
		t.Fatal(err)
	}
	if !near(g.Points[0].X, 60) {
		t.Fatalf("local midnight should map to the left edge, got %v", g.Points[0].X)
	}
	if l, _ := g.Label(LabelPeakStart); l.Text != "18:00" {
		t.Fatalf("peak start = %q, want local 18:00", l.Text)
	}
}

func TestLayoutErrors(t *testing.T) {
	series := halfHourly(day, 1, 2, 3)
	s, w := analyse(t, series)
	if _, err := LayoutChart(nil, s, w, DefaultCanvas(), Options{}); !errors.Is(err, analysis.ErrEmptySeries) {
		t.Errorf("empty series err = %v", err)
	}
	bad := DefaultCanvas()
	bad.Padding.Left = 590
	if _, err := LayoutChart(series, s, w, bad, Options{}); !errors.Is(err, ErrInvalidCanvas) {
		t.Errorf("canvas err = %v", err)
	}
	if _, err := LayoutChart(series, s, analysis.PeakWindow{StartIndex: 1, EndIndex: 5}, DefaultCanvas(), Options{}); err == nil {
		t.Error("expected out-of-range peak error")
	}
	if _, err := LayoutChart(series, s, w, DefaultCanvas(), Options{SlotDuration: 7 * time.Minute}); err == nil {
		t.Error("expected slot duration error")
	}
}

func TestCommandsOrder(t *testing.T) {
	values := flat(48, 10)
	values[3] = -5
	values[36], values[37] = 30, 32
	g := layoutOf(t, halfHourly(day, values...))
	cmds := g.Commands()

	var kinds []CommandKind
	for _, c := range cmds {
		if len(kinds) == 0 || kinds[len(kinds)-1] != c.Kind {
			kinds = append(kinds, c.Kind)
		}
	}
	want := []CommandKind{KindLine, KindPolyline, KindLine, KindDashed, KindLine, KindLabel}
	if !reflect.DeepEqual(kinds, want) {
		t.Fatalf("command kinds = %v, want %v", kinds, want)
	}
	last := cmds[len(cmds)-1]
	if last.Text == "" || len(last.Points) != 1 {
		t.Fatalf("label command = %+v", last)
	}
}
