package pipeline

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"agile-live/internal/analysis"
	"agile-live/internal/format"
	"agile-live/internal/model"
)

var day = time.Date(2024, 11, 5, 0, 0, 0, 0, time.UTC)

func plateau(start time.Time) []model.PriceRecord {
	out := make([]model.PriceRecord, 48)
	for i := range out {
		from := start.Add(time.Duration(i) * 30 * time.Minute)
		v := 10.0
		switch i {
		case 28:
			v = 18.3
		case 36, 39:
			v = 30
		case 37:
			v = 32
		case 38:
			v = 31
		}
		out[i] = model.PriceRecord{ValidFrom: from, ValidTo: from.Add(30 * time.Minute), ValueIncVAT: v, ValueExcVAT: v / 1.05}
	}
	return out
}

func newEngine(t *testing.T) *Engine {
	t.Helper()
	opts := DefaultOptions()
	opts.Location = time.UTC
	e, err := New(opts)
	if err != nil {
		t.Fatal(err)
	}
	return e
}

func TestRunPlateauDay(t *testing.T) {
	// API order is newest first; include tomorrow's prices as well.
	records := append(plateau(day.Add(24*time.Hour)), plateau(day)...)
	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}

	res, err := newEngine(t).Run(records, day.Add(14*time.Hour+5*time.Minute))
	if err != nil {
		t.Fatal(err)
	}
	if res.Fallback || len(res.Day) != 48 {
		t.Fatalf("fallback=%v slots=%d", res.Fallback, len(res.Day))
	}
	if res.Current == nil || res.Current.ValueIncVAT != 18.3 {
		t.Fatalf("current = %+v", res.Current)
	}
	if res.Next == nil || !res.Next.ValidFrom.Equal(day.Add(14*time.Hour+30*time.Minute)) {
		t.Fatalf("next = %+v", res.Next)
	}
	if res.Peak != (analysis.PeakWindow{StartIndex: 36, EndIndex: 39}) {
		t.Fatalf("peak = %+v", res.Peak)
	}
	if !res.PeakStart.Equal(day.Add(18*time.Hour)) || !res.PeakEnd.Equal(day.Add(20*time.Hour)) {
		t.Fatalf("peak times = %s..%s", res.PeakStart, res.PeakEnd)
	}
	if len(res.Geometry.PeakMarkers) != 2 {
		t.Fatalf("markers = %d", len(res.Geometry.PeakMarkers))
	}
	if want := day.Add(14*time.Hour + 30*time.Minute + 5*time.Second); !res.NextRefresh.Equal(want) {
		t.Fatalf("next refresh = %s, want %s", res.NextRefresh, want)
	}
}

func TestRunIsIdempotent(t *testing.T) {
	e := newEngine(t)
	records := plateau(day)
	now := day.Add(9 * time.Hour)
	a, err := e.Run(records, now)
	if err != nil {
		t.Fatal(err)
	}
	b, err := e.Run(records, now)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(a.Geometry, b.Geometry) || !reflect.DeepEqual(a.Snapshot(), b.Snapshot()) {
		t.Fatal("two passes over the same input differ")
	}
}

func TestRunNoData(t *testing.T) {
	if _, err := newEngine(t).Run(nil, day); !errors.Is(err, analysis.ErrNoData) {
		t.Fatalf("err = %v, want ErrNoData", err)
	}
}

func TestRunFallbackWhenTodayMissing(t *testing.T) {
	records := plateau(day.Add(-48 * time.Hour))
	res, err := newEngine(t).Run(records, day.Add(12*time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if !res.Fallback || len(res.Day) != 48 {
		t.Fatalf("fallback=%v slots=%d", res.Fallback, len(res.Day))
	}
	if res.Current != nil || res.Next != nil {
		t.Fatal("no slot should be current two days later")
	}
}

func TestNewRejectsBadSlot(t *testing.T) {
	opts := DefaultOptions()
	opts.SlotDuration = 45 * time.Second
	if _, err := New(opts); err == nil {
		t.Fatal("expected error")
	}
}

func TestWithCanvas(t *testing.T) {
	e := newEngine(t)
	c := e.Options().Canvas
	c.Width = 1200
	wide, err := e.WithCanvas(c)
	if err != nil {
		t.Fatal(err)
	}
	res, err := wide.Run(plateau(day), day)
	if err != nil {
		t.Fatal(err)
	}
	if res.Geometry.Canvas.Width != 1200 || e.Options().Canvas.Width != 600 {
		t.Fatal("WithCanvas must not change the original engine")
	}
}

func TestSnapshot(t *testing.T) {
	res, err := newEngine(t).Run(plateau(day), day.Add(14*time.Hour+5*time.Minute))
	if err != nil {
		t.Fatal(err)
	}
	s := res.Snapshot()
	if s.Current.Display != "18.30p" || s.Current.Tier != format.Medium {
		t.Fatalf("current = %+v", s.Current)
	}
	if s.High.Display != "32p" || s.High.At != "18:30" || s.High.Tier != format.High {
		t.Fatalf("high = %+v", s.High)
	}
	if s.Low.At != "00:00" || s.Average.At != "Today" {
		t.Fatalf("low/avg = %+v %+v", s.Low, s.Average)
	}
	if !s.Peak.Distinct || s.Peak.Start != "18:00" || s.Peak.End != "20:00" {
		t.Fatalf("peak = %+v", s.Peak)
	}

	raw, err := json.Marshal(s)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(raw), `"tier":"MEDIUM"`) {
		t.Fatalf("tier not encoded as text: %s", raw)
	}
}

func TestWriteSeriesCSV(t *testing.T) {
	res, err := newEngine(t).Run(plateau(day), day)
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := WriteSeriesCSV(&buf, res); err != nil {
		t.Fatal(err)
	}
	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 49 {
		t.Fatalf("rows = %d, want header + 48", len(rows))
	}
	if rows[0][6] != "in_peak" {
		t.Fatalf("header = %v", rows[0])
	}
	if rows[38][6] != "true" || rows[38][8] != "true" || rows[38][5] != "HIGH" {
		t.Fatalf("row for slot 37 = %v", rows[38])
	}
	if rows[1][6] != "false" || rows[1][7] != "true" {
		t.Fatalf("row for slot 0 = %v", rows[1])
	}
}
