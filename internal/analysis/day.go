package analysis

import (
	"sort"
	"time"

	"agile-live/internal/model"
)

// DaySelection is the series chosen for one analysis pass.
type DaySelection struct {
	Series []model.PriceRecord
	// Fallback is set when no record fell on now's calendar day and the first
	// FallbackSlots records of the input were used instead.
	Fallback bool
}

// SelectDay restricts records to the calendar day of now in loc, sorted by
// ValidFrom. When nothing matches it takes the first fallbackSlots records in
// input order and sorts those. The input slice is never modified.
func SelectDay(records []model.PriceRecord, now time.Time, loc *time.Location, fallbackSlots int) (DaySelection, error) {
	if len(records) == 0 {
		return DaySelection{}, ErrNoData
	}
	if loc == nil {
		loc = now.Location()
	}
	y, m, d := now.In(loc).Date()

	day := make([]model.PriceRecord, 0, len(records))
	for _, r := range records {
		ry, rm, rd := r.ValidFrom.In(loc).Date()
		if ry == y && rm == m && rd == d {
			day = append(day, r)
		}
	}

	sel := DaySelection{Series: day}
	if len(day) == 0 {
		// TODO: pick the chronologically nearest day instead of the first page slice.
		n := fallbackSlots
		if n <= 0 || n > len(records) {
			n = len(records)
		}
		sel.Series = append(day, records[:n]...)
		sel.Fallback = true
	}
	SortByValidFrom(sel.Series)
	return sel, nil
}

// SortByValidFrom orders records ascending by start time, keeping the relative
// order of equal starts.
func SortByValidFrom(records []model.PriceRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].ValidFrom.Before(records[j].ValidFrom)
	})
}
