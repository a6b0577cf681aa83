package analysis

import (
	"time"

	"agile-live/internal/model"
)

// Slots holds the slot active at a point in time and the one chained after it.
// Either may be nil.
type Slots struct {
	Current *model.PriceRecord
	Next    *model.PriceRecord
}

// ResolveSlots finds the record containing now and the record starting exactly
// at its ValidTo. Records are scanned in the order given; if records overlap the
// first match wins. Next is looked up by time rather than position so gaps and
// unsorted input are tolerated.
func ResolveSlots(series []model.PriceRecord, now time.Time) Slots {
	var out Slots
	for i := range series {
		if series[i].Contains(now) {
			cur := series[i]
			out.Current = &cur
			break
		}
	}
	if out.Current == nil {
		return out
	}
	for i := range series {
		if series[i].ValidFrom.Equal(out.Current.ValidTo) {
			next := series[i]
			out.Next = &next
			break
		}
	}
	return out
}
