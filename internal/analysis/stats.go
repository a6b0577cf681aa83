package analysis

import (
	"math"

	"agile-live/internal/model"
)

// Statistics summarises one day of prices.
//
// Avg is the plain mean of ValueIncVAT over all slots. It is not weighted by
// slot duration: slots are assumed to be uniform, and callers holding mixed
// durations must expand or weight them first.
type Statistics struct {
	Min float64
	Max float64
	Avg float64

	MinSlot  model.PriceRecord
	MaxSlot  model.PriceRecord
	MinIndex int
	MaxIndex int

	Count int
}

// ComputeStatistics returns min/max/avg over series. Ties on min or max resolve
// to the first matching slot in series order.
func ComputeStatistics(series []model.PriceRecord) (Statistics, error) {
	if len(series) == 0 {
		return Statistics{}, ErrEmptySeries
	}
	s := Statistics{Count: len(series)}
	minv := math.Inf(1)
	maxv := math.Inf(-1)
	sum := 0.0
	for i, r := range series {
		v := r.ValueIncVAT
		sum += v
		if v < minv {
			minv = v
			s.MinIndex = i
		}
		if v > maxv {
			maxv = v
			s.MaxIndex = i
		}
	}
	s.Min = minv
	s.Max = maxv
	s.MinSlot = series[s.MinIndex]
	s.MaxSlot = series[s.MaxIndex]

	// Summation error can push the mean of a flat series just past its bounds.
	s.Avg = math.Min(math.Max(sum/float64(len(series)), minv), maxv)
	return s, nil
}
