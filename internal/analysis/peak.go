package analysis

import "agile-live/internal/model"

// PeakWindow is an inclusive index range into the daily series that always
// contains the first maximum. StartIndex == EndIndex means there is no distinct
// peak block.
type PeakWindow struct {
	StartIndex int
	EndIndex   int
}

func (w PeakWindow) Degenerate() bool { return w.StartIndex == w.EndIndex }

func (w PeakWindow) Contains(i int) bool { return i >= w.StartIndex && i <= w.EndIndex }

func (w PeakWindow) Len() int { return w.EndIndex - w.StartIndex + 1 }

// PeakThreshold is the midpoint between the daily maximum and average.
func PeakThreshold(stats Statistics) float64 {
	return (stats.Max + stats.Avg) / 2
}

// DetectPeakWindow grows a window outwards from the first maximum while
// neighbouring prices stay >= PeakThreshold. If the threshold is not below the
// maximum (no variance) the window is the maximum slot alone.
func DetectPeakWindow(series []model.PriceRecord, stats Statistics) (PeakWindow, error) {
	if len(series) == 0 {
		return PeakWindow{}, ErrEmptySeries
	}

	maxIdx := firstIndexOf(series, stats.Max)
	w := PeakWindow{StartIndex: maxIdx, EndIndex: maxIdx}

	threshold := PeakThreshold(stats)
	if threshold >= stats.Max {
		return w, nil
	}
	for w.StartIndex > 0 && series[w.StartIndex-1].ValueIncVAT >= threshold {
		w.StartIndex--
	}
	for w.EndIndex < len(series)-1 && series[w.EndIndex+1].ValueIncVAT >= threshold {
		w.EndIndex++
	}
	return w, nil
}

// firstIndexOf returns the first index priced at value, falling back to the
// first arg-max when stats came from a different series.
func firstIndexOf(series []model.PriceRecord, value float64) int {
	best := 0
	for i, r := range series {
		if r.ValueIncVAT == value {
			return i
		}
		if r.ValueIncVAT > series[best].ValueIncVAT {
			best = i
		}
	}
	return best
}
