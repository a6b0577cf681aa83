package analysis

import "errors"

var (
	// ErrNoData means the source returned no price records at all. Callers render
	// an error state and skip analysis.
	ErrNoData = errors.New("no price data available")

	// ErrEmptySeries guards statistics and peak detection against an empty day.
	// It only occurs when ErrNoData was not checked first.
	ErrEmptySeries = errors.New("empty daily series")
)
