// Package format maps prices and times to display strings and severity tiers.
// It carries no styling; renderers decide what a tier looks like.
package format

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Unit is appended to every formatted price (pence per kWh).
const Unit = "p"

// Tier is a price severity class used by renderers to pick a visual treatment.
type Tier int

const (
	BelowZero Tier = iota
	Low
	Medium
	High
)

// Tier boundaries in pence per kWh.
const (
	LowBelow    = 15.0
	MediumBelow = 25.0
)

func (t Tier) String() string {
	switch t {
	case BelowZero:
		return "BELOW_ZERO"
	case Low:
		return "LOW"
	case Medium:
		return "MEDIUM"
	case High:
		return "HIGH"
	default:
		return "UNKNOWN"
	}
}

func (t Tier) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *Tier) UnmarshalText(b []byte) error {
	for c := BelowZero; c <= High; c++ {
		if strings.EqualFold(string(b), c.String()) {
			*t = c
			return nil
		}
	}
	return fmt.Errorf("unknown price tier %q", b)
}

// PriceTier classifies a price: <=0 BelowZero, <15 Low, <25 Medium, otherwise High.
func PriceTier(value float64) Tier {
	switch {
	case value <= 0:
		return BelowZero
	case value < LowBelow:
		return Low
	case value < MediumBelow:
		return Medium
	default:
		return High
	}
}

// FormatPrice renders a price with two decimals and the unit suffix, e.g. "18.30p".
func FormatPrice(value float64) string {
	return strconv.FormatFloat(value, 'f', 2, 64) + Unit
}

// CompactPrice is FormatPrice with a trailing ".00" dropped ("15p" rather than "15.00p").
func CompactPrice(value float64) string {
	return strings.Replace(FormatPrice(value), ".00", "", 1)
}

// FormatClock renders t as HH:MM in loc. A nil loc keeps t's own location.
func FormatClock(t time.Time, loc *time.Location) string {
	if loc != nil {
		t = t.In(loc)
	}
	return t.Format("15:04")
}

// RoundHalfUp rounds half-way values towards positive infinity (-2.5 -> -2, 2.5 -> 3).
func RoundHalfUp(value float64) int {
	return int(math.Floor(value + 0.5))
}
