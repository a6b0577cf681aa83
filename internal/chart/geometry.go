// Package chart maps a day of prices into pixel space. The output is plain
// geometry (points, segments, dashed markers and label anchors) with no styling;
// any rendering backend can draw it. Y grows downwards.
package chart

import (
	"errors"
	"fmt"
	"time"
)

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type Segment struct {
	From Point `json:"from"`
	To   Point `json:"to"`
}

type Padding struct {
	Left   float64 `json:"left"`
	Right  float64 `json:"right"`
	Top    float64 `json:"top"`
	Bottom float64 `json:"bottom"`
}

// Canvas is the target image size and the padding around the plot area.
type Canvas struct {
	Width   float64 `json:"width"`
	Height  float64 `json:"height"`
	Padding Padding `json:"padding"`
}

func DefaultCanvas() Canvas {
	return Canvas{
		Width:   600,
		Height:  300,
		Padding: Padding{Left: 60, Right: 20, Top: 20, Bottom: 30},
	}
}

func (c Canvas) PlotWidth() float64  { return c.Width - c.Padding.Left - c.Padding.Right }
func (c Canvas) PlotHeight() float64 { return c.Height - c.Padding.Top - c.Padding.Bottom }

// Right and Bottom are the pixel edges of the plot area.
func (c Canvas) Right() float64  { return c.Width - c.Padding.Right }
func (c Canvas) Bottom() float64 { return c.Height - c.Padding.Bottom }

var ErrInvalidCanvas = errors.New("invalid canvas")

func (c Canvas) Validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("%w: size %.0fx%.0f", ErrInvalidCanvas, c.Width, c.Height)
	}
	p := c.Padding
	if p.Left < 0 || p.Right < 0 || p.Top < 0 || p.Bottom < 0 {
		return fmt.Errorf("%w: negative padding", ErrInvalidCanvas)
	}
	if c.PlotWidth() <= 0 || c.PlotHeight() <= 0 {
		return fmt.Errorf("%w: padding leaves no plot area", ErrInvalidCanvas)
	}
	return nil
}

type LabelRole string

const (
	LabelMax        LabelRole = "max"
	LabelMin        LabelRole = "min"
	LabelAvgCaption LabelRole = "avg_caption"
	LabelAvgValue   LabelRole = "avg_value"
	LabelAxisStart  LabelRole = "axis_start"
	LabelAxisEnd    LabelRole = "axis_end"
	LabelPeakStart  LabelRole = "peak_start"
	LabelPeakEnd    LabelRole = "peak_end"
)

// Label is a text anchor; X/Y is the top-left corner of the text box.
type Label struct {
	Role LabelRole `json:"role"`
	Text string    `json:"text"`
	X    float64   `json:"x"`
	Y    float64   `json:"y"`
}

type MarkerRole string

const (
	MarkerPeakStart MarkerRole = "peak_start"
	MarkerPeakEnd   MarkerRole = "peak_end"
)

// Marker is a dashed vertical line spanning the plot height.
type Marker struct {
	Role MarkerRole `json:"role"`
	X    float64    `json:"x"`
	Time time.Time  `json:"time"`
	// Clamped is set when the boundary fell past the last slot and X was pinned
	// to the right edge of the plot.
	Clamped bool      `json:"clamped"`
	Dashes  []Segment `json:"dashes"`
}

// Geometry is the complete layout of one chart.
type Geometry struct {
	Canvas     Canvas `json:"canvas"`
	TotalSlots int    `json:"total_slots"`

	YMin float64 `json:"y_min"`
	YMax float64 `json:"y_max"`
	// DegenerateRange is set when YMax == YMin and a nominal range of one unit
	// was substituted.
	DegenerateRange bool `json:"degenerate_range"`

	Points      []Point   `json:"points"`
	Axes        []Segment `json:"axes"`
	ZeroLine    *Segment  `json:"zero_line,omitempty"`
	AvgLine     Segment   `json:"avg_line"`
	PeakMarkers []Marker  `json:"peak_markers"`
	Labels      []Label   `json:"labels"`
}

// Label returns the first label with the given role.
func (g Geometry) Label(role LabelRole) (Label, bool) {
	for _, l := range g.Labels {
		if l.Role == role {
			return l, true
		}
	}
	return Label{}, false
}
