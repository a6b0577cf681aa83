package chart

type CommandKind string

const (
	KindPolyline CommandKind = "polyline"
	KindLine     CommandKind = "line"
	KindDashed   CommandKind = "dashed"
	KindLabel    CommandKind = "label"
)

// Role names what a command depicts so a renderer can style it.
const (
	RoleAxis      = "axis"
	RolePrice     = "price"
	RoleZero      = "zero"
	RoleAverage   = "average"
	RolePeak      = "peak"
	RoleLabelText = "label"
)

// Command is one normalized draw instruction. Polylines and lines use Points;
// dashed commands carry pairs of points, one pair per dash; labels carry Text
// anchored at Points[0].
type Command struct {
	Kind   CommandKind `json:"kind"`
	Role   string      `json:"role"`
	Points []Point     `json:"points"`
	Text   string      `json:"text,omitempty"`
	Label  LabelRole   `json:"label,omitempty"`
}

// Commands flattens g into draw order: axes, price line, zero line, peak
// markers, average line, labels.
func (g Geometry) Commands() []Command {
	out := make([]Command, 0, len(g.Axes)+len(g.PeakMarkers)+len(g.Labels)+3)
	for _, a := range g.Axes {
		out = append(out, Command{Kind: KindLine, Role: RoleAxis, Points: []Point{a.From, a.To}})
	}
	if len(g.Points) > 0 {
		out = append(out, Command{Kind: KindPolyline, Role: RolePrice, Points: append([]Point(nil), g.Points...)})
	}
	if g.ZeroLine != nil {
		out = append(out, Command{Kind: KindLine, Role: RoleZero, Points: []Point{g.ZeroLine.From, g.ZeroLine.To}})
	}
	for _, m := range g.PeakMarkers {
		pts := make([]Point, 0, 2*len(m.Dashes))
		for _, d := range m.Dashes {
			pts = append(pts, d.From, d.To)
		}
		out = append(out, Command{Kind: KindDashed, Role: RolePeak, Points: pts})
	}
	out = append(out, Command{Kind: KindLine, Role: RoleAverage, Points: []Point{g.AvgLine.From, g.AvgLine.To}})
	for _, l := range g.Labels {
		out = append(out, Command{Kind: KindLabel, Role: RoleLabelText, Label: l.Role, Text: l.Text, Points: []Point{{X: l.X, Y: l.Y}}})
	}
	return out
}
