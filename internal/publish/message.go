package publish

import (
	"agile-live/internal/chart"
	"agile-live/internal/pipeline"
)

// Message is the payload pushed to live subscribers.
type Message struct {
	Type     string            `json:"type"`
	Snapshot pipeline.Snapshot `json:"snapshot"`
	Geometry *chart.Geometry   `json:"geometry,omitempty"`
}

func analysisMessage(res *pipeline.Result, withGeometry bool) Message {
	msg := Message{Type: "analysis", Snapshot: res.Snapshot()}
	if withGeometry {
		g := res.Geometry
		msg.Geometry = &g
	}
	return msg
}
