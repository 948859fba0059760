package capture

import (
	"encoding/json"

	"github.com/braydenmsue/cacheroyale-pomodoro/internal/gaze"
)

type recordedFrame struct {
	Faces []struct {
		Landmarks [][]float64 `json:"landmarks"`
	} `json:"faces"`
}

// MeshDetector decodes replay frames of the form
// {"faces":[{"landmarks":[[x,y],...]}]} and yields the first face only.
type MeshDetector struct{}

func (MeshDetector) Detect(frame Frame) ([]gaze.Point, bool) {
	var rec recordedFrame
	if err := json.Unmarshal(frame.Data, &rec); err != nil {
		return nil, false
	}
	if len(rec.Faces) == 0 || len(rec.Faces[0].Landmarks) == 0 {
		return nil, false
	}

	raw := rec.Faces[0].Landmarks
	pts := make([]gaze.Point, len(raw))
	for i, p := range raw {
		if len(p) < 2 {
			return nil, false
		}
		pts[i] = gaze.Point{X: p[0], Y: p[1]}
	}
	return pts, true
}
