// Package gaze decides from facial landmarks whether a user is looking at the
// screen. Every entry point is total: bad input yields a not-focused verdict.
package gaze

import (
	"errors"
	"math"
)

const (
	// HorizontalThreshold is the largest iris offset, as a fraction of eye
	// width, that still counts as looking at the screen.
	HorizontalThreshold = 0.18

	// VerticalMin and VerticalMax bound the open interval of iris
	// positions between the lids that count as looking forward.
	VerticalMin = 0.20
	VerticalMax = 0.65

	// ClosedEyeHeight is the mean lid distance below which both eyes are
	// treated as closed.
	ClosedEyeHeight = 0.0015
)

var errLandmarks = errors.New("invalid landmarks")

// Verdict carries the intermediate ratios behind a decision.
type Verdict struct {
	LeftHorizontal    float64
	RightHorizontal   float64
	VerticalAverage   float64
	HorizontalFocused bool
	EyesClosed        bool
	Focused           bool
}

// Classify reports whether the landmarks describe a user focused on the screen.
func Classify(lm Landmarks) bool {
	v, err := Evaluate(lm)
	if err != nil {
		return false
	}
	return v.Focused
}

// ClassifyMesh is Classify over a raw MediaPipe face mesh.
func ClassifyMesh(mesh []Point) bool {
	lm, err := FromMesh(mesh)
	if err != nil {
		return false
	}
	return Classify(lm)
}

// Evaluate computes the full verdict. Any fault during the arithmetic is
// returned as an error with a zero, not-focused Verdict.
func Evaluate(lm Landmarks) (v Verdict, err error) {
	defer func() {
		if r := recover(); r != nil {
			v, err = Verdict{}, errLandmarks
		}
	}()

	if err := validEye(lm.Left); err != nil {
		return Verdict{}, err
	}
	if err := validEye(lm.Right); err != nil {
		return Verdict{}, err
	}

	leftIris := mean(lm.Left.Iris)
	rightIris := mean(lm.Right.Iris)

	v.LeftHorizontal = horizontalRatio(leftIris, lm.Left.Contour)
	v.RightHorizontal = horizontalRatio(rightIris, lm.Right.Contour)
	v.HorizontalFocused = v.LeftHorizontal < HorizontalThreshold && v.RightHorizontal < HorizontalThreshold

	leftHeight := math.Abs(lm.Left.UpperLid.Y - lm.Left.LowerLid.Y)
	rightHeight := math.Abs(lm.Right.UpperLid.Y - lm.Right.LowerLid.Y)

	if (leftHeight+rightHeight)/2 < ClosedEyeHeight {
		v.EyesClosed = true
		v.VerticalAverage = 0
		v.Focused = false
		return v, nil
	}

	v.VerticalAverage = (verticalRatio(leftIris, lm.Left.UpperLid, leftHeight) +
		verticalRatio(rightIris, lm.Right.UpperLid, rightHeight)) / 2

	switch {
	case math.IsNaN(v.VerticalAverage):
		return Verdict{}, errLandmarks
	case v.VerticalAverage < 0 || v.VerticalAverage > 1:
		// degenerate lid geometry, trust the horizontal signal alone
		v.Focused = v.HorizontalFocused
	default:
		v.Focused = v.HorizontalFocused && VerticalMin < v.VerticalAverage && v.VerticalAverage < VerticalMax
	}
	return v, nil
}

func validEye(e Eye) error {
	if len(e.Iris) != irisPoints || len(e.Contour) != contourPoints {
		return errLandmarks
	}
	for _, p := range append(append([]Point{e.UpperLid, e.LowerLid}, e.Iris...), e.Contour...) {
		if !finite(p.X) || !finite(p.Y) {
			return errLandmarks
		}
	}
	return nil
}

func horizontalRatio(iris Point, contour []Point) float64 {
	minX, maxX := contour[0].X, contour[0].X
	for _, p := range contour[1:] {
		minX = math.Min(minX, p.X)
		maxX = math.Max(maxX, p.X)
	}
	width := maxX - minX
	if width <= 0 {
		return 0
	}
	return math.Abs(iris.X-mean(contour).X) / width
}

func verticalRatio(iris, upper Point, height float64) float64 {
	if height <= 0 {
		return 0.5
	}
	return math.Abs(iris.Y-upper.Y) / height
}

func mean(pts []Point) Point {
	var sx, sy float64
	for _, p := range pts {
		sx += p.X
		sy += p.Y
	}
	n := float64(len(pts))
	return Point{X: sx / n, Y: sy / n}
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
