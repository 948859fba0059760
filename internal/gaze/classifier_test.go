package gaze

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// eye builds a symmetric eye centred on (cx, cy). The iris sits at
// (cx+dx, upper+ratio*height).
func eye(cx, cy, width, height, dx, ratio float64) Eye {
	upper := cy - height/2
	irisX := cx + dx
	irisY := upper + ratio*height
	const r = 0.0078125

	return Eye{
		Iris: []Point{
			{X: irisX - r, Y: irisY},
			{X: irisX + r, Y: irisY},
			{X: irisX, Y: irisY - r},
			{X: irisX, Y: irisY + r},
		},
		Contour: []Point{
			{X: cx - width/2, Y: cy},
			{X: cx - width/4, Y: cy - height/2},
			{X: cx + width/4, Y: cy - height/2},
			{X: cx + width/2, Y: cy},
			{X: cx + width/4, Y: cy + height/2},
			{X: cx - width/4, Y: cy + height/2},
		},
		UpperLid: Point{X: cx, Y: upper},
		LowerLid: Point{X: cx, Y: cy + height/2},
	}
}

func face(dx, ratio, height float64) Landmarks {
	return Landmarks{
		Left:  eye(0.625, 0.5, 0.125, height, dx, ratio),
		Right: eye(0.375, 0.5, 0.125, height, dx, ratio),
	}
}

func TestClassifyCentredIsFocused(t *testing.T) {
	v, err := Evaluate(face(0, 0.5, 0.03125))
	require.NoError(t, err)

	assert.Zero(t, v.LeftHorizontal)
	assert.Zero(t, v.RightHorizontal)
	assert.Equal(t, 0.5, v.VerticalAverage)
	assert.False(t, v.EyesClosed)
	assert.True(t, v.Focused)
	assert.True(t, Classify(face(0, 0.5, 0.03125)))
}

func TestClassifyCentredProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 200; i++ {
		cx := 0.2 + rng.Float64()*0.6
		cy := 0.2 + rng.Float64()*0.6
		width := 0.02 + rng.Float64()*0.1
		height := 0.002 + rng.Float64()*0.05

		lm := Landmarks{
			Left:  eye(cx, cy, width, height, 0, 0.5),
			Right: eye(cx-0.1, cy, width, height, 0, 0.5),
		}
		require.Truef(t, Classify(lm), "case %d: cx=%v cy=%v w=%v h=%v", i, cx, cy, width, height)
	}
}

func TestClassifyClosedEyes(t *testing.T) {
	v, err := Evaluate(face(0, 0.5, 0.001))
	require.NoError(t, err)
	assert.True(t, v.EyesClosed)
	assert.False(t, v.Focused)

	// closed wins over any horizontal alignment
	for _, dx := range []float64{0, 0.001, 0.05} {
		assert.False(t, Classify(face(dx, 0.5, 0.001)))
	}
}

func TestClassifyHorizontalOffset(t *testing.T) {
	// 0.03125 / 0.125 = 0.25 of eye width
	v, err := Evaluate(face(0.03125, 0.5, 0.03125))
	require.NoError(t, err)
	assert.InDelta(t, 0.25, v.LeftHorizontal, 1e-9)
	assert.False(t, v.HorizontalFocused)
	assert.False(t, v.Focused)

	// 0.015625 / 0.125 = 0.125, inside the threshold
	assert.True(t, Classify(face(0.015625, 0.5, 0.03125)))
}

func TestClassifyHorizontalOneEyeOff(t *testing.T) {
	lm := face(0, 0.5, 0.03125)
	lm.Right = eye(0.375, 0.5, 0.125, 0.03125, 0.03125, 0.5)
	assert.False(t, Classify(lm))
}

func TestClassifyVerticalBand(t *testing.T) {
	cases := []struct {
		name  string
		ratio float64
		want  bool
	}{
		{"looking up", 0.1875, false},
		{"upper band", 0.25, true},
		{"centre", 0.5, true},
		{"lower band", 0.625, true},
		{"looking down", 0.6875, false},
		{"below lower lid", 0.9375, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Classify(face(0, tc.ratio, 0.25)))
		})
	}
}

func TestClassifyDegenerateVerticalFallsBackToHorizontal(t *testing.T) {
	v, err := Evaluate(face(0, 1.5, 0.25))
	require.NoError(t, err)
	assert.Greater(t, v.VerticalAverage, 1.0)
	assert.True(t, v.Focused)

	assert.False(t, Classify(face(0.03125, 1.5, 0.25)))
}

func TestClassifyZeroWidthEye(t *testing.T) {
	lm := face(0, 0.5, 0.03125)
	for i := range lm.Left.Contour {
		lm.Left.Contour[i].X = 0.625
	}
	v, err := Evaluate(lm)
	require.NoError(t, err)
	assert.Zero(t, v.LeftHorizontal)
	assert.True(t, v.Focused)
}

func TestClassifyOneFlatEyeUsesNeutralRatio(t *testing.T) {
	lm := face(0, 0.25, 0.03125)
	lm.Right.LowerLid.Y = lm.Right.UpperLid.Y

	v, err := Evaluate(lm)
	require.NoError(t, err)
	assert.False(t, v.EyesClosed)
	assert.InDelta(t, (0.25+0.5)/2, v.VerticalAverage, 1e-9)
	assert.True(t, v.Focused)
}

func TestClassifyInvalidInput(t *testing.T) {
	assert.False(t, Classify(Landmarks{}))

	lm := face(0, 0.5, 0.03125)
	lm.Left.Iris = lm.Left.Iris[:3]
	assert.False(t, Classify(lm))

	lm = face(0, 0.5, 0.03125)
	lm.Right.Contour = append(lm.Right.Contour, Point{})
	assert.False(t, Classify(lm))

	lm = face(0, 0.5, 0.03125)
	lm.Left.UpperLid.Y = math.NaN()
	assert.False(t, Classify(lm))

	lm = face(0, 0.5, 0.03125)
	lm.Right.Iris[0].X = math.Inf(1)
	assert.False(t, Classify(lm))

	_, err := Evaluate(Landmarks{})
	assert.Error(t, err)
}

func mesh(lm Landmarks) []Point {
	pts := make([]Point, 478)
	put := func(idx []int, src []Point) {
		for i, j := range idx {
			pts[j] = src[i]
		}
	}
	put(leftIrisIdx, lm.Left.Iris)
	put(leftContourIdx, lm.Left.Contour)
	put(rightIrisIdx, lm.Right.Iris)
	put(rightContourIdx, lm.Right.Contour)
	pts[leftUpperLidIdx] = lm.Left.UpperLid
	pts[leftLowerLidIdx] = lm.Left.LowerLid
	pts[rightUpperLidIdx] = lm.Right.UpperLid
	pts[rightLowerLidIdx] = lm.Right.LowerLid
	return pts
}

func TestClassifyMesh(t *testing.T) {
	assert.True(t, ClassifyMesh(mesh(face(0, 0.5, 0.03125))))
	assert.False(t, ClassifyMesh(mesh(face(0, 0.5, 0.001))))
}

func TestClassifyMeshMissingPoints(t *testing.T) {
	assert.False(t, ClassifyMesh(nil))
	assert.False(t, ClassifyMesh(make([]Point, 468)))

	_, err := FromMesh(make([]Point, 400))
	assert.ErrorIs(t, err, errMeshIndex)
}

func TestFromMeshPairsLidsWithContour(t *testing.T) {
	want := face(0, 0.5, 0.03125)
	lm, err := FromMesh(mesh(want))
	require.NoError(t, err)
	assert.Equal(t, want, lm)
}
