package gaze

import "errors"

// Point is a landmark position normalized to the frame width and height.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Eye holds the landmarks of one eye needed by the classifier.
type Eye struct {
	Iris     []Point // 4 boundary points
	Contour  []Point // 6 contour points, including both corners
	UpperLid Point
	LowerLid Point
}

// Landmarks is the classifier input for one face.
type Landmarks struct {
	Left  Eye
	Right Eye
}

const (
	irisPoints    = 4
	contourPoints = 6
)

var errMeshIndex = errors.New("landmark index out of range")

// MediaPipe refined face mesh indices (478 points with iris refinement).
var (
	leftIrisIdx     = []int{474, 475, 476, 477}
	rightIrisIdx    = []int{469, 470, 471, 472}
	leftContourIdx  = []int{362, 385, 387, 263, 373, 380}
	rightContourIdx = []int{33, 160, 158, 133, 153, 144}

	leftUpperLidIdx  = 386
	leftLowerLidIdx  = 374
	rightUpperLidIdx = 159
	rightLowerLidIdx = 145
)

// FromMesh picks the classifier landmarks out of a face mesh. Each eye takes
// the lids that belong to its own contour.
func FromMesh(mesh []Point) (Landmarks, error) {
	left, err := eyeFromMesh(mesh, leftIrisIdx, leftContourIdx, leftUpperLidIdx, leftLowerLidIdx)
	if err != nil {
		return Landmarks{}, err
	}
	right, err := eyeFromMesh(mesh, rightIrisIdx, rightContourIdx, rightUpperLidIdx, rightLowerLidIdx)
	if err != nil {
		return Landmarks{}, err
	}
	return Landmarks{Left: left, Right: right}, nil
}

func eyeFromMesh(mesh []Point, iris, contour []int, upper, lower int) (Eye, error) {
	pick := func(idx []int) ([]Point, error) {
		out := make([]Point, 0, len(idx))
		for _, i := range idx {
			if i < 0 || i >= len(mesh) {
				return nil, errMeshIndex
			}
			out = append(out, mesh[i])
		}
		return out, nil
	}

	irisPts, err := pick(iris)
	if err != nil {
		return Eye{}, err
	}
	contourPts, err := pick(contour)
	if err != nil {
		return Eye{}, err
	}
	lids, err := pick([]int{upper, lower})
	if err != nil {
		return Eye{}, err
	}
	return Eye{Iris: irisPts, Contour: contourPts, UpperLid: lids[0], LowerLid: lids[1]}, nil
}
