package pose

import "pose-relay-go/internal/types"

// NumLandmarks is the size of the full-body landmark topology.
const NumLandmarks = 33

// connections are the model-defined skeleton edges, indexed into the
// 33-landmark topology.
var connections = [][2]int{
	{0, 1}, {1, 2}, {2, 3}, {3, 7}, {0, 4}, {4, 5}, {5, 6}, {6, 8},
	{9, 10},
	{11, 12}, {11, 13}, {13, 15}, {15, 17}, {15, 19}, {15, 21}, {17, 19},
	{12, 14}, {14, 16}, {16, 18}, {16, 20}, {16, 22}, {18, 20},
	{11, 23}, {12, 24}, {23, 24},
	{23, 25}, {24, 26}, {25, 27}, {26, 28},
	{27, 29}, {28, 30}, {29, 31}, {30, 32}, {27, 31}, {28, 32},
}

const minVisibility = 0.5

// Annotate draws the skeleton overlay onto the frame in place. Landmark
// X and Y are interpreted as coordinates normalized to the frame size;
// joints below the visibility threshold are left out. Callers must not
// invoke Annotate with an empty set.
func Annotate(frame *types.PixelBuffer, set types.LandmarkSet) {
	for _, conn := range connections {
		if conn[0] >= len(set) || conn[1] >= len(set) {
			continue
		}
		a, b := set[conn[0]], set[conn[1]]
		if a.Visibility < minVisibility || b.Visibility < minVisibility {
			continue
		}
		drawLine(frame,
			int(a.X*float32(frame.Width)), int(a.Y*float32(frame.Height)),
			int(b.X*float32(frame.Width)), int(b.Y*float32(frame.Height)))
	}
	for _, lm := range set {
		if lm.Visibility < minVisibility {
			continue
		}
		drawJoint(frame, int(lm.X*float32(frame.Width)), int(lm.Y*float32(frame.Height)))
	}
}

// drawLine draws a green segment clipped to the frame (Bresenham).
func drawLine(frame *types.PixelBuffer, x0, y0, x1, y1 int) {
	dx := absInt(x1 - x0)
	dy := -absInt(y1 - y0)
	sx := 1
	if x0 > x1 {
		sx = -1
	}
	sy := 1
	if y0 > y1 {
		sy = -1
	}
	err := dx + dy
	for {
		frame.Set(x0, y0, 0, 255, 0)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

// drawJoint marks a landmark with a small filled red square.
func drawJoint(frame *types.PixelBuffer, cx, cy int) {
	for y := cy - 2; y <= cy+2; y++ {
		for x := cx - 2; x <= cx+2; x++ {
			frame.Set(x, y, 0, 0, 255)
		}
	}
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
