package animation

import "fmt"

// Frame is one of the three cat poses the overlay can show.
type Frame int

const (
	Idle Frame = iota
	LeftHand
	RightHand
)

// Frames lists every frame in display-resource order.
var Frames = []Frame{Idle, LeftHand, RightHand}

func (f Frame) String() string {
	switch f {
	case Idle:
		return "idle"
	case LeftHand:
		return "left_hand"
	case RightHand:
		return "right_hand"
	default:
		return fmt.Sprintf("frame(%d)", int(f))
	}
}
