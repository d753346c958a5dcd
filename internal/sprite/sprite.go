// Package sprite resolves the on-disk image set and the overlay geometry.
package sprite

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/rbright/bingocat/internal/animation"
)

// DefaultSet is the image set used when the configured one is missing.
const DefaultSet = "default"

// ErrSetNotFound means neither the requested nor the default set is complete.
var ErrSetNotFound = errors.New("image set not found")

// FrameFiles names the image file for each animation frame.
var FrameFiles = map[animation.Frame]string{
	animation.Idle:      "catBothDown.png",
	animation.LeftHand:  "catLeftHand.png",
	animation.RightHand: "catRightHand.png",
}

// Set is a resolved image set directory.
type Set struct {
	Name     string
	Dir      string
	Fallback bool
}

// Path returns the image file for frame.
func (s Set) Path(frame animation.Frame) string {
	return filepath.Join(s.Dir, FrameFiles[frame])
}

// Resolve finds name under root, falling back to DefaultSet when any frame
// image of name is missing.
func Resolve(root, name string) (Set, error) {
	if name != "" {
		dir := filepath.Join(root, name)
		if missing := missingFrames(dir); len(missing) == 0 {
			return Set{Name: name, Dir: dir}, nil
		}
	}

	dir := filepath.Join(root, DefaultSet)
	missing := missingFrames(dir)
	if len(missing) > 0 {
		return Set{}, fmt.Errorf("%w: %q and %q under %s (missing %v)", ErrSetNotFound, name, DefaultSet, root, missing)
	}
	return Set{Name: DefaultSet, Dir: dir, Fallback: name != DefaultSet}, nil
}

func missingFrames(dir string) []string {
	var missing []string
	for _, frame := range animation.Frames {
		file := FrameFiles[frame]
		info, err := os.Stat(filepath.Join(dir, file))
		if err != nil || info.IsDir() {
			missing = append(missing, file)
		}
	}
	return missing
}

// WindowSize scales an image size, never going below one pixel.
func WindowSize(imageW, imageH int, scale float64) (int, int) {
	w := int(math.Round(float64(imageW) * scale))
	h := int(math.Round(float64(imageH) * scale))
	return max(w, 1), max(h, 1)
}

// Place returns the window's top-left corner: offset from the bottom-right
// screen corner, clamped so the window stays on screen.
func Place(screenW, screenH, winW, winH, xOffset, yOffset int) (int, int) {
	x := screenW - winW - xOffset
	y := screenH - winH - yOffset
	return clamp(x, 0, screenW-winW), clamp(y, 0, screenH-winH)
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		return lo
	}
	return min(max(v, lo), hi)
}
