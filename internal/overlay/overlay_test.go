package overlay

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/rbright/bingocat/internal/animation"
	"github.com/rbright/bingocat/internal/sprite"
	"github.com/stretchr/testify/require"
)

func newTickOverlay(ctx context.Context, quit <-chan struct{}, drained *int) *Overlay {
	return &Overlay{
		drain: func() int { *drained++; return 0 },
		quit:  quit,
		ctx:   ctx,
	}
}

func TestTickDrainsBeforeCheckingQuit(t *testing.T) {
	drained := 0
	quit := make(chan struct{})
	o := newTickOverlay(context.Background(), quit, &drained)

	require.NoError(t, o.tick())
	require.Equal(t, 1, drained)

	close(quit)
	require.True(t, errors.Is(o.tick(), ebiten.Termination))
	require.Equal(t, 2, drained)
}

func TestTickTerminatesOnContextCancel(t *testing.T) {
	drained := 0
	ctx, cancel := context.WithCancel(context.Background())
	o := newTickOverlay(ctx, nil, &drained)

	require.NoError(t, o.tick())
	cancel()
	require.ErrorIs(t, o.tick(), ebiten.Termination)
}

func TestNewRequiresCallbacks(t *testing.T) {
	_, err := New(Options{Set: sprite.Set{Dir: t.TempDir()}})
	require.Error(t, err)
}

func TestLayoutUsesWindowSize(t *testing.T) {
	o := &Overlay{width: 200, height: 150}
	w, h := o.Layout(1920, 1080)
	require.Equal(t, 200, w)
	require.Equal(t, 150, h)
}

// writeFrames writes one PNG per frame into dir, using sizes[frame] when set.
func writeFrames(t *testing.T, dir string, sizes map[animation.Frame][2]int) sprite.Set {
	t.Helper()

	for _, frame := range animation.Frames {
		size, ok := sizes[frame]
		if !ok {
			size = [2]int{40, 30}
		}
		img := image.NewNRGBA(image.Rect(0, 0, size[0], size[1]))
		img.Set(0, 0, color.NRGBA{R: 255, A: 255})

		f, err := os.Create(filepath.Join(dir, sprite.FrameFiles[frame]))
		require.NoError(t, err)
		require.NoError(t, png.Encode(f, img))
		require.NoError(t, f.Close())
	}
	return sprite.Set{Name: sprite.DefaultSet, Dir: dir}
}

func testOptions(set sprite.Set, logger *slog.Logger) Options {
	return Options{
		Logger: logger,
		Set:    set,
		Scale:  0.5,
		Drain:  func() int { return 0 },
		Frame:  func() animation.Frame { return animation.Idle },
	}
}

func TestNewLoadsEveryFrameAndScalesWindow(t *testing.T) {
	set := writeFrames(t, t.TempDir(), nil)

	o, err := New(testOptions(set, nil))
	require.NoError(t, err)
	require.Len(t, o.images, len(animation.Frames))

	w, h := o.Size()
	require.Equal(t, 20, w)
	require.Equal(t, 15, h)
}

func TestNewWarnsWhenFrameSizesDiffer(t *testing.T) {
	set := writeFrames(t, t.TempDir(), map[animation.Frame][2]int{animation.RightHand: {64, 30}})

	var logs bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logs, nil))

	o, err := New(testOptions(set, logger))
	require.NoError(t, err)

	w, h := o.Size()
	require.Equal(t, 20, w)
	require.Equal(t, 15, h)
	require.Contains(t, logs.String(), "frame size differs from idle frame")
	require.Contains(t, logs.String(), `"frame":"right_hand"`)
	require.Contains(t, logs.String(), `"size":"64x30"`)
}

func TestNewFailsOnMissingFrame(t *testing.T) {
	dir := t.TempDir()
	set := writeFrames(t, dir, nil)
	require.NoError(t, os.Remove(set.Path(animation.LeftHand)))

	_, err := New(testOptions(set, nil))
	require.Error(t, err)
	require.Contains(t, err.Error(), "load left_hand image")
}

func TestImageForFallsBackToIdle(t *testing.T) {
	idle := ebiten.NewImage(1, 1)
	left := ebiten.NewImage(1, 1)
	right := ebiten.NewImage(1, 1)

	tests := []struct {
		name   string
		images map[animation.Frame]*ebiten.Image
		frame  animation.Frame
		want   *ebiten.Image
	}{
		{name: "idle", images: map[animation.Frame]*ebiten.Image{animation.Idle: idle, animation.LeftHand: left, animation.RightHand: right}, frame: animation.Idle, want: idle},
		{name: "left", images: map[animation.Frame]*ebiten.Image{animation.Idle: idle, animation.LeftHand: left, animation.RightHand: right}, frame: animation.LeftHand, want: left},
		{name: "right", images: map[animation.Frame]*ebiten.Image{animation.Idle: idle, animation.LeftHand: left, animation.RightHand: right}, frame: animation.RightHand, want: right},
		{name: "unknown frame", images: map[animation.Frame]*ebiten.Image{animation.Idle: idle, animation.LeftHand: left}, frame: animation.Frame(9), want: idle},
		{name: "missing image", images: map[animation.Frame]*ebiten.Image{animation.Idle: idle}, frame: animation.RightHand, want: idle},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := &Overlay{images: tt.images}
			require.Same(t, tt.want, o.imageFor(tt.frame))
		})
	}
}

func TestGrabStepFollowsCursorWhileHeld(t *testing.T) {
	type tick struct {
		justPressed, held bool
		x, y              int
		dx, dy            int
	}
	tests := []struct {
		name  string
		ticks []tick
	}{
		{
			name: "hover without press",
			ticks: []tick{
				{x: 10, y: 10},
				{x: 30, y: 5},
			},
		},
		{
			name: "press and drag",
			ticks: []tick{
				{justPressed: true, held: true, x: 10, y: 12},
				{held: true, x: 15, y: 12, dx: 5},
				{held: true, x: 10, y: 9, dy: -3},
			},
		},
		{
			name: "release ends drag",
			ticks: []tick{
				{justPressed: true, held: true, x: 4, y: 4},
				{held: false, x: 20, y: 20},
				{held: true, x: 30, y: 30},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var g grab
			for i, step := range tt.ticks {
				dx, dy := g.step(step.justPressed, step.held, step.x, step.y)
				require.Equal(t, step.dx, dx, "tick %d", i)
				require.Equal(t, step.dy, dy, "tick %d", i)
			}
		})
	}
}
