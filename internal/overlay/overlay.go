// Package overlay renders the cat in a borderless, floating, transparent window.
package overlay

import (
	"context"
	"errors"
	"fmt"
	_ "image/png"
	"log/slog"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"github.com/rbright/bingocat/internal/animation"
	"github.com/rbright/bingocat/internal/logging"
	"github.com/rbright/bingocat/internal/sprite"
)

const windowTitle = "bingocat"

// Options wires the window to the rest of the run.
type Options struct {
	Logger  *slog.Logger
	Set     sprite.Set
	Scale   float64
	XOffset int
	YOffset int

	// Drain runs queued UI tasks; it is called first on every tick.
	Drain func() int
	// Frame reports the frame to paint.
	Frame func() animation.Frame
	// Quit closes when the run should end.
	Quit <-chan struct{}
}

// Overlay is the ebiten game driving the cat window.
type Overlay struct {
	logger  *slog.Logger
	images  map[animation.Frame]*ebiten.Image
	scale   float64
	width   int
	height  int
	xOffset int
	yOffset int

	drain func() int
	frame func() animation.Frame
	quit  <-chan struct{}
	ctx   context.Context

	placed bool
	grab   grab
}

// New loads every frame image of set. All frames must share one size.
func New(opts Options) (*Overlay, error) {
	if opts.Drain == nil || opts.Frame == nil {
		return nil, errors.New("overlay requires drain and frame callbacks")
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	images := make(map[animation.Frame]*ebiten.Image, len(animation.Frames))
	var imageW, imageH int
	for _, frame := range animation.Frames {
		path := opts.Set.Path(frame)
		img, _, err := ebitenutil.NewImageFromFile(path)
		if err != nil {
			return nil, fmt.Errorf("load %s image %s: %w", frame, path, err)
		}
		w, h := img.Bounds().Dx(), img.Bounds().Dy()
		if frame == animation.Idle {
			imageW, imageH = w, h
		} else if w != imageW || h != imageH {
			logger.Warn("frame size differs from idle frame",
				"frame", frame.String(),
				"size", fmt.Sprintf("%dx%d", w, h),
				"idle_size", fmt.Sprintf("%dx%d", imageW, imageH),
			)
		}
		images[frame] = img
	}

	width, height := sprite.WindowSize(imageW, imageH, opts.Scale)
	return &Overlay{
		logger:  logger,
		images:  images,
		scale:   opts.Scale,
		width:   width,
		height:  height,
		xOffset: opts.XOffset,
		yOffset: opts.YOffset,
		drain:   opts.Drain,
		frame:   opts.Frame,
		quit:    opts.Quit,
		ctx:     context.Background(),
	}, nil
}

// Size returns the window size in pixels.
func (o *Overlay) Size() (int, int) {
	return o.width, o.height
}

// Run blocks in the UI loop until ctx is done, Quit closes, or the window is
// closed. It must be called from the main goroutine.
func (o *Overlay) Run(ctx context.Context) error {
	o.ctx = ctx

	ebiten.SetWindowTitle(windowTitle)
	ebiten.SetWindowSize(o.width, o.height)
	ebiten.SetWindowDecorated(false)
	ebiten.SetWindowFloating(true)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeDisabled)
	ebiten.SetRunnableOnUnfocused(true)

	err := ebiten.RunGameWithOptions(o, &ebiten.RunGameOptions{
		ScreenTransparent: true,
		SkipTaskbar:       true,
		InitUnfocused:     true,
	})
	if err != nil && !errors.Is(err, ebiten.Termination) {
		return fmt.Errorf("run overlay window: %w", err)
	}
	return nil
}

// Update is called by ebiten once per tick on the UI goroutine.
func (o *Overlay) Update() error {
	if err := o.tick(); err != nil {
		return err
	}
	if !o.placed {
		o.place()
	}
	o.drag()
	return nil
}

// tick drains queued work and reports ebiten.Termination once the run should end.
func (o *Overlay) tick() error {
	o.drain()
	if o.ctx.Err() != nil {
		return ebiten.Termination
	}
	select {
	case <-o.quit:
		return ebiten.Termination
	default:
		return nil
	}
}

func (o *Overlay) place() {
	screenW, screenH := ebiten.Monitor().Size()
	if screenW <= 0 || screenH <= 0 {
		return
	}
	x, y := sprite.Place(screenW, screenH, o.width, o.height, o.xOffset, o.yOffset)
	ebiten.SetWindowPosition(x, y)
	o.placed = true
	o.logger.Debug("overlay placed", "x", x, "y", y, "screen_w", screenW, "screen_h", screenH)
}

// grab tracks a left-button drag. Cursor positions are window-relative, so
// keeping the grab point under the cursor means moving the window by the
// cursor's offset from it.
type grab struct {
	active bool
	x, y   int
}

// step consumes one tick of mouse state and returns how far to move the window.
func (g *grab) step(justPressed, held bool, cursorX, cursorY int) (dx, dy int) {
	if justPressed {
		g.active = true
		g.x, g.y = cursorX, cursorY
	}
	if !held {
		g.active = false
		return 0, 0
	}
	if !g.active {
		return 0, 0
	}
	return cursorX - g.x, cursorY - g.y
}

func (o *Overlay) drag() {
	cursorX, cursorY := ebiten.CursorPosition()
	dx, dy := o.grab.step(
		inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft),
		ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft),
		cursorX, cursorY,
	)
	if dx == 0 && dy == 0 {
		return
	}
	winX, winY := ebiten.WindowPosition()
	ebiten.SetWindowPosition(winX+dx, winY+dy)
}

// Draw paints the current frame scaled to the window.
func (o *Overlay) Draw(screen *ebiten.Image) {
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(o.scale, o.scale)
	op.Filter = ebiten.FilterLinear
	screen.DrawImage(o.imageFor(o.frame()), op)
}

// imageFor returns the image painted for frame, falling back to Idle.
func (o *Overlay) imageFor(frame animation.Frame) *ebiten.Image {
	if img, ok := o.images[frame]; ok {
		return img
	}
	return o.images[animation.Idle]
}

// Layout keeps one logical pixel per window pixel.
func (o *Overlay) Layout(int, int) (int, int) {
	return o.width, o.height
}
