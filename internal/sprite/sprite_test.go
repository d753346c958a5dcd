package sprite

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rbright/bingocat/internal/animation"
	"github.com/stretchr/testify/require"
)

func writeSet(t *testing.T, root, name string, files ...string) {
	t.Helper()
	dir := filepath.Join(root, name)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	for _, file := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, file), []byte("png"), 0o600))
	}
}

func allFrames() []string {
	return []string{"catBothDown.png", "catLeftHand.png", "catRightHand.png"}
}

func TestResolveConfiguredSet(t *testing.T) {
	root := t.TempDir()
	writeSet(t, root, "default", allFrames()...)
	writeSet(t, root, "tabby", allFrames()...)

	set, err := Resolve(root, "tabby")
	require.NoError(t, err)
	require.Equal(t, "tabby", set.Name)
	require.False(t, set.Fallback)
	require.Equal(t, filepath.Join(root, "tabby", "catLeftHand.png"), set.Path(animation.LeftHand))
}

func TestResolveFallsBackToDefault(t *testing.T) {
	root := t.TempDir()
	writeSet(t, root, "default", allFrames()...)
	writeSet(t, root, "partial", "catBothDown.png")

	for _, name := range []string{"missing", "partial", ""} {
		set, err := Resolve(root, name)
		require.NoError(t, err, name)
		require.Equal(t, DefaultSet, set.Name)
		require.True(t, set.Fallback)
		require.Equal(t, filepath.Join(root, "default", "catBothDown.png"), set.Path(animation.Idle))
	}
}

func TestResolveDefaultIsNotFallback(t *testing.T) {
	root := t.TempDir()
	writeSet(t, root, "default", allFrames()...)

	set, err := Resolve(root, "default")
	require.NoError(t, err)
	require.False(t, set.Fallback)
}

func TestResolveFailsWithoutDefault(t *testing.T) {
	root := t.TempDir()
	writeSet(t, root, "default", "catBothDown.png", "catLeftHand.png")

	_, err := Resolve(root, "tabby")
	require.ErrorIs(t, err, ErrSetNotFound)
	require.Contains(t, err.Error(), "catRightHand.png")
}

func TestFrameFilesCoverEveryFrame(t *testing.T) {
	for _, frame := range animation.Frames {
		require.NotEmpty(t, FrameFiles[frame], frame.String())
	}
}

func TestWindowSize(t *testing.T) {
	w, h := WindowSize(400, 300, 0.5)
	require.Equal(t, 200, w)
	require.Equal(t, 150, h)

	w, h = WindowSize(10, 10, 0.01)
	require.Equal(t, 1, w)
	require.Equal(t, 1, h)
}

func TestPlace(t *testing.T) {
	tests := []struct {
		name             string
		screenW, screenH int
		winW, winH       int
		xOffset, yOffset int
		wantX, wantY     int
	}{
		{name: "inside", screenW: 1920, screenH: 1080, winW: 200, winH: 150, xOffset: 40, yOffset: 60, wantX: 1680, wantY: 870},
		{name: "offset past left edge", screenW: 1920, screenH: 1080, winW: 200, winH: 150, xOffset: 3000, yOffset: 0, wantX: 0, wantY: 930},
		{name: "negative offset past bottom", screenW: 1920, screenH: 1080, winW: 200, winH: 150, xOffset: 0, yOffset: -120, wantX: 1720, wantY: 930},
		{name: "window larger than screen", screenW: 100, screenH: 100, winW: 200, winH: 150, xOffset: 0, yOffset: 0, wantX: 0, wantY: 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			x, y := Place(tc.screenW, tc.screenH, tc.winW, tc.winH, tc.xOffset, tc.yOffset)
			require.Equal(t, tc.wantX, x)
			require.Equal(t, tc.wantY, y)
		})
	}
}
