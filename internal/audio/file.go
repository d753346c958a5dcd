package audio

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/flac"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/wav"
)

// ErrUnsupportedFormat reports a recording extension no decoder handles.
var ErrUnsupportedFormat = errors.New("unsupported audio file type")

// DefaultBlockDuration matches the loopback capture block length.
const DefaultBlockDuration = 20 * time.Millisecond

// Recording is a decoded audio file ready to be replayed block by block.
type Recording struct {
	Path     string
	Format   beep.Format
	streamer beep.StreamSeekCloser
	file     *os.File
}

// Close releases the decoder and the underlying file.
func (r *Recording) Close() error {
	if r == nil {
		return nil
	}
	var errs []error
	if r.streamer != nil {
		errs = append(errs, r.streamer.Close())
	}
	if r.file != nil {
		if err := r.file.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Duration reports the decoded length of the recording.
func (r *Recording) Duration() time.Duration {
	return r.Format.SampleRate.D(r.streamer.Len())
}

// OpenRecording decodes a wav, mp3, or flac file.
func OpenRecording(path string) (*Recording, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open recording: %w", err)
	}

	var (
		streamer beep.StreamSeekCloser
		format   beep.Format
	)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".wav":
		streamer, format, err = wav.Decode(f)
	case ".mp3":
		streamer, format, err = mp3.Decode(f)
	case ".flac":
		streamer, format, err = flac.Decode(f)
	default:
		_ = f.Close()
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("decode recording %q: %w", path, err)
	}

	return &Recording{Path: path, Format: format, streamer: streamer, file: f}, nil
}

// Block is one replayed chunk of a recording.
type Block struct {
	Index   int
	Offset  time.Duration
	Samples []float32
}

// Blocks replays the recording as mono float32 blocks of blockDuration,
// calling emit for each until the stream ends, ctx is done, or emit fails.
func (r *Recording) Blocks(ctx context.Context, blockDuration time.Duration, emit func(Block) error) error {
	return StreamBlocks(ctx, r.streamer, r.Format, blockDuration, emit)
}

// StreamBlocks reads frames from streamer and downmixes each to one sample,
// the channel average, so block RMS matches a mono loopback capture.
func StreamBlocks(ctx context.Context, streamer beep.Streamer, format beep.Format, blockDuration time.Duration, emit func(Block) error) error {
	if blockDuration <= 0 {
		blockDuration = DefaultBlockDuration
	}
	frames := max(format.SampleRate.N(blockDuration), 1)
	stereo := format.NumChannels != 1

	buf := make([][2]float64, frames)
	consumed := 0
	for index := 0; ; index++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		n, ok := streamer.Stream(buf)
		if n > 0 {
			samples := make([]float32, n)
			for i, frame := range buf[:n] {
				if stereo {
					samples[i] = float32((frame[0] + frame[1]) / 2)
				} else {
					samples[i] = float32(frame[0])
				}
			}
			block := Block{Index: index, Offset: format.SampleRate.D(consumed), Samples: samples}
			consumed += n
			if err := emit(block); err != nil {
				return err
			}
		}
		if !ok || n == 0 {
			if err := streamer.Err(); err != nil {
				return fmt.Errorf("stream recording: %w", err)
			}
			return nil
		}
	}
}
