// Package audio handles output-device discovery and loopback sample capture.
package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/jfreymuth/pulse"
	pulseproto "github.com/jfreymuth/pulse/proto"
)

const (
	sampleRate   = 44100
	blockSamples = sampleRate / 50 // 20ms mono float32
	blockQueue   = 32
)

// Device describes one Pulse output sink whose monitor can be captured.
type Device struct {
	ID          string
	Description string
	Monitor     string
	State       string
	Available   bool
	Muted       bool
	Default     bool
}

// Selection is the resolved loopback sink plus optional fallback warning context.
type Selection struct {
	Device   Device
	Warning  string
	Fallback bool
}

func newClient() (*pulse.Client, error) {
	client, err := pulse.NewClient(
		pulse.ClientApplicationName("bingocat"),
		pulse.ClientApplicationIconName("audio-card"),
	)
	if err != nil {
		return nil, fmt.Errorf("connect pulse server: %w", err)
	}
	return client, nil
}

// ListDevices returns Pulse output sinks with default/availability metadata.
func ListDevices(_ context.Context) ([]Device, error) {
	client, err := newClient()
	if err != nil {
		return nil, err
	}
	defer client.Close()

	defaultSink, err := client.DefaultSink()
	if err != nil {
		return nil, fmt.Errorf("read default sink: %w", err)
	}
	defaultID := defaultSink.ID()

	var sinkInfos pulseproto.GetSinkInfoListReply
	if err := client.RawRequest(&pulseproto.GetSinkInfoList{}, &sinkInfos); err != nil {
		return nil, fmt.Errorf("list sinks: %w", err)
	}

	devices := make([]Device, 0, len(sinkInfos))
	for _, sink := range sinkInfos {
		if sink == nil {
			continue
		}
		devices = append(devices, Device{
			ID:          sink.SinkName,
			Description: sink.Device,
			Monitor:     sink.MonitorSourceName,
			State:       sinkStateString(sink.State),
			Available:   sinkAvailable(sink),
			Muted:       sink.Mute,
			Default:     sink.SinkName == defaultID,
		})
	}
	return devices, nil
}

// SelectDevice resolves the soundSink preference against live sinks.
func SelectDevice(ctx context.Context, preference string) (Selection, error) {
	devices, err := ListDevices(ctx)
	if err != nil {
		return Selection{}, err
	}
	return selectDeviceFromList(devices, preference)
}

// selectDeviceFromList matches preference by id or description and falls back
// to the default sink when the preferred one is missing or unavailable.
func selectDeviceFromList(devices []Device, preference string) (Selection, error) {
	if len(devices) == 0 {
		return Selection{}, errors.New("no audio output devices found")
	}

	var (
		defaultDevice *Device
		preferred     *Device
	)

	preference = strings.TrimSpace(strings.ToLower(preference))

	for i := range devices {
		dev := &devices[i]
		if dev.Default {
			defaultDevice = dev
		}
		if preferred == nil && preference != "" && preference != "default" && deviceMatches(*dev, preference) {
			preferred = dev
		}
	}

	if preferred != nil && preferred.Available && preferred.Monitor != "" {
		return Selection{Device: *preferred}, nil
	}

	if defaultDevice == nil {
		return Selection{}, errors.New("default audio sink is unavailable")
	}
	if defaultDevice.Monitor == "" {
		return Selection{}, fmt.Errorf("default sink %q has no monitor source", defaultDevice.ID)
	}

	if preference == "" || preference == "default" {
		return Selection{Device: *defaultDevice}, nil
	}

	reason := "did not match any sink"
	if preferred != nil {
		reason = fmt.Sprintf("matched %q which is unavailable", preferred.ID)
	}
	return Selection{
		Device:   *defaultDevice,
		Warning:  fmt.Sprintf("soundSink %q %s; falling back to %q", preference, reason, defaultDevice.ID),
		Fallback: true,
	}, nil
}

// deviceMatches reports whether a search term matches a device id or description.
func deviceMatches(device Device, term string) bool {
	if term == "" {
		return false
	}
	id := strings.ToLower(device.ID)
	desc := strings.ToLower(device.Description)
	return strings.Contains(id, term) || strings.Contains(desc, term)
}

// Capture streams fixed-size float32 blocks from one sink monitor.
//
// Blocks are produced on the Pulse client goroutine. When the consumer falls
// behind, whole blocks are dropped rather than stalling the stream.
type Capture struct {
	device Device

	client *pulse.Client
	stream *pulse.RecordStream

	blocks chan []float32
	stopCh chan struct{}

	mu      sync.Mutex
	pending []float32
	stopped bool

	inflight sync.WaitGroup
	samples  atomic.Int64
	dropped  atomic.Int64
}

// StartLoopback creates and starts a mono float32 record stream on the
// monitor source of selected.
func StartLoopback(ctx context.Context, selected Device) (*Capture, error) {
	if strings.TrimSpace(selected.Monitor) == "" {
		return nil, fmt.Errorf("sink %q has no monitor source", selected.ID)
	}

	client, err := newClient()
	if err != nil {
		return nil, err
	}

	source, err := client.SourceByID(selected.Monitor)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("resolve monitor source %q: %w", selected.Monitor, err)
	}

	capture := newCapture(selected)
	capture.client = client

	stream, err := client.NewRecord(
		pulse.Float32Writer(capture.onSamples),
		pulse.RecordSource(source),
		pulse.RecordMono,
		pulse.RecordSampleRate(sampleRate),
		pulse.RecordBufferFragmentSize(blockSamples*4),
		pulse.RecordMediaName("bingocat loopback"),
	)
	if err != nil {
		capture.Close()
		return nil, fmt.Errorf("create pulse record stream: %w", err)
	}

	capture.stream = stream
	stream.Start()

	go func() {
		select {
		case <-ctx.Done():
			_ = capture.Stop()
		case <-capture.stopCh:
		}
	}()

	return capture, nil
}

func newCapture(device Device) *Capture {
	return &Capture{
		device: device,
		blocks: make(chan []float32, blockQueue),
		stopCh: make(chan struct{}),
	}
}

// Device returns capture metadata for logging and diagnostics.
func (c *Capture) Device() Device {
	return c.device
}

// Blocks returns the sample stream as fixed-size blocks. It is closed by Stop.
func (c *Capture) Blocks() <-chan []float32 {
	return c.blocks
}

// SamplesCaptured reports total samples accepted from Pulse.
func (c *Capture) SamplesCaptured() int64 {
	return c.samples.Load()
}

// BlocksDropped reports blocks discarded because the consumer fell behind.
func (c *Capture) BlocksDropped() int64 {
	return c.dropped.Load()
}

// Stop halts the stream and closes Blocks exactly once. It is a no-op on a
// nil or already stopped capture.
func (c *Capture) Stop() error {
	if c == nil {
		return nil
	}

	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return nil
	}
	c.stopped = true
	close(c.stopCh)
	c.mu.Unlock()

	if c.stream != nil {
		c.stream.Stop()
		c.stream.Close()
	}
	if c.client != nil {
		c.client.Close()
	}

	c.inflight.Wait()

	c.mu.Lock()
	c.pending = nil
	c.mu.Unlock()

	close(c.blocks)
	return nil
}

// Close is a convenience alias for Stop.
func (c *Capture) Close() error {
	return c.Stop()
}

// onSamples receives raw Pulse samples and emits blockSamples slices to c.blocks.
func (c *Capture) onSamples(buffer []float32) (int, error) {
	if len(buffer) == 0 {
		return 0, nil
	}

	select {
	case <-c.stopCh:
		return 0, io.EOF
	default:
	}

	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return 0, io.EOF
	}
	// Guard Add under the same mutex as c.stopped to avoid Add/Wait races.
	c.inflight.Add(1)

	c.pending = append(c.pending, buffer...)

	blocks := make([][]float32, 0, len(c.pending)/blockSamples)
	for len(c.pending) >= blockSamples {
		block := make([]float32, blockSamples)
		copy(block, c.pending[:blockSamples])
		c.pending = c.pending[blockSamples:]
		blocks = append(blocks, block)
	}
	c.mu.Unlock()
	defer c.inflight.Done()

	c.samples.Add(int64(len(buffer)))

	for _, block := range blocks {
		select {
		case c.blocks <- block:
		default:
			c.dropped.Add(1)
		}
	}

	return len(buffer), nil
}

// sinkStateString maps Pulse sink state constants to human-readable values.
func sinkStateString(state uint32) string {
	switch state {
	case 0:
		return "running"
	case 1:
		return "idle"
	case 2:
		return "suspended"
	default:
		return fmt.Sprintf("unknown(%d)", state)
	}
}

// sinkAvailable maps Pulse sink port availability to a simple boolean.
func sinkAvailable(sink *pulseproto.GetSinkInfoReply) bool {
	if sink == nil {
		return false
	}
	if len(sink.Ports) == 0 {
		return true
	}
	for _, port := range sink.Ports {
		if port.Name != sink.ActivePortName {
			continue
		}
		// PulseAudio values: unknown=0, no=1, yes=2.
		return port.Available == 0 || port.Available == 2
	}
	return true
}
