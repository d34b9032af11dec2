package stream

import (
	"context"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	gozxing "github.com/makiuchi-d/gozxing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/framescan/internal/barcode"
	"github.com/MeKo-Tech/framescan/internal/frame"
	"github.com/MeKo-Tech/framescan/internal/scanner"
	"github.com/MeKo-Tech/framescan/internal/testutil"
)

const payload = "HIMS-TEST-123"

// gateDecoder blocks every decode until release is closed.
type gateDecoder struct {
	entered chan struct{}
	release chan struct{}
	calls   atomic.Int32
}

func newGateDecoder() *gateDecoder {
	return &gateDecoder{entered: make(chan struct{}, 16), release: make(chan struct{})}
}

func (d *gateDecoder) Decode(*gozxing.BinaryBitmap) (barcode.Result, error) {
	n := d.calls.Add(1)
	d.entered <- struct{}{}
	<-d.release
	return barcode.Result{Format: barcode.FormatQR, Text: string(rune('A' + n - 1))}, nil
}

type collector struct {
	mu     sync.Mutex
	events []Event
}

func (c *collector) handle(e Event) {
	c.mu.Lock()
	c.events = append(c.events, e)
	c.mu.Unlock()
}

func (c *collector) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}

func (c *collector) snapshot() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Event(nil), c.events...)
}

func TestNew_Validation(t *testing.T) {
	h := func(Event) {}
	_, err := New(Config{Workers: 0}, nil, h)
	assert.Error(t, err)
	_, err = New(Config{Workers: 1, DebounceWindow: -time.Second}, nil, h)
	assert.Error(t, err)
	_, err = New(Config{Workers: 1}, nil, nil)
	assert.Error(t, err)
	s, err := New(DefaultConfig(), nil, h)
	require.NoError(t, err)
	assert.Equal(t, 1, s.Stats().Workers)
}

func TestSupplier_DropsUnconsumedFrames(t *testing.T) {
	dec := newGateDecoder()
	var c collector
	s, err := New(Config{Workers: 1}, scanner.NewBuilder().WithDecoder(dec), c.handle)
	require.NoError(t, err)
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	require.NoError(t, s.Publish(testutil.BlankFrame(16, 16, 0)))
	select {
	case <-dec.entered:
	case <-time.After(5 * time.Second):
		t.Fatal("worker never picked up the first frame")
	}

	// Worker is busy: the second frame waits and is replaced by the third.
	require.NoError(t, s.Publish(testutil.BlankFrame(16, 16, 0)))
	require.NoError(t, s.Publish(testutil.BlankFrame(16, 16, 0)))
	assert.Equal(t, uint64(1), s.Stats().Dropped)

	close(dec.release)
	require.Eventually(t, func() bool { return c.len() == 2 }, 5*time.Second, 10*time.Millisecond)

	events := c.snapshot()
	assert.Equal(t, uint64(1), events[0].Seq)
	assert.Equal(t, uint64(3), events[1].Seq)
	assert.NotEmpty(t, events[0].WorkerID)

	st := s.Stats()
	assert.Equal(t, uint64(3), st.Published)
	assert.Equal(t, uint64(2), st.Processed)
	assert.Equal(t, uint64(2), st.Decoded)
}

func TestSupplier_PublishDoesNotRetainCallerFrame(t *testing.T) {
	dec := newGateDecoder()
	close(dec.release)
	s, err := New(Config{Workers: 1}, scanner.NewBuilder().WithDecoder(dec), func(Event) {})
	require.NoError(t, err)

	f := testutil.BlankFrame(16, 16, 0)
	require.NoError(t, s.Publish(f))
	// The caller may reuse its buffer right away.
	f.Planes[0].Data[0] = 99

	s.mu.Lock()
	pending := s.slot
	s.mu.Unlock()
	require.NotNil(t, pending)
	assert.Equal(t, byte(0), pending.frame.Planes[0].Data[0])
	s.Stop()
}

func TestSupplier_DecodesAndDebounces(t *testing.T) {
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var clockMu sync.Mutex
	now := func() time.Time {
		clockMu.Lock()
		defer clockMu.Unlock()
		return clock
	}

	var c collector
	s, err := New(Config{Workers: 1, DebounceWindow: time.Second}, scanner.NewBuilder(), c.handle, WithClock(now))
	require.NoError(t, err)
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	f := testutil.SymbolFrame(t, payload, frame.SynthOptions{})
	publishAndWait := func(processed uint64) {
		require.NoError(t, s.Publish(f))
		require.Eventually(t, func() bool { return s.Stats().Processed == processed }, 10*time.Second, 10*time.Millisecond)
	}

	publishAndWait(1)
	publishAndWait(2)
	assert.Equal(t, 1, c.len())
	assert.Equal(t, uint64(1), s.Stats().Debounced)

	clockMu.Lock()
	clock = clock.Add(2 * time.Second)
	clockMu.Unlock()
	publishAndWait(3)
	assert.Equal(t, 2, c.len())

	for _, e := range c.snapshot() {
		assert.Equal(t, payload, e.Result.Text)
		assert.Equal(t, scanner.StatusDecoded, e.Result.Status)
	}
}

func TestSupplier_DeliverAll(t *testing.T) {
	var c collector
	s, err := New(Config{Workers: 2, DeliverAll: true}, scanner.NewBuilder(), c.handle)
	require.NoError(t, err)
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	require.NoError(t, s.Publish(testutil.NoiseFrame(t, testutil.SmallSize, 3, frame.SynthOptions{})))
	require.Eventually(t, func() bool { return c.len() == 1 }, 10*time.Second, 10*time.Millisecond)
	assert.False(t, c.snapshot()[0].Result.Found())
}

func TestSupplier_MalformedFrameKeepsWorkerAlive(t *testing.T) {
	var c collector
	s, err := New(Config{Workers: 1, DeliverAll: true}, scanner.NewBuilder(), c.handle)
	require.NoError(t, err)
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	bad := testutil.BlankFrame(16, 16, 0)
	bad.Width, bad.Height = math.MaxInt/4&^1, math.MaxInt/4&^1
	require.NoError(t, s.Publish(bad))
	require.Eventually(t, func() bool { return c.len() == 1 }, 10*time.Second, 10*time.Millisecond)
	assert.Equal(t, scanner.StatusMalformed, c.snapshot()[0].Result.Status)

	require.NoError(t, s.Publish(testutil.SymbolFrame(t, payload, frame.SynthOptions{})))
	require.Eventually(t, func() bool { return c.len() == 2 }, 10*time.Second, 10*time.Millisecond)
	assert.Equal(t, payload, c.snapshot()[1].Result.Text)
}

func TestSupplier_Lifecycle(t *testing.T) {
	s, err := New(Config{Workers: 1}, scanner.NewBuilder(), func(Event) {})
	require.NoError(t, err)

	assert.Error(t, s.Publish(nil))

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, s.Start(ctx))
	assert.Error(t, s.Start(ctx))

	cancel()
	require.Eventually(t, func() bool {
		return s.Publish(testutil.BlankFrame(16, 16, 0)) == ErrStopped
	}, 5*time.Second, 10*time.Millisecond)

	s.Stop()
	s.Stop()
	assert.ErrorIs(t, s.Start(context.Background()), ErrStopped)
}

func TestSupplier_StartFailsOnBadConfig(t *testing.T) {
	s, err := New(Config{Workers: 1}, scanner.NewBuilder().WithFormats("nope"), func(Event) {})
	require.NoError(t, err)
	assert.Error(t, s.Start(context.Background()))
}
