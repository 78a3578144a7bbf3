package locationsync

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gdugdh24/geopresence/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedWrite struct {
	id  uuid.UUID
	pos domain.Coordinates
	at  time.Time
}

type recordingWriter struct {
	mu     sync.Mutex
	writes []recordedWrite
	fail   error
}

func (w *recordingWriter) UpdateLocation(_ context.Context, id uuid.UUID, c domain.Coordinates, at time.Time) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.fail != nil {
		return w.fail
	}
	w.writes = append(w.writes, recordedWrite{id: id, pos: c, at: at})
	return nil
}

func (w *recordingWriter) count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.writes)
}

func (w *recordingWriter) setFail(err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.fail = err
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type observed struct {
	sample domain.LocationSample
	pushed bool
}

func startTracker(t *testing.T, tracker *Tracker, source GeoSource) (<-chan observed, func()) {
	t.Helper()
	seen := make(chan observed, 32)
	stop := tracker.Start(context.Background(), uuid.New(), source, func(s domain.LocationSample, pushed bool) {
		seen <- observed{sample: s, pushed: pushed}
	})
	t.Cleanup(stop)
	return seen, stop
}

func next(t *testing.T, seen <-chan observed) observed {
	t.Helper()
	select {
	case o := <-seen:
		return o
	case <-time.After(2 * time.Second):
		t.Fatal("tracker did not report a position")
		return observed{}
	}
}

func gps(c domain.Coordinates) domain.LocationSample {
	return domain.LocationSample{Coordinates: c, CapturedAt: time.Now(), Source: domain.SourceGPS}
}

func TestTrackerCoalescesWrites(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)}
	writer := &recordingWriter{}
	tracker := NewTracker(writer, syncConfig)
	tracker.now = clock.Now

	device := NewDeviceSource(0)
	seen, _ := startTracker(t, tracker, device)
	home := domain.Coordinates{Lat: -6.2088, Lon: 106.8456}

	device.Report(gps(home))
	assert.True(t, next(t, seen).pushed)

	clock.Advance(time.Minute)
	device.Report(gps(north(home, 0.2)))
	assert.False(t, next(t, seen).pushed)

	clock.Advance(time.Second)
	device.Report(gps(north(home, 0.6)))
	assert.True(t, next(t, seen).pushed)

	clock.Advance(15*time.Minute + time.Second)
	device.Report(gps(north(home, 0.6)))
	assert.True(t, next(t, seen).pushed)

	require.Equal(t, 3, writer.count())
	assert.Equal(t, home, writer.writes[0].pos)
}

func TestTrackerRetriesAfterFailedWrite(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)}
	writer := &recordingWriter{fail: errors.New("network down")}
	tracker := NewTracker(writer, syncConfig)
	tracker.now = clock.Now

	device := NewDeviceSource(0)
	seen, _ := startTracker(t, tracker, device)
	home := domain.Coordinates{Lat: -6.2088, Lon: 106.8456}

	device.Report(gps(home))
	assert.False(t, next(t, seen).pushed)

	writer.setFail(nil)
	clock.Advance(5 * time.Second)
	device.Report(gps(home))
	assert.True(t, next(t, seen).pushed)
	assert.Equal(t, 1, writer.count())
}

func TestDisplayTrackerNeverWrites(t *testing.T) {
	device := NewDeviceSource(0)
	seen, _ := startTracker(t, NewDisplayTracker(syncConfig), device)

	device.Report(gps(domain.Coordinates{Lat: 1, Lon: 2}))
	o := next(t, seen)
	assert.False(t, o.pushed)
	assert.Equal(t, domain.Coordinates{Lat: 1, Lon: 2}, o.sample.Coordinates)
}

func TestTrackerStopEndsWrites(t *testing.T) {
	writer := &recordingWriter{}
	device := NewDeviceSource(0)
	seen, stop := startTracker(t, NewTracker(writer, syncConfig), device)

	device.Report(gps(domain.Coordinates{Lat: 1, Lon: 2}))
	next(t, seen)
	stop()

	device.Report(gps(domain.Coordinates{Lat: 10, Lon: 20}))
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, writer.count())
	assert.Empty(t, seen)
}

type failingLocator struct{}

func (failingLocator) Lookup(context.Context, string) (domain.Coordinates, error) {
	return domain.Coordinates{}, domain.ErrFallbackUnavailable
}

type fixedLocator struct{ pos domain.Coordinates }

func (l fixedLocator) Lookup(context.Context, string) (domain.Coordinates, error) {
	return l.pos, nil
}

func TestPermissionErrorFallsBackToStaticCity(t *testing.T) {
	writer := &recordingWriter{}
	device := NewDeviceSource(0)
	fallback := NewFallback(failingLocator{}, "203.0.113.7", 30*time.Second)
	fallback.pick = func(int) int { return 1 }

	seen, _ := startTracker(t, NewTracker(writer, syncConfig), WithFallback(device, fallback))

	device.Fail(domain.ErrPermissionDenied)
	o := next(t, seen)
	assert.Equal(t, domain.SourceStaticFallback, o.sample.Source)
	assert.Equal(t, ReferenceCities[1], o.sample.Coordinates)
	assert.True(t, o.pushed)
	assert.Equal(t, 1, writer.count())
}

func TestPermissionErrorFallsBackToIP(t *testing.T) {
	writer := &recordingWriter{}
	device := NewDeviceSource(0)
	jakarta := domain.Coordinates{Lat: -6.2, Lon: 106.8}
	fallback := NewFallback(fixedLocator{pos: jakarta}, "203.0.113.7", 30*time.Second)

	seen, _ := startTracker(t, NewTracker(writer, syncConfig), WithFallback(device, fallback))

	device.Fail(domain.ErrPermissionDenied)
	o := next(t, seen)
	assert.Equal(t, domain.SourceIPFallback, o.sample.Source)
	assert.Equal(t, jakarta, o.sample.Coordinates)
	assert.True(t, o.pushed)

	// The same fallback position a moment later is coalesced away.
	device.Fail(domain.ErrPositionUnavailable)
	assert.False(t, next(t, seen).pushed)
	assert.Equal(t, 1, writer.count())
}

func TestFallbackReusesRecentResult(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)}
	calls := 0
	fallback := NewFallback(nil, "", 30*time.Second)
	fallback.now = clock.Now
	fallback.pick = func(n int) int {
		calls++
		return calls % n
	}

	first := fallback.Locate(context.Background())
	clock.Advance(10 * time.Second)
	assert.Equal(t, first, fallback.Locate(context.Background()))

	clock.Advance(time.Minute)
	again := fallback.Locate(context.Background())
	assert.Equal(t, first.Coordinates, again.Coordinates)
	assert.True(t, again.CapturedAt.After(first.CapturedAt))
	assert.Equal(t, 1, calls)
}

func TestDeviceSourceTimeout(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events := NewDeviceSource(10 * time.Millisecond).Positions(ctx)
	select {
	case ev := <-events:
		assert.ErrorIs(t, ev.Err, domain.ErrPositionTimeout)
	case <-time.After(time.Second):
		t.Fatal("no timeout reported")
	}
}

func TestDeviceSourceNoTimeoutAfterFix(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	device := NewDeviceSource(20 * time.Millisecond)
	device.Report(gps(domain.Coordinates{Lat: 1, Lon: 1}))
	events := device.Positions(ctx)

	ev := <-events
	require.NoError(t, ev.Err)
	select {
	case ev := <-events:
		t.Fatalf("unexpected event %+v", ev)
	case <-time.After(60 * time.Millisecond):
	}
}
