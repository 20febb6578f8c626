package checkout

import (
	"context"
	"testing"
	"time"

	"github.com/fjod/go_travel/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestRegistry_PutGetRemove(t *testing.T) {
	rec := &recorder{}
	r := NewRegistry(time.Minute, logger.Discard())
	s := newSequencer(t, &MockAPI{}, WithObserver(rec))

	r.Put(context.Background(), "sid", s)
	got, ok := r.Get("sid")
	require.True(t, ok)
	assert.Same(t, s, got)
	assert.Equal(t, 1, r.Len())

	require.NoError(t, r.Remove(context.Background(), "sid"))
	_, ok = r.Get("sid")
	assert.False(t, ok)
	assert.True(t, s.Finished())
	assert.Contains(t, rec.kinds(), EventAbandoned)

	require.NoError(t, r.Remove(context.Background(), "missing"))
}

func TestRegistry_PutReplacesAndAbandons(t *testing.T) {
	r := NewRegistry(time.Minute, logger.Discard())
	first := newSequencer(t, &MockAPI{})
	second := newSequencer(t, &MockAPI{})

	r.Put(context.Background(), "sid", first)
	r.Put(context.Background(), "sid", second)

	assert.True(t, first.Finished())
	assert.False(t, second.Finished())
	got, _ := r.Get("sid")
	assert.Same(t, second, got)
}

func TestRegistry_RemoveFinishedDoesNotAbandon(t *testing.T) {
	rec := &recorder{}
	api := &MockAPI{ImageURL: "https://img/1.png"}
	s := newSequencer(t, api, WithObserver(rec))
	toUpload(t, s, "pm_1")
	require.NoError(t, s.SelectImage(testImage()))
	require.NoError(t, s.Next(context.Background()))
	_, err := s.Finish(context.Background())
	require.NoError(t, err)

	r := NewRegistry(time.Minute, logger.Discard())
	r.Put(context.Background(), "sid", s)
	require.NoError(t, r.Remove(context.Background(), "sid"))
	assert.NotContains(t, rec.kinds(), EventAbandoned)
}

func TestRegistry_RemoveBusy(t *testing.T) {
	api := &MockAPI{Block: make(chan struct{}), Entered: make(chan struct{}, 1)}
	s := newSequencer(t, api)
	require.NoError(t, s.Next(context.Background()))
	require.NoError(t, s.SelectPaymentMethod("pm_1"))

	r := NewRegistry(time.Minute, logger.Discard())
	r.Put(context.Background(), "sid", s)

	done := make(chan error, 1)
	go func() { done <- s.Next(context.Background()) }()
	<-api.Entered

	assert.ErrorIs(t, r.Remove(context.Background(), "sid"), ErrBusy)
	assert.Equal(t, 1, r.Len())

	close(api.Block)
	require.NoError(t, <-done)
}

func TestRegistry_SweepExpiresIdle(t *testing.T) {
	clock := fixedNow
	r := NewRegistry(30*time.Minute, logger.Discard())
	r.now = func() time.Time { return clock }

	idle := newSequencer(t, &MockAPI{})
	active, err := New(context.Background(), oneItemDraft(), &MockAPI{},
		WithClock(func() time.Time { return fixedNow.Add(20 * time.Minute) }))
	require.NoError(t, err)

	r.Put(context.Background(), "idle", idle)
	r.Put(context.Background(), "active", active)

	assert.Zero(t, r.Sweep(context.Background()))

	clock = fixedNow.Add(45 * time.Minute)
	assert.Equal(t, 1, r.Sweep(context.Background()))

	_, ok := r.Get("idle")
	assert.False(t, ok)
	assert.True(t, idle.Finished())
	_, ok = r.Get("active")
	assert.True(t, ok)
}

func TestRegistry_StartClose(t *testing.T) {
	r := NewRegistry(time.Nanosecond, logger.Discard())
	r.Put(context.Background(), "sid", newSequencer(t, &MockAPI{}))

	r.Start(context.Background(), time.Millisecond)
	r.Start(context.Background(), time.Millisecond)

	require.Eventually(t, func() bool { return r.Len() == 0 }, time.Second, 5*time.Millisecond)
	r.Close()
	r.Close()
}

func TestRegistry_CloseWithoutStart(t *testing.T) {
	NewRegistry(time.Minute, logger.Discard()).Close()
}
