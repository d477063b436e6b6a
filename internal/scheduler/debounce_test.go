package scheduler

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
)

func TestDebouncer_FiresOnceAfterBurst(t *testing.T) {
	defer goleak.VerifyNone(t)

	var calls atomic.Int32
	d := NewDebouncer(30*time.Millisecond, func() { calls.Add(1) })
	defer d.Stop()

	for i := 0; i < 5; i++ {
		d.Trigger()
		time.Sleep(5 * time.Millisecond)
	}
	assert.True(t, d.Pending())

	assert.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
	assert.False(t, d.Pending())
}

func TestDebouncer_TriggerRestartsCountdown(t *testing.T) {
	defer goleak.VerifyNone(t)

	fired := make(chan time.Time, 1)
	d := NewDebouncer(50*time.Millisecond, func() { fired <- time.Now() })
	defer d.Stop()

	start := time.Now()
	d.Trigger()
	time.Sleep(30 * time.Millisecond)
	d.Trigger()

	select {
	case at := <-fired:
		assert.GreaterOrEqual(t, at.Sub(start), 75*time.Millisecond)
	case <-time.After(time.Second):
		t.Fatal("debouncer never fired")
	}
}

func TestDebouncer_Cancel(t *testing.T) {
	defer goleak.VerifyNone(t)

	var calls atomic.Int32
	d := NewDebouncer(20*time.Millisecond, func() { calls.Add(1) })

	assert.False(t, d.Cancel(), "nothing pending yet")
	d.Trigger()
	assert.True(t, d.Cancel())
	assert.False(t, d.Pending())

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(0), calls.Load())
}

func TestDebouncer_StopIgnoresLaterTriggers(t *testing.T) {
	defer goleak.VerifyNone(t)

	var calls atomic.Int32
	d := NewDebouncer(10*time.Millisecond, func() { calls.Add(1) })
	d.Stop()
	d.Trigger()

	assert.False(t, d.Pending())
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, int32(0), calls.Load())
	assert.Equal(t, 10*time.Millisecond, d.Delay())
}
