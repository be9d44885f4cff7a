package health

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/juju/clock/testclock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/sqlcfg/internal/locks"
)

const waitTimeout = 5 * time.Second

func receive(t *testing.T, ch <-chan Report) Report {
	t.Helper()
	select {
	case r := <-ch:
		return r
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for a health report")
		return Report{}
	}
}

func TestReporter_EmitsEveryInterval(t *testing.T) {
	reg := locks.NewRegistry()
	reg.TryAcquire("sqlite:b.db")
	reg.TryAcquire("sqlite:a.db")

	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	clk := testclock.NewClock(start)
	reports := make(chan Report, 4)
	sink := SinkFunc(func(r Report) error {
		reports <- r
		return nil
	})

	r := NewReporter(reg, sink, WithClock(clk))
	require.NoError(t, r.Start(context.Background()))
	defer r.Stop()

	first := receive(t, reports)
	assert.Equal(t, []string{"sqlite:a.db", "sqlite:b.db"}, first.Files)
	assert.Equal(t, start, first.Time)
	assert.NotEmpty(t, first.ID)

	reg.Release("sqlite:a.db")
	require.NoError(t, clk.WaitAdvance(DefaultInterval, waitTimeout, 1))

	second := receive(t, reports)
	assert.Equal(t, []string{"sqlite:b.db"}, second.Files)
	assert.Equal(t, start.Add(DefaultInterval), second.Time)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestReporter_StartsOnce(t *testing.T) {
	r := NewReporter(locks.NewRegistry(), SinkFunc(func(Report) error { return nil }),
		WithClock(testclock.NewClock(time.Now())))

	require.NoError(t, r.Start(context.Background()))
	assert.ErrorIs(t, r.Start(context.Background()), ErrAlreadyStarted)

	r.Stop()
	assert.ErrorIs(t, r.Start(context.Background()), ErrAlreadyStarted)
}

func TestReporter_StopsOnCancel(t *testing.T) {
	r := NewReporter(locks.NewRegistry(), SinkFunc(func(Report) error { return nil }),
		WithClock(testclock.NewClock(time.Now())), WithInterval(time.Hour))

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, r.Start(ctx))
	cancel()

	select {
	case <-r.Done():
	case <-time.After(waitTimeout):
		t.Fatal("reporter did not stop after cancellation")
	}
	assert.NoError(t, r.Err())
}

func TestReporter_StopsOnSinkError(t *testing.T) {
	boom := errors.New("sink closed")
	r := NewReporter(locks.NewRegistry(), SinkFunc(func(Report) error { return boom }),
		WithClock(testclock.NewClock(time.Now())))

	require.NoError(t, r.Start(context.Background()))

	select {
	case <-r.Done():
	case <-time.After(waitTimeout):
		t.Fatal("reporter did not stop after sink error")
	}
	assert.ErrorIs(t, r.Err(), boom)
}

func TestReporter_ConcurrentStartStop(t *testing.T) {
	for i := 0; i < 50; i++ {
		r := NewReporter(locks.NewRegistry(), SinkFunc(func(Report) error { return nil }),
			WithClock(testclock.NewClock(time.Now())), WithInterval(time.Hour))

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			assert.NoError(t, r.Start(context.Background()))
		}()
		go func() {
			defer wg.Done()
			r.Stop()
		}()
		wg.Wait()

		// Start has returned, so Stop must cancel the loop.
		r.Stop()
		select {
		case <-r.Done():
		case <-time.After(waitTimeout):
			t.Fatal("reporter still running after Stop")
		}
	}
}

func TestReporter_StopWithoutStart(t *testing.T) {
	r := NewReporter(locks.NewRegistry(), LogSink{})
	r.Stop()
	assert.NoError(t, r.Err())
}

func TestLogSink_Emit(t *testing.T) {
	var buf bytes.Buffer
	sink := LogSink{Logger: slog.New(slog.NewTextHandler(&buf, nil))}

	err := sink.Emit(Report{ID: "r1", Time: time.Unix(0, 0).UTC(), Files: []string{"sqlite:cfg.db"}})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "health report")
	assert.Contains(t, out, "locked_files=1")
	assert.Contains(t, out, "sqlite:cfg.db")
}
