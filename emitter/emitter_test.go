package emitter

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/adaptyteam/AdaptySDK-Capacitor-sub000/events"
	"github.com/adaptyteam/AdaptySDK-Capacitor-sub000/internal/bridgetest"
	"github.com/adaptyteam/AdaptySDK-Capacitor-sub000/pkg/metrics"
	"github.com/adaptyteam/AdaptySDK-Capacitor-sub000/pkg/stdx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const profileData = `{"profile":{"profile_id":"p1","is_test_user":true}}`

type fixture struct {
	transport *bridgetest.Transport
	logs      *bridgetest.Logs
	recorder  *bridgetest.Recorder
	emitter   *Emitter
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWithTable(t, families)
}

func newFixtureWithTable(t *testing.T, table map[Family]binding) *fixture {
	t.Helper()
	logs, logger := bridgetest.NewLogs()
	f := &fixture{
		transport: bridgetest.NewTransport(),
		logs:      logs,
		recorder:  bridgetest.NewRecorder(),
	}
	f.emitter = newEmitter(f.transport, table, Logger(logger), Metrics(metrics.Recorder(f.recorder)))
	return f
}

// recording returns a listener that appends its label and the decoded event.
func recording(mu *sync.Mutex, calls *[]string, got *[]events.Event, label string) Listener {
	return func(_ context.Context, ev events.Event) error {
		mu.Lock()
		defer mu.Unlock()
		*calls = append(*calls, label)
		*got = append(*got, ev)
		return nil
	}
}

func TestAddListener(t *testing.T) {
	ctx := context.Background()

	t.Run("unsupported family never reaches the transport", func(t *testing.T) {
		f := newFixture(t)
		h, err := f.emitter.AddListener(ctx, Family("paywall_closed"), func(context.Context, events.Event) error { return nil })
		require.ErrorIs(t, err, events.ErrUnsupportedEvent)
		assert.Nil(t, h)
		assert.Zero(t, f.transport.TotalLive())
		for _, native := range []string{events.NativeProfileLoaded, events.NativeInstallationDetailsSuccess, events.NativeInstallationDetailsFail} {
			assert.Zero(t, f.transport.Subscribes(native))
		}
	})

	t.Run("nil listener", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.emitter.AddListener(ctx, ProfileLoaded, nil)
		require.Error(t, err)
		assert.Zero(t, f.transport.Subscribes(events.NativeProfileLoaded))
		assert.Zero(t, f.emitter.Registrations(events.NativeProfileLoaded))
	})

	t.Run("every family maps to its native event", func(t *testing.T) {
		f := newFixture(t)
		for _, family := range Families {
			native, ok := family.Native()
			require.True(t, ok, family)
			h, err := f.emitter.AddListener(ctx, family, func(context.Context, events.Event) error { return nil })
			require.NoError(t, err)
			assert.Equal(t, native, h.Event())
			assert.Equal(t, 1, f.transport.Subscribes(native))
		}
		assert.Len(t, families, len(Families))
	})

	t.Run("one subscription for many listeners, dispatched in order", func(t *testing.T) {
		f := newFixture(t)
		var (
			mu    sync.Mutex
			calls []string
			got   []events.Event
		)
		_, err := f.emitter.AddListener(ctx, ProfileLoaded, recording(&mu, &calls, &got, "L1"))
		require.NoError(t, err)
		_, err = f.emitter.AddListener(ctx, ProfileLoaded, recording(&mu, &calls, &got, "L2"))
		require.NoError(t, err)

		assert.Equal(t, 1, f.transport.Subscribes(events.NativeProfileLoaded))
		assert.Equal(t, 2, f.emitter.Registrations(events.NativeProfileLoaded))

		require.NoError(t, f.transport.DeliverData(ctx, events.NativeProfileLoaded, profileData))
		assert.Equal(t, []string{"L1", "L2"}, calls)
		require.Len(t, got, 2)
		for _, ev := range got {
			loaded, ok := ev.(events.ProfileLoaded)
			require.True(t, ok)
			assert.Equal(t, "p1", loaded.Profile.ProfileID)
			assert.True(t, loaded.Profile.IsTestUser)
		}
		assert.Equal(t, 1, f.recorder.DeliveredTo(events.NativeProfileLoaded))
	})

	t.Run("subscribe failure rolls back the registration", func(t *testing.T) {
		f := newFixture(t)
		boom := errors.New("bridge offline")
		f.transport.FailSubscribe(boom)

		h, err := f.emitter.AddListener(ctx, ProfileLoaded, func(context.Context, events.Event) error { return nil })
		require.ErrorIs(t, err, boom)
		assert.Nil(t, h)
		assert.Zero(t, f.emitter.Registrations(events.NativeProfileLoaded))
		assert.False(t, f.emitter.Subscribed(events.NativeProfileLoaded))

		f.transport.FailSubscribe(nil)
		_, err = f.emitter.AddListener(ctx, ProfileLoaded, func(context.Context, events.Event) error { return nil })
		require.NoError(t, err)
		assert.True(t, f.emitter.Subscribed(events.NativeProfileLoaded))
		assert.Equal(t, 2, f.transport.Subscribes(events.NativeProfileLoaded))
	})

	t.Run("concurrent adds share one subscribe", func(t *testing.T) {
		f := newFixture(t)
		release := f.transport.Hold()

		const n = 8
		var wg sync.WaitGroup
		errs := make(chan error, n)
		for range n {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := f.emitter.AddListener(ctx, ProfileLoaded, func(context.Context, events.Event) error { return nil })
				errs <- err
			}()
		}
		<-f.transport.Entered()
		release()
		wg.Wait()
		close(errs)
		for err := range errs {
			require.NoError(t, err)
		}

		assert.Equal(t, 1, f.transport.Subscribes(events.NativeProfileLoaded))
		assert.Equal(t, 1, f.transport.Live(events.NativeProfileLoaded))
		assert.Equal(t, n, f.emitter.Registrations(events.NativeProfileLoaded))
	})

	t.Run("subscription orphaned while in flight is released", func(t *testing.T) {
		f := newFixture(t)
		release := f.transport.Hold()

		done := make(chan error, 1)
		go func() {
			_, err := f.emitter.AddListener(ctx, ProfileLoaded, func(context.Context, events.Event) error { return nil })
			done <- err
		}()
		<-f.transport.Entered()
		require.NoError(t, f.emitter.RemoveAllListeners(ctx))
		release()
		require.NoError(t, <-done)

		assert.False(t, f.emitter.Subscribed(events.NativeProfileLoaded))
		assert.Zero(t, f.transport.Live(events.NativeProfileLoaded))
		assert.Equal(t, 1, f.transport.Removes(events.NativeProfileLoaded))
		assert.Zero(t, f.recorder.Open())
	})
}

func TestTypedListeners(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	var (
		profile string
		install int
		code    int
	)
	_, err := f.emitter.OnProfileLoaded(ctx, func(_ context.Context, ev events.ProfileLoaded) error {
		profile = ev.Profile.ProfileID
		return nil
	})
	require.NoError(t, err)
	_, err = f.emitter.OnInstallationDetailsSuccess(ctx, func(_ context.Context, ev events.InstallationDetailsSuccess) error {
		install = ev.Details.AppLaunchCount
		return nil
	})
	require.NoError(t, err)
	_, err = f.emitter.OnInstallationDetailsFail(ctx, func(_ context.Context, ev events.InstallationDetailsFail) error {
		code = ev.Error.Code
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, f.transport.DeliverData(ctx, events.NativeProfileLoaded, profileData))
	require.NoError(t, f.transport.DeliverData(ctx, events.NativeInstallationDetailsSuccess,
		`{"details":{"install_id":"i1","install_time":"2026-01-02T03:04:05.000Z","app_launch_count":3}}`))
	require.NoError(t, f.transport.DeliverData(ctx, events.NativeInstallationDetailsFail,
		`{"error":{"adapty_code":2004,"message":"not found"}}`))

	assert.Equal(t, "p1", profile)
	assert.Equal(t, 3, install)
	assert.Equal(t, 2004, code)

	t.Run("nil typed listener", func(t *testing.T) {
		_, err := f.emitter.OnProfileLoaded(ctx, nil)
		require.Error(t, err)
	})
}

func TestDispatchIsolation(t *testing.T) {
	ctx := context.Background()

	t.Run("failing listeners do not stop the rest", func(t *testing.T) {
		f := newFixture(t)
		var order []string
		add := func(label string, fn func() error) {
			_, err := f.emitter.AddListener(ctx, ProfileLoaded, func(context.Context, events.Event) error {
				order = append(order, label)
				return fn()
			})
			require.NoError(t, err)
		}
		add("L1", func() error { return errors.New("listener bug") })
		add("L2", func() error { panic("listener exploded") })
		add("L3", func() error { return nil })

		require.NoError(t, f.transport.DeliverData(ctx, events.NativeProfileLoaded, profileData))
		assert.Equal(t, []string{"L1", "L2", "L3"}, order)
		assert.Equal(t, 2, f.logs.Count("event listener failed"))
		assert.Equal(t, 2, f.recorder.Failures(metrics.KindHandler))
	})

	t.Run("malformed envelope is logged and not dispatched", func(t *testing.T) {
		f := newFixture(t)
		called := false
		_, err := f.emitter.AddListener(ctx, ProfileLoaded, func(context.Context, events.Event) error {
			called = true
			return nil
		})
		require.NoError(t, err)

		require.NoError(t, f.transport.Deliver(ctx, events.NativeProfileLoaded, []byte(`{"data":42}`)))
		require.NoError(t, f.transport.Deliver(ctx, events.NativeProfileLoaded, []byte(`not json`)))
		assert.False(t, called)
		assert.Equal(t, 2, f.logs.Count("dropping malformed delivery"))
		assert.Equal(t, 2, f.recorder.Failures(metrics.KindEnvelope))
	})

	t.Run("decode failure is logged once per listener", func(t *testing.T) {
		f := newFixture(t)
		called := 0
		for range 2 {
			_, err := f.emitter.AddListener(ctx, ProfileLoaded, func(context.Context, events.Event) error {
				called++
				return nil
			})
			require.NoError(t, err)
		}

		require.NoError(t, f.transport.DeliverData(ctx, events.NativeProfileLoaded, `{"profile":{}}`))
		assert.Zero(t, called)
		assert.Equal(t, 2, f.logs.Count("failed to decode event"))
		assert.Equal(t, 2, f.recorder.Failures(metrics.KindDecode))
		first, ok := f.logs.Attr("failed to decode event", 0, "registration")
		require.True(t, ok)
		second, ok := f.logs.Attr("failed to decode event", 1, "registration")
		require.True(t, ok)
		assert.NotEqual(t, first, second)
	})

	t.Run("decoder runs once per delivery", func(t *testing.T) {
		var decodes atomic.Int32
		f := newFixtureWithTable(t, map[Family]binding{
			ProfileLoaded: {native: events.NativeProfileLoaded, decode: func(data []byte) (events.Event, error) {
				decodes.Add(1)
				return events.DecodeProfileLoaded(data)
			}},
		})
		for range 3 {
			_, err := f.emitter.AddListener(ctx, ProfileLoaded, func(context.Context, events.Event) error { return nil })
			require.NoError(t, err)
		}
		require.NoError(t, f.transport.DeliverData(ctx, events.NativeProfileLoaded, profileData))
		assert.EqualValues(t, 1, decodes.Load())
	})

	t.Run("decoder yielding nothing counts as a decode failure", func(t *testing.T) {
		f := newFixtureWithTable(t, map[Family]binding{
			ProfileLoaded: {native: events.NativeProfileLoaded, decode: func([]byte) (events.Event, error) { return nil, nil }},
		})
		called := false
		_, err := f.emitter.AddListener(ctx, ProfileLoaded, func(context.Context, events.Event) error {
			called = true
			return nil
		})
		require.NoError(t, err)
		require.NoError(t, f.transport.DeliverData(ctx, events.NativeProfileLoaded, `{}`))
		assert.False(t, called)
		assert.Equal(t, 1, f.logs.Count("failed to decode event"))
	})

	t.Run("panicking decoder is contained", func(t *testing.T) {
		f := newFixtureWithTable(t, map[Family]binding{
			ProfileLoaded: {native: events.NativeProfileLoaded, decode: func([]byte) (events.Event, error) { panic("bad decoder") }},
		})
		_, err := f.emitter.AddListener(ctx, ProfileLoaded, func(context.Context, events.Event) error { return nil })
		require.NoError(t, err)
		require.NoError(t, f.transport.DeliverData(ctx, events.NativeProfileLoaded, `{}`))
		assert.Equal(t, 1, f.logs.Count("failed to decode event"))

		res := decodeOnce(func([]byte) (events.Event, error) { panic("bad decoder") }, nil)
		assert.ErrorIs(t, res.err, events.ErrDecode)
		assert.True(t, stdx.IsPanic(res.err))
	})

	t.Run("listener may remove itself while dispatching", func(t *testing.T) {
		f := newFixture(t)
		var (
			h     *Handle
			calls int
		)
		h, err := f.emitter.AddListener(ctx, ProfileLoaded, func(ctx context.Context, _ events.Event) error {
			calls++
			return h.Remove(ctx)
		})
		require.NoError(t, err)

		require.NoError(t, f.transport.DeliverData(ctx, events.NativeProfileLoaded, profileData))
		require.NoError(t, f.transport.DeliverData(ctx, events.NativeProfileLoaded, profileData))
		assert.Equal(t, 1, calls)
		assert.False(t, f.emitter.Subscribed(events.NativeProfileLoaded))
	})
}

func TestHandleRemove(t *testing.T) {
	ctx := context.Background()
	noop := func(context.Context, events.Event) error { return nil }

	t.Run("last registration releases the subscription", func(t *testing.T) {
		f := newFixture(t)
		h1, err := f.emitter.AddListener(ctx, ProfileLoaded, noop)
		require.NoError(t, err)

		require.NoError(t, h1.Remove(ctx))
		assert.Zero(t, f.emitter.Registrations(events.NativeProfileLoaded))
		assert.False(t, f.emitter.Subscribed(events.NativeProfileLoaded))
		assert.Equal(t, 1, f.transport.Removes(events.NativeProfileLoaded))
		assert.Zero(t, f.transport.Live(events.NativeProfileLoaded))
	})

	t.Run("removing twice releases once", func(t *testing.T) {
		f := newFixture(t)
		h, err := f.emitter.AddListener(ctx, ProfileLoaded, noop)
		require.NoError(t, err)

		require.NoError(t, h.Remove(ctx))
		require.NoError(t, h.Remove(ctx))
		assert.Equal(t, 1, f.transport.Removes(events.NativeProfileLoaded))
	})

	t.Run("other registrations keep the subscription", func(t *testing.T) {
		f := newFixture(t)
		h1, err := f.emitter.AddListener(ctx, ProfileLoaded, noop)
		require.NoError(t, err)
		var got int
		h2, err := f.emitter.AddListener(ctx, ProfileLoaded, func(context.Context, events.Event) error {
			got++
			return nil
		})
		require.NoError(t, err)

		require.NoError(t, h1.Remove(ctx))
		assert.True(t, f.emitter.Subscribed(events.NativeProfileLoaded))
		assert.Zero(t, f.transport.Removes(events.NativeProfileLoaded))

		require.NoError(t, f.transport.DeliverData(ctx, events.NativeProfileLoaded, profileData))
		assert.Equal(t, 1, got)

		require.NoError(t, h2.Remove(ctx))
		assert.False(t, f.emitter.Subscribed(events.NativeProfileLoaded))
		assert.Equal(t, 1, f.transport.Removes(events.NativeProfileLoaded))
	})

	t.Run("subscription exists iff registrations exist", func(t *testing.T) {
		f := newFixture(t)
		check := func() {
			t.Helper()
			n := f.emitter.Registrations(events.NativeProfileLoaded)
			assert.Equal(t, n > 0, f.emitter.Subscribed(events.NativeProfileLoaded))
			assert.LessOrEqual(t, f.transport.Live(events.NativeProfileLoaded), 1)
			assert.Equal(t, n > 0, f.transport.Live(events.NativeProfileLoaded) == 1)
		}

		var handles []*Handle
		add := func() {
			h, err := f.emitter.AddListener(ctx, ProfileLoaded, noop)
			require.NoError(t, err)
			handles = append(handles, h)
			check()
		}
		remove := func(i int) {
			require.NoError(t, handles[i].Remove(ctx))
			check()
		}

		add()
		add()
		remove(0)
		add()
		remove(1)
		remove(1)
		remove(2)
		add()
		remove(3)
		remove(0)
		assert.Equal(t, 2, f.transport.Subscribes(events.NativeProfileLoaded))
		assert.Equal(t, 2, f.transport.Removes(events.NativeProfileLoaded))
	})

	t.Run("release failure still clears bookkeeping", func(t *testing.T) {
		f := newFixture(t)
		h, err := f.emitter.AddListener(ctx, ProfileLoaded, noop)
		require.NoError(t, err)
		f.transport.FailRemove(errors.New("bridge gone"))

		require.NoError(t, h.Remove(ctx))
		assert.Zero(t, f.emitter.Registrations(events.NativeProfileLoaded))
		assert.False(t, f.emitter.Subscribed(events.NativeProfileLoaded))
		assert.Equal(t, 1, f.logs.Count("failed to release native subscription"))
		assert.Equal(t, 1, f.recorder.Failures(metrics.KindTeardown))
		assert.Contains(t, f.logs.Messages(slog.LevelWarn), "failed to release native subscription")
	})
}

func TestRemoveAllListeners(t *testing.T) {
	ctx := context.Background()
	noop := func(context.Context, events.Event) error { return nil }

	t.Run("clears everything even when releases fail", func(t *testing.T) {
		f := newFixture(t)
		for _, family := range Families {
			for range 2 {
				_, err := f.emitter.AddListener(ctx, family, noop)
				require.NoError(t, err)
			}
		}
		f.transport.FailRemove(errors.New("bridge gone"))

		require.NoError(t, f.emitter.RemoveAllListeners(ctx))
		for _, family := range Families {
			native, _ := family.Native()
			assert.Zero(t, f.emitter.Registrations(native))
			assert.False(t, f.emitter.Subscribed(native))
			assert.Equal(t, 1, f.transport.Removes(native))
		}
		assert.Equal(t, len(Families), f.logs.Count("failed to release native subscription"))
		assert.Zero(t, f.recorder.Open())
	})

	t.Run("handles are inert afterwards", func(t *testing.T) {
		f := newFixture(t)
		h, err := f.emitter.AddListener(ctx, ProfileLoaded, noop)
		require.NoError(t, err)
		require.NoError(t, f.emitter.RemoveAllListeners(ctx))

		require.NoError(t, h.Remove(ctx))
		assert.Equal(t, 1, f.transport.Removes(events.NativeProfileLoaded))
	})

	t.Run("emitter is reusable", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.emitter.AddListener(ctx, ProfileLoaded, noop)
		require.NoError(t, err)
		require.NoError(t, f.emitter.RemoveAllListeners(ctx))

		_, err = f.emitter.AddListener(ctx, ProfileLoaded, noop)
		require.NoError(t, err)
		assert.True(t, f.emitter.Subscribed(events.NativeProfileLoaded))
		assert.Equal(t, 2, f.transport.Subscribes(events.NativeProfileLoaded))
	})
}
