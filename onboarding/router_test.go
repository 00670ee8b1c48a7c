package onboarding

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/adaptyteam/AdaptySDK-Capacitor-sub000/events"
	"github.com/adaptyteam/AdaptySDK-Capacitor-sub000/internal/bridgetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const meta = `"meta":{"onboarding_id":"ob1","screen_cid":"welcome","screen_index":0,"total_screens":3}`

var wantMeta = events.OnboardingMeta{OnboardingID: "ob1", ScreenClientID: "welcome", ScreenIndex: 0, TotalScreens: 3}

func TestSlotTable(t *testing.T) {
	slots := Slots()
	assert.Equal(t, []Slot{Close, Custom, Paywall, StateUpdated, FinishedLoading, Analytics, Error}, slots)

	seen := make(map[string]Slot, len(slots))
	for _, slot := range slots {
		native, ok := NativeEvent(slot)
		require.True(t, ok, slot)
		assert.Contains(t, events.OnboardingNativeEvents, native)
		prev, dup := seen[native]
		assert.False(t, dup, "%s and %s share %s", prev, slot, native)
		seen[native] = slot
	}
	for _, native := range events.OnboardingNativeEvents {
		_, ok := table.Only(native)
		assert.True(t, ok, native)
	}
}

func TestHandlerArguments(t *testing.T) {
	ctx := context.Background()

	t.Run("actions", func(t *testing.T) {
		cases := map[Slot]string{
			Close:   events.OnboardingOnCloseAction,
			Custom:  events.OnboardingOnCustomAction,
			Paywall: events.OnboardingOnPaywallAction,
		}
		for slot, native := range cases {
			t.Run(string(slot), func(t *testing.T) {
				tr := bridgetest.NewTransport()
				r := New(tr, "ob-view")
				t.Cleanup(r.Wait)

				var (
					gotID   string
					gotMeta events.OnboardingMeta
				)
				require.NoError(t, r.AddListener(ctx, slot, OnAction(func(id string, m events.OnboardingMeta) bool {
					gotID, gotMeta = id, m
					return false
				}), nil))

				data := `{"id":"` + string(slot) + `","view":{"id":"ob-view"},"action_id":"btn_` + string(slot) + `",` + meta + `}`
				require.NoError(t, tr.DeliverData(ctx, native, data))
				assert.Equal(t, "btn_"+string(slot), gotID)
				assert.Equal(t, wantMeta, gotMeta)
			})
		}
	})

	t.Run("state updated", func(t *testing.T) {
		tr := bridgetest.NewTransport()
		r := New(tr, "ob-view")
		var got events.StateUpdatedAction
		require.NoError(t, r.AddListener(ctx, StateUpdated, OnStateUpdated(func(a events.StateUpdatedAction, m events.OnboardingMeta) bool {
			got = a
			assert.Equal(t, wantMeta, m)
			return false
		}), nil))

		require.NoError(t, tr.DeliverData(ctx, events.OnboardingOnStateUpdatedAction,
			`{"id":"state","view":{"id":"ob-view"},"action":{"element_id":"age","element_type":"select","value":{"id":"18-24"}},`+meta+`}`))
		assert.Equal(t, "age", got.ElementID)
		assert.Equal(t, "select", got.ElementType)
		assert.JSONEq(t, `{"id":"18-24"}`, string(got.Value))
	})

	t.Run("finished loading", func(t *testing.T) {
		tr := bridgetest.NewTransport()
		r := New(tr, "ob-view")
		var got events.OnboardingMeta
		require.NoError(t, r.AddListener(ctx, FinishedLoading, OnFinishedLoading(func(m events.OnboardingMeta) bool {
			got = m
			return false
		}), nil))

		require.NoError(t, tr.DeliverData(ctx, events.OnboardingDidFinishLoading, `{"id":"loaded","view":{"id":"ob-view"},`+meta+`}`))
		assert.Equal(t, wantMeta, got)
	})

	t.Run("analytics", func(t *testing.T) {
		tr := bridgetest.NewTransport()
		r := New(tr, "ob-view")
		var got events.AnalyticsEvent
		require.NoError(t, r.AddListener(ctx, Analytics, OnAnalytics(func(ev events.AnalyticsEvent, _ events.OnboardingMeta) bool {
			got = ev
			return false
		}), nil))

		require.NoError(t, tr.DeliverData(ctx, events.OnboardingOnAnalyticsAction,
			`{"id":"analytics","view":{"id":"ob-view"},"event":{"name":"screen_presented","element_id":"welcome"},`+meta+`}`))
		assert.Equal(t, events.AnalyticsEvent{Name: "screen_presented", ElementID: "welcome"}, got)
	})

	t.Run("error", func(t *testing.T) {
		tr := bridgetest.NewTransport()
		r := New(tr, "ob-view")
		var got events.AdaptyError
		require.NoError(t, r.AddListener(ctx, Error, OnError(func(err events.AdaptyError) bool {
			got = err
			return false
		}), nil))

		require.NoError(t, tr.DeliverData(ctx, events.OnboardingDidFailWithError,
			`{"id":"failed","view":{"id":"ob-view"},"error":{"adapty_code":4001,"message":"webview crashed"}}`))
		assert.Equal(t, 4001, got.Code)
		assert.Equal(t, "webview crashed", got.Message)
	})
}

func TestDismiss(t *testing.T) {
	ctx := context.Background()
	closeData := func(viewID string) string {
		return `{"id":"close","view":{"id":"` + viewID + `"},"action_id":"x",` + meta + `}`
	}

	t.Run("truthy close action requests close once", func(t *testing.T) {
		tr := bridgetest.NewTransport()
		r := New(tr, "ob-view")
		var closes atomic.Int32
		require.NoError(t, r.AddListener(ctx, Close, OnAction(func(string, events.OnboardingMeta) bool { return true }),
			func(context.Context) error {
				closes.Add(1)
				return nil
			}))

		require.NoError(t, tr.DeliverData(ctx, events.OnboardingOnCloseAction, closeData("ob-view")))
		require.NoError(t, tr.DeliverData(ctx, events.OnboardingOnCloseAction, closeData("ob-view")))
		r.Wait()
		assert.EqualValues(t, 1, closes.Load())
		assert.True(t, r.Dismissing())
	})

	t.Run("other view", func(t *testing.T) {
		tr := bridgetest.NewTransport()
		r := New(tr, "ob-view")
		called := false
		require.NoError(t, r.AddListener(ctx, Close, OnAction(func(string, events.OnboardingMeta) bool {
			called = true
			return true
		}), nil))

		require.NoError(t, tr.DeliverData(ctx, events.OnboardingOnCloseAction, closeData("other")))
		r.Wait()
		assert.False(t, called)
		assert.False(t, r.Dismissing())
	})

	t.Run("failed close request is logged", func(t *testing.T) {
		tr := bridgetest.NewTransport()
		logs, logger := bridgetest.NewLogs()
		r := New(tr, "ob-view", Logger(logger))
		require.NoError(t, r.AddListener(ctx, Close, OnAction(func(string, events.OnboardingMeta) bool { return true }),
			func(context.Context) error { return errors.New("host busy") }))

		require.NoError(t, tr.DeliverData(ctx, events.OnboardingOnCloseAction, closeData("ob-view")))
		r.Wait()
		assert.Equal(t, 1, logs.Count("close request failed"))
		assert.False(t, r.Dismissing())
	})
}

func TestRegistrationErrors(t *testing.T) {
	ctx := context.Background()
	tr := bridgetest.NewTransport()
	r := New(tr, "ob-view")

	err := r.AddListener(ctx, Analytics, OnAction(func(string, events.OnboardingMeta) bool { return false }), nil)
	require.ErrorIs(t, err, events.ErrHandlerMismatch)
	err = r.AddListener(ctx, Slot("skipped"), OnError(func(events.AdaptyError) bool { return false }), nil)
	require.ErrorIs(t, err, events.ErrUnsupportedSlot)
	assert.Zero(t, tr.TotalLive())

	err = tr.Deliver(ctx, events.OnboardingOnCloseAction, []byte(`{}`))
	require.NoError(t, err, "nothing is subscribed yet")

	require.NoError(t, r.AddInternalListener(ctx, Error, func(context.Context, events.OnboardingEvent) error { return nil }))
	err = tr.DeliverData(ctx, events.OnboardingDidFailWithError, `{"id":"failed","view":{"id":"ob-view"}}`)
	require.ErrorIs(t, err, events.ErrDecode)
}
