// Command adapty-events attaches to a NATS backed native bridge and prints
// every session event, plus the events of one paywall and one onboarding view
// when their ids are configured.
//
// Configuration comes from the environment or a .env file:
//
//	NATS_URL                   NATS server, defaults to nats://127.0.0.1:4222
//	ADAPTY_SUBJECT_PREFIX      subject prefix of native events, defaults to adapty.events
//	ADAPTY_VIEW_ID             paywall view to follow
//	ADAPTY_ONBOARDING_VIEW_ID  onboarding view to follow
//	ADAPTY_LOG_LEVEL           debug, info, warn or error, defaults to warn
//	ADAPTY_METRICS_ADDR        serve Prometheus metrics on this address when set
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"

	adapty "github.com/adaptyteam/AdaptySDK-Capacitor-sub000"
	"github.com/adaptyteam/AdaptySDK-Capacitor-sub000/emitter"
	"github.com/adaptyteam/AdaptySDK-Capacitor-sub000/events"
	"github.com/adaptyteam/AdaptySDK-Capacitor-sub000/internal/eventfmt"
	"github.com/adaptyteam/AdaptySDK-Capacitor-sub000/onboarding"
	"github.com/adaptyteam/AdaptySDK-Capacitor-sub000/paywall"
	"github.com/adaptyteam/AdaptySDK-Capacitor-sub000/pkg/metrics"
	"github.com/adaptyteam/AdaptySDK-Capacitor-sub000/pkg/natsx"
	"github.com/adaptyteam/AdaptySDK-Capacitor-sub000/pkg/slogx"
	"github.com/adaptyteam/AdaptySDK-Capacitor-sub000/pkg/stdx"
	"github.com/adaptyteam/AdaptySDK-Capacitor-sub000/transport"
	"github.com/fatih/color"
	"github.com/phsym/zeroslog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var log zerolog.Logger

func init() {
	output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Stamp}
	log = zerolog.New(output).With().Timestamp().Logger()
	slog.SetDefault(slog.New(
		zeroslog.NewHandler(log, &zeroslog.HandlerOptions{Level: logLevel(os.Getenv("ADAPTY_LOG_LEVEL"))}),
	))
}

func logLevel(s string) slog.Level {
	lvl := slog.LevelWarn
	if s == "" {
		return lvl
	}
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelWarn
	}
	return lvl
}

func envStrOrDefault(key string, def string) string {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	return s
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := mainE(ctx); err != nil {
		slog.Error("adapty-events failed", slogx.Error(err))
		os.Exit(1)
	}
}

func mainE(ctx context.Context) error {
	nc, err := natsx.NewClient()
	if err != nil {
		return fmt.Errorf("failed to connect to nats at %s: %w", natsx.URL(), err)
	}
	defer nc.Close()

	recorder := metrics.Noop()
	if addr := os.Getenv("ADAPTY_METRICS_ADDR"); addr != "" {
		reg := prometheus.NewRegistry()
		recorder = stdx.Must1(metrics.NewPrometheus(reg))
		srv := serveMetrics(addr, reg)
		defer func() {
			if err := srv.Shutdown(context.WithoutCancel(ctx)); err != nil {
				slog.Warn("failed to stop metrics server", slogx.Error(err))
			}
		}()
	}

	bridge := transport.NewNATS(nc, transport.SubjectPrefix(envStrOrDefault("ADAPTY_SUBJECT_PREFIX", transport.DefaultSubjectPrefix)))
	plugin := adapty.New(bridge, adapty.Metrics(recorder))
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := plugin.Close(closeCtx); err != nil {
			slog.Warn("failed to tear down listeners", slogx.Error(err))
		}
	}()

	printer := eventfmt.New(os.Stdout, !color.NoColor)

	for _, family := range emitter.Families {
		_, err := plugin.Events().AddListener(ctx, family, func(_ context.Context, ev events.Event) error {
			printer.Session(string(family), ev)
			return nil
		})
		if err != nil {
			return fmt.Errorf("failed to listen for %s: %w", family, err)
		}
	}

	if viewID := os.Getenv("ADAPTY_VIEW_ID"); viewID != "" {
		if err := followPaywall(ctx, plugin, printer, viewID); err != nil {
			return err
		}
	}
	if viewID := os.Getenv("ADAPTY_ONBOARDING_VIEW_ID"); viewID != "" {
		if err := followOnboarding(ctx, plugin, printer, viewID); err != nil {
			return err
		}
	}

	slog.Info("listening for native events", slog.String("url", natsx.URL()))
	<-ctx.Done()
	return nil
}

func serveMetrics(addr string, reg *prometheus.Registry) *http.Server {
	srv := &http.Server{
		Addr:              addr,
		Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server stopped", slogx.Error(err))
		}
	}()
	return srv
}

func followPaywall(ctx context.Context, plugin *adapty.Plugin, printer *eventfmt.Printer, viewID string) error {
	router, err := plugin.Paywall(viewID)
	if err != nil {
		return err
	}
	for _, slot := range paywall.Slots() {
		err := router.AddInternalListener(ctx, slot, func(_ context.Context, ev events.PaywallEvent) error {
			printer.View("paywall", string(slot), ev)
			return nil
		})
		if err != nil {
			return fmt.Errorf("failed to follow paywall slot %s: %w", slot, err)
		}
	}
	return nil
}

func followOnboarding(ctx context.Context, plugin *adapty.Plugin, printer *eventfmt.Printer, viewID string) error {
	router, err := plugin.Onboarding(viewID)
	if err != nil {
		return err
	}
	for _, slot := range onboarding.Slots() {
		err := router.AddInternalListener(ctx, slot, func(_ context.Context, ev events.OnboardingEvent) error {
			printer.View("onboarding", string(slot), ev)
			return nil
		})
		if err != nil {
			return fmt.Errorf("failed to follow onboarding slot %s: %w", slot, err)
		}
	}
	return nil
}
