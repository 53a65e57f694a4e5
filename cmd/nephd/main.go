package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/spectroneph/nephd/internal/commands"
	"github.com/spectroneph/nephd/internal/config"
	"github.com/spectroneph/nephd/internal/device"
	"github.com/spectroneph/nephd/internal/dispatch"
	"github.com/spectroneph/nephd/internal/engine"
	"github.com/spectroneph/nephd/internal/logging"
	"github.com/spectroneph/nephd/internal/observability"
	"github.com/spectroneph/nephd/internal/protocol"
	"github.com/spectroneph/nephd/internal/stream"
	"github.com/spectroneph/nephd/internal/transport"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "nephd: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to a TOML config file (defaults apply when empty)")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			return err
		}
	}

	logging.ConfigureRuntime()
	if lvl, ok := logging.ParseLevel(cfg.Logging.Level); ok {
		zerolog.SetGlobalLevel(lvl)
	}
	log := observability.InitLogger("nephd")
	observability.RegisterMetrics()

	link, err := transport.Open(transport.Config{
		Kind:       cfg.Transport.Kind,
		Addr:       cfg.Transport.Addr,
		SerialPort: cfg.Transport.SerialPort,
		BaudRate:   cfg.Transport.BaudRate,
	}, log)
	if err != nil {
		return err
	}
	defer link.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Restart is delegated to the process supervisor: the loop shuts
	// down after a grace period so the reset response drains first.
	lifecycle := device.NewHostLifecycle(func() {
		time.AfterFunc(time.Second, cancel)
	})

	sensor := device.NewSimSensor(device.SimOptions{
		Connected:      cfg.Sim.SensorConnected,
		HasExternalLed: cfg.Sim.ExternalLed,
		Seed:           cfg.Sim.Seed,
	})
	if err := sensor.Init(); err != nil {
		log.Warn().Err(err).Msg("sensor init failed, continuing without readings")
	}

	channel := protocol.NewChannel(link, lifecycle.UptimeMs)

	streams := stream.NewManager(cfg.Streams.MaxStreams, log)
	if err := streams.RegisterProducer("as7341", stream.NewSensorProducer(sensor, channel)); err != nil {
		return err
	}

	dispatcher := dispatch.NewDispatcher(log)
	eng := engine.New(engine.Config{
		TickInterval: time.Duration(cfg.Streams.TickInterval) * time.Millisecond,
		MaxLineBytes: cfg.Streams.MaxLineBytes,
	}, engine.Deps{
		Transport:  link,
		Channel:    channel,
		Dispatcher: dispatcher,
		Streams:    streams,
		Now:        lifecycle.UptimeMs,
		Sensor:     sensor,
		Log:        log,
	})
	if err := commands.RegisterAll(dispatcher, commands.Deps{
		Name:      cfg.Device.Name,
		Version:   cfg.Device.Version,
		Sensor:    sensor,
		Lifecycle: lifecycle,
		Streams:   streams,
		Clock:     lifecycle.UptimeMs,
		IdleMs:    eng.IdleMs,
		Log:       log,
	}); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer cancel()
		return eng.Run(gctx)
	})
	if cfg.Metrics.Enabled {
		srv := &http.Server{Addr: cfg.Metrics.Addr, Handler: promhttp.Handler()}
		g.Go(func() error {
			log.Info().Str("addr", cfg.Metrics.Addr).Msg("metrics listener up")
			if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, done := context.WithTimeout(context.Background(), 2*time.Second)
			defer done()
			return srv.Shutdown(shutdownCtx)
		})
	}
	return g.Wait()
}
