// Command smoker-controller drives a smoker's heater and fan from three
// thermocouples, a rotary encoder and an on/off switch, and publishes state
// changes to MQTT.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/sweeney/smoker-controller/internal/config"
	"github.com/sweeney/smoker-controller/internal/control"
	"github.com/sweeney/smoker-controller/internal/gpio"
	"github.com/sweeney/smoker-controller/internal/input"
	"github.com/sweeney/smoker-controller/internal/logging"
	"github.com/sweeney/smoker-controller/internal/logic"
	"github.com/sweeney/smoker-controller/internal/mqtt"
	"github.com/sweeney/smoker-controller/internal/sensor"
	"github.com/sweeney/smoker-controller/internal/setpoint"
	"github.com/sweeney/smoker-controller/internal/status"
	"github.com/sweeney/smoker-controller/internal/web"
)

func main() {
	configPath := flag.String("config", config.DefaultPath, "Path to YAML config file")
	printState := flag.Bool("print-state", false, "Print switch and thermocouple readings and exit")
	flag.Parse()

	if err := run(*configPath, *printState); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string, printState bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, logCloser, err := logging.New(logging.Options{Level: cfg.Log.Level, File: cfg.Log.File})
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer logCloser.Close()

	board, err := gpio.NewBoard(cfg.GPIO.Chip, cfg.Pins())
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer func() {
		if err := board.Close(); err != nil {
			logger.Error("failed to release gpio", "err", err)
		}
	}()

	src, err := sensor.OpenSerial(cfg.Sensors.Port, cfg.Sensors.Baud, cfg.Sensors.StaleAfter, logger)
	if err != nil {
		return fmt.Errorf("open thermocouple bridge: %w", err)
	}
	defer src.Close()
	sampler := sensor.NewSampler(src, cfg.SamplerConfig(), logger)

	if printState {
		return printCurrentState(os.Stdout, board, sampler, cfg.Sensors.StaleAfter)
	}

	startTime := time.Now()
	tracker := status.NewTracker(startTime, statusConfig(cfg))

	var publisher mqtt.Publisher
	var mqttStatus mqtt.ConnectionStatus
	if cfg.MQTT.Broker != "" {
		p, err := mqtt.NewRealPublisher(mqtt.Options{
			Broker:     cfg.MQTT.Broker,
			ClientID:   cfg.MQTT.ClientID,
			BufferSize: cfg.MQTT.Buffer,
			Logger:     logger,
		})
		if err != nil {
			return fmt.Errorf("init mqtt: %w", err)
		}
		defer p.Close()
		publisher, mqttStatus = p, p
	} else {
		logger.Info("mqtt disabled")
	}

	store := setpoint.New(cfg.SetpointConfig())
	ctrl := control.New(control.Deps{
		Switch:     board,
		Outputs:    board,
		Sampler:    sampler,
		Targets:    store,
		Controller: logic.NewController(cfg.Params(), startTime, uuid.NewString),
		Tracker:    tracker,
		Publisher:  publisher,
		MQTTStatus: mqttStatus,
		Heartbeat:  cfg.MQTT.Heartbeat,
		Logger:     logger,
	})
	ctrl.PublishStartup()

	var srv *web.Server
	if cfg.HTTP.Addr != "" {
		srv = web.New(cfg.HTTP.Addr, tracker, logger)
	}

	d := &daemon{
		control:       ctrl,
		input:         input.NewLoop(board, store, cfg.Input.ButtonDebounce, logger, time.Now),
		web:           srv,
		controlPeriod: cfg.Control.Period,
		inputPeriod:   cfg.Input.Period,
		logger:        logger,
	}

	logger.Info("started",
		"control_period", cfg.Control.Period,
		"input_period", cfg.Input.Period,
		"sensors", cfg.Sensors.Port,
		"broker", cfg.MQTT.Broker,
		"http", cfg.HTTP.Addr,
	)

	ctx, cancel := context.WithCancelCause(context.Background())
	defer cancel(nil)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case s := <-sigCh:
			logger.Info("received signal", "signal", s)
			cancel(control.ShutdownReason(signalName(s)))
		case <-ctx.Done():
		}
	}()

	return d.run(ctx)
}

// daemon runs the control context, the input context and the status server
// until the context is cancelled.
type daemon struct {
	control       *control.Loop
	input         *input.Loop
	web           *web.Server
	controlPeriod time.Duration
	inputPeriod   time.Duration
	logger        *slog.Logger
}

func (d *daemon) run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		ticker := time.NewTicker(d.controlPeriod)
		defer ticker.Stop()
		return d.control.Run(gctx, ticker.C)
	})

	g.Go(func() error {
		ticker := time.NewTicker(d.inputPeriod)
		defer ticker.Stop()
		return d.input.Run(gctx, ticker.C)
	})

	if d.web != nil {
		g.Go(func() error {
			d.logger.Info("http status server listening")
			if err := d.web.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("http server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return d.web.Shutdown(shutdownCtx)
		})
	}

	return g.Wait()
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	default:
		return "UNKNOWN"
	}
}

// printCurrentState waits for the bridge to deliver a frame, then prints one
// sample. Outputs are left untouched.
func printCurrentState(w io.Writer, sw gpio.Switch, sampler control.Sampler, wait time.Duration) error {
	on, err := sw.ReadSwitch()
	if err != nil {
		return fmt.Errorf("read switch: %w", err)
	}
	time.Sleep(wait)
	r := sampler.Sample()
	fmt.Fprintf(w, "switch: %s\n", onOff(on))
	fmt.Fprintf(w, "top: %s, bottom: %s, probe: %s\n", reading(r.Top), reading(r.Bottom), reading(r.Probe))
	return nil
}

func statusConfig(cfg *config.Config) status.Config {
	return status.Config{
		ControlPeriodMs:    cfg.Control.Period.Milliseconds(),
		InputPeriodMs:      cfg.Input.Period.Milliseconds(),
		HeartbeatMs:        cfg.MQTT.Heartbeat.Milliseconds(),
		EmergencyThreshold: cfg.Control.EmergencyThreshold,
		HeaterBuffer:       cfg.Heater.Buffer,
		HeaterMinCycleMs:   cfg.Heater.MinCycle.Milliseconds(),
		FanOnSpread:        cfg.Fan.OnSpread,
		FanOffSpread:       cfg.Fan.OffSpread,
		FanMinCycleMs:      cfg.Fan.MinCycle.Milliseconds(),
		SensorPort:         cfg.Sensors.Port,
		Broker:             cfg.MQTT.Broker,
		HTTPAddr:           cfg.HTTP.Addr,
	}
}

func onOff(on bool) string {
	if on {
		return "ON"
	}
	return "OFF"
}

func reading(r logic.Reading) string {
	if r.Pending {
		return "NO DATA"
	}
	if r.Fault {
		return "FAULT"
	}
	return fmt.Sprintf("%dF", r.Value)
}
