package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gopkg.in/yaml.v2"

	"gorover/core"
	"gorover/host/config"
	"gorover/host/gateway"
	"gorover/host/logging"
	"gorover/host/mcu"
	"gorover/host/periph"
	"gorover/host/serial"
)

// stopTimeout bounds the final Stop dispatch on shutdown
const stopTimeout = 2 * time.Second

// run serves until ctx is done, then stops the rover and releases resources
func run(ctx context.Context, cfg *config.Config) (err error) {
	logger, logCloser, err := logging.New("roverd", cfg.Log)
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
		err = multierr.Append(err, logCloser.Close())
	}()
	logging.BridgeDebug(logger)
	defer logging.DetachDebug()

	backend, closer, err := newBackend(cfg, logger)
	if err != nil {
		return err
	}

	opts := gateway.Options{
		DeviceName:    cfg.DeviceName,
		ControlPath:   cfg.HTTP.ControlPath,
		WebsocketPath: cfg.HTTP.WebsocketPath,
		Logger:        logger,
	}
	var publisher *gateway.MQTTPublisher
	if cfg.MQTT.Broker != "" {
		publisher, err = gateway.NewMQTTPublisher(cfg.MQTT, logger.Named("mqtt"))
		if err != nil {
			return multierr.Append(err, closer.Close())
		}
		opts.Publisher = publisher
		logger.Infow("publishing status", "topic", publisher.Topic())
	}

	server := gateway.NewServer(backend, opts)
	go gateway.NewHeartbeat(server, cfg.Heartbeat.Interval).Run(ctx)

	logger.Infow("starting roverd",
		"device", cfg.DeviceName,
		"backend", cfg.Backend,
		"heartbeat", cfg.Heartbeat.Interval,
	)
	serveErr := server.ListenAndServe(ctx, cfg.HTTP.Listen)

	// Leave the wheels stopped whatever the exit path
	stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	if _, stopErr := backend.Command(stopCtx, core.CmdStop.Token()); stopErr != nil {
		logger.Warnw("failed to stop rover on shutdown", "error", stopErr)
		serveErr = multierr.Append(serveErr, fmt.Errorf("stop on shutdown: %w", stopErr))
	}

	if publisher != nil {
		serveErr = multierr.Append(serveErr, publisher.Close())
	}
	serveErr = multierr.Append(serveErr, closer.Close())
	logger.Infow("roverd stopped")
	return serveErr
}

// newBackend builds the command backend selected by cfg.Backend
func newBackend(cfg *config.Config, logger *zap.SugaredLogger) (gateway.Commander, io.Closer, error) {
	switch cfg.Backend {
	case config.BackendSim:
		motion, err := cfg.CoreConfig()
		if err != nil {
			return nil, nil, err
		}
		return gateway.NewLocalBackend(motion, &core.RecordingActuator{}), closerFunc(func() error { return nil }), nil

	case config.BackendPeriph:
		motion, err := cfg.CoreConfig()
		if err != nil {
			return nil, nil, err
		}
		driver, err := periph.Open(cfg.Periph, motion.DutyMax)
		if err != nil {
			return nil, nil, err
		}
		logger.Infow("driving GPIO wheels", "pwm_hz", cfg.Periph.PWMFrequencyHz)
		return gateway.NewLocalBackend(motion, driver), driver, nil

	case config.BackendSerial:
		link := mcu.NewMCU()
		link.Timeout = cfg.Serial.Timeout
		serialCfg := &serial.Config{
			Device:      cfg.Serial.Device,
			Baud:        cfg.Serial.Baud,
			ReadTimeout: cfg.Serial.ReadTimeoutMs,
		}
		if err := link.ConnectWithConfig(serialCfg); err != nil {
			return nil, nil, err
		}
		logger.Infow("connected to firmware", "device", cfg.Serial.Device)
		return link, link, nil
	}
	return nil, nil, fmt.Errorf("%w: unknown backend %q", config.ErrInvalid, cfg.Backend)
}

// printConfig writes cfg as YAML
func printConfig(w io.Writer, cfg *config.Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	_, err = w.Write(data)
	return err
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }
