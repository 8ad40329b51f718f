// Command roverd serves the rover command interface over HTTP, websockets
// and MQTT, driving a simulated rover, Linux GPIO lines or the firmware over
// its serial link.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"gorover/host/config"
	"gorover/host/serial"
	"gorover/protocol"
)

const (
	flagConfig  = "config"
	flagBackend = "backend"
	flagListen  = "listen"
	flagDevice  = "device"
	flagDebug   = "debug"
)

func main() {
	app := &cli.App{
		Name:    "roverd",
		Usage:   "drive a four-wheeled rover from HTTP, websocket and MQTT clients",
		Version: protocol.Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagConfig,
				Aliases: []string{"c"},
				Usage:   "Load configuration from `FILE`",
				EnvVars: []string{"ROVER_CONFIG"},
			},
			&cli.BoolFlag{
				Name:  flagDebug,
				Usage: "enable debug logging",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "run the gateway",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  flagBackend,
						Usage: "backend: sim, periph or serial (overrides the config file)",
					},
					&cli.StringFlag{
						Name:  flagListen,
						Usage: "HTTP listen `ADDR` (overrides the config file)",
					},
					&cli.StringFlag{
						Name:  flagDevice,
						Usage: "serial `DEVICE` for the serial backend, or auto",
					},
				},
				Action: serveAction,
			},
			{
				Name:  "ports",
				Usage: "list serial ports the firmware may be attached to",
				Action: func(c *cli.Context) error {
					ports, err := serial.ListPorts()
					if err != nil {
						return err
					}
					if len(ports) == 0 {
						fmt.Fprintln(c.App.Writer, "no serial ports found")
						return nil
					}
					for _, p := range ports {
						fmt.Fprintln(c.App.Writer, p)
					}
					return nil
				},
			},
			{
				Name:  "config",
				Usage: "print the effective configuration",
				Action: func(c *cli.Context) error {
					cfg, err := loadConfig(c)
					if err != nil {
						return err
					}
					return printConfig(c.App.Writer, cfg)
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig loads the config file and applies command line overrides
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String(flagConfig))
	if err != nil {
		return nil, err
	}
	if v := c.String(flagBackend); v != "" {
		cfg.Backend = v
	}
	if v := c.String(flagListen); v != "" {
		cfg.HTTP.Listen = v
	}
	if v := c.String(flagDevice); v != "" {
		cfg.Serial.Device = v
	}
	if c.Bool(flagDebug) {
		cfg.Log.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func serveAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return run(ctx, cfg)
}
