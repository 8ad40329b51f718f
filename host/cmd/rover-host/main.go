package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gorover/core"
	"gorover/host/mcu"
	"gorover/host/serial"
	"gorover/protocol"
)

var (
	device  = flag.String("device", serial.AutoDevice, "Serial device path, or auto")
	baud    = flag.Int("baud", 115200, "Baud rate (ignored for USB CDC)")
	timeout = flag.Duration("timeout", mcu.DefaultTimeout, "Response timeout per request")
	verbose = flag.Bool("verbose", false, "Enable verbose output")
)

func main() {
	flag.Parse()

	fmt.Println("Rover Host - serial console for the rover firmware")
	fmt.Printf("Link protocol %s\n\n", protocol.Version)

	mcuConn := mcu.NewMCU()
	mcuConn.Timeout = *timeout

	fmt.Printf("Connecting to rover on %s...\n", *device)
	cfg := serial.DefaultConfig(*device)
	cfg.Baud = *baud
	if err := mcuConn.ConnectWithConfig(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to connect: %v\n", err)
		os.Exit(1)
	}
	defer mcuConn.Close()

	fmt.Println("Connected successfully!")

	// One-shot mode: tokens on the command line
	if flag.NArg() > 0 {
		for _, arg := range flag.Args() {
			if err := runLine(mcuConn, os.Stdout, arg); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
		}
		return
	}

	fmt.Println("Enter commands (type 'help' for available commands, 'quit' to exit):")
	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch strings.Fields(line)[0] {
		case "quit", "exit", "q":
			// Leave the rover stopped
			_, _ = mcuConn.Send(core.CmdStop.Token())
			fmt.Println("Goodbye!")
			return
		case "help", "?":
			printHelp(os.Stdout)
			continue
		}

		if err := runLine(mcuConn, os.Stdout, line); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
	}

	if err := scanner.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "Error reading input: %v\n", err)
		os.Exit(1)
	}
}

// sender is the part of mcu.MCU the console needs
type sender interface {
	Send(token string) (core.Status, error)
	Reset() error
	LastStatus() (core.Status, bool)
}

// runLine executes one console line
func runLine(m sender, out io.Writer, line string) error {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return nil
	}

	switch parts[0] {
	case "status":
		st, ok := m.LastStatus()
		if !ok {
			fmt.Fprintln(out, "No status yet")
			return nil
		}
		printStatus(out, st)
		return nil

	case "reset":
		if err := m.Reset(); err != nil {
			return fmt.Errorf("failed to reset link: %w", err)
		}
		fmt.Fprintln(out, "Link reset; the next command restarts the rover state")
		return nil

	case "idle":
		return sendTokens(m, out, "", parts[1:])

	case "repeat":
		// repeat TOKEN N [interval]
		if len(parts) < 3 {
			return fmt.Errorf("usage: repeat TOKEN N [interval]")
		}
		return sendTokens(m, out, parts[1], parts[2:])
	}

	token := strings.ToUpper(parts[0])
	if core.DecodeCommand(token) == core.CmdNone {
		return fmt.Errorf("unknown command: %s (type 'help' for available commands)", parts[0])
	}
	return sendTokens(m, out, token, parts[1:])
}

// sendTokens sends token count times, optionally spaced by an interval
func sendTokens(m sender, out io.Writer, token string, args []string) error {
	count := 1
	var interval time.Duration
	if len(args) > 0 {
		if _, err := fmt.Sscanf(args[0], "%d", &count); err != nil || count < 1 {
			return fmt.Errorf("invalid count %q", args[0])
		}
	}
	if len(args) > 1 {
		d, err := time.ParseDuration(args[1])
		if err != nil {
			return fmt.Errorf("invalid interval %q: %w", args[1], err)
		}
		interval = d
	}

	for i := 0; i < count; i++ {
		if i > 0 && interval > 0 {
			time.Sleep(interval)
		}
		start := time.Now()
		st, err := m.Send(token)
		if err != nil {
			return fmt.Errorf("failed to send %q: %w", token, err)
		}
		printStatus(out, st)
		if *verbose {
			fmt.Fprintf(out, "  round trip %v\n", time.Since(start))
		}
	}
	return nil
}

func printStatus(out io.Writer, st core.Status) {
	fmt.Fprintf(out, "  %s  (%s, speed %d)\n", st.String(), st.Command, st.Speed)
}

func printHelp(out io.Writer) {
	fmt.Fprintln(out, "\nAvailable commands:")
	fmt.Fprintln(out, "  FLT FRT FWD LFT RGT BLT BWD BRT STP [N [interval]]")
	fmt.Fprintln(out, "                   - Send a drive token (N times)")
	fmt.Fprintln(out, "  idle [N [interval]] - Send idle ticks")
	fmt.Fprintln(out, "  repeat TOKEN N [interval]")
	fmt.Fprintln(out, "                   - Send TOKEN N times")
	fmt.Fprintln(out, "  status           - Print the last reported status")
	fmt.Fprintln(out, "  reset            - Restart the link sequence")
	fmt.Fprintln(out, "  help             - Show this help message")
	fmt.Fprintln(out, "  quit/exit/q      - Stop the rover and exit")
	fmt.Fprintln(out)
}
