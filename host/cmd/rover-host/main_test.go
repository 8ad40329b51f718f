package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"gorover/core"
)

// localSender runs tokens through an in-process dispatcher
type localSender struct {
	d      *core.Dispatcher
	last   core.Status
	has    bool
	resets int
	fail   error
}

func (l *localSender) Send(token string) (core.Status, error) {
	if l.fail != nil {
		return core.Status{}, l.fail
	}
	l.last = l.d.Dispatch(token)
	l.has = true
	return l.last, nil
}

func (l *localSender) Reset() error {
	l.resets++
	l.d.Reset()
	return nil
}

func (l *localSender) LastStatus() (core.Status, bool) { return l.last, l.has }

func newLocalSender() *localSender {
	return &localSender{d: core.NewDispatcher(core.DefaultConfig(), nil)}
}

func TestRunLineToken(t *testing.T) {
	s := newLocalSender()
	var out bytes.Buffer

	if err := runLine(s, &out, "fwd 3"); err != nil {
		t.Fatalf("runLine failed: %v", err)
	}
	if s.last.Speed != 3 || s.last.Command != core.CmdForward {
		t.Errorf("Expected forward at speed 3, got %+v", s.last)
	}
	if strings.Count(out.String(), "vehicle_speed") != 3 {
		t.Errorf("Expected 3 status lines, got:\n%s", out.String())
	}
}

func TestRunLineIdleAndRepeat(t *testing.T) {
	s := newLocalSender()
	var out bytes.Buffer

	if err := runLine(s, &out, "repeat BWD 4"); err != nil {
		t.Fatalf("repeat failed: %v", err)
	}
	if err := runLine(s, &out, "idle 3"); err != nil {
		t.Fatalf("idle failed: %v", err)
	}
	// Coast, then two decay steps
	if s.last.Speed != 2 || s.last.Command != core.CmdNone {
		t.Errorf("Expected idle at speed 2, got %+v", s.last)
	}
}

func TestRunLineStatusAndReset(t *testing.T) {
	s := newLocalSender()
	var out bytes.Buffer

	if err := runLine(s, &out, "status"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "No status yet") {
		t.Errorf("Unexpected output %q", out.String())
	}

	_ = runLine(s, &out, "LFT")
	out.Reset()
	_ = runLine(s, &out, "status")
	if !strings.Contains(out.String(), `"command":"3"`) {
		t.Errorf("Expected last status in output, got %q", out.String())
	}

	if err := runLine(s, &out, "reset"); err != nil || s.resets != 1 {
		t.Errorf("Expected one reset, got %d (%v)", s.resets, err)
	}
}

func TestRunLineErrors(t *testing.T) {
	s := newLocalSender()
	var out bytes.Buffer

	tests := []string{"jump", "FWD zero", "FWD 0", "FWD 2 soon", "repeat FWD"}
	for _, line := range tests {
		if err := runLine(s, &out, line); err == nil {
			t.Errorf("Expected error for %q", line)
		}
	}

	s.fail = errors.New("response timeout")
	if err := runLine(s, &out, "STP"); err == nil || !errors.Is(err, s.fail) {
		t.Errorf("Expected wrapped send error, got %v", err)
	}
}
