package core

import (
	"bytes"
	"io"
	"testing"
)

func TestStatusAppendJSON(t *testing.T) {
	tests := []struct {
		status Status
		want   string
	}{
		{Status{Command: CmdForward, Speed: 1}, `{"status":1,"command":"2","vehicle_speed":"1"}`},
		{Status{Command: CmdNone, Speed: 0}, `{"status":1,"command":"9","vehicle_speed":"0"}`},
		{Status{Command: CmdStop, Speed: 0}, `{"status":1,"command":"8","vehicle_speed":"0"}`},
		{Status{Command: CmdForwardLeft, Speed: 10}, `{"status":1,"command":"0","vehicle_speed":"10"}`},
	}

	for _, test := range tests {
		got := string(test.status.AppendJSON(nil))
		if got != test.want {
			t.Errorf("Expected %s, got %s", test.want, got)
		}
		if test.status.String() != test.want {
			t.Errorf("String() = %s, expected %s", test.status.String(), test.want)
		}
	}
}

func TestAppendInt(t *testing.T) {
	tests := map[int]string{0: "0", 7: "7", 10: "10", 1234: "1234", -5: "-5"}
	for n, want := range tests {
		if got := itoa(n); got != want {
			t.Errorf("itoa(%d) = %s, expected %s", n, got, want)
		}
	}
}

func TestResponseSingleShot(t *testing.T) {
	resp := NewResponse(Status{Command: CmdBackward, Speed: 3})
	want := `{"status":1,"command":"6","vehicle_speed":"3"}`

	if resp.Len() != len(want) {
		t.Fatalf("Expected %d bytes, got %d", len(want), resp.Len())
	}

	// Read in small chunks, as a transport with a small window would
	var out bytes.Buffer
	chunk := make([]byte, 7)
	for {
		n, err := resp.Read(chunk)
		out.Write(chunk[:n])
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Read failed: %v", err)
		}
	}
	if out.String() != want {
		t.Errorf("Expected %s, got %s", want, out.String())
	}

	// Fully consumed: backing buffer is cleared and nothing leaks
	if resp.Len() != 0 {
		t.Errorf("Expected empty response after read, got %d bytes", resp.Len())
	}
	for i, b := range resp.buf {
		if b != 0 {
			t.Fatalf("Backing buffer not cleared at %d", i)
		}
	}
	n, err := resp.Read(chunk)
	if n != 0 || err != io.EOF {
		t.Errorf("Expected (0, EOF) on second read, got (%d, %v)", n, err)
	}
}

func TestResponseClose(t *testing.T) {
	resp := NewResponse(Status{Command: CmdStop})
	if err := resp.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if resp.Len() != 0 || len(resp.Bytes()) != 0 {
		t.Error("Expected Close to release the payload")
	}
	if err := resp.Close(); err != nil {
		t.Errorf("Second Close failed: %v", err)
	}
}

func TestResponseWriteTo(t *testing.T) {
	resp := NewResponse(Status{Command: CmdLeft, Speed: 2})
	var out bytes.Buffer
	n, err := io.Copy(&out, resp)
	if err != nil {
		t.Fatalf("Copy failed: %v", err)
	}
	want := `{"status":1,"command":"3","vehicle_speed":"2"}`
	if out.String() != want || int(n) != len(want) {
		t.Errorf("Expected %s (%d bytes), got %s (%d bytes)", want, len(want), out.String(), n)
	}
	if resp.Len() != 0 {
		t.Error("Expected response to be drained")
	}
}
