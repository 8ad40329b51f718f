package core

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestMixForwardFullSpeed(t *testing.T) {
	cfg := DefaultConfig()
	got := Mix(cfg.MaxSpeed, Maneuver{1, 1, 1, 1}, cfg)

	full := WheelOutput{Direction: DirectionForward, Duty: cfg.DutyMax}
	want := [NumWheels]WheelOutput{full, full, full, full}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Mix mismatch (-want +got):\n%s", diff)
	}
}

func TestMixZeroSpeed(t *testing.T) {
	cfg := DefaultConfig()
	for c := 0; c < int(CmdStop); c++ {
		row, _ := ManeuverFor(Command(c))
		for i, out := range Mix(0, row, cfg) {
			if out.Duty != 0 {
				t.Errorf("%v wheel %v: expected duty 0 at speed 0, got %d", Command(c), Wheel(i), out.Duty)
			}
		}
	}
}

func TestMixDiagonal(t *testing.T) {
	cfg := DefaultConfig()
	row, _ := ManeuverFor(CmdForwardLeft)
	got := Mix(1, row, cfg)

	want := [NumWheels]WheelOutput{
		WheelFrontRight: {Direction: DirectionForward, Duty: 50},
		WheelFrontLeft:  {Direction: DirectionForward, Duty: 100},
		WheelBackRight:  {Direction: DirectionForward, Duty: 50},
		WheelBackLeft:   {Direction: DirectionForward, Duty: 100},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Mix mismatch (-want +got):\n%s", diff)
	}
}

func TestMixPivotDirections(t *testing.T) {
	cfg := DefaultConfig()
	row, _ := ManeuverFor(CmdLeft)
	got := Mix(4, row, cfg)

	want := [NumWheels]WheelOutput{
		WheelFrontRight: {Direction: DirectionBackward, Duty: 400},
		WheelFrontLeft:  {Direction: DirectionForward, Duty: 400},
		WheelBackRight:  {Direction: DirectionBackward, Duty: 400},
		WheelBackLeft:   {Direction: DirectionForward, Duty: 400},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Mix mismatch (-want +got):\n%s", diff)
	}
}

func TestMixMonotonic(t *testing.T) {
	cfg := DefaultConfig()
	for c := 0; c < int(CmdStop); c++ {
		row, _ := ManeuverFor(Command(c))
		prev := Mix(0, row, cfg)
		for speed := 1; speed <= cfg.MaxSpeed; speed++ {
			cur := Mix(speed, row, cfg)
			for i := range cur {
				if cur[i].Duty < prev[i].Duty {
					t.Errorf("%v wheel %v: duty dropped from %d to %d at speed %d",
						Command(c), Wheel(i), prev[i].Duty, cur[i].Duty, speed)
				}
				if cur[i].Duty > cfg.DutyMax {
					t.Errorf("%v wheel %v: duty %d above max", Command(c), Wheel(i), cur[i].Duty)
				}
			}
			prev = cur
		}
	}
}

func TestMixDirectionMatchesSign(t *testing.T) {
	cfg := DefaultConfig()
	m := Maneuver{0.5, -0.5, 0, -1}
	got := Mix(cfg.MaxSpeed, m, cfg)

	want := [NumWheels]WheelOutput{
		{Direction: DirectionForward, Duty: 500},
		{Direction: DirectionBackward, Duty: 500},
		{Direction: DirectionNeutral, Duty: 0},
		{Direction: DirectionBackward, Duty: 1000},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Mix mismatch (-want +got):\n%s", diff)
	}
}

func TestMixClampsInputs(t *testing.T) {
	cfg := DefaultConfig()
	got := Mix(cfg.MaxSpeed+3, Maneuver{1.5, -2, 1, 1}, cfg)
	for i, out := range got {
		if out.Duty != cfg.DutyMax {
			t.Errorf("Wheel %v: expected clamped duty %d, got %d", Wheel(i), cfg.DutyMax, out.Duty)
		}
	}
	for i, out := range Mix(-1, Maneuver{1, 1, 1, 1}, cfg) {
		if out.Duty != 0 {
			t.Errorf("Wheel %v: expected 0 for negative speed, got %d", Wheel(i), out.Duty)
		}
	}
}

func TestMixRounding(t *testing.T) {
	// 1 * 0.5 * 255 / 10 = 12.75 rounds to 13
	cfg := Config{MaxSpeed: 10, DutyMax: 255}
	got := Mix(1, Maneuver{0.5, 0.5, 0.5, 0.5}, cfg)
	if got[0].Duty != 13 {
		t.Errorf("Expected rounded duty 13, got %d", got[0].Duty)
	}
}
