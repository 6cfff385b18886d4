package lifecycle

import (
	"context"
	"errors"
	"testing"
)

func fixedRunner(out string, err error) Runner {
	return func(ctx context.Context, name string, args ...string) (string, error) {
		return out, err
	}
}

func TestAssessNVMePercentageUsed(t *testing.T) {
	out := `
SMART/Health Information (NVMe Log 0x02)
Critical Warning:                   0x00
Temperature:                        38 Celsius
Percentage Used:                    12%
Data Units Read:                    10,000,000
`
	a := NewAssessorWithRunner(fixedRunner(out, nil))
	got, err := a.Assess(context.Background(), "/dev/nvme0n1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Estimated {
		t.Fatal("measured data flagged as estimated")
	}
	if got.PercentUsed != 12 || got.PercentRemaining != 88 {
		t.Fatalf("percent used=%v remaining=%v", got.PercentUsed, got.PercentRemaining)
	}
	if got.Health != "good" {
		t.Fatalf("health %q", got.Health)
	}
	if got.CyclesUsed != 12 || got.CyclesRemaining != 88 {
		t.Fatalf("cycles used=%d remaining=%d", got.CyclesUsed, got.CyclesRemaining)
	}
}

func TestAssessWearoutIndicatorInverted(t *testing.T) {
	out := `
=== START OF READ SMART DATA SECTION ===
Media_Wearout_Indicator - 20
`
	a := NewAssessorWithRunner(fixedRunner(out, nil))
	got, err := a.Assess(context.Background(), "/dev/sda")
	if err != nil {
		t.Fatal(err)
	}
	// The indicator counts down from 100; a current value of 20 is 80% used.
	if got.PercentUsed != 80 {
		t.Fatalf("percent used %v", got.PercentUsed)
	}
	if got.Health != "warning" {
		t.Fatalf("health %q", got.Health)
	}
}

func TestAssessFallsBackWhenSmartctlMissing(t *testing.T) {
	a := NewAssessorWithRunner(fixedRunner("", errors.New("executable not found")))
	got, err := a.Assess(context.Background(), "/dev/nvme0n1")
	if err != nil {
		t.Fatal(err)
	}
	if !got.Estimated {
		t.Fatal("fallback must be labeled estimated")
	}
	if !got.Available {
		t.Fatal("fallback still produces an assessment")
	}
	if got.PercentUsed < 5 || got.PercentUsed > 85 {
		t.Fatalf("estimate out of bounds: %v", got.PercentUsed)
	}

	// Stable per device.
	again, err := a.Assess(context.Background(), "/dev/nvme0n1")
	if err != nil {
		t.Fatal(err)
	}
	if again.PercentUsed != got.PercentUsed {
		t.Fatal("estimate not deterministic for the same device")
	}
}

func TestAssessFallsBackOnUnparseableOutput(t *testing.T) {
	a := NewAssessorWithRunner(fixedRunner("smartctl output with no wear attributes", nil))
	got, err := a.Assess(context.Background(), "/dev/sdc")
	if err != nil {
		t.Fatal(err)
	}
	if !got.Estimated {
		t.Fatal("unparseable output must fall back to the labeled estimate")
	}
}

func TestAssessCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	a := NewAssessorWithRunner(fixedRunner("", nil))
	if _, err := a.Assess(ctx, "/dev/sda"); !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled, got %v", err)
	}
}

func TestParsePercentUsedPriorities(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want float64
		ok   bool
	}{
		{"nvme direct", "Percentage Used: 55%", 55, true},
		{"nvme clamped", "Percentage Used: 250%", 100, true},
		{"wear leveling", "Wear_Leveling_Count - 42", 42, true},
		{"nothing", "no attributes here", 0, false},
	}
	for _, tt := range tests {
		got, ok := parsePercentUsed(tt.raw)
		if ok != tt.ok || (ok && got != tt.want) {
			t.Errorf("%s: got %v ok=%v, want %v ok=%v", tt.name, got, ok, tt.want, tt.ok)
		}
	}
}
