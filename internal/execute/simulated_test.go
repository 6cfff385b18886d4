package execute

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/jessicaagarwal/Shoonya-wipe/internal/decision"
	"github.com/jessicaagarwal/Shoonya-wipe/internal/device"
)

func newExtent(t *testing.T, size int) (string, device.Profile) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "extent.img")
	data := make([]byte, size)
	for i := range data {
		data[i] = 0xAB
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path, device.Profile{
		Name:          "extent",
		Path:          path,
		Transport:     device.TransportFile,
		Media:         device.MediaVirtual,
		CapacityBytes: int64(size),
	}
}

func TestSimulatedOverwriteWritesFullExtent(t *testing.T) {
	const size = 3*1024*1024 + 513 // deliberately not chunk-aligned
	path, profile := newExtent(t, size)

	exec := NewSimulatedExecutor(1024*1024, 0, 0)
	ok, details, written, err := exec.Apply(context.Background(), profile, decision.TechniqueSinglePassOverwrite, nil)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if !ok {
		t.Fatalf("overwrite failed: %v", details)
	}
	if written != size {
		t.Fatalf("wrote %d bytes, want %d", written, size)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) != size {
		t.Fatalf("extent grew or shrank: %d", len(data))
	}
	want := bytes.Repeat([]byte{OverwritePattern}, size)
	if !bytes.Equal(data, want) {
		t.Fatal("extent not fully overwritten with declared pattern")
	}
}

func TestSimulatedOverwriteProgressMonotonic(t *testing.T) {
	_, profile := newExtent(t, 2*1024*1024)

	var calls []int64
	progress := func(done, total int64) {
		calls = append(calls, done)
		if total != 2*1024*1024 {
			t.Errorf("total %d", total)
		}
	}

	exec := NewSimulatedExecutor(512*1024, 0, 0)
	ok, _, _, err := exec.Apply(context.Background(), profile, decision.TechniqueSinglePassOverwrite, progress)
	if err != nil || !ok {
		t.Fatalf("Apply: ok=%v err=%v", ok, err)
	}
	if len(calls) == 0 {
		t.Fatal("no progress reported")
	}
	for i := 1; i < len(calls); i++ {
		if calls[i] < calls[i-1] {
			t.Fatalf("progress went backwards: %v", calls)
		}
	}
	if calls[len(calls)-1] != 2*1024*1024 {
		t.Fatalf("final progress %d", calls[len(calls)-1])
	}
}

func TestSimulatedSecureEraseTouchesOnlyWindows(t *testing.T) {
	const size = 1024 * 1024
	const window = 64 * 1024
	path, profile := newExtent(t, size)

	exec := NewSimulatedExecutor(0, window, 0)
	ok, details, written, err := exec.Apply(context.Background(), profile, decision.TechniqueSSDSecureErase, nil)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if !ok {
		t.Fatalf("secure erase failed: %v", details)
	}
	if written != 2*window {
		t.Fatalf("wrote %d bytes, want %d", written, 2*window)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	// Middle of the extent must be untouched.
	for i := window; i < size-window; i++ {
		if data[i] != 0xAB {
			t.Fatalf("mid-extent byte %d modified", i)
		}
	}
	// Randomized windows are overwhelmingly unlikely to retain the fill.
	if bytes.Equal(data[:window], bytes.Repeat([]byte{0xAB}, window)) {
		t.Fatal("head window not randomized")
	}
	if bytes.Equal(data[size-window:], bytes.Repeat([]byte{0xAB}, window)) {
		t.Fatal("tail window not randomized")
	}
}

func TestSimulatedCryptoEraseRequiresAlwaysEncrypted(t *testing.T) {
	_, profile := newExtent(t, 64*1024)
	profile.IsEncrypted = true
	profile.WasAlwaysEncrypted = false

	exec := NewSimulatedExecutor(0, 0, 0)
	ok, details, _, err := exec.Apply(context.Background(), profile, decision.TechniqueCryptographicErase, nil)
	if err != nil {
		t.Fatalf("not-applicable must not be a fault: %v", err)
	}
	if ok {
		t.Fatal("expected clean failure")
	}
	if len(details) == 0 || !bytes.Contains([]byte(details[0]), []byte("not applicable")) {
		t.Fatalf("details %v", details)
	}
}

func TestSimulatedCryptoEraseDestroysHeader(t *testing.T) {
	path, profile := newExtent(t, 64*1024)
	profile.IsEncrypted = true
	profile.WasAlwaysEncrypted = true

	exec := NewSimulatedExecutor(0, 0, 0)
	ok, _, written, err := exec.Apply(context.Background(), profile, decision.TechniqueCryptographicErase, nil)
	if err != nil || !ok {
		t.Fatalf("Apply: ok=%v err=%v", ok, err)
	}
	if written != 4096 {
		t.Fatalf("wrote %d header bytes", written)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Equal(data[:4096], bytes.Repeat([]byte{0xAB}, 4096)) {
		t.Fatal("header not destroyed")
	}
	for i := 4096; i < len(data); i++ {
		if data[i] != 0xAB {
			t.Fatalf("byte %d beyond header modified", i)
		}
	}
}

func TestSimulatedMissingExtentIsFault(t *testing.T) {
	profile := device.Profile{Path: filepath.Join(t.TempDir(), "missing.img")}
	exec := NewSimulatedExecutor(0, 0, 0)
	_, _, _, err := exec.Apply(context.Background(), profile, decision.TechniqueSinglePassOverwrite, nil)
	if err == nil {
		t.Fatal("expected error for missing extent")
	}
}
