package safety

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jessicaagarwal/Shoonya-wipe/internal/config"
)

func testGate(t *testing.T, mounts string) *Gate {
	t.Helper()
	dir := t.TempDir()
	mountsPath := filepath.Join(dir, "mounts")
	if err := os.WriteFile(mountsPath, []byte(mounts), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := config.Default()
	cfg.Safety.DevicePrefix = dir + "/"
	cfg.Safety.DenylistPaths = []string{filepath.Join(dir, "boot")}
	cfg.Safety.MountsPath = mountsPath

	g := NewGate(cfg, nil)
	g.euid = func() int { return 0 }
	return g
}

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestValidateEnvironmentFailsClosed(t *testing.T) {
	g := testGate(t, "")
	g.euid = func() int { return 1000 }
	t.Setenv(ProductionModeEnv, "")

	ok, errs := g.ValidateEnvironment()
	if ok {
		t.Fatal("expected failure without privilege and flag")
	}
	if len(errs) != 2 {
		t.Fatalf("expected both reasons, got %v", errs)
	}
}

func TestValidateEnvironmentRequiresBothSignals(t *testing.T) {
	g := testGate(t, "")

	t.Setenv(ProductionModeEnv, "")
	if ok, _ := g.ValidateEnvironment(); ok {
		t.Fatal("root alone must not pass")
	}

	t.Setenv(ProductionModeEnv, "1")
	g.euid = func() int { return 1000 }
	if ok, _ := g.ValidateEnvironment(); ok {
		t.Fatal("flag alone must not pass")
	}

	g.euid = func() int { return 0 }
	if ok, errs := g.ValidateEnvironment(); !ok {
		t.Fatalf("both signals present, got %v", errs)
	}
}

func TestValidateDeviceMissing(t *testing.T) {
	g := testGate(t, "")
	ok, errs := g.ValidateDevice(filepath.Join(g.devicePrefix, "ghost"))
	if ok || len(errs) == 0 {
		t.Fatal("expected missing-device failure")
	}
	if !strings.Contains(errs[0].Error(), "does not exist") {
		t.Fatalf("unexpected reason %v", errs[0])
	}
}

func TestValidateDeviceWrongPrefix(t *testing.T) {
	g := testGate(t, "")
	outside := filepath.Join(t.TempDir(), "disk.img")
	touch(t, outside)

	ok, errs := g.ValidateDevice(outside)
	if ok {
		t.Fatal("expected prefix failure")
	}
	found := false
	for _, err := range errs {
		if strings.Contains(err.Error(), "expected prefix") {
			found = true
		}
	}
	if !found {
		t.Fatalf("no prefix reason in %v", errs)
	}
}

func TestValidateDeviceMounted(t *testing.T) {
	g := testGate(t, "")
	target := filepath.Join(g.devicePrefix, "vdb")
	touch(t, target)

	mounts := target + "1 /data ext4 rw 0 0\n/dev/other / ext4 rw 0 0\n"
	if err := os.WriteFile(g.mountsPath, []byte(mounts), 0o644); err != nil {
		t.Fatal(err)
	}

	ok, errs := g.ValidateDevice(target)
	if ok {
		t.Fatal("expected mounted failure")
	}
	found := false
	for _, err := range errs {
		if strings.Contains(err.Error(), "currently mounted") {
			found = true
		}
	}
	if !found {
		t.Fatalf("no mounted reason in %v", errs)
	}
}

func TestValidateDeviceDenylist(t *testing.T) {
	g := testGate(t, "")
	target := filepath.Join(g.devicePrefix, "boot")
	touch(t, target)

	ok, errs := g.ValidateDevice(target)
	if ok {
		t.Fatal("expected denylist failure")
	}
	found := false
	for _, err := range errs {
		if strings.Contains(err.Error(), "protected system path") {
			found = true
		}
	}
	if !found {
		t.Fatalf("no denylist reason in %v", errs)
	}
}

func TestValidateDevicePasses(t *testing.T) {
	g := testGate(t, "/dev/other / ext4 rw 0 0\n")
	target := filepath.Join(g.devicePrefix, "vdc")
	touch(t, target)

	ok, errs := g.ValidateDevice(target)
	if !ok {
		t.Fatalf("expected pass, got %v", errs)
	}
}

func TestTerminalConfirmerExactMatch(t *testing.T) {
	cases := []struct {
		input string
		want  bool
	}{
		{"YES\n", true},
		{"yes\n", false},
		{"Yes\n", false},
		{"YES \n", false},
		{"\n", false},
		{"", false},
	}
	for _, tc := range cases {
		c := &TerminalConfirmer{In: strings.NewReader(tc.input), Out: &strings.Builder{}}
		got, err := c.Confirm("/dev/vdb", "Purge")
		if tc.input == "" {
			if err == nil && got {
				t.Error("empty input should not confirm")
			}
			continue
		}
		if err != nil {
			t.Fatalf("Confirm(%q): %v", tc.input, err)
		}
		if got != tc.want {
			t.Errorf("Confirm(%q) = %v, want %v", tc.input, got, tc.want)
		}
	}
}
