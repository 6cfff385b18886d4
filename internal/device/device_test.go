package device

import (
	"strings"
	"testing"
)

func TestParseTransportCaseInsensitive(t *testing.T) {
	cases := map[string]Transport{
		"nvme":    TransportNVMe,
		"NVMe":    TransportNVMe,
		"SATA":    TransportSATA,
		"ata":     TransportATA,
		"usb":     TransportUSB,
		"sas":     TransportSCSI,
		"loop":    TransportFile,
		"virtio":  TransportVirtual,
		"":        TransportUnknown,
		"weird42": TransportUnknown,
	}
	for in, want := range cases {
		if got := ParseTransport(in); got != want {
			t.Errorf("ParseTransport(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestMediaFallsBackToTransport(t *testing.T) {
	if got := ParseMedia("", TransportNVMe); got != MediaFlash {
		t.Fatalf("nvme media %q", got)
	}
	if got := ParseMedia("", TransportUSB); got != MediaMagnetic {
		t.Fatalf("usb media %q", got)
	}
	if got := ParseMedia("hdd", TransportNVMe); got != MediaMagnetic {
		t.Fatalf("explicit hdd media %q", got)
	}
}

func TestNormalizeFillsPlaceholders(t *testing.T) {
	p := Profile{Name: "sdb", Path: "/dev/sdb"}.Normalize()
	if p.Model != "Unknown" {
		t.Errorf("model %q", p.Model)
	}
	if p.Serial != "UNKNOWN-sdb" {
		t.Errorf("serial %q", p.Serial)
	}
	if p.Size != "Unknown" {
		t.Errorf("size %q", p.Size)
	}
	if p.Transport != TransportUnknown {
		t.Errorf("transport %q", p.Transport)
	}
}

func TestManufacturerSubstringMatch(t *testing.T) {
	cases := []struct {
		model string
		want  string
	}{
		{"Samsung SSD 980 PRO", "Samsung"},
		{"WDC WD40EZRZ western digital", "Western Digital"},
		{"ST4000DM004", "Unknown"},
		{"", "Unknown"},
	}
	for _, tc := range cases {
		p := Profile{Model: tc.model}
		if got := p.Manufacturer(); got != tc.want {
			t.Errorf("Manufacturer(%q) = %q, want %q", tc.model, got, tc.want)
		}
	}
}

func TestMediaTypeLabel(t *testing.T) {
	if got := (Profile{Transport: TransportNVMe}).MediaTypeLabel(); got != "Flash Memory (SSD)" {
		t.Errorf("nvme label %q", got)
	}
	if got := (Profile{Transport: TransportUSB}).MediaTypeLabel(); got != "Flash Memory (USB/SCSI)" {
		t.Errorf("usb label %q", got)
	}
	if got := (Profile{Transport: TransportUnknown}).MediaTypeLabel(); got != "Magnetic" {
		t.Errorf("unknown label %q", got)
	}
}

func TestParseInventory(t *testing.T) {
	doc := `{
		"blockdevices": [
			{"name": "nvme0n1", "path": "/dev/nvme0n1", "size": "1T", "type": "disk", "model": "Samsung SSD 980", "serial": "S4EW1", "tran": "nvme", "is_encrypted": true, "encryption_always_on": true},
			{"name": "nvme0n1p1", "type": "part", "tran": "nvme"},
			{"name": "sdb", "size": "16M", "type": "disk", "tran": "usb"}
		]
	}`
	profiles, err := ParseInventory(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("ParseInventory: %v", err)
	}
	if len(profiles) != 2 {
		t.Fatalf("expected 2 disks, got %d", len(profiles))
	}

	nvme := profiles[0]
	if nvme.Transport != TransportNVMe || !nvme.IsEncrypted || !nvme.WasAlwaysEncrypted {
		t.Errorf("nvme profile %+v", nvme)
	}
	if nvme.CapacityBytes != 1<<40 {
		t.Errorf("nvme capacity %d", nvme.CapacityBytes)
	}

	usb := profiles[1]
	if usb.Path != "/dev/sdb" {
		t.Errorf("usb path %q", usb.Path)
	}
	if usb.CapacityBytes != 16<<20 {
		t.Errorf("usb capacity %d", usb.CapacityBytes)
	}
	if usb.Model != "Unknown" {
		t.Errorf("usb model %q", usb.Model)
	}
}

func TestParseInventoryRejectsGarbage(t *testing.T) {
	if _, err := ParseInventory(strings.NewReader("not json")); err == nil {
		t.Fatal("expected error")
	}
}
