package device

import (
	"strings"
)

// Transport identifies the device bus. Kept as typed strings so the decision
// engine can switch on them without re-parsing.
type Transport string

const (
	TransportATA     Transport = "ATA"
	TransportSATA    Transport = "SATA"
	TransportNVMe    Transport = "NVMe"
	TransportUSB     Transport = "USB"
	TransportSCSI    Transport = "SCSI"
	TransportFile    Transport = "File"
	TransportVirtual Transport = "Virtual"
	TransportUnknown Transport = "Unknown"
)

// ParseTransport maps an inventory transport string to a Transport.
// Matching is case-insensitive; anything unrecognized becomes
// TransportUnknown rather than an error.
func ParseTransport(s string) Transport {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ata":
		return TransportATA
	case "sata":
		return TransportSATA
	case "nvme":
		return TransportNVMe
	case "usb":
		return TransportUSB
	case "scsi", "sas":
		return TransportSCSI
	case "file", "loop":
		return TransportFile
	case "virtual", "virtio":
		return TransportVirtual
	default:
		return TransportUnknown
	}
}

// IsFlashClass reports whether the transport belongs to the ATA/SATA/NVMe
// family that supports firmware secure erase.
func (t Transport) IsFlashClass() bool {
	switch t {
	case TransportATA, TransportSATA, TransportNVMe:
		return true
	}
	return false
}

// Media classifies the physical storage medium.
type Media string

const (
	MediaMagnetic Media = "Magnetic"
	MediaFlash    Media = "Flash"
	MediaVirtual  Media = "Virtual"
)

// ParseMedia maps an inventory media string to a Media value,
// case-insensitively. Unrecognized strings fall back to a guess from the
// transport: flash-class transports are flash, everything else magnetic.
func ParseMedia(s string, transport Transport) Media {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "magnetic", "hdd":
		return MediaMagnetic
	case "flash", "ssd":
		return MediaFlash
	case "virtual":
		return MediaVirtual
	}
	if transport.IsFlashClass() {
		return MediaFlash
	}
	if transport == TransportFile || transport == TransportVirtual {
		return MediaVirtual
	}
	return MediaMagnetic
}

// Profile is the immutable per-session snapshot of one storage device as
// supplied by the inventory collaborator.
type Profile struct {
	Name               string
	Path               string
	Model              string
	Serial             string
	Size               string
	Transport          Transport
	Media              Media
	IsEncrypted        bool
	WasAlwaysEncrypted bool
	CapacityBytes      int64
}

const placeholder = "Unknown"

// Normalize fills missing optional fields with the "Unknown" placeholder so
// certificate fields are always present.
func (p Profile) Normalize() Profile {
	if strings.TrimSpace(p.Model) == "" || p.Model == "N/A" {
		p.Model = placeholder
	}
	if strings.TrimSpace(p.Serial) == "" || p.Serial == "N/A" {
		if p.Name != "" {
			p.Serial = "UNKNOWN-" + p.Name
		} else {
			p.Serial = placeholder
		}
	}
	if strings.TrimSpace(p.Size) == "" {
		p.Size = placeholder
	}
	if p.Transport == "" {
		p.Transport = TransportUnknown
	}
	if p.Media == "" {
		p.Media = ParseMedia("", p.Transport)
	}
	return p
}

// knownVendors is the best-effort manufacturer list used for certificates.
var knownVendors = []string{
	"Samsung",
	"Intel",
	"Western Digital",
	"Seagate",
	"Crucial",
	"Kingston",
	"SanDisk",
	"Micron",
	"Toshiba",
	"Hitachi",
}

// Manufacturer derives the manufacturer from the model string by substring
// match against the known-vendor list, else "Unknown".
func (p Profile) Manufacturer() string {
	model := strings.ToLower(p.Model)
	if model == "" || p.Model == placeholder || p.Model == "N/A" {
		return placeholder
	}
	for _, vendor := range knownVendors {
		if strings.Contains(model, strings.ToLower(vendor)) {
			return vendor
		}
	}
	return placeholder
}

// MediaTypeLabel maps the transport to the media-type wording used on
// certificates.
func (p Profile) MediaTypeLabel() string {
	switch {
	case p.Transport.IsFlashClass():
		return "Flash Memory (SSD)"
	case p.Transport == TransportUSB || p.Transport == TransportSCSI:
		return "Flash Memory (USB/SCSI)"
	case p.Media == MediaVirtual:
		return "Virtual Media"
	default:
		return "Magnetic"
	}
}
