package device

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// rawDevice mirrors the lsblk-style JSON emitted by the inventory
// collaborator. Field names follow lsblk column names.
type rawDevice struct {
	Name       string `json:"name"`
	Path       string `json:"path"`
	Size       string `json:"size"`
	Type       string `json:"type"`
	Model      string `json:"model"`
	Serial     string `json:"serial"`
	Tran       string `json:"tran"`
	MediaType  string `json:"media_type"`
	Encrypted  bool   `json:"is_encrypted"`
	AlwaysEnc  bool   `json:"encryption_always_on"`
	Mountpoint string `json:"mountpoint"`
}

type inventoryDoc struct {
	BlockDevices []rawDevice `json:"blockdevices"`
}

// ParseInventory reads an inventory document and returns normalized device
// profiles. Only top-level disks are kept; partitions and loop devices are
// the collaborator's concern.
func ParseInventory(r io.Reader) ([]Profile, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read inventory: %w", err)
	}

	var doc inventoryDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse inventory: %w", err)
	}

	profiles := make([]Profile, 0, len(doc.BlockDevices))
	for _, raw := range doc.BlockDevices {
		if raw.Type != "" && raw.Type != "disk" {
			continue
		}
		transport := ParseTransport(raw.Tran)
		path := raw.Path
		if path == "" && raw.Name != "" {
			path = "/dev/" + raw.Name
		}
		p := Profile{
			Name:               raw.Name,
			Path:               path,
			Model:              raw.Model,
			Serial:             raw.Serial,
			Size:               raw.Size,
			Transport:          transport,
			Media:              ParseMedia(raw.MediaType, transport),
			IsEncrypted:        raw.Encrypted,
			WasAlwaysEncrypted: raw.AlwaysEnc,
			CapacityBytes:      parseSize(raw.Size),
		}
		profiles = append(profiles, p.Normalize())
	}
	return profiles, nil
}

// parseSize converts lsblk size strings ("512", "16M", "1.5G", "2T") to
// bytes. Unparseable sizes yield 0; the profile keeps the label either way.
func parseSize(s string) int64 {
	s = strings.TrimSpace(strings.ToUpper(s))
	if s == "" {
		return 0
	}
	mult := int64(1)
	switch s[len(s)-1] {
	case 'K':
		mult = 1 << 10
	case 'M':
		mult = 1 << 20
	case 'G':
		mult = 1 << 30
	case 'T':
		mult = 1 << 40
	}
	if mult > 1 {
		s = s[:len(s)-1]
	}
	val, err := strconv.ParseFloat(s, 64)
	if err != nil || val < 0 {
		return 0
	}
	return int64(val * float64(mult))
}
