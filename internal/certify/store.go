package certify

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jessicaagarwal/Shoonya-wipe/internal/config"
)

// Store persists certificate artifacts under the configured output
// directory. Each attempt leaves two files: the unsigned record and the
// signed certificate.
type Store struct {
	enabled bool
	dir     string
}

func NewStore(cfg *config.Config) *Store {
	return &Store{
		enabled: cfg.Reporting.Enabled,
		dir:     cfg.Reporting.LocalPath,
	}
}

// SaveRecord writes the unsigned record and returns its path.
func (s *Store) SaveRecord(r *Record) (string, error) {
	if !s.enabled {
		return "", nil
	}
	data, err := marshalIndent(r)
	if err != nil {
		return "", err
	}
	return s.write(fmt.Sprintf("certificate_%s.json", r.CertificateID), data)
}

// SaveSigned writes the signed certificate JSON and returns its path.
func (s *Store) SaveSigned(r *Record, signed []byte) (string, error) {
	if !s.enabled {
		return "", nil
	}
	return s.write(fmt.Sprintf("certificate_%s_signed.json", r.CertificateID), signed)
}

func (s *Store) write(name string, data []byte) (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write certificate: %w", err)
	}
	return path, nil
}

func marshalIndent(r *Record) ([]byte, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("serialize certificate: %w", err)
	}
	return data, nil
}
