// Package safety gates every destructive action. The gate fails closed:
// production execution requires both elevated privilege and an explicit
// opt-in flag, and there is deliberately no way to disable the checks.
package safety

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/jessicaagarwal/Shoonya-wipe/internal/config"
	"github.com/jessicaagarwal/Shoonya-wipe/internal/logging"
)

// ProductionModeEnv is the opt-in flag for real-device operation. Root
// privilege alone is not sufficient.
const ProductionModeEnv = "SHOONYA_PRODUCTION_MODE"

// ValidationError aggregates every failed gate reason for audit.
type ValidationError struct {
	Reasons []string
}

func (e *ValidationError) Error() string {
	return "safety validation failed: " + strings.Join(e.Reasons, "; ")
}

// Gate validates the environment and the target device before execution.
type Gate struct {
	devicePrefix string
	denylist     []string
	mountsPath   string
	logger       *logging.AuditLogger

	// euid is injectable for tests; defaults to unix.Geteuid.
	euid func() int
}

func NewGate(cfg *config.Config, logger *logging.AuditLogger) *Gate {
	return &Gate{
		devicePrefix: cfg.Safety.DevicePrefix,
		denylist:     cfg.Safety.DenylistPaths,
		mountsPath:   cfg.Safety.MountsPath,
		logger:       logger,
		euid:         unix.Geteuid,
	}
}

// WithEUID overrides the effective-uid lookup. Test seam.
func (g *Gate) WithEUID(fn func() int) *Gate {
	g.euid = fn
	return g
}

// ValidateEnvironment checks that production operation has been opted into.
// Both signals are required; the full reason list is always returned.
func (g *Gate) ValidateEnvironment() (bool, []error) {
	var errs []error

	if g.euid() != 0 {
		errs = append(errs, fmt.Errorf("production mode requires root privileges"))
	}
	if os.Getenv(ProductionModeEnv) == "" {
		errs = append(errs, fmt.Errorf("production mode not enabled; set %s=1", ProductionModeEnv))
	}

	g.logFailures("environment validation", "", errs)
	return len(errs) == 0, errs
}

// ValidateDevice checks the target path: it must exist, live under the
// device namespace prefix, not be mounted, and not match the denylist.
func (g *Gate) ValidateDevice(path string) (bool, []error) {
	var errs []error

	if _, err := os.Stat(path); err != nil {
		errs = append(errs, fmt.Errorf("device %s does not exist", path))
		g.logFailures("device validation", path, errs)
		return false, errs
	}

	if !strings.HasPrefix(path, g.devicePrefix) {
		errs = append(errs, fmt.Errorf("invalid device path %s: expected prefix %s", path, g.devicePrefix))
	}

	// Paths under /dev must actually be block devices; anything else there
	// means the inventory and the host disagree.
	if strings.HasPrefix(path, "/dev/") {
		var st unix.Stat_t
		if err := unix.Stat(path, &st); err == nil && st.Mode&unix.S_IFMT != unix.S_IFBLK {
			errs = append(errs, fmt.Errorf("device %s is not a block device", path))
		}
	}

	mounted, err := g.isMounted(path)
	if err != nil {
		errs = append(errs, fmt.Errorf("cannot read mount table: %w", err))
	} else if mounted {
		errs = append(errs, fmt.Errorf("device %s is currently mounted", path))
	}

	for _, denied := range g.denylist {
		if path == denied || strings.HasPrefix(path, denied) {
			errs = append(errs, fmt.Errorf("device %s matches protected system path %s", path, denied))
			break
		}
	}

	g.logFailures("device validation", path, errs)
	return len(errs) == 0, errs
}

// isMounted scans the mount table for the device or any of its partitions.
func (g *Gate) isMounted(path string) (bool, error) {
	data, err := os.ReadFile(g.mountsPath)
	if err != nil {
		return false, err
	}
	for _, line := range strings.Split(string(data), "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		if fields[0] == path || strings.HasPrefix(fields[0], path) {
			return true, nil
		}
	}
	return false, nil
}

func (g *Gate) logFailures(stage, path string, errs []error) {
	if g.logger == nil {
		return
	}
	for _, err := range errs {
		if path != "" {
			g.logger.Log("ERROR", "safety gate refused", "stage", stage, "device", path, "reason", err.Error())
		} else {
			g.logger.Log("ERROR", "safety gate refused", "stage", stage, "reason", err.Error())
		}
	}
}
