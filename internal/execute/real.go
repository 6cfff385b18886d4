package execute

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/jessicaagarwal/Shoonya-wipe/internal/decision"
	"github.com/jessicaagarwal/Shoonya-wipe/internal/device"
)

// CommandRunner runs one external command and returns combined output.
// Injectable so tests never shell out.
type CommandRunner func(ctx context.Context, name string, args ...string) (string, error)

func defaultRunner(ctx context.Context, name string, args ...string) (string, error) {
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	return strings.TrimSpace(string(out)), err
}

// RealExecutor issues the platform-appropriate external erase command for
// each technique. Every operation is a one-shot command; cancellation beyond
// what the command itself enforces is an extension point, not a guarantee.
type RealExecutor struct {
	run CommandRunner
}

func NewRealExecutor() *RealExecutor {
	return &RealExecutor{run: defaultRunner}
}

// NewRealExecutorWithRunner is the test seam.
func NewRealExecutorWithRunner(run CommandRunner) *RealExecutor {
	return &RealExecutor{run: run}
}

func (e *RealExecutor) Apply(ctx context.Context, p device.Profile, technique decision.Technique, progress ProgressFunc) (bool, []string, int64, error) {
	switch technique {
	case decision.TechniqueSinglePassOverwrite:
		return e.overwrite(ctx, p)
	case decision.TechniqueSSDSecureErase:
		return e.secureErase(ctx, p)
	case decision.TechniqueCryptographicErase:
		return e.cryptoErase(ctx, p)
	default:
		return false, nil, 0, &ExecutionError{
			Technique: technique,
			Device:    p.Path,
			Err:       fmt.Errorf("technique has no real-device implementation"),
		}
	}
}

func (e *RealExecutor) overwrite(ctx context.Context, p device.Profile) (bool, []string, int64, error) {
	out, err := e.run(ctx, "dd", "if=/dev/zero", "of="+p.Path, "bs=1M", "status=none")
	if err != nil {
		return false, []string{out}, 0, &ExecutionError{Technique: decision.TechniqueSinglePassOverwrite, Device: p.Path, Err: err}
	}
	details := []string{"single-pass overwrite via dd completed"}
	if out != "" {
		details = append(details, out)
	}
	return true, details, p.CapacityBytes, nil
}

// secureErase prefers the enhanced security-erase form and retries exactly
// once with the plain form when the drive rejects it.
func (e *RealExecutor) secureErase(ctx context.Context, p device.Profile) (bool, []string, int64, error) {
	var details []string

	if p.Transport == device.TransportNVMe || strings.HasPrefix(p.Path, "/dev/nvme") {
		out, err := e.run(ctx, "nvme", "format", p.Path, "-s1")
		if err != nil {
			return false, append(details, out), 0, &ExecutionError{Technique: decision.TechniqueSSDSecureErase, Device: p.Path, Err: err}
		}
		details = append(details, "nvme format (secure erase) completed")
		return true, details, p.CapacityBytes, nil
	}

	out, err := e.run(ctx, "hdparm", "--security-erase-enhanced", "NULL", p.Path)
	if err == nil {
		details = append(details, "hdparm enhanced security erase completed")
		return true, details, p.CapacityBytes, nil
	}
	details = append(details, fmt.Sprintf("enhanced security erase rejected: %s", firstLine(out, err)))

	out, err = e.run(ctx, "hdparm", "--security-erase", "NULL", p.Path)
	if err != nil {
		return false, append(details, out), 0, &ExecutionError{Technique: decision.TechniqueSSDSecureErase, Device: p.Path, Err: err}
	}
	details = append(details, "hdparm security erase (fallback) completed")
	return true, details, p.CapacityBytes, nil
}

func (e *RealExecutor) cryptoErase(ctx context.Context, p device.Profile) (bool, []string, int64, error) {
	if !p.WasAlwaysEncrypted {
		return false, []string{"cryptographic erase not applicable: device was not always encrypted"}, 0, nil
	}
	out, err := e.run(ctx, "blkdiscard", p.Path)
	if err != nil {
		return false, []string{out}, 0, &ExecutionError{Technique: decision.TechniqueCryptographicErase, Device: p.Path, Err: err}
	}
	details := []string{"cryptographic erase via blkdiscard completed"}
	if out != "" {
		details = append(details, out)
	}
	return true, details, p.CapacityBytes, nil
}

// Responsive reports whether the device still answers a trivial query after
// a technique ran. This is the whole of post-technique verification; the
// erased extent is never re-read.
func (e *RealExecutor) Responsive(ctx context.Context, path string) bool {
	_, err := e.run(ctx, "lsblk", path)
	return err == nil
}

func firstLine(out string, err error) string {
	if out != "" {
		if idx := strings.IndexByte(out, '\n'); idx >= 0 {
			return out[:idx]
		}
		return out
	}
	if err != nil {
		return err.Error()
	}
	return ""
}
