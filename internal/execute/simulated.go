package execute

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"github.com/jessicaagarwal/Shoonya-wipe/internal/decision"
	"github.com/jessicaagarwal/Shoonya-wipe/internal/device"
)

// OverwritePattern is the fixed byte written by the simulated single-pass
// overwrite; tests read the extent back against it.
const OverwritePattern byte = 0x00

// SimulatedExecutor applies techniques to a file-backed virtual extent. It
// never touches real hardware, which is why the confirmation gate does not
// apply to it.
type SimulatedExecutor struct {
	ChunkSize    int64
	WindowSize   int64 // head/tail randomization window for secure erase
	MaxSpeedMBps float64
}

func NewSimulatedExecutor(chunkSize, windowSize int64, maxSpeedMBps float64) *SimulatedExecutor {
	if chunkSize <= 0 {
		chunkSize = 1 * 1024 * 1024
	}
	if windowSize <= 0 {
		windowSize = 16 * 1024 * 1024
	}
	return &SimulatedExecutor{
		ChunkSize:    chunkSize,
		WindowSize:   windowSize,
		MaxSpeedMBps: maxSpeedMBps,
	}
}

func (e *SimulatedExecutor) Apply(ctx context.Context, p device.Profile, technique decision.Technique, progress ProgressFunc) (bool, []string, int64, error) {
	switch technique {
	case decision.TechniqueSinglePassOverwrite:
		return e.overwrite(ctx, p, progress)
	case decision.TechniqueSSDSecureErase:
		return e.secureErase(ctx, p)
	case decision.TechniqueCryptographicErase:
		return e.cryptoErase(ctx, p)
	default:
		return false, nil, 0, &ExecutionError{
			Technique: technique,
			Device:    p.Path,
			Err:       fmt.Errorf("technique has no simulated implementation"),
		}
	}
}

// overwrite writes the fixed pattern across the full extent in chunks with a
// final flush.
func (e *SimulatedExecutor) overwrite(ctx context.Context, p device.Profile, progress ProgressFunc) (bool, []string, int64, error) {
	f, size, err := openExtent(p.Path)
	if err != nil {
		return false, nil, 0, err
	}
	defer f.Close()

	details := []string{fmt.Sprintf("starting single-pass overwrite of %d bytes", size)}

	writer := newThrottledWriter(f, e.MaxSpeedMBps)
	buf := getBuffer(int(e.ChunkSize))
	defer putBuffer(buf)
	fillPattern(buf, OverwritePattern)

	var written int64
	for written < size {
		select {
		case <-ctx.Done():
			return false, details, written, &ExecutionError{
				Technique: decision.TechniqueSinglePassOverwrite,
				Device:    p.Path,
				Err:       ctx.Err(),
			}
		default:
		}

		toWrite := e.ChunkSize
		if remaining := size - written; remaining < toWrite {
			toWrite = remaining
		}

		n, err := writer.Write(buf[:toWrite])
		written += int64(n)
		if err != nil {
			return false, details, written, &ExecutionError{
				Technique: decision.TechniqueSinglePassOverwrite,
				Device:    p.Path,
				Err:       err,
			}
		}
		if progress != nil {
			progress(written, size)
		}
	}

	if err := unix.Fdatasync(int(f.Fd())); err != nil {
		return false, details, written, &ExecutionError{
			Technique: decision.TechniqueSinglePassOverwrite,
			Device:    p.Path,
			Err:       fmt.Errorf("fdatasync: %w", err),
		}
	}

	details = append(details, "overwrite completed and flushed")
	return true, details, written, nil
}

// secureErase approximates a fast firmware erase by randomizing bounded
// head and tail windows instead of the full extent.
func (e *SimulatedExecutor) secureErase(ctx context.Context, p device.Profile) (bool, []string, int64, error) {
	f, size, err := openExtent(p.Path)
	if err != nil {
		return false, nil, 0, err
	}
	defer f.Close()

	window := e.WindowSize
	if window > size {
		window = size
	}

	buf := getBuffer(int(window))
	defer putBuffer(buf)

	var written int64
	writeWindow := func(off int64) error {
		if err := fillRandom(buf); err != nil {
			return err
		}
		n, err := f.WriteAt(buf, off)
		written += int64(n)
		return err
	}

	if err := writeWindow(0); err != nil {
		return false, nil, written, &ExecutionError{Technique: decision.TechniqueSSDSecureErase, Device: p.Path, Err: err}
	}
	if size > window {
		if err := writeWindow(size - window); err != nil {
			return false, nil, written, &ExecutionError{Technique: decision.TechniqueSSDSecureErase, Device: p.Path, Err: err}
		}
	}
	if err := f.Sync(); err != nil {
		return false, nil, written, &ExecutionError{Technique: decision.TechniqueSSDSecureErase, Device: p.Path, Err: err}
	}

	details := []string{"simulated SSD secure erase (head/tail windows randomized)"}
	return true, details, written, nil
}

// cryptoErase simulates destruction of the on-media key material. Not
// applicable unless the device was always encrypted; that outcome is a clean
// failure, not a fault.
func (e *SimulatedExecutor) cryptoErase(ctx context.Context, p device.Profile) (bool, []string, int64, error) {
	if !p.WasAlwaysEncrypted {
		return false, []string{"cryptographic erase not applicable: device was not always encrypted"}, 0, nil
	}

	f, size, err := openExtent(p.Path)
	if err != nil {
		return false, nil, 0, err
	}
	defer f.Close()

	// Key material lives in a small header region on real self-encrypting
	// media; randomize the first 4 KiB to mirror that.
	headerSize := int64(4096)
	if headerSize > size {
		headerSize = size
	}
	buf := getBuffer(int(headerSize))
	defer putBuffer(buf)
	if err := fillRandom(buf); err != nil {
		return false, nil, 0, &ExecutionError{Technique: decision.TechniqueCryptographicErase, Device: p.Path, Err: err}
	}
	n, err := f.WriteAt(buf, 0)
	if err != nil {
		return false, nil, int64(n), &ExecutionError{Technique: decision.TechniqueCryptographicErase, Device: p.Path, Err: err}
	}
	if err := f.Sync(); err != nil {
		return false, nil, int64(n), &ExecutionError{Technique: decision.TechniqueCryptographicErase, Device: p.Path, Err: err}
	}

	details := []string{"simulated key destruction and metadata wipe"}
	return true, details, int64(n), nil
}

// Responsive implements the post-technique responsiveness check by
// confirming the extent file still answers a stat.
func (e *SimulatedExecutor) Responsive(ctx context.Context, path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func openExtent(path string) (*os.File, int64, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, 0, fmt.Errorf("open extent %s: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, fmt.Errorf("stat extent %s: %w", path, err)
	}
	return f, info.Size(), nil
}
