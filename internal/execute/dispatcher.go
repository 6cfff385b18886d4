package execute

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jessicaagarwal/Shoonya-wipe/internal/decision"
	"github.com/jessicaagarwal/Shoonya-wipe/internal/device"
	"github.com/jessicaagarwal/Shoonya-wipe/internal/logging"
	"github.com/jessicaagarwal/Shoonya-wipe/internal/safety"
)

// ErrDeviceBusy is returned when a run is already in flight for the same
// device path. Only one destructive operation per device is ever valid.
var ErrDeviceBusy = errors.New("an operation is already running for this device")

// ErrConfirmationDeclined is returned when the operator declines the
// real-mode challenge; declining leaves zero side effects.
var ErrConfirmationDeclined = errors.New("operation not confirmed by operator")

// ResponsivenessChecker is the optional post-technique verification
// capability. It must never re-read the erased extent.
type ResponsivenessChecker interface {
	Responsive(ctx context.Context, path string) bool
}

// Dispatcher routes a decision to an executor behind the safety gate and
// folds every outcome into a Result.
type Dispatcher struct {
	mu     sync.Mutex
	active map[string]struct{}

	simulated TechniqueExecutor
	real      TechniqueExecutor

	gate           *safety.Gate
	confirmer      safety.Confirmer
	requireConfirm bool
	logger         *logging.AuditLogger
	now            func() time.Time
}

func NewDispatcher(simulated, real TechniqueExecutor, gate *safety.Gate, confirmer safety.Confirmer, requireConfirm bool, logger *logging.AuditLogger) *Dispatcher {
	return &Dispatcher{
		active:         make(map[string]struct{}),
		simulated:      simulated,
		real:           real,
		gate:           gate,
		confirmer:      confirmer,
		requireConfirm: requireConfirm,
		logger:         logger,
		now:            time.Now,
	}
}

// Execute applies the decided technique to the device in the given mode.
//
// Gate failures and concurrency conflicts are returned as errors and block
// execution entirely; once an executor runs, every fault is captured in the
// Result instead. Destructive operations are never retried automatically.
func (d *Dispatcher) Execute(ctx context.Context, p device.Profile, dec decision.Decision, mode Mode, progress ProgressFunc) (*Result, error) {
	if err := d.acquire(p.Path); err != nil {
		return nil, err
	}
	defer d.release(p.Path)

	// Destroy is a recommendation, never an executed technique.
	if dec.Method == decision.MethodDestroy {
		return &Result{
			Success:            true,
			VerificationStatus: VerificationPending,
			Details: []string{
				"physical destruction recommended; no device action taken",
				"use certified destruction services and obtain a certificate of destruction",
			},
			CompletedAt: d.now().UTC(),
		}, nil
	}

	executor := d.simulated
	if mode == ModeReal {
		executor = d.real
		if err := d.gateReal(p, dec); err != nil {
			return nil, err
		}
	}

	progress = monotonic(progress)
	estimated := !hasLinearExtent(dec.Technique)

	var execProgress ProgressFunc
	if !estimated {
		execProgress = progress
	}

	d.log("INFO", "executing technique", "device", p.Path, "technique", string(dec.Technique), "mode", string(mode))

	if estimated && progress != nil {
		progress(0, p.CapacityBytes)
	}

	ok, details, bytes, err := executor.Apply(ctx, p, dec.Technique, execProgress)

	result := &Result{
		Success:            ok && err == nil,
		VerificationStatus: VerificationPending,
		Details:            details,
		CompletedAt:        d.now().UTC(),
		BytesProcessed:     bytes,
		ProgressEstimated:  estimated,
	}
	if err != nil {
		result.Err = err.Error()
		d.log("ERROR", "technique failed", "device", p.Path, "error", err.Error())
	}

	if estimated && progress != nil && result.Success {
		// Deterministic staged sequence for techniques with no linear
		// extent notion; distinguished from measured progress by the
		// ProgressEstimated flag.
		total := p.CapacityBytes
		for _, q := range []int64{1, 2, 3, 4} {
			progress(total*q/4, total)
		}
	}

	if result.Success {
		result.VerificationStatus = d.verify(ctx, executor, p.Path)
	} else if result.Err != "" || !ok {
		result.VerificationStatus = VerificationFailed
	}

	return result, nil
}

// gateReal evaluates every gate strictly before any destructive action.
func (d *Dispatcher) gateReal(p device.Profile, dec decision.Decision) error {
	var reasons []string

	if ok, errs := d.gate.ValidateEnvironment(); !ok {
		for _, err := range errs {
			reasons = append(reasons, err.Error())
		}
	}
	if ok, errs := d.gate.ValidateDevice(p.Path); !ok {
		for _, err := range errs {
			reasons = append(reasons, err.Error())
		}
	}
	if len(reasons) > 0 {
		return &safety.ValidationError{Reasons: reasons}
	}

	if d.requireConfirm {
		if d.confirmer == nil {
			return &safety.ValidationError{Reasons: []string{"no confirmation provider configured for real mode"}}
		}
		ok, err := d.confirmer.Confirm(p.Path, string(dec.Method))
		if err != nil {
			return fmt.Errorf("confirmation: %w", err)
		}
		if !ok {
			d.log("WARN", "operator declined confirmation", "device", p.Path)
			return ErrConfirmationDeclined
		}
	}
	return nil
}

// verify runs the lightweight responsiveness check when the executor
// supports one; the erased extent is never re-read.
func (d *Dispatcher) verify(ctx context.Context, executor TechniqueExecutor, path string) VerificationStatus {
	if checker, ok := executor.(ResponsivenessChecker); ok {
		if checker.Responsive(ctx, path) {
			return VerificationPassed
		}
		return VerificationFailed
	}
	return VerificationPending
}

func (d *Dispatcher) acquire(path string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, busy := d.active[path]; busy {
		return fmt.Errorf("%w: %s", ErrDeviceBusy, path)
	}
	d.active[path] = struct{}{}
	return nil
}

func (d *Dispatcher) release(path string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.active, path)
}

func (d *Dispatcher) log(level, msg string, fields ...interface{}) {
	if d.logger != nil {
		d.logger.Log(level, msg, fields...)
	}
}

// hasLinearExtent reports whether progress for the technique is measured
// against a byte extent rather than estimated.
func hasLinearExtent(t decision.Technique) bool {
	return t == decision.TechniqueSinglePassOverwrite
}

// monotonic clamps bytes_done so it never decreases for a given run.
func monotonic(progress ProgressFunc) ProgressFunc {
	if progress == nil {
		return nil
	}
	var max int64
	return func(done, total int64) {
		if done < max {
			done = max
		} else {
			max = done
		}
		progress(done, total)
	}
}
