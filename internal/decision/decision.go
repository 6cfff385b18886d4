// Package decision implements the NIST SP 800-88r2 method selection flow.
// The engine is pure: profile and policy in, decision out, no I/O.
package decision

import (
	"fmt"
	"strings"

	"github.com/jessicaagarwal/Shoonya-wipe/internal/device"
)

// Method is a NIST sanitization category.
type Method string

const (
	MethodClear   Method = "Clear"
	MethodPurge   Method = "Purge"
	MethodDestroy Method = "Destroy"
)

// Technique is a concrete sanitization technique implementing a method.
type Technique string

const (
	TechniqueSinglePassOverwrite Technique = "Single Pass Overwrite"
	TechniqueSSDSecureErase      Technique = "SSD Secure Erase"
	TechniqueCryptographicErase  Technique = "Cryptographic Erase"
	TechniquePhysicalDestruction Technique = "Physical Destruction"
)

// Sensitivity is the data sensitivity level per NIST guidelines.
type Sensitivity string

const (
	SensitivityLow      Sensitivity = "Low"
	SensitivityModerate Sensitivity = "Moderate"
	SensitivityHigh     Sensitivity = "High"
)

// ParseSensitivity maps a policy string to a Sensitivity, case-insensitively.
// Empty or unrecognized input degrades to the documented Moderate default.
func ParseSensitivity(s string) Sensitivity {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return SensitivityLow
	case "high":
		return SensitivityHigh
	default:
		return SensitivityModerate
	}
}

// Override is a manual method/technique choice supplied by the operator.
type Override struct {
	Method    Method
	Technique Technique
}

// Policy carries the operator's answers to the NIST flowchart questions.
type Policy struct {
	WillReuse     bool
	LeavesCustody bool
	Sensitivity   Sensitivity
	Override      *Override
}

// Decision is the engine output: method, technique, and the ordered
// rationale recorded for the certificate.
type Decision struct {
	Method    Method
	Technique Technique
	Rationale []string
}

// NotApplicableError reports a technique that cannot apply to the device,
// e.g. Cryptographic Erase requested for an unencrypted drive.
type NotApplicableError struct {
	Technique Technique
	Reason    string
}

func (e *NotApplicableError) Error() string {
	return fmt.Sprintf("%s not applicable: %s", e.Technique, e.Reason)
}

// Engine selects sanitization methods. Stateless; safe for concurrent use
// from independent sessions.
type Engine struct{}

func NewEngine() *Engine { return &Engine{} }

// Decide runs the NIST decision flowchart for one device and policy.
//
// Order matters: reuse is checked first (Destroy is terminal), then the
// Clear shortcut for low-sensitivity media staying in custody, then the
// Purge branch. A manual override is honored verbatim except for the
// Cryptographic Erase invariant, which fails before a Decision exists.
func (e *Engine) Decide(p device.Profile, pol Policy) (Decision, error) {
	if pol.Sensitivity == "" {
		pol.Sensitivity = SensitivityModerate
	}

	if pol.Override != nil {
		if pol.Override.Technique == TechniqueCryptographicErase && !p.IsEncrypted {
			return Decision{}, &NotApplicableError{
				Technique: TechniqueCryptographicErase,
				Reason:    "device is not encrypted",
			}
		}
		return Decision{
			Method:    pol.Override.Method,
			Technique: pol.Override.Technique,
			Rationale: []string{"manual override requested by operator"},
		}, nil
	}

	if !pol.WillReuse {
		return Decision{
			Method:    MethodDestroy,
			Technique: TechniquePhysicalDestruction,
			Rationale: []string{
				"drive will not be reused",
				"physical destruction makes data recovery infeasible",
			},
		}, nil
	}

	if pol.Sensitivity == SensitivityLow && !pol.LeavesCustody {
		return Decision{
			Method:    MethodClear,
			Technique: TechniqueSinglePassOverwrite,
			Rationale: []string{
				"low-sensitivity data remaining in physical control",
				"single-pass overwrite protects against simple recovery methods",
			},
		}, nil
	}

	technique, rationale := selectPurgeTechnique(p)
	rationale = append([]string{
		"advanced techniques make recovery infeasible even with lab equipment",
	}, rationale...)
	if pol.Sensitivity != SensitivityLow {
		rationale = append(rationale, fmt.Sprintf("required for %s sensitivity data", pol.Sensitivity))
	}
	if pol.LeavesCustody {
		rationale = append(rationale, "required when drive leaves physical control")
	}
	return Decision{
		Method:    MethodPurge,
		Technique: technique,
		Rationale: rationale,
	}, nil
}

// selectPurgeTechnique picks the Purge technique for the device class.
func selectPurgeTechnique(p device.Profile) (Technique, []string) {
	if p.Transport.IsFlashClass() {
		if p.IsEncrypted {
			if p.WasAlwaysEncrypted {
				return TechniqueCryptographicErase, []string{
					"device was encrypted from first use; cryptographic erase is safe",
				}
			}
			return TechniqueSSDSecureErase, []string{
				"data may predate encryption",
				"using firmware secure erase instead of cryptographic erase",
			}
		}
		return TechniqueSSDSecureErase, []string{
			"firmware secure erase uses the drive's built-in sanitization commands",
		}
	}
	return TechniqueSinglePassOverwrite, []string{
		"no firmware secure erase available for this transport",
	}
}

// ValidateChoice checks a decision against the device and returns non-fatal
// warnings. The only fatal combination is Cryptographic Erase on an
// unencrypted device, re-checked here for override paths that reach this
// function directly.
func (e *Engine) ValidateChoice(p device.Profile, d Decision) ([]string, error) {
	if d.Technique == TechniqueCryptographicErase && !p.IsEncrypted {
		return nil, &NotApplicableError{
			Technique: TechniqueCryptographicErase,
			Reason:    "device is not encrypted",
		}
	}

	var warnings []string
	if d.Method == MethodClear && p.Transport.IsFlashClass() {
		warnings = append(warnings, "Clear may not reach all storage areas on SSDs; consider Purge")
	}
	if d.Technique == TechniqueSinglePassOverwrite && p.Media == device.MediaFlash {
		warnings = append(warnings, "overwrite on flash media may miss spare areas due to wear leveling")
	}
	if d.Technique == TechniqueCryptographicErase && !p.WasAlwaysEncrypted {
		warnings = append(warnings, "data may have been saved before encryption was enabled")
	}
	return warnings, nil
}
