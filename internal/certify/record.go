// Package certify builds, signs, verifies and persists sanitization
// certificates. A certificate is produced for every attempt, successful or
// not; the outcome is recorded, never filtered.
package certify

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jessicaagarwal/Shoonya-wipe/internal/decision"
	"github.com/jessicaagarwal/Shoonya-wipe/internal/device"
	"github.com/jessicaagarwal/Shoonya-wipe/internal/execute"
)

const (
	toolName       = "Shoonya Wipe v1.0"
	nistCompliance = "SP 800-88r2"
)

// Record is the certificate document. Field names are part of the external
// format consumed by auditors and the verify command; do not rename.
type Record struct {
	CertificateID string `json:"certificate_id"`

	Manufacturer string `json:"manufacturer"`
	Model        string `json:"model"`
	SerialNumber string `json:"serial_number"`
	MediaType    string `json:"media_type"`
	DevicePath   string `json:"device_path"`
	DeviceSize   string `json:"device_size"`

	SanitizationMethod    string `json:"sanitization_method"`
	SanitizationTechnique string `json:"sanitization_technique"`
	ToolUsed              string `json:"tool_used"`

	VerificationMethod  string `json:"verification_method"`
	VerificationStatus  string `json:"verification_status"`
	VerificationDetails string `json:"verification_details"`

	OperatorName  string `json:"operator_name"`
	OperatorTitle string `json:"operator_title"`

	Date           string `json:"date"`
	CompletionTime string `json:"completion_time"`
	NISTCompliance string `json:"nist_compliance"`

	Signature *Signature `json:"signature,omitempty"`
}

// Operator identifies who ran the sanitization, for the audit trail.
type Operator struct {
	Name  string
	Title string
}

// NewRecord assembles a certificate from the device profile, the decision
// that was applied and the execution result.
func NewRecord(p device.Profile, dec decision.Decision, result *execute.Result, op Operator) *Record {
	completed := result.CompletedAt
	if completed.IsZero() {
		completed = time.Now().UTC()
	}

	details := strings.Join(result.Details, "; ")
	if result.Err != "" {
		details = strings.TrimPrefix(details+"; error: "+result.Err, "; ")
	}

	status := "Failed"
	switch {
	case result.Success && result.VerificationStatus == execute.VerificationPassed:
		status = "Passed"
	case result.Success && result.VerificationStatus == execute.VerificationPending:
		status = "Pending"
	}

	return &Record{
		CertificateID:         uuid.New().String(),
		Manufacturer:          p.Manufacturer(),
		Model:                 p.Model,
		SerialNumber:          p.Serial,
		MediaType:             p.MediaTypeLabel(),
		DevicePath:            p.Path,
		DeviceSize:            p.Size,
		SanitizationMethod:    string(dec.Method),
		SanitizationTechnique: string(dec.Technique),
		ToolUsed:              toolName,
		VerificationMethod:    "Device responsiveness check",
		VerificationStatus:    status,
		VerificationDetails:   details,
		OperatorName:          op.Name,
		OperatorTitle:         op.Title,
		Date:                  completed.Format("2006-01-02"),
		CompletionTime:        completed.Format(time.RFC3339),
		NISTCompliance:        nistCompliance,
	}
}

// CryptoError wraps failures in key handling, signing and verification.
type CryptoError struct {
	Op  string
	Err error
}

func (e *CryptoError) Error() string {
	return fmt.Sprintf("crypto %s: %v", e.Op, e.Err)
}

func (e *CryptoError) Unwrap() error { return e.Err }
