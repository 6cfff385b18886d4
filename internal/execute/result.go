package execute

import "time"

// Mode selects which executor a run is dispatched to.
type Mode string

const (
	ModeSimulated Mode = "simulated"
	ModeReal      Mode = "real"
)

// ParseMode validates a mode string.
func ParseMode(s string) (Mode, bool) {
	switch Mode(s) {
	case ModeSimulated, ModeReal:
		return Mode(s), true
	}
	return "", false
}

// VerificationStatus is the post-technique responsiveness check outcome.
type VerificationStatus string

const (
	VerificationPending VerificationStatus = "pending"
	VerificationPassed  VerificationStatus = "passed"
	VerificationFailed  VerificationStatus = "failed"
)

// Result is the immutable record of one execution attempt. A failed attempt
// still flows into certificate generation; the asymmetry is deliberate.
type Result struct {
	Success            bool
	VerificationStatus VerificationStatus
	Details            []string
	Err                string
	CompletedAt        time.Time
	BytesProcessed     int64
	ProgressEstimated  bool
}
