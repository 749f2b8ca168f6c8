package evidence

import "fmt"

// EvidenceUnavailableError reports that a run needs tokens or page images
// that could not be obtained.
type EvidenceUnavailableError struct {
	Reason string
	Err    error
}

func (e *EvidenceUnavailableError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("evidence unavailable: %s: %v", e.Reason, e.Err)
	}
	return "evidence unavailable: " + e.Reason
}

func (e *EvidenceUnavailableError) Unwrap() error {
	return e.Err
}
