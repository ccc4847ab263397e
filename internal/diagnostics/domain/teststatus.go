package diagnostics

import "strings"

// TestStatus is the normalized outcome of one diagnostic check. Agent
// payloads arrive with two overlapping vocabularies (success/fail and
// pass/error); both collapse to this enum at the ingestion boundary and the
// original strings survive only inside the archived raw payload.
type TestStatus string

const (
	TestPassed TestStatus = "passed"
	TestFailed TestStatus = "failed"
	TestWarned TestStatus = "warned"
)

// NormalizeTestStatus maps a wire status string to the internal enum.
func NormalizeTestStatus(raw string) TestStatus {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "success", "pass", "passed":
		return TestPassed
	case "fail", "error", "failed":
		return TestFailed
	default:
		return TestWarned
	}
}
