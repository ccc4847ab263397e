package diagnostics

import (
	"errors"
	"testing"
)

func TestDecodePayload_MissingSections(t *testing.T) {
	cases := []string{
		`{}`,
		`{"metadata":{"report_id":"r1"}}`,
		`{"device":{}}`,
	}
	for _, body := range cases {
		_, err := DecodePayload([]byte(body))
		if !errors.Is(err, ErrMissingSections) {
			t.Fatalf("%s: expected ErrMissingSections, got %v", body, err)
		}
	}
}

func TestDecodePayload_MalformedJSON(t *testing.T) {
	_, err := DecodePayload([]byte(`{"metadata":`))
	if !errors.Is(err, ErrMalformedPayload) {
		t.Fatalf("expected ErrMalformedPayload, got %v", err)
	}
}

func TestDecodePayload_MinimalValid(t *testing.T) {
	payload, err := DecodePayload([]byte(`{"metadata":{"report_id":"r1"},"device":{}}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Metadata.ReportID != "r1" {
		t.Fatalf("report id: %q", payload.Metadata.ReportID)
	}
	if len(payload.Results) != 0 {
		t.Fatal("results must default empty")
	}
}

func TestNormalizeTestStatus(t *testing.T) {
	cases := map[string]TestStatus{
		"success": TestPassed,
		"PASS":    TestPassed,
		"passed":  TestPassed,
		"fail":    TestFailed,
		"error":   TestFailed,
		"warn":    TestWarned,
		"warning": TestWarned,
		"skipped": TestWarned,
		"":        TestWarned,
	}
	for raw, want := range cases {
		if got := NormalizeTestStatus(raw); got != want {
			t.Fatalf("NormalizeTestStatus(%q) = %s, want %s", raw, got, want)
		}
	}
}
