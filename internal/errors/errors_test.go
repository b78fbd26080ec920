package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

func TestFactoryCodes(t *testing.T) {
	cause := fmt.Errorf("boom")

	testCases := []struct {
		name string
		err  *ProcessingError
		code ErrorCode
	}{
		{"decode failed", NewDecodeFailedError("job-1", cause), ErrorDecodeFailed},
		{"ocr failed", NewOCRFailedError("job-1", cause), ErrorOCRFailed},
		{"timeout", NewProcessingTimeoutError("job-1", 5*time.Minute, cause), ErrorProcessingTimeout},
		{"storage failed", NewStorageFailedError("job-1", cause), ErrorStorageFailed},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if tc.err.Code != tc.code {
				t.Errorf("code = %s, want %s", tc.err.Code, tc.code)
			}
			if tc.err.JobID != "job-1" {
				t.Errorf("jobID = %s, want job-1", tc.err.JobID)
			}
			if !stderrors.Is(tc.err, cause) {
				t.Error("cause not reachable through Unwrap")
			}
			if !strings.Contains(tc.err.Error(), string(tc.code)) {
				t.Errorf("Error() = %q does not mention the code", tc.err.Error())
			}
		})
	}
}

func TestErrorWithoutCause(t *testing.T) {
	err := NewDecodeFailedError("job-2", nil)
	if err.Unwrap() != nil {
		t.Error("Unwrap() != nil for an error without a cause")
	}
	if strings.Contains(err.Error(), "caused by") {
		t.Errorf("Error() = %q mentions a missing cause", err.Error())
	}
}

func TestToMap(t *testing.T) {
	err := NewProcessingTimeoutError("job-3", 30*time.Second, fmt.Errorf("context deadline exceeded"))

	m := err.ToMap()
	if m["error_code"] != string(ErrorProcessingTimeout) {
		t.Errorf("error_code = %v, want %s", m["error_code"], ErrorProcessingTimeout)
	}
	if m["timeout_duration"] != "30s" {
		t.Errorf("timeout_duration = %v, want 30s", m["timeout_duration"])
	}
	if m["cause"] != "context deadline exceeded" {
		t.Errorf("cause = %v, want the cause message", m["cause"])
	}
	if _, ok := m["timestamp"]; !ok {
		t.Error("timestamp missing from map")
	}
}
