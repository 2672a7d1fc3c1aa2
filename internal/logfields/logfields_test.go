package logfields

import (
	"log/slog"
	"testing"
)

// TestHelperKeyNames verifies string-based helper key/value stability.
func TestHelperKeyNames(t *testing.T) {
	cases := []struct {
		name    string
		attrKey string
		attrVal string
		attr    slog.Attr
	}{
		{"Page", KeyPage, "std/index.html", Page("std/index.html")},
		{"Template", KeyTemplate, "rustdoc/head.html", Template("rustdoc/head.html")},
		{"Category", KeyCategory, "memory_limit", Category("memory_limit")},
		{"Path", KeyPath, "/tmp/x", Path("/tmp/x")},
		{"Dir", KeyDir, "templates", Dir("templates")},
		{"Method", KeyMethod, "GET", Method("GET")},
		{"RequestID", KeyRequestID, "rid", RequestID("rid")},
		{"RemoteAddr", KeyRemoteAddr, "1.2.3.4", RemoteAddr("1.2.3.4")},
		{"UserAgent", KeyUserAgent, "ua", UserAgent("ua")},
		{"Addr", KeyAddr, ":8080", Addr(":8080")},
		{"Charset", KeyCharset, "shift_jis", Charset("shift_jis")},
	}

	for _, tc := range cases {
		if tc.attr.Key != tc.attrKey {
			// Key drift would break log ingestion schemas.
			t.Fatalf("%s: expected key %s, got %s", tc.name, tc.attrKey, tc.attr.Key)
		}
		if got := tc.attr.Value.String(); got != tc.attrVal {
			t.Fatalf("%s: expected value %s, got %v", tc.name, tc.attrVal, got)
		}
	}
}

// TestNumericHelpers verifies keys for numeric & float helpers.
func TestNumericHelpers(t *testing.T) {
	if v := Status(200); v.Key != KeyStatus {
		t.Fatalf("Status key mismatch: %s", v.Key)
	}
	if v := BytesIn(42); v.Key != KeyBytesIn {
		t.Fatalf("BytesIn key mismatch: %s", v.Key)
	}
	if v := BytesOut(42); v.Key != KeyBytesOut {
		t.Fatalf("BytesOut key mismatch: %s", v.Key)
	}
	if v := MemoryLimit(1024); v.Key != KeyMemoryLimit {
		t.Fatalf("MemoryLimit key mismatch: %s", v.Key)
	}
	if v := DurationMS(12.5); v.Key != KeyDurationMS {
		t.Fatalf("DurationMS key mismatch: %s", v.Key)
	}
	if v := Count(3); v.Key != KeyCount {
		t.Fatalf("Count key mismatch: %s", v.Key)
	}
}

// TestErrorHelper ensures Error() handles nil and non-nil errors predictably.
func TestErrorHelper(t *testing.T) {
	attr := Error(nil)
	if attr.Key != KeyError {
		t.Fatalf("Error key mismatch: %s", attr.Key)
	}
	if attr.Value.String() != "" {
		t.Fatalf("Expected empty error string, got %s", attr.Value.String())
	}
	attr = Error(errTest{})
	if attr.Value.String() != "err-test" {
		t.Fatalf("Expected 'err-test', got %s", attr.Value.String())
	}
}

type errTest struct{}

func (e errTest) Error() string { return "err-test" }
