package timex

import (
	"encoding/json"
	"testing"
	"time"
)

func TestDuration_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    time.Duration
		wantErr bool
	}{
		{name: "string seconds", input: `"30s"`, want: 30 * time.Second},
		{name: "string hours", input: `"24h"`, want: 24 * time.Hour},
		{name: "integer nanoseconds", input: `2000000000`, want: 2 * time.Second},
		{name: "invalid string", input: `"not-a-duration"`, wantErr: true},
		{name: "invalid type", input: `true`, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var d Duration
			err := json.Unmarshal([]byte(tc.input), &d)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error for %s", tc.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if d.Duration != tc.want {
				t.Fatalf("want %v, got %v", tc.want, d.Duration)
			}
		})
	}
}

func TestDuration_MarshalJSON_RoundTrip(t *testing.T) {
	d := Duration{Duration: 90 * time.Second}
	data, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("marshal error: %v", err)
	}
	var back Duration
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal error: %v", err)
	}
	if back.Duration != d.Duration {
		t.Fatalf("round trip mismatch: %v != %v", back.Duration, d.Duration)
	}
}
