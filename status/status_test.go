package status

import (
	"testing"
	"time"
)

func TestClassifyTiered(t *testing.T) {
	now := time.Now()

	cases := []struct {
		name string
		age  time.Duration
		want Status
	}{
		{"fresh", 4 * time.Minute, Online},
		{"stale", 10 * time.Minute, Warning},
		{"dead", 20 * time.Minute, Offline},
		{"online boundary", 5 * time.Minute, Warning},
		{"warning boundary", 15 * time.Minute, Offline},
	}

	for _, tc := range cases {
		last := now.Add(-tc.age).UnixMilli()
		if got := Classify(last, now, Tiered); got != tc.want {
			t.Errorf("%s: Classify(age=%v) = %s, want %s", tc.name, tc.age, got, tc.want)
		}
	}
}

func TestClassifyBinaryNeverWarns(t *testing.T) {
	now := time.Now()
	for age := time.Minute; age <= 30*time.Minute; age += time.Minute {
		got := Classify(now.Add(-age).UnixMilli(), now, Binary)
		if got == Warning {
			t.Fatalf("binary thresholds produced warning at age %v", age)
		}
	}

	if got := Classify(now.Add(-4*time.Minute).UnixMilli(), now, Binary); got != Online {
		t.Errorf("Classify(4m, Binary) = %s, want online", got)
	}
	if got := Classify(now.Add(-6*time.Minute).UnixMilli(), now, Binary); got != Offline {
		t.Errorf("Classify(6m, Binary) = %s, want offline", got)
	}
}

func TestClassifyNoTimestamp(t *testing.T) {
	now := time.Now()
	if got := Classify(0, now, Tiered); got != Offline {
		t.Errorf("Classify(0) = %s, want offline", got)
	}
	if got := Classify(-5, now, Binary); got != Offline {
		t.Errorf("Classify(-5) = %s, want offline", got)
	}
}

func TestNormalizeMillis(t *testing.T) {
	cases := []struct {
		name string
		raw  interface{}
		want int64
		ok   bool
	}{
		{"string seconds", "1700000000", 1700000000000, true},
		{"string millis", "1700000000000", 1700000000000, true},
		{"numeric millis", float64(1700000000000), 1700000000000, true},
		{"numeric seconds", float64(1700000000), 1700000000000, true},
		{"int millis", int64(1700000000000), 1700000000000, true},
		{"nil", nil, 0, false},
		{"garbage string", "not-a-time", 0, false},
		{"zero", float64(0), 0, false},
		{"negative", "-42", 0, false},
	}

	for _, tc := range cases {
		got, ok := NormalizeMillis(tc.raw)
		if ok != tc.ok || got != tc.want {
			t.Errorf("%s: NormalizeMillis(%v) = (%d, %v), want (%d, %v)", tc.name, tc.raw, got, ok, tc.want, tc.ok)
		}
	}
}
