package server

import "testing"

func TestIntFieldAcceptsAllMsgpackNumericShapes(t *testing.T) {
	cases := []map[string]interface{}{
		{"n": 5},
		{"n": int64(5)},
		{"n": float64(5)},
	}
	for _, raw := range cases {
		if got := intField(raw, "n"); got != 5 {
			t.Fatalf("intField(%v) = %d, want 5", raw, got)
		}
	}
}

func TestIntFieldMissingKeyReturnsZero(t *testing.T) {
	if got := intField(map[string]interface{}{}, "n"); got != 0 {
		t.Fatalf("expected 0 for missing key, got %d", got)
	}
}
