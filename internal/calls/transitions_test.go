package calls

import "testing"

func TestValidTransition(t *testing.T) {
	cases := []struct {
		target string
		from   string
		valid  bool
	}{
		{"called", "pending", true},
		{"called", "called", false},
		{"called", "attended", false},
		{"attended", "pending", true},
		{"attended", "called", true},
		{"attended", "cancelled", false},
		{"cancelled", "pending", true},
		{"cancelled", "called", false},
		{"cancelled", "attended", false},
		{"pending", "called", false},
		{"pending", "pending", false},
		{"unknown", "pending", false},
	}

	for _, tt := range cases {
		if got := ValidTransition(tt.target, tt.from); got != tt.valid {
			t.Fatalf("ValidTransition(%q, %q)=%v, want %v", tt.target, tt.from, got, tt.valid)
		}
	}
}

func TestValidState(t *testing.T) {
	for _, s := range []string{"pending", "called", "attended", "cancelled"} {
		if !ValidState(s) {
			t.Fatalf("expected %q valid", s)
		}
	}
	for _, s := range []string{"", "Llamado", "done"} {
		if ValidState(s) {
			t.Fatalf("expected %q invalid", s)
		}
	}
}
