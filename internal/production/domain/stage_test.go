package domain

import "testing"

func TestStatusRules(t *testing.T) {
	tests := []struct {
		status            Status
		valid             bool
		canStart          bool
		acceptsProduction bool
		acceptsQC         bool
		closed            bool
	}{
		{StatusPending, true, true, false, false, false},
		{StatusInProgress, true, false, true, true, false},
		{StatusPendingQC, true, false, true, true, false},
		{StatusApproved, true, false, false, false, true},
		{StatusRejected, true, false, false, false, true},
		{StatusPaused, true, false, false, false, false},
		{Status("Unknown"), false, false, false, false, false},
		{Status(""), false, false, false, false, false},
	}

	for _, tc := range tests {
		if got := tc.status.Valid(); got != tc.valid {
			t.Fatalf("%s: Valid() = %v, want %v", tc.status, got, tc.valid)
		}
		if got := tc.status.CanStart(); got != tc.canStart {
			t.Fatalf("%s: CanStart() = %v, want %v", tc.status, got, tc.canStart)
		}
		if got := tc.status.AcceptsProduction(); got != tc.acceptsProduction {
			t.Fatalf("%s: AcceptsProduction() = %v, want %v", tc.status, got, tc.acceptsProduction)
		}
		if got := tc.status.AcceptsQC(); got != tc.acceptsQC {
			t.Fatalf("%s: AcceptsQC() = %v, want %v", tc.status, got, tc.acceptsQC)
		}
		if got := tc.status.Closed(); got != tc.closed {
			t.Fatalf("%s: Closed() = %v, want %v", tc.status, got, tc.closed)
		}
	}
}

func TestStatusAfterQC(t *testing.T) {
	tests := []struct {
		current  Status
		rejected int64
		want     Status
	}{
		{StatusInProgress, 1, StatusPendingQC},
		{StatusInProgress, 0, StatusInProgress},
		{StatusPendingQC, 5, StatusPendingQC},
		{StatusPendingQC, 0, StatusPendingQC},
		{StatusPaused, 3, StatusPaused},
	}

	for _, tc := range tests {
		if got := StatusAfterQC(tc.current, tc.rejected); got != tc.want {
			t.Fatalf("StatusAfterQC(%s, %d) = %s, want %s", tc.current, tc.rejected, got, tc.want)
		}
	}
}
