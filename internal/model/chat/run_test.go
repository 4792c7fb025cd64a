package chat

import "testing"

func TestRunStatusClassification(t *testing.T) {
	cases := []struct {
		status    RunStatus
		pending   bool
		completed bool
	}{
		{RunQueued, true, false},
		{RunInProgress, true, false},
		{RunCancelling, true, false},
		{RunCompleted, false, true},
		{RunFailed, false, false},
		{RunCancelled, false, false},
		{RunExpired, false, false},
		{RunRequiresAction, false, false},
		{RunIncomplete, false, false},
	}

	for _, tc := range cases {
		if got := tc.status.Pending(); got != tc.pending {
			t.Fatalf("%s: expected pending=%v, got %v", tc.status, tc.pending, got)
		}
		if got := tc.status.Completed(); got != tc.completed {
			t.Fatalf("%s: expected completed=%v, got %v", tc.status, tc.completed, got)
		}
	}
}

func TestPlaceholderSwitchesAfterFirstMessage(t *testing.T) {
	if got := DefaultPrompts.Placeholder(nil); got != DefaultPrompts.First {
		t.Fatalf("expected first-turn prompt, got %q", got)
	}

	transcript := []Message{{Role: "user", Content: "October 2025"}}
	if got := DefaultPrompts.Placeholder(transcript); got != DefaultPrompts.Next {
		t.Fatalf("expected follow-up prompt, got %q", got)
	}
}
