package models

import "testing"

func TestUnseenCount(t *testing.T) {
	requests := []HelpRequest{
		{ID: 1, SeenBy: []int64{10, 20}},
		{ID: 2, SeenBy: []int64{20}},
		{ID: 3, SeenBy: []int64{}},
	}

	if got := UnseenCount(10, requests); got != 2 {
		t.Fatalf("expected 2 unseen for user 10, got %d", got)
	}
	if got := UnseenCount(20, requests); got != 1 {
		t.Fatalf("expected 1 unseen for user 20, got %d", got)
	}
	if got := UnseenCount(30, requests); got != 3 {
		t.Fatalf("expected 3 unseen for user 30, got %d", got)
	}
	if got := UnseenCount(10, nil); got != 0 {
		t.Fatalf("expected 0 unseen for empty list, got %d", got)
	}
}

func TestNextMyTaskStatus(t *testing.T) {
	cases := []struct {
		current string
		next    string
	}{
		{MyTaskAssigned, MyTaskInProgress},
		{MyTaskInProgress, MyTaskDone},
		{MyTaskDone, ""},
		{"bogus", ""},
	}
	for _, tc := range cases {
		if got := NextMyTaskStatus(tc.current); got != tc.next {
			t.Fatalf("NextMyTaskStatus(%q) = %q, want %q", tc.current, got, tc.next)
		}
	}
}
