package adapter

import (
	"strings"
	"testing"
)

func TestReactionCounterSQLTargetsKindColumn(t *testing.T) {
	cases := []struct {
		kind   string
		delta  int
		column string
	}{
		{"LIKE", +1, "count_like"},
		{"DISLIKE", +1, "count_dislike"},
		{"LIKE", -1, "count_like"},
		{"DISLIKE", -1, "count_dislike"},
	}
	for _, tc := range cases {
		q := reactionCounterSQL(tc.kind, tc.delta)
		if !strings.Contains(q, tc.column) {
			t.Fatalf("kind %s delta %d: expected %s in %q", tc.kind, tc.delta, tc.column, q)
		}
		other := "count_dislike"
		if tc.column == "count_dislike" {
			other = "count_like"
		}
		if strings.Contains(q, other) {
			t.Fatalf("kind %s delta %d: touched the wrong counter in %q", tc.kind, tc.delta, q)
		}
	}
}

func TestReactionCounterSQLDecrementNeverGoesNegative(t *testing.T) {
	q := reactionCounterSQL("LIKE", -1)
	if !strings.Contains(q, "GREATEST") {
		t.Fatalf("expected a floor on decrement, got %q", q)
	}
	if !strings.Contains(reactionCounterSQL("LIKE", +1), "+ 1") {
		t.Fatalf("expected a plain increment, got %q", reactionCounterSQL("LIKE", +1))
	}
}
