package report

import "testing"

func TestLedger_FileIncrements(t *testing.T) {
	l := NewLedger()

	count, ok := l.File(1000, 2000)
	if !ok || count != 1 {
		t.Fatalf("file = %d, %v; want 1, true", count, ok)
	}
	if l.Count(2000) != 1 {
		t.Errorf("count(2000) = %d; want 1", l.Count(2000))
	}
	if l.Count(1000) != 0 {
		t.Errorf("reporter's own count = %d; want 0", l.Count(1000))
	}
}

func TestLedger_GuardBlocksDuplicate(t *testing.T) {
	l := NewLedger()

	l.File(1000, 2000)
	count, ok := l.File(1000, 2000)
	if ok {
		t.Error("second report in the same session should be rejected")
	}
	if count != 1 {
		t.Errorf("count after duplicate = %d; want 1", count)
	}
}

func TestLedger_ResetGuardAllowsNewSession(t *testing.T) {
	l := NewLedger()

	l.File(1000, 2000)
	l.ResetGuard(1000) // new session

	count, ok := l.File(1000, 3000)
	if !ok || count != 1 {
		t.Errorf("file after guard reset = %d, %v; want 1, true", count, ok)
	}
	// Counters are cumulative and independent of the guard.
	if l.Count(2000) != 1 || l.Count(3000) != 1 {
		t.Errorf("counts = %d, %d; want 1, 1", l.Count(2000), l.Count(3000))
	}
}

func TestLedger_GuardIsPerReporter(t *testing.T) {
	l := NewLedger()

	l.File(1000, 2000)
	if _, ok := l.File(2000, 1000); !ok {
		t.Error("the partner's guard should be independent of the reporter's")
	}
}
