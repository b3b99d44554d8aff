package fixedthree

import "testing"

func seed(b byte) [32]byte {
	var s [32]byte
	for i := range s {
		s[i] = b
	}
	return s
}

func TestCanonicalAxisMapping(t *testing.T) {
	s := New(seed(0x10))
	if s.FinanceAxis() != 0 || s.TimeAxis() != 1 || s.HardwareAxis() != 2 {
		t.Fatalf("canonical axis mapping violated: finance=%d time=%d hardware=%d",
			s.FinanceAxis(), s.TimeAxis(), s.HardwareAxis())
	}
	if s.N() != 3 {
		t.Fatalf("N() = %d, want 3", s.N())
	}
}

func TestNamedFoldsIsolated(t *testing.T) {
	s := New(seed(0x11))
	before := s.TimeState()
	s.FoldFinance([]byte("tx"), nil, 1)
	if s.TimeState() != before {
		t.Fatalf("folding finance axis changed time axis state")
	}
}

func TestLockedNamedFolds(t *testing.T) {
	s := New(seed(0x12))
	financeBefore := s.FinanceState()
	l := NewLocked(s)
	l.FoldHardware([]byte("evt"), nil, 5)
	if l.Counters()[Hardware] != 1 {
		t.Fatalf("hardware counter = %d, want 1", l.Counters()[Hardware])
	}
	if l.Counters()[Finance] != 0 {
		t.Fatalf("finance counter = %d, want 0", l.Counters()[Finance])
	}
	if s.FinanceState() != financeBefore {
		t.Fatalf("finance axis state changed by an unrelated hardware fold")
	}
}
