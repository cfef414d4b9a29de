// internal/session/session_test.go
package session

import (
	"errors"
	"testing"
)

type fakeIndicator struct {
	on      bool
	changes int
}

func (f *fakeIndicator) Set(on bool) {
	f.on = on
	f.changes++
}

func TestTable_BoundedReservations(t *testing.T) {
	tab := NewTable(3, nil)

	for lun := uint8(1); lun <= 3; lun++ {
		if _, err := tab.Reserve(lun); err != nil {
			t.Fatalf("Reserve(%d) err=%v", lun, err)
		}
	}
	for lun := uint8(4); lun < 10; lun++ {
		if _, err := tab.Reserve(lun); !errors.Is(err, ErrMaxLUNs) {
			t.Fatalf("Reserve(%d): expected ErrMaxLUNs, got %v", lun, err)
		}
	}

	if !tab.Release(2) {
		t.Fatalf("Release(2) reported not live")
	}
	if _, err := tab.Reserve(7); err != nil {
		t.Fatalf("Reserve after release err=%v", err)
	}
	if _, err := tab.Reserve(8); !errors.Is(err, ErrMaxLUNs) {
		t.Fatalf("expected exactly one freed slot, got %v", err)
	}
}

func TestTable_SingleOwnerPerLUN(t *testing.T) {
	tab := NewTable(4, nil)
	if _, err := tab.Reserve(5); err != nil {
		t.Fatalf("Reserve err=%v", err)
	}
	if _, err := tab.Reserve(5); !errors.Is(err, ErrInUse) {
		t.Fatalf("expected ErrInUse, got %v", err)
	}
	if tab.Count() != 1 {
		t.Fatalf("expected 1 session, got %d", tab.Count())
	}
}

func TestTable_ReleaseTwice(t *testing.T) {
	tab := NewTable(4, nil)
	tab.Reserve(1)

	if !tab.Release(1) {
		t.Fatalf("first release should succeed")
	}
	if tab.Release(1) {
		t.Fatalf("second release should report not live")
	}
	if tab.Count() != 0 {
		t.Fatalf("expected 0 sessions, got %d", tab.Count())
	}
}

func TestTable_IndicatorFollowsFirstAndLast(t *testing.T) {
	ind := &fakeIndicator{}
	tab := NewTable(4, ind)

	tab.Reserve(1)
	tab.Reserve(2)
	if !ind.on || ind.changes != 1 {
		t.Fatalf("expected on after first open only, got on=%v changes=%d", ind.on, ind.changes)
	}
	tab.Release(1)
	if !ind.on {
		t.Fatalf("indicator went off with a session still open")
	}
	tab.Release(2)
	if ind.on || ind.changes != 2 {
		t.Fatalf("expected off after last close, got on=%v changes=%d", ind.on, ind.changes)
	}
}

func TestTable_ResetClosesAll(t *testing.T) {
	tab := NewTable(4, nil)
	tab.Reserve(1)
	tab.Reserve(255)

	closed := 0
	tab.Reset(func(*Session) { closed++ })

	if closed != 2 || tab.Count() != 0 {
		t.Fatalf("expected 2 closed and empty table, got closed=%d count=%d", closed, tab.Count())
	}
	if _, err := tab.Reserve(1); err != nil {
		t.Fatalf("Reserve after reset err=%v", err)
	}
}
