package room

import (
	"testing"

	"midnight-village/internal/game"
)

func TestManagerLifecycle(t *testing.T) {
	mgr := NewManager(frozenConfig(), 2, Options{})
	defer mgr.Shutdown()

	m1, hostID, err := mgr.Create("alpha", "ann", 6)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if hostID == "" {
		t.Fatal("create must seat the host")
	}
	if _, _, err := mgr.Create("beta", "ben", 9); err != nil {
		t.Fatalf("create second: %v", err)
	}
	if _, _, err := mgr.Create("gamma", "gil", 6); err != game.ErrServerFull {
		t.Fatalf("expected server_full at capacity, got %v", err)
	}
	if _, _, err := mgr.Create("delta", "dia", 5); err != game.ErrServerFull {
		t.Fatalf("capacity check precedes validation, got %v", err)
	}

	got, err := mgr.Get(m1.ID())
	if err != nil || got != m1 {
		t.Fatalf("get: %v", err)
	}
	if _, err := mgr.Get("missing"); err != game.ErrRoomNotFound {
		t.Fatalf("expected room_not_found, got %v", err)
	}

	list := mgr.List()
	if len(list) != 2 {
		t.Fatalf("expected 2 rooms listed, got %d", len(list))
	}
	if list[0].Name != "alpha" || list[1].Name != "beta" {
		t.Fatalf("listing must be name-sorted, got %s, %s", list[0].Name, list[1].Name)
	}
	if list[0].Players != 1 || list[0].Seats != 6 || list[0].Phase != game.PhaseWaiting {
		t.Fatalf("unexpected summary: %+v", list[0])
	}

	mgr.Remove(m1.ID())
	if _, err := mgr.Get(m1.ID()); err != game.ErrRoomNotFound {
		t.Fatalf("removed room must be gone, got %v", err)
	}
	if _, err := m1.View(""); err != game.ErrRoomNotFound {
		t.Fatalf("removed machine must be stopped, got %v", err)
	}

	// Capacity freed: a new room fits again.
	if _, _, err := mgr.Create("gamma", "gil", 6); err != nil {
		t.Fatalf("create after remove: %v", err)
	}
}

func TestManagerRejectsBadSeatCount(t *testing.T) {
	mgr := NewManager(frozenConfig(), 0, Options{})
	defer mgr.Shutdown()
	if _, _, err := mgr.Create("odd", "o", 7); err != game.ErrInvalidSeatCount {
		t.Fatalf("expected invalid_seat_count, got %v", err)
	}
}
