package session

import "testing"

func TestTable_CreateAndPartner(t *testing.T) {
	tbl := NewTable()

	if !tbl.Create(1000, 2000, "chat-1") {
		t.Fatal("create should succeed for two unpaired users")
	}

	p, ok := tbl.Partner(1000)
	if !ok || p != 2000 {
		t.Errorf("partner of 1000 = %d, %v; want 2000, true", p, ok)
	}
	p, ok = tbl.Partner(2000)
	if !ok || p != 1000 {
		t.Errorf("partner of 2000 = %d, %v; want 1000, true", p, ok)
	}

	cid, ok := tbl.ChatID(1000)
	if !ok || cid != "chat-1" {
		t.Errorf("chat ID of 1000 = %q, %v; want chat-1, true", cid, ok)
	}
}

func TestTable_CreateRejectsBusyAndSelf(t *testing.T) {
	tbl := NewTable()
	tbl.Create(1000, 2000, "chat-1")

	if tbl.Create(1000, 3000, "chat-2") {
		t.Error("create should fail when one side is already paired")
	}
	if tbl.Active(3000) {
		t.Error("failed create must not leave a dangling entry")
	}
	if tbl.Create(4000, 4000, "chat-3") {
		t.Error("create should reject a self-pairing")
	}
}

func TestTable_RemoveBothDirections(t *testing.T) {
	tbl := NewTable()
	tbl.Create(1000, 2000, "chat-1")

	partner, chatID, ok := tbl.Remove(2000)
	if !ok || partner != 1000 || chatID != "chat-1" {
		t.Fatalf("remove = %d, %q, %v; want 1000, chat-1, true", partner, chatID, ok)
	}

	// Both directions must be gone: no intermediate half-removed state.
	if tbl.Active(1000) || tbl.Active(2000) {
		t.Error("both directions should be removed")
	}
	if tbl.Len() != 0 {
		t.Errorf("table length = %d; want 0", tbl.Len())
	}
}

func TestTable_RemoveIdempotent(t *testing.T) {
	tbl := NewTable()
	tbl.Create(1000, 2000, "chat-1")

	if _, _, ok := tbl.Remove(1000); !ok {
		t.Fatal("first remove should report a removed session")
	}
	if _, _, ok := tbl.Remove(1000); ok {
		t.Error("second remove should be a no-op")
	}
}
