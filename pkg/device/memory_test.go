// ABOUTME: Tests for the in-memory property store
// ABOUTME: Exercises the raw two-phase protocol without the registry
package device

import (
	"encoding/binary"
	"testing"
)

func TestMemoryStoreSizeQueryAllocatesNoStrings(t *testing.T) {
	m := NewMemoryStore()
	id := m.AddDevice("Speakers", 2)

	size, st := m.QuerySize(id, NameAddress())
	if !st.OK() || size != 4 {
		t.Fatalf("size=%d status=%s", size, st)
	}
	if n := m.OutstandingStrings(); n != 0 {
		t.Errorf("size query leaked %d strings", n)
	}
}

func TestMemoryStoreSmallBuffer(t *testing.T) {
	m := NewMemoryStore()
	id := m.AddDevice("Speakers", 2)

	if _, st := m.QueryData(id, PreferredStereoAddress(), make([]byte, 4)); st != StatusBadPropertySize {
		t.Errorf("got %s, want %s", st, StatusBadPropertySize)
	}

	// device lists truncate to whole ids
	m.AddDevice("Headphones", 2)
	buf := make([]byte, 6)
	n, st := m.QueryData(SystemObject, DevicesAddress(), buf)
	if !st.OK() || n != 4 {
		t.Fatalf("n=%d status=%s", n, st)
	}
	if got := binary.NativeEndian.Uint32(buf); got != id {
		t.Errorf("first id = %d, want %d", got, id)
	}
}

func TestMemoryStoreRefusedNameQueryAllocatesNoStrings(t *testing.T) {
	m := NewMemoryStore()
	id := m.AddDevice("Speakers", 2)

	if _, st := m.QueryData(id, NameAddress(), make([]byte, 2)); st != StatusBadPropertySize {
		t.Fatalf("got %s, want %s", st, StatusBadPropertySize)
	}
	if n := m.OutstandingStrings(); n != 0 {
		t.Errorf("refused query leaked %d strings", n)
	}

	buf := make([]byte, 4)
	if _, st := m.QueryData(id, NameAddress(), buf); !st.OK() {
		t.Fatalf("status=%s", st)
	}
	if n := m.OutstandingStrings(); n != 1 {
		t.Fatalf("outstanding = %d, want 1", n)
	}
	m.ReleaseString(StringRef(binary.NativeEndian.Uint32(buf)))
	if n := m.OutstandingStrings(); n != 0 {
		t.Errorf("outstanding after release = %d", n)
	}
}

func TestMemoryStoreWrongScope(t *testing.T) {
	m := NewMemoryStore()
	id := m.AddDevice("Speakers", 2)

	addr := StreamConfigAddress()
	addr.Scope = ScopeGlobal
	if _, st := m.QuerySize(id, addr); st != StatusUnknownProperty {
		t.Errorf("got %s", st)
	}
}

func TestMemoryStoreRemoveDefault(t *testing.T) {
	m := NewMemoryStore()
	id := m.AddDevice("Speakers", 2)
	m.RemoveDevice(id)

	if got := m.DefaultOutput(); got != UnknownObject {
		t.Errorf("default = %d after unplug", got)
	}
}

func TestMemoryStoreSetDefaultOutput(t *testing.T) {
	m := NewMemoryStore()
	a := m.AddDevice("A", 2)
	b := m.AddDevice("B", 2)
	in := m.AddDevice("Mic", 0)

	if m.DefaultOutput() != a {
		t.Fatalf("first output device should be default")
	}
	if !m.SetDefaultOutput(b) || m.DefaultOutput() != b {
		t.Errorf("default not moved to %d", b)
	}
	if m.SetDefaultOutput(in) {
		t.Errorf("input-only device accepted as default")
	}
	if m.SetDefaultOutput(42) {
		t.Errorf("unknown device accepted as default")
	}
}
