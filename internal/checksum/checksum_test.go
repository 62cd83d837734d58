package checksum

import "testing"

func TestSum_Stable(t *testing.T) {
	a := Sum([]byte("hello"))
	b := Sum([]byte("hello"))
	if a != b {
		t.Fatalf("sum not stable: %s != %s", a, b)
	}
	if len(a) != 64 {
		t.Errorf("len = %d, want 64", len(a))
	}
}

func TestSnapshot_NoBoundaryCollision(t *testing.T) {
	if Snapshot("ab", "c") == Snapshot("a", "bc") {
		t.Error("snapshots of different name/text splits must differ")
	}
	if Snapshot("doc", "text") != Snapshot("doc", "text") {
		t.Error("snapshot should be deterministic")
	}
}
