package scan

import (
	"testing"

	"tarmac/internal/manifest"
)

func TestScannedSetInsertIsIdempotent(t *testing.T) {
	set := NewScannedSet()
	key := manifest.Key("ABC123_12A")

	if !set.Insert(key) {
		t.Fatal("first Insert() = false, want true")
	}
	if set.Insert(key) {
		t.Fatal("second Insert() = true, want false")
	}
	if set.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", set.Len())
	}
	if !set.Has(key) {
		t.Fatal("Has() = false for inserted key")
	}
}

func TestScannedSetKeysSorted(t *testing.T) {
	set := NewScannedSet()
	set.Insert(manifest.Key("ZZZ999_30F"))
	set.Insert(manifest.Key("ABC123_12A"))
	set.Insert(manifest.Key("MNO456_1C"))

	keys := set.Keys()
	if len(keys) != 3 {
		t.Fatalf("Keys() len = %d, want 3", len(keys))
	}
	if keys[0] != "ABC123_12A" || keys[2] != "ZZZ999_30F" {
		t.Fatalf("keys not sorted: %v", keys)
	}
}

func TestScannedSetClear(t *testing.T) {
	set := NewScannedSet()
	set.Insert(manifest.Key("ABC123_12A"))
	set.Clear()
	if set.Len() != 0 {
		t.Fatalf("Len() after Clear = %d, want 0", set.Len())
	}
	if !set.Insert(manifest.Key("ABC123_12A")) {
		t.Fatal("Insert() after Clear = false, want true")
	}
}
