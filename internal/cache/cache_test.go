package cache

import (
	"testing"
	"time"
)

func TestKeyIsStableAndSeparatorSafe(t *testing.T) {
	if Key("a", "b") != Key("a", "b") {
		t.Fatal("Expected identical parts to produce identical keys")
	}
	// "ab"+"c" and "a"+"bc" must not collide.
	if Key("ab", "c") == Key("a", "bc") {
		t.Fatal("Expected part boundaries to be part of the key")
	}
}

func TestMemoryRoundTrip(t *testing.T) {
	c := NewMemory(time.Minute, 0)
	if _, ok := c.Get("missing"); ok {
		t.Fatal("Expected a miss on an empty cache")
	}
	if err := c.Set("k", []byte("v"), 0); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	got, ok := c.Get("k")
	if !ok || string(got) != "v" {
		t.Fatalf("Expected to read back v, got %q ok=%v", got, ok)
	}
	if err := c.Delete("k"); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if _, ok := c.Get("k"); ok {
		t.Fatal("Expected a miss after delete")
	}
}

func TestDiskRoundTrip(t *testing.T) {
	c := NewDisk(t.TempDir(), time.Minute)
	if err := c.Set("k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	got, ok := c.Get("k")
	if !ok || string(got) != "v" {
		t.Fatalf("Expected to read back v, got %q ok=%v", got, ok)
	}
	if _, ok := c.Get("other"); ok {
		t.Fatal("Expected a miss for an unknown key")
	}
	if err := c.Clear(); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if _, ok := c.Get("k"); ok {
		t.Fatal("Expected a miss after clear")
	}
}

func TestDiskExpiry(t *testing.T) {
	c := NewDisk(t.TempDir(), time.Minute)
	if err := c.Set("k", []byte("v"), time.Millisecond); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	if _, ok := c.Get("k"); ok {
		t.Fatal("Expected an expired entry to miss")
	}
}

func TestLayeredPromotesDiskHits(t *testing.T) {
	dir := t.TempDir()
	c := NewLayered(time.Minute, dir, time.Minute)
	if err := c.Set("k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	// A fresh layered cache over the same directory starts with a cold
	// memory tier and must fall through to disk.
	c2 := NewLayered(time.Minute, dir, time.Minute)
	got, ok := c2.Get("k")
	if !ok || string(got) != "v" {
		t.Fatalf("Expected a disk hit, got %q ok=%v", got, ok)
	}
}
