package shm

import "testing"

func TestCreateOpenRoundTrip(t *testing.T) {
	Dir = t.TempDir()

	r, err := Create("roundtrip", 64)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	copy(r.Bytes(), []byte("hello"))
	if err := r.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	r2, err := Open("roundtrip", 64)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer r2.Close()

	if string(r2.Bytes()[:5]) != "hello" {
		t.Fatalf("expected data to survive close/open, got %q", r2.Bytes()[:5])
	}
}

func TestUnlinkRemovesBackingFile(t *testing.T) {
	Dir = t.TempDir()

	r, err := Create("unlink-me", 16)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	r.Close()

	if err := Unlink("unlink-me"); err != nil {
		t.Fatalf("unlink: %v", err)
	}
	if _, err := Open("unlink-me", 16); err == nil {
		t.Fatal("expected open to fail after unlink")
	}
}
