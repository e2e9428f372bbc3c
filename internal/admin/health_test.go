package admin

import (
	"errors"
	"testing"
)

func TestRegistryAllHealthy(t *testing.T) {
	r := NewRegistry()
	r.Register("a", func() error { return nil })
	r.Register("b", func() error { return nil })

	ok, results := r.RunAll()
	if !ok {
		t.Fatal("expected all checks to pass")
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
}

func TestRegistryReportsFailure(t *testing.T) {
	r := NewRegistry()
	r.Register("db", func() error { return errors.New("connection refused") })

	ok, results := r.RunAll()
	if ok {
		t.Fatal("expected overall health to be false")
	}
	if results[0].Error != "connection refused" {
		t.Fatalf("unexpected error message: %q", results[0].Error)
	}
}
