package httpx

import (
	"bytes"
	"testing"
)

func TestEncodeIncludesContentLengthAndClose(t *testing.T) {
	ctx := NewContext(&Request{})
	ctx.JSON(200, map[string]string{"ok": "true"})

	out := Encode(ctx)

	if !bytes.HasPrefix(out, []byte("HTTP/1.1 200 OK\r\n")) {
		t.Fatalf("unexpected status line: %q", out[:20])
	}
	if !bytes.Contains(out, []byte("Connection: close\r\n")) {
		t.Fatal("expected Connection: close header")
	}
	if !bytes.Contains(out, []byte("Content-Length:")) {
		t.Fatal("expected Content-Length header")
	}
}

func TestErrorEnvelope(t *testing.T) {
	ctx := NewContext(&Request{})
	ctx.Error(404, "not found")

	if ctx.Status() != 404 {
		t.Fatalf("status = %d, want 404", ctx.Status())
	}
	if !bytes.Contains(ctx.ResponseBody(), []byte("not found")) {
		t.Fatalf("body missing message: %s", ctx.ResponseBody())
	}
}
