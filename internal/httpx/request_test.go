package httpx

import "testing"

func TestParseRequestBasic(t *testing.T) {
	raw := "GET /api/users?active=true HTTP/1.1\r\nHost: example.com\r\nUser-Agent: test\r\n\r\n"
	req, err := ParseRequest([]byte(raw))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	defer ReleaseRequest(req)

	if req.Method != "GET" {
		t.Errorf("method = %q, want GET", req.Method)
	}
	if req.Path != "/api/users" {
		t.Errorf("path = %q, want /api/users", req.Path)
	}
	if req.Query["active"] != "true" {
		t.Errorf("query[active] = %q, want true", req.Query["active"])
	}
	if req.Host != "example.com" {
		t.Errorf("host = %q, want example.com", req.Host)
	}
}

func TestParseRequestWithBody(t *testing.T) {
	raw := "POST /api/users HTTP/1.1\r\nContent-Length: 5\r\n\r\nhello"
	req, err := ParseRequest([]byte(raw))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	defer ReleaseRequest(req)

	if string(req.Body) != "hello" {
		t.Errorf("body = %q, want hello", req.Body)
	}
}

func TestParseRequestMalformed(t *testing.T) {
	if _, err := ParseRequest([]byte("garbage")); err == nil {
		t.Fatal("expected error for malformed request")
	}
}

func TestBareQueryKey(t *testing.T) {
	raw := "GET /search?flag HTTP/1.1\r\n\r\n"
	req, err := ParseRequest([]byte(raw))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	defer ReleaseRequest(req)

	if v, ok := req.Query["flag"]; !ok || v != "" {
		t.Errorf("query[flag] = %q, ok=%v; want empty string present", v, ok)
	}
}
