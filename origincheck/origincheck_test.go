package origincheck

import "testing"

func TestAllowed(t *testing.T) {
	allowed := []string{
		"http://localhost",
		"http://localhost:3000",
		"http://127.0.0.1:8080",
		"http://[::1]",
		"http://[::1]:9000",
		"https://localhost:3000",
		"https://127.0.0.1",
	}
	for _, o := range allowed {
		if !Allowed(o) {
			t.Errorf("expected allowed: %q", o)
		}
	}

	rejected := []string{
		"",
		"https://evil.com",
		"ftp://localhost",
		"file:///etc/passwd",
		"http://localhost.evil.com",
		"http://evil-localhost",
		"http://192.168.1.10:8080",
		"localhost:3000",
		"ws://localhost",
	}
	for _, o := range rejected {
		if Allowed(o) {
			t.Errorf("expected rejected: %q", o)
		}
	}
}

func TestValidate(t *testing.T) {
	if got := Validate("http://localhost:5173"); got != "http://localhost:5173" {
		t.Fatalf("got %q", got)
	}
	if got := Validate("https://evil.com"); got != "" {
		t.Fatalf("got %q", got)
	}
}
