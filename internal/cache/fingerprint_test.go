package cache

import "testing"

func TestFingerprintKeyOrderIndependent(t *testing.T) {
	a := []byte(`{"model":"gpt-4","messages":[{"role":"user","content":"hi"}]}`)
	b := []byte(`{"messages":[{"role":"user","content":"hi"}],"model":"gpt-4"}`)

	fpA := Fingerprint("/v1/route/select", a, nil)
	fpB := Fingerprint("/v1/route/select", b, nil)
	if fpA != fpB {
		t.Fatalf("expected identical fingerprints, got %s vs %s", fpA, fpB)
	}
}

func TestFingerprintStripsVolatileFields(t *testing.T) {
	a := []byte(`{"model":"gpt-4","request_id":"r-1","timestamp":"2026-01-01T00:00:00Z"}`)
	b := []byte(`{"model":"gpt-4","request_id":"r-2","timestamp":"2026-02-02T00:00:00Z"}`)

	if Fingerprint("/v1/route/select", a, nil) != Fingerprint("/v1/route/select", b, nil) {
		t.Fatalf("volatile fields changed the fingerprint")
	}
}

func TestFingerprintDistinguishesContent(t *testing.T) {
	a := []byte(`{"model":"gpt-4"}`)
	b := []byte(`{"model":"gpt-3.5-turbo"}`)

	if Fingerprint("/v1/route/select", a, nil) == Fingerprint("/v1/route/select", b, nil) {
		t.Fatalf("different bodies produced the same fingerprint")
	}
	if Fingerprint("/a", a, nil) == Fingerprint("/b", a, nil) {
		t.Fatalf("different paths produced the same fingerprint")
	}
}

func TestFingerprintWhitelistsHeaders(t *testing.T) {
	body := []byte(`{"model":"gpt-4"}`)
	base := Fingerprint("/v1/route/select", body, map[string]string{"Content-Type": "application/json"})

	withAuth := Fingerprint("/v1/route/select", body, map[string]string{
		"Content-Type":  "application/json",
		"Authorization": "Bearer secret",
		"X-Request-ID":  "abc",
	})
	if base != withAuth {
		t.Fatalf("non-whitelisted headers changed the fingerprint")
	}

	otherType := Fingerprint("/v1/route/select", body, map[string]string{"Content-Type": "text/plain"})
	if base == otherType {
		t.Fatalf("content-type change did not change the fingerprint")
	}
}

func TestFingerprintNonJSONBody(t *testing.T) {
	if Fingerprint("/p", []byte("raw body"), nil) == Fingerprint("/p", []byte("other body"), nil) {
		t.Fatalf("raw bodies produced the same fingerprint")
	}
}
