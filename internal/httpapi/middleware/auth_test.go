package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func do(h http.Handler, header, value string) int {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set(header, value)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr.Code
}

func TestRequireAny_AcceptsPublicOrAdminKey(t *testing.T) {
	keys := Keys{Public: []string{"pub"}, Admin: []string{"adm"}}
	h := RequireAny(keys)(okHandler())

	if code := do(h, "X-API-Key", "pub"); code != 200 {
		t.Fatalf("public key rejected: %d", code)
	}
	if code := do(h, "Authorization", "Bearer adm"); code != 200 {
		t.Fatalf("admin bearer rejected: %d", code)
	}
	if code := do(h, "X-API-Key", "wrong"); code != http.StatusUnauthorized {
		t.Fatalf("bad key admitted: %d", code)
	}
	if code := do(h, "", ""); code != http.StatusUnauthorized {
		t.Fatalf("missing key admitted: %d", code)
	}
}

func TestRequireAdmin_RejectsPublicKey(t *testing.T) {
	keys := Keys{Public: []string{"pub"}, Admin: []string{"adm"}}
	h := RequireAdmin(keys)(okHandler())

	if code := do(h, "X-API-Key", "adm"); code != 200 {
		t.Fatalf("admin key rejected: %d", code)
	}
	if code := do(h, "X-API-Key", "pub"); code != http.StatusForbidden {
		t.Fatalf("public key admitted to admin route: %d", code)
	}
}

func TestAuth_NoKeysConfiguredAllowsAll(t *testing.T) {
	h := RequireAny(Keys{})(okHandler())
	if code := do(h, "", ""); code != 200 {
		t.Fatalf("open mode rejected request: %d", code)
	}
	h = RequireAdmin(Keys{Public: []string{"pub"}})(okHandler())
	if code := do(h, "", ""); code != 200 {
		t.Fatalf("admin middleware without admin keys should pass: %d", code)
	}
}
