package logx

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestAnonymizeIP(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"203.0.113.57:4411", "203.0.113.0"},
		{"198.51.100.9", "198.51.100.0"},
		{"127.0.0.1:8080", "127.0.0.1"},
		{"[2001:db8:1234:5678:9abc::1]:443", "2001:db8:1234:5678::"},
		{"not-an-ip", "unknown_ip"},
		{"", "unknown_ip"},
	}

	for _, tc := range cases {
		if got := AnonymizeIP(tc.in); got != tc.want {
			t.Errorf("AnonymizeIP(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestRequestLoggerPassesThrough(t *testing.T) {
	handler := RequestLogger()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusTeapot {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusTeapot)
	}
}
