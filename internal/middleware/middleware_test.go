package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRequestIDGeneratedAndEchoed(t *testing.T) {
	h := RequestID(okHandler())

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Header().Get(RequestIDHeader) == "" {
		t.Fatal("expected generated request id")
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if got := w.Header().Get(RequestIDHeader); got != "abc-123" {
		t.Fatalf("expected echoed id, got %q", got)
	}
}

func TestRecoverReturns500(t *testing.T) {
	h := Recover(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
}

func TestLoggerCapturesStatus(t *testing.T) {
	rw := &responseWriter{ResponseWriter: httptest.NewRecorder(), statusCode: http.StatusOK}
	rw.WriteHeader(http.StatusTeapot)
	rw.Write([]byte("hi"))
	if rw.statusCode != http.StatusTeapot || rw.bytes != 2 {
		t.Fatalf("unexpected capture %d/%d", rw.statusCode, rw.bytes)
	}
}

func TestClientIP(t *testing.T) {
	tests := map[string]string{
		"52.31.139.75:443": "52.31.139.75",
		"[::1]:8080":       "::1",
		"10.0.0.1":         "10.0.0.1",
	}
	for addr, want := range tests {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.RemoteAddr = addr
		if got := ClientIP(r); got != want {
			t.Errorf("ClientIP(%q) = %q, want %q", addr, got, want)
		}
	}
}

func TestRealIPHonorsOnlyTrustedProxies(t *testing.T) {
	trusted, err := ParseTrustedProxies([]string{"10.0.0.0/8", "192.0.2.7"})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	var seen string
	h := RealIP(trusted)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = ClientIP(r)
	}))

	tests := []struct {
		name    string
		remote  string
		headers map[string]string
		want    string
	}{
		{"direct caller spoofing", "203.0.113.9:5555", map[string]string{"X-Forwarded-For": "52.31.139.75"}, "203.0.113.9"},
		{"direct caller real-ip", "203.0.113.9:5555", map[string]string{"X-Real-IP": "52.31.139.75"}, "203.0.113.9"},
		{"trusted proxy", "10.1.2.3:80", map[string]string{"X-Forwarded-For": "52.31.139.75"}, "52.31.139.75"},
		{"forged left hop", "10.1.2.3:80", map[string]string{"X-Forwarded-For": "52.31.139.75, 198.51.100.4"}, "198.51.100.4"},
		{"chained proxies", "192.0.2.7:80", map[string]string{"X-Forwarded-For": "198.51.100.4, 10.9.9.9"}, "198.51.100.4"},
		{"trusted real-ip", "10.1.2.3:80", map[string]string{"X-Real-IP": "198.51.100.4"}, "198.51.100.4"},
		{"trusted without headers", "10.1.2.3:80", nil, "10.1.2.3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			h.ServeHTTP(httptest.NewRecorder(), r)
			if seen != tt.want {
				t.Fatalf("client ip = %q, want %q", seen, tt.want)
			}
		})
	}
}

func TestRealIPWithoutTrustedProxiesIgnoresHeaders(t *testing.T) {
	var seen string
	h := RealIP(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = ClientIP(r)
	}))
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "203.0.113.9:5555"
	r.Header.Set("X-Forwarded-For", "52.31.139.75")
	h.ServeHTTP(httptest.NewRecorder(), r)
	if seen != "203.0.113.9" {
		t.Fatalf("client ip = %q", seen)
	}
}

func TestParseTrustedProxiesRejectsGarbage(t *testing.T) {
	if _, err := ParseTrustedProxies([]string{"not-an-ip"}); err == nil {
		t.Fatal("expected error")
	}
}
