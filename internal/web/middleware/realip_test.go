package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestTrustedRealIP(t *testing.T) {
	tests := []struct {
		name    string
		trusted []string
		remote  string
		header  map[string]string
		want    string
	}{
		{
			name:   "no proxies strips port",
			remote: "198.51.100.7:5000",
			want:   "198.51.100.7",
		},
		{
			name:   "untrusted peer ignores X-Forwarded-For",
			remote: "198.51.100.7:5000",
			header: map[string]string{"X-Forwarded-For": "10.0.0.1"},
			want:   "198.51.100.7",
		},
		{
			name:    "untrusted peer ignores X-Real-IP",
			trusted: []string{"10.0.0.0/8"},
			remote:  "198.51.100.7:5000",
			header:  map[string]string{"X-Real-IP": "10.0.0.1"},
			want:    "198.51.100.7",
		},
		{
			name:    "trusted CIDR uses first forwarded hop",
			trusted: []string{"10.0.0.0/8"},
			remote:  "10.1.2.3:443",
			header:  map[string]string{"X-Forwarded-For": " 203.0.113.5 , 10.1.2.3"},
			want:    "203.0.113.5",
		},
		{
			name:    "trusted single address prefers X-Real-IP",
			trusted: []string{"127.0.0.1"},
			remote:  "127.0.0.1:9000",
			header:  map[string]string{"X-Real-IP": "203.0.113.6", "X-Forwarded-For": "203.0.113.7"},
			want:    "203.0.113.6",
		},
		{
			name:    "trusted peer with invalid header keeps peer",
			trusted: []string{"127.0.0.1"},
			remote:  "127.0.0.1:9000",
			header:  map[string]string{"X-Forwarded-For": "not-an-ip"},
			want:    "127.0.0.1",
		},
		{
			name:    "ipv6 peer",
			trusted: []string{"::1"},
			remote:  "[::1]:8080",
			header:  map[string]string{"X-Forwarded-For": "2001:db8::1"},
			want:    "2001:db8::1",
		},
		{
			name:    "invalid entries are skipped",
			trusted: []string{"bogus", ""},
			remote:  "127.0.0.1:9000",
			header:  map[string]string{"X-Forwarded-For": "203.0.113.7"},
			want:    "127.0.0.1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			h := TrustedRealIP(tt.trusted)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = r.RemoteAddr
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.header {
				req.Header.Set(k, v)
			}
			h.ServeHTTP(httptest.NewRecorder(), req)

			if got != tt.want {
				t.Errorf("RemoteAddr = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseTrustedProxies(t *testing.T) {
	prefixes := ParseTrustedProxies([]string{"10.0.0.0/8", " 192.168.1.1 ", "fd00::/8", "nope"})
	if len(prefixes) != 3 {
		t.Fatalf("len = %d, want 3: %v", len(prefixes), prefixes)
	}
	if got := prefixes[1].String(); got != "192.168.1.1/32" {
		t.Errorf("single address prefix = %q, want 192.168.1.1/32", got)
	}
}
