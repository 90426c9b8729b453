package middleware

import (
	"net/http"
	"strings"
)

// The API serves JSON, progress frames and file downloads, never markup.
var contentSecurityPolicy = strings.Join([]string{
	"default-src 'none'",
	"connect-src 'self' ws: wss:",
	"frame-ancestors 'none'",
	"base-uri 'none'",
	"form-action 'self'",
}, "; ")

var permissionsPolicy = strings.Join([]string{
	"camera=()",
	"geolocation=()",
	"microphone=()",
	"payment=()",
	"usb=()",
}, ", ")

const hstsValue = "max-age=31536000; includeSubDomains"

// SecureHeaders sets the hardening headers on every response except
// WebSocket upgrades. devMode drops the content security and permissions
// policies so a local dashboard can be served from another origin.
func SecureHeaders(devMode bool) func(next http.Handler) http.Handler {
	fixed := http.Header{}
	fixed.Set("X-Frame-Options", "DENY")
	fixed.Set("X-Content-Type-Options", "nosniff")
	fixed.Set("Referrer-Policy", "strict-origin-when-cross-origin")
	if !devMode {
		fixed.Set("Content-Security-Policy", contentSecurityPolicy)
		fixed.Set("Permissions-Policy", permissionsPolicy)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if strings.EqualFold(r.Header.Get("Upgrade"), "websocket") {
				next.ServeHTTP(w, r)
				return
			}
			h := w.Header()
			for k, v := range fixed {
				h[k] = v
			}
			if r.TLS != nil {
				h.Set("Strict-Transport-Security", hstsValue)
			}
			next.ServeHTTP(w, r)
		})
	}
}
