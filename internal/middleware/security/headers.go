package security

import (
	"net/http"
	"strconv"
)

// HeadersConfig lists the response headers to send. Empty values are
// skipped.
type HeadersConfig struct {
	CSP                 string
	XFrameOptions       string
	XContentTypeOptions string
	ReferrerPolicy      string
	PermissionsPolicy   string
	CrossOriginOpener   string
	CrossOriginResource string

	// HSTS is only sent on TLS connections.
	HSTSMaxAge            int
	HSTSIncludeSubdomains bool

	// NoStore marks responses as uncacheable; they carry personal finances.
	NoStore bool
}

// DefaultHeadersConfig returns defaults for a JSON API that serves no markup.
func DefaultHeadersConfig() HeadersConfig {
	return HeadersConfig{
		CSP:                 "default-src 'none'; frame-ancestors 'none'; base-uri 'none'; form-action 'none'",
		XFrameOptions:       "DENY",
		XContentTypeOptions: "nosniff",
		ReferrerPolicy:      "no-referrer",
		PermissionsPolicy:   "geolocation=(), microphone=(), camera=(), payment=()",
		CrossOriginOpener:   "same-origin",
		CrossOriginResource: "same-origin",

		HSTSMaxAge:            365 * 24 * 60 * 60,
		HSTSIncludeSubdomains: true,

		NoStore: true,
	}
}

// Headers returns middleware that sets the configured headers on every
// response before calling next.
func Headers(cfg HeadersConfig) func(http.Handler) http.Handler {
	static := cfg.static()
	hsts := cfg.hsts()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			for _, kv := range static {
				h.Set(kv[0], kv[1])
			}
			if hsts != "" && r.TLS != nil {
				h.Set("Strict-Transport-Security", hsts)
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (c HeadersConfig) static() [][2]string {
	all := [][2]string{
		{"X-Content-Type-Options", c.XContentTypeOptions},
		{"X-Frame-Options", c.XFrameOptions},
		{"Content-Security-Policy", c.CSP},
		{"Referrer-Policy", c.ReferrerPolicy},
		{"Permissions-Policy", c.PermissionsPolicy},
		{"Cross-Origin-Opener-Policy", c.CrossOriginOpener},
		{"Cross-Origin-Resource-Policy", c.CrossOriginResource},
	}
	if c.NoStore {
		all = append(all, [2]string{"Cache-Control", "no-store"})
	}

	out := all[:0]
	for _, kv := range all {
		if kv[1] != "" {
			out = append(out, kv)
		}
	}
	return out
}

func (c HeadersConfig) hsts() string {
	if c.HSTSMaxAge <= 0 {
		return ""
	}
	v := "max-age=" + strconv.Itoa(c.HSTSMaxAge)
	if c.HSTSIncludeSubdomains {
		v += "; includeSubDomains"
	}
	return v
}
