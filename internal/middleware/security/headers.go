// Package security holds the HTTP hardening applied by the chat gateway.
package security

import (
	"fmt"

	"github.com/labstack/echo/v4"
)

// HeadersConfig holds security headers configuration
type HeadersConfig struct {
	// Content Security Policy
	CSP string

	// HSTS settings
	HSTSMaxAge            int
	HSTSIncludeSubdomains bool

	XFrameOptions       string
	XContentTypeOptions string
	ReferrerPolicy      string
	CrossOriginResource string
	CacheControl        string
}

// DefaultHeadersConfig returns defaults for a JSON and WebSocket API that
// serves no documents.
func DefaultHeadersConfig() HeadersConfig {
	return HeadersConfig{
		CSP: "default-src 'none'; frame-ancestors 'none'",

		HSTSMaxAge:            31536000, // 1 year
		HSTSIncludeSubdomains: true,

		XFrameOptions:       "DENY",
		XContentTypeOptions: "nosniff",
		ReferrerPolicy:      "no-referrer",
		CrossOriginResource: "same-origin",
		CacheControl:        "no-store",
	}
}

// Headers returns middleware applying cfg to every response.
func Headers(cfg HeadersConfig) echo.MiddlewareFunc {
	hsts := ""
	if cfg.HSTSMaxAge > 0 {
		hsts = fmt.Sprintf("max-age=%d", cfg.HSTSMaxAge)
		if cfg.HSTSIncludeSubdomains {
			hsts += "; includeSubDomains"
		}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Response().Header()
			setIf(h.Set, "X-Content-Type-Options", cfg.XContentTypeOptions)
			setIf(h.Set, "X-Frame-Options", cfg.XFrameOptions)
			setIf(h.Set, "Content-Security-Policy", cfg.CSP)
			setIf(h.Set, "Referrer-Policy", cfg.ReferrerPolicy)
			setIf(h.Set, "Cross-Origin-Resource-Policy", cfg.CrossOriginResource)
			setIf(h.Set, "Cache-Control", cfg.CacheControl)

			// HSTS header (only for HTTPS)
			if c.IsTLS() && hsts != "" {
				h.Set("Strict-Transport-Security", hsts)
			}
			return next(c)
		}
	}
}

func setIf(set func(string, string), key, value string) {
	if value != "" {
		set(key, value)
	}
}
