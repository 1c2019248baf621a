package security

import (
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync/atomic"

	"github.com/labstack/echo/v4"

	"github.com/diogoviieira/register-track-bot/internal/log"
)

var probePatterns = []string{
	"../", "..\\", ".env", "wp-admin", "phpmyadmin",
	"admin.php", "config.php", ".git", ".ssh",
	"eval(", "javascript:", "<script", "union select",
	"etc/passwd", "cmd.exe",
}

// Detector turns away requests probing for files and admin panels the
// gateway does not have.
type Detector struct {
	blocked atomic.Int64
	log     *log.Logger
}

func NewDetector(logger *log.Logger) *Detector {
	return &Detector{log: logger.WithComponent(log.ComponentGateway)}
}

// Suspicious reports whether r looks like a vulnerability scan.
func Suspicious(r *http.Request) bool {
	switch r.Method {
	case "TRACE", "TRACK", "DEBUG", "CONNECT":
		return true
	}
	// Check for excessively long URLs (possible overflow attempt)
	if len(r.URL.String()) > 2048 {
		return true
	}

	path := strings.ToLower(r.URL.Path)
	query := strings.ToLower(r.URL.RawQuery)
	for _, pattern := range probePatterns {
		if strings.Contains(path, pattern) || strings.Contains(query, pattern) {
			return true
		}
	}
	return false
}

// Middleware answers suspicious requests with 404. Register it with echo.Pre.
func (d *Detector) Middleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if Suspicious(c.Request()) {
			d.blocked.Add(1)
			d.log.WarnContext(c.Request().Context(), "Suspicious request blocked",
				log.FieldMethod, c.Request().Method,
				log.FieldPath, c.Request().URL.Path,
				log.FieldClientIP, c.RealIP())
			return echo.ErrNotFound
		}
		return next(c)
	}
}

// Blocked returns how many requests were turned away.
func (d *Detector) Blocked() int64 {
	return d.blocked.Load()
}

// trustedProxies are the networks whose X-Forwarded-For is believed.
var trustedProxies = []string{
	"127.0.0.0/8",    // localhost
	"10.0.0.0/8",     // private networks
	"172.16.0.0/12",  // private networks
	"192.168.0.0/16", // private networks
}

// IPExtractor reads the client address from X-Forwarded-For when the
// request comes through a trusted proxy, from the connection otherwise.
// extra adds proxy networks in CIDR form.
func IPExtractor(extra ...string) (echo.IPExtractor, error) {
	var opts []echo.TrustOption
	for _, cidr := range append(append([]string{}, trustedProxies...), extra...) {
		_, network, err := net.ParseCIDR(cidr)
		if err != nil {
			return nil, fmt.Errorf("invalid CIDR %s: %w", cidr, err)
		}
		opts = append(opts, echo.TrustIPRange(network))
	}
	return echo.ExtractIPFromXFFHeader(opts...), nil
}
