package middleware

import (
	"log/slog"
	"net/http"
	"net/http/pprof"
	"net/netip"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/nongtiensonpro/yellowcat/pkg/httputil"
)

// RegisterPprof mounts /debug/pprof for clients inside the allowed ranges.
// Entries may be CIDRs or bare addresses. Nothing is mounted when no usable
// range is configured.
func RegisterPprof(r chi.Router, allowed []string, logger *slog.Logger) {
	prefixes := parsePrefixes(allowed, logger)
	if len(prefixes) == 0 {
		return
	}
	r.Route("/debug/pprof", func(r chi.Router) {
		r.Use(allowlist(prefixes, logger))
		r.HandleFunc("/cmdline", pprof.Cmdline)
		r.HandleFunc("/profile", pprof.Profile)
		r.HandleFunc("/symbol", pprof.Symbol)
		r.HandleFunc("/trace", pprof.Trace)
		r.HandleFunc("/*", pprof.Index)
	})
	logger.Info("pprof enabled", slog.Int("allowed_ranges", len(prefixes)))
}

func parsePrefixes(entries []string, logger *slog.Logger) []netip.Prefix {
	var out []netip.Prefix
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		if !strings.Contains(e, "/") {
			if addr, err := netip.ParseAddr(e); err == nil {
				out = append(out, netip.PrefixFrom(addr.Unmap(), addr.Unmap().BitLen()))
				continue
			}
		}
		p, err := netip.ParsePrefix(e)
		if err != nil {
			logger.Warn("ignoring invalid allowlist entry",
				slog.String("entry", e),
				slog.String("error", err.Error()),
			)
			continue
		}
		out = append(out, p.Masked())
	}
	return out
}

func allowlist(prefixes []netip.Prefix, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			host := clientIP(r)
			if addr, err := netip.ParseAddr(host); err == nil {
				addr = addr.Unmap()
				for _, p := range prefixes {
					if p.Contains(addr) {
						next.ServeHTTP(w, r)
						return
					}
				}
			}

			logger.Warn("allowlist denied request",
				slog.String("ip", host),
				slog.String("path", r.URL.Path),
			)
			httputil.WriteJSON(w, http.StatusForbidden, httputil.Response{
				Error: &httputil.ErrorResponse{Code: "FORBIDDEN", Message: "access restricted by IP allowlist"},
			})
		})
	}
}
