package client

import (
	"net/url"
	"strings"
)

const defaultDevAuthURL = "http://localhost:8000"

// resolvePrimaryAuthURL picks the base URL for the primary auth service.
// An explicit override wins. Otherwise, when the configured origin sits on
// the production domain the origin itself is reused (a reverse proxy routes
// /auth there); anything else is assumed to be a development setup.
func resolvePrimaryAuthURL(cfg Config) string {
	if cfg.PrimaryAuthURL != "" {
		return strings.TrimRight(cfg.PrimaryAuthURL, "/")
	}
	if cfg.Origin != "" && cfg.ProductDomain != "" {
		if u, err := url.Parse(cfg.Origin); err == nil {
			host := u.Hostname()
			if host == cfg.ProductDomain || strings.HasSuffix(host, "."+cfg.ProductDomain) {
				return strings.TrimRight(cfg.Origin, "/")
			}
		}
	}
	if cfg.DevAuthURL != "" {
		return strings.TrimRight(cfg.DevAuthURL, "/")
	}
	return defaultDevAuthURL
}
