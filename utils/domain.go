package utils

import (
	"net/url"
	"strings"
)

// ExtractDomainFromOrigin returns the host of an Origin header without its port
func ExtractDomainFromOrigin(origin string) (string, error) {
	if origin == "" {
		return "", nil
	}

	parsedURL, err := url.Parse(origin)
	if err != nil {
		return "", err
	}

	return parsedURL.Hostname(), nil
}

// NormalizeDomain lowercases domain and strips a www prefix
func NormalizeDomain(domain string) string {
	domain = strings.ToLower(strings.TrimSpace(domain))
	return strings.TrimPrefix(domain, "www.")
}

// IsSubdomain reports whether domain is parentDomain or one of its subdomains
func IsSubdomain(domain, parentDomain string) bool {
	if domain == "" || parentDomain == "" {
		return false
	}

	normalizedDomain := NormalizeDomain(domain)
	normalizedParent := NormalizeDomain(parentDomain)

	return normalizedDomain == normalizedParent || strings.HasSuffix(normalizedDomain, "."+normalizedParent)
}

// IsDomainAllowed checks requestDomain against a whitelist of hosts
func IsDomainAllowed(requestDomain string, whitelist []string) bool {
	if requestDomain == "" {
		return false
	}

	for _, allowedDomain := range whitelist {
		if allowedDomain == "*" || IsSubdomain(requestDomain, allowedDomain) {
			return true
		}
	}
	return false
}
