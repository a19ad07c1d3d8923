package registry

import (
	"net/netip"
	"strings"
)

// validators are hard gates applied to a candidate value after the regex
// matched. A rule references one by name in its YAML definition.
var validators = map[string]func(string) bool{
	"ipv4":          validIPv4,
	"internal_host": internalURL,
	"token":         tokenShaped,
}

var internalSuffixes = []string{".internal", ".local", ".corp", ".localhost"}

// validIPv4 reports whether s is four dot-separated octets in 0-255.
// Leading zeros are accepted since they appear in pasted logs.
func validIPv4(s string) bool {
	parts := strings.Split(s, ".")
	if len(parts) != 4 {
		return false
	}
	for _, p := range parts {
		if len(p) == 0 || len(p) > 3 {
			return false
		}
		n := 0
		for i := 0; i < len(p); i++ {
			c := p[i]
			if c < '0' || c > '9' {
				return false
			}
			n = n*10 + int(c-'0')
		}
		if n > 255 {
			return false
		}
	}
	return true
}

// internalURL reports whether the URL's host is loopback, a private or
// link-local address, localhost, or carries an internal DNS suffix.
func internalURL(raw string) bool {
	host := urlHost(raw)
	if host == "" {
		return false
	}
	if host == "localhost" {
		return true
	}
	if validIPv4(host) {
		host = trimOctetZeros(host)
	}
	if addr, err := netip.ParseAddr(host); err == nil {
		return addr.IsLoopback() || addr.IsPrivate() || addr.IsLinkLocalUnicast()
	}
	for _, suffix := range internalSuffixes {
		if strings.HasSuffix(host, suffix) {
			return true
		}
	}
	return false
}

// urlHost extracts the lower-cased host from a URL without requiring it to
// be fully well formed, so malformed escapes in the path do not hide an
// internal host. Bracketed IPv6 hosts are returned without brackets.
func urlHost(raw string) string {
	rest := raw
	if i := strings.Index(rest, "://"); i >= 0 {
		rest = rest[i+3:]
	}
	if i := strings.IndexAny(rest, "/?#"); i >= 0 {
		rest = rest[:i]
	}
	if i := strings.LastIndex(rest, "@"); i >= 0 {
		rest = rest[i+1:]
	}
	if strings.HasPrefix(rest, "[") {
		end := strings.Index(rest, "]")
		if end < 0 {
			return ""
		}
		return strings.ToLower(rest[1:end])
	}
	if i := strings.LastIndex(rest, ":"); i >= 0 {
		rest = rest[:i]
	}
	return strings.TrimSuffix(strings.ToLower(rest), ".")
}

// trimOctetZeros rewrites "010.000.000.001" as "10.0.0.1" so netip accepts
// it. s must already pass validIPv4.
func trimOctetZeros(s string) string {
	parts := strings.Split(s, ".")
	for i, p := range parts {
		if p = strings.TrimLeft(p, "0"); p == "" {
			p = "0"
		}
		parts[i] = p
	}
	return strings.Join(parts, ".")
}

// tokenShaped filters prose that follows a "token" label ("token expired
// yesterday") from real token values, which carry digits or are long.
func tokenShaped(s string) bool {
	if len(s) >= 20 {
		return true
	}
	return strings.ContainsAny(s, "0123456789")
}
