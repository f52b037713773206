package egress

import "strings"

// Allowlist matches hostnames against the configured allowlist. An entry
// beginning with "*." matches the named domain and any subdomain.
type Allowlist []string

// Match reports whether host is permitted.
func (a Allowlist) Match(host string) bool {
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	for _, entry := range a {
		entry = strings.ToLower(entry)
		if strings.HasPrefix(entry, "*.") {
			suffix := entry[1:] // ".example.com"
			if strings.HasSuffix(host, suffix) || host == entry[2:] {
				return true
			}
			continue
		}
		if host == entry {
			return true
		}
	}
	return false
}
