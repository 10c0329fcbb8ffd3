package linkpreview

import (
	"context"
	"net"
	"net/url"
)

var allowedSchemes = map[string]struct{}{"http": {}, "https": {}}

// Resolver is the domain-resolution seam used by IsAllowedURL, satisfied
// by *net.Resolver and replaceable in tests.
type Resolver interface {
	LookupIPAddr(ctx context.Context, host string) ([]net.IPAddr, error)
}

// IsAllowedURL reports whether the resolver may visit u. The scheme must
// be http or https, the host must be a domain rather than a literal IP,
// and every address the domain resolves to must be globally reachable.
// This keeps the resolver from being turned into a server-side request
// forgery vector against internal addresses.
func IsAllowedURL(ctx context.Context, resolver Resolver, u *url.URL) bool {
	if _, ok := allowedSchemes[u.Scheme]; !ok {
		return false
	}

	host := u.Hostname()
	if host == "" {
		return false
	}
	if ip := net.ParseIP(host); ip != nil {
		return false
	}

	addrs, err := resolver.LookupIPAddr(ctx, host)
	if err != nil {
		// Resolution failure counts as not allowed.
		return false
	}

	anyValid := false
	for _, addr := range addrs {
		if !isGlobalIP(addr.IP) {
			return false
		}
		anyValid = true
	}
	return anyValid
}

// isGlobalIP reports whether ip is globally reachable, rejecting the
// private, loopback, link-local, shared (CGNAT), documentation, and
// reserved ranges for both address families.
func isGlobalIP(ip net.IP) bool {
	if v4 := ip.To4(); v4 != nil {
		return isGlobalIPv4(v4)
	}
	return isGlobalIPv6(ip)
}

func isGlobalIPv4(ip net.IP) bool {
	switch {
	case ip[0] == 0: // "this network"
		return false
	case ip.IsPrivate(), ip.IsLoopback(), ip.IsLinkLocalUnicast(), ip.IsLinkLocalMulticast():
		return false
	case ip[0] == 100 && ip[1]&0b1100_0000 == 0b0100_0000: // shared address space 100.64.0.0/10
		return false
	case ip[0] == 192 && ip[1] == 0 && ip[2] == 0 && ip[3] != 9 && ip[3] != 10: // 192.0.0.0/24 protocol assignments
		return false
	case ip[0] == 192 && ip[1] == 0 && ip[2] == 2: // documentation 192.0.2.0/24
		return false
	case ip[0] == 198 && ip[1]&0xfe == 18: // benchmarking 198.18.0.0/15
		return false
	case ip[0] == 198 && ip[1] == 51 && ip[2] == 100: // documentation 198.51.100.0/24
		return false
	case ip[0] == 203 && ip[1] == 0 && ip[2] == 113: // documentation 203.0.113.0/24
		return false
	case ip[0]&240 == 240: // reserved 240.0.0.0/4 (includes broadcast)
		return false
	}
	return true
}

func isGlobalIPv6(ip net.IP) bool {
	if ip == nil || len(ip) != net.IPv6len {
		return false
	}
	switch {
	case ip.IsUnspecified(), ip.IsLoopback(), ip.IsLinkLocalUnicast(), ip.IsLinkLocalMulticast():
		return false
	case ip[0]&0xfe == 0xfc: // unique local fc00::/7
		return false
	case ip[0] == 0x20 && ip[1] == 0x01 && ip[2] == 0x0d && ip[3] == 0xb8: // documentation 2001:db8::/32
		return false
	case ip.IsMulticast():
		return false
	}
	return true
}
