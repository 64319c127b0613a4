// Package normalize parses and validates DNS upstream server targets.
//
// Slimmed from the teacher's normalize package: domain-name validation now
// lives in internal/validator, so this package keeps only what the
// Domain Check Logic's DNS phase needs to turn config-file server entries
// into addresses AdGuard's upstream library can dial.
package normalize

import (
	"fmt"
	"net"
	"net/url"
)

// DNS transport schemes, mirrored from AdGuard dnsproxy's upstream address
// conventions.
const (
	SchemeUDP   = "udp"
	SchemeTCP   = "tcp"
	SchemeTLS   = "tls"
	SchemeHTTPS = "https"
	SchemeQUIC  = "quic"
)

// ProtocolConfig describes a transport scheme's defaults.
type ProtocolConfig struct {
	Scheme       string
	DefaultPort  int
	DisplayName  string
	UsesHostname bool
}

// ProtocolConfigs is the single source of truth for scheme/port/display
// mapping across config loading and the resolver.
var ProtocolConfigs = map[string]ProtocolConfig{
	SchemeUDP:   {Scheme: SchemeUDP, DefaultPort: 53, DisplayName: "Do53/UDP", UsesHostname: false},
	SchemeTCP:   {Scheme: SchemeTCP, DefaultPort: 53, DisplayName: "Do53/TCP", UsesHostname: false},
	SchemeTLS:   {Scheme: SchemeTLS, DefaultPort: 853, DisplayName: "DoT", UsesHostname: true},
	SchemeHTTPS: {Scheme: SchemeHTTPS, DefaultPort: 443, DisplayName: "DoH", UsesHostname: true},
	SchemeQUIC:  {Scheme: SchemeQUIC, DefaultPort: 853, DisplayName: "DoQ", UsesHostname: true},
}

// IsValidIP reports whether s parses as an IPv4 or IPv6 address.
func IsValidIP(s string) bool {
	return net.ParseIP(s) != nil
}

// Target validates and canonicalizes a scheme://host:port upstream target.
func Target(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid target URL: %w", err)
	}

	if u.Scheme == "" {
		return "", fmt.Errorf("target missing scheme: %s", raw)
	}

	if _, ok := ProtocolConfigs[u.Scheme]; !ok {
		return "", fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}

	if u.Hostname() == "" {
		return "", fmt.Errorf("target missing host: %s", raw)
	}

	return u.String(), nil
}

// IPToReverseDNS converts an IP address to its in-addr.arpa / ip6.arpa form.
func IPToReverseDNS(ip string) (string, error) {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return "", fmt.Errorf("invalid IP address: %s", ip)
	}

	// Build the arpa name ourselves without a network lookup.
	rev, err := reverseAddr(parsed)
	if err != nil {
		return "", err
	}
	return rev, nil
}

func reverseAddr(ip net.IP) (string, error) {
	if v4 := ip.To4(); v4 != nil {
		return fmt.Sprintf("%d.%d.%d.%d.in-addr.arpa.", v4[3], v4[2], v4[1], v4[0]), nil
	}
	v6 := ip.To16()
	if v6 == nil {
		return "", fmt.Errorf("invalid IP address")
	}
	const hexDigit = "0123456789abcdef"
	buf := make([]byte, 0, 64)
	for i := len(v6) - 1; i >= 0; i-- {
		b := v6[i]
		buf = append(buf, hexDigit[b&0x0f], '.', hexDigit[b>>4], '.')
	}
	buf = append(buf, []byte("ip6.arpa.")...)
	return string(buf), nil
}
