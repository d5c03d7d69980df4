package collector

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/hazcod/hearth/pkg/models"
)

const (
	IPSourceRequest = "request"
	IPSourceEcho    = "echo"
)

// IPResolver produces the public address of the device being fingerprinted.
type IPResolver interface {
	PublicIP(ctx context.Context, requestIP string) string
}

// RequestIPResolver trusts the address the request arrived from.
type RequestIPResolver struct{}

// PublicIP normalises requestIP, or returns the unknown sentinel.
func (RequestIPResolver) PublicIP(_ context.Context, requestIP string) string {
	ip := net.ParseIP(strings.TrimSpace(requestIP))
	if ip == nil {
		return models.UnknownIP
	}
	return ip.String()
}

type publicIPLookup interface {
	PublicIP(ctx context.Context) string
}

// EchoIPResolver asks an external echo service, which is what a collector running on
// the device itself needs.
type EchoIPResolver struct {
	Lookup publicIPLookup
}

// PublicIP ignores the request and asks the echo service.
func (r EchoIPResolver) PublicIP(ctx context.Context, _ string) string {
	return r.Lookup.PublicIP(ctx)
}

// ClientIP returns the socket peer of r. Forwarded addresses only reach it through
// TrustedProxies.Middleware.
func ClientIP(r *http.Request) string {
	return remoteHost(r.RemoteAddr)
}

func remoteHost(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}

// TrustedProxies are the networks whose forwarding headers are believed.
type TrustedProxies []*net.IPNet

// ParseTrustedProxies accepts CIDRs and bare addresses.
func ParseTrustedProxies(entries []string) (TrustedProxies, error) {
	proxies := make(TrustedProxies, 0, len(entries))

	for _, entry := range entries {
		entry = strings.TrimSpace(entry)

		if !strings.Contains(entry, "/") {
			ip := net.ParseIP(entry)
			if ip == nil {
				return nil, fmt.Errorf("invalid trusted proxy %q", entry)
			}
			bits := 8 * net.IPv6len
			if ip.To4() != nil {
				ip, bits = ip.To4(), 8*net.IPv4len
			}
			proxies = append(proxies, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
			continue
		}

		_, network, err := net.ParseCIDR(entry)
		if err != nil {
			return nil, fmt.Errorf("invalid trusted proxy %q: %w", entry, err)
		}
		proxies = append(proxies, network)
	}

	return proxies, nil
}

func (p TrustedProxies) contains(ip net.IP) bool {
	for _, network := range p {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

// ClientIP returns the visitor address for r. X-Forwarded-For and X-Real-IP are only
// read when the socket peer is a trusted proxy; the forwarded chain is walked from the
// right and the first hop outside the trusted networks wins.
func (p TrustedProxies) ClientIP(r *http.Request) string {
	peer := remoteHost(r.RemoteAddr)

	peerIP := net.ParseIP(peer)
	if peerIP == nil || !p.contains(peerIP) {
		return peer
	}

	var hops []string
	for _, header := range r.Header.Values("X-Forwarded-For") {
		hops = append(hops, strings.Split(header, ",")...)
	}

	var leftmost string
	for i := len(hops) - 1; i >= 0; i-- {
		ip := net.ParseIP(strings.TrimSpace(hops[i]))
		if ip == nil {
			break
		}
		if !p.contains(ip) {
			return ip.String()
		}
		leftmost = ip.String()
	}
	if leftmost != "" {
		return leftmost
	}

	if ip := net.ParseIP(strings.TrimSpace(r.Header.Get("X-Real-IP"))); ip != nil {
		return ip.String()
	}

	return peer
}

// Middleware replaces RemoteAddr with the forwarded visitor address when the request
// came through a trusted proxy.
func (p TrustedProxies) Middleware(next http.Handler) http.Handler {
	if len(p) == 0 {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		client := p.ClientIP(r)
		if client != remoteHost(r.RemoteAddr) {
			r = r.WithContext(r.Context())
			r.RemoteAddr = net.JoinHostPort(client, "0")
		}
		next.ServeHTTP(w, r)
	})
}
