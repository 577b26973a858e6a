package utils

import (
	"net"
	"strings"

	"github.com/gin-gonic/gin"
)

var privateNets = func() []*net.IPNet {
	var nets []*net.IPNet
	for _, cidr := range []string{"10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16", "127.0.0.0/8", "::1/128", "fc00::/7"} {
		_, n, _ := net.ParseCIDR(cidr)
		nets = append(nets, n)
	}
	return nets
}()

// ClientIP returns the caller's address for request logs.
// X-Real-IP wins when it is public, then the first public X-Forwarded-For
// hop, then gin's ClientIP.
func ClientIP(c *gin.Context) string {
	if ip := strings.TrimSpace(c.GetHeader("X-Real-IP")); isPublic(ip) {
		return ip
	}

	if forwarded := c.GetHeader("X-Forwarded-For"); forwarded != "" {
		for _, hop := range strings.Split(forwarded, ",") {
			if ip := strings.TrimSpace(hop); isPublic(ip) {
				return ip
			}
		}
	}

	return c.ClientIP()
}

// IsPrivate reports whether ip is loopback or in a private range
func IsPrivate(ip net.IP) bool {
	for _, n := range privateNets {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

func isPublic(raw string) bool {
	ip := net.ParseIP(raw)
	return ip != nil && !IsPrivate(ip)
}
